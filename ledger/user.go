package ledger

import (
	"context"
	"fmt"

	"github.com/SundaeSwap-finance/sundae-farm/calculation"
	"github.com/SundaeSwap-finance/sundae-farm/types"
	"github.com/holiman/uint256"
)

func orZero(x *uint256.Int) *uint256.Int {
	if x == nil {
		return new(uint256.Int)
	}
	return x
}

// PendingReward is what owner could claim from the pool right now. It never writes anything, and
// matches what a deposit or withdrawal in the same block would pay.
func (l *Ledger) PendingReward(poolID uint64, owner string) (*uint256.Int, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	tx := l.store.Begin()
	defer tx.Discard()

	pool, err := loadPool(tx, poolID)
	if err != nil {
		return nil, err
	}
	globals, err := tx.Globals()
	if err != nil {
		return nil, err
	}
	position, err := tx.Position(poolID, owner)
	if err != nil {
		return nil, err
	}
	if err := calculation.AccruePool(l.program, &pool, globals.TotalAllocPoint, l.clock.CurrentBlock()); err != nil {
		return nil, err
	}
	return calculation.PendingReward(pool, position)
}

// Deposit stakes amount into the pool on behalf of owner, first paying out any reward pending on
// what they already hold. A zero amount just claims.
func (l *Ledger) Deposit(ctx context.Context, poolID uint64, owner string, amount *uint256.Int) (*uint256.Int, error) {
	amount = orZero(amount)
	reward := new(uint256.Int)
	err := l.apply(ctx, "deposit", owner, func(o *op) error {
		if owner == "" {
			return ErrInvalidOwner
		}
		pool, err := l.updatePool(o, poolID, false)
		if err != nil {
			return err
		}
		position, err := o.tx.Position(poolID, owner)
		if err != nil {
			return err
		}
		if !position.Amount.IsZero() {
			pending, err := calculation.PendingReward(pool, position)
			if err != nil {
				return err
			}
			reward.Set(pending)
			o.plan.mint(l.program.RewardAsset, owner, pending)
		}

		if !amount.IsZero() {
			o.plan.pull(pool.StakeToken, owner, amount)
			staked, err := calculation.SafeAdd(&position.Amount, amount)
			if err != nil {
				return err
			}
			total, err := calculation.SafeAdd(&pool.TotalStaked, amount)
			if err != nil {
				return err
			}
			position.Amount = *staked
			pool.TotalStaked = *total
		}
		debt, err := calculation.RewardDebt(&position.Amount, &pool.AccRewardPerShare)
		if err != nil {
			return err
		}
		position.RewardDebt = *debt

		if err := o.putPool(pool); err != nil {
			return err
		}
		if err := o.tx.PutPosition(position); err != nil {
			return err
		}
		return o.emit(types.Event{
			Kind:              types.EventDeposit,
			PoolID:            poolID,
			Amount:            *amount,
			Reward:            *reward,
			StakeToken:        pool.StakeToken,
			AccRewardPerShare: pool.AccRewardPerShare,
			TotalStaked:       pool.TotalStaked,
		})
	})
	if err != nil {
		return nil, err
	}
	return reward, nil
}

// Withdraw returns amount of owner's stake along with all reward pending on the position
func (l *Ledger) Withdraw(ctx context.Context, poolID uint64, owner string, amount *uint256.Int) (*uint256.Int, error) {
	amount = orZero(amount)
	reward := new(uint256.Int)
	err := l.apply(ctx, "withdraw", owner, func(o *op) error {
		if owner == "" {
			return ErrInvalidOwner
		}
		if _, err := loadPool(o.tx, poolID); err != nil {
			return err
		}
		position, err := o.tx.Position(poolID, owner)
		if err != nil {
			return err
		}
		if amount.Gt(&position.Amount) {
			return fmt.Errorf("%w: %v requested, %v staked", ErrInsufficientStake, amount.Dec(), position.Amount.Dec())
		}
		pool, err := l.updatePool(o, poolID, false)
		if err != nil {
			return err
		}
		pending, err := calculation.PendingReward(pool, position)
		if err != nil {
			return err
		}
		reward.Set(pending)

		staked, err := calculation.SafeSub(&position.Amount, amount)
		if err != nil {
			return err
		}
		total, err := calculation.SafeSub(&pool.TotalStaked, amount)
		if err != nil {
			return err
		}
		position.Amount = *staked
		pool.TotalStaked = *total
		debt, err := calculation.RewardDebt(&position.Amount, &pool.AccRewardPerShare)
		if err != nil {
			return err
		}
		position.RewardDebt = *debt

		o.plan.push(pool.StakeToken, owner, amount)
		o.plan.mint(l.program.RewardAsset, owner, pending)
		if err := o.putPool(pool); err != nil {
			return err
		}
		if err := o.tx.PutPosition(position); err != nil {
			return err
		}
		return o.emit(types.Event{
			Kind:              types.EventWithdraw,
			PoolID:            poolID,
			Amount:            *amount,
			Reward:            *reward,
			StakeToken:        pool.StakeToken,
			AccRewardPerShare: pool.AccRewardPerShare,
			TotalStaked:       pool.TotalStaked,
		})
	})
	if err != nil {
		return nil, err
	}
	return reward, nil
}

// EmergencyWithdraw returns owner's whole stake without touching the accumulator. Any pending
// reward is forfeited.
func (l *Ledger) EmergencyWithdraw(ctx context.Context, poolID uint64, owner string) (*uint256.Int, error) {
	returned := new(uint256.Int)
	err := l.apply(ctx, "emergencyWithdraw", owner, func(o *op) error {
		if owner == "" {
			return ErrInvalidOwner
		}
		pool, err := loadPool(o.tx, poolID)
		if err != nil {
			return err
		}
		position, err := o.tx.Position(poolID, owner)
		if err != nil {
			return err
		}
		total, err := calculation.SafeSub(&pool.TotalStaked, &position.Amount)
		if err != nil {
			return err
		}
		pool.TotalStaked = *total
		returned.Set(&position.Amount)
		position.Amount.Clear()
		position.RewardDebt.Clear()

		o.plan.push(pool.StakeToken, owner, returned)
		if err := o.putPool(pool); err != nil {
			return err
		}
		if err := o.tx.PutPosition(position); err != nil {
			return err
		}
		return o.emit(types.Event{
			Kind:              types.EventEmergencyWithdraw,
			PoolID:            poolID,
			Amount:            *returned,
			StakeToken:        pool.StakeToken,
			AccRewardPerShare: pool.AccRewardPerShare,
			TotalStaked:       pool.TotalStaked,
		})
	})
	if err != nil {
		return nil, err
	}
	return returned, nil
}
