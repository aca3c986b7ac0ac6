package ledger

import (
	"context"
	"fmt"
	"math/bits"

	"github.com/SundaeSwap-finance/ogmigo/v6/ouroboros/shared"
	"github.com/SundaeSwap-finance/sundae-farm/types"
)

// AddPool registers a new pool for stakeToken with the given weight and returns its id. Pool ids
// are assigned in order and never reused. With withUpdate set, every existing pool is brought
// current first so the new weight only dilutes rewards from now on.
func (l *Ledger) AddPool(ctx context.Context, caller types.Caller, allocPoint uint64, stakeToken shared.AssetID, withUpdate bool) (uint64, error) {
	var poolID uint64
	err := l.apply(ctx, "addPool", caller.ID, func(o *op) error {
		if err := l.authorize(caller, o.block); err != nil {
			return err
		}
		if stakeToken == "" {
			return ErrInvalidStakeToken
		}
		if withUpdate {
			if err := l.massUpdatePools(o, false); err != nil {
				return err
			}
		}
		total, carry := bits.Add64(o.globals.TotalAllocPoint, allocPoint, 0)
		if carry != 0 {
			return fmt.Errorf("%w: total allocation points", ErrArithmeticOverflow)
		}

		lastRewardBlock := o.block
		if lastRewardBlock < l.program.StartBlock {
			lastRewardBlock = l.program.StartBlock
		}
		pool := types.Pool{
			ID:              o.globals.PoolCount,
			StakeToken:      stakeToken,
			AllocPoint:      allocPoint,
			LastRewardBlock: lastRewardBlock,
		}
		if err := o.putPool(pool); err != nil {
			return err
		}
		o.globals.TotalAllocPoint = total
		o.globals.PoolCount++
		poolID = pool.ID

		return o.emit(types.Event{
			Kind:       types.EventPoolAdded,
			PoolID:     pool.ID,
			AllocPoint: allocPoint,
			StakeToken: stakeToken,
		})
	})
	return poolID, err
}

// SetAllocPoint changes a pool's weight from this block on. The pool itself is always brought
// current first; withUpdate does the same for every other pool, whose share shrinks or grows with
// the new total.
func (l *Ledger) SetAllocPoint(ctx context.Context, caller types.Caller, poolID uint64, allocPoint uint64, withUpdate bool) error {
	return l.apply(ctx, "setAllocPoint", caller.ID, func(o *op) error {
		if err := l.authorize(caller, o.block); err != nil {
			return err
		}
		// Rewards already earned are settled at the old weight
		if _, err := l.updatePool(o, poolID, false); err != nil {
			return err
		}
		if withUpdate {
			if err := l.massUpdatePools(o, false); err != nil {
				return err
			}
		}
		pool, err := loadPool(o.tx, poolID)
		if err != nil {
			return err
		}
		total, carry := bits.Add64(o.globals.TotalAllocPoint-pool.AllocPoint, allocPoint, 0)
		if carry != 0 {
			return fmt.Errorf("%w: total allocation points", ErrArithmeticOverflow)
		}
		o.globals.TotalAllocPoint = total
		pool.AllocPoint = allocPoint
		if err := o.putPool(pool); err != nil {
			return err
		}
		return o.emit(types.Event{
			Kind:       types.EventAllocPointSet,
			PoolID:     pool.ID,
			AllocPoint: allocPoint,
			StakeToken: pool.StakeToken,
		})
	})
}

// ChangeStakeToken swaps the token a pool accepts. Positions keep their amounts; the caller hands
// the farm the same quantity of the new token and takes back the old one, so withdrawals after
// the swap pay out in the new token.
func (l *Ledger) ChangeStakeToken(ctx context.Context, caller types.Caller, poolID uint64, stakeToken shared.AssetID) error {
	return l.apply(ctx, "changeStakeToken", caller.ID, func(o *op) error {
		if err := l.authorize(caller, o.block); err != nil {
			return err
		}
		if stakeToken == "" {
			return ErrInvalidStakeToken
		}
		pool, err := l.updatePool(o, poolID, false)
		if err != nil {
			return err
		}
		previous := pool.StakeToken
		pool.StakeToken = stakeToken
		if err := o.putPool(pool); err != nil {
			return err
		}
		if previous != stakeToken {
			o.plan.pull(stakeToken, caller.ID, &pool.TotalStaked)
			o.plan.push(previous, caller.ID, &pool.TotalStaked)
		}
		return o.emit(types.Event{
			Kind:              types.EventStakeTokenChanged,
			PoolID:            pool.ID,
			Amount:            pool.TotalStaked,
			StakeToken:        stakeToken,
			AccRewardPerShare: pool.AccRewardPerShare,
			TotalStaked:       pool.TotalStaked,
		})
	})
}
