package calculation

import (
	"errors"

	"github.com/SundaeSwap-finance/sundae-farm/types"
	"github.com/holiman/uint256"
)

// ErrArithmeticOverflow is returned instead of silently wrapping whenever a reward computation
// leaves the 256 bit range (or would go negative)
var ErrArithmeticOverflow = errors.New("arithmetic overflow")

// AccRewardPrecision is the fixed-point scale of Pool.AccRewardPerShare
var AccRewardPrecision = uint256.NewInt(1_000_000_000_000)

const DefaultBonusMultiplier = 10

// Multiplier returns the weighted number of blocks between from and to: blocks before the end of the
// bonus period count BonusMultiplier times, blocks after count once, and nothing accrues before the
// program starts
func Multiplier(program types.Program, from, to uint64) *uint256.Int {
	if from < program.StartBlock {
		from = program.StartBlock
	}
	if to <= from {
		return new(uint256.Int)
	}
	bonus := uint256.NewInt(program.BonusMultiplier)
	switch {
	case to <= program.BonusEndBlock:
		return new(uint256.Int).Mul(uint256.NewInt(to-from), bonus)
	case from >= program.BonusEndBlock:
		return uint256.NewInt(to - from)
	default:
		// Straddles the end of the bonus; uint64 x uint64 can't overflow 256 bits
		weighted := new(uint256.Int).Mul(uint256.NewInt(program.BonusEndBlock-from), bonus)
		return weighted.Add(weighted, uint256.NewInt(to-program.BonusEndBlock))
	}
}

// PoolReward computes the reward newly due to a pool between its last update and now, rounding down;
// the truncated dust is never distributed
func PoolReward(program types.Program, pool types.Pool, totalAllocPoint uint64, now uint64) (*uint256.Int, error) {
	if totalAllocPoint == 0 || pool.AllocPoint == 0 {
		return new(uint256.Int), nil
	}
	reward, overflow := new(uint256.Int).MulOverflow(Multiplier(program, pool.LastRewardBlock, now), &program.RewardPerBlock)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	if _, overflow := reward.MulOverflow(reward, uint256.NewInt(pool.AllocPoint)); overflow {
		return nil, ErrArithmeticOverflow
	}
	return reward.Div(reward, uint256.NewInt(totalAllocPoint)), nil
}

// AccruePool brings the pool's accumulator current as of now. Calling it again for the same (or an
// earlier) block is a no-op, and blocks during which the pool held no stake accrue nothing.
// The pool is left untouched when an error is returned.
func AccruePool(program types.Program, pool *types.Pool, totalAllocPoint uint64, now uint64) error {
	if now <= pool.LastRewardBlock {
		return nil
	}
	if pool.TotalStaked.IsZero() {
		pool.LastRewardBlock = now
		return nil
	}
	reward, err := PoolReward(program, *pool, totalAllocPoint, now)
	if err != nil {
		return err
	}
	perShare, overflow := new(uint256.Int).MulOverflow(reward, AccRewardPrecision)
	if overflow {
		return ErrArithmeticOverflow
	}
	perShare.Div(perShare, &pool.TotalStaked)
	acc, err := SafeAdd(&pool.AccRewardPerShare, perShare)
	if err != nil {
		return err
	}
	pool.AccRewardPerShare = *acc
	pool.LastRewardBlock = now
	return nil
}

// RewardDebt is the reward already accounted for by amount at the given accumulator value
func RewardDebt(amount, accRewardPerShare *uint256.Int) (*uint256.Int, error) {
	debt, overflow := new(uint256.Int).MulOverflow(amount, accRewardPerShare)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return debt.Div(debt, AccRewardPrecision), nil
}

// PendingReward is what the position could claim against the pool's accumulator as it stands;
// the pool must already have been brought current
func PendingReward(pool types.Pool, position types.Position) (*uint256.Int, error) {
	accumulated, err := RewardDebt(&position.Amount, &pool.AccRewardPerShare)
	if err != nil {
		return nil, err
	}
	// amount * acc never shrinks while the position is at rest, so this is an invariant violation
	return SafeSub(accumulated, &position.RewardDebt)
}

func SafeAdd(x, y *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return sum, nil
}

func SafeSub(x, y *uint256.Int) (*uint256.Int, error) {
	diff, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, ErrArithmeticOverflow
	}
	return diff, nil
}
