package ledger

import (
	"context"

	"github.com/SundaeSwap-finance/sundae-farm/calculation"
	"github.com/SundaeSwap-finance/sundae-farm/types"
)

// updatePool brings one pool's accumulator current as of the op's block and stages it
func (l *Ledger) updatePool(o *op, poolID uint64, announce bool) (types.Pool, error) {
	pool, err := loadPool(o.tx, poolID)
	if err != nil {
		return types.Pool{}, err
	}
	if err := calculation.AccruePool(l.program, &pool, o.globals.TotalAllocPoint, o.block); err != nil {
		return types.Pool{}, err
	}
	if err := o.putPool(pool); err != nil {
		return types.Pool{}, err
	}
	if announce {
		err := o.emit(types.Event{
			Kind:              types.EventPoolUpdated,
			PoolID:            pool.ID,
			AllocPoint:        pool.AllocPoint,
			StakeToken:        pool.StakeToken,
			AccRewardPerShare: pool.AccRewardPerShare,
			TotalStaked:       pool.TotalStaked,
		})
		if err != nil {
			return types.Pool{}, err
		}
	}
	return pool, nil
}

func (l *Ledger) massUpdatePools(o *op, announce bool) error {
	for id := uint64(0); id < o.globals.PoolCount; id++ {
		if _, err := l.updatePool(o, id, announce); err != nil {
			return err
		}
	}
	return nil
}

// UpdatePool accrues a single pool's rewards up to the current block. Anyone may call it, and a
// second call in the same block changes nothing.
func (l *Ledger) UpdatePool(ctx context.Context, poolID uint64) error {
	return l.apply(ctx, "updatePool", "", func(o *op) error {
		_, err := l.updatePool(o, poolID, true)
		return err
	})
}

// MassUpdatePools accrues every pool up to the current block
func (l *Ledger) MassUpdatePools(ctx context.Context) error {
	return l.apply(ctx, "massUpdatePools", "", func(o *op) error {
		return l.massUpdatePools(o, true)
	})
}
