// Package ledger is the farm itself: a registry of weighted pools sharing one reward emission, and
// the per-owner positions staked in them. Rewards accrue lazily through a per-pool accumulator and
// are minted when claimed.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/SundaeSwap-finance/sundae-farm/calculation"
	"github.com/SundaeSwap-finance/sundae-farm/logger"
	"github.com/SundaeSwap-finance/sundae-farm/metrics"
	"github.com/SundaeSwap-finance/sundae-farm/state"
	"github.com/SundaeSwap-finance/sundae-farm/types"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
)

type Dependencies struct {
	Clock     Clock
	Authority Authority
	Minter    MintGateway
	Custody   StakeTransferGateway
	// Optional; events are still journaled without one
	Emitter Emitter
	Logger  *zerolog.Logger
}

type Ledger struct {
	mutex   sync.Mutex
	store   *state.Store
	program types.Program

	clock     Clock
	authority Authority
	minter    MintGateway
	custody   StakeTransferGateway
	emitter   Emitter
	logger    zerolog.Logger
}

// Initialize records the emission program in an empty store
func Initialize(store *state.Store, program types.Program) error {
	if program.ID == "" {
		return fmt.Errorf("program id must be set")
	}
	if program.RewardAsset == "" {
		return fmt.Errorf("program reward asset must be set")
	}
	if program.BonusMultiplier == 0 {
		program.BonusMultiplier = calculation.DefaultBonusMultiplier
	}
	tx := store.Begin()
	defer tx.Discard()
	if _, ok, err := tx.Program(); err != nil {
		return err
	} else if ok {
		return ErrAlreadyInitialized
	}
	if err := tx.PutProgram(program); err != nil {
		return err
	}
	return tx.Commit()
}

func New(store *state.Store, deps Dependencies) (*Ledger, error) {
	if deps.Clock == nil || deps.Minter == nil || deps.Custody == nil {
		return nil, fmt.Errorf("ledger needs a clock, a minter and a stake custodian")
	}
	tx := store.Begin()
	defer tx.Discard()
	program, ok, err := tx.Program()
	if err != nil {
		return nil, fmt.Errorf("failed to load program: %w", err)
	} else if !ok {
		return nil, ErrNotInitialized
	}
	l := &Ledger{
		store:     store,
		program:   program,
		clock:     deps.Clock,
		authority: deps.Authority,
		minter:    deps.Minter,
		custody:   deps.Custody,
		emitter:   deps.Emitter,
		logger:    logger.GetForComponent("ledger"),
	}
	if l.authority == nil {
		l.authority = AllowList{}
	}
	if l.emitter == nil {
		l.emitter = NoopEmitter{}
	}
	if deps.Logger != nil {
		l.logger = deps.Logger.With().Str("component", "ledger").Logger()
	}
	l.logger = l.logger.With().Str("program", program.ID).Logger()
	return l, nil
}

// op is the working set of a single mutating call
type op struct {
	kind    string
	tx      *state.Tx
	globals types.Globals
	block   uint64
	caller  string
	plan    settlement
	touched map[uint64]types.Pool
	minted  uint256.Int
}

func (o *op) emit(event types.Event) error {
	event.Block = o.block
	if event.Caller == "" {
		event.Caller = o.caller
	}
	_, err := o.tx.AppendEvent(event)
	return err
}

func (o *op) putPool(pool types.Pool) error {
	o.touched[pool.ID] = pool
	return o.tx.PutPool(pool)
}

// apply runs fn against a fresh transaction at the current block, settles the gateway calls it
// staged, and commits. Nothing is written unless every step succeeds.
func (l *Ledger) apply(ctx context.Context, kind string, caller string, fn func(o *op) error) (err error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	defer func() {
		metrics.Operation(kind, resultLabel(err))
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	block := l.clock.CurrentBlock()
	tx := l.store.Begin()
	defer tx.Discard()

	globals, err := tx.Globals()
	if err != nil {
		return fmt.Errorf("failed to load globals: %w", err)
	}
	if block < globals.LastBlock {
		return fmt.Errorf("%w: %v < %v", ErrStaleBlock, block, globals.LastBlock)
	}
	o := &op{kind: kind, tx: tx, globals: globals, block: block, caller: caller, touched: map[uint64]types.Pool{}}
	if err := fn(o); err != nil {
		return err
	}
	o.globals.LastBlock = block
	if err := tx.PutGlobals(o.globals); err != nil {
		return err
	}

	if err := l.settle(ctx, o); err != nil {
		l.logger.Warn().Err(err).Str("op", kind).Uint64("block", block).Msg("Settlement failed, rolled back")
		return err
	}
	if err := tx.Commit(); err != nil {
		l.logger.Error().Err(err).Str("op", kind).Uint64("block", block).Msg("Commit failed after settlement")
		return l.compensate(ctx, o, o.plan.steps(), fmt.Errorf("failed to commit %v: %w", kind, err))
	}

	for _, event := range tx.Appended() {
		l.emitter.Emit(event)
	}
	if !o.minted.IsZero() {
		metrics.RewardMinted(&o.minted)
	}
	for _, pool := range o.touched {
		metrics.PoolState(pool.ID, &pool.TotalStaked, &pool.AccRewardPerShare)
	}
	l.logger.Debug().
		Str("op", kind).
		Str("caller", caller).
		Uint64("block", block).
		Int("events", len(tx.Appended())).
		Msg("Applied")
	return nil
}

func (l *Ledger) authorize(caller types.Caller, block uint64) error {
	if !l.authority.IsPrivileged(caller, block) {
		return fmt.Errorf("%w: %v", ErrAccessDenied, caller.ID)
	}
	return nil
}

func (l *Ledger) Program() types.Program {
	return l.program
}

func (l *Ledger) Globals() (types.Globals, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	tx := l.store.Begin()
	defer tx.Discard()
	return tx.Globals()
}

func (l *Ledger) Pool(poolID uint64) (types.Pool, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	tx := l.store.Begin()
	defer tx.Discard()
	return loadPool(tx, poolID)
}

func (l *Ledger) Pools() ([]types.Pool, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	tx := l.store.Begin()
	defer tx.Discard()
	globals, err := tx.Globals()
	if err != nil {
		return nil, err
	}
	pools := make([]types.Pool, 0, globals.PoolCount)
	for id := uint64(0); id < globals.PoolCount; id++ {
		pool, err := loadPool(tx, id)
		if err != nil {
			return nil, err
		}
		pools = append(pools, pool)
	}
	return pools, nil
}

// Position returns the owner's stake in a pool; owners who never deposited have an empty one
func (l *Ledger) Position(poolID uint64, owner string) (types.Position, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	tx := l.store.Begin()
	defer tx.Discard()
	if _, err := loadPool(tx, poolID); err != nil {
		return types.Position{}, err
	}
	return tx.Position(poolID, owner)
}

func (l *Ledger) Positions(poolID uint64) ([]types.Position, error) {
	if _, err := l.Pool(poolID); err != nil {
		return nil, err
	}
	return l.store.Positions(poolID)
}

func (l *Ledger) Events(from uint64, limit int) ([]types.Event, error) {
	return l.store.Events(from, limit)
}

func loadPool(tx *state.Tx, poolID uint64) (types.Pool, error) {
	pool, ok, err := tx.Pool(poolID)
	if err != nil {
		return types.Pool{}, fmt.Errorf("failed to load pool %v: %w", poolID, err)
	} else if !ok {
		return types.Pool{}, fmt.Errorf("%w: %v", ErrInvalidPool, poolID)
	}
	return pool, nil
}
