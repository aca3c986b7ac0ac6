package utilities

import (
	"context"
	"errors"
	"sync"

	"github.com/SundaeSwap-finance/ogmigo/v6/ouroboros/shared"
	"github.com/SundaeSwap-finance/sundae-farm/types"
	"github.com/holiman/uint256"
)

var (
	RewardAsset = shared.AssetID("farm.Reward")
	StakeAsset  = shared.AssetID("lp.Staked")
	OtherAsset  = shared.AssetID("lp.Other")
)

// ErrInjected is what the failing gateways return once they trip
var ErrInjected = errors.New("injected failure")

func SampleProgram(rewardPerBlock uint64, startBlock, bonusEndBlock uint64) types.Program {
	return types.Program{
		ID:              "TestFarm",
		RewardAsset:     RewardAsset,
		RewardPerBlock:  *uint256.NewInt(rewardPerBlock),
		StartBlock:      startBlock,
		BonusEndBlock:   bonusEndBlock,
		BonusMultiplier: 10,
	}
}

func SamplePool(id uint64, allocPoint uint64, staked uint64) types.Pool {
	return types.Pool{
		ID:          id,
		StakeToken:  StakeAsset,
		AllocPoint:  allocPoint,
		TotalStaked: *uint256.NewInt(staked),
	}
}

// SampleCaller is a caller whose key hash is its own name, for use with a signature script
func SampleCaller(id string) types.Caller {
	return types.Caller{ID: id, KeyHashes: [][]byte{[]byte(id)}}
}

func SampleAdminScript(id string) types.MultisigScript {
	return types.MultisigScript{Signature: &types.Signature{KeyHash: []byte(id)}}
}

// ManualClock is a block source the test advances by hand
type ManualClock struct {
	mutex sync.Mutex
	block uint64
}

func NewManualClock(block uint64) *ManualClock {
	return &ManualClock{block: block}
}

func (c *ManualClock) CurrentBlock() uint64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.block
}

func (c *ManualClock) Set(block uint64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.block = block
}

func (c *ManualClock) Advance(blocks uint64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.block += blocks
}

type minter interface {
	Mint(ctx context.Context, to string, amount *uint256.Int) error
}

type custody interface {
	TransferIn(ctx context.Context, token shared.AssetID, from string, amount *uint256.Int) error
	TransferOut(ctx context.Context, token shared.AssetID, to string, amount *uint256.Int) error
	RefundIn(ctx context.Context, token shared.AssetID, to string, amount *uint256.Int) error
	ReclaimOut(ctx context.Context, token shared.AssetID, from string, amount *uint256.Int) error
}

// FailingGateway wraps real gateways and fails the named operation ("mint", "in", "out", "refund"
// or "reclaim") while it is armed
type FailingGateway struct {
	Minter  minter
	Custody custody

	mutex sync.Mutex
	fail  map[string]bool
	Calls []string
}

func NewFailingGateway(m minter, c custody) *FailingGateway {
	return &FailingGateway{Minter: m, Custody: c, fail: map[string]bool{}}
}

func (g *FailingGateway) Arm(op string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.fail[op] = true
}

func (g *FailingGateway) Disarm() {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.fail = map[string]bool{}
}

func (g *FailingGateway) record(op string) bool {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.Calls = append(g.Calls, op)
	return g.fail[op]
}

func (g *FailingGateway) Mint(ctx context.Context, to string, amount *uint256.Int) error {
	if g.record("mint") {
		return ErrInjected
	}
	return g.Minter.Mint(ctx, to, amount)
}

func (g *FailingGateway) TransferIn(ctx context.Context, token shared.AssetID, from string, amount *uint256.Int) error {
	if g.record("in") {
		return ErrInjected
	}
	return g.Custody.TransferIn(ctx, token, from, amount)
}

func (g *FailingGateway) TransferOut(ctx context.Context, token shared.AssetID, to string, amount *uint256.Int) error {
	if g.record("out") {
		return ErrInjected
	}
	return g.Custody.TransferOut(ctx, token, to, amount)
}

func (g *FailingGateway) RefundIn(ctx context.Context, token shared.AssetID, to string, amount *uint256.Int) error {
	if g.record("refund") {
		return ErrInjected
	}
	return g.Custody.RefundIn(ctx, token, to, amount)
}

func (g *FailingGateway) ReclaimOut(ctx context.Context, token shared.AssetID, from string, amount *uint256.Int) error {
	if g.record("reclaim") {
		return ErrInjected
	}
	return g.Custody.ReclaimOut(ctx, token, from, amount)
}

// RecordingEmitter keeps every event it is handed
type RecordingEmitter struct {
	mutex  sync.Mutex
	Events []types.Event
}

func (e *RecordingEmitter) Emit(event types.Event) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.Events = append(e.Events, event)
}

func (e *RecordingEmitter) Kinds() []types.EventKind {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	var kinds []types.EventKind
	for _, ev := range e.Events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}
