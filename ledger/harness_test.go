package ledger

import (
	"context"
	"testing"

	"github.com/SundaeSwap-finance/ogmigo/v6/ouroboros/shared"
	"github.com/SundaeSwap-finance/sundae-farm/bank"
	"github.com/SundaeSwap-finance/sundae-farm/state"
	"github.com/SundaeSwap-finance/sundae-farm/types"
	"github.com/SundaeSwap-finance/sundae-farm/utilities"
	"github.com/holiman/uint256"
	"github.com/tj/assert"
)

type harness struct {
	t       *testing.T
	ctx     context.Context
	store   *state.Store
	bank    *bank.Bank
	clock   *utilities.ManualClock
	gateway *utilities.FailingGateway
	events  *utilities.RecordingEmitter
	ledger  *Ledger
	admin   types.Caller
}

func newHarness(t *testing.T, program types.Program) *harness {
	store, err := state.OpenMem()
	assert.Nil(t, err)
	t.Cleanup(func() { store.Close() })
	assert.Nil(t, Initialize(store, program))

	b := bank.New(store, "", program.RewardAsset)
	h := &harness{
		t:       t,
		ctx:     context.Background(),
		store:   store,
		bank:    b,
		clock:   utilities.NewManualClock(0),
		gateway: utilities.NewFailingGateway(b, b),
		events:  &utilities.RecordingEmitter{},
		admin:   utilities.SampleCaller("admin"),
	}
	h.ledger, err = New(store, Dependencies{
		Clock:     h.clock,
		Authority: ScriptAuthority{Script: utilities.SampleAdminScript("admin")},
		Minter:    h.gateway,
		Custody:   h.gateway,
		Emitter:   h.events,
	})
	assert.Nil(t, err)
	return h
}

func (h *harness) at(block uint64) *harness {
	h.clock.Set(block)
	return h
}

// fund gives an account some of a token and approves the farm for an exact amount
func (h *harness) fund(token shared.AssetID, account string, amount, approved uint64) {
	assert.Nil(h.t, h.bank.Fund(h.ctx, token, account, uint256.NewInt(amount)))
	assert.Nil(h.t, h.bank.Approve(h.ctx, token, account, uint256.NewInt(approved)))
}

func (h *harness) addPool(allocPoint uint64, token shared.AssetID) uint64 {
	id, err := h.ledger.AddPool(h.ctx, h.admin, allocPoint, token, true)
	assert.Nil(h.t, err)
	return id
}

func (h *harness) deposit(poolID uint64, owner string, amount uint64) {
	_, err := h.ledger.Deposit(h.ctx, poolID, owner, uint256.NewInt(amount))
	assert.Nil(h.t, err)
}

func (h *harness) withdraw(poolID uint64, owner string, amount uint64) {
	_, err := h.ledger.Withdraw(h.ctx, poolID, owner, uint256.NewInt(amount))
	assert.Nil(h.t, err)
}

func (h *harness) pending(poolID uint64, owner string) uint64 {
	pending, err := h.ledger.PendingReward(poolID, owner)
	assert.Nil(h.t, err)
	return pending.Uint64()
}

func (h *harness) balance(token shared.AssetID, account string) uint64 {
	balance, err := h.bank.Balance(token, account)
	assert.Nil(h.t, err)
	return balance.Uint64()
}

func (h *harness) allowance(token shared.AssetID, owner string) uint64 {
	allowance, err := h.bank.Allowance(token, owner)
	assert.Nil(h.t, err)
	return allowance.Uint64()
}

func (h *harness) reward(account string) uint64 {
	return h.balance(h.ledger.Program().RewardAsset, account)
}

func (h *harness) rewardSupply() uint64 {
	supply, err := h.bank.Supply(h.ledger.Program().RewardAsset)
	assert.Nil(h.t, err)
	return supply.Uint64()
}

func (h *harness) pool(poolID uint64) types.Pool {
	pool, err := h.ledger.Pool(poolID)
	assert.Nil(h.t, err)
	return pool
}

func (h *harness) position(poolID uint64, owner string) types.Position {
	position, err := h.ledger.Position(poolID, owner)
	assert.Nil(h.t, err)
	return position
}

// staked is the pool's total stake
func (h *harness) staked(poolID uint64) uint64 {
	pool := h.pool(poolID)
	return pool.TotalStaked.Uint64()
}

// amount is what owner has staked in the pool
func (h *harness) amount(poolID uint64, owner string) uint64 {
	position := h.position(poolID, owner)
	return position.Amount.Uint64()
}

func uint256Of(x uint64) *uint256.Int {
	return uint256.NewInt(x)
}
