package ledger

import (
	"testing"

	"github.com/SundaeSwap-finance/sundae-farm/types"
	"github.com/SundaeSwap-finance/sundae-farm/utilities"
	"github.com/tj/assert"
)

func Test_InitializeOnce(t *testing.T) {
	h := newHarness(t, utilities.SampleProgram(1000, 0, 1000))
	program := h.ledger.Program()
	assert.EqualValues(t, 1000, program.RewardPerBlock.Uint64())
	assert.EqualValues(t, 0, program.StartBlock)
	assert.EqualValues(t, 1000, program.BonusEndBlock)
	assert.Equal(t, utilities.RewardAsset, program.RewardAsset)

	assert.Equal(t, ErrAlreadyInitialized, Initialize(h.store, program))
}

func Test_EmergencyWithdraw(t *testing.T) {
	h := newHarness(t, utilities.SampleProgram(100, 100, 1000))
	h.fund(utilities.StakeAsset, "bob", 1000, 1000)
	h.addPool(100, utilities.StakeAsset)

	h.at(50).deposit(0, "bob", 100)
	assert.EqualValues(t, 900, h.balance(utilities.StakeAsset, "bob"))

	// Ten blocks of reward are pending, and all of it is forfeited
	h.at(110)
	assert.EqualValues(t, 10_000, h.pending(0, "bob"))
	returned, err := h.ledger.EmergencyWithdraw(h.ctx, 0, "bob")
	assert.Nil(t, err)
	assert.EqualValues(t, 100, returned.Uint64())

	assert.EqualValues(t, 1000, h.balance(utilities.StakeAsset, "bob"))
	assert.EqualValues(t, 0, h.reward("bob"))
	assert.EqualValues(t, 0, h.pending(0, "bob"))
	position := h.position(0, "bob")
	assert.True(t, position.Amount.IsZero())
	assert.True(t, position.RewardDebt.IsZero())
	assert.EqualValues(t, 0, h.staked(0))
	// The accumulator is left where it was
	assert.EqualValues(t, 100, h.pool(0).LastRewardBlock)

	// Nothing left to return; still succeeds
	returned, err = h.ledger.EmergencyWithdraw(h.ctx, 0, "bob")
	assert.Nil(t, err)
	assert.True(t, returned.IsZero())
}

func Test_RewardOnlyAfterFarmingStarts(t *testing.T) {
	h := newHarness(t, utilities.SampleProgram(100, 100, 1000))
	h.fund(utilities.StakeAsset, "bob", 1000, 1000)
	h.at(5).addPool(100, utilities.StakeAsset)
	assert.EqualValues(t, 100, h.pool(0).LastRewardBlock)

	h.at(10).deposit(0, "bob", 100)
	for _, block := range []uint64{90, 95, 100} {
		h.at(block).deposit(0, "bob", 0)
		assert.EqualValues(t, 0, h.reward("bob"), "block %v", block)
	}
	h.at(101).deposit(0, "bob", 0)
	assert.EqualValues(t, 1000, h.reward("bob"))

	h.at(105).deposit(0, "bob", 0)
	assert.EqualValues(t, 5000, h.reward("bob"))
	assert.EqualValues(t, 5000, h.rewardSupply())
}

func Test_NoRewardWithoutDeposits(t *testing.T) {
	h := newHarness(t, utilities.SampleProgram(100, 200, 1000))
	h.fund(utilities.StakeAsset, "alice", 1000, 1000)
	h.fund(utilities.StakeAsset, "bob", 1000, 1000)
	h.at(150).addPool(100, utilities.StakeAsset)

	h.at(199)
	assert.EqualValues(t, 0, h.rewardSupply())
	h.at(204)
	assert.EqualValues(t, 0, h.rewardSupply())

	h.at(210).deposit(0, "bob", 10)
	assert.EqualValues(t, 0, h.rewardSupply())
	assert.EqualValues(t, 0, h.reward("bob"))
	assert.EqualValues(t, 990, h.balance(utilities.StakeAsset, "bob"))

	h.at(220).withdraw(0, "bob", 10)
	assert.EqualValues(t, 10_000, h.rewardSupply())
	assert.EqualValues(t, 10_000, h.reward("bob"))
	assert.EqualValues(t, 1000, h.balance(utilities.StakeAsset, "bob"))

	// Blocks 220 to 230 had nobody staked; they pay nothing to anyone
	h.at(230).deposit(0, "alice", 10)
	h.at(240).withdraw(0, "alice", 10)
	assert.EqualValues(t, 20_000, h.rewardSupply())
	assert.EqualValues(t, 10_000, h.reward("alice"))
	assert.EqualValues(t, 1000, h.balance(utilities.StakeAsset, "alice"))
}

func Test_ProportionalRewardsAcrossStakeTokenChange(t *testing.T) {
	h := newHarness(t, utilities.SampleProgram(100, 300, 1000))
	for _, owner := range []string{"alice", "bob", "carol"} {
		h.fund(utilities.StakeAsset, owner, 1000, 1000)
		assert.Nil(t, h.bank.Fund(h.ctx, utilities.OtherAsset, owner, uint256Of(1000)))
	}
	h.fund(utilities.OtherAsset, "admin", 1000, 100)
	assert.Nil(t, h.bank.Approve(h.ctx, utilities.OtherAsset, "alice", uint256Of(100)))
	h.at(300).addPool(100, utilities.StakeAsset)

	h.at(310).deposit(0, "alice", 10)
	h.at(314).deposit(0, "bob", 20)
	h.at(318).deposit(0, "carol", 30)
	assert.Nil(t, h.at(319).ledger.ChangeStakeToken(h.ctx, h.admin, 0, utilities.OtherAsset))
	assert.Equal(t, utilities.OtherAsset, h.pool(0).StakeToken)
	assert.EqualValues(t, 60, h.staked(0))
	// The admin swapped 60 of the new token for the 60 old ones in custody
	assert.EqualValues(t, 940, h.balance(utilities.OtherAsset, "admin"))
	assert.EqualValues(t, 60, h.balance(utilities.StakeAsset, "admin"))

	// Alice: 4*1000 + 4*1/3*1000 + 2*1/6*1000
	h.at(320).deposit(0, "alice", 10)
	assert.EqualValues(t, 5666, h.rewardSupply())
	assert.EqualValues(t, 5666, h.reward("alice"))
	assert.EqualValues(t, 0, h.reward("bob"))
	assert.EqualValues(t, 0, h.reward("carol"))

	// Bob: 4*2/3*1000 + 2*2/6*1000 + 10*2/7*1000
	h.at(330).withdraw(0, "bob", 5)
	assert.EqualValues(t, 5666, h.reward("alice"))
	assert.EqualValues(t, 6190, h.reward("bob"))
	assert.EqualValues(t, 0, h.reward("carol"))

	h.at(340).withdraw(0, "alice", 20)
	h.at(350).withdraw(0, "bob", 15)
	h.at(360).withdraw(0, "carol", 30)
	assert.EqualValues(t, 11600, h.reward("alice"))
	assert.EqualValues(t, 11831, h.reward("bob"))
	assert.EqualValues(t, 26568, h.reward("carol"))
	// 50000 emitted; one unit is rounding dust that stays unminted
	assert.EqualValues(t, 49999, h.rewardSupply())

	assert.EqualValues(t, 990, h.balance(utilities.StakeAsset, "alice"))
	assert.EqualValues(t, 1010, h.balance(utilities.OtherAsset, "alice"))
	assert.EqualValues(t, 980, h.balance(utilities.StakeAsset, "bob"))
	assert.EqualValues(t, 1020, h.balance(utilities.OtherAsset, "bob"))
	assert.EqualValues(t, 970, h.balance(utilities.StakeAsset, "carol"))
	assert.EqualValues(t, 1030, h.balance(utilities.OtherAsset, "carol"))
	assert.EqualValues(t, 0, h.staked(0))
}

func Test_AllocationAcrossPools(t *testing.T) {
	h := newHarness(t, utilities.SampleProgram(100, 400, 1000))
	h.fund(utilities.StakeAsset, "alice", 1000, 1000)
	h.fund(utilities.OtherAsset, "bob", 1000, 1000)

	h.at(350).addPool(10, utilities.StakeAsset)
	h.at(410).deposit(0, "alice", 10)
	h.at(420).addPool(20, utilities.OtherAsset)
	assert.EqualValues(t, 10_000, h.pending(0, "alice"))

	h.at(425).deposit(1, "bob", 5)
	assert.EqualValues(t, 11_666, h.pending(0, "alice"))

	h.at(430)
	assert.EqualValues(t, 13_333, h.pending(0, "alice"))
	assert.EqualValues(t, 3333, h.pending(1, "bob"))

	assert.Nil(t, h.at(435).ledger.SetAllocPoint(h.ctx, h.admin, 1, 10, true))
	assert.EqualValues(t, 15_000, h.pending(0, "alice"))
	assert.EqualValues(t, 6666, h.pending(1, "bob"))
	globals, err := h.ledger.Globals()
	assert.Nil(t, err)
	assert.EqualValues(t, 20, globals.TotalAllocPoint)
	assert.EqualValues(t, 2, globals.PoolCount)

	// Split 50/50 from here on
	h.at(440)
	assert.EqualValues(t, 17_500, h.pending(0, "alice"))
	assert.EqualValues(t, 9166, h.pending(1, "bob"))
}

func Test_BonusPeriodEnds(t *testing.T) {
	h := newHarness(t, utilities.SampleProgram(100, 500, 600))
	h.fund(utilities.StakeAsset, "alice", 1000, 1000)
	h.at(450).addPool(1, utilities.StakeAsset)

	h.at(590).deposit(0, "alice", 10)
	h.at(605)
	assert.EqualValues(t, 10_500, h.pending(0, "alice"))

	reward, err := h.at(606).ledger.Deposit(h.ctx, 0, "alice", uint256Of(0))
	assert.Nil(t, err)
	assert.EqualValues(t, 10_600, reward.Uint64())
	assert.EqualValues(t, 0, h.pending(0, "alice"))
	assert.EqualValues(t, 10_600, h.reward("alice"))
}

func Test_PendingMatchesPayout(t *testing.T) {
	h := newHarness(t, utilities.SampleProgram(7, 0, 50))
	h.fund(utilities.StakeAsset, "alice", 1000, 1000)
	h.fund(utilities.StakeAsset, "bob", 1000, 1000)
	h.addPool(3, utilities.StakeAsset)

	h.at(1).deposit(0, "alice", 13)
	h.at(9).deposit(0, "bob", 29)
	for _, block := range []uint64{17, 48, 61} {
		h.at(block)
		expected := h.pending(0, "alice")
		reward, err := h.ledger.Withdraw(h.ctx, 0, "alice", uint256Of(1))
		assert.Nil(t, err)
		assert.EqualValues(t, expected, reward.Uint64(), "block %v", block)
		assert.EqualValues(t, 0, h.pending(0, "alice"))
	}
}

func Test_UpdatePoolIsIdempotent(t *testing.T) {
	h := newHarness(t, utilities.SampleProgram(100, 0, 1000))
	h.fund(utilities.StakeAsset, "alice", 1000, 1000)
	h.addPool(1, utilities.StakeAsset)
	h.at(3).deposit(0, "alice", 7)

	assert.Nil(t, h.at(10).ledger.UpdatePool(h.ctx, 0))
	once := h.pool(0)
	assert.Nil(t, h.ledger.UpdatePool(h.ctx, 0))
	assert.Nil(t, h.ledger.MassUpdatePools(h.ctx))
	assert.Equal(t, once, h.pool(0))
	assert.EqualValues(t, 10, once.LastRewardBlock)

	// 7 blocks at 1000 shared by 7 units
	assert.EqualValues(t, 1000_000_000_000_000, once.AccRewardPerShare.Uint64())
}

func Test_PoolsAndPositions(t *testing.T) {
	h := newHarness(t, utilities.SampleProgram(100, 0, 1000))
	h.fund(utilities.StakeAsset, "alice", 1000, 1000)
	h.fund(utilities.StakeAsset, "bob", 1000, 1000)
	h.addPool(1, utilities.StakeAsset)
	// The same token may back more than one pool
	h.addPool(2, utilities.StakeAsset)

	h.at(1).deposit(1, "bob", 5)
	h.at(2).deposit(1, "alice", 3)

	pools, err := h.ledger.Pools()
	assert.Nil(t, err)
	assert.Len(t, pools, 2)
	assert.EqualValues(t, 0, pools[0].ID)
	assert.EqualValues(t, 2, pools[1].AllocPoint)
	assert.EqualValues(t, 8, pools[1].TotalStaked.Uint64())

	positions, err := h.ledger.Positions(1)
	assert.Nil(t, err)
	assert.Len(t, positions, 2)
	assert.Equal(t, "alice", positions[0].Owner)
	assert.EqualValues(t, 3, positions[0].Amount.Uint64())

	// An owner who never deposited has an empty position
	assert.Equal(t, types.Position{PoolID: 0, Owner: "carol"}, h.position(0, "carol"))
}

func Test_EventsAreJournaled(t *testing.T) {
	h := newHarness(t, utilities.SampleProgram(100, 0, 1000))
	h.fund(utilities.StakeAsset, "alice", 1000, 1000)
	h.addPool(1, utilities.StakeAsset)
	h.at(1).deposit(0, "alice", 10)
	assert.Nil(t, h.at(2).ledger.MassUpdatePools(h.ctx))
	h.at(3).withdraw(0, "alice", 4)
	_, err := h.at(4).ledger.EmergencyWithdraw(h.ctx, 0, "alice")
	assert.Nil(t, err)

	assert.Equal(t, []types.EventKind{
		types.EventPoolAdded,
		types.EventDeposit,
		types.EventPoolUpdated,
		types.EventWithdraw,
		types.EventEmergencyWithdraw,
	}, h.events.Kinds())

	withdraw := h.events.Events[3]
	assert.EqualValues(t, 3, withdraw.Block)
	assert.Equal(t, "alice", withdraw.Caller)
	assert.EqualValues(t, 4, withdraw.Amount.Uint64())
	assert.EqualValues(t, 2000, withdraw.Reward.Uint64())
	assert.EqualValues(t, 6, withdraw.TotalStaked.Uint64())

	journal, err := h.ledger.Events(0, 0)
	assert.Nil(t, err)
	assert.Equal(t, h.events.Events, journal)
	count, err := h.store.VerifyJournal()
	assert.Nil(t, err)
	assert.EqualValues(t, 5, count)
}
