package types

import (
	"github.com/SundaeSwap-finance/ogmigo/v6/ouroboros/shared"
	"github.com/holiman/uint256"
)

// Program holds the emission parameters shared by every pool of a farm
type Program struct {
	ID              string
	RewardAsset     shared.AssetID
	RewardPerBlock  uint256.Int
	StartBlock      uint64
	BonusEndBlock   uint64
	BonusMultiplier uint64
}

// Pool is an independent staking market for one stake token
type Pool struct {
	ID              uint64
	StakeToken      shared.AssetID
	AllocPoint      uint64
	LastRewardBlock uint64
	// Scaled by calculation.AccRewardPrecision; never decreases
	AccRewardPerShare uint256.Int
	TotalStaked       uint256.Int
}

type Position struct {
	PoolID     uint64
	Owner      string
	Amount     uint256.Int
	RewardDebt uint256.Int
}

// Globals is the farm-wide bookkeeping; TotalAllocPoint always equals the sum of every pool's AllocPoint
type Globals struct {
	TotalAllocPoint uint64
	PoolCount       uint64
	// The highest block any mutating call has been applied at
	LastBlock uint64
}

// Caller identifies whoever submitted a call, along with the key hashes that signed it
type Caller struct {
	ID        string
	KeyHashes [][]byte
}

type EventKind string

const (
	EventPoolAdded         EventKind = "pool.added"
	EventAllocPointSet     EventKind = "pool.allocPoint"
	EventStakeTokenChanged EventKind = "pool.stakeToken"
	EventPoolUpdated       EventKind = "pool.updated"
	EventDeposit           EventKind = "deposit"
	EventWithdraw          EventKind = "withdraw"
	EventEmergencyWithdraw EventKind = "emergencyWithdraw"
)

// Event is the audit record emitted by every state-changing call; Seq, PrevHash and Hash are
// assigned when the event is appended to the journal
type Event struct {
	Seq    uint64
	Block  uint64
	Kind   EventKind
	PoolID uint64
	Caller string

	Amount     uint256.Int
	Reward     uint256.Int
	AllocPoint uint64
	StakeToken shared.AssetID

	AccRewardPerShare uint256.Int
	TotalStaked       uint256.Int

	PrevHash [32]byte
	Hash     [32]byte
}
