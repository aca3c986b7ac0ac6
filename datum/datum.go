// Package datum is the on-disk encoding of the farm's records. Every record is serialized the way
// plutus data is: a constructor tag wrapping an array of fields, so that a record can be moved on
// chain (or compared against an on-chain datum) byte for byte.
package datum

import (
	"fmt"

	"github.com/SundaeSwap-finance/ogmigo/v6/ouroboros/shared"
	"github.com/SundaeSwap-finance/sundae-farm/types"
	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/blake2b"
)

const (
	constructorBase = 121
	// Bump when a record layout changes; decoding rejects anything else
	recordVersion = 0
)

var encMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

func wrap(fields interface{}) ([]byte, error) {
	content, err := encMode.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(cbor.RawTag{Number: constructorBase + recordVersion, Content: content})
}

func unwrap(bytes []byte, fields interface{}) error {
	var rawTag cbor.RawTag
	if err := cbor.Unmarshal(bytes, &rawTag); err != nil {
		return err
	}
	if rawTag.Number != constructorBase+recordVersion {
		return fmt.Errorf("unsupported record constructor %v", rawTag.Number)
	}
	return cbor.Unmarshal(rawTag.Content, fields)
}

func amountBytes(x uint256.Int) []byte {
	return x.Bytes()
}

func amountFrom(b []byte) (uint256.Int, error) {
	var x uint256.Int
	if len(b) > 32 {
		return x, fmt.Errorf("amount of %v bytes does not fit 256 bits", len(b))
	}
	x.SetBytes(b)
	return x, nil
}

type ProgramDatum struct {
	_               struct{} `cbor:",toarray"`
	ID              string
	RewardAsset     string
	RewardPerBlock  []byte
	StartBlock      uint64
	BonusEndBlock   uint64
	BonusMultiplier uint64
}

func EncodeProgram(p types.Program) ([]byte, error) {
	return wrap(ProgramDatum{
		ID:              p.ID,
		RewardAsset:     p.RewardAsset.String(),
		RewardPerBlock:  amountBytes(p.RewardPerBlock),
		StartBlock:      p.StartBlock,
		BonusEndBlock:   p.BonusEndBlock,
		BonusMultiplier: p.BonusMultiplier,
	})
}

func DecodeProgram(bytes []byte) (types.Program, error) {
	var d ProgramDatum
	if err := unwrap(bytes, &d); err != nil {
		return types.Program{}, fmt.Errorf("failed to decode program: %w", err)
	}
	rate, err := amountFrom(d.RewardPerBlock)
	if err != nil {
		return types.Program{}, err
	}
	return types.Program{
		ID:              d.ID,
		RewardAsset:     shared.AssetID(d.RewardAsset),
		RewardPerBlock:  rate,
		StartBlock:      d.StartBlock,
		BonusEndBlock:   d.BonusEndBlock,
		BonusMultiplier: d.BonusMultiplier,
	}, nil
}

type GlobalsDatum struct {
	_               struct{} `cbor:",toarray"`
	TotalAllocPoint uint64
	PoolCount       uint64
	LastBlock       uint64
}

func EncodeGlobals(g types.Globals) ([]byte, error) {
	return wrap(GlobalsDatum{TotalAllocPoint: g.TotalAllocPoint, PoolCount: g.PoolCount, LastBlock: g.LastBlock})
}

func DecodeGlobals(bytes []byte) (types.Globals, error) {
	var d GlobalsDatum
	if err := unwrap(bytes, &d); err != nil {
		return types.Globals{}, fmt.Errorf("failed to decode globals: %w", err)
	}
	return types.Globals{TotalAllocPoint: d.TotalAllocPoint, PoolCount: d.PoolCount, LastBlock: d.LastBlock}, nil
}

type PoolDatum struct {
	_                 struct{} `cbor:",toarray"`
	ID                uint64
	StakeToken        string
	AllocPoint        uint64
	LastRewardBlock   uint64
	AccRewardPerShare []byte
	TotalStaked       []byte
}

func EncodePool(p types.Pool) ([]byte, error) {
	return wrap(PoolDatum{
		ID:                p.ID,
		StakeToken:        p.StakeToken.String(),
		AllocPoint:        p.AllocPoint,
		LastRewardBlock:   p.LastRewardBlock,
		AccRewardPerShare: amountBytes(p.AccRewardPerShare),
		TotalStaked:       amountBytes(p.TotalStaked),
	})
}

func DecodePool(bytes []byte) (types.Pool, error) {
	var d PoolDatum
	if err := unwrap(bytes, &d); err != nil {
		return types.Pool{}, fmt.Errorf("failed to decode pool: %w", err)
	}
	acc, err := amountFrom(d.AccRewardPerShare)
	if err != nil {
		return types.Pool{}, err
	}
	staked, err := amountFrom(d.TotalStaked)
	if err != nil {
		return types.Pool{}, err
	}
	return types.Pool{
		ID:                d.ID,
		StakeToken:        shared.AssetID(d.StakeToken),
		AllocPoint:        d.AllocPoint,
		LastRewardBlock:   d.LastRewardBlock,
		AccRewardPerShare: acc,
		TotalStaked:       staked,
	}, nil
}

type PositionDatum struct {
	_          struct{} `cbor:",toarray"`
	PoolID     uint64
	Owner      string
	Amount     []byte
	RewardDebt []byte
}

func EncodePosition(p types.Position) ([]byte, error) {
	return wrap(PositionDatum{
		PoolID:     p.PoolID,
		Owner:      p.Owner,
		Amount:     amountBytes(p.Amount),
		RewardDebt: amountBytes(p.RewardDebt),
	})
}

func DecodePosition(bytes []byte) (types.Position, error) {
	var d PositionDatum
	if err := unwrap(bytes, &d); err != nil {
		return types.Position{}, fmt.Errorf("failed to decode position: %w", err)
	}
	amount, err := amountFrom(d.Amount)
	if err != nil {
		return types.Position{}, err
	}
	debt, err := amountFrom(d.RewardDebt)
	if err != nil {
		return types.Position{}, err
	}
	return types.Position{PoolID: d.PoolID, Owner: d.Owner, Amount: amount, RewardDebt: debt}, nil
}

type EventDatum struct {
	_                 struct{} `cbor:",toarray"`
	Seq               uint64
	Block             uint64
	Kind              string
	PoolID            uint64
	Caller            string
	Amount            []byte
	Reward            []byte
	AllocPoint        uint64
	StakeToken        string
	AccRewardPerShare []byte
	TotalStaked       []byte
	PrevHash          []byte
	Hash              []byte
}

func eventDatum(e types.Event) EventDatum {
	return EventDatum{
		Seq:               e.Seq,
		Block:             e.Block,
		Kind:              string(e.Kind),
		PoolID:            e.PoolID,
		Caller:            e.Caller,
		Amount:            amountBytes(e.Amount),
		Reward:            amountBytes(e.Reward),
		AllocPoint:        e.AllocPoint,
		StakeToken:        e.StakeToken.String(),
		AccRewardPerShare: amountBytes(e.AccRewardPerShare),
		TotalStaked:       amountBytes(e.TotalStaked),
		PrevHash:          e.PrevHash[:],
		Hash:              e.Hash[:],
	}
}

func EncodeEvent(e types.Event) ([]byte, error) {
	return wrap(eventDatum(e))
}

func DecodeEvent(bytes []byte) (types.Event, error) {
	var d EventDatum
	if err := unwrap(bytes, &d); err != nil {
		return types.Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	e := types.Event{
		Seq:        d.Seq,
		Block:      d.Block,
		Kind:       types.EventKind(d.Kind),
		PoolID:     d.PoolID,
		Caller:     d.Caller,
		AllocPoint: d.AllocPoint,
		StakeToken: shared.AssetID(d.StakeToken),
	}
	var err error
	if e.Amount, err = amountFrom(d.Amount); err != nil {
		return types.Event{}, err
	}
	if e.Reward, err = amountFrom(d.Reward); err != nil {
		return types.Event{}, err
	}
	if e.AccRewardPerShare, err = amountFrom(d.AccRewardPerShare); err != nil {
		return types.Event{}, err
	}
	if e.TotalStaked, err = amountFrom(d.TotalStaked); err != nil {
		return types.Event{}, err
	}
	if len(d.PrevHash) != 32 || len(d.Hash) != 32 {
		return types.Event{}, fmt.Errorf("event %v has malformed hashes", d.Seq)
	}
	copy(e.PrevHash[:], d.PrevHash)
	copy(e.Hash[:], d.Hash)
	return e, nil
}

// HashEvent chains an event onto its predecessor: blake2b-256 over the previous hash followed by the
// event's encoding with its own hash left blank
func HashEvent(e types.Event) ([32]byte, error) {
	e.Hash = [32]byte{}
	bytes, err := EncodeEvent(e)
	if err != nil {
		return [32]byte{}, err
	}
	return blake2b.Sum256(append(e.PrevHash[:], bytes...)), nil
}

type journalDatum struct {
	_    struct{} `cbor:",toarray"`
	Seq  uint64
	Head []byte
}

// EncodeJournalHead stores the sequence number and hash of the latest event
func EncodeJournalHead(seq uint64, head [32]byte) ([]byte, error) {
	return wrap(journalDatum{Seq: seq, Head: head[:]})
}

func DecodeJournalHead(bytes []byte) (uint64, [32]byte, error) {
	var d journalDatum
	var head [32]byte
	if err := unwrap(bytes, &d); err != nil {
		return 0, head, fmt.Errorf("failed to decode journal head: %w", err)
	}
	if len(d.Head) != 32 {
		return 0, head, fmt.Errorf("journal head has %v bytes", len(d.Head))
	}
	copy(head[:], d.Head)
	return d.Seq, head, nil
}

func EncodeAmount(x uint256.Int) ([]byte, error) {
	return encMode.Marshal(amountBytes(x))
}

func DecodeAmount(bytes []byte) (uint256.Int, error) {
	var b []byte
	if err := cbor.Unmarshal(bytes, &b); err != nil {
		return uint256.Int{}, err
	}
	return amountFrom(b)
}
