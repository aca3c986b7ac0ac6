package state

import (
	"fmt"

	"github.com/SundaeSwap-finance/ogmigo/v6/ouroboros/shared"
	"github.com/SundaeSwap-finance/sundae-farm/datum"
	"github.com/SundaeSwap-finance/sundae-farm/types"
	"github.com/holiman/uint256"
	"github.com/syndtr/goleveldb/leveldb"
)

// Tx is a write overlay on top of the committed store. It is not safe for concurrent use; the
// ledger holds its own lock for the lifetime of a Tx.
type Tx struct {
	store    *Store
	writes   map[string][]byte
	order    []string
	appended []types.Event
	done     bool
}

func (s *Store) Begin() *Tx {
	return &Tx{store: s, writes: map[string][]byte{}}
}

func (tx *Tx) get(key []byte) ([]byte, bool, error) {
	if value, ok := tx.writes[string(key)]; ok {
		return value, true, nil
	}
	return tx.store.get(key)
}

func (tx *Tx) put(key []byte, value []byte) {
	k := string(key)
	if _, ok := tx.writes[k]; !ok {
		tx.order = append(tx.order, k)
	}
	tx.writes[k] = value
}

// Commit writes everything staged in one batch; the Tx can't be used afterwards
func (tx *Tx) Commit() error {
	if tx.done {
		return fmt.Errorf("transaction already finished")
	}
	tx.done = true
	if len(tx.order) == 0 {
		return nil
	}
	batch := new(leveldb.Batch)
	for _, k := range tx.order {
		batch.Put([]byte(k), tx.writes[k])
	}
	if err := tx.store.db.Write(batch, &writeOpt); err != nil {
		return fmt.Errorf("failed to commit %v writes: %w", batch.Len(), err)
	}
	return nil
}

func (tx *Tx) Discard() {
	tx.done = true
	tx.writes = nil
	tx.order = nil
	tx.appended = nil
}

// Appended returns the events added by this transaction, in order
func (tx *Tx) Appended() []types.Event {
	return tx.appended
}

func (tx *Tx) Program() (types.Program, bool, error) {
	bytes, ok, err := tx.get(key(tagProgram))
	if err != nil || !ok {
		return types.Program{}, ok, err
	}
	program, err := datum.DecodeProgram(bytes)
	return program, err == nil, err
}

func (tx *Tx) PutProgram(program types.Program) error {
	bytes, err := datum.EncodeProgram(program)
	if err != nil {
		return err
	}
	tx.put(key(tagProgram), bytes)
	return nil
}

// Globals returns the zero value until the first write
func (tx *Tx) Globals() (types.Globals, error) {
	bytes, ok, err := tx.get(key(tagGlobals))
	if err != nil || !ok {
		return types.Globals{}, err
	}
	return datum.DecodeGlobals(bytes)
}

func (tx *Tx) PutGlobals(globals types.Globals) error {
	bytes, err := datum.EncodeGlobals(globals)
	if err != nil {
		return err
	}
	tx.put(key(tagGlobals), bytes)
	return nil
}

func (tx *Tx) Pool(id uint64) (types.Pool, bool, error) {
	bytes, ok, err := tx.get(poolKey(id))
	if err != nil || !ok {
		return types.Pool{}, ok, err
	}
	pool, err := datum.DecodePool(bytes)
	return pool, err == nil, err
}

func (tx *Tx) PutPool(pool types.Pool) error {
	bytes, err := datum.EncodePool(pool)
	if err != nil {
		return err
	}
	tx.put(poolKey(pool.ID), bytes)
	return nil
}

// Position returns an empty position for owners who never deposited
func (tx *Tx) Position(poolID uint64, owner string) (types.Position, error) {
	bytes, ok, err := tx.get(positionKey(poolID, owner))
	if err != nil {
		return types.Position{}, err
	}
	if !ok {
		return types.Position{PoolID: poolID, Owner: owner}, nil
	}
	return datum.DecodePosition(bytes)
}

func (tx *Tx) PutPosition(position types.Position) error {
	bytes, err := datum.EncodePosition(position)
	if err != nil {
		return err
	}
	tx.put(positionKey(position.PoolID, position.Owner), bytes)
	return nil
}

func (tx *Tx) JournalHead() (uint64, [32]byte, error) {
	bytes, ok, err := tx.get(key(tagJournal))
	if err != nil || !ok {
		return 0, [32]byte{}, err
	}
	return datum.DecodeJournalHead(bytes)
}

// AppendEvent numbers the event, chains it onto the journal head and stages it
func (tx *Tx) AppendEvent(event types.Event) (types.Event, error) {
	seq, head, err := tx.JournalHead()
	if err != nil {
		return types.Event{}, err
	}
	event.Seq = seq + 1
	event.PrevHash = head
	event.Hash, err = datum.HashEvent(event)
	if err != nil {
		return types.Event{}, fmt.Errorf("failed to hash event: %w", err)
	}
	bytes, err := datum.EncodeEvent(event)
	if err != nil {
		return types.Event{}, err
	}
	journal, err := datum.EncodeJournalHead(event.Seq, event.Hash)
	if err != nil {
		return types.Event{}, err
	}
	tx.put(eventKey(event.Seq), bytes)
	tx.put(key(tagJournal), journal)
	tx.appended = append(tx.appended, event)
	return event, nil
}

func (tx *Tx) amount(k []byte) (uint256.Int, error) {
	bytes, ok, err := tx.get(k)
	if err != nil || !ok {
		return uint256.Int{}, err
	}
	return datum.DecodeAmount(bytes)
}

func (tx *Tx) putAmount(k []byte, x uint256.Int) error {
	bytes, err := datum.EncodeAmount(x)
	if err != nil {
		return err
	}
	tx.put(k, bytes)
	return nil
}

func (tx *Tx) Balance(asset shared.AssetID, account string) (uint256.Int, error) {
	return tx.amount(balanceKey(tagBalance, asset, account))
}

func (tx *Tx) PutBalance(asset shared.AssetID, account string, x uint256.Int) error {
	return tx.putAmount(balanceKey(tagBalance, asset, account), x)
}

func (tx *Tx) Allowance(asset shared.AssetID, owner, spender string) (uint256.Int, error) {
	return tx.amount(allowanceKey(asset, owner, spender))
}

func (tx *Tx) PutAllowance(asset shared.AssetID, owner, spender string, x uint256.Int) error {
	return tx.putAmount(allowanceKey(asset, owner, spender), x)
}

func (tx *Tx) Supply(asset shared.AssetID) (uint256.Int, error) {
	return tx.amount(key(tagSupply, []byte(asset)))
}

func (tx *Tx) PutSupply(asset shared.AssetID, x uint256.Int) error {
	return tx.putAmount(key(tagSupply, []byte(asset)), x)
}
