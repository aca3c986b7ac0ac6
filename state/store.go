// Package state persists the farm in a level db. Reads go through a Tx, which buffers every write
// until Commit flushes them as a single batch, so a call either lands entirely or not at all.
package state

import (
	"encoding/binary"
	"fmt"

	"github.com/SundaeSwap-finance/ogmigo/v6/ouroboros/shared"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	tagProgram byte = iota + 1
	tagGlobals
	tagPool
	tagPosition
	tagEvent
	tagJournal

	tagBalance   byte = 0x10
	tagAllowance byte = 0x11
	tagSupply    byte = 0x12
)

var writeOpt = opt.WriteOptions{Sync: true}
var readOpt = opt.ReadOptions{}

type Options struct {
	CacheSize              int
	OpenFilesCacheCapacity int
}

type Store struct {
	db  *leveldb.DB
	stg storage.Storage
}

// Open creates the database at path if it does not exist yet
func Open(path string, opts Options) (*Store, error) {
	stg, err := storage.OpenFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage at %v: %w", path, err)
	}
	return open(stg, opts.CacheSize, opts.OpenFilesCacheCapacity)
}

func OpenMem() (*Store, error) {
	return open(storage.NewMemStorage(), 0, 0)
}

func open(stg storage.Storage, cacheSize, openFilesCacheCapacity int) (*Store, error) {
	if cacheSize < 16 {
		cacheSize = 16
	}
	if openFilesCacheCapacity < 16 {
		openFilesCacheCapacity = 16
	}
	db, err := leveldb.Open(stg, &opt.Options{
		OpenFilesCacheCapacity: openFilesCacheCapacity,
		BlockCacheCapacity:     cacheSize / 2 * opt.MiB,
		WriteBuffer:            cacheSize / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	})
	if err != nil {
		stg.Close()
		return nil, fmt.Errorf("failed to open level db: %w", err)
	}
	return &Store{db: db, stg: stg}, nil
}

// Close releases the db and then its storage, which holds the directory lock
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		s.stg.Close()
		return err
	}
	return s.stg.Close()
}

func (s *Store) get(key []byte) ([]byte, bool, error) {
	value, err := s.db.Get(key, &readOpt)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// scan calls fn for every committed key under prefix, starting at from (or the beginning of the
// prefix when from is nil); fn returns false to stop
func (s *Store) scan(prefix []byte, from []byte, fn func(key, value []byte) (bool, error)) error {
	r := util.BytesPrefix(prefix)
	if from != nil {
		r.Start = from
	}
	it := s.db.NewIterator(r, &readOpt)
	defer it.Release()
	for it.Next() {
		more, err := fn(it.Key(), it.Value())
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return it.Error()
}

func be64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

func key(tag byte, parts ...[]byte) []byte {
	k := []byte{tag}
	for _, part := range parts {
		k = append(k, part...)
	}
	return k
}

func poolKey(id uint64) []byte {
	return key(tagPool, be64(id))
}

func positionKey(poolID uint64, owner string) []byte {
	return key(tagPosition, be64(poolID), []byte(owner))
}

func eventKey(seq uint64) []byte {
	return key(tagEvent, be64(seq))
}

// Asset ids and account names never contain a zero byte, so it separates them unambiguously
func balanceKey(tag byte, asset shared.AssetID, account string) []byte {
	return key(tag, []byte(asset), []byte{0}, []byte(account))
}

func allowanceKey(asset shared.AssetID, owner, spender string) []byte {
	return key(tagAllowance, []byte(asset), []byte{0}, []byte(owner), []byte{0}, []byte(spender))
}
