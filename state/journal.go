package state

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/SundaeSwap-finance/sundae-farm/datum"
	"github.com/SundaeSwap-finance/sundae-farm/types"
)

var ErrBrokenJournal = errors.New("event journal hash chain is broken")

// Positions lists every committed position in a pool, ordered by owner
func (s *Store) Positions(poolID uint64) ([]types.Position, error) {
	var positions []types.Position
	err := s.scan(key(tagPosition, be64(poolID)), nil, func(_, value []byte) (bool, error) {
		position, err := datum.DecodePosition(value)
		if err != nil {
			return false, err
		}
		positions = append(positions, position)
		return true, nil
	})
	return positions, err
}

// Events returns up to limit committed events starting at sequence number from; a limit of zero
// returns them all
func (s *Store) Events(from uint64, limit int) ([]types.Event, error) {
	var events []types.Event
	err := s.scan([]byte{tagEvent}, eventKey(from), func(_, value []byte) (bool, error) {
		event, err := datum.DecodeEvent(value)
		if err != nil {
			return false, err
		}
		events = append(events, event)
		return limit <= 0 || len(events) < limit, nil
	})
	return events, err
}

// VerifyJournal walks the whole journal, recomputing every hash, and checks it ends at the stored
// head. It returns the number of events checked.
func (s *Store) VerifyJournal() (uint64, error) {
	var prev [32]byte
	count := uint64(0)
	err := s.scan([]byte{tagEvent}, nil, func(_, value []byte) (bool, error) {
		event, err := datum.DecodeEvent(value)
		if err != nil {
			return false, err
		}
		if event.Seq != count+1 {
			return false, fmt.Errorf("%w: expected event %v, found %v", ErrBrokenJournal, count+1, event.Seq)
		}
		if event.PrevHash != prev {
			return false, fmt.Errorf("%w: event %v does not follow its predecessor", ErrBrokenJournal, event.Seq)
		}
		hash, err := datum.HashEvent(event)
		if err != nil {
			return false, err
		}
		if !bytes.Equal(hash[:], event.Hash[:]) {
			return false, fmt.Errorf("%w: event %v was altered", ErrBrokenJournal, event.Seq)
		}
		prev = event.Hash
		count++
		return true, nil
	})
	if err != nil {
		return count, err
	}
	seq, head, err := s.Begin().JournalHead()
	if err != nil {
		return count, err
	}
	if seq != count || head != prev {
		return count, fmt.Errorf("%w: head is at %v but journal holds %v events", ErrBrokenJournal, seq, count)
	}
	return count, nil
}
