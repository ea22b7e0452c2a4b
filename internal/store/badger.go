// Package store persists trade records and ledger snapshots in an embedded
// BadgerDB, and guards the state directory against concurrent bot instances.
package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"

	"grid-hands/internal/bot"
)

// Store keeps one bot's history: every trade record under a monotonically
// sequenced key, and the latest ledger snapshot under a fixed key.
type Store struct {
	db    *badger.DB
	botID string
	seq   *badger.Sequence
}

func Open(dir, botID string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	// Badger's own logging stays off; operation errors still surface.
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	seq, err := db.GetSequence(seqKey(botID), 64)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("trade sequence: %w", err)
	}
	return &Store{db: db, botID: botID, seq: seq}, nil
}

func seqKey(botID string) []byte {
	return []byte("seq/" + botID)
}

func (s *Store) tradeKey(n uint64) []byte {
	key := make([]byte, 0, len(s.botID)+15)
	key = append(key, "trade/"...)
	key = append(key, s.botID...)
	key = append(key, '/')
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	return append(key, buf[:]...)
}

func (s *Store) snapshotKey() []byte {
	return []byte("snapshot/" + s.botID)
}

func (s *Store) SaveTrade(rec bot.TradeRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	n, err := s.seq.Next()
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.tradeKey(n), data)
	})
}

func (s *Store) SaveSnapshot(snap bot.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.snapshotKey(), data)
	})
}

// LoadSnapshot returns the latest persisted snapshot, or nil when this bot
// has never saved one.
func (s *Store) LoadSnapshot() (*bot.Snapshot, error) {
	var snap bot.Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.snapshotKey())
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) == 0 {
				return errors.New("empty snapshot value")
			}
			return json.Unmarshal(val, &snap)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Trades returns this bot's trade records in write order.
func (s *Store) Trades() ([]bot.TradeRecord, error) {
	prefix := []byte("trade/" + s.botID + "/")
	var out []bot.TradeRecord
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var rec bot.TradeRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Close() error {
	if err := s.seq.Release(); err != nil {
		_ = s.db.Close()
		return err
	}
	return s.db.Close()
}

var _ bot.Recorder = (*Store)(nil)
