package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/epicvibe/platform/internal/epicvibe"
)

// BadgerHistory stores reward events under
// reward/<wallet>/<unix nanos, zero padded>/<signature> so a reverse prefix
// scan yields newest first.
type BadgerHistory struct {
	db *badger.DB
}

// OpenBadgerHistory opens the log in dir, or in memory when dir is empty.
func OpenBadgerHistory(dir string) (*BadgerHistory, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening reward history: %w", err)
	}
	return &BadgerHistory{db: db}, nil
}

func (h *BadgerHistory) Close() error {
	return h.db.Close()
}

func walletPrefix(wallet string) []byte {
	return []byte("reward/" + wallet + "/")
}

func eventKey(ev epicvibe.RewardEvent) []byte {
	return fmt.Appendf(walletPrefix(ev.Recipient), "%020d/%s", ev.Timestamp.UnixNano(), ev.Signature)
}

func (h *BadgerHistory) Append(_ context.Context, ev epicvibe.RewardEvent) error {
	val, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return h.db.Update(func(txn *badger.Txn) error {
		return txn.Set(eventKey(ev), val)
	})
}

func (h *BadgerHistory) List(_ context.Context, wallet string) ([]epicvibe.RewardEvent, error) {
	prefix := walletPrefix(wallet)
	var events []epicvibe.RewardEvent

	err := h.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(append(prefix, 0xFF)); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var ev epicvibe.RewardEvent
				if err := json.Unmarshal(val, &ev); err != nil {
					return err
				}
				events = append(events, ev)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing rewards for %s: %w", wallet, err)
	}
	return events, nil
}
