// Package history keeps the wallet's local transaction list and detects
// incoming transfers.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/becomeliminal/nim-wallet/core"
	"github.com/becomeliminal/nim-wallet/kv"
)

// DefaultLimit is the number of entries kept before the oldest are evicted.
const DefaultLimit = 500

// ReconcileWindow bounds how long after a block a balance-delta entry may
// still be attributed to a transfer found in that block.
const ReconcileWindow = 10 * time.Minute

// KV is the subset of kv.Store the history needs.
type KV interface {
	GetJSON(ctx context.Context, key string, v interface{}) error
	SetJSON(ctx context.Context, key string, v interface{}) error
}

// Store is the capped, timestamp-ordered local history.
type Store struct {
	kv    KV
	limit int
	now   func() time.Time
	mu    sync.Mutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLimit overrides DefaultLimit.
func WithLimit(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithClock overrides the clock used for entries without a timestamp.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates a history backed by kv under kv.KeyTransactionHistory.
func NewStore(store KV, opts ...StoreOption) *Store {
	s := &Store{kv: store, limit: DefaultLimit, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append records tx and evicts the oldest entries beyond the limit.
// An entry whose hash is already recorded is ignored; the returned bool
// reports whether tx was added. A scanned receipt absorbs poll entries
// stamped within ReconcileWindow after it, so a transfer seen by both
// mechanisms is kept once.
func (s *Store) Append(ctx context.Context, tx core.Transaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return false, err
	}

	if tx.Hash != "" {
		for _, existing := range items {
			if existing.Hash == tx.Hash {
				return false, nil
			}
		}
	}
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = s.now().UTC()
	}

	if tx.Type == core.TxReceived && tx.Source == core.SourceScan {
		items = absorbPolled(items, tx)
	}

	items = append(items, tx)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.Before(items[j].Timestamp)
	})
	if len(items) > s.limit {
		items = items[len(items)-s.limit:]
	}

	if err := s.kv.SetJSON(ctx, kv.KeyTransactionHistory, items); err != nil {
		return false, fmt.Errorf("save history: %w", err)
	}
	return true, nil
}

// All returns every entry, oldest first.
func (s *Store) All(ctx context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Recent returns up to n entries, newest first. n <= 0 means all.
func (s *Store) Recent(ctx context.Context, n int, includePending bool) ([]core.Transaction, error) {
	items, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]core.Transaction, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		if !includePending && items[i].Type == core.TxPending {
			continue
		}
		out = append(out, items[i])
		if n > 0 && len(out) == n {
			break
		}
	}
	return out, nil
}

// HasHash reports whether an entry with hash is recorded.
func (s *Store) HasHash(ctx context.Context, hash string) (bool, error) {
	items, err := s.All(ctx)
	if err != nil {
		return false, err
	}
	for _, tx := range items {
		if tx.Hash != "" && tx.Hash == hash {
			return true, nil
		}
	}
	return false, nil
}

// ReceivedSince sums attributed incoming transfers stamped after since.
// Entries synthesized by the poller are excluded.
func (s *Store) ReceivedSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	items, err := s.All(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, tx := range items {
		if tx.Type != core.TxReceived || tx.Source == core.SourcePoll || !tx.Timestamp.After(since) {
			continue
		}
		amount, err := decimal.NewFromString(tx.Amount)
		if err != nil {
			continue
		}
		total = total.Add(amount)
	}
	return total, nil
}

// absorbPolled removes up to tx's amount from unhashed poll entries stamped
// in [tx.Timestamp, tx.Timestamp+ReconcileWindow]. A poll entry larger than
// the remainder covered other transfers too and is reduced instead.
func absorbPolled(items []core.Transaction, tx core.Transaction) []core.Transaction {
	remaining, err := decimal.NewFromString(tx.Amount)
	if err != nil || !remaining.IsPositive() {
		return items
	}

	out := items[:0]
	for _, existing := range items {
		if !remaining.IsPositive() || !isPolledReceipt(existing) ||
			existing.Timestamp.Before(tx.Timestamp) ||
			existing.Timestamp.After(tx.Timestamp.Add(ReconcileWindow)) {
			out = append(out, existing)
			continue
		}
		polled, err := decimal.NewFromString(existing.Amount)
		if err != nil {
			out = append(out, existing)
			continue
		}
		if polled.GreaterThan(remaining) {
			existing.Amount = polled.Sub(remaining).String()
			remaining = decimal.Zero
			out = append(out, existing)
			continue
		}
		remaining = remaining.Sub(polled)
	}
	return out
}

func isPolledReceipt(tx core.Transaction) bool {
	return tx.Type == core.TxReceived && tx.Source == core.SourcePoll && tx.Hash == ""
}

func (s *Store) load(ctx context.Context) ([]core.Transaction, error) {
	var items []core.Transaction
	err := s.kv.GetJSON(ctx, kv.KeyTransactionHistory, &items)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return items, nil
}
