package trustledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryLedger is an in-process Ledger. Anchors do not survive a restart.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries []*Entry
}

// New creates a MemoryLedger holding only the genesis entry.
func New() *MemoryLedger {
	return &MemoryLedger{entries: []*Entry{genesisEntry(time.Now().UTC())}}
}

// Append implements Ledger.
func (l *MemoryLedger) Append(_ context.Context, submitter, memo string) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := successor(l.entries[len(l.entries)-1], submitter, memo, time.Now().UTC())
	l.entries = append(l.entries, e)
	cp := *e
	return &cp, nil
}

// Get implements Ledger.
func (l *MemoryLedger) Get(_ context.Context, index int) (*Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.entries) {
		return nil, fmt.Errorf("index %d: %w", index, ErrEntryNotFound)
	}
	cp := *l.entries[index]
	return &cp, nil
}

// Range implements Ledger.
func (l *MemoryLedger) Range(_ context.Context, from, limit int) ([]*Entry, error) {
	from, limit = clampRange(from, limit)

	l.mu.RLock()
	defer l.mu.RUnlock()

	out := []*Entry{}
	for i := from; i < len(l.entries) && len(out) < limit; i++ {
		cp := *l.entries[i]
		out = append(out, &cp)
	}
	return out, nil
}

// Len implements Ledger.
func (l *MemoryLedger) Len(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries), nil
}

// Verify implements Ledger.
func (l *MemoryLedger) Verify(_ context.Context) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var w chainWalker
	for _, e := range l.entries {
		if err := w.next(e); err != nil {
			return err
		}
	}
	return nil
}

// Root implements Ledger.
func (l *MemoryLedger) Root(_ context.Context) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.entries[len(l.entries)-1].Hash, nil
}
