package trustledger

import (
	"context"
	"errors"
)

// ErrEntryNotFound is returned by Get when no entry exists at the index.
var ErrEntryNotFound = errors.New("ledger entry not found")

// MaxRange caps the number of entries returned by one Range call.
const MaxRange = 500

// Ledger is the append-only hash-chained memo log.
type Ledger interface {
	// Append adds a new entry carrying memo, chained to the previous one.
	Append(ctx context.Context, submitter, memo string) (*Entry, error)

	// Get returns the entry at the given zero-based index.
	Get(ctx context.Context, index int) (*Entry, error)

	// Range returns up to limit entries starting at index from, in index
	// order. limit is clamped to MaxRange.
	Range(ctx context.Context, from, limit int) ([]*Entry, error)

	// Len returns the total number of entries, genesis included.
	Len(ctx context.Context) (int, error)

	// Verify walks the entire chain. It returns nil if the chain is intact
	// and a *ChainError for the first inconsistency.
	Verify(ctx context.Context) error

	// Root returns the hash of the chain tip.
	Root(ctx context.Context) (string, error)
}

func clampRange(from, limit int) (int, int) {
	if from < 0 {
		from = 0
	}
	if limit <= 0 || limit > MaxRange {
		limit = MaxRange
	}
	return from, limit
}
