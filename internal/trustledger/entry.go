package trustledger

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// GenesisHash is the well-known hash of the genesis entry. Every chain
// starts from this constant rather than from a computed value.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Genesis entry fields.
const (
	GenesisSubmitter = "anchorlog-system"
	GenesisMemo      = "genesis"
)

// ErrChainBroken is matched by every *ChainError.
var ErrChainBroken = errors.New("ledger hash chain broken")

// ChainError locates the first inconsistency found by Verify.
type ChainError struct {
	Index  int
	Reason string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("ledger entry %d: %s", e.Index, e.Reason)
}

func (e *ChainError) Is(target error) bool { return target == ErrChainBroken }

// Entry is a single anchored memo in the trust ledger.
type Entry struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Submitter string    `json:"submitter"`
	Memo      string    `json:"memo"` // "LOG:<hex digest>"
	PrevHash  string    `json:"prev_hash"`
	Hash      string    `json:"hash"`
}

func genesisEntry(ts time.Time) *Entry {
	return &Entry{
		Index:     0,
		Timestamp: ts,
		Submitter: GenesisSubmitter,
		Memo:      GenesisMemo,
		PrevHash:  GenesisHash,
		Hash:      GenesisHash,
	}
}

// successor builds the entry that follows prev.
func successor(prev *Entry, submitter, memo string, ts time.Time) *Entry {
	e := &Entry{
		Index:     prev.Index + 1,
		Timestamp: ts,
		Submitter: submitter,
		Memo:      memo,
		PrevHash:  prev.Hash,
	}
	e.Hash = hashEntry(e)
	return e
}

// hashEntry is SHA-256 over the pipe-joined entry fields. Never used for the
// genesis entry.
func hashEntry(e *Entry) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%s|%s|%s",
		e.Index, e.Timestamp.Format(time.RFC3339Nano),
		e.Submitter, e.Memo, e.PrevHash,
	)
	return hex.EncodeToString(h.Sum(nil))
}

// chainWalker checks entries fed to it in index order.
type chainWalker struct {
	prev *Entry
}

func (w *chainWalker) next(curr *Entry) error {
	defer func() { w.prev = curr }()

	if w.prev == nil {
		if curr.Index != 0 || curr.Hash != GenesisHash {
			return &ChainError{Index: curr.Index, Reason: "genesis entry has wrong hash " + curr.Hash}
		}
		return nil
	}
	switch {
	case curr.Index != w.prev.Index+1:
		return &ChainError{Index: curr.Index, Reason: fmt.Sprintf("gap after index %d", w.prev.Index)}
	case curr.PrevHash != w.prev.Hash:
		return &ChainError{Index: curr.Index, Reason: "prev_hash does not match predecessor"}
	case curr.Hash != hashEntry(curr):
		return &ChainError{Index: curr.Index, Reason: "hash does not match contents"}
	}
	return nil
}
