// Package ledger defines the client contract anchorlog uses to anchor record
// digests on an external tamper-evident ledger and to read them back.
//
// A digest is embedded in a ledger submission as the memo "LOG:<hash>".
// Drivers live in sub-packages: solana (SPL Memo transactions over JSON-RPC)
// and chain (the embedded hash-chained trustledger).
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Tag prefixes the digest inside a ledger memo.
const Tag = "LOG:"

var (
	// ErrTagNotFound is returned by Verify when the submission exists but
	// carries no LOG: memo. It is a verdict, not an operational failure.
	ErrTagNotFound = errors.New("log tag not found in ledger submission")

	// ErrInvalidReference is returned when a reference is malformed for the
	// configured driver.
	ErrInvalidReference = errors.New("invalid ledger reference format")
)

// Client anchors digests on a ledger and reads them back.
// Implementations must be safe for concurrent use and must not share
// mutable sequencing state between Submit calls.
type Client interface {
	// Submit anchors hash and returns an opaque reference to the submission.
	// Failures are reported as *SubmitError.
	Submit(ctx context.Context, hash string) (string, error)

	// Verify returns the digest anchored by reference. It returns
	// ErrTagNotFound when the submission carries no tag, and *VerifyError
	// when the reference cannot be resolved at all.
	Verify(ctx context.Context, reference string) (string, error)

	// HealthCheck is a side-effect free liveness probe.
	HealthCheck(ctx context.Context) bool

	// Identity returns the public identity of the submitter.
	Identity() string

	// Balance returns the submitter's balance in the ledger's base unit.
	Balance(ctx context.Context) (uint64, error)
}

// SubmitError reports a failed anchoring attempt.
type SubmitError struct {
	Err error
}

func (e *SubmitError) Error() string { return "ledger submit: " + e.Err.Error() }

func (e *SubmitError) Unwrap() error { return e.Err }

// VerifyError reports that a reference could not be resolved on the ledger.
// It is distinct from a mismatch or a missing tag.
type VerifyError struct {
	Reference string
	Err       error
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("ledger verify %q: %v", e.Reference, e.Err)
}

func (e *VerifyError) Unwrap() error { return e.Err }

// Memo returns the memo text that anchors hash.
func Memo(hash string) string { return Tag + hash }

// ExtractTaggedHash scans lines for the first Tag occurrence and returns the
// token that follows it, up to the first double quote or whitespace.
// ok is false when no line contains the tag.
func ExtractTaggedHash(lines []string) (hash string, ok bool) {
	for _, line := range lines {
		i := strings.Index(line, Tag)
		if i < 0 {
			continue
		}
		rest := line[i+len(Tag):]
		if end := strings.IndexFunc(rest, isTokenEnd); end >= 0 {
			rest = rest[:end]
		}
		return rest, true
	}
	return "", false
}

func isTokenEnd(r rune) bool {
	switch r {
	case '"', ' ', '\t', '\n', '\r':
		return true
	}
	return false
}
