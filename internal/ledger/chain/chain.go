// Package chain is a ledger.Client driver backed by the embedded
// hash-chained trustledger. References are decimal entry indices.
package chain

import (
	"context"
	"errors"
	"strconv"

	"github.com/jmerrifield20/anchorlog/internal/ledger"
	"github.com/jmerrifield20/anchorlog/internal/trustledger"
	"go.uber.org/zap"
)

// Client anchors digests as memos on a trustledger.Ledger.
type Client struct {
	ledger    trustledger.Ledger
	submitter string
	logger    *zap.Logger
}

// New creates a chain Client. submitter is recorded on every entry and
// reported as the ledger identity.
func New(l trustledger.Ledger, submitter string, logger *zap.Logger) *Client {
	if submitter == "" {
		submitter = "anchorlog"
	}
	return &Client{ledger: l, submitter: submitter, logger: logger}
}

// Submit implements ledger.Client. The chain tail is read inside Append on
// every call, so concurrent submitters never share sequencing state.
func (c *Client) Submit(ctx context.Context, hash string) (string, error) {
	entry, err := c.ledger.Append(ctx, c.submitter, ledger.Memo(hash))
	if err != nil {
		return "", &ledger.SubmitError{Err: err}
	}
	return strconv.Itoa(entry.Index), nil
}

// Verify implements ledger.Client.
func (c *Client) Verify(ctx context.Context, reference string) (string, error) {
	idx, err := strconv.Atoi(reference)
	// Index 0 is the genesis entry, which never anchors a digest.
	if err != nil || idx <= 0 {
		return "", &ledger.VerifyError{Reference: reference, Err: ledger.ErrInvalidReference}
	}

	entry, err := c.ledger.Get(ctx, idx)
	if err != nil {
		if !errors.Is(err, trustledger.ErrEntryNotFound) {
			c.logger.Warn("chain ledger lookup failed", zap.Int("idx", idx), zap.Error(err))
		}
		return "", &ledger.VerifyError{Reference: reference, Err: err}
	}

	hash, ok := ledger.ExtractTaggedHash([]string{entry.Memo})
	if !ok {
		return "", ledger.ErrTagNotFound
	}
	return hash, nil
}

// HealthCheck implements ledger.Client with a read of the chain tip. The
// full integrity walk is served by GET /ledger/verify and run at startup.
func (c *Client) HealthCheck(ctx context.Context) bool {
	if _, err := c.ledger.Root(ctx); err != nil {
		c.logger.Warn("chain ledger unreachable", zap.Error(err))
		return false
	}
	return true
}

// Identity implements ledger.Client.
func (c *Client) Identity() string { return c.submitter }

// Balance implements ledger.Client. The embedded chain has no fees, so the
// balance is the number of appended entries excluding genesis.
func (c *Client) Balance(ctx context.Context) (uint64, error) {
	n, err := c.ledger.Len(ctx)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	return uint64(n - 1), nil
}
