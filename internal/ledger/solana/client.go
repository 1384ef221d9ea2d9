// Package solana is a ledger.Client driver that anchors digests on Solana as
// SPL Memo instructions. References are base58 transaction signatures.
package solana

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmerrifield20/anchorlog/internal/ledger"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"
)

// DefaultRPCURL is the public devnet endpoint.
const DefaultRPCURL = "https://api.devnet.solana.com"

const commitment = "confirmed"

var (
	// ErrTransactionNotFound is returned when the node has no record of a
	// signature at the configured commitment.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrConfirmTimeout is returned when a submitted transaction is not
	// confirmed within Config.ConfirmTimeout.
	ErrConfirmTimeout = errors.New("transaction not confirmed before timeout")
)

// Config holds the Solana driver settings.
type Config struct {
	RPCURL         string
	HTTPTimeout    time.Duration
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

func (c Config) withDefaults() Config {
	if c.RPCURL == "" {
		c.RPCURL = DefaultRPCURL
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = 60 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	return c
}

// Client implements ledger.Client against a Solana JSON-RPC node.
// Each Submit fetches its own recent blockhash, so concurrent submissions
// share only the immutable Signer.
type Client struct {
	cfg    Config
	rpc    *rpcClient
	signer *Signer
	logger *zap.Logger
}

// New creates a Solana Client paying fees with signer.
func New(cfg Config, signer *Signer, logger *zap.Logger) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg: cfg,
		rpc: &rpcClient{
			url:        cfg.RPCURL,
			httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		},
		signer: signer,
		logger: logger,
	}
}

// Submit implements ledger.Client. It sends a memo transaction and blocks
// until the cluster reports it confirmed.
func (c *Client) Submit(ctx context.Context, hash string) (string, error) {
	sig, err := c.submit(ctx, hash)
	if err != nil {
		return "", &ledger.SubmitError{Err: err}
	}
	return sig, nil
}

func (c *Client) submit(ctx context.Context, hash string) (string, error) {
	var bh latestBlockhashResult
	if err := c.rpc.call(ctx, "getLatestBlockhash", &bh, map[string]any{"commitment": commitment}); err != nil {
		return "", fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	tx, rawSig, err := buildMemoTx(c.signer, bh.Value.Blockhash, ledger.Memo(hash))
	if err != nil {
		return "", err
	}

	var sig string
	err = c.rpc.call(ctx, "sendTransaction", &sig,
		base64.StdEncoding.EncodeToString(tx),
		map[string]any{"encoding": "base64", "preflightCommitment": commitment},
	)
	if err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}
	if want := base58.Encode(rawSig); sig != want {
		c.logger.Warn("node returned unexpected signature", zap.String("got", sig), zap.String("want", want))
	}

	if err := c.awaitConfirmation(ctx, sig); err != nil {
		return "", err
	}
	return sig, nil
}

func (c *Client) awaitConfirmation(ctx context.Context, sig string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		var res signatureStatusesResult
		err := c.rpc.call(ctx, "getSignatureStatuses", &res, []string{sig})
		if err != nil && ctx.Err() == nil {
			c.logger.Debug("signature status poll failed", zap.String("signature", sig), zap.Error(err))
		}
		if err == nil && len(res.Value) > 0 && res.Value[0] != nil {
			st := res.Value[0]
			if len(st.Err) > 0 && string(st.Err) != "null" {
				return fmt.Errorf("transaction %s failed: %s", sig, st.Err)
			}
			if st.ConfirmationStatus == "confirmed" || st.ConfirmationStatus == "finalized" {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", sig, ErrConfirmTimeout)
		case <-ticker.C:
		}
	}
}

// Verify implements ledger.Client. It reads the transaction's program log
// messages and returns the digest following the first LOG: tag.
func (c *Client) Verify(ctx context.Context, reference string) (string, error) {
	if raw, err := base58.Decode(reference); err != nil || len(raw) != signatureSize {
		return "", &ledger.VerifyError{Reference: reference, Err: ledger.ErrInvalidReference}
	}

	var tx *transactionResult
	err := c.rpc.call(ctx, "getTransaction", &tx, reference, map[string]any{
		"encoding":                       "json",
		"commitment":                     commitment,
		"maxSupportedTransactionVersion": 0,
	})
	if err != nil {
		return "", &ledger.VerifyError{Reference: reference, Err: err}
	}
	if tx == nil {
		return "", &ledger.VerifyError{Reference: reference, Err: ErrTransactionNotFound}
	}
	if tx.Meta == nil {
		return "", ledger.ErrTagNotFound
	}

	hash, ok := ledger.ExtractTaggedHash(tx.Meta.LogMessages)
	if !ok {
		return "", ledger.ErrTagNotFound
	}
	return hash, nil
}

// HealthCheck implements ledger.Client using getHealth.
func (c *Client) HealthCheck(ctx context.Context) bool {
	var status string
	if err := c.rpc.call(ctx, "getHealth", &status); err != nil {
		c.logger.Debug("solana health check failed", zap.Error(err))
		return false
	}
	return status == "ok"
}

// Identity implements ledger.Client; it is the fee payer address.
func (c *Client) Identity() string { return c.signer.Address() }

// Balance implements ledger.Client; the result is in lamports.
func (c *Client) Balance(ctx context.Context) (uint64, error) {
	var res balanceResult
	err := c.rpc.call(ctx, "getBalance", &res, c.signer.Address(), map[string]any{"commitment": commitment})
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return res.Value, nil
}
