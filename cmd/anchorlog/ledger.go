package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmerrifield20/anchorlog/internal/ledger"
	"github.com/jmerrifield20/anchorlog/internal/ledger/chain"
	"github.com/jmerrifield20/anchorlog/internal/ledger/solana"
	"github.com/jmerrifield20/anchorlog/internal/trustledger"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// buildLedger constructs the configured ledger driver. The trustledger is
// returned only for the chain driver, so its inspection routes can be mounted.
func buildLedger(ctx context.Context, driver string, db *pgxpool.Pool, logger *zap.Logger) (ledger.Client, trustledger.Ledger, error) {
	switch driver {
	case "solana":
		signer, err := solana.LoadKeypair(viper.GetString("solana.keypair_path"))
		if err != nil {
			return nil, nil, fmt.Errorf("load solana keypair: %w", err)
		}
		c := solana.New(solana.Config{
			RPCURL:         viper.GetString("solana.rpc_url"),
			HTTPTimeout:    viper.GetDuration("solana.http_timeout"),
			ConfirmTimeout: viper.GetDuration("solana.confirm_timeout"),
		}, signer, logger)
		return c, nil, nil

	case "chain":
		var tl trustledger.Ledger
		switch backend := viper.GetString("ledger.chain_backend"); backend {
		case "memory":
			logger.Warn("chain ledger is in-memory; anchors are lost on restart")
			tl = trustledger.New()
		case "postgres":
			tl = trustledger.NewPostgresLedger(db, logger)
		default:
			return nil, nil, fmt.Errorf("unknown ledger.chain_backend %q (want memory or postgres)", backend)
		}

		if err := tl.Verify(ctx); err != nil {
			logger.Warn("trust ledger integrity check FAILED", zap.Error(err))
		} else {
			n, _ := tl.Len(ctx)
			root, _ := tl.Root(ctx)
			logger.Info("trust ledger verified", zap.Int("entries", n), zap.String("root", root))
		}
		return chain.New(tl, viper.GetString("ledger.submitter"), logger), tl, nil

	default:
		return nil, nil, fmt.Errorf("unknown ledger.driver %q (want solana or chain)", driver)
	}
}
