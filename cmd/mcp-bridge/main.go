// anchorlog-mcp-bridge exposes the anchorlog API as MCP tools, so an AI host
// can record audit events and verify their ledger anchoring.
//
// Add to an MCP host configuration:
//
//	{
//	  "mcpServers": {
//	    "anchorlog": {
//	      "command": "/path/to/anchorlog-mcp-bridge",
//	      "args": ["--api", "http://localhost:8080"]
//	    }
//	  }
//	}
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jmerrifield20/anchorlog/internal/mcpbridge"
	"github.com/jmerrifield20/anchorlog/pkg/client"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "dev"

var (
	apiURL      string
	timeout     time.Duration
	cacheTTLSec int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "anchorlog-mcp-bridge",
	Short: "MCP bridge for the anchorlog audit API",
	Long: `anchorlog-mcp-bridge is a stdio MCP server that exposes five tools to any
MCP-compatible AI host:

  create_log   record an audit event
  get_log      fetch a record and its anchor status
  query_logs   list records by type, severity and time range
  verify_log   check a record against the ledger
  get_stats    counts per anchor status

All logging goes to stderr so it does not interfere with the protocol.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&apiURL, "api", envOr("ANCHORLOG_URL", "http://localhost:8080"), "anchorlog API base URL")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Per-request timeout")
	rootCmd.Flags().IntVar(&cacheTTLSec, "cache-ttl", 60, "Cache TTL for anchored records in seconds (0 = disabled)")
}

func run(_ *cobra.Command, _ []string) error {
	logger, err := stderrLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	opts := []client.Option{client.WithTimeout(timeout)}
	if cacheTTLSec > 0 {
		opts = append(opts, client.WithCacheTTL(time.Duration(cacheTTLSec)*time.Second))
	}
	c, err := client.New(apiURL, opts...)
	if err != nil {
		return fmt.Errorf("create anchorlog client: %w", err)
	}

	s := mcpbridge.NewServer(c, version, logger)
	logger.Info("anchorlog MCP bridge ready", zap.String("api", apiURL))
	return mcpbridge.ServeStdio(s)
}

// stderrLogger builds a production zap logger that never touches stdout.
func stderrLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	return cfg.Build()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
