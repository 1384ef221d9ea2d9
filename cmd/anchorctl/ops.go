package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmerrifield20/anchorlog/internal/identity"
	"github.com/jmerrifield20/anchorlog/internal/ledger/solana"
	"github.com/jmerrifield20/anchorlog/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ── stats / health ───────────────────────────────────────────────────────────

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show record counts and the ledger account",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(false)
		if err != nil {
			return err
		}
		st, err := c.Stats(cmdContext(cmd))
		if err != nil {
			return err
		}
		return printJSON(st)
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show server health",
	Long:  "Exits with status 1 when the server reports degraded.",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(false)
		if err != nil {
			return err
		}
		h, err := c.Health(cmdContext(cmd))
		if err != nil {
			return err
		}
		if err := printJSON(h); err != nil {
			return err
		}
		if h.Status != "healthy" {
			return fmt.Errorf("server is %s", h.Status)
		}
		return nil
	},
}

// ── sweep ────────────────────────────────────────────────────────────────────

var sweepDays int

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete records older than --days (admin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if sweepDays < 1 {
			return errors.New("--days must be at least 1")
		}
		c, err := newClient(true)
		if err != nil {
			return err
		}
		n, err := c.Sweep(cmdContext(cmd), sweepDays)
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d record(s) older than %d day(s)\n", n, sweepDays)
		return nil
	},
}

// ── token ────────────────────────────────────────────────────────────────────

var (
	tokenSecret  string
	tokenSubject string
	tokenTTL     time.Duration
	tokenSave    bool
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an admin token signed with the server's admin secret",
	Example: `  AUTH_ADMIN_SECRET=... anchorctl token --subject ops --ttl 8h --save
  anchorctl sweep --days 90`,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := tokenSecret
		if secret == "" {
			secret = viper.GetString("auth.admin_secret")
		}
		issuer := viper.GetString("auth.issuer")
		if issuer == "" {
			issuer = "anchorlog"
		}

		tok, err := identity.NewAdminTokenIssuer(secret, issuer, tokenTTL).Issue(tokenSubject)
		if err != nil {
			return fmt.Errorf("%w (pass --secret or set AUTH_ADMIN_SECRET)", err)
		}
		if !tokenSave {
			fmt.Println(tok)
			return nil
		}

		path := tokenFile
		if path == "" {
			if path, err = client.DefaultTokenPath(); err != nil {
				return err
			}
		}
		if err := client.SaveToken(path, tok); err != nil {
			return err
		}
		fmt.Printf("admin token for %q saved to %s (expires in %s)\n", tokenSubject, path, tokenTTL)
		return nil
	},
}

// ── keygen ───────────────────────────────────────────────────────────────────

var (
	keygenOut   string
	keygenForce bool
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a Solana keypair file for the solana ledger driver",
	Long: `keygen writes a new ed25519 keypair in the Solana CLI format (a JSON array
of 64 bytes) and prints its public address. Fund the address before
anchoring, e.g. 'solana airdrop 1 <address> --url devnet'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := expandHome(keygenOut)
		if _, err := os.Stat(path); err == nil && !keygenForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		signer, err := solana.GenerateSigner()
		if err != nil {
			return err
		}
		b, err := signer.MarshalKeypair()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return fmt.Errorf("create key dir: %w", err)
		}
		if err := os.WriteFile(path, b, 0o600); err != nil {
			return fmt.Errorf("write keypair: %w", err)
		}

		fmt.Printf("keypair written to %s\n", path)
		fmt.Printf("address: %s\n", signer.Address())
		return nil
	},
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func init() {
	sweepCmd.Flags().IntVar(&sweepDays, "days", 0, "retention window in days")
	_ = sweepCmd.MarkFlagRequired("days")

	tokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "admin secret (default $AUTH_ADMIN_SECRET)")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "operator", "token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	tokenCmd.Flags().BoolVar(&tokenSave, "save", false, "write the token to --token-file instead of printing it")

	keygenCmd.Flags().StringVarP(&keygenOut, "out", "o", "~/.config/solana/id.json", "keypair file to write")
	keygenCmd.Flags().BoolVar(&keygenForce, "force", false, "overwrite an existing file")
}
