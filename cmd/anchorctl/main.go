package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jmerrifield20/anchorlog/pkg/client"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

var (
	apiURL    string
	cfgFile   string
	tokenFile string
	timeout   time.Duration
)

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "anchorctl",
	Short: "anchorlog operator CLI",
	Long: `anchorctl is the command-line interface for an anchorlog server.

It records and inspects audit events, verifies them against the ledger,
exports records, and runs maintenance such as the retention sweep.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.anchorlog")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if apiURL == "" {
			apiURL = viper.GetString("anchorlog_url")
		}
		if apiURL == "" {
			apiURL = "http://localhost:8080"
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.anchorlog/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "anchorlog API URL (default $ANCHORLOG_URL or http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&tokenFile, "token-file", "", "admin token file (default ~/.anchorlog/admin.token)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "per-request timeout")

	rootCmd.AddCommand(createCmd, getCmd, queryCmd, verifyCmd)
	rootCmd.AddCommand(statsCmd, healthCmd, exportCmd, sweepCmd)
	rootCmd.AddCommand(tokenCmd, keygenCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the anchorctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("anchorctl %s\n", version)
	},
}

// newClient builds an SDK client from the global flags.
func newClient(admin bool) (*client.Client, error) {
	opts := []client.Option{client.WithTimeout(timeout)}
	if admin {
		tok, err := adminToken()
		if err != nil {
			return nil, err
		}
		opts = append(opts, client.WithAdminToken(tok))
	}
	return client.New(apiURL, opts...)
}

// adminToken returns $ANCHORLOG_ADMIN_TOKEN or the contents of the token file.
func adminToken() (string, error) {
	if tok := os.Getenv("ANCHORLOG_ADMIN_TOKEN"); tok != "" {
		return tok, nil
	}
	path := tokenFile
	if path == "" {
		var err error
		if path, err = client.DefaultTokenPath(); err != nil {
			return "", err
		}
	}
	tok, err := client.LoadToken(path)
	if err != nil {
		return "", fmt.Errorf("%w (run 'anchorctl token --save' or set ANCHORLOG_ADMIN_TOKEN)", err)
	}
	return tok, nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
