package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jmerrifield20/anchorlog/pkg/client"
	"github.com/spf13/cobra"
)

// ── create ───────────────────────────────────────────────────────────────────

var (
	createSeverity string
	createData     string
	createWait     time.Duration
)

var createCmd = &cobra.Command{
	Use:   "create <event-type>",
	Short: "Record an audit event",
	Example: `  anchorctl create user.login --severity info --data '{"user":"alice"}'
  anchorctl create deploy --data @event.json --wait 90s`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readData(createData)
		if err != nil {
			return err
		}
		c, err := newClient(false)
		if err != nil {
			return err
		}
		ctx := cmdContext(cmd)

		res, err := c.CreateLog(ctx, args[0], createSeverity, data)
		if err != nil {
			return err
		}
		if createWait <= 0 {
			return printJSON(res)
		}

		l, err := waitTerminal(cmd, c, res.ID, createWait)
		if err != nil {
			return err
		}
		return printJSON(l)
	},
}

// readData parses --data as inline JSON, @file, or - for stdin.
func readData(arg string) (json.RawMessage, error) {
	var raw []byte
	var err error
	switch {
	case arg == "":
		return nil, nil
	case arg == "-":
		raw, err = io.ReadAll(os.Stdin)
	case arg[0] == '@':
		raw, err = os.ReadFile(arg[1:])
	default:
		raw = []byte(arg)
	}
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	if !json.Valid(raw) {
		return nil, errors.New("--data is not valid JSON")
	}
	return raw, nil
}

func waitTerminal(cmd *cobra.Command, c *client.Client, id string, max time.Duration) (*client.Log, error) {
	ctx := cmdContext(cmd)
	deadline := time.Now().Add(max)
	for {
		l, err := c.GetLog(ctx, id)
		if err != nil {
			return nil, err
		}
		if l.Terminal() || time.Now().After(deadline) {
			return l, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// ── get ──────────────────────────────────────────────────────────────────────

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(false)
		if err != nil {
			return err
		}
		l, err := c.GetLog(cmdContext(cmd), args[0])
		if err != nil {
			return err
		}
		return printJSON(l)
	},
}

// ── query ────────────────────────────────────────────────────────────────────

var (
	queryEventType string
	querySeverity  string
	querySince     time.Duration
	queryFrom      string
	queryTo        string
	queryLimit     int
	queryOffset    int
	queryJSON      bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "List records, newest first",
	Example: `  anchorctl query --event-type user.login --since 24h
  anchorctl query --severity error --limit 20 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := queryOptions()
		if err != nil {
			return err
		}
		c, err := newClient(false)
		if err != nil {
			return err
		}
		page, err := c.QueryLogs(cmdContext(cmd), opts)
		if err != nil {
			return err
		}
		if queryJSON {
			return printJSON(page)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tEVENT\tSEVERITY\tSTATUS\tREFERENCE")
		for _, l := range page.Data {
			ref := "-"
			if l.LedgerReference != nil {
				ref = *l.LedgerReference
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				l.ID, l.CreatedAt.Format(time.RFC3339), l.EventType, l.Severity, l.AnchorStatus, ref)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\n%d of %d (offset %d)\n", len(page.Data), page.Total, page.Offset)
		return nil
	},
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&queryEventType, "event-type", "", "filter by event type")
	cmd.Flags().StringVar(&querySeverity, "severity", "", "filter by severity")
	cmd.Flags().DurationVar(&querySince, "since", 0, "only records newer than this duration")
	cmd.Flags().StringVar(&queryFrom, "from", "", "earliest created_at (RFC3339)")
	cmd.Flags().StringVar(&queryTo, "to", "", "latest created_at (RFC3339)")
}

func queryOptions() (client.QueryOptions, error) {
	opts := client.QueryOptions{
		EventType: queryEventType,
		Severity:  querySeverity,
		Limit:     queryLimit,
		Offset:    queryOffset,
	}
	if querySince > 0 && queryFrom != "" {
		return opts, errors.New("--since and --from are mutually exclusive")
	}
	if querySince > 0 {
		opts.From = time.Now().Add(-querySince)
	}
	var err error
	if queryFrom != "" {
		if opts.From, err = time.Parse(time.RFC3339, queryFrom); err != nil {
			return opts, fmt.Errorf("--from: %w", err)
		}
	}
	if queryTo != "" {
		if opts.To, err = time.Parse(time.RFC3339, queryTo); err != nil {
			return opts, fmt.Errorf("--to: %w", err)
		}
	}
	return opts, nil
}

// ── verify ───────────────────────────────────────────────────────────────────

var verifyCmd = &cobra.Command{
	Use:   "verify <id>",
	Short: "Check a record against the ledger",
	Long:  "Exits with status 2 when the record is not valid.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(false)
		if err != nil {
			return err
		}
		v, err := c.VerifyLog(cmdContext(cmd), args[0])
		if err != nil {
			return err
		}
		if err := printJSON(v); err != nil {
			return err
		}
		if !v.IsValid {
			os.Exit(2)
		}
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createSeverity, "severity", "info", "event severity")
	createCmd.Flags().StringVar(&createData, "data", "", "JSON payload, @file, or - for stdin")
	createCmd.Flags().DurationVar(&createWait, "wait", 0, "poll until the record is anchored or this long has passed")

	addFilterFlags(queryCmd)
	queryCmd.Flags().IntVar(&queryLimit, "limit", 50, "page size")
	queryCmd.Flags().IntVar(&queryOffset, "offset", 0, "rows to skip")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "print the raw JSON page")
}
