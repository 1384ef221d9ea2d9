package trustledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// appendLockKey is the advisory lock serialising Append across every
// anchorlog instance sharing the database.
const appendLockKey = int64(0x616e63686f72) // "anchor"

const entryColumns = `idx, timestamp, submitter, memo, prev_hash, hash`

// PostgresLedger stores the chain in the trust_ledger table, seeded with the
// genesis row by migration 002.
type PostgresLedger struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresLedger creates a PostgresLedger backed by pool.
func NewPostgresLedger(pool *pgxpool.Pool, logger *zap.Logger) *PostgresLedger {
	return &PostgresLedger{pool: pool, logger: logger}
}

// Append implements Ledger. The tail read and the insert run in one
// transaction holding the advisory lock.
func (l *PostgresLedger) Append(ctx context.Context, submitter, memo string) (*Entry, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", appendLockKey); err != nil {
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	tail, err := scanEntry(tx.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM trust_ledger ORDER BY idx DESC LIMIT 1`))
	if err != nil {
		return nil, fmt.Errorf("read ledger tail: %w", err)
	}

	// Postgres stores microseconds; truncate so the hash survives a round trip.
	e := successor(tail, submitter, memo, time.Now().UTC().Truncate(time.Microsecond))

	if _, err := tx.Exec(ctx,
		`INSERT INTO trust_ledger (`+entryColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		e.Index, e.Timestamp, e.Submitter, e.Memo, e.PrevHash, e.Hash,
	); err != nil {
		return nil, fmt.Errorf("insert ledger entry: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit ledger tx: %w", err)
	}

	l.logger.Debug("ledger entry appended", zap.Int("idx", e.Index), zap.String("memo", e.Memo))
	return e, nil
}

// Get implements Ledger.
func (l *PostgresLedger) Get(ctx context.Context, index int) (*Entry, error) {
	e, err := scanEntry(l.pool.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM trust_ledger WHERE idx = $1`, index))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("index %d: %w", index, ErrEntryNotFound)
		}
		return nil, fmt.Errorf("get ledger entry %d: %w", index, err)
	}
	return e, nil
}

// Range implements Ledger.
func (l *PostgresLedger) Range(ctx context.Context, from, limit int) ([]*Entry, error) {
	from, limit = clampRange(from, limit)

	rows, err := l.pool.Query(ctx,
		`SELECT `+entryColumns+` FROM trust_ledger WHERE idx >= $1 ORDER BY idx LIMIT $2`,
		from, limit)
	if err != nil {
		return nil, fmt.Errorf("range ledger: %w", err)
	}
	defer rows.Close()

	out := []*Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Len implements Ledger.
func (l *PostgresLedger) Len(ctx context.Context) (int, error) {
	var n int
	if err := l.pool.QueryRow(ctx, "SELECT COUNT(*) FROM trust_ledger").Scan(&n); err != nil {
		return 0, fmt.Errorf("count ledger entries: %w", err)
	}
	return n, nil
}

// Verify implements Ledger. It streams the whole table, so it is O(n).
func (l *PostgresLedger) Verify(ctx context.Context) error {
	rows, err := l.pool.Query(ctx, `SELECT `+entryColumns+` FROM trust_ledger ORDER BY idx`)
	if err != nil {
		return fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var w chainWalker
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return fmt.Errorf("scan ledger row: %w", err)
		}
		if err := w.next(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Root implements Ledger.
func (l *PostgresLedger) Root(ctx context.Context) (string, error) {
	var hash string
	if err := l.pool.QueryRow(ctx,
		"SELECT hash FROM trust_ledger ORDER BY idx DESC LIMIT 1",
	).Scan(&hash); err != nil {
		return "", fmt.Errorf("get ledger root: %w", err)
	}
	return hash, nil
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	if err := row.Scan(&e.Index, &e.Timestamp, &e.Submitter, &e.Memo, &e.PrevHash, &e.Hash); err != nil {
		return nil, err
	}
	e.Timestamp = e.Timestamp.UTC()
	return &e, nil
}
