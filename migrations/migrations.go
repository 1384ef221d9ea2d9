// Package migrations embeds the SQL schema and applies it.
//
// Applied versions are tracked in schema_migrations using the
// golang-migrate layout (bigint version + dirty flag), so the two tools can
// be used interchangeably.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed *.up.sql
var files embed.FS

// Migration is one embedded up-migration.
type Migration struct {
	Version int64
	Name    string
}

// List returns the embedded migrations in version order.
func List() ([]Migration, error) {
	names, err := fs.Glob(files, "*.up.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, n := range names {
		v, err := versionFromFile(n)
		if err != nil {
			return nil, fmt.Errorf("parse version from %s: %w", n, err)
		}
		out = append(out, Migration{Version: v, Name: n})
	}
	return out, nil
}

// Up applies every migration not yet recorded as clean and returns how many
// were applied.
func Up(ctx context.Context, db *pgxpool.Pool, logger *zap.Logger) (int, error) {
	if err := ensureTable(ctx, db); err != nil {
		return 0, err
	}
	all, err := List()
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, m := range all {
		var clean bool
		if err := db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1 AND dirty = false)`,
			m.Version,
		).Scan(&clean); err != nil {
			return applied, fmt.Errorf("check %s: %w", m.Name, err)
		}
		if clean {
			logger.Debug("migration already applied", zap.String("file", m.Name))
			continue
		}

		sql, err := files.ReadFile(m.Name)
		if err != nil {
			return applied, fmt.Errorf("read %s: %w", m.Name, err)
		}

		// Marked dirty first so a crash mid-apply stays visible.
		if _, err := db.Exec(ctx,
			`INSERT INTO schema_migrations (version, dirty) VALUES ($1, true)
			 ON CONFLICT (version) DO UPDATE SET dirty = true`, m.Version,
		); err != nil {
			return applied, fmt.Errorf("mark dirty %s: %w", m.Name, err)
		}
		if _, err := db.Exec(ctx, string(sql)); err != nil {
			return applied, fmt.Errorf("apply %s: %w", m.Name, err)
		}
		if _, err := db.Exec(ctx,
			`UPDATE schema_migrations SET dirty = false WHERE version = $1`, m.Version,
		); err != nil {
			return applied, fmt.Errorf("mark clean %s: %w", m.Name, err)
		}

		logger.Info("migration applied", zap.String("file", m.Name), zap.Int64("version", m.Version))
		applied++
	}
	return applied, nil
}

func ensureTable(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version bigint NOT NULL,
			dirty   boolean NOT NULL,
			PRIMARY KEY (version)
		)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

// versionFromFile extracts the leading integer from a migration filename.
// "001_init.up.sql" → 1
func versionFromFile(filename string) (int64, error) {
	prefix, _, ok := strings.Cut(filename, "_")
	if !ok {
		return 0, fmt.Errorf("unexpected filename format")
	}
	return strconv.ParseInt(prefix, 10, 64)
}
