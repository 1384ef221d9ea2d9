package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmerrifield20/anchorlog/internal/auditlog/model"
)

// ErrNotFound is returned when a log record is not found in the database.
var ErrNotFound = model.ErrNotFound

const logColumns = `id, event_type, severity, data, hash, ledger_reference, anchor_status, created_at, updated_at`

// LogRepository stores log records in PostgreSQL.
type LogRepository struct {
	db            *pgxpool.Pool
	retainPending bool
}

// NewLogRepository creates a new LogRepository.
func NewLogRepository(db *pgxpool.Pool) *LogRepository {
	return &LogRepository{db: db}
}

// SetRetainPending makes SweepOlderThan skip records that are still pending.
func (r *LogRepository) SetRetainPending(retain bool) {
	r.retainPending = retain
}

// Insert persists a new pending record and returns it as stored.
func (r *LogRepository) Insert(ctx context.Context, eventType, severity string, data json.RawMessage, hash string) (*model.LogRecord, error) {
	if len(data) == 0 {
		data = json.RawMessage("null")
	}

	query := `
		INSERT INTO logs (id, event_type, severity, data, hash, anchor_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + logColumns

	rec, err := scanLog(r.db.QueryRow(ctx, query,
		uuid.New(), eventType, severity, data, hash, model.AnchorStatusPending,
	))
	if err != nil {
		return nil, &model.StoreError{Op: "insert", Err: err}
	}
	return rec, nil
}

// GetByID retrieves a record by its UUID.
func (r *LogRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.LogRecord, error) {
	query := `SELECT ` + logColumns + ` FROM logs WHERE id = $1`
	rec, err := scanLog(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &model.StoreError{Op: "get", Err: err}
	}
	return rec, nil
}

// Query returns one page of records matching f and the total number of
// matches ignoring pagination.
func (r *LogRepository) Query(ctx context.Context, f model.QueryFilter) ([]*model.LogRecord, int64, error) {
	q := buildQuery(f.Normalize())

	rows, err := r.db.Query(ctx, q.pageSQL, q.pageArgs...)
	if err != nil {
		return nil, 0, &model.StoreError{Op: "query", Err: err}
	}
	defer rows.Close()

	records := make([]*model.LogRecord, 0)
	for rows.Next() {
		rec, err := scanLog(rows)
		if err != nil {
			return nil, 0, &model.StoreError{Op: "query", Err: err}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, &model.StoreError{Op: "query", Err: err}
	}

	var total int64
	if err := r.db.QueryRow(ctx, q.countSQL, q.countArgs...).Scan(&total); err != nil {
		return nil, 0, &model.StoreError{Op: "count", Err: err}
	}
	return records, total, nil
}

// UpdateStatus moves a pending record to a terminal status. The write only
// applies while the record is pending, so repeating it is a no-op. An
// unknown id yields a StoreError wrapping ErrNotFound.
func (r *LogRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AnchorStatus, reference *string) error {
	if !status.Terminal() {
		return fmt.Errorf("update status: %q is not a terminal status", status)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE logs
		SET anchor_status = $2, ledger_reference = $3, updated_at = NOW()
		WHERE id = $1 AND anchor_status = 'pending'`,
		id, string(status), reference,
	)
	if err != nil {
		return &model.StoreError{Op: "update status", Err: err}
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM logs WHERE id = $1)`, id).Scan(&exists); err != nil {
		return &model.StoreError{Op: "update status", Err: err}
	}
	if !exists {
		return &model.StoreError{Op: "update status", Err: ErrNotFound}
	}
	return nil
}

// SweepOlderThan deletes records created more than days days ago and
// returns how many were removed.
func (r *LogRepository) SweepOlderThan(ctx context.Context, days int) (int64, error) {
	query := `DELETE FROM logs WHERE created_at < NOW() - INTERVAL '1 day' * $1`
	if r.retainPending {
		query += ` AND anchor_status <> 'pending'`
	}
	tag, err := r.db.Exec(ctx, query, days)
	if err != nil {
		return 0, &model.StoreError{Op: "sweep", Err: err}
	}
	return tag.RowsAffected(), nil
}

// CountByStatus returns the number of records in each anchor status.
// Statuses with no records are present with a zero count.
func (r *LogRepository) CountByStatus(ctx context.Context) (map[model.AnchorStatus]int64, error) {
	counts := map[model.AnchorStatus]int64{
		model.AnchorStatusPending:   0,
		model.AnchorStatusConfirmed: 0,
		model.AnchorStatusFailed:    0,
	}

	rows, err := r.db.Query(ctx, `SELECT anchor_status, COUNT(*) FROM logs GROUP BY anchor_status`)
	if err != nil {
		return nil, &model.StoreError{Op: "stats", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, &model.StoreError{Op: "stats", Err: err}
		}
		counts[model.AnchorStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, &model.StoreError{Op: "stats", Err: err}
	}
	return counts, nil
}

// Ping checks database connectivity.
func (r *LogRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanLog(row pgx.Row) (*model.LogRecord, error) {
	var rec model.LogRecord
	var data []byte
	var status string
	err := row.Scan(
		&rec.ID, &rec.EventType, &rec.Severity, &data, &rec.Hash,
		&rec.LedgerReference, &status, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Data = json.RawMessage(data)
	rec.AnchorStatus = model.AnchorStatus(status)
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}
