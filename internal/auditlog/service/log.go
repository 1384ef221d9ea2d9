// Package service implements ingestion, lookup, query, verification and
// maintenance of audit log records.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmerrifield20/anchorlog/internal/auditlog/model"
	"github.com/jmerrifield20/anchorlog/internal/digest"
	"github.com/jmerrifield20/anchorlog/internal/ledger"
	"go.uber.org/zap"
)

// logRepo is the persistence interface for the log service.
// *repository.LogRepository satisfies this interface.
type logRepo interface {
	Insert(ctx context.Context, eventType, severity string, data json.RawMessage, hash string) (*model.LogRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.LogRecord, error)
	Query(ctx context.Context, f model.QueryFilter) ([]*model.LogRecord, int64, error)
	SweepOlderThan(ctx context.Context, days int) (int64, error)
	CountByStatus(ctx context.Context) (map[model.AnchorStatus]int64, error)
}

// dispatcher hands a persisted record to the background anchoring worker.
// *anchor.Anchorer satisfies this interface.
type dispatcher interface {
	Dispatch(rec *model.LogRecord)
}

// healthProber returns the latest composite liveness of the store and the
// ledger. *health.Checker satisfies this interface.
type healthProber interface {
	Current(ctx context.Context) model.Health
}

// LogService is the business logic layer for audit log records.
type LogService struct {
	repo         logRepo
	ledger       ledger.Client
	anchors      dispatcher
	health       healthProber
	ledgerDriver string
	logger       *zap.Logger
}

// NewLogService creates a new LogService. ledgerDriver is the configured
// driver name reported by Stats.
func NewLogService(repo logRepo, l ledger.Client, anchors dispatcher, health healthProber, ledgerDriver string, logger *zap.Logger) *LogService {
	return &LogService{
		repo:         repo,
		ledger:       l,
		anchors:      anchors,
		health:       health,
		ledgerDriver: ledgerDriver,
		logger:       logger,
	}
}

// Create validates and persists a new record, then hands it to the
// anchoring worker. It returns as soon as the record is stored.
func (s *LogService) Create(ctx context.Context, req *model.CreateRequest) (*model.LogRecord, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	hash, err := digest.Compute(req.EventType, req.Severity, req.Data)
	if err != nil {
		return nil, &model.ValidationError{Msg: err.Error()}
	}

	rec, err := s.repo.Insert(ctx, req.EventType, req.Severity, req.Data, hash)
	if err != nil {
		return nil, err
	}

	s.logger.Info("log record created",
		zap.String("log_id", rec.ID.String()),
		zap.String("event_type", rec.EventType),
		zap.String("hash", rec.Hash),
	)

	s.anchors.Dispatch(rec)
	return rec, nil
}

func validateCreate(req *model.CreateRequest) error {
	switch {
	case req.EventType == "" || len(req.EventType) > 255:
		return &model.ValidationError{Msg: "event_type must be 1-255 characters"}
	case req.Severity == "" || len(req.Severity) > 50:
		return &model.ValidationError{Msg: "severity must be 1-50 characters"}
	}
	return nil
}

// Get returns a record by ID.
func (s *LogService) Get(ctx context.Context, id uuid.UUID) (*model.LogRecord, error) {
	return s.repo.GetByID(ctx, id)
}

// Query returns one page of records matching f.
func (s *LogService) Query(ctx context.Context, f model.QueryFilter) (*model.Page, error) {
	f = f.Normalize()
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, &model.ValidationError{Msg: "from must not be after to"}
	}

	records, total, err := s.repo.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	return &model.Page{Data: records, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// Verify compares a record's stored digest with the digest anchored under
// its ledger reference. Mismatches and missing tags are verdicts; a ledger
// that cannot resolve the reference yields a *ledger.VerifyError.
func (s *LogService) Verify(ctx context.Context, id uuid.UUID) (*model.Verification, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	v := &model.Verification{
		LogID:           rec.ID,
		LocalHash:       rec.Hash,
		LedgerReference: rec.LedgerReference,
		AnchorStatus:    rec.AnchorStatus,
	}

	if rec.LedgerReference == nil || *rec.LedgerReference == "" {
		v.Message = model.MsgNotAnchored
		return v, nil
	}

	ledgerHash, err := s.ledger.Verify(ctx, *rec.LedgerReference)
	switch {
	case errors.Is(err, ledger.ErrTagNotFound):
		v.Message = model.MsgNotOnLedger
		return v, nil
	case err != nil:
		s.logger.Warn("ledger verification failed",
			zap.String("log_id", rec.ID.String()),
			zap.String("ledger_reference", *rec.LedgerReference),
			zap.Error(err),
		)
		var ve *ledger.VerifyError
		if !errors.As(err, &ve) {
			err = &ledger.VerifyError{Reference: *rec.LedgerReference, Err: err}
		}
		return nil, err
	}

	v.LedgerHash = &ledgerHash
	if ledgerHash == rec.Hash {
		v.IsValid = true
		v.Message = model.MsgVerified
	} else {
		v.Message = model.MsgHashMismatch
	}
	return v, nil
}

// Stats returns record counts by anchor status and the ledger identity.
// The balance is omitted when the ledger cannot report it.
func (s *LogService) Stats(ctx context.Context) (*model.Stats, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	st := &model.Stats{
		PendingLogs:   counts[model.AnchorStatusPending],
		ConfirmedLogs: counts[model.AnchorStatusConfirmed],
		FailedLogs:    counts[model.AnchorStatusFailed],
		LedgerDriver:  s.ledgerDriver,
		LedgerAccount: s.ledger.Identity(),
	}
	st.TotalLogs = st.PendingLogs + st.ConfirmedLogs + st.FailedLogs

	if bal, err := s.ledger.Balance(ctx); err != nil {
		s.logger.Warn("ledger balance unavailable", zap.Error(err))
	} else {
		st.LedgerBalance = &bal
	}
	return st, nil
}

// Health reports store and ledger liveness as of the last background
// check.
func (s *LogService) Health(ctx context.Context) model.Health {
	return s.health.Current(ctx)
}

// Sweep deletes records older than days days and returns how many were
// removed.
func (s *LogService) Sweep(ctx context.Context, days int) (int64, error) {
	if days < 1 {
		return 0, &model.ValidationError{Msg: "days must be at least 1"}
	}
	n, err := s.repo.SweepOlderThan(ctx, days)
	if err != nil {
		return 0, fmt.Errorf("retention sweep: %w", err)
	}
	s.logger.Info("retention sweep completed", zap.Int("days", days), zap.Int64("deleted", n))
	return n, nil
}
