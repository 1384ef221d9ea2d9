// Package anchor submits freshly ingested log records to the ledger in the
// background and records the terminal anchoring status.
package anchor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmerrifield20/anchorlog/internal/auditlog/model"
	"github.com/jmerrifield20/anchorlog/internal/ledger"
	"go.uber.org/zap"
)

// Outcome labels passed to an Observer.
const (
	ResultConfirmed   = "confirmed"
	ResultFailed      = "failed"
	ResultWriteFailed = "write_failed"
)

const statusWriteTimeout = 10 * time.Second

// StatusWriter persists the terminal anchor status of a record.
type StatusWriter interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.AnchorStatus, reference *string) error
}

// Observer is called once per anchoring attempt with one of the Result labels.
type Observer func(result string)

// Notifier is told about every record whose terminal status was written.
// rec carries the new status and reference.
type Notifier interface {
	AnchorSettled(rec *model.LogRecord)
}

// Option configures an Anchorer.
type Option func(*Anchorer)

// WithObserver registers a callback for anchoring outcomes.
func WithObserver(o Observer) Option {
	return func(a *Anchorer) { a.observe = o }
}

// WithNotifier registers n for settled records.
func WithNotifier(n Notifier) Option {
	return func(a *Anchorer) { a.notify = n }
}

// Anchorer runs one detached anchoring task per dispatched record.
// Each task makes exactly one submission attempt and one status write.
type Anchorer struct {
	ledger  ledger.Client
	store   StatusWriter
	logger  *zap.Logger
	observe Observer
	notify  Notifier
	wg      sync.WaitGroup
}

// New creates an Anchorer.
func New(l ledger.Client, store StatusWriter, logger *zap.Logger, opts ...Option) *Anchorer {
	a := &Anchorer{ledger: l, store: store, logger: logger, observe: func(string) {}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Dispatch starts anchoring rec in the background and returns immediately.
// The task is not bound to any caller context.
func (a *Anchorer) Dispatch(rec *model.LogRecord) {
	snapshot := *rec
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.run(&snapshot)
	}()
}

func (a *Anchorer) run(rec *model.LogRecord) {
	id, hash := rec.ID, rec.Hash
	log := a.logger.With(zap.String("log_id", id.String()))

	status := model.AnchorStatusConfirmed
	ref, err := a.ledger.Submit(context.Background(), hash)
	var refPtr *string
	if err != nil {
		status = model.AnchorStatusFailed
		log.Warn("ledger submission failed", zap.Error(err))
	} else {
		refPtr = &ref
		log.Info("log anchored on ledger", zap.String("ledger_reference", ref))
	}

	ctx, cancel := context.WithTimeout(context.Background(), statusWriteTimeout)
	defer cancel()
	if err := a.store.UpdateStatus(ctx, id, status, refPtr); err != nil {
		log.Error("failed to record anchor status",
			zap.String("anchor_status", string(status)),
			zap.Error(err),
		)
		a.observe(ResultWriteFailed)
		return
	}
	a.observe(string(status))

	if a.notify != nil {
		rec.AnchorStatus = status
		rec.LedgerReference = refPtr
		rec.UpdatedAt = time.Now().UTC()
		a.notify.AnchorSettled(rec)
	}
}

// Wait blocks until every dispatched task has finished or ctx is done.
func (a *Anchorer) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
