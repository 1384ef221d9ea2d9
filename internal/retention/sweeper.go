// Package retention periodically deletes log records past their retention
// window.
package retention

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Store deletes records older than a number of days.
// *service.LogService satisfies this interface.
type Store interface {
	Sweep(ctx context.Context, days int) (int64, error)
}

// Config holds sweeper settings. Days <= 0 disables the sweeper.
type Config struct {
	Days     int
	Interval time.Duration
}

// Sweeper runs the retention sweep on a fixed interval.
type Sweeper struct {
	store     Store
	cfg       Config
	onDeleted func(n int64)
	logger    *zap.Logger
}

// New creates a Sweeper.
func New(store Store, cfg Config, logger *zap.Logger) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	return &Sweeper{store: store, cfg: cfg, onDeleted: func(int64) {}, logger: logger}
}

// SetDeletedHook registers a callback receiving the count of every sweep.
func (s *Sweeper) SetDeletedHook(fn func(n int64)) {
	s.onDeleted = fn
}

// Enabled reports whether a retention window is configured.
func (s *Sweeper) Enabled() bool { return s.cfg.Days > 0 }

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	n, err := s.store.Sweep(ctx, s.cfg.Days)
	if err != nil {
		return 0, err
	}
	s.onDeleted(n)
	return n, nil
}

// Run sweeps immediately and then every Interval until ctx is cancelled.
// It returns at once when the sweeper is disabled.
func (s *Sweeper) Run(ctx context.Context) {
	if !s.Enabled() {
		s.logger.Info("retention sweeper disabled")
		return
	}
	s.logger.Info("retention sweeper started",
		zap.Int("days", s.cfg.Days),
		zap.Duration("interval", s.cfg.Interval),
	)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("retention sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
