// Package health probes the store and the ledger and tracks the composite
// liveness of the service.
package health

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/jmerrifield20/anchorlog/internal/auditlog/model"
	"go.uber.org/zap"
)

// Status strings reported in model.Health.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// Config holds health check configuration.
type Config struct {
	CheckInterval time.Duration
	ProbeTimeout  time.Duration
	FailThreshold int
	Version       string
}

// Pinger checks store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// LedgerProbe checks ledger liveness.
type LedgerProbe interface {
	HealthCheck(ctx context.Context) bool
}

// MetricsRecordFunc is an optional callback for recording probe results.
// component is "database" or "ledger".
type MetricsRecordFunc func(component string, success bool)

// StatusFunc is an optional callback invoked after every check.
type StatusFunc func(healthy bool)

// Checker runs the store and ledger probes.
type Checker struct {
	store     Pinger
	ledger    LedgerProbe
	cfg       Config
	onMetrics MetricsRecordFunc
	onStatus  StatusFunc
	logger    *zap.Logger

	mu        sync.Mutex
	failCount int
	checked   bool
	last      model.Health
}

// New creates a new Checker.
func New(store Pinger, ledger LedgerProbe, cfg Config, logger *zap.Logger) *Checker {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 15 * time.Second
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	if cfg.FailThreshold == 0 {
		cfg.FailThreshold = 3
	}
	return &Checker{
		store:  store,
		ledger: ledger,
		cfg:    cfg,
		logger: logger,
		last:   model.Health{Status: StatusDegraded, Version: cfg.Version},
	}
}

// SetMetricsRecord configures the metrics recording callback.
func (c *Checker) SetMetricsRecord(fn MetricsRecordFunc) {
	c.onMetrics = fn
}

// SetStatusHook configures the callback that receives every check outcome.
func (c *Checker) SetStatusHook(fn StatusFunc) {
	c.onStatus = fn
}

// Check probes the store and the ledger concurrently and returns the
// composite result. Each probe is bounded by ProbeTimeout.
func (c *Checker) Check(ctx context.Context) model.Health {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()

	var dbOK, ledgerOK bool
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := c.store.Ping(ctx); err != nil {
			c.logger.Warn("health: database ping failed", zap.Error(err))
			return
		}
		dbOK = true
	}()
	go func() {
		defer wg.Done()
		ledgerOK = c.ledger.HealthCheck(ctx)
	}()
	wg.Wait()

	if c.onMetrics != nil {
		c.onMetrics("database", dbOK)
		c.onMetrics("ledger", ledgerOK)
	}

	h := model.Health{
		Status:   StatusHealthy,
		Database: dbOK,
		Ledger:   ledgerOK,
		Version:  c.cfg.Version,
	}
	if !h.Healthy() {
		h.Status = StatusDegraded
	}
	c.record(h)

	if c.onStatus != nil {
		c.onStatus(h.Healthy())
	}
	return h
}

func (c *Checker) record(h model.Health) {
	c.mu.Lock()
	prev := c.failCount
	if h.Healthy() {
		c.failCount = 0
	} else {
		c.failCount++
	}
	count := c.failCount
	c.last = h
	c.checked = true
	c.mu.Unlock()

	switch {
	case h.Healthy() && prev >= c.cfg.FailThreshold:
		c.logger.Info("health: recovered")
	case count == c.cfg.FailThreshold:
		c.logger.Warn("health: degraded",
			zap.Bool("database", h.Database),
			zap.Bool("ledger", h.Ledger),
			zap.Int("fail_count", count),
		)
	}
}

// Current returns the result of the most recent check, running one first
// if none has completed yet.
func (c *Checker) Current(ctx context.Context) model.Health {
	c.mu.Lock()
	h, ok := c.last, c.checked
	c.mu.Unlock()
	if ok {
		return h
	}
	return c.Check(ctx)
}

// Start runs the check loop until quit is signalled.
func (c *Checker) Start(quit <-chan os.Signal) {
	ticker := time.NewTicker(c.cfg.CheckInterval)
	defer ticker.Stop()

	c.Check(context.Background())
	for {
		select {
		case <-ticker.C:
			c.Check(context.Background())
		case <-quit:
			return
		}
	}
}
