package retention_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmerrifield20/anchorlog/internal/retention"
	"go.uber.org/zap"
)

type stubStore struct {
	mu    sync.Mutex
	calls []int
	err   error
}

func (s *stubStore) Sweep(_ context.Context, days int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, days)
	if s.err != nil {
		return 0, s.err
	}
	return 2, nil
}

func (s *stubStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func TestRunOnce(t *testing.T) {
	store := &stubStore{}
	sw := retention.New(store, retention.Config{Days: 30}, zap.NewNop())
	var got int64
	sw.SetDeletedHook(func(n int64) { got += n })

	n, err := sw.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || got != 2 {
		t.Errorf("RunOnce = %d, hook saw %d", n, got)
	}
	if store.calls[0] != 30 {
		t.Errorf("swept with days=%d, want 30", store.calls[0])
	}
}

func TestRunOnce_error(t *testing.T) {
	sw := retention.New(&stubStore{err: errors.New("db down")}, retention.Config{Days: 1}, zap.NewNop())
	if _, err := sw.RunOnce(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestRun_disabled(t *testing.T) {
	store := &stubStore{}
	sw := retention.New(store, retention.Config{Days: 0}, zap.NewNop())

	done := make(chan struct{})
	go func() {
		sw.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled sweeper should return immediately")
	}
	if store.count() != 0 {
		t.Error("disabled sweeper must not sweep")
	}
}

func TestRun_sweepsOnIntervalUntilCancelled(t *testing.T) {
	store := &stubStore{}
	sw := retention.New(store, retention.Config{Days: 7, Interval: 10 * time.Millisecond}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for store.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if store.count() < 3 {
		t.Errorf("expected at least 3 sweeps, got %d", store.count())
	}
}
