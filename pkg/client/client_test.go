package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmerrifield20/anchorlog/pkg/client"
)

const (
	confirmedID = "11111111-1111-1111-1111-111111111111"
	pendingID   = "22222222-2222-2222-2222-222222222222"
)

// ── Stub server ─────────────────────────────────────────────────────────

type stubServer struct {
	*httptest.Server
	gets     atomic.Int32
	lastAuth atomic.Value
	lastURL  atomic.Value
}

func newStubServer(t *testing.T) *stubServer {
	t.Helper()
	s := &stubServer{}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/logs", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body["event_type"]) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"validation_error","message":"bad body"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":               pendingID,
			"hash":             "abc123",
			"ledger_reference": nil,
			"anchor_status":    "pending",
			"created_at":       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		})
	})

	mux.HandleFunc("GET /api/v1/logs", func(w http.ResponseWriter, r *http.Request) {
		s.lastURL.Store(r.URL.RawQuery)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data":   []map[string]any{{"id": confirmedID, "event_type": "deploy", "anchor_status": "confirmed"}},
			"total":  7,
			"limit":  1,
			"offset": 0,
		})
	})

	mux.HandleFunc("GET /api/v1/logs/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.gets.Add(1)
		status := "pending"
		switch r.PathValue("id") {
		case confirmedID:
			status = "confirmed"
		case pendingID:
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not_found","message":"log record not found"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": r.PathValue("id"), "event_type": "deploy", "severity": "info",
			"data": map[string]int{"v": 1}, "hash": "abc123", "anchor_status": status,
		})
	})

	mux.HandleFunc("GET /api/v1/logs/{id}/verify", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"log_id": r.PathValue("id"), "is_valid": true, "local_hash": "abc123",
			"ledger_hash": "abc123", "ledger_reference": "5", "anchor_status": "confirmed",
			"message": "Log verified successfully",
		})
	})

	mux.HandleFunc("GET /api/v1/stats", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"total_logs": 3, "pending_logs": 1, "confirmed_logs": 1, "failed_logs": 1,
			"ledger_driver": "chain", "ledger_account": "anchorlog", "ledger_balance": 2,
		})
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "degraded", "database": true, "ledger": false, "version": "test",
		})
	})

	mux.HandleFunc("POST /api/v1/admin/retention/sweep", func(w http.ResponseWriter, r *http.Request) {
		s.lastAuth.Store(r.Header.Get("Authorization"))
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized","message":"invalid admin token"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"deleted": 4})
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// ── Tests ───────────────────────────────────────────────────────────────

func TestNew_invalidURL(t *testing.T) {
	for _, u := range []string{"", "localhost:8080", "://x"} {
		if _, err := client.New(u); err == nil {
			t.Errorf("New(%q): expected error", u)
		}
	}
}

func TestCreateLog_success(t *testing.T) {
	srv := newStubServer(t)
	c := client.MustNew(srv.URL)

	res, err := c.CreateLog(context.Background(), "deploy", "info", map[string]int{"v": 1})
	if err != nil {
		t.Fatalf("CreateLog: %v", err)
	}
	if res.ID != pendingID || res.AnchorStatus != "pending" || res.LedgerReference != nil {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestGetLog_notFound(t *testing.T) {
	srv := newStubServer(t)
	c := client.MustNew(srv.URL)

	_, err := c.GetLog(context.Background(), "33333333-3333-3333-3333-333333333333")
	if !errors.Is(err, client.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "not_found" {
		t.Errorf("expected not_found APIError, got %v", err)
	}
}

func TestGetLog_cachesTerminalOnly(t *testing.T) {
	srv := newStubServer(t)
	c := client.MustNew(srv.URL, client.WithCacheTTL(time.Minute))
	ctx := context.Background()

	for range 3 {
		if _, err := c.GetLog(ctx, confirmedID); err != nil {
			t.Fatal(err)
		}
	}
	if got := srv.gets.Load(); got != 1 {
		t.Errorf("confirmed record: expected 1 request, got %d", got)
	}

	for range 2 {
		if _, err := c.GetLog(ctx, pendingID); err != nil {
			t.Fatal(err)
		}
	}
	if got := srv.gets.Load(); got != 3 {
		t.Errorf("pending record must not be cached: expected 3 requests, got %d", got)
	}
}

func TestQueryLogs_encodesFilters(t *testing.T) {
	srv := newStubServer(t)
	c := client.MustNew(srv.URL)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	page, err := c.QueryLogs(context.Background(), client.QueryOptions{
		EventType: "deploy",
		From:      from,
		Limit:     1,
	})
	if err != nil {
		t.Fatalf("QueryLogs: %v", err)
	}
	if page.Total != 7 || len(page.Data) != 1 {
		t.Errorf("unexpected page: %+v", page)
	}
	want := "event_type=deploy&from=2026-01-01T00%3A00%3A00Z&limit=1"
	if got := srv.lastURL.Load(); got != want {
		t.Errorf("query string = %q, want %q", got, want)
	}
}

func TestVerifyLog_success(t *testing.T) {
	srv := newStubServer(t)
	c := client.MustNew(srv.URL)

	v, err := c.VerifyLog(context.Background(), confirmedID)
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsValid || v.LedgerReference == nil || *v.LedgerReference != "5" {
		t.Errorf("unexpected verification: %+v", v)
	}
}

func TestStatsAndHealth(t *testing.T) {
	srv := newStubServer(t)
	c := client.MustNew(srv.URL)
	ctx := context.Background()

	st, err := c.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalLogs != 3 || st.LedgerBalance == nil || *st.LedgerBalance != 2 {
		t.Errorf("unexpected stats: %+v", st)
	}

	h, err := c.Health(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if h.Status != "degraded" || h.Ledger {
		t.Errorf("unexpected health: %+v", h)
	}
}

func TestSweep_requiresToken(t *testing.T) {
	srv := newStubServer(t)
	ctx := context.Background()

	_, err := client.MustNew(srv.URL).Sweep(ctx, 30)
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}

	c := client.MustNew(srv.URL, client.WithAdminToken("good"))
	n, err := c.Sweep(ctx, 30)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 4 {
		t.Errorf("deleted = %d, want 4", n)
	}
	if got := srv.lastAuth.Load(); got != "Bearer good" {
		t.Errorf("Authorization = %v", got)
	}
}

func TestTokenFile_roundTrip(t *testing.T) {
	srv := newStubServer(t)
	path := filepath.Join(t.TempDir(), "nested", "admin.token")

	if err := client.SaveToken(path, "good"); err != nil {
		t.Fatal(err)
	}
	c, err := client.New(srv.URL, client.WithAdminTokenFile(path))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Sweep(context.Background(), 1); err != nil {
		t.Errorf("Sweep with file token: %v", err)
	}

	if _, err := client.New(srv.URL, client.WithAdminTokenFile(filepath.Join(t.TempDir(), "missing"))); err == nil {
		t.Error("expected error for missing token file")
	}
}
