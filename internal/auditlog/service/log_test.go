package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmerrifield20/anchorlog/internal/auditlog/model"
	"github.com/jmerrifield20/anchorlog/internal/auditlog/service"
	"github.com/jmerrifield20/anchorlog/internal/digest"
	"github.com/jmerrifield20/anchorlog/internal/ledger"
	"go.uber.org/zap"
)

// ── Stubs ────────────────────────────────────────────────────────────────

type stubRepo struct {
	records    map[uuid.UUID]*model.LogRecord
	insertErr  error
	lastFilter model.QueryFilter
	sweptDays  int
	counts     map[model.AnchorStatus]int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{records: map[uuid.UUID]*model.LogRecord{}}
}

func (r *stubRepo) Insert(_ context.Context, et, sev string, data json.RawMessage, hash string) (*model.LogRecord, error) {
	if r.insertErr != nil {
		return nil, r.insertErr
	}
	rec := &model.LogRecord{
		ID: uuid.New(), EventType: et, Severity: sev, Data: data, Hash: hash,
		AnchorStatus: model.AnchorStatusPending, CreatedAt: time.Now().UTC(),
	}
	r.records[rec.ID] = rec
	return rec, nil
}

func (r *stubRepo) GetByID(_ context.Context, id uuid.UUID) (*model.LogRecord, error) {
	rec, ok := r.records[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return rec, nil
}

func (r *stubRepo) Query(_ context.Context, f model.QueryFilter) ([]*model.LogRecord, int64, error) {
	r.lastFilter = f
	var out []*model.LogRecord
	for _, rec := range r.records {
		out = append(out, rec)
	}
	return out, int64(len(out)), nil
}

func (r *stubRepo) SweepOlderThan(_ context.Context, days int) (int64, error) {
	r.sweptDays = days
	return 4, nil
}

func (r *stubRepo) CountByStatus(context.Context) (map[model.AnchorStatus]int64, error) {
	return r.counts, nil
}

type stubDispatcher struct{ dispatched []*model.LogRecord }

func (d *stubDispatcher) Dispatch(rec *model.LogRecord) { d.dispatched = append(d.dispatched, rec) }

type stubLedger struct {
	verifyHash string
	verifyErr  error
	balanceErr error
}

func (l *stubLedger) Submit(context.Context, string) (string, error) { return "", nil }
func (l *stubLedger) Verify(context.Context, string) (string, error) {
	return l.verifyHash, l.verifyErr
}
func (l *stubLedger) HealthCheck(context.Context) bool { return true }
func (l *stubLedger) Identity() string                 { return "payer-address" }
func (l *stubLedger) Balance(context.Context) (uint64, error) {
	if l.balanceErr != nil {
		return 0, l.balanceErr
	}
	return 42, nil
}

type stubHealth struct{ h model.Health }

func (s stubHealth) Current(context.Context) model.Health { return s.h }

func newService(repo *stubRepo, l *stubLedger, d *stubDispatcher) *service.LogService {
	return service.NewLogService(repo, l, d, stubHealth{model.Health{Status: "healthy", Database: true, Ledger: true}}, "chain", zap.NewNop())
}

func anchored(repo *stubRepo, hash, ref string) *model.LogRecord {
	rec := &model.LogRecord{
		ID: uuid.New(), Hash: hash, LedgerReference: &ref,
		AnchorStatus: model.AnchorStatusConfirmed,
	}
	repo.records[rec.ID] = rec
	return rec
}

// ── Create ───────────────────────────────────────────────────────────────

func TestCreate_persistsPendingAndDispatches(t *testing.T) {
	repo, d := newStubRepo(), &stubDispatcher{}
	svc := newService(repo, &stubLedger{}, d)

	req := &model.CreateRequest{EventType: "login", Severity: "warn", Data: json.RawMessage(`{"user":"alice"}`)}
	rec, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	want, _ := digest.Compute("login", "warn", req.Data)
	if rec.Hash != want {
		t.Errorf("hash = %s, want %s", rec.Hash, want)
	}
	if rec.AnchorStatus != model.AnchorStatusPending || rec.LedgerReference != nil {
		t.Errorf("record should be pending without reference: %+v", rec)
	}
	if len(d.dispatched) != 1 || d.dispatched[0].ID != rec.ID {
		t.Errorf("expected exactly one dispatch of the new record, got %v", d.dispatched)
	}
}

func TestCreate_validation(t *testing.T) {
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'x'
	}
	cases := []struct {
		name string
		req  model.CreateRequest
	}{
		{"empty event_type", model.CreateRequest{Severity: "info"}},
		{"long event_type", model.CreateRequest{EventType: string(long), Severity: "info"}},
		{"empty severity", model.CreateRequest{EventType: "x"}},
		{"long severity", model.CreateRequest{EventType: "x", Severity: string(long[:51])}},
		{"invalid data", model.CreateRequest{EventType: "x", Severity: "info", Data: json.RawMessage(`{"a":`)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, d := newStubRepo(), &stubDispatcher{}
			svc := newService(repo, &stubLedger{}, d)

			_, err := svc.Create(context.Background(), &tc.req)
			var ve *model.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(repo.records) != 0 || len(d.dispatched) != 0 {
				t.Error("invalid input must not be persisted or dispatched")
			}
		})
	}
}

func TestCreate_storeErrorSkipsDispatch(t *testing.T) {
	repo, d := newStubRepo(), &stubDispatcher{}
	repo.insertErr = &model.StoreError{Op: "insert", Err: errors.New("conn refused")}
	svc := newService(repo, &stubLedger{}, d)

	_, err := svc.Create(context.Background(), &model.CreateRequest{EventType: "x", Severity: "info"})
	var se *model.StoreError
	if !errors.As(err, &se) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if len(d.dispatched) != 0 {
		t.Error("nothing should be dispatched when insert fails")
	}
}

// ── Verify ───────────────────────────────────────────────────────────────

func TestVerify_verdicts(t *testing.T) {
	cases := []struct {
		name      string
		ledger    *stubLedger
		wantValid bool
		wantMsg   string
		wantHash  bool
	}{
		{"match", &stubLedger{verifyHash: "h"}, true, model.MsgVerified, true},
		{"mismatch", &stubLedger{verifyHash: "other"}, false, model.MsgHashMismatch, true},
		{"tag absent", &stubLedger{verifyErr: ledger.ErrTagNotFound}, false, model.MsgNotOnLedger, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newStubRepo()
			rec := anchored(repo, "h", "ref-1")
			svc := newService(repo, tc.ledger, &stubDispatcher{})

			v, err := svc.Verify(context.Background(), rec.ID)
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if v.IsValid != tc.wantValid || v.Message != tc.wantMsg {
				t.Errorf("got valid=%v msg=%q", v.IsValid, v.Message)
			}
			if (v.LedgerHash != nil) != tc.wantHash {
				t.Errorf("ledger hash presence = %v, want %v", v.LedgerHash != nil, tc.wantHash)
			}
			if v.LocalHash != "h" || v.LedgerReference == nil || *v.LedgerReference != "ref-1" {
				t.Errorf("verification = %+v", v)
			}
		})
	}
}

func TestVerify_notAnchored(t *testing.T) {
	repo := newStubRepo()
	rec := &model.LogRecord{ID: uuid.New(), Hash: "h", AnchorStatus: model.AnchorStatusPending}
	repo.records[rec.ID] = rec
	l := &stubLedger{verifyErr: errors.New("must not be called")}
	svc := newService(repo, l, &stubDispatcher{})

	v, err := svc.Verify(context.Background(), rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if v.IsValid || v.Message != model.MsgNotAnchored {
		t.Errorf("got %+v", v)
	}
}

func TestVerify_ledgerErrorIsNotAVerdict(t *testing.T) {
	repo := newStubRepo()
	rec := anchored(repo, "h", "bad")
	svc := newService(repo, &stubLedger{verifyErr: &ledger.VerifyError{Reference: "bad", Err: ledger.ErrInvalidReference}}, &stubDispatcher{})

	v, err := svc.Verify(context.Background(), rec.ID)
	var ve *ledger.VerifyError
	if !errors.As(err, &ve) {
		t.Fatalf("expected VerifyError, got %v (verdict %+v)", err, v)
	}
}

func TestVerify_plainLedgerErrorIsWrapped(t *testing.T) {
	repo := newStubRepo()
	rec := anchored(repo, "h", "ref")
	svc := newService(repo, &stubLedger{verifyErr: errors.New("timeout")}, &stubDispatcher{})

	_, err := svc.Verify(context.Background(), rec.ID)
	var ve *ledger.VerifyError
	if !errors.As(err, &ve) || ve.Reference != "ref" {
		t.Fatalf("expected VerifyError for ref, got %v", err)
	}
}

func TestVerify_notFound(t *testing.T) {
	svc := newService(newStubRepo(), &stubLedger{}, &stubDispatcher{})
	_, err := svc.Verify(context.Background(), uuid.New())
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ── Query / Stats / Sweep ────────────────────────────────────────────────

func TestQuery_normalizesPagination(t *testing.T) {
	repo := newStubRepo()
	svc := newService(repo, &stubLedger{}, &stubDispatcher{})

	page, err := svc.Query(context.Background(), model.QueryFilter{Limit: 5000, Offset: -3})
	if err != nil {
		t.Fatal(err)
	}
	if page.Limit != 1000 || page.Offset != 0 {
		t.Errorf("page limit/offset = %d/%d", page.Limit, page.Offset)
	}
	if repo.lastFilter.Limit != 1000 {
		t.Errorf("repo saw limit %d", repo.lastFilter.Limit)
	}
}

func TestQuery_rejectsInvertedRange(t *testing.T) {
	svc := newService(newStubRepo(), &stubLedger{}, &stubDispatcher{})
	from := time.Now()
	to := from.Add(-time.Hour)

	_, err := svc.Query(context.Background(), model.QueryFilter{From: &from, To: &to})
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestStats(t *testing.T) {
	repo := newStubRepo()
	repo.counts = map[model.AnchorStatus]int64{
		model.AnchorStatusPending:   2,
		model.AnchorStatusConfirmed: 5,
		model.AnchorStatusFailed:    1,
	}
	svc := newService(repo, &stubLedger{}, &stubDispatcher{})

	st, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalLogs != 8 || st.PendingLogs != 2 || st.ConfirmedLogs != 5 || st.FailedLogs != 1 {
		t.Errorf("stats = %+v", st)
	}
	if st.LedgerAccount != "payer-address" || st.LedgerDriver != "chain" {
		t.Errorf("ledger identity = %q / %q", st.LedgerAccount, st.LedgerDriver)
	}
	if st.LedgerBalance == nil || *st.LedgerBalance != 42 {
		t.Errorf("balance = %v", st.LedgerBalance)
	}
}

func TestStats_balanceUnavailable(t *testing.T) {
	repo := newStubRepo()
	repo.counts = map[model.AnchorStatus]int64{}
	svc := newService(repo, &stubLedger{balanceErr: errors.New("rpc down")}, &stubDispatcher{})

	st, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.LedgerBalance != nil {
		t.Error("balance should be omitted when the ledger fails")
	}
}

func TestSweep(t *testing.T) {
	repo := newStubRepo()
	svc := newService(repo, &stubLedger{}, &stubDispatcher{})

	n, err := svc.Sweep(context.Background(), 30)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 || repo.sweptDays != 30 {
		t.Errorf("Sweep = %d (days %d)", n, repo.sweptDays)
	}

	if _, err := svc.Sweep(context.Background(), 0); err == nil {
		t.Error("expected validation error for days=0")
	}
}
