package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("log record not found")

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server error %d", e.StatusCode)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Is makes errors.Is(err, ErrNotFound) true for 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Log is a stored audit record.
type Log struct {
	ID              string          `json:"id"`
	EventType       string          `json:"event_type"`
	Severity        string          `json:"severity"`
	Data            json.RawMessage `json:"data"`
	Hash            string          `json:"hash"`
	LedgerReference *string         `json:"ledger_reference,omitempty"`
	AnchorStatus    string          `json:"anchor_status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Terminal reports whether the record can no longer change.
func (l *Log) Terminal() bool {
	return l.AnchorStatus == "confirmed" || l.AnchorStatus == "failed"
}

// CreateResult is returned by CreateLog.
type CreateResult struct {
	ID              string    `json:"id"`
	Hash            string    `json:"hash"`
	LedgerReference *string   `json:"ledger_reference"`
	AnchorStatus    string    `json:"anchor_status"`
	CreatedAt       time.Time `json:"created_at"`
}

// QueryOptions filters QueryLogs. Zero values are omitted.
type QueryOptions struct {
	EventType string
	Severity  string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

// Page is one page of QueryLogs results.
type Page struct {
	Data   []*Log `json:"data"`
	Total  int64  `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// Verification is the result of VerifyLog.
type Verification struct {
	LogID           string  `json:"log_id"`
	IsValid         bool    `json:"is_valid"`
	LocalHash       string  `json:"local_hash"`
	LedgerHash      *string `json:"ledger_hash"`
	LedgerReference *string `json:"ledger_reference"`
	AnchorStatus    string  `json:"anchor_status"`
	Message         string  `json:"message"`
}

// Stats summarises the store and the ledger account.
type Stats struct {
	TotalLogs     int64   `json:"total_logs"`
	PendingLogs   int64   `json:"pending_logs"`
	ConfirmedLogs int64   `json:"confirmed_logs"`
	FailedLogs    int64   `json:"failed_logs"`
	LedgerDriver  string  `json:"ledger_driver"`
	LedgerAccount string  `json:"ledger_account"`
	LedgerBalance *uint64 `json:"ledger_balance,omitempty"`
}

// Health is the service liveness report.
type Health struct {
	Status   string `json:"status"`
	Database bool   `json:"database"`
	Ledger   bool   `json:"ledger"`
	Version  string `json:"version"`
}

// Client is the anchorlog SDK entry point.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *logCache

	mu         sync.Mutex
	adminToken string
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		c.httpClient = &http.Client{Timeout: d}
		return nil
	}
}

// WithCacheTTL enables in-memory caching of terminal records by GetLog.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) error {
		c.cache = newLogCache(ttl)
		return nil
	}
}

// WithAdminToken attaches an admin JWT to admin requests.
func WithAdminToken(token string) Option {
	return func(c *Client) error {
		c.adminToken = token
		return nil
	}
}

// New creates a Client for the API served at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(baseURL string, opts ...Option) *Client {
	c, err := New(baseURL, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// SetAdminToken replaces the admin token used for admin requests.
func (c *Client) SetAdminToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adminToken = token
}

// CreateLog ingests an event. data may be any JSON-encodable value,
// including a json.RawMessage.
func (c *Client) CreateLog(ctx context.Context, eventType, severity string, data any) (*CreateResult, error) {
	body := map[string]any{"event_type": eventType, "severity": severity, "data": data}
	var out CreateResult
	if err := c.call(ctx, http.MethodPost, "/api/v1/logs", body, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLog fetches a record by ID.
func (c *Client) GetLog(ctx context.Context, id string) (*Log, error) {
	if c.cache != nil {
		if l, ok := c.cache.get(id); ok {
			return l, nil
		}
	}
	var out Log
	if err := c.call(ctx, http.MethodGet, "/api/v1/logs/"+url.PathEscape(id), nil, false, &out); err != nil {
		return nil, err
	}
	if c.cache != nil && out.Terminal() {
		c.cache.set(id, &out)
	}
	return &out, nil
}

// QueryLogs returns one page of records matching opts.
func (c *Client) QueryLogs(ctx context.Context, opts QueryOptions) (*Page, error) {
	q := url.Values{}
	if opts.EventType != "" {
		q.Set("event_type", opts.EventType)
	}
	if opts.Severity != "" {
		q.Set("severity", opts.Severity)
	}
	if !opts.From.IsZero() {
		q.Set("from", opts.From.UTC().Format(time.RFC3339))
	}
	if !opts.To.IsZero() {
		q.Set("to", opts.To.UTC().Format(time.RFC3339))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}

	path := "/api/v1/logs"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out Page
	if err := c.call(ctx, http.MethodGet, path, nil, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyLog checks a record against the ledger.
func (c *Client) VerifyLog(ctx context.Context, id string) (*Verification, error) {
	var out Verification
	if err := c.call(ctx, http.MethodGet, "/api/v1/logs/"+url.PathEscape(id)+"/verify", nil, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats returns record counts and the ledger account.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var out Stats
	if err := c.call(ctx, http.MethodGet, "/api/v1/stats", nil, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health returns the service liveness report.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.call(ctx, http.MethodGet, "/health", nil, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Sweep deletes records older than days days. It requires an admin token.
func (c *Client) Sweep(ctx context.Context, days int) (int64, error) {
	var out struct {
		Deleted int64 `json:"deleted"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/admin/retention/sweep", map[string]int{"days": days}, true, &out); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

func (c *Client) call(ctx context.Context, method, path string, in any, admin bool, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		c.mu.Lock()
		tok := c.adminToken
		c.mu.Unlock()
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	raw, err := c.do(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(body, apiErr)
		return nil, apiErr
	}
	return body, nil
}

// --- terminal record cache ---

type cacheEntry struct {
	log       *Log
	expiresAt time.Time
}

type logCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
}

func newLogCache(ttl time.Duration) *logCache {
	return &logCache{entries: make(map[string]*cacheEntry), ttl: ttl}
}

func (lc *logCache) get(id string) (*Log, bool) {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	e, ok := lc.entries[id]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.log, true
}

func (lc *logCache) set(id string, l *Log) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.entries[id] = &cacheEntry{log: l, expiresAt: time.Now().Add(lc.ttl)}
}
