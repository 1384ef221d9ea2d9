package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AnchorStatus is the ledger anchoring state of a log record.
type AnchorStatus string

const (
	AnchorStatusPending   AnchorStatus = "pending"
	AnchorStatusConfirmed AnchorStatus = "confirmed"
	AnchorStatusFailed    AnchorStatus = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s AnchorStatus) Terminal() bool {
	return s == AnchorStatusConfirmed || s == AnchorStatusFailed
}

// Valid reports whether s is one of the known statuses.
func (s AnchorStatus) Valid() bool {
	switch s {
	case AnchorStatusPending, AnchorStatusConfirmed, AnchorStatusFailed:
		return true
	}
	return false
}

// LogRecord is a persisted audit event together with its content digest and
// ledger anchoring state.
type LogRecord struct {
	ID              uuid.UUID       `json:"id"                         db:"id"`
	EventType       string          `json:"event_type"                 db:"event_type"`
	Severity        string          `json:"severity"                   db:"severity"`
	Data            json.RawMessage `json:"data"                       db:"data"`
	Hash            string          `json:"hash"                       db:"hash"`
	LedgerReference *string         `json:"ledger_reference,omitempty" db:"ledger_reference"`
	AnchorStatus    AnchorStatus    `json:"anchor_status"              db:"anchor_status"`
	CreatedAt       time.Time       `json:"created_at"                 db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"                 db:"updated_at"`
}

// CreateRequest is the payload for ingesting a new audit event.
type CreateRequest struct {
	EventType string          `json:"event_type" binding:"required,min=1,max=255"`
	Severity  string          `json:"severity"   binding:"required,min=1,max=50"`
	Data      json.RawMessage `json:"data"`
}

// CreateResponse is returned after a record has been persisted. The ledger
// reference is almost always absent because anchoring runs in the background.
type CreateResponse struct {
	ID              uuid.UUID    `json:"id"`
	Hash            string       `json:"hash"`
	LedgerReference *string      `json:"ledger_reference"`
	AnchorStatus    AnchorStatus `json:"anchor_status"`
	CreatedAt       time.Time    `json:"created_at"`
}

// NewCreateResponse projects a stored record onto the create response shape.
func NewCreateResponse(r *LogRecord) CreateResponse {
	return CreateResponse{
		ID:              r.ID,
		Hash:            r.Hash,
		LedgerReference: r.LedgerReference,
		AnchorStatus:    r.AnchorStatus,
		CreatedAt:       r.CreatedAt,
	}
}

// Query pagination bounds.
const (
	DefaultQueryLimit = 100
	MaxQueryLimit     = 1000
)

// QueryFilter selects a page of log records. Every field is optional; the
// supplied ones are combined with AND.
type QueryFilter struct {
	EventType *string
	Severity  *string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// Normalize applies the pagination defaults and clamps.
func (f QueryFilter) Normalize() QueryFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultQueryLimit
	}
	if f.Limit > MaxQueryLimit {
		f.Limit = MaxQueryLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// QueryParams binds the optional query-string filters of GET /logs.
type QueryParams struct {
	EventType string     `form:"event_type" binding:"omitempty,max=255"`
	Severity  string     `form:"severity"   binding:"omitempty,max=50"`
	From      *time.Time `form:"from"       time_format:"2006-01-02T15:04:05Z07:00"`
	To        *time.Time `form:"to"         time_format:"2006-01-02T15:04:05Z07:00"`
	Limit     int        `form:"limit"      binding:"omitempty,min=0"`
	Offset    int        `form:"offset"     binding:"omitempty,min=0"`
}

// Filter converts bound query parameters to a normalized QueryFilter.
func (p QueryParams) Filter() QueryFilter {
	f := QueryFilter{From: p.From, To: p.To, Limit: p.Limit, Offset: p.Offset}
	if p.EventType != "" {
		et := p.EventType
		f.EventType = &et
	}
	if p.Severity != "" {
		sev := p.Severity
		f.Severity = &sev
	}
	return f.Normalize()
}

// Page is a paginated list of records plus the unpaginated match count.
type Page struct {
	Data   []*LogRecord `json:"data"`
	Total  int64        `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// Verification is the outcome of checking a record against the ledger.
type Verification struct {
	LogID           uuid.UUID    `json:"log_id"`
	IsValid         bool         `json:"is_valid"`
	LocalHash       string       `json:"local_hash"`
	LedgerHash      *string      `json:"ledger_hash"`
	LedgerReference *string      `json:"ledger_reference"`
	AnchorStatus    AnchorStatus `json:"anchor_status"`
	Message         string       `json:"message"`
}

// Verification messages.
const (
	MsgNotAnchored  = "Log not yet anchored on ledger"
	MsgVerified     = "Log verified successfully"
	MsgHashMismatch = "Hash mismatch - data may have been tampered with"
	MsgNotOnLedger  = "Hash not found in ledger transaction"
)

// Stats summarises the store and the ledger submitter identity.
type Stats struct {
	TotalLogs     int64   `json:"total_logs"`
	PendingLogs   int64   `json:"pending_logs"`
	ConfirmedLogs int64   `json:"confirmed_logs"`
	FailedLogs    int64   `json:"failed_logs"`
	LedgerDriver  string  `json:"ledger_driver"`
	LedgerAccount string  `json:"ledger_account"`
	LedgerBalance *uint64 `json:"ledger_balance,omitempty"`
}

// Health is the composite liveness of the store and the ledger.
type Health struct {
	Status   string `json:"status"`
	Database bool   `json:"database"`
	Ledger   bool   `json:"ledger"`
	Version  string `json:"version"`
}

// Healthy reports whether both dependencies are reachable.
func (h Health) Healthy() bool { return h.Database && h.Ledger }
