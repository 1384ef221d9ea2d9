package webhooks

import (
	"time"

	"github.com/google/uuid"
)

// Event types dispatched when a record reaches a terminal anchor status.
const (
	EventLogAnchored     = "log.anchored"
	EventLogAnchorFailed = "log.anchor_failed"
)

// ValidEvent reports whether name is a known event type.
func ValidEvent(name string) bool {
	return name == EventLogAnchored || name == EventLogAnchorFailed
}

// Subscription is an operator-registered receiver of anchoring events.
type Subscription struct {
	ID        uuid.UUID `json:"id"         db:"id"`
	URL       string    `json:"url"        db:"url"`
	Events    []string  `json:"events"     db:"events"`
	Secret    string    `json:"-"          db:"secret"` // never returned in API responses
	Active    bool      `json:"active"     db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Wants reports whether the subscription listens for eventType.
func (s *Subscription) Wants(eventType string) bool {
	for _, e := range s.Events {
		if e == eventType {
			return true
		}
	}
	return false
}

// Event is the JSON body POSTed to subscribers.
type Event struct {
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   map[string]string `json:"payload"`
}

// Delivery records the outcome of a single delivery attempt.
type Delivery struct {
	ID             uuid.UUID `json:"id"              db:"id"`
	SubscriptionID uuid.UUID `json:"subscription_id" db:"subscription_id"`
	EventType      string    `json:"event_type"      db:"event_type"`
	StatusCode     int       `json:"status_code"     db:"status_code"`
	Attempt        int       `json:"attempt"         db:"attempt"`
	Success        bool      `json:"success"         db:"success"`
	ErrorMessage   string    `json:"error_message"   db:"error_message"`
	DeliveredAt    time.Time `json:"delivered_at"    db:"delivered_at"`
}

// CreateSubscriptionRequest is the payload for creating a subscription.
type CreateSubscriptionRequest struct {
	URL    string   `json:"url"    binding:"required,url"`
	Events []string `json:"events" binding:"required,min=1,dive,oneof=log.anchored log.anchor_failed"`
}
