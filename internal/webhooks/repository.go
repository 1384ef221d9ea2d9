package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a webhook subscription is not found.
var ErrNotFound = errors.New("webhook subscription not found")

const subscriptionColumns = `id, url, events, secret, active, created_at`

// Repository provides persistence for webhook subscriptions and deliveries.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new webhook Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a new subscription, assigning its id and timestamps.
func (r *Repository) Create(ctx context.Context, sub *Subscription) error {
	sub.ID = uuid.New()
	sub.CreatedAt = time.Now().UTC()
	sub.Active = true

	_, err := r.db.Exec(ctx,
		`INSERT INTO webhook_subscriptions (`+subscriptionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		sub.ID, sub.URL, sub.Events, sub.Secret, sub.Active, sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

// List returns every subscription, newest first.
func (r *Repository) List(ctx context.Context) ([]*Subscription, error) {
	return r.list(ctx,
		`SELECT `+subscriptionColumns+` FROM webhook_subscriptions ORDER BY created_at DESC`)
}

// ListByEvent returns all active subscriptions listening for eventType.
func (r *Repository) ListByEvent(ctx context.Context, eventType string) ([]*Subscription, error) {
	return r.list(ctx,
		`SELECT `+subscriptionColumns+` FROM webhook_subscriptions
		 WHERE active = true AND $1 = ANY(events)
		 ORDER BY created_at`, eventType)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]*Subscription, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Delete removes a subscription.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM webhook_subscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordDelivery stores one delivery attempt together with the event body.
func (r *Repository) RecordDelivery(ctx context.Context, d *Delivery, event Event) error {
	d.ID = uuid.New()
	d.DeliveredAt = time.Now().UTC()

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO webhook_deliveries
		   (id, subscription_id, event_type, payload, status_code, attempt, success, error_message, delivered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.SubscriptionID, d.EventType, payload,
		d.StatusCode, d.Attempt, d.Success, d.ErrorMessage, d.DeliveredAt,
	)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var sub Subscription
	if err := row.Scan(&sub.ID, &sub.URL, &sub.Events, &sub.Secret, &sub.Active, &sub.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	return &sub, nil
}
