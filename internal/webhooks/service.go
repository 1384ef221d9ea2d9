package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmerrifield20/anchorlog/internal/auditlog/model"
	"go.uber.org/zap"
)

// SignatureHeader carries the HMAC-SHA256 of the request body.
const SignatureHeader = "X-Anchorlog-Signature"

const storeTimeout = 10 * time.Second

// store is the persistence the Service needs. *Repository satisfies it.
type store interface {
	Create(ctx context.Context, sub *Subscription) error
	List(ctx context.Context) ([]*Subscription, error)
	ListByEvent(ctx context.Context, eventType string) ([]*Subscription, error)
	Delete(ctx context.Context, id uuid.UUID) error
	RecordDelivery(ctx context.Context, d *Delivery, event Event) error
}

// MetricsRecorder is an optional callback for recording delivery outcomes.
type MetricsRecorder func(success bool)

// Service manages subscriptions and fans out anchoring events.
type Service struct {
	repo        store
	httpClient  *http.Client
	retryDelays []time.Duration
	onMetrics   MetricsRecorder
	logger      *zap.Logger
	wg          sync.WaitGroup
}

// NewService creates a new webhook Service.
func NewService(repo store, logger *zap.Logger) *Service {
	return &Service{
		repo:        repo,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		retryDelays: []time.Duration{1 * time.Second, 5 * time.Second},
		onMetrics:   func(bool) {},
		logger:      logger,
	}
}

// SetMetricsRecorder configures the metrics callback.
func (s *Service) SetMetricsRecorder(fn MetricsRecorder) {
	s.onMetrics = fn
}

// Subscribe creates a new subscription with a generated HMAC secret.
func (s *Service) Subscribe(ctx context.Context, req *CreateSubscriptionRequest) (*Subscription, error) {
	for _, e := range req.Events {
		if !ValidEvent(e) {
			return nil, &model.ValidationError{Msg: fmt.Sprintf("unknown event type %q", e)}
		}
	}
	secret, err := generateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	sub := &Subscription{URL: req.URL, Events: req.Events, Secret: secret}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Unsubscribe deletes a subscription.
func (s *Service) Unsubscribe(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// List returns all subscriptions.
func (s *Service) List(ctx context.Context) ([]*Subscription, error) {
	return s.repo.List(ctx)
}

// AnchorSettled maps a settled record onto an event and dispatches it.
func (s *Service) AnchorSettled(rec *model.LogRecord) {
	eventType := EventLogAnchored
	if rec.AnchorStatus == model.AnchorStatusFailed {
		eventType = EventLogAnchorFailed
	}
	payload := map[string]string{
		"log_id":        rec.ID.String(),
		"event_type":    rec.EventType,
		"severity":      rec.Severity,
		"hash":          rec.Hash,
		"anchor_status": string(rec.AnchorStatus),
	}
	if rec.LedgerReference != nil {
		payload["ledger_reference"] = *rec.LedgerReference
	}
	s.Dispatch(eventType, payload)
}

// Dispatch fans out an event to all matching subscriptions. Deliveries run
// in the background.
func (s *Service) Dispatch(eventType string, payload map[string]string) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	subs, err := s.repo.ListByEvent(ctx, eventType)
	cancel()
	if err != nil {
		s.logger.Error("webhook: list subscribers", zap.Error(err))
		return
	}

	event := Event{Type: eventType, Timestamp: time.Now().UTC(), Payload: payload}
	for _, sub := range subs {
		s.wg.Add(1)
		go func(sub *Subscription) {
			defer s.wg.Done()
			s.deliver(sub, event)
		}(sub)
	}
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// deliver sends the event to a single subscription, retrying after each
// configured delay.
func (s *Service) deliver(sub *Subscription, event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("webhook: marshal event", zap.Error(err))
		return
	}
	signature := SignPayload(body, sub.Secret)

	attempts := len(s.retryDelays) + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			time.Sleep(s.retryDelays[attempt-2])
		}

		success, statusCode, errMsg := s.doDelivery(sub.URL, body, signature)

		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		d := &Delivery{
			SubscriptionID: sub.ID,
			EventType:      event.Type,
			StatusCode:     statusCode,
			Attempt:        attempt,
			Success:        success,
			ErrorMessage:   errMsg,
		}
		if recordErr := s.repo.RecordDelivery(ctx, d, event); recordErr != nil {
			s.logger.Warn("webhook: record delivery", zap.Error(recordErr))
		}
		cancel()

		s.onMetrics(success)
		if success {
			return
		}

		s.logger.Warn("webhook: delivery failed",
			zap.String("url", sub.URL),
			zap.Int("attempt", attempt),
			zap.String("error", errMsg),
		)
	}
}

// doDelivery performs a single HTTP POST delivery.
func (s *Service) doDelivery(url string, body []byte, signature string) (bool, int, string) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, 0, err.Error()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, signature)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, 0, err.Error()
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024)) //nolint:errcheck

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	errMsg := ""
	if !success {
		errMsg = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return success, resp.StatusCode, errMsg
}

// SignPayload computes the signature header value for body.
func SignPayload(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// generateSecret creates a random 32-byte hex-encoded secret.
func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
