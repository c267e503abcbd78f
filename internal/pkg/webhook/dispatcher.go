package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/datatypes"

	"github.com/preppilot/PrepPilot/app/models"
	"github.com/preppilot/PrepPilot/internal/pkg/config"
	"github.com/preppilot/PrepPilot/internal/pkg/security"
)

// SubscriptionStore resolves the active subscriptions of a user.
type SubscriptionStore interface {
	GetActiveSubscriptionsByUser(ctx context.Context, userID string) ([]models.WebhookSubscription, error)
}

// DeliveryStore appends delivery outcome rows.
type DeliveryStore interface {
	RecordDelivery(ctx context.Context, delivery *models.WebhookDelivery) error
}

const maxResponseRead = 64 * 1024

// Dispatcher fans a domain event out to every matching subscription, signing
// and POSTing the envelope with bounded retries, and records one delivery
// row per subscription per call.
type Dispatcher struct {
	subs       SubscriptionStore
	deliveries DeliveryStore
	signer     security.Signer
	tokens     security.TokenSource
	client     *http.Client
	cfg        config.WebhookConfig
	now        func() time.Time
}

// NewDispatcher wires a dispatcher. Zero-valued config fields fall back to
// production defaults.
func NewDispatcher(subs SubscriptionStore, deliveries DeliveryStore, signer security.Signer, tokens security.TokenSource, cfg config.WebhookConfig) *Dispatcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 5 * time.Second
	}
	if cfg.OverallTimeout <= 0 {
		cfg.OverallTimeout = 30 * time.Second
	}
	return &Dispatcher{
		subs:       subs,
		deliveries: deliveries,
		signer:     signer,
		tokens:     tokens,
		client:     &http.Client{Timeout: cfg.AttemptTimeout},
		cfg:        cfg,
		now:        time.Now,
	}
}

// Dispatch resolves matching active subscriptions for the user and delivers
// the event to each concurrently. Zero matching subscriptions is not an
// error; the returned slice is empty. Delivery failures show up in the
// reports, never as the returned error.
func (d *Dispatcher) Dispatch(ctx context.Context, eventType, userID string, data map[string]any) ([]DeliveryReport, error) {
	subs, err := d.subs.GetActiveSubscriptionsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	matching := make([]models.WebhookSubscription, 0, len(subs))
	for _, sub := range subs {
		if sub.Matches(eventType) {
			matching = append(matching, sub)
		}
	}
	if len(matching) == 0 {
		log.Infof("[Webhook] no matching subscriptions for %s (user %s)", eventType, userID)
		return []DeliveryReport{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.OverallTimeout)
	defer cancel()

	reports := make([]DeliveryReport, len(matching))
	var wg sync.WaitGroup
	for i := range matching {
		wg.Add(1)
		go func(i int, sub models.WebhookSubscription) {
			defer wg.Done()
			reports[i] = d.deliver(ctx, eventType, userID, sub, data)
		}(i, matching[i])
	}
	wg.Wait()

	return reports, nil
}

// deliver runs the retry loop for one subscription and records the outcome.
func (d *Dispatcher) deliver(ctx context.Context, eventType, userID string, sub models.WebhookSubscription, data map[string]any) DeliveryReport {
	report := DeliveryReport{SubscriptionID: sub.ID, SubscriptionName: sub.Name}

	envelope := Envelope{
		EventType: eventType,
		UserID:    userID,
		Timestamp: d.now().UTC().Format(time.RFC3339),
		WebhookID: d.tokens.WebhookID(),
		Data:      data,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		log.Errorf("[Webhook] marshal envelope for subscription %s: %v", sub.ID, err)
		return report
	}
	signature := d.signer.Sign(sub.SecretKey, payload)

	var (
		attempts   int
		lastStatus int
		lastBody   string
		success    bool
	)

retries:
	for attempt := 0; attempt < d.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 2^k * base before attempt k.
			delay := time.Duration(1<<uint(attempt)) * d.cfg.BackoffBase
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				log.Warnf("[Webhook] delivery to subscription %s canceled after %d attempts", sub.ID, attempts)
				break retries
			case <-timer.C:
			}
		}

		status, body, attemptErr := d.attempt(ctx, sub.URL, payload, signature, envelope)
		if attemptErr != nil && ctx.Err() != nil {
			// The attempt was cut off mid-flight; it never completed, so it
			// is not counted and retries stop here.
			break
		}
		attempts++

		if attemptErr != nil {
			// Network-level failure: status 0, error text as body, still
			// counts as one of the allowed attempts.
			lastStatus = 0
			lastBody = attemptErr.Error()
			log.Warnf("[Webhook] attempt %d to subscription %s failed: %v", attempts, sub.ID, attemptErr)
			continue
		}

		lastStatus = status
		lastBody = body
		if status >= 200 && status < 300 {
			success = true
			log.Infof("[Webhook] delivered %s to subscription %s (status %d, attempt %d)", eventType, sub.ID, status, attempts)
			break
		}
		log.Warnf("[Webhook] attempt %d to subscription %s returned status %d", attempts, sub.ID, status)
	}

	report.Success = success
	report.Status = lastStatus

	if attempts > 0 {
		d.record(sub.ID, eventType, payload, lastStatus, lastBody, attempts, success)
	}
	return report
}

// attempt performs a single signed POST.
func (d *Dispatcher) attempt(ctx context.Context, url string, payload []byte, signature string, envelope Envelope) (int, string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, d.cfg.AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, "sha256="+signature)
	req.Header.Set(HeaderWebhookID, envelope.WebhookID)
	req.Header.Set(HeaderEventType, envelope.EventType)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseRead))
	return resp.StatusCode, string(body), nil
}

// record writes the single audit row for this dispatch. It runs on a fresh
// context so a canceled caller does not lose the outcome of attempts that
// did complete.
func (d *Dispatcher) record(subscriptionID, eventType string, payload []byte, status int, body string, attempts int, success bool) {
	recordCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := d.now()
	delivery := &models.WebhookDelivery{
		SubscriptionID: subscriptionID,
		EventType:      eventType,
		Payload:        datatypes.JSON(payload),
		ResponseStatus: status,
		ResponseBody:   models.TruncateResponseBody(body),
		Attempts:       attempts,
		IsSuccessful:   success,
		LastAttemptAt:  &now,
	}
	if err := d.deliveries.RecordDelivery(recordCtx, delivery); err != nil {
		log.Errorf("[Webhook] record delivery for subscription %s: %v", subscriptionID, err)
	}
}
