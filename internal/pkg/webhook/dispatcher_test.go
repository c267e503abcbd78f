package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/preppilot/PrepPilot/app/models"
	"github.com/preppilot/PrepPilot/internal/pkg/config"
	"github.com/preppilot/PrepPilot/internal/pkg/security"
)

type fakeSubscriptionStore struct {
	subs []models.WebhookSubscription
	err  error
}

func (f *fakeSubscriptionStore) GetActiveSubscriptionsByUser(ctx context.Context, userID string) ([]models.WebhookSubscription, error) {
	return f.subs, f.err
}

type fakeDeliveryStore struct {
	mu   sync.Mutex
	rows []*models.WebhookDelivery
}

func (f *fakeDeliveryStore) RecordDelivery(ctx context.Context, delivery *models.WebhookDelivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, delivery)
	return nil
}

func (f *fakeDeliveryStore) all() []*models.WebhookDelivery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.WebhookDelivery(nil), f.rows...)
}

func testConfig() config.WebhookConfig {
	return config.WebhookConfig{
		MaxAttempts:    3,
		BackoffBase:    time.Millisecond,
		AttemptTimeout: 2 * time.Second,
		OverallTimeout: 5 * time.Second,
	}
}

func newTestDispatcher(subs []models.WebhookSubscription) (*Dispatcher, *fakeDeliveryStore) {
	deliveries := &fakeDeliveryStore{}
	d := NewDispatcher(
		&fakeSubscriptionStore{subs: subs},
		deliveries,
		security.NewHMACSigner(),
		security.NewUUIDTokenSource(),
		testConfig(),
	)
	return d, deliveries
}

func subscription(id, url, secret string, eventTypes string) models.WebhookSubscription {
	return models.WebhookSubscription{
		ID:         id,
		UserID:     "user-1",
		Name:       "sub " + id,
		URL:        url,
		SecretKey:  secret,
		EventTypes: datatypes.JSON(eventTypes),
		IsActive:   true,
	}
}

func TestDispatchDeliversSignedEnvelope(t *testing.T) {
	var (
		mu       sync.Mutex
		body     []byte
		headers  http.Header
		received int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		body = raw
		headers = r.Header.Clone()
		received++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d, deliveries := newTestDispatcher([]models.WebhookSubscription{
		subscription("sub-1", server.URL, "topsecret", ""),
	})

	reports, err := d.Dispatch(context.Background(), "schedule_task.created", "user-1", map[string]any{"task_type": "revision_question"})
	require.NoError(t, err)
	require.Len(t, reports, 1)

	assert.True(t, reports[0].Success)
	assert.Equal(t, http.StatusOK, reports[0].Status)
	assert.Equal(t, "sub-1", reports[0].SubscriptionID)
	assert.Equal(t, 1, received)

	// Signature verifies over exactly the raw bytes that arrived.
	sig := headers.Get(HeaderSignature)
	require.True(t, len(sig) > len("sha256="))
	assert.True(t, security.VerifySignature("topsecret", body, sig[len("sha256="):]))

	var envelope Envelope
	require.NoError(t, json.Unmarshal(body, &envelope))
	assert.Equal(t, "schedule_task.created", envelope.EventType)
	assert.Equal(t, "user-1", envelope.UserID)
	assert.NotEmpty(t, envelope.WebhookID)
	assert.Equal(t, envelope.WebhookID, headers.Get(HeaderWebhookID))
	assert.Equal(t, "schedule_task.created", headers.Get(HeaderEventType))
	_, err = time.Parse(time.RFC3339, envelope.Timestamp)
	assert.NoError(t, err)

	rows := deliveries.all()
	require.Len(t, rows, 1)
	assert.True(t, rows[0].IsSuccessful)
	assert.Equal(t, 1, rows[0].Attempts)
	assert.Equal(t, http.StatusOK, rows[0].ResponseStatus)
	assert.NotNil(t, rows[0].LastAttemptAt)
}

func TestDispatchRetriesUntilSuccess(t *testing.T) {
	var calls int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d, deliveries := newTestDispatcher([]models.WebhookSubscription{
		subscription("sub-1", server.URL, "s", ""),
	})

	reports, err := d.Dispatch(context.Background(), "question.created", "user-1", nil)
	require.NoError(t, err)
	require.Len(t, reports, 1)

	assert.True(t, reports[0].Success)
	assert.Equal(t, http.StatusOK, reports[0].Status)
	assert.Equal(t, 3, calls)

	rows := deliveries.all()
	require.Len(t, rows, 1)
	assert.True(t, rows[0].IsSuccessful)
	assert.Equal(t, 3, rows[0].Attempts)
	assert.Equal(t, http.StatusOK, rows[0].ResponseStatus)
}

func TestDispatchExhaustsRetries(t *testing.T) {
	var calls int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	d, deliveries := newTestDispatcher([]models.WebhookSubscription{
		subscription("sub-1", server.URL, "s", ""),
	})

	reports, err := d.Dispatch(context.Background(), "question.created", "user-1", nil)
	require.NoError(t, err)
	require.Len(t, reports, 1)

	assert.False(t, reports[0].Success)
	assert.Equal(t, http.StatusBadGateway, reports[0].Status)
	assert.Equal(t, 3, calls)

	rows := deliveries.all()
	require.Len(t, rows, 1)
	assert.False(t, rows[0].IsSuccessful)
	assert.Equal(t, 3, rows[0].Attempts)
	assert.Equal(t, http.StatusBadGateway, rows[0].ResponseStatus)
	assert.Contains(t, rows[0].ResponseBody, "nope")
}

func TestDispatchNetworkErrorCountsAsFailedAttempt(t *testing.T) {
	// A server that is already closed yields connection refused.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	d, deliveries := newTestDispatcher([]models.WebhookSubscription{
		subscription("sub-1", url, "s", ""),
	})

	reports, err := d.Dispatch(context.Background(), "question.created", "user-1", nil)
	require.NoError(t, err)
	require.Len(t, reports, 1)

	assert.False(t, reports[0].Success)
	assert.Equal(t, 0, reports[0].Status)

	rows := deliveries.all()
	require.Len(t, rows, 1)
	assert.False(t, rows[0].IsSuccessful)
	assert.Equal(t, 3, rows[0].Attempts)
	assert.Equal(t, 0, rows[0].ResponseStatus)
	assert.NotEmpty(t, rows[0].ResponseBody)
}

func TestDispatchFiltersByEventType(t *testing.T) {
	var mu sync.Mutex
	hits := map[string]int{}
	handler := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			hits[name]++
			mu.Unlock()
			w.WriteHeader(http.StatusOK)
		}
	}
	wildcard := httptest.NewServer(handler("wildcard"))
	defer wildcard.Close()
	filtered := httptest.NewServer(handler("filtered"))
	defer filtered.Close()

	d, deliveries := newTestDispatcher([]models.WebhookSubscription{
		subscription("sub-wild", wildcard.URL, "s1", "[]"),
		subscription("sub-filtered", filtered.URL, "s2", `["question.created"]`),
	})

	reports, err := d.Dispatch(context.Background(), "lecture.created", "user-1", nil)
	require.NoError(t, err)

	// Only the wildcard subscription matches lecture.created.
	require.Len(t, reports, 1)
	assert.Equal(t, "sub-wild", reports[0].SubscriptionID)
	assert.Equal(t, 1, hits["wildcard"])
	assert.Equal(t, 0, hits["filtered"])
	assert.Len(t, deliveries.all(), 1)

	reports, err = d.Dispatch(context.Background(), "question.created", "user-1", nil)
	require.NoError(t, err)
	assert.Len(t, reports, 2)
	assert.Equal(t, 1, hits["filtered"])
}

func TestDispatchNoMatchingSubscriptions(t *testing.T) {
	d, deliveries := newTestDispatcher(nil)

	reports, err := d.Dispatch(context.Background(), "question.created", "user-1", nil)
	require.NoError(t, err)
	assert.Empty(t, reports)
	assert.Empty(t, deliveries.all())
}

func TestDispatchSubscriptionLookupError(t *testing.T) {
	deliveries := &fakeDeliveryStore{}
	d := NewDispatcher(
		&fakeSubscriptionStore{err: assert.AnError},
		deliveries,
		security.NewHMACSigner(),
		security.NewUUIDTokenSource(),
		testConfig(),
	)

	_, err := d.Dispatch(context.Background(), "question.created", "user-1", nil)
	assert.Error(t, err)
	assert.Empty(t, deliveries.all())
}

func TestDispatchCanceledBeforeAnyAttempt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d, deliveries := newTestDispatcher([]models.WebhookSubscription{
		subscription("sub-1", server.URL, "s", ""),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports, err := d.Dispatch(ctx, "question.created", "user-1", nil)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.False(t, reports[0].Success)

	// No attempt completed, so nothing is recorded; the next invocation is
	// idempotent anyway.
	assert.Empty(t, deliveries.all())
}
