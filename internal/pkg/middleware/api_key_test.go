package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/preppilot/PrepPilot/app/models"
	"github.com/preppilot/PrepPilot/internal/pkg/usercontext"
)

type fakeApiKeyStore struct {
	mu      sync.Mutex
	keys    map[string]*models.ApiKey // keyed by hash
	err     error
	touched []string
}

func (f *fakeApiKeyStore) FindActive(ctx context.Context, keyHash, keyPrefix string) (*models.ApiKey, error) {
	if f.err != nil {
		return nil, f.err
	}
	key, ok := f.keys[keyHash]
	if !ok || key.KeyPrefix != keyPrefix {
		return nil, gorm.ErrRecordNotFound
	}
	return key, nil
}

func (f *fakeApiKeyStore) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, id)
	return nil
}

func newAuthTestApp(store *fakeApiKeyStore) *fiber.App {
	app := fiber.New()
	app.Get("/protected", APIKeyAuthMiddleware(store), func(c *fiber.Ctx) error {
		ac, ok := usercontext.GetAutomationContext(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(ac)
	})
	return app
}

func storeWithKey(key *models.ApiKey, rawKey string) *fakeApiKeyStore {
	return &fakeApiKeyStore{keys: map[string]*models.ApiKey{
		models.HashAPIKey(rawKey): key,
	}}
}

func TestAPIKeyAuthAcceptsValidKey(t *testing.T) {
	rawKey, prefix, hash, err := models.GenerateAPIKeyMaterial()
	require.NoError(t, err)

	key := &models.ApiKey{
		ID:         "key-1",
		UserID:     "user-1",
		Name:       "n8n integration",
		KeyHash:    hash,
		KeyPrefix:  prefix,
		IsReadOnly: true,
		IsActive:   true,
	}
	store := storeWithKey(key, rawKey)
	app := newAuthTestApp(store)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("X-API-Key", rawKey)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var ac usercontext.AutomationContext
	body, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(body, &ac))
	assert.Equal(t, "user-1", ac.UserID)
	assert.Equal(t, "key-1", ac.KeyID)
	assert.Equal(t, "n8n integration", ac.KeyName)
	assert.True(t, ac.IsReadOnly)

	assert.Equal(t, []string{"key-1"}, store.touched)
}

func TestAPIKeyAuthAcceptsBearerHeader(t *testing.T) {
	rawKey, prefix, hash, err := models.GenerateAPIKeyMaterial()
	require.NoError(t, err)

	key := &models.ApiKey{ID: "key-1", UserID: "user-1", KeyHash: hash, KeyPrefix: prefix, IsActive: true}
	app := newAuthTestApp(storeWithKey(key, rawKey))

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+rawKey)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAPIKeyAuthRejectsUniformly(t *testing.T) {
	rawKey, prefix, hash, err := models.GenerateAPIKeyMaterial()
	require.NoError(t, err)

	expired := time.Now().Add(-time.Hour)
	expiredKey := &models.ApiKey{ID: "key-1", UserID: "user-1", KeyHash: hash, KeyPrefix: prefix, IsActive: true, ExpiresAt: &expired}
	store := storeWithKey(expiredKey, rawKey)

	tests := []struct {
		name  string
		build func() (header, value string)
	}{
		{name: "missing header", build: func() (string, string) { return "", "" }},
		{name: "wrong prefix", build: func() (string, string) { return "X-API-Key", "sk_notoursformat" }},
		{name: "unknown key", build: func() (string, string) { return "X-API-Key", "jee_aaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" }},
		{name: "expired key", build: func() (string, string) { return "X-API-Key", rawKey }},
		{name: "non-bearer authorization", build: func() (string, string) { return "Authorization", "Basic dXNlcjpwYXNz" }},
	}

	app := newAuthTestApp(store)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/protected", nil)
			if header, value := tc.build(); header != "" {
				req.Header.Set(header, value)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

			// Identical body for every failure mode.
			body, _ := io.ReadAll(resp.Body)
			assert.JSONEq(t, `{"error":"Invalid or missing API key"}`, string(body))
		})
	}
}

func TestAPIKeyAuthLookupFailure(t *testing.T) {
	store := &fakeApiKeyStore{err: gorm.ErrInvalidDB}
	app := newAuthTestApp(store)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("X-API-Key", "jee_aaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	resp, err := app.Test(req)
	require.NoError(t, err)

	// Backend trouble is still a 401 to the caller, never a hint.
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, store.touched)
}
