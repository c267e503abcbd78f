package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/preppilot/PrepPilot/app/models"
	"github.com/preppilot/PrepPilot/internal/pkg/usercontext"
)

// ApiKeyStore resolves and touches automation API keys.
type ApiKeyStore interface {
	FindActive(ctx context.Context, keyHash, keyPrefix string) (*models.ApiKey, error)
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
}

// Every authentication failure gets the same 401 body so the response never
// reveals whether a key exists, is inactive, or has expired.
const authFailedMessage = "Invalid or missing API key"

// APIKeyAuthMiddleware authenticates automation requests carrying a
// jee_-prefixed API key and stashes the resolved caller context.
func APIKeyAuthMiddleware(keys ApiKeyStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rawKey := extractAPIKeyFromHeader(c)
		if rawKey == "" || !strings.HasPrefix(rawKey, models.APIKeyPrefix) {
			return unauthorized(c)
		}
		if len(rawKey) < models.APIKeyPrefixLen {
			return unauthorized(c)
		}

		hash := models.HashAPIKey(rawKey)
		prefix := rawKey[:models.APIKeyPrefixLen]

		key, err := keys.FindActive(c.Context(), hash, prefix)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Errorf("api key lookup failed: %v", err)
			}
			return unauthorized(c)
		}
		if key.IsExpired(time.Now()) {
			return unauthorized(c)
		}

		// Refresh last-used timestamp best-effort.
		if err := keys.TouchLastUsed(c.Context(), key.ID, time.Now()); err != nil {
			log.Warnf("failed to update api key usage timestamp for key %s: %v", key.ID, err)
		}

		c.Locals(usercontext.ContextKey, usercontext.AutomationContext{
			UserID:     key.UserID,
			KeyID:      key.ID,
			KeyName:    key.Name,
			IsReadOnly: key.IsReadOnly,
		})
		c.Locals(usercontext.KeyUserID, key.UserID)
		c.Locals(usercontext.KeyKeyID, key.ID)

		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": authFailedMessage})
}

func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	apiKey := strings.TrimSpace(c.Get("X-API-Key"))
	if apiKey != "" {
		return apiKey
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
