package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInternalTestApp(token string) *fiber.App {
	app := fiber.New()
	app.Post("/internal", InternalAuthMiddleware(token), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestInternalAuth(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		sent       string
		wantStatus int
	}{
		{"valid token", "s3cret", "s3cret", fiber.StatusOK},
		{"wrong token", "s3cret", "guess", fiber.StatusUnauthorized},
		{"missing token", "s3cret", "", fiber.StatusUnauthorized},
		{"unconfigured disables endpoint", "", "anything", fiber.StatusServiceUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := newInternalTestApp(tc.configured)
			req := httptest.NewRequest("POST", "/internal", nil)
			if tc.sent != "" {
				req.Header.Set("X-Internal-Token", tc.sent)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, resp.StatusCode)
		})
	}
}
