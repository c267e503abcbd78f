package usercontext

import "github.com/gofiber/fiber/v2"

// AutomationContext is the resolved caller identity for an API-key request.
type AutomationContext struct {
	UserID     string `json:"user_id"`
	KeyID      string `json:"key_id"`
	KeyName    string `json:"key_name"`
	IsReadOnly bool   `json:"is_read_only"`
}

// Shared Locals keys used across handlers and middlewares
const (
	ContextKey = "AUTOMATION_CONTEXT"
	KeyUserID  = "user_id"
	KeyKeyID   = "api_key_id"
)

// GetAutomationContext retrieves the automation context from fiber context.
// The second return is false when the request was not API-key authenticated.
func GetAutomationContext(c *fiber.Ctx) (AutomationContext, bool) {
	if ctx := c.Locals(ContextKey); ctx != nil {
		ac, ok := ctx.(AutomationContext)
		return ac, ok
	}
	return AutomationContext{}, false
}

// GetUserID returns the authenticated caller's user id, or empty string.
func GetUserID(c *fiber.Ctx) string {
	ac, _ := GetAutomationContext(c)
	return ac.UserID
}
