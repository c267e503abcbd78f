package apiv1

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/preppilot/PrepPilot/internal/pkg/rpc"
	"github.com/preppilot/PrepPilot/internal/pkg/scheduler"
	"github.com/preppilot/PrepPilot/internal/pkg/usercontext"
	"github.com/preppilot/PrepPilot/internal/pkg/webhook"
)

// TaskGenerator runs the daily sweep.
type TaskGenerator interface {
	Run(ctx context.Context, today time.Time) (scheduler.Result, error)
}

// EventDispatcher fans an event out to webhook subscribers.
type EventDispatcher interface {
	Dispatch(ctx context.Context, eventType, userID string, data map[string]any) ([]webhook.DeliveryReport, error)
}

// RPCInvoker executes allowlisted read operations.
type RPCInvoker interface {
	Invoke(ctx context.Context, name string, p rpc.Params) (any, error)
}

// APIServer exposes the automation endpoints: the daily scheduler trigger,
// the webhook dispatch entrypoint, and the API-key-gated read RPC.
type APIServer struct {
	generator  TaskGenerator
	dispatcher EventDispatcher
	registry   RPCInvoker
	validate   *validator.Validate
}

// NewAPIServer creates a new API server instance
func NewAPIServer(generator TaskGenerator, dispatcher EventDispatcher, registry RPCInvoker) *APIServer {
	return &APIServer{
		generator:  generator,
		dispatcher: dispatcher,
		registry:   registry,
		validate:   validator.New(),
	}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ping": "pong"})
}

// PostSchedulerRun triggers the daily task generator. The optional ?date=
// query (YYYY-MM-DD) overrides today, mainly for backfills and tests.
func (s *APIServer) PostSchedulerRun(c *fiber.Ctx) error {
	today := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid date, expected YYYY-MM-DD"})
		}
		today = parsed
	}

	result, err := s.generator.Run(c.Context(), today)
	if err != nil {
		log.Errorf("scheduler run failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":       true,
		"date":          result.Date.Format("2006-01-02"),
		"tasks_created": result.TasksCreated,
		"users_failed":  len(result.UserErrors),
	})
}

// DispatchRequest is the body of the webhook dispatch endpoint.
type DispatchRequest struct {
	EventType string         `json:"event_type" validate:"required"`
	UserID    string         `json:"user_id" validate:"required"`
	Data      map[string]any `json:"data"`
}

// PostWebhookDispatch fans one domain event out to the caller-named user's
// matching subscriptions.
func (s *APIServer) PostWebhookDispatch(c *fiber.Ctx) error {
	var req DispatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body"})
	}
	if err := s.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing event_type or user_id"})
	}

	results, err := s.dispatcher.Dispatch(c.Context(), req.EventType, req.UserID, req.Data)
	if err != nil {
		log.Errorf("dispatch %s for user %s failed: %v", req.EventType, req.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	delivered := 0
	for _, r := range results {
		if r.Success {
			delivered++
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":   "Webhooks processed",
		"delivered": delivered,
		"total":     len(results),
		"results":   results,
	})
}

// RPCRequest is the body of the automation RPC endpoint.
type RPCRequest struct {
	RPCName string         `json:"rpc_name"`
	Params  map[string]any `json:"params"`
}

// PostAutomationRPC executes an allowlisted read operation on behalf of the
// API-key-authenticated caller. The caller's user id always overrides any
// p_user_id supplied in params.
func (s *APIServer) PostAutomationRPC(c *fiber.Ctx) error {
	ctx, ok := usercontext.GetAutomationContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or missing API key"})
	}

	var req RPCRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body"})
	}
	if req.RPCName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing rpc_name in request body"})
	}

	if !rpc.IsAllowed(req.RPCName) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":             "Access denied. This API key only allows read-only operations.",
			"allowed_functions": rpc.AllowedFunctions(),
		})
	}

	params := rpc.Params{}
	for k, v := range req.Params {
		params[k] = v
	}
	params["p_user_id"] = ctx.UserID

	data, err := s.registry.Invoke(c.Context(), req.RPCName, params)
	if err != nil {
		if errors.Is(err, rpc.ErrNotAllowed) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":             "Access denied. This API key only allows read-only operations.",
				"allowed_functions": rpc.AllowedFunctions(),
			})
		}
		log.Errorf("rpc %s for user %s failed: %v", req.RPCName, ctx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": data})
}
