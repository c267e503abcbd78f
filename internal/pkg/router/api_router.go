package router

import (
	"net"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	apiv1 "github.com/preppilot/PrepPilot/internal/api/v1"
	"github.com/preppilot/PrepPilot/internal/pkg/cache"
	"github.com/preppilot/PrepPilot/internal/pkg/config"
	"github.com/preppilot/PrepPilot/internal/pkg/env"
	"github.com/preppilot/PrepPilot/internal/pkg/middleware"
)

// Dependencies carries the constructed subsystems into the router; nothing
// below reads env vars or globals ad hoc.
type Dependencies struct {
	Server *apiv1.APIServer
	Keys   middleware.ApiKeyStore
	Config config.Config
}

type ApiRouter struct {
	deps Dependencies
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}

func (h *ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Storage: newLimiterStorage(),
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")
	v1.Get("/ping", h.deps.Server.GetPing)

	// Operator endpoints behind the internal shared token.
	internal := middleware.InternalAuthMiddleware(h.deps.Config.InternalToken)
	v1.Post("/scheduler/run", internal, h.deps.Server.PostSchedulerRun)
	v1.Post("/webhooks/dispatch", internal, h.deps.Server.PostWebhookDispatch)

	// Third-party automation clients authenticate with an API key.
	v1.Post("/automation/rpc", middleware.APIKeyAuthMiddleware(h.deps.Keys), h.deps.Server.PostAutomationRPC)
}

// newLimiterStorage backs the rate limiter with Redis so limits hold across
// replicas. Connection settings come from the shared cache client.
func newLimiterStorage() *redis.Storage {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if client := cache.GetClient(); client != nil {
		addr := client.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := client.Options().Password; p != "" {
			password = p
		}
	}

	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1, // separate database from the cache
		Reset:    false,
	})
}
