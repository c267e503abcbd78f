package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/preppilot/PrepPilot/app/repository"
	apiv1 "github.com/preppilot/PrepPilot/internal/api/v1"
	"github.com/preppilot/PrepPilot/internal/pkg/cache"
	"github.com/preppilot/PrepPilot/internal/pkg/config"
	"github.com/preppilot/PrepPilot/internal/pkg/database"
	"github.com/preppilot/PrepPilot/internal/pkg/env"
	"github.com/preppilot/PrepPilot/internal/pkg/router"
	"github.com/preppilot/PrepPilot/internal/pkg/rpc"
	"github.com/preppilot/PrepPilot/internal/pkg/scheduler"
	"github.com/preppilot/PrepPilot/internal/pkg/security"
	"github.com/preppilot/PrepPilot/internal/pkg/webhook"
)

func main() {
	app, daemon := NewApplication()
	daemon.Start()

	// Stop the daemon cleanly on shutdown so an in-flight sweep can finish.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		daemon.Stop()
		_ = app.Shutdown()
	}()

	cfg := config.Load()
	if err := app.Listen(fmt.Sprintf("%s:%s", cfg.AppHost, cfg.AppPort)); err != nil {
		log.Fatal(err)
	}
}

func NewApplication() (*fiber.App, *scheduler.Daemon) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	cfg := config.Load()
	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalRepositories()

	dispatcher := webhook.NewDispatcher(
		repos.Webhook,
		repos.Webhook,
		security.NewHMACSigner(),
		security.NewUUIDTokenSource(),
		cfg.Webhook,
	)
	generator := scheduler.NewGenerator(
		repos.User,
		repos.Question,
		repos.Recording,
		repos.Chapter,
		repos.ScheduleTask,
		dispatcher,
		cfg.Scheduler.Workers,
	)
	daemon := scheduler.NewDaemon(generator, cfg.Scheduler)
	registry := rpc.NewRegistry(repos.ScheduleTask, repos.Question, repos.Recording, repos.AuditLog)

	app := fiber.New(fiber.Config{
		AppName: "PrepPilot Automation API",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "admin"),
		},
	}), monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app, router.Dependencies{
		Server: apiv1.NewAPIServer(generator, dispatcher, registry),
		Keys:   repos.ApiKey,
		Config: cfg,
	})

	return app, daemon
}
