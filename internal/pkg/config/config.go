package config

import (
	"strconv"
	"time"

	"github.com/preppilot/PrepPilot/internal/pkg/env"
)

// Config carries everything the automation subsystems need from the
// environment. It is built once in main and injected into constructors so
// handlers never read env vars ad hoc.
type Config struct {
	AppHost string
	AppPort string

	// InternalToken guards the operator endpoints (scheduler run, dispatch).
	InternalToken string

	Scheduler SchedulerConfig
	Webhook   WebhookConfig
}

// SchedulerConfig controls the daily task generator and its daemon.
type SchedulerConfig struct {
	// Workers bounds how many users are processed concurrently.
	Workers int
	// RunHour is the local hour of day after which the daemon fires.
	RunHour int
	// PollInterval is how often the daemon checks whether it is due.
	PollInterval time.Duration
}

// WebhookConfig controls delivery retries and timeouts.
type WebhookConfig struct {
	MaxAttempts    int
	BackoffBase    time.Duration
	AttemptTimeout time.Duration
	OverallTimeout time.Duration
}

// Load builds the configuration from the process environment.
func Load() Config {
	return Config{
		AppHost:       env.GetEnv("APP_HOST", "localhost"),
		AppPort:       env.GetEnv("APP_PORT", "4000"),
		InternalToken: env.GetEnv("INTERNAL_API_TOKEN", ""),
		Scheduler: SchedulerConfig{
			Workers:      envInt("SCHEDULER_WORKERS", 4),
			RunHour:      envInt("SCHEDULER_RUN_HOUR", 4),
			PollInterval: envDuration("SCHEDULER_POLL_INTERVAL", 15*time.Minute),
		},
		Webhook: WebhookConfig{
			MaxAttempts:    envInt("WEBHOOK_MAX_ATTEMPTS", 3),
			BackoffBase:    envDuration("WEBHOOK_BACKOFF_BASE", time.Second),
			AttemptTimeout: envDuration("WEBHOOK_ATTEMPT_TIMEOUT", 5*time.Second),
			OverallTimeout: envDuration("WEBHOOK_OVERALL_TIMEOUT", 30*time.Second),
		},
	}
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(env.GetEnv(key, "")); err == nil {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(env.GetEnv(key, "")); err == nil {
		return v
	}
	return def
}
