package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/preppilot/PrepPilot/internal/pkg/cache"
	"github.com/preppilot/PrepPilot/internal/pkg/config"
)

const (
	dailyLockKeyPrefix = "scheduler:daily:"
	dailyLockTTL       = 24 * time.Hour
	runTimeout         = 10 * time.Minute
)

// Daemon triggers the daily sweep in-process. It polls on an interval and
// fires once per calendar date after the configured hour; a Redis SETNX lock
// keyed by date keeps multiple replicas from running the same day twice.
// Idempotency does not depend on the lock, it only avoids wasted work.
type Daemon struct {
	gen     *Generator
	cfg     config.SchedulerConfig
	acquire func(key string, ttl time.Duration) (bool, error)
	now     func() time.Time

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewDaemon creates a daemon around the generator.
func NewDaemon(gen *Generator, cfg config.SchedulerConfig) *Daemon {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Minute
	}
	return &Daemon{
		gen:     gen,
		cfg:     cfg,
		acquire: cache.AcquireLock,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
}

// Start launches the polling loop.
func (d *Daemon) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}
	d.running = true
	log.Infof("[Scheduler] daemon starting (run hour %d, poll every %s)", d.cfg.RunHour, d.cfg.PollInterval)

	d.wg.Add(1)
	go d.loop()
}

// Stop halts the polling loop and waits for an in-flight sweep to finish.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return
	}
	log.Info("[Scheduler] daemon stopping...")
	close(d.stopCh)
	d.running = false
	d.wg.Wait()
	log.Info("[Scheduler] daemon stopped")
}

func (d *Daemon) loop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			d.maybeRun()
		}
	}
}

// maybeRun fires the sweep when the run hour has passed and this replica
// wins the per-date lock.
func (d *Daemon) maybeRun() {
	now := d.now()
	if now.Hour() < d.cfg.RunHour {
		return
	}

	key := dailyLockKeyPrefix + now.Format("2006-01-02")
	won, err := d.acquire(key, dailyLockTTL)
	if err != nil {
		log.Errorf("[Scheduler] daily lock for %s: %v", key, err)
		return
	}
	if !won {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	result, err := d.gen.Run(ctx, now)
	if err != nil {
		log.Errorf("[Scheduler] daily run failed: %v", err)
		return
	}
	log.Infof("[Scheduler] daily run done: %d tasks created", result.TasksCreated)
}
