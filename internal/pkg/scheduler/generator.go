package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/preppilot/PrepPilot/app/models"
	"github.com/preppilot/PrepPilot/internal/pkg/webhook"
)

// UserStore lists the users to sweep.
type UserStore interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// QuestionStore reads due revision questions.
type QuestionStore interface {
	GetDueByUser(ctx context.Context, userID string, due time.Time) ([]models.Question, error)
}

// RecordingStore reads recordings still pending for a day.
type RecordingStore interface {
	GetPendingByUser(ctx context.Context, userID string, day time.Time) ([]models.Recording, error)
}

// ChapterStore resolves chapter names for recording task titles.
type ChapterStore interface {
	NameByID(ctx context.Context, id string) (string, error)
}

// TaskStore creates tasks idempotently and reports what already exists.
type TaskStore interface {
	CreateIfAbsent(ctx context.Context, task *models.ScheduleTask) (bool, error)
	ReferenceIDs(ctx context.Context, userID string, day time.Time, taskType string) (map[string]struct{}, error)
}

// EventEmitter decouples task durability from notification delivery. The
// webhook dispatcher satisfies it.
type EventEmitter interface {
	Dispatch(ctx context.Context, eventType, userID string, data map[string]any) ([]webhook.DeliveryReport, error)
}

// UserError records one user whose sweep failed; the rest of the run is
// unaffected.
type UserError struct {
	UserID string `json:"user_id"`
	Err    error  `json:"-"`
}

func (e UserError) Error() string {
	return fmt.Sprintf("user %s: %v", e.UserID, e.Err)
}

// Result is the aggregate outcome of one generator run.
type Result struct {
	Date         time.Time   `json:"date"`
	TasksCreated int         `json:"tasks_created"`
	UserErrors   []UserError `json:"user_errors,omitempty"`
}

// Generator derives today's to-do list from due-state. Re-running it for the
// same date creates nothing new: task creation is an upsert-or-ignore on the
// (user, date, type, reference) key.
type Generator struct {
	users      UserStore
	questions  QuestionStore
	recordings RecordingStore
	chapters   ChapterStore
	tasks      TaskStore
	emitter    EventEmitter
	workers    int
}

// NewGenerator wires a generator. workers bounds per-user concurrency;
// emitter may be nil to disable event notification.
func NewGenerator(users UserStore, questions QuestionStore, recordings RecordingStore, chapters ChapterStore, tasks TaskStore, emitter EventEmitter, workers int) *Generator {
	if workers <= 0 {
		workers = 4
	}
	return &Generator{
		users:      users,
		questions:  questions,
		recordings: recordings,
		chapters:   chapters,
		tasks:      tasks,
		emitter:    emitter,
		workers:    workers,
	}
}

// Run sweeps every user once for the given date. Users are independent: a
// failure for one user is collected in the result and the sweep continues.
func (g *Generator) Run(ctx context.Context, today time.Time) (Result, error) {
	today = DateOnly(today)
	result := Result{Date: today}

	ids, err := g.users.ListIDs(ctx)
	if err != nil {
		return result, fmt.Errorf("list users: %w", err)
	}
	log.Infof("[Scheduler] daily sweep for %s over %d users", today.Format("2006-01-02"), len(ids))

	sem := make(chan struct{}, g.workers)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(userID string) {
			defer wg.Done()
			defer func() { <-sem }()

			created, err := g.processUser(ctx, userID, today)
			mu.Lock()
			result.TasksCreated += created
			if err != nil {
				result.UserErrors = append(result.UserErrors, UserError{UserID: userID, Err: err})
			}
			mu.Unlock()
			if err != nil {
				log.Errorf("[Scheduler] user %s skipped: %v", userID, err)
			}
		}(id)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return result, err
	}
	log.Infof("[Scheduler] sweep complete: %d tasks created, %d users failed", result.TasksCreated, len(result.UserErrors))
	return result, nil
}

// processUser creates the user's missing tasks for today and returns how
// many were actually inserted. Tasks already created before an error are
// counted; the error marks the user as partially processed.
func (g *Generator) processUser(ctx context.Context, userID string, today time.Time) (int, error) {
	created, err := g.questionTasks(ctx, userID, today)
	if err != nil {
		return created, err
	}

	recCreated, err := g.recordingTasks(ctx, userID, today)
	created += recCreated
	return created, err
}

func (g *Generator) questionTasks(ctx context.Context, userID string, today time.Time) (int, error) {
	due, err := g.questions.GetDueByUser(ctx, userID, today)
	if err != nil {
		return 0, fmt.Errorf("fetch due questions: %w", err)
	}
	existing, err := g.tasks.ReferenceIDs(ctx, userID, today, models.TASK_TYPE_REVISION_QUESTION)
	if err != nil {
		return 0, fmt.Errorf("fetch existing question tasks: %w", err)
	}

	created := 0
	for _, q := range due {
		if _, ok := existing[q.ID]; ok {
			continue
		}
		task := &models.ScheduleTask{
			UserID:        userID,
			TaskType:      models.TASK_TYPE_REVISION_QUESTION,
			TaskDate:      today,
			ReferenceID:   q.ID,
			ReferenceType: models.REFERENCE_TYPE_QUESTION,
			Title:         models.TaskTitle(q.Content),
			Description:   fmt.Sprintf("%d★ question due for revision", q.Stars),
		}
		inserted, err := g.tasks.CreateIfAbsent(ctx, task)
		if err != nil {
			return created, fmt.Errorf("create question task: %w", err)
		}
		if !inserted {
			continue
		}
		created++
		g.emit(ctx, userID, map[string]any{
			"task_type":   models.TASK_TYPE_REVISION_QUESTION,
			"question_id": q.ID,
		})
	}
	return created, nil
}

func (g *Generator) recordingTasks(ctx context.Context, userID string, today time.Time) (int, error) {
	pending, err := g.recordings.GetPendingByUser(ctx, userID, today)
	if err != nil {
		return 0, fmt.Errorf("fetch pending recordings: %w", err)
	}
	existing, err := g.tasks.ReferenceIDs(ctx, userID, today, models.TASK_TYPE_REVISION_RECORDING)
	if err != nil {
		return 0, fmt.Errorf("fetch existing recording tasks: %w", err)
	}

	created := 0
	for _, rec := range pending {
		if _, ok := existing[rec.ChapterID]; ok {
			continue
		}
		chapterName, err := g.chapters.NameByID(ctx, rec.ChapterID)
		if err != nil {
			// A missing chapter must not abort the sweep.
			log.Warnf("[Scheduler] chapter lookup for %s failed: %v", rec.ChapterID, err)
			chapterName = "Unknown chapter"
		}
		task := &models.ScheduleTask{
			UserID:        userID,
			TaskType:      models.TASK_TYPE_REVISION_RECORDING,
			TaskDate:      today,
			ReferenceID:   rec.ChapterID,
			ReferenceType: models.REFERENCE_TYPE_CHAPTER,
			Title:         "Record revision: " + chapterName,
			Description:   "Complete your revision recording for this chapter",
		}
		inserted, err := g.tasks.CreateIfAbsent(ctx, task)
		if err != nil {
			return created, fmt.Errorf("create recording task: %w", err)
		}
		if !inserted {
			continue
		}
		created++
		g.emit(ctx, userID, map[string]any{
			"task_type":  models.TASK_TYPE_REVISION_RECORDING,
			"chapter_id": rec.ChapterID,
		})
	}
	return created, nil
}

// emit notifies subscribers about a created task. The task is already
// durable; notification is best-effort and never rolls it back.
func (g *Generator) emit(ctx context.Context, userID string, data map[string]any) {
	if g.emitter == nil {
		return
	}
	if _, err := g.emitter.Dispatch(ctx, models.EVENT_TASK_CREATED, userID, data); err != nil {
		log.Errorf("[Scheduler] webhook emit for user %s failed: %v", userID, err)
	}
}

// DateOnly truncates a timestamp to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
