package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/preppilot/PrepPilot/app/models"
	"github.com/preppilot/PrepPilot/internal/pkg/scheduler"
)

// The fixed read-only allowlist exposed to API-key clients. This list is a
// public contract; it is disclosed in permission errors on purpose.
const (
	RPCTodaysTasks        = "get_todays_tasks"
	RPCDueQuestions       = "get_due_questions"
	RPCAuditState         = "get_audit_state"
	RPCChangesSince       = "get_changes_since"
	RPCRecordingsReady    = "get_recordings_ready"
	RPCDailyExpectedState = "get_daily_expected_state"
)

// ErrNotAllowed marks an rpc_name outside the allowlist.
var ErrNotAllowed = errors.New("rpc not in read-only allowlist")

// Params are the caller-supplied arguments plus the gateway-injected
// p_user_id.
type Params map[string]any

// TaskReader reads schedule tasks.
type TaskReader interface {
	GetByUserAndDate(ctx context.Context, userID string, day time.Time) ([]models.ScheduleTask, error)
	GetChangedSince(ctx context.Context, userID string, since time.Time) ([]models.ScheduleTask, error)
}

// QuestionReader reads due questions.
type QuestionReader interface {
	GetDueByUser(ctx context.Context, userID string, due time.Time) ([]models.Question, error)
	CountDueByUser(ctx context.Context, userID string, due time.Time) (int64, error)
}

// RecordingReader reads recordings.
type RecordingReader interface {
	GetPendingByUser(ctx context.Context, userID string, day time.Time) ([]models.Recording, error)
	GetReadyByUser(ctx context.Context, userID string, day time.Time) ([]models.Recording, error)
}

// AuditReader reads the audit trail.
type AuditReader interface {
	GetRecentByUser(ctx context.Context, userID string, limit int) ([]models.AuditLog, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
}

// Registry executes the allowlisted read operations. The original stored
// procedures are consumed only through their input/output contracts, so each
// is re-expressed here over the repositories.
type Registry struct {
	tasks      TaskReader
	questions  QuestionReader
	recordings RecordingReader
	audits     AuditReader
	now        func() time.Time
}

// NewRegistry wires the registry.
func NewRegistry(tasks TaskReader, questions QuestionReader, recordings RecordingReader, audits AuditReader) *Registry {
	return &Registry{
		tasks:      tasks,
		questions:  questions,
		recordings: recordings,
		audits:     audits,
		now:        time.Now,
	}
}

// AllowedFunctions returns the fixed allowlist in its published order.
func AllowedFunctions() []string {
	return []string{
		RPCTodaysTasks,
		RPCDueQuestions,
		RPCAuditState,
		RPCChangesSince,
		RPCRecordingsReady,
		RPCDailyExpectedState,
	}
}

// IsAllowed reports whether name is in the allowlist.
func IsAllowed(name string) bool {
	for _, fn := range AllowedFunctions() {
		if fn == name {
			return true
		}
	}
	return false
}

// Invoke runs one allowlisted operation. Any other name yields ErrNotAllowed;
// execution errors surface verbatim and are not retried.
func (r *Registry) Invoke(ctx context.Context, name string, p Params) (any, error) {
	userID, err := r.userID(p)
	if err != nil {
		return nil, err
	}

	switch name {
	case RPCTodaysTasks:
		return r.tasks.GetByUserAndDate(ctx, userID, r.date(p))
	case RPCDueQuestions:
		return r.questions.GetDueByUser(ctx, userID, r.date(p))
	case RPCAuditState:
		return r.auditState(ctx, userID, p)
	case RPCChangesSince:
		since, err := r.since(p)
		if err != nil {
			return nil, err
		}
		changed, err := r.tasks.GetChangedSince(ctx, userID, since)
		if err != nil {
			return nil, err
		}
		return map[string]any{"since": since.UTC().Format(time.RFC3339), "tasks": changed}, nil
	case RPCRecordingsReady:
		return r.recordings.GetReadyByUser(ctx, userID, r.date(p))
	case RPCDailyExpectedState:
		return r.dailyExpectedState(ctx, userID, p)
	default:
		return nil, ErrNotAllowed
	}
}

func (r *Registry) auditState(ctx context.Context, userID string, p Params) (any, error) {
	limit := 50
	if v, ok := p["p_limit"].(float64); ok && v > 0 {
		limit = int(v)
	}
	recent, err := r.audits.GetRecentByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	total, err := r.audits.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"total": total, "recent": recent}, nil
}

// dailyExpectedState summarizes what the day should look like: the tasks on
// the list plus the due-state they were derived from.
func (r *Registry) dailyExpectedState(ctx context.Context, userID string, p Params) (any, error) {
	day := r.date(p)

	tasks, err := r.tasks.GetByUserAndDate(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	dueCount, err := r.questions.CountDueByUser(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	pending, err := r.recordings.GetPendingByUser(ctx, userID, day)
	if err != nil {
		return nil, err
	}

	completed := 0
	for _, t := range tasks {
		if t.IsCompleted {
			completed++
		}
	}
	return map[string]any{
		"date":               day.Format("2006-01-02"),
		"tasks":              tasks,
		"tasks_completed":    completed,
		"due_questions":      dueCount,
		"pending_recordings": len(pending),
	}, nil
}

func (r *Registry) userID(p Params) (string, error) {
	id, ok := p["p_user_id"].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("missing p_user_id")
	}
	return id, nil
}

// date reads the optional p_date param (YYYY-MM-DD), defaulting to today.
func (r *Registry) date(p Params) time.Time {
	if raw, ok := p["p_date"].(string); ok && raw != "" {
		if day, err := time.Parse("2006-01-02", raw); err == nil {
			return day
		}
	}
	return scheduler.DateOnly(r.now())
}

func (r *Registry) since(p Params) (time.Time, error) {
	raw, ok := p["p_since"].(string)
	if !ok || raw == "" {
		return time.Time{}, fmt.Errorf("missing p_since")
	}
	since, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid p_since: %w", err)
	}
	return since, nil
}
