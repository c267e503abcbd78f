package repository

import (
	"context"
	"time"

	"github.com/preppilot/PrepPilot/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	ListIDs(ctx context.Context) ([]string, error)
	Count() (int64, error)
}

// QuestionRepository defines read access to revision questions
type QuestionRepository interface {
	GetByID(id string) (*models.Question, error)
	GetDueByUser(ctx context.Context, userID string, due time.Time) ([]models.Question, error)
	CountDueByUser(ctx context.Context, userID string, due time.Time) (int64, error)
}

// ChapterRepository defines read access to chapters
type ChapterRepository interface {
	GetByID(ctx context.Context, id string) (*models.Chapter, error)
	NameByID(ctx context.Context, id string) (string, error)
}

// RecordingRepository defines read access to revision recordings
type RecordingRepository interface {
	GetPendingByUser(ctx context.Context, userID string, day time.Time) ([]models.Recording, error)
	GetReadyByUser(ctx context.Context, userID string, day time.Time) ([]models.Recording, error)
}

// ScheduleTaskRepository manages daily to-do items. CreateIfAbsent is the
// idempotent insert on the (user, date, type, reference) key.
type ScheduleTaskRepository interface {
	CreateIfAbsent(ctx context.Context, task *models.ScheduleTask) (bool, error)
	GetByUserAndDate(ctx context.Context, userID string, day time.Time) ([]models.ScheduleTask, error)
	ReferenceIDs(ctx context.Context, userID string, day time.Time, taskType string) (map[string]struct{}, error)
	GetChangedSince(ctx context.Context, userID string, since time.Time) ([]models.ScheduleTask, error)
}

// WebhookRepository covers subscriptions (read) and deliveries (append-only)
type WebhookRepository interface {
	GetActiveSubscriptionsByUser(ctx context.Context, userID string) ([]models.WebhookSubscription, error)
	RecordDelivery(ctx context.Context, delivery *models.WebhookDelivery) error
	GetDeliveriesBySubscription(ctx context.Context, subscriptionID string, limit int) ([]models.WebhookDelivery, error)
}

// ApiKeyRepository resolves and touches automation API keys
type ApiKeyRepository interface {
	FindActive(ctx context.Context, keyHash, keyPrefix string) (*models.ApiKey, error)
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
}

// AuditLogRepository exposes read-only audit state for the RPC layer
type AuditLogRepository interface {
	GetRecentByUser(ctx context.Context, userID string, limit int) ([]models.AuditLog, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
}

// Repositories contains all repository instances
type Repositories struct {
	User         UserRepository
	Question     QuestionRepository
	Chapter      ChapterRepository
	Recording    RecordingRepository
	ScheduleTask ScheduleTaskRepository
	Webhook      WebhookRepository
	ApiKey       ApiKeyRepository
	AuditLog     AuditLogRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Question:     NewQuestionRepository(db),
		Chapter:      NewChapterRepository(db),
		Recording:    NewRecordingRepository(db),
		ScheduleTask: NewScheduleTaskRepository(db),
		Webhook:      NewWebhookRepository(db),
		ApiKey:       NewApiKeyRepository(db),
		AuditLog:     NewAuditLogRepository(db),
	}
}
