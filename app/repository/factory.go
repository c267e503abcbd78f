package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetUserRepository returns the user repository instance
func (f *Factory) GetUserRepository() UserRepository {
	return f.GetRepositories().User
}

// GetQuestionRepository returns the question repository instance
func (f *Factory) GetQuestionRepository() QuestionRepository {
	return f.GetRepositories().Question
}

// GetChapterRepository returns the chapter repository instance
func (f *Factory) GetChapterRepository() ChapterRepository {
	return f.GetRepositories().Chapter
}

// GetRecordingRepository returns the recording repository instance
func (f *Factory) GetRecordingRepository() RecordingRepository {
	return f.GetRepositories().Recording
}

// GetScheduleTaskRepository returns the schedule task repository instance
func (f *Factory) GetScheduleTaskRepository() ScheduleTaskRepository {
	return f.GetRepositories().ScheduleTask
}

// GetWebhookRepository returns the webhook repository instance
func (f *Factory) GetWebhookRepository() WebhookRepository {
	return f.GetRepositories().Webhook
}

// GetApiKeyRepository returns the API key repository instance
func (f *Factory) GetApiKeyRepository() ApiKeyRepository {
	return f.GetRepositories().ApiKey
}

// GetAuditLogRepository returns the audit log repository instance
func (f *Factory) GetAuditLogRepository() AuditLogRepository {
	return f.GetRepositories().AuditLog
}

// Global factory instance
var globalFactory *Factory
var factoryOnce sync.Once

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the global repository factory instance
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("Repository factory not initialized. Call InitializeFactory first.")
	}
	return globalFactory
}

// GetGlobalRepositories returns the global repositories instance
func GetGlobalRepositories() *Repositories {
	return GetGlobalFactory().GetRepositories()
}
