package repository

import (
	"context"
	"time"

	"github.com/preppilot/PrepPilot/app/models"
	"gorm.io/gorm"
)

// questionRepository implements the QuestionRepository interface
type questionRepository struct {
	db *gorm.DB
}

// NewQuestionRepository creates a new question repository instance
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

// GetByID retrieves a question by its ID
func (r *questionRepository) GetByID(id string) (*models.Question, error) {
	var question models.Question
	err := r.db.Where("id = ?", id).First(&question).Error
	if err != nil {
		return nil, err
	}
	return &question, nil
}

// GetDueByUser returns questions whose next_due date has arrived for the user.
func (r *questionRepository) GetDueByUser(ctx context.Context, userID string, due time.Time) ([]models.Question, error) {
	var questions []models.Question
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND next_due IS NOT NULL AND next_due <= ?", userID, due.Format("2006-01-02")).
		Order("next_due ASC").
		Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// CountDueByUser counts due questions without loading them.
func (r *questionRepository) CountDueByUser(ctx context.Context, userID string, due time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Question{}).
		Where("user_id = ? AND next_due IS NOT NULL AND next_due <= ?", userID, due.Format("2006-01-02")).
		Count(&count).Error
	return count, err
}
