package repository

import (
	"context"

	"github.com/preppilot/PrepPilot/app/models"
	"gorm.io/gorm"
)

// chapterRepository implements the ChapterRepository interface
type chapterRepository struct {
	db *gorm.DB
}

// NewChapterRepository creates a new chapter repository instance
func NewChapterRepository(db *gorm.DB) ChapterRepository {
	return &chapterRepository{db: db}
}

// GetByID retrieves a chapter by its ID
func (r *chapterRepository) GetByID(ctx context.Context, id string) (*models.Chapter, error) {
	var chapter models.Chapter
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&chapter).Error
	if err != nil {
		return nil, err
	}
	return &chapter, nil
}

// NameByID resolves just the chapter name, for task titles.
func (r *chapterRepository) NameByID(ctx context.Context, id string) (string, error) {
	var names []string
	err := r.db.WithContext(ctx).Model(&models.Chapter{}).
		Where("id = ?", id).
		Limit(1).
		Pluck("name", &names).Error
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", gorm.ErrRecordNotFound
	}
	return names[0], nil
}
