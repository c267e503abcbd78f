package repository

import (
	"context"
	"time"

	"github.com/preppilot/PrepPilot/app/models"
	"gorm.io/gorm"
)

// recordingRepository implements the RecordingRepository interface
type recordingRepository struct {
	db *gorm.DB
}

// NewRecordingRepository creates a new recording repository instance
func NewRecordingRepository(db *gorm.DB) RecordingRepository {
	return &recordingRepository{db: db}
}

// GetPendingByUser returns recordings scheduled for exactly day that are not
// yet done. The generator derives revision_recording tasks from these.
func (r *recordingRepository) GetPendingByUser(ctx context.Context, userID string, day time.Time) ([]models.Recording, error) {
	var recordings []models.Recording
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND scheduled_for = ? AND is_done = ?", userID, day.Format("2006-01-02"), false).
		Find(&recordings).Error
	if err != nil {
		return nil, err
	}
	return recordings, nil
}

// GetReadyByUser returns recordings marked done on or before day, for the
// get_recordings_ready RPC.
func (r *recordingRepository) GetReadyByUser(ctx context.Context, userID string, day time.Time) ([]models.Recording, error) {
	var recordings []models.Recording
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_done = ? AND scheduled_for <= ?", userID, true, day.Format("2006-01-02")).
		Order("marked_done_at DESC").
		Find(&recordings).Error
	if err != nil {
		return nil, err
	}
	return recordings, nil
}
