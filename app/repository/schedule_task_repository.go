package repository

import (
	"context"
	"time"

	"github.com/preppilot/PrepPilot/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// scheduleTaskRepository implements the ScheduleTaskRepository interface
type scheduleTaskRepository struct {
	db *gorm.DB
}

// NewScheduleTaskRepository creates a new schedule task repository instance
func NewScheduleTaskRepository(db *gorm.DB) ScheduleTaskRepository {
	return &scheduleTaskRepository{db: db}
}

// CreateIfAbsent inserts the task unless a row with the same
// (user_id, task_date, task_type, reference_id) already exists. Returns true
// when a row was actually inserted. This is what makes generator re-runs and
// concurrent runs idempotent.
func (r *scheduleTaskRepository) CreateIfAbsent(ctx context.Context, task *models.ScheduleTask) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(task)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetByUserAndDate returns the user's tasks for one day.
func (r *scheduleTaskRepository) GetByUserAndDate(ctx context.Context, userID string, day time.Time) ([]models.ScheduleTask, error) {
	var tasks []models.ScheduleTask
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND task_date = ?", userID, day.Format("2006-01-02")).
		Order("created_at ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// ReferenceIDs returns the set of reference ids already scheduled for the
// user, day and task type.
func (r *scheduleTaskRepository) ReferenceIDs(ctx context.Context, userID string, day time.Time, taskType string) (map[string]struct{}, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.ScheduleTask{}).
		Where("user_id = ? AND task_date = ? AND task_type = ?", userID, day.Format("2006-01-02"), taskType).
		Pluck("reference_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// GetChangedSince returns tasks updated at or after since, for the
// get_changes_since RPC.
func (r *scheduleTaskRepository) GetChangedSince(ctx context.Context, userID string, since time.Time) ([]models.ScheduleTask, error) {
	var tasks []models.ScheduleTask
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND updated_at >= ?", userID, since).
		Order("updated_at ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}
