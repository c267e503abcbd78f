package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TASK_TYPE_NEW_CHAPTER        = "new_chapter"
	TASK_TYPE_LECTURE            = "lecture"
	TASK_TYPE_REVISION_QUESTION  = "revision_question"
	TASK_TYPE_REVISION_RECORDING = "revision_recording"
	TASK_TYPE_WEEKLY_TEST        = "weekly_test"

	REFERENCE_TYPE_QUESTION = "question"
	REFERENCE_TYPE_CHAPTER  = "chapter"
)

// ScheduleTask is one item on a user's daily to-do list. The unique index on
// (user_id, task_date, task_type, reference_id) is the idempotency key: the
// daily generator inserts with ON CONFLICT DO NOTHING so re-runs and
// concurrent runs never create duplicates.
type ScheduleTask struct {
	ID            string     `gorm:"type:char(36);primaryKey" json:"id"`
	UserID        string     `gorm:"type:char(36);not null;uniqueIndex:ux_schedule_tasks_identity,priority:1" json:"user_id"`
	TaskType      string     `gorm:"type:varchar(30);not null;uniqueIndex:ux_schedule_tasks_identity,priority:3" json:"task_type" validate:"oneof=new_chapter lecture revision_question revision_recording weekly_test"`
	TaskDate      time.Time  `gorm:"type:date;not null;uniqueIndex:ux_schedule_tasks_identity,priority:2;index" json:"task_date"`
	ReferenceID   string     `gorm:"type:char(36);not null;default:'';uniqueIndex:ux_schedule_tasks_identity,priority:4" json:"reference_id"`
	ReferenceType string     `gorm:"type:varchar(30)" json:"reference_type"`
	Title         string     `gorm:"type:varchar(255);not null" json:"title" validate:"required,max=255"`
	Description   string     `gorm:"type:text" json:"description"`
	IsCompleted   bool       `gorm:"default:false" json:"is_completed"`
	CompletedAt   *time.Time `json:"completed_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *ScheduleTask) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

func (t *ScheduleTask) Validate() error {
	v := validator.New()

	return v.Struct(t)
}

// TaskTitle builds the display title for a question-revision task. Long
// question content is cut at 50 characters with an ellipsis.
func TaskTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= 50 {
		return "Review: " + content
	}
	return "Review: " + string(runes[:50]) + "..."
}
