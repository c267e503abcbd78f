package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chapter is a unit of study inside a subject. The task generator resolves
// chapter names for recording-revision task titles.
type Chapter struct {
	ID              string    `gorm:"type:char(36);primaryKey" json:"id"`
	UserID          string    `gorm:"type:char(36);index;not null" json:"user_id"`
	SubjectID       string    `gorm:"type:char(36);index;not null" json:"subject_id"`
	Name            string    `gorm:"type:varchar(200);not null" json:"name"`
	Description     string    `gorm:"type:text" json:"description"`
	LecturesTotal   int       `gorm:"default:0" json:"lectures_total"`
	LecturesDone    int       `gorm:"default:0" json:"lectures_done"`
	Priority        int       `gorm:"default:0" json:"priority"`
	IsCompleted     bool      `gorm:"default:false" json:"is_completed"`
	RecordingStatus string    `gorm:"type:varchar(30);default:'pending'" json:"recording_status"`
	RecordingURL    string    `gorm:"type:text" json:"recording_url"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Chapter) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
