package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Recording is a revision recording a user commits to produce for a chapter
// on a scheduled day.
type Recording struct {
	ID              string     `gorm:"type:char(36);primaryKey" json:"id"`
	ChapterID       string     `gorm:"type:char(36);index;not null" json:"chapter_id"`
	UserID          string     `gorm:"type:char(36);index;not null" json:"user_id"`
	FileURL         string     `gorm:"type:text" json:"file_url"`
	FileName        string     `gorm:"type:varchar(255)" json:"file_name"`
	DurationSeconds int        `gorm:"default:0" json:"duration_seconds"`
	IsDone          bool       `gorm:"default:false;index" json:"is_done"`
	MarkedDoneAt    *time.Time `json:"marked_done_at"`
	ScheduledFor    *time.Time `gorm:"type:date;index" json:"scheduled_for"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (r *Recording) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
