package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Question is a revision question with a spaced-repetition due date.
// Read-only to the automation layer; the UI owns seen-counts and scheduling.
type Question struct {
	ID         string         `gorm:"type:char(36);primaryKey" json:"id"`
	ChapterID  string         `gorm:"type:char(36);index;not null" json:"chapter_id"`
	UserID     string         `gorm:"type:char(36);index;not null" json:"user_id"`
	Content    string         `gorm:"type:text;not null" json:"content"`
	Stars      int            `gorm:"default:3" json:"stars" validate:"min=1,max=5"`
	Tags       datatypes.JSON `gorm:"type:json" json:"tags"`
	TimesSeen  int            `gorm:"default:0" json:"times_seen"`
	LastSeenAt *time.Time     `json:"last_seen_at"`
	NextDue    *time.Time     `gorm:"type:date;index" json:"next_due"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}
