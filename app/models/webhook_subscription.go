package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Webhook event types emitted by the CRUD layer and the daily scheduler.
const (
	EVENT_CHAPTER_CREATED       = "chapter.created"
	EVENT_CHAPTER_UPDATED       = "chapter.updated"
	EVENT_LECTURE_CREATED       = "lecture.created"
	EVENT_LECTURE_UPDATED       = "lecture.updated"
	EVENT_LECTURE_COMPLETED     = "lecture.completed"
	EVENT_QUESTION_CREATED      = "question.created"
	EVENT_QUESTION_UPDATED      = "question.updated"
	EVENT_QUESTION_SEEN         = "question.seen"
	EVENT_RECORDING_CREATED     = "recording.created"
	EVENT_RECORDING_MARKED_DONE = "recording.marked_done"
	EVENT_TASK_CREATED          = "schedule_task.created"
	EVENT_TASK_UPDATED          = "schedule_task.updated"
	EVENT_DAILY_AUDIT_SUMMARY   = "daily.audit_summary"
)

// WebhookSubscription is an endpoint a user registered to receive signed
// event notifications. An empty event_types array subscribes to every event.
// The secret is shared with the receiver and must never be logged in full.
type WebhookSubscription struct {
	ID         string         `gorm:"type:char(36);primaryKey" json:"id"`
	UserID     string         `gorm:"type:char(36);index;not null" json:"user_id"`
	Name       string         `gorm:"type:varchar(150);not null" json:"name"`
	URL        string         `gorm:"type:text;not null" json:"url"`
	SecretKey  string         `gorm:"type:varchar(255);not null" json:"-"`
	EventTypes datatypes.JSON `gorm:"type:json" json:"event_types"`
	IsActive   bool           `gorm:"default:true;index" json:"is_active"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *WebhookSubscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// EventTypeList decodes the JSON event filter column. A nil or empty result
// means the subscription is a wildcard.
func (s *WebhookSubscription) EventTypeList() []string {
	if len(s.EventTypes) == 0 {
		return nil
	}
	var types []string
	if err := json.Unmarshal(s.EventTypes, &types); err != nil {
		return nil
	}
	return types
}

// Matches reports whether this subscription should receive eventType.
func (s *WebhookSubscription) Matches(eventType string) bool {
	types := s.EventTypeList()
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == eventType {
			return true
		}
	}
	return false
}
