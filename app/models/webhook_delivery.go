package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MaxResponseBodyLen caps the stored response body of a delivery attempt.
const MaxResponseBodyLen = 1000

// WebhookDelivery is the append-only audit trail of webhook dispatches.
// Exactly one row is written per subscription per Dispatch call; status and
// body reflect the last attempt, attempts the number actually made.
type WebhookDelivery struct {
	ID             string         `gorm:"type:char(36);primaryKey" json:"id"`
	SubscriptionID string         `gorm:"type:char(36);index;not null" json:"subscription_id"`
	EventType      string         `gorm:"type:varchar(100);not null;index" json:"event_type"`
	Payload        datatypes.JSON `gorm:"type:json" json:"payload"`
	ResponseStatus int            `gorm:"default:0" json:"response_status"`
	ResponseBody   string         `gorm:"type:text" json:"response_body"`
	Attempts       int            `gorm:"default:0" json:"attempts"`
	IsSuccessful   bool           `gorm:"default:false;index" json:"is_successful"`
	LastAttemptAt  *time.Time     `json:"last_attempt_at"`
	CreatedAt      time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

func (d *WebhookDelivery) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// TruncateResponseBody trims body to the persisted limit.
func TruncateResponseBody(body string) string {
	if len(body) <= MaxResponseBodyLen {
		return body
	}
	return body[:MaxResponseBodyLen]
}
