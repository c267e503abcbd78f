package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestWebhookSubscriptionMatches(t *testing.T) {
	tests := []struct {
		name       string
		eventTypes string
		eventType  string
		expected   bool
	}{
		{"Empty filter receives everything", "", EVENT_LECTURE_CREATED, true},
		{"Empty array is a wildcard", "[]", EVENT_TASK_CREATED, true},
		{"Listed event matches", `["question.created"]`, EVENT_QUESTION_CREATED, true},
		{"Unlisted event filtered out", `["question.created"]`, EVENT_LECTURE_CREATED, false},
		{"Multiple filters", `["question.created","schedule_task.created"]`, EVENT_TASK_CREATED, true},
		{"Malformed filter degrades to wildcard", `not-json`, EVENT_TASK_CREATED, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := WebhookSubscription{EventTypes: datatypes.JSON(tt.eventTypes)}
			assert.Equal(t, tt.expected, sub.Matches(tt.eventType))
		})
	}
}
