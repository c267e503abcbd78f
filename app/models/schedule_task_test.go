package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskTitle(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{"Short content", "What is inertia?", "Review: What is inertia?"},
		{"Exactly 50 runes", strings.Repeat("a", 50), "Review: " + strings.Repeat("a", 50)},
		{"Long content", strings.Repeat("a", 51), "Review: " + strings.Repeat("a", 50) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TaskTitle(tt.content))
		})
	}
}

func TestScheduleTaskValidate(t *testing.T) {
	task := &ScheduleTask{
		UserID:   "u1",
		TaskType: TASK_TYPE_REVISION_QUESTION,
		Title:    "Review: something",
	}
	assert.NoError(t, task.Validate())

	task.TaskType = "homework"
	assert.Error(t, task.Validate())
}
