package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SUBJECT_MATH      = "math"
	SUBJECT_PHYSICS   = "physics"
	SUBJECT_CHEMISTRY = "chemistry"
)

// Subject groups chapters (math, physics, chemistry).
type Subject struct {
	ID          string    `gorm:"type:char(36);primaryKey" json:"id"`
	UserID      string    `gorm:"type:char(36);index;not null" json:"user_id"`
	Name        string    `gorm:"type:varchar(150);not null" json:"name"`
	SubjectType string    `gorm:"type:varchar(20);not null" json:"subject_type" validate:"oneof=math physics chemistry"`
	Color       string    `gorm:"type:varchar(30)" json:"color"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (s *Subject) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
