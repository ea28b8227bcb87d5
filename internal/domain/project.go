package domain

import (
	"time"
)

// Project statuses
const (
	ProjectStatusActive    = "ACTIVE"
	ProjectStatusCompleted = "COMPLETED"
	ProjectStatusOnHold    = "ON_HOLD"
)

// Project represents a project within an organization
type Project struct {
	ID             int64      `json:"id"`
	OrganizationID int64      `json:"-"`
	Name           string     `json:"name"`
	Slug           string     `json:"slug"`
	Description    string     `json:"description"`
	Status         string     `json:"status"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ProjectCreate represents project creation data
type ProjectCreate struct {
	Name        string     `json:"name" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	Status      string     `json:"status" validate:"omitempty,oneof=ACTIVE COMPLETED ON_HOLD"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}
