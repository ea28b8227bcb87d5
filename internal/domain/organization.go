package domain

import (
	"time"
)

// Organization represents a tenant organization
type Organization struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	ContactEmail string    `json:"contact_email"`
	CreatedAt    time.Time `json:"created_at"`
}

// OrganizationCreate represents organization creation data
type OrganizationCreate struct {
	Name         string `json:"name" validate:"required,max=100"`
	Slug         string `json:"slug" validate:"required,max=50,lowercase"`
	ContactEmail string `json:"contact_email" validate:"required,email"`
}

// OrganizationMember represents organization membership
type OrganizationMember struct {
	UserID         int64     `json:"user_id"`
	OrganizationID int64     `json:"organization_id"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

// Role constants
const (
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)
