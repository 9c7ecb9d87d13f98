package domain

import "time"

// StaffRole enumerates internal operator roles.
type StaffRole string

const (
	StaffRoleEditor StaffRole = "EDITOR"
	StaffRoleAdmin  StaffRole = "ADMIN"
)

// StaffMember models an institute operator who manages portal content.
type StaffMember struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         StaffRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
