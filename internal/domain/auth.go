package domain

import "time"

// Token represents issued authentication token metadata for staff sessions.
type Token struct {
	ID        string
	SubjectID string
	Role      StaffRole
	ExpiresAt time.Time
	IssuedAt  time.Time
}
