package domain

import "time"

// RegistrantStatus represents verification states for a citizen registrant.
type RegistrantStatus string

const (
	RegistrantStatusPending  RegistrantStatus = "PENDIENTE"
	RegistrantStatusVerified RegistrantStatus = "VERIFICADO"
)

// Registrant models a citizen who self-registered through the portal.
type Registrant struct {
	ID         string
	Cedula     string
	FirstName  string
	LastName   string
	Email      string
	Phone      *string
	Status     RegistrantStatus
	VerifiedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
