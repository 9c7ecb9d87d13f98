package domain

import "time"

// CapacitacionStatus enumerates lifecycle states for a training course.
type CapacitacionStatus string

const (
	CapacitacionStatusDraft  CapacitacionStatus = "BORRADOR"
	CapacitacionStatusOpen   CapacitacionStatus = "ABIERTA"
	CapacitacionStatusClosed CapacitacionStatus = "CERRADA"
)

// Capacitacion is a training course offered through the portal.
type Capacitacion struct {
	ID          string
	Title       string
	Description string
	Modality    string
	Location    *string
	StartsAt    time.Time
	EndsAt      time.Time
	Capacity    int
	Status      CapacitacionStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
