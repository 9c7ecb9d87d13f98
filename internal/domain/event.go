package domain

import "time"

// Event is a public listing entry (talks, fairs, open houses).
type Event struct {
	ID          string
	Title       string
	Description string
	Location    string
	StartsAt    time.Time
	EndsAt      *time.Time
	Published   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
