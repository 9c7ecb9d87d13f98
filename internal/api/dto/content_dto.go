package dto

import "time"

// CapacitacionRequest payload for course create/update.
type CapacitacionRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Modality    string    `json:"modality"`
	Location    *string   `json:"location,omitempty"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Capacity    int       `json:"capacity"`
	Status      string    `json:"status,omitempty"`
}

// BlogPostRequest payload for post creation.
type BlogPostRequest struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Body    string `json:"body"`
}

// EventRequest payload for event create/update.
type EventRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	Published   bool       `json:"published"`
}

// ContactRequest is the public contact form payload.
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
