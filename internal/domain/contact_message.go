package domain

import "time"

// ContactMessage is a public inquiry submitted through the contact form.
type ContactMessage struct {
	ID        string
	Name      string
	Email     string
	Subject   string
	Body      string
	CreatedAt time.Time
}
