package domain

import "time"

// Enrollment links a verified registrant to a capacitacion. Created exactly
// once per registration token consumption.
type Enrollment struct {
	ID             string
	RegistrantID   string
	CapacitacionID string
	CreatedAt      time.Time
}
