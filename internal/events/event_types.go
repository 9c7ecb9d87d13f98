package events

import (
	"time"

	"github.com/ciepi/portal-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTokenIssued        EventType = "token_issued"
	EventTokenConsumed      EventType = "token_consumed"
	EventRegistrantVerified EventType = "registrant_verified"
	EventEnrollmentCreated  EventType = "enrollment_created"
	EventContactReceived    EventType = "contact_received"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TokenIssuedPayload payload.
type TokenIssuedPayload struct {
	Purpose        domain.TokenPurpose `json:"purpose"`
	ContactAddress string              `json:"contact_address"`
	ExpiresAt      time.Time           `json:"expires_at"`
}

// TokenConsumedPayload payload.
type TokenConsumedPayload struct {
	Purpose    domain.TokenPurpose `json:"purpose"`
	UsedFromIP *string             `json:"used_from_ip,omitempty"`
}

// EnrollmentCreatedPayload payload.
type EnrollmentCreatedPayload struct {
	RegistrantID   string `json:"registrant_id"`
	CapacitacionID string `json:"capacitacion_id"`
}

// ContactReceivedPayload payload.
type ContactReceivedPayload struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
}
