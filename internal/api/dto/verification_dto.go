package dto

import (
	"time"

	"github.com/ciepi/portal-service/internal/domain"
)

// IssueTokenRequest payload for POST /api/verificacion.
type IssueTokenRequest struct {
	SubjectID  string               `json:"subject_id"`
	Purpose    domain.TokenPurpose  `json:"purpose"`
	Metadata   domain.TokenMetadata `json:"metadata"`
	TTLMinutes int                  `json:"ttl_minutes,omitempty"`
}

// IssueTokenResponse is returned by issue and resend.
type IssueTokenResponse struct {
	Token          string    `json:"token"`
	ContactAddress string    `json:"contact_address"`
	ExpiresAt      time.Time `json:"expires_at"`
	TTLMinutes     int       `json:"ttl_minutes"`
	EmailSent      bool      `json:"email_sent"`
}

// TokenStatusResponse is the polling payload.
type TokenStatusResponse struct {
	Exists  bool   `json:"exists"`
	Used    bool   `json:"used"`
	Expired bool   `json:"expired"`
	State   string `json:"state"`
}

// ResendRequest payload for POST /api/verificacion/reenviar. Either a
// prior token or an explicit subject/purpose/metadata triple.
type ResendRequest struct {
	Token      string               `json:"token,omitempty"`
	SubjectID  string               `json:"subject_id,omitempty"`
	Purpose    domain.TokenPurpose  `json:"purpose,omitempty"`
	Metadata   domain.TokenMetadata `json:"metadata,omitempty"`
	TTLMinutes int                  `json:"ttl_minutes,omitempty"`
}

// ConsumeResponse summarizes a successful confirmation.
type ConsumeResponse struct {
	Purpose    domain.TokenPurpose `json:"purpose"`
	Registrant *RegistrantView     `json:"registrant,omitempty"`
	Enrollment *EnrollmentView     `json:"enrollment,omitempty"`
	NewEmail   *string             `json:"new_email,omitempty"`
}

// EnrollmentView is the client-facing enrollment snapshot.
type EnrollmentView struct {
	ID             string    `json:"id"`
	CapacitacionID string    `json:"capacitacion_id"`
	CreatedAt      time.Time `json:"created_at"`
}
