package domain

import (
	"errors"
	"time"
)

// TokenPurpose classifies why a verification token was issued.
type TokenPurpose string

const (
	PurposeRegistration TokenPurpose = "registration"
	PurposeRecovery     TokenPurpose = "recovery"
	PurposeEmailChange  TokenPurpose = "email_change"
)

// ValidPurpose reports whether p is a known purpose.
func ValidPurpose(p TokenPurpose) bool {
	switch p {
	case PurposeRegistration, PurposeRecovery, PurposeEmailChange:
		return true
	}
	return false
}

// InvalidityReason explains why a token is not consumable.
type InvalidityReason string

const (
	ReasonNotFound    InvalidityReason = "not_found"
	ReasonExpired     InvalidityReason = "expired"
	ReasonAlreadyUsed InvalidityReason = "already_used"
	ReasonSuperseded  InvalidityReason = "superseded"
)

// TokenMetadata carries the purpose-specific payload of a token.
// Which fields are meaningful depends on the purpose.
type TokenMetadata struct {
	CapacitacionID *string `json:"capacitacion_id,omitempty"`
	NewAddress     *string `json:"new_address,omitempty"`
}

// ValidateFor checks the metadata shape required by the given purpose.
func (m TokenMetadata) ValidateFor(purpose TokenPurpose) error {
	switch purpose {
	case PurposeEmailChange:
		if m.NewAddress == nil || *m.NewAddress == "" {
			return errors.New("email_change requires new_address metadata")
		}
	case PurposeRegistration, PurposeRecovery:
		if m.NewAddress != nil {
			return errors.New("new_address metadata only valid for email_change")
		}
	}
	return nil
}

// VerificationToken is a single-use, time-limited credential sent to a
// contact address to prove the registrant controls it.
type VerificationToken struct {
	ID             string
	Token          string
	SubjectID      string
	Purpose        TokenPurpose
	ContactAddress string
	Metadata       TokenMetadata
	CreatedAt      time.Time
	ExpiresAt      time.Time
	UsedAt         *time.Time
	SupersededAt   *time.Time
	IssuingIP      *string
	UsedFromIP     *string
}

// Active reports whether the token is still consumable at now.
func (t *VerificationToken) Active(now time.Time) bool {
	return t.UsedAt == nil && t.SupersededAt == nil && now.Before(t.ExpiresAt)
}

// Invalidity returns the reason the token cannot be consumed at now, or ""
// when the token is active. Used-at wins over expiry so a consumed token
// keeps reporting already_used after its TTL elapses.
func (t *VerificationToken) Invalidity(now time.Time) InvalidityReason {
	switch {
	case t.UsedAt != nil:
		return ReasonAlreadyUsed
	case t.SupersededAt != nil:
		return ReasonSuperseded
	case !now.Before(t.ExpiresAt):
		return ReasonExpired
	}
	return ""
}
