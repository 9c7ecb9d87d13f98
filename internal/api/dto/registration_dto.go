package dto

import (
	"time"

	"github.com/ciepi/portal-service/internal/domain"
)

// RegisterRequest is the citizen self-registration payload.
type RegisterRequest struct {
	Cedula         string  `json:"cedula"`
	Email          string  `json:"email"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Phone          *string `json:"phone,omitempty"`
	CapacitacionID *string `json:"capacitacion_id,omitempty"`
}

// RegistrantView is the client-facing registrant snapshot.
type RegistrantView struct {
	ID         string                  `json:"id"`
	Cedula     string                  `json:"cedula"`
	FirstName  string                  `json:"first_name"`
	LastName   string                  `json:"last_name"`
	Email      string                  `json:"email"`
	Status     domain.RegistrantStatus `json:"status"`
	VerifiedAt *time.Time              `json:"verified_at,omitempty"`
}

// NewRegistrantView maps the domain registrant.
func NewRegistrantView(registrant *domain.Registrant) *RegistrantView {
	if registrant == nil {
		return nil
	}
	return &RegistrantView{
		ID:         registrant.ID,
		Cedula:     registrant.Cedula,
		FirstName:  registrant.FirstName,
		LastName:   registrant.LastName,
		Email:      registrant.Email,
		Status:     registrant.Status,
		VerifiedAt: registrant.VerifiedAt,
	}
}
