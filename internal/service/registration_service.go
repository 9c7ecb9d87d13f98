package service

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ciepi/portal-service/internal/domain"
	"github.com/ciepi/portal-service/internal/lookup"
	"github.com/ciepi/portal-service/internal/repository"
	apperrors "github.com/ciepi/portal-service/pkg/util"
)

// RegistrationService coordinates citizen self-registration: registry
// lookup, registrant persistence and the verification token handoff.
type RegistrationService struct {
	registrants  repository.RegistrantRepository
	verification *VerificationService
	cedulas      *lookup.CedulaClient
	logger       *zap.Logger
}

// RegistrationDependencies bundles collaborator requirements.
type RegistrationDependencies struct {
	RegistrantRepo repository.RegistrantRepository
	Verification   *VerificationService
	CedulaClient   *lookup.CedulaClient
	Logger         *zap.Logger
}

// NewRegistrationService builds the service.
func NewRegistrationService(deps RegistrationDependencies) *RegistrationService {
	return &RegistrationService{
		registrants:  deps.RegistrantRepo,
		verification: deps.Verification,
		cedulas:      deps.CedulaClient,
		logger:       deps.Logger,
	}
}

// RegisterInput is the self-registration payload.
type RegisterInput struct {
	Cedula         string
	Email          string
	FirstName      string
	LastName       string
	Phone          *string
	CapacitacionID *string
	IP             *string
}

// RegisterResult bundles the registrant and the issued token.
type RegisterResult struct {
	Registrant *domain.Registrant
	Issue      *IssueResult
}

// Register creates (or reuses) a registrant for the cedula and issues a
// registration token to their email. Registry lookup only enriches names;
// its failure never blocks registration.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	cedula := strings.TrimSpace(input.Cedula)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if cedula == "" || email == "" {
		return nil, apperrors.NewValidationError("cedula y email son requeridos", nil)
	}

	firstName, lastName := input.FirstName, input.LastName
	if s.cedulas != nil && s.cedulas.Enabled() {
		if person, err := s.cedulas.Find(ctx, cedula); err != nil {
			s.logger.Warn("cedula lookup failed; keeping submitted names",
				zap.String("cedula", cedula),
				zap.Error(err),
			)
		} else {
			firstName, lastName = person.FirstName, person.LastName
		}
	}
	if firstName == "" || lastName == "" {
		return nil, apperrors.NewValidationError("nombres y apellidos son requeridos", nil)
	}

	registrant, err := s.registrants.GetByCedula(ctx, cedula)
	switch {
	case err == nil:
		// Existing registrant: reuse and reissue the verification token.
	case err == pgx.ErrNoRows:
		registrant = &domain.Registrant{
			Cedula:    cedula,
			FirstName: firstName,
			LastName:  lastName,
			Email:     email,
			Phone:     input.Phone,
			Status:    domain.RegistrantStatusPending,
		}
		if err := s.registrants.Create(ctx, registrant); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	default:
		return nil, apperrors.NewInternalError(err)
	}

	metadata := domain.TokenMetadata{CapacitacionID: input.CapacitacionID}
	issue, err := s.verification.Issue(ctx, IssueInput{
		SubjectID: registrant.ID,
		Purpose:   domain.PurposeRegistration,
		Metadata:  metadata,
		IssuingIP: input.IP,
	})
	if err != nil {
		return nil, err
	}

	return &RegisterResult{Registrant: registrant, Issue: issue}, nil
}

// GetRegistrant returns the registrant snapshot.
func (s *RegistrationService) GetRegistrant(ctx context.Context, id string) (*domain.Registrant, error) {
	registrant, err := s.registrants.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("registrant", map[string]any{"id": id})
		}
		return nil, apperrors.NewInternalError(err)
	}
	return registrant, nil
}
