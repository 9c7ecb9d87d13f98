package service

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ciepi/portal-service/internal/domain"
	"github.com/ciepi/portal-service/internal/repository"
	apperrors "github.com/ciepi/portal-service/pkg/util"
)

// CapacitacionService coordinates training course management.
type CapacitacionService struct {
	capacitaciones repository.CapacitacionRepository
	enrollments    repository.EnrollmentRepository
	registrants    repository.RegistrantRepository
}

// NewCapacitacionService builds the service.
func NewCapacitacionService(capRepo repository.CapacitacionRepository, enrollRepo repository.EnrollmentRepository, regRepo repository.RegistrantRepository) *CapacitacionService {
	return &CapacitacionService{capacitaciones: capRepo, enrollments: enrollRepo, registrants: regRepo}
}

// CapacitacionInput describes create/update payloads.
type CapacitacionInput struct {
	Title       string
	Description string
	Modality    string
	Location    *string
	StartsAt    time.Time
	EndsAt      time.Time
	Capacity    int
	Status      domain.CapacitacionStatus
}

// Create persists a new course.
func (s *CapacitacionService) Create(ctx context.Context, input CapacitacionInput) (*domain.Capacitacion, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("title requerido", nil)
	}
	status := input.Status
	if status == "" {
		status = domain.CapacitacionStatusDraft
	}
	capacitacion := &domain.Capacitacion{
		Title:       input.Title,
		Description: input.Description,
		Modality:    input.Modality,
		Location:    input.Location,
		StartsAt:    input.StartsAt,
		EndsAt:      input.EndsAt,
		Capacity:    input.Capacity,
		Status:      status,
	}
	if err := s.capacitaciones.Create(ctx, capacitacion); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return capacitacion, nil
}

// Update modifies an existing course.
func (s *CapacitacionService) Update(ctx context.Context, id string, input CapacitacionInput) (*domain.Capacitacion, error) {
	capacitacion, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	capacitacion.Title = input.Title
	capacitacion.Description = input.Description
	capacitacion.Modality = input.Modality
	capacitacion.Location = input.Location
	capacitacion.StartsAt = input.StartsAt
	capacitacion.EndsAt = input.EndsAt
	capacitacion.Capacity = input.Capacity
	if input.Status != "" {
		capacitacion.Status = input.Status
	}
	if err := s.capacitaciones.Update(ctx, capacitacion); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("capacitacion", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	return capacitacion, nil
}

// Get fetches a course by id.
func (s *CapacitacionService) Get(ctx context.Context, id string) (*domain.Capacitacion, error) {
	capacitacion, err := s.capacitaciones.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("capacitacion", map[string]any{"id": id})
		}
		return nil, apperrors.NewInternalError(err)
	}
	return capacitacion, nil
}

// ListOpen returns publicly visible open courses.
func (s *CapacitacionService) ListOpen(ctx context.Context, limit, offset int) ([]domain.Capacitacion, error) {
	open := domain.CapacitacionStatusOpen
	list, err := s.capacitaciones.List(ctx, repository.CapacitacionFilter{Status: &open, Limit: limit, Offset: offset})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return list, nil
}

// ListAll returns courses for staff, any status.
func (s *CapacitacionService) ListAll(ctx context.Context, limit, offset int) ([]domain.Capacitacion, error) {
	list, err := s.capacitaciones.List(ctx, repository.CapacitacionFilter{Limit: limit, Offset: offset})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return list, nil
}

// EnrollmentEntry pairs an enrollment with the registrant snapshot.
type EnrollmentEntry struct {
	Enrollment domain.Enrollment
	Registrant *domain.Registrant
}

// ListEnrollments returns enrollments for a course with registrant details.
func (s *CapacitacionService) ListEnrollments(ctx context.Context, capacitacionID string) ([]EnrollmentEntry, error) {
	if _, err := s.Get(ctx, capacitacionID); err != nil {
		return nil, err
	}
	enrollments, err := s.enrollments.ListByCapacitacion(ctx, capacitacionID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	entries := make([]EnrollmentEntry, 0, len(enrollments))
	for _, enrollment := range enrollments {
		registrant, err := s.registrants.GetByID(ctx, enrollment.RegistrantID)
		if err != nil && err != pgx.ErrNoRows {
			return nil, apperrors.NewInternalError(err)
		}
		entries = append(entries, EnrollmentEntry{Enrollment: enrollment, Registrant: registrant})
	}
	return entries, nil
}
