package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ciepi/portal-service/internal/domain"
	"github.com/ciepi/portal-service/internal/events"
	"github.com/ciepi/portal-service/internal/repository"
	apperrors "github.com/ciepi/portal-service/pkg/util"
)

// ContactService handles public inquiry intake.
type ContactService struct {
	messages   repository.ContactRepository
	dispatcher events.Dispatcher
}

// NewContactService builds the service.
func NewContactService(contactRepo repository.ContactRepository, dispatcher events.Dispatcher) *ContactService {
	return &ContactService{messages: contactRepo, dispatcher: dispatcher}
}

// ContactInput is the public contact form payload.
type ContactInput struct {
	Name    string
	Email   string
	Subject string
	Body    string
}

// Submit stores a contact message and notifies subscribers.
func (s *ContactService) Submit(ctx context.Context, input ContactInput) (*domain.ContactMessage, error) {
	if strings.TrimSpace(input.Email) == "" || strings.TrimSpace(input.Body) == "" {
		return nil, apperrors.NewValidationError("email y mensaje son requeridos", nil)
	}
	message := &domain.ContactMessage{
		Name:    input.Name,
		Email:   input.Email,
		Subject: input.Subject,
		Body:    input.Body,
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventContactReceived,
			SubjectID: message.ID,
			Timestamp: time.Now(),
			Payload: events.ContactReceivedPayload{
				Name:    message.Name,
				Email:   message.Email,
				Subject: message.Subject,
			},
		})
	}
	return message, nil
}

// List returns messages for staff review.
func (s *ContactService) List(ctx context.Context, limit, offset int) ([]domain.ContactMessage, error) {
	messages, err := s.messages.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return messages, nil
}
