package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/ciepi/portal-service/internal/events"
)

// NotificationService logs domain events for operational visibility.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTokenIssued, n.handleTokenIssued)
	n.dispatcher.Subscribe(events.EventTokenConsumed, n.handleTokenConsumed)
	n.dispatcher.Subscribe(events.EventRegistrantVerified, n.handleRegistrantVerified)
	n.dispatcher.Subscribe(events.EventEnrollmentCreated, n.handleEnrollmentCreated)
	n.dispatcher.Subscribe(events.EventContactReceived, n.handleContactReceived)
}

func (n *NotificationService) handleTokenIssued(_ context.Context, event events.Event) error {
	n.logger.Info("TokenIssued", zap.String("subject_id", event.SubjectID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleTokenConsumed(_ context.Context, event events.Event) error {
	n.logger.Info("TokenConsumed", zap.String("subject_id", event.SubjectID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleRegistrantVerified(_ context.Context, event events.Event) error {
	n.logger.Info("RegistrantVerified", zap.String("subject_id", event.SubjectID))
	return nil
}

func (n *NotificationService) handleEnrollmentCreated(_ context.Context, event events.Event) error {
	n.logger.Info("EnrollmentCreated", zap.String("subject_id", event.SubjectID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleContactReceived(_ context.Context, event events.Event) error {
	n.logger.Info("ContactReceived", zap.String("subject_id", event.SubjectID), zap.Any("payload", event.Payload))
	return nil
}
