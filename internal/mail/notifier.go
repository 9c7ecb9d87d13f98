package mail

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ciepi/portal-service/internal/domain"
)

// Verification carries everything needed to compose a confirmation email.
type Verification struct {
	Address         string
	FirstName       string
	LastName        string
	Purpose         domain.TokenPurpose
	VerificationURL string
	TTLMinutes      int
	ExpiresAt       time.Time
}

// Notifier dispatches verification emails. Failure never rolls back
// issuance; callers treat it as non-fatal and offer a resend.
type Notifier interface {
	SendEmailVerification(ctx context.Context, v Verification) error
}

// DevNotifier logs the verification link instead of sending mail.
type DevNotifier struct {
	logger *zap.Logger
}

// NewDevNotifier constructs a logging notifier for local development.
func NewDevNotifier(logger *zap.Logger) *DevNotifier {
	return &DevNotifier{logger: logger}
}

func (n *DevNotifier) SendEmailVerification(_ context.Context, v Verification) error {
	n.logger.Info("verification email (dev)",
		zap.String("to", v.Address),
		zap.String("purpose", string(v.Purpose)),
		zap.String("url", v.VerificationURL),
		zap.Time("expires_at", v.ExpiresAt),
	)
	return nil
}
