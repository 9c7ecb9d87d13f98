package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ciepi/portal-service/internal/domain"
	"github.com/ciepi/portal-service/internal/events"
	"github.com/ciepi/portal-service/internal/mail"
	"github.com/ciepi/portal-service/internal/repository"
	apperrors "github.com/ciepi/portal-service/pkg/util"
)

const tokenByteLen = 32

// VerificationService owns the email verification token lifecycle: issue,
// validate, consume, status. All coordination goes through the token store;
// the conditional consume there guarantees at most one winner per token.
type VerificationService struct {
	tokens         repository.VerificationTokenRepository
	registrants    repository.RegistrantRepository
	enrollments    repository.EnrollmentRepository
	capacitaciones repository.CapacitacionRepository
	notifier       mail.Notifier
	dispatcher     events.Dispatcher
	logger         *zap.Logger
	defaultTTL     time.Duration
	baseURL        string
	now            func() time.Time
}

// VerificationDependencies bundles collaborator requirements.
type VerificationDependencies struct {
	TokenRepo        repository.VerificationTokenRepository
	RegistrantRepo   repository.RegistrantRepository
	EnrollmentRepo   repository.EnrollmentRepository
	CapacitacionRepo repository.CapacitacionRepository
	Notifier         mail.Notifier
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
	DefaultTTL       time.Duration
	BaseURL          string
	Now              func() time.Time
}

// NewVerificationService builds the service.
func NewVerificationService(deps VerificationDependencies) *VerificationService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	ttl := deps.DefaultTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &VerificationService{
		tokens:         deps.TokenRepo,
		registrants:    deps.RegistrantRepo,
		enrollments:    deps.EnrollmentRepo,
		capacitaciones: deps.CapacitacionRepo,
		notifier:       deps.Notifier,
		dispatcher:     deps.Dispatcher,
		logger:         deps.Logger,
		defaultTTL:     ttl,
		baseURL:        deps.BaseURL,
		now:            now,
	}
}

// IssueInput describes an issuance request.
type IssueInput struct {
	SubjectID  string
	Purpose    domain.TokenPurpose
	Metadata   domain.TokenMetadata
	TTLMinutes int
	IssuingIP  *string
}

// IssueResult is the issuance outcome; EmailSent is false when dispatch
// failed after the token was durably written.
type IssueResult struct {
	Token      *domain.VerificationToken
	TTLMinutes int
	EmailSent  bool
}

// Issue creates a new token for the (subject, purpose) pair, superseding
// any active predecessor in the same transaction, then dispatches the
// confirmation email. Dispatch failure leaves the token valid.
func (s *VerificationService) Issue(ctx context.Context, input IssueInput) (*IssueResult, error) {
	if !domain.ValidPurpose(input.Purpose) {
		return nil, apperrors.NewValidationError("purpose invalido", map[string]any{"purpose": input.Purpose})
	}
	if err := input.Metadata.ValidateFor(input.Purpose); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}
	if input.Purpose == domain.PurposeRegistration && input.Metadata.CapacitacionID != nil {
		if _, err := s.capacitaciones.GetByID(ctx, *input.Metadata.CapacitacionID); err != nil {
			if err == pgx.ErrNoRows {
				return nil, apperrors.NewNotFound("capacitacion", map[string]any{"capacitacion_id": *input.Metadata.CapacitacionID})
			}
			return nil, apperrors.NewInternalError(err)
		}
	}

	registrant, err := s.registrants.GetByID(ctx, input.SubjectID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("registrant", map[string]any{"subject_id": input.SubjectID})
		}
		return nil, apperrors.NewInternalError(err)
	}

	ttl := s.defaultTTL
	if input.TTLMinutes > 0 {
		ttl = time.Duration(input.TTLMinutes) * time.Minute
	}
	issuedAt := s.now()

	token := &domain.VerificationToken{
		SubjectID:      registrant.ID,
		Purpose:        input.Purpose,
		ContactAddress: registrant.Email,
		Metadata:       input.Metadata,
		CreatedAt:      issuedAt,
		ExpiresAt:      issuedAt.Add(ttl),
		IssuingIP:      input.IssuingIP,
	}

	// Retry covers the astronomically rare token collision.
	for attempt := 0; ; attempt++ {
		token.Token = generateTokenValue()
		err = s.tokens.Issue(ctx, token)
		if err == nil {
			break
		}
		if err == repository.ErrDuplicateToken && attempt < 2 {
			continue
		}
		return nil, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.EventTokenIssued, registrant.ID, events.TokenIssuedPayload{
		Purpose:        token.Purpose,
		ContactAddress: token.ContactAddress,
		ExpiresAt:      token.ExpiresAt,
	})

	emailSent := true
	if sendErr := s.notifier.SendEmailVerification(ctx, mail.Verification{
		Address:         token.ContactAddress,
		FirstName:       registrant.FirstName,
		LastName:        registrant.LastName,
		Purpose:         token.Purpose,
		VerificationURL: s.VerificationURL(token.Token),
		TTLMinutes:      int(ttl / time.Minute),
		ExpiresAt:       token.ExpiresAt,
	}); sendErr != nil {
		// Token stays valid; the registrant can request a resend.
		emailSent = false
		s.logger.Warn("verification email not sent",
			zap.String("subject_id", registrant.ID),
			zap.String("purpose", string(token.Purpose)),
			zap.Error(sendErr),
		)
	}

	return &IssueResult{Token: token, TTLMinutes: int(ttl / time.Minute), EmailSent: emailSent}, nil
}

// Resend reissues from a prior token, copying its subject, purpose and
// metadata. The predecessor is superseded by the new issuance.
func (s *VerificationService) Resend(ctx context.Context, priorToken string, issuingIP *string) (*IssueResult, error) {
	prior, err := s.tokens.GetByToken(ctx, priorToken)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewTokenNotFound()
		}
		return nil, apperrors.NewInternalError(err)
	}
	if prior.UsedAt != nil {
		return nil, apperrors.NewTokenAlreadyUsed()
	}
	return s.Issue(ctx, IssueInput{
		SubjectID: prior.SubjectID,
		Purpose:   prior.Purpose,
		Metadata:  prior.Metadata,
		IssuingIP: issuingIP,
	})
}

// InvalidateActive supersedes any active tokens for the pair. Idempotent.
func (s *VerificationService) InvalidateActive(ctx context.Context, subjectID string, purpose domain.TokenPurpose) error {
	if _, err := s.tokens.InvalidateActive(ctx, subjectID, purpose, s.now()); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// Validity is the validator outcome.
type Validity struct {
	Valid  bool
	Reason domain.InvalidityReason
}

// Validate reports whether the token is consumable. Pure read; safe to
// call repeatedly.
func (s *VerificationService) Validate(ctx context.Context, tokenStr string) (Validity, error) {
	token, err := s.tokens.GetByToken(ctx, tokenStr)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Validity{Valid: false, Reason: domain.ReasonNotFound}, nil
		}
		return Validity{}, apperrors.NewInternalError(err)
	}
	if reason := token.Invalidity(s.now()); reason != "" {
		return Validity{Valid: false, Reason: reason}, nil
	}
	return Validity{Valid: true}, nil
}

// TokenStatus is the poller's view of a token.
type TokenStatus struct {
	Exists  bool
	Used    bool
	Expired bool
	State   string
}

// Status display states for the polling client.
const (
	StateVerificado = "verificado"
	StateExpirado   = "expirado"
	StatePendiente  = "pendiente"
)

// Status returns the current token state for client polling. Superseded
// tokens report expirado: the remedy (request a resend) is the same.
func (s *VerificationService) Status(ctx context.Context, tokenStr string) (TokenStatus, error) {
	token, err := s.tokens.GetByToken(ctx, tokenStr)
	if err != nil {
		if err == pgx.ErrNoRows {
			return TokenStatus{Exists: false, State: StateExpirado}, nil
		}
		return TokenStatus{}, apperrors.NewInternalError(err)
	}

	status := TokenStatus{Exists: true}
	switch token.Invalidity(s.now()) {
	case domain.ReasonAlreadyUsed:
		status.Used = true
		status.State = StateVerificado
	case domain.ReasonExpired:
		status.Expired = true
		status.State = StateExpirado
	case domain.ReasonSuperseded:
		status.State = StateExpirado
	default:
		status.State = StatePendiente
	}
	return status, nil
}

// ConsumeResult summarizes a successful consumption and its side effects.
type ConsumeResult struct {
	Token      *domain.VerificationToken
	Registrant *domain.Registrant
	Enrollment *domain.Enrollment
	NewEmail   *string
}

// Consume atomically marks the token used and applies the purpose-specific
// effects exactly once. Of N concurrent calls on the same token exactly one
// succeeds; the rest observe already_used.
func (s *VerificationService) Consume(ctx context.Context, tokenStr string, usedFromIP *string) (*ConsumeResult, error) {
	validity, err := s.Validate(ctx, tokenStr)
	if err != nil {
		return nil, err
	}
	if !validity.Valid {
		return nil, reasonError(validity.Reason)
	}

	now := s.now()
	token, err := s.tokens.Consume(ctx, tokenStr, usedFromIP, now)
	if err != nil {
		if err != pgx.ErrNoRows {
			return nil, apperrors.NewInternalError(err)
		}
		// Lost the race after pre-validation passed; re-read for the
		// precise reason.
		revalidated, verr := s.Validate(ctx, tokenStr)
		if verr != nil {
			return nil, verr
		}
		if revalidated.Valid {
			// Conditional update and fresh read disagree; treat as store trouble.
			return nil, apperrors.NewInternalError(fmt.Errorf("consume affected no rows for valid token"))
		}
		return nil, reasonError(revalidated.Reason)
	}

	result := &ConsumeResult{Token: token}
	if err := s.applyConsumptionEffects(ctx, token, now, result); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTokenConsumed, token.SubjectID, events.TokenConsumedPayload{
		Purpose:    token.Purpose,
		UsedFromIP: usedFromIP,
	})

	return result, nil
}

// VerificationURL embeds the token as an opaque path segment.
func (s *VerificationService) VerificationURL(token string) string {
	return fmt.Sprintf("%s/verificacion/%s", s.baseURL, token)
}

func (s *VerificationService) applyConsumptionEffects(ctx context.Context, token *domain.VerificationToken, now time.Time, result *ConsumeResult) error {
	switch token.Purpose {
	case domain.PurposeRegistration:
		if err := s.registrants.MarkVerified(ctx, token.SubjectID, now); err != nil && err != pgx.ErrNoRows {
			return apperrors.NewInternalError(err)
		}
		s.publish(ctx, events.EventRegistrantVerified, token.SubjectID, nil)
		if token.Metadata.CapacitacionID != nil {
			enrollment := &domain.Enrollment{
				RegistrantID:   token.SubjectID,
				CapacitacionID: *token.Metadata.CapacitacionID,
			}
			err := s.enrollments.Create(ctx, enrollment)
			switch {
			case err == nil:
				result.Enrollment = enrollment
				s.publish(ctx, events.EventEnrollmentCreated, token.SubjectID, events.EnrollmentCreatedPayload{
					RegistrantID:   enrollment.RegistrantID,
					CapacitacionID: enrollment.CapacitacionID,
				})
			case err == pgx.ErrNoRows:
				// Already enrolled; the unique pair absorbed the insert.
			default:
				return apperrors.NewInternalError(err)
			}
		}
	case domain.PurposeRecovery:
		if err := s.registrants.MarkVerified(ctx, token.SubjectID, now); err != nil && err != pgx.ErrNoRows {
			return apperrors.NewInternalError(err)
		}
	case domain.PurposeEmailChange:
		if token.Metadata.NewAddress != nil {
			if err := s.registrants.UpdateEmail(ctx, token.SubjectID, *token.Metadata.NewAddress); err != nil && err != pgx.ErrNoRows {
				return apperrors.NewInternalError(err)
			}
			result.NewEmail = token.Metadata.NewAddress
		}
	}

	registrant, err := s.registrants.GetByID(ctx, token.SubjectID)
	if err != nil && err != pgx.ErrNoRows {
		return apperrors.NewInternalError(err)
	}
	result.Registrant = registrant
	return nil
}

func (s *VerificationService) publish(ctx context.Context, eventType events.EventType, subjectID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Timestamp: s.now(),
		Payload:   payload,
	})
}

func reasonError(reason domain.InvalidityReason) error {
	switch reason {
	case domain.ReasonExpired:
		return apperrors.NewTokenExpired()
	case domain.ReasonAlreadyUsed:
		return apperrors.NewTokenAlreadyUsed()
	case domain.ReasonSuperseded:
		return apperrors.NewTokenSuperseded()
	default:
		return apperrors.NewTokenNotFound()
	}
}

func generateTokenValue() string {
	buf := make([]byte, tokenByteLen)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return hex.EncodeToString(buf)
}
