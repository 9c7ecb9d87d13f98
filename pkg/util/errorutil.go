package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Token error codes surfaced to clients so the UI can distinguish
// resend-recoverable failures from ones that need a fresh flow.
const (
	CodeTokenNotFound    = "TOKEN_NOT_FOUND"
	CodeTokenExpired     = "TOKEN_EXPIRED"
	CodeTokenAlreadyUsed = "TOKEN_ALREADY_USED"
	CodeTokenSuperseded  = "TOKEN_SUPERSEDED"
	CodePollTooFrequent  = "POLL_TOO_FREQUENT"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewTokenNotFound reports an unknown verification token.
func NewTokenNotFound() error {
	return NewDomainError(CodeTokenNotFound, "token no encontrado", http.StatusNotFound, nil)
}

// NewTokenExpired reports an elapsed token; recoverable via resend.
func NewTokenExpired() error {
	return NewDomainError(CodeTokenExpired, "token expirado", http.StatusBadRequest, nil)
}

// NewTokenAlreadyUsed reports a consumed token; the originating flow must restart.
func NewTokenAlreadyUsed() error {
	return NewDomainError(CodeTokenAlreadyUsed, "token ya utilizado", http.StatusBadRequest, nil)
}

// NewTokenSuperseded reports a token displaced by a newer issuance.
func NewTokenSuperseded() error {
	return NewDomainError(CodeTokenSuperseded, "token reemplazado por una emision posterior", http.StatusBadRequest, nil)
}

// NewPollTooFrequent reports status polling under the minimum interval.
func NewPollTooFrequent(retryAfterSeconds int) error {
	return NewDomainError(CodePollTooFrequent, "consultas de estado demasiado frecuentes", http.StatusTooManyRequests,
		map[string]any{"retry_after_seconds": retryAfterSeconds})
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
