package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"finance-advisor-server/internal/domain"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeUnauthorized  ErrorType = "unauthorized"
	ErrorTypeGracePeriod   ErrorType = "grace_period_active"
	ErrorTypeQuotaExceeded ErrorType = "quota_exceeded"
	ErrorTypeRateLimited   ErrorType = "rate_limited"
	ErrorTypeInternal      ErrorType = "internal"
	ErrorTypeUpstream      ErrorType = "upstream"
	ErrorTypeUnavailable   ErrorType = "unavailable"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	// Set for quota denials.
	ResetDate *time.Time `json:"resetDate,omitempty"`
	// Set for grace-period denials.
	DaysRemaining *int `json:"daysRemaining,omitempty"`

	StatusCode int   `json:"-"`
	Cause      error `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details ...string) *AppError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		Details:    detail,
		StatusCode: http.StatusBadRequest,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewGracePeriodError creates the 403 returned while a new account is locked out of AI.
func NewGracePeriodError(daysRemaining int) *AppError {
	return &AppError{
		Type:          ErrorTypeGracePeriod,
		Message:       fmt.Sprintf("AI features unlock in %d days", daysRemaining),
		DaysRemaining: &daysRemaining,
		StatusCode:    http.StatusForbidden,
	}
}

// NewQuotaExceededError creates the 429 returned when the plan allowance is used up.
func NewQuotaExceededError(limit int, resetDate time.Time) *AppError {
	return &AppError{
		Type:       ErrorTypeQuotaExceeded,
		Message:    fmt.Sprintf("AI question limit of %d reached", limit),
		ResetDate:  &resetDate,
		StatusCode: http.StatusTooManyRequests,
	}
}

// NewRateLimitedError creates a 429 for request floods.
func NewRateLimitedError() *AppError {
	return &AppError{
		Type:       ErrorTypeRateLimited,
		Message:    "Too many requests",
		StatusCode: http.StatusTooManyRequests,
	}
}

// NewInternalError creates a new internal server error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewUpstreamError creates a 502 for a failing dependency.
func NewUpstreamError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeUpstream,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewUnavailableError creates a 503 for a feature that is not configured.
func NewUnavailableError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnavailable,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
	}
}

// FromDomain maps a domain error to the AppError returned to clients.
// Storage failures never expose their cause.
func FromDomain(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	var quota *domain.QuotaExceededError
	if stderrors.As(err, &quota) {
		e := NewQuotaExceededError(quota.Limit, quota.ResetDate)
		e.Cause = err
		return e
	}

	var grace *domain.GracePeriodError
	if stderrors.As(err, &grace) {
		e := NewGracePeriodError(grace.DaysRemaining)
		e.Cause = err
		return e
	}

	var validation *domain.ValidationError
	if stderrors.As(err, &validation) {
		return NewValidationError(validation.Message, validation.Field)
	}

	switch {
	case stderrors.Is(err, domain.ErrInvalidPlan):
		e := NewValidationError("Invalid plan")
		e.Cause = err
		return e
	case stderrors.Is(err, domain.ErrLedgerNotFound):
		return NewNotFoundError("No usage record for this user")
	case stderrors.Is(err, domain.ErrUserNotFound):
		return NewNotFoundError("User not found")
	case stderrors.Is(err, domain.ErrInvalidToken):
		return NewUnauthorizedError("Invalid token")
	case stderrors.Is(err, domain.ErrAIUnavailable):
		return NewUnavailableError("AI service not configured")
	case stderrors.Is(err, domain.ErrCompletionFailed):
		return NewUpstreamError("AI provider failed to answer", err)
	default:
		return NewInternalError("Internal server error", err)
	}
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode returns the HTTP status code for an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
