package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors
var (
	ErrInvalidPlan       = errors.New("invalid plan")
	ErrLedgerNotFound    = errors.New("usage ledger not found")
	ErrLedgerRaceCreated = errors.New("usage ledger already created")
	ErrLedgerConflict    = errors.New("usage ledger changed concurrently")
	ErrQuotaExceeded     = errors.New("ai question quota exceeded")
	ErrGracePeriodActive = errors.New("ai grace period active")
	ErrStorage           = errors.New("storage error")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidToken      = errors.New("invalid token")
	ErrAIUnavailable     = errors.New("ai provider not configured")
	ErrCompletionFailed  = errors.New("ai completion failed")
)

// InvalidPlanError reports a plan label that is not in the catalog.
type InvalidPlanError struct {
	Value string
}

func (e *InvalidPlanError) Error() string {
	return fmt.Sprintf("invalid plan %q", e.Value)
}

func (e *InvalidPlanError) Is(target error) bool { return target == ErrInvalidPlan }

// QuotaExceededError is returned when a question would exceed the plan quota.
type QuotaExceededError struct {
	Limit     int
	Used      int
	ResetDate time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("ai question quota exceeded: %d/%d, resets %s", e.Used, e.Limit, e.ResetDate.Format(time.RFC3339))
}

func (e *QuotaExceededError) Is(target error) bool { return target == ErrQuotaExceeded }

// GracePeriodError is returned when a new account has not yet unlocked AI access.
type GracePeriodError struct {
	DaysRemaining int
}

func (e *GracePeriodError) Error() string {
	return fmt.Sprintf("ai grace period active: %d days remaining", e.DaysRemaining)
}

func (e *GracePeriodError) Is(target error) bool { return target == ErrGracePeriodActive }

// StorageError wraps a persistence failure. The cause is for logs only.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// NewStorageError wraps err unless it already carries a domain meaning.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrLedgerNotFound) || errors.Is(err, ErrLedgerRaceCreated) || errors.Is(err, ErrLedgerConflict) || errors.Is(err, ErrStorage) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// ValidationError represents a validation error with field and message information.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}
