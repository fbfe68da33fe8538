package domain

import (
	"context"
	"time"
)

// UsageLedgerEntry is the per-user AI question counter.
type UsageLedgerEntry struct {
	UserID         string     `json:"user_id" yaml:"user_id"`
	Plan           PlanTier   `json:"plan" yaml:"plan"`
	QuestionCount  int        `json:"question_count" yaml:"question_count"`
	LastResetAt    time.Time  `json:"last_reset_date" yaml:"last_reset_date"`
	LastQuestionAt *time.Time `json:"last_question_date" yaml:"last_question_date"`
	CreatedAt      time.Time  `json:"created_at,omitempty" yaml:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at,omitempty" yaml:"updated_at"`
}

// NewLedgerEntry returns the row created on a user's first entitlement check.
func NewLedgerEntry(userID string, plan PlanTier, now time.Time) *UsageLedgerEntry {
	return &UsageLedgerEntry{
		UserID:        userID,
		Plan:          plan,
		QuestionCount: 0,
		LastResetAt:   now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Clone returns a deep copy of the entry.
func (e *UsageLedgerEntry) Clone() *UsageLedgerEntry {
	if e == nil {
		return nil
	}
	c := *e
	if e.LastQuestionAt != nil {
		t := *e.LastQuestionAt
		c.LastQuestionAt = &t
	}
	return &c
}

// UsageStatus is the result of an entitlement check.
type UsageStatus struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	Used      int       `json:"used"`
	ResetDate time.Time `json:"resetDate"`
	Plan      PlanTier  `json:"plan"`
}

// UsageRecord is returned after a question has been counted.
type UsageRecord struct {
	Remaining int `json:"remaining"`
	Used      int `json:"used"`
	Limit     int `json:"limit"`
}

// GraceStatus describes the new-account AI lock.
type GraceStatus struct {
	Blocked       bool `json:"blocked"`
	DaysRemaining int  `json:"daysRemaining"`
}

// Identity is what the auth collaborator knows about the caller.
type Identity struct {
	UserID       string
	Plan         PlanTier
	RegisteredAt time.Time
}

// DenialReason says why an AI request was refused.
type DenialReason string

const (
	DenialGracePeriod   DenialReason = "grace_period_active"
	DenialQuotaExceeded DenialReason = "quota_exceeded"
)

// Admission is either Admitted or Denied.
type Admission interface {
	isAdmission()
}

// Admitted means the caller may spend one AI question.
type Admitted struct {
	Status      UsageStatus
	Entitlement PlanEntitlement
}

// Denied carries enough data to render a countdown or an upgrade prompt.
// Status is nil for grace-period denials because the ledger is never consulted.
type Denied struct {
	Reason DenialReason
	Status *UsageStatus
	Grace  *GraceStatus
}

func (Admitted) isAdmission() {}
func (Denied) isAdmission()   {}

// UsageLedgerRepository persists ledger rows keyed by user id.
type UsageLedgerRepository interface {
	// Load returns ErrLedgerNotFound when the user has no row.
	Load(ctx context.Context, userID string) (*UsageLedgerEntry, error)
	// Create returns ErrLedgerRaceCreated if a row already exists.
	Create(ctx context.Context, entry *UsageLedgerEntry) (*UsageLedgerEntry, error)
	// Save replaces the mutable columns of an existing row.
	Save(ctx context.Context, entry *UsageLedgerEntry) (*UsageLedgerEntry, error)
	// Swap writes next only if the stored row still matches prev's
	// question count and last reset; otherwise it returns ErrLedgerConflict.
	Swap(ctx context.Context, prev, next *UsageLedgerEntry) (*UsageLedgerEntry, error)
}

// UsageService is the entitlement surface used by handlers and the CLI.
type UsageService interface {
	CheckUsage(ctx context.Context, userID string, plan PlanTier) (*UsageStatus, error)
	RecordUsage(ctx context.Context, userID string) (*UsageRecord, error)
	CheckGracePeriod(plan PlanTier, registeredAt time.Time) GraceStatus
	Admit(ctx context.Context, id Identity) (Admission, error)
	Ledger(ctx context.Context, userID string) (*UsageLedgerEntry, error)
	Reset(ctx context.Context, userID string) (*UsageLedgerEntry, error)
}
