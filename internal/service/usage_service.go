package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finance-advisor-server/internal/domain"
)

// maxSwapAttempts bounds how often a check or record re-reads the ledger after
// losing a conditional write to a concurrent request for the same user.
const maxSwapAttempts = 3

type usageService struct {
	repo   domain.UsageLedgerRepository
	logger domain.Logger
	clock  func() time.Time
}

// NewUsageService creates the entitlement service over a ledger backend.
func NewUsageService(repo domain.UsageLedgerRepository, logger domain.Logger) *usageService {
	return NewUsageServiceWithClock(repo, logger, systemClock)
}

// NewUsageServiceWithClock is NewUsageService with an injected clock.
func NewUsageServiceWithClock(repo domain.UsageLedgerRepository, logger domain.Logger, clock func() time.Time) *usageService {
	return &usageService{
		repo:   repo,
		logger: logger,
		clock:  clock,
	}
}

// systemClock matches the precision of a Postgres timestamptz so stored
// values compare equal on conditional writes.
func systemClock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// CheckUsage evaluates the caller's allowance under their live plan, creating
// the ledger row on first use and persisting any rollover.
func (s *usageService) CheckUsage(ctx context.Context, userID string, plan domain.PlanTier) (*domain.UsageStatus, error) {
	if _, err := domain.EntitlementFor(plan); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxSwapAttempts; attempt++ {
		now := s.clock()

		entry, err := s.loadOrInit(ctx, userID, plan, now)
		if err != nil {
			return nil, err
		}

		next, status, changed, err := domain.Evaluate(entry, plan, now)
		if err != nil {
			return nil, err
		}
		if !changed {
			return &status, nil
		}

		if _, err := s.repo.Swap(ctx, entry, next); err != nil {
			if errors.Is(err, domain.ErrLedgerConflict) {
				continue
			}
			return nil, err
		}

		if !next.LastResetAt.Equal(entry.LastResetAt) {
			s.logger.Info("Usage period rolled over", "user_id", userID, "plan", plan, "previous_count", entry.QuestionCount)
		}
		return &status, nil
	}

	return nil, s.conflictError("check usage", userID)
}

// RecordUsage counts one question against the plan stored on the ledger.
func (s *usageService) RecordUsage(ctx context.Context, userID string) (*domain.UsageRecord, error) {
	for attempt := 1; attempt <= maxSwapAttempts; attempt++ {
		now := s.clock()

		entry, err := s.repo.Load(ctx, userID)
		if err != nil {
			return nil, err
		}

		next, rec, err := domain.Consume(entry, now)
		if err != nil {
			var quota *domain.QuotaExceededError
			if errors.As(err, &quota) {
				s.logger.Warn("AI question refused at increment", "user_id", userID, "used", quota.Used, "limit", quota.Limit)
			}
			return nil, err
		}

		if _, err := s.repo.Swap(ctx, entry, next); err != nil {
			if errors.Is(err, domain.ErrLedgerConflict) {
				continue
			}
			return nil, err
		}
		return &rec, nil
	}

	return nil, s.conflictError("record usage", userID)
}

// CheckGracePeriod reports the new-account lock for plans that carry it.
// Labels outside the catalog are gated like the lowest tier.
func (s *usageService) CheckGracePeriod(plan domain.PlanTier, registeredAt time.Time) domain.GraceStatus {
	if ent, err := domain.EntitlementFor(plan); err == nil && !ent.GraceGated {
		return domain.GraceStatus{}
	}
	return domain.GracePeriod(registeredAt, s.clock())
}

// Admit runs the grace gate and then the entitlement check. The ledger is
// not touched when the gate denies.
func (s *usageService) Admit(ctx context.Context, id domain.Identity) (domain.Admission, error) {
	grace := s.CheckGracePeriod(id.Plan, id.RegisteredAt)
	if grace.Blocked {
		return domain.Denied{Reason: domain.DenialGracePeriod, Grace: &grace}, nil
	}

	status, err := s.CheckUsage(ctx, id.UserID, id.Plan)
	if err != nil {
		return nil, err
	}
	if !status.Allowed {
		return domain.Denied{Reason: domain.DenialQuotaExceeded, Status: status}, nil
	}

	ent, err := domain.EntitlementFor(id.Plan)
	if err != nil {
		return nil, err
	}
	return domain.Admitted{Status: *status, Entitlement: ent}, nil
}

// Ledger returns the stored row without evaluating it.
func (s *usageService) Ledger(ctx context.Context, userID string) (*domain.UsageLedgerEntry, error) {
	return s.repo.Load(ctx, userID)
}

// Reset starts a fresh period for a user.
func (s *usageService) Reset(ctx context.Context, userID string) (*domain.UsageLedgerEntry, error) {
	entry, err := s.repo.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	next := entry.Clone()
	next.QuestionCount = 0
	if now.After(next.LastResetAt) {
		next.LastResetAt = now
	}
	next.UpdatedAt = now

	saved, err := s.repo.Save(ctx, next)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Usage ledger reset", "user_id", userID, "previous_count", entry.QuestionCount)
	return saved, nil
}

// loadOrInit returns the user's ledger, creating it on first use. A duplicate
// create means a concurrent request won; its row is authoritative.
func (s *usageService) loadOrInit(ctx context.Context, userID string, plan domain.PlanTier, now time.Time) (*domain.UsageLedgerEntry, error) {
	entry, err := s.repo.Load(ctx, userID)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, domain.ErrLedgerNotFound) {
		return nil, err
	}

	entry, err = s.repo.Create(ctx, domain.NewLedgerEntry(userID, plan, now))
	if err == nil {
		s.logger.Info("Usage ledger created", "user_id", userID, "plan", plan)
		return entry, nil
	}
	if !errors.Is(err, domain.ErrLedgerRaceCreated) {
		return nil, err
	}

	s.logger.Debug("Usage ledger created concurrently, reloading", "user_id", userID)
	return s.repo.Load(ctx, userID)
}

func (s *usageService) conflictError(op, userID string) error {
	s.logger.Warn("Usage ledger kept changing underneath us", "user_id", userID, "attempts", maxSwapAttempts)
	return &domain.StorageError{
		Op:  op,
		Err: fmt.Errorf("%w after %d attempts", domain.ErrLedgerConflict, maxSwapAttempts),
	}
}
