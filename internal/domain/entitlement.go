package domain

import "time"

const day = 24 * time.Hour

// GracePeriodDays is how long a grace-gated account waits for AI access.
const GracePeriodDays = 22

// DaysBetween returns the number of whole 24h periods from `from` to `to`.
// A `to` before `from` counts as zero.
func DaysBetween(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	return int(to.Sub(from) / day)
}

// NextReset is the moment the current quota period ends.
func NextReset(lastResetAt time.Time, ent PlanEntitlement) time.Time {
	return lastResetAt.Add(time.Duration(ent.PeriodDays) * day)
}

// StatusFor reports the counters of an already evaluated entry.
func StatusFor(entry *UsageLedgerEntry, ent PlanEntitlement) UsageStatus {
	remaining := ent.QuestionQuota - entry.QuestionCount
	if remaining < 0 {
		remaining = 0
	}
	return UsageStatus{
		Allowed:   remaining > 0,
		Remaining: remaining,
		Limit:     ent.QuestionQuota,
		Used:      entry.QuestionCount,
		ResetDate: NextReset(entry.LastResetAt, ent),
		Plan:      ent.Plan,
	}
}

// Evaluate runs the per-check transition for a ledger entry under the
// caller's live plan: refresh the plan snapshot, roll the period over when it
// has elapsed, and keep the count within the quota. The input is not
// modified; changed reports whether next must be persisted.
func Evaluate(entry *UsageLedgerEntry, plan PlanTier, now time.Time) (next *UsageLedgerEntry, status UsageStatus, changed bool, err error) {
	ent, err := EntitlementFor(plan)
	if err != nil {
		return nil, UsageStatus{}, false, err
	}

	next = entry.Clone()
	if next.Plan != plan {
		next.Plan = plan
		changed = true
	}
	if DaysBetween(next.LastResetAt, now) >= ent.PeriodDays {
		next.QuestionCount = 0
		next.LastResetAt = now
		changed = true
	}
	// A downgrade can leave more questions on the books than the new quota.
	if next.QuestionCount > ent.QuestionQuota {
		next.QuestionCount = ent.QuestionQuota
		changed = true
	}
	if next.QuestionCount < 0 {
		next.QuestionCount = 0
		changed = true
	}
	if changed {
		next.UpdatedAt = now
	}

	return next, StatusFor(next, ent), changed, nil
}

// Consume counts one question against the entry's plan. It rolls the period
// over first if it has elapsed and fails with *QuotaExceededError when the
// quota is already used up.
func Consume(entry *UsageLedgerEntry, now time.Time) (*UsageLedgerEntry, UsageRecord, error) {
	ent, err := EntitlementFor(entry.Plan)
	if err != nil {
		return nil, UsageRecord{}, err
	}

	next := entry.Clone()
	if DaysBetween(next.LastResetAt, now) >= ent.PeriodDays {
		next.QuestionCount = 0
		next.LastResetAt = now
	}
	if next.QuestionCount >= ent.QuestionQuota {
		return nil, UsageRecord{}, &QuotaExceededError{
			Limit:     ent.QuestionQuota,
			Used:      next.QuestionCount,
			ResetDate: NextReset(next.LastResetAt, ent),
		}
	}

	next.QuestionCount++
	askedAt := now
	next.LastQuestionAt = &askedAt
	next.UpdatedAt = now

	return next, UsageRecord{
		Remaining: ent.QuestionQuota - next.QuestionCount,
		Used:      next.QuestionCount,
		Limit:     ent.QuestionQuota,
	}, nil
}

// GracePeriod reports whether an account registered at registeredAt is still
// inside the new-account AI lock at now.
func GracePeriod(registeredAt, now time.Time) GraceStatus {
	daysSince := DaysBetween(registeredAt, now)
	if daysSince < GracePeriodDays {
		return GraceStatus{Blocked: true, DaysRemaining: GracePeriodDays - daysSince}
	}
	return GraceStatus{}
}

// IsWithinGracePeriod is GracePeriod(registeredAt, now).Blocked.
func IsWithinGracePeriod(registeredAt, now time.Time) bool {
	return GracePeriod(registeredAt, now).Blocked
}
