package domain

import (
	"sort"
	"strings"
)

// PlanTier identifies a subscription plan.
type PlanTier string

const (
	PlanBasic        PlanTier = "basic"
	PlanProfessional PlanTier = "professional"
	PlanPremium      PlanTier = "premium"
)

// PlanEntitlement is the AI allowance that comes with a plan.
type PlanEntitlement struct {
	Plan          PlanTier `json:"plan" yaml:"plan"`
	DisplayName   string   `json:"display_name" yaml:"display_name"`
	QuestionQuota int      `json:"question_quota" yaml:"question_quota"`
	PeriodDays    int      `json:"period_days" yaml:"period_days"`
	ModelID       string   `json:"model_id" yaml:"model_id"`
	SupportLevel  string   `json:"support_level" yaml:"support_level"`
	// GraceGated plans get no AI access until GracePeriodDays after registration.
	GraceGated bool `json:"grace_gated" yaml:"grace_gated"`
	rank       int
}

var planCatalog = map[PlanTier]PlanEntitlement{
	PlanBasic: {
		Plan:          PlanBasic,
		DisplayName:   "Basic",
		QuestionQuota: 5,
		PeriodDays:    7,
		ModelID:       "gemini-2.0-flash-lite-001",
		SupportLevel:  "community",
		GraceGated:    true,
		rank:          0,
	},
	PlanProfessional: {
		Plan:          PlanProfessional,
		DisplayName:   "Professional",
		QuestionQuota: 7,
		PeriodDays:    7,
		ModelID:       "gemini-2.0-flash-001",
		SupportLevel:  "email",
		rank:          1,
	},
	PlanPremium: {
		Plan:          PlanPremium,
		DisplayName:   "Premium",
		QuestionQuota: 50,
		PeriodDays:    30,
		ModelID:       "gemini-2.5-pro",
		SupportLevel:  "priority",
		rank:          2,
	},
}

// ParsePlan converts a stored or user-supplied plan label to a PlanTier.
func ParsePlan(s string) (PlanTier, error) {
	plan := PlanTier(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := planCatalog[plan]; !ok {
		return "", &InvalidPlanError{Value: s}
	}
	return plan, nil
}

// Valid reports whether the plan is in the catalog.
func (p PlanTier) Valid() bool {
	_, ok := planCatalog[p]
	return ok
}

// EntitlementFor returns the entitlement for a plan.
func EntitlementFor(plan PlanTier) (PlanEntitlement, error) {
	ent, ok := planCatalog[plan]
	if !ok {
		return PlanEntitlement{}, &InvalidPlanError{Value: string(plan)}
	}
	return ent, nil
}

// Plans lists every catalog entry from the lowest tier up.
func Plans() []PlanEntitlement {
	out := make([]PlanEntitlement, 0, len(planCatalog))
	for _, ent := range planCatalog {
		out = append(out, ent)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].rank < out[j].rank })
	return out
}
