package domain

import (
	"context"
	"time"
)

// Subscription status values written by the billing webhook.
const (
	SubscriptionActive   = "active"
	SubscriptionTrialing = "trialing"
	SubscriptionCanceled = "canceled"
)

// Subscription is the billing state that decides a user's live plan.
type Subscription struct {
	UserID               string    `json:"user_id"`
	Plan                 PlanTier  `json:"plan"`
	Status               string    `json:"status"`
	StripeCustomerID     string    `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string    `json:"stripe_subscription_id,omitempty"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// EffectivePlan returns the plan the user is entitled to right now.
// Users without a paid, active subscription are on the basic plan.
func (s *Subscription) EffectivePlan() PlanTier {
	if s == nil || !s.Plan.Valid() {
		return PlanBasic
	}
	switch s.Status {
	case SubscriptionActive, SubscriptionTrialing:
		return s.Plan
	default:
		return PlanBasic
	}
}

// SubscriptionRepository stores the plan label produced by billing.
type SubscriptionRepository interface {
	// Get returns nil, nil when the user never subscribed.
	Get(ctx context.Context, userID string) (*Subscription, error)
	// GetByCustomerID returns nil, nil when no user has that Stripe customer.
	GetByCustomerID(ctx context.Context, customerID string) (*Subscription, error)
	Upsert(ctx context.Context, sub *Subscription) error
}

// BillingEventKind is the billing change a webhook reported.
type BillingEventKind string

const (
	BillingCheckoutCompleted   BillingEventKind = "checkout_completed"
	BillingSubscriptionChanged BillingEventKind = "subscription_changed"
	BillingSubscriptionDeleted BillingEventKind = "subscription_deleted"
)

// BillingEvent is a provider-neutral billing change.
type BillingEvent struct {
	Kind           BillingEventKind
	UserID         string
	CustomerID     string
	SubscriptionID string
	// Plan is set when the provider names the plan directly (checkout metadata).
	Plan string
	// PriceID is resolved to a plan through configuration.
	PriceID string
	Status  string
}

// BillingService turns billing events into the stored plan label.
type BillingService interface {
	Apply(ctx context.Context, event BillingEvent) (*Subscription, error)
}
