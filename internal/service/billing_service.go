package service

import (
	"context"
	"time"

	"finance-advisor-server/internal/domain"
)

type billingService struct {
	subscriptions domain.SubscriptionRepository
	priceIDs      map[string]domain.PlanTier
	// onChange is told about every user whose plan changed.
	onChange func(userID string)
	logger   domain.Logger
}

func NewBillingService(
	subscriptions domain.SubscriptionRepository,
	priceIDs map[string]domain.PlanTier,
	onChange func(userID string),
	logger domain.Logger,
) *billingService {
	if onChange == nil {
		onChange = func(string) {}
	}
	return &billingService{
		subscriptions: subscriptions,
		priceIDs:      priceIDs,
		onChange:      onChange,
		logger:        logger,
	}
}

// Apply records the plan implied by a billing event. Events without a user id
// are matched to a user by the Stripe customer stored at checkout. Events that
// cannot be tied to a user or a plan are ignored and return nil, nil.
func (s *billingService) Apply(ctx context.Context, event domain.BillingEvent) (*domain.Subscription, error) {
	if event.UserID == "" && event.CustomerID != "" {
		known, err := s.subscriptions.GetByCustomerID(ctx, event.CustomerID)
		if err != nil {
			return nil, err
		}
		if known != nil {
			event.UserID = known.UserID
		}
	}
	if event.UserID == "" {
		s.logger.Warn("Billing event without user id ignored", "kind", event.Kind, "customer_id", event.CustomerID)
		return nil, nil
	}

	sub := &domain.Subscription{
		UserID:               event.UserID,
		StripeCustomerID:     event.CustomerID,
		StripeSubscriptionID: event.SubscriptionID,
		UpdatedAt:            time.Now().UTC(),
	}

	switch event.Kind {
	case domain.BillingCheckoutCompleted:
		plan, err := domain.ParsePlan(event.Plan)
		if err != nil {
			plan, err = s.planForPrice(event.PriceID)
		}
		if err != nil {
			s.logger.Warn("Checkout without a known plan ignored", "user_id", event.UserID, "plan", event.Plan)
			return nil, nil
		}
		sub.Plan = plan
		sub.Status = domain.SubscriptionActive

	case domain.BillingSubscriptionChanged:
		plan, err := s.planForPrice(event.PriceID)
		if err != nil {
			s.logger.Warn("Subscription with unknown price ignored", "user_id", event.UserID, "price_id", event.PriceID)
			return nil, nil
		}
		sub.Plan = plan
		sub.Status = event.Status

	case domain.BillingSubscriptionDeleted:
		sub.Plan = domain.PlanBasic
		sub.Status = domain.SubscriptionCanceled

	default:
		return nil, nil
	}

	if err := s.subscriptions.Upsert(ctx, sub); err != nil {
		return nil, err
	}
	s.onChange(sub.UserID)

	s.logger.Info("Plan updated from billing", "user_id", sub.UserID, "plan", sub.Plan, "status", sub.Status, "effective_plan", sub.EffectivePlan())
	return sub, nil
}

func (s *billingService) planForPrice(priceID string) (domain.PlanTier, error) {
	if plan, ok := s.priceIDs[priceID]; ok && priceID != "" {
		return plan, nil
	}
	return "", &domain.InvalidPlanError{Value: priceID}
}
