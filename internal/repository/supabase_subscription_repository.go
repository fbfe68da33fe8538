package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"finance-advisor-server/internal/domain"
)

const subscriptionTable = "user_subscriptions"

// SupabaseSubscriptionRepository implements domain.SubscriptionRepository
type SupabaseSubscriptionRepository struct {
	supabaseClient domain.SupabaseClient
	logger         domain.Logger
}

// NewSupabaseSubscriptionRepository creates a new Supabase subscription repository
func NewSupabaseSubscriptionRepository(supabaseClient domain.SupabaseClient, logger domain.Logger) domain.SubscriptionRepository {
	return &SupabaseSubscriptionRepository{
		supabaseClient: supabaseClient,
		logger:         logger,
	}
}

// Get retrieves the billing row for a user
func (r *SupabaseSubscriptionRepository) Get(ctx context.Context, userID string) (*domain.Subscription, error) {
	return r.getBy("user_id", userID)
}

// GetByCustomerID retrieves the billing row that checkout linked to a Stripe customer
func (r *SupabaseSubscriptionRepository) GetByCustomerID(ctx context.Context, customerID string) (*domain.Subscription, error) {
	return r.getBy("stripe_customer_id", customerID)
}

func (r *SupabaseSubscriptionRepository) getBy(column, value string) (*domain.Subscription, error) {
	client := r.supabaseClient.DB()
	if client == nil {
		return nil, domain.NewStorageError("get subscription", fmt.Errorf("supabase client not initialized"))
	}

	data, _, err := client.From(subscriptionTable).
		Select("*", "", false).
		Eq(column, value).
		Limit(1, "").
		Execute()
	if err != nil {
		return nil, domain.NewStorageError("get subscription", err)
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, domain.NewStorageError("get subscription", fmt.Errorf("failed to unmarshal response: %w", err))
	}
	if len(rows) == 0 {
		return nil, nil
	}

	return mapToSubscription(rows[0]), nil
}

// Upsert inserts or replaces the billing row for a user
func (r *SupabaseSubscriptionRepository) Upsert(ctx context.Context, sub *domain.Subscription) error {
	client := r.supabaseClient.DB()
	if client == nil {
		return domain.NewStorageError("upsert subscription", fmt.Errorf("supabase client not initialized"))
	}

	data := map[string]interface{}{
		"user_id":                sub.UserID,
		"plan":                   string(sub.Plan),
		"status":                 sub.Status,
		"stripe_customer_id":     sub.StripeCustomerID,
		"stripe_subscription_id": sub.StripeSubscriptionID,
		"updated_at":             formatTimestamp(sub.UpdatedAt),
	}

	_, _, err := client.From(subscriptionTable).
		Upsert(data, "user_id", "", "").
		Execute()
	if err != nil {
		return domain.NewStorageError("upsert subscription", err)
	}

	r.logger.Info("Subscription updated", "user_id", sub.UserID, "plan", sub.Plan, "status", sub.Status)
	return nil
}

// mapToSubscription converts a row to a Subscription. Unknown plan labels are
// kept as-is; EffectivePlan treats them as basic.
func mapToSubscription(data map[string]interface{}) *domain.Subscription {
	return &domain.Subscription{
		UserID:               getString(data, "user_id"),
		Plan:                 domain.PlanTier(getString(data, "plan")),
		Status:               getString(data, "status"),
		StripeCustomerID:     getString(data, "stripe_customer_id"),
		StripeSubscriptionID: getString(data, "stripe_subscription_id"),
		UpdatedAt:            getTime(data, "updated_at"),
	}
}

// Helper functions for type conversion
func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok && val != nil {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func getTime(data map[string]interface{}, key string) time.Time {
	if str := getString(data, key); str != "" {
		if t, err := time.Parse(time.RFC3339Nano, str); err == nil {
			return t
		}
	}
	return time.Time{}
}
