package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"finance-advisor-server/internal/domain"
)

const planCacheTTL = 30 * time.Second

type planCacheEntry struct {
	plan      domain.PlanTier
	expiresAt time.Time
}

type authService struct {
	supabaseClient domain.SupabaseClient
	subscriptions  domain.SubscriptionRepository
	logger         domain.Logger

	planCacheMu sync.RWMutex
	planCache   map[string]planCacheEntry
}

func NewAuthService(
	supabaseClient domain.SupabaseClient,
	subscriptions domain.SubscriptionRepository,
	logger domain.Logger,
) *authService {
	return &authService{
		supabaseClient: supabaseClient,
		subscriptions:  subscriptions,
		logger:         logger,
		planCache:      make(map[string]planCacheEntry),
	}
}

// ValidateToken validates a token and returns user info
func (s *authService) ValidateToken(token string) (*domain.SupabaseUser, error) {
	user, err := s.supabaseClient.ValidateToken(token)
	if err != nil {
		s.logger.Error("Failed to validate token with Supabase", err)
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return user, nil
}

// Identity combines the authenticated user with their live plan. The
// registration date is the Supabase account creation time.
func (s *authService) Identity(ctx context.Context, user *domain.SupabaseUser) (domain.Identity, error) {
	plan, err := s.livePlan(ctx, user.ID)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{
		UserID:       user.ID,
		Plan:         plan,
		RegisteredAt: user.CreatedAt,
	}, nil
}

// InvalidatePlan drops the cached plan after a billing change.
func (s *authService) InvalidatePlan(userID string) {
	s.planCacheMu.Lock()
	delete(s.planCache, userID)
	s.planCacheMu.Unlock()
}

func (s *authService) livePlan(ctx context.Context, userID string) (domain.PlanTier, error) {
	now := time.Now()
	s.planCacheMu.RLock()
	entry, ok := s.planCache[userID]
	s.planCacheMu.RUnlock()
	if ok && now.Before(entry.expiresAt) {
		return entry.plan, nil
	}

	sub, err := s.subscriptions.Get(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load subscription: %w", err)
	}
	plan := sub.EffectivePlan()

	s.planCacheMu.Lock()
	s.planCache[userID] = planCacheEntry{plan: plan, expiresAt: now.Add(planCacheTTL)}
	s.planCacheMu.Unlock()

	return plan, nil
}
