package domain

import (
	"context"
	"time"
)

// SupabaseUser represents a user from Supabase Auth
type SupabaseUser struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// UserProfile is the authenticated user together with their live plan.
type UserProfile struct {
	User  *SupabaseUser   `json:"user"`
	Plan  PlanEntitlement `json:"plan"`
	Grace GraceStatus     `json:"grace_period"`
	Usage *UsageStatus    `json:"usage,omitempty"`
}

// AuthService resolves bearer tokens and identities.
type AuthService interface {
	ValidateToken(token string) (*SupabaseUser, error)
	// Identity combines the auth user with the plan from billing.
	Identity(ctx context.Context, user *SupabaseUser) (Identity, error)
}
