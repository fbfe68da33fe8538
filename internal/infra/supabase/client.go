package supabase

import (
	"fmt"

	"finance-advisor-server/internal/domain"

	"github.com/supabase-community/supabase-go"
)

// SupabaseClient implements the domain.SupabaseClient interface
type SupabaseClient struct {
	// auth validates user tokens with the anon key.
	auth *supabase.Client
	// db reads and writes ledger and subscription rows with the service role.
	db     *supabase.Client
	config domain.Config
	logger domain.Logger
}

// NewSupabaseClient creates a new Supabase client instance
func NewSupabaseClient(config domain.Config, logger domain.Logger) domain.SupabaseClient {
	return &SupabaseClient{
		config: config,
		logger: logger,
	}
}

// DB returns the service-role client. It is nil until Initialize succeeds.
func (s *SupabaseClient) DB() *supabase.Client {
	return s.db
}

// Initialize establishes a connection to Supabase
func (s *SupabaseClient) Initialize() error {
	supabaseURL := s.config.GetSupabaseURL()
	anonKey := s.config.GetSupabaseKey()

	if supabaseURL == "" || anonKey == "" {
		return fmt.Errorf("supabase URL and key must be provided")
	}

	auth, err := supabase.NewClient(supabaseURL, anonKey, &supabase.ClientOptions{})
	if err != nil {
		return fmt.Errorf("failed to create Supabase client: %w", err)
	}
	s.auth = auth
	s.db = auth

	serviceKey := s.config.GetSupabaseServiceKey()
	if serviceKey == "" {
		s.logger.Warn("SUPABASE_SERVICE_ROLE_KEY not set, usage ledger writes use the anon key and are subject to RLS")
	} else {
		db, err := supabase.NewClient(supabaseURL, serviceKey, &supabase.ClientOptions{})
		if err != nil {
			return fmt.Errorf("failed to create Supabase service client: %w", err)
		}
		s.db = db
	}

	s.logger.Info("Supabase client initialized successfully", "url", supabaseURL, "service_role", serviceKey != "")
	return nil
}

// ValidateToken validates a Supabase JWT token and returns user info
func (s *SupabaseClient) ValidateToken(token string) (*domain.SupabaseUser, error) {
	if s.auth == nil {
		return nil, fmt.Errorf("Supabase client not initialized")
	}

	// Passing "Authorization" via Supabase client headers does not affect GoTrue requests.
	user, err := s.auth.Auth.WithToken(token).GetUser()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	return &domain.SupabaseUser{
		ID:           user.ID.String(),
		Email:        user.Email,
		UserMetadata: user.UserMetadata,
		CreatedAt:    user.CreatedAt.UTC(),
		UpdatedAt:    user.UpdatedAt.UTC(),
	}, nil
}
