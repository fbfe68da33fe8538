package config

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"finance-advisor-server/internal/domain"
	"finance-advisor-server/internal/infra/gemini"
	"finance-advisor-server/internal/infra/supabase"
	"finance-advisor-server/internal/infra/vertex"
	"finance-advisor-server/internal/repository"
	"finance-advisor-server/internal/service"
	"finance-advisor-server/pkg/logger"
)

// Container holds all application dependencies
type Container struct {
	Config                 domain.Config
	Logger                 domain.Logger
	SupabaseClient         domain.SupabaseClient
	UsageRepository        domain.UsageLedgerRepository
	SubscriptionRepository domain.SubscriptionRepository
	Completer              domain.Completer
	UsageService           domain.UsageService
	AuthService            domain.AuthService
	AIService              domain.AIService
	BillingService         domain.BillingService

	closers []io.Closer
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context) (*Container, error) {
	return NewContainerWithConfig(ctx, NewConfig())
}

// NewContainerWithConfig wires every dependency from an explicit config.
func NewContainerWithConfig(ctx context.Context, cfg domain.Config) (*Container, error) {
	appLogger := logger.NewLogger(cfg.GetLogLevel(), cfg.GetLogFormat())
	c := &Container{Config: cfg, Logger: appLogger}

	supabaseClient := supabase.NewSupabaseClient(cfg, appLogger)
	if cfg.GetSupabaseURL() != "" {
		if err := supabaseClient.Initialize(); err != nil {
			return nil, fmt.Errorf("failed to initialize supabase client: %w", err)
		}
	} else {
		appLogger.Warn("SUPABASE_URL not set, token validation will fail")
	}
	c.SupabaseClient = supabaseClient

	if err := c.initRepositories(ctx, supabaseClient); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initCompleter(ctx); err != nil {
		c.Close()
		return nil, err
	}

	usageService := service.NewUsageService(c.UsageRepository, appLogger)
	authService := service.NewAuthService(supabaseClient, c.SubscriptionRepository, appLogger)
	c.UsageService = usageService
	c.AuthService = authService
	c.AIService = service.NewAIService(usageService, c.Completer, appLogger)
	c.BillingService = service.NewBillingService(
		c.SubscriptionRepository,
		cfg.GetStripePriceIDs(),
		authService.InvalidatePlan,
		appLogger,
	)

	appLogger.Info("Container initialized",
		"ledger_backend", cfg.GetLedgerBackend(),
		"ai_provider", cfg.GetAIProvider(),
	)
	return c, nil
}

func (c *Container) initRepositories(ctx context.Context, supabaseClient domain.SupabaseClient) error {
	cfg := c.Config
	switch cfg.GetLedgerBackend() {
	case BackendSupabase:
		c.UsageRepository = repository.NewSupabaseUsageRepository(supabaseClient, c.Logger)
		c.SubscriptionRepository = repository.NewSupabaseSubscriptionRepository(supabaseClient, c.Logger)
	case BackendPostgres:
		if cfg.GetDatabaseURL() == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres ledger backend")
		}
		db, err := sql.Open("postgres", cfg.GetDatabaseURL())
		if err != nil {
			return fmt.Errorf("failed to open postgres: %w", err)
		}
		c.closers = append(c.closers, db)
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("failed to reach postgres: %w", err)
		}
		usageRepo := repository.NewPostgresUsageRepository(db, c.Logger)
		if err := usageRepo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to ensure ledger schema: %w", err)
		}
		c.UsageRepository = usageRepo
		c.SubscriptionRepository = repository.NewPostgresSubscriptionRepository(db)
	case BackendRedis:
		redisRepo := repository.NewRedisUsageRepository(cfg.GetRedisAddr(), cfg.GetRedisPassword(), cfg.GetRedisDB(), c.Logger)
		c.closers = append(c.closers, redisRepo)
		if err := redisRepo.Ping(ctx); err != nil {
			return fmt.Errorf("failed to reach redis: %w", err)
		}
		c.UsageRepository = redisRepo
		// Billing state stays in Supabase; Redis only holds counters.
		c.SubscriptionRepository = repository.NewSupabaseSubscriptionRepository(supabaseClient, c.Logger)
	case BackendMemory:
		c.Logger.Warn("Using in-memory ledger, usage is lost on restart")
		c.UsageRepository = repository.NewMemoryUsageRepository()
		c.SubscriptionRepository = repository.NewMemorySubscriptionRepository()
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q", cfg.GetLedgerBackend())
	}
	return nil
}

func (c *Container) initCompleter(ctx context.Context) error {
	cfg := c.Config
	switch cfg.GetAIProvider() {
	case ProviderVertex:
		if cfg.GetGCPProjectID() == "" {
			c.Logger.Warn("GCP_PROJECT_ID not set, AI requests will return 503")
			return nil
		}
		completer, err := vertex.NewCompleter(ctx, cfg.GetGCPProjectID(), cfg.GetGCPLocation(), c.Logger)
		if err != nil {
			return fmt.Errorf("failed to create vertex completer: %w", err)
		}
		c.closers = append(c.closers, completer)
		c.Completer = completer
	case ProviderGemini:
		if cfg.GetGeminiAPIKey() == "" {
			c.Logger.Warn("GEMINI_API_KEY not set, AI requests will return 503")
			return nil
		}
		completer, err := gemini.NewCompleter(ctx, cfg.GetGeminiAPIKey(), c.Logger)
		if err != nil {
			return fmt.Errorf("failed to create gemini completer: %w", err)
		}
		c.closers = append(c.closers, completer)
		c.Completer = completer
	case ProviderNone:
		c.Logger.Info("AI provider disabled")
	default:
		return fmt.Errorf("unknown AI_PROVIDER %q", cfg.GetAIProvider())
	}
	return nil
}

// Close releases database connections and AI clients.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			c.Logger.Error("Failed to close dependency", err)
		}
	}
	c.closers = nil
}

// GetConfig returns the configuration instance
func (c *Container) GetConfig() domain.Config {
	return c.Config
}

// GetLogger returns the logger instance
func (c *Container) GetLogger() domain.Logger {
	return c.Logger
}

// GetSupabaseClient returns the Supabase client instance
func (c *Container) GetSupabaseClient() domain.SupabaseClient {
	return c.SupabaseClient
}

// GetUsageService returns the entitlement service
func (c *Container) GetUsageService() domain.UsageService {
	return c.UsageService
}

// GetAuthService returns the auth service
func (c *Container) GetAuthService() domain.AuthService {
	return c.AuthService
}

// GetAIService returns the gated advisor service
func (c *Container) GetAIService() domain.AIService {
	return c.AIService
}

// GetBillingService returns the billing service
func (c *Container) GetBillingService() domain.BillingService {
	return c.BillingService
}
