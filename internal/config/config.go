package config

import (
	"os"
	"strconv"
	"strings"

	"finance-advisor-server/internal/domain"
)

// Ledger backends selectable with LEDGER_BACKEND.
const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// AI providers selectable with AI_PROVIDER.
const (
	ProviderVertex = "vertex"
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

// AppConfig implements the domain.Config interface
type AppConfig struct {
	ServerPort string
	LogLevel   string
	LogFormat  string

	SupabaseURL        string
	SupabaseKey        string
	SupabaseServiceKey string

	LedgerBackend string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AIProvider   string
	GCPProjectID string
	GCPLocation  string
	GeminiAPIKey string

	StripeWebhookSecret string
	StripePriceIDs      map[string]domain.PlanTier

	AdminSecret        string
	CORSAllowedOrigins []string
	AIRateLimitRPS     float64
	AIRateLimitBurst   int
}

// NewConfig creates a new configuration instance with default values
func NewConfig() domain.Config {
	return &AppConfig{
		// Cloud Run (and many PaaS) provide the listening port via PORT.
		// Keep SERVER_PORT for local/dev compatibility.
		ServerPort: getEnvOrDefault("PORT", getEnvOrDefault("SERVER_PORT", "8080")),
		LogLevel:   getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:  getEnvOrDefault("LOG_FORMAT", "text"),

		SupabaseURL:        getEnvOrDefault("SUPABASE_URL", ""),
		SupabaseKey:        getEnvOrDefault("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnvOrDefault("SUPABASE_SERVICE_ROLE_KEY", ""),

		LedgerBackend: strings.ToLower(getEnvOrDefault("LEDGER_BACKEND", BackendSupabase)),
		DatabaseURL:   getEnvOrDefault("DATABASE_URL", ""),
		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:       getEnvIntOrDefault("REDIS_DB", 0),

		AIProvider:   strings.ToLower(getEnvOrDefault("AI_PROVIDER", ProviderVertex)),
		GCPProjectID: getEnvOrDefault("GCP_PROJECT_ID", ""),
		GCPLocation:  getEnvOrDefault("GCP_LOCATION", "us-central1"),
		GeminiAPIKey: getEnvOrDefault("GEMINI_API_KEY", ""),

		StripeWebhookSecret: getEnvOrDefault("STRIPE_WEBHOOK_SECRET", ""),
		StripePriceIDs:      stripePriceIDs(),

		AdminSecret: getEnvOrDefault("ADMIN_API_SECRET", ""),
		CORSAllowedOrigins: getEnvListOrDefault("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173", // SvelteKit dev server
			"http://localhost:4173", // SvelteKit preview
			"http://localhost:3000", // Alternative dev port
		}),
		AIRateLimitRPS:   getEnvFloatOrDefault("AI_RATE_LIMIT_RPS", 1),
		AIRateLimitBurst: getEnvIntOrDefault("AI_RATE_LIMIT_BURST", 5),
	}
}

func stripePriceIDs() map[string]domain.PlanTier {
	ids := make(map[string]domain.PlanTier)
	if id := os.Getenv("STRIPE_PRICE_PROFESSIONAL"); id != "" {
		ids[id] = domain.PlanProfessional
	}
	if id := os.Getenv("STRIPE_PRICE_PREMIUM"); id != "" {
		ids[id] = domain.PlanPremium
	}
	return ids
}

// GetServerPort returns the server port
func (c *AppConfig) GetServerPort() string {
	return c.ServerPort
}

// GetLogLevel returns the logging level
func (c *AppConfig) GetLogLevel() string {
	return c.LogLevel
}

// GetLogFormat returns "text" or "json"
func (c *AppConfig) GetLogFormat() string {
	return c.LogFormat
}

// GetSupabaseURL returns the Supabase URL
func (c *AppConfig) GetSupabaseURL() string {
	return c.SupabaseURL
}

// GetSupabaseKey returns the Supabase anon key
func (c *AppConfig) GetSupabaseKey() string {
	return c.SupabaseKey
}

// GetSupabaseServiceKey returns the Supabase service role key
func (c *AppConfig) GetSupabaseServiceKey() string {
	return c.SupabaseServiceKey
}

func (c *AppConfig) GetLedgerBackend() string {
	return c.LedgerBackend
}

func (c *AppConfig) GetDatabaseURL() string {
	return c.DatabaseURL
}

func (c *AppConfig) GetRedisAddr() string {
	return c.RedisAddr
}

func (c *AppConfig) GetRedisPassword() string {
	return c.RedisPassword
}

func (c *AppConfig) GetRedisDB() int {
	return c.RedisDB
}

func (c *AppConfig) GetAIProvider() string {
	return c.AIProvider
}

func (c *AppConfig) GetGCPProjectID() string {
	return c.GCPProjectID
}

func (c *AppConfig) GetGCPLocation() string {
	return c.GCPLocation
}

func (c *AppConfig) GetGeminiAPIKey() string {
	return c.GeminiAPIKey
}

func (c *AppConfig) GetStripeWebhookSecret() string {
	return c.StripeWebhookSecret
}

// GetStripePriceIDs maps Stripe price ids to plans
func (c *AppConfig) GetStripePriceIDs() map[string]domain.PlanTier {
	return c.StripePriceIDs
}

func (c *AppConfig) GetAdminSecret() string {
	return c.AdminSecret
}

func (c *AppConfig) GetCORSAllowedOrigins() []string {
	return c.CORSAllowedOrigins
}

// GetAIRateLimit returns the per-client request rate for AI routes
func (c *AppConfig) GetAIRateLimit() (float64, int) {
	return c.AIRateLimitRPS, c.AIRateLimitBurst
}

// Helper functions for environment variable handling
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
