package domain

// Logger defines the interface for logging operations
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
}

// Config defines the interface for configuration management
type Config interface {
	GetServerPort() string
	GetLogLevel() string
	GetLogFormat() string
	GetSupabaseURL() string
	GetSupabaseKey() string
	GetSupabaseServiceKey() string
	GetLedgerBackend() string
	GetDatabaseURL() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetAIProvider() string
	GetGCPProjectID() string
	GetGCPLocation() string
	GetGeminiAPIKey() string
	GetStripeWebhookSecret() string
	GetStripePriceIDs() map[string]PlanTier
	GetAdminSecret() string
	GetCORSAllowedOrigins() []string
	GetAIRateLimit() (rps float64, burst int)
}
