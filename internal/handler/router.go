package handler

import (
	"net/http"

	"finance-advisor-server/internal/config"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

type middleware = func(http.Handler) http.Handler

// Routes are the handlers and guards mounted by NewRouter.
type Routes struct {
	Auth    *AuthHandler
	Usage   *UsageHandler
	AI      *AIHandler
	Billing *BillingHandler
	Admin   *AdminHandler

	RequireAuth  middleware
	RequireAdmin middleware
	// LimitAI guards the AI routes; nil disables it.
	LimitAI middleware

	AllowedOrigins []string
}

// NewRouterFromContainer wires every handler from the container.
func NewRouterFromContainer(container *config.Container) http.Handler {
	cfg := container.GetConfig()
	log := container.GetLogger()
	rps, burst := cfg.GetAIRateLimit()

	var limitAI middleware
	if rps > 0 {
		limitAI = NewRateLimiter(rps, burst).Middleware
	}

	return NewRouter(Routes{
		Auth:           NewAuthHandler(container.GetAuthService(), container.GetUsageService(), log),
		Usage:          NewUsageHandler(container.GetUsageService(), container.GetAuthService(), log),
		AI:             NewAIHandler(container.GetAIService(), container.GetAuthService(), log),
		Billing:        NewBillingHandler(container.GetBillingService(), cfg.GetStripeWebhookSecret(), log),
		Admin:          NewAdminHandler(container.GetUsageService(), log),
		RequireAuth:    NewAuthMiddleware(container.GetAuthService(), log).Middleware,
		RequireAdmin:   AdminOnly(cfg.GetAdminSecret()),
		LimitAI:        limitAI,
		AllowedOrigins: cfg.GetCORSAllowedOrigins(),
	})
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(routes Routes) http.Handler {
	router := mux.NewRouter()
	router.Use(RequestID)

	// Health check endpoint (no auth required)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"finance-advisor-server"}`))
	}).Methods("GET")

	// API prefix
	api := router.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/plans", ListPlans).Methods("GET")
	api.HandleFunc("/billing/webhook", routes.Billing.Webhook).Methods("POST")

	// Admin routes (X-Admin-Secret)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(routes.RequireAdmin)
	admin.HandleFunc("/users/{id}/usage", routes.Admin.GetUsage).Methods("GET")
	admin.HandleFunc("/users/{id}/usage/reset", routes.Admin.ResetUsage).Methods("POST")
	admin.HandleFunc("/usage/reset", routes.Admin.BulkReset).Methods("POST")

	// Protected routes (require authentication)
	protected := api.PathPrefix("").Subrouter()
	protected.Use(routes.RequireAuth)

	protected.HandleFunc("/auth/profile", routes.Auth.GetProfile).Methods("GET")
	protected.HandleFunc("/auth/validate", routes.Auth.ValidateToken).Methods("GET")

	protected.HandleFunc("/ai/usage", routes.Usage.CheckUsage).Methods("GET")
	protected.HandleFunc("/ai/usage", routes.Usage.RecordUsage).Methods("POST")
	protected.HandleFunc("/ai/grace-period", routes.Usage.GracePeriod).Methods("GET")

	var ask http.Handler = http.HandlerFunc(routes.AI.Ask)
	if routes.LimitAI != nil {
		ask = routes.LimitAI(ask)
	}
	protected.Handle("/ai/ask", ask).Methods("POST")

	// Configure CORS
	c := cors.New(cors.Options{
		AllowedOrigins: routes.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-CSRF-Token",
			"X-Request-ID",
		},
		ExposedHeaders: []string{
			"Link",
			"X-Request-ID",
			"Retry-After",
		},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})

	return c.Handler(router)
}
