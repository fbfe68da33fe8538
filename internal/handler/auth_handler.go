package handler

import (
	"net/http"

	"finance-advisor-server/internal/domain"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	authService  domain.AuthService
	usageService domain.UsageService
	logger       domain.Logger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService domain.AuthService, usageService domain.UsageService, logger domain.Logger) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		usageService: usageService,
		logger:       logger,
	}
}

// GetProfile returns the current user together with their plan, grace
// status and allowance.
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	id, err := h.authService.Identity(r.Context(), user)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	ent, err := domain.EntitlementFor(id.Plan)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	profile := domain.UserProfile{
		User:  user,
		Plan:  ent,
		Grace: h.usageService.CheckGracePeriod(id.Plan, id.RegisteredAt),
	}
	status, err := h.usageService.CheckUsage(r.Context(), id.UserID, id.Plan)
	if err != nil {
		// The profile is still useful without the counter.
		h.logger.Warn("Profile usage lookup failed", "user_id", id.UserID, "error", err.Error())
	} else {
		profile.Usage = status
	}

	writeJSON(w, http.StatusOK, profile)
}

// ValidateToken echoes the authenticated user.
func (h *AuthHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
