package handler

import (
	"net/http"

	"finance-advisor-server/internal/domain"
)

// UsageHandler exposes the entitlement checks to the client.
type UsageHandler struct {
	usageService domain.UsageService
	authService  domain.AuthService
	logger       domain.Logger
}

func NewUsageHandler(usageService domain.UsageService, authService domain.AuthService, logger domain.Logger) *UsageHandler {
	return &UsageHandler{
		usageService: usageService,
		authService:  authService,
		logger:       logger,
	}
}

func (h *UsageHandler) identity(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return domain.Identity{}, false
	}
	id, err := h.authService.Identity(r.Context(), user)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return domain.Identity{}, false
	}
	return id, true
}

// CheckUsage reports the caller's allowance. A spent allowance is answered
// with 429 and the same body so clients can render the countdown.
func (h *UsageHandler) CheckUsage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	status, err := h.usageService.CheckUsage(r.Context(), id.UserID, id.Plan)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	code := http.StatusOK
	if !status.Allowed {
		code = http.StatusTooManyRequests
	}
	writeJSON(w, code, status)
}

// RecordUsage counts one question against the caller's allowance.
func (h *UsageHandler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	record, err := h.usageService.RecordUsage(r.Context(), user.ID)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// GracePeriod reports whether the caller's account is still AI-locked.
func (h *UsageHandler) GracePeriod(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.usageService.CheckGracePeriod(id.Plan, id.RegisteredAt))
}
