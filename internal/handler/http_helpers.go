package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"finance-advisor-server/internal/domain"
	apperrors "finance-advisor-server/pkg/errors"
)

type contextKey string

const (
	userContextKey      contextKey = "user"
	tokenContextKey     contextKey = "token"
	requestIDContextKey contextKey = "request_id"
)

// GetUserFromContext extracts the authenticated user from request context
func GetUserFromContext(r *http.Request) (*domain.SupabaseUser, bool) {
	user, ok := r.Context().Value(userContextKey).(*domain.SupabaseUser)
	return user, ok
}

// GetTokenFromContext extracts the authentication token from request context
func GetTokenFromContext(r *http.Request) (string, bool) {
	token, ok := r.Context().Value(tokenContextKey).(string)
	return token, ok
}

// GetRequestIDFromContext returns the id set by RequestID, or "".
func GetRequestIDFromContext(r *http.Request) string {
	id, _ := r.Context().Value(requestIDContextKey).(string)
	return id
}

// writeError writes an error response (helper function)
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error         string     `json:"error"`
	Type          string     `json:"type"`
	Details       string     `json:"details,omitempty"`
	ResetDate     *time.Time `json:"resetDate,omitempty"`
	DaysRemaining *int       `json:"daysRemaining,omitempty"`
	Remaining     *int       `json:"remaining,omitempty"`
	Used          *int       `json:"used,omitempty"`
	Limit         *int       `json:"limit,omitempty"`
	Plan          string     `json:"plan,omitempty"`
}

// writeAppError maps err through the error taxonomy and writes it.
// Internal causes are logged, never returned to the client.
func writeAppError(w http.ResponseWriter, r *http.Request, logger domain.Logger, err error) {
	appErr := apperrors.FromDomain(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		logger.Error("Request failed", err,
			"path", r.URL.Path,
			"request_id", GetRequestIDFromContext(r),
		)
	}
	writeJSON(w, appErr.StatusCode, errorResponse{
		Error:         appErr.Message,
		Type:          string(appErr.Type),
		Details:       appErr.Details,
		ResetDate:     appErr.ResetDate,
		DaysRemaining: appErr.DaysRemaining,
	})
}

// writeDenied renders an admission denial as 403 (grace) or 429 (quota).
func writeDenied(w http.ResponseWriter, denied domain.Denied) {
	var appErr *apperrors.AppError
	switch {
	case denied.Reason == domain.DenialGracePeriod && denied.Grace != nil:
		appErr = apperrors.NewGracePeriodError(denied.Grace.DaysRemaining)
	case denied.Status != nil:
		appErr = apperrors.NewQuotaExceededError(denied.Status.Limit, denied.Status.ResetDate)
	default:
		appErr = apperrors.NewQuotaExceededError(0, time.Time{})
	}
	body := errorResponse{
		Error:         appErr.Message,
		Type:          string(appErr.Type),
		ResetDate:     appErr.ResetDate,
		DaysRemaining: appErr.DaysRemaining,
	}
	if st := denied.Status; st != nil {
		remaining, used, limit := st.Remaining, st.Used, st.Limit
		body.Remaining = &remaining
		body.Used = &used
		body.Limit = &limit
		body.Plan = string(st.Plan)
	}
	writeJSON(w, appErr.StatusCode, body)
}
