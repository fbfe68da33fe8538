package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"finance-advisor-server/internal/domain"
)

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, http.StatusTeapot, "nope")

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected content type application/json, got %s", ct)
	}
	if strings.TrimSpace(rr.Body.String()) != `{"error":"nope"}` {
		t.Fatalf("unexpected response body: %s", rr.Body.String())
	}
}

func TestWriteAppError_StorageDetailsNotLeaked(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ai/usage", nil)
	err := domain.NewStorageError("load", errors.New("pq: password authentication failed"))

	writeAppError(rr, req, NewMockHandlerLogger(), err)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rr.Code)
	}
	if strings.Contains(rr.Body.String(), "password") {
		t.Fatalf("storage cause leaked: %s", rr.Body.String())
	}
}

func TestWriteAppError_QuotaCarriesResetDate(t *testing.T) {
	reset := time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ai/usage", nil)
	err := fmt.Errorf("record: %w", &domain.QuotaExceededError{Limit: 5, Used: 5, ResetDate: reset})

	writeAppError(rr, req, NewMockHandlerLogger(), err)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d, got %d", http.StatusTooManyRequests, rr.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.ResetDate == nil || !body.ResetDate.Equal(reset) {
		t.Fatalf("expected reset date %v, got %v", reset, body.ResetDate)
	}
	if body.Type != "quota_exceeded" {
		t.Fatalf("expected type quota_exceeded, got %s", body.Type)
	}
}

func TestWriteDenied_GracePeriod(t *testing.T) {
	rr := httptest.NewRecorder()
	writeDenied(rr, domain.Denied{
		Reason: domain.DenialGracePeriod,
		Grace:  &domain.GraceStatus{Blocked: true, DaysRemaining: 12},
	})

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"daysRemaining":12`) {
		t.Fatalf("unexpected response body: %s", rr.Body.String())
	}
}

// createContextWithUser attaches an authenticated user the way AuthMiddleware does.
func createContextWithUser(r *http.Request, user *domain.SupabaseUser) *http.Request {
	ctx := context.WithValue(r.Context(), userContextKey, user)
	ctx = context.WithValue(ctx, tokenContextKey, "test-token")
	return r.WithContext(ctx)
}
