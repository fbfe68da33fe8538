package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"finance-advisor-server/internal/domain"
	apperrors "finance-advisor-server/pkg/errors"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
)

const (
	maxBulkResetUsers    = 500
	bulkResetConcurrency = 8
)

// AdminHandler exposes ledger support tooling. Routes are mounted behind AdminOnly.
type AdminHandler struct {
	usageService domain.UsageService
	logger       domain.Logger
}

func NewAdminHandler(usageService domain.UsageService, logger domain.Logger) *AdminHandler {
	return &AdminHandler{
		usageService: usageService,
		logger:       logger,
	}
}

// GetUsage returns the raw ledger row for a user.
func (h *AdminHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	if userID == "" {
		writeError(w, http.StatusBadRequest, "User id is required")
		return
	}

	entry, err := h.usageService.Ledger(r.Context(), userID)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// ResetUsage zeroes a user's counter and restarts their period.
func (h *AdminHandler) ResetUsage(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	if userID == "" {
		writeError(w, http.StatusBadRequest, "User id is required")
		return
	}

	entry, err := h.usageService.Reset(r.Context(), userID)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	h.logger.Info("Admin reset AI usage", "user_id", userID, "request_id", GetRequestIDFromContext(r))
	writeJSON(w, http.StatusOK, entry)
}

type bulkResetRequest struct {
	UserIDs []string `json:"user_ids"`
}

type bulkResetResult struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// BulkReset resets several users concurrently and reports each outcome.
func (h *AdminHandler) BulkReset(w http.ResponseWriter, r *http.Request) {
	var req bulkResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.UserIDs) == 0 {
		writeError(w, http.StatusBadRequest, "user_ids is required")
		return
	}
	if len(req.UserIDs) > maxBulkResetUsers {
		writeError(w, http.StatusBadRequest, "Too many user_ids")
		return
	}

	results := h.resetAll(r.Context(), req.UserIDs)
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func (h *AdminHandler) resetAll(ctx context.Context, userIDs []string) []bulkResetResult {
	results := make([]bulkResetResult, len(userIDs))
	var mu sync.Mutex
	failed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkResetConcurrency)
	for i, userID := range userIDs {
		i, userID := i, userID
		g.Go(func() error {
			res := bulkResetResult{UserID: userID, Status: "reset"}
			if userID == "" {
				res.Status, res.Error = "failed", "empty user id"
			} else if _, err := h.usageService.Reset(gctx, userID); err != nil {
				res.Status = "failed"
				res.Error = apperrors.FromDomain(err).Message
				if !errors.Is(err, domain.ErrLedgerNotFound) {
					h.logger.Error("Bulk reset failed", err, "user_id", userID)
				}
				mu.Lock()
				failed++
				mu.Unlock()
			}
			results[i] = res
			// Per-user failures are reported, not propagated.
			return nil
		})
	}
	_ = g.Wait()

	h.logger.Info("Admin bulk reset finished", "users", len(userIDs), "failed", failed)
	return results
}
