package handler

import (
	"encoding/json"
	"net/http"

	"finance-advisor-server/internal/domain"
)

const maxAskBodyBytes = 64 << 10

type AIHandler struct {
	aiService   domain.AIService
	authService domain.AuthService
	logger      domain.Logger
}

func NewAIHandler(aiService domain.AIService, authService domain.AuthService, logger domain.Logger) *AIHandler {
	return &AIHandler{
		aiService:   aiService,
		authService: authService,
		logger:      logger,
	}
}

// Ask answers a financial question if the caller's plan admits it.
func (h *AIHandler) Ask(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	var req domain.AskRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAskBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, err := h.authService.Identity(r.Context(), user)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	resp, admission, err := h.aiService.Ask(r.Context(), id, req)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if denied, ok := admission.(domain.Denied); ok {
		h.logger.Info("AI question denied",
			"user_id", id.UserID,
			"reason", denied.Reason,
			"request_id", GetRequestIDFromContext(r),
		)
		writeDenied(w, denied)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
