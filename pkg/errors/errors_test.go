package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance-advisor-server/internal/domain"
)

func TestFromDomain_StatusCodes(t *testing.T) {
	reset := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   ErrorType
	}{
		{"quota", &domain.QuotaExceededError{Limit: 5, Used: 5, ResetDate: reset}, http.StatusTooManyRequests, ErrorTypeQuotaExceeded},
		{"wrapped quota", fmt.Errorf("record usage: %w", &domain.QuotaExceededError{Limit: 5, Used: 5, ResetDate: reset}), http.StatusTooManyRequests, ErrorTypeQuotaExceeded},
		{"grace", &domain.GracePeriodError{DaysRemaining: 12}, http.StatusForbidden, ErrorTypeGracePeriod},
		{"invalid plan", &domain.InvalidPlanError{Value: "gold"}, http.StatusBadRequest, ErrorTypeValidation},
		{"ledger not found", domain.ErrLedgerNotFound, http.StatusNotFound, ErrorTypeNotFound},
		{"storage", domain.NewStorageError("load", stderrors.New("dial tcp: refused")), http.StatusInternalServerError, ErrorTypeInternal},
		{"ai unavailable", domain.ErrAIUnavailable, http.StatusServiceUnavailable, ErrorTypeUnavailable},
		{"completion failed", fmt.Errorf("%w: deadline", domain.ErrCompletionFailed), http.StatusBadGateway, ErrorTypeUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := FromDomain(tt.err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.wantStatus, appErr.StatusCode)
			assert.Equal(t, tt.wantType, appErr.Type)
			assert.Equal(t, tt.wantStatus, GetStatusCode(appErr))
		})
	}
}

func TestFromDomain_QuotaCarriesResetDate(t *testing.T) {
	reset := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)
	appErr := FromDomain(&domain.QuotaExceededError{Limit: 5, Used: 5, ResetDate: reset})

	require.NotNil(t, appErr.ResetDate)
	assert.True(t, appErr.ResetDate.Equal(reset))
	assert.True(t, stderrors.Is(appErr, domain.ErrQuotaExceeded))
}

func TestFromDomain_StorageHidesCause(t *testing.T) {
	appErr := FromDomain(domain.NewStorageError("save", stderrors.New("password authentication failed")))

	assert.NotContains(t, appErr.Message, "password")
	assert.Empty(t, appErr.Details)
}

func TestFromDomain_Nil(t *testing.T) {
	assert.Nil(t, FromDomain(nil))
}

func TestIsType(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewNotFoundError("missing"))
	assert.True(t, IsType(err, ErrorTypeNotFound))
	assert.False(t, IsType(err, ErrorTypeInternal))
	assert.Equal(t, http.StatusInternalServerError, GetStatusCode(stderrors.New("plain")))
}
