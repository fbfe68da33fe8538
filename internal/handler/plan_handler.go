package handler

import (
	"net/http"

	"finance-advisor-server/internal/domain"
)

// ListPlans returns the public plan catalog.
func ListPlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"plans": domain.Plans()})
}
