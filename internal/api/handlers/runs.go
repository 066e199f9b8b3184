package handlers

import (
	"net/http"
	"strconv"

	"github.com/wonny/finsight/internal/contracts"
	"github.com/wonny/finsight/pkg/logger"
)

// RunHandler lists stored forecast and evaluation runs
type RunHandler struct {
	runs   RunStore
	logger *logger.Logger
}

// NewRunHandler creates a new run handler; runs may be nil when no database is configured
func NewRunHandler(runs RunStore, log *logger.Logger) *RunHandler {
	return &RunHandler{runs: runs, logger: log}
}

// List returns the most recent runs
// GET /api/runs?limit=20
func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	runs := []contracts.Run{}
	if h.runs != nil {
		stored, err := h.runs.List(r.Context(), limit)
		if err != nil {
			h.logger.WithError(err).Error("Failed to list runs")
			respondError(w, http.StatusInternalServerError, "failed to list runs")
			return
		}
		if stored != nil {
			runs = stored
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}
