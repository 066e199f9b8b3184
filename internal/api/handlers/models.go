package handlers

import (
	"net/http"

	"github.com/wonny/finsight/internal/contracts"
	"github.com/wonny/finsight/internal/modelconfig"
)

// ModelHandler describes the available models and their configuration
type ModelHandler struct {
	cfg  *modelconfig.Config
	hash string
}

// NewModelHandler creates a new model handler
func NewModelHandler(cfg *modelconfig.Config, hash string) *ModelHandler {
	return &ModelHandler{cfg: cfg, hash: hash}
}

// List returns model labels, the evaluation order and the active configuration
// GET /api/models
func (h *ModelHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"models":           contracts.AllModels(),
		"evaluation_order": contracts.EvaluationOrder(),
		"config":           h.cfg,
		"config_hash":      h.hash,
	})
}
