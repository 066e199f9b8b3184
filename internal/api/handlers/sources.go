package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/finsight/internal/contracts"
	"github.com/wonny/finsight/internal/external/vendor"
	"github.com/wonny/finsight/internal/ingest"
	"github.com/wonny/finsight/pkg/logger"
)

// SourceLoader loads a named source table (ingest.Loader implements it)
type SourceLoader interface {
	Load(ctx context.Context, source string, params map[string]string) (*contracts.Table, error)
}

// SourceHandler exposes the web data sources
type SourceHandler struct {
	loader SourceLoader
	logger *logger.Logger
}

// NewSourceHandler creates a new source handler
func NewSourceHandler(loader SourceLoader, log *logger.Logger) *SourceHandler {
	return &SourceHandler{loader: loader, logger: log}
}

// SourceResponse wraps a fetched table; Table is null when the source had nothing
type SourceResponse struct {
	Source  string           `json:"source"`
	Table   *contracts.Table `json:"table"`
	Message string           `json:"message,omitempty"`
}

// List returns the supported web source ids
// GET /api/sources
func (h *SourceHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sources": vendor.Sources(),
	})
}

// Fetch loads a web source; every query parameter is passed through
// GET /api/sources/{source}?ticker=RELIANCE
func (h *SourceHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	source := mux.Vars(r)["source"]
	if ingest.IsFileSource(source) {
		respondError(w, http.StatusBadRequest, "file sources are uploaded to /api/forecast, not fetched")
		return
	}

	params := make(map[string]string)
	for key, vals := range r.URL.Query() {
		if len(vals) > 0 {
			params[key] = vals[0]
		}
	}

	table, err := h.loader.Load(r.Context(), source, params)
	if err != nil {
		if errors.Is(err, vendor.ErrUnsupportedSource) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.WithError(err).WithField("source", source).Error("Source fetch failed")
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	resp := SourceResponse{Source: source, Table: table}
	if table == nil {
		resp.Message = "source returned no data"
	}
	respondJSON(w, http.StatusOK, resp)
}
