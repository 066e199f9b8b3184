package handlers

import (
	"errors"
	"net/http"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/wonny/finsight/internal/qualitative"
	"github.com/wonny/finsight/pkg/logger"
)

// QualitativeHandler serves scenario projections and Delphi rounds
type QualitativeHandler struct {
	logger *logger.Logger
}

// NewQualitativeHandler creates a new qualitative handler
func NewQualitativeHandler(log *logger.Logger) *QualitativeHandler {
	return &QualitativeHandler{logger: log}
}

// ScenarioRequest projects a base value, and optionally a series, through a scenario set.
// Multipliers overrides the named set when present.
type ScenarioRequest struct {
	Base        float64            `json:"base" validate:"gte=0"`
	Values      []float64          `json:"values,omitempty"`
	Set         string             `json:"set" default:"dashboard" validate:"oneof=dashboard expert"`
	Multipliers map[string]float64 `json:"multipliers,omitempty" validate:"omitempty,dive,gte=0.5,lte=2"`
}

// ScenarioResponse is the body of POST /api/scenarios
type ScenarioResponse struct {
	Projections []qualitative.Projection `json:"projections"`
	Series      map[string][]*float64    `json:"series,omitempty"`
}

// Scenarios applies scenario multipliers to a base value
// POST /api/scenarios
func (h *QualitativeHandler) Scenarios(w http.ResponseWriter, r *http.Request) {
	var req ScenarioRequest
	if errs := decodeAndValidate(r, &req); errs != nil {
		respondValidation(w, errs)
		return
	}

	set := qualitative.DashboardScenarios()
	if req.Set == "expert" {
		set = qualitative.ExpertScenarios()
	}
	if len(req.Multipliers) > 0 {
		names := make([]string, 0, len(req.Multipliers))
		for name := range req.Multipliers {
			names = append(names, name)
		}
		sort.Strings(names)

		set = make(qualitative.Set, len(names))
		for i, name := range names {
			set[i] = qualitative.Scenario{Name: name, Multiplier: decimal.NewFromFloat(req.Multipliers[name])}
		}
	}
	if err := set.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := ScenarioResponse{Projections: set.Project(decimal.NewFromFloat(req.Base))}
	if len(req.Values) > 0 {
		resp.Series = make(map[string][]*float64, len(set))
		for name, vals := range set.ProjectSeries(req.Values) {
			resp.Series[name] = nullable(vals)
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// DelphiRequest records one expert entry against the state of the previous call
type DelphiRequest struct {
	State     *qualitative.State `json:"state,omitempty"`
	Entry     qualitative.Entry  `json:"entry"`
	NextRound bool               `json:"next_round,omitempty"`
}

// DelphiResponse carries the state to send back with the next entry
type DelphiResponse struct {
	State     qualitative.State        `json:"state"`
	Consensus float64                  `json:"consensus"`
	Scenarios []qualitative.Projection `json:"scenarios"`
}

// DelphiRound records an expert estimate and returns the running consensus
// POST /api/delphi/round
func (h *QualitativeHandler) DelphiRound(w http.ResponseWriter, r *http.Request) {
	var req DelphiRequest
	if errs := decodeAndValidate(r, &req); errs != nil {
		respondValidation(w, errs)
		return
	}

	state := qualitative.NewState()
	if req.State != nil {
		state = *req.State
		if state.Estimates == nil {
			state.Estimates = map[string]float64{}
		}
		if state.Confidence == nil {
			state.Confidence = map[string]float64{}
		}
	}
	if req.NextRound {
		state = state.NextRound()
	}

	next, consensus, err := state.Record(req.Entry)
	if err != nil {
		if errors.Is(err, qualitative.ErrInvalidEntry) || errors.Is(err, qualitative.ErrNoConfidence) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.WithError(err).Error("Delphi round failed")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, DelphiResponse{
		State:     next,
		Consensus: consensus,
		Scenarios: qualitative.ExpertScenarios().Project(decimal.NewFromFloat(consensus)),
	})
}
