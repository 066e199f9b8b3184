package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/finsight/internal/contracts"
	"github.com/wonny/finsight/internal/dataset"
	"github.com/wonny/finsight/internal/forecast"
	"github.com/wonny/finsight/internal/ingest"
	"github.com/wonny/finsight/internal/models"
	"github.com/wonny/finsight/internal/qualitative"
	"github.com/wonny/finsight/pkg/logger"
)

// RunStore persists request summaries (history.Repository implements it)
type RunStore interface {
	Save(ctx context.Context, run *contracts.Run) error
	List(ctx context.Context, limit int) ([]contracts.Run, error)
}

// ForecastDefaults are applied when a request leaves a field empty
type ForecastDefaults struct {
	Target    string
	Horizon   int
	MaxUpload int64

	// AllowedOrigins lists cross-site origins accepted by the evaluation stream.
	// Same-host origins are always accepted; "*" accepts any origin.
	AllowedOrigins []string
}

// ForecastHandler handles forecast and evaluation endpoints
// ⭐ SSOT: forecast API handlers live in this struct only
type ForecastHandler struct {
	engine     *forecast.Engine
	runs       RunStore
	configHash string
	defaults   ForecastDefaults
	upgrader   websocket.Upgrader
	logger     *logger.Logger
}

// NewForecastHandler creates a new forecast handler; runs may be nil
func NewForecastHandler(
	engine *forecast.Engine,
	runs RunStore,
	configHash string,
	defaults ForecastDefaults,
	log *logger.Logger,
) *ForecastHandler {
	if defaults.MaxUpload <= 0 {
		defaults.MaxUpload = 20 << 20
	}
	return &ForecastHandler{
		engine:     engine,
		runs:       runs,
		configHash: configHash,
		defaults:   defaults,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originPolicy(defaults.AllowedOrigins),
		},
		logger: log,
	}
}

// ForecastPoint is one forecast value; Date is empty for positional output
type ForecastPoint struct {
	Date  string   `json:"date,omitempty"`
	Index int      `json:"index"`
	Value *float64 `json:"value"`
}

// ForecastResponse is the body of POST /api/forecast
type ForecastResponse struct {
	Model     contracts.ModelLabel  `json:"model"`
	Target    string                `json:"target"`
	Rows      int                   `json:"rows"`
	Signals   *contracts.Signals    `json:"signals,omitempty"`
	Forecast  []ForecastPoint       `json:"forecast"`
	Metrics   contracts.Metrics     `json:"metrics"`
	Scenarios map[string][]*float64 `json:"scenarios"`
}

// Forecast runs one model on an uploaded file
// POST /api/forecast?model=auto&target=revenue&format=json
func (h *ForecastHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	frame, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	target := h.target(r, frame)
	model := r.URL.Query().Get("model")

	res, metrics, err := h.engine.Run(ctx, frame, model, target)
	if err != nil {
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"model":  model,
			"target": target,
		}).Warn("Forecast failed")
		respondError(w, statusFor(err), err.Error())
		return
	}

	resp := ForecastResponse{
		Model:     res.Model,
		Target:    target,
		Rows:      frame.Len(),
		Signals:   res.Signals,
		Forecast:  points(res.Forecast),
		Metrics:   metrics,
		Scenarios: make(map[string][]*float64),
	}
	for name, vals := range qualitative.DashboardScenarios().ProjectSeries(res.Forecast.Values) {
		resp.Scenarios[name] = nullable(vals)
	}

	h.saveRun(ctx, contracts.RunForecast, res.Model, target, frame.Len(), 0, resp)

	if r.URL.Query().Get("format") == "csv" {
		writeForecastCSV(w, resp)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Evaluate compares every model on a hold-out split of an uploaded file
// POST /api/evaluate?target=revenue&horizon=30
func (h *ForecastHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	frame, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	target := h.target(r, frame)
	horizon, err := h.horizon(r.URL.Query().Get("horizon"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := forecast.NewEvaluator(h.engine, h.logger.Zerolog()).Evaluate(ctx, frame, target, horizon)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	h.saveRun(ctx, contracts.RunEvaluate, "", target, frame.Len(), horizon, report)
	respondJSON(w, http.StatusOK, report)
}

// StreamRequest is the first message of an evaluation stream.
// A zero horizon uses the configured default.
type StreamRequest struct {
	Records []map[string]interface{} `json:"records" validate:"required,min=2"`
	Target  string                   `json:"target,omitempty" validate:"omitempty,max=64"`
	Horizon int                      `json:"horizon,omitempty" validate:"gte=0,lte=10000"`
}

// StreamMessage is sent for every evaluated model, then once with the report
type StreamMessage struct {
	Type   string                      `json:"type"` // "row", "report" or "error"
	Row    *contracts.EvaluationRow    `json:"row,omitempty"`
	Report *contracts.EvaluationReport `json:"report,omitempty"`
	Error  string                      `json:"error,omitempty"`
	Errors []ValidationError           `json:"errors,omitempty"`
}

// EvaluateStream evaluates records sent over a websocket, one message per model
// GET /api/evaluate/stream
func (h *ForecastHandler) EvaluateStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	send := func(msg StreamMessage) {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(msg); err != nil {
			h.logger.WithError(err).Debug("Websocket write failed")
		}
	}

	conn.SetReadLimit(h.defaults.MaxUpload)
	_, raw, err := conn.ReadMessage()
	if err != nil {
		h.logger.WithError(err).Debug("Websocket read failed")
		return
	}
	var req StreamRequest
	if errs := decodeStrict(r.Context(), bytes.NewReader(raw), &req); errs != nil {
		send(StreamMessage{Type: "error", Error: "validation failed", Errors: errs})
		return
	}

	records := make([]interface{}, len(req.Records))
	for i, rec := range req.Records {
		records[i] = rec
	}
	table, err := ingest.TableFromValue("stream", records)
	if err != nil {
		send(StreamMessage{Type: "error", Error: err.Error()})
		return
	}
	frame, err := ingest.FrameFromTable(table)
	if err == nil {
		err = ingest.ValidateStructure(frame)
	}
	if err != nil {
		send(StreamMessage{Type: "error", Error: err.Error()})
		return
	}

	target := req.Target
	if target == "" {
		target = h.defaultTarget(frame)
	}
	horizon := req.Horizon
	if horizon == 0 {
		horizon = h.defaults.Horizon
	}

	evaluator := forecast.NewEvaluator(h.engine, h.logger.Zerolog())
	evaluator.OnRow = func(row contracts.EvaluationRow) {
		send(StreamMessage{Type: "row", Row: &row})
	}

	report, err := evaluator.Evaluate(r.Context(), frame, target, horizon)
	if err != nil {
		send(StreamMessage{Type: "error", Error: err.Error()})
		return
	}
	h.saveRun(r.Context(), contracts.RunEvaluate, "", target, frame.Len(), horizon, report)
	send(StreamMessage{Type: "report", Report: report})
}

// readUpload parses the multipart "file" field; on failure the response is already written
func (h *ForecastHandler) readUpload(w http.ResponseWriter, r *http.Request) (*dataset.Frame, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.defaults.MaxUpload)
	if err := r.ParseMultipartForm(h.defaults.MaxUpload); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid upload: %v", err))
		return nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return nil, false
	}
	defer file.Close()

	frame, err := ingest.LoadReader(header.Filename, file)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return frame, true
}

// originPolicy accepts requests without an Origin header (non-browser clients),
// same-host origins and the listed ones
func originPolicy(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.ToLower(strings.TrimSuffix(strings.TrimSpace(o), "/"))] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || set["*"] {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		if strings.EqualFold(u.Host, r.Host) {
			return true
		}
		return set[strings.ToLower(origin)]
	}
}

func (h *ForecastHandler) target(r *http.Request, f *dataset.Frame) string {
	if t := r.URL.Query().Get("target"); t != "" {
		return t
	}
	if t := r.FormValue("target"); t != "" {
		return t
	}
	return h.defaultTarget(f)
}

func (h *ForecastHandler) defaultTarget(f *dataset.Frame) string {
	if h.defaults.Target != "" && f.Has(h.defaults.Target) {
		return h.defaults.Target
	}
	if t := ingest.DefaultTarget(f); t != "" {
		return t
	}
	return ingest.TargetAlias
}

func (h *ForecastHandler) horizon(raw string) (int, error) {
	if raw == "" {
		return h.defaults.Horizon, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("horizon must be an integer")
	}
	return n, nil
}

func (h *ForecastHandler) saveRun(ctx context.Context, kind contracts.RunKind, model contracts.ModelLabel, target string, rows, horizon int, result interface{}) {
	if h.runs == nil {
		return
	}
	body, err := json.Marshal(result)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to encode run result")
		return
	}
	run := &contracts.Run{
		Kind:       kind,
		Model:      model,
		Target:     target,
		Rows:       rows,
		Horizon:    horizon,
		ConfigHash: h.configHash,
		Result:     body,
	}
	if err := h.runs.Save(ctx, run); err != nil {
		h.logger.WithError(err).Warn("Failed to save run")
	}
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, forecast.ErrUnknownModel),
		errors.Is(err, forecast.ErrInvalidHorizon),
		errors.Is(err, dataset.ErrColumnNotFound):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInsufficientData),
		errors.Is(err, models.ErrNoDates),
		errors.Is(err, models.ErrNoFeatures),
		errors.Is(err, models.ErrUndefinedValues):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func points(s *dataset.Series) []ForecastPoint {
	out := make([]ForecastPoint, s.Len())
	for i, v := range s.Values {
		p := ForecastPoint{Index: i, Value: nullableValue(v)}
		if s.Indexed() && i < len(s.Index) {
			p.Date = s.Index[i].Format("2006-01-02")
		}
		out[i] = p
	}
	return out
}

func nullable(vals []float64) []*float64 {
	out := make([]*float64, len(vals))
	for i, v := range vals {
		out[i] = nullableValue(v)
	}
	return out
}

func nullableValue(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func writeForecastCSV(w http.ResponseWriter, resp ForecastResponse) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="forecast_%s.csv"`, resp.Model))
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	cw.Write([]string{"date", "index", "value"})
	for _, p := range resp.Forecast {
		value := ""
		if p.Value != nil {
			value = strconv.FormatFloat(*p.Value, 'f', -1, 64)
		}
		cw.Write([]string{p.Date, strconv.Itoa(p.Index), value})
	}
	cw.Flush()
}
