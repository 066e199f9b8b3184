// Package forecast selects, dispatches and evaluates forecasting models.
//
// Every call starts from the raw frame and refits from scratch; nothing is cached
// between calls.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/finsight/internal/accuracy"
	"github.com/wonny/finsight/internal/contracts"
	"github.com/wonny/finsight/internal/dataset"
	"github.com/wonny/finsight/internal/modelconfig"
	"github.com/wonny/finsight/internal/models"
)

// ErrUnknownModel is returned for a label outside the registry
var ErrUnknownModel = errors.New("unknown model type")

// Recorder receives fit and selection observations (pkg/metrics implements it)
type Recorder interface {
	ObserveFit(model string, d time.Duration, err error)
	RecordSelection(model string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveFit(string, time.Duration, error) {}
func (nopRecorder) RecordSelection(string)                  {}

// Registry maps every model label to its adapter
type Registry map[contracts.ModelLabel]models.Adapter

// NewRegistry builds the fixed registry from configuration.
// consensus feeds the qualitative adapter and may be nil.
func NewRegistry(cfg *modelconfig.Config, consensus *float64) Registry {
	return Registry{
		contracts.ModelMovingAverage:        models.NewMovingAverage(cfg.MovingAverage),
		contracts.ModelExponentialSmoothing: models.NewExponentialSmoothing(cfg.ExponentialSmoothing),
		contracts.ModelLinearRegression:     models.NewLinearRegression(),
		contracts.ModelARIMA:                models.NewARIMA(cfg.ARIMA),
		contracts.ModelProphet:              models.NewProphet(cfg.Prophet),
		contracts.ModelLSTM:                 models.NewLSTM(cfg.LSTM),
		contracts.ModelQualitative:          models.NewQualitative(cfg.Qualitative, consensus),
	}
}

// With returns a copy with one adapter replaced. Labels outside the set are rejected.
func (r Registry) With(label contracts.ModelLabel, a models.Adapter) (Registry, error) {
	if !label.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, label)
	}
	out := make(Registry, len(r))
	for k, v := range r {
		out[k] = v
	}
	out[label] = a
	return out, nil
}

// Result is a forecast and the label that produced it
type Result struct {
	Model    contracts.ModelLabel `json:"model"`
	Forecast *dataset.Series      `json:"forecast"`
	Signals  *contracts.Signals   `json:"signals,omitempty"` // set when the label was auto-selected
}

// =============================================================================
// Engine
// =============================================================================

// Engine cleans input, resolves the model and runs its adapter
// ⭐ SSOT: the only entry point from outer layers into the models
type Engine struct {
	registry Registry
	selector *Selector
	recorder Recorder
	log      zerolog.Logger
}

// Option customizes an Engine
type Option func(*Engine)

// WithRegistry replaces the adapter registry
func WithRegistry(r Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithRecorder attaches a metrics recorder
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// NewEngine creates an engine with the default registry for cfg
func NewEngine(cfg *modelconfig.Config, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		registry: NewRegistry(cfg, nil),
		selector: NewSelector(cfg.Selector, log),
		recorder: nopRecorder{},
		log:      log.With().Str("component", "forecast.engine").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Selector exposes the engine's selector
func (e *Engine) Selector() *Selector { return e.selector }

// Forecast cleans f, resolves model ("auto" or empty selects one) and runs the adapter.
// The adapter output is returned unmodified.
func (e *Engine) Forecast(ctx context.Context, f *dataset.Frame, model string, target string) (*Result, error) {
	label, err := contracts.ParseModelLabel(model)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}

	cleaned := dataset.Clean(f)

	var signals *contracts.Signals
	if label == contracts.ModelAuto {
		sig := e.selector.Signals(cleaned, target)
		label = e.selector.Decide(sig)
		signals = &sig
		e.recorder.RecordSelection(string(label))
	}

	adapter, ok := e.registry[label]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, label)
	}

	start := time.Now()
	series, err := adapter.Forecast(ctx, cleaned, target)
	elapsed := time.Since(start)
	e.recorder.ObserveFit(string(label), elapsed, err)

	if err != nil {
		e.log.Debug().Err(err).Str("model", string(label)).Msg("adapter failed")
		return nil, fmt.Errorf("%s: %w", label, err)
	}

	e.log.Debug().
		Str("model", string(label)).
		Int("rows", cleaned.Len()).
		Dur("elapsed", elapsed).
		Msg("forecast completed")

	return &Result{Model: label, Forecast: series, Signals: signals}, nil
}

// Run forecasts f and scores the result in-sample against the cleaned target.
// The metrics are in standardized units.
func (e *Engine) Run(ctx context.Context, f *dataset.Frame, model, target string) (*Result, contracts.Metrics, error) {
	res, err := e.Forecast(ctx, f, model, target)
	if err != nil {
		return nil, contracts.NullMetrics(), err
	}

	actual, err := dataset.Clean(f).Series(target)
	if err != nil {
		return res, contracts.NullMetrics(), nil
	}
	return res, accuracy.Calculate(actual, res.Forecast.Head(actual.Len())), nil
}
