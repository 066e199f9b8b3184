package forecast

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wonny/finsight/internal/accuracy"
	"github.com/wonny/finsight/internal/contracts"
	"github.com/wonny/finsight/internal/dataset"
	"github.com/wonny/finsight/internal/models"
)

// ErrInvalidHorizon is returned when the hold-out leaves no training rows
var ErrInvalidHorizon = errors.New("invalid horizon")

// =============================================================================
// Evaluator
// =============================================================================

// Evaluator scores every model on one chronological hold-out split.
// A failing model produces a row with null metrics; it never aborts the report.
type Evaluator struct {
	engine *Engine
	log    zerolog.Logger

	// OnRow is called after each model finishes (optional)
	OnRow func(contracts.EvaluationRow)
}

// NewEvaluator creates an evaluator on top of an engine
func NewEvaluator(engine *Engine, log zerolog.Logger) *Evaluator {
	return &Evaluator{
		engine: engine,
		log:    log.With().Str("component", "forecast.evaluator").Logger(),
	}
}

// Evaluate holds out the last horizon rows, fits each model on the rest and compares
// the first horizon predictions against the held-out target.
//
// Actuals are standardized with the training moments so both sides share units.
// Predictions are compared by position. A horizon covering the whole frame leaves
// nothing to train on; every row of the report is then null.
func (e *Evaluator) Evaluate(ctx context.Context, f *dataset.Frame, target string, horizon int) (*contracts.EvaluationReport, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHorizon, horizon)
	}
	sorted := f.SortByDate()
	n := sorted.Len()

	train := sorted.Head(max(n-horizon, 0))
	test := sorted.Tail(min(horizon, n))

	trainTarget, err := dataset.Fill(train).Column(target)
	if err != nil {
		return nil, err
	}
	moments := dataset.ColumnMoments(trainTarget)

	raw, err := test.Column(target)
	if err != nil {
		return nil, err
	}
	scaled := make([]float64, len(raw))
	for i, v := range raw {
		scaled[i] = moments.Scale(v)
	}
	actual := dataset.NewSeries(target, nil, scaled)

	report := &contracts.EvaluationReport{
		Target:    target,
		Horizon:   horizon,
		TrainRows: train.Len(),
		Rows:      make([]contracts.EvaluationRow, 0, len(contracts.EvaluationOrder())),
	}

	for _, label := range contracts.EvaluationOrder() {
		var row contracts.EvaluationRow
		if err := ctx.Err(); err != nil {
			row = contracts.EvaluationRow{Model: label, Metrics: contracts.NullMetrics(), Error: err.Error()}
		} else if train.Len() == 0 {
			row = contracts.EvaluationRow{
				Model:   label,
				Metrics: contracts.NullMetrics(),
				Error:   fmt.Sprintf("%v: horizon %d leaves no training rows out of %d", models.ErrInsufficientData, horizon, n),
			}
		} else {
			row = e.evaluateModel(ctx, label, train, target, actual)
		}

		report.Rows = append(report.Rows, row)
		if e.OnRow != nil {
			e.OnRow(row)
		}
	}

	report.BestMAE, report.BestRMSE = accuracy.Best(report.Rows)

	e.log.Info().
		Str("target", target).
		Int("horizon", horizon).
		Int("train_rows", report.TrainRows).
		Str("best_mae", string(report.BestMAE)).
		Str("best_rmse", string(report.BestRMSE)).
		Msg("evaluation completed")

	return report, nil
}

func (e *Evaluator) evaluateModel(ctx context.Context, label contracts.ModelLabel, train *dataset.Frame, target string, actual *dataset.Series) (row contracts.EvaluationRow) {
	row.Model = label

	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Str("model", string(label)).Interface("panic", r).Msg("model panicked")
			row.Metrics = contracts.NullMetrics()
			row.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	res, err := e.engine.Forecast(ctx, train, string(label), target)
	if err != nil {
		e.log.Warn().Err(err).Str("model", string(label)).Msg("model failed")
		row.Metrics = contracts.NullMetrics()
		row.Error = err.Error()
		return row
	}

	pred := res.Forecast.Head(actual.Len()).Positional()
	row.Metrics = accuracy.Calculate(actual, pred)
	return row
}
