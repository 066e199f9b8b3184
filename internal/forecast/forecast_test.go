package forecast

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/finsight/internal/contracts"
	"github.com/wonny/finsight/internal/dataset"
	"github.com/wonny/finsight/internal/modelconfig"
	"github.com/wonny/finsight/internal/models"
)

func dates(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
	}
	return out
}

func frame(t *testing.T, n int, gen func(i int) float64, extra ...string) *dataset.Frame {
	t.Helper()
	cols := []string{"target"}
	data := map[string][]float64{"target": make([]float64, n)}
	for i := 0; i < n; i++ {
		data["target"][i] = gen(i)
	}
	for k, name := range extra {
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = float64((i*(k+3))%7) + float64(k)
		}
		cols = append(cols, name)
		data[name] = vals
	}
	f, err := dataset.NewFrame(dates(n), cols, data)
	require.NoError(t, err)
	return f
}

func newSelector() *Selector {
	return NewSelector(modelconfig.Default().Selector, zerolog.Nop())
}

func TestDecide(t *testing.T) {
	s := newSelector()

	tests := []struct {
		name   string
		sig    contracts.Signals
		expect contracts.ModelLabel
	}{
		{"empty", contracts.Signals{Rows: 0}, contracts.ModelQualitative},
		{"short history", contracts.Signals{Rows: 29, HasTrend: true, HasSeasonality: true}, contracts.ModelMovingAverage},
		{"seasonal and trending", contracts.Signals{Rows: 30, HasTrend: true, HasSeasonality: true}, contracts.ModelProphet},
		{"seasonal only", contracts.Signals{Rows: 50, HasSeasonality: true}, contracts.ModelExponentialSmoothing},
		{"long trend", contracts.Signals{Rows: 366, HasTrend: true}, contracts.ModelARIMA},
		{"trend at 365 falls through", contracts.Signals{Rows: 365, HasTrend: true}, contracts.ModelProphet},
		{"multivariate large", contracts.Signals{Rows: 101, Multivariate: true}, contracts.ModelLSTM},
		{"multivariate small", contracts.Signals{Rows: 100, HasTrend: true, Multivariate: true}, contracts.ModelLinearRegression},
		{"plain large", contracts.Signals{Rows: 101}, contracts.ModelProphet},
		{"plain small", contracts.Signals{Rows: 40}, contracts.ModelExponentialSmoothing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, s.Decide(tt.sig))
		})
	}
}

func TestSelectShortAndEmpty(t *testing.T) {
	s := newSelector()

	assert.Equal(t, contracts.ModelQualitative, s.Select(dataset.Empty(), "target"))
	assert.Equal(t, contracts.ModelMovingAverage, s.Select(frame(t, 10, func(i int) float64 { return float64(i) }), "target"))
}

func TestSelectDetectsSeasonality(t *testing.T) {
	s := newSelector()
	f := dataset.Clean(frame(t, 120, func(i int) float64 { return math.Sin(2 * math.Pi * float64(i) / 12) }))

	sig := s.Signals(f, "target")
	assert.True(t, sig.HasSeasonality)
	assert.Greater(t, sig.ACFPeaks, 2)
	assert.False(t, sig.Multivariate)
}

// A linear ramp has a slowly decaying ACF, so it counts as seasonal as well as trending
// and the seasonality-and-trend branch wins over arima and linear_regression.
func TestSelectHundredRowRamp(t *testing.T) {
	s := newSelector()

	tests := []struct {
		name         string
		extra        []string
		multivariate bool
	}{
		{name: "univariate"},
		{name: "with features", extra: []string{"price", "volume"}, multivariate: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := dataset.Clean(frame(t, 100, func(i int) float64 { return float64(i) }, tt.extra...))

			sig := s.Signals(f, "target")
			assert.True(t, sig.HasTrend)
			assert.True(t, sig.HasSeasonality)
			assert.Greater(t, sig.ACFPeaks, 2)
			assert.Equal(t, tt.multivariate, sig.Multivariate)

			got := s.Select(f, "target")
			assert.Equal(t, contracts.ModelProphet, got)
			assert.NotEqual(t, contracts.ModelQualitative, got)
		})
	}
}

func TestACF(t *testing.T) {
	acf := ACF([]float64{1, 2, 3, 4, 5}, 40)
	require.Len(t, acf, 5)
	assert.InDelta(t, 1.0, acf[0], 1e-12)
	assert.InDelta(t, 0.4, acf[1], 1e-12)

	assert.Nil(t, ACF([]float64{3, 3, 3}, 2))
	assert.Nil(t, ACF(nil, 2))
}

func TestTrendSlope(t *testing.T) {
	assert.InDelta(t, 2.0, TrendSlope([]float64{1, 3, 5, 7}), 1e-12)
	assert.Equal(t, 0.0, TrendSlope([]float64{1}))
}

// =============================================================================
// Engine
// =============================================================================

type recorder struct {
	fits       []string
	selections []string
}

func (r *recorder) ObserveFit(model string, _ time.Duration, _ error) { r.fits = append(r.fits, model) }
func (r *recorder) RecordSelection(model string)                      { r.selections = append(r.selections, model) }

func TestEngineForecastUnknownModel(t *testing.T) {
	e := NewEngine(modelconfig.Default(), zerolog.Nop())
	_, err := e.Forecast(context.Background(), frame(t, 10, func(i int) float64 { return float64(i) }), "neural_prophet", "target")
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestEngineForecastExplicitModel(t *testing.T) {
	rec := &recorder{}
	e := NewEngine(modelconfig.Default(), zerolog.Nop(), WithRecorder(rec))

	res, err := e.Forecast(context.Background(), frame(t, 10, func(i int) float64 { return float64(i % 4) }), "moving_average", "target")
	require.NoError(t, err)
	assert.Equal(t, contracts.ModelMovingAverage, res.Model)
	assert.Nil(t, res.Signals)
	assert.Equal(t, 10, res.Forecast.Len())
	assert.Equal(t, []string{"moving_average"}, rec.fits)
	assert.Empty(t, rec.selections)
}

func TestEngineForecastAuto(t *testing.T) {
	rec := &recorder{}
	e := NewEngine(modelconfig.Default(), zerolog.Nop(), WithRecorder(rec))

	res, err := e.Forecast(context.Background(), frame(t, 12, func(i int) float64 { return float64(i * i) }), "auto", "target")
	require.NoError(t, err)
	assert.Equal(t, contracts.ModelMovingAverage, res.Model)
	require.NotNil(t, res.Signals)
	assert.Equal(t, 12, res.Signals.Rows)
	assert.Equal(t, []string{"moving_average"}, rec.selections)
}

func TestEngineForecastEmptyFrame(t *testing.T) {
	e := NewEngine(modelconfig.Default(), zerolog.Nop())

	res, err := e.Forecast(context.Background(), dataset.Empty(), "", "target")
	require.NoError(t, err)
	assert.Equal(t, contracts.ModelQualitative, res.Model)
	assert.Equal(t, modelconfig.Default().Qualitative.Periods, res.Forecast.Len())
}

func TestEngineRunReportsInSampleMetrics(t *testing.T) {
	e := NewEngine(modelconfig.Default(), zerolog.Nop())

	res, m, err := e.Run(context.Background(), frame(t, 10, func(i int) float64 { return 5 }), "auto", "target")
	require.NoError(t, err)
	assert.Equal(t, contracts.ModelMovingAverage, res.Model)
	// a constant column standardizes to undefined values
	assert.True(t, m.IsNull())
}

func TestRegistryWith(t *testing.T) {
	reg := NewRegistry(modelconfig.Default(), nil)
	assert.Len(t, reg, len(contracts.AllModels()))

	stub := models.Func(func(context.Context, *dataset.Frame, string) (*dataset.Series, error) { return nil, nil })
	_, err := reg.With("auto", stub)
	assert.ErrorIs(t, err, ErrUnknownModel)

	next, err := reg.With(contracts.ModelLSTM, stub)
	require.NoError(t, err)
	assert.IsType(t, &models.LSTM{}, reg[contracts.ModelLSTM], "original is untouched")
	assert.IsType(t, models.Func(nil), next[contracts.ModelLSTM])
}

// =============================================================================
// Evaluator
// =============================================================================

func stubRegistry(t *testing.T, overrides map[contracts.ModelLabel]models.Adapter) Registry {
	t.Helper()
	echo := models.Func(func(_ context.Context, f *dataset.Frame, target string) (*dataset.Series, error) {
		return f.Series(target)
	})
	reg := Registry{}
	for _, l := range contracts.AllModels() {
		reg[l] = echo
	}
	for l, a := range overrides {
		reg[l] = a
	}
	return reg
}

func TestEvaluateOneRowPerModel(t *testing.T) {
	reg := stubRegistry(t, map[contracts.ModelLabel]models.Adapter{
		contracts.ModelARIMA: models.Func(func(context.Context, *dataset.Frame, string) (*dataset.Series, error) {
			return nil, errors.New("singular matrix")
		}),
		contracts.ModelLSTM: models.Func(func(context.Context, *dataset.Frame, string) (*dataset.Series, error) {
			panic("boom")
		}),
	})
	e := NewEngine(modelconfig.Default(), zerolog.Nop(), WithRegistry(reg))
	ev := NewEvaluator(e, zerolog.Nop())

	var streamed []contracts.ModelLabel
	ev.OnRow = func(r contracts.EvaluationRow) { streamed = append(streamed, r.Model) }

	report, err := ev.Evaluate(context.Background(), frame(t, 40, func(i int) float64 { return float64(i) }), "target", 5)
	require.NoError(t, err)

	require.Len(t, report.Rows, 6)
	assert.Equal(t, contracts.EvaluationOrder(), streamed)
	assert.Equal(t, 35, report.TrainRows)

	arima, ok := report.Row(contracts.ModelARIMA)
	require.True(t, ok)
	assert.True(t, arima.Failed())
	assert.True(t, arima.IsNull())
	assert.Contains(t, arima.Error, "singular matrix")

	lstm, _ := report.Row(contracts.ModelLSTM)
	assert.True(t, lstm.Failed())
	assert.Contains(t, lstm.Error, "boom")

	ma, _ := report.Row(contracts.ModelMovingAverage)
	assert.False(t, ma.Failed())
	require.NotNil(t, ma.MAE)
	require.NotNil(t, ma.RMSE)
	assert.GreaterOrEqual(t, *ma.RMSE, *ma.MAE)

	assert.NotEqual(t, contracts.ModelARIMA, report.BestMAE)
	assert.NotEmpty(t, report.BestMAE)
}

func TestEvaluatePerfectModelScoresZero(t *testing.T) {
	n, h := 30, 4
	raw := frame(t, n, func(i int) float64 { return float64(i) * 1.5 })

	// predicts the held-out rows exactly, in the training units
	perfect := models.Func(func(_ context.Context, f *dataset.Frame, target string) (*dataset.Series, error) {
		col, err := dataset.Fill(raw.Head(n - h)).Column(target)
		if err != nil {
			return nil, err
		}
		m := dataset.ColumnMoments(col)
		out := make([]float64, h)
		for i := range out {
			out[i] = m.Scale(float64(n-h+i) * 1.5)
		}
		return dataset.NewSeries(target, nil, out), nil
	})

	reg := stubRegistry(t, map[contracts.ModelLabel]models.Adapter{contracts.ModelProphet: perfect})
	ev := NewEvaluator(NewEngine(modelconfig.Default(), zerolog.Nop(), WithRegistry(reg)), zerolog.Nop())

	report, err := ev.Evaluate(context.Background(), raw, "target", h)
	require.NoError(t, err)

	row, _ := report.Row(contracts.ModelProphet)
	require.NotNil(t, row.MAE)
	assert.InDelta(t, 0, *row.MAE, 1e-9)
	assert.Equal(t, contracts.ModelProphet, report.BestMAE)
	assert.Equal(t, contracts.ModelProphet, report.BestRMSE)
}

func TestEvaluateInvalidHorizon(t *testing.T) {
	ev := NewEvaluator(NewEngine(modelconfig.Default(), zerolog.Nop()), zerolog.Nop())
	f := frame(t, 10, func(i int) float64 { return float64(i) })

	for _, h := range []int{0, -1} {
		_, err := ev.Evaluate(context.Background(), f, "target", h)
		assert.ErrorIs(t, err, ErrInvalidHorizon, "horizon %d", h)
	}
}

func TestEvaluateHorizonCoveringFrameIsNull(t *testing.T) {
	ev := NewEvaluator(NewEngine(modelconfig.Default(), zerolog.Nop()), zerolog.Nop())
	f := frame(t, 10, func(i int) float64 { return float64(i) })

	tests := []struct {
		name    string
		horizon int
	}{
		{name: "equal to rows", horizon: 10},
		{name: "beyond rows", horizon: 11},
		{name: "far beyond rows", horizon: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var streamed int
			ev.OnRow = func(contracts.EvaluationRow) { streamed++ }

			report, err := ev.Evaluate(context.Background(), f, "target", tt.horizon)
			require.NoError(t, err)

			require.Len(t, report.Rows, 6)
			assert.Equal(t, 6, streamed)
			assert.Equal(t, 0, report.TrainRows)
			assert.Equal(t, tt.horizon, report.Horizon)
			for i, row := range report.Rows {
				assert.Equal(t, contracts.EvaluationOrder()[i], row.Model)
				assert.True(t, row.IsNull(), "model %s", row.Model)
				assert.Contains(t, row.Error, "insufficient data")
			}
			assert.Empty(t, report.BestMAE)
			assert.Empty(t, report.BestRMSE)
		})
	}
}

func TestEvaluateMissingTarget(t *testing.T) {
	ev := NewEvaluator(NewEngine(modelconfig.Default(), zerolog.Nop()), zerolog.Nop())
	_, err := ev.Evaluate(context.Background(), frame(t, 10, func(i int) float64 { return float64(i) }), "revenue", 3)
	assert.ErrorIs(t, err, dataset.ErrColumnNotFound)
}

func TestEvaluateCancelled(t *testing.T) {
	reg := stubRegistry(t, nil)
	ev := NewEvaluator(NewEngine(modelconfig.Default(), zerolog.Nop(), WithRegistry(reg)), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := ev.Evaluate(ctx, frame(t, 20, func(i int) float64 { return float64(i) }), "target", 3)
	require.NoError(t, err)
	for _, row := range report.Rows {
		assert.True(t, row.Failed())
		assert.True(t, row.IsNull())
	}
	assert.Empty(t, report.BestMAE)
}
