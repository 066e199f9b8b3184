package models

import (
	"context"
	"fmt"
	"math"

	"github.com/wonny/finsight/internal/dataset"
	"github.com/wonny/finsight/internal/modelconfig"
)

// ExponentialSmoothing is additive-seasonal exponential smoothing without a trend term.
//
//	level:    l_t = α(y_t − s_{t−m}) + (1−α)l_{t−1}
//	season:   s_t = γ(y_t − l_{t−1}) + (1−γ)s_{t−m}
//	fitted:   ŷ_t = l_{t−1} + s_{t−m}
//
// The initial level is the mean of the first season and the initial seasonal indices are
// the first season's deviations from it. α and γ minimize the in-sample SSE over a grid.
type ExponentialSmoothing struct {
	period int
	step   float64
}

// NewExponentialSmoothing creates the adapter
func NewExponentialSmoothing(cfg modelconfig.ExponentialSmoothing) *ExponentialSmoothing {
	return &ExponentialSmoothing{period: cfg.SeasonalPeriod, step: cfg.GridStep}
}

// Forecast returns the one-step-ahead in-sample fitted values
func (e *ExponentialSmoothing) Forecast(ctx context.Context, f *dataset.Frame, target string) (*dataset.Series, error) {
	y, err := definedColumn(f, target)
	if err != nil {
		return nil, err
	}
	if len(y) < 2*e.period {
		return nil, fmt.Errorf("%w: exponential smoothing needs two full seasons (%d rows), got %d",
			ErrInsufficientData, 2*e.period, len(y))
	}

	bestSSE := math.Inf(1)
	var bestAlpha, bestGamma float64
	for alpha := e.step; alpha <= 1+1e-9; alpha += e.step {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for gamma := 0.0; gamma <= 1-alpha+1e-9; gamma += e.step {
			_, sse := e.smooth(y, alpha, gamma)
			if sse < bestSSE {
				bestSSE, bestAlpha, bestGamma = sse, alpha, gamma
			}
		}
	}

	fitted, _ := e.smooth(y, bestAlpha, bestGamma)
	return dataset.NewSeries(target, f.Dates(), fitted), nil
}

// smooth runs the recursions and returns fitted values with their SSE
func (e *ExponentialSmoothing) smooth(y []float64, alpha, gamma float64) ([]float64, float64) {
	m := e.period

	level := 0.0
	for _, v := range y[:m] {
		level += v
	}
	level /= float64(m)

	season := make([]float64, len(y)+m)
	for i := 0; i < m; i++ {
		season[i] = y[i] - level
	}

	fitted := make([]float64, len(y))
	sse := 0.0
	for t, v := range y {
		s := season[t]
		fitted[t] = level + s
		r := v - fitted[t]
		sse += r * r

		prev := level
		level = alpha*(v-s) + (1-alpha)*level
		season[t+m] = gamma*(v-prev) + (1-gamma)*s
	}
	return fitted, sse
}
