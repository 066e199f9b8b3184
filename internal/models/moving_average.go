package models

import (
	"context"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"

	"github.com/wonny/finsight/internal/dataset"
	"github.com/wonny/finsight/internal/modelconfig"
)

// MovingAverage is a trailing simple moving average.
// The first window-1 positions are undefined.
type MovingAverage struct {
	window int
}

// NewMovingAverage creates the adapter
func NewMovingAverage(cfg modelconfig.MovingAverage) *MovingAverage {
	return &MovingAverage{window: cfg.Window}
}

// Forecast smooths the target column
func (m *MovingAverage) Forecast(_ context.Context, f *dataset.Frame, target string) (*dataset.Series, error) {
	vals, err := f.Column(target)
	if err != nil {
		return nil, err
	}

	out := nanSlice(len(vals))
	if len(vals) >= m.window {
		sma := trend.NewSmaWithPeriod[float64](m.window)
		smoothed := helper.ChanToSlice(sma.Compute(helper.SliceToChan(vals)))
		copy(out[len(vals)-len(smoothed):], smoothed)
	}

	return dataset.NewSeries(target, f.Dates(), out), nil
}
