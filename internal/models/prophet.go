package models

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/wonny/finsight/internal/dataset"
	"github.com/wonny/finsight/internal/modelconfig"
)

const (
	yearDays = 365.25
	weekDays = 7.0
)

// Prophet is an additive decomposition y(t) = trend(t) + yearly(t) + weekly(t).
// The trend is piecewise linear with hinge terms at changepoints spread over the first
// part of the history; seasonal terms are Fourier series. Everything is fitted jointly
// by ridge-regularized least squares: slope changes and Fourier weights are shrunk,
// intercept and base slope are not.
type Prophet struct {
	cfg modelconfig.Prophet
}

// NewProphet creates the adapter
func NewProphet(cfg modelconfig.Prophet) *Prophet {
	return &Prophet{cfg: cfg}
}

// Forecast returns in-sample fitted values aligned to the frame dates
func (p *Prophet) Forecast(_ context.Context, f *dataset.Frame, target string) (*dataset.Series, error) {
	if !f.HasDates() {
		return nil, fmt.Errorf("%w: prophet fits on the date column", ErrNoDates)
	}
	y, err := definedColumn(f, target)
	if err != nil {
		return nil, err
	}
	if len(y) < 2 {
		return nil, fmt.Errorf("%w: prophet needs at least 2 rows, got %d", ErrInsufficientData, len(y))
	}

	dates := f.Dates()
	x, penalty := p.design(dates)

	beta, err := leastSquares(x, y, penalty)
	if err != nil {
		return nil, fmt.Errorf("prophet: %w", err)
	}

	return dataset.NewSeries(target, dates, predict(x, beta)), nil
}

// design builds the regressor matrix and per-column ridge penalties
func (p *Prophet) design(dates []time.Time) (*mat.Dense, []float64) {
	n := len(dates)
	start, end := dates[0], dates[n-1]
	span := end.Sub(start).Hours() / 24
	if span <= 0 {
		span = 1
	}

	ts := make([]float64, n)
	days := make([]float64, n)
	for i, d := range dates {
		days[i] = d.Sub(start).Hours() / 24
		ts[i] = days[i] / span
	}

	changepoints := p.changepoints(ts)

	yearly := 0
	if span >= 2*yearDays {
		yearly = p.cfg.YearlyOrder
	}
	weekly := 0
	if freq := dataset.InferFrequency(dates); freq > 0 && freq < 7*24*time.Hour && span >= 2*weekDays {
		weekly = p.cfg.WeeklyOrder
	}

	cols := 2 + len(changepoints) + 2*yearly + 2*weekly
	x := mat.NewDense(n, cols, nil)
	penalty := make([]float64, cols)

	for i := 0; i < n; i++ {
		x.Set(i, 0, 1)
		x.Set(i, 1, ts[i])
		col := 2
		for _, c := range changepoints {
			x.Set(i, col, math.Max(0, ts[i]-c))
			penalty[col] = p.cfg.ChangepointPrior
			col++
		}
		col = fourier(x, penalty, i, col, days[i], yearDays, yearly, p.cfg.SeasonalityPrior)
		fourier(x, penalty, i, col, days[i], weekDays, weekly, p.cfg.SeasonalityPrior)
	}
	return x, penalty
}

// changepoints places up to cfg.Changepoints hinges evenly over the first
// ChangepointRange share of the rows
func (p *Prophet) changepoints(ts []float64) []float64 {
	hist := int(math.Floor(float64(len(ts)) * p.cfg.ChangepointRange))
	k := min(p.cfg.Changepoints, hist-1)
	if k <= 0 {
		return nil
	}

	out := make([]float64, 0, k)
	for j := 1; j <= k; j++ {
		idx := int(math.Round(float64(j) * float64(hist-1) / float64(k)))
		out = append(out, ts[idx])
	}
	return out
}

// fourier writes sin/cos pairs for orders 1..order starting at col and returns the next column
func fourier(x *mat.Dense, penalty []float64, row, col int, day, period float64, order int, prior float64) int {
	for k := 1; k <= order; k++ {
		arg := 2 * math.Pi * float64(k) * day / period
		x.Set(row, col, math.Sin(arg))
		x.Set(row, col+1, math.Cos(arg))
		penalty[col], penalty[col+1] = prior, prior
		col += 2
	}
	return col
}
