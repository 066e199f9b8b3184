package models

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/wonny/finsight/internal/dataset"
	"github.com/wonny/finsight/internal/modelconfig"
)

// ARIMA fits ARIMA(p, d, 0): the series is differenced d times and an AR(p) without
// intercept is estimated on the differences by conditional least squares.
// Fitted values are mapped back to the original scale; the first d are undefined.
type ARIMA struct {
	p, d int
}

// NewARIMA creates the adapter
func NewARIMA(cfg modelconfig.ARIMA) *ARIMA {
	return &ARIMA{p: cfg.P, d: cfg.D}
}

// Forecast returns in-sample one-step fitted values
func (a *ARIMA) Forecast(_ context.Context, f *dataset.Frame, target string) (*dataset.Series, error) {
	y, err := definedColumn(f, target)
	if err != nil {
		return nil, err
	}

	z := difference(y, a.d)
	if need := 2*a.p + 1; len(z) < need {
		return nil, fmt.Errorf("%w: ARIMA(%d,%d,0) needs %d rows, got %d",
			ErrInsufficientData, a.p, a.d, need+a.d, len(y))
	}

	phi, err := a.fitAR(z)
	if err != nil {
		return nil, err
	}

	// one-step prediction of each difference; lags before the start count as zero
	zhat := make([]float64, len(z))
	for t := range z {
		for i := 1; i <= a.p && t-i >= 0; i++ {
			zhat[t] += phi[i-1] * z[t-i]
		}
	}

	fitted := nanSlice(len(y))
	for t := a.d; t < len(y); t++ {
		fitted[t] = integrate(y, t, a.d) + zhat[t-a.d]
	}

	return dataset.NewSeries(target, f.Dates(), fitted), nil
}

// fitAR regresses z_t on z_{t-1..t-p}
func (a *ARIMA) fitAR(z []float64) ([]float64, error) {
	rows := len(z) - a.p
	x := mat.NewDense(rows, a.p, nil)
	target := make([]float64, rows)
	for r := 0; r < rows; r++ {
		t := r + a.p
		target[r] = z[t]
		for i := 1; i <= a.p; i++ {
			x.Set(r, i-1, z[t-i])
		}
	}

	phi, err := leastSquares(x, target, nil)
	if err != nil {
		return nil, fmt.Errorf("arima: %w", err)
	}
	return phi, nil
}

// difference applies the first difference d times
func difference(y []float64, d int) []float64 {
	out := append([]float64(nil), y...)
	for k := 0; k < d; k++ {
		if len(out) == 0 {
			return out
		}
		next := make([]float64, len(out)-1)
		for i := 1; i < len(out); i++ {
			next[i-1] = out[i] - out[i-1]
		}
		out = next
	}
	return out
}

// integrate returns y_t − Δ^d y_t, the part of y_t determined by earlier values
func integrate(y []float64, t, d int) float64 {
	sum := 0.0
	for k := 1; k <= d; k++ {
		sign := 1.0
		if k%2 == 0 {
			sign = -1
		}
		sum += sign * binomial(d, k) * y[t-k]
	}
	return sum
}

func binomial(n, k int) float64 {
	return math.Round(math.Exp(lgamma(n+1) - lgamma(k+1) - lgamma(n-k+1)))
}

func lgamma(n int) float64 {
	v, _ := math.Lgamma(float64(n))
	return v
}
