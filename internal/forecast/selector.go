package forecast

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/finsight/internal/contracts"
	"github.com/wonny/finsight/internal/dataset"
	"github.com/wonny/finsight/internal/modelconfig"
)

// =============================================================================
// Model Selector
// =============================================================================

// Selector picks a model label from dataset characteristics
// ⭐ SSOT: automatic model choice happens here only
type Selector struct {
	cfg modelconfig.Selector
	log zerolog.Logger
}

// NewSelector creates a selector
func NewSelector(cfg modelconfig.Selector, log zerolog.Logger) *Selector {
	return &Selector{
		cfg: cfg,
		log: log.With().Str("component", "forecast.selector").Logger(),
	}
}

// Select returns the model label for a (cleaned) frame
func (s *Selector) Select(f *dataset.Frame, target string) contracts.ModelLabel {
	sig := s.Signals(f, target)
	label := s.Decide(sig)

	s.log.Debug().
		Int("rows", sig.Rows).
		Bool("seasonality", sig.HasSeasonality).
		Bool("trend", sig.HasTrend).
		Bool("multivariate", sig.Multivariate).
		Str("model", string(label)).
		Msg("model selected")

	return label
}

// Signals computes the characteristics Decide works on.
// Seasonality and trend are only computed once the frame reaches MinRows.
func (s *Selector) Signals(f *dataset.Frame, target string) contracts.Signals {
	sig := contracts.Signals{
		Rows:    f.Len(),
		Columns: len(f.Columns()),
	}
	sig.Multivariate = sig.Columns > s.cfg.MultivariateColumns
	if sig.Rows < s.cfg.MinRows {
		return sig
	}

	y, err := f.Column(target)
	if err != nil {
		return sig
	}

	for _, r := range ACF(y, s.cfg.ACFMaxLag) {
		if r > s.cfg.ACFThreshold {
			sig.ACFPeaks++
		}
	}
	sig.HasSeasonality = sig.ACFPeaks > s.cfg.ACFMinPeaks

	sig.Slope = TrendSlope(y)
	sig.HasTrend = math.Abs(sig.Slope) > s.cfg.TrendSlope

	return sig
}

// Decide applies the decision tree. Branch order matters: the first match wins.
func (s *Selector) Decide(sig contracts.Signals) contracts.ModelLabel {
	n := sig.Rows

	switch {
	case n == 0:
		return contracts.ModelQualitative
	case n < s.cfg.MinRows:
		return contracts.ModelMovingAverage
	case sig.HasSeasonality && sig.HasTrend:
		return contracts.ModelProphet
	case sig.HasSeasonality:
		return contracts.ModelExponentialSmoothing
	case sig.HasTrend && n > s.cfg.LongHistoryRows:
		return contracts.ModelARIMA
	case sig.Multivariate:
		if n > s.cfg.LargeSampleRows {
			return contracts.ModelLSTM
		}
		return contracts.ModelLinearRegression
	default:
		if n > s.cfg.LargeSampleRows {
			return contracts.ModelProphet
		}
		return contracts.ModelExponentialSmoothing
	}
}

// ACF returns autocorrelations for lags 0..min(maxLag, n-1), lag 0 included.
// A series with zero variance or undefined values yields nil.
func ACF(y []float64, maxLag int) []float64 {
	n := len(y)
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 0 {
		return nil
	}

	mean := stat.Mean(y, nil)
	denom := 0.0
	for _, v := range y {
		d := v - mean
		denom += d * d
	}
	if denom == 0 || math.IsNaN(denom) {
		return nil
	}

	acf := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		sum := 0.0
		for i := k; i < n; i++ {
			sum += (y[i] - mean) * (y[i-k] - mean)
		}
		acf[k] = sum / denom
	}
	return acf
}

// TrendSlope is the OLS slope of y against its observation index
func TrendSlope(y []float64) float64 {
	if len(y) < 2 {
		return 0
	}
	x := make([]float64, len(y))
	for i := range x {
		x[i] = float64(i)
	}
	_, beta := stat.LinearRegression(x, y, nil, false)
	return beta
}
