package modelconfig

import "fmt"

// ValidationError names the offending field
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks every constraint and returns the first violation
func Validate(cfg *Config) error {
	// === Selector ===
	s := cfg.Selector
	if s.MinRows < 1 {
		return ValidationError{"selector.min_rows", "must be >= 1"}
	}
	if s.ACFMaxLag < 1 {
		return ValidationError{"selector.acf_max_lag", "must be >= 1"}
	}
	if s.ACFThreshold <= 0 || s.ACFThreshold >= 1 {
		return ValidationError{"selector.acf_threshold", "must be in (0, 1)"}
	}
	if s.ACFMinPeaks < 0 {
		return ValidationError{"selector.acf_min_peaks", "must be >= 0"}
	}
	if s.TrendSlope < 0 {
		return ValidationError{"selector.trend_slope", "must be >= 0"}
	}
	if s.LongHistoryRows < s.MinRows || s.LargeSampleRows < s.MinRows {
		return ValidationError{"selector", "long_history_rows and large_sample_rows must be >= min_rows"}
	}

	// === Adapters ===
	if cfg.MovingAverage.Window < 1 {
		return ValidationError{"moving_average.window", "must be >= 1"}
	}
	if cfg.ExponentialSmoothing.SeasonalPeriod < 2 {
		return ValidationError{"exponential_smoothing.seasonal_period", "must be >= 2"}
	}
	if step := cfg.ExponentialSmoothing.GridStep; step <= 0 || step > 0.5 {
		return ValidationError{"exponential_smoothing.grid_step", "must be in (0, 0.5]"}
	}
	if cfg.ARIMA.P < 1 || cfg.ARIMA.D < 0 || cfg.ARIMA.D > 2 {
		return ValidationError{"arima", "p must be >= 1 and d in [0, 2]"}
	}
	if cfg.ARIMA.Q != 0 {
		return ValidationError{"arima.q", "moving-average terms are not supported, use 0"}
	}
	if cfg.Prophet.Changepoints < 0 {
		return ValidationError{"prophet.changepoints", "must be >= 0"}
	}
	if r := cfg.Prophet.ChangepointRange; r <= 0 || r > 1 {
		return ValidationError{"prophet.changepoint_range", "must be in (0, 1]"}
	}
	if cfg.Prophet.YearlyOrder < 0 || cfg.Prophet.WeeklyOrder < 0 {
		return ValidationError{"prophet", "fourier orders must be >= 0"}
	}
	if cfg.Prophet.ChangepointPrior < 0 || cfg.Prophet.SeasonalityPrior < 0 {
		return ValidationError{"prophet", "priors must be >= 0"}
	}
	if cfg.LSTM.Timesteps < 1 || cfg.LSTM.Hidden < 1 || cfg.LSTM.Epochs < 1 {
		return ValidationError{"lstm", "timesteps, hidden and epochs must be >= 1"}
	}
	if cfg.LSTM.LearningRate <= 0 {
		return ValidationError{"lstm.learning_rate", "must be > 0"}
	}
	if cfg.Qualitative.Periods < 1 {
		return ValidationError{"qualitative.periods", "must be >= 1"}
	}

	return nil
}
