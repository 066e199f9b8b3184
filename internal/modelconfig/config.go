package modelconfig

// Config holds selector thresholds and adapter parameters
type Config struct {
	Selector             Selector             `yaml:"selector" json:"selector"`
	MovingAverage        MovingAverage        `yaml:"moving_average" json:"moving_average"`
	ExponentialSmoothing ExponentialSmoothing `yaml:"exponential_smoothing" json:"exponential_smoothing"`
	ARIMA                ARIMA                `yaml:"arima" json:"arima"`
	Prophet              Prophet              `yaml:"prophet" json:"prophet"`
	LSTM                 LSTM                 `yaml:"lstm" json:"lstm"`
	Qualitative          Qualitative          `yaml:"qualitative" json:"qualitative"`
}

// Selector drives automatic model choice
type Selector struct {
	MinRows             int     `yaml:"min_rows" json:"min_rows"`                         // below: moving_average
	ACFMaxLag           int     `yaml:"acf_max_lag" json:"acf_max_lag"`                   // lags 0..max inspected
	ACFThreshold        float64 `yaml:"acf_threshold" json:"acf_threshold"`               // a lag "peaks" above this
	ACFMinPeaks         int     `yaml:"acf_min_peaks" json:"acf_min_peaks"`               // seasonal when peaks exceed this
	TrendSlope          float64 `yaml:"trend_slope" json:"trend_slope"`                   // |slope| above: trending
	MultivariateColumns int     `yaml:"multivariate_columns" json:"multivariate_columns"` // value columns above: multivariate
	LongHistoryRows     int     `yaml:"long_history_rows" json:"long_history_rows"`       // trend and above: arima
	LargeSampleRows     int     `yaml:"large_sample_rows" json:"large_sample_rows"`       // above: lstm / prophet
}

type MovingAverage struct {
	Window int `yaml:"window" json:"window"`
}

type ExponentialSmoothing struct {
	SeasonalPeriod int     `yaml:"seasonal_period" json:"seasonal_period"`
	GridStep       float64 `yaml:"grid_step" json:"grid_step"` // alpha/gamma search resolution
}

// ARIMA order (p, d, q); only q = 0 is fitted
type ARIMA struct {
	P int `yaml:"p" json:"p"`
	D int `yaml:"d" json:"d"`
	Q int `yaml:"q" json:"q"`
}

type Prophet struct {
	Changepoints     int     `yaml:"changepoints" json:"changepoints"`
	ChangepointRange float64 `yaml:"changepoint_range" json:"changepoint_range"`
	YearlyOrder      int     `yaml:"yearly_order" json:"yearly_order"`
	WeeklyOrder      int     `yaml:"weekly_order" json:"weekly_order"`
	ChangepointPrior float64 `yaml:"changepoint_prior" json:"changepoint_prior"` // ridge weight on slope changes
	SeasonalityPrior float64 `yaml:"seasonality_prior" json:"seasonality_prior"` // ridge weight on fourier terms
}

type LSTM struct {
	Timesteps    int     `yaml:"timesteps" json:"timesteps"`
	Hidden       int     `yaml:"hidden" json:"hidden"`
	Epochs       int     `yaml:"epochs" json:"epochs"`
	LearningRate float64 `yaml:"learning_rate" json:"learning_rate"`
	Seed         uint64  `yaml:"seed" json:"seed"`
}

type Qualitative struct {
	Periods int `yaml:"periods" json:"periods"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Selector: Selector{
			MinRows:             30,
			ACFMaxLag:           40,
			ACFThreshold:        0.5,
			ACFMinPeaks:         2,
			TrendSlope:          0.01,
			MultivariateColumns: 2,
			LongHistoryRows:     365,
			LargeSampleRows:     100,
		},
		MovingAverage:        MovingAverage{Window: 3},
		ExponentialSmoothing: ExponentialSmoothing{SeasonalPeriod: 12, GridStep: 0.05},
		ARIMA:                ARIMA{P: 5, D: 1, Q: 0},
		Prophet: Prophet{
			Changepoints:     25,
			ChangepointRange: 0.8,
			YearlyOrder:      10,
			WeeklyOrder:      3,
			ChangepointPrior: 10,
			SeasonalityPrior: 0.1,
		},
		LSTM: LSTM{
			Timesteps:    30,
			Hidden:       16,
			Epochs:       20,
			LearningRate: 0.01,
			Seed:         42,
		},
		Qualitative: Qualitative{Periods: 30},
	}
}
