package contracts

import (
	"fmt"
	"math"
	"strings"
)

// ModelLabel identifies a forecasting method
// ⭐ SSOT: the label set is closed; every registry is keyed by these constants
type ModelLabel string

const (
	ModelMovingAverage        ModelLabel = "moving_average"
	ModelExponentialSmoothing ModelLabel = "exponential_smoothing"
	ModelLinearRegression     ModelLabel = "linear_regression"
	ModelARIMA                ModelLabel = "arima"
	ModelProphet              ModelLabel = "prophet"
	ModelLSTM                 ModelLabel = "lstm"
	ModelQualitative          ModelLabel = "qualitative"

	// ModelAuto is a request-side alias, never a registry key
	ModelAuto ModelLabel = "auto"
)

// AllModels lists every registry label
func AllModels() []ModelLabel {
	return []ModelLabel{
		ModelMovingAverage,
		ModelExponentialSmoothing,
		ModelLinearRegression,
		ModelARIMA,
		ModelProphet,
		ModelLSTM,
		ModelQualitative,
	}
}

// EvaluationOrder is the fixed order of the comparison report
func EvaluationOrder() []ModelLabel {
	return []ModelLabel{
		ModelLinearRegression,
		ModelARIMA,
		ModelProphet,
		ModelMovingAverage,
		ModelExponentialSmoothing,
		ModelLSTM,
	}
}

// Valid reports whether m is a registry label
func (m ModelLabel) Valid() bool {
	for _, l := range AllModels() {
		if m == l {
			return true
		}
	}
	return false
}

// ParseModelLabel normalizes user input; "" and "auto" map to ModelAuto
func ParseModelLabel(s string) (ModelLabel, error) {
	label := ModelLabel(strings.ToLower(strings.TrimSpace(s)))
	if label == "" || label == ModelAuto {
		return ModelAuto, nil
	}
	if !label.Valid() {
		return "", fmt.Errorf("unknown model type: %s", s)
	}
	return label, nil
}

// Metrics holds accuracy scores; nil means the score is undefined
type Metrics struct {
	MAE  *float64 `json:"mae"`
	RMSE *float64 `json:"rmse"`
}

// NullMetrics returns metrics with both scores undefined
func NullMetrics() Metrics { return Metrics{} }

// NewMetrics builds metrics, mapping NaN/Inf to null
func NewMetrics(mae, rmse float64) Metrics {
	return Metrics{MAE: finite(mae), RMSE: finite(rmse)}
}

// IsNull reports whether neither score is defined
func (m Metrics) IsNull() bool { return m.MAE == nil && m.RMSE == nil }

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Signals are the dataset characteristics the selector decides on
type Signals struct {
	Rows           int     `json:"rows"`
	Columns        int     `json:"columns"`
	HasSeasonality bool    `json:"has_seasonality"`
	HasTrend       bool    `json:"has_trend"`
	Multivariate   bool    `json:"multivariate"`
	ACFPeaks       int     `json:"acf_peaks"`
	Slope          float64 `json:"slope"`
}

// EvaluationRow is one model's outcome in a comparison
type EvaluationRow struct {
	Model ModelLabel `json:"model"`
	Metrics
	Error string `json:"error,omitempty"`
}

// Failed reports whether the model raised during evaluation
func (r EvaluationRow) Failed() bool { return r.Error != "" }

// EvaluationReport compares every evaluated model on one hold-out split
type EvaluationReport struct {
	Target    string          `json:"target"`
	Horizon   int             `json:"horizon"`
	TrainRows int             `json:"train_rows"`
	Rows      []EvaluationRow `json:"rows"`
	BestMAE   ModelLabel      `json:"best_mae,omitempty"`
	BestRMSE  ModelLabel      `json:"best_rmse,omitempty"`
}

// Row returns the row of a model
func (r *EvaluationReport) Row(m ModelLabel) (EvaluationRow, bool) {
	for _, row := range r.Rows {
		if row.Model == m {
			return row, true
		}
	}
	return EvaluationRow{}, false
}
