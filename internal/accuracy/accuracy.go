// Package accuracy scores predictions against actuals.
package accuracy

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/wonny/finsight/internal/contracts"
	"github.com/wonny/finsight/internal/dataset"
)

// Align pairs actual and predicted values.
// When both series are indexed the result holds only their common dates, in the order
// of actual. Otherwise no alignment is attempted and the values are paired by position,
// truncated to the shorter length.
func Align(actual, predicted *dataset.Series) (*dataset.Series, *dataset.Series) {
	if actual.Indexed() && predicted.Indexed() {
		pos := make(map[int64]int, len(predicted.Index))
		for i, d := range predicted.Index {
			if _, seen := pos[key(d)]; !seen {
				pos[key(d)] = i
			}
		}

		a := &dataset.Series{Name: actual.Name, Index: []time.Time{}, Values: []float64{}}
		p := &dataset.Series{Name: predicted.Name, Index: []time.Time{}, Values: []float64{}}
		for i, d := range actual.Index {
			j, ok := pos[key(d)]
			if !ok {
				continue
			}
			a.Index = append(a.Index, d)
			a.Values = append(a.Values, actual.Values[i])
			p.Index = append(p.Index, d)
			p.Values = append(p.Values, predicted.Values[j])
		}
		return a, p
	}

	n := min(actual.Len(), predicted.Len())
	return actual.Head(n), predicted.Head(n)
}

// Calculate aligns the series and returns MAE and RMSE over pairs where both sides
// are defined. No pairs yields null metrics.
func Calculate(actual, predicted *dataset.Series) contracts.Metrics {
	a, p := Align(actual, predicted)

	var xs, ys []float64
	for i := range a.Values {
		if math.IsNaN(a.Values[i]) || math.IsNaN(p.Values[i]) {
			continue
		}
		xs = append(xs, a.Values[i])
		ys = append(ys, p.Values[i])
	}
	if len(xs) == 0 {
		return contracts.NullMetrics()
	}

	n := float64(len(xs))
	mae := floats.Distance(xs, ys, 1) / n
	rmse := floats.Distance(xs, ys, 2) / math.Sqrt(n)
	return contracts.NewMetrics(mae, rmse)
}

// Best returns the models with the lowest MAE and lowest RMSE among defined rows.
// Ties keep the earlier row. An empty label means no row had a defined score.
func Best(rows []contracts.EvaluationRow) (bestMAE, bestRMSE contracts.ModelLabel) {
	minMAE, minRMSE := math.Inf(1), math.Inf(1)
	for _, r := range rows {
		if r.MAE != nil && *r.MAE < minMAE {
			minMAE, bestMAE = *r.MAE, r.Model
		}
		if r.RMSE != nil && *r.RMSE < minRMSE {
			minRMSE, bestRMSE = *r.RMSE, r.Model
		}
	}
	return bestMAE, bestRMSE
}

func key(t time.Time) int64 { return t.UnixNano() }
