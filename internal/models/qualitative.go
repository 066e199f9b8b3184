package models

import (
	"context"
	"math"
	"time"

	"github.com/wonny/finsight/internal/dataset"
	"github.com/wonny/finsight/internal/modelconfig"
	"github.com/wonny/finsight/internal/qualitative"
)

// Qualitative projects a judgment-based base value over the next daily periods.
// The base is the Delphi consensus when one is supplied, else the last observed target
// value, else zero. It is scaled by the Most-likely scenario multiplier.
type Qualitative struct {
	periods   int
	consensus *float64
	scenarios qualitative.Set
	now       func() time.Time
}

// NewQualitative creates the adapter; consensus may be nil
func NewQualitative(cfg modelconfig.Qualitative, consensus *float64) *Qualitative {
	return &Qualitative{
		periods:   cfg.Periods,
		consensus: consensus,
		scenarios: qualitative.ExpertScenarios(),
		now:       time.Now,
	}
}

// WithScenarios overrides the multiplier set
func (q *Qualitative) WithScenarios(s qualitative.Set) *Qualitative {
	q.scenarios = s
	return q
}

// Forecast returns q.periods daily values starting the day after the last date,
// or today when the frame has no dates
func (q *Qualitative) Forecast(_ context.Context, f *dataset.Frame, target string) (*dataset.Series, error) {
	base := q.base(f, target)
	if m, ok := q.scenarios.Multiplier(qualitative.MostLikely); ok {
		base *= m.InexactFloat64()
	}

	start := truncateDay(q.now())
	if dates := f.Dates(); len(dates) > 0 {
		start = truncateDay(dates[len(dates)-1]).AddDate(0, 0, 1)
	}

	index := make([]time.Time, q.periods)
	values := make([]float64, q.periods)
	for i := range index {
		index[i] = start.AddDate(0, 0, i)
		values[i] = base
	}
	return dataset.NewSeries(target, index, values), nil
}

func (q *Qualitative) base(f *dataset.Frame, target string) float64 {
	if q.consensus != nil {
		return *q.consensus
	}
	vals, err := f.Column(target)
	if err != nil {
		return 0
	}
	for i := len(vals) - 1; i >= 0; i-- {
		if !math.IsNaN(vals[i]) {
			return vals[i]
		}
	}
	return 0
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
