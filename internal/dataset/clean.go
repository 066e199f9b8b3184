package dataset

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Moments are the statistics a column was standardized with
type Moments struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// Scale maps a raw value into the standardized space; NaN when std is zero or undefined
func (m Moments) Scale(v float64) float64 {
	if m.Std == 0 || math.IsNaN(m.Std) {
		return math.NaN()
	}
	return (v - m.Mean) / m.Std
}

// Unscale maps a standardized value back to the raw space
func (m Moments) Unscale(v float64) float64 {
	return v*m.Std + m.Mean
}

// Clean sorts by date, fills missing values and z-scores every value column.
// A constant column standardizes to NaN; callers check Frame.HasUndefined.
func Clean(f *Frame) *Frame {
	out, _ := CleanWithMoments(f)
	return out
}

// CleanWithMoments is Clean that also returns the per-column moments used
func CleanWithMoments(f *Frame) (*Frame, map[string]Moments) {
	return Standardize(Fill(f))
}

// Fill sorts by date and fills gaps: interior gaps are interpolated linearly in time
// (by position without dates), trailing gaps carry the last value forward and
// leading gaps take the first value.
func Fill(f *Frame) *Frame {
	out := f.SortByDate()

	x := make([]float64, out.Len())
	if out.dates != nil {
		for i, d := range out.dates {
			x[i] = float64(d.Unix())
		}
	} else {
		for i := range x {
			x[i] = float64(i)
		}
	}

	for _, c := range out.columns {
		out.data[c] = interpolate(x, out.data[c])
	}
	return out
}

// Standardize z-scores every value column with its own mean and sample standard deviation
func Standardize(f *Frame) (*Frame, map[string]Moments) {
	out := f.Slice(0, f.Len())
	moments := make(map[string]Moments, len(out.columns))

	for _, c := range out.columns {
		vals := out.data[c]
		m := ColumnMoments(vals)
		moments[c] = m
		for i, v := range vals {
			vals[i] = m.Scale(v)
		}
	}
	return out, moments
}

// ColumnMoments returns mean and sample std of the defined values.
// Fewer than two defined values leave Std as NaN.
func ColumnMoments(vals []float64) Moments {
	defined := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			defined = append(defined, v)
		}
	}
	if len(defined) == 0 {
		return Moments{Mean: math.NaN(), Std: math.NaN()}
	}
	if len(defined) == 1 {
		return Moments{Mean: defined[0], Std: math.NaN()}
	}
	mean, std := stat.MeanStdDev(defined, nil)
	return Moments{Mean: mean, Std: std}
}

// interpolate fills NaNs in y against coordinates x
func interpolate(x, y []float64) []float64 {
	out := append([]float64(nil), y...)

	first, last := -1, -1
	for i, v := range out {
		if !math.IsNaN(v) {
			if first == -1 {
				first = i
			}
			last = i
		}
	}
	if first == -1 {
		return out
	}

	for i := 0; i < first; i++ {
		out[i] = out[first]
	}
	for i := last + 1; i < len(out); i++ {
		out[i] = out[last]
	}

	prev := first
	for i := first + 1; i <= last; i++ {
		if math.IsNaN(out[i]) {
			continue
		}
		if i-prev > 1 {
			span := x[i] - x[prev]
			for k := prev + 1; k < i; k++ {
				w := 0.0
				if span != 0 {
					w = (x[k] - x[prev]) / span
				}
				out[k] = out[prev] + w*(out[i]-out[prev])
			}
		}
		prev = i
	}
	return out
}

// InferFrequency returns the median spacing between consecutive dates, zero when undetermined
func InferFrequency(dates []time.Time) time.Duration {
	if len(dates) < 2 {
		return 0
	}
	gaps := make([]float64, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		gaps = append(gaps, dates[i].Sub(dates[i-1]).Seconds())
	}
	sort.Float64s(gaps)
	return time.Duration(stat.Quantile(0.5, stat.Empirical, gaps, nil) * float64(time.Second))
}
