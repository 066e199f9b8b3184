// Package dataset holds the tabular types the forecasting core works on and the cleaner
// that prepares them.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// DateColumn is the reserved name of the time column in every input format
const DateColumn = "date"

var (
	// ErrColumnNotFound is returned when a named column is absent
	ErrColumnNotFound = errors.New("column not found")
	// ErrLengthMismatch is returned when columns and dates disagree on row count
	ErrLengthMismatch = errors.New("column length mismatch")
)

// Series is a single column of values. A nil Index means the values are positional.
// NaN marks an undefined value.
type Series struct {
	Name   string      `json:"name"`
	Index  []time.Time `json:"index,omitempty"`
	Values []float64   `json:"values"`
}

// NewSeries builds a series; index may be nil
func NewSeries(name string, index []time.Time, values []float64) *Series {
	return &Series{Name: name, Index: index, Values: values}
}

// Len returns the number of values
func (s *Series) Len() int { return len(s.Values) }

// Indexed reports whether the series carries dates
func (s *Series) Indexed() bool { return s.Index != nil }

// Defined counts the non-NaN values
func (s *Series) Defined() int {
	n := 0
	for _, v := range s.Values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Head returns the first n entries (all of them when n exceeds the length)
func (s *Series) Head(n int) *Series {
	if n > len(s.Values) {
		n = len(s.Values)
	}
	if n < 0 {
		n = 0
	}
	out := &Series{Name: s.Name, Values: append([]float64(nil), s.Values[:n]...)}
	if s.Index != nil {
		out.Index = append([]time.Time{}, s.Index[:n]...)
	}
	return out
}

// Positional drops the index
func (s *Series) Positional() *Series {
	return &Series{Name: s.Name, Values: append([]float64(nil), s.Values...)}
}

// Records returns one map per entry with the value under the series name and NaN as nil
func (s *Series) Records() []map[string]interface{} {
	out := make([]map[string]interface{}, len(s.Values))
	for i, v := range s.Values {
		rec := make(map[string]interface{}, 2)
		if i < len(s.Index) {
			rec[DateColumn] = s.Index[i].Format("2006-01-02")
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			rec[s.Name] = nil
		} else {
			rec[s.Name] = v
		}
		out[i] = rec
	}
	return out
}

// Frame is an immutable-by-convention table of float64 columns with an optional date index.
// Accessors return copies; transformations return new frames.
type Frame struct {
	dates   []time.Time
	columns []string
	data    map[string][]float64
}

// NewFrame validates lengths and copies its inputs. dates may be nil.
func NewFrame(dates []time.Time, columns []string, data map[string][]float64) (*Frame, error) {
	rows := -1
	if dates != nil {
		rows = len(dates)
	}

	f := &Frame{
		columns: make([]string, 0, len(columns)),
		data:    make(map[string][]float64, len(columns)),
	}
	for _, c := range columns {
		if c == DateColumn {
			continue
		}
		vals, ok := data[c]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, c)
		}
		if rows == -1 {
			rows = len(vals)
		}
		if len(vals) != rows {
			return nil, fmt.Errorf("%w: %s has %d rows, want %d", ErrLengthMismatch, c, len(vals), rows)
		}
		if _, dup := f.data[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		f.columns = append(f.columns, c)
		f.data[c] = append([]float64(nil), vals...)
	}
	if dates != nil {
		f.dates = append([]time.Time{}, dates...)
	}
	return f, nil
}

// Empty returns a frame with no rows and no columns
func Empty() *Frame {
	return &Frame{data: map[string][]float64{}}
}

// Len returns the number of rows
func (f *Frame) Len() int {
	if f.dates != nil {
		return len(f.dates)
	}
	if len(f.columns) == 0 {
		return 0
	}
	return len(f.data[f.columns[0]])
}

// Columns returns the value column names in input order (the date column is not a value column)
func (f *Frame) Columns() []string {
	return append([]string(nil), f.columns...)
}

// HasDates reports whether the frame carries a date index
func (f *Frame) HasDates() bool { return f.dates != nil }

// Dates returns a copy of the date index, nil when absent
func (f *Frame) Dates() []time.Time {
	if f.dates == nil {
		return nil
	}
	return append([]time.Time{}, f.dates...)
}

// Has reports whether a value column exists
func (f *Frame) Has(name string) bool {
	_, ok := f.data[name]
	return ok
}

// Column returns a copy of a value column
func (f *Frame) Column(name string) ([]float64, error) {
	vals, ok := f.data[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	return append([]float64(nil), vals...), nil
}

// Series returns a value column as a series indexed by the frame dates
func (f *Frame) Series(name string) (*Series, error) {
	vals, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	return &Series{Name: name, Index: f.Dates(), Values: vals}, nil
}

// Slice returns rows [i, j)
func (f *Frame) Slice(i, j int) *Frame {
	n := f.Len()
	if i < 0 {
		i = 0
	}
	if j > n {
		j = n
	}
	if i > j {
		i = j
	}

	out := &Frame{columns: f.Columns(), data: make(map[string][]float64, len(f.columns))}
	for _, c := range f.columns {
		out.data[c] = append([]float64(nil), f.data[c][i:j]...)
	}
	if f.dates != nil {
		out.dates = append([]time.Time{}, f.dates[i:j]...)
	}
	return out
}

// Head returns the first n rows
func (f *Frame) Head(n int) *Frame { return f.Slice(0, n) }

// Tail returns the last n rows
func (f *Frame) Tail(n int) *Frame { return f.Slice(f.Len()-n, f.Len()) }

// WithColumn returns a copy with vals set as column name (appended when new)
func (f *Frame) WithColumn(name string, vals []float64) (*Frame, error) {
	if (len(f.columns) > 0 || f.dates != nil) && len(vals) != f.Len() {
		return nil, fmt.Errorf("%w: %s has %d rows, want %d", ErrLengthMismatch, name, len(vals), f.Len())
	}
	cols := f.Columns()
	if !f.Has(name) {
		cols = append(cols, name)
	}
	data := make(map[string][]float64, len(cols))
	for _, c := range f.columns {
		data[c] = f.data[c]
	}
	data[name] = vals
	return NewFrame(f.dates, cols, data)
}

// HasUndefined reports whether any value is NaN
func (f *Frame) HasUndefined() bool {
	for _, c := range f.columns {
		for _, v := range f.data[c] {
			if math.IsNaN(v) {
				return true
			}
		}
	}
	return false
}

// SortByDate returns a copy with rows ordered by date. Ties keep input order.
// A frame without dates is returned unchanged.
func (f *Frame) SortByDate() *Frame {
	if f.dates == nil || sort.SliceIsSorted(f.dates, func(i, j int) bool { return f.dates[i].Before(f.dates[j]) }) {
		return f.Slice(0, f.Len())
	}

	order := make([]int, len(f.dates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return f.dates[order[a]].Before(f.dates[order[b]]) })

	out := &Frame{columns: f.Columns(), data: make(map[string][]float64, len(f.columns))}
	out.dates = make([]time.Time, len(order))
	for i, o := range order {
		out.dates[i] = f.dates[o]
	}
	for _, c := range f.columns {
		src := f.data[c]
		dst := make([]float64, len(order))
		for i, o := range order {
			dst[i] = src[o]
		}
		out.data[c] = dst
	}
	return out
}

// Records returns one map per row, keyed by column name, with the date as "date"
func (f *Frame) Records() []map[string]interface{} {
	out := make([]map[string]interface{}, f.Len())
	for i := range out {
		rec := make(map[string]interface{}, len(f.columns)+1)
		if f.dates != nil {
			rec[DateColumn] = f.dates[i].Format("2006-01-02")
		}
		for _, c := range f.columns {
			v := f.data[c][i]
			if math.IsNaN(v) {
				rec[c] = nil
			} else {
				rec[c] = v
			}
		}
		out[i] = rec
	}
	return out
}
