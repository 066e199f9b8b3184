package dataset

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(i int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func mustFrame(t *testing.T, dates []time.Time, cols []string, data map[string][]float64) *Frame {
	t.Helper()
	f, err := NewFrame(dates, cols, data)
	require.NoError(t, err)
	return f
}

func TestNewFrameValidation(t *testing.T) {
	_, err := NewFrame(nil, []string{"a", "b"}, map[string][]float64{"a": {1, 2}, "b": {1}})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = NewFrame(nil, []string{"a"}, map[string][]float64{})
	assert.ErrorIs(t, err, ErrColumnNotFound)

	f := mustFrame(t, []time.Time{day(0), day(1)}, []string{"date", "a"}, map[string][]float64{"a": {1, 2}})
	assert.Equal(t, []string{"a"}, f.Columns(), "date is an index, not a value column")
	assert.Equal(t, 2, f.Len())
}

func TestFrameSliceAndCopies(t *testing.T) {
	f := mustFrame(t, []time.Time{day(0), day(1), day(2)}, []string{"a"}, map[string][]float64{"a": {1, 2, 3}})

	col, err := f.Column("a")
	require.NoError(t, err)
	col[0] = 99

	again, _ := f.Column("a")
	assert.Equal(t, 1.0, again[0], "Column must return a copy")

	tail := f.Tail(2)
	assert.Equal(t, 2, tail.Len())
	assert.Equal(t, day(1), tail.Dates()[0])
	assert.Equal(t, 3, f.Head(10).Len())
}

func TestSortByDate(t *testing.T) {
	f := mustFrame(t, []time.Time{day(2), day(0), day(1)}, []string{"a"}, map[string][]float64{"a": {3, 1, 2}})

	sorted := f.SortByDate()
	vals, _ := sorted.Column("a")
	assert.Equal(t, []float64{1, 2, 3}, vals)
	assert.Equal(t, []time.Time{day(0), day(1), day(2)}, sorted.Dates())
}

func TestFillInterpolatesInTime(t *testing.T) {
	nan := math.NaN()
	// day 0 -> 0, day 1 missing, day 3 -> 30: time-weighted gives 10 at day 1
	f := mustFrame(t,
		[]time.Time{day(0), day(1), day(3), day(4)},
		[]string{"a"},
		map[string][]float64{"a": {0, nan, 30, nan}},
	)

	filled, _ := Fill(f).Column("a")
	assert.InDelta(t, 10, filled[1], 1e-9)
	assert.Equal(t, 30.0, filled[3], "trailing gap carries last value")
}

func TestFillLeadingAndPositional(t *testing.T) {
	nan := math.NaN()
	f := mustFrame(t, nil, []string{"a"}, map[string][]float64{"a": {nan, nan, 2, nan, 6}})

	filled, _ := Fill(f).Column("a")
	assert.Equal(t, []float64{2, 2, 2, 4, 6}, filled)
}

func TestCleanStandardizes(t *testing.T) {
	f := mustFrame(t, []time.Time{day(0), day(1), day(2), day(3)}, []string{"a"}, map[string][]float64{"a": {1, 2, 3, 4}})

	cleaned, moments := CleanWithMoments(f)
	vals, _ := cleaned.Column("a")

	assert.InDelta(t, 2.5, moments["a"].Mean, 1e-12)
	// sample std of 1..4 is sqrt(5/3)
	assert.InDelta(t, math.Sqrt(5.0/3.0), moments["a"].Std, 1e-12)

	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	assert.InDelta(t, 0, sum, 1e-12)
	assert.InDelta(t, 1, ColumnMoments(vals).Std, 1e-12)
}

func TestCleanZeroVarianceIsUndefined(t *testing.T) {
	f := mustFrame(t, nil, []string{"flat", "ok"}, map[string][]float64{
		"flat": {5, 5, 5},
		"ok":   {1, 2, 3},
	})

	cleaned := Clean(f)
	flat, _ := cleaned.Column("flat")
	for _, v := range flat {
		assert.True(t, math.IsNaN(v))
	}
	assert.True(t, cleaned.HasUndefined())
}

func TestCleanIdempotent(t *testing.T) {
	nan := math.NaN()
	f := mustFrame(t,
		[]time.Time{day(3), day(0), day(1), day(2), day(5), day(4)},
		[]string{"revenue", "expenses"},
		map[string][]float64{
			"revenue":  {10, 4, nan, 7, 12, 15},
			"expenses": {3, 1, 2, nan, 9, 4},
		},
	)

	once := Clean(f)
	twice := Clean(once)

	for _, c := range once.Columns() {
		a, _ := once.Column(c)
		b, _ := twice.Column(c)
		require.Len(t, b, len(a))
		for i := range a {
			assert.InDelta(t, a[i], b[i], 1e-9, "%s[%d]", c, i)
		}
	}
}

func TestCleanDoesNotMutateInput(t *testing.T) {
	f := mustFrame(t, nil, []string{"a"}, map[string][]float64{"a": {1, 2, 3}})
	_ = Clean(f)
	vals, _ := f.Column("a")
	assert.Equal(t, []float64{1, 2, 3}, vals)
}

func TestMomentsScale(t *testing.T) {
	m := Moments{Mean: 10, Std: 2}
	assert.Equal(t, 1.0, m.Scale(12))
	assert.Equal(t, 12.0, m.Unscale(1))
	assert.True(t, math.IsNaN(Moments{Mean: 1, Std: 0}.Scale(3)))
}

func TestInferFrequency(t *testing.T) {
	dates := []time.Time{day(0), day(7), day(14), day(21)}
	assert.Equal(t, 7*24*time.Hour, InferFrequency(dates))
	assert.Equal(t, time.Duration(0), InferFrequency(dates[:1]))
}

func TestSeriesHelpers(t *testing.T) {
	s := NewSeries("x", []time.Time{day(0), day(1), day(2)}, []float64{1, math.NaN(), 3})
	assert.Equal(t, 2, s.Defined())
	assert.True(t, s.Indexed())
	assert.False(t, s.Positional().Indexed())
	assert.Equal(t, 2, s.Head(2).Len())
	assert.Equal(t, 3, s.Head(10).Len())
}

func TestSeriesRecords(t *testing.T) {
	s := NewSeries("revenue", []time.Time{day(0), day(1)}, []float64{math.NaN(), 2.5})
	recs := s.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "2024-01-01", recs[0]["date"])
	assert.Nil(t, recs[0]["revenue"])
	assert.Equal(t, 2.5, recs[1]["revenue"])

	_, hasDate := s.Positional().Records()[0]["date"]
	assert.False(t, hasDate)
}
