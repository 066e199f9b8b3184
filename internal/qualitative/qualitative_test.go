package qualitative

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRecordIsPure(t *testing.T) {
	s0 := NewState()

	s1, avg, err := s0.Record(Entry{Expert: "a", Value: 100, Confidence: 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 100, avg, 1e-9)
	assert.Empty(t, s0.Estimates, "previous state must not change")

	s2, avg, err := s1.Record(Entry{Expert: "b", Value: 200, Confidence: 1.0})
	require.NoError(t, err)
	// (100*0.5 + 200*1) / 1.5
	assert.InDelta(t, 166.6666666667, avg, 1e-6)
	assert.Len(t, s1.Estimates, 1)
	assert.Len(t, s2.Estimates, 2)
}

func TestStateRecordReplacesExpert(t *testing.T) {
	s, _, err := NewState().Record(Entry{Expert: "a", Value: 10, Confidence: 1})
	require.NoError(t, err)
	s, _, _ = s.Record(Entry{Expert: "b", Value: 30, Confidence: 1})
	s, avg, err := s.NextRound().Record(Entry{Expert: "a", Value: 20, Confidence: 1})
	require.NoError(t, err)

	assert.Equal(t, 1, s.Round)
	assert.InDelta(t, 25, avg, 1e-9)
}

func TestStateRecordErrors(t *testing.T) {
	s := NewState()

	_, _, err := s.Record(Entry{Expert: "", Value: 1, Confidence: 1})
	assert.True(t, errors.Is(err, ErrInvalidEntry))

	_, _, err = s.Record(Entry{Expert: "a", Value: 1, Confidence: 1.5})
	assert.True(t, errors.Is(err, ErrInvalidEntry))

	_, _, err = s.Record(Entry{Expert: "a", Value: 1, Confidence: 0})
	assert.True(t, errors.Is(err, ErrNoConfidence))
}

func TestRoundSummary(t *testing.T) {
	avg, err := RoundSummary([]Entry{
		{Expert: "Expert 1", Value: 90, Confidence: 0.75},
		{Expert: "Expert 2", Value: 110, Confidence: 0.25},
	})
	require.NoError(t, err)
	assert.InDelta(t, 95, avg, 1e-9)

	_, err = RoundSummary(nil)
	assert.ErrorIs(t, err, ErrNoConfidence)
}

func TestScenarioProject(t *testing.T) {
	got := ExpertScenarios().Project(decimal.NewFromInt(1000))
	require.Len(t, got, 3)
	assert.Equal(t, BestCase, got[0].Name)
	assert.True(t, got[0].Value.Equal(decimal.NewFromInt(1200)))
	assert.True(t, got[1].Value.Equal(decimal.NewFromInt(1000)))
	assert.True(t, got[2].Value.Equal(decimal.NewFromInt(800)))
}

func TestScenarioValidate(t *testing.T) {
	require.NoError(t, DashboardScenarios().Validate())

	bad := Set{{Name: "x", Multiplier: decimal.NewFromFloat(2.5)}}
	assert.Error(t, bad.Validate())

	dup := Set{{Name: "x", Multiplier: decimal.NewFromInt(1)}, {Name: "x", Multiplier: decimal.NewFromInt(1)}}
	assert.Error(t, dup.Validate())

	assert.Error(t, Set{}.Validate())
}

func TestProjectSeriesKeepsUndefined(t *testing.T) {
	out := DashboardScenarios().ProjectSeries([]float64{math.NaN(), 10})
	assert.True(t, math.IsNaN(out[Optimistic][0]))
	assert.InDelta(t, 12, out[Optimistic][1], 1e-9)
	assert.InDelta(t, 8, out[Pessimistic][1], 1e-9)

	m, ok := DashboardScenarios().Multiplier(Base)
	assert.True(t, ok)
	assert.True(t, m.Equal(decimal.NewFromInt(1)))
}
