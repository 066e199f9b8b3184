// Package qualitative covers judgment-based forecasting: Delphi rounds of expert estimates
// and scenario multipliers.
package qualitative

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	// ErrNoConfidence is returned when every recorded confidence is zero
	ErrNoConfidence = errors.New("total confidence is zero")
	// ErrInvalidEntry is returned for a blank expert or out-of-range confidence
	ErrInvalidEntry = errors.New("invalid expert entry")
)

// Entry is one expert's estimate with a confidence in [0, 1]
type Entry struct {
	Expert     string  `json:"expert"`
	Value      float64 `json:"value"`
	Confidence float64 `json:"confidence"`
}

func (e Entry) validate() error {
	if e.Expert == "" {
		return fmt.Errorf("%w: expert name is required", ErrInvalidEntry)
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("%w: confidence %.3f outside [0, 1]", ErrInvalidEntry, e.Confidence)
	}
	return nil
}

// State accumulates the latest estimate of every expert across Delphi rounds.
// It is a value: Record never mutates the receiver, it returns the next state.
type State struct {
	Round      int                `json:"round"`
	Estimates  map[string]float64 `json:"estimates"`
	Confidence map[string]float64 `json:"confidence"`
}

// NewState returns an empty accumulator
func NewState() State {
	return State{Estimates: map[string]float64{}, Confidence: map[string]float64{}}
}

// Record stores e (replacing the expert's earlier estimate) and returns the new state
// with the confidence-weighted average over every expert recorded so far.
func (s State) Record(e Entry) (State, float64, error) {
	if err := e.validate(); err != nil {
		return s, 0, err
	}

	next := State{
		Round:      s.Round,
		Estimates:  make(map[string]float64, len(s.Estimates)+1),
		Confidence: make(map[string]float64, len(s.Confidence)+1),
	}
	for k, v := range s.Estimates {
		next.Estimates[k] = v
	}
	for k, v := range s.Confidence {
		next.Confidence[k] = v
	}
	next.Estimates[e.Expert] = e.Value
	next.Confidence[e.Expert] = e.Confidence

	avg, err := next.WeightedAverage()
	if err != nil {
		return s, 0, err
	}
	return next, avg, nil
}

// NextRound returns a copy with the round counter advanced
func (s State) NextRound() State {
	next := NewState()
	next.Round = s.Round + 1
	for k, v := range s.Estimates {
		next.Estimates[k] = v
		next.Confidence[k] = s.Confidence[k]
	}
	return next
}

// WeightedAverage is Σ value·confidence / Σ confidence over recorded experts
func (s State) WeightedAverage() (float64, error) {
	experts := make([]string, 0, len(s.Estimates))
	for k := range s.Estimates {
		experts = append(experts, k)
	}
	sort.Strings(experts)

	entries := make([]Entry, len(experts))
	for i, k := range experts {
		entries[i] = Entry{Expert: k, Value: s.Estimates[k], Confidence: s.Confidence[k]}
	}
	return weightedAverage(entries)
}

// RoundSummary returns the weighted average of one complete round
func RoundSummary(entries []Entry) (float64, error) {
	for _, e := range entries {
		if err := e.validate(); err != nil {
			return 0, err
		}
	}
	return weightedAverage(entries)
}

func weightedAverage(entries []Entry) (float64, error) {
	num, den := decimal.Zero, decimal.Zero
	for _, e := range entries {
		w := decimal.NewFromFloat(e.Confidence)
		num = num.Add(decimal.NewFromFloat(e.Value).Mul(w))
		den = den.Add(w)
	}
	if den.IsZero() {
		return 0, ErrNoConfidence
	}
	return num.DivRound(den, 10).InexactFloat64(), nil
}
