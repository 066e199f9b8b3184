package qualitative

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var (
	minMultiplier = decimal.NewFromFloat(0.5)
	maxMultiplier = decimal.NewFromFloat(2.0)
)

// Scenario scales a base forecast by a multiplier
type Scenario struct {
	Name       string          `json:"name"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

// Projection is a scenario applied to a base value
type Projection struct {
	Name       string          `json:"name"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Value      decimal.Decimal `json:"value"`
}

// Set is an ordered list of scenarios
type Set []Scenario

// Scenario names
const (
	BestCase    = "Best-case"
	MostLikely  = "Most-likely"
	WorstCase   = "Worst-case"
	Optimistic  = "Optimistic"
	Base        = "Base"
	Pessimistic = "Pessimistic"
)

// ExpertScenarios are the multipliers used next to Delphi rounds
func ExpertScenarios() Set {
	return Set{
		{Name: BestCase, Multiplier: decimal.NewFromFloat(1.2)},
		{Name: MostLikely, Multiplier: decimal.NewFromInt(1)},
		{Name: WorstCase, Multiplier: decimal.NewFromFloat(0.8)},
	}
}

// DashboardScenarios are the multipliers offered next to a model forecast
func DashboardScenarios() Set {
	return Set{
		{Name: Optimistic, Multiplier: decimal.NewFromFloat(1.2)},
		{Name: Base, Multiplier: decimal.NewFromInt(1)},
		{Name: Pessimistic, Multiplier: decimal.NewFromFloat(0.8)},
	}
}

// Validate requires unique names and multipliers in [0.5, 2.0]
func (s Set) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("scenario set is empty")
	}
	seen := make(map[string]bool, len(s))
	for _, sc := range s {
		if sc.Name == "" {
			return fmt.Errorf("scenario name is required")
		}
		if seen[sc.Name] {
			return fmt.Errorf("duplicate scenario %q", sc.Name)
		}
		seen[sc.Name] = true
		if sc.Multiplier.LessThan(minMultiplier) || sc.Multiplier.GreaterThan(maxMultiplier) {
			return fmt.Errorf("scenario %q: multiplier %s outside [%s, %s]",
				sc.Name, sc.Multiplier, minMultiplier, maxMultiplier)
		}
	}
	return nil
}

// Multiplier returns the multiplier of a named scenario
func (s Set) Multiplier(name string) (decimal.Decimal, bool) {
	for _, sc := range s {
		if sc.Name == name {
			return sc.Multiplier, true
		}
	}
	return decimal.Zero, false
}

// Project applies every scenario to base
func (s Set) Project(base decimal.Decimal) []Projection {
	out := make([]Projection, len(s))
	for i, sc := range s {
		out[i] = Projection{Name: sc.Name, Multiplier: sc.Multiplier, Value: base.Mul(sc.Multiplier)}
	}
	return out
}

// ProjectSeries scales a forecast series per scenario; undefined values stay undefined
func (s Set) ProjectSeries(values []float64) map[string][]float64 {
	out := make(map[string][]float64, len(s))
	for _, sc := range s {
		m := sc.Multiplier.InexactFloat64()
		scaled := make([]float64, len(values))
		for i, v := range values {
			if math.IsNaN(v) {
				scaled[i] = v
				continue
			}
			scaled[i] = v * m
		}
		out[sc.Name] = scaled
	}
	return out
}
