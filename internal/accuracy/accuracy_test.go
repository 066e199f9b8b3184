package accuracy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/finsight/internal/contracts"
	"github.com/wonny/finsight/internal/dataset"
)

func days(start, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, start+i)
	}
	return out
}

func TestAlignDisjointIndicesIsEmpty(t *testing.T) {
	actual := dataset.NewSeries("a", days(0, 5), []float64{1, 2, 3, 4, 5})
	pred := dataset.NewSeries("p", days(10, 5), []float64{1, 2, 3, 4, 5})

	a, p := Align(actual, pred)
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, 0, p.Len())

	m := Calculate(actual, pred)
	assert.True(t, m.IsNull())
}

func TestAlignIntersectsInActualOrder(t *testing.T) {
	actual := dataset.NewSeries("a", days(0, 4), []float64{1, 2, 3, 4})
	pred := dataset.NewSeries("p", days(2, 4), []float64{30, 40, 50, 60})

	a, p := Align(actual, pred)
	assert.Equal(t, []float64{3, 4}, a.Values)
	assert.Equal(t, []float64{30, 40}, p.Values)
	assert.Equal(t, a.Index, p.Index)
}

func TestAlignPositionalWhenEitherUnindexed(t *testing.T) {
	actual := dataset.NewSeries("a", days(0, 3), []float64{1, 2, 3})
	pred := dataset.NewSeries("p", nil, []float64{1, 2, 3, 4, 5})

	a, p := Align(actual, pred)
	assert.Equal(t, 3, a.Len())
	assert.Equal(t, []float64{1, 2, 3}, p.Values)
}

func TestCalculate(t *testing.T) {
	actual := dataset.NewSeries("a", nil, []float64{1, 2, 3, 4})
	pred := dataset.NewSeries("p", nil, []float64{2, 2, 1, math.NaN()})

	m := Calculate(actual, pred)
	require.NotNil(t, m.MAE)
	require.NotNil(t, m.RMSE)
	// pairs (1,2) (2,2) (3,1): abs errors 1,0,2
	assert.InDelta(t, 1.0, *m.MAE, 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/3.0), *m.RMSE, 1e-12)
}

func TestCalculateEmpty(t *testing.T) {
	m := Calculate(dataset.NewSeries("a", nil, nil), dataset.NewSeries("p", nil, nil))
	assert.Nil(t, m.MAE)
	assert.Nil(t, m.RMSE)
}

func TestBest(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	rows := []contracts.EvaluationRow{
		{Model: contracts.ModelLinearRegression, Metrics: contracts.Metrics{MAE: f(2), RMSE: f(1)}},
		{Model: contracts.ModelARIMA, Metrics: contracts.NullMetrics(), Error: "failed"},
		{Model: contracts.ModelProphet, Metrics: contracts.Metrics{MAE: f(1), RMSE: f(3)}},
	}

	mae, rmse := Best(rows)
	assert.Equal(t, contracts.ModelProphet, mae)
	assert.Equal(t, contracts.ModelLinearRegression, rmse)

	mae, rmse = Best(rows[1:2])
	assert.Empty(t, mae)
	assert.Empty(t, rmse)
}
