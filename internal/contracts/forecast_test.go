package contracts

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelLabel(t *testing.T) {
	tests := []struct {
		in      string
		want    ModelLabel
		wantErr bool
	}{
		{"", ModelAuto, false},
		{"auto", ModelAuto, false},
		{" ARIMA ", ModelARIMA, false},
		{"qualitative", ModelQualitative, false},
		{"xgboost", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseModelLabel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluationOrderExcludesQualitative(t *testing.T) {
	order := EvaluationOrder()
	assert.Len(t, order, 6)
	assert.Equal(t, ModelLinearRegression, order[0])
	assert.NotContains(t, order, ModelQualitative)
	assert.False(t, ModelAuto.Valid())
}

func TestMetricsNullEncoding(t *testing.T) {
	m := NewMetrics(math.NaN(), 2.5)
	assert.Nil(t, m.MAE)
	require.NotNil(t, m.RMSE)

	row := EvaluationRow{Model: ModelARIMA, Metrics: NullMetrics(), Error: "boom"}
	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{"model":"arima","mae":null,"rmse":null,"error":"boom"}`, string(data))
	assert.True(t, row.Failed())
}

func TestTableRecords(t *testing.T) {
	tbl := &Table{Columns: []string{"title", "link"}, Rows: [][]string{{"Q1", "a"}, {"Q2"}}}
	recs := tbl.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0]["link"])
	_, ok := recs[1]["link"]
	assert.False(t, ok)

	var nilTable *Table
	assert.Equal(t, 0, nilTable.Len())
}
