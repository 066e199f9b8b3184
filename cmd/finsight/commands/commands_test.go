package commands

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/finsight/internal/ingest"
)

func TestColumnWidths(t *testing.T) {
	widths := columnWidths(
		[]string{"model", "mae"},
		[][]string{{"exponential_smoothing", "0.1"}, {"arima", "12.3456"}},
	)
	assert.Equal(t, []int{21, 7}, widths)

	long := make([]rune, 60)
	for i := range long {
		long[i] = 'x'
	}
	assert.Equal(t, []int{40}, columnWidths([]string{"title"}, [][]string{{string(long)}}))
}

func TestFormatValue(t *testing.T) {
	v := 1.5
	assert.Equal(t, "1.5000", formatValue(&v))
	assert.Equal(t, "-", formatValue(nil))
	assert.Nil(t, finite(math.NaN()))
}

func TestSampleWritesEveryFormat(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"sample.csv", "sample.xlsx", "sample.json"} {
		t.Run(name, func(t *testing.T) {
			sampleOutput = filepath.Join(dir, name)
			t.Cleanup(func() { sampleOutput = "" })

			require.NoError(t, runSample(sampleCmd, nil))

			f, err := ingest.LoadFile(sampleOutput)
			require.NoError(t, err)
			assert.Equal(t, 12, f.Len())
			assert.True(t, f.Has("revenue"))
		})
	}
}

func TestLoadInputDefaultsToSample(t *testing.T) {
	f, name, err := loadInput(nil)
	require.NoError(t, err)
	assert.Equal(t, "sample", name)
	assert.Equal(t, "revenue", resolveTarget("", f))
	assert.Equal(t, "demand", resolveTarget("demand", f))

	_, _, err = loadInput([]string{filepath.Join(t.TempDir(), "missing.csv")})
	assert.Error(t, err)
}
