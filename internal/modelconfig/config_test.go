package modelconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Validate(Default()))
}

func TestLoadRepositoryFile(t *testing.T) {
	path := "../../config/models.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.ExponentialSmoothing.SeasonalPeriod)

	// file mirrors defaults, so the hash matches
	h1, err := Hash(cfg)
	require.NoError(t, err)
	h2, _ := Hash(Default())
	assert.Equal(t, h2, h1)
	assert.Len(t, h1, 64)
}

func TestParsePartialOverride(t *testing.T) {
	cfg, err := Parse([]byte("moving_average:\n  window: 5\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MovingAverage.Window)
	assert.Equal(t, 30, cfg.Selector.MinRows, "untouched keys keep defaults")
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseRejectsUnknownField(t *testing.T) {
	_, err := Parse([]byte("selector:\n  min_rowz: 10\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_rowz")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*Config)
		field string
	}{
		{"window", func(c *Config) { c.MovingAverage.Window = 0 }, "moving_average.window"},
		{"threshold", func(c *Config) { c.Selector.ACFThreshold = 1.5 }, "selector.acf_threshold"},
		{"arima q", func(c *Config) { c.ARIMA.Q = 1 }, "arima.q"},
		{"period", func(c *Config) { c.ExponentialSmoothing.SeasonalPeriod = 1 }, "exponential_smoothing.seasonal_period"},
		{"lstm", func(c *Config) { c.LSTM.Epochs = 0 }, "lstm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mut(cfg)

			err := Validate(cfg)
			var ve ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("arima:\n  q: 2\n"), 0o600))
	_, err = LoadOrDefault(path)
	assert.Error(t, err)
}
