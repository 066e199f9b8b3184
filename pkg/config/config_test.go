package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 30, cfg.Forecast.Horizon)
	assert.Equal(t, 3, cfg.Scraper.MaxRetries)
	assert.Equal(t, 15*time.Second, cfg.Scraper.Timeout)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Empty(t, cfg.Server.AllowedOrigins)
}

func TestLoadWithCustomValues(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ENV", "production")
	t.Setenv("FORECAST_HORIZON", "12")
	t.Setenv("SCRAPER_TIMEOUT", "5s")
	t.Setenv("REFRESH_TICKERS", "AAPL, MSFT,,TCS.NS ")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("SERVER_WRITE_TIMEOUT", "5m")
	t.Setenv("WS_ALLOWED_ORIGINS", "https://dashboard.example, http://localhost:3000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, 12, cfg.Forecast.Horizon)
	assert.Equal(t, 5*time.Second, cfg.Scraper.Timeout)
	assert.Equal(t, []string{"AAPL", "MSFT", "TCS.NS"}, cfg.Refresh.Tickers)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, []string{"https://dashboard.example", "http://localhost:3000"}, cfg.Server.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "database enabled without url",
			env:     map[string]string{"DB_ENABLED": "true", "DATABASE_URL": ""},
			wantErr: "DATABASE_URL",
		},
		{
			name:    "unknown environment",
			env:     map[string]string{"ENV": "qa"},
			wantErr: "ENV must be one of",
		},
		{
			name:    "non-positive horizon",
			env:     map[string]string{"FORECAST_HORIZON": "0"},
			wantErr: "FORECAST_HORIZON",
		},
		{
			name:    "zero write timeout",
			env:     map[string]string{"SERVER_WRITE_TIMEOUT": "0s"},
			wantErr: "SERVER_WRITE_TIMEOUT",
		},
		{
			name:    "inverted backoff",
			env:     map[string]string{"SCRAPER_MIN_BACKOFF": "10s", "SCRAPER_MAX_BACKOFF": "1s"},
			wantErr: "SCRAPER_MAX_BACKOFF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetEnvAsDurationFallback(t *testing.T) {
	t.Setenv("SOME_DURATION", "not-a-duration")
	assert.Equal(t, 30*time.Second, getEnvAsDuration("SOME_DURATION", "30s"))
}
