package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port   string
	Env    string // development, staging, production
	Server ServerConfig

	// Database (run history, optional)
	Database DatabaseConfig

	// Redis (vendor response cache, optional)
	Redis RedisConfig

	// Outbound scraping / vendor APIs
	Scraper ScraperConfig

	// Forecasting defaults
	Forecast ForecastConfig

	// Scheduled vendor refresh
	Refresh RefreshConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// ServerConfig holds HTTP server timeouts and the websocket origin policy
type ServerConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration // one evaluation fits every model inside a request
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string // cross-site origins for the evaluation stream; "*" allows any
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL     string
	Enabled bool

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// ScraperConfig controls the shared HTTP client used by vendor clients
type ScraperConfig struct {
	Timeout    time.Duration
	MaxRetries int
	MinBackoff time.Duration
	MaxBackoff time.Duration
	RatePerSec float64
	CacheTTL   time.Duration
}

// ForecastConfig holds defaults for forecast and evaluation requests
type ForecastConfig struct {
	Horizon    int
	Target     string
	ModelsFile string // optional YAML with selector thresholds / adapter params
	MaxUpload  int64  // bytes
}

// RefreshConfig drives the scheduled vendor refresh job
type RefreshConfig struct {
	Schedule string // cron expression with seconds
	Source   string
	Tickers  []string
}

// Load reads configuration from environment variables
// ⭐ SSOT: this is the only function that calls os.Getenv()
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),
		Server: ServerConfig{
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", "2m"),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", "60s"),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", "30s"),
			AllowedOrigins:  getEnvAsList("WS_ALLOWED_ORIGINS", nil),
		},

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			Enabled:         getEnvAsBool("DB_ENABLED", false),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Scraper: ScraperConfig{
			Timeout:    getEnvAsDuration("SCRAPER_TIMEOUT", "15s"),
			MaxRetries: getEnvAsInt("SCRAPER_MAX_RETRIES", 3),
			MinBackoff: getEnvAsDuration("SCRAPER_MIN_BACKOFF", "2s"),
			MaxBackoff: getEnvAsDuration("SCRAPER_MAX_BACKOFF", "5s"),
			RatePerSec: getEnvAsFloat("SCRAPER_RATE_PER_SEC", 2),
			CacheTTL:   getEnvAsDuration("SCRAPER_CACHE_TTL", "1h"),
		},

		Forecast: ForecastConfig{
			Horizon:    getEnvAsInt("FORECAST_HORIZON", 30),
			Target:     getEnv("FORECAST_TARGET", ""),
			ModelsFile: getEnv("MODELS_FILE", ""),
			MaxUpload:  int64(getEnvAsInt("FORECAST_MAX_UPLOAD_MB", 20)) << 20,
		},

		Refresh: RefreshConfig{
			Schedule: getEnv("REFRESH_SCHEDULE", "0 0 6 * * *"),
			Source:   getEnv("REFRESH_SOURCE", "yahoo"),
			Tickers:  getEnvAsList("REFRESH_TICKERS", nil),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.Enabled && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when DB_ENABLED=true")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Forecast.Horizon < 1 {
		return fmt.Errorf("FORECAST_HORIZON must be positive, got %d", c.Forecast.Horizon)
	}

	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("SERVER_READ_TIMEOUT and SERVER_WRITE_TIMEOUT must be positive")
	}

	if c.Scraper.MaxRetries < 1 {
		return fmt.Errorf("SCRAPER_MAX_RETRIES must be at least 1, got %d", c.Scraper.MaxRetries)
	}

	if c.Scraper.MaxBackoff < c.Scraper.MinBackoff {
		return fmt.Errorf("SCRAPER_MAX_BACKOFF (%s) is below SCRAPER_MIN_BACKOFF (%s)",
			c.Scraper.MaxBackoff, c.Scraper.MinBackoff)
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
		"backend/.env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma separated value, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
