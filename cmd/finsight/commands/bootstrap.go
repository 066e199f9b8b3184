package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/wonny/finsight/internal/api/handlers"
	"github.com/wonny/finsight/internal/external/vendor"
	"github.com/wonny/finsight/internal/forecast"
	"github.com/wonny/finsight/internal/history"
	"github.com/wonny/finsight/internal/ingest"
	"github.com/wonny/finsight/internal/modelconfig"
	"github.com/wonny/finsight/pkg/config"
	"github.com/wonny/finsight/pkg/database"
	"github.com/wonny/finsight/pkg/httputil"
	"github.com/wonny/finsight/pkg/logger"
	"github.com/wonny/finsight/pkg/metrics"
	"github.com/wonny/finsight/pkg/redis"
)

// app holds the wired dependencies shared by every command
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	models    *modelconfig.Config
	modelHash string
	recorder  *metrics.Recorder
	engine    *forecast.Engine

	db     *database.DB
	rdb    *redis.Client
	runs   *history.Repository
	loader *ingest.Loader
}

// bootstrap loads configuration and wires the engine. Logs go to logOut so that
// commands printing results on stdout stay parseable.
func bootstrap(logOut io.Writer) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if modelsFile != "" {
		cfg.Forecast.ModelsFile = modelsFile
	}

	// 2. Initialize logger
	log := logger.NewWithWriter(cfg, logOut)

	// 3. Model configuration
	models, err := modelconfig.LoadOrDefault(cfg.Forecast.ModelsFile)
	if err != nil {
		return nil, fmt.Errorf("load model config: %w", err)
	}
	hash, err := modelconfig.Hash(models)
	if err != nil {
		return nil, fmt.Errorf("hash model config: %w", err)
	}

	a := &app{
		cfg:       cfg,
		log:       log,
		models:    models,
		modelHash: hash,
	}
	if cfg.MetricsEnabled {
		a.recorder = metrics.New()
	}

	// 4. Forecast engine
	a.engine = forecast.NewEngine(models, log.Zerolog(), forecast.WithRecorder(a.recorder))

	return a, nil
}

// withStores connects the optional database and cache and builds the source loader
func (a *app) withStores(ctx context.Context) error {
	if a.cfg.Database.Enabled {
		db, err := database.New(a.cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
		a.runs = history.NewRepository(db.Pool)
		if err := a.runs.Migrate(ctx); err != nil {
			return err
		}
		a.log.Info("Connected to database")
	}

	rdb, err := redis.New(a.cfg)
	if err != nil {
		a.log.WithError(err).Warn("Redis unavailable, vendor responses will not be cached")
		rdb = redis.NewFromRedis(nil)
	}
	a.rdb = rdb

	httpClient := httputil.New(a.cfg, a.log)
	vendorClient := vendor.NewClient(httpClient, a.log)
	a.loader = ingest.NewLoader(vendorClient, a.log.Zerolog(),
		ingest.WithCache(redis.NewCache(rdb, "finsight"), a.cfg.Scraper.CacheTTL),
		ingest.WithFetchRecorder(a.recorder),
	)
	return nil
}

// runStore returns the run repository as a handler store, nil when no database is configured
func (a *app) runStore() handlers.RunStore {
	if a.runs == nil {
		return nil
	}
	return a.runs
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}

// cliApp bootstraps with logs on stderr
func cliApp() (*app, error) {
	return bootstrap(os.Stderr)
}
