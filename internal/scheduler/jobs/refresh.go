package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wonny/finsight/internal/contracts"
	"github.com/wonny/finsight/internal/dataset"
	"github.com/wonny/finsight/internal/forecast"
	"github.com/wonny/finsight/internal/ingest"
	"github.com/wonny/finsight/internal/scheduler"
	"github.com/wonny/finsight/pkg/logger"
)

// FrameLoader loads a source into a frame (ingest.Loader implements it)
type FrameLoader interface {
	LoadFrame(ctx context.Context, source string, params map[string]string) (*dataset.Frame, error)
}

// RunSaver stores a run summary (history.Repository implements it)
type RunSaver interface {
	Save(ctx context.Context, run *contracts.Run) error
}

// RefreshConfig describes what the refresh job pulls
type RefreshConfig struct {
	Schedule   string
	Source     string
	Tickers    []string
	Target     string // empty picks the first known metric column
	ConfigHash string
}

// RefreshJob pulls vendor data for each ticker and stores an automatic forecast of it
// Schedule: daily before market open by default
type RefreshJob struct {
	cfg    RefreshConfig
	loader FrameLoader
	engine *forecast.Engine
	runs   RunSaver
	logger *logger.Logger
}

// NewRefreshJob creates a new refresh job; runs may be nil
func NewRefreshJob(cfg RefreshConfig, loader FrameLoader, engine *forecast.Engine, runs RunSaver, log *logger.Logger) *RefreshJob {
	return &RefreshJob{
		cfg:    cfg,
		loader: loader,
		engine: engine,
		runs:   runs,
		logger: log,
	}
}

// Name returns the job name
func (j *RefreshJob) Name() string {
	return "vendor_refresh"
}

// Schedule returns the cron schedule
func (j *RefreshJob) Schedule() string {
	if j.cfg.Schedule == "" {
		return "0 0 6 * * *" // 6:00 AM daily (with seconds)
	}
	return j.cfg.Schedule
}

// Run refreshes every ticker. A ticker without data is skipped; the run fails only
// when no ticker produced a forecast.
func (j *RefreshJob) Run(ctx context.Context) (scheduler.Outcome, error) {
	var out scheduler.Outcome
	if len(j.cfg.Tickers) == 0 {
		j.logger.Info("No tickers configured, skipping refresh")
		return out, nil
	}

	j.logger.WithFields(map[string]interface{}{
		"source":  j.cfg.Source,
		"tickers": len(j.cfg.Tickers),
	}).Info("Starting vendor refresh")

	var errs []error
	for _, ticker := range j.cfg.Tickers {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		err := j.refresh(ctx, ticker)
		switch {
		case err == nil:
			out.Refreshed = append(out.Refreshed, ticker)
		case errors.Is(err, ingest.ErrNoData):
			j.logger.WithField("ticker", ticker).Warn("No data for ticker, skipping")
			out.Skipped = append(out.Skipped, ticker)
		default:
			j.logger.WithError(err).WithField("ticker", ticker).Warn("Ticker refresh failed")
			if out.Failed == nil {
				out.Failed = make(map[string]string)
			}
			out.Failed[ticker] = err.Error()
			errs = append(errs, fmt.Errorf("%s: %w", ticker, err))
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"refreshed": len(out.Refreshed),
		"skipped":   len(out.Skipped),
		"failed":    len(out.Failed),
	}).Info("Vendor refresh completed")

	if len(out.Refreshed) == 0 && len(errs) > 0 {
		return out, errors.Join(errs...)
	}
	return out, nil
}

func (j *RefreshJob) refresh(ctx context.Context, ticker string) error {
	frame, err := j.loader.LoadFrame(ctx, j.cfg.Source, map[string]string{"ticker": ticker})
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	target := j.cfg.Target
	if target == "" || !frame.Has(target) {
		target = ingest.DefaultTarget(frame)
	}
	if target == "" {
		return fmt.Errorf("%w: no metric column in %s data", ingest.ErrNoData, j.cfg.Source)
	}

	res, metrics, err := j.engine.Run(ctx, frame, string(contracts.ModelAuto), target)
	if err != nil {
		return fmt.Errorf("forecast: %w", err)
	}

	if j.runs == nil {
		return nil
	}
	body, err := json.Marshal(map[string]interface{}{
		"ticker":   ticker,
		"source":   j.cfg.Source,
		"model":    res.Model,
		"signals":  res.Signals,
		"forecast": res.Forecast.Records(),
		"metrics":  metrics,
	})
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return j.runs.Save(ctx, &contracts.Run{
		Kind:       contracts.RunForecast,
		Model:      res.Model,
		Target:     target,
		Rows:       frame.Len(),
		ConfigHash: j.cfg.ConfigHash,
		Result:     body,
	})
}
