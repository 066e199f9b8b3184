package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/finsight/internal/contracts"
	"github.com/wonny/finsight/internal/dataset"
	"github.com/wonny/finsight/internal/forecast"
	"github.com/wonny/finsight/internal/ingest"
	"github.com/wonny/finsight/internal/modelconfig"
	"github.com/wonny/finsight/pkg/logger"
)

type stubLoader map[string]error

func (s stubLoader) LoadFrame(_ context.Context, source string, params map[string]string) (*dataset.Frame, error) {
	if err, ok := s[params["ticker"]]; ok && err != nil {
		return nil, err
	}
	return ingest.SampleFrame(), nil
}

type memorySaver struct{ runs []contracts.Run }

func (m *memorySaver) Save(_ context.Context, run *contracts.Run) error {
	m.runs = append(m.runs, *run)
	return nil
}

func newJob(tickers []string, loader FrameLoader, saver RunSaver) *RefreshJob {
	engine := forecast.NewEngine(modelconfig.Default(), zerolog.Nop())
	cfg := RefreshConfig{Source: "yahoo", Tickers: tickers, ConfigHash: "h1"}
	return NewRefreshJob(cfg, loader, engine, saver, logger.Nop())
}

func TestRefreshJobSchedule(t *testing.T) {
	job := newJob(nil, stubLoader{}, nil)
	assert.Equal(t, "vendor_refresh", job.Name())
	assert.Equal(t, "0 0 6 * * *", job.Schedule())

	job.cfg.Schedule = "@hourly"
	assert.Equal(t, "@hourly", job.Schedule())
}

func TestRefreshJobRun(t *testing.T) {
	loader := stubLoader{
		"EMPTY": fmt.Errorf("%w: yahoo", ingest.ErrNoData),
		"BAD":   errors.New("yahoo: 404"),
	}
	saver := &memorySaver{}

	out, err := newJob([]string{"TCS", "EMPTY", "BAD"}, loader, saver).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"TCS"}, out.Refreshed)
	assert.Equal(t, []string{"EMPTY"}, out.Skipped)
	assert.Equal(t, map[string]string{"BAD": "load: yahoo: 404"}, out.Failed)
	assert.Equal(t, 3, out.Total())

	require.Len(t, saver.runs, 1)
	run := saver.runs[0]
	assert.Equal(t, contracts.RunForecast, run.Kind)
	assert.Equal(t, "revenue", run.Target)
	assert.Equal(t, 12, run.Rows)
	assert.Equal(t, "h1", run.ConfigHash)
	assert.Contains(t, string(run.Result), `"ticker":"TCS"`)
}

func TestRefreshJobFailsWhenNothingRefreshed(t *testing.T) {
	loader := stubLoader{"BAD": errors.New("yahoo: 404")}
	out, err := newJob([]string{"BAD"}, loader, nil).Run(context.Background())
	assert.ErrorContains(t, err, "BAD: load: yahoo: 404")
	assert.Empty(t, out.Refreshed)
	assert.Equal(t, []string{"BAD"}, out.FailedItems())
}

func TestRefreshJobWithoutTickers(t *testing.T) {
	out, err := newJob(nil, stubLoader{}, nil).Run(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, out.Total())
}

func TestRefreshJobCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newJob([]string{"TCS"}, stubLoader{}, nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
