package history

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/finsight/internal/contracts"
)

var runColumns = []string{"id", "kind", "model", "target", "row_count", "horizon", "config_hash", "result", "created_at"}

func newMockRepo(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewRepository(mock), mock
}

func TestMigrate(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS finsight.runs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, repo.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveAssignsIDAndTimestamp(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	run := &contracts.Run{
		Kind:       contracts.RunForecast,
		Model:      contracts.ModelARIMA,
		Target:     "revenue",
		Rows:       400,
		ConfigHash: "abc123",
		Result:     json.RawMessage(`{"model":"arima"}`),
	}

	mock.ExpectExec("INSERT INTO finsight.runs").
		WithArgs(pgxmock.AnyArg(), "forecast", "arima", "revenue", 400, 0, "abc123", []byte(`{"model":"arima"}`), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Save(context.Background(), run))
	assert.Len(t, run.ID, 36)
	assert.Equal(t, now, run.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("INSERT INTO finsight.runs").WillReturnError(errors.New("connection reset"))

	err := repo.Save(context.Background(), &contracts.Run{Kind: contracts.RunEvaluate, Target: "sales"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestList(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM finsight.runs").
		WithArgs(DefaultListLimit).
		WillReturnRows(pgxmock.NewRows(runColumns).
			AddRow("b6f0c1de-0000-4000-8000-000000000002", "evaluate", "", "sales", 120, 30, "h2", []byte(`{"rows":[]}`), created).
			AddRow("b6f0c1de-0000-4000-8000-000000000001", "forecast", "lstm", "sales", 120, 0, "h1", []byte(`{}`), created.Add(-time.Hour)))

	runs, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, contracts.RunEvaluate, runs[0].Kind)
	assert.Equal(t, 30, runs[0].Horizon)
	assert.Equal(t, contracts.ModelLSTM, runs[1].Model)
	assert.JSONEq(t, `{"rows":[]}`, string(runs[0].Result))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("FROM finsight.runs").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
