// Package history persists forecast and evaluation runs in PostgreSQL.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wonny/finsight/internal/contracts"
)

// ErrNotFound is returned when a run id does not exist
var ErrNotFound = errors.New("run not found")

// DefaultListLimit bounds List when the caller passes a non-positive limit
const DefaultListLimit = 50

// Querier is the subset of pgxpool.Pool the repository needs (pgxmock implements it)
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schemaSQL = `
	CREATE SCHEMA IF NOT EXISTS finsight;
	CREATE TABLE IF NOT EXISTS finsight.runs (
		id          UUID PRIMARY KEY,
		kind        TEXT NOT NULL,
		model       TEXT,
		target      TEXT NOT NULL,
		row_count   INTEGER NOT NULL,
		horizon     INTEGER,
		config_hash TEXT NOT NULL,
		result      JSONB NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS runs_created_at_idx ON finsight.runs (created_at DESC);
`

// Repository handles run persistence
// ⭐ SSOT: run history reads and writes happen here only
type Repository struct {
	db  Querier
	now func() time.Time
}

// NewRepository creates a new run repository
func NewRepository(db Querier) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Migrate creates the schema when missing
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to migrate runs schema: %w", err)
	}
	return nil
}

// Save stores a run, assigning its id and timestamp when unset
func (r *Repository) Save(ctx context.Context, run *contracts.Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = r.now().UTC()
	}
	result := []byte(run.Result)
	if len(result) == 0 {
		result = []byte("null")
	}

	query := `
		INSERT INTO finsight.runs (
			id, kind, model, target, row_count, horizon, config_hash, result, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		run.ID, string(run.Kind), string(run.Model), run.Target, run.Rows, run.Horizon,
		run.ConfigHash, result, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Get retrieves one run
func (r *Repository) Get(ctx context.Context, id string) (*contracts.Run, error) {
	query := `
		SELECT id::text, kind, COALESCE(model, ''), target, row_count, COALESCE(horizon, 0),
		       config_hash, result, created_at
		FROM finsight.runs
		WHERE id = $1
	`

	run, err := scanRun(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs first
func (r *Repository) List(ctx context.Context, limit int) ([]contracts.Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id::text, kind, COALESCE(model, ''), target, row_count, COALESCE(horizon, 0),
		       config_hash, result, created_at
		FROM finsight.runs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []contracts.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (*contracts.Run, error) {
	var (
		run         contracts.Run
		kind, model string
		resultBytes []byte
	)
	err := row.Scan(
		&run.ID, &kind, &model, &run.Target, &run.Rows, &run.Horizon,
		&run.ConfigHash, &resultBytes, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	run.Kind = contracts.RunKind(kind)
	run.Model = contracts.ModelLabel(model)
	run.Result = resultBytes
	return &run, nil
}
