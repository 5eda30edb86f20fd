package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"autodcf/pkg/models"
)

// RunRepo stores completed valuation runs. Every run is kept, so a ticker
// accumulates a history and "latest" is a created_at ordering question.
//
// Schema assumption (managed outside this package):
//
//	CREATE TABLE IF NOT EXISTS valuation_runs (
//	  id UUID PRIMARY KEY,
//	  ticker TEXT NOT NULL,
//	  method TEXT NOT NULL,
//	  projected_price NUMERIC,
//	  run_json JSONB NOT NULL,
//	  created_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX IF NOT EXISTS valuation_runs_ticker_created_idx
//	  ON valuation_runs (ticker, created_at DESC);
type RunRepo struct{}

// NewRunRepo creates a new repository instance.
func NewRunRepo() *RunRepo {
	return &RunRepo{}
}

// Save persists a completed run.
func (r *RunRepo) Save(ctx context.Context, run *models.ValuationRun) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	runJSON, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	query := `
		INSERT INTO valuation_runs (id, ticker, method, projected_price, run_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = pool.Exec(ctx, query,
		run.ID, run.Ticker, run.Method, run.ProjectedPrice, runJSON, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Latest returns the most recent run for a ticker.
func (r *RunRepo) Latest(ctx context.Context, ticker string) (*models.ValuationRun, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	query := `
		SELECT run_json FROM valuation_runs
		WHERE ticker = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	var runJSON []byte
	err := pool.QueryRow(ctx, query, ticker).Scan(&runJSON)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("no valuation found for ticker %s", ticker)
		}
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	var run models.ValuationRun
	if err := json.Unmarshal(runJSON, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}

// History lists runs for a ticker, newest first.
func (r *RunRepo) History(ctx context.Context, ticker string, limit int) ([]*models.ValuationRun, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT run_json FROM valuation_runs
		WHERE ticker = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := pool.Query(ctx, query, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.ValuationRun
	for rows.Next() {
		var runJSON []byte
		if err := rows.Scan(&runJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		var run models.ValuationRun
		if err := json.Unmarshal(runJSON, &run); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run: %w", err)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return runs, nil
}

// Prune deletes runs older than the cutoff, returning how many went away.
func (r *RunRepo) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	pool := GetPool()
	if pool == nil {
		return 0, fmt.Errorf("database pool not initialized")
	}

	tag, err := pool.Exec(ctx, `DELETE FROM valuation_runs WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return tag.RowsAffected(), nil
}
