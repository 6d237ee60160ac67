package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SpaceTransformer/xgoals-framework/internal/formula"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// EvaluationRun is one stored optimizer evaluation
type EvaluationRun struct {
	ID           int64                `json:"id"`
	Session      string               `json:"session"`
	Iteration    int                  `json:"iteration"`
	Formula      string               `json:"formula"`
	AvgError     float64              `json:"avg_error"`
	Accuracy     float64              `json:"accuracy"`
	Scored       int                  `json:"scored"`
	Skipped      int                  `json:"skipped"`
	Parameters   formula.Parameters   `json:"parameters"`
	Distribution formula.Distribution `json:"distribution"`
	CreatedAt    time.Time            `json:"created_at"`
}

// EvaluationRepository stores optimizer evaluations and their per-match predictions
type EvaluationRepository struct {
	db *Database
}

// SaveEvaluation stores an evaluation run and its per-match predictions in
// one transaction. Non-finite results are rejected.
func (r *EvaluationRepository) SaveEvaluation(ctx context.Context, session string, iteration int, res formula.Result) error {
	if !res.Finite() {
		return fmt.Errorf("evaluation %s/%d has no finite error", session, iteration)
	}

	params, err := json.Marshal(res.Parameters)
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}
	dist, err := json.Marshal(res.Distribution)
	if err != nil {
		return fmt.Errorf("failed to encode distribution: %w", err)
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var runID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO evaluation_runs (
			session, iteration, formula, avg_error, accuracy,
			scored, skipped, parameters, distribution
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session, iteration) DO UPDATE SET
			formula = EXCLUDED.formula,
			avg_error = EXCLUDED.avg_error,
			accuracy = EXCLUDED.accuracy,
			scored = EXCLUDED.scored,
			skipped = EXCLUDED.skipped,
			parameters = EXCLUDED.parameters,
			distribution = EXCLUDED.distribution
		RETURNING id
	`, session, iteration, string(res.Formula), res.AvgError, res.Accuracy,
		res.Scored, res.Skipped, params, dist,
	).Scan(&runID)
	if err != nil {
		return fmt.Errorf("failed to insert evaluation run: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM predictions WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("failed to clear predictions for run %d: %w", runID, err)
	}

	batch := &pgx.Batch{}
	for _, a := range res.Analyses {
		batch.Queue(`
			INSERT INTO predictions (fixture_id, formula, predicted, actual, abs_error, category, run_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, a.FixtureID, string(res.Formula), a.Predicted, a.Actual, a.Error, string(a.Category), runID)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert predictions for run %d: %w", runID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit evaluation run: %w", err)
	}

	log.Debug().
		Int64("run_id", runID).
		Str("session", session).
		Int("iteration", iteration).
		Int("predictions", len(res.Analyses)).
		Msg("Evaluation run stored")

	return nil
}

// Best returns the stored run with the lowest average error, or nil
func (r *EvaluationRepository) Best(ctx context.Context) (*EvaluationRun, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT id, session, iteration, formula, avg_error, accuracy,
			   scored, skipped, parameters, distribution, created_at
		FROM evaluation_runs
		ORDER BY avg_error ASC, created_at ASC
		LIMIT 1
	`)
	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

// ListBySession returns a session's runs in iteration order
func (r *EvaluationRepository) ListBySession(ctx context.Context, session string) ([]*EvaluationRun, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, session, iteration, formula, avg_error, accuracy,
			   scored, skipped, parameters, distribution, created_at
		FROM evaluation_runs
		WHERE session = $1
		ORDER BY iteration
	`, session)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluation runs: %w", err)
	}
	defer rows.Close()

	var runs []*EvaluationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evaluation runs: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (*EvaluationRun, error) {
	run := &EvaluationRun{}
	var params, dist []byte
	err := row.Scan(
		&run.ID, &run.Session, &run.Iteration, &run.Formula, &run.AvgError, &run.Accuracy,
		&run.Scored, &run.Skipped, &params, &dist, &run.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan evaluation run: %w", err)
	}
	if err := json.Unmarshal(params, &run.Parameters); err != nil {
		return nil, fmt.Errorf("failed to decode parameters of run %d: %w", run.ID, err)
	}
	if err := json.Unmarshal(dist, &run.Distribution); err != nil {
		return nil, fmt.Errorf("failed to decode distribution of run %d: %w", run.ID, err)
	}
	return run, nil
}
