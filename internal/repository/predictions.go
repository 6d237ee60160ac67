package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/SpaceTransformer/xgoals-framework/internal/formula"
)

// Prediction is one stored per-match evaluation outcome
type Prediction struct {
	ID        int64            `json:"id"`
	FixtureID int              `json:"fixture_id"`
	Formula   string           `json:"formula"`
	Predicted float64          `json:"predicted"`
	Actual    int              `json:"actual"`
	AbsError  float64          `json:"abs_error"`
	Category  formula.Category `json:"category"`
	RunID     *int64           `json:"run_id,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// PredictionRepository reads per-match predictions
type PredictionRepository struct {
	db *Database
}

// ListByFixture returns every prediction made for a fixture, newest first
func (r *PredictionRepository) ListByFixture(ctx context.Context, fixtureID int) ([]*Prediction, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, fixture_id, formula, predicted, actual, abs_error, category, run_id, created_at
		FROM predictions
		WHERE fixture_id = $1
		ORDER BY created_at DESC, id DESC
	`, fixtureID)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	defer rows.Close()

	var out []*Prediction
	for rows.Next() {
		p := &Prediction{}
		var category string
		if err := rows.Scan(&p.ID, &p.FixtureID, &p.Formula, &p.Predicted, &p.Actual, &p.AbsError, &category, &p.RunID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		p.Category = formula.Category(category)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}
	return out, nil
}
