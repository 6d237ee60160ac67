package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SpaceTransformer/xgoals-framework/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

const dateLayout = "2006-01-02"

// MatchRepository mirrors collected match bundles into Postgres
type MatchRepository struct {
	db *Database
}

// Upsert inserts or replaces the bundle for a fixture
func (r *MatchRepository) Upsert(ctx context.Context, date string, rec *models.MatchRecord) error {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return fmt.Errorf("invalid match date %q: %w", date, err)
	}
	bundle, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode fixture %d: %w", rec.Fixture.ID, err)
	}

	query := `
		INSERT INTO matches (
			fixture_id, match_date, league_id, league_name,
			home_team, away_team, home_goals, away_goals, bundle
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (fixture_id) DO UPDATE SET
			match_date = EXCLUDED.match_date,
			league_id = EXCLUDED.league_id,
			league_name = EXCLUDED.league_name,
			home_team = EXCLUDED.home_team,
			away_team = EXCLUDED.away_team,
			home_goals = EXCLUDED.home_goals,
			away_goals = EXCLUDED.away_goals,
			bundle = EXCLUDED.bundle,
			updated_at = NOW()
	`

	_, err = r.db.Pool.Exec(ctx, query,
		rec.Fixture.ID, day, rec.League.ID, rec.League.Name,
		rec.Teams.Home.Name, rec.Teams.Away.Name, rec.Goals.Home, rec.Goals.Away, bundle,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert match %d: %w", rec.Fixture.ID, err)
	}

	log.Debug().
		Int("fixture_id", rec.Fixture.ID).
		Str("date", date).
		Str("match", rec.Label()).
		Msg("Match upserted")

	return nil
}

// SaveMatch mirrors a freshly collected record
func (r *MatchRepository) SaveMatch(ctx context.Context, date string, rec *models.MatchRecord) error {
	return r.Upsert(ctx, date, rec)
}

// GetByFixtureID returns the stored bundle, or nil when absent
func (r *MatchRepository) GetByFixtureID(ctx context.Context, fixtureID int) (*models.MatchRecord, error) {
	var bundle []byte
	err := r.db.Pool.QueryRow(ctx, `SELECT bundle FROM matches WHERE fixture_id = $1`, fixtureID).Scan(&bundle)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match %d: %w", fixtureID, err)
	}

	var rec models.MatchRecord
	if err := json.Unmarshal(bundle, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode match %d: %w", fixtureID, err)
	}
	return &rec, nil
}

// ListByDate returns the bundles for a date ordered by fixture id
func (r *MatchRepository) ListByDate(ctx context.Context, date string) ([]models.MatchRecord, error) {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("invalid match date %q: %w", date, err)
	}
	rows, err := r.db.Pool.Query(ctx, `SELECT bundle FROM matches WHERE match_date = $1 ORDER BY fixture_id`, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for %s: %w", date, err)
	}
	defer rows.Close()

	var out []models.MatchRecord
	for rows.Next() {
		var bundle []byte
		if err := rows.Scan(&bundle); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		var rec models.MatchRecord
		if err := json.Unmarshal(bundle, &rec); err != nil {
			log.Warn().Err(err).Str("date", date).Msg("Skipping undecodable match bundle")
			continue
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}

	return out, nil
}

// Count returns the number of stored matches
func (r *MatchRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM matches`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return n, nil
}
