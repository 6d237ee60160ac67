package repository

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS matches (
		fixture_id   INTEGER PRIMARY KEY,
		match_date   DATE NOT NULL,
		league_id    INTEGER NOT NULL,
		league_name  TEXT NOT NULL DEFAULT '',
		home_team    TEXT NOT NULL DEFAULT '',
		away_team    TEXT NOT NULL DEFAULT '',
		home_goals   INTEGER,
		away_goals   INTEGER,
		bundle       JSONB NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_date ON matches (match_date)`,
	`CREATE TABLE IF NOT EXISTS predictions (
		id          BIGSERIAL PRIMARY KEY,
		fixture_id  INTEGER NOT NULL,
		formula     TEXT NOT NULL,
		predicted   DOUBLE PRECISION NOT NULL,
		actual      INTEGER NOT NULL,
		abs_error   DOUBLE PRECISION NOT NULL,
		category    TEXT NOT NULL,
		run_id      BIGINT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_predictions_fixture ON predictions (fixture_id)`,
	`CREATE TABLE IF NOT EXISTS evaluation_runs (
		id            BIGSERIAL PRIMARY KEY,
		session       TEXT NOT NULL,
		iteration     INTEGER NOT NULL,
		formula       TEXT NOT NULL,
		avg_error     DOUBLE PRECISION NOT NULL,
		accuracy      DOUBLE PRECISION NOT NULL,
		scored        INTEGER NOT NULL,
		skipped       INTEGER NOT NULL,
		parameters    JSONB NOT NULL,
		distribution  JSONB NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (session, iteration)
	)`,
}

// EnsureSchema creates the tables if they do not exist
func (db *Database) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	log.Debug().Int("statements", len(schema)).Msg("Database schema ensured")
	return nil
}
