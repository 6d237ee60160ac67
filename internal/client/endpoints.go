package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/SpaceTransformer/xgoals-framework/internal/cache"
	"github.com/SpaceTransformer/xgoals-framework/internal/metrics"
	"github.com/SpaceTransformer/xgoals-framework/internal/models"

	"github.com/rs/zerolog/log"
)

// Memo key kinds
const (
	KindTeam     = "team"
	KindTeamForm = "team_form"
	KindLeague   = "league"
)

const recentFormMatches = 4

// Matches lists the fixtures played on date (YYYY-MM-DD) in monitored
// leagues, in API order.
func (c *Client) Matches(ctx context.Context, date string) ([]models.FixtureEntry, error) {
	env, err := c.Request(ctx, "fixtures", map[string]string{
		"date":     date,
		"timezone": c.timezone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fixtures for %s: %w", date, err)
	}

	var all []models.FixtureEntry
	if err := json.Unmarshal(env.Response, &all); err != nil {
		return nil, fmt.Errorf("failed to decode fixtures for %s: %w", date, err)
	}

	kept := c.leagues.Filter(all)
	log.Info().
		Str("date", date).
		Int("total", len(all)).
		Int("monitored", len(kept)).
		Msg("Fixtures listed")

	return kept, nil
}

// TeamStats returns a team's season statistics in a league. Memoized.
func (c *Client) TeamStats(ctx context.Context, teamID, leagueID int) (json.RawMessage, error) {
	return c.memoized(ctx, KindTeam, cache.Key(KindTeam, teamID, leagueID), "teams/statistics", map[string]string{
		"team":   strconv.Itoa(teamID),
		"league": strconv.Itoa(leagueID),
		"season": strconv.Itoa(c.season),
	})
}

// TeamRecentForm returns a team's last four fixtures. Memoized.
func (c *Client) TeamRecentForm(ctx context.Context, teamID, leagueID int) (json.RawMessage, error) {
	return c.memoized(ctx, KindTeamForm, cache.Key(KindTeamForm, teamID, leagueID), "fixtures", map[string]string{
		"team":   strconv.Itoa(teamID),
		"league": strconv.Itoa(leagueID),
		"season": strconv.Itoa(c.season),
		"last":   strconv.Itoa(recentFormMatches),
	})
}

// League returns league metadata for the configured season. Memoized.
func (c *Client) League(ctx context.Context, leagueID int) (json.RawMessage, error) {
	return c.memoized(ctx, KindLeague, cache.Key(KindLeague, leagueID), "leagues", map[string]string{
		"id":     strconv.Itoa(leagueID),
		"season": strconv.Itoa(c.season),
	})
}

// MatchStatistics returns per-team statistics for a fixture
func (c *Client) MatchStatistics(ctx context.Context, fixtureID int) (json.RawMessage, error) {
	return c.fixturePayload(ctx, "fixtures/statistics", fixtureID)
}

// MatchEvents returns the event timeline for a fixture
func (c *Client) MatchEvents(ctx context.Context, fixtureID int) (json.RawMessage, error) {
	return c.fixturePayload(ctx, "fixtures/events", fixtureID)
}

// MatchLineups returns both lineups for a fixture
func (c *Client) MatchLineups(ctx context.Context, fixtureID int) (json.RawMessage, error) {
	return c.fixturePayload(ctx, "fixtures/lineups", fixtureID)
}

func (c *Client) fixturePayload(ctx context.Context, endpoint string, fixtureID int) (json.RawMessage, error) {
	env, err := c.Request(ctx, endpoint, map[string]string{"fixture": strconv.Itoa(fixtureID)})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s for fixture %d: %w", endpoint, fixtureID, err)
	}
	return env.Response, nil
}

// memoized serves key from the cache, or performs the request and stores its
// payload. Hits consume neither quota nor a throttle slot.
func (c *Client) memoized(ctx context.Context, kind, key, endpoint string, params map[string]string) (json.RawMessage, error) {
	cached, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache read failed, fetching from API")
		metrics.RecordError("cache", "read")
	}
	if ok {
		metrics.RecordCacheHit(kind)
		return json.RawMessage(cached), nil
	}
	metrics.RecordCacheMiss(kind)

	env, err := c.Request(ctx, endpoint, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", key, err)
	}

	// Rate-limit and auth errors arrive as 200 with an empty payload
	if env.HasErrors() {
		log.Warn().Str("key", key).RawJSON("errors", env.Errors).Msg("API reported errors, not caching payload")
		return env.Response, nil
	}

	if err := c.cache.Set(ctx, key, env.Response); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
		metrics.RecordError("cache", "write")
	}
	return env.Response, nil
}
