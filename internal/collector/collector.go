// Package collector assembles complete match bundles for a date from the
// football API and the weather archive, and persists them.
package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SpaceTransformer/xgoals-framework/internal/client"
	"github.com/SpaceTransformer/xgoals-framework/internal/metrics"
	"github.com/SpaceTransformer/xgoals-framework/internal/models"
	"github.com/SpaceTransformer/xgoals-framework/internal/store"

	"github.com/rs/zerolog/log"
)

// FootballAPI is the subset of the API client the collector uses
type FootballAPI interface {
	Matches(ctx context.Context, date string) ([]models.FixtureEntry, error)
	TeamStats(ctx context.Context, teamID, leagueID int) (json.RawMessage, error)
	MatchStatistics(ctx context.Context, fixtureID int) (json.RawMessage, error)
	MatchEvents(ctx context.Context, fixtureID int) (json.RawMessage, error)
	MatchLineups(ctx context.Context, fixtureID int) (json.RawMessage, error)
}

// Weather returns the kickoff weather; the empty sample means unavailable
type Weather interface {
	Lookup(ctx context.Context, fixtureID int, city string, kickoff int64) models.WeatherSample
}

// Sink receives every saved record, e.g. a database mirror
type Sink interface {
	SaveMatch(ctx context.Context, date string, rec *models.MatchRecord) error
}

// Result reports one collection
type Result struct {
	Date       string
	FromStore  bool // records come from disk, nothing was fetched
	Listed     int
	Collected  int
	Incomplete int
	Failed     int
	Records    []models.MatchRecord
}

// SuccessRate is the collected share of listed fixtures, in percent
func (r Result) SuccessRate() float64 {
	if r.Listed == 0 {
		return 0
	}
	return float64(r.Collected) / float64(r.Listed) * 100
}

// Collector fetches and stores match bundles
type Collector struct {
	api     FootballAPI
	weather Weather
	store   *store.MatchStore
	sink    Sink
}

// New creates a collector. weather and sink may be nil.
func New(api FootballAPI, weather Weather, st *store.MatchStore, sink Sink) *Collector {
	return &Collector{api: api, weather: weather, store: st, sink: sink}
}

// Collect returns the match bundles for date (YYYY-MM-DD). When every record
// stored for the date has a final score the stored records are returned as
// is. Otherwise every monitored fixture without a finished stored record is
// fetched, checked for completeness and saved over any earlier copy;
// per-fixture failures are counted and skipped. An exhausted quota or a
// cancelled context stops the loop and is returned together with what was
// collected so far. When the fixture listing fails the stored records for the
// date are returned.
func (c *Collector) Collect(ctx context.Context, date string) (Result, error) {
	start := time.Now()
	res := Result{Date: date}

	existing, stats, err := c.store.LoadDate(date)
	if err != nil {
		return res, fmt.Errorf("load stored matches for %s: %w", date, err)
	}
	if stats.Corrupt > 0 {
		metrics.RecordError("store", "corrupt_file")
	}

	finished := make(map[int]models.MatchRecord, len(existing))
	for _, rec := range existing {
		if _, ok := rec.ActualGoals(); ok {
			finished[rec.Fixture.ID] = rec
		}
	}
	if len(existing) > 0 && len(finished) == len(existing) {
		log.Info().Str("date", date).Int("matches", len(existing)).Msg("Matches already stored")
		res.FromStore = true
		res.Records = existing
		res.Collected = len(existing)
		return res, nil
	}
	if len(existing) > 0 {
		log.Info().
			Str("date", date).
			Int("stored", len(existing)).
			Int("unfinished", len(existing)-len(finished)).
			Msg("Stored matches lack final scores, refreshing")
	}

	entries, err := c.api.Matches(ctx, date)
	if err != nil {
		log.Error().Err(err).Str("date", date).Msg("Failed to list fixtures, falling back to stored matches")
		metrics.RecordCollection(time.Since(start).Seconds(), false)
		if len(existing) == 0 {
			return res, fmt.Errorf("list fixtures for %s: %w", date, err)
		}
		res.FromStore = true
		res.Records = existing
		res.Collected = len(existing)
		return res, nil
	}

	res.Listed = len(entries)
	log.Info().Str("date", date).Int("fixtures", res.Listed).Msg("Collecting match data")

	var stopErr error
	for i, entry := range entries {
		log.Debug().
			Int("fixture_id", entry.Fixture.ID).
			Str("match", entry.Label()).
			Msgf("Processing fixture %d/%d", i+1, res.Listed)

		if stored, ok := finished[entry.Fixture.ID]; ok {
			res.Records = append(res.Records, stored)
			res.Collected++
			continue
		}

		rec, err := c.fetch(ctx, entry)
		if err != nil {
			if errors.Is(err, client.ErrQuotaExceeded) || ctx.Err() != nil {
				stopErr = err
				log.Warn().Err(err).Int("remaining", res.Listed-i).Msg("Stopping collection")
				break
			}
			res.Failed++
			metrics.RecordMatchSkipped("fetch_failed")
			log.Warn().Err(err).Int("fixture_id", entry.Fixture.ID).Msg("Failed to fetch fixture, skipping")
			continue
		}

		if !rec.Complete() {
			res.Incomplete++
			metrics.RecordMatchSkipped("incomplete")
			log.Warn().Int("fixture_id", entry.Fixture.ID).Str("match", entry.Label()).Msg("Incomplete match data, skipping")
			continue
		}

		if err := c.store.Save(date, rec); err != nil {
			res.Failed++
			metrics.RecordMatchSkipped("save_failed")
			log.Error().Err(err).Int("fixture_id", entry.Fixture.ID).Msg("Failed to save match")
			continue
		}
		if c.sink != nil {
			if err := c.sink.SaveMatch(ctx, date, rec); err != nil {
				metrics.RecordError("collector", "sink")
				log.Error().Err(err).Int("fixture_id", entry.Fixture.ID).Msg("Failed to mirror match")
			}
		}

		res.Records = append(res.Records, *rec)
		res.Collected++
		metrics.RecordMatchCollected()
	}

	metrics.RecordCollection(time.Since(start).Seconds(), stopErr == nil)

	log.Info().
		Str("date", date).
		Int("incomplete", res.Incomplete).
		Int("failed", res.Failed).
		Dur("duration", time.Since(start)).
		Msgf("Collected %d/%d (%.1f%%)", res.Collected, res.Listed, res.SuccessRate())

	if stopErr != nil {
		return res, fmt.Errorf("collection for %s stopped after %d fixtures: %w", date, res.Collected, stopErr)
	}
	return res, nil
}

func (c *Collector) fetch(ctx context.Context, entry models.FixtureEntry) (*models.MatchRecord, error) {
	id := entry.Fixture.ID
	rec := &models.MatchRecord{
		Fixture: entry.Fixture,
		League:  entry.League,
		Teams:   entry.Teams,
		Goals:   entry.Goals,
	}

	var err error
	if rec.HomeStats, err = c.api.TeamStats(ctx, entry.Teams.Home.ID, entry.League.ID); err != nil {
		return nil, fmt.Errorf("home team stats: %w", err)
	}
	if rec.AwayStats, err = c.api.TeamStats(ctx, entry.Teams.Away.ID, entry.League.ID); err != nil {
		return nil, fmt.Errorf("away team stats: %w", err)
	}
	if rec.MatchStatistics, err = c.api.MatchStatistics(ctx, id); err != nil {
		return nil, fmt.Errorf("match statistics: %w", err)
	}
	if rec.MatchEvents, err = c.api.MatchEvents(ctx, id); err != nil {
		return nil, fmt.Errorf("match events: %w", err)
	}
	if rec.Lineups, err = c.api.MatchLineups(ctx, id); err != nil {
		return nil, fmt.Errorf("lineups: %w", err)
	}

	if c.weather != nil {
		rec.Weather = c.weather.Lookup(ctx, id, entry.Fixture.Venue.City, entry.Fixture.Timestamp)
	}

	return rec, nil
}
