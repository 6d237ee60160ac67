package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Venue is the stadium a fixture is played in
type Venue struct {
	ID   *int   `json:"id"`
	Name string `json:"name"`
	City string `json:"city"`
}

// FixtureStatus is the fixture state as reported by the API
type FixtureStatus struct {
	Long    string `json:"long"`
	Short   string `json:"short"`
	Elapsed *int   `json:"elapsed"`
}

// Fixture identifies a single match and its kickoff
type Fixture struct {
	ID        int           `json:"id"`
	Referee   *string       `json:"referee"`
	Timezone  string        `json:"timezone"`
	Date      string        `json:"date"`
	Timestamp int64         `json:"timestamp"`
	Venue     Venue         `json:"venue"`
	Status    FixtureStatus `json:"status"`
}

// League is the competition a fixture belongs to
type League struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
	Logo    string `json:"logo,omitempty"`
	Flag    string `json:"flag,omitempty"`
	Season  int    `json:"season"`
	Round   string `json:"round,omitempty"`
}

// TeamRef is one side of a fixture
type TeamRef struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Logo   string `json:"logo,omitempty"`
	Winner *bool  `json:"winner"`
}

// Teams holds both sides of a fixture
type Teams struct {
	Home TeamRef `json:"home"`
	Away TeamRef `json:"away"`
}

// Goals is the final score. Nil until the match is played.
type Goals struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

// FixtureEntry is one element of the fixtures listing
type FixtureEntry struct {
	Fixture Fixture `json:"fixture"`
	League  League  `json:"league"`
	Teams   Teams   `json:"teams"`
	Goals   Goals   `json:"goals"`
}

// Label returns "Home vs Away"
func (f FixtureEntry) Label() string {
	return fmt.Sprintf("%s vs %s", f.Teams.Home.Name, f.Teams.Away.Name)
}

// Kickoff returns the kickoff instant
func (f FixtureEntry) Kickoff() time.Time {
	return time.Unix(f.Fixture.Timestamp, 0)
}

// MatchRecord is the persisted bundle for one fixture. Team season stats and
// the per-fixture payloads are stored verbatim as returned by the API.
type MatchRecord struct {
	Fixture         Fixture         `json:"fixture"`
	League          League          `json:"league"`
	Teams           Teams           `json:"teams"`
	Goals           Goals           `json:"goals"`
	HomeStats       json.RawMessage `json:"home_stats"`
	AwayStats       json.RawMessage `json:"away_stats"`
	MatchStatistics json.RawMessage `json:"match_statistics"`
	MatchEvents     json.RawMessage `json:"match_events"`
	Lineups         json.RawMessage `json:"lineups"`
	Weather         WeatherSample   `json:"weather"`
}

// Entry returns the fixture listing view of the record
func (m *MatchRecord) Entry() FixtureEntry {
	return FixtureEntry{Fixture: m.Fixture, League: m.League, Teams: m.Teams, Goals: m.Goals}
}

// Label returns "Home vs Away"
func (m *MatchRecord) Label() string {
	return m.Entry().Label()
}

// Complete reports whether the record carries everything the evaluator needs
// to identify the match and both teams' season statistics.
func (m *MatchRecord) Complete() bool {
	return m.Fixture.ID != 0 &&
		m.Teams.Home.ID != 0 &&
		m.Teams.Away.ID != 0 &&
		hasPayload(m.HomeStats) &&
		hasPayload(m.AwayStats)
}

// ActualGoals returns the total goals scored, false if the score is unknown
func (m *MatchRecord) ActualGoals() (int, bool) {
	if m.Goals.Home == nil || m.Goals.Away == nil {
		return 0, false
	}
	return *m.Goals.Home + *m.Goals.Away, true
}

// HomeSeasonStats decodes the home team's season statistics
func (m *MatchRecord) HomeSeasonStats() (TeamSeasonStats, error) {
	return DecodeTeamSeasonStats(m.HomeStats)
}

// AwaySeasonStats decodes the away team's season statistics
func (m *MatchRecord) AwaySeasonStats() (TeamSeasonStats, error) {
	return DecodeTeamSeasonStats(m.AwayStats)
}

// Statistics decodes the per-fixture team statistics
func (m *MatchRecord) Statistics() (MatchStatistics, error) {
	return ParseMatchStatistics(m.MatchStatistics)
}

func hasPayload(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	switch string(trimmed) {
	case "null", "{}", "[]":
		return false
	}
	return true
}
