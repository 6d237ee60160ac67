package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/SpaceTransformer/xgoals-framework/internal/artifact"
	"github.com/SpaceTransformer/xgoals-framework/internal/formula"
	"github.com/SpaceTransformer/xgoals-framework/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	now := time.Date(2025, time.March, 31, 22, 0, 0, 0, time.UTC)

	tests := []struct {
		in, want string
	}{
		{"today", "2025-03-31"},
		{" OGGI ", "2025-03-31"},
		{"", "2025-03-31"},
		{"tomorrow", "2025-04-01"},
		{"domani", "2025-04-01"},
		{"ieri", "2025-03-30"},
		{"15/04", "2025-04-15"},
		{"1/1", "2025-01-01"},
		{"2024-12-26", "2024-12-26"},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in, now)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"31/02", "32/01", "13", "next week", "2025-13-01", "aa/bb"} {
		_, err := ParseDate(bad, now)
		assert.ErrorIs(t, err, ErrInvalidDate, bad)
	}
}

func stats(forHome, forAway, forTotal, againstHome, againstAway string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"goals":{"for":{"average":{"home":%q,"away":%q,"total":%q}},"against":{"average":{"home":%q,"away":%q}}}}`,
		forHome, forAway, forTotal, againstHome, againstAway,
	))
}

func match(id int, home, away string, homeStats json.RawMessage) models.MatchRecord {
	return models.MatchRecord{
		Fixture:   models.Fixture{ID: id, Date: "2025-03-01T20:45:00+01:00"},
		League:    models.League{Name: "Serie A", Country: "Italy"},
		Teams:     models.Teams{Home: models.TeamRef{ID: 1, Name: home}, Away: models.TeamRef{ID: 2, Name: away}},
		HomeStats: homeStats,
		AwayStats: stats("1.0", "1.0", "1.0", "1.0", "1.0"),
	}
}

func TestAnalyze_SortsDescendingAndSkips(t *testing.T) {
	matches := []models.MatchRecord{
		match(1, "Low", "X", stats("0.5", "0.5", "1.0", "1.0", "1.0")),
		match(2, "High", "Y", stats("3.0", "1.0", "1.0", "1.0", "1.0")),
		match(3, "Broken", "Z", json.RawMessage(`{}`)),
	}

	rows, skipped := Analyze(matches, DefaultModel())
	assert.Equal(t, 1, skipped)
	require.Len(t, rows, 2)
	assert.Equal(t, "High", rows[0].HomeTeam)
	assert.Equal(t, "Low", rows[1].HomeTeam)
	assert.Greater(t, rows[0].XGoals, rows[1].XGoals)
	assert.True(t, strings.HasPrefix(rows[0].Details, "relative_strength, home 3.00-1.00"))
}

func TestAnalyze_WeatherInDetails(t *testing.T) {
	m := match(1, "A", "B", stats("1.0", "1.0", "1.0", "1.0", "1.0"))
	temp := 8.4
	m.Weather = models.WeatherSample{Description: "Light rain", Temperature: &temp}

	rows, _ := Analyze([]models.MatchRecord{m}, DefaultModel())
	require.Len(t, rows, 1)
	assert.True(t, strings.HasSuffix(rows[0].Details, ", Light rain 8.4°C"))
}

func TestModelFromRecord(t *testing.T) {
	params := formula.DefaultParameters().WithSplits(0.7, 0.6)
	m, err := ModelFromRecord(artifact.Record{Version: "1.2", Formula: formula.DefensiveFactor, Parameters: params})
	require.NoError(t, err)
	assert.Equal(t, formula.DefensiveFactor, m.Formula.ID)
	assert.Equal(t, params, m.Parameters)
	assert.Equal(t, "defensive_factor v1.2", m.String())

	_, err = ModelFromRecord(artifact.Record{Version: "1.3", Formula: "mystery"})
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	rows := []Row{
		{Datetime: "2025-03-01T20:45:00+01:00", HomeTeam: "Inter", AwayTeam: "Milan", League: "Serie A", Country: "Italy", XGoals: 2.456, Details: "a; b"},
		{Datetime: "2025-03-01T18:00:00+01:00", HomeTeam: "Roma", AwayTeam: "Lazio", League: "Serie A", Country: "Italy", XGoals: 1.5},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "\ufeff"))

	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, "\ufeff")))
	r.Comma = ';'
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Columns, records[0])
	assert.Equal(t, "2.46", records[1][5])
	assert.Equal(t, "a; b", records[1][6])
	assert.Equal(t, "1.50", records[2][5])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "\ufeffdatetime;home_team;away_team;league;country;xgoals;details\n", buf.String())
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "xgoals_2025-03-01.csv", FileName("2025-03-01"))
}
