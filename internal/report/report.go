// Package report computes expected goals for a day's matches and exports them
// as a spreadsheet-friendly CSV.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/SpaceTransformer/xgoals-framework/internal/artifact"
	"github.com/SpaceTransformer/xgoals-framework/internal/formula"
	"github.com/SpaceTransformer/xgoals-framework/internal/models"

	"github.com/rs/zerolog/log"
)

// DateLayout is the API date format
const DateLayout = "2006-01-02"

// Columns is the CSV header
var Columns = []string{"datetime", "home_team", "away_team", "league", "country", "xgoals", "details"}

const utf8BOM = "\ufeff"

// ErrInvalidDate is returned for input ParseDate cannot read
var ErrInvalidDate = errors.New("invalid date")

// ParseDate resolves today/oggi, tomorrow/domani, yesterday/ieri, DD/MM in
// the current year or YYYY-MM-DD into YYYY-MM-DD relative to now.
func ParseDate(input string, now time.Time) (string, error) {
	in := strings.ToLower(strings.TrimSpace(input))
	switch in {
	case "", "today", "oggi":
		return now.Format(DateLayout), nil
	case "tomorrow", "domani":
		return now.AddDate(0, 0, 1).Format(DateLayout), nil
	case "yesterday", "ieri":
		return now.AddDate(0, 0, -1).Format(DateLayout), nil
	}

	if t, err := time.Parse(DateLayout, in); err == nil {
		return t.Format(DateLayout), nil
	}

	day, month, ok := strings.Cut(in, "/")
	if !ok {
		return "", fmt.Errorf("%w %q: use today, tomorrow, DD/MM or YYYY-MM-DD", ErrInvalidDate, input)
	}
	d, errD := strconv.Atoi(strings.TrimSpace(day))
	m, errM := strconv.Atoi(strings.TrimSpace(month))
	if errD != nil || errM != nil {
		return "", fmt.Errorf("%w %q: use today, tomorrow, DD/MM or YYYY-MM-DD", ErrInvalidDate, input)
	}
	t := time.Date(now.Year(), time.Month(m), d, 0, 0, 0, 0, now.Location())
	if t.Day() != d || int(t.Month()) != m {
		return "", fmt.Errorf("%w %q: no such day", ErrInvalidDate, input)
	}
	return t.Format(DateLayout), nil
}

// Model is the formula and parameters a report is computed with
type Model struct {
	Formula    formula.Formula
	Parameters formula.Parameters
	Version    string // algorithm record version, empty for the built-in default
}

// DefaultModel is relative strength with the default parameters
func DefaultModel() Model {
	f, _ := formula.Lookup(formula.RelativeStrength)
	return Model{Formula: f, Parameters: formula.DefaultParameters()}
}

// ModelFromRecord builds the model stored in an algorithm record
func ModelFromRecord(rec artifact.Record) (Model, error) {
	f, ok := formula.Lookup(rec.Formula)
	if !ok {
		return Model{}, fmt.Errorf("algorithm v%s: unknown formula %q", rec.Version, rec.Formula)
	}
	return Model{Formula: f, Parameters: rec.Parameters, Version: rec.Version}, nil
}

func (m Model) String() string {
	if m.Version == "" {
		return string(m.Formula.ID)
	}
	return fmt.Sprintf("%s v%s", m.Formula.ID, m.Version)
}

// Row is one report line
type Row struct {
	FixtureID int
	Datetime  string
	HomeTeam  string
	AwayTeam  string
	League    string
	Country   string
	XGoals    float64
	Details   string
}

// Analyze computes expected goals per match with m, highest first. Matches
// whose season statistics are unusable are skipped and counted.
func Analyze(matches []models.MatchRecord, m Model) ([]Row, int) {
	rows := make([]Row, 0, len(matches))
	skipped := 0

	for i := range matches {
		rec := &matches[i]
		features, err := formula.ExtractFeatures(rec)
		if err != nil {
			skipped++
			log.Debug().Err(err).Int("fixture_id", rec.Fixture.ID).Msg("Skipping match in report")
			continue
		}
		xg := m.Formula.Predict(features, m.Parameters)

		rows = append(rows, Row{
			FixtureID: rec.Fixture.ID,
			Datetime:  rec.Fixture.Date,
			HomeTeam:  rec.Teams.Home.Name,
			AwayTeam:  rec.Teams.Away.Name,
			League:    rec.League.Name,
			Country:   rec.League.Country,
			XGoals:    xg,
			Details:   details(m, features, rec.Weather),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].XGoals > rows[j].XGoals
	})

	return rows, skipped
}

func details(m Model, f formula.Features, w models.WeatherSample) string {
	parts := []string{
		m.String(),
		fmt.Sprintf("home %.2f-%.2f", f.HomeScored, f.HomeConceded),
		fmt.Sprintf("away %.2f-%.2f", f.AwayScored, f.AwayConceded),
		fmt.Sprintf("league %.2f", f.LeagueAvg),
	}
	if w.Description != "" {
		weather := w.Description
		if w.Temperature != nil {
			weather += fmt.Sprintf(" %.1f°C", *w.Temperature)
		}
		parts = append(parts, weather)
	}
	return strings.Join(parts, ", ")
}

// FileName returns the report file name for date
func FileName(date string) string {
	return "xgoals_" + date + ".csv"
}

// WriteCSV writes rows as semicolon-separated UTF-8 with a byte order mark
func WriteCSV(w io.Writer, rows []Row) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.Datetime,
			r.HomeTeam,
			r.AwayTeam,
			r.League,
			r.Country,
			strconv.FormatFloat(r.XGoals, 'f', 2, 64),
			r.Details,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write fixture %d: %w", r.FixtureID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
