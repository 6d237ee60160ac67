package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Side is one side of a fixture
type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

// Defaults used when a team's match statistics lack a value
const (
	DefaultShotsOnTarget = 0.0
	DefaultTotalShots    = 0.0
	DefaultPossession    = 50.0
)

// StatisticsForm tags which shape the per-fixture statistics arrived in
type StatisticsForm int

const (
	// FormAbsent means no statistics were delivered
	FormAbsent StatisticsForm = iota
	// FormList is a list of per-team entries, as fixtures/statistics returns
	FormList
	// FormMap is an object keyed by "home" and "away"
	FormMap
)

func (f StatisticsForm) String() string {
	switch f {
	case FormList:
		return "list"
	case FormMap:
		return "map"
	default:
		return "absent"
	}
}

var (
	shotsOnTargetKeys = []string{"shots_on_target", "Shots on Goal"}
	totalShotsKeys    = []string{"total_shots", "Total Shots"}
	possessionKeys    = []string{"possession", "Ball Possession"}
)

// TeamStatistics is one team's statistics within a fixture
type TeamStatistics struct {
	TeamID   int
	TeamName string
	Side     Side
	Values   map[string]StatValue
}

// Value returns the first present value among keys
func (t TeamStatistics) Value(keys ...string) (StatValue, bool) {
	for _, k := range keys {
		if v, ok := t.Values[k]; ok && v.Present() {
			return v, true
		}
	}
	return StatValue{}, false
}

// TeamMatchStats is the canonical per-team record the formulas consume
type TeamMatchStats struct {
	ShotsOnTarget float64
	TotalShots    float64
	Possession    float64
}

// MatchStatistics is the tagged union of the two statistics shapes
type MatchStatistics struct {
	Form StatisticsForm
	List []TeamStatistics
	Map  map[Side]TeamStatistics
}

// ParseMatchStatistics decodes the stored fixtures/statistics payload.
// Empty or null input yields FormAbsent without error.
func ParseMatchStatistics(raw json.RawMessage) (MatchStatistics, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return MatchStatistics{Form: FormAbsent}, nil
	}

	switch trimmed[0] {
	case '[':
		var entries []json.RawMessage
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return MatchStatistics{}, fmt.Errorf("failed to decode statistics list: %w", err)
		}
		out := MatchStatistics{Form: FormList, List: make([]TeamStatistics, 0, len(entries))}
		for _, e := range entries {
			ts, err := parseTeamStatistics(e)
			if err != nil {
				return MatchStatistics{}, err
			}
			out.List = append(out.List, ts)
		}
		if len(out.List) == 0 {
			out.Form = FormAbsent
		}
		return out, nil

	case '{':
		var sides map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &sides); err != nil {
			return MatchStatistics{}, fmt.Errorf("failed to decode statistics map: %w", err)
		}
		out := MatchStatistics{Form: FormMap, Map: make(map[Side]TeamStatistics, 2)}
		for _, side := range []Side{SideHome, SideAway} {
			e, ok := sides[string(side)]
			if !ok {
				continue
			}
			ts, err := parseTeamStatistics(e)
			if err != nil {
				return MatchStatistics{}, err
			}
			ts.Side = side
			out.Map[side] = ts
		}
		if len(out.Map) == 0 {
			out.Form = FormAbsent
		}
		return out, nil
	}

	return MatchStatistics{}, fmt.Errorf("unexpected statistics payload %.20q", trimmed)
}

// Team finds the statistics for a side. List entries match on an explicit
// side tag first, then on team id.
func (s MatchStatistics) Team(side Side, teamID int) (TeamStatistics, bool) {
	switch s.Form {
	case FormMap:
		ts, ok := s.Map[side]
		return ts, ok
	case FormList:
		for _, ts := range s.List {
			if ts.Side == side {
				return ts, true
			}
		}
		if teamID == 0 {
			return TeamStatistics{}, false
		}
		for _, ts := range s.List {
			if ts.TeamID == teamID {
				return ts, true
			}
		}
	}
	return TeamStatistics{}, false
}

// Normalize returns the canonical record for a side, filling documented defaults
func (s MatchStatistics) Normalize(side Side, teamID int) TeamMatchStats {
	out := TeamMatchStats{
		ShotsOnTarget: DefaultShotsOnTarget,
		TotalShots:    DefaultTotalShots,
		Possession:    DefaultPossession,
	}

	ts, ok := s.Team(side, teamID)
	if !ok {
		return out
	}
	if v, ok := ts.Value(shotsOnTargetKeys...); ok {
		out.ShotsOnTarget = v.FloatOr(DefaultShotsOnTarget)
	}
	if v, ok := ts.Value(totalShotsKeys...); ok {
		out.TotalShots = v.FloatOr(DefaultTotalShots)
	}
	if v, ok := ts.Value(possessionKeys...); ok {
		out.Possession = v.FloatOr(DefaultPossession)
	}
	return out
}

type teamTag struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type statItem struct {
	Type  string    `json:"type"`
	Value StatValue `json:"value"`
}

func parseTeamStatistics(raw json.RawMessage) (TeamStatistics, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return TeamStatistics{}, fmt.Errorf("failed to decode team statistics entry: %w", err)
	}

	ts := TeamStatistics{Values: make(map[string]StatValue)}

	if t, ok := fields["team"]; ok {
		var tag teamTag
		if err := json.Unmarshal(t, &tag); err == nil {
			ts.TeamID = tag.ID
			ts.TeamName = tag.Name
			ts.Side = Side(tag.Type)
		}
	}
	if t, ok := fields["type"]; ok && ts.Side == "" {
		var s string
		if err := json.Unmarshal(t, &s); err == nil {
			ts.Side = Side(s)
		}
	}
	if list, ok := fields["statistics"]; ok {
		var items []statItem
		if err := json.Unmarshal(list, &items); err != nil {
			return TeamStatistics{}, fmt.Errorf("failed to decode statistics items: %w", err)
		}
		for _, it := range items {
			ts.Values[it.Type] = it.Value
		}
	}
	for k, v := range fields {
		switch k {
		case "team", "type", "statistics":
			continue
		}
		ts.Values[k] = NewStatValue(v)
	}

	return ts, nil
}
