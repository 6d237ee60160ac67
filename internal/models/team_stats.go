package models

import (
	"encoding/json"
	"fmt"
)

// GoalAverages holds per-venue goal averages
type GoalAverages struct {
	Home  StatValue `json:"home"`
	Away  StatValue `json:"away"`
	Total StatValue `json:"total"`
}

// GoalSplit is one direction (for or against) of a team's goal record
type GoalSplit struct {
	Average GoalAverages `json:"average"`
}

// TeamGoals is the goals block of teams/statistics
type TeamGoals struct {
	For     GoalSplit `json:"for"`
	Against GoalSplit `json:"against"`
}

// TeamSeasonStats is the subset of a team's season statistics used for xG
type TeamSeasonStats struct {
	Goals TeamGoals `json:"goals"`
}

// DecodeTeamSeasonStats decodes a stored teams/statistics payload
func DecodeTeamSeasonStats(raw json.RawMessage) (TeamSeasonStats, error) {
	var stats TeamSeasonStats
	if !hasPayload(raw) {
		return stats, fmt.Errorf("team statistics: %w", ErrStatMissing)
	}
	if err := json.Unmarshal(raw, &stats); err != nil {
		return stats, fmt.Errorf("failed to decode team statistics: %w", err)
	}
	return stats, nil
}
