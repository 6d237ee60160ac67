package models

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// MonitoredLeague is a competition the collector keeps
type MonitoredLeague struct {
	Name    string `yaml:"name"`
	Country string `yaml:"country"`
	ID      int    `yaml:"id"`
}

// LeagueCatalog is the immutable set of monitored league ids
type LeagueCatalog struct {
	leagues []MonitoredLeague
	ids     map[int]struct{}
}

var defaultLeagues = []MonitoredLeague{
	{Name: "Champions League", Country: "World", ID: 2},
	{Name: "Europa League", Country: "World", ID: 3},
	{Name: "Conference League", Country: "World", ID: 848},
	{Name: "Premier League", Country: "England", ID: 39},
	{Name: "Championship", Country: "England", ID: 40},
	{Name: "La Liga", Country: "Spain", ID: 140},
	{Name: "La Liga 2", Country: "Spain", ID: 141},
	{Name: "Bundesliga", Country: "Germany", ID: 78},
	{Name: "2. Bundesliga", Country: "Germany", ID: 79},
	{Name: "Serie A", Country: "Italy", ID: 135},
	{Name: "Serie B", Country: "Italy", ID: 136},
	{Name: "Ligue 1", Country: "France", ID: 61},
	{Name: "Ligue 2", Country: "France", ID: 62},
	{Name: "Eredivisie", Country: "Netherlands", ID: 88},
	{Name: "Eerste Divisie", Country: "Netherlands", ID: 89},
	{Name: "Primeira Liga", Country: "Portugal", ID: 94},
	{Name: "Liga Portugal 2", Country: "Portugal", ID: 95},
	{Name: "Super Lig", Country: "Turkey", ID: 203},
	{Name: "1. Lig", Country: "Turkey", ID: 204},
	{Name: "Super League", Country: "Switzerland", ID: 207},
	{Name: "Challenge League", Country: "Switzerland", ID: 208},
	{Name: "Pro League", Country: "Belgium", ID: 144},
	{Name: "Challenger Pro League", Country: "Belgium", ID: 145},
	{Name: "Serie A", Country: "Brazil", ID: 71},
	{Name: "Primera Division", Country: "Argentina", ID: 128},
	{Name: "MLS", Country: "USA", ID: 253},
	{Name: "J1 League", Country: "Japan", ID: 98},
	{Name: "A-League", Country: "Australia", ID: 188},
	{Name: "Saudi Pro League", Country: "Saudi-Arabia", ID: 307},
}

// NewLeagueCatalog builds a catalog from the given leagues
func NewLeagueCatalog(leagues []MonitoredLeague) *LeagueCatalog {
	c := &LeagueCatalog{
		leagues: make([]MonitoredLeague, len(leagues)),
		ids:     make(map[int]struct{}, len(leagues)),
	}
	copy(c.leagues, leagues)
	for _, l := range leagues {
		c.ids[l.ID] = struct{}{}
	}
	return c
}

// DefaultLeagueCatalog returns the built-in monitored competitions
func DefaultLeagueCatalog() *LeagueCatalog {
	return NewLeagueCatalog(defaultLeagues)
}

type leagueFile struct {
	Leagues []MonitoredLeague `yaml:"leagues"`
}

// LoadLeagueCatalog reads a YAML file of the form
//
//	leagues:
//	  - {name: Serie A, country: Italy, id: 135}
func LoadLeagueCatalog(path string) (*LeagueCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read league catalog: %w", err)
	}

	var f leagueFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse league catalog: %w", err)
	}
	if len(f.Leagues) == 0 {
		return nil, fmt.Errorf("league catalog %s lists no leagues", path)
	}
	for _, l := range f.Leagues {
		if l.ID <= 0 {
			return nil, fmt.Errorf("league catalog %s: invalid id %d for %q", path, l.ID, l.Name)
		}
	}

	return NewLeagueCatalog(f.Leagues), nil
}

// Contains reports whether the league id is monitored
func (c *LeagueCatalog) Contains(id int) bool {
	_, ok := c.ids[id]
	return ok
}

// Len returns the number of monitored leagues
func (c *LeagueCatalog) Len() int {
	return len(c.leagues)
}

// IDs returns the monitored ids in ascending order
func (c *LeagueCatalog) IDs() []int {
	ids := make([]int, 0, len(c.ids))
	for id := range c.ids {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Leagues returns a copy of the monitored leagues
func (c *LeagueCatalog) Leagues() []MonitoredLeague {
	out := make([]MonitoredLeague, len(c.leagues))
	copy(out, c.leagues)
	return out
}

// Filter keeps the fixtures of monitored leagues, preserving order
func (c *LeagueCatalog) Filter(entries []FixtureEntry) []FixtureEntry {
	out := make([]FixtureEntry, 0, len(entries))
	for _, e := range entries {
		if c.Contains(e.League.ID) {
			out = append(out, e)
		}
	}
	return out
}
