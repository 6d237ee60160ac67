package formula

import "fmt"

// MinDenominator is the floor applied to every divisor before dividing
const MinDenominator = 0.1

// referenceLeagueAvg is the goals-per-team level the weighted split normalizes to
const referenceLeagueAvg = 2.5

// ID names a formula
type ID string

const (
	WeightedSplit    ID = "weighted_split"
	RelativeStrength ID = "relative_strength"
	DefensiveFactor  ID = "defensive_factor"
	ShotsPossession  ID = "shots_possession"
)

// Func predicts total match goals
type Func func(Features, Parameters) float64

// Formula is a named prediction function
type Formula struct {
	ID          ID
	Description string
	Predict     Func
}

var registry = []Formula{
	{
		ID:          WeightedSplit,
		Description: "offense and defense weighted by home/away split, scaled by league average over 2.5",
		Predict:     weightedSplit,
	},
	{
		ID:          RelativeStrength,
		Description: "attack over defense strength relative to the league average",
		Predict:     relativeStrength,
	},
	{
		ID:          DefensiveFactor,
		Description: "goals scored damped by goals conceded plus 0.5, times the league factor",
		Predict:     defensiveFactor,
	},
	{
		ID:          ShotsPossession,
		Description: "0.05 per shot on target plus 0.02 per point of mean possession",
		Predict:     shotsPossession,
	},
}

// Reference returns the three season-statistics formulas in evaluation order
func Reference() []Formula {
	out := make([]Formula, 0, 3)
	for _, f := range registry {
		if f.ID != ShotsPossession {
			out = append(out, f)
		}
	}
	return out
}

// All returns every registered formula
func All() []Formula {
	out := make([]Formula, len(registry))
	copy(out, registry)
	return out
}

// Lookup finds a formula by id
func Lookup(id ID) (Formula, bool) {
	for _, f := range registry {
		if f.ID == id {
			return f, true
		}
	}
	return Formula{}, false
}

// Parse resolves a formula id from configuration or the command line
func Parse(id string) (Formula, error) {
	if f, ok := Lookup(ID(id)); ok {
		return f, nil
	}
	return Formula{}, fmt.Errorf("unknown formula %q", id)
}

func clampDenominator(x float64) float64 {
	if x < MinDenominator {
		return MinDenominator
	}
	return x
}

func weightedSplit(f Features, p Parameters) float64 {
	offense := f.HomeScored*p.HomeWeight + f.AwayScored*p.AwayWeight
	defense := f.HomeConceded*p.AwayWeight + f.AwayConceded*p.HomeWeight
	return (offense*p.OffWeight + defense*p.DefWeight) * (f.LeagueAvg / referenceLeagueAvg)
}

func relativeStrength(f Features, p Parameters) float64 {
	la := clampDenominator(f.LeagueAvg)
	hc := clampDenominator(f.HomeConceded)
	ac := clampDenominator(f.AwayConceded)

	homeStrength := (f.HomeScored / la) * (1 / (hc / la))
	awayStrength := (f.AwayScored / la) * (1 / (ac / la))

	return la*homeStrength*p.HomeWeight + la*awayStrength*p.AwayWeight
}

func defensiveFactor(f Features, p Parameters) float64 {
	home := f.HomeScored * (1 / clampDenominator(f.HomeConceded+0.5)) * p.HomeWeight
	away := f.AwayScored * (1 / clampDenominator(f.AwayConceded+0.5)) * p.AwayWeight
	return (home + away) * p.LeagueFactor
}

func shotsPossession(f Features, _ Parameters) float64 {
	shots := f.Home.ShotsOnTarget + f.Away.ShotsOnTarget
	possession := (f.Home.Possession + f.Away.Possession) / 2
	return 0.05*shots + 0.02*possession
}
