package formula

const (
	adjustThreshold = 1.0
	adjustStep      = 0.05
	maxHomeWeight   = 0.8
	maxOffWeight    = 0.7
)

// Parameters are the tunable weights shared by the formulas.
// HomeWeight+AwayWeight and OffWeight+DefWeight each sum to 1.
type Parameters struct {
	HomeWeight   float64 `json:"home_weight"`
	AwayWeight   float64 `json:"away_weight"`
	OffWeight    float64 `json:"off_weight"`
	DefWeight    float64 `json:"def_weight"`
	LeagueFactor float64 `json:"league_factor"`
}

// DefaultParameters returns the starting weights
func DefaultParameters() Parameters {
	return Parameters{
		HomeWeight:   0.6,
		AwayWeight:   0.4,
		OffWeight:    0.55,
		DefWeight:    0.45,
		LeagueFactor: 1.0,
	}
}

// WithSplits returns p with both pairs set from their first member
func (p Parameters) WithSplits(homeWeight, offWeight float64) Parameters {
	p.HomeWeight = homeWeight
	p.AwayWeight = 1 - homeWeight
	p.OffWeight = offWeight
	p.DefWeight = 1 - offWeight
	return p
}

// Adjust applies one hill-climb step: when avgError exceeds 1.0 the home and
// offense weights grow by 0.05, capped at 0.8 and 0.7. Otherwise p is returned
// unchanged.
func (p Parameters) Adjust(avgError float64) Parameters {
	if !(avgError > adjustThreshold) {
		return p
	}
	return p.WithSplits(
		min(maxHomeWeight, p.HomeWeight+adjustStep),
		min(maxOffWeight, p.OffWeight+adjustStep),
	)
}
