package optimizer

import (
	"fmt"

	"github.com/SpaceTransformer/xgoals-framework/internal/formula"
)

const (
	StrategyCycle = "cycle"
	StrategyGrid  = "grid"
)

// Candidate is one formula to evaluate. A nil Parameters means the
// evaluator's running parameters, which are then hill-climbed.
type Candidate struct {
	Formula    formula.Formula
	Parameters *formula.Parameters
	Notes      string
}

// Strategy proposes the candidate for each iteration. Next returns false when
// it has nothing left to try.
type Strategy interface {
	Name() string
	Next(iteration int, running formula.Parameters) (Candidate, bool)
}

// NewStrategy resolves a strategy by name
func NewStrategy(name string) (Strategy, error) {
	switch name {
	case "", StrategyCycle:
		return NewCycle(formula.Reference()), nil
	case StrategyGrid:
		return NewGrid(formula.Reference(), DefaultHomeWeights, DefaultOffWeights), nil
	default:
		return nil, fmt.Errorf("unknown optimizer strategy %q", name)
	}
}

// Cycle walks the formulas round-robin with the running parameters
type Cycle struct {
	formulas []formula.Formula
}

// NewCycle creates a round-robin strategy
func NewCycle(formulas []formula.Formula) *Cycle {
	return &Cycle{formulas: formulas}
}

func (c *Cycle) Name() string { return StrategyCycle }

func (c *Cycle) Next(iteration int, running formula.Parameters) (Candidate, bool) {
	if len(c.formulas) == 0 || iteration < 1 {
		return Candidate{}, false
	}
	f := c.formulas[(iteration-1)%len(c.formulas)]
	return Candidate{
		Formula: f,
		Notes:   fmt.Sprintf("cycle %s home=%.2f off=%.2f", f.ID, running.HomeWeight, running.OffWeight),
	}, true
}

var (
	DefaultHomeWeights = []float64{0.5, 0.6, 0.7, 0.8}
	DefaultOffWeights  = []float64{0.45, 0.55, 0.65}
)

// Grid enumerates formula x home weight x offense weight
type Grid struct {
	points []Candidate
}

// NewGrid builds the full grid in formula-major order. Complements and the
// league factor come from the default parameters.
func NewGrid(formulas []formula.Formula, homeWeights, offWeights []float64) *Grid {
	g := &Grid{}
	base := formula.DefaultParameters()
	for _, f := range formulas {
		for _, hw := range homeWeights {
			for _, ow := range offWeights {
				p := base.WithSplits(hw, ow)
				g.points = append(g.points, Candidate{
					Formula:    f,
					Parameters: &p,
					Notes:      fmt.Sprintf("grid %s home=%.2f off=%.2f", f.ID, hw, ow),
				})
			}
		}
	}
	return g
}

// Len returns the number of grid points
func (g *Grid) Len() int { return len(g.points) }

func (g *Grid) Name() string { return StrategyGrid }

func (g *Grid) Next(iteration int, _ formula.Parameters) (Candidate, bool) {
	if iteration < 1 || iteration > len(g.points) {
		return Candidate{}, false
	}
	return g.points[iteration-1], true
}
