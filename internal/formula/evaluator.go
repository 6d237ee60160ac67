package formula

import (
	"math"

	"github.com/SpaceTransformer/xgoals-framework/internal/models"
)

// Best is the lowest-error formula seen so far
type Best struct {
	Formula    ID
	Parameters Parameters
	AvgError   float64
	Accuracy   float64
}

// Found reports whether any finite result has been recorded
func (b Best) Found() bool {
	return b.Formula != "" && !math.IsInf(b.AvgError, 0)
}

// Evaluator carries the running parameters and best result across tests
type Evaluator struct {
	params Parameters
	best   Best
}

// NewEvaluator starts from params with no best result
func NewEvaluator(params Parameters) *Evaluator {
	return &Evaluator{
		params: params,
		best:   Best{AvgError: math.Inf(1)},
	}
}

// Parameters returns the current running parameters
func (e *Evaluator) Parameters() Parameters {
	return e.params
}

// Best returns the best result so far
func (e *Evaluator) Best() Best {
	return e.best
}

// Test evaluates f with the running parameters, records it as best on a
// strict improvement, then applies one adjustment step driven by its error.
func (e *Evaluator) Test(f Formula, matches []models.MatchRecord) Result {
	res := Evaluate(f, e.params, matches)
	e.observe(res)
	e.params = e.params.Adjust(res.AvgError)
	return res
}

// TestWith evaluates f with explicit parameters and records it as best on a
// strict improvement. The running parameters are left untouched.
func (e *Evaluator) TestWith(f Formula, p Parameters, matches []models.MatchRecord) Result {
	res := Evaluate(f, p, matches)
	e.observe(res)
	return res
}

func (e *Evaluator) observe(res Result) {
	if res.AvgError < e.best.AvgError {
		e.best = Best{
			Formula:    res.Formula,
			Parameters: res.Parameters,
			AvgError:   res.AvgError,
			Accuracy:   res.Accuracy,
		}
	}
}
