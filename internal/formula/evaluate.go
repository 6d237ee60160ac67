package formula

import (
	"math"

	"github.com/SpaceTransformer/xgoals-framework/internal/models"
)

// Category buckets a per-match absolute error
type Category string

const (
	CategoryGood       Category = "good"
	CategoryAcceptable Category = "acceptable"
	CategoryHigh       Category = "high"
	CategoryVeryHigh   Category = "very_high"
)

// Categorize maps an absolute error onto its bucket. Boundaries are inclusive.
func Categorize(absError float64) Category {
	switch {
	case absError <= 0.5:
		return CategoryGood
	case absError <= 1.0:
		return CategoryAcceptable
	case absError <= 2.0:
		return CategoryHigh
	default:
		return CategoryVeryHigh
	}
}

// Distribution counts predictions per category
type Distribution struct {
	Good       int `json:"good"`
	Acceptable int `json:"acceptable"`
	High       int `json:"high"`
	VeryHigh   int `json:"very_high"`
}

func (d *Distribution) add(c Category) {
	switch c {
	case CategoryGood:
		d.Good++
	case CategoryAcceptable:
		d.Acceptable++
	case CategoryHigh:
		d.High++
	default:
		d.VeryHigh++
	}
}

// Analysis is the per-match outcome of an evaluation
type Analysis struct {
	FixtureID int      `json:"fixture_id"`
	Match     string   `json:"match"`
	Predicted float64  `json:"predicted"`
	Actual    int      `json:"actual"`
	Error     float64  `json:"error"`
	Category  Category `json:"category"`
}

// Result summarizes one formula evaluated over a match set.
// AvgError is +Inf when no match could be scored.
type Result struct {
	Formula      ID
	Parameters   Parameters
	AvgError     float64
	Accuracy     float64
	Scored       int
	Skipped      int
	Distribution Distribution
	Analyses     []Analysis
}

// Finite reports whether at least one match was scored
func (r Result) Finite() bool {
	return !math.IsInf(r.AvgError, 0) && !math.IsNaN(r.AvgError)
}

// Evaluate scores a formula against final results. Matches without usable
// statistics or a final score are skipped and counted, never fatal.
func Evaluate(f Formula, p Parameters, matches []models.MatchRecord) Result {
	res := Result{Formula: f.ID, Parameters: p}

	var total float64
	for i := range matches {
		m := &matches[i]

		actual, ok := m.ActualGoals()
		if !ok {
			res.Skipped++
			continue
		}
		features, err := ExtractFeatures(m)
		if err != nil {
			res.Skipped++
			continue
		}
		predicted := f.Predict(features, p)
		if math.IsNaN(predicted) || math.IsInf(predicted, 0) {
			res.Skipped++
			continue
		}

		absErr := math.Abs(predicted - float64(actual))
		cat := Categorize(absErr)

		total += absErr
		res.Scored++
		res.Distribution.add(cat)
		res.Analyses = append(res.Analyses, Analysis{
			FixtureID: m.Fixture.ID,
			Match:     m.Label(),
			Predicted: round2(predicted),
			Actual:    actual,
			Error:     round2(absErr),
			Category:  cat,
		})
	}

	if res.Scored == 0 {
		res.AvgError = math.Inf(1)
		return res
	}
	res.AvgError = total / float64(res.Scored)
	res.Accuracy = float64(res.Distribution.Good) / float64(res.Scored) * 100
	return res
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
