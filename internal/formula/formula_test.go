package formula

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/SpaceTransformer/xgoals-framework/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func teamStats(forHome, forAway, forTotal, againstHome, againstAway string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"goals":{"for":{"average":{"home":%q,"away":%q,"total":%q}},"against":{"average":{"home":%q,"away":%q,"total":"1.0"}}}}`,
		forHome, forAway, forTotal, againstHome, againstAway,
	))
}

func testRecord(id, homeGoals, awayGoals int) models.MatchRecord {
	return models.MatchRecord{
		Fixture:   models.Fixture{ID: id},
		Teams:     models.Teams{Home: models.TeamRef{ID: 10, Name: "Home FC"}, Away: models.TeamRef{ID: 20, Name: "Away FC"}},
		Goals:     models.Goals{Home: &homeGoals, Away: &awayGoals},
		HomeStats: teamStats("1,8", "1.0", "1.5", "0.9", "1.1"),
		AwayStats: teamStats("1.3", "1.2", "1.3", "1.0", "1.4"),
	}
}

func constant(id ID, v float64) Formula {
	return Formula{ID: id, Predict: func(Features, Parameters) float64 { return v }}
}

func TestExtractFeatures(t *testing.T) {
	rec := testRecord(1, 1, 1)

	f, err := ExtractFeatures(&rec)
	require.NoError(t, err)

	assert.InDelta(t, 1.8, f.HomeScored, 1e-9)
	assert.InDelta(t, 0.9, f.HomeConceded, 1e-9)
	assert.InDelta(t, 1.2, f.AwayScored, 1e-9)
	assert.InDelta(t, 1.4, f.AwayConceded, 1e-9)
	assert.InDelta(t, 1.4, f.LeagueAvg, 1e-9)
	assert.Equal(t, models.DefaultPossession, f.Home.Possession)
}

func TestExtractFeatures_Incomplete(t *testing.T) {
	rec := testRecord(1, 1, 1)
	rec.AwayStats = json.RawMessage(`{"goals":{"for":{"average":{"home":"1.0","away":null,"total":"1.0"}}}}`)

	_, err := ExtractFeatures(&rec)
	assert.ErrorIs(t, err, ErrIncomplete)

	rec.HomeStats = nil
	_, err = ExtractFeatures(&rec)
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestReferenceFormulas(t *testing.T) {
	rec := testRecord(1, 1, 1)
	f, err := ExtractFeatures(&rec)
	require.NoError(t, err)
	p := DefaultParameters()

	tests := []struct {
		id   ID
		want float64
	}{
		{WeightedSplit, 0.78288},
		{RelativeStrength, 2.16},
		{DefensiveFactor, 1.8/1.4*0.6 + 1.2/1.9*0.4},
		{ShotsPossession, 1.0},
	}

	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			formula, ok := Lookup(tt.id)
			require.True(t, ok)
			assert.InDelta(t, tt.want, formula.Predict(f, p), 1e-9)
		})
	}
}

func TestReference_Order(t *testing.T) {
	ids := make([]ID, 0, 3)
	for _, f := range Reference() {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []ID{WeightedSplit, RelativeStrength, DefensiveFactor}, ids)
	assert.Len(t, All(), 4)

	_, err := Parse("nope")
	assert.Error(t, err)
	f, err := Parse("relative_strength")
	require.NoError(t, err)
	assert.Equal(t, RelativeStrength, f.ID)
}

func TestClampDenominator(t *testing.T) {
	assert.Equal(t, MinDenominator, clampDenominator(0))
	assert.Equal(t, MinDenominator, clampDenominator(-3))
	assert.Equal(t, MinDenominator, clampDenominator(0.0999))
	assert.Equal(t, 0.1, clampDenominator(0.1))
	assert.Equal(t, 2.5, clampDenominator(2.5))
}

func TestRelativeStrength_ClampedDivisorsAreEquivalent(t *testing.T) {
	p := DefaultParameters()
	base := Features{HomeScored: 1.2, AwayScored: 0.8, HomeConceded: 0.1, AwayConceded: 0.1, LeagueAvg: 0.1}

	for _, small := range []float64{0, 0.001, 0.05, 0.0999} {
		f := base
		f.HomeConceded = small
		f.AwayConceded = small
		f.LeagueAvg = small

		got := relativeStrength(f, p)
		assert.False(t, math.IsInf(got, 0))
		assert.Equal(t, relativeStrength(base, p), got, "divisor %v", small)
	}
}

func TestParameters_Adjust(t *testing.T) {
	p := DefaultParameters()

	assert.Equal(t, p, p.Adjust(1.0), "no change at exactly 1.0")
	assert.Equal(t, p, p.Adjust(0.3))

	next := p.Adjust(1.5)
	assert.InDelta(t, 0.65, next.HomeWeight, 1e-9)
	assert.InDelta(t, 0.35, next.AwayWeight, 1e-9)
	assert.InDelta(t, 0.60, next.OffWeight, 1e-9)
	assert.InDelta(t, 0.40, next.DefWeight, 1e-9)
	assert.Equal(t, p.LeagueFactor, next.LeagueFactor)

	for i := 0; i < 20; i++ {
		next = next.Adjust(5)
		assert.InDelta(t, 1.0, next.HomeWeight+next.AwayWeight, 1e-9)
		assert.InDelta(t, 1.0, next.OffWeight+next.DefWeight, 1e-9)
		assert.LessOrEqual(t, next.HomeWeight, 0.8)
		assert.LessOrEqual(t, next.OffWeight, 0.7)
	}
	assert.Equal(t, 0.8, next.HomeWeight)
	assert.Equal(t, 0.7, next.OffWeight)
	assert.Equal(t, next, next.Adjust(5), "capped parameters are a fixed point")

	assert.InDelta(t, 0.65, p.Adjust(math.Inf(1)).HomeWeight, 1e-9)
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		err  float64
		want Category
	}{
		{0, CategoryGood},
		{0.5, CategoryGood},
		{0.5000001, CategoryAcceptable},
		{1.0, CategoryAcceptable},
		{1.0000001, CategoryHigh},
		{2.0, CategoryHigh},
		{2.0000001, CategoryVeryHigh},
		{10, CategoryVeryHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Categorize(tt.err), "error %v", tt.err)
	}
}

func TestEvaluate(t *testing.T) {
	matches := []models.MatchRecord{testRecord(1, 1, 1), testRecord(2, 3, 2)}

	res := Evaluate(constant("two", 2), DefaultParameters(), matches)

	assert.Equal(t, 2, res.Scored)
	assert.Zero(t, res.Skipped)
	assert.InDelta(t, 1.5, res.AvgError, 1e-9)
	assert.InDelta(t, 50.0, res.Accuracy, 1e-9)
	assert.Equal(t, Distribution{Good: 1, VeryHigh: 1}, res.Distribution)
	require.Len(t, res.Analyses, 2)
	assert.Equal(t, Analysis{FixtureID: 2, Match: "Home FC vs Away FC", Predicted: 2, Actual: 5, Error: 3, Category: CategoryVeryHigh}, res.Analyses[1])
}

func TestEvaluate_RoundsAnalyses(t *testing.T) {
	res := Evaluate(constant("c", 1.23456), DefaultParameters(), []models.MatchRecord{testRecord(1, 1, 0)})
	require.Len(t, res.Analyses, 1)
	assert.Equal(t, 1.23, res.Analyses[0].Predicted)
	assert.Equal(t, 0.23, res.Analyses[0].Error)
	assert.InDelta(t, 0.23456, res.AvgError, 1e-9)
}

func TestEvaluate_Empty(t *testing.T) {
	res := Evaluate(constant("c", 1), DefaultParameters(), nil)
	assert.True(t, math.IsInf(res.AvgError, 1))
	assert.Zero(t, res.Accuracy)
	assert.False(t, res.Finite())
}

func TestEvaluate_SkipsMalformed(t *testing.T) {
	broken := testRecord(2, 1, 1)
	broken.HomeStats = json.RawMessage(`{"goals":{"for":{"average":{"home":"n/a"}}}}`)
	unplayed := testRecord(3, 0, 0)
	unplayed.Goals = models.Goals{}

	ws, _ := Lookup(WeightedSplit)
	res := Evaluate(ws, DefaultParameters(), []models.MatchRecord{testRecord(1, 1, 1), broken, unplayed})

	assert.Equal(t, 1, res.Scored)
	assert.Equal(t, 2, res.Skipped)
	assert.True(t, res.Finite())
}

func TestEvaluator_TestAdjustsAndTracksBest(t *testing.T) {
	matches := []models.MatchRecord{testRecord(1, 3, 2)}
	e := NewEvaluator(DefaultParameters())
	assert.False(t, e.Best().Found())

	res := e.Test(constant("far", 1), matches)
	assert.InDelta(t, 4.0, res.AvgError, 1e-9)
	assert.Equal(t, DefaultParameters(), res.Parameters, "evaluated with parameters before adjustment")
	assert.InDelta(t, 0.65, e.Parameters().HomeWeight, 1e-9)

	best := e.Best()
	assert.True(t, best.Found())
	assert.Equal(t, ID("far"), best.Formula)

	e.Test(constant("close", 4.8), matches)
	assert.Equal(t, ID("close"), e.Best().Formula)
	assert.InDelta(t, 0.2, e.Best().AvgError, 1e-9)
}

func TestEvaluator_TiesKeepEarlier(t *testing.T) {
	matches := []models.MatchRecord{testRecord(1, 1, 1)}
	e := NewEvaluator(DefaultParameters())

	e.Test(constant("first", 2.5), matches)
	e.Test(constant("second", 2.5), matches)

	assert.Equal(t, ID("first"), e.Best().Formula)
}

func TestEvaluator_EmptySetNeverBest(t *testing.T) {
	e := NewEvaluator(DefaultParameters())
	e.Test(constant("c", 1), nil)

	assert.False(t, e.Best().Found())
	assert.InDelta(t, 0.65, e.Parameters().HomeWeight, 1e-9, "infinite error exceeds the threshold")
}

func TestEvaluator_TestWithLeavesRunningParameters(t *testing.T) {
	e := NewEvaluator(DefaultParameters())
	custom := DefaultParameters().WithSplits(0.7, 0.6)

	res := e.TestWith(constant("c", 2), custom, []models.MatchRecord{testRecord(1, 0, 0)})
	assert.Equal(t, custom, res.Parameters)
	assert.Equal(t, DefaultParameters(), e.Parameters())
	assert.Equal(t, custom, e.Best().Parameters)
}
