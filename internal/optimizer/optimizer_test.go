package optimizer

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SpaceTransformer/xgoals-framework/internal/artifact"
	"github.com/SpaceTransformer/xgoals-framework/internal/formula"
	"github.com/SpaceTransformer/xgoals-framework/internal/models"
	"github.com/SpaceTransformer/xgoals-framework/internal/progress"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func teamStats() json.RawMessage {
	return json.RawMessage(`{"goals":{"for":{"average":{"home":"1.5","away":"1.1","total":"1.3"}},"against":{"average":{"home":"0.9","away":"1.2","total":"1.0"}}}}`)
}

func matches(n int) []models.MatchRecord {
	out := make([]models.MatchRecord, n)
	for i := range out {
		one := 1
		out[i] = models.MatchRecord{
			Fixture:   models.Fixture{ID: i + 1},
			Teams:     models.Teams{Home: models.TeamRef{ID: 1, Name: "Inter"}, Away: models.TeamRef{ID: 2, Name: "Milan"}},
			Goals:     models.Goals{Home: &one, Away: &one},
			HomeStats: teamStats(),
			AwayStats: teamStats(),
		}
	}
	return out
}

func constant(id string, v float64) formula.Formula {
	return formula.Formula{ID: formula.ID(id), Predict: func(formula.Features, formula.Parameters) float64 { return v }}
}

type fixture struct {
	root      string
	tracker   *progress.Tracker
	artifacts *artifact.Store
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	clock := clockwork.NewFakeClockAt(time.Date(2025, time.March, 2, 3, 30, 0, 0, time.UTC))

	tracker, err := progress.NewTracker(filepath.Join(root, "agent_progress"), clock)
	require.NoError(t, err)
	artifacts, err := artifact.NewStore(filepath.Join(root, "algorithms"), clock)
	require.NoError(t, err)

	return fixture{root: root, tracker: tracker, artifacts: artifacts}
}

func (f fixture) optimizer(strategy Strategy, iterations int, sink Sink) *Optimizer {
	return New(Config{
		Iterations:   iterations,
		TargetError:  0.5,
		Strategy:     strategy,
		ProgressRoot: filepath.Join(f.root, "agent_progress"),
		Tracker:      f.tracker,
		Artifacts:    f.artifacts,
		Sink:         sink,
	})
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestRun_StopsEarlyAtTarget(t *testing.T) {
	f := newFixture(t)
	strategy := NewCycle([]formula.Formula{constant("a", 3.0), constant("b", 2.1), constant("c", 5.0)})

	summary, err := f.optimizer(strategy, 5, nil).Run(context.Background(), matches(4))
	require.NoError(t, err)

	assert.True(t, summary.EarlyStop)
	assert.Equal(t, 2, summary.Iterations)
	assert.Equal(t, formula.ID("b"), summary.Best.Formula)
	assert.InDelta(t, 0.1, summary.Best.AvgError, 1e-9)
	assert.Len(t, summary.Artifacts, 2)
	assert.Equal(t, 2, countFiles(t, f.tracker.Dir()))

	latest, err := f.artifacts.Latest()
	require.NoError(t, err)
	assert.Equal(t, "1.1", latest.Version)
	assert.Equal(t, formula.ID("b"), latest.Formula)
	assert.Equal(t, 2, latest.Iteration)
}

func TestRun_ArtifactOnlyOnStrictImprovement(t *testing.T) {
	f := newFixture(t)
	strategy := NewCycle([]formula.Formula{constant("a", 3.0), constant("b", 3.5), constant("c", 1.0)})

	summary, err := f.optimizer(strategy, 3, nil).Run(context.Background(), matches(3))
	require.NoError(t, err)

	assert.False(t, summary.EarlyStop)
	assert.Equal(t, 3, summary.Iterations)
	assert.Len(t, summary.Artifacts, 1)
	assert.Equal(t, formula.ID("a"), summary.Best.Formula)
	assert.Equal(t, 3, countFiles(t, f.tracker.Dir()))
}

func TestRun_NonFiniteIterationRecordedAsNull(t *testing.T) {
	f := newFixture(t)
	strategy := NewCycle([]formula.Formula{constant("nan", math.NaN())})

	summary, err := f.optimizer(strategy, 1, nil).Run(context.Background(), matches(2))
	require.NoError(t, err)
	assert.False(t, summary.Best.Found())
	assert.Empty(t, summary.Artifacts)

	data, err := os.ReadFile(filepath.Join(f.tracker.Dir(), "iteration_1.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"error": null`)

	best, stats, err := progress.LoadBest(filepath.Join(f.root, "agent_progress"))
	require.NoError(t, err)
	assert.False(t, best.Found)
	assert.Equal(t, 1, stats.Invalid)
}

func TestRun_LoadsPreviousBest(t *testing.T) {
	f := newFixture(t)
	prev := filepath.Join(f.root, "agent_progress", "20250101_030000")
	require.NoError(t, os.MkdirAll(prev, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(prev, "iteration_1.json"),
		[]byte(`{"formula":"relative_strength","error":0.9}`), 0o644))

	summary, err := f.optimizer(NewCycle(formula.Reference()), 1, nil).Run(context.Background(), matches(2))
	require.NoError(t, err)
	require.True(t, summary.Previous.Found)
	assert.Equal(t, "relative_strength", summary.Previous.Formula)
	assert.Equal(t, 0.9, summary.Previous.Error)
}

func TestRun_NoMatches(t *testing.T) {
	f := newFixture(t)
	_, err := f.optimizer(nil, 5, nil).Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoMatches)
}

func TestRun_ContextCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := f.optimizer(nil, 5, nil).Run(ctx, matches(2))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, summary.Iterations)
}

type recordingSink struct {
	iterations []int
	sessions   []string
	failWith   error
}

func (s *recordingSink) SaveEvaluation(_ context.Context, session string, iteration int, _ formula.Result) error {
	s.iterations = append(s.iterations, iteration)
	s.sessions = append(s.sessions, session)
	return s.failWith
}

func TestRun_SinkReceivesFiniteRuns(t *testing.T) {
	f := newFixture(t)
	sink := &recordingSink{failWith: fmt.Errorf("db down")}
	strategy := NewCycle([]formula.Formula{constant("a", 3.0), constant("nan", math.NaN()), constant("c", 4.0)})

	summary, err := f.optimizer(strategy, 3, sink).Run(context.Background(), matches(2))
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Iterations)
	assert.Equal(t, []int{1, 3}, sink.iterations)
	assert.Equal(t, f.tracker.Session(), sink.sessions[0])
}

func TestRun_GridExhaustsBeforeIterations(t *testing.T) {
	f := newFixture(t)
	grid := NewGrid([]formula.Formula{constant("a", 3.0)}, []float64{0.5, 0.6}, []float64{0.45})

	summary, err := f.optimizer(grid, 5, nil).Run(context.Background(), matches(2))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Iterations)
}

func TestCycle_RoundRobin(t *testing.T) {
	c := NewCycle(formula.Reference())
	params := formula.DefaultParameters()

	var ids []formula.ID
	for i := 1; i <= 4; i++ {
		cand, ok := c.Next(i, params)
		require.True(t, ok)
		assert.Nil(t, cand.Parameters)
		ids = append(ids, cand.Formula.ID)
	}
	assert.Equal(t, []formula.ID{
		formula.WeightedSplit, formula.RelativeStrength, formula.DefensiveFactor, formula.WeightedSplit,
	}, ids)

	_, ok := NewCycle(nil).Next(1, params)
	assert.False(t, ok)
}

func TestGrid_Points(t *testing.T) {
	g := NewGrid(formula.Reference(), []float64{0.5, 0.6}, []float64{0.45, 0.55})
	assert.Equal(t, 12, g.Len())

	cand, ok := g.Next(1, formula.Parameters{})
	require.True(t, ok)
	assert.Equal(t, formula.WeightedSplit, cand.Formula.ID)
	require.NotNil(t, cand.Parameters)
	assert.Equal(t, 0.5, cand.Parameters.HomeWeight)
	assert.Equal(t, 0.5, cand.Parameters.AwayWeight)
	assert.InDelta(t, 0.55, cand.Parameters.DefWeight, 1e-9)
	assert.Equal(t, 1.0, cand.Parameters.LeagueFactor)

	cand, ok = g.Next(5, formula.Parameters{})
	require.True(t, ok)
	assert.Equal(t, formula.RelativeStrength, cand.Formula.ID)

	_, ok = g.Next(13, formula.Parameters{})
	assert.False(t, ok)
}

func TestNewStrategy(t *testing.T) {
	s, err := NewStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyCycle, s.Name())

	s, err = NewStrategy("grid")
	require.NoError(t, err)
	assert.Equal(t, StrategyGrid, s.Name())

	_, err = NewStrategy("genetic")
	assert.Error(t, err)
}
