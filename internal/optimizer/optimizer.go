// Package optimizer searches formulas and parameters for the lowest average
// error over stored matches.
package optimizer

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/SpaceTransformer/xgoals-framework/internal/artifact"
	"github.com/SpaceTransformer/xgoals-framework/internal/formula"
	"github.com/SpaceTransformer/xgoals-framework/internal/metrics"
	"github.com/SpaceTransformer/xgoals-framework/internal/models"
	"github.com/SpaceTransformer/xgoals-framework/internal/progress"

	"github.com/rs/zerolog/log"
)

const (
	DefaultIterations  = 5
	DefaultTargetError = 0.5
)

// ErrNoMatches is returned when there is nothing to evaluate
var ErrNoMatches = errors.New("no matches to evaluate")

// Sink receives every evaluation run
type Sink interface {
	SaveEvaluation(ctx context.Context, session string, iteration int, res formula.Result) error
}

// Config configures an Optimizer
type Config struct {
	Iterations   int
	TargetError  float64
	Strategy     Strategy
	ProgressRoot string
	Tracker      *progress.Tracker
	Artifacts    *artifact.Store
	Sink         Sink // optional
}

// Summary describes a finished run
type Summary struct {
	Session    string
	Iterations int
	Best       formula.Best
	Previous   progress.Best
	Artifacts  []string
	EarlyStop  bool
	Duration   time.Duration
}

// Optimizer runs evaluation iterations
type Optimizer struct {
	cfg Config
}

// New creates an optimizer, filling defaults
func New(cfg Config) *Optimizer {
	if cfg.Iterations <= 0 {
		cfg.Iterations = DefaultIterations
	}
	if cfg.TargetError <= 0 {
		cfg.TargetError = DefaultTargetError
	}
	if cfg.Strategy == nil {
		cfg.Strategy = NewCycle(formula.Reference())
	}
	return &Optimizer{cfg: cfg}
}

// Run evaluates up to Iterations candidates over matches. Each iteration is
// saved as a progress record; every strict improvement on this run's best is
// saved as a new algorithm record. The run stops early once an error at or
// below the target is reached.
func (o *Optimizer) Run(ctx context.Context, matches []models.MatchRecord) (Summary, error) {
	start := time.Now()
	summary := Summary{Best: formula.Best{AvgError: math.Inf(1)}}

	if len(matches) == 0 {
		return summary, ErrNoMatches
	}
	if o.cfg.Tracker != nil {
		summary.Session = o.cfg.Tracker.Session()
	}

	if o.cfg.ProgressRoot != "" {
		prev, _, err := progress.LoadBest(o.cfg.ProgressRoot)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load previous best result")
		} else if prev.Found {
			log.Info().
				Str("formula", prev.Formula).
				Float64("error", prev.Error).
				Str("source", prev.Source).
				Msg("Previous best result")
		}
		summary.Previous = prev
	}

	log.Info().
		Int("matches", len(matches)).
		Int("iterations", o.cfg.Iterations).
		Str("strategy", o.cfg.Strategy.Name()).
		Float64("target_error", o.cfg.TargetError).
		Msg("Starting optimization")

	ev := formula.NewEvaluator(formula.DefaultParameters())

	for i := 1; i <= o.cfg.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			summary.Best = ev.Best()
			summary.Duration = time.Since(start)
			return summary, err
		}

		cand, ok := o.cfg.Strategy.Next(i, ev.Parameters())
		if !ok {
			log.Info().Int("iteration", i).Msg("Strategy exhausted")
			break
		}

		before := ev.Best()
		var res formula.Result
		if cand.Parameters != nil {
			res = ev.TestWith(cand.Formula, *cand.Parameters, matches)
		} else {
			res = ev.Test(cand.Formula, matches)
		}
		summary.Iterations = i

		metrics.RecordOptimizerIteration()
		metrics.RecordEvaluation(string(res.Formula), res.AvgError, res.Accuracy, res.Finite())

		evt := log.Info()
		if res.Finite() {
			evt = evt.Float64("avg_error", res.AvgError).Float64("accuracy", res.Accuracy)
		}
		evt.Int("iteration", i).
			Str("formula", string(res.Formula)).
			Int("scored", res.Scored).
			Int("skipped", res.Skipped).
			Interface("distribution", res.Distribution).
			Msg("Iteration evaluated")

		o.record(ctx, summary.Session, i, res, cand.Notes)

		if res.AvgError < before.AvgError {
			metrics.UpdateBestError(res.AvgError)
			if path := o.saveArtifact(summary.Session, i, res); path != "" {
				summary.Artifacts = append(summary.Artifacts, path)
			}
		}

		if res.AvgError <= o.cfg.TargetError {
			log.Info().
				Int("iteration", i).
				Float64("avg_error", res.AvgError).
				Msg("Target error reached, stopping early")
			summary.EarlyStop = true
			break
		}
	}

	summary.Best = ev.Best()
	summary.Duration = time.Since(start)

	evt := log.Info().
		Str("session", summary.Session).
		Int("iterations", summary.Iterations).
		Int("artifacts", len(summary.Artifacts)).
		Dur("duration", summary.Duration)
	if summary.Best.Found() {
		evt = evt.Str("best_formula", string(summary.Best.Formula)).Float64("best_error", summary.Best.AvgError)
	}
	evt.Msg("Optimization completed")

	return summary, nil
}

// record persists the iteration. Failures are logged and the run continues.
func (o *Optimizer) record(ctx context.Context, session string, iteration int, res formula.Result, notes string) {
	if o.cfg.Tracker != nil {
		if _, err := o.cfg.Tracker.Save(progress.FromResult(iteration, res, notes)); err != nil {
			log.Error().Err(err).Int("iteration", iteration).Msg("Failed to save iteration progress")
			metrics.RecordError("optimizer", "progress_save")
		}
	}
	if o.cfg.Sink != nil && res.Finite() {
		if err := o.cfg.Sink.SaveEvaluation(ctx, session, iteration, res); err != nil {
			log.Error().Err(err).Int("iteration", iteration).Msg("Failed to store evaluation run")
			metrics.RecordError("optimizer", "sink")
		}
	}
}

func (o *Optimizer) saveArtifact(session string, iteration int, res formula.Result) string {
	if o.cfg.Artifacts == nil {
		return ""
	}
	_, path, err := o.cfg.Artifacts.Save(artifact.Record{
		Formula:    res.Formula,
		Parameters: res.Parameters,
		AvgError:   res.AvgError,
		Accuracy:   res.Accuracy,
		Scored:     res.Scored,
		Session:    session,
		Iteration:  iteration,
	})
	if err != nil {
		log.Error().Err(err).Int("iteration", iteration).Msg("Failed to save algorithm record")
		metrics.RecordError("optimizer", "artifact_save")
		return ""
	}
	return path
}
