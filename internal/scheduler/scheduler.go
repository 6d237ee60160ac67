package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SpaceTransformer/xgoals-framework/internal/collector"
	"github.com/SpaceTransformer/xgoals-framework/internal/models"
	"github.com/SpaceTransformer/xgoals-framework/internal/optimizer"
	"github.com/SpaceTransformer/xgoals-framework/internal/store"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Collector gathers the bundles for one date
type Collector interface {
	Collect(ctx context.Context, date string) (collector.Result, error)
}

// MatchSource provides every stored match
type MatchSource interface {
	LoadAll() ([]models.MatchRecord, store.LoadStats, error)
}

// Runner is one optimizer run
type Runner interface {
	Run(ctx context.Context, matches []models.MatchRecord) (optimizer.Summary, error)
}

// RunnerFactory builds a fresh runner, one progress session per run
type RunnerFactory func() (Runner, error)

// Config holds the job schedules
type Config struct {
	CollectCron  string
	OptimizeCron string
	Location     *time.Location // calendar used to pick the previous day
}

// Scheduler runs the nightly collection of the previous day and the nightly
// optimization over all stored matches. Jobs never overlap.
type Scheduler struct {
	cfg       Config
	collector Collector
	matches   MatchSource
	optimizer RunnerFactory
	clock     clockwork.Clock
	cron      *cron.Cron

	mu sync.Mutex
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg Config, c Collector, matches MatchSource, opt RunnerFactory, clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Scheduler{
		cfg:       cfg,
		collector: c,
		matches:   matches,
		optimizer: opt,
		clock:     clock,
		cron:      cron.New(cron.WithLocation(cfg.Location)),
	}
}

// Start registers the jobs and starts the cron scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if s.cfg.CollectCron != "" {
		if _, err := s.cron.AddFunc(s.cfg.CollectCron, func() {
			if err := s.RunCollect(ctx); err != nil {
				log.Error().Err(err).Msg("Nightly collection failed")
			}
		}); err != nil {
			return fmt.Errorf("failed to schedule collection: %w", err)
		}
		log.Info().Str("schedule", s.cfg.CollectCron).Msg("Nightly collection scheduled")
	}

	if s.cfg.OptimizeCron != "" {
		if _, err := s.cron.AddFunc(s.cfg.OptimizeCron, func() {
			if err := s.RunOptimize(ctx); err != nil {
				log.Error().Err(err).Msg("Nightly optimization failed")
			}
		}); err != nil {
			return fmt.Errorf("failed to schedule optimization: %w", err)
		}
		log.Info().Str("schedule", s.cfg.OptimizeCron).Msg("Nightly optimization scheduled")
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	log.Info().Msg("Scheduler stopped")
}

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// PreviousDay returns yesterday's date in the scheduler's calendar
func (s *Scheduler) PreviousDay() string {
	return s.clock.Now().In(s.cfg.Location).AddDate(0, 0, -1).Format("2006-01-02")
}

// RunCollect collects the previous day's matches
func (s *Scheduler) RunCollect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	date := s.PreviousDay()
	log.Info().Str("date", date).Msg("Running nightly collection...")

	res, err := s.collector.Collect(ctx, date)
	if err != nil {
		return fmt.Errorf("collect %s: %w", date, err)
	}

	log.Info().
		Str("date", date).
		Int("collected", res.Collected).
		Int("listed", res.Listed).
		Bool("from_store", res.FromStore).
		Msg("Nightly collection complete")
	return nil
}

// RunOptimize runs one optimizer session over every stored match
func (s *Scheduler) RunOptimize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Info().Msg("Running nightly optimization...")

	matches, stats, err := s.matches.LoadAll()
	if err != nil {
		return fmt.Errorf("load matches: %w", err)
	}
	if len(matches) == 0 {
		log.Warn().Int("corrupt", stats.Corrupt).Msg("No stored matches, skipping optimization")
		return nil
	}

	runner, err := s.optimizer()
	if err != nil {
		return fmt.Errorf("create optimizer: %w", err)
	}
	summary, err := runner.Run(ctx, matches)
	if err != nil {
		return fmt.Errorf("optimize: %w", err)
	}

	log.Info().
		Str("session", summary.Session).
		Int("iterations", summary.Iterations).
		Int("artifacts", len(summary.Artifacts)).
		Msg("Nightly optimization complete")
	return nil
}
