// Command optimize runs one optimizer session over every stored match and
// prints the best algorithm found.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/SpaceTransformer/xgoals-framework/internal/app"
	"github.com/SpaceTransformer/xgoals-framework/internal/artifact"
	"github.com/SpaceTransformer/xgoals-framework/internal/config"
	"github.com/SpaceTransformer/xgoals-framework/internal/logger"

	"github.com/rs/zerolog/log"
)

func main() {
	iterations := flag.Int("iterations", 0, "override OPTIMIZER_ITERATIONS")
	strategy := flag.String("strategy", "", "override OPTIMIZER_STRATEGY (cycle or grid)")
	flag.Parse()

	cfg := config.MustLoad()
	logger.Setup(cfg.AppEnv, cfg.LogLevel)
	if *iterations > 0 {
		cfg.OptimizerIterations = *iterations
	}
	if *strategy != "" {
		cfg.OptimizerStrategy = *strategy
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize components")
	}
	defer a.Close()

	matches, stats, err := a.Store.LoadAll()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load stored matches")
	}
	log.Info().Int("loaded", stats.Loaded).Int("corrupt", stats.Corrupt).Msg("Stored matches loaded")

	opt, err := a.NewOptimizer()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create optimizer")
	}

	summary, err := opt.Run(ctx, matches)
	if err != nil {
		log.Fatal().Err(err).Msg("Optimization failed")
	}

	log.Info().
		Str("session", summary.Session).
		Int("iterations", summary.Iterations).
		Bool("early_stop", summary.EarlyStop).
		Dur("duration", summary.Duration).
		Strs("artifacts", summary.Artifacts).
		Msg("Optimization complete")

	if a.DB != nil {
		runs, err := a.DB.Evaluations.ListBySession(ctx, summary.Session)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to list stored evaluation runs")
		}
		for _, run := range runs {
			fmt.Printf("iteration %d  %-18s avg error %.3f  accuracy %.1f%%  scored %d\n",
				run.Iteration, run.Formula, run.AvgError, run.Accuracy, run.Scored)
		}
	}

	rec, err := a.Artifacts.Latest()
	if errors.Is(err, artifact.ErrNoRecord) {
		fmt.Println("No algorithm record saved yet")
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load latest algorithm")
	}
	text, err := artifact.Render(rec)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to render algorithm")
	}
	fmt.Print(text)
}
