// Command collect fetches, enriches and stores every monitored match for one date.
// Dates already in the store are not fetched again. -from and -to backfill a
// range of dates instead.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SpaceTransformer/xgoals-framework/internal/app"
	"github.com/SpaceTransformer/xgoals-framework/internal/config"
	"github.com/SpaceTransformer/xgoals-framework/internal/logger"
	"github.com/SpaceTransformer/xgoals-framework/internal/report"

	"github.com/rs/zerolog/log"
)

func main() {
	dateFlag := flag.String("date", "yesterday", "date to collect: today, yesterday, tomorrow, DD/MM or YYYY-MM-DD")
	fromFlag := flag.String("from", "", "first date of a backfill range")
	toFlag := flag.String("to", "", "last date of a backfill range")
	flag.Parse()

	cfg := config.MustLoad()
	logger.Setup(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize components")
	}
	defer a.Close()

	if *fromFlag != "" || *toFlag != "" {
		code := backfill(ctx, a, *fromFlag, *toFlag)
		a.Close()
		os.Exit(code)
	}

	date, err := report.ParseDate(*dateFlag, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid date")
	}

	res, err := a.Collector.Collect(ctx, date)
	log.Info().
		Str("date", date).
		Int("listed", res.Listed).
		Int("collected", res.Collected).
		Int("incomplete", res.Incomplete).
		Int("failed", res.Failed).
		Bool("from_store", res.FromStore).
		Int("api_calls_today", a.Football.Quota().Used()).
		Msg("Collection finished")
	if err != nil {
		log.Error().Err(err).Msg("Collection stopped early")
		a.Close()
		os.Exit(1)
	}
}

func backfill(ctx context.Context, a *app.App, fromInput, toInput string) int {
	now := time.Now()
	if toInput == "" {
		toInput = fromInput
	}
	if fromInput == "" {
		fromInput = toInput
	}
	from, err := report.ParseDate(fromInput, now)
	if err != nil {
		log.Error().Err(err).Msg("Invalid backfill start")
		return 2
	}
	to, err := report.ParseDate(toInput, now)
	if err != nil {
		log.Error().Err(err).Msg("Invalid backfill end")
		return 2
	}

	results, err := a.Collector.CollectRange(ctx, from, to)
	collected := 0
	for _, r := range results {
		collected += r.Collected
	}
	log.Info().
		Int("days", len(results)).
		Int("collected", collected).
		Int("api_calls_today", a.Football.Quota().Used()).
		Msg("Backfill finished")
	if err != nil {
		log.Error().Err(err).Msg("Backfill stopped early")
		return 1
	}
	return 0
}
