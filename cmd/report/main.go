// Command report collects a date's matches and writes the xGoals ranking as CSV
// using the latest algorithm record, or the built-in model when none exists.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/SpaceTransformer/xgoals-framework/internal/app"
	"github.com/SpaceTransformer/xgoals-framework/internal/artifact"
	"github.com/SpaceTransformer/xgoals-framework/internal/config"
	"github.com/SpaceTransformer/xgoals-framework/internal/logger"
	"github.com/SpaceTransformer/xgoals-framework/internal/report"

	"github.com/rs/zerolog/log"
)

func main() {
	dateFlag := flag.String("date", "today", "date to report: today, tomorrow, DD/MM or YYYY-MM-DD")
	flag.Parse()

	cfg := config.MustLoad()
	logger.Setup(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	date, err := report.ParseDate(*dateFlag, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid date")
	}

	a, err := app.Build(ctx, cfg, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize components")
	}
	defer a.Close()

	res, err := a.Collector.Collect(ctx, date)
	if err != nil {
		// Partial collections are still reported
		log.Warn().Err(err).Int("collected", len(res.Records)).Msg("Collection incomplete")
	}
	if len(res.Records) == 0 {
		log.Info().Str("date", date).Msg("No matches to report")
		return
	}

	model := report.DefaultModel()
	rec, err := a.Artifacts.Latest()
	switch {
	case errors.Is(err, artifact.ErrNoRecord):
		log.Info().Msg("No algorithm record, using the default model")
	case err != nil:
		log.Warn().Err(err).Msg("Failed to load latest algorithm, using the default model")
	default:
		if m, err := report.ModelFromRecord(rec); err != nil {
			log.Warn().Err(err).Msg("Unusable algorithm record, using the default model")
		} else {
			model = m
		}
	}

	rows, skipped := report.Analyze(res.Records, model)
	log.Info().
		Str("model", model.String()).
		Int("rows", len(rows)).
		Int("skipped", skipped).
		Msg("Matches analyzed")

	path := filepath.Join(cfg.ReportDir, report.FileName(date))
	if err := writeReport(path, rows); err != nil {
		log.Fatal().Err(err).Msg("Failed to write report")
	}
	log.Info().Str("file", path).Msg("Report saved")

	for _, r := range rows {
		fmt.Printf("%-20s %-25s %-25s %5.2f  %s\n", r.Datetime, r.HomeTeam, r.AwayTeam, r.XGoals, r.League)
	}
}

func writeReport(path string, rows []report.Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
