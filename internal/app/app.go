// Package app wires the configured components shared by every command.
package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/SpaceTransformer/xgoals-framework/internal/artifact"
	"github.com/SpaceTransformer/xgoals-framework/internal/cache"
	"github.com/SpaceTransformer/xgoals-framework/internal/client"
	"github.com/SpaceTransformer/xgoals-framework/internal/collector"
	"github.com/SpaceTransformer/xgoals-framework/internal/config"
	"github.com/SpaceTransformer/xgoals-framework/internal/models"
	"github.com/SpaceTransformer/xgoals-framework/internal/optimizer"
	"github.com/SpaceTransformer/xgoals-framework/internal/progress"
	"github.com/SpaceTransformer/xgoals-framework/internal/repository"
	"github.com/SpaceTransformer/xgoals-framework/internal/store"
	"github.com/SpaceTransformer/xgoals-framework/internal/weather"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// App holds the long-lived components
type App struct {
	Config    *config.Config
	Clock     clockwork.Clock
	Cache     cache.Cache
	Football  *client.Client
	Weather   *weather.Client
	Store     *store.MatchStore
	Artifacts *artifact.Store
	Collector *collector.Collector
	DB        *repository.Database // nil when DATABASE_ENABLED is false
}

// Build creates every component. Redis is optional: a failed connection
// falls back to the in-memory cache. A configured database must connect.
func Build(ctx context.Context, cfg *config.Config, clock clockwork.Clock) (*App, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	a := &App{Config: cfg, Clock: clock}

	a.Cache = cache.NewMemoryCache()
	if cfg.RedisEnabled {
		redisCache, err := cache.NewRedisCache(ctx, cache.Config{
			Host:     cfg.RedisHost,
			Port:     strconv.Itoa(cfg.RedisPort),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to Redis - continuing with in-memory cache")
		} else {
			a.Cache = redisCache
			log.Info().Str("addr", cfg.RedisAddr()).Msg("Redis cache connected")
		}
	}

	leagues := models.DefaultLeagueCatalog()
	if cfg.LeaguesFile != "" {
		custom, err := models.LoadLeagueCatalog(cfg.LeaguesFile)
		if err != nil {
			a.Close()
			return nil, err
		}
		leagues = custom
	}
	log.Info().Int("leagues", leagues.Len()).Msg("Monitored leagues loaded")

	a.Football = client.NewClient(client.Options{
		BaseURL:      cfg.FootballBaseURL,
		APIKey:       cfg.RapidAPIKey,
		Host:         cfg.RapidAPIHost,
		Timeout:      cfg.FootballTimeout,
		Season:       cfg.Season,
		Timezone:     cfg.Timezone,
		CallInterval: cfg.CallInterval,
		MaxRetries:   cfg.MaxRetries,
		RetryDelay:   cfg.RetryDelay,
		Quota:        client.NewDailyQuota(cfg.DailyCallLimit, clock),
		Cache:        a.Cache,
		Leagues:      leagues,
	})

	a.Weather = weather.NewClient(weather.Options{
		GeocodingURL: cfg.GeocodingBaseURL,
		ArchiveURL:   cfg.ArchiveBaseURL,
		Timezone:     cfg.WeatherTimezone,
		Timeout:      cfg.WeatherTimeout,
	})

	var err error
	if a.Store, err = store.NewMatchStore(cfg.MatchDataDir); err != nil {
		a.Close()
		return nil, err
	}
	if a.Artifacts, err = artifact.NewStore(cfg.AlgorithmDir, clock); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.DatabaseEnabled {
		db, err := repository.NewDatabase(ctx, repository.Config{
			Host:     cfg.DatabaseHost,
			Port:     strconv.Itoa(cfg.DatabasePort),
			User:     cfg.DatabaseUser,
			Password: cfg.DatabasePassword,
			Database: cfg.DatabaseName,
			SSLMode:  cfg.DatabaseSSLMode,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.DB = db
		log.Info().Msg("Database connection established")
	}

	// A nil *MatchRepository must not reach the collector as a non-nil Sink
	var sink collector.Sink
	if a.DB != nil {
		sink = a.DB.Matches
	}
	a.Collector = collector.New(a.Football, a.Weather, a.Store, sink)

	return a, nil
}

// NewOptimizer creates an optimizer with a fresh progress session
func (a *App) NewOptimizer() (*optimizer.Optimizer, error) {
	strategy, err := optimizer.NewStrategy(a.Config.OptimizerStrategy)
	if err != nil {
		return nil, err
	}
	tracker, err := progress.NewTracker(a.Config.ProgressDir, a.Clock)
	if err != nil {
		return nil, err
	}

	var sink optimizer.Sink
	if a.DB != nil {
		sink = a.DB.Evaluations
	}

	return optimizer.New(optimizer.Config{
		Iterations:   a.Config.OptimizerIterations,
		TargetError:  a.Config.OptimizerTargetError,
		Strategy:     strategy,
		ProgressRoot: a.Config.ProgressDir,
		Tracker:      tracker,
		Artifacts:    a.Artifacts,
		Sink:         sink,
	}), nil
}

// Location returns the calendar the nightly jobs use, falling back to UTC
func (a *App) Location() *time.Location {
	loc, err := time.LoadLocation(a.Config.Timezone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", a.Config.Timezone).Msg("Unknown timezone, using UTC")
		return time.UTC
	}
	return loc
}

// Close releases the cache and database
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close cache")
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
