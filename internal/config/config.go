package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// API-Football (RapidAPI)
	RapidAPIKey     string        `envconfig:"RAPIDAPI_KEY" required:"true"`
	RapidAPIHost    string        `envconfig:"RAPIDAPI_HOST" default:"api-football-v1.p.rapidapi.com"`
	FootballBaseURL string        `envconfig:"FOOTBALL_API_BASE_URL" default:"https://api-football-v1.p.rapidapi.com/v3"`
	FootballTimeout time.Duration `envconfig:"FOOTBALL_API_TIMEOUT" default:"30s"`
	Season          int           `envconfig:"FOOTBALL_API_SEASON" default:"2024"`
	Timezone        string        `envconfig:"FOOTBALL_API_TIMEZONE" default:"Europe/Rome"`

	// API budget
	DailyCallLimit  int           `envconfig:"API_DAILY_LIMIT" default:"7500"`
	CallInterval    time.Duration `envconfig:"API_CALL_INTERVAL" default:"2s"`
	MaxRetries      int           `envconfig:"API_MAX_RETRIES" default:"2"`
	RetryDelay      time.Duration `envconfig:"API_RETRY_DELAY" default:"1s"`
	LeaguesFile     string        `envconfig:"LEAGUES_FILE" default:""`
	WeatherTimezone string        `envconfig:"WEATHER_TIMEZONE" default:"Europe/Rome"`

	// Open-Meteo
	GeocodingBaseURL string        `envconfig:"GEOCODING_BASE_URL" default:"https://geocoding-api.open-meteo.com/v1/search"`
	ArchiveBaseURL   string        `envconfig:"WEATHER_ARCHIVE_BASE_URL" default:"https://archive-api.open-meteo.com/v1/archive"`
	WeatherTimeout   time.Duration `envconfig:"WEATHER_TIMEOUT" default:"10s"`

	// Local storage
	MatchDataDir string `envconfig:"MATCH_DATA_DIR" default:"match_data"`
	ProgressDir  string `envconfig:"PROGRESS_DIR" default:"agent_progress"`
	AlgorithmDir string `envconfig:"ALGORITHM_DIR" default:"algorithms"`
	ReportDir    string `envconfig:"REPORT_DIR" default:"."`

	// Optimizer
	OptimizerIterations  int     `envconfig:"OPTIMIZER_ITERATIONS" default:"5"`
	OptimizerTargetError float64 `envconfig:"OPTIMIZER_TARGET_ERROR" default:"0.5"`
	OptimizerStrategy    string  `envconfig:"OPTIMIZER_STRATEGY" default:"cycle"`

	// Database
	DatabaseEnabled  bool   `envconfig:"DATABASE_ENABLED" default:"false"`
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"xgoals"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"xgoals_user"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" default:""`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Redis
	RedisEnabled  bool          `envconfig:"REDIS_ENABLED" default:"false"`
	RedisHost     string        `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int           `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"0s"` // 0 keeps entries forever

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Scheduler
	EnableScheduler bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	CollectCron     string `envconfig:"COLLECT_CRON" default:"0 3 * * *"`
	OptimizeCron    string `envconfig:"OPTIMIZE_CRON" default:"30 3 * * *"`

	// Monitoring
	MetricsPort int `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.RapidAPIKey == "" {
		return fmt.Errorf("RAPIDAPI_KEY is required")
	}

	if c.DailyCallLimit <= 0 {
		return fmt.Errorf("API_DAILY_LIMIT must be positive, got %d", c.DailyCallLimit)
	}

	if c.CallInterval < 0 {
		return fmt.Errorf("API_CALL_INTERVAL must not be negative")
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("API_MAX_RETRIES must not be negative")
	}

	if c.OptimizerIterations <= 0 {
		return fmt.Errorf("OPTIMIZER_ITERATIONS must be positive, got %d", c.OptimizerIterations)
	}

	switch c.OptimizerStrategy {
	case "cycle", "grid":
	default:
		return fmt.Errorf("OPTIMIZER_STRATEGY must be cycle or grid, got %q", c.OptimizerStrategy)
	}

	if c.DatabaseEnabled && c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required when DATABASE_ENABLED is set")
	}

	return nil
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or exits on error
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
