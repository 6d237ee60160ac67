package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/SpaceTransformer/xgoals-framework/internal/artifact"
	"github.com/SpaceTransformer/xgoals-framework/internal/client"
	"github.com/SpaceTransformer/xgoals-framework/internal/models"
	"github.com/SpaceTransformer/xgoals-framework/internal/repository"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Database reports whether Postgres is reachable and how its pool is used
type Database interface {
	Health(ctx context.Context) error
	Stats() repository.PoolStats
}

// MatchReader reads the mirrored match bundles
type MatchReader interface {
	GetByFixtureID(ctx context.Context, fixtureID int) (*models.MatchRecord, error)
	ListByDate(ctx context.Context, date string) ([]models.MatchRecord, error)
	Count(ctx context.Context) (int, error)
}

// PredictionReader reads per-match predictions
type PredictionReader interface {
	ListByFixture(ctx context.Context, fixtureID int) ([]*repository.Prediction, error)
}

// EvaluationReader reads evaluation runs
type EvaluationReader interface {
	Best(ctx context.Context) (*repository.EvaluationRun, error)
}

// Options configures the status server. The database readers are nil when
// Postgres is disabled; the match routes are only registered with Matches set.
type Options struct {
	Port        int
	Quota       *client.DailyQuota
	Artifacts   *artifact.Store
	DB          Database
	Matches     MatchReader
	Predictions PredictionReader
	Evaluations EvaluationReader
}

// Server exposes health, metrics, quota and current algorithm endpoints
type Server struct {
	httpServer  *http.Server
	router      *mux.Router
	quota       *client.DailyQuota
	artifacts   *artifact.Store
	db          Database
	matches     MatchReader
	predictions PredictionReader
	evaluations EvaluationReader
}

// QuotaStatus is the /api/quota response
type QuotaStatus struct {
	Day       string `json:"day"`
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
}

// HealthStatus is the /health response
type HealthStatus struct {
	Status        string                `json:"status"`
	Database      string                `json:"database,omitempty"`
	Pool          *repository.PoolStats `json:"pool,omitempty"`
	StoredMatches *int                  `json:"stored_matches,omitempty"`
}

// FixtureDetail is the /api/fixtures/{id} response
type FixtureDetail struct {
	Match       *models.MatchRecord      `json:"match"`
	Predictions []*repository.Prediction `json:"predictions"`
}

// NewServer creates the status server
func NewServer(opts Options) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		quota:       opts.Quota,
		artifacts:   opts.Artifacts,
		db:          opts.DB,
		matches:     opts.Matches,
		predictions: opts.Predictions,
		evaluations: opts.Evaluations,
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/api/quota", s.handleQuota).Methods(http.MethodGet)
	s.router.HandleFunc("/api/best", s.handleBest).Methods(http.MethodGet)
	if s.matches != nil {
		s.router.HandleFunc("/api/matches/{date}", s.handleMatchesByDate).Methods(http.MethodGet)
		s.router.HandleFunc("/api/fixtures/{id:[0-9]+}", s.handleFixture).Methods(http.MethodGet)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start listens until Shutdown. Returns nil on graceful shutdown.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("Starting status server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("status server failed: %w", err)
	}
	return nil
}

// Shutdown drains connections within the context deadline
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the router
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{Status: "healthy"}
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.db.Health(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, HealthStatus{Status: "unhealthy", Database: err.Error()})
			return
		}
		pool := s.db.Stats()
		status.Database = "ok"
		status.Pool = &pool

		if s.matches != nil {
			if n, err := s.matches.Count(ctx); err != nil {
				log.Warn().Err(err).Msg("Failed to count stored matches")
			} else {
				status.StoredMatches = &n
			}
		}
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleQuota(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, QuotaStatus{
		Day:       s.quota.Day(),
		Used:      s.quota.Used(),
		Limit:     s.quota.Limit(),
		Remaining: s.quota.Remaining(),
	})
}

// handleBest serves the newest artifact, falling back to the best stored
// evaluation run when no artifact has been written yet
func (s *Server) handleBest(w http.ResponseWriter, r *http.Request) {
	rec, err := s.artifacts.Latest()
	if errors.Is(err, artifact.ErrNoRecord) {
		s.handleBestEvaluation(w, r, err)
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to load latest algorithm")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load algorithm"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleBestEvaluation(w http.ResponseWriter, r *http.Request, notFound error) {
	if s.evaluations == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": notFound.Error()})
		return
	}
	run, err := s.evaluations.Best(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load best evaluation run")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load evaluation"})
		return
	}
	if run == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": notFound.Error()})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleMatchesByDate(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
		return
	}

	records, err := s.matches.ListByDate(r.Context(), date)
	if err != nil {
		log.Error().Err(err).Str("date", date).Msg("Failed to list matches")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list matches"})
		return
	}
	if records == nil {
		records = []models.MatchRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleFixture(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid fixture id"})
		return
	}

	rec, err := s.matches.GetByFixtureID(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Int("fixture_id", id).Msg("Failed to load match")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load match"})
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "fixture not stored"})
		return
	}

	detail := FixtureDetail{Match: rec, Predictions: []*repository.Prediction{}}
	if s.predictions != nil {
		preds, err := s.predictions.ListByFixture(r.Context(), id)
		if err != nil {
			log.Error().Err(err).Int("fixture_id", id).Msg("Failed to load predictions")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load predictions"})
			return
		}
		if preds != nil {
			detail.Predictions = preds
		}
	}
	writeJSON(w, http.StatusOK, detail)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}
