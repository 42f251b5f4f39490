// Package api exposes the simulation control plane over HTTP.
// GET endpoints are public (read-only observation of runs).
// POST endpoints require a bearer token and are rate limited: they
// launch real runs, which can mean thousands of model calls.
package api

import (
	"crypto/subtle"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/talgya/commodity-market/internal/config"
	"github.com/talgya/commodity-market/internal/persistence"
)

// Server serves run history and the launch endpoint.
type Server struct {
	DB       *persistence.DB
	Jobs     *JobManager
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = launches disabled.
}

// Router assembles the HTTP routes.
func (s *Server) Router() http.Handler {
	launchLimiter := NewRateLimiter(10, time.Hour)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Route("/simulations", func(r chi.Router) {
			r.Get("/", s.handleListSimulations)
			r.Get("/{id}", s.handleSimulationDetail)
			r.Get("/{id}/trades", s.handleSimulationTrades)

			r.Group(func(r chi.Router) {
				r.Use(s.adminOnly)
				r.Use(launchLimiter.Middleware)
				r.Post("/", s.handleLaunch)
			})
		})
	})
	return r
}

// Start serves the API, blocking until the listener fails.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")
	return http.ListenAndServe(addr, s.Router())
}

// adminOnly guards launch endpoints behind the bearer token.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "launches disabled: no admin key configured", http.StatusForbidden)
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.AdminKey)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"service": "commodity-market",
		"time":    time.Now().UTC().Format(time.RFC3339),
	}
	if s.Jobs != nil {
		jobs := s.Jobs.List()
		active := 0
		for _, j := range jobs {
			if j.Status == JobQueued || j.Status == JobRunning {
				active++
			}
		}
		status["jobs_tracked"] = len(jobs)
		status["jobs_active"] = active
	}
	writeJSON(w, http.StatusOK, status)
}

// handleLaunch starts a run from the posted configuration. The body is
// a partial config; omitted fields keep their defaults.
func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	cfg := config.Default()
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, fmt.Sprintf("invalid config body: %v", err), http.StatusBadRequest)
		return
	}

	job, err := s.Jobs.Launch(cfg)
	if err != nil {
		http.Error(w, fmt.Sprintf("launch rejected: %v", err), http.StatusBadRequest)
		return
	}

	slog.Info("simulation launched", "job", job.ID, "name", cfg.Name,
		"days", cfg.NumDays, "seed", cfg.Seed)
	writeJSON(w, http.StatusAccepted, job)
}

// handleListSimulations merges in-memory jobs with persisted run rows,
// so restarts do not hide historical runs.
func (s *Server) handleListSimulations(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{}
	if s.Jobs != nil {
		out["jobs"] = s.Jobs.List()
	}
	if s.DB != nil {
		runs, err := s.DB.RecentRuns(50)
		if err != nil {
			http.Error(w, "query runs failed", http.StatusInternalServerError)
			return
		}
		out["runs"] = runs
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSimulationDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if s.Jobs != nil {
		if job, ok := s.Jobs.Get(id); ok {
			writeJSON(w, http.StatusOK, job)
			return
		}
	}
	if s.DB != nil {
		run, err := s.DB.GetRun(id)
		if err == nil {
			summary, sumErr := run.Summary()
			if sumErr != nil {
				slog.Warn("stored summary unreadable", "run", id, "err", sumErr)
			}
			writeJSON(w, http.StatusOK, map[string]any{"run": run, "summary": summary})
			return
		}
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("run lookup failed", "run", id, "err", err)
		}
	}
	http.Error(w, "simulation not found", http.StatusNotFound)
}

func (s *Server) handleSimulationTrades(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "no storage configured", http.StatusNotFound)
		return
	}
	id := chi.URLParam(r, "id")
	trades, err := s.DB.TradesForRun(id)
	if err != nil {
		http.Error(w, "query trades failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run_id": id, "trades": trades})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "err", err)
	}
}
