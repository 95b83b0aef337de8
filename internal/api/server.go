package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/wpmanager/internal/api/handler"
	mw "github.com/edvin/wpmanager/internal/api/middleware"
	"github.com/edvin/wpmanager/internal/config"
	"github.com/edvin/wpmanager/internal/core"
)

type Server struct {
	router   chi.Router
	logger   zerolog.Logger
	services *core.Services
	pool     *pgxpool.Pool
	prober   handler.CheckProber
	cfg      *config.Config
}

func NewServer(logger zerolog.Logger, pool *pgxpool.Pool, services *core.Services, prober handler.CheckProber, cfg *config.Config) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		logger:   logger,
		services: services,
		pool:     pool,
		prober:   prober,
		cfg:      cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Backups
		backup := handler.NewBackup(s.services.Backup, s.cfg.BackupsDir)
		r.Get("/backups", backup.List)
		r.Post("/backups", backup.Create)
		r.Get("/backups/download/{filename}", backup.Download)
		r.Get("/backups/{id}", backup.Get)
		r.Delete("/backups/{id}", backup.Delete)
		r.Get("/sites/{siteID}/backups", backup.ListBySite)

		// Backup schedules
		schedule := handler.NewBackupSchedule(s.services.Schedule, s.services.Backup)
		r.Get("/backup-schedules", schedule.List)
		r.Post("/backup-schedules", schedule.Create)
		r.Get("/backup-schedules/{id}", schedule.Get)
		r.Put("/backup-schedules/{id}", schedule.Update)
		r.Delete("/backup-schedules/{id}", schedule.Delete)
		r.Post("/backup-schedules/{id}/run", schedule.Run)
		r.Get("/sites/{siteID}/backup-schedules", schedule.ListBySite)

		// Uptime checks
		uptime := handler.NewUptime(s.services.Uptime, s.prober)
		r.Post("/uptime-checks", uptime.Create)
		r.Get("/uptime-checks/{id}", uptime.Get)
		r.Patch("/uptime-checks/{id}", uptime.Update)
		r.Delete("/uptime-checks/{id}", uptime.Delete)
		r.Get("/uptime-checks/{id}/history", uptime.History)
		r.Post("/uptime-checks/{id}/check", uptime.Check)
		r.Get("/sites/{siteID}/uptime-checks", uptime.ListBySite)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.pool.Ping(ctx); err != nil {
		checks["db"] = err.Error()
		healthy = false
	} else {
		checks["db"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}
