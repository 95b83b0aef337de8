package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edvin/wpmanager/internal/agentclient"
	"github.com/edvin/wpmanager/internal/api"
	"github.com/edvin/wpmanager/internal/archive"
	"github.com/edvin/wpmanager/internal/config"
	"github.com/edvin/wpmanager/internal/core"
	"github.com/edvin/wpmanager/internal/cron"
	"github.com/edvin/wpmanager/internal/db"
	"github.com/edvin/wpmanager/internal/logging"
	"github.com/edvin/wpmanager/internal/metrics"
	"github.com/edvin/wpmanager/internal/uptime"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "migrations/core", "Migration files directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag {
		logger.Info().Str("dir", *migrateDirFlag).Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL, *migrateDirFlag); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	if err := os.MkdirAll(cfg.BackupsDir, 0o750); err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.BackupsDir).Msg("failed to create backups directory")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.RegisterPgxPoolMetrics(pool)

	queue := archive.NewQueue(cfg.BackupWorkers, cfg.BackupQueueCapacity, logger)
	services := core.NewServices(pool, queue, cfg.BackupsDir, logger)

	agent := agentclient.NewClient(logger)
	builder := archive.NewBuilder(services.Backup, agent, cfg.BackupsDir, logger)
	queue.Start(builder)

	if n, err := services.Backup.FailInterrupted(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to reconcile interrupted backups")
	} else if n > 0 {
		logger.Warn().Int("count", n).Msg("marked interrupted backups as failed")
	}

	prober := uptime.NewProber(services.Uptime, cfg.UptimeProbeTimeout, int64(cfg.UptimeMaxConcurrent), logger)

	sched := cron.NewScheduler(logger)
	jobs := []cron.Job{
		&cron.BackupTickJob{Engine: services.Backup, Every: cfg.BackupTickInterval, Logger: logger},
		&cron.UptimeTickJob{Prober: prober, Every: cfg.UptimeTickInterval},
	}
	for _, j := range jobs {
		if err := sched.RegisterJob(j); err != nil {
			logger.Fatal().Err(err).Msg("failed to register cron job")
		}
	}
	if err := sched.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start scheduler")
	}

	srv := api.NewServer(logger, pool, services, prober, cfg)

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Minute, // archive downloads can be large
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer shutdownCancel()

	httpServer.Shutdown(shutdownCtx)
	sched.Stop(shutdownCtx)
	queue.Close(cfg.ShutdownGrace)
}
