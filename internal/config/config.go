package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL    string
	HTTPListenAddr string
	LogLevel       string
	ServiceName    string

	// BackupsDir is where finished archives and fetch temp files live.
	BackupsDir string

	// Tick cadences for the two background loops.
	BackupTickInterval time.Duration
	UptimeTickInterval time.Duration

	// Archive build queue sizing.
	BackupWorkers       int
	BackupQueueCapacity int

	// Uptime probe fan-out bound and per-probe timeout.
	UptimeMaxConcurrent int
	UptimeProbeTimeout  time.Duration

	// ShutdownGrace bounds how long in-flight work may finish on shutdown.
	ShutdownGrace time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		HTTPListenAddr:      getEnv("HTTP_LISTEN_ADDR", ":8090"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		ServiceName:         getEnv("SERVICE_NAME", "wpmanager-api"),
		BackupsDir:          getEnv("BACKUPS_DIR", "storage/backups"),
		BackupTickInterval:  getEnvDuration("BACKUP_TICK_INTERVAL", time.Minute),
		UptimeTickInterval:  getEnvDuration("UPTIME_TICK_INTERVAL", 10*time.Second),
		BackupWorkers:       getEnvInt("BACKUP_WORKERS", 2),
		BackupQueueCapacity: getEnvInt("BACKUP_QUEUE_CAPACITY", 64),
		UptimeMaxConcurrent: getEnvInt("UPTIME_MAX_CONCURRENT", 16),
		UptimeProbeTimeout:  getEnvDuration("UPTIME_PROBE_TIMEOUT", 15*time.Second),
		ShutdownGrace:       getEnvDuration("SHUTDOWN_GRACE", 30*time.Second),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.BackupWorkers < 1 {
		return fmt.Errorf("BACKUP_WORKERS must be at least 1")
	}
	if c.UptimeMaxConcurrent < 1 {
		return fmt.Errorf("UPTIME_MAX_CONCURRENT must be at least 1")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
