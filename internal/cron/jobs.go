package cron

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// BackupEngine is the slice of the backup service the tick job drives.
type BackupEngine interface {
	ProcessDueSchedules(ctx context.Context, now time.Time) error
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// BackupTickJob runs due backup schedules, then reaps expired archives.
type BackupTickJob struct {
	Engine BackupEngine
	Every  time.Duration
	Logger zerolog.Logger
}

func (j *BackupTickJob) Name() string     { return "backup-tick" }
func (j *BackupTickJob) Schedule() string { return "@every " + j.Every.String() }

func (j *BackupTickJob) Run(ctx context.Context) error {
	now := time.Now()
	if err := j.Engine.ProcessDueSchedules(ctx, now); err != nil {
		j.Logger.Error().Err(err).Msg("due schedule scan failed")
	}
	reaped, err := j.Engine.SweepExpired(ctx, now)
	if err != nil {
		return err
	}
	if reaped > 0 {
		j.Logger.Info().Int("reaped", reaped).Msg("expired backups removed")
	}
	return nil
}

type poller interface {
	ProbeDue(ctx context.Context, now time.Time) error
}

// UptimeTickJob probes every uptime check whose interval has elapsed.
type UptimeTickJob struct {
	Prober poller
	Every  time.Duration
}

func (j *UptimeTickJob) Name() string     { return "uptime-tick" }
func (j *UptimeTickJob) Schedule() string { return "@every " + j.Every.String() }

func (j *UptimeTickJob) Run(ctx context.Context) error {
	return j.Prober.ProbeDue(ctx, time.Now())
}
