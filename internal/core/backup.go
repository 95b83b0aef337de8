package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/wpmanager/internal/model"
	"github.com/edvin/wpmanager/internal/platform"
	"github.com/edvin/wpmanager/internal/recurrence"
)

// Dispatcher hands a backup job off for asynchronous archive assembly.
// Submission must never silently drop a job: an implementation that cannot
// accept it records the failure on the job row itself.
type Dispatcher interface {
	Submit(jobID string)
}

const backupJobColumns = `id, site_id, type, status, error_message, size_bytes, retention_days, is_manual, download_url, created_at, completed_at`

// BackupService creates backup jobs, runs due schedules, sweeps expired
// archives, and owns all job row mutations performed by the archive builder.
type BackupService struct {
	db         DB
	dispatcher Dispatcher
	backupsDir string
	logger     zerolog.Logger
}

func NewBackupService(db DB, dispatcher Dispatcher, backupsDir string, logger zerolog.Logger) *BackupService {
	return &BackupService{
		db:         db,
		dispatcher: dispatcher,
		backupsDir: backupsDir,
		logger:     logger.With().Str("component", "backup-service").Logger(),
	}
}

// CreateManual inserts a pending user-requested job and dispatches the
// archive build. It returns the row immediately; callers observe progress
// by polling.
func (s *BackupService) CreateManual(ctx context.Context, siteID, backupType string, retentionDays int) (*model.BackupJob, error) {
	var exists string
	if err := s.db.QueryRow(ctx, `SELECT id FROM sites WHERE id = $1`, siteID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("get site %s: %w", siteID, notFoundOr(err))
	}

	job := &model.BackupJob{
		ID:            platform.NewID(),
		SiteID:        siteID,
		Type:          backupType,
		Status:        model.StatusPending,
		RetentionDays: retentionDays,
		IsManual:      true,
		CreatedAt:     time.Now(),
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO backups (id, site_id, type, status, retention_days, is_manual, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.ID, job.SiteID, job.Type, job.Status, job.RetentionDays, job.IsManual, job.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert backup job: %w", err)
	}

	s.dispatcher.Submit(job.ID)
	return job, nil
}

// RunSchedule creates a job from a schedule's parameters and records
// last_run. The read-schedule, insert-job and update-last-run steps run in
// one transaction so a manual run-now cannot race the due-scan into
// dispatching twice for the same observation of the schedule. next_run is
// deliberately not advanced here; the scheduler loop owns it.
func (s *BackupService) RunSchedule(ctx context.Context, scheduleID string) (*model.BackupJob, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin run schedule: %w", err)
	}
	defer tx.Rollback(ctx)

	var siteID, backupType string
	var retentionDays int
	err = tx.QueryRow(ctx,
		`SELECT site_id, type, retention_days FROM backup_schedules WHERE id = $1 FOR UPDATE`,
		scheduleID,
	).Scan(&siteID, &backupType, &retentionDays)
	if err != nil {
		return nil, fmt.Errorf("get schedule %s: %w", scheduleID, notFoundOr(err))
	}

	now := time.Now()
	job := &model.BackupJob{
		ID:            platform.NewID(),
		SiteID:        siteID,
		Type:          backupType,
		Status:        model.StatusPending,
		RetentionDays: retentionDays,
		IsManual:      false,
		CreatedAt:     now,
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO backups (id, site_id, type, status, retention_days, is_manual, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.ID, job.SiteID, job.Type, job.Status, job.RetentionDays, job.IsManual, job.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert backup job: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE backup_schedules SET last_run = $1, updated_at = $1 WHERE id = $2`,
		now, scheduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("update schedule %s last_run: %w", scheduleID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit run schedule: %w", err)
	}

	s.dispatcher.Submit(job.ID)
	return job, nil
}

// ProcessDueSchedules runs every active schedule whose next_run is at or
// before now, then recomputes and persists next_run from the schedule's own
// parameters. A failure on one schedule is logged and does not block the
// rest of the tick.
func (s *BackupService) ProcessDueSchedules(ctx context.Context, now time.Time) error {
	rows, err := s.db.Query(ctx,
		`SELECT id, frequency, time_of_day, day_of_week, day_of_month
		 FROM backup_schedules
		 WHERE is_active = TRUE AND next_run <= $1`, now)
	if err != nil {
		return fmt.Errorf("scan due schedules: %w", err)
	}
	defer rows.Close()

	type dueSchedule struct {
		id         string
		frequency  string
		timeOfDay  string
		dayOfWeek  *int
		dayOfMonth *int
	}
	var due []dueSchedule
	for rows.Next() {
		var d dueSchedule
		if err := rows.Scan(&d.id, &d.frequency, &d.timeOfDay, &d.dayOfWeek, &d.dayOfMonth); err != nil {
			return fmt.Errorf("scan due schedule: %w", err)
		}
		due = append(due, d)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate due schedules: %w", err)
	}

	for _, d := range due {
		if _, err := s.RunSchedule(ctx, d.id); err != nil {
			s.logger.Error().Err(err).Str("schedule", d.id).Msg("failed to run due schedule")
			continue
		}
		next, err := recurrence.NextRun(d.frequency, d.timeOfDay, d.dayOfWeek, d.dayOfMonth, now)
		if err != nil {
			s.logger.Error().Err(err).Str("schedule", d.id).Msg("failed to compute next run")
			continue
		}
		if _, err := s.db.Exec(ctx,
			`UPDATE backup_schedules SET next_run = $1, updated_at = $2 WHERE id = $3`,
			next, now, d.id,
		); err != nil {
			s.logger.Error().Err(err).Str("schedule", d.id).Msg("failed to persist next run")
		}
	}
	return nil
}

// SweepExpired deletes completed jobs past their retention window, archive
// file first, row second. A missing file does not abort the row deletion
// and one bad row does not stop the sweep. Returns the number of rows
// removed; running it again with nothing newly expired removes nothing.
func (s *BackupService) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id FROM backups
		 WHERE status = $1 AND created_at + make_interval(days => retention_days) < $2`,
		model.StatusCompleted, now)
	if err != nil {
		return 0, fmt.Errorf("scan expired backups: %w", err)
	}
	defer rows.Close()

	var expired []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, fmt.Errorf("scan expired backup: %w", err)
		}
		expired = append(expired, id)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate expired backups: %w", err)
	}

	reaped := 0
	for _, id := range expired {
		if err := s.removeArchiveFile(id); err != nil {
			s.logger.Error().Err(err).Str("backup", id).Msg("failed to delete expired archive file")
		}
		if _, err := s.db.Exec(ctx, `DELETE FROM backups WHERE id = $1`, id); err != nil {
			s.logger.Error().Err(err).Str("backup", id).Msg("failed to delete expired backup row")
			continue
		}
		reaped++
	}
	return reaped, nil
}

func (s *BackupService) GetByID(ctx context.Context, id string) (*model.BackupJob, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+backupJobColumns+` FROM backups WHERE id = $1`, id)
	job, err := scanBackupJob(row)
	if err != nil {
		return nil, fmt.Errorf("get backup %s: %w", id, notFoundOr(err))
	}
	return job, nil
}

// List returns all jobs newest first, with the site URL joined in.
func (s *BackupService) List(ctx context.Context) ([]model.BackupJob, error) {
	rows, err := s.db.Query(ctx,
		`SELECT b.id, b.site_id, b.type, b.status, b.error_message, b.size_bytes, b.retention_days,
		        b.is_manual, b.download_url, b.created_at, b.completed_at, s.url
		 FROM backups b JOIN sites s ON b.site_id = s.id
		 ORDER BY b.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var jobs []model.BackupJob
	for rows.Next() {
		var j model.BackupJob
		if err := rows.Scan(&j.ID, &j.SiteID, &j.Type, &j.Status, &j.ErrorMessage, &j.SizeBytes,
			&j.RetentionDays, &j.IsManual, &j.DownloadURL, &j.CreatedAt, &j.CompletedAt, &j.SiteURL); err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backups: %w", err)
	}
	return jobs, nil
}

func (s *BackupService) ListBySite(ctx context.Context, siteID string) ([]model.BackupJob, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+backupJobColumns+` FROM backups WHERE site_id = $1 ORDER BY created_at DESC`, siteID)
	if err != nil {
		return nil, fmt.Errorf("list backups for site %s: %w", siteID, err)
	}
	defer rows.Close()

	var jobs []model.BackupJob
	for rows.Next() {
		job, err := scanBackupJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backups: %w", err)
	}
	return jobs, nil
}

// Delete removes a job's archive file (tolerating absence) and then its row.
func (s *BackupService) Delete(ctx context.Context, id string) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.removeArchiveFile(id); err != nil {
		s.logger.Error().Err(err).Str("backup", id).Msg("failed to delete archive file")
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM backups WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete backup %s: %w", id, err)
	}
	return nil
}

// removeArchiveFile finds the job's archive by filename prefix and removes
// it. The timestamp component of archive names is not stored, so the
// directory is scanned. A missing file is not an error.
func (s *BackupService) removeArchiveFile(jobID string) error {
	entries, err := os.ReadDir(s.backupsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read backups dir: %w", err)
	}
	prefix := "backup_" + jobID + "_"
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), prefix) && strings.HasSuffix(e.Name(), ".zip") {
			if err := os.Remove(filepath.Join(s.backupsDir, e.Name())); err != nil {
				return fmt.Errorf("remove archive %s: %w", e.Name(), err)
			}
		}
	}
	return nil
}

// scanner abstracts pgx.Row and pgx.Rows for the shared scan helper.
type scanner interface {
	Scan(dest ...any) error
}

func scanBackupJob(row scanner) (*model.BackupJob, error) {
	var j model.BackupJob
	err := row.Scan(&j.ID, &j.SiteID, &j.Type, &j.Status, &j.ErrorMessage, &j.SizeBytes,
		&j.RetentionDays, &j.IsManual, &j.DownloadURL, &j.CreatedAt, &j.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}
