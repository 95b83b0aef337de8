package core

import (
	"context"
	"fmt"
	"time"

	"github.com/edvin/wpmanager/internal/model"
)

// Job state transitions used by the archive builder. Each update is guarded
// by the current status so transitions stay monotonic:
// pending -> in_progress -> completed | failed.

// JobSite loads a job together with its site's agent URL and API key.
func (s *BackupService) JobSite(ctx context.Context, jobID string) (*model.BackupJob, *model.Site, error) {
	var j model.BackupJob
	var site model.Site
	err := s.db.QueryRow(ctx,
		`SELECT b.id, b.site_id, b.type, b.status, b.retention_days, b.is_manual, b.created_at,
		        s.id, s.url, s.api_key
		 FROM backups b JOIN sites s ON b.site_id = s.id
		 WHERE b.id = $1`, jobID,
	).Scan(&j.ID, &j.SiteID, &j.Type, &j.Status, &j.RetentionDays, &j.IsManual, &j.CreatedAt,
		&site.ID, &site.URL, &site.APIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("get backup job %s: %w", jobID, notFoundOr(err))
	}
	return &j, &site, nil
}

func (s *BackupService) MarkInProgress(ctx context.Context, jobID string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE backups SET status = $1 WHERE id = $2 AND status = $3`,
		model.StatusInProgress, jobID, model.StatusPending)
	if err != nil {
		return fmt.Errorf("mark backup %s in progress: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("backup %s is not pending", jobID)
	}
	return nil
}

func (s *BackupService) MarkCompleted(ctx context.Context, jobID string, sizeBytes int64, downloadURL string, completedAt time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE backups
		 SET status = $1, completed_at = $2, size_bytes = $3, download_url = $4, error_message = NULL
		 WHERE id = $5 AND status = $6`,
		model.StatusCompleted, completedAt, sizeBytes, downloadURL, jobID, model.StatusInProgress)
	if err != nil {
		return fmt.Errorf("mark backup %s completed: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("backup %s is not in progress", jobID)
	}
	return nil
}

// FailInterrupted marks every pending or in-progress job as failed. Called
// once at startup: the queue lives in memory, so any job in flight when the
// process died can never finish.
func (s *BackupService) FailInterrupted(ctx context.Context) (int, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE backups SET status = $1, error_message = $2 WHERE status IN ($3, $4)`,
		model.StatusFailed, "interrupted by service restart", model.StatusPending, model.StatusInProgress)
	if err != nil {
		return 0, fmt.Errorf("fail interrupted backups: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *BackupService) MarkFailed(ctx context.Context, jobID, message string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE backups SET status = $1, error_message = $2 WHERE id = $3 AND status IN ($4, $5)`,
		model.StatusFailed, message, jobID, model.StatusPending, model.StatusInProgress)
	if err != nil {
		return fmt.Errorf("mark backup %s failed: %w", jobID, err)
	}
	return nil
}
