package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/wpmanager/internal/model"
	"github.com/edvin/wpmanager/internal/platform"
)

// Store is the slice of the backup service the builder needs: load a job
// with its site credentials and move the job through its status lifecycle.
type Store interface {
	JobSite(ctx context.Context, jobID string) (*model.BackupJob, *model.Site, error)
	MarkInProgress(ctx context.Context, jobID string) error
	MarkCompleted(ctx context.Context, jobID string, sizeBytes int64, downloadURL string, completedAt time.Time) error
	MarkFailed(ctx context.Context, jobID, message string) error
}

// Agent fetches exports from a site's remote agent plugin.
type Agent interface {
	FetchDatabase(ctx context.Context, siteURL, apiKey, destPath string) error
	FetchFiles(ctx context.Context, siteURL, apiKey, destPath string) error
}

const downloadURLPrefix = "/api/v1/backups/download/"

// Builder assembles backup archives. For each job it pulls the requested
// exports from the site's agent into temp files, bundles them into a single
// zip under backupsDir, and records the outcome on the job row.
type Builder struct {
	store      Store
	agent      Agent
	backupsDir string
	logger     zerolog.Logger
}

func NewBuilder(store Store, agent Agent, backupsDir string, logger zerolog.Logger) *Builder {
	return &Builder{
		store:      store,
		agent:      agent,
		backupsDir: backupsDir,
		logger:     logger.With().Str("component", "archive-builder").Logger(),
	}
}

// Build runs one job end to end. The job must be pending. Any failure after
// that point marks the job failed and removes the partial archive; temp
// files are always cleaned up.
func (b *Builder) Build(ctx context.Context, jobID string) error {
	job, site, err := b.store.JobSite(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load backup job: %w", err)
	}

	if err := b.store.MarkInProgress(ctx, jobID); err != nil {
		return err
	}

	started := time.Now()
	archivePath, size, err := b.assemble(ctx, job, site)
	if err != nil {
		backupsFailed.Inc()
		b.logger.Error().Err(err).Str("backup", jobID).Str("site", site.ID).Msg("backup failed")
		if archivePath != "" {
			os.Remove(archivePath)
		}
		if markErr := b.store.MarkFailed(ctx, jobID, err.Error()); markErr != nil {
			b.logger.Error().Err(markErr).Str("backup", jobID).Msg("failed to record backup failure")
		}
		return err
	}

	downloadURL := downloadURLPrefix + filepath.Base(archivePath)
	if err := b.store.MarkCompleted(ctx, jobID, size, downloadURL, time.Now()); err != nil {
		backupsFailed.Inc()
		os.Remove(archivePath)
		return err
	}

	backupsCompleted.Inc()
	backupDuration.Observe(time.Since(started).Seconds())
	b.logger.Info().
		Str("backup", jobID).
		Str("site", site.ID).
		Str("type", job.Type).
		Int64("size_bytes", size).
		Dur("elapsed", time.Since(started)).
		Msg("backup completed")
	return nil
}

// Abort marks a job failed without running it. The queue uses it when a
// submission cannot be accepted.
func (b *Builder) Abort(ctx context.Context, jobID, reason string) {
	backupsFailed.Inc()
	if err := b.store.MarkFailed(ctx, jobID, reason); err != nil {
		b.logger.Error().Err(err).Str("backup", jobID).Msg("failed to abort backup job")
	}
}

// assemble fetches the exports the job's type calls for and zips them.
// Returns the archive path even on error so the caller can remove partials.
func (b *Builder) assemble(ctx context.Context, job *model.BackupJob, site *model.Site) (string, int64, error) {
	millis := time.Now().UnixMilli()

	var entries []archiveEntry
	if job.Type == model.BackupTypeFull || job.Type == model.BackupTypeDatabase {
		tmp := filepath.Join(b.backupsDir, fmt.Sprintf("temp_db_%s_%d.sql", job.ID, millis))
		defer os.Remove(tmp)
		if err := b.agent.FetchDatabase(ctx, site.URL, site.APIKey, tmp); err != nil {
			return "", 0, fmt.Errorf("fetch database export: %w", err)
		}
		entries = append(entries, archiveEntry{name: "database.sql", path: tmp})
	}
	if job.Type == model.BackupTypeFull || job.Type == model.BackupTypeFiles {
		tmp := filepath.Join(b.backupsDir, fmt.Sprintf("temp_files_%s_%d.zip", job.ID, millis))
		defer os.Remove(tmp)
		if err := b.agent.FetchFiles(ctx, site.URL, site.APIKey, tmp); err != nil {
			return "", 0, fmt.Errorf("fetch files export: %w", err)
		}
		entries = append(entries, archiveEntry{name: "files.zip", path: tmp})
	}
	if len(entries) == 0 {
		return "", 0, fmt.Errorf("unknown backup type %q", job.Type)
	}

	archivePath := filepath.Join(b.backupsDir, platform.ArchiveFileName(job.ID, time.Now()))
	if err := writeZip(archivePath, entries); err != nil {
		return archivePath, 0, err
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return archivePath, 0, fmt.Errorf("stat archive: %w", err)
	}
	return archivePath, info.Size(), nil
}

type archiveEntry struct {
	name string
	path string
}

func writeZip(archivePath string, entries []archiveEntry) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, e := range entries {
		src, err := os.Open(e.path)
		if err != nil {
			zw.Close()
			return fmt.Errorf("open %s: %w", e.path, err)
		}
		w, err := zw.Create(e.name)
		if err != nil {
			src.Close()
			zw.Close()
			return fmt.Errorf("add %s to archive: %w", e.name, err)
		}
		if _, err := io.Copy(w, src); err != nil {
			src.Close()
			zw.Close()
			return fmt.Errorf("write %s to archive: %w", e.name, err)
		}
		src.Close()
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return out.Close()
}
