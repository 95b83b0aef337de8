package model

import "time"

// BackupJob is one archive-producing run against a site's remote agent.
// CompletedAt and DownloadURL are set only when Status is completed;
// ErrorMessage only when Status is failed.
type BackupJob struct {
	ID            string     `json:"id"`
	SiteID        string     `json:"site_id"`
	SiteURL       string     `json:"site_url,omitempty"`
	Type          string     `json:"type"`
	Status        string     `json:"status"`
	ErrorMessage  *string    `json:"error_message,omitempty"`
	SizeBytes     int64      `json:"size_bytes"`
	RetentionDays int        `json:"retention_days"`
	IsManual      bool       `json:"is_manual"`
	DownloadURL   *string    `json:"download_url,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

const (
	BackupTypeFull     = "full"
	BackupTypeDatabase = "database"
	BackupTypeFiles    = "files"
)
