package model

import "time"

// BackupSchedule describes a recurring backup for a site. Exactly one of
// DayOfWeek (weekly, 0=Sunday) or DayOfMonth (monthly) is meaningful,
// selected by Frequency. NextRun always holds the most recently computed
// due instant for the schedule's own parameters.
type BackupSchedule struct {
	ID            string     `json:"id"`
	SiteID        string     `json:"site_id"`
	SiteURL       string     `json:"site_url,omitempty"`
	Type          string     `json:"type"`
	Frequency     string     `json:"frequency"`
	TimeOfDay     string     `json:"time_of_day"`
	DayOfWeek     *int       `json:"day_of_week,omitempty"`
	DayOfMonth    *int       `json:"day_of_month,omitempty"`
	RetentionDays int        `json:"retention_days"`
	IsActive      bool       `json:"is_active"`
	LastRun       *time.Time `json:"last_run,omitempty"`
	NextRun       time.Time  `json:"next_run"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
