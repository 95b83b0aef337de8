package core

import "github.com/rs/zerolog"

type Services struct {
	Site     *SiteService
	Backup   *BackupService
	Schedule *ScheduleService
	Uptime   *UptimeService
}

func NewServices(db DB, dispatcher Dispatcher, backupsDir string, logger zerolog.Logger) *Services {
	return &Services{
		Site:     NewSiteService(db),
		Backup:   NewBackupService(db, dispatcher, backupsDir, logger),
		Schedule: NewScheduleService(db),
		Uptime:   NewUptimeService(db),
	}
}
