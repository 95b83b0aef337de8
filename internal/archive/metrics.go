package archive

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	backupsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wpmanager_backups_completed_total",
		Help: "Total number of backup archives built successfully",
	})

	backupsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wpmanager_backups_failed_total",
		Help: "Total number of backup jobs that ended in failure",
	})

	backupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wpmanager_backup_duration_seconds",
		Help:    "Time spent building a backup archive",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wpmanager_backup_queue_depth",
		Help: "Backup jobs waiting for a worker",
	})

	queueRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wpmanager_backup_queue_rejected_total",
		Help: "Backup jobs rejected because the queue was full",
	})
)
