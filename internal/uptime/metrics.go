package uptime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	probesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wpmanager_uptime_probes_total",
		Help: "Total number of uptime probes by outcome",
	}, []string{"result"})

	probeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wpmanager_uptime_probe_duration_seconds",
		Help:    "Response time of successful uptime probes",
		Buckets: prometheus.DefBuckets,
	})
)
