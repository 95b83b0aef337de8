package model

import "time"

// UptimeCheck is a monitored URL. LastCheck, LastStatus and ResponseTimeMS
// are written only by the poller; a null LastStatus means the most recent
// probe failed at the transport level.
type UptimeCheck struct {
	ID             string     `json:"id"`
	SiteID         string     `json:"site_id"`
	URL            string     `json:"url"`
	CheckInterval  int        `json:"check_interval"`
	IsActive       bool       `json:"is_active"`
	LastCheck      *time.Time `json:"last_check,omitempty"`
	LastStatus     *int       `json:"last_status,omitempty"`
	ResponseTimeMS *int       `json:"response_time,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// UptimeHistoryEntry is an append-only probe record. A null StatusCode
// records a transport failure or timeout.
type UptimeHistoryEntry struct {
	ID             string    `json:"id"`
	CheckID        string    `json:"check_id"`
	StatusCode     *int      `json:"status_code,omitempty"`
	ResponseTimeMS *int      `json:"response_time,omitempty"`
	CheckedAt      time.Time `json:"checked_at"`
}

// Liveness values derived from a check's last probe result.
const (
	LivenessUp      = "up"
	LivenessDown    = "down"
	LivenessWarning = "warning"
)

// Liveness classifies a check's last known status: 2xx is up, a missing
// status (failed probe or never probed) is down, anything else is warning.
func Liveness(lastStatus *int) string {
	switch {
	case lastStatus == nil:
		return LivenessDown
	case *lastStatus >= 200 && *lastStatus <= 299:
		return LivenessUp
	default:
		return LivenessWarning
	}
}
