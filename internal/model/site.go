package model

import "time"

// Site is a managed WordPress installation. The API key authenticates
// requests against the site's remote agent plugin.
type Site struct {
	ID        string     `json:"id"`
	URL       string     `json:"url"`
	APIKey    string     `json:"-"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
