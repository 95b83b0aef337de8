package core

import (
	"context"
	"fmt"

	"github.com/edvin/wpmanager/internal/model"
)

// SiteService exposes the site lookups this engine needs. Site CRUD itself
// lives in the surrounding management surface.
type SiteService struct {
	db DB
}

func NewSiteService(db DB) *SiteService {
	return &SiteService{db: db}
}

func (s *SiteService) GetByID(ctx context.Context, id string) (*model.Site, error) {
	var site model.Site
	err := s.db.QueryRow(ctx,
		`SELECT id, url, api_key, last_seen, created_at FROM sites WHERE id = $1`, id,
	).Scan(&site.ID, &site.URL, &site.APIKey, &site.LastSeen, &site.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get site %s: %w", id, notFoundOr(err))
	}
	return &site, nil
}
