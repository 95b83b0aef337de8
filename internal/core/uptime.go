package core

import (
	"context"
	"fmt"
	"time"

	"github.com/edvin/wpmanager/internal/model"
	"github.com/edvin/wpmanager/internal/platform"
)

const uptimeCheckColumns = `id, site_id, url, check_interval, is_active, last_check, last_status, response_time_ms, created_at`

const defaultCheckInterval = 300

// UptimeService owns uptime check configuration and the probe result log.
type UptimeService struct {
	db DB
}

func NewUptimeService(db DB) *UptimeService {
	return &UptimeService{db: db}
}

type UptimeCheckParams struct {
	URL           string
	CheckInterval int
}

func (s *UptimeService) CreateCheck(ctx context.Context, siteID string, p UptimeCheckParams) (*model.UptimeCheck, error) {
	var exists string
	if err := s.db.QueryRow(ctx, `SELECT id FROM sites WHERE id = $1`, siteID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("get site %s: %w", siteID, notFoundOr(err))
	}

	interval := p.CheckInterval
	if interval <= 0 {
		interval = defaultCheckInterval
	}

	check := &model.UptimeCheck{
		ID:            platform.NewID(),
		SiteID:        siteID,
		URL:           p.URL,
		CheckInterval: interval,
		IsActive:      true,
		CreatedAt:     time.Now(),
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO uptime_checks (id, site_id, url, check_interval, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		check.ID, check.SiteID, check.URL, check.CheckInterval, check.IsActive, check.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert uptime check: %w", err)
	}
	return check, nil
}

type UptimeCheckUpdate struct {
	CheckInterval *int
	IsActive      *bool
}

// UpdateCheck patches interval and active flag. Nil fields keep their value.
func (s *UptimeService) UpdateCheck(ctx context.Context, id string, u UptimeCheckUpdate) (*model.UptimeCheck, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE uptime_checks
		 SET check_interval = COALESCE($1, check_interval),
		     is_active = COALESCE($2, is_active)
		 WHERE id = $3`,
		u.CheckInterval, u.IsActive, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update uptime check %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("update uptime check %s: %w", id, ErrNotFound)
	}
	return s.GetCheck(ctx, id)
}

func (s *UptimeService) GetCheck(ctx context.Context, id string) (*model.UptimeCheck, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+uptimeCheckColumns+` FROM uptime_checks WHERE id = $1`, id)
	check, err := scanUptimeCheck(row)
	if err != nil {
		return nil, fmt.Errorf("get uptime check %s: %w", id, notFoundOr(err))
	}
	return check, nil
}

func (s *UptimeService) ListBySite(ctx context.Context, siteID string) ([]model.UptimeCheck, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+uptimeCheckColumns+` FROM uptime_checks WHERE site_id = $1 ORDER BY created_at ASC`, siteID)
	if err != nil {
		return nil, fmt.Errorf("list uptime checks for site %s: %w", siteID, err)
	}
	defer rows.Close()

	var checks []model.UptimeCheck
	for rows.Next() {
		check, err := scanUptimeCheck(rows)
		if err != nil {
			return nil, fmt.Errorf("scan uptime check: %w", err)
		}
		checks = append(checks, *check)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate uptime checks: %w", err)
	}
	return checks, nil
}

// DeleteCheck removes a check. History rows go with it via the FK cascade.
func (s *UptimeService) DeleteCheck(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM uptime_checks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete uptime check %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete uptime check %s: %w", id, ErrNotFound)
	}
	return nil
}

// DueChecks returns active checks whose interval has elapsed since the last
// probe. Never-probed checks are always due.
func (s *UptimeService) DueChecks(ctx context.Context, now time.Time) ([]model.UptimeCheck, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+uptimeCheckColumns+`
		 FROM uptime_checks
		 WHERE is_active AND (last_check IS NULL OR last_check + make_interval(secs => check_interval) <= $1)`,
		now)
	if err != nil {
		return nil, fmt.Errorf("query due uptime checks: %w", err)
	}
	defer rows.Close()

	var checks []model.UptimeCheck
	for rows.Next() {
		check, err := scanUptimeCheck(rows)
		if err != nil {
			return nil, fmt.Errorf("scan uptime check: %w", err)
		}
		checks = append(checks, *check)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due uptime checks: %w", err)
	}
	return checks, nil
}

// RecordSuccess stores a probe that got an HTTP response, whatever the
// status code. The history insert and the check update commit together.
func (s *UptimeService) RecordSuccess(ctx context.Context, checkID string, statusCode, responseTimeMS int, now time.Time) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin record probe: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO uptime_history (id, check_id, status_code, response_time_ms, checked_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		platform.NewID(), checkID, statusCode, responseTimeMS, now,
	)
	if err != nil {
		return fmt.Errorf("insert uptime history: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE uptime_checks SET last_check = $1, last_status = $2, response_time_ms = $3 WHERE id = $4`,
		now, statusCode, responseTimeMS, checkID,
	)
	if err != nil {
		return fmt.Errorf("update uptime check %s: %w", checkID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit record probe: %w", err)
	}
	return nil
}

// RecordFailure stores a probe that never produced an HTTP response. The
// history row carries a NULL status code and the check's last status clears.
func (s *UptimeService) RecordFailure(ctx context.Context, checkID string, now time.Time) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin record probe: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO uptime_history (id, check_id, status_code, response_time_ms, checked_at)
		 VALUES ($1, $2, NULL, NULL, $3)`,
		platform.NewID(), checkID, now,
	)
	if err != nil {
		return fmt.Errorf("insert uptime history: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE uptime_checks SET last_check = $1, last_status = NULL, response_time_ms = NULL WHERE id = $2`,
		now, checkID,
	)
	if err != nil {
		return fmt.Errorf("update uptime check %s: %w", checkID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit record probe: %w", err)
	}
	return nil
}

// History returns recent probe results, newest first. limit defaults to 100
// and caps at 1000.
func (s *UptimeService) History(ctx context.Context, checkID string, limit int) ([]model.UptimeHistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	var exists string
	if err := s.db.QueryRow(ctx, `SELECT id FROM uptime_checks WHERE id = $1`, checkID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("get uptime check %s: %w", checkID, notFoundOr(err))
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, check_id, status_code, response_time_ms, checked_at
		 FROM uptime_history
		 WHERE check_id = $1
		 ORDER BY checked_at DESC
		 LIMIT $2`,
		checkID, limit)
	if err != nil {
		return nil, fmt.Errorf("query uptime history: %w", err)
	}
	defer rows.Close()

	var entries []model.UptimeHistoryEntry
	for rows.Next() {
		var e model.UptimeHistoryEntry
		if err := rows.Scan(&e.ID, &e.CheckID, &e.StatusCode, &e.ResponseTimeMS, &e.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan uptime history: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate uptime history: %w", err)
	}
	return entries, nil
}

func scanUptimeCheck(row scanner) (*model.UptimeCheck, error) {
	var c model.UptimeCheck
	err := row.Scan(&c.ID, &c.SiteID, &c.URL, &c.CheckInterval, &c.IsActive,
		&c.LastCheck, &c.LastStatus, &c.ResponseTimeMS, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
