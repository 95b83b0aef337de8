package core

import (
	"context"
	"fmt"
	"time"

	"github.com/edvin/wpmanager/internal/model"
	"github.com/edvin/wpmanager/internal/platform"
	"github.com/edvin/wpmanager/internal/recurrence"
)

const scheduleColumns = `id, site_id, type, frequency, time_of_day, day_of_week, day_of_month, retention_days, is_active, last_run, next_run, created_at, updated_at`

// ScheduleService owns backup schedule CRUD. next_run is recomputed from
// the schedule's own parameters on create and update.
type ScheduleService struct {
	db DB
}

func NewScheduleService(db DB) *ScheduleService {
	return &ScheduleService{db: db}
}

type ScheduleParams struct {
	Type          string
	Frequency     string
	TimeOfDay     string
	DayOfWeek     *int
	DayOfMonth    *int
	RetentionDays int
	IsActive      bool
}

func (s *ScheduleService) Create(ctx context.Context, siteID string, p ScheduleParams) (*model.BackupSchedule, error) {
	var exists string
	if err := s.db.QueryRow(ctx, `SELECT id FROM sites WHERE id = $1`, siteID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("get site %s: %w", siteID, notFoundOr(err))
	}

	now := time.Now()
	nextRun, err := recurrence.NextRun(p.Frequency, p.TimeOfDay, p.DayOfWeek, p.DayOfMonth, now)
	if err != nil {
		return nil, fmt.Errorf("compute next run: %w", err)
	}

	sched := &model.BackupSchedule{
		ID:            platform.NewID(),
		SiteID:        siteID,
		Type:          p.Type,
		Frequency:     p.Frequency,
		TimeOfDay:     p.TimeOfDay,
		DayOfWeek:     p.DayOfWeek,
		DayOfMonth:    p.DayOfMonth,
		RetentionDays: p.RetentionDays,
		IsActive:      p.IsActive,
		NextRun:       nextRun,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO backup_schedules (id, site_id, type, frequency, time_of_day, day_of_week, day_of_month, retention_days, is_active, next_run, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		sched.ID, sched.SiteID, sched.Type, sched.Frequency, sched.TimeOfDay, sched.DayOfWeek,
		sched.DayOfMonth, sched.RetentionDays, sched.IsActive, sched.NextRun, sched.CreatedAt, sched.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert schedule: %w", err)
	}
	return sched, nil
}

func (s *ScheduleService) Update(ctx context.Context, id string, p ScheduleParams) (*model.BackupSchedule, error) {
	now := time.Now()
	nextRun, err := recurrence.NextRun(p.Frequency, p.TimeOfDay, p.DayOfWeek, p.DayOfMonth, now)
	if err != nil {
		return nil, fmt.Errorf("compute next run: %w", err)
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE backup_schedules
		 SET type = $1, frequency = $2, time_of_day = $3, day_of_week = $4, day_of_month = $5,
		     retention_days = $6, is_active = $7, next_run = $8, updated_at = $9
		 WHERE id = $10`,
		p.Type, p.Frequency, p.TimeOfDay, p.DayOfWeek, p.DayOfMonth,
		p.RetentionDays, p.IsActive, nextRun, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update schedule %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("update schedule %s: %w", id, ErrNotFound)
	}
	return s.GetByID(ctx, id)
}

func (s *ScheduleService) GetByID(ctx context.Context, id string) (*model.BackupSchedule, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+scheduleColumns+` FROM backup_schedules WHERE id = $1`, id)
	sched, err := scanSchedule(row)
	if err != nil {
		return nil, fmt.Errorf("get schedule %s: %w", id, notFoundOr(err))
	}
	return sched, nil
}

// List returns all schedules soonest-due first, with the site URL joined in.
func (s *ScheduleService) List(ctx context.Context) ([]model.BackupSchedule, error) {
	rows, err := s.db.Query(ctx,
		`SELECT bs.id, bs.site_id, bs.type, bs.frequency, bs.time_of_day, bs.day_of_week, bs.day_of_month,
		        bs.retention_days, bs.is_active, bs.last_run, bs.next_run, bs.created_at, bs.updated_at, s.url
		 FROM backup_schedules bs JOIN sites s ON bs.site_id = s.id
		 ORDER BY bs.next_run ASC`)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var scheds []model.BackupSchedule
	for rows.Next() {
		var sc model.BackupSchedule
		if err := rows.Scan(&sc.ID, &sc.SiteID, &sc.Type, &sc.Frequency, &sc.TimeOfDay, &sc.DayOfWeek,
			&sc.DayOfMonth, &sc.RetentionDays, &sc.IsActive, &sc.LastRun, &sc.NextRun,
			&sc.CreatedAt, &sc.UpdatedAt, &sc.SiteURL); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		scheds = append(scheds, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}
	return scheds, nil
}

func (s *ScheduleService) ListBySite(ctx context.Context, siteID string) ([]model.BackupSchedule, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+scheduleColumns+` FROM backup_schedules WHERE site_id = $1 ORDER BY next_run ASC`, siteID)
	if err != nil {
		return nil, fmt.Errorf("list schedules for site %s: %w", siteID, err)
	}
	defer rows.Close()

	var scheds []model.BackupSchedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		scheds = append(scheds, *sched)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}
	return scheds, nil
}

func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM backup_schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete schedule %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanSchedule(row scanner) (*model.BackupSchedule, error) {
	var sc model.BackupSchedule
	err := row.Scan(&sc.ID, &sc.SiteID, &sc.Type, &sc.Frequency, &sc.TimeOfDay, &sc.DayOfWeek,
		&sc.DayOfMonth, &sc.RetentionDays, &sc.IsActive, &sc.LastRun, &sc.NextRun,
		&sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sc, nil
}
