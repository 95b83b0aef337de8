package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/wpmanager/internal/model"
)

func TestNewBackupService(t *testing.T) {
	db := &mockDB{}
	disp := &mockDispatcher{}
	svc := NewBackupService(db, disp, "/tmp/backups", zerolog.Nop())

	require.NotNil(t, svc)
	assert.Equal(t, db, svc.db)
	assert.Equal(t, disp, svc.dispatcher)
}

// ---------- CreateManual ----------

func TestBackupService_CreateManual_Success(t *testing.T) {
	db := &mockDB{}
	disp := &mockDispatcher{}
	svc := NewBackupService(db, disp, t.TempDir(), zerolog.Nop())
	ctx := context.Background()

	siteRow := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "test-site-1"
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(siteRow)
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, nil)
	disp.On("Submit", mock.AnythingOfType("string")).Return()

	job, err := svc.CreateManual(ctx, "test-site-1", model.BackupTypeFull, 30)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "test-site-1", job.SiteID)
	assert.Equal(t, model.BackupTypeFull, job.Type)
	assert.Equal(t, model.StatusPending, job.Status)
	assert.Equal(t, 30, job.RetentionDays)
	assert.True(t, job.IsManual)
	assert.NotEmpty(t, job.ID)
	db.AssertExpectations(t)
	disp.AssertExpectations(t)
}

func TestBackupService_CreateManual_SiteNotFound(t *testing.T) {
	db := &mockDB{}
	disp := &mockDispatcher{}
	svc := NewBackupService(db, disp, t.TempDir(), zerolog.Nop())
	ctx := context.Background()

	siteRow := &mockRow{scanFunc: func(dest ...any) error {
		return pgx.ErrNoRows
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(siteRow)

	job, err := svc.CreateManual(ctx, "nonexistent", model.BackupTypeFull, 30)
	require.Error(t, err)
	assert.Nil(t, job)
	assert.ErrorIs(t, err, ErrNotFound)
	db.AssertExpectations(t)
	disp.AssertNotCalled(t, "Submit", mock.Anything)
}

func TestBackupService_CreateManual_InsertError(t *testing.T) {
	db := &mockDB{}
	disp := &mockDispatcher{}
	svc := NewBackupService(db, disp, t.TempDir(), zerolog.Nop())
	ctx := context.Background()

	siteRow := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "test-site-1"
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(siteRow)
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, errors.New("db error"))

	job, err := svc.CreateManual(ctx, "test-site-1", model.BackupTypeDatabase, 7)
	require.Error(t, err)
	assert.Nil(t, job)
	assert.Contains(t, err.Error(), "insert backup job")
	db.AssertExpectations(t)
	disp.AssertNotCalled(t, "Submit", mock.Anything)
}

// ---------- RunSchedule ----------

func TestBackupService_RunSchedule_Success(t *testing.T) {
	db := &mockDB{}
	disp := &mockDispatcher{}
	svc := NewBackupService(db, disp, t.TempDir(), zerolog.Nop())
	ctx := context.Background()

	tx := &mockTx{}
	schedRow := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "test-site-1"
		*(dest[1].(*string)) = model.BackupTypeFull
		*(dest[2].(*int)) = 14
		return nil
	}}
	db.On("Begin", ctx).Return(tx, nil)
	tx.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(schedRow)
	tx.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, nil)
	tx.On("Commit", ctx).Return(nil)
	tx.On("Rollback", ctx).Return(pgx.ErrTxClosed)
	disp.On("Submit", mock.AnythingOfType("string")).Return()

	job, err := svc.RunSchedule(ctx, "test-schedule-1")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "test-site-1", job.SiteID)
	assert.Equal(t, model.BackupTypeFull, job.Type)
	assert.Equal(t, 14, job.RetentionDays)
	assert.False(t, job.IsManual)
	db.AssertExpectations(t)
	tx.AssertExpectations(t)
	disp.AssertExpectations(t)
}

func TestBackupService_RunSchedule_NotFound(t *testing.T) {
	db := &mockDB{}
	disp := &mockDispatcher{}
	svc := NewBackupService(db, disp, t.TempDir(), zerolog.Nop())
	ctx := context.Background()

	tx := &mockTx{}
	schedRow := &mockRow{scanFunc: func(dest ...any) error {
		return pgx.ErrNoRows
	}}
	db.On("Begin", ctx).Return(tx, nil)
	tx.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(schedRow)
	tx.On("Rollback", ctx).Return(nil)

	job, err := svc.RunSchedule(ctx, "nonexistent")
	require.Error(t, err)
	assert.Nil(t, job)
	assert.ErrorIs(t, err, ErrNotFound)
	db.AssertExpectations(t)
	disp.AssertNotCalled(t, "Submit", mock.Anything)
}

func TestBackupService_RunSchedule_BeginError(t *testing.T) {
	db := &mockDB{}
	disp := &mockDispatcher{}
	svc := NewBackupService(db, disp, t.TempDir(), zerolog.Nop())
	ctx := context.Background()

	db.On("Begin", ctx).Return(nil, errors.New("pool exhausted"))

	job, err := svc.RunSchedule(ctx, "test-schedule-1")
	require.Error(t, err)
	assert.Nil(t, job)
	assert.Contains(t, err.Error(), "begin run schedule")
	db.AssertExpectations(t)
}

// ---------- ProcessDueSchedules ----------

func TestBackupService_ProcessDueSchedules_NoneDue(t *testing.T) {
	db := &mockDB{}
	disp := &mockDispatcher{}
	svc := NewBackupService(db, disp, t.TempDir(), zerolog.Nop())
	ctx := context.Background()

	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(newEmptyMockRows(), nil)

	err := svc.ProcessDueSchedules(ctx, time.Now())
	require.NoError(t, err)
	db.AssertExpectations(t)
	disp.AssertNotCalled(t, "Submit", mock.Anything)
}

func TestBackupService_ProcessDueSchedules_QueryError(t *testing.T) {
	db := &mockDB{}
	disp := &mockDispatcher{}
	svc := NewBackupService(db, disp, t.TempDir(), zerolog.Nop())
	ctx := context.Background()

	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(nil, errors.New("connection lost"))

	err := svc.ProcessDueSchedules(ctx, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan due schedules")
	db.AssertExpectations(t)
}

func TestBackupService_ProcessDueSchedules_RunsAndAdvances(t *testing.T) {
	db := &mockDB{}
	disp := &mockDispatcher{}
	svc := NewBackupService(db, disp, t.TempDir(), zerolog.Nop())
	ctx := context.Background()

	dueRows := newMockRows(func(dest ...any) error {
		*(dest[0].(*string)) = "test-schedule-1"
		*(dest[1].(*string)) = model.FrequencyDaily
		*(dest[2].(*string)) = "03:00"
		*(dest[3].(**int)) = nil
		*(dest[4].(**int)) = nil
		return nil
	})
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(dueRows, nil)

	tx := &mockTx{}
	schedRow := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "test-site-1"
		*(dest[1].(*string)) = model.BackupTypeFull
		*(dest[2].(*int)) = 30
		return nil
	}}
	db.On("Begin", ctx).Return(tx, nil)
	tx.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(schedRow)
	tx.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, nil)
	tx.On("Commit", ctx).Return(nil)
	tx.On("Rollback", ctx).Return(pgx.ErrTxClosed)
	disp.On("Submit", mock.AnythingOfType("string")).Return()

	// next_run advance
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, nil)

	err := svc.ProcessDueSchedules(ctx, time.Now())
	require.NoError(t, err)
	db.AssertExpectations(t)
	tx.AssertExpectations(t)
	disp.AssertExpectations(t)
}

// ---------- SweepExpired ----------

func TestBackupService_SweepExpired_NothingExpired(t *testing.T) {
	db := &mockDB{}
	disp := &mockDispatcher{}
	svc := NewBackupService(db, disp, t.TempDir(), zerolog.Nop())
	ctx := context.Background()

	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(newEmptyMockRows(), nil)

	reaped, err := svc.SweepExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, reaped)
	db.AssertExpectations(t)
}

func TestBackupService_SweepExpired_RemovesRows(t *testing.T) {
	db := &mockDB{}
	disp := &mockDispatcher{}
	svc := NewBackupService(db, disp, t.TempDir(), zerolog.Nop())
	ctx := context.Background()

	rows := newMockRows(
		func(dest ...any) error {
			*(dest[0].(*string)) = "test-backup-1"
			return nil
		},
		func(dest ...any) error {
			*(dest[0].(*string)) = "test-backup-2"
			return nil
		},
	)
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, nil).Twice()

	reaped, err := svc.SweepExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, reaped)
	db.AssertExpectations(t)
}

func TestBackupService_SweepExpired_RowDeleteErrorContinues(t *testing.T) {
	db := &mockDB{}
	disp := &mockDispatcher{}
	svc := NewBackupService(db, disp, t.TempDir(), zerolog.Nop())
	ctx := context.Background()

	rows := newMockRows(
		func(dest ...any) error {
			*(dest[0].(*string)) = "test-backup-1"
			return nil
		},
		func(dest ...any) error {
			*(dest[0].(*string)) = "test-backup-2"
			return nil
		},
	)
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)
	db.On("Exec", ctx, mock.AnythingOfType("string"), []any{"test-backup-1"}).Return(pgconn.CommandTag{}, errors.New("db error"))
	db.On("Exec", ctx, mock.AnythingOfType("string"), []any{"test-backup-2"}).Return(pgconn.CommandTag{}, nil)

	reaped, err := svc.SweepExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, reaped)
	db.AssertExpectations(t)
}

// ---------- GetByID ----------

func TestBackupService_GetByID_Success(t *testing.T) {
	db := &mockDB{}
	disp := &mockDispatcher{}
	svc := NewBackupService(db, disp, t.TempDir(), zerolog.Nop())
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond)
	url := "/api/v1/backups/download/backup_test-backup-1_1700000000000.zip"

	row := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "test-backup-1"
		*(dest[1].(*string)) = "test-site-1"
		*(dest[2].(*string)) = model.BackupTypeFull
		*(dest[3].(*string)) = model.StatusCompleted
		*(dest[4].(**string)) = nil // error_message
		*(dest[5].(*int64)) = 2048
		*(dest[6].(*int)) = 30
		*(dest[7].(*bool)) = true
		*(dest[8].(**string)) = &url
		*(dest[9].(*time.Time)) = now
		*(dest[10].(**time.Time)) = &now
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	job, err := svc.GetByID(ctx, "test-backup-1")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "test-backup-1", job.ID)
	assert.Equal(t, model.StatusCompleted, job.Status)
	assert.Equal(t, int64(2048), job.SizeBytes)
	require.NotNil(t, job.DownloadURL)
	assert.Equal(t, url, *job.DownloadURL)
	db.AssertExpectations(t)
}

func TestBackupService_GetByID_NotFound(t *testing.T) {
	db := &mockDB{}
	disp := &mockDispatcher{}
	svc := NewBackupService(db, disp, t.TempDir(), zerolog.Nop())
	ctx := context.Background()

	row := &mockRow{scanFunc: func(dest ...any) error {
		return pgx.ErrNoRows
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	job, err := svc.GetByID(ctx, "nonexistent")
	require.Error(t, err)
	assert.Nil(t, job)
	assert.ErrorIs(t, err, ErrNotFound)
	db.AssertExpectations(t)
}

// ---------- List ----------

func TestBackupService_List_Success(t *testing.T) {
	db := &mockDB{}
	disp := &mockDispatcher{}
	svc := NewBackupService(db, disp, t.TempDir(), zerolog.Nop())
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond)

	rows := newMockRows(func(dest ...any) error {
		*(dest[0].(*string)) = "test-backup-1"
		*(dest[1].(*string)) = "test-site-1"
		*(dest[2].(*string)) = model.BackupTypeDatabase
		*(dest[3].(*string)) = model.StatusPending
		*(dest[4].(**string)) = nil
		*(dest[5].(*int64)) = 0
		*(dest[6].(*int)) = 7
		*(dest[7].(*bool)) = false
		*(dest[8].(**string)) = nil
		*(dest[9].(*time.Time)) = now
		*(dest[10].(**time.Time)) = nil
		*(dest[11].(*string)) = "https://example.com"
		return nil
	})
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	jobs, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "https://example.com", jobs[0].SiteURL)
	db.AssertExpectations(t)
}

func TestBackupService_List_Empty(t *testing.T) {
	db := &mockDB{}
	disp := &mockDispatcher{}
	svc := NewBackupService(db, disp, t.TempDir(), zerolog.Nop())
	ctx := context.Background()

	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(newEmptyMockRows(), nil)

	jobs, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
	db.AssertExpectations(t)
}

// ---------- Delete ----------

func TestBackupService_Delete_Success(t *testing.T) {
	db := &mockDB{}
	disp := &mockDispatcher{}
	svc := NewBackupService(db, disp, t.TempDir(), zerolog.Nop())
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond)
	row := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "test-backup-1"
		*(dest[1].(*string)) = "test-site-1"
		*(dest[2].(*string)) = model.BackupTypeFull
		*(dest[3].(*string)) = model.StatusCompleted
		*(dest[4].(**string)) = nil
		*(dest[5].(*int64)) = 1024
		*(dest[6].(*int)) = 30
		*(dest[7].(*bool)) = true
		*(dest[8].(**string)) = nil
		*(dest[9].(*time.Time)) = now
		*(dest[10].(**time.Time)) = &now
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, nil)

	err := svc.Delete(ctx, "test-backup-1")
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestBackupService_Delete_NotFound(t *testing.T) {
	db := &mockDB{}
	disp := &mockDispatcher{}
	svc := NewBackupService(db, disp, t.TempDir(), zerolog.Nop())
	ctx := context.Background()

	row := &mockRow{scanFunc: func(dest ...any) error {
		return pgx.ErrNoRows
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	err := svc.Delete(ctx, "nonexistent")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	db.AssertExpectations(t)
}

// ---------- Status transitions ----------

func TestBackupService_MarkInProgress_NotPending(t *testing.T) {
	db := &mockDB{}
	disp := &mockDispatcher{}
	svc := NewBackupService(db, disp, t.TempDir(), zerolog.Nop())
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := svc.MarkInProgress(ctx, "test-backup-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not pending")
	db.AssertExpectations(t)
}

func TestBackupService_MarkCompleted_Success(t *testing.T) {
	db := &mockDB{}
	disp := &mockDispatcher{}
	svc := NewBackupService(db, disp, t.TempDir(), zerolog.Nop())
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	err := svc.MarkCompleted(ctx, "test-backup-1", 4096, "/api/v1/backups/download/backup_test-backup-1_1700000000000.zip", time.Now())
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestBackupService_MarkCompleted_NotInProgress(t *testing.T) {
	db := &mockDB{}
	disp := &mockDispatcher{}
	svc := NewBackupService(db, disp, t.TempDir(), zerolog.Nop())
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := svc.MarkCompleted(ctx, "test-backup-1", 4096, "/x.zip", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in progress")
	db.AssertExpectations(t)
}

func TestBackupService_MarkFailed_Success(t *testing.T) {
	db := &mockDB{}
	disp := &mockDispatcher{}
	svc := NewBackupService(db, disp, t.TempDir(), zerolog.Nop())
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	err := svc.MarkFailed(ctx, "test-backup-1", "agent unreachable")
	require.NoError(t, err)
	db.AssertExpectations(t)
}
