package handler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupCreate_InvalidBody(t *testing.T) {
	h := NewBackup(nil, "")
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/backups", `{"type":"tarball"}`)

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErrorResponse(rec)["error"], "validation error")
}

func TestBackupCreate_MalformedJSON(t *testing.T) {
	h := NewBackup(nil, "")
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/backups", `{`)

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBackupGet_MissingID(t *testing.T) {
	h := NewBackup(nil, "")
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodGet, "/backups/", nil), "id", "")

	h.Get(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBackupDownload_Success(t *testing.T) {
	dir := t.TempDir()
	name := "backup_test-backup-1_1700000000000.zip"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("zipbytes"), 0o644))

	h := NewBackup(nil, dir)
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodGet, "/backups/download/"+name, nil), "filename", name)

	h.Download(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Equal(t, "zipbytes", rec.Body.String())
}

func TestBackupDownload_RejectsTraversal(t *testing.T) {
	h := NewBackup(nil, t.TempDir())

	for _, name := range []string{
		"../../etc/passwd",
		"backup_x_1.zip/../secret",
		"backup_x_1.tar.gz",
		"notbackup_x_1.zip",
		"backup_x_.zip",
	} {
		rec := httptest.NewRecorder()
		r := withChiURLParam(newRequest(http.MethodGet, "/backups/download/x", nil), "filename", name)

		h.Download(rec, r)

		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestBackupDownload_NotFound(t *testing.T) {
	h := NewBackup(nil, t.TempDir())
	rec := httptest.NewRecorder()
	name := "backup_test-backup-1_1700000000000.zip"
	r := withChiURLParam(newRequest(http.MethodGet, "/backups/download/"+name, nil), "filename", name)

	h.Download(rec, r)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
