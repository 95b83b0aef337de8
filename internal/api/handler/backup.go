package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/wpmanager/internal/api/request"
	"github.com/edvin/wpmanager/internal/api/response"
	"github.com/edvin/wpmanager/internal/core"
)

// archiveNameRegex admits only names the builder itself generates. Anything
// else (path separators, dots, traversal) is rejected before touching disk.
var archiveNameRegex = regexp.MustCompile(`^backup_[A-Za-z0-9-]+_[0-9]+\.zip$`)

type Backup struct {
	svc        *core.BackupService
	backupsDir string
}

func NewBackup(svc *core.BackupService, backupsDir string) *Backup {
	return &Backup{svc: svc, backupsDir: backupsDir}
}

func (h *Backup) List(w http.ResponseWriter, r *http.Request) {
	backups, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteList(w, http.StatusOK, backups)
}

func (h *Backup) ListBySite(w http.ResponseWriter, r *http.Request) {
	siteID, err := request.RequireID(chi.URLParam(r, "siteID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	backups, err := h.svc.ListBySite(r.Context(), siteID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteList(w, http.StatusOK, backups)
}

func (h *Backup) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateBackup
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	retention := req.RetentionDays
	if retention == 0 {
		retention = defaultRetentionDays
	}

	job, err := h.svc.CreateManual(r.Context(), req.SiteID, req.Type, retention)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusAccepted, job)
}

func (h *Backup) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, job)
}

func (h *Backup) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Download streams an archive by its generated filename.
func (h *Backup) Download(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if !archiveNameRegex.MatchString(filename) {
		response.WriteError(w, http.StatusBadRequest, "invalid archive name")
		return
	}

	path := filepath.Join(h.backupsDir, filename)
	if _, err := os.Stat(path); err != nil {
		response.WriteError(w, http.StatusNotFound, "archive not found")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	http.ServeFile(w, r, path)
}
