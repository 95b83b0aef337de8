package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/wpmanager/internal/api/request"
	"github.com/edvin/wpmanager/internal/api/response"
	"github.com/edvin/wpmanager/internal/core"
)

type BackupSchedule struct {
	svc    *core.ScheduleService
	backup *core.BackupService
}

func NewBackupSchedule(svc *core.ScheduleService, backup *core.BackupService) *BackupSchedule {
	return &BackupSchedule{svc: svc, backup: backup}
}

func (h *BackupSchedule) List(w http.ResponseWriter, r *http.Request) {
	scheds, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteList(w, http.StatusOK, scheds)
}

func (h *BackupSchedule) ListBySite(w http.ResponseWriter, r *http.Request) {
	siteID, err := request.RequireID(chi.URLParam(r, "siteID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	scheds, err := h.svc.ListBySite(r.Context(), siteID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteList(w, http.StatusOK, scheds)
}

func (h *BackupSchedule) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateBackupSchedule
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	retention := req.RetentionDays
	if retention == 0 {
		retention = defaultRetentionDays
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	sched, err := h.svc.Create(r.Context(), req.SiteID, core.ScheduleParams{
		Type:          req.Type,
		Frequency:     req.Frequency,
		TimeOfDay:     req.TimeOfDay,
		DayOfWeek:     req.DayOfWeek,
		DayOfMonth:    req.DayOfMonth,
		RetentionDays: retention,
		IsActive:      active,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, sched)
}

func (h *BackupSchedule) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sched, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, sched)
}

func (h *BackupSchedule) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateBackupSchedule
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	retention := req.RetentionDays
	if retention == 0 {
		retention = defaultRetentionDays
	}

	sched, err := h.svc.Update(r.Context(), id, core.ScheduleParams{
		Type:          req.Type,
		Frequency:     req.Frequency,
		TimeOfDay:     req.TimeOfDay,
		DayOfWeek:     req.DayOfWeek,
		DayOfMonth:    req.DayOfMonth,
		RetentionDays: retention,
		IsActive:      req.IsActive,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, sched)
}

func (h *BackupSchedule) Delete(w http.ResponseWriter, r *http.Request) {
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

// Run triggers a schedule immediately, outside its recurrence.
func (h *BackupSchedule) Run(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.backup.RunSchedule(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusAccepted, job)
}
