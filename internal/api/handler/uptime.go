package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/wpmanager/internal/api/request"
	"github.com/edvin/wpmanager/internal/api/response"
	"github.com/edvin/wpmanager/internal/core"
	"github.com/edvin/wpmanager/internal/model"
)

// CheckProber runs a single on-demand probe.
type CheckProber interface {
	ProbeCheck(ctx context.Context, checkID string) (*model.UptimeCheck, error)
}

type Uptime struct {
	svc    *core.UptimeService
	prober CheckProber
}

func NewUptime(svc *core.UptimeService, prober CheckProber) *Uptime {
	return &Uptime{svc: svc, prober: prober}
}

// checkView adds the derived liveness state to a check row.
type checkView struct {
	model.UptimeCheck
	Liveness string `json:"liveness"`
}

func viewOf(c model.UptimeCheck) checkView {
	return checkView{UptimeCheck: c, Liveness: model.Liveness(c.LastStatus)}
}

func (h *Uptime) ListBySite(w http.ResponseWriter, r *http.Request) {
	siteID, err := request.RequireID(chi.URLParam(r, "siteID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	checks, err := h.svc.ListBySite(r.Context(), siteID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	views := make([]checkView, 0, len(checks))
	for _, c := range checks {
		views = append(views, viewOf(c))
	}
	response.WriteList(w, http.StatusOK, views)
}

func (h *Uptime) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateUptimeCheck
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	check, err := h.svc.CreateCheck(r.Context(), req.SiteID, core.UptimeCheckParams{
		URL:           req.URL,
		CheckInterval: req.CheckInterval,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, viewOf(*check))
}

func (h *Uptime) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	check, err := h.svc.GetCheck(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, viewOf(*check))
}

func (h *Uptime) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateUptimeCheck
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	check, err := h.svc.UpdateCheck(r.Context(), id, core.UptimeCheckUpdate{
		CheckInterval: req.CheckInterval,
		IsActive:      req.IsActive,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, viewOf(*check))
}

func (h *Uptime) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.DeleteCheck(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Uptime) History(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 0 {
			response.WriteError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}

	entries, err := h.svc.History(r.Context(), id, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteList(w, http.StatusOK, entries)
}

// Check probes the URL right now and returns the refreshed check.
func (h *Uptime) Check(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	check, err := h.prober.ProbeCheck(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, viewOf(*check))
}
