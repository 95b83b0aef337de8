package handler

import (
	"errors"
	"net/http"

	"github.com/edvin/wpmanager/internal/api/response"
	"github.com/edvin/wpmanager/internal/core"
)

const defaultRetentionDays = 30

// writeServiceError maps service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrNotFound) {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	response.WriteError(w, http.StatusInternalServerError, err.Error())
}
