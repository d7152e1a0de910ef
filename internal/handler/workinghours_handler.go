package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"salon-portal/internal/gateway"
	"salon-portal/internal/middleware"
	"salon-portal/internal/model"
)

type WorkingHoursHandler struct {
	api *gateway.Client
}

func NewWorkingHoursHandler(api *gateway.Client) *WorkingHoursHandler {
	return &WorkingHoursHandler{api: api}
}

func (h *WorkingHoursHandler) List(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SIDFromContext(r.Context())
	hours, err := h.api.WorkingHours(r.Context(), sid)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, hours)
}

func (h *WorkingHoursHandler) Update(w http.ResponseWriter, r *http.Request) {
	var payload model.WorkingHoursRequest
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	sid := middleware.SIDFromContext(r.Context())
	hours, err := h.api.UpdateWorkingHours(r.Context(), sid, chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, hours)
}

// Initialize seeds the seven weekday rows with default opening times.
func (h *WorkingHoursHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SIDFromContext(r.Context())
	hours, err := h.api.InitializeWorkingHours(r.Context(), sid)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, hours)
}
