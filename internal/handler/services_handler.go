package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"salon-portal/internal/gateway"
	"salon-portal/internal/middleware"
	"salon-portal/internal/model"
	"salon-portal/pkg/apierror"
)

// ServicesHandler serves the staff service-management page.
type ServicesHandler struct {
	api *gateway.Client
}

func NewServicesHandler(api *gateway.Client) *ServicesHandler {
	return &ServicesHandler{api: api}
}

func (h *ServicesHandler) List(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SIDFromContext(r.Context())
	services, err := h.api.Services(r.Context(), sid)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, services)
}

func (h *ServicesHandler) Get(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SIDFromContext(r.Context())
	service, err := h.api.Service(r.Context(), sid, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, service)
}

func (h *ServicesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.ServiceRequest
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	if strings.TrimSpace(payload.Name) == "" {
		writeError(w, apierror.New("BAD_REQUEST", "name is required", "name", http.StatusBadRequest))
		return
	}

	sid := middleware.SIDFromContext(r.Context())
	service, err := h.api.CreateService(r.Context(), sid, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, service)
}

func (h *ServicesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var payload model.ServiceRequest
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	sid := middleware.SIDFromContext(r.Context())
	service, err := h.api.UpdateService(r.Context(), sid, chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, service)
}

func (h *ServicesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SIDFromContext(r.Context())
	if err := h.api.DeleteService(r.Context(), sid, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true})
}
