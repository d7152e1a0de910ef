package handler

import (
	"net/http"
	"strings"

	"salon-portal/internal/gateway"
	"salon-portal/internal/middleware"
	"salon-portal/internal/model"
	"salon-portal/pkg/apierror"
)

// PublicHandler serves the pages that need no session: the landing page,
// the booking wizard, the gallery and appointment tracking.
type PublicHandler struct {
	api *gateway.Client
}

func NewPublicHandler(api *gateway.Client) *PublicHandler {
	return &PublicHandler{api: api}
}

func (h *PublicHandler) Home(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SIDFromContext(r.Context())
	services, err := h.api.Services(r.Context(), sid)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"page":     "home",
		"services": activeOnly(services),
	})
}

func (h *PublicHandler) HowItWorks(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]any{
		"page": "how-it-works",
		"steps": []string{
			"pick a service",
			"choose a free slot",
			"upload the payment confirmation",
			"track your booking with the reference number",
		},
	})
}

func (h *PublicHandler) ServicesGallery(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SIDFromContext(r.Context())
	services, err := h.api.Services(r.Context(), sid)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"page":     "services-gallery",
		"services": activeOnly(services),
	})
}

// NewAppointmentForm returns what the booking wizard needs: the service
// catalog and, once a date and service are picked, the free slots.
func (h *PublicHandler) NewAppointmentForm(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SIDFromContext(r.Context())
	services, err := h.api.Services(r.Context(), sid)
	if err != nil {
		writeError(w, err)
		return
	}

	data := map[string]any{
		"page":     "new-appointment",
		"services": activeOnly(services),
	}

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	serviceID := strings.TrimSpace(r.URL.Query().Get("service_id"))
	if date != "" && serviceID != "" {
		slots, err := h.api.SlotsFor(r.Context(), sid, date, serviceID)
		if err != nil {
			writeError(w, err)
			return
		}
		data["available_slots"] = slots
	}

	writeSuccess(w, http.StatusOK, data)
}

func (h *PublicHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var payload model.CreateAppointmentRequest
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	sid := middleware.SIDFromContext(r.Context())
	appointment, err := h.api.CreateAppointment(r.Context(), sid, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, appointment)
}

// TrackAppointment resolves a booking by its public reference number.
func (h *PublicHandler) TrackAppointment(w http.ResponseWriter, r *http.Request) {
	reference := strings.TrimSpace(r.URL.Query().Get("reference"))
	if reference == "" {
		writeError(w, apierror.New("BAD_REQUEST", "reference is required", "reference", http.StatusBadRequest))
		return
	}

	sid := middleware.SIDFromContext(r.Context())
	appointment, err := h.api.AppointmentByReference(r.Context(), sid, reference)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, appointment)
}

func activeOnly(services []model.Service) []model.Service {
	out := make([]model.Service, 0, len(services))
	for _, svc := range services {
		if svc.Active {
			out = append(out, svc)
		}
	}
	return out
}
