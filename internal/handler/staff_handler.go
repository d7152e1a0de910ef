package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"salon-portal/internal/gateway"
	"salon-portal/internal/middleware"
	"salon-portal/internal/model"
	"salon-portal/pkg/apierror"
)

// StaffHandler serves the staff dashboard and appointment pages.
type StaffHandler struct {
	api *gateway.Client
	now func() time.Time
}

func NewStaffHandler(api *gateway.Client) *StaffHandler {
	return &StaffHandler{api: api, now: time.Now}
}

func (h *StaffHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	profile, _ := middleware.ProfileFromContext(r.Context())
	sid := middleware.SIDFromContext(r.Context())

	today := h.now().Format("2006-01-02")
	todays, err := h.api.Appointments(r.Context(), sid, gateway.AppointmentFilters{Date: today})
	if err != nil {
		writeError(w, err)
		return
	}

	pending, err := h.api.Appointments(r.Context(), sid, gateway.AppointmentFilters{Status: model.AppointmentPending})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"page":          "dashboard",
		"user":          profile,
		"today_count":   len(todays),
		"pending_count": len(pending),
	})
}

func (h *StaffHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SIDFromContext(r.Context())
	filters := gateway.AppointmentFilters{
		Status:    strings.TrimSpace(r.URL.Query().Get("status")),
		Date:      strings.TrimSpace(r.URL.Query().Get("date")),
		ServiceID: strings.TrimSpace(r.URL.Query().Get("service_id")),
	}

	appointments, err := h.api.Appointments(r.Context(), sid, filters)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, appointments)
}

func (h *StaffHandler) Appointment(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SIDFromContext(r.Context())
	appointment, err := h.api.Appointment(r.Context(), sid, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, appointment)
}

func (h *StaffHandler) TodayAppointments(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SIDFromContext(r.Context())
	today := h.now().Format("2006-01-02")

	appointments, err := h.api.Appointments(r.Context(), sid, gateway.AppointmentFilters{Date: today})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, appointments)
}

func (h *StaffHandler) UpcomingAppointments(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SIDFromContext(r.Context())
	appointments, err := h.api.Appointments(r.Context(), sid, gateway.AppointmentFilters{})
	if err != nil {
		writeError(w, err)
		return
	}

	today := h.now().Format("2006-01-02")
	upcoming := make([]model.Appointment, 0, len(appointments))
	for _, appt := range appointments {
		if appt.Date >= today && appt.Status != model.AppointmentCancelled {
			upcoming = append(upcoming, appt)
		}
	}

	writeSuccess(w, http.StatusOK, upcoming)
}

func (h *StaffHandler) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	var payload model.UpdateAppointmentStatusRequest
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	payload.Status = strings.TrimSpace(payload.Status)
	if payload.Status == "" {
		writeError(w, apierror.New("BAD_REQUEST", "status is required", "status", http.StatusBadRequest))
		return
	}

	sid := middleware.SIDFromContext(r.Context())
	appointment, err := h.api.UpdateAppointmentStatus(r.Context(), sid, chi.URLParam(r, "id"), payload.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, appointment)
}

func (h *StaffHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SIDFromContext(r.Context())
	if err := h.api.DeleteAppointment(r.Context(), sid, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true})
}
