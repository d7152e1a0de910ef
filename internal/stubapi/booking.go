package stubapi

import (
	"fmt"
	"math/rand"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"salon-portal/internal/model"
)

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	services := make([]model.Service, 0, len(s.services))
	for _, svc := range s.services {
		services = append(services, svc)
	}
	s.mu.RUnlock()

	sort.Slice(services, func(i, j int) bool { return services[i].Name < services[j].Name })
	writeJSON(w, http.StatusOK, services)
}

func (s *Server) handleGetService(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	svc, exists := s.services[chi.URLParam(r, "id")]
	s.mu.RUnlock()
	if !exists {
		fail(w, http.StatusNotFound, "Service not found", "")
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (s *Server) handleCreateService(w http.ResponseWriter, r *http.Request) {
	var req model.ServiceRequest
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.Name == "" {
		fail(w, http.StatusBadRequest, "Service name is required", "")
		return
	}

	svc := model.Service{
		ID:              uuid.NewString(),
		Name:            req.Name,
		Description:     req.Description,
		Category:        req.Category,
		Price:           req.Price,
		DurationMinutes: req.DurationMinutes,
		ImageURL:        req.ImageURL,
		Active:          true,
	}
	if req.Active != nil {
		svc.Active = *req.Active
	}

	s.mu.Lock()
	s.services[svc.ID] = svc
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, svc)
}

func (s *Server) handleUpdateService(w http.ResponseWriter, r *http.Request) {
	var req model.ServiceRequest
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	s.mu.Lock()
	svc, exists := s.services[chi.URLParam(r, "id")]
	if !exists {
		s.mu.Unlock()
		fail(w, http.StatusNotFound, "Service not found", "")
		return
	}
	if req.Name != "" {
		svc.Name = req.Name
	}
	if req.Description != "" {
		svc.Description = req.Description
	}
	if req.Category != "" {
		svc.Category = req.Category
	}
	if req.Price > 0 {
		svc.Price = req.Price
	}
	if req.DurationMinutes > 0 {
		svc.DurationMinutes = req.DurationMinutes
	}
	if req.ImageURL != "" {
		svc.ImageURL = req.ImageURL
	}
	if req.Active != nil {
		svc.Active = *req.Active
	}
	s.services[svc.ID] = svc
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, svc)
}

func (s *Server) handleDeleteService(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, exists := s.services[chi.URLParam(r, "id")]
	delete(s.services, chi.URLParam(r, "id"))
	s.mu.Unlock()

	if !exists {
		fail(w, http.StatusNotFound, "Service not found", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Service deleted"})
}

func (s *Server) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req model.CreateAppointmentRequest
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.ServiceID == "" || req.ClientName == "" || req.Date == "" || req.Time == "" {
		fail(w, http.StatusBadRequest, "service_id, client_name, date and time are required", "")
		return
	}

	s.mu.Lock()
	svc, exists := s.services[req.ServiceID]
	if !exists {
		s.mu.Unlock()
		fail(w, http.StatusBadRequest, "Unknown service", req.ServiceID)
		return
	}

	appt := model.Appointment{
		ID:              uuid.NewString(),
		ReferenceNumber: fmt.Sprintf("APT-%06d", rand.Intn(1000000)),
		ServiceID:       svc.ID,
		ServiceName:     svc.Name,
		ClientName:      req.ClientName,
		ClientEmail:     req.ClientEmail,
		ClientPhone:     req.ClientPhone,
		Date:            req.Date,
		Time:            req.Time,
		Status:          model.AppointmentPending,
		Notes:           req.Notes,
		CreatedAt:       time.Now().UTC().Format(time.RFC3339),
	}
	s.appointments[appt.ID] = appt
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, appt)
}

func (s *Server) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	date := r.URL.Query().Get("date")
	serviceID := r.URL.Query().Get("service_id")

	s.mu.RLock()
	appointments := make([]model.Appointment, 0, len(s.appointments))
	for _, appt := range s.appointments {
		if status != "" && appt.Status != status {
			continue
		}
		if date != "" && appt.Date != date {
			continue
		}
		if serviceID != "" && appt.ServiceID != serviceID {
			continue
		}
		appointments = append(appointments, appt)
	}
	s.mu.RUnlock()

	sort.Slice(appointments, func(i, j int) bool {
		if appointments[i].Date != appointments[j].Date {
			return appointments[i].Date < appointments[j].Date
		}
		return appointments[i].Time < appointments[j].Time
	})
	writeJSON(w, http.StatusOK, appointments)
}

func (s *Server) handleGetAppointment(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	appt, exists := s.appointments[chi.URLParam(r, "id")]
	s.mu.RUnlock()
	if !exists {
		fail(w, http.StatusNotFound, "Appointment not found", "")
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (s *Server) handleAppointmentByReference(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")

	s.mu.RLock()
	var found *model.Appointment
	for _, appt := range s.appointments {
		if appt.ReferenceNumber == reference {
			match := appt
			found = &match
			break
		}
	}
	s.mu.RUnlock()

	if found == nil {
		fail(w, http.StatusNotFound, "No appointment with that reference number", reference)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) handleUpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateAppointmentStatusRequest
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	switch req.Status {
	case model.AppointmentPending, model.AppointmentConfirmed,
		model.AppointmentCompleted, model.AppointmentCancelled:
	default:
		fail(w, http.StatusBadRequest, "Invalid status", req.Status)
		return
	}

	s.mu.Lock()
	appt, exists := s.appointments[chi.URLParam(r, "id")]
	if !exists {
		s.mu.Unlock()
		fail(w, http.StatusNotFound, "Appointment not found", "")
		return
	}
	appt.Status = req.Status
	s.appointments[appt.ID] = appt
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, appt)
}

func (s *Server) handleDeleteAppointment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, exists := s.appointments[chi.URLParam(r, "id")]
	delete(s.appointments, chi.URLParam(r, "id"))
	s.mu.Unlock()

	if !exists {
		fail(w, http.StatusNotFound, "Appointment not found", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Appointment deleted"})
}

func (s *Server) handleAvailableSlots(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	serviceID := r.URL.Query().Get("service_id")
	if date == "" || serviceID == "" {
		fail(w, http.StatusBadRequest, "date and service_id are required", "")
		return
	}

	taken := map[string]bool{}
	s.mu.RLock()
	for _, appt := range s.appointments {
		if appt.Date == date && appt.Status != model.AppointmentCancelled {
			taken[appt.Time] = true
		}
	}
	s.mu.RUnlock()

	slots := []string{}
	for hour := 9; hour < 18; hour++ {
		for _, minute := range []int{0, 30} {
			slot := fmt.Sprintf("%02d:%02d", hour, minute)
			if !taken[slot] {
				slots = append(slots, slot)
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":       date,
		"service_id": serviceID,
		"slots":      slots,
	})
}

func (s *Server) handleListWorkingHours(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	hours := make([]model.WorkingHours, 0, len(s.workingHours))
	for _, wh := range s.workingHours {
		hours = append(hours, wh)
	}
	s.mu.RUnlock()

	sort.Slice(hours, func(i, j int) bool { return hours[i].DayOfWeek < hours[j].DayOfWeek })
	writeJSON(w, http.StatusOK, hours)
}

func (s *Server) handleUpdateWorkingHours(w http.ResponseWriter, r *http.Request) {
	var req model.WorkingHoursRequest
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	s.mu.Lock()
	wh, exists := s.workingHours[chi.URLParam(r, "id")]
	if !exists {
		s.mu.Unlock()
		fail(w, http.StatusNotFound, "Working hours entry not found", "")
		return
	}
	if req.OpenTime != "" {
		wh.OpenTime = req.OpenTime
	}
	if req.CloseTime != "" {
		wh.CloseTime = req.CloseTime
	}
	if req.IsClosed != nil {
		wh.IsClosed = *req.IsClosed
	}
	s.workingHours[wh.ID] = wh
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, wh)
}

func (s *Server) handleInitializeWorkingHours(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if len(s.workingHours) == 0 {
		for day := 0; day < 7; day++ {
			wh := model.WorkingHours{
				ID:        uuid.NewString(),
				DayOfWeek: day,
				OpenTime:  "09:00",
				CloseTime: "18:00",
				IsClosed:  day == 0,
			}
			s.workingHours[wh.ID] = wh
		}
	}
	hours := make([]model.WorkingHours, 0, len(s.workingHours))
	for _, wh := range s.workingHours {
		hours = append(hours, wh)
	}
	s.mu.Unlock()

	sort.Slice(hours, func(i, j int) bool { return hours[i].DayOfWeek < hours[j].DayOfWeek })
	writeJSON(w, http.StatusOK, hours)
}
