// Package stubapi is a self-contained stand-in for the salon booking API.
// It backs local development and the integration suite so the portal can be
// run without the real upstream.
package stubapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"salon-portal/internal/model"
)

type stubUser struct {
	ID                 string
	Name               string
	Email              string
	PasswordHash       string
	Role               string
	MustChangePassword bool
	CreatedAt          time.Time
}

func (u stubUser) profile() model.Profile {
	return model.Profile{
		ID:                 u.ID,
		Name:               u.Name,
		Email:              u.Email,
		Role:               u.Role,
		MustChangePassword: u.MustChangePassword,
		CreatedAt:          u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type Server struct {
	jwtSecret []byte
	tokenTTL  time.Duration

	mu           sync.RWMutex
	usersByID    map[string]stubUser
	usersByEmail map[string]string
	services     map[string]model.Service
	appointments map[string]model.Appointment
	workingHours map[string]model.WorkingHours
}

func New(jwtSecret string) *Server {
	s := &Server{
		jwtSecret:    []byte(jwtSecret),
		tokenTTL:     24 * time.Hour,
		usersByID:    map[string]stubUser{},
		usersByEmail: map[string]string{},
		services:     map[string]model.Service{},
		appointments: map[string]model.Appointment{},
		workingHours: map[string]model.WorkingHours{},
	}
	s.seed()
	return s
}

func (s *Server) seed() {
	s.addUser("Admin", "admin@salon.local", "admin123", model.RoleAdmin, false)
	s.addUser("Front Desk", "reception@salon.local", "changeme1", model.RoleReceptionist, true)

	for _, svc := range []model.Service{
		{ID: uuid.NewString(), Name: "Classic Cut", Category: "hair", Price: 35, DurationMinutes: 30, Active: true},
		{ID: uuid.NewString(), Name: "Color & Style", Category: "hair", Price: 90, DurationMinutes: 90, Active: true},
		{ID: uuid.NewString(), Name: "Manicure", Category: "nails", Price: 25, DurationMinutes: 45, Active: true},
	} {
		s.services[svc.ID] = svc
	}
}

func (s *Server) addUser(name string, email string, password string, role string, mustChange bool) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		panic(err)
	}
	user := stubUser{
		ID:                 uuid.NewString(),
		Name:               name,
		Email:              email,
		PasswordHash:       string(hash),
		Role:               role,
		MustChangePassword: mustChange,
		CreatedAt:          time.Now(),
	}
	s.usersByID[user.ID] = user
	s.usersByEmail[email] = user.ID
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.With(s.requireAuth).Get("/me", s.handleMe)
		r.With(s.requireAuth).Post("/change-password", s.handleChangePassword)
		r.With(s.requireAuth).Put("/profile", s.handleUpdateProfile)
		r.With(s.requireAuth, s.requireRole(model.RoleAdmin)).Post("/register", s.handleRegister)
		r.With(s.requireAuth, s.requireRole(model.RoleAdmin)).Get("/users", s.handleListUsers)
		r.With(s.requireAuth, s.requireRole(model.RoleAdmin)).Get("/users/{id}", s.handleGetUser)
		r.With(s.requireAuth, s.requireRole(model.RoleAdmin)).Put("/users/{id}", s.handleUpdateUser)
		r.With(s.requireAuth, s.requireRole(model.RoleAdmin)).Delete("/users/{id}", s.handleDeleteUser)
	})

	r.Route("/api/services", func(r chi.Router) {
		r.Get("/", s.handleListServices)
		r.Get("/{id}", s.handleGetService)
		r.With(s.requireAuth, s.requireRole(model.RoleAdmin, model.RoleManager)).Post("/", s.handleCreateService)
		r.With(s.requireAuth, s.requireRole(model.RoleAdmin, model.RoleManager)).Put("/{id}", s.handleUpdateService)
		r.With(s.requireAuth, s.requireRole(model.RoleAdmin, model.RoleManager)).Delete("/{id}", s.handleDeleteService)
	})

	r.Route("/api/appointments", func(r chi.Router) {
		r.Post("/", s.handleCreateAppointment)
		r.Get("/reference/{reference}", s.handleAppointmentByReference)
		r.Get("/available-slots", s.handleAvailableSlots)
		r.With(s.requireAuth).Get("/", s.handleListAppointments)
		r.With(s.requireAuth).Get("/{id}", s.handleGetAppointment)
		r.With(s.requireAuth).Put("/{id}/status", s.handleUpdateAppointmentStatus)
		r.With(s.requireAuth, s.requireRole(model.RoleAdmin, model.RoleManager)).Delete("/{id}", s.handleDeleteAppointment)
	})

	r.Route("/api/working-hours", func(r chi.Router) {
		r.Get("/", s.handleListWorkingHours)
		r.With(s.requireAuth, s.requireRole(model.RoleAdmin)).Put("/{id}", s.handleUpdateWorkingHours)
		r.With(s.requireAuth, s.requireRole(model.RoleAdmin)).Post("/initialize", s.handleInitializeWorkingHours)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func decode(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

type errorEnvelope struct {
	Error              string `json:"error"`
	Details            string `json:"details,omitempty"`
	MustChangePassword bool   `json:"must_change_password,omitempty"`
}

func fail(w http.ResponseWriter, status int, message string, details string) {
	writeJSON(w, status, errorEnvelope{Error: message, Details: details})
}
