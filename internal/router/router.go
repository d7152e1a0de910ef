package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"salon-portal/internal/config"
	"salon-portal/internal/gate"
	"salon-portal/internal/handler"
	"salon-portal/internal/middleware"
	"salon-portal/internal/model"
	"salon-portal/internal/session"
)

type Handlers struct {
	Auth         *handler.AuthHandler
	Public       *handler.PublicHandler
	Staff        *handler.StaffHandler
	Services     *handler.ServicesHandler
	WorkingHours *handler.WorkingHoursHandler
	Users        *handler.UsersHandler
}

// legacyPaths maps pre-rename paths to their staff-area replacements. The
// mapping is 1:1 and stable; query parameters pass through untouched.
var legacyPaths = map[string]string{
	"/login":                 "/staff/login",
	"/dashboard":             "/staff/dashboard",
	"/appointments":          "/staff/appointments",
	"/services":              "/staff/services",
	"/working-hours":         "/staff/working-hours",
	"/users":                 "/staff/users",
	"/profile":               "/staff/profile",
	"/change-password":       "/staff/change-password",
	"/today-appointments":    "/staff/today-appointments",
	"/upcoming-appointments": "/staff/upcoming-appointments",
	"/recent-users":          "/staff/recent-users",
}

// New wires the whole route table: public pages, gated staff pages, legacy
// redirects and the unknown-path fallback.
func New(cfg *config.Config, sessions session.Store, gm *middleware.GateMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimit := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.LoginLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rateLimit.Handler)
	r.Use(middleware.SessionCookie)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	staffOnly := gm.Protect(gate.Guard{RequireAuth: true})
	adminOnly := gm.Protect(gate.Guard{RequireAuth: true, AllowedRoles: []string{model.RoleAdmin}})
	managed := gm.Protect(gate.Guard{RequireAuth: true, AllowedRoles: []string{model.RoleAdmin, model.RoleManager}})
	rotation := gm.Protect(gate.Guard{RequireAuth: true, SkipRotation: true})

	// Public pages, no gate.
	r.Get("/", h.Public.Home)
	r.Get("/how-it-works", h.Public.HowItWorks)
	r.Get("/services-gallery", h.Public.ServicesGallery)
	r.Get("/appointments/new", h.Public.NewAppointmentForm)
	r.Post("/appointments/new", h.Public.CreateAppointment)
	r.Get("/track", h.Public.TrackAppointment)

	// Login is public; everything else under /staff runs through the gate.
	r.Post("/staff/login", h.Auth.Login)
	r.Get("/staff/login", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"page":"login"}`))
	})
	r.With(staffOnly).Post("/staff/logout", h.Auth.Logout)

	r.With(rotation).Get("/staff/change-password", h.Auth.ChangePasswordForm)
	r.With(rotation).Post("/staff/change-password", h.Auth.ChangePassword)

	r.With(staffOnly).Get("/staff/dashboard", h.Staff.Dashboard)
	r.With(staffOnly).Get("/staff/appointments", h.Staff.Appointments)
	r.With(staffOnly).Get("/staff/appointments/{id}", h.Staff.Appointment)
	r.With(staffOnly).Put("/staff/appointments/{id}/status", h.Staff.UpdateAppointmentStatus)
	r.With(managed).Delete("/staff/appointments/{id}", h.Staff.DeleteAppointment)
	r.With(staffOnly).Get("/staff/today-appointments", h.Staff.TodayAppointments)
	r.With(staffOnly).Get("/staff/upcoming-appointments", h.Staff.UpcomingAppointments)

	r.With(staffOnly).Get("/staff/services", h.Services.List)
	r.With(staffOnly).Get("/staff/services/{id}", h.Services.Get)
	r.With(managed).Post("/staff/services", h.Services.Create)
	r.With(managed).Put("/staff/services/{id}", h.Services.Update)
	r.With(managed).Delete("/staff/services/{id}", h.Services.Delete)

	r.With(staffOnly).Get("/staff/working-hours", h.WorkingHours.List)
	r.With(adminOnly).Put("/staff/working-hours/{id}", h.WorkingHours.Update)
	r.With(adminOnly).Post("/staff/working-hours/initialize", h.WorkingHours.Initialize)

	r.With(staffOnly).Get("/staff/profile", h.Auth.Profile)
	r.With(staffOnly).Put("/staff/profile", h.Auth.UpdateProfile)

	r.With(adminOnly).Get("/staff/users", h.Users.List)
	r.With(adminOnly).Get("/staff/users/{id}", h.Users.Get)
	r.With(adminOnly).Post("/staff/users", h.Users.Create)
	r.With(adminOnly).Put("/staff/users/{id}", h.Users.Update)
	r.With(adminOnly).Delete("/staff/users/{id}", h.Users.Delete)
	r.With(adminOnly).Get("/staff/recent-users", h.Users.Recent)

	for from, to := range legacyPaths {
		r.Handle(from, permanentRedirect(to))
	}

	// Unknown paths resolve by credential presence: the staff home when a
	// session exists, the public landing page otherwise.
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		sid := middleware.SIDFromContext(r.Context())
		sess, err := sessions.Read(r.Context(), sid)
		if err == nil && sess.Authenticated() {
			http.Redirect(w, r, gate.StaffHome, http.StatusFound)
			return
		}
		http.Redirect(w, r, gate.PublicHome, http.StatusFound)
	})

	return r
}

func permanentRedirect(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dest := target
		if r.URL.RawQuery != "" {
			dest += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, dest, http.StatusMovedPermanently)
	}
}
