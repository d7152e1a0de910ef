package gateway

import (
	"context"
	"net/http"
	"net/url"

	"salon-portal/internal/model"
	"salon-portal/internal/session"
)

type loginResponse struct {
	Message            string        `json:"message"`
	Token              string        `json:"token"`
	User               model.Profile `json:"user"`
	MustChangePassword bool          `json:"must_change_password,omitempty"`
}

// Login authenticates against the booking API and, on success, writes the
// credential and profile to the session store in one atomic write. Any prior
// session under the same ID is discarded first so stale state cannot leak
// into the new identity.
func (c *Client) Login(ctx context.Context, sid string, email string, password string) (model.Profile, bool, error) {
	if err := c.sessions.Clear(ctx, sid); err != nil {
		return model.Profile{}, false, err
	}

	var resp loginResponse
	err := c.do(ctx, sid, http.MethodPost, "/api/auth/login", nil, model.LoginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return model.Profile{}, false, err
	}

	sess := session.Session{Token: resp.Token, Profile: &resp.User}
	if resp.MustChangePassword {
		sess.MustChangePassword = session.FlagTrue
	}
	if err := c.sessions.Write(ctx, sid, sess); err != nil {
		return model.Profile{}, false, err
	}

	return resp.User, resp.MustChangePassword, nil
}

// Logout discards the local session. The booking API keeps no server-side
// session state for bearer tokens, so nothing is sent upstream.
func (c *Client) Logout(ctx context.Context, sid string) error {
	return c.sessions.Clear(ctx, sid)
}

// Me fetches the current profile. It does not write to the session store;
// the authorization gate owns the refresh.
func (c *Client) Me(ctx context.Context, sid string) (model.Profile, error) {
	var profile model.Profile
	err := c.do(ctx, sid, http.MethodGet, "/api/auth/me", nil, nil, &profile)
	return profile, err
}

func (c *Client) ChangePassword(ctx context.Context, sid string, current string, next string) error {
	payload := model.ChangePasswordRequest{CurrentPassword: current, NewPassword: next}
	return c.do(ctx, sid, http.MethodPost, "/api/auth/change-password", nil, payload, nil)
}

type registerResponse struct {
	Message string        `json:"message"`
	User    model.Profile `json:"user"`
}

func (c *Client) Register(ctx context.Context, sid string, req model.RegisterRequest) (model.Profile, error) {
	var resp registerResponse
	err := c.do(ctx, sid, http.MethodPost, "/api/auth/register", nil, req, &resp)
	return resp.User, err
}

func (c *Client) UpdateProfile(ctx context.Context, sid string, req model.UpdateProfileRequest) (model.Profile, error) {
	var profile model.Profile
	err := c.do(ctx, sid, http.MethodPut, "/api/auth/profile", nil, req, &profile)
	return profile, err
}

func (c *Client) Users(ctx context.Context, sid string) ([]model.Profile, error) {
	var users []model.Profile
	err := c.do(ctx, sid, http.MethodGet, "/api/auth/users", nil, nil, &users)
	return users, err
}

func (c *Client) User(ctx context.Context, sid string, id string) (model.Profile, error) {
	var user model.Profile
	err := c.do(ctx, sid, http.MethodGet, "/api/auth/users/"+url.PathEscape(id), nil, nil, &user)
	return user, err
}

func (c *Client) UpdateUser(ctx context.Context, sid string, id string, req model.UpdateUserRequest) (model.Profile, error) {
	var user model.Profile
	err := c.do(ctx, sid, http.MethodPut, "/api/auth/users/"+url.PathEscape(id), nil, req, &user)
	return user, err
}

func (c *Client) DeleteUser(ctx context.Context, sid string, id string) error {
	return c.do(ctx, sid, http.MethodDelete, "/api/auth/users/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) Services(ctx context.Context, sid string) ([]model.Service, error) {
	var services []model.Service
	err := c.do(ctx, sid, http.MethodGet, "/api/services", nil, nil, &services)
	return services, err
}

func (c *Client) Service(ctx context.Context, sid string, id string) (model.Service, error) {
	var svc model.Service
	err := c.do(ctx, sid, http.MethodGet, "/api/services/"+url.PathEscape(id), nil, nil, &svc)
	return svc, err
}

func (c *Client) CreateService(ctx context.Context, sid string, req model.ServiceRequest) (model.Service, error) {
	var svc model.Service
	err := c.do(ctx, sid, http.MethodPost, "/api/services", nil, req, &svc)
	return svc, err
}

func (c *Client) UpdateService(ctx context.Context, sid string, id string, req model.ServiceRequest) (model.Service, error) {
	var svc model.Service
	err := c.do(ctx, sid, http.MethodPut, "/api/services/"+url.PathEscape(id), nil, req, &svc)
	return svc, err
}

func (c *Client) DeleteService(ctx context.Context, sid string, id string) error {
	return c.do(ctx, sid, http.MethodDelete, "/api/services/"+url.PathEscape(id), nil, nil, nil)
}

// AppointmentFilters narrows an appointment listing. Zero values are omitted.
type AppointmentFilters struct {
	Status    string
	Date      string
	ServiceID string
}

func (c *Client) Appointments(ctx context.Context, sid string, filters AppointmentFilters) ([]model.Appointment, error) {
	query := url.Values{}
	if filters.Status != "" {
		query.Set("status", filters.Status)
	}
	if filters.Date != "" {
		query.Set("date", filters.Date)
	}
	if filters.ServiceID != "" {
		query.Set("service_id", filters.ServiceID)
	}

	var appointments []model.Appointment
	err := c.do(ctx, sid, http.MethodGet, "/api/appointments", query, nil, &appointments)
	return appointments, err
}

func (c *Client) Appointment(ctx context.Context, sid string, id string) (model.Appointment, error) {
	var appt model.Appointment
	err := c.do(ctx, sid, http.MethodGet, "/api/appointments/"+url.PathEscape(id), nil, nil, &appt)
	return appt, err
}

func (c *Client) CreateAppointment(ctx context.Context, sid string, req model.CreateAppointmentRequest) (model.Appointment, error) {
	var appt model.Appointment
	err := c.do(ctx, sid, http.MethodPost, "/api/appointments", nil, req, &appt)
	return appt, err
}

func (c *Client) UpdateAppointmentStatus(ctx context.Context, sid string, id string, status string) (model.Appointment, error) {
	var appt model.Appointment
	payload := model.UpdateAppointmentStatusRequest{Status: status}
	err := c.do(ctx, sid, http.MethodPut, "/api/appointments/"+url.PathEscape(id)+"/status", nil, payload, &appt)
	return appt, err
}

func (c *Client) DeleteAppointment(ctx context.Context, sid string, id string) error {
	return c.do(ctx, sid, http.MethodDelete, "/api/appointments/"+url.PathEscape(id), nil, nil, nil)
}

// AppointmentByReference looks up a booking by its public reference number.
// No credential is required; the endpoint backs the public tracking page.
func (c *Client) AppointmentByReference(ctx context.Context, sid string, reference string) (model.Appointment, error) {
	var appt model.Appointment
	err := c.do(ctx, sid, http.MethodGet, "/api/appointments/reference/"+url.PathEscape(reference), nil, nil, &appt)
	return appt, err
}

// AvailableSlots lists free time slots for a service on a date.
type AvailableSlots struct {
	Date      string   `json:"date"`
	ServiceID string   `json:"service_id"`
	Slots     []string `json:"slots"`
}

func (c *Client) SlotsFor(ctx context.Context, sid string, date string, serviceID string) (AvailableSlots, error) {
	query := url.Values{}
	query.Set("date", date)
	query.Set("service_id", serviceID)

	var slots AvailableSlots
	err := c.do(ctx, sid, http.MethodGet, "/api/appointments/available-slots", query, nil, &slots)
	return slots, err
}

func (c *Client) WorkingHours(ctx context.Context, sid string) ([]model.WorkingHours, error) {
	var hours []model.WorkingHours
	err := c.do(ctx, sid, http.MethodGet, "/api/working-hours", nil, nil, &hours)
	return hours, err
}

func (c *Client) UpdateWorkingHours(ctx context.Context, sid string, id string, req model.WorkingHoursRequest) (model.WorkingHours, error) {
	var hours model.WorkingHours
	err := c.do(ctx, sid, http.MethodPut, "/api/working-hours/"+url.PathEscape(id), nil, req, &hours)
	return hours, err
}

func (c *Client) InitializeWorkingHours(ctx context.Context, sid string) ([]model.WorkingHours, error) {
	var hours []model.WorkingHours
	err := c.do(ctx, sid, http.MethodPost, "/api/working-hours/initialize", nil, nil, &hours)
	return hours, err
}
