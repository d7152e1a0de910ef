package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salon-portal/internal/config"
	"salon-portal/internal/gate"
	"salon-portal/internal/gateway"
	"salon-portal/internal/handler"
	"salon-portal/internal/middleware"
	"salon-portal/internal/model"
	"salon-portal/internal/session"
	"salon-portal/internal/stubapi"
)

func newTestPortal(t *testing.T) (http.Handler, session.Store) {
	t.Helper()

	upstream := httptest.NewServer(stubapi.New("test-secret").Handler())
	t.Cleanup(upstream.Close)

	store := session.NewMemoryStore()
	api := gateway.New(upstream.URL, store)
	accessGate := gate.New(store, api)
	rotation := gate.NewRotationInterceptor(store, api,
		gate.WithPolling(time.Millisecond, 100*time.Millisecond))
	gm := middleware.NewGateMiddleware(accessGate)

	cfg := &config.Config{
		RequestTimeout: 5 * time.Second,
		RateLimitRPM:   1000,
		LoginLimitRPM:  1000,
	}

	return New(cfg, store, gm, Handlers{
		Auth:         handler.NewAuthHandler(api, rotation),
		Public:       handler.NewPublicHandler(api),
		Staff:        handler.NewStaffHandler(api),
		Services:     handler.NewServicesHandler(api),
		WorkingHours: handler.NewWorkingHoursHandler(api),
		Users:        handler.NewUsersHandler(api),
	}), store
}

func login(t *testing.T, portal http.Handler, email string, password string) *http.Cookie {
	t.Helper()

	body, err := json.Marshal(model.LoginRequest{Email: email, Password: password})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/staff/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	portal.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == middleware.SessionCookieName {
			return cookie
		}
	}
	t.Fatal("login response carried no session cookie")
	return nil
}

func TestLegacyPathsRedirectPermanently(t *testing.T) {
	t.Parallel()
	portal, _ := newTestPortal(t)

	tests := []struct {
		from string
		to   string
	}{
		{"/login", "/staff/login"},
		{"/dashboard", "/staff/dashboard"},
		{"/appointments", "/staff/appointments"},
		{"/services", "/staff/services"},
		{"/working-hours", "/staff/working-hours"},
		{"/users", "/staff/users"},
		{"/profile", "/staff/profile"},
		{"/change-password", "/staff/change-password"},
		{"/today-appointments", "/staff/today-appointments"},
		{"/upcoming-appointments", "/staff/upcoming-appointments"},
		{"/recent-users", "/staff/recent-users"},
	}

	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.from, nil)
			rec := httptest.NewRecorder()
			portal.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusMovedPermanently, rec.Code)
			assert.Equal(t, tt.to, rec.Header().Get("Location"))
		})
	}
}

func TestLegacyRedirectPreservesQuery(t *testing.T) {
	t.Parallel()
	portal, _ := newTestPortal(t)

	req := httptest.NewRequest("GET", "/appointments?status=pending&date=2026-09-01", nil)
	rec := httptest.NewRecorder()
	portal.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/staff/appointments?status=pending&date=2026-09-01", rec.Header().Get("Location"))
}

func TestUnknownPathFallsBackByCredentialPresence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("no session lands on the public page", func(t *testing.T) {
		portal, _ := newTestPortal(t)

		req := httptest.NewRequest("GET", "/no/such/page", nil)
		rec := httptest.NewRecorder()
		portal.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))
	})

	t.Run("a session lands on the staff home", func(t *testing.T) {
		portal, store := newTestPortal(t)
		require.NoError(t, store.Write(ctx, "sid-known", session.Session{Token: "tok-1"}))

		req := httptest.NewRequest("GET", "/no/such/page", nil)
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "sid-known"})
		rec := httptest.NewRecorder()
		portal.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, gate.StaffHome, rec.Header().Get("Location"))
	})
}

func TestProtectedRouteRedirectsAnonymousToLogin(t *testing.T) {
	t.Parallel()
	portal, _ := newTestPortal(t)

	req := httptest.NewRequest("GET", "/staff/dashboard", nil)
	rec := httptest.NewRecorder()
	portal.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, gate.LoginPath, rec.Header().Get("Location"))
}

func TestPublicRoutesNeedNoSession(t *testing.T) {
	t.Parallel()
	portal, _ := newTestPortal(t)

	for _, path := range []string{"/", "/how-it-works", "/services-gallery", "/appointments/new", "/health"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		portal.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "GET %s", path)
	}
}

func TestLoginGrantsDashboardAccess(t *testing.T) {
	t.Parallel()
	portal, _ := newTestPortal(t)

	cookie := login(t, portal, "admin@salon.local", "admin123")

	req := httptest.NewRequest("GET", "/staff/dashboard", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	portal.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestPendingPasswordChangeBlocksStaffPages(t *testing.T) {
	t.Parallel()
	portal, _ := newTestPortal(t)

	// The seeded receptionist must rotate their password before anything else.
	cookie := login(t, portal, "reception@salon.local", "changeme1")

	req := httptest.NewRequest("GET", "/staff/dashboard", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	portal.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, middleware.ChangePasswordPath, rec.Header().Get("Location"))
}

func TestPasswordChangeUnblocksStaffPages(t *testing.T) {
	t.Parallel()
	portal, _ := newTestPortal(t)

	cookie := login(t, portal, "reception@salon.local", "changeme1")

	body, err := json.Marshal(model.ChangePasswordRequest{
		CurrentPassword: "changeme1",
		NewPassword:     "a-much-better-one",
	})
	require.NoError(t, err)

	change := httptest.NewRequest("POST", "/staff/change-password", bytes.NewReader(body))
	change.AddCookie(cookie)
	changeRec := httptest.NewRecorder()
	portal.ServeHTTP(changeRec, change)
	require.Equal(t, http.StatusOK, changeRec.Code, changeRec.Body.String())

	req := httptest.NewRequest("GET", "/staff/dashboard", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	portal.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAdminRoutesDenyOtherStaffRoles(t *testing.T) {
	t.Parallel()
	portal, _ := newTestPortal(t)

	cookie := login(t, portal, "reception@salon.local", "changeme1")

	body, err := json.Marshal(model.ChangePasswordRequest{
		CurrentPassword: "changeme1",
		NewPassword:     "a-much-better-one",
	})
	require.NoError(t, err)
	change := httptest.NewRequest("POST", "/staff/change-password", bytes.NewReader(body))
	change.AddCookie(cookie)
	changeRec := httptest.NewRecorder()
	portal.ServeHTTP(changeRec, change)
	require.Equal(t, http.StatusOK, changeRec.Code)

	req := httptest.NewRequest("GET", "/staff/users", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	portal.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, gate.StaffHome, rec.Header().Get("Location"), "wrong role redirects home, not to login")
}

func TestLogoutClearsSession(t *testing.T) {
	t.Parallel()
	portal, _ := newTestPortal(t)

	cookie := login(t, portal, "admin@salon.local", "admin123")

	out := httptest.NewRequest("POST", "/staff/logout", nil)
	out.AddCookie(cookie)
	outRec := httptest.NewRecorder()
	portal.ServeHTTP(outRec, out)
	assert.Equal(t, http.StatusFound, outRec.Code)
	assert.Equal(t, "/", outRec.Header().Get("Location"))

	req := httptest.NewRequest("GET", "/staff/dashboard", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	portal.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, gate.LoginPath, rec.Header().Get("Location"))
}
