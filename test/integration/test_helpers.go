//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"salon-portal/internal/config"
	"salon-portal/internal/gate"
	"salon-portal/internal/gateway"
	"salon-portal/internal/handler"
	"salon-portal/internal/middleware"
	"salon-portal/internal/model"
	"salon-portal/internal/router"
	"salon-portal/internal/session"
	"salon-portal/internal/stubapi"
)

// newPortal stands up the whole stack: a stub booking API, a file-backed
// session store and the portal router in front of both.
func newPortal(t *testing.T) *httptest.Server {
	t.Helper()

	upstream := httptest.NewServer(stubapi.New("integration-secret").Handler())
	t.Cleanup(upstream.Close)

	store, err := session.NewFileStore(filepath.Join(t.TempDir(), "sessions.json"))
	require.NoError(t, err)

	api := gateway.New(upstream.URL, store,
		gateway.WithHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	accessGate := gate.New(store, api)
	rotation := gate.NewRotationInterceptor(store, api,
		gate.WithPolling(time.Millisecond, 200*time.Millisecond))
	gm := middleware.NewGateMiddleware(accessGate)

	cfg := &config.Config{
		RequestTimeout: 10 * time.Second,
		RateLimitRPM:   10000,
		LoginLimitRPM:  10000,
	}

	portal := httptest.NewServer(router.New(cfg, store, gm, router.Handlers{
		Auth:         handler.NewAuthHandler(api, rotation),
		Public:       handler.NewPublicHandler(api),
		Staff:        handler.NewStaffHandler(api),
		Services:     handler.NewServicesHandler(api),
		WorkingHours: handler.NewWorkingHoursHandler(api),
		Users:        handler.NewUsersHandler(api),
	}))
	t.Cleanup(portal.Close)

	return portal
}

// newBrowser returns an HTTP client that keeps cookies like a browser would
// but reports redirects to the test instead of following them.
func newBrowser(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
		Timeout: 10 * time.Second,
	}
}

func doJSON(t *testing.T, client *http.Client, method string, target string, payload any) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, target, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func readEnvelope(t *testing.T, resp *http.Response) model.APIResponse {
	t.Helper()
	defer resp.Body.Close()

	var envelope model.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope
}

// dataAs re-marshals the envelope's data into a typed value.
func dataAs(t *testing.T, envelope model.APIResponse, out any) {
	t.Helper()

	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func loginAs(t *testing.T, client *http.Client, base string, email string, password string) {
	t.Helper()

	resp := doJSON(t, client, http.MethodPost, base+"/staff/login", model.LoginRequest{
		Email:    email,
		Password: password,
	})
	envelope := readEnvelope(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, envelope.Success)
}

func locationOf(t *testing.T, resp *http.Response) string {
	t.Helper()
	loc, err := resp.Location()
	require.NoError(t, err)
	return loc.RequestURI()
}
