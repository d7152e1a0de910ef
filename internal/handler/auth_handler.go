package handler

import (
	"errors"
	"net/http"
	"strings"

	"salon-portal/internal/gate"
	"salon-portal/internal/gateway"
	"salon-portal/internal/middleware"
	"salon-portal/internal/model"
	"salon-portal/pkg/apierror"
)

type AuthHandler struct {
	api      *gateway.Client
	rotation *gate.RotationInterceptor
}

func NewAuthHandler(api *gateway.Client, rotation *gate.RotationInterceptor) *AuthHandler {
	return &AuthHandler{api: api, rotation: rotation}
}

type loginPageData struct {
	User               model.Profile `json:"user"`
	MustChangePassword bool          `json:"must_change_password"`
	RedirectTo         string        `json:"redirect_to"`
}

// Login exchanges credentials for a session. On success the gateway has
// already written the credential and profile atomically; the response tells
// the caller where to go next, which is the change-password step when the
// rotation flag came back armed.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	payload.Email = strings.TrimSpace(payload.Email)
	if payload.Email == "" || payload.Password == "" {
		writeError(w, apierror.New("BAD_REQUEST", "email and password are required", "", http.StatusBadRequest))
		return
	}

	sid := middleware.SIDFromContext(r.Context())
	user, mustChange, err := h.api.Login(r.Context(), sid, payload.Email, payload.Password)
	if err != nil {
		// A 401 here means the credentials were wrong, not that a session
		// expired.
		if errors.Is(err, model.ErrUnauthenticated) {
			err = model.ErrInvalidCredentials
		}
		writeError(w, err)
		return
	}

	redirect := gate.StaffHome
	if mustChange {
		redirect = middleware.ChangePasswordPath
	}

	writeSuccess(w, http.StatusOK, loginPageData{
		User:               user,
		MustChangePassword: mustChange,
		RedirectTo:         redirect,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SIDFromContext(r.Context())
	if err := h.api.Logout(r.Context(), sid); err != nil {
		writeError(w, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// ChangePasswordForm is the GET side of the rotation flow. If the server no
// longer requires a change the user is sent back to the dashboard instead of
// being shown a pointless form.
func (h *AuthHandler) ChangePasswordForm(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SIDFromContext(r.Context())
	if !h.rotation.Required(r.Context(), sid) {
		http.Redirect(w, r, gate.StaffHome, http.StatusFound)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"change_required": true,
	})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var payload model.ChangePasswordRequest
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	if payload.CurrentPassword == "" || payload.NewPassword == "" {
		writeError(w, apierror.New("BAD_REQUEST", "current_password and new_password are required", "", http.StatusBadRequest))
		return
	}

	sid := middleware.SIDFromContext(r.Context())
	if err := h.api.ChangePassword(r.Context(), sid, payload.CurrentPassword, payload.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	if err := h.rotation.OnPasswordChanged(r.Context(), sid); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"changed":     true,
		"redirect_to": gate.StaffHome,
	})
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthenticated)
		return
	}

	writeSuccess(w, http.StatusOK, profile)
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var payload model.UpdateProfileRequest
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	sid := middleware.SIDFromContext(r.Context())
	profile, err := h.api.UpdateProfile(r.Context(), sid, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, profile)
}
