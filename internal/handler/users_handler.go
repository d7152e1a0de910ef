package handler

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"salon-portal/internal/gateway"
	"salon-portal/internal/middleware"
	"salon-portal/internal/model"
	"salon-portal/pkg/apierror"
)

const recentUsersLimit = 10

// UsersHandler serves the admin-only user management pages.
type UsersHandler struct {
	api *gateway.Client
}

func NewUsersHandler(api *gateway.Client) *UsersHandler {
	return &UsersHandler{api: api}
}

func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SIDFromContext(r.Context())
	users, err := h.api.Users(r.Context(), sid)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, users)
}

// Recent lists the newest accounts, for the recent-users page.
func (h *UsersHandler) Recent(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SIDFromContext(r.Context())
	users, err := h.api.Users(r.Context(), sid)
	if err != nil {
		writeError(w, err)
		return
	}

	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt > users[j].CreatedAt
	})
	if len(users) > recentUsersLimit {
		users = users[:recentUsersLimit]
	}

	writeSuccess(w, http.StatusOK, users)
}

func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SIDFromContext(r.Context())
	user, err := h.api.User(r.Context(), sid, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user)
}

func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.RegisterRequest
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	payload.Email = strings.TrimSpace(payload.Email)
	payload.Name = strings.TrimSpace(payload.Name)
	if payload.Email == "" || payload.Name == "" {
		writeError(w, apierror.New("BAD_REQUEST", "name and email are required", "", http.StatusBadRequest))
		return
	}
	if !model.IsValidRole(payload.Role) {
		writeError(w, apierror.New("BAD_REQUEST", "invalid role", payload.Role, http.StatusBadRequest))
		return
	}

	sid := middleware.SIDFromContext(r.Context())
	user, err := h.api.Register(r.Context(), sid, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, user)
}

func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	var payload model.UpdateUserRequest
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	if payload.Role != "" && !model.IsValidRole(payload.Role) {
		writeError(w, apierror.New("BAD_REQUEST", "invalid role", payload.Role, http.StatusBadRequest))
		return
	}

	sid := middleware.SIDFromContext(r.Context())
	user, err := h.api.UpdateUser(r.Context(), sid, chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user)
}

func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SIDFromContext(r.Context())
	if err := h.api.DeleteUser(r.Context(), sid, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true})
}
