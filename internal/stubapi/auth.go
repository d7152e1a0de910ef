package stubapi

import (
	"context"
	"net/http"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"salon-portal/internal/model"
)

type contextKey string

const userKey contextKey = "stubapi.user"

func (s *Server) issueToken(user stubUser) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
		"iat":     now.Unix(),
		"exp":     now.Add(s.tokenTTL).Unix(),
	})
	return token.SignedString(s.jwtSecret)
}

func (s *Server) userFromToken(tokenString string) (stubUser, bool) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return stubUser{}, false
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return stubUser{}, false
	}
	userID, _ := claims["user_id"].(string)

	s.mu.RLock()
	defer s.mu.RUnlock()
	user, exists := s.usersByID[userID]
	return user, exists
}

// requireAuth validates the bearer token and enforces the pending password
// change: users flagged must_change_password are refused everywhere except
// the change-password endpoint itself.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			fail(w, http.StatusUnauthorized, "Authentication required", "")
			return
		}

		user, ok := s.userFromToken(strings.TrimPrefix(header, "Bearer "))
		if !ok {
			fail(w, http.StatusUnauthorized, "Invalid or expired token", "")
			return
		}

		if user.MustChangePassword && r.URL.Path != "/api/auth/change-password" {
			writeJSON(w, http.StatusForbidden, errorEnvelope{
				Error:              "Password change required",
				MustChangePassword: true,
			})
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

func (s *Server) requireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _ := r.Context().Value(userKey).(stubUser)
			if !slices.Contains(roles, user.Role) {
				fail(w, http.StatusForbidden, "Insufficient permissions", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func currentUser(r *http.Request) stubUser {
	user, _ := r.Context().Value(userKey).(stubUser)
	return user
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	s.mu.RLock()
	id, exists := s.usersByEmail[strings.ToLower(strings.TrimSpace(req.Email))]
	user := s.usersByID[id]
	s.mu.RUnlock()

	if !exists || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		fail(w, http.StatusUnauthorized, "Invalid email or password", "")
		return
	}

	token, err := s.issueToken(user)
	if err != nil {
		fail(w, http.StatusInternalServerError, "Could not issue token", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":              "Login successful",
		"token":                token,
		"user":                 user.profile(),
		"must_change_password": user.MustChangePassword,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r).profile())
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req model.ChangePasswordRequest
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if len(req.NewPassword) < 8 {
		fail(w, http.StatusBadRequest, "New password must be at least 8 characters", "")
		return
	}

	user := currentUser(r)
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
		fail(w, http.StatusUnauthorized, "Current password is incorrect", "")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), 12)
	if err != nil {
		fail(w, http.StatusInternalServerError, "Could not hash password", "")
		return
	}

	s.mu.Lock()
	user = s.usersByID[user.ID]
	user.PasswordHash = string(hash)
	user.MustChangePassword = false
	s.usersByID[user.ID] = user
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateProfileRequest
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	user := currentUser(r)

	s.mu.Lock()
	stored := s.usersByID[user.ID]
	if req.Name != "" {
		stored.Name = req.Name
	}
	if req.Email != "" && req.Email != stored.Email {
		if _, taken := s.usersByEmail[req.Email]; taken {
			s.mu.Unlock()
			fail(w, http.StatusConflict, "Email already in use", req.Email)
			return
		}
		delete(s.usersByEmail, stored.Email)
		stored.Email = req.Email
		s.usersByEmail[req.Email] = stored.ID
	}
	s.usersByID[user.ID] = stored
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, stored.profile())
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.Name == "" || req.Email == "" {
		fail(w, http.StatusBadRequest, "Name and email are required", "")
		return
	}
	if !model.IsValidRole(req.Role) {
		fail(w, http.StatusBadRequest, "Invalid role", req.Role)
		return
	}

	password := req.Password
	mustChange := false
	if password == "" {
		// Staff created without a password start on a temporary one and
		// must rotate it on first login.
		password = "changeme1"
		mustChange = true
	}

	s.mu.Lock()
	if _, exists := s.usersByEmail[req.Email]; exists {
		s.mu.Unlock()
		fail(w, http.StatusConflict, "Email already registered", req.Email)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		s.mu.Unlock()
		fail(w, http.StatusInternalServerError, "Could not hash password", "")
		return
	}
	user := stubUser{
		ID:                 uuid.NewString(),
		Name:               req.Name,
		Email:              req.Email,
		PasswordHash:       string(hash),
		Role:               req.Role,
		MustChangePassword: mustChange,
		CreatedAt:          time.Now(),
	}
	s.usersByID[user.ID] = user
	s.usersByEmail[user.Email] = user.ID
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered",
		"user":    user.profile(),
	})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	users := make([]model.Profile, 0, len(s.usersByID))
	for _, user := range s.usersByID {
		users = append(users, user.profile())
	}
	s.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt > users[j].CreatedAt })
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	user, exists := s.usersByID[chi.URLParam(r, "id")]
	s.mu.RUnlock()
	if !exists {
		fail(w, http.StatusNotFound, "User not found", "")
		return
	}
	writeJSON(w, http.StatusOK, user.profile())
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateUserRequest
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.Role != "" && !model.IsValidRole(req.Role) {
		fail(w, http.StatusBadRequest, "Invalid role", req.Role)
		return
	}

	s.mu.Lock()
	user, exists := s.usersByID[chi.URLParam(r, "id")]
	if !exists {
		s.mu.Unlock()
		fail(w, http.StatusNotFound, "User not found", "")
		return
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" && req.Email != user.Email {
		delete(s.usersByEmail, user.Email)
		user.Email = req.Email
		s.usersByEmail[user.Email] = user.ID
	}
	if req.Role != "" {
		user.Role = req.Role
	}
	s.usersByID[user.ID] = user
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, user.profile())
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	user, exists := s.usersByID[chi.URLParam(r, "id")]
	if exists {
		delete(s.usersByID, user.ID)
		delete(s.usersByEmail, user.Email)
	}
	s.mu.Unlock()

	if !exists {
		fail(w, http.StatusNotFound, "User not found", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
}
