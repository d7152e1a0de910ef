package middleware

import (
	"context"
	"net/http"

	"salon-portal/internal/gate"
	"salon-portal/internal/model"
)

const profileContextKey contextKey = "profile"

// ChangePasswordPath is where rotation-pending sessions are sent.
const ChangePasswordPath = "/staff/change-password"

// GateMiddleware runs the authorization gate in front of protected routes,
// then the password-rotation interception on whatever the gate allowed.
type GateMiddleware struct {
	gate *gate.Gate
}

func NewGateMiddleware(g *gate.Gate) *GateMiddleware {
	return &GateMiddleware{gate: g}
}

// Protect wraps a route with one gate check per request. Denials resolve to
// a redirect, never an error page: unauthenticated sessions go to login,
// wrong-role sessions to their default page.
func (m *GateMiddleware) Protect(guard gate.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := SIDFromContext(r.Context())
			result := m.gate.Check(r.Context(), sid, guard)

			if result.Decision != gate.Allowed {
				http.Redirect(w, r, result.RedirectTo, http.StatusFound)
				return
			}

			if result.RotationPending && !guard.SkipRotation {
				http.Redirect(w, r, ChangePasswordPath, http.StatusFound)
				return
			}

			ctx := r.Context()
			if result.Profile != nil {
				ctx = context.WithValue(ctx, profileContextKey, result.Profile)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProfileFromContext returns the server-confirmed profile the gate stored
// for this request.
func ProfileFromContext(ctx context.Context) (*model.Profile, bool) {
	profile, ok := ctx.Value(profileContextKey).(*model.Profile)
	return profile, ok
}
