package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const SessionCookieName = "portal_session"

type contextKey string

const sidContextKey contextKey = "session_id"

// SessionCookie makes sure every request carries a portal session ID,
// minting a cookie on first contact. The ID only keys the server-side
// session store; it proves nothing about authentication.
func SessionCookie(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := ""
		if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
			sid = cookie.Value
		}

		if sid == "" {
			sid = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    sid,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), sidContextKey, sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func SIDFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(sidContextKey).(string)
	return sid
}
