package middleware

import (
	"net/http"
	"slices"

	"github.com/rs/cors"
)

// CORS builds the cross-origin policy. The portal session rides on a cookie,
// and browsers refuse Access-Control-Allow-Origin: * on credentialed
// requests, so credentials are only allowed once concrete origins are
// configured; the wildcard default serves uncredentialed use such as the
// public booking pages.
func CORS(origins []string) func(http.Handler) http.Handler {
	credentials := true
	if len(origins) == 0 || slices.Contains(origins, "*") {
		origins = []string{"*"}
		credentials = false
	}

	handler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		MaxAge:           3600,
		AllowCredentials: credentials,
	})

	return handler.Handler
}
