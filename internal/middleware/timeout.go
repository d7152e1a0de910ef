package middleware

import (
	"net/http"
	"time"
)

// Timeout caps how long one request may run. It sits after the gate in the
// chain, so a slow upstream probe counts against the budget too.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	body := `{"success":false,"error":{"code":"REQUEST_TIMEOUT","message":"The request took too long."}}`

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, body)
	}
}
