package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// CommandRateLimit throttles uplink commands per operator. Requests without an
// authenticated member fall back to the client IP.
func CommandRateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		perMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if op, ok := OperatorFromContext(r.Context()); ok && op.MemberID != "" {
				return "member:" + op.MemberID, nil
			}
			return httprate.KeyByIP(r)
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":"RATE_LIMITED","message":"too many commands, slow down"}}`))
		}),
	)
}
