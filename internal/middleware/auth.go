package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rsx/cansat-groundstation/internal/service"
)

type operatorKey struct{}

// Operator is the roster member behind an authenticated request
type Operator struct {
	MemberID string `json:"member_id"`
	TeamName string `json:"team_name"`
	Role     string `json:"role"`
}

// WithOperator returns a copy of ctx carrying op
func WithOperator(ctx context.Context, op Operator) context.Context {
	return context.WithValue(ctx, operatorKey{}, op)
}

// OperatorFromContext returns the operator set by AuthMiddleware
func OperatorFromContext(ctx context.Context) (Operator, bool) {
	op, ok := ctx.Value(operatorKey{}).(Operator)
	return op, ok
}

// AuthMiddleware validates bearer JWTs. Browsers cannot set headers on websocket
// upgrades, so a token query parameter is accepted as well.
func AuthMiddleware(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, msg := bearerToken(r)
			if token == "" {
				unauthorized(w, msg)
				return
			}

			claims, err := authService.ValidateToken(token)
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}

			ctx := WithOperator(r.Context(), Operator{
				MemberID: claims.MemberID,
				TeamName: claims.TeamName,
				Role:     claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if q := r.URL.Query().Get("token"); q != "" {
			return q, ""
		}
		return "", "missing authorization header"
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", "invalid authorization header format"
	}
	return parts[1], ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"` + msg + `"}}`))
}
