package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsx/cansat-groundstation/internal/domain"
	"github.com/rsx/cansat-groundstation/internal/service"
)

type oneMember struct{}

func (oneMember) GetByID(_ context.Context, id string) (*domain.Member, error) {
	if id != "ground-1" {
		return nil, domain.ErrMemberNotFound
	}
	return &domain.Member{MemberID: id, Name: "Alex", Role: "Ground Station Lead", TeamName: "RSX", IsActive: true}, nil
}

func authFixture(t *testing.T) (*service.AuthService, string) {
	t.Helper()
	auth := service.NewAuthService(oneMember{}, "secret", time.Hour)
	session, err := auth.Login(context.Background(), "ground-1")
	require.NoError(t, err)
	return auth, session.Token
}

func echoMember() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		op, ok := OperatorFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(op.MemberID + "@" + op.TeamName + " as " + op.Role))
	})
}

func TestAuthMiddleware(t *testing.T) {
	auth, token := authFixture(t)
	h := AuthMiddleware(auth)(echoMember())

	tests := []struct {
		name   string
		header string
		query  string
		status int
		body   string
	}{
		{name: "bearer", header: "Bearer " + token, status: http.StatusOK, body: "ground-1@RSX as Ground Station Lead"},
		{name: "query token", query: "?token=" + token, status: http.StatusOK, body: "ground-1@RSX as Ground Station Lead"},
		{name: "missing", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + token, status: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/station"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.body, rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"code":"UNAUTHORIZED"`)
			}
		})
	}
}

func TestCommandRateLimit(t *testing.T) {
	auth, token := authFixture(t)
	h := AuthMiddleware(auth)(CommandRateLimit(2)(echoMember()))

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/commands/test", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}

func TestCommandRateLimitDisabled(t *testing.T) {
	h := CommandRateLimit(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/commands/test", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
