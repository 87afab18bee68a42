package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/rsx/cansat-groundstation/internal/service"
)

// AuthHandler opens operator sessions for roster members
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	MemberID string `json:"member_id"`
}

// OperatorProfile is the roster entry a session belongs to
type OperatorProfile struct {
	MemberID string `json:"member_id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	TeamName string `json:"team_name"`
}

// LoginResponse carries the issued token and who it was issued to
type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Operator  OperatorProfile `json:"operator"`
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	memberID := strings.TrimSpace(req.MemberID)
	if memberID == "" {
		RespondWithError(w, r, http.StatusBadRequest, "BAD_REQUEST", "member_id is required")
		return
	}

	session, err := h.authService.Login(r.Context(), memberID)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	m := session.Member
	RespondWithJSON(w, r, http.StatusOK, LoginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.UTC(),
		Operator: OperatorProfile{
			MemberID: m.MemberID,
			Name:     m.Name,
			Role:     m.Role,
			TeamName: m.TeamName,
		},
	})
}
