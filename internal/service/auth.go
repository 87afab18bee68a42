package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rsx/cansat-groundstation/internal/domain"
	"github.com/rsx/cansat-groundstation/internal/repository"
)

// Claims represents JWT claims of an operator session
type Claims struct {
	MemberID string `json:"member_id"`
	TeamName string `json:"team_name"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Session is an issued operator token and the roster member it was issued to
type Session struct {
	Token     string
	ExpiresAt time.Time
	Member    *domain.Member
}

// AuthService handles operator authentication and JWT operations
type AuthService struct {
	memberRepo repository.MemberRepository
	jwtSecret  string
	jwtExpiry  time.Duration
}

// NewAuthService creates a new AuthService
func NewAuthService(memberRepo repository.MemberRepository, jwtSecret string, jwtExpiry time.Duration) *AuthService {
	return &AuthService{
		memberRepo: memberRepo,
		jwtSecret:  jwtSecret,
		jwtExpiry:  jwtExpiry,
	}
}

// Login opens an operator session for an active roster member. The member's
// team and mission role travel in the token.
func (s *AuthService) Login(ctx context.Context, memberID string) (*Session, error) {
	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if !member.IsActive {
		return nil, fmt.Errorf("%w: %s is not an active operator", domain.ErrUnauthorized, member.MemberID)
	}

	now := time.Now()
	expiresAt := now.Add(s.jwtExpiry)
	claims := &Claims{
		MemberID: member.MemberID,
		TeamName: member.TeamName,
		Role:     member.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   member.MemberID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Session{Token: token, ExpiresAt: expiresAt, Member: member}, nil
}

// ValidateToken validates a JWT token and returns claims
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}

	return claims, nil
}
