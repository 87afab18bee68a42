package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rsx/cansat-groundstation/internal/domain"
)

// PostgreSQL error codes the repositories translate
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// MemberRepository implements repository.MemberRepository for PostgreSQL
type MemberRepository struct {
	db *pgxpool.Pool
}

// NewMemberRepository creates a MemberRepository
func NewMemberRepository(db *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{db: db}
}

// GetByID returns a member by ID
func (r *MemberRepository) GetByID(ctx context.Context, memberID string) (*domain.Member, error) {
	query := `
		SELECT member_id, name, role, team_name, is_active
		FROM members
		WHERE member_id = $1
	`

	var m domain.Member
	err := r.db.QueryRow(ctx, query, memberID).Scan(
		&m.MemberID,
		&m.Name,
		&m.Role,
		&m.TeamName,
		&m.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}

	return &m, nil
}
