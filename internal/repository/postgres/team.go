package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rsx/cansat-groundstation/internal/domain"
)

// TeamRepository implements repository.TeamRepository for PostgreSQL
type TeamRepository struct {
	db *pgxpool.Pool
}

// NewTeamRepository creates a TeamRepository
func NewTeamRepository(db *pgxpool.Pool) *TeamRepository {
	return &TeamRepository{db: db}
}

// CreateWithMembers inserts the team and upserts its members in one transaction
func (r *TeamRepository) CreateWithMembers(ctx context.Context, team *domain.Team) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `INSERT INTO teams (team_name) VALUES ($1)`, team.TeamName); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrTeamExists
		}
		return err
	}

	memberQuery := `
		INSERT INTO members (member_id, name, role, team_name, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (member_id) DO UPDATE
		SET name = EXCLUDED.name,
		    role = EXCLUDED.role,
		    team_name = EXCLUDED.team_name,
		    is_active = EXCLUDED.is_active,
		    updated_at = NOW()
	`
	batch := &pgx.Batch{}
	for _, m := range team.Members {
		batch.Queue(memberQuery, m.MemberID, m.Name, m.Role, team.TeamName, m.IsActive)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("store roster of %s: %w", team.TeamName, err)
	}

	return tx.Commit(ctx)
}

// GetByName returns a team with its roster, ordered by role then name
func (r *TeamRepository) GetByName(ctx context.Context, teamName string) (*domain.Team, error) {
	query := `
		SELECT m.member_id, m.name, m.role, m.is_active
		FROM teams t
		LEFT JOIN members m ON m.team_name = t.team_name
		WHERE t.team_name = $1
		ORDER BY m.role, m.name
	`

	rows, err := r.db.Query(ctx, query, teamName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := false
	team := &domain.Team{TeamName: teamName, Members: []domain.TeamMember{}}
	for rows.Next() {
		found = true
		var (
			id, name, role *string
			active         *bool
		)
		if err := rows.Scan(&id, &name, &role, &active); err != nil {
			return nil, err
		}
		if id == nil {
			continue
		}
		team.Members = append(team.Members, domain.TeamMember{
			MemberID: *id,
			Name:     *name,
			Role:     *role,
			IsActive: active != nil && *active,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrTeamNotFound
	}

	return team, nil
}

// Exists reports whether the team exists
func (r *TeamRepository) Exists(ctx context.Context, teamName string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM teams WHERE team_name = $1)`

	var exists bool
	err := r.db.QueryRow(ctx, query, teamName).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	return exists, nil
}
