package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rsx/cansat-groundstation/internal/domain"
)

// MissionRepository implements repository.MissionRepository for PostgreSQL
type MissionRepository struct {
	db *pgxpool.Pool
}

// NewMissionRepository creates a MissionRepository
func NewMissionRepository(db *pgxpool.Pool) *MissionRepository {
	return &MissionRepository{db: db}
}

// Start records a new mission, ending any mission still open
func (r *MissionRepository) Start(ctx context.Context, mission *domain.Mission) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx) // no-op once committed
	}()

	if _, err := tx.Exec(ctx, `UPDATE missions SET ended_at = $1 WHERE ended_at IS NULL`, mission.StartedAt); err != nil {
		return err
	}

	query := `
		INSERT INTO missions (mission_id, team_id, started_at)
		VALUES ($1, $2, $3)
	`
	if _, err := tx.Exec(ctx, query, mission.MissionID, mission.TeamID, mission.StartedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return errors.New("mission already exists")
		}
		return err
	}

	return tx.Commit(ctx)
}

// End marks the mission as finished. Ending an ended mission returns it unchanged.
func (r *MissionRepository) End(ctx context.Context, missionID string) (*domain.Mission, error) {
	query := `
		UPDATE missions
		SET ended_at = COALESCE(ended_at, $2)
		WHERE mission_id = $1
		RETURNING mission_id, team_id, started_at, ended_at
	`

	return scanMission(r.db.QueryRow(ctx, query, missionID, time.Now().UTC()))
}

// GetByID returns a mission
func (r *MissionRepository) GetByID(ctx context.Context, missionID string) (*domain.Mission, error) {
	query := `
		SELECT mission_id, team_id, started_at, ended_at
		FROM missions
		WHERE mission_id = $1
	`

	return scanMission(r.db.QueryRow(ctx, query, missionID))
}

// Latest returns the most recently started mission
func (r *MissionRepository) Latest(ctx context.Context) (*domain.Mission, error) {
	query := `
		SELECT mission_id, team_id, started_at, ended_at
		FROM missions
		ORDER BY started_at DESC
		LIMIT 1
	`

	return scanMission(r.db.QueryRow(ctx, query))
}

func scanMission(row pgx.Row) (*domain.Mission, error) {
	var m domain.Mission
	if err := row.Scan(&m.MissionID, &m.TeamID, &m.StartedAt, &m.EndedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMissionNotFound
		}
		return nil, err
	}
	return &m, nil
}
