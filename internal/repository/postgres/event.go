package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rsx/cansat-groundstation/internal/domain"
)

// EventRepository implements repository.EventRepository for PostgreSQL
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository creates an EventRepository
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Append stores one operator log entry
func (r *EventRepository) Append(ctx context.Context, missionID string, e domain.Event) error {
	query := `
		INSERT INTO station_events (mission_id, level, message, repeat_count, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query, nullableID(missionID), string(e.Level), e.Message, e.Repeat, e.Time)
	return err
}

// List returns up to limit entries, newest first
func (r *EventRepository) List(ctx context.Context, limit int) ([]domain.Event, error) {
	query := `
		SELECT level, message, repeat_count, created_at
		FROM station_events
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		var (
			e     domain.Event
			level string
		)
		if err := rows.Scan(&level, &e.Message, &e.Repeat, &e.Time); err != nil {
			return nil, err
		}
		e.Level = domain.EventLevel(level)
		events = append(events, e)
	}

	return events, rows.Err()
}
