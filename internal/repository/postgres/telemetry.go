package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rsx/cansat-groundstation/internal/domain"
)

// TelemetryRepository implements repository.TelemetryRepository for PostgreSQL.
// The searchable columns are stored next to the full packet in a jsonb column.
// A field the packet did not carry is stored as NULL so it stays out of the stats.
type TelemetryRepository struct {
	db *pgxpool.Pool
}

// NewTelemetryRepository creates a TelemetryRepository
func NewTelemetryRepository(db *pgxpool.Pool) *TelemetryRepository {
	return &TelemetryRepository{db: db}
}

// Insert stores one packet; an empty missionID stores it outside any mission
func (r *TelemetryRepository) Insert(ctx context.Context, missionID string, t *domain.Telemetry) error {
	query := `
		INSERT INTO telemetry_packets (
			mission_id, packet_recv, packet_count, mode, state,
			altitude, pressure, voltage, received_at, packet
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(ctx, query,
		nullableID(missionID),
		t.PacketRecv,
		t.PacketCount,
		t.Mode,
		t.State,
		present(t, domain.FieldAltitude, t.Altitude),
		present(t, domain.FieldPressure, t.Pressure),
		present(t, domain.FieldVoltage, t.Voltage),
		t.ReceivedAt,
		t,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return domain.ErrMissionNotFound
		}
		return err
	}

	return nil
}

// Recent returns up to limit packets of a mission, newest first
func (r *TelemetryRepository) Recent(ctx context.Context, missionID string, limit int) ([]*domain.Telemetry, error) {
	query := `
		SELECT packet
		FROM telemetry_packets
		WHERE mission_id = $1
		ORDER BY received_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, missionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	packets := []*domain.Telemetry{}
	for rows.Next() {
		var t domain.Telemetry
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		packets = append(packets, &t)
	}

	return packets, rows.Err()
}

// Stats summarises a mission's packets
func (r *TelemetryRepository) Stats(ctx context.Context, missionID string) (*domain.MissionStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(MAX(altitude), 0),
			COALESCE(MIN(pressure), 0),
			COALESCE(MIN(voltage), 0),
			MAX(received_at)
		FROM telemetry_packets
		WHERE mission_id = $1
	`

	stats := &domain.MissionStats{MissionID: missionID}
	err := r.db.QueryRow(ctx, query, missionID).Scan(
		&stats.Packets,
		&stats.MaxAltitude,
		&stats.MinPressure,
		&stats.MinVoltage,
		&stats.LastPacketAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return stats, nil
		}
		return nil, err
	}

	return stats, nil
}

func present(t *domain.Telemetry, field domain.Field, v float64) *float64 {
	if !t.Has(field) {
		return nil
	}
	return &v
}

func nullableID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
