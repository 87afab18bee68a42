package repository

import (
	"context"

	"github.com/rsx/cansat-groundstation/internal/domain"
)

// MemberRepository looks up the roster members operators log in as
type MemberRepository interface {
	// GetByID returns a member by ID
	GetByID(ctx context.Context, memberID string) (*domain.Member, error)
}

// TeamRepository manages rosters
type TeamRepository interface {
	// CreateWithMembers stores the team and its roster atomically. Members listed
	// on another team move to this one.
	CreateWithMembers(ctx context.Context, team *domain.Team) error

	// GetByName returns a team with all members
	GetByName(ctx context.Context, teamName string) (*domain.Team, error)

	// Exists reports whether the team exists
	Exists(ctx context.Context, teamName string) (bool, error)
}

// MissionRepository manages telemetry sessions
type MissionRepository interface {
	// Start records a new mission
	Start(ctx context.Context, mission *domain.Mission) error

	// End marks the mission as finished (idempotent)
	End(ctx context.Context, missionID string) (*domain.Mission, error)

	// GetByID returns a mission
	GetByID(ctx context.Context, missionID string) (*domain.Mission, error)

	// Latest returns the most recently started mission
	Latest(ctx context.Context) (*domain.Mission, error)
}

// TelemetryRepository stores decoded packets
type TelemetryRepository interface {
	// Insert stores one packet for a mission (missionID may be empty)
	Insert(ctx context.Context, missionID string, t *domain.Telemetry) error

	// Recent returns up to limit packets of a mission, newest first
	Recent(ctx context.Context, missionID string, limit int) ([]*domain.Telemetry, error)

	// Stats summarises a mission's packets
	Stats(ctx context.Context, missionID string) (*domain.MissionStats, error)
}

// EventRepository stores the operator log
type EventRepository interface {
	// Append stores one event
	Append(ctx context.Context, missionID string, e domain.Event) error

	// List returns up to limit events, newest first
	List(ctx context.Context, limit int) ([]domain.Event, error)
}
