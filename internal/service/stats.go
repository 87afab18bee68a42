package service

import (
	"context"

	"github.com/rsx/cansat-groundstation/internal/domain"
	"github.com/rsx/cansat-groundstation/internal/repository"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 1000
)

// StatsService answers questions about recorded missions
type StatsService struct {
	missionRepo   repository.MissionRepository
	telemetryRepo repository.TelemetryRepository
	eventRepo     repository.EventRepository
}

// NewStatsService creates a new StatsService
func NewStatsService(
	missionRepo repository.MissionRepository,
	telemetryRepo repository.TelemetryRepository,
	eventRepo repository.EventRepository,
) *StatsService {
	return &StatsService{
		missionRepo:   missionRepo,
		telemetryRepo: telemetryRepo,
		eventRepo:     eventRepo,
	}
}

// resolveMission returns the mission ID to query; an empty ID means the latest mission
func (s *StatsService) resolveMission(ctx context.Context, missionID string) (string, error) {
	if missionID != "" {
		m, err := s.missionRepo.GetByID(ctx, missionID)
		if err != nil {
			return "", err
		}
		return m.MissionID, nil
	}
	m, err := s.missionRepo.Latest(ctx)
	if err != nil {
		return "", err
	}
	return m.MissionID, nil
}

// MissionStats summarises a mission's packets
func (s *StatsService) MissionStats(ctx context.Context, missionID string) (*domain.MissionStats, error) {
	id, err := s.resolveMission(ctx, missionID)
	if err != nil {
		return nil, err
	}
	return s.telemetryRepo.Stats(ctx, id)
}

// RecentTelemetry returns the latest packets of a mission, newest first
func (s *StatsService) RecentTelemetry(ctx context.Context, missionID string, limit int) ([]*domain.Telemetry, error) {
	id, err := s.resolveMission(ctx, missionID)
	if err != nil {
		return nil, err
	}
	return s.telemetryRepo.Recent(ctx, id, clampLimit(limit))
}

// EventHistory returns persisted operator log entries, newest first
func (s *StatsService) EventHistory(ctx context.Context, limit int) ([]domain.Event, error) {
	return s.eventRepo.List(ctx, clampLimit(limit))
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultRecentLimit
	case limit > maxRecentLimit:
		return maxRecentLimit
	default:
		return limit
	}
}
