package service

import (
	"context"
	"strings"

	"github.com/rsx/cansat-groundstation/internal/domain"
	"github.com/rsx/cansat-groundstation/internal/repository"
)

// TeamService manages the mission roster
type TeamService struct {
	teamRepo repository.TeamRepository
}

// NewTeamService creates a new TeamService
func NewTeamService(teamRepo repository.TeamRepository) *TeamService {
	return &TeamService{
		teamRepo: teamRepo,
	}
}

// AddTeam validates a roster and stores it with all its members, or nothing at all
func (s *TeamService) AddTeam(ctx context.Context, team *domain.Team) (*domain.Team, error) {
	normalizeRoster(team)
	if err := team.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.teamRepo.Exists(ctx, team.TeamName)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrTeamExists
	}

	if err := s.teamRepo.CreateWithMembers(ctx, team); err != nil {
		return nil, err
	}

	return s.teamRepo.GetByName(ctx, team.TeamName)
}

// GetTeam returns a team with all members
func (s *TeamService) GetTeam(ctx context.Context, teamName string) (*domain.Team, error) {
	return s.teamRepo.GetByName(ctx, strings.TrimSpace(teamName))
}

func normalizeRoster(team *domain.Team) {
	team.TeamName = strings.TrimSpace(team.TeamName)
	for i := range team.Members {
		m := &team.Members[i]
		m.MemberID = strings.TrimSpace(m.MemberID)
		m.Name = strings.TrimSpace(m.Name)
		m.Role = strings.TrimSpace(m.Role)
	}
}
