package handler

import (
	"net/http"

	"github.com/rsx/cansat-groundstation/internal/domain"
	"github.com/rsx/cansat-groundstation/internal/service"
)

// TeamHandler serves the mission roster
type TeamHandler struct {
	teamService *service.TeamService
}

// NewTeamHandler creates a new TeamHandler
func NewTeamHandler(teamService *service.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

// RosterResponse is a team roster with its members grouped by mission role
type RosterResponse struct {
	TeamName        string              `json:"team_name"`
	Members         []domain.TeamMember `json:"members"`
	Roles           map[string][]string `json:"roles"`
	ActiveOperators int                 `json:"active_operators"`
}

// AddTeamResponse is the body returned by POST /team/add
type AddTeamResponse struct {
	Team RosterResponse `json:"team"`
}

func newRosterResponse(team *domain.Team) RosterResponse {
	return RosterResponse{
		TeamName:        team.TeamName,
		Members:         team.Members,
		Roles:           team.ByRole(),
		ActiveOperators: team.ActiveOperators(),
	}
}

// AddTeam handles POST /team/add. The whole roster is stored or none of it.
func (h *TeamHandler) AddTeam(w http.ResponseWriter, r *http.Request) {
	var team domain.Team
	if !decodeBody(w, r, &team, false) {
		return
	}

	created, err := h.teamService.AddTeam(r.Context(), &team)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusCreated, AddTeamResponse{Team: newRosterResponse(created)})
}

// GetTeam handles GET /team/get?team_name=...
func (h *TeamHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	teamName := r.URL.Query().Get("team_name")
	if teamName == "" {
		RespondWithError(w, r, http.StatusBadRequest, "BAD_REQUEST", "team_name query parameter is required")
		return
	}

	team, err := h.teamService.GetTeam(r.Context(), teamName)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, newRosterResponse(team))
}
