package domain

import "strings"

// Team is the mission roster
type Team struct {
	TeamName string       `json:"team_name"`
	Members  []TeamMember `json:"members"`
}

// TeamMember is a roster entry as it appears inside Team.Members
type TeamMember struct {
	MemberID string `json:"member_id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// Member is a roster entry with its team attached. Operators log in as members.
type Member struct {
	MemberID string `json:"member_id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	TeamName string `json:"team_name"`
	IsActive bool   `json:"is_active"`
}

// Validate checks that the roster is non-empty and every entry has an id, a name and a role
func (t *Team) Validate() error {
	if strings.TrimSpace(t.TeamName) == "" {
		return ErrInvalidRoster
	}
	if len(t.Members) == 0 {
		return ErrInvalidRoster
	}
	seen := make(map[string]struct{}, len(t.Members))
	for _, m := range t.Members {
		if strings.TrimSpace(m.MemberID) == "" || strings.TrimSpace(m.Name) == "" || strings.TrimSpace(m.Role) == "" {
			return ErrInvalidRoster
		}
		if _, dup := seen[m.MemberID]; dup {
			return ErrInvalidRoster
		}
		seen[m.MemberID] = struct{}{}
	}
	return nil
}

// ByRole groups member names under their mission role, in roster order
func (t *Team) ByRole() map[string][]string {
	roles := make(map[string][]string)
	for _, m := range t.Members {
		roles[m.Role] = append(roles[m.Role], m.Name)
	}
	return roles
}

// ActiveOperators counts the members allowed to log in to the station
func (t *Team) ActiveOperators() int {
	n := 0
	for _, m := range t.Members {
		if m.IsActive {
			n++
		}
	}
	return n
}
