package handler

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/rsx/cansat-groundstation/internal/config"
	"github.com/rsx/cansat-groundstation/internal/domain"
	"github.com/rsx/cansat-groundstation/internal/link"
	"github.com/rsx/cansat-groundstation/internal/recorder"
	"github.com/rsx/cansat-groundstation/internal/service"
	"github.com/rsx/cansat-groundstation/internal/station"
)

type stubUplink struct {
	mu      sync.Mutex
	open    bool
	name    string
	sent    []string
	openErr error
}

func (u *stubUplink) Open(name string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if name == "" {
		return domain.ErrNoPortSelected
	}
	if u.open {
		return fmt.Errorf("%w on %s", domain.ErrPortAlreadyOpen, u.name)
	}
	if u.openErr != nil {
		return u.openErr
	}
	u.open, u.name = true, name
	return nil
}

func (u *stubUplink) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.open, u.name = false, ""
	return nil
}

func (u *stubUplink) IsOpen() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.open
}

func (u *stubUplink) Name() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.name
}

func (u *stubUplink) Send(line string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.open {
		return domain.ErrPortClosed
	}
	u.sent = append(u.sent, line)
	return nil
}

func (u *stubUplink) Ports() ([]link.PortInfo, error) {
	return []link.PortInfo{{Name: "/dev/ttyUSB0"}}, nil
}

func (u *stubUplink) Sent() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.sent...)
}

// store keeps every repository in memory
type store struct {
	mu       sync.Mutex
	teams    map[string]bool
	members  map[string]*domain.Member
	missions map[string]*domain.Mission
	latest   string
	packets  map[string][]*domain.Telemetry
	events   []domain.Event
}

func newStore() *store {
	return &store{
		teams:   map[string]bool{"RSX": true},
		members: map[string]*domain.Member{
			"ground-1": {MemberID: "ground-1", Name: "Alex", Role: "Ground Station Lead", TeamName: "RSX", IsActive: true},
		},
		missions: make(map[string]*domain.Mission),
		packets:  make(map[string][]*domain.Telemetry),
	}
}

func (s *store) GetByID(_ context.Context, id string) (*domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return nil, domain.ErrMemberNotFound
	}
	cp := *m
	return &cp, nil
}

type teamStore struct{ *store }

func (s teamStore) CreateWithMembers(_ context.Context, team *domain.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.teams[team.TeamName] {
		return domain.ErrTeamExists
	}
	s.teams[team.TeamName] = true
	for _, m := range team.Members {
		s.members[m.MemberID] = &domain.Member{
			MemberID: m.MemberID,
			Name:     m.Name,
			Role:     m.Role,
			TeamName: team.TeamName,
			IsActive: m.IsActive,
		}
	}
	return nil
}

func (s teamStore) Exists(_ context.Context, teamName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.teams[teamName], nil
}

func (s teamStore) GetByName(_ context.Context, teamName string) (*domain.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.teams[teamName] {
		return nil, domain.ErrTeamNotFound
	}
	team := &domain.Team{TeamName: teamName, Members: []domain.TeamMember{}}
	for _, m := range s.members {
		if m.TeamName == teamName {
			team.Members = append(team.Members, domain.TeamMember{MemberID: m.MemberID, Name: m.Name, Role: m.Role, IsActive: m.IsActive})
		}
	}
	sort.Slice(team.Members, func(i, j int) bool { return team.Members[i].MemberID < team.Members[j].MemberID })
	return team, nil
}

type missionStore struct{ *store }

func (s missionStore) Start(_ context.Context, m *domain.Mission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.missions[m.MissionID] = &cp
	s.latest = m.MissionID
	return nil
}

func (s missionStore) End(_ context.Context, id string) (*domain.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.missions[id]
	if !ok {
		return nil, domain.ErrMissionNotFound
	}
	if m.EndedAt == nil {
		now := time.Now().UTC()
		m.EndedAt = &now
	}
	cp := *m
	return &cp, nil
}

func (s missionStore) GetByID(_ context.Context, id string) (*domain.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.missions[id]
	if !ok {
		return nil, domain.ErrMissionNotFound
	}
	cp := *m
	return &cp, nil
}

func (s missionStore) Latest(ctx context.Context) (*domain.Mission, error) {
	s.mu.Lock()
	id := s.latest
	s.mu.Unlock()
	return s.GetByID(ctx, id)
}

type telemetryStore struct{ *store }

func (s telemetryStore) Insert(_ context.Context, missionID string, t *domain.Telemetry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packets[missionID] = append(s.packets[missionID], t)
	return nil
}

func (s telemetryStore) Recent(_ context.Context, missionID string, limit int) ([]*domain.Telemetry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.packets[missionID]
	var out []*domain.Telemetry
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s telemetryStore) Stats(_ context.Context, missionID string) (*domain.MissionStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &domain.MissionStats{MissionID: missionID, Packets: len(s.packets[missionID])}
	for _, p := range s.packets[missionID] {
		if p.Altitude > stats.MaxAltitude {
			stats.MaxAltitude = p.Altitude
		}
	}
	return stats, nil
}

type eventStore struct{ *store }

func (s eventStore) Append(_ context.Context, _ string, e domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s eventStore) List(_ context.Context, limit int) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Event
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}

type testAPI struct {
	router  http.Handler
	station *station.Station
	uplink  *stubUplink
	auth    *service.AuthService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	dir := t.TempDir()
	cfg := config.StationConfig{
		TeamID:           3114,
		SeriesWindow:     10,
		SimProfilePath:   filepath.Join(dir, "simp.txt"),
		SimInterval:      5 * time.Millisecond,
		CSVPath:          filepath.Join(dir, "data.csv"),
		LogfilePath:      filepath.Join(dir, "logs.txt"),
		CameraStatusWait: time.Millisecond,
		EventLogSize:     100,
	}

	csv, err := recorder.OpenCSV(cfg.CSVPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = csv.Close() })

	db := newStore()
	uplink := &stubUplink{open: true, name: "/dev/ttyUSB0"}
	st := station.New(cfg, station.Deps{
		Link:      uplink,
		CSV:       csv,
		Logfile:   recorder.NewLogCapture(cfg.LogfilePath),
		Missions:  missionStore{db},
		Telemetry: telemetryStore{db},
		Events:    eventStore{db},
	})
	t.Cleanup(st.Close)

	auth := service.NewAuthService(db, "secret", time.Hour)
	stats := service.NewStatsService(missionStore{db}, telemetryStore{db}, eventStore{db})

	authHandler := NewAuthHandler(auth)
	teamHandler := NewTeamHandler(service.NewTeamService(teamStore{db}))
	stationHandler := NewStationHandler(st)
	linkHandler := NewLinkHandler(st)
	commandHandler := NewCommandHandler(st)
	statsHandler := NewStatsHandler(stats)

	r := chi.NewRouter()
	r.Post("/auth/login", authHandler.Login)
	r.Post("/team/add", teamHandler.AddTeam)
	r.Get("/team/get", teamHandler.GetTeam)
	r.Get("/station", stationHandler.GetStation)
	r.Get("/station/events", stationHandler.GetEvents)
	r.Get("/station/events/history", statsHandler.GetEventHistory)
	r.Get("/station/series", stationHandler.ListSeries)
	r.Get("/station/series/{name}", stationHandler.GetSeries)
	r.Get("/station/map", stationHandler.GetMap)
	r.Post("/station/reset", stationHandler.Reset)
	r.Put("/station/team-id", stationHandler.SetTeamID)
	r.Get("/link/ports", linkHandler.ListPorts)
	r.Post("/link/open", linkHandler.Open)
	r.Post("/link/close", linkHandler.Close)
	r.Post("/commands/{action}", commandHandler.Send)
	r.Get("/stats/mission", statsHandler.GetMissionStats)
	r.Get("/telemetry/recent", statsHandler.GetRecentTelemetry)

	return &testAPI{router: r, station: st, uplink: uplink, auth: auth}
}
