package station

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rsx/cansat-groundstation/internal/bus"
	"github.com/rsx/cansat-groundstation/internal/config"
	"github.com/rsx/cansat-groundstation/internal/domain"
	"github.com/rsx/cansat-groundstation/internal/link"
	"github.com/rsx/cansat-groundstation/internal/recorder"
)

type fakeUplink struct {
	mu      sync.Mutex
	open    bool
	name    string
	sent    []string
	openErr error
	ports   []link.PortInfo
}

func (u *fakeUplink) Open(name string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if name == "" {
		return domain.ErrNoPortSelected
	}
	if u.openErr != nil {
		return u.openErr
	}
	u.open, u.name = true, name
	return nil
}

func (u *fakeUplink) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.open, u.name = false, ""
	return nil
}

func (u *fakeUplink) IsOpen() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.open
}

func (u *fakeUplink) Name() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.name
}

func (u *fakeUplink) Send(line string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.open {
		return domain.ErrPortClosed
	}
	u.sent = append(u.sent, line)
	return nil
}

func (u *fakeUplink) Ports() ([]link.PortInfo, error) { return u.ports, nil }

func (u *fakeUplink) Sent() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.sent...)
}

type fakeMissions struct {
	mu       sync.Mutex
	missions map[string]*domain.Mission
	latest   string
}

func newFakeMissions() *fakeMissions {
	return &fakeMissions{missions: make(map[string]*domain.Mission)}
}

func (r *fakeMissions) Start(_ context.Context, m *domain.Mission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.missions[m.MissionID] = &cp
	r.latest = m.MissionID
	return nil
}

func (r *fakeMissions) End(_ context.Context, id string) (*domain.Mission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.missions[id]
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

func (r *fakeMissions) GetByID(_ context.Context, id string) (*domain.Mission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.missions[id]
	if !ok {
		return nil, domain.ErrMissionNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMissions) Latest(ctx context.Context) (*domain.Mission, error) {
	r.mu.Lock()
	id := r.latest
	r.mu.Unlock()
	return r.GetByID(ctx, id)
}

type storedPacket struct {
	missionID string
	packet    *domain.Telemetry
}

type fakeTelemetry struct {
	mu      sync.Mutex
	packets []storedPacket
}

func (r *fakeTelemetry) Insert(_ context.Context, missionID string, t *domain.Telemetry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packets = append(r.packets, storedPacket{missionID: missionID, packet: t})
	return nil
}

func (r *fakeTelemetry) Recent(_ context.Context, missionID string, limit int) ([]*domain.Telemetry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Telemetry
	for i := len(r.packets) - 1; i >= 0 && len(out) < limit; i-- {
		if r.packets[i].missionID == missionID {
			out = append(out, r.packets[i].packet)
		}
	}
	return out, nil
}

func (r *fakeTelemetry) Stats(_ context.Context, missionID string) (*domain.MissionStats, error) {
	return &domain.MissionStats{MissionID: missionID}, nil
}

func (r *fakeTelemetry) Stored() []storedPacket {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]storedPacket(nil), r.packets...)
}

type fakeEvents struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *fakeEvents) Append(_ context.Context, _ string, e domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *fakeEvents) List(_ context.Context, limit int) ([]domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Event
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.events[i])
	}
	return out, nil
}

func (r *fakeEvents) Stored() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events...)
}

type fixture struct {
	station   *Station
	uplink    *fakeUplink
	missions  *fakeMissions
	telemetry *fakeTelemetry
	events    *fakeEvents
	bus       *bus.MemoryBus
	csv       *recorder.CSV
	dir       string
}

func testConfig(dir string) config.StationConfig {
	return config.StationConfig{
		TeamID:           3114,
		SeriesWindow:     10,
		SimProfilePath:   filepath.Join(dir, "simp.txt"),
		SimInterval:      5 * time.Millisecond,
		CSVPath:          filepath.Join(dir, "data.csv"),
		LogfilePath:      filepath.Join(dir, "logs.txt"),
		CameraStatusWait: time.Millisecond,
		EventLogSize:     100,
	}
}

func newFixture(t *testing.T, mutate ...func(*config.StationConfig)) *fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := testConfig(dir)
	for _, m := range mutate {
		m(&cfg)
	}

	csv, err := recorder.OpenCSV(cfg.CSVPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = csv.Close() })

	f := &fixture{
		uplink:    &fakeUplink{open: true, name: "COM3"},
		missions:  newFakeMissions(),
		telemetry: &fakeTelemetry{},
		events:    &fakeEvents{},
		bus:       bus.NewMemoryBus(16),
		csv:       csv,
		dir:       dir,
	}
	f.station = New(cfg, Deps{
		Link:      f.uplink,
		CSV:       csv,
		Logfile:   recorder.NewLogCapture(cfg.LogfilePath),
		Missions:  f.missions,
		Telemetry: f.telemetry,
		Events:    f.events,
		Bus:       f.bus,
	})
	t.Cleanup(f.station.Close)
	return f
}
