// Package station holds the live mission state of the ground station. It consumes
// every line the ground port receives and carries out operator commands.
package station

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rsx/cansat-groundstation/internal/bus"
	"github.com/rsx/cansat-groundstation/internal/command"
	"github.com/rsx/cansat-groundstation/internal/config"
	"github.com/rsx/cansat-groundstation/internal/domain"
	"github.com/rsx/cansat-groundstation/internal/link"
	"github.com/rsx/cansat-groundstation/internal/log"
	"github.com/rsx/cansat-groundstation/internal/metrics"
	"github.com/rsx/cansat-groundstation/internal/recorder"
	"github.com/rsx/cansat-groundstation/internal/repository"
	"github.com/rsx/cansat-groundstation/internal/series"
	"github.com/rsx/cansat-groundstation/internal/telemetry"
)

// Series names
const (
	SeriesAltitude        = "altitude"
	SeriesTemperature     = "temperature"
	SeriesPressure        = "pressure"
	SeriesVoltage         = "voltage"
	SeriesGyro            = "gyro"
	SeriesRotationalAccel = "rotational_accel"
	SeriesAccel           = "accel"
	SeriesMag             = "mag"
	SeriesRotation        = "rotation"
	SeriesGPS             = "gps"
	SeriesGPSAltitude     = "gps_altitude"
)

// Initial GPS track position shown before the first fix
var gpsTrackOrigin = []float64{38.149574, 79.0737}

const (
	persistTimeout   = 2 * time.Second
	persistQueueSize = 256
)

type persistJob struct {
	missionID string
	packet    *domain.Telemetry
}

// Uplink is the ground port as seen by the station
type Uplink interface {
	Open(name string) error
	Close() error
	IsOpen() bool
	Name() string
	Send(line string) error
	Ports() ([]link.PortInfo, error)
}

// Deps are the collaborators of a Station
type Deps struct {
	Link      Uplink
	CSV       *recorder.CSV
	Logfile   *recorder.LogCapture
	Missions  repository.MissionRepository
	Telemetry repository.TelemetryRepository
	Events    repository.EventRepository
	Bus       bus.Bus
}

// Station is the ground station core. It implements link.Handler.
type Station struct {
	cfg    config.StationConfig
	deps   Deps
	series *series.Set
	events *EventLog
	logger zerolog.Logger
	now    func() time.Time

	mu          sync.Mutex
	teamID      int
	mode        domain.Mode
	state       string
	missionTime string
	received    int
	sent        int
	satellites  string
	cmdEcho     string
	camera1     *bool
	camera2     *bool
	gps         *domain.GPSFix
	latest      *domain.Telemetry
	lastGyro    [3]float64
	rotAccel    [3]float64
	mission     *domain.Mission

	simpCancel context.CancelFunc
	simpDone   chan struct{}

	persistQ    chan persistJob
	stop        chan struct{}
	persistDone chan struct{}
	closeOnce   sync.Once
}

// New creates a Station and starts its telemetry writer. Close stops it.
func New(cfg config.StationConfig, deps Deps) *Station {
	s := &Station{
		cfg:         cfg,
		deps:        deps,
		series:      newSeriesSet(cfg.SeriesWindow),
		events:      NewEventLog(cfg.EventLogSize),
		logger:      log.WithComponent("station"),
		now:         time.Now,
		teamID:      cfg.TeamID,
		persistQ:    make(chan persistJob, persistQueueSize),
		stop:        make(chan struct{}),
		persistDone: make(chan struct{}),
	}
	go s.persistLoop()
	return s
}

func newSeriesSet(size int) *series.Set {
	set := series.NewSet()
	set.Add(series.NewWindow(SeriesAltitude, "m", 1, size, nil))
	set.Add(series.NewWindow(SeriesTemperature, "°C", 1, size, nil))
	set.Add(series.NewWindow(SeriesPressure, "kPa", 1, size, nil))
	set.Add(series.NewWindow(SeriesVoltage, "V", 1, size, nil))
	set.Add(series.NewWindow(SeriesGyro, "deg/s", 3, size, nil))
	set.Add(series.NewWindow(SeriesRotationalAccel, "deg/s^2", 3, size, nil))
	set.Add(series.NewWindow(SeriesAccel, "m/s^2", 3, size, nil))
	set.Add(series.NewWindow(SeriesMag, "G", 3, size, nil))
	set.Add(series.NewWindow(SeriesRotation, "deg/s", 1, size, nil))
	set.Add(series.NewWindow(SeriesGPS, "deg", 2, size, gpsTrackOrigin))
	set.Add(series.NewWindow(SeriesGPSAltitude, "m", 1, size, nil))
	return set
}

// HandleLine processes one line received from the ground port
func (s *Station) HandleLine(line string) {
	if s.deps.Logfile.Active() {
		s.captureLogLine(line)
		return
	}

	switch telemetry.Classify(line) {
	case telemetry.LineEmpty:
		return
	case telemetry.LineStatus:
		s.handleStatus(line)
	default:
		s.handleTelemetry(line)
	}
}

// HandleLinkError reports a failure of the ground port
func (s *Station) HandleLinkError(err error) {
	s.logEvent(domain.EventError, err.Error())
}

func (s *Station) captureLogLine(line string) {
	if err := s.deps.Logfile.WriteLine(line); err != nil {
		s.logger.Error().Err(err).Msg("logfile write failed")
	}
	if !strings.Contains(line, telemetry.LogfileEndMarker) {
		return
	}
	n, err := s.deps.Logfile.End()
	if err != nil {
		s.logEvent(domain.EventError, fmt.Sprintf("ERROR: Could not save log data - %v", err))
		return
	}
	s.logger.Info().Int("lines", n).Str("path", s.deps.Logfile.Path()).Msg("logfile received")
	s.logEvent(domain.EventInfo, "Finished uploading log data")
}

func (s *Station) handleStatus(line string) {
	msg := telemetry.ParseStatus(line)

	if msg.LogfileBegin {
		if err := s.deps.Logfile.Begin(); err != nil {
			s.logEvent(domain.EventError, fmt.Sprintf("ERROR: Could not open logfile - %v", err))
			return
		}
		s.captureLogLine(line)
		return
	}

	severity := "info"
	if msg.IsError {
		severity = "error"
	}
	metrics.IncStatus(severity)

	s.mu.Lock()
	for _, ev := range msg.CameraEvents {
		on := ev.On
		if ev.Camera == 1 {
			s.camera1 = &on
		} else {
			s.camera2 = &on
		}
	}
	if msg.HasMissionInfo {
		s.mode = domain.Mode(msg.MissionMode)
		s.state = msg.MissionState
	}
	startReplay := msg.BeginSimp && s.mode == domain.ModeSim
	s.mu.Unlock()

	if err := s.deps.CSV.WriteEcho(line); err != nil {
		s.logger.Error().Err(err).Msg("csv write failed")
	}

	if startReplay {
		s.startSimReplay()
	}

	level := domain.EventRemote
	if msg.IsError {
		level = domain.EventError
	}
	s.logEvent(level, "-> "+msg.Text)
	s.publish(bus.TopicStatus, msg)
}

func (s *Station) handleTelemetry(line string) {
	now := s.now()

	s.mu.Lock()
	s.received++
	recv := s.received
	s.mu.Unlock()

	t, err := telemetry.ParseTelemetry(line, recv, now)
	if err != nil {
		if errors.Is(err, telemetry.ErrEmptyPacket) {
			return
		}
		metrics.PacketsMalformedTotal.Inc()
		s.logger.Warn().Err(err).Str("line", line).Msg("telemetry rejected")
		s.logEvent(domain.EventError, fmt.Sprintf("ERROR: Malformed telemetry - %v", err))
		return
	}
	metrics.PacketsReceivedTotal.Inc()

	s.updateSeries(now, t)

	s.mu.Lock()
	s.applyTelemetryLocked(t)
	missionID := ""
	if s.mission != nil && s.mission.IsActive() {
		missionID = s.mission.MissionID
	}
	s.mu.Unlock()

	if t.Has(domain.FieldAltitude) {
		metrics.LastAltitude.Set(t.Altitude)
	}
	if err := s.deps.CSV.WriteTelemetry(t); err != nil {
		s.logger.Error().Err(err).Msg("csv write failed")
	}

	s.enqueuePersist(persistJob{missionID: missionID, packet: t})
	s.publish(bus.TopicTelemetry, t)
}

// enqueuePersist hands a packet to the telemetry writer. The serial reader never
// waits on the database: when the queue is full the packet is only kept in the CSV.
func (s *Station) enqueuePersist(job persistJob) {
	select {
	case <-s.stop:
		return
	default:
	}
	select {
	case s.persistQ <- job:
	default:
		metrics.PersistDroppedTotal.Inc()
		s.logger.Warn().Int("packet_recv", job.packet.PacketRecv).Msg("persist queue full, packet not stored")
	}
}

func (s *Station) persistLoop() {
	defer close(s.persistDone)
	for {
		select {
		case job := <-s.persistQ:
			s.persist(job)
		case <-s.stop:
			for {
				select {
				case job := <-s.persistQ:
					s.persist(job)
				default:
					return
				}
			}
		}
	}
}

func (s *Station) persist(job persistJob) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.deps.Telemetry.Insert(ctx, job.missionID, job.packet); err != nil {
		s.logger.Error().Err(err).Int("packet_recv", job.packet.PacketRecv).Msg("telemetry persist failed")
	}
}

func (s *Station) updateSeries(now time.Time, t *domain.Telemetry) {
	add := func(name string, values ...float64) {
		if w, ok := s.series.Get(name); ok {
			w.Add(now, values...)
		}
	}

	if t.Has(domain.FieldAltitude) {
		add(SeriesAltitude, t.Altitude)
	}
	if t.Has(domain.FieldTemperature) {
		add(SeriesTemperature, t.Temperature)
	}
	if t.Has(domain.FieldPressure) {
		add(SeriesPressure, t.Pressure)
	}
	if t.Has(domain.FieldVoltage) {
		add(SeriesVoltage, t.Voltage)
	}
	if t.Has(domain.FieldGyroY) {
		add(SeriesGyro, t.GyroR, t.GyroP, t.GyroY)

		s.mu.Lock()
		diff := [3]float64{t.GyroR - s.lastGyro[0], t.GyroP - s.lastGyro[1], t.GyroY - s.lastGyro[2]}
		s.lastGyro = [3]float64{t.GyroR, t.GyroP, t.GyroY}
		s.rotAccel = diff
		s.mu.Unlock()
		add(SeriesRotationalAccel, diff[:]...)
	}
	if t.Has(domain.FieldAccelY) {
		add(SeriesAccel, t.AccelR, t.AccelP, t.AccelY)
	}
	if t.Has(domain.FieldMagY) {
		add(SeriesMag, t.MagR, t.MagP, t.MagY)
	}
	if t.Has(domain.FieldRotationRate) {
		add(SeriesRotation, t.RotationRate)
	}
	if t.Has(domain.FieldGPSAltitude) {
		add(SeriesGPSAltitude, t.GPSAltitude)
	}
	if t.Has(domain.FieldGPSLongitude) {
		add(SeriesGPS, t.GPSLatitude, t.GPSLongitude)
	}
}

func (s *Station) applyTelemetryLocked(t *domain.Telemetry) {
	s.latest = t
	if t.Has(domain.FieldMissionTime) {
		s.missionTime = t.MissionTime
	}
	if t.Has(domain.FieldPacketCount) {
		s.sent = t.PacketCount
	}
	if t.Has(domain.FieldMode) {
		if mode, ok := domain.ModeFromCode(t.Mode); ok {
			s.mode = mode
		}
	}
	if t.Has(domain.FieldState) {
		s.state = t.State
	}
	if t.Has(domain.FieldGPSSats) {
		s.satellites = t.GPSSats
	}
	if t.Has(domain.FieldCmdEcho) {
		s.cmdEcho = t.CmdEcho
	}
	if t.Has(domain.FieldCamStatus) {
		c1, c2 := t.CamStatus.Camera1On(), t.CamStatus.Camera2On()
		s.camera1, s.camera2 = &c1, &c2
	}
	if t.Has(domain.FieldGPSLongitude) {
		fix := &domain.GPSFix{Latitude: t.GPSLatitude, Longitude: t.GPSLongitude, Time: t.GPSTime}
		if t.Has(domain.FieldGPSAltitude) {
			fix.Altitude = t.GPSAltitude
		}
		s.gps = fix
	}
}

// logEvent adds an entry to the operator log, persists new entries and publishes them
func (s *Station) logEvent(level domain.EventLevel, msg string) {
	e, folded := s.events.Add(s.now(), level, msg)

	ev := s.logger.Info()
	if level == domain.EventError {
		ev = s.logger.Warn()
	}
	ev.Str("level", string(level)).Int("repeat", e.Repeat).Msg(msg)

	if !folded {
		s.mu.Lock()
		missionID := ""
		if s.mission != nil {
			missionID = s.mission.MissionID
		}
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		if err := s.deps.Events.Append(ctx, missionID, e); err != nil {
			s.logger.Error().Err(err).Msg("event persist failed")
		}
		cancel()
	}
	s.publish(bus.TopicEvent, e)
}

func (s *Station) publish(topic string, msg bus.Message) {
	if s.deps.Bus == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = s.deps.Bus.Publish(ctx, topic, msg)
}

// startSimReplay loads the SIMP profile and feeds it to the payload, one line per
// interval. A replay already running is replaced.
func (s *Station) startSimReplay() {
	raw, err := os.ReadFile(s.cfg.SimProfilePath)
	if err != nil {
		s.logger.Error().Err(err).Str("path", s.cfg.SimProfilePath).Msg("simp profile unavailable")
		s.logEvent(domain.EventError, fmt.Sprintf("ERROR: Could not find SIMP data file %s!", s.cfg.SimProfilePath))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	lines := command.NewBuilder(s.teamID).ParseSimProfile(string(raw))
	previous := s.simpCancel
	s.simpCancel, s.simpDone = cancel, done
	s.mu.Unlock()

	// Runs on the serial reader: the old replay may be inside Link.Send, so it
	// is canceled but not waited for.
	if previous != nil {
		previous()
	}

	s.logger.Info().Int("lines", len(lines)).Dur("interval", s.cfg.SimInterval).Msg("simp replay started")
	go s.runSimReplay(ctx, lines, done)
}

func (s *Station) runSimReplay(ctx context.Context, lines []string, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.SimInterval)
	defer ticker.Stop()

	for _, line := range lines {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := s.deps.Link.Send(line); err != nil {
			if errors.Is(err, domain.ErrPortClosed) {
				s.logger.Warn().Msg("simp replay stopped, ground port closed")
				return
			}
			s.logger.Warn().Err(err).Msg("simp send failed")
			continue
		}
		metrics.IncCommand(string(command.TypeSimP))
	}
	s.logger.Info().Msg("simp replay finished")
}

// stopSimReplay stops a running replay and waits for it to exit
func (s *Station) stopSimReplay() {
	s.mu.Lock()
	cancel, done := s.simpCancel, s.simpDone
	s.simpCancel, s.simpDone = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Station) simReplayRunning() bool {
	s.mu.Lock()
	done := s.simpDone
	s.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Close stops background work and waits for queued telemetry to be stored.
// Calling Close more than once is a no-op.
func (s *Station) Close() {
	s.closeOnce.Do(func() {
		s.stopSimReplay()
		s.deps.Logfile.Abort()
		close(s.stop)
		<-s.persistDone
	})
}
