package station

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rsx/cansat-groundstation/internal/command"
	"github.com/rsx/cansat-groundstation/internal/domain"
	"github.com/rsx/cansat-groundstation/internal/link"
	"github.com/rsx/cansat-groundstation/internal/metrics"
	"github.com/rsx/cansat-groundstation/internal/series"
)

const mapURLFormat = "https://www.google.com/maps/place/%v,%v"

func (s *Station) builder() command.Builder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return command.NewBuilder(s.teamID)
}

// send writes a command to the ground port and logs msg on success
func (s *Station) send(cmd command.Command, msg string) error {
	if s.deps.Logfile.Active() {
		return domain.ErrLinkBusy
	}
	if err := s.deps.Link.Send(cmd.String()); err != nil {
		if errors.Is(err, domain.ErrPortClosed) {
			s.logEvent(domain.EventError, "ERROR: Open port before sending data!")
		} else {
			s.logEvent(domain.EventError, err.Error())
		}
		return err
	}
	metrics.IncCommand(string(cmd.Type))
	s.logEvent(domain.EventInfo, msg)
	return nil
}

// Test checks the connection to the payload
func (s *Station) Test(ctx context.Context) error {
	return s.send(s.builder().Test(), "Sent test message")
}

// SetTime sets the payload mission time from GPS or from the ground clock (UTC)
func (s *Station) SetTime(ctx context.Context, fromGPS bool) error {
	b := s.builder()
	if fromGPS {
		return s.send(b.SetTimeGPS(), "Sent GPS Set Time Command")
	}
	cmd := b.SetTimeUTC(s.now())
	return s.send(cmd, fmt.Sprintf("Sent new mission time '%s'", cmd.Arg))
}

// Restart reboots the payload
func (s *Station) Restart(ctx context.Context) error {
	return s.send(s.builder().Restart(), "Sent restart signal")
}

// ProgramServo sets a servo position
func (s *Station) ProgramServo(ctx context.Context, id, value int) error {
	cmd, err := s.builder().Servo(id, value)
	if err != nil {
		s.logEvent(domain.EventError, "ERROR: Enter a valid servo # and value first!")
		return err
	}
	return s.send(cmd, fmt.Sprintf("Sent command to program %s to %d", command.ServoLabels[id], value))
}

// ToggleCamera toggles recording on one camera
func (s *Station) ToggleCamera(ctx context.Context, camera int) error {
	cmd, err := s.builder().ToggleCamera(camera)
	if err != nil {
		return err
	}
	return s.send(cmd, fmt.Sprintf("Sent CAMERA%d toggle command", camera))
}

// CameraStatus asks for the status of both cameras, one request after the other.
// It stops at the first request that cannot be built or sent.
func (s *Station) CameraStatus(ctx context.Context) error {
	b := s.builder()
	for i, camera := range []int{1, 2} {
		if i > 0 {
			if err := s.waitCameraStatus(ctx); err != nil {
				return err
			}
		}
		cmd, err := b.CameraStatus(camera)
		if err != nil {
			return err
		}
		if err := s.send(cmd, fmt.Sprintf("Requesting CAMERA%d status", camera)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Station) waitCameraStatus(ctx context.Context) error {
	timer := time.NewTimer(s.cfg.CameraStatusWait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ForceRelease releases the payload. The operator must confirm.
func (s *Station) ForceRelease(ctx context.Context, confirm bool) error {
	if !confirm {
		return domain.ErrConfirmationRequired
	}
	return s.send(s.builder().ForceRelease(), "Sent force payload release command")
}

// SetSimMode changes the payload simulation mode
func (s *Station) SetSimMode(ctx context.Context, mode command.SimMode) error {
	cmd, err := s.builder().Sim(mode)
	if err != nil {
		return err
	}
	return s.send(cmd, fmt.Sprintf("Sent simulation mode '%s'", mode))
}

// SimPressure sends one simulated pressure reading in pascals
func (s *Station) SimPressure(ctx context.Context, pascals string) error {
	cmd, err := s.builder().SimPressure(pascals)
	if err != nil {
		return err
	}
	return s.send(cmd, fmt.Sprintf("Sent simulated pressure '%s'", pascals))
}

// Calibrate zeroes the payload altitude
func (s *Station) Calibrate(ctx context.Context) error {
	return s.send(s.builder().Calibrate(), "Sent altitude calibration command")
}

// GetLogs requests the mission logfile. The transfer blocks the payload until it
// completes, so the operator must confirm.
func (s *Station) GetLogs(ctx context.Context, confirm bool) error {
	if !confirm {
		return domain.ErrConfirmationRequired
	}
	return s.send(s.builder().GetLogs(), "Attempting to retrieve log data...")
}

// StartMission switches telemetry on, clears the received count and plots, and
// opens a new mission record
func (s *Station) StartMission(ctx context.Context) (*domain.Mission, error) {
	s.mu.Lock()
	teamID := s.teamID
	s.mu.Unlock()

	if err := s.send(command.NewBuilder(teamID).Telemetry(true), "SENT TRANSMISSION ON COMMAND"); err != nil {
		return nil, err
	}

	s.series.ResetAll()
	mission := &domain.Mission{
		MissionID: uuid.NewString(),
		TeamID:    teamID,
		StartedAt: s.now().UTC(),
	}

	s.mu.Lock()
	s.received = 0
	s.lastGyro = [3]float64{}
	s.rotAccel = [3]float64{}
	s.mu.Unlock()

	if err := s.deps.Missions.Start(ctx, mission); err != nil {
		return nil, fmt.Errorf("start mission: %w", err)
	}

	s.mu.Lock()
	s.mission = mission
	s.mu.Unlock()

	s.logger.Info().Str("mission_id", mission.MissionID).Int("team_id", teamID).Msg("mission started")
	return mission, nil
}

// EndMission switches telemetry off and stops a running SIMP replay. The operator
// must confirm.
func (s *Station) EndMission(ctx context.Context, confirm bool) (*domain.Mission, error) {
	if !confirm {
		return nil, domain.ErrConfirmationRequired
	}
	if err := s.send(s.builder().Telemetry(false), "SENT TRANSMISSION OFF COMMAND"); err != nil {
		return nil, err
	}
	s.stopSimReplay()

	s.mu.Lock()
	current := s.mission
	s.mu.Unlock()
	if current == nil {
		return nil, nil
	}

	ended, err := s.deps.Missions.End(ctx, current.MissionID)
	if err != nil {
		return nil, fmt.Errorf("end mission: %w", err)
	}

	s.mu.Lock()
	s.mission = ended
	s.mu.Unlock()

	s.logger.Info().Str("mission_id", ended.MissionID).Msg("mission ended")
	return ended, nil
}

// ResetMission clears the operator logs, plots and CSV file and zeroes the packet counters
func (s *Station) ResetMission(ctx context.Context) error {
	s.events.Clear()
	s.series.ResetAll()

	s.mu.Lock()
	s.received = 0
	s.sent = 0
	s.mu.Unlock()

	if err := s.deps.CSV.Truncate(); err != nil {
		return fmt.Errorf("reset mission: %w", err)
	}
	s.logger.Info().Msg("mission reset")
	return nil
}

// SetTeamID changes the team ID stamped on outgoing commands
func (s *Station) SetTeamID(ctx context.Context, teamID int) error {
	if teamID <= 0 {
		return fmt.Errorf("%w: team id must be positive", domain.ErrInvalidCommand)
	}
	s.mu.Lock()
	s.teamID = teamID
	s.mu.Unlock()

	s.logEvent(domain.EventInfo, fmt.Sprintf("Updated ground station TEAM ID to '%d'", teamID))
	return nil
}

// OpenPort opens the ground port on the named device
func (s *Station) OpenPort(ctx context.Context, name string) error {
	if err := s.deps.Link.Open(name); err != nil {
		if errors.Is(err, domain.ErrNoPortSelected) {
			s.logEvent(domain.EventError, "Select port before connecting!")
			return err
		}
		s.logEvent(domain.EventInfo, fmt.Sprintf("FAILED to open port: %s!", name))
		return err
	}
	s.logEvent(domain.EventInfo, "Ground port opened")
	return nil
}

// ClosePort closes the ground port
func (s *Station) ClosePort(ctx context.Context) error {
	if !s.deps.Link.IsOpen() {
		return domain.ErrPortClosed
	}
	if err := s.deps.Link.Close(); err != nil {
		s.logEvent(domain.EventError, "ERROR: Could not close port!")
		return err
	}
	s.logEvent(domain.EventInfo, "Ground port was closed")
	return nil
}

// ListPorts lists the serial devices the ground port can be opened on
func (s *Station) ListPorts(ctx context.Context) ([]link.PortInfo, error) {
	ports, err := s.deps.Link.Ports()
	if err != nil {
		return nil, fmt.Errorf("list ports: %w", err)
	}
	return ports, nil
}

// MapURL returns a map link for the last GPS fix
func (s *Station) MapURL() (string, error) {
	s.mu.Lock()
	fix := s.gps
	s.mu.Unlock()

	if !fix.Valid() {
		return "", domain.ErrNoGPSFix
	}
	return fmt.Sprintf(mapURLFormat, fix.Latitude, fix.Longitude), nil
}

// Snapshot returns the current station state
func (s *Station) Snapshot() domain.Snapshot {
	portOpen := s.deps.Link.IsOpen()
	portName := s.deps.Link.Name()
	capturing := s.deps.Logfile.Active()
	replay := s.simReplayRunning()

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domain.Snapshot{
		TeamID:          s.teamID,
		PortOpen:        portOpen,
		PortName:        portName,
		Mode:            s.mode,
		State:           s.state,
		MissionTime:     s.missionTime,
		PacketsReceived: s.received,
		PacketsSent:     s.sent,
		Satellites:      s.satellites,
		CmdEcho:         s.cmdEcho,
		Camera1On:       copyBool(s.camera1),
		Camera2On:       copyBool(s.camera2),
		Latest:          s.latest,
		RotationalAccel: s.rotAccel,
		CapturingLogs:   capturing,
		SimReplay:       replay,
	}
	if s.gps != nil {
		fix := *s.gps
		snap.GPS = &fix
	}
	if s.mission != nil {
		m := *s.mission
		snap.Mission = &m
	}
	return snap
}

// Events returns the operator log and the error log, oldest first
func (s *Station) Events() (log, errs []domain.Event) {
	return s.events.Log(), s.events.Errors()
}

// Series returns a live plot window by name
func (s *Station) Series(name string) (*series.Window, error) {
	w, ok := s.series.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSeries, name)
	}
	return w, nil
}

// SeriesNames lists the available plot windows
func (s *Station) SeriesNames() []string {
	return s.series.Names()
}

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}
