// Package command builds uplink command strings of the form CMD,<TEAM_ID>,<TYPE>,<ARG>.
package command

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rsx/cansat-groundstation/internal/domain"
)

// Type is an uplink command type
type Type string

// Uplink command types
const (
	TypeTest      Type = "TEST"
	TypeSetTime   Type = "ST"
	TypeRestart   Type = "RR"
	TypeMechanism Type = "MEC"
	TypeSim       Type = "SIM"
	TypeCalibrate Type = "CAL"
	TypeGetLogs   Type = "GTLOGS"
	TypeTelemetry Type = "CX"
	TypeSimP      Type = "SIMP"
)

// noArg is sent where a command takes no argument
const noArg = "X"

// Servo identifiers understood by the mechanism controller
const (
	ServoCamera       = 0
	ServoRelease      = 1
	ServoGyro         = 2
	ServoCameraGimbal = 3
)

const (
	maxServoValue     = 999
	teamIDPlaceholder = "$"
	simProfilePrefix  = "CMD,$,SIMP"
)

// ServoLabels names the servos for operator messages
var ServoLabels = map[int]string{
	ServoCamera:       "Camera [CPL3] [F]",
	ServoRelease:      "Release [CLP2] [F]",
	ServoGyro:         "Gyro [CPL1] [F]",
	ServoCameraGimbal: "Gyro [Camera] [B]",
}

// SimMode is the argument of a SIM command
type SimMode string

// Simulation mode transitions
const (
	SimEnable   SimMode = "ENABLE"
	SimActivate SimMode = "ACTIVATE"
	SimDisable  SimMode = "DISABLE"
)

// Command is one uplink command
type Command struct {
	TeamID int
	Type   Type
	Arg    string
}

// String renders the wire form without the trailing newline
func (c Command) String() string {
	return fmt.Sprintf("CMD,%d,%s,%s", c.TeamID, c.Type, c.Arg)
}

// Builder creates commands for a team
type Builder struct {
	TeamID int
}

// NewBuilder creates a Builder for the given team
func NewBuilder(teamID int) Builder {
	return Builder{TeamID: teamID}
}

func (b Builder) cmd(t Type, arg string) Command {
	return Command{TeamID: b.TeamID, Type: t, Arg: arg}
}

// Test checks that the payload answers
func (b Builder) Test() Command { return b.cmd(TypeTest, noArg) }

// SetTimeGPS asks the payload to take its mission time from GPS
func (b Builder) SetTimeGPS() Command { return b.cmd(TypeSetTime, "GPS") }

// SetTimeUTC sets the payload mission time to the given instant in UTC (hh:mm:ss)
func (b Builder) SetTimeUTC(now time.Time) Command {
	return b.cmd(TypeSetTime, now.UTC().Format("15:04:05"))
}

// Restart reboots the payload processor
func (b Builder) Restart() Command { return b.cmd(TypeRestart, noArg) }

// Servo programs servo id to value
func (b Builder) Servo(id, value int) (Command, error) {
	if _, ok := ServoLabels[id]; !ok {
		return Command{}, fmt.Errorf("%w: unknown servo %d", domain.ErrInvalidCommand, id)
	}
	if value < 0 || value > maxServoValue {
		return Command{}, fmt.Errorf("%w: servo value %d out of range 0..%d", domain.ErrInvalidCommand, value, maxServoValue)
	}
	return b.cmd(TypeMechanism, fmt.Sprintf("SERVO:%d|%d", id, value)), nil
}

// ToggleCamera toggles recording on CAMERA1 or CAMERA2
func (b Builder) ToggleCamera(camera int) (Command, error) {
	if camera != 1 && camera != 2 {
		return Command{}, fmt.Errorf("%w: unknown camera %d", domain.ErrInvalidCommand, camera)
	}
	return b.cmd(TypeMechanism, fmt.Sprintf("CAMERA%d:X", camera)), nil
}

// CameraStatus requests the status of one camera
func (b Builder) CameraStatus(camera int) (Command, error) {
	if camera != 1 && camera != 2 {
		return Command{}, fmt.Errorf("%w: unknown camera %d", domain.ErrInvalidCommand, camera)
	}
	return b.cmd(TypeMechanism, fmt.Sprintf("CAMERA%d_STAT:X", camera)), nil
}

// ForceRelease releases the payload immediately
func (b Builder) ForceRelease() Command { return b.cmd(TypeMechanism, "RELEASE:X") }

// Sim changes the simulation mode
func (b Builder) Sim(mode SimMode) (Command, error) {
	switch mode {
	case SimEnable, SimActivate, SimDisable:
		return b.cmd(TypeSim, string(mode)), nil
	default:
		return Command{}, fmt.Errorf("%w: unknown simulation mode %q", domain.ErrInvalidCommand, mode)
	}
}

// Calibrate zeroes the altitude reference
func (b Builder) Calibrate() Command { return b.cmd(TypeCalibrate, noArg) }

// GetLogs requests the mission logfile transfer
func (b Builder) GetLogs() Command { return b.cmd(TypeGetLogs, noArg) }

// Telemetry switches the downlink on or off
func (b Builder) Telemetry(on bool) Command {
	if on {
		return b.cmd(TypeTelemetry, "ON")
	}
	return b.cmd(TypeTelemetry, "OFF")
}

var simpArg = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

// SimPressure feeds one simulated pressure reading in pascals
func (b Builder) SimPressure(pascals string) (Command, error) {
	if !simpArg.MatchString(pascals) {
		return Command{}, fmt.Errorf("%w: simulated pressure %q is not a number", domain.ErrInvalidCommand, pascals)
	}
	return b.cmd(TypeSimP, pascals), nil
}

// ParseSimProfile extracts the SIMP lines of a simulation profile and stamps them
// with the team ID. Comment lines and other commands are skipped.
func (b Builder) ParseSimProfile(profile string) []string {
	var out []string
	id := strconv.Itoa(b.TeamID)
	for _, line := range strings.Split(profile, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, simProfilePrefix) {
			continue
		}
		out = append(out, strings.ReplaceAll(line, teamIDPlaceholder, id))
	}
	return out
}
