package domain

import "time"

// CameraEvent is a camera ON/OFF report carried by a status line
type CameraEvent struct {
	Camera int  `json:"camera"`
	On     bool `json:"on"`
}

// StatusMessage is a decoded "$"-prefixed line from the payload
type StatusMessage struct {
	Raw     string `json:"raw"`
	Text    string `json:"text"`
	IsError bool   `json:"is_error"`

	// HasMissionInfo is set when the text carried a {MODE|STATE} block
	HasMissionInfo bool   `json:"has_mission_info"`
	MissionMode    string `json:"mission_mode,omitempty"`
	MissionState   string `json:"mission_state,omitempty"`

	CameraEvents []CameraEvent `json:"camera_events,omitempty"`
	BeginSimp    bool          `json:"begin_simp"`
	LogfileBegin bool          `json:"logfile_begin"`
	LogfileEnd   bool          `json:"logfile_end"`
}

// EventLevel classifies operator log entries
type EventLevel string

// Event levels
const (
	EventInfo   EventLevel = "info"
	EventRemote EventLevel = "remote"
	EventError  EventLevel = "error"
)

// Event is one entry of the operator log
type Event struct {
	Time    time.Time  `json:"time"`
	Level   EventLevel `json:"level"`
	Message string     `json:"message"`
	// Repeat counts consecutive identical messages folded into this entry
	Repeat int `json:"repeat"`
}

// Mission is one telemetry session between CX ON and CX OFF
type Mission struct {
	MissionID string     `json:"mission_id"`
	TeamID    int        `json:"team_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// IsActive reports whether the mission has not been ended
func (m *Mission) IsActive() bool {
	return m.EndedAt == nil
}

// GPSFix is the last received position
type GPSFix struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
	Time      string  `json:"time"`
}

// Valid reports whether the fix can be shown on a map
func (g *GPSFix) Valid() bool {
	return g != nil && g.Latitude != 0 && g.Longitude != 0
}

// Snapshot is the current station state as shown to operators
type Snapshot struct {
	TeamID          int        `json:"team_id"`
	PortOpen        bool       `json:"port_open"`
	PortName        string     `json:"port_name,omitempty"`
	Mode            Mode       `json:"mode,omitempty"`
	State           string     `json:"state,omitempty"`
	MissionTime     string     `json:"mission_time,omitempty"`
	PacketsReceived int        `json:"packets_received"`
	PacketsSent     int        `json:"packets_sent"`
	Satellites      string     `json:"satellites,omitempty"`
	CmdEcho         string     `json:"cmd_echo,omitempty"`
	Camera1On       *bool      `json:"camera1_on,omitempty"`
	Camera2On       *bool      `json:"camera2_on,omitempty"`
	GPS             *GPSFix    `json:"gps,omitempty"`
	Latest          *Telemetry `json:"latest,omitempty"`
	// RotationalAccel is the gyro delta between the last two packets (R, P, Y)
	RotationalAccel [3]float64 `json:"rotational_accel"`
	CapturingLogs   bool       `json:"capturing_logs"`
	SimReplay       bool       `json:"sim_replay"`
	Mission         *Mission   `json:"mission,omitempty"`
}

// MissionStats summarises the recorded packets of one mission
type MissionStats struct {
	MissionID    string     `json:"mission_id"`
	Packets      int        `json:"packets"`
	MaxAltitude  float64    `json:"max_altitude"`
	MinPressure  float64    `json:"min_pressure"`
	MinVoltage   float64    `json:"min_voltage"`
	LastPacketAt *time.Time `json:"last_packet_at,omitempty"`
}
