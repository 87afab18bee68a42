package domain

import (
	"strconv"
	"time"
)

// Field identifies a downlink telemetry column by position
type Field int

// Downlink columns in transmission order
const (
	FieldTeamID Field = iota
	FieldMissionTime
	FieldPacketCount
	FieldMode
	FieldState
	FieldAltitude
	FieldTemperature
	FieldPressure
	FieldVoltage
	FieldGyroR
	FieldGyroP
	FieldGyroY
	FieldAccelR
	FieldAccelP
	FieldAccelY
	FieldMagR
	FieldMagP
	FieldMagY
	FieldRotationRate
	FieldGPSTime
	FieldGPSAltitude
	FieldGPSLatitude
	FieldGPSLongitude
	FieldGPSSats
	FieldCmdEcho
	FieldCamStatus

	// DownlinkFields is the number of columns the payload transmits
	DownlinkFields = int(FieldCamStatus) + 1
)

// CSVHeader lists the recorded columns: the downlink columns plus the ground receive counter
var CSVHeader = []string{
	"TEAM_ID", "MISSION_TIME", "PACKET_COUNT", "MODE", "STATE",
	"ALTITUDE", "TEMPERATURE", "PRESSURE", "VOLTAGE",
	"GYRO_R", "GYRO_P", "GYRO_Y",
	"ACCEL_R", "ACCEL_P", "ACCEL_Y",
	"MAG_R", "MAG_P", "MAG_Y",
	"AUTO_GYRO_ROTATION_RATE",
	"GPS_TIME", "GPS_ALTITUDE", "GPS_LATITUDE", "GPS_LONGITUDE", "GPS_SATS",
	"CMD_ECHO", "CAM_STATUS", "PACKET_RECV",
}

// String returns the column name
func (f Field) String() string {
	if f < 0 || int(f) >= DownlinkFields {
		return "UNKNOWN"
	}
	return CSVHeader[f]
}

// Mode is the payload operating mode
type Mode string

// Payload modes
const (
	ModeFlight Mode = "FLIGHT"
	ModeSim    Mode = "SIM"
)

// ModeFromCode converts the single-letter telemetry code into a Mode
func ModeFromCode(code string) (Mode, bool) {
	switch code {
	case "F":
		return ModeFlight, true
	case "S":
		return ModeSim, true
	default:
		return "", false
	}
}

// CameraStatus is the CAM_STATUS bitmask
type CameraStatus int

// Camera1On reports whether CAMERA1 is recording
func (c CameraStatus) Camera1On() bool { return c&1 != 0 }

// Camera2On reports whether CAMERA2 is recording
func (c CameraStatus) Camera2On() bool { return c&2 != 0 }

// Telemetry is one decoded downlink packet
type Telemetry struct {
	TeamID       int          `json:"team_id"`
	MissionTime  string       `json:"mission_time"`
	PacketCount  int          `json:"packet_count"`
	Mode         string       `json:"mode"`
	State        string       `json:"state"`
	Altitude     float64      `json:"altitude"`
	Temperature  float64      `json:"temperature"`
	Pressure     float64      `json:"pressure"`
	Voltage      float64      `json:"voltage"`
	GyroR        float64      `json:"gyro_r"`
	GyroP        float64      `json:"gyro_p"`
	GyroY        float64      `json:"gyro_y"`
	AccelR       float64      `json:"accel_r"`
	AccelP       float64      `json:"accel_p"`
	AccelY       float64      `json:"accel_y"`
	MagR         float64      `json:"mag_r"`
	MagP         float64      `json:"mag_p"`
	MagY         float64      `json:"mag_y"`
	RotationRate float64      `json:"auto_gyro_rotation_rate"`
	GPSTime      string       `json:"gps_time"`
	GPSAltitude  float64      `json:"gps_altitude"`
	GPSLatitude  float64      `json:"gps_latitude"`
	GPSLongitude float64      `json:"gps_longitude"`
	GPSSats      string       `json:"gps_sats"`
	CmdEcho      string       `json:"cmd_echo"`
	CamStatus    CameraStatus `json:"cam_status"`

	// PacketRecv is the ground-side receive counter at the time this packet arrived
	PacketRecv int `json:"packet_recv"`
	// FieldCount is how many downlink columns the packet carried
	FieldCount int       `json:"field_count"`
	ReceivedAt time.Time `json:"received_at"`
	Raw        string    `json:"raw"`
}

// Has reports whether the packet carried the given column
func (t *Telemetry) Has(f Field) bool {
	return int(f) < t.FieldCount
}

// CSVRecord renders the packet in CSVHeader order; columns the packet did not carry are empty
func (t *Telemetry) CSVRecord() []string {
	rec := make([]string, len(CSVHeader))
	f := strconv.FormatFloat
	values := [DownlinkFields]string{
		strconv.Itoa(t.TeamID), t.MissionTime, strconv.Itoa(t.PacketCount), t.Mode, t.State,
		f(t.Altitude, 'f', -1, 64), f(t.Temperature, 'f', -1, 64), f(t.Pressure, 'f', -1, 64), f(t.Voltage, 'f', -1, 64),
		f(t.GyroR, 'f', -1, 64), f(t.GyroP, 'f', -1, 64), f(t.GyroY, 'f', -1, 64),
		f(t.AccelR, 'f', -1, 64), f(t.AccelP, 'f', -1, 64), f(t.AccelY, 'f', -1, 64),
		f(t.MagR, 'f', -1, 64), f(t.MagP, 'f', -1, 64), f(t.MagY, 'f', -1, 64),
		f(t.RotationRate, 'f', -1, 64),
		t.GPSTime, f(t.GPSAltitude, 'f', -1, 64), f(t.GPSLatitude, 'f', -1, 64), f(t.GPSLongitude, 'f', -1, 64), t.GPSSats,
		t.CmdEcho, strconv.Itoa(int(t.CamStatus)),
	}
	for i := 0; i < DownlinkFields && i < t.FieldCount; i++ {
		rec[i] = values[i]
	}
	rec[len(rec)-1] = strconv.Itoa(t.PacketRecv)
	return rec
}

// EchoRecord renders a status line as a CSV row with only CMD_ECHO filled
func EchoRecord(line string) []string {
	rec := make([]string, len(CSVHeader))
	rec[FieldCmdEcho] = line
	return rec
}
