// Package telemetry decodes the CanSat downlink: comma-separated telemetry packets
// and "$"-prefixed status lines.
package telemetry

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rsx/cansat-groundstation/internal/domain"
)

// LineKind classifies a received line
type LineKind int

// Line kinds
const (
	LineEmpty LineKind = iota
	LineStatus
	LineTelemetry
)

func (k LineKind) String() string {
	switch k {
	case LineEmpty:
		return "empty"
	case LineStatus:
		return "status"
	case LineTelemetry:
		return "telemetry"
	default:
		return "unknown"
	}
}

var (
	// ErrEmptyPacket is returned for telemetry lines holding only commas or whitespace
	ErrEmptyPacket = errors.New("empty telemetry packet")
	// ErrMalformedPacket is returned when a numeric column cannot be decoded
	ErrMalformedPacket = errors.New("malformed telemetry packet")
)

// Status line markers
const (
	LogfileBeginMarker = "$LOGFILE:BEGIN"
	LogfileEndMarker   = "$LOGFILE:END"
	BeginSimpMarker    = "BEGIN_SIMP"
	unexpectedFormat   = "(UNEXPECTED FORMAT):"
)

var (
	msgPattern     = regexp.MustCompile(`MSG:(.+)`)
	missionPattern = regexp.MustCompile(`{(.+?)}`)
)

// Classify reports whether the line is empty, a status line or a telemetry packet
func Classify(line string) LineKind {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return LineEmpty
	case strings.HasPrefix(trimmed, "$"):
		return LineStatus
	default:
		return LineTelemetry
	}
}

// ParseTelemetry decodes a telemetry packet. Columns past the end of the line are
// absent (see Telemetry.Has). recv is the ground receive counter for this packet.
func ParseTelemetry(line string, recv int, receivedAt time.Time) (*domain.Telemetry, error) {
	if strings.TrimSpace(strings.ReplaceAll(line, ",", "")) == "" {
		return nil, ErrEmptyPacket
	}

	fields := strings.Split(line, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	n := len(fields)
	if n > domain.DownlinkFields {
		n = domain.DownlinkFields
	}

	t := &domain.Telemetry{
		PacketRecv: recv,
		FieldCount: n,
		ReceivedAt: receivedAt,
		Raw:        line,
	}
	d := decoder{fields: fields[:n]}

	t.TeamID = d.int(domain.FieldTeamID)
	t.MissionTime = d.str(domain.FieldMissionTime)
	t.PacketCount = d.int(domain.FieldPacketCount)
	t.Mode = d.str(domain.FieldMode)
	t.State = d.str(domain.FieldState)
	t.Altitude = d.float(domain.FieldAltitude)
	t.Temperature = d.float(domain.FieldTemperature)
	t.Pressure = d.float(domain.FieldPressure)
	t.Voltage = d.float(domain.FieldVoltage)
	t.GyroR = d.float(domain.FieldGyroR)
	t.GyroP = d.float(domain.FieldGyroP)
	t.GyroY = d.float(domain.FieldGyroY)
	t.AccelR = d.float(domain.FieldAccelR)
	t.AccelP = d.float(domain.FieldAccelP)
	t.AccelY = d.float(domain.FieldAccelY)
	t.MagR = d.float(domain.FieldMagR)
	t.MagP = d.float(domain.FieldMagP)
	t.MagY = d.float(domain.FieldMagY)
	t.RotationRate = d.float(domain.FieldRotationRate)
	t.GPSTime = d.str(domain.FieldGPSTime)
	t.GPSAltitude = d.float(domain.FieldGPSAltitude)
	t.GPSLatitude = d.float(domain.FieldGPSLatitude)
	t.GPSLongitude = d.float(domain.FieldGPSLongitude)
	t.GPSSats = d.str(domain.FieldGPSSats)
	t.CmdEcho = d.str(domain.FieldCmdEcho)
	t.CamStatus = domain.CameraStatus(d.int(domain.FieldCamStatus))

	if d.err != nil {
		return nil, d.err
	}
	return t, nil
}

// decoder reads positional columns and keeps the first decode error
type decoder struct {
	fields []string
	err    error
}

func (d *decoder) raw(f domain.Field) (string, bool) {
	if int(f) >= len(d.fields) {
		return "", false
	}
	return d.fields[f], true
}

func (d *decoder) str(f domain.Field) string {
	v, _ := d.raw(f)
	return v
}

func (d *decoder) float(f domain.Field) float64 {
	v, ok := d.raw(f)
	if !ok || v == "" || d.err != nil {
		return 0
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		d.err = fmt.Errorf("%w: %s=%q", ErrMalformedPacket, f, v)
		return 0
	}
	return out
}

func (d *decoder) int(f domain.Field) int {
	v, ok := d.raw(f)
	if !ok || v == "" || d.err != nil {
		return 0
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		d.err = fmt.Errorf("%w: %s=%q", ErrMalformedPacket, f, v)
		return 0
	}
	return out
}

// ParseStatus decodes a "$"-prefixed status line
func ParseStatus(line string) domain.StatusMessage {
	msg := domain.StatusMessage{
		Raw:          line,
		IsError:      strings.HasPrefix(line, "$E"),
		LogfileBegin: strings.Contains(line, LogfileBeginMarker),
		LogfileEnd:   strings.Contains(line, LogfileEndMarker),
		BeginSimp:    strings.Contains(line, BeginSimpMarker),
	}

	for cam := 1; cam <= 2; cam++ {
		if strings.Contains(line, fmt.Sprintf("CAMERA%d ON", cam)) {
			msg.CameraEvents = append(msg.CameraEvents, domain.CameraEvent{Camera: cam, On: true})
		}
		if strings.Contains(line, fmt.Sprintf("CAMERA%d OFF", cam)) {
			msg.CameraEvents = append(msg.CameraEvents, domain.CameraEvent{Camera: cam, On: false})
		}
	}

	m := msgPattern.FindStringSubmatch(line)
	if m == nil {
		msg.Text = unexpectedFormat + line
		return msg
	}
	text := m[1]

	if info := missionPattern.FindStringSubmatch(text); info != nil {
		text = strings.TrimSpace(missionPattern.ReplaceAllString(text, ""))
		if mode, state, ok := strings.Cut(info[1], "|"); ok {
			msg.HasMissionInfo = true
			msg.MissionMode = strings.TrimSpace(mode)
			msg.MissionState = strings.TrimSpace(state)
		}
	}
	msg.Text = text
	return msg
}
