package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsx/cansat-groundstation/internal/domain"
)

const fullPacket = "3114,13:14:02,42,F,DESCENT,512.3,21.5,95.2,7.9,10,-4,2,1,0,9,0.21,0.05,-0.4,120,13:14:01,508.0,38.1496,79.0738,7,CXON,3"

func TestClassify(t *testing.T) {
	assert.Equal(t, LineEmpty, Classify("   "))
	assert.Equal(t, LineStatus, Classify("$MSG:hello"))
	assert.Equal(t, LineTelemetry, Classify("3114,00:00:01"))
	assert.Equal(t, "status", LineStatus.String())
}

func TestParseTelemetryFullPacket(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tm, err := ParseTelemetry(fullPacket, 5, now)
	require.NoError(t, err)

	assert.Equal(t, domain.DownlinkFields, tm.FieldCount)
	assert.Equal(t, 3114, tm.TeamID)
	assert.Equal(t, "13:14:02", tm.MissionTime)
	assert.Equal(t, 42, tm.PacketCount)
	assert.Equal(t, "F", tm.Mode)
	assert.Equal(t, "DESCENT", tm.State)
	assert.InDelta(t, 512.3, tm.Altitude, 1e-9)
	assert.InDelta(t, 95.2, tm.Pressure, 1e-9)
	assert.InDelta(t, -4, tm.GyroP, 1e-9)
	assert.InDelta(t, -0.4, tm.MagY, 1e-9)
	assert.InDelta(t, 120, tm.RotationRate, 1e-9)
	assert.InDelta(t, 38.1496, tm.GPSLatitude, 1e-9)
	assert.Equal(t, "7", tm.GPSSats)
	assert.Equal(t, "CXON", tm.CmdEcho)
	assert.Equal(t, domain.CameraStatus(3), tm.CamStatus)
	assert.Equal(t, 5, tm.PacketRecv)
	assert.Equal(t, now, tm.ReceivedAt)
	assert.True(t, tm.Has(domain.FieldCamStatus))
}

func TestParseTelemetryTruncatedPacket(t *testing.T) {
	tm, err := ParseTelemetry("3114,00:00:05,3,S,LAUNCH_PAD,1.5", 1, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 6, tm.FieldCount)
	assert.True(t, tm.Has(domain.FieldAltitude))
	assert.False(t, tm.Has(domain.FieldTemperature))
	assert.False(t, tm.Has(domain.FieldGPSLatitude))
	assert.InDelta(t, 1.5, tm.Altitude, 1e-9)
}

func TestParseTelemetryIgnoresExtraColumns(t *testing.T) {
	tm, err := ParseTelemetry(fullPacket+",extra,columns", 1, time.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.DownlinkFields, tm.FieldCount)
}

func TestParseTelemetryEmpty(t *testing.T) {
	_, err := ParseTelemetry(",,, ,", 1, time.Now())
	assert.ErrorIs(t, err, ErrEmptyPacket)
}

func TestParseTelemetryMalformedNumber(t *testing.T) {
	_, err := ParseTelemetry("3114,00:00:05,3,F,ASCENT,high", 1, time.Now())
	require.ErrorIs(t, err, ErrMalformedPacket)
	assert.Contains(t, err.Error(), "ALTITUDE")
}

func TestParseTelemetryBlankNumericColumnIsZero(t *testing.T) {
	tm, err := ParseTelemetry("3114,00:00:05,3,F,ASCENT,,21.0", 1, time.Now())
	require.NoError(t, err)
	assert.Zero(t, tm.Altitude)
	assert.InDelta(t, 21.0, tm.Temperature, 1e-9)
}

func TestParseStatusPlainMessage(t *testing.T) {
	msg := ParseStatus("$I MSG:Altitude calibrated")

	assert.Equal(t, "Altitude calibrated", msg.Text)
	assert.False(t, msg.IsError)
	assert.False(t, msg.HasMissionInfo)
}

func TestParseStatusMissionInfo(t *testing.T) {
	msg := ParseStatus("$I MSG:{SIM|LAUNCH_PAD} Simulation activated BEGIN_SIMP")

	assert.True(t, msg.HasMissionInfo)
	assert.Equal(t, "SIM", msg.MissionMode)
	assert.Equal(t, "LAUNCH_PAD", msg.MissionState)
	assert.Equal(t, "Simulation activated BEGIN_SIMP", msg.Text)
	assert.True(t, msg.BeginSimp)
}

func TestParseStatusErrorAndCameras(t *testing.T) {
	msg := ParseStatus("$E MSG:CAMERA1 OFF CAMERA2 ON")

	assert.True(t, msg.IsError)
	assert.ElementsMatch(t, []domain.CameraEvent{
		{Camera: 1, On: false},
		{Camera: 2, On: true},
	}, msg.CameraEvents)
}

func TestParseStatusUnexpectedFormat(t *testing.T) {
	msg := ParseStatus("$garbage")
	assert.Equal(t, "(UNEXPECTED FORMAT):$garbage", msg.Text)
}

func TestParseStatusLogfileMarkers(t *testing.T) {
	assert.True(t, ParseStatus("$LOGFILE:BEGIN").LogfileBegin)
	assert.True(t, ParseStatus("$LOGFILE:END").LogfileEnd)
}

func TestParseStatusMissionInfoWithoutSeparator(t *testing.T) {
	msg := ParseStatus("$I MSG:{FLIGHT} hello")
	assert.False(t, msg.HasMissionInfo)
	assert.Equal(t, "hello", msg.Text)
}
