package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsx/cansat-groundstation/internal/domain"
)

func TestSimpleCommands(t *testing.T) {
	b := NewBuilder(3114)

	assert.Equal(t, "CMD,3114,TEST,X", b.Test().String())
	assert.Equal(t, "CMD,3114,ST,GPS", b.SetTimeGPS().String())
	assert.Equal(t, "CMD,3114,RR,X", b.Restart().String())
	assert.Equal(t, "CMD,3114,MEC,RELEASE:X", b.ForceRelease().String())
	assert.Equal(t, "CMD,3114,CAL,X", b.Calibrate().String())
	assert.Equal(t, "CMD,3114,GTLOGS,X", b.GetLogs().String())
	assert.Equal(t, "CMD,3114,CX,ON", b.Telemetry(true).String())
	assert.Equal(t, "CMD,3114,CX,OFF", b.Telemetry(false).String())
}

func TestSetTimeUTC(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	now := time.Date(2025, 6, 7, 8, 9, 10, 0, loc)

	assert.Equal(t, "CMD,1000,ST,13:09:10", NewBuilder(1000).SetTimeUTC(now).String())
}

func TestServo(t *testing.T) {
	b := NewBuilder(3114)

	c, err := b.Servo(ServoGyro, 90)
	require.NoError(t, err)
	assert.Equal(t, "CMD,3114,MEC,SERVO:2|90", c.String())

	_, err = b.Servo(7, 90)
	assert.ErrorIs(t, err, domain.ErrInvalidCommand)

	_, err = b.Servo(ServoCamera, 1000)
	assert.ErrorIs(t, err, domain.ErrInvalidCommand)

	_, err = b.Servo(ServoCamera, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidCommand)
}

func TestCameraCommands(t *testing.T) {
	b := NewBuilder(3114)

	c, err := b.ToggleCamera(2)
	require.NoError(t, err)
	assert.Equal(t, "CMD,3114,MEC,CAMERA2:X", c.String())

	c, err = b.CameraStatus(1)
	require.NoError(t, err)
	assert.Equal(t, "CMD,3114,MEC,CAMERA1_STAT:X", c.String())

	_, err = b.ToggleCamera(3)
	assert.ErrorIs(t, err, domain.ErrInvalidCommand)
}

func TestSim(t *testing.T) {
	b := NewBuilder(3114)

	c, err := b.Sim(SimActivate)
	require.NoError(t, err)
	assert.Equal(t, "CMD,3114,SIM,ACTIVATE", c.String())

	_, err = b.Sim("LAUNCH")
	assert.ErrorIs(t, err, domain.ErrInvalidCommand)
}

func TestSimPressure(t *testing.T) {
	b := NewBuilder(3114)

	c, err := b.SimPressure("101325")
	require.NoError(t, err)
	assert.Equal(t, "CMD,3114,SIMP,101325", c.String())

	_, err = b.SimPressure("1e5; RR")
	assert.ErrorIs(t, err, domain.ErrInvalidCommand)
}

func TestParseSimProfile(t *testing.T) {
	profile := "# Simulated pressure profile\n" +
		"CMD,$,SIMP,101325\n" +
		"\n" +
		"  CMD,$,SIMP,101300  \r\n" +
		"CMD,$,CX,ON\n"

	lines := NewBuilder(3114).ParseSimProfile(profile)

	assert.Equal(t, []string{"CMD,3114,SIMP,101325", "CMD,3114,SIMP,101300"}, lines)
}

func TestParseSimProfileStampsEveryPlaceholder(t *testing.T) {
	lines := NewBuilder(3114).ParseSimProfile("CMD,$,SIMP,101325,$\n")

	assert.Equal(t, []string{"CMD,3114,SIMP,101325,3114"}, lines)
}
