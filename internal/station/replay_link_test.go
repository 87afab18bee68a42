package station

import (
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsx/cansat-groundstation/internal/link"
	"github.com/rsx/cansat-groundstation/internal/recorder"
)

// stalledRadio reads from an in-memory pipe and holds every write until released,
// then fails it
type stalledRadio struct {
	net.Conn
	release chan struct{}
}

func (r *stalledRadio) Write(b []byte) (int, error) {
	<-r.release
	return 0, errors.New("input/output error")
}

type stalledOpener struct {
	radio  *stalledRadio
	remote net.Conn
}

func (o *stalledOpener) Open(name string, baud int) (link.Port, error) {
	local, remote := net.Pipe()
	o.remote = remote
	o.radio = &stalledRadio{Conn: local, release: make(chan struct{})}
	return o.radio, nil
}

func (o *stalledOpener) List() ([]link.PortInfo, error) { return nil, nil }

func feed(t *testing.T, w io.Writer, line string) {
	t.Helper()
	written := make(chan struct{})
	go func() {
		_, _ = io.WriteString(w, line+"\n")
		close(written)
	}()
	select {
	case <-written:
	case <-time.After(2 * time.Second):
		t.Fatalf("ground port reader did not take %q", line)
	}
}

func TestSimpRestartWhileWriteFailsKeepsReaderRunning(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	profile := "CMD,$,SIMP,101325\nCMD,$,SIMP,101300\nCMD,$,SIMP,101280\n"
	require.NoError(t, os.WriteFile(cfg.SimProfilePath, []byte(profile), 0o644))

	csv, err := recorder.OpenCSV(cfg.CSVPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = csv.Close() })

	opener := &stalledOpener{}
	l := link.New(opener, 57600, nil)
	st := New(cfg, Deps{
		Link:      l,
		CSV:       csv,
		Logfile:   recorder.NewLogCapture(cfg.LogfilePath),
		Missions:  newFakeMissions(),
		Telemetry: &fakeTelemetry{},
		Events:    &fakeEvents{},
	})
	l.SetHandler(st)
	require.NoError(t, l.Open("COM3"))
	t.Cleanup(func() {
		st.Close()
		_ = l.Close()
		_ = opener.remote.Close()
	})

	feed(t, opener.remote, "$I MSG:BEGIN_SIMP {SIM|IDLE}")
	time.Sleep(4 * cfg.SimInterval)
	feed(t, opener.remote, "$I MSG:BEGIN_SIMP {SIM|IDLE}")
	feed(t, opener.remote, "$I MSG:after")

	require.Eventually(t, func() bool {
		log, _ := st.Events()
		for _, e := range log {
			if strings.Contains(e.Message, "after") {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)

	close(opener.radio.release)

	assert.Eventually(t, func() bool { return !l.IsOpen() }, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return !st.Snapshot().SimReplay }, 2*time.Second, 5*time.Millisecond)
}
