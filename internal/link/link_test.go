package link

import (
	"bufio"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rsx/cansat-groundstation/internal/domain"
)

// brokenWriter is a port whose writes fail once released
type brokenWriter struct {
	net.Conn
	release chan struct{}
}

func (p *brokenWriter) Write(b []byte) (int, error) {
	<-p.release
	return 0, errors.New("input/output error")
}

// pipeOpener hands out one end of an in-memory pipe; the test drives the other end.
type pipeOpener struct {
	mu     sync.Mutex
	remote net.Conn
	err    error
	ports  []PortInfo
	wrap   func(net.Conn) Port
}

func (o *pipeOpener) Open(name string, baud int) (Port, error) {
	if o.err != nil {
		return nil, o.err
	}
	local, remote := net.Pipe()
	o.mu.Lock()
	o.remote = remote
	o.mu.Unlock()
	if o.wrap != nil {
		return o.wrap(local), nil
	}
	return local, nil
}

func (o *pipeOpener) List() ([]PortInfo, error) { return o.ports, nil }

func (o *pipeOpener) device() net.Conn {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.remote
}

type recordingHandler struct {
	mu     sync.Mutex
	lines  []string
	errs   []error
	linesC chan string
	errC   chan error
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{linesC: make(chan string, 16), errC: make(chan error, 1)}
}

func (h *recordingHandler) HandleLine(line string) {
	h.mu.Lock()
	h.lines = append(h.lines, line)
	h.mu.Unlock()
	h.linesC <- line
}

func (h *recordingHandler) HandleLinkError(err error) {
	h.mu.Lock()
	h.errs = append(h.errs, err)
	h.mu.Unlock()
	h.errC <- err
}

func waitLine(t *testing.T, h *recordingHandler) string {
	t.Helper()
	select {
	case l := <-h.linesC:
		return l
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for line")
		return ""
	}
}

func TestLinkReceivesTrimmedLines(t *testing.T) {
	defer goleak.VerifyNone(t)

	opener := &pipeOpener{}
	h := newRecordingHandler()
	l := New(opener, 57600, h)

	require.NoError(t, l.Open("/dev/ttyUSB0"))
	assert.True(t, l.IsOpen())
	assert.Equal(t, "/dev/ttyUSB0", l.Name())

	go func() {
		_, _ = opener.device().Write([]byte("3114,00:00:01\r\n$I MSG:hi\n"))
	}()

	assert.Equal(t, "3114,00:00:01", waitLine(t, h))
	assert.Equal(t, "$I MSG:hi", waitLine(t, h))

	require.NoError(t, l.Close())
	assert.False(t, l.IsOpen())
	require.NoError(t, l.Close())
	_ = opener.device().Close()
}

func TestLinkSendAppendsNewline(t *testing.T) {
	defer goleak.VerifyNone(t)

	opener := &pipeOpener{}
	l := New(opener, 57600, newRecordingHandler())
	require.NoError(t, l.Open("COM3"))

	got := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(opener.device()).ReadString('\n')
		got <- line
	}()

	require.NoError(t, l.Send("CMD,3114,CX,ON"))
	assert.Equal(t, "CMD,3114,CX,ON\n", <-got)

	require.NoError(t, l.Close())
	_ = opener.device().Close()
}

func TestLinkSendWhileClosed(t *testing.T) {
	l := New(&pipeOpener{}, 57600, nil)
	assert.ErrorIs(t, l.Send("CMD,3114,TEST,X"), domain.ErrPortClosed)
}

func TestLinkOpenRequiresName(t *testing.T) {
	l := New(&pipeOpener{}, 57600, nil)
	assert.ErrorIs(t, l.Open(" "), domain.ErrNoPortSelected)
}

func TestLinkOpenTwice(t *testing.T) {
	defer goleak.VerifyNone(t)

	opener := &pipeOpener{}
	l := New(opener, 57600, newRecordingHandler())
	require.NoError(t, l.Open("COM3"))
	assert.ErrorIs(t, l.Open("COM4"), domain.ErrPortAlreadyOpen)
	require.NoError(t, l.Close())
	_ = opener.device().Close()
}

func TestLinkOpenError(t *testing.T) {
	l := New(&pipeOpener{err: errors.New("no such device")}, 57600, nil)
	err := l.Open("COM9")
	assert.ErrorIs(t, err, domain.ErrPortUnavailable)
	assert.ErrorContains(t, err, "no such device")
	assert.False(t, l.IsOpen())
}

func TestLinkDeviceDisconnect(t *testing.T) {
	defer goleak.VerifyNone(t)

	opener := &pipeOpener{}
	h := newRecordingHandler()
	l := New(opener, 57600, h)
	require.NoError(t, l.Open("COM3"))

	require.NoError(t, opener.device().Close())

	select {
	case err := <-h.errC:
		assert.ErrorIs(t, err, ErrDisconnected)
	case <-time.After(2 * time.Second):
		t.Fatal("expected disconnect error")
	}
	assert.Eventually(t, func() bool { return !l.IsOpen() }, time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, l.Send("x"), domain.ErrPortClosed)
}

func TestLinkPorts(t *testing.T) {
	opener := &pipeOpener{ports: []PortInfo{{Name: "COM3", Description: "CP2102 USB to UART"}}}
	l := New(opener, 57600, nil)

	ports, err := l.Ports()
	require.NoError(t, err)
	require.Len(t, ports, 1)
	assert.Equal(t, "COM3: CP2102 USB to UART", ports[0].Label())
	assert.Equal(t, "COM4", PortInfo{Name: "COM4"}.Label())
}

// replyHandler answers every received line with a write from the reader goroutine
type replyHandler struct {
	l       *Link
	results chan error
}

func (h *replyHandler) HandleLine(line string) { h.results <- h.l.Send("ACK," + line) }

func (h *replyHandler) HandleLinkError(err error) {}

func TestLinkWriteFailureFromReaderDoesNotBlock(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	opener := &pipeOpener{wrap: func(c net.Conn) Port { return &brokenWriter{Conn: c, release: release} }}
	h := &replyHandler{results: make(chan error, 1)}
	l := New(opener, 57600, h)
	h.l = l
	require.NoError(t, l.Open("COM3"))

	go func() { _, _ = opener.device().Write([]byte("$I MSG:BEGIN_SIMP\n")) }()
	close(release)

	select {
	case err := <-h.results:
		assert.ErrorContains(t, err, "CANNOT SEND DATA")
	case <-time.After(2 * time.Second):
		t.Fatal("reader blocked on its own write failure")
	}
	assert.False(t, l.IsOpen())
	assert.ErrorIs(t, l.Send("x"), domain.ErrPortClosed)
	require.NoError(t, l.Close())
	_ = opener.device().Close()
}

func TestLinkCloseUnblocksPendingWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	opener := &pipeOpener{}
	l := New(opener, 57600, newRecordingHandler())
	require.NoError(t, l.Open("COM3"))

	sent := make(chan error, 1)
	go func() { sent <- l.Send("CMD,3114,CX,ON") }()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, l.Close())

	select {
	case err := <-sent:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("close did not unblock the writer")
	}
	_ = opener.device().Close()
}
