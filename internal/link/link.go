// Package link owns the ground port: the serial connection to the radio that
// carries the CanSat downlink and uplink.
package link

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rsx/cansat-groundstation/internal/domain"
	"github.com/rsx/cansat-groundstation/internal/log"
	"github.com/rsx/cansat-groundstation/internal/metrics"
)

// ErrDisconnected is reported when the device goes away while the port is open
var ErrDisconnected = errors.New("SERIAL ERROR: Device disconnected")

// maxLineBytes bounds a single downlink line
const maxLineBytes = 64 * 1024

// Handler receives link activity. Both callbacks run on the reader goroutine.
type Handler interface {
	HandleLine(line string)
	HandleLinkError(err error)
}

// Link is the ground port. It is safe for concurrent use.
type Link struct {
	opener  Opener
	baud    int
	handler Handler
	logger  zerolog.Logger

	// writeMu serializes writes; mu guards the fields below it and is never
	// held across port I/O
	writeMu sync.Mutex

	mu   sync.Mutex
	port Port
	name string
	done chan struct{}
}

// New creates a closed link
func New(opener Opener, baud int, handler Handler) *Link {
	return &Link{
		opener:  opener,
		baud:    baud,
		handler: handler,
		logger:  log.WithComponent("link"),
	}
}

// SetHandler replaces the receiver of link activity; call before Open
func (l *Link) SetHandler(h Handler) {
	l.mu.Lock()
	l.handler = h
	l.mu.Unlock()
}

// Ports lists the available devices
func (l *Link) Ports() ([]PortInfo, error) {
	return l.opener.List()
}

// IsOpen reports whether the port is open
func (l *Link) IsOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port != nil
}

// Name returns the open port's device name, or "" when closed
func (l *Link) Name() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.name
}

// Open opens the named device and starts reading lines from it
func (l *Link) Open(name string) error {
	if strings.TrimSpace(name) == "" {
		return domain.ErrNoPortSelected
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.port != nil {
		return fmt.Errorf("%w on %s", domain.ErrPortAlreadyOpen, l.name)
	}

	p, err := l.opener.Open(name, l.baud)
	if err != nil {
		metrics.IncLinkError("open")
		return fmt.Errorf("%w: %w", domain.ErrPortUnavailable, err)
	}
	done := make(chan struct{})
	l.port = p
	l.name = name
	l.done = done
	metrics.SetLinkOpen(true)
	l.logger.Info().Str("port", name).Int("baud", l.baud).Msg("ground port opened")

	go l.readLoop(p, done, l.handler)
	return nil
}

// Close closes the port and waits for the reader to stop. Closing a closed link is a no-op.
func (l *Link) Close() error {
	l.mu.Lock()
	p, done := l.port, l.done
	l.port, l.name, l.done = nil, "", nil
	l.mu.Unlock()

	if p == nil {
		return nil
	}
	err := p.Close()
	<-done
	metrics.SetLinkOpen(false)
	if err != nil {
		metrics.IncLinkError("close")
		return fmt.Errorf("close ground port: %w", err)
	}
	l.logger.Info().Msg("ground port closed")
	return nil
}

// Send writes one line followed by a newline. A failed write closes the port
// without waiting for the reader, so Send is safe to call from Handler callbacks.
func (l *Link) Send(line string) error {
	l.mu.Lock()
	p := l.port
	l.mu.Unlock()
	if p == nil {
		return domain.ErrPortClosed
	}

	l.writeMu.Lock()
	_, err := p.Write([]byte(line + "\n"))
	l.writeMu.Unlock()

	if err != nil {
		metrics.IncLinkError("write")
		l.logger.Error().Err(err).Msg("cannot send data")
		l.drop(p)
		return fmt.Errorf("ERROR: CANNOT SEND DATA - %w", err)
	}
	return nil
}

// drop unregisters p and closes it. The reader sees the port is no longer
// registered and exits quietly.
func (l *Link) drop(p Port) {
	l.mu.Lock()
	current := l.port == p
	if current {
		l.port, l.name, l.done = nil, "", nil
	}
	l.mu.Unlock()
	if !current {
		return
	}
	_ = p.Close()
	metrics.SetLinkOpen(false)
	l.logger.Warn().Msg("ground port closed after write failure")
}

func (l *Link) readLoop(p Port, done chan struct{}, h Handler) {
	defer close(done)

	sc := bufio.NewScanner(p)
	sc.Buffer(make([]byte, 4096), maxLineBytes)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if h != nil {
			h.HandleLine(line)
		}
	}

	// The port is still registered only when the device went away on its own.
	l.mu.Lock()
	unexpected := l.port == p
	if unexpected {
		l.port, l.name, l.done = nil, "", nil
	}
	l.mu.Unlock()
	if !unexpected {
		return
	}

	_ = p.Close()
	metrics.SetLinkOpen(false)
	metrics.IncLinkError("read")
	err := ErrDisconnected
	if scanErr := sc.Err(); scanErr != nil {
		err = fmt.Errorf("%w: %v", ErrDisconnected, scanErr)
	}
	l.logger.Error().Err(err).Msg("ground port lost")
	if h != nil {
		h.HandleLinkError(err)
	}
}
