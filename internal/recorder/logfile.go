package recorder

import (
	"fmt"
	"sync"

	"github.com/google/renameio/v2"
)

// LogCapture receives the payload's mission logfile between the $LOGFILE:BEGIN and
// $LOGFILE:END markers. The destination is only replaced once the transfer ends,
// so an interrupted transfer never clobbers the previous logfile.
type LogCapture struct {
	mu      sync.Mutex
	path    string
	pending *renameio.PendingFile
	lines   int
}

// NewLogCapture creates a capture writing to path
func NewLogCapture(path string) *LogCapture {
	return &LogCapture{path: path}
}

// Path returns the destination file
func (l *LogCapture) Path() string { return l.path }

// Active reports whether a transfer is in progress
func (l *LogCapture) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending != nil
}

// Begin starts a transfer, discarding any unfinished one
func (l *LogCapture) Begin() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending != nil {
		_ = l.pending.Cleanup()
		l.pending = nil
	}
	pf, err := renameio.NewPendingFile(l.path)
	if err != nil {
		return fmt.Errorf("create pending logfile: %w", err)
	}
	l.pending = pf
	l.lines = 0
	return nil
}

// WriteLine appends one received line
func (l *LogCapture) WriteLine(line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending == nil {
		return fmt.Errorf("write logfile: no transfer in progress")
	}
	if _, err := l.pending.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write logfile: %w", err)
	}
	l.lines++
	return nil
}

// End commits the transfer to the destination and returns the number of lines written
func (l *LogCapture) End() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending == nil {
		return 0, fmt.Errorf("commit logfile: no transfer in progress")
	}
	pf := l.pending
	l.pending = nil
	if err := pf.CloseAtomicallyReplace(); err != nil {
		_ = pf.Cleanup()
		return 0, fmt.Errorf("commit logfile: %w", err)
	}
	return l.lines, nil
}

// Abort drops an unfinished transfer
func (l *LogCapture) Abort() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending != nil {
		_ = l.pending.Cleanup()
		l.pending = nil
	}
}
