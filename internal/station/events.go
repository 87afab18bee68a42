package station

import (
	"sync"
	"time"

	"github.com/rsx/cansat-groundstation/internal/domain"
)

// EventLog is the operator log. Error entries are kept apart from the rest, and
// a message equal to the previous one (same text and level) bumps that entry's
// repeat count instead of adding a new line.
type EventLog struct {
	mu     sync.Mutex
	size   int
	log    []domain.Event
	errors []domain.Event

	lastMsg   string
	lastLevel domain.EventLevel
}

// NewEventLog creates a log keeping at most size entries in each list
func NewEventLog(size int) *EventLog {
	if size < 1 {
		size = 1
	}
	return &EventLog{size: size}
}

// Add records a message. It returns the resulting entry and whether it was folded
// into the previous one.
func (l *EventLog) Add(now time.Time, level domain.EventLevel, msg string) (domain.Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	target := &l.log
	if level == domain.EventError {
		target = &l.errors
	}

	if msg == l.lastMsg && level == l.lastLevel && len(*target) > 0 {
		last := &(*target)[len(*target)-1]
		last.Repeat++
		last.Time = now
		return *last, true
	}

	e := domain.Event{Time: now, Level: level, Message: msg, Repeat: 1}
	*target = append(*target, e)
	if len(*target) > l.size {
		*target = append((*target)[:0:0], (*target)[len(*target)-l.size:]...)
	}
	l.lastMsg, l.lastLevel = msg, level
	return e, false
}

// Log returns the info and remote entries, oldest first
func (l *EventLog) Log() []domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Event{}, l.log...)
}

// Errors returns the error entries, oldest first
func (l *EventLog) Errors() []domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Event{}, l.errors...)
}

// Clear empties both lists
func (l *EventLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.log = nil
	l.errors = nil
	l.lastMsg, l.lastLevel = "", ""
}
