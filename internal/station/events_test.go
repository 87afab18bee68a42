package station

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsx/cansat-groundstation/internal/domain"
)

func TestEventLogFoldsRepeats(t *testing.T) {
	l := NewEventLog(10)
	t0 := time.Unix(0, 0)

	_, folded := l.Add(t0, domain.EventInfo, "Sent test message")
	assert.False(t, folded)
	e, folded := l.Add(t0.Add(time.Second), domain.EventInfo, "Sent test message")
	assert.True(t, folded)
	assert.Equal(t, 2, e.Repeat)
	assert.Equal(t, t0.Add(time.Second), e.Time)

	// same text at another level is a new entry
	_, folded = l.Add(t0, domain.EventError, "Sent test message")
	assert.False(t, folded)

	log := l.Log()
	require.Len(t, log, 1)
	assert.Equal(t, 2, log[0].Repeat)
	assert.Len(t, l.Errors(), 1)
}

func TestEventLogInterleavedMessagesAreNotFolded(t *testing.T) {
	l := NewEventLog(10)
	now := time.Now()

	l.Add(now, domain.EventInfo, "a")
	l.Add(now, domain.EventInfo, "b")
	l.Add(now, domain.EventInfo, "a")

	assert.Len(t, l.Log(), 3)
}

func TestEventLogIsBounded(t *testing.T) {
	l := NewEventLog(3)
	now := time.Now()

	for i := 0; i < 5; i++ {
		l.Add(now, domain.EventRemote, fmt.Sprintf("msg %d", i))
	}

	log := l.Log()
	require.Len(t, log, 3)
	assert.Equal(t, "msg 2", log[0].Message)
	assert.Equal(t, "msg 4", log[2].Message)
}

func TestEventLogClear(t *testing.T) {
	l := NewEventLog(3)
	now := time.Now()
	l.Add(now, domain.EventInfo, "x")
	l.Add(now, domain.EventError, "y")

	l.Clear()
	assert.Empty(t, l.Log())
	assert.Empty(t, l.Errors())

	_, folded := l.Add(now, domain.EventInfo, "x")
	assert.False(t, folded)
}
