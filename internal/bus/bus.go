// Package bus is the in-process pub/sub between the station and its consumers.
package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rsx/cansat-groundstation/internal/log"
	"github.com/rsx/cansat-groundstation/internal/metrics"
)

// Topics published by the station
const (
	TopicTelemetry = "telemetry"
	TopicStatus    = "status"
	TopicEvent     = "event"
)

// Message is a published payload
type Message any

// Subscriber receives messages for one topic until closed
type Subscriber interface {
	C() <-chan Message
	Close() error
}

// Bus publishes messages to topic subscribers
type Bus interface {
	Publish(ctx context.Context, topic string, msg Message) error
	Subscribe(ctx context.Context, topic string) (Subscriber, error)
}

// MemoryBus is an in-memory pub/sub. It is not durable; delivery lasts as long as
// the publish context stays active.
type MemoryBus struct {
	mu   sync.RWMutex
	subs map[string][]*memSub
	size int
}

const (
	dropLogEvery       = 100
	defaultSubscriberQ = 64
)

var dropCount atomic.Uint64

// NewMemoryBus creates a bus whose subscribers buffer up to queue messages
func NewMemoryBus(queue int) *MemoryBus {
	if queue <= 0 {
		queue = defaultSubscriberQ
	}
	return &MemoryBus{subs: make(map[string][]*memSub), size: queue}
}

func publishDropReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "context_done"
	}
}

// Publish delivers msg to every subscriber of topic, blocking on full subscribers
// until ctx is done.
func (b *MemoryBus) Publish(ctx context.Context, topic string, msg Message) error {
	if ctx == nil {
		return fmt.Errorf("publish context is nil")
	}
	b.mu.RLock()
	subs := append([]*memSub(nil), b.subs[topic]...)
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.deliver(ctx, msg); err != nil {
			reason := publishDropReason(err)
			metrics.IncBusDrop(topic, reason)
			if count := dropCount.Add(1); count%dropLogEvery == 0 {
				logger := log.WithComponent("bus")
				logger.Warn().
					Str("topic", topic).
					Str("reason", reason).
					Uint64("dropped", count).
					Msg("memory bus failed to publish due to context cancellation")
			}
			return fmt.Errorf("publish topic %q: %w", topic, err)
		}
	}
	return nil
}

// Subscribe registers a new subscriber for topic
func (b *MemoryBus) Subscribe(_ context.Context, topic string) (Subscriber, error) {
	s := &memSub{b: b, topic: topic, ch: make(chan Message, b.size)}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], s)
	b.mu.Unlock()

	return s, nil
}

// Subscribers returns the number of live subscribers of topic
func (b *MemoryBus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

type memSub struct {
	b     *MemoryBus
	topic string
	ch    chan Message

	mu     sync.Mutex
	closed bool
}

// deliver sends under the subscriber lock so Close never races a send on a closed channel
func (s *memSub) deliver(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	select {
	case s.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *memSub) C() <-chan Message {
	return s.ch
}

func (s *memSub) Close() error {
	s.b.mu.Lock()
	lst := s.b.subs[s.topic]
	out := lst[:0]
	for _, c := range lst {
		if c != s {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		delete(s.b.subs, s.topic)
	} else {
		s.b.subs[s.topic] = out
	}
	s.b.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}

var _ Bus = (*MemoryBus)(nil)
