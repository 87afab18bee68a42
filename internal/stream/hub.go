// Package stream pushes live station activity to websocket clients.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/rsx/cansat-groundstation/internal/bus"
	"github.com/rsx/cansat-groundstation/internal/log"
	"github.com/rsx/cansat-groundstation/internal/metrics"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	sendBuffer  = 256
	readLimit   = 64 * 1024
	pingPeriod  = (pongWait * 9) / 10
	closeFlush  = time.Second
	subscribeTO = 5 * time.Second
)

// Topics forwarded to clients
var Topics = []string{bus.TopicTelemetry, bus.TopicStatus, bus.TopicEvent}

// Envelope is one frame sent to clients
type Envelope struct {
	Type string      `json:"type"`
	Time time.Time   `json:"time"`
	Data interface{} `json:"data"`
}

// Hub fans bus messages out to connected websocket clients
type Hub struct {
	bus      bus.Bus
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates a hub reading from b
func NewHub(b bus.Bus) *Hub {
	return &Hub{
		bus:     b,
		clients: make(map[*client]struct{}),
		logger:  log.WithComponent("stream"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run forwards bus messages until ctx is done, then disconnects every client
func (h *Hub) Run(ctx context.Context) error {
	subCtx, cancel := context.WithTimeout(ctx, subscribeTO)
	defer cancel()

	var wg sync.WaitGroup
	for _, topic := range Topics {
		sub, err := h.bus.Subscribe(subCtx, topic)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func(topic string, sub bus.Subscriber) {
			defer wg.Done()
			defer sub.Close()
			h.forward(ctx, topic, sub)
		}(topic, sub)
	}

	wg.Wait()
	h.Close()
	return nil
}

func (h *Hub) forward(ctx context.Context, topic string, sub bus.Subscriber) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			payload, err := json.Marshal(Envelope{Type: topic, Time: time.Now().UTC(), Data: msg})
			if err != nil {
				h.logger.Error().Err(err).Str("topic", topic).Msg("encode stream frame")
				continue
			}
			h.Broadcast(payload)
		}
	}
}

// ServeHTTP upgrades the request and streams frames until the client goes away
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("upgrade stream websocket")
		return
	}
	c := newClient(conn, h.logger)
	if !h.register(c) {
		c.close()
		return
	}
	go c.writeLoop()
	c.readLoop(func() {
		h.unregister(c)
	})
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	metrics.StreamClients.Set(float64(len(h.clients)))
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.stop()
	}
	metrics.StreamClients.Set(float64(len(h.clients)))
	h.mu.Unlock()
}

// Broadcast queues msg for every client; clients that cannot keep up are dropped
func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Info().Msg("dropping stream client for slow reader")
		h.unregister(c)
	}
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		c.stop()
		delete(h.clients, c)
	}
	metrics.StreamClients.Set(0)
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
	logger zerolog.Logger
}

func newClient(conn *websocket.Conn, logger zerolog.Logger) *client {
	return &client{conn: conn, send: make(chan []byte, sendBuffer), logger: logger}
}

// stop ends the write loop, which sends a close frame and closes the connection
func (c *client) stop() {
	c.once.Do(func() { close(c.send) })
}

func (c *client) close() {
	_ = c.conn.Close()
}

func (c *client) readLoop(onClose func()) {
	defer onClose()
	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug().Err(err).Msg("stream client read error")
			}
			return
		}
	}
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(closeFlush))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Debug().Err(err).Msg("stream client write error")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
