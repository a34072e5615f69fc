package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MrJamesThe3rd/condo/internal/actor"
)

// Message is the frame written to websocket clients.
type Message struct {
	Channel string          `json:"channel"`
	Event   EventType       `json:"event"`
	Data    json.RawMessage `json:"data"`
}

// Command is the frame clients send to manage their subscriptions.
type Command struct {
	Op      string `json:"op"`
	Channel string `json:"channel"`
}

const (
	OpJoin  = "join"
	OpLeave = "leave"
)

type HubConfig struct {
	SendBuffer     int
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// Hub is an in-process real-time channel. Delivery is at-most-once and unordered across
// channels; a client whose queue is full misses the message. There is no replay.
type Hub struct {
	cfg      HubConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu       sync.RWMutex
	conns    map[*conn]struct{}
	channels map[string]map[*conn]struct{}

	dropped atomic.Int64
}

func NewHub(cfg HubConfig, logger *slog.Logger) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 32
	}

	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}

	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	if logger == nil {
		logger = slog.Default()
	}

	h := &Hub{
		cfg:      cfg,
		logger:   logger,
		conns:    make(map[*conn]struct{}),
		channels: make(map[string]map[*conn]struct{}),
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}

	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}

	origin := r.Header.Get("Origin")

	return origin == "" || slices.Contains(h.cfg.AllowedOrigins, origin)
}

// Publish queues the payload for every client on channel without blocking.
func (h *Hub) Publish(_ context.Context, channel string, event EventType, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", event, err)
	}

	frame, err := json.Marshal(Message{Channel: channel, Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("encoding %s frame: %w", event, err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := h.channels[channel]
	if channel == BroadcastChannel {
		targets = h.conns
	}

	for c := range targets {
		select {
		case c.send <- frame:
		default:
			h.dropped.Add(1)
			h.logger.Debug("client queue full, dropping message", "conn_id", c.id, "channel", channel, "event", event)
		}
	}

	return nil
}

// Dropped is the number of messages discarded because a client was too slow.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.conns)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wc, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	a, known := actor.FromContext(r.Context())
	c := newConn(wc, h.cfg, a, known)

	h.signon(c)
	go c.writeLoop()

	err = c.readLoop(h)

	h.signoff(c)

	if err != nil {
		h.logger.Warn("websocket read failed", "conn_id", c.id, "error", err)
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.conns {
		c.wc.Close()
	}
}

func (h *Hub) signon(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[c] = struct{}{}
	h.logger.Debug("websocket client connected", "conn_id", c.id)
}

func (h *Hub) signoff(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.conns, c)

	for ch, members := range h.channels {
		delete(members, c)

		if len(members) == 0 {
			delete(h.channels, ch)
		}
	}

	// Publishers hold the read lock while sending, so nobody can write to send after this.
	close(c.send)
	h.logger.Debug("websocket client disconnected", "conn_id", c.id)
}

func (h *Hub) handle(c *conn, cmd Command) {
	if cmd.Channel == "" || cmd.Channel == BroadcastChannel {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	switch cmd.Op {
	case OpJoin:
		if !c.mayJoin(cmd.Channel) {
			h.logger.Warn("refusing to join another user's channel", "conn_id", c.id, "channel", cmd.Channel)
			return
		}

		members, ok := h.channels[cmd.Channel]
		if !ok {
			members = make(map[*conn]struct{})
			h.channels[cmd.Channel] = members
		}

		members[c] = struct{}{}
	case OpLeave:
		if members, ok := h.channels[cmd.Channel]; ok {
			delete(members, c)

			if len(members) == 0 {
				delete(h.channels, cmd.Channel)
			}
		}
	default:
		h.logger.Debug("unknown websocket command", "conn_id", c.id, "op", cmd.Op)
	}
}

// Members is the number of clients joined to channel.
func (h *Hub) Members(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if channel == BroadcastChannel {
		return len(h.conns)
	}

	return len(h.channels[channel])
}
