package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/noahxzhu/bosswatch/internal/model"
	"github.com/noahxzhu/bosswatch/internal/sound"
	"github.com/noahxzhu/bosswatch/internal/worker"
)

const (
	FrameCountdown    = "countdown"
	FrameBosses       = "bosses"
	FrameSound        = "sound"
	FrameNotification = "notification"
)

var ErrHubClosed = errors.New("websocket hub closed")

// Frame is one message pushed to dashboard clients.
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type HubConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

func DefaultHubConfig() HubConfig {
	return HubConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// Hub fans countdown, boss list, sound and notification frames out to every connected
// dashboard. It is the worker's Display, the sound player's Output and a
// notification sink.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]bool
	last     map[string][]byte
	closed   bool
	upgrader websocket.Upgrader
	config   HubConfig
	logger   *slog.Logger

	broadcastCh chan []byte
}

type client struct {
	id          string
	conn        *websocket.Conn
	send        chan []byte
	hub         *Hub
	connectedAt time.Time
}

func NewHub(config HubConfig, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*client]bool),
		last:    make(map[string][]byte),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		logger:      logger,
		broadcastCh: make(chan []byte, 256),
	}
}

// Start fans queued frames out until ctx is done.
func (h *Hub) Start(ctx context.Context) {
	h.logger.Info("Websocket hub started")
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Websocket hub stopped")
			return
		case data := <-h.broadcastCh:
			h.fanout(data)
		}
	}
}

// ServeWS upgrades the request and replays the latest frames to the new client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", "error", err)
		return
	}
	c := &client{
		id:          uuid.New().String(),
		conn:        conn,
		send:        make(chan []byte, 64),
		hub:         h,
		connectedAt: time.Now(),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = true
	for _, typ := range []string{FrameBosses, FrameCountdown} {
		if data, ok := h.last[typ]; ok {
			c.send <- data
		}
	}
	total := len(h.clients)
	h.mu.Unlock()

	go c.writePump()
	go c.readPump()

	h.logger.Info("Websocket client connected", "client_id", c.id, "remote", r.RemoteAddr, "clients", total)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.logger.Info("Websocket client disconnected", "client_id", c.id, "connected_for", time.Since(c.connectedAt).Truncate(time.Second))
	}
}

// Clients returns the number of connected dashboards.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(typ string, v any) error {
	data, err := json.Marshal(Frame{Type: typ, Data: v})
	if err != nil {
		return fmt.Errorf("marshal %s frame: %w", typ, err)
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	if typ == FrameCountdown || typ == FrameBosses {
		h.last[typ] = data
	}
	h.mu.Unlock()

	select {
	case h.broadcastCh <- data:
	default:
		h.logger.Warn("Broadcast channel full, dropping frame", "type", typ)
	}
	return nil
}

func (h *Hub) fanout(data []byte) {
	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("Client send buffer full, closing connection", "client_id", c.id)
		h.unregister(c)
		c.conn.Close()
	}
}

func (h *Hub) ShowCountdown(s worker.Snapshot) {
	if err := h.broadcast(FrameCountdown, s); err != nil && !errors.Is(err, ErrHubClosed) {
		h.logger.Error("Failed to broadcast countdown", "error", err)
	}
}

func (h *Hub) ShowBosses(bosses []model.Boss) {
	if err := h.broadcast(FrameBosses, bosses); err != nil && !errors.Is(err, ErrHubClosed) {
		h.logger.Error("Failed to broadcast bosses", "error", err)
	}
}

// Play sends the cue to the browsers, which synthesise the tones.
func (h *Hub) Play(_ context.Context, cue sound.Cue) error {
	return h.broadcast(FrameSound, cue)
}

func (h *Hub) Name() string { return "browser" }

// Notify pushes n to the dashboards, which show it with the browser
// Notification API.
func (h *Hub) Notify(_ context.Context, n model.Notification) error {
	return h.broadcast(FrameNotification, n)
}

// Close disconnects every client. Later frames are rejected.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
	return nil
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.hub.unregister(c)
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Error("Failed to write websocket message", "client_id", c.id, "error", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only drains control frames; dashboards do not send commands.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("Unexpected websocket close", "client_id", c.id, "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	}
}
