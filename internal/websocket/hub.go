package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"notify-broker/internal/auth"
)

// Config carries the broker tunables. Zero values fall back to defaults.
type Config struct {
	MaxConnections  int
	AuthTimeout     time.Duration
	IdleTimeout     time.Duration
	SendBuffer      int
	JoinRateLimit   int
	NotifyRateLimit int
	AllowedOrigins  []string
}

func (c Config) withDefaults() Config {
	if c.AuthTimeout <= 0 {
		c.AuthTimeout = 10 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}
	return c
}

// Stats is a point-in-time view of broker state for the stats endpoint.
type Stats struct {
	Connections   int            `json:"connections"`
	Authenticated int            `json:"authenticated"`
	Channels      map[string]int `json:"channels"`
	Delivered     int64          `json:"delivered"`
	Dropped       int64          `json:"dropped"`
}

// Hub owns the broker components and the connection lifecycle from
// admission to teardown.
type Hub struct {
	cfg         Config
	registry    *Registry
	membership  *Membership
	broadcaster *Broadcaster
	handshake   *Handshake
	router      *Router
	upgrader    websocket.Upgrader
}

func NewHub(cfg Config, verifier auth.Verifier) *Hub {
	cfg = cfg.withDefaults()

	registry := NewRegistry(cfg.MaxConnections)
	membership := NewMembership(registry)
	broadcaster := NewBroadcaster(registry, membership)
	handshake := NewHandshake(registry, verifier)

	h := &Hub{
		cfg:         cfg,
		registry:    registry,
		membership:  membership,
		broadcaster: broadcaster,
		handshake:   handshake,
		router:      NewRouter(membership, broadcaster, handshake),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

// ServeWS upgrades an HTTP request and admits the connection in the
// Unauthenticated state. Admission failure is a transport-level close
// with no application message.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("WebSocket upgrade failed", "error", err)
		return
	}

	conn := newConnection(h, ws)
	if err := h.registry.Admit(conn); err != nil {
		slog.Warn("Connection refused", "error", err)
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, ""),
			time.Now().Add(writeWait))
		ws.Close()
		return
	}

	slog.Info("Connection established", "connID", conn.id, "remote", r.RemoteAddr)

	// Enqueued before the pumps start; the buffered queue holds it until
	// writePump comes up.
	conn.enqueue(newConnectionFrame(conn.id))

	conn.startAuthTimer(h.cfg.AuthTimeout)
	go conn.writePump()
	go conn.readPump()
}

// Teardown is the single cleanup path for disconnect, transport error,
// auth deadline and shutdown. Marks the connection closed before touching
// the membership table so a racing Join cannot resurrect it, then removes
// memberships and the registry entry. Idempotent.
func (h *Hub) Teardown(connID string) {
	if conn, ok := h.registry.Lookup(connID); ok {
		conn.close()
	}
	h.membership.LeaveAll(connID)
	h.registry.Remove(connID)
	slog.Debug("Connection torn down", "connID", connID)
}

// Publish fans a server-originated notification out to a channel. Used by
// the HTTP publish endpoint and the Kafka ingest consumer.
func (h *Hub) Publish(ch Channel, data json.RawMessage) int {
	return h.broadcaster.Broadcast(ch, NewNotificationFrame(ch.Kind(), data))
}

// Stats returns current broker counters.
func (h *Hub) Stats() Stats {
	return Stats{
		Connections:   h.registry.Len(),
		Authenticated: h.registry.AuthenticatedLen(),
		Channels:      h.membership.ChannelCounts(),
		Delivered:     h.broadcaster.Delivered(),
		Dropped:       h.broadcaster.Dropped(),
	}
}

// Shutdown tears down every live connection.
func (h *Hub) Shutdown() {
	for _, conn := range h.registry.All() {
		h.Teardown(conn.id)
	}
	slog.Info("WebSocket hub stopped")
}
