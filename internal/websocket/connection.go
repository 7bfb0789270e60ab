package websocket

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ConnState is the lifecycle state of a connection. Transitions are
// forward-only: a connection never de-authenticates without disconnecting.
type ConnState int32

const (
	StateUnauthenticated ConnState = iota
	StateAuthenticated
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Connection is one live transport session, exclusively owned by the
// Registry. Other components reference it by ID and re-resolve through
// Lookup before use.
type Connection struct {
	id  string
	hub *Hub
	ws  *websocket.Conn

	// Outbound queue consumed by a single writePump, which preserves
	// per-recipient submission order.
	send chan []byte

	mu     sync.RWMutex
	state  ConnState
	userID uint

	authInFlight int32
	closed       int32
	authTimer    *time.Timer

	joinLimiter   *rateLimiter
	notifyLimiter *rateLimiter

	ctx    context.Context
	cancel context.CancelFunc
}

func newConnection(hub *Hub, ws *websocket.Conn) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		id:            uuid.New().String(),
		hub:           hub,
		ws:            ws,
		send:          make(chan []byte, hub.cfg.SendBuffer),
		state:         StateUnauthenticated,
		joinLimiter:   newRateLimiter(hub.cfg.JoinRateLimit, time.Minute),
		notifyLimiter: newRateLimiter(hub.cfg.NotifyRateLimit, time.Minute),
		ctx:           ctx,
		cancel:        cancel,
	}
}

func (c *Connection) ID() string {
	return c.id
}

func (c *Connection) State() ConnState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// UserID returns the authenticated user identity. The second return is
// false while the connection is unauthenticated.
func (c *Connection) UserID() (uint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateAuthenticated {
		return 0, false
	}
	return c.userID, true
}

// setAuthenticated promotes the connection exactly once.
func (c *Connection) setAuthenticated(userID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateAuthenticated {
		return ErrAlreadyAuthenticated
	}
	c.state = StateAuthenticated
	c.userID = userID
	if c.authTimer != nil {
		c.authTimer.Stop()
	}
	return nil
}

// beginAuth claims the single in-flight handshake slot.
func (c *Connection) beginAuth() bool {
	return atomic.CompareAndSwapInt32(&c.authInFlight, 0, 1)
}

func (c *Connection) endAuth() {
	atomic.StoreInt32(&c.authInFlight, 0)
}

func (c *Connection) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// close marks the connection closed, cancels its context and closes the
// underlying socket to unblock the read pump. Idempotent.
func (c *Connection) close() {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return
	}
	c.cancel()
	c.mu.Lock()
	if c.authTimer != nil {
		c.authTimer.Stop()
	}
	c.mu.Unlock()
	if c.ws != nil {
		c.ws.Close()
	}
	slog.Debug("Connection closed", "connID", c.id)
}

// enqueue pushes a frame onto the outbound queue without blocking. A full
// queue drops the frame rather than stalling the caller.
func (c *Connection) enqueue(frame []byte) error {
	if c.isClosed() {
		return ErrConnectionClosed
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
		return ErrSendBufferFull
	}
}

// startAuthTimer arms the handshake deadline. An unauthenticated
// connection must not hold resources indefinitely.
func (c *Connection) startAuthTimer(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateAuthenticated {
		return
	}
	c.authTimer = time.AfterFunc(timeout, func() {
		if c.State() == StateAuthenticated {
			return
		}
		slog.Info("Authentication deadline expired", "connID", c.id)
		c.hub.Teardown(c.id)
	})
}

// readPump reads inbound frames and feeds them to the router. Frames from
// the same client are processed in arrival order. Runs as one goroutine
// per connection; exit triggers teardown.
func (c *Connection) readPump() {
	defer func() {
		c.hub.Teardown(c.id)
	}()

	idle := c.hub.cfg.IdleTimeout
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(idle))
	c.ws.SetPongHandler(func(string) error {
		if c.isClosed() {
			return websocket.ErrCloseSent
		}
		c.ws.SetReadDeadline(time.Now().Add(idle))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Debug("WebSocket read error", "connID", c.id, "error", err)
			}
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(idle))
		c.hub.router.HandleFrame(c, data)
	}
}

// writePump drains the outbound queue onto the socket and keeps the peer
// alive with transport pings. One goroutine per connection, so a slow
// reader elsewhere never blocks this socket's writes.
func (c *Connection) writePump() {
	pingPeriod := c.hub.cfg.IdleTimeout * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.hub.Teardown(c.id)
	}()

	for {
		select {
		case frame := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				slog.Debug("WebSocket write error", "connID", c.id, "error", err)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, nil)
			return
		}
	}
}
