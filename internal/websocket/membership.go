package websocket

import (
	"log/slog"
	"sync"
)

// Membership is the many-to-many index between channels and authenticated
// connections. Channels come into existence on first join and are removed
// on last leave. A reverse index keeps LeaveAll cheap and atomic with
// respect to concurrent joins for the same connection.
type Membership struct {
	registry *Registry

	mu       sync.RWMutex
	channels map[Channel]map[string]struct{}
	byConn   map[string]map[Channel]struct{}
}

func NewMembership(registry *Registry) *Membership {
	return &Membership{
		registry: registry,
		channels: make(map[Channel]map[string]struct{}),
		byConn:   make(map[string]map[Channel]struct{}),
	}
}

// Join adds a connection to a channel's member set. The connection must be
// authenticated, and a "user:<id>" channel accepts only its own user
// identity. Joining twice is joined once.
func (m *Membership) Join(connID string, ch Channel) error {
	conn, ok := m.registry.Lookup(connID)
	if !ok {
		return ErrConnectionNotFound
	}

	userID, authed := conn.UserID()
	if !authed {
		return ErrNotAuthenticated
	}
	if owner, isUser := ch.OwnerID(); isUser && owner != userID {
		return ErrForbidden
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// A teardown marks the connection closed before calling LeaveAll, so
	// checking under the table lock means either this join loses and is
	// rejected, or it wins and LeaveAll sweeps the entry right after.
	if conn.isClosed() {
		return ErrConnectionNotFound
	}

	if m.channels[ch] == nil {
		m.channels[ch] = make(map[string]struct{})
	}
	m.channels[ch][connID] = struct{}{}

	if m.byConn[connID] == nil {
		m.byConn[connID] = make(map[Channel]struct{})
	}
	m.byConn[connID][ch] = struct{}{}

	slog.Debug("Joined channel", "connID", connID, "userID", userID, "channel", ch)
	return nil
}

// Leave removes a connection from a channel. Removing a non-membership is
// a no-op.
func (m *Membership) Leave(connID string, ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveLocked(connID, ch)
}

func (m *Membership) leaveLocked(connID string, ch Channel) {
	if members, ok := m.channels[ch]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(m.channels, ch)
		}
	}
	if chans, ok := m.byConn[connID]; ok {
		delete(chans, ch)
		if len(chans) == 0 {
			delete(m.byConn, connID)
		}
	}
}

// LeaveAll removes a connection from every channel it belongs to. Called
// by teardown only.
func (m *Membership) LeaveAll(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for ch := range m.byConn[connID] {
		m.leaveLocked(connID, ch)
	}
	delete(m.byConn, connID)
}

// Members returns a snapshot of the channel's member IDs. Connections
// removed before the snapshot never appear; connections that disconnect
// during delivery race benignly and are dropped by the broadcaster.
func (m *Membership) Members(ch Channel) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	members := make([]string, 0, len(m.channels[ch]))
	for id := range m.channels[ch] {
		members = append(members, id)
	}
	return members
}

// Channels returns a snapshot of the channels a connection belongs to.
func (m *Membership) Channels(connID string) []Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chans := make([]Channel, 0, len(m.byConn[connID]))
	for ch := range m.byConn[connID] {
		chans = append(chans, ch)
	}
	return chans
}

// ChannelCounts returns the number of live channels per kind.
func (m *Membership) ChannelCounts() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int)
	for ch := range m.channels {
		counts[ch.Kind()]++
	}
	return counts
}
