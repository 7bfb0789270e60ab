package websocket

import (
	"log/slog"
	"sync"
)

// Registry is the authoritative set of live connections. Admission and
// removal are the only operations that change the connection count; every
// other component treats existence as advisory and re-validates through
// Lookup.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Connection
	max   int
}

// NewRegistry creates a registry. max <= 0 means unlimited.
func NewRegistry(max int) *Registry {
	return &Registry{
		conns: make(map[string]*Connection),
		max:   max,
	}
}

// Admit registers a new connection in the Unauthenticated state. Returns
// ErrResourceExhausted when the connection limit is reached.
func (r *Registry) Admit(c *Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.max > 0 && len(r.conns) >= r.max {
		return ErrResourceExhausted
	}
	r.conns[c.id] = c
	slog.Debug("Connection admitted", "connID", c.id, "total", len(r.conns))
	return nil
}

// Lookup resolves a connection ID. Safe to call concurrently with
// admission and removal.
func (r *Registry) Lookup(id string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

// Remove deletes a connection from the registry. Removing an unknown ID
// is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

// Len returns the live connection count.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// AuthenticatedLen returns the number of authenticated connections.
func (r *Registry) AuthenticatedLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, c := range r.conns {
		if c.State() == StateAuthenticated {
			n++
		}
	}
	return n
}

// All returns a snapshot of every live connection, used during shutdown.
func (r *Registry) All() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}
