package websocket

import (
	"errors"
	"sync"
	"testing"
)

func TestRegistryAdmitLookupRemove(t *testing.T) {
	h := newTestHub(staticVerifier{userID: 1})

	c := addConn(t, h, 0)

	got, ok := h.registry.Lookup(c.ID())
	if !ok || got != c {
		t.Fatal("Lookup should return the admitted connection")
	}
	if got.State() != StateUnauthenticated {
		t.Error("Admitted connection should start unauthenticated")
	}

	h.registry.Remove(c.ID())
	if _, ok := h.registry.Lookup(c.ID()); ok {
		t.Error("Lookup should miss after Remove")
	}

	// Removing an already-removed ID is a no-op, not an error.
	h.registry.Remove(c.ID())
	if h.registry.Len() != 0 {
		t.Errorf("Expected empty registry, got %d", h.registry.Len())
	}
}

func TestRegistryConnectionLimit(t *testing.T) {
	h := NewHub(Config{MaxConnections: 2, SendBuffer: 1}, staticVerifier{userID: 1})

	addConn(t, h, 0)
	addConn(t, h, 0)

	c := newConnection(h, nil)
	err := h.registry.Admit(c)
	if !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("Expected ErrResourceExhausted, got %v", err)
	}

	// Removal frees a slot.
	h.registry.Remove(h.registry.All()[0].ID())
	if err := h.registry.Admit(c); err != nil {
		t.Fatalf("Admit after Remove failed: %v", err)
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	h := newTestHub(staticVerifier{userID: 1})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := newConnection(h, nil)
			if err := h.registry.Admit(c); err != nil {
				t.Errorf("Admit failed: %v", err)
				return
			}
			h.registry.Lookup(c.ID())
			h.registry.Remove(c.ID())
		}()
	}
	wg.Wait()

	if h.registry.Len() != 0 {
		t.Errorf("Expected empty registry after churn, got %d", h.registry.Len())
	}
}

func TestRegistryAuthenticatedLen(t *testing.T) {
	h := newTestHub(staticVerifier{userID: 1})

	addConn(t, h, 0)
	addConn(t, h, 7)
	addConn(t, h, 42)

	if got := h.registry.AuthenticatedLen(); got != 2 {
		t.Errorf("Expected 2 authenticated connections, got %d", got)
	}
}
