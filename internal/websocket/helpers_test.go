package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"notify-broker/internal/auth"
)

// staticVerifier accepts any token and asserts a fixed identity, or fails
// with a fixed error.
type staticVerifier struct {
	userID uint
	err    error
}

func (v staticVerifier) Verify(token string) (*auth.Claims, error) {
	if v.err != nil {
		return nil, v.err
	}
	return &auth.Claims{UserID: v.userID}, nil
}

func newTestHub(verifier auth.Verifier) *Hub {
	return NewHub(Config{
		AuthTimeout: time.Minute,
		IdleTimeout: time.Minute,
		SendBuffer:  16,
	}, verifier)
}

// addConn admits a pumpless connection. userID zero leaves it
// unauthenticated.
func addConn(t *testing.T, h *Hub, userID uint) *Connection {
	t.Helper()
	c := newConnection(h, nil)
	if err := h.registry.Admit(c); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if userID != 0 {
		if err := c.setAuthenticated(userID); err != nil {
			t.Fatalf("setAuthenticated failed: %v", err)
		}
	}
	return c
}

// nextFrame pops one queued outbound frame and decodes it.
func nextFrame(t *testing.T, c *Connection) map[string]any {
	t.Helper()
	select {
	case b := <-c.send:
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			t.Fatalf("Frame is not JSON: %v", err)
		}
		return m
	case <-time.After(time.Second):
		t.Fatal("No frame queued")
		return nil
	}
}

func assertNoFrame(t *testing.T, c *Connection) {
	t.Helper()
	select {
	case b := <-c.send:
		t.Fatalf("Unexpected frame queued: %s", b)
	default:
	}
}
