package websocket

import (
	"fmt"
	"log/slog"

	"notify-broker/internal/auth"
)

// Handshake is the only path by which a connection transitions from
// Unauthenticated to Authenticated. Cryptographic verification is
// delegated to the injected verifier; the handler never closes the
// transport itself.
type Handshake struct {
	registry *Registry
	verifier auth.Verifier
}

func NewHandshake(registry *Registry, verifier auth.Verifier) *Handshake {
	return &Handshake{registry: registry, verifier: verifier}
}

// Authenticate validates the presented claim and promotes the connection.
// At most one attempt may be in flight per connection; a second success is
// impossible because promotion happens exactly once.
func (h *Handshake) Authenticate(connID string, claimedUserID uint, token string) (uint, error) {
	conn, ok := h.registry.Lookup(connID)
	if !ok {
		return 0, ErrConnectionNotFound
	}

	if !conn.beginAuth() {
		return 0, ErrHandshakeInProgress
	}
	defer conn.endAuth()

	if conn.State() == StateAuthenticated {
		return 0, ErrAlreadyAuthenticated
	}

	claims, err := h.verifier.Verify(token)
	if err != nil {
		return 0, fmt.Errorf("claim verification failed: %w", err)
	}
	if claims.UserID != claimedUserID {
		return 0, fmt.Errorf("%w: user_id does not match token", auth.ErrInvalidToken)
	}

	if err := conn.setAuthenticated(claims.UserID); err != nil {
		return 0, err
	}

	slog.Info("Connection authenticated", "connID", connID, "userID", claims.UserID)
	return claims.UserID, nil
}
