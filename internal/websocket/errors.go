package websocket

import "errors"

var (
	// ErrResourceExhausted means the connection limit is reached and
	// admission was refused.
	ErrResourceExhausted = errors.New("connection limit reached")

	// ErrConnectionNotFound means the connection ID resolves to nothing,
	// either never admitted or already torn down.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrAlreadyAuthenticated means a handshake was attempted on a
	// connection that already holds a user identity.
	ErrAlreadyAuthenticated = errors.New("connection already authenticated")

	// ErrHandshakeInProgress means another handshake attempt for the same
	// connection has not finished yet.
	ErrHandshakeInProgress = errors.New("authentication already in progress")

	// ErrNotAuthenticated means the operation requires an authenticated
	// connection.
	ErrNotAuthenticated = errors.New("connection not authenticated")

	// ErrForbidden means the connection's identity does not permit the
	// requested channel.
	ErrForbidden = errors.New("channel not permitted for this user")

	// ErrSendBufferFull means the recipient's outbound queue is full and
	// the frame was dropped.
	ErrSendBufferFull = errors.New("send buffer full")

	// ErrConnectionClosed means the connection was closed before or during
	// the operation.
	ErrConnectionClosed = errors.New("connection closed")
)
