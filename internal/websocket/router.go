package websocket

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"notify-broker/pkg/response"
)

// Router classifies every inbound frame and dispatches it to the right
// component. All per-message failures terminate here as structured replies
// to the originating connection; nothing propagates to other connections
// or to the process.
type Router struct {
	membership  *Membership
	broadcaster *Broadcaster
	handshake   *Handshake
}

func NewRouter(membership *Membership, broadcaster *Broadcaster, handshake *Handshake) *Router {
	return &Router{
		membership:  membership,
		broadcaster: broadcaster,
		handshake:   handshake,
	}
}

func knownType(t string) bool {
	switch t {
	case TypeAuth, TypeJoinProject, TypeLeaveProject, TypeJoinUser, TypeLeaveUser, TypeNotification, TypePing:
		return true
	default:
		return false
	}
}

// HandleFrame processes one raw frame from a connection's read pump.
func (r *Router) HandleFrame(c *Connection, data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		r.reply(c, newErrorFrame(response.MsgInvalidMessage))
		return
	}

	if !knownType(msg.Type) {
		r.reply(c, newErrorFrame(response.MsgUnknownType))
		return
	}

	// Only the handshake is accepted before authentication. The
	// connection stays open so the client can still authenticate.
	if c.State() == StateUnauthenticated && msg.Type != TypeAuth {
		r.reply(c, newErrorFrame(response.MsgAuthenticateFirst))
		return
	}

	switch msg.Type {
	case TypeAuth:
		r.handleAuth(c, &msg)
	case TypeJoinProject:
		r.handleJoinProject(c, &msg)
	case TypeLeaveProject:
		r.handleLeaveProject(c, &msg)
	case TypeJoinUser:
		r.handleJoinUser(c, &msg)
	case TypeLeaveUser:
		r.handleLeaveUser(c, &msg)
	case TypeNotification:
		r.handleNotification(c, &msg)
	case TypePing:
		r.reply(c, newPongFrame())
	}
}

func (r *Router) handleAuth(c *Connection, msg *inboundMessage) {
	if msg.Token == "" {
		r.reply(c, newAuthErrorFrame(response.MsgInvalidMessage))
		return
	}

	userID, err := r.handshake.Authenticate(c.id, msg.UserID, msg.Token)
	switch {
	case err == nil:
		r.reply(c, newAuthSuccessFrame(userID))
	case errors.Is(err, ErrAlreadyAuthenticated):
		r.reply(c, newAuthErrorFrame(response.MsgAlreadyAuth))
	case errors.Is(err, ErrHandshakeInProgress):
		r.reply(c, newAuthErrorFrame(response.MsgAuthInProgress))
	default:
		// Invalid or expired claim. The connection stays open and
		// unauthenticated; closing is the client's call.
		slog.Debug("Handshake rejected", "connID", c.id, "error", err)
		r.reply(c, newAuthErrorFrame("invalid token"))
	}
}

func (r *Router) handleJoinProject(c *Connection, msg *inboundMessage) {
	if msg.ProjectID == 0 {
		r.reply(c, newErrorFrame(response.MsgInvalidMessage))
		return
	}
	if !c.joinLimiter.allow(time.Now()) {
		r.reply(c, newErrorFrame(response.MsgRateLimited))
		return
	}
	if err := r.membership.Join(c.id, ProjectChannel(msg.ProjectID)); err != nil {
		r.replyJoinError(c, err)
		return
	}
	r.reply(c, newProjectEventFrame(TypeProjectJoined, msg.ProjectID))
}

func (r *Router) handleLeaveProject(c *Connection, msg *inboundMessage) {
	if msg.ProjectID == 0 {
		r.reply(c, newErrorFrame(response.MsgInvalidMessage))
		return
	}
	r.membership.Leave(c.id, ProjectChannel(msg.ProjectID))
	r.reply(c, newProjectEventFrame(TypeProjectLeft, msg.ProjectID))
}

func (r *Router) handleJoinUser(c *Connection, msg *inboundMessage) {
	target := msg.UserID
	if target == 0 {
		// Default to the connection's own private channel.
		target, _ = c.UserID()
	}
	if !c.joinLimiter.allow(time.Now()) {
		r.reply(c, newErrorFrame(response.MsgRateLimited))
		return
	}
	if err := r.membership.Join(c.id, UserChannel(target)); err != nil {
		r.replyJoinError(c, err)
		return
	}
	r.reply(c, newUserEventFrame(TypeUserJoined, target))
}

func (r *Router) handleLeaveUser(c *Connection, msg *inboundMessage) {
	target := msg.UserID
	if target == 0 {
		target, _ = c.UserID()
	}
	r.membership.Leave(c.id, UserChannel(target))
	r.reply(c, newUserEventFrame(TypeUserLeft, target))
}

func (r *Router) handleNotification(c *Connection, msg *inboundMessage) {
	if msg.TargetID == 0 || len(msg.Notification) == 0 {
		r.reply(c, newErrorFrame(response.MsgBadTarget))
		return
	}

	var ch Channel
	switch msg.TargetType {
	case TargetUser:
		ch = UserChannel(msg.TargetID)
	case TargetProject:
		ch = ProjectChannel(msg.TargetID)
	default:
		r.reply(c, newErrorFrame(response.MsgBadTarget))
		return
	}

	if !c.notifyLimiter.allow(time.Now()) {
		r.reply(c, newErrorFrame(response.MsgRateLimited))
		return
	}

	delivered := r.broadcaster.Broadcast(ch, NewNotificationFrame(ch.Kind(), msg.Notification))
	r.reply(c, newNotificationSentFrame(delivered))
}

func (r *Router) replyJoinError(c *Connection, err error) {
	switch {
	case errors.Is(err, ErrForbidden):
		r.reply(c, newErrorFrame(response.MsgForbidden))
	case errors.Is(err, ErrNotAuthenticated):
		r.reply(c, newErrorFrame(response.MsgAuthenticateFirst))
	default:
		r.reply(c, newErrorFrame(response.MsgInvalidMessage))
	}
}

// reply enqueues a frame for the originating connection. Replies are
// best-effort like any other delivery.
func (r *Router) reply(c *Connection, frame []byte) {
	if err := c.enqueue(frame); err != nil {
		slog.Debug("Dropped reply", "connID", c.id, "error", err)
	}
}
