package websocket

import (
	"encoding/json"
	"time"
)

// Client-originated message types.
const (
	TypeAuth         = "auth"
	TypeJoinProject  = "join_project"
	TypeLeaveProject = "leave_project"
	TypeJoinUser     = "join_user"
	TypeLeaveUser    = "leave_user"
	TypeNotification = "notification"
	TypePing         = "ping"
)

// Server-originated message types.
const (
	TypeConnection          = "connection"
	TypeAuthSuccess         = "auth_success"
	TypeAuthError           = "auth_error"
	TypeProjectJoined       = "project_joined"
	TypeProjectLeft         = "project_left"
	TypeUserJoined          = "user_joined"
	TypeUserLeft            = "user_left"
	TypeProjectNotification = "project_notification"
	TypeNotificationSent    = "notification_sent"
	TypePong                = "pong"
)

// Target kinds accepted on notification frames.
const (
	TargetUser    = "user"
	TargetProject = "project"
)

// inboundMessage is the single envelope all client frames decode into.
// The Type tag decides which fields are meaningful; validation happens in
// the router before any handler runs.
type inboundMessage struct {
	Type         string          `json:"type"`
	UserID       uint            `json:"user_id,omitempty"`
	Token        string          `json:"token,omitempty"`
	ProjectID    uint            `json:"project_id,omitempty"`
	TargetType   string          `json:"target_type,omitempty"`
	TargetID     uint            `json:"target_id,omitempty"`
	Notification json.RawMessage `json:"notification,omitempty"`
}

// Notification is the documented payload shape. The broker treats the
// payload as opaque during fan-out; this struct exists for validation at
// the HTTP publish boundary and for producers.
type Notification struct {
	Title    string `json:"title" binding:"required"`
	Body     string `json:"body,omitempty"`
	Priority string `json:"priority,omitempty"`
	Link     string `json:"link,omitempty"`
}

type connectionFrame struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connection_id"`
	Timestamp    int64  `json:"timestamp"`
}

type authSuccessFrame struct {
	Type      string `json:"type"`
	UserID    uint   `json:"user_id"`
	Timestamp int64  `json:"timestamp"`
}

type authErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type projectEventFrame struct {
	Type      string `json:"type"`
	ProjectID uint   `json:"project_id"`
}

type userEventFrame struct {
	Type   string `json:"type"`
	UserID uint   `json:"user_id"`
}

type notificationFrame struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

type notificationSentFrame struct {
	Type      string `json:"type"`
	Delivered int    `json:"delivered"`
}

type pongFrame struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

type errorFrame struct {
	Error string `json:"error"`
}

// marshalFrame serializes a server frame. The frame structs above contain
// nothing that can fail to marshal.
func marshalFrame(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func newConnectionFrame(connID string) []byte {
	return marshalFrame(connectionFrame{Type: TypeConnection, ConnectionID: connID, Timestamp: time.Now().Unix()})
}

func newAuthSuccessFrame(userID uint) []byte {
	return marshalFrame(authSuccessFrame{Type: TypeAuthSuccess, UserID: userID, Timestamp: time.Now().Unix()})
}

func newAuthErrorFrame(msg string) []byte {
	return marshalFrame(authErrorFrame{Type: TypeAuthError, Message: msg})
}

func newProjectEventFrame(eventType string, projectID uint) []byte {
	return marshalFrame(projectEventFrame{Type: eventType, ProjectID: projectID})
}

func newUserEventFrame(eventType string, userID uint) []byte {
	return marshalFrame(userEventFrame{Type: eventType, UserID: userID})
}

// NewNotificationFrame builds the fan-out frame for a channel kind. User
// channels receive "notification", project channels "project_notification".
func NewNotificationFrame(kind string, data json.RawMessage) []byte {
	frameType := TypeNotification
	if kind == ChannelKindProject {
		frameType = TypeProjectNotification
	}
	return marshalFrame(notificationFrame{Type: frameType, Data: data, Timestamp: time.Now().Unix()})
}

func newNotificationSentFrame(delivered int) []byte {
	return marshalFrame(notificationSentFrame{Type: TypeNotificationSent, Delivered: delivered})
}

func newPongFrame() []byte {
	return marshalFrame(pongFrame{Type: TypePong, Timestamp: time.Now().Unix()})
}

func newErrorFrame(msg string) []byte {
	return marshalFrame(errorFrame{Error: msg})
}
