package websocket

import (
	"fmt"
	"strconv"
	"strings"
)

// Channel is a logical topic name. Two kinds exist: "user:<id>" channels
// are private to one user identity, "project:<id>" channels are shared.
// Channels are never pre-declared; they exist only while at least one
// connection is joined.
type Channel string

const (
	ChannelKindUser    = "user"
	ChannelKindProject = "project"
)

// UserChannel returns the private channel for a user identity.
func UserChannel(userID uint) Channel {
	return Channel(fmt.Sprintf("user:%d", userID))
}

// ProjectChannel returns the shared channel for a project.
func ProjectChannel(projectID uint) Channel {
	return Channel(fmt.Sprintf("project:%d", projectID))
}

// Kind returns "user" or "project", or "" for a malformed channel name.
func (c Channel) Kind() string {
	switch {
	case strings.HasPrefix(string(c), "user:"):
		return ChannelKindUser
	case strings.HasPrefix(string(c), "project:"):
		return ChannelKindProject
	default:
		return ""
	}
}

// OwnerID returns the owning user identity for a user channel. The second
// return is false for project channels and malformed names.
func (c Channel) OwnerID() (uint, bool) {
	if c.Kind() != ChannelKindUser {
		return 0, false
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(string(c), "user:"), 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

func (c Channel) String() string {
	return string(c)
}
