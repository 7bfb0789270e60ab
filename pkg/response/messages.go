// Package response holds the canonical client-facing reply messages of
// the wire protocol, shared by the broker and its tests.
package response

const (
	MsgAuthenticateFirst = "authenticate first"
	MsgUnknownType       = "unknown message type"
	MsgInvalidMessage    = "invalid message format"
	MsgForbidden         = "forbidden"
	MsgRateLimited       = "rate limit exceeded"
	MsgAlreadyAuth       = "already authenticated"
	MsgAuthInProgress    = "authentication in progress"
	MsgBadTarget         = "invalid notification target"
)
