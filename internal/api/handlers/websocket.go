package handlers

import (
	"github.com/gin-gonic/gin"

	"notify-broker/internal/websocket"
)

type WSHandler struct {
	hub *websocket.Hub
}

func NewWSHandler(hub *websocket.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// HandleWebSocket upgrades the request and hands the connection to the
// hub. Authentication happens in-band over the socket.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request)
}
