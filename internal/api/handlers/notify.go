package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"notify-broker/internal/websocket"
)

// NotifyHandler exposes the channel fan-out primitive to the application
// tier over HTTP.
type NotifyHandler struct {
	hub *websocket.Hub
}

func NewNotifyHandler(hub *websocket.Hub) *NotifyHandler {
	return &NotifyHandler{hub: hub}
}

type notifyRequest struct {
	TargetType   string                 `json:"target_type" binding:"required,oneof=user project"`
	TargetID     uint                   `json:"target_id" binding:"required"`
	Notification websocket.Notification `json:"notification" binding:"required"`
}

// PublishNotification fans a server-originated notification out to the
// target channel and reports how many live connections received it.
// Delivery is best-effort; offline recipients are the caller's concern.
func (h *NotifyHandler) PublishNotification(c *gin.Context) {
	var req notifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := json.Marshal(req.Notification)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification payload"})
		return
	}

	var ch websocket.Channel
	if req.TargetType == websocket.TargetUser {
		ch = websocket.UserChannel(req.TargetID)
	} else {
		ch = websocket.ProjectChannel(req.TargetID)
	}

	delivered := h.hub.Publish(ch, data)
	c.JSON(http.StatusOK, gin.H{"delivered": delivered})
}

// GetStats returns live broker counters.
func (h *NotifyHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.Stats())
}
