package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"partychat/internal/models"
	"partychat/internal/service"
)

// RoomHandler exposes read-only room queries.
type RoomHandler struct {
	hub *service.Hub
}

// NewRoomHandler returns a handler answering room queries from hub.
func NewRoomHandler(hub *service.Hub) *RoomHandler {
	return &RoomHandler{hub: hub}
}

// GetMessages returns the retained messages of a room in load order.
func (h *RoomHandler) GetMessages(c *gin.Context) {
	roomID := c.Param("room")

	messages, err := h.hub.Snapshot(c.Request.Context(), roomID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidRoomName):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room", "details": err.Error()})
		case errors.Is(err, service.ErrHubClosed):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server is shutting down"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages", "details": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room":     roomID,
		"messages": messages,
	})
}
