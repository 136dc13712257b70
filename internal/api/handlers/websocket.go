package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"partychat/internal/models"
	"partychat/internal/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced in front of the engine
	},
}

// WebSocketHandler attaches participants to their room.
type WebSocketHandler struct {
	hub *service.Hub
	log zerolog.Logger
}

// NewWebSocketHandler returns a handler serving room connections through hub.
func NewWebSocketHandler(hub *service.Hub, log zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, log: log}
}

// HandleWebSocket upgrades the request and serves it until the peer goes away.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	roomID := c.Param("room")
	if err := models.ValidateRoomName(roomID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room", "details": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.log.Warn().Err(err).Str("room", roomID).Msg("websocket upgrade failed")
		return
	}

	if err := h.hub.Serve(roomID, conn); err != nil {
		if errors.Is(err, service.ErrHubClosed) {
			return
		}
		h.log.Error().Err(err).Str("room", roomID).Msg("serve connection")
	}
}
