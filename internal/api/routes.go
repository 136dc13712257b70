package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"partychat/internal/api/handlers"
	"partychat/internal/middleware"
	"partychat/internal/service"
)

// SetupRoutes registers every HTTP and websocket route on r.
func SetupRoutes(r *gin.Engine, services *service.Services, log zerolog.Logger) {
	wsHandler := handlers.NewWebSocketHandler(services.Hub, log)
	roomHandler := handlers.NewRoomHandler(services.Hub)
	uploadHandler := handlers.NewUploadHandler(services.Upload, log)

	r.HandleMethodNotAllowed = true
	r.Use(middleware.Logger(log), middleware.Metrics())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"rooms":  services.Hub.RoomCount(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// one websocket endpoint per room
	r.GET("/parties/chat/:room", wsHandler.HandleWebSocket)
	r.GET("/rooms/:room/messages", roomHandler.GetMessages)

	r.POST("/upload", uploadHandler.Upload)
	r.GET("/files/:key", uploadHandler.Download)
}
