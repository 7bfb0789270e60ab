package routes

import (
	"github.com/gin-gonic/gin"

	"notify-broker/internal/api/handlers"
	"notify-broker/internal/api/middleware"
	"notify-broker/internal/config"
	"notify-broker/internal/websocket"
)

type Router struct {
	engine        *gin.Engine
	wsHandler     *handlers.WSHandler
	notifyHandler *handlers.NotifyHandler
	authMW        *middleware.AuthMiddleware
}

func NewRouter(hub *websocket.Hub, cfg *config.Config) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(cfg.Broker.AllowedOrigins))
	engine.Use(middleware.LogApi())

	return &Router{
		engine:        engine,
		wsHandler:     handlers.NewWSHandler(hub),
		notifyHandler: handlers.NewNotifyHandler(hub),
		authMW:        middleware.NewAuthMiddleware(cfg.API.Token),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.engine.Group("/api/v1")

	// WebSocket endpoint; the auth handshake runs over the socket.
	api.GET("/ws", r.wsHandler.HandleWebSocket)

	// Internal endpoints for the application tier.
	internal := api.Group("/")
	internal.Use(r.authMW.RequireToken())
	{
		internal.POST("/notify", r.notifyHandler.PublishNotification)
		internal.GET("/stats", r.notifyHandler.GetStats)
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
