package bootstrap

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	httpHandler "github.com/ayushanand27/xhire/internal/handler/http"
	wsHandler "github.com/ayushanand27/xhire/internal/handler/websocket"
	"github.com/ayushanand27/xhire/internal/hub"
	"github.com/ayushanand27/xhire/internal/metrics"
	"github.com/ayushanand27/xhire/internal/middleware"
	"github.com/ayushanand27/xhire/internal/validation"
)

// NewRouter builds the gin engine with every route.
func NewRouter(cfg *Config, log *logrus.Logger, svc Services, h *hub.Hub, limiter middleware.Limiter, ready func(context.Context) error) *gin.Engine {
	validation.InstallGin()
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(metrics.GinMiddleware())
	router.Use(cors(cfg.CORSOrigin))

	roomHandler := httpHandler.NewRoomHandler(svc.Rooms, h)
	participantHandler := httpHandler.NewParticipantHandler(svc.Rooms, h)
	chatHandler := httpHandler.NewChatHandler(svc.Chat, h)
	activityHandler := httpHandler.NewActivityHandler(svc.Activity)
	preferencesHandler := httpHandler.NewPreferencesHandler(svc.Preferences)
	executionHandler := httpHandler.NewExecutionHandler(svc.Execution, h)
	webhookHandler := httpHandler.NewWebhookHandler(svc.Rooms, cfg.StreamWebhookSecret, h)
	authHandler := httpHandler.NewAuthHandler()
	socketHandler := wsHandler.NewWebSocketHandler(h, svc.Rooms, cfg.CORSOrigin)

	auth := middleware.Auth(svc.Identity)

	api := router.Group("/api")
	api.Use(middleware.RateLimit(limiter, cfg.RateLimitMax, cfg.RateLimitWindow))

	// Provider callbacks carry their own signature instead of a bearer token.
	api.POST("/webhooks/stream", webhookHandler.Stream)

	authed := api.Group("", auth)
	authed.GET("/auth/me", authHandler.Me)
	authed.GET("/users/:userId/activity", activityHandler.UserFeed)

	users := authed.Group("/users")
	{
		users.GET("/preferences", preferencesHandler.Get)
		users.PUT("/preferences", preferencesHandler.Update)
		users.GET("/favorites", preferencesHandler.Favorites)
		users.POST("/favorites", preferencesHandler.AddFavorite)
		users.DELETE("/favorites/:roomId", preferencesHandler.RemoveFavorite)
		users.GET("/blocked", preferencesHandler.Blocked)
		users.POST("/blocked", preferencesHandler.Block)
		users.DELETE("/blocked/:userId", preferencesHandler.Unblock)
	}

	rooms := authed.Group("/rooms")
	{
		rooms.POST("", roomHandler.CreateRoom)
		rooms.GET("", roomHandler.ListRooms)
		rooms.GET("/:roomId", roomHandler.GetRoom)
		rooms.PUT("/:roomId", roomHandler.UpdateRoom)
		rooms.DELETE("/:roomId", roomHandler.DeleteRoom)
		rooms.POST("/:roomId/join", roomHandler.JoinRoom)
		rooms.POST("/:roomId/leave", roomHandler.LeaveRoom)
		rooms.GET("/:roomId/stream-token", roomHandler.StreamToken)
		rooms.POST("/:roomId/execute-code", executionHandler.Execute)
		rooms.POST("/:roomId/recording/start", roomHandler.StartRecording)
		rooms.POST("/:roomId/recording/stop", roomHandler.StopRecording)

		participants := rooms.Group("/:roomId/participants")
		participants.GET("", participantHandler.List)
		participants.GET("/:userId", participantHandler.Get)
		participants.PUT("/:userId/role", participantHandler.ChangeRole)
		participants.PUT("/:userId/permissions", participantHandler.ChangePermissions)
		participants.DELETE("/:userId", participantHandler.Remove)
		participants.PUT("/me/media-status", participantHandler.UpdateMediaStatus)

		chat := rooms.Group("/:roomId/chat")
		chat.GET("/token", roomHandler.StreamToken)
		chat.GET("/history", chatHandler.History)
		chat.GET("/search", chatHandler.Search)
		chat.POST("", chatHandler.Send)
		chat.PUT("/:messageId", chatHandler.Edit)
		chat.DELETE("/:messageId", chatHandler.Delete)
		chat.POST("/:messageId/reactions", chatHandler.React)

		activity := rooms.Group("/:roomId/activity")
		activity.GET("", activityHandler.RoomFeed)
		activity.POST("", activityHandler.Log)
		activity.GET("/type/:eventType", activityHandler.RoomFeed)
		activity.GET("/stats", activityHandler.Stats)
	}

	router.GET("/ws/rooms/:roomId", auth, socketHandler.HandleConnection)

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := ready(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func cors(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowedOrigin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
