package routes

import (
	"time"

	"mytelmed/handlers"
	"mytelmed/middleware"
	"mytelmed/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterPushRoutes registers the endpoint the MyTelmed backend publishes pushes to.
func RegisterPushRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/push")
	{
		api.Use(middleware.JWTAuthMiddleware(), middleware.RequireRoles(utils.RoleService, utils.RoleAdmin))
		api.POST("", hb.PushHandler)
	}
}

// RegisterNotificationRoutes registers the lifecycle endpoints the portal reports to.
func RegisterNotificationRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/notifications")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.POST("/click", hb.ClickHandler)
		api.POST("/close", hb.CloseHandler)
		api.GET("/events", hb.ListEventsHandler)
		// sync flushes every user's cached events
		api.POST("/sync", middleware.RequireRoles(utils.RoleService, utils.RoleAdmin), hb.SyncHandler)
	}
}

// RegisterSubscriptionRoutes registers FCM token management.
func RegisterSubscriptionRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/subscriptions")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.POST("", hb.RegisterSubscriptionHandler)
		api.DELETE("", hb.UnregisterSubscriptionHandler)
	}
}

// RegisterClientRoutes registers the websocket portal tabs connect to.
func RegisterClientRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/ws", middleware.JWTAuthMiddleware(), hb.WebSocketHandler)
}

// RegisterHealthRoute registers the health-check and metrics endpoints.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle, allowedOrigins []string) {
	corsConfig := cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	r.Use(cors.New(corsConfig))

	RegisterPushRoutes(r, hb)
	RegisterNotificationRoutes(r, hb)
	RegisterSubscriptionRoutes(r, hb)
	RegisterClientRoutes(r, hb)
	RegisterHealthRoute(r, hb)
}
