package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Push endpoints (backend only)
	PushHandler gin.HandlerFunc

	// Notification lifecycle endpoints reported by the portal
	ClickHandler      gin.HandlerFunc
	CloseHandler      gin.HandlerFunc
	SyncHandler       gin.HandlerFunc
	ListEventsHandler gin.HandlerFunc

	// Subscription endpoints
	RegisterSubscriptionHandler   gin.HandlerFunc
	UnregisterSubscriptionHandler gin.HandlerFunc

	// Portal tab connection
	WebSocketHandler gin.HandlerFunc

	HealthHandler gin.HandlerFunc
}
