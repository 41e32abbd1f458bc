package handlers

import (
	"mytelmed/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// getLogger retrieves the request-scoped logger set by RequestLogger, or the global one.
func getLogger(c *gin.Context) *zap.Logger {
	if l, exists := c.Get(middleware.LoggerKey); exists {
		if logger, ok := l.(*zap.Logger); ok {
			return logger
		}
	}
	return zap.L()
}

// currentUserID returns the subject stored by JWTAuthMiddleware.
func currentUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(middleware.UserContextKey)
	return userID, userID != ""
}
