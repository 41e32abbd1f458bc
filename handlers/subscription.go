package handlers

import (
	"errors"
	"net/http"

	subscriptionRepo "mytelmed/database/repository/subscription"
	"mytelmed/models"
	"mytelmed/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SubscriptionHandler struct {
	Repo subscriptionRepo.SubscriptionRepository
}

func NewSubscriptionHandler(repo subscriptionRepo.SubscriptionRepository) *SubscriptionHandler {
	return &SubscriptionHandler{Repo: repo}
}

// RegisterSubscriptionHandler binds the browser's FCM token to the current user.
func (h *SubscriptionHandler) RegisterSubscriptionHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "User ID not found in context", "")
		return
	}

	var req models.SubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid subscription request", err.Error())
		return
	}

	sub, err := h.Repo.Upsert(c.Request.Context(), models.PushSubscription{
		UserID:     userID,
		Token:      req.Token,
		DeviceName: req.DeviceName,
		UserAgent:  c.Request.UserAgent(),
	})
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to save subscription", err.Error())
		return
	}

	getLogger(c).Info("push subscription registered", zap.String("userId", userID), zap.String("subscriptionId", sub.ID))
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

// UnregisterSubscriptionHandler removes one of the current user's tokens.
func (h *SubscriptionHandler) UnregisterSubscriptionHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "User ID not found in context", "")
		return
	}

	var req models.SubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid subscription request", err.Error())
		return
	}

	err := h.Repo.DeleteByUserAndToken(c.Request.Context(), userID, req.Token)
	if errors.Is(err, subscriptionRepo.ErrSubscriptionNotFound) {
		utils.JSONError(c, http.StatusNotFound, "Subscription not found", "")
		return
	}
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to delete subscription", err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}
