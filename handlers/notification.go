package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	archiveRepo "mytelmed/database/repository/archive"
	"mytelmed/models"
	"mytelmed/services/notification"
	"mytelmed/services/tasks"
	"mytelmed/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// TaskEnqueuer is the part of *asynq.Client the handlers need.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// PushRequest is a push published by the MyTelmed backend.
// SendAt defers delivery through the task queue.
type PushRequest struct {
	UserID  string          `json:"userId"`
	Token   string          `json:"token"`
	Payload json.RawMessage `json:"payload" binding:"required"`
	SendAt  *time.Time      `json:"sendAt,omitempty"`
}

// SyncRequest asks for a background sync; an empty tag means the event sync.
type SyncRequest struct {
	Tag string `json:"tag"`
}

type NotificationHandler struct {
	Worker  notification.ServiceWorker
	Queue   TaskEnqueuer
	Archive archiveRepo.EventArchiveRepository
}

func NewNotificationHandler(worker notification.ServiceWorker, queue TaskEnqueuer, archive archiveRepo.EventArchiveRepository) *NotificationHandler {
	return &NotificationHandler{Worker: worker, Queue: queue, Archive: archive}
}

func (h *NotificationHandler) PushHandler(c *gin.Context) {
	logger := getLogger(c)

	var req PushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid push request", err.Error())
		return
	}
	if req.UserID == "" && req.Token == "" {
		utils.JSONError(c, http.StatusBadRequest, "Invalid push request", "userId or token is required")
		return
	}

	if req.SendAt != nil && req.SendAt.After(time.Now()) {
		if h.Queue == nil {
			utils.JSONError(c, http.StatusServiceUnavailable, "Scheduling unavailable", "task queue is not configured")
			return
		}
		task, opts, err := tasks.NewPushTask(tasks.PushTaskPayload{UserID: req.UserID, Token: req.Token, Payload: req.Payload}, *req.SendAt)
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Failed to schedule push", err.Error())
			return
		}
		info, err := h.Queue.EnqueueContext(c.Request.Context(), task, opts...)
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Failed to schedule push", err.Error())
			return
		}
		logger.Info("push scheduled", zap.String("taskId", info.ID), zap.Time("sendAt", *req.SendAt))
		c.JSON(http.StatusAccepted, gin.H{"taskId": info.ID, "sendAt": req.SendAt})
		return
	}

	outcome, err := h.Worker.HandlePush(c.Request.Context(), models.PushEvent{
		UserID:  req.UserID,
		Token:   req.Token,
		Payload: req.Payload,
	})
	switch {
	case errors.Is(err, notification.ErrWorkerStopped):
		utils.JSONError(c, http.StatusServiceUnavailable, "Worker is shutting down", err.Error())
	case outcome == notification.PushFailed:
		utils.JSONError(c, http.StatusBadGateway, "Notification could not be displayed", errString(err))
	case err != nil:
		c.JSON(http.StatusOK, gin.H{"outcome": outcome, "error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"outcome": outcome})
	}
}

func (h *NotificationHandler) ClickHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "User ID not found in context", "")
		return
	}

	var event models.ClickEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid click event", err.Error())
		return
	}
	event.UserID = userID

	result, err := h.Worker.HandleClick(c.Request.Context(), event)
	if err != nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "Click not handled", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *NotificationHandler) CloseHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "User ID not found in context", "")
		return
	}

	var event models.CloseEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid close event", err.Error())
		return
	}
	event.UserID = userID

	if err := h.Worker.HandleClose(c.Request.Context(), event); err != nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "Close not handled", err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

// SyncHandler queues a background sync, or runs it inline when no queue is configured.
func (h *NotificationHandler) SyncHandler(c *gin.Context) {
	var req SyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Invalid sync request", err.Error())
			return
		}
	}
	if req.Tag == "" {
		req.Tag = notification.SyncTag
	}

	if h.Queue == nil {
		report, err := h.Worker.HandleSync(c.Request.Context(), req.Tag)
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Sync failed", err.Error())
			return
		}
		c.JSON(http.StatusOK, report)
		return
	}

	task, opts, err := tasks.NewSyncTask(req.Tag)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to queue sync", err.Error())
		return
	}
	info, err := h.Queue.EnqueueContext(c.Request.Context(), task, opts...)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		c.JSON(http.StatusAccepted, gin.H{"tag": req.Tag, "queued": false})
		return
	}
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to queue sync", err.Error())
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"tag": req.Tag, "queued": true, "taskId": info.ID})
}

// ListEventsHandler returns the caller's archived notification events, newest first.
func (h *NotificationHandler) ListEventsHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "User ID not found in context", "")
		return
	}
	if h.Archive == nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "Event archive unavailable", "")
		return
	}

	limit := int64(50)
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 || n > 500 {
			utils.JSONError(c, http.StatusBadRequest, "Invalid limit", "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	events, err := h.Archive.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to load events", err.Error())
		return
	}
	if events == nil {
		events = []models.ArchivedEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
