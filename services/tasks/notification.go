package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypePushDeliver    = "notification:push"
	TypeEventsSync     = "notification-events-sync"
	TypeEventsPurge    = "notification-events:cleanup"
	notificationsQueue = "notifications"
)

// PushTaskPayload carries a raw push payload to the worker, untouched until HandlePush parses it.
type PushTaskPayload struct {
	UserID  string          `json:"userId,omitempty"`
	Token   string          `json:"token,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// SyncTaskPayload names the sync tag the worker should handle.
type SyncTaskPayload struct {
	Tag string `json:"tag"`
}

// NewPushTask schedules a push. A zero fireAt delivers immediately.
func NewPushTask(payload PushTaskPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypePushDeliver, b)
	opts := []asynq.Option{asynq.Queue(notificationsQueue), asynq.MaxRetry(3)}
	if !fireAt.IsZero() {
		opts = append(opts, asynq.ProcessAt(fireAt))
	}

	return task, opts, nil
}

// NewSyncTask asks the worker to flush cached events for tag.
func NewSyncTask(tag string) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(SyncTaskPayload{Tag: tag})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeEventsSync, b)
	// one pending sync is enough; later requests collapse into it
	opts := []asynq.Option{asynq.Queue(notificationsQueue), asynq.Unique(time.Minute)}

	return task, opts, nil
}

// NewCleanupTask asks the worker to expire old cached events.
func NewCleanupTask() (*asynq.Task, []asynq.Option) {
	task := asynq.NewTask(TypeEventsPurge, nil)
	return task, []asynq.Option{asynq.Queue(notificationsQueue), asynq.Unique(time.Hour)}
}

// Queues is the queue weighting the worker server listens on.
func Queues() map[string]int {
	return map[string]int{
		notificationsQueue: 6,
		"default":          1,
	}
}
