package notification

import (
	"context"

	"mytelmed/models"
)

// Target addresses a push: a single FCM token, or every subscription of a user.
type Target struct {
	UserID string
	Token  string
}

// Displayer shows a formatted notification on the target's devices.
type Displayer interface {
	ShowNotification(ctx context.Context, target Target, title string, opts models.NotificationOptions) error
}

// Clients is the set of portal tabs currently open for a user.
type Clients interface {
	MatchAll(ctx context.Context, userID string) ([]models.WindowClient, error)
	Focus(ctx context.Context, clientID string) error
	CanOpenWindow(userID string) bool
	OpenWindow(ctx context.Context, userID, url string) error
}

// Sink receives events flushed out of the event cache by Sync.
type Sink interface {
	Archive(ctx context.Context, key string, event models.NotificationEvent) error
}

// ServiceWorker hosts the notification lifecycle handlers.
type ServiceWorker interface {
	Activate(ctx context.Context) error
	HandlePush(ctx context.Context, event models.PushEvent) (PushOutcome, error)
	HandleClick(ctx context.Context, event models.ClickEvent) (RouteResult, error)
	HandleClose(ctx context.Context, event models.CloseEvent) error
	HandleSync(ctx context.Context, tag string) (LifecycleReport, error)
	Cleanup(ctx context.Context) (LifecycleReport, error)
	Shutdown(ctx context.Context) error
}
