package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mytelmed/metrics"
	"mytelmed/models"

	"go.uber.org/zap"
)

// SyncTag names the background sync that flushes cached events.
const SyncTag = "notification-events-sync"

// DefaultHandlerTimeout bounds every handler when no timeout is configured.
const DefaultHandlerTimeout = 30 * time.Second

// PushOutcome is what a push event ended up showing.
type PushOutcome string

const (
	PushDisplayed PushOutcome = "displayed"
	PushFallback  PushOutcome = "fallback"
	PushDropped   PushOutcome = "dropped"
	PushFailed    PushOutcome = "failed"
)

// DefaultServiceWorker wires the formatter, displayer, tracker, router and
// event lifecycle to the push, click, close, sync and activate events.
type DefaultServiceWorker struct {
	Formatter *Formatter
	Display   Displayer
	Tracker   *EventTracker
	Router    *ClientRouter
	Lifecycle *EventLifecycle

	logger  *zap.Logger
	timeout time.Duration

	mu       sync.RWMutex
	stopped  bool
	inflight sync.WaitGroup
}

func NewDefaultServiceWorker(
	formatter *Formatter,
	display Displayer,
	tracker *EventTracker,
	router *ClientRouter,
	lifecycle *EventLifecycle,
	logger *zap.Logger,
	timeout time.Duration,
) (*DefaultServiceWorker, error) {
	if formatter == nil || display == nil || tracker == nil || router == nil || lifecycle == nil {
		return nil, fmt.Errorf("service worker initialization error: missing dependency")
	}
	if timeout <= 0 {
		timeout = DefaultHandlerTimeout
	}
	return &DefaultServiceWorker{
		Formatter: formatter,
		Display:   display,
		Tracker:   tracker,
		Router:    router,
		Lifecycle: lifecycle,
		logger:    logger,
		timeout:   timeout,
	}, nil
}

// waitUntil registers fn as in-flight work before running it under the handler timeout.
// Shutdown waits for every registered fn.
func (w *DefaultServiceWorker) waitUntil(ctx context.Context, handler string, fn func(ctx context.Context) error) error {
	w.mu.RLock()
	if w.stopped {
		w.mu.RUnlock()
		return ErrWorkerStopped
	}
	w.inflight.Add(1)
	w.mu.RUnlock()
	defer w.inflight.Done()

	start := time.Now()
	defer func() {
		metrics.HandlerDuration.WithLabelValues(handler).Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	return fn(ctx)
}

// Activate runs the activation-time cleanup of expired events.
func (w *DefaultServiceWorker) Activate(ctx context.Context) error {
	_, err := w.Cleanup(ctx)
	return err
}

// HandlePush formats and displays a push. Payloads without title or body are
// dropped silently. Any other failure shows the generic fallback notification
// and the original error is returned once the fallback was attempted.
func (w *DefaultServiceWorker) HandlePush(ctx context.Context, event models.PushEvent) (PushOutcome, error) {
	outcome := PushFailed
	err := w.waitUntil(ctx, "push", func(ctx context.Context) error {
		target := Target{UserID: event.UserID, Token: event.Token}

		payload, err := w.Formatter.Parse(event.Payload)
		if errors.Is(err, ErrInvalidPayload) {
			w.logger.Warn("push dropped: invalid payload", zap.String("userId", event.UserID), zap.Error(err))
			outcome = PushDropped
			return nil
		}
		if err != nil {
			outcome = w.showFallback(ctx, target)
			return err
		}

		title, opts, err := w.format(payload)
		if err == nil {
			err = w.show(ctx, target, title, opts)
		}
		if err != nil {
			outcome = w.showFallback(ctx, target)
			return fmt.Errorf("HandlePush: display failed: %w", err)
		}

		outcome = PushDisplayed
		data := opts.Data
		if data.UserID == "" {
			data.UserID = models.FlexibleID(event.UserID)
		}
		w.Tracker.Record(ctx, models.EventDelivered, data, "")
		return nil
	})

	metrics.PushEventsTotal.WithLabelValues(string(outcome)).Inc()
	if err != nil {
		w.logger.Error("push handling failed",
			zap.String("userId", event.UserID),
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
	}
	return outcome, err
}

// format turns a panic while formatting into an error so the fallback path runs.
func (w *DefaultServiceWorker) format(p *models.NotificationPayload) (title string, opts models.NotificationOptions, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("format panicked: %v", r)
		}
	}()
	title, opts = w.Formatter.Format(p)
	return title, opts, nil
}

// show keeps a panicking Displayer from escaping the handler.
func (w *DefaultServiceWorker) show(ctx context.Context, target Target, title string, opts models.NotificationOptions) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("display panicked: %v", r)
		}
	}()
	return w.Display.ShowNotification(ctx, target, title, opts)
}

func (w *DefaultServiceWorker) showFallback(ctx context.Context, target Target) PushOutcome {
	title, opts := w.Formatter.Fallback()
	if err := w.show(ctx, target, title, opts); err != nil {
		w.logger.Error("fallback notification failed", zap.String("userId", target.UserID), zap.Error(err))
		return PushFailed
	}
	return PushFallback
}

// HandleClick records the click under the reporting user and routes them to the destination.
// The "dismiss" action only records. Routing failures are logged and reported as RouteNone.
func (w *DefaultServiceWorker) HandleClick(ctx context.Context, event models.ClickEvent) (RouteResult, error) {
	var result RouteResult
	err := w.waitUntil(ctx, "click", func(ctx context.Context) error {
		data := event.Data
		data.UserID = models.FlexibleID(event.UserID)
		w.Tracker.Record(ctx, models.EventClicked, data, event.Action)

		if event.Action == "dismiss" {
			result = RouteResult{Action: RouteNone}
			return nil
		}

		res, err := w.Router.Open(ctx, event.UserID, event.Data)
		if err != nil {
			w.logger.Warn("notification click routing failed",
				zap.String("userId", event.UserID),
				zap.String("url", res.URL),
				zap.Error(err),
			)
		}
		result = res
		return nil
	})
	return result, err
}

// HandleClose records a dismissed notification.
func (w *DefaultServiceWorker) HandleClose(ctx context.Context, event models.CloseEvent) error {
	return w.waitUntil(ctx, "close", func(ctx context.Context) error {
		data := event.Data
		data.UserID = models.FlexibleID(event.UserID)
		w.Tracker.Record(ctx, models.EventDismissed, data, "")
		return nil
	})
}

// HandleSync flushes cached events for the notification-events-sync tag; other tags are ignored.
func (w *DefaultServiceWorker) HandleSync(ctx context.Context, tag string) (LifecycleReport, error) {
	var report LifecycleReport
	if tag != SyncTag {
		w.logger.Debug("sync tag ignored", zap.String("tag", tag))
		return report, nil
	}
	err := w.waitUntil(ctx, "sync", func(ctx context.Context) error {
		var err error
		report, err = w.Lifecycle.Sync(ctx)
		return err
	})
	return report, err
}

// Cleanup removes events older than the retention window.
func (w *DefaultServiceWorker) Cleanup(ctx context.Context) (LifecycleReport, error) {
	var report LifecycleReport
	err := w.waitUntil(ctx, "cleanup", func(ctx context.Context) error {
		var err error
		report, err = w.Lifecycle.Cleanup(ctx)
		return err
	})
	return report, err
}

// Shutdown refuses new events and waits for in-flight handlers or ctx, whichever ends first.
func (w *DefaultServiceWorker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
