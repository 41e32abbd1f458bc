package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mytelmed/config"
	"mytelmed/models"
	"mytelmed/services/notification"
	"mytelmed/services/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Worker runs queued pushes and the periodic sync and cleanup of the event cache.
type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	cancel    context.CancelFunc
	logger    *zap.Logger
}

// RedisOpt is the asynq connection shared by the worker and the enqueueing client.
func RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// InitNotificationWorker starts the asynq server and scheduler in the background.
func InitNotificationWorker(sw notification.ServiceWorker, logger *zap.Logger) (*Worker, error) {
	redisOpts := RedisOpt()

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: config.AppConfig.WorkerConcurrency,
			Queues:      tasks.Queues(),
			Logger:      logger.Sugar(),
		},
	)

	scheduler := asynq.NewScheduler(redisOpts, &asynq.SchedulerOpts{Location: time.UTC, Logger: logger.Sugar()})
	syncTask, syncOpts, err := tasks.NewSyncTask(notification.SyncTag)
	if err != nil {
		return nil, err
	}
	if _, err := scheduler.Register(config.AppConfig.SyncSchedule, syncTask, syncOpts...); err != nil {
		return nil, fmt.Errorf("InitNotificationWorker: invalid sync schedule %q: %w", config.AppConfig.SyncSchedule, err)
	}
	cleanupTask, cleanupOpts := tasks.NewCleanupTask()
	if _, err := scheduler.Register(config.AppConfig.CleanupSchedule, cleanupTask, cleanupOpts...); err != nil {
		return nil, fmt.Errorf("InitNotificationWorker: invalid cleanup schedule %q: %w", config.AppConfig.CleanupSchedule, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{server: srv, scheduler: scheduler, cancel: cancel, logger: logger}

	go monitorRedisConnection(ctx, logger)

	mux := NewServeMux(sw, logger)
	go func() {
		logger.Info("starting notification worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := srv.Start(mux)
			if err == nil {
				break
			}
			logger.Warn("notification worker failed to start",
				zap.Int("attempt", attempts),
				zap.Int("maxAttempts", maxAttempts),
				zap.Error(err),
			)
			if attempts == maxAttempts {
				logger.Fatal("notification worker: max retry attempts reached")
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempts*2) * time.Second):
			}
		}
	}()

	if err := scheduler.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("InitNotificationWorker: scheduler: %w", err)
	}

	return w, nil
}

// Shutdown stops the scheduler, then lets in-flight tasks finish.
func (w *Worker) Shutdown() {
	w.cancel()
	w.scheduler.Shutdown()
	w.server.Shutdown()
	w.logger.Info("notification worker stopped")
}

// NewServeMux routes queued tasks to the service worker.
func NewServeMux(sw notification.ServiceWorker, logger *zap.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypePushDeliver, handlePushTask(sw, logger))
	mux.HandleFunc(tasks.TypeEventsSync, handleSyncTask(sw, logger))
	mux.HandleFunc(tasks.TypeEventsPurge, handleCleanupTask(sw))
	return mux
}

func handlePushTask(sw notification.ServiceWorker, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.PushTaskPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("invalid push task payload", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		outcome, err := sw.HandlePush(ctx, models.PushEvent{UserID: p.UserID, Token: p.Token, Payload: p.Payload})
		switch {
		case err == nil:
			return nil
		case outcome == notification.PushFailed && !errors.Is(err, notification.ErrMalformedPayload):
			// nothing reached the user, so a retry cannot show a duplicate
			return err
		default:
			// the fallback notification was already shown
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
	}
}

func handleSyncTask(sw notification.ServiceWorker, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p := tasks.SyncTaskPayload{Tag: notification.SyncTag}
		if len(task.Payload()) > 0 {
			if err := json.Unmarshal(task.Payload(), &p); err != nil {
				logger.Error("invalid sync task payload", zap.Error(err))
				return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
			}
		}

		report, err := sw.HandleSync(ctx, p.Tag)
		if err != nil {
			return err
		}
		if report.Failed > 0 {
			return fmt.Errorf("sync left %d events unflushed", report.Failed)
		}
		return nil
	}
}

func handleCleanupTask(sw notification.ServiceWorker) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		_, err := sw.Cleanup(ctx)
		return err
	}
}

// monitorRedisConnection pings the queue Redis periodically to detect failures at runtime.
func monitorRedisConnection(ctx context.Context, logger *zap.Logger) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer client.Close()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.Ping(ctx).Err(); err != nil && ctx.Err() == nil {
				logger.Warn("queue redis connection lost", zap.Error(err))
			}
		}
	}
}
