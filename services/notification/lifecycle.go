package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mytelmed/database/repository/eventcache"
	"mytelmed/metrics"
	"mytelmed/models"

	"go.uber.org/zap"
)

// DefaultRetention is how long an unsynced event stays in the cache.
const DefaultRetention = 7 * 24 * time.Hour

// LifecycleReport summarizes one Cleanup or Sync pass.
type LifecycleReport struct {
	Scanned int `json:"scanned"`
	Deleted int `json:"deleted"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// EventLifecycle flushes and expires cached notification events.
// Both passes are idempotent and never abort on a single bad entry.
type EventLifecycle struct {
	store     eventcache.Store
	sink      Sink
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewEventLifecycle builds the sync/cleanup runner. sink may be nil, in which
// case Sync only drops the local copies.
func NewEventLifecycle(store eventcache.Store, sink Sink, retention time.Duration, logger *zap.Logger, now func() time.Time) *EventLifecycle {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if now == nil {
		now = time.Now
	}
	return &EventLifecycle{store: store, sink: sink, retention: retention, logger: logger, now: now}
}

// Cleanup deletes events older than the retention window. Keys whose suffix
// is not a timestamp are skipped.
func (l *EventLifecycle) Cleanup(ctx context.Context) (LifecycleReport, error) {
	var report LifecycleReport

	keys, err := l.store.Keys(ctx, EventKeyPrefix)
	if err != nil {
		return report, fmt.Errorf("Cleanup: list events: %w", err)
	}

	cutoff := l.now().UnixMilli() - l.retention.Milliseconds()
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		ts, ok := ParseEventKey(key)
		if !ok {
			report.Skipped++
			continue
		}
		if ts >= cutoff {
			continue
		}
		if err := l.store.Delete(ctx, key); err != nil {
			report.Failed++
			l.logger.Warn("cleanup: delete expired event failed", zap.String("key", key), zap.Error(err))
			continue
		}
		report.Deleted++
		metrics.EventCacheEntriesRemoved.WithLabelValues("expired").Inc()
	}

	l.logger.Info("cleanup: event cache pruned",
		zap.Int("scanned", report.Scanned),
		zap.Int("deleted", report.Deleted),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// Sync forwards each cached event to the sink and deletes the local copy.
// An entry whose delivery fails stays cached for the next pass.
func (l *EventLifecycle) Sync(ctx context.Context) (LifecycleReport, error) {
	var report LifecycleReport

	keys, err := l.store.Keys(ctx, EventKeyPrefix)
	if err != nil {
		return report, fmt.Errorf("Sync: list events: %w", err)
	}

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		if err := l.syncOne(ctx, key); err != nil {
			if errors.Is(err, eventcache.ErrNotFound) {
				report.Skipped++
				continue
			}
			report.Failed++
			l.logger.Warn("sync: event not flushed", zap.String("key", key), zap.Error(err))
			continue
		}
		report.Deleted++
		metrics.EventCacheEntriesRemoved.WithLabelValues("synced").Inc()
	}

	l.logger.Info("sync: event cache flushed",
		zap.Int("scanned", report.Scanned),
		zap.Int("deleted", report.Deleted),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (l *EventLifecycle) syncOne(ctx context.Context, key string) error {
	raw, err := l.store.Get(ctx, key)
	if err != nil {
		return err
	}

	if l.sink != nil {
		var event models.NotificationEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		if err := l.sink.Archive(ctx, key, event); err != nil {
			return fmt.Errorf("archive: %w", err)
		}
	}

	return l.store.Delete(ctx, key)
}
