package notification

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"mytelmed/database/repository/eventcache"
	"mytelmed/metrics"
	"mytelmed/models"

	"go.uber.org/zap"
)

// EventKeyPrefix starts every event cache key; the rest of the key is the event timestamp in ms.
const EventKeyPrefix = "event-"

// maxKeyAttempts bounds the search for a free key when events share a millisecond.
const maxKeyAttempts = 32

// EventTracker records notification lifecycle events in the event cache.
type EventTracker struct {
	store  eventcache.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewEventTracker(store eventcache.Store, logger *zap.Logger, now func() time.Time) *EventTracker {
	if now == nil {
		now = time.Now
	}
	return &EventTracker{store: store, logger: logger, now: now}
}

// EventKey returns the cache key of an event created at ts (epoch ms).
func EventKey(ts int64) string {
	return EventKeyPrefix + strconv.FormatInt(ts, 10)
}

// ParseEventKey extracts the timestamp from a key written by EventKey.
func ParseEventKey(key string) (int64, bool) {
	if !strings.HasPrefix(key, EventKeyPrefix) {
		return 0, false
	}
	suffix := strings.TrimPrefix(key, EventKeyPrefix)
	if suffix == "" || strings.IndexFunc(suffix, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return 0, false
	}
	ts, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}

// Record stores a lifecycle event. It is best-effort: failures are logged and
// counted, never returned, so tracking cannot break display or navigation.
func (t *EventTracker) Record(ctx context.Context, kind models.EventKind, data models.NotificationData, action string) {
	event := models.NotificationEvent{
		Event:            kind,
		NotificationType: data.NotificationType,
		Timestamp:        t.now().UnixMilli(),
		UserID:           data.UserID,
		AppointmentID:    data.AppointmentID,
		PrescriptionID:   data.PrescriptionID,
		Action:           action,
	}

	key, err := t.persist(ctx, &event)
	if err != nil {
		metrics.TrackingFailuresTotal.Inc()
		t.logger.Warn("notification event not tracked",
			zap.String("event", string(kind)),
			zap.String("notificationType", data.NotificationType),
			zap.Error(err),
		)
		return
	}

	metrics.NotificationEventsTotal.WithLabelValues(string(kind)).Inc()
	t.logger.Debug("notification event tracked", zap.String("key", key), zap.String("event", string(kind)))
}

// persist writes the event under the first free key at or after its timestamp,
// moving the timestamp along with the key so the two always agree.
func (t *EventTracker) persist(ctx context.Context, event *models.NotificationEvent) (string, error) {
	for i := 0; i < maxKeyAttempts; i++ {
		body, err := json.Marshal(event)
		if err != nil {
			return "", err
		}
		key := EventKey(event.Timestamp)
		added, err := t.store.Add(ctx, key, body)
		if err != nil {
			return "", err
		}
		if added {
			return key, nil
		}
		event.Timestamp++
	}
	return "", errKeySpaceExhausted
}
