package notification_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"mytelmed/database/repository/eventcache"
	"mytelmed/models"
	"mytelmed/services/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEventKeyRoundTrip(t *testing.T) {
	key := notification.EventKey(1_700_000_000_000)
	assert.Equal(t, "event-1700000000000", key)

	ts, ok := notification.ParseEventKey(key)
	require.True(t, ok)
	assert.Equal(t, int64(1_700_000_000_000), ts)

	for _, bad := range []string{"event-", "event-abc", "event--5", "event-+5", "event- 5", "event-5x", "other-123", ""} {
		_, ok := notification.ParseEventKey(bad)
		assert.False(t, ok, bad)
	}
}

func TestRecord_StoresEventUnderTimestampKey(t *testing.T) {
	ctx := context.Background()
	store := eventcache.NewMemoryStore()
	tracker := notification.NewEventTracker(store, zap.NewNop(), clock)

	tracker.Record(ctx, models.EventClicked, models.NotificationData{
		NotificationType: notification.TypeAppointmentReminderPatient,
		UserID:           "u1",
		AppointmentID:    "42",
	}, "view")

	raw, err := store.Get(ctx, notification.EventKey(fixedNow.UnixMilli()))
	require.NoError(t, err)

	var event models.NotificationEvent
	require.NoError(t, json.Unmarshal(raw, &event))
	assert.Equal(t, models.EventClicked, event.Event)
	assert.Equal(t, notification.TypeAppointmentReminderPatient, event.NotificationType)
	assert.Equal(t, fixedNow.UnixMilli(), event.Timestamp)
	assert.Equal(t, models.FlexibleID("u1"), event.UserID)
	assert.Equal(t, models.FlexibleID("42"), event.AppointmentID)
	assert.Equal(t, "view", event.Action)
}

func TestRecord_SameMillisecondDoesNotOverwrite(t *testing.T) {
	ctx := context.Background()
	store := eventcache.NewMemoryStore()
	tracker := notification.NewEventTracker(store, zap.NewNop(), clock)

	tracker.Record(ctx, models.EventDelivered, models.NotificationData{}, "")
	tracker.Record(ctx, models.EventClicked, models.NotificationData{}, "")

	keys, err := store.Keys(ctx, notification.EventKeyPrefix)
	require.NoError(t, err)
	require.Len(t, keys, 2)

	for _, key := range keys {
		raw, err := store.Get(ctx, key)
		require.NoError(t, err)
		var event models.NotificationEvent
		require.NoError(t, json.Unmarshal(raw, &event))
		ts, ok := notification.ParseEventKey(key)
		require.True(t, ok)
		assert.Equal(t, ts, event.Timestamp, "key suffix matches the stored timestamp")
	}
}

func TestRecord_ConcurrentWritersKeepEveryEvent(t *testing.T) {
	ctx := context.Background()
	store := eventcache.NewMemoryStore()
	tracker := notification.NewEventTracker(store, zap.NewNop(), clock)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Record(ctx, models.EventDelivered, models.NotificationData{}, "")
		}()
	}
	wg.Wait()

	keys, err := store.Keys(ctx, notification.EventKeyPrefix)
	require.NoError(t, err)
	assert.Len(t, keys, 10)
}

func TestRecord_StoreFailureIsSwallowed(t *testing.T) {
	store := &failingStore{Store: eventcache.NewMemoryStore(), addErr: errStoreDown}
	tracker := notification.NewEventTracker(store, zap.NewNop(), clock)

	assert.NotPanics(t, func() {
		tracker.Record(context.Background(), models.EventDismissed, models.NotificationData{}, "")
	})
}

func TestNewEventTracker_DefaultsClock(t *testing.T) {
	ctx := context.Background()
	store := eventcache.NewMemoryStore()
	tracker := notification.NewEventTracker(store, zap.NewNop(), nil)

	before := time.Now().UnixMilli()
	tracker.Record(ctx, models.EventDelivered, models.NotificationData{}, "")

	keys, err := store.Keys(ctx, notification.EventKeyPrefix)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	ts, ok := notification.ParseEventKey(keys[0])
	require.True(t, ok)
	assert.GreaterOrEqual(t, ts, before)
}
