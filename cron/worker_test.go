package cron

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"mytelmed/models"
	"mytelmed/services/notification"
	"mytelmed/services/tasks"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockServiceWorker struct {
	notification.ServiceWorker

	pushes      []models.PushEvent
	pushOutcome notification.PushOutcome
	pushErr     error
	syncTags    []string
	syncReport  notification.LifecycleReport
	syncErr     error
	cleanups    int
}

func (m *mockServiceWorker) HandlePush(_ context.Context, event models.PushEvent) (notification.PushOutcome, error) {
	m.pushes = append(m.pushes, event)
	return m.pushOutcome, m.pushErr
}

func (m *mockServiceWorker) HandleSync(_ context.Context, tag string) (notification.LifecycleReport, error) {
	m.syncTags = append(m.syncTags, tag)
	return m.syncReport, m.syncErr
}

func (m *mockServiceWorker) Cleanup(context.Context) (notification.LifecycleReport, error) {
	m.cleanups++
	return notification.LifecycleReport{}, nil
}

func pushTask(t *testing.T) *asynq.Task {
	t.Helper()
	task, _, err := tasks.NewPushTask(tasks.PushTaskPayload{
		UserID:  "u1",
		Payload: json.RawMessage(`{"title":"t","body":"b"}`),
	}, time.Time{})
	require.NoError(t, err)
	return task
}

func TestHandlePushTask(t *testing.T) {
	sw := &mockServiceWorker{pushOutcome: notification.PushDisplayed}
	h := handlePushTask(sw, zap.NewNop())

	require.NoError(t, h(context.Background(), pushTask(t)))
	require.Len(t, sw.pushes, 1)
	assert.Equal(t, "u1", sw.pushes[0].UserID)
	assert.JSONEq(t, `{"title":"t","body":"b"}`, string(sw.pushes[0].Payload))
}

func TestHandlePushTask_RetryPolicy(t *testing.T) {
	tests := []struct {
		name      string
		outcome   notification.PushOutcome
		err       error
		skipRetry bool
	}{
		{"fallback shown", notification.PushFallback, errors.New("display failed"), true},
		{"malformed payload", notification.PushFailed, notification.ErrMalformedPayload, true},
		{"nothing shown", notification.PushFailed, errors.New("fcm unavailable"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sw := &mockServiceWorker{pushOutcome: tt.outcome, pushErr: tt.err}
			err := handlePushTask(sw, zap.NewNop())(context.Background(), pushTask(t))
			require.Error(t, err)
			assert.Equal(t, tt.skipRetry, errors.Is(err, asynq.SkipRetry))
		})
	}
}

func TestHandlePushTask_BadPayload(t *testing.T) {
	sw := &mockServiceWorker{}
	err := handlePushTask(sw, zap.NewNop())(context.Background(), asynq.NewTask(tasks.TypePushDeliver, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, sw.pushes)
}

func TestHandleSyncTask(t *testing.T) {
	sw := &mockServiceWorker{}
	h := handleSyncTask(sw, zap.NewNop())

	task, _, err := tasks.NewSyncTask(notification.SyncTag)
	require.NoError(t, err)
	require.NoError(t, h(context.Background(), task))
	require.NoError(t, h(context.Background(), asynq.NewTask(tasks.TypeEventsSync, nil)))
	assert.Equal(t, []string{notification.SyncTag, notification.SyncTag}, sw.syncTags)

	sw.syncReport = notification.LifecycleReport{Failed: 2}
	assert.Error(t, h(context.Background(), task))
}

func TestHandleCleanupTask(t *testing.T) {
	sw := &mockServiceWorker{}
	task, _ := tasks.NewCleanupTask()
	require.NoError(t, handleCleanupTask(sw)(context.Background(), task))
	assert.Equal(t, 1, sw.cleanups)
}
