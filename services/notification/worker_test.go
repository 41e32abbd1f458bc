package notification_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"mytelmed/database/repository/eventcache"
	"mytelmed/models"
	"mytelmed/services/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type workerFixture struct {
	worker  *notification.DefaultServiceWorker
	store   eventcache.Store
	display *fakeDisplayer
	clients *fakeClients
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()
	store := eventcache.NewMemoryStore()
	display := &fakeDisplayer{}
	clients := &fakeClients{canOpen: true}
	logger := zap.NewNop()

	worker, err := notification.NewDefaultServiceWorker(
		notification.NewFormatter(notification.DefaultFormatDefaults(), clock),
		display,
		notification.NewEventTracker(store, logger, clock),
		notification.NewClientRouter(clients, notification.MatchSubstring, logger),
		notification.NewEventLifecycle(store, nil, notification.DefaultRetention, logger, clock),
		logger,
		time.Second,
	)
	require.NoError(t, err)
	return &workerFixture{worker: worker, store: store, display: display, clients: clients}
}

func (f *workerFixture) events(t *testing.T) []string {
	t.Helper()
	keys, err := f.store.Keys(context.Background(), notification.EventKeyPrefix)
	require.NoError(t, err)
	return keys
}

func TestNewDefaultServiceWorker_MissingDependency(t *testing.T) {
	_, err := notification.NewDefaultServiceWorker(nil, nil, nil, nil, nil, zap.NewNop(), 0)
	assert.Error(t, err)
}

func TestHandlePush_DisplaysAndRecordsDelivery(t *testing.T) {
	f := newWorkerFixture(t)

	outcome, err := f.worker.HandlePush(context.Background(), models.PushEvent{
		UserID:  "u1",
		Payload: []byte(`{"title":"Reminder","body":"Tomorrow 9am","data":{"notificationType":"APPOINTMENT_REMINDER_PATIENT","appointmentId":42}}`),
	})
	require.NoError(t, err)
	assert.Equal(t, notification.PushDisplayed, outcome)

	require.Len(t, f.display.shown, 1)
	got := f.display.shown[0]
	assert.Equal(t, "u1", got.target.UserID)
	assert.Equal(t, "Reminder", got.title)
	assert.Equal(t, "/patient/appointment/42", got.opts.Data.URL)
	assert.NotEmpty(t, got.opts.Icon)
	assert.NotEmpty(t, got.opts.Badge)
	assert.Len(t, f.events(t), 1)
}

func TestHandlePush_InvalidPayloadIsDropped(t *testing.T) {
	f := newWorkerFixture(t)

	outcome, err := f.worker.HandlePush(context.Background(), models.PushEvent{
		UserID:  "u1",
		Payload: []byte(`{"body":"no title"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, notification.PushDropped, outcome)
	assert.Empty(t, f.display.shown)
	assert.Empty(t, f.events(t))
}

func TestHandlePush_MalformedPayloadShowsFallback(t *testing.T) {
	f := newWorkerFixture(t)

	outcome, err := f.worker.HandlePush(context.Background(), models.PushEvent{
		UserID:  "u1",
		Payload: []byte(`not json`),
	})
	assert.ErrorIs(t, err, notification.ErrMalformedPayload)
	assert.Equal(t, notification.PushFallback, outcome)

	require.Len(t, f.display.shown, 1)
	assert.Equal(t, notification.FallbackTitle, f.display.shown[0].title)
	assert.Equal(t, notification.FallbackBody, f.display.shown[0].opts.Body)
	assert.Empty(t, f.events(t))
}

func TestHandlePush_DisplayFailureShowsFallback(t *testing.T) {
	f := newWorkerFixture(t)
	f.display.errs = []error{errors.New("push service rejected")}

	outcome, err := f.worker.HandlePush(context.Background(), models.PushEvent{
		Token:   "tok",
		Payload: []byte(`{"title":"t","body":"b"}`),
	})
	assert.Error(t, err)
	assert.Equal(t, notification.PushFallback, outcome)
	require.Len(t, f.display.shown, 1)
	assert.Equal(t, notification.FallbackTitle, f.display.shown[0].title)
	assert.Equal(t, "tok", f.display.shown[0].target.Token)
	assert.Empty(t, f.events(t))
}

func TestHandlePush_DisplayPanicShowsFallback(t *testing.T) {
	f := newWorkerFixture(t)
	f.display.panic = true

	outcome, err := f.worker.HandlePush(context.Background(), models.PushEvent{
		UserID:  "u1",
		Payload: []byte(`{"title":"t","body":"b"}`),
	})
	assert.Error(t, err)
	assert.Equal(t, notification.PushFallback, outcome)
	require.Len(t, f.display.shown, 1)
	assert.Equal(t, notification.FallbackTitle, f.display.shown[0].title)
}

func TestHandlePush_FallbackFailure(t *testing.T) {
	f := newWorkerFixture(t)
	f.display.errs = []error{errors.New("first"), errors.New("second")}

	outcome, err := f.worker.HandlePush(context.Background(), models.PushEvent{
		UserID:  "u1",
		Payload: []byte(`{"title":"t","body":"b"}`),
	})
	assert.Error(t, err)
	assert.Equal(t, notification.PushFailed, outcome)
	assert.Empty(t, f.display.shown)
}

func TestHandleClick_FocusesMatchingClient(t *testing.T) {
	f := newWorkerFixture(t)
	f.clients.open = []models.WindowClient{{ID: "c1", URL: "https://portal/patient/appointment/42"}}

	res, err := f.worker.HandleClick(context.Background(), models.ClickEvent{
		UserID: "u1",
		Data:   models.NotificationData{URL: "/patient/appointment/42"},
	})
	require.NoError(t, err)
	assert.Equal(t, notification.RouteFocused, res.Action)
	assert.Equal(t, []string{"c1"}, f.clients.focused)
	assert.Empty(t, f.clients.opened)
	assert.Len(t, f.events(t), 1)
}

func TestHandleClick_OpensOneWindowWithoutMatch(t *testing.T) {
	f := newWorkerFixture(t)

	res, err := f.worker.HandleClick(context.Background(), models.ClickEvent{
		UserID: "u1",
		Action: "view",
		Data:   models.NotificationData{URL: "/patient/prescription/7"},
	})
	require.NoError(t, err)
	assert.Equal(t, notification.RouteOpened, res.Action)
	assert.Equal(t, []string{"/patient/prescription/7"}, f.clients.opened)
}

func TestHandleClick_DismissActionOnlyRecords(t *testing.T) {
	f := newWorkerFixture(t)

	res, err := f.worker.HandleClick(context.Background(), models.ClickEvent{
		UserID: "u1",
		Action: "dismiss",
		Data:   models.NotificationData{URL: "/patient"},
	})
	require.NoError(t, err)
	assert.Equal(t, notification.RouteNone, res.Action)
	assert.Empty(t, f.clients.opened)
	assert.Empty(t, f.clients.focused)
	assert.Len(t, f.events(t), 1)
}

func TestHandleClick_RoutingFailureIsSwallowed(t *testing.T) {
	f := newWorkerFixture(t)
	f.clients.listErr = errors.New("hub down")

	res, err := f.worker.HandleClick(context.Background(), models.ClickEvent{
		UserID: "u1",
		Data:   models.NotificationData{URL: "/patient"},
	})
	require.NoError(t, err)
	assert.Equal(t, notification.RouteNone, res.Action)
	assert.Len(t, f.events(t), 1)
}

func TestHandleClose_RecordsDismissal(t *testing.T) {
	f := newWorkerFixture(t)

	require.NoError(t, f.worker.HandleClose(context.Background(), models.CloseEvent{UserID: "u1"}))
	assert.Len(t, f.events(t), 1)
}

func (f *workerFixture) storedEvents(t *testing.T) []models.NotificationEvent {
	t.Helper()
	var out []models.NotificationEvent
	for _, key := range f.events(t) {
		raw, err := f.store.Get(context.Background(), key)
		require.NoError(t, err)
		var event models.NotificationEvent
		require.NoError(t, json.Unmarshal(raw, &event))
		out = append(out, event)
	}
	return out
}

func TestHandlers_RecordEventsUnderTheActingUser(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t)

	_, err := f.worker.HandlePush(ctx, models.PushEvent{UserID: "u1", Payload: []byte(`{"title":"t","body":"b"}`)})
	require.NoError(t, err)
	_, err = f.worker.HandleClick(ctx, models.ClickEvent{UserID: "u1", Action: "dismiss", Data: models.NotificationData{UserID: "u2"}})
	require.NoError(t, err)
	require.NoError(t, f.worker.HandleClose(ctx, models.CloseEvent{UserID: "u1", Data: models.NotificationData{UserID: "u2"}}))

	events := f.storedEvents(t)
	require.Len(t, events, 3)
	for _, event := range events {
		assert.Equal(t, models.FlexibleID("u1"), event.UserID, string(event.Event))
	}
}

func TestHandlePush_KeepsPayloadUserID(t *testing.T) {
	f := newWorkerFixture(t)

	_, err := f.worker.HandlePush(context.Background(), models.PushEvent{
		Token:   "tok-1",
		Payload: []byte(`{"title":"t","body":"b","data":{"userId":"u7"}}`),
	})
	require.NoError(t, err)

	events := f.storedEvents(t)
	require.Len(t, events, 1)
	assert.Equal(t, models.FlexibleID("u7"), events[0].UserID)
}

func TestHandleSync(t *testing.T) {
	f := newWorkerFixture(t)
	require.NoError(t, f.worker.HandleClose(context.Background(), models.CloseEvent{UserID: "u1"}))

	report, err := f.worker.HandleSync(context.Background(), "some-other-tag")
	require.NoError(t, err)
	assert.Equal(t, 0, report.Scanned)
	assert.Len(t, f.events(t), 1)

	report, err = f.worker.HandleSync(context.Background(), notification.SyncTag)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)
	assert.Empty(t, f.events(t))
}

func TestActivate_RemovesExpiredEvents(t *testing.T) {
	f := newWorkerFixture(t)
	seedEvent(t, f.store, 8*day)
	kept := seedEvent(t, f.store, day)

	require.NoError(t, f.worker.Activate(context.Background()))
	assert.Equal(t, []string{kept}, f.events(t))
}

func TestShutdown_RejectsNewEvents(t *testing.T) {
	f := newWorkerFixture(t)

	require.NoError(t, f.worker.Shutdown(context.Background()))

	_, err := f.worker.HandlePush(context.Background(), models.PushEvent{UserID: "u1", Payload: []byte(`{"title":"t","body":"b"}`)})
	assert.ErrorIs(t, err, notification.ErrWorkerStopped)
	assert.ErrorIs(t, f.worker.HandleClose(context.Background(), models.CloseEvent{}), notification.ErrWorkerStopped)
	assert.Empty(t, f.display.shown)
}
