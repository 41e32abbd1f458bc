package notification_test

import (
	"context"
	"errors"
	"testing"

	"mytelmed/models"
	"mytelmed/services/notification"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	sent      []*messaging.Message
	multicast []*messaging.MulticastMessage
	sendErr   error
	batch     *messaging.BatchResponse
	batchErr  error
}

func (s *fakeSender) Send(_ context.Context, m *messaging.Message) (string, error) {
	if s.sendErr != nil {
		return "", s.sendErr
	}
	s.sent = append(s.sent, m)
	return "projects/p/messages/1", nil
}

func (s *fakeSender) SendEachForMulticast(_ context.Context, m *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	if s.batchErr != nil {
		return nil, s.batchErr
	}
	s.multicast = append(s.multicast, m)
	return s.batch, nil
}

type fakeSubscriptions struct {
	subs    []models.PushSubscription
	err     error
	deleted []string
}

func (s *fakeSubscriptions) GetByUserID(context.Context, string) ([]models.PushSubscription, error) {
	return s.subs, s.err
}

func (s *fakeSubscriptions) DeleteByToken(_ context.Context, token string) error {
	s.deleted = append(s.deleted, token)
	return nil
}

func formattedOptions(t *testing.T, raw string) (string, models.NotificationOptions) {
	t.Helper()
	f := newFormatter()
	p, err := f.Parse([]byte(raw))
	require.NoError(t, err)
	return f.Format(p)
}

func TestFCMDisplayer_SendsToToken(t *testing.T) {
	sender := &fakeSender{}
	d := notification.NewFCMDisplayer(sender, &fakeSubscriptions{}, "https://portal.mytelmed.test/", zap.NewNop())
	title, opts := formattedOptions(t, `{"title":"Ready","body":"Pick up","data":{"notificationType":"PRESCRIPTION_READY_PHARMACIST","prescriptionId":"9"},"actions":[{"action":"view","title":"View"}]}`)

	require.NoError(t, d.ShowNotification(context.Background(), notification.Target{Token: "tok-1"}, title, opts))

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "tok-1", msg.Token)
	assert.Equal(t, "/pharmacist/prescription/9", msg.Data["url"])
	assert.Equal(t, "PRESCRIPTION_READY_PHARMACIST", msg.Data["notificationType"])
	assert.Equal(t, "9", msg.Data["prescriptionId"])

	n := msg.Webpush.Notification
	assert.Equal(t, "Ready", n.Title)
	assert.Equal(t, "Pick up", n.Body)
	assert.Equal(t, opts.Icon, n.Icon)
	assert.Equal(t, opts.Badge, n.Badge)
	assert.Equal(t, opts.Tag, n.Tag)
	require.Len(t, n.Actions, 1)
	assert.Equal(t, "view", n.Actions[0].Action)
	require.NotNil(t, msg.Webpush.FCMOptions)
	assert.Equal(t, "https://portal.mytelmed.test/pharmacist/prescription/9", msg.Webpush.FCMOptions.Link)
}

func TestFCMDisplayer_NoLinkForPlainHTTPPortal(t *testing.T) {
	sender := &fakeSender{}
	d := notification.NewFCMDisplayer(sender, &fakeSubscriptions{}, "http://localhost:3000", zap.NewNop())
	title, opts := formattedOptions(t, `{"title":"t","body":"b"}`)

	require.NoError(t, d.ShowNotification(context.Background(), notification.Target{Token: "tok"}, title, opts))
	require.Len(t, sender.sent, 1)
	assert.Nil(t, sender.sent[0].Webpush.FCMOptions)
}

func TestFCMDisplayer_TokenSendError(t *testing.T) {
	sender := &fakeSender{sendErr: errors.New("quota exceeded")}
	d := notification.NewFCMDisplayer(sender, &fakeSubscriptions{}, "https://p", zap.NewNop())
	title, opts := formattedOptions(t, `{"title":"t","body":"b"}`)

	assert.Error(t, d.ShowNotification(context.Background(), notification.Target{Token: "tok"}, title, opts))
}

func TestFCMDisplayer_MulticastsToUserSubscriptions(t *testing.T) {
	sender := &fakeSender{batch: &messaging.BatchResponse{
		SuccessCount: 2,
		Responses:    []*messaging.SendResponse{{Success: true}, {Success: true}},
	}}
	subs := &fakeSubscriptions{subs: []models.PushSubscription{{Token: "a"}, {Token: "b"}}}
	d := notification.NewFCMDisplayer(sender, subs, "https://p", zap.NewNop())
	title, opts := formattedOptions(t, `{"title":"t","body":"b"}`)

	require.NoError(t, d.ShowNotification(context.Background(), notification.Target{UserID: "u1"}, title, opts))
	require.Len(t, sender.multicast, 1)
	assert.Equal(t, []string{"a", "b"}, sender.multicast[0].Tokens)
}

func TestFCMDisplayer_UserWithoutSubscriptions(t *testing.T) {
	d := notification.NewFCMDisplayer(&fakeSender{}, &fakeSubscriptions{}, "https://p", zap.NewNop())
	title, opts := formattedOptions(t, `{"title":"t","body":"b"}`)

	err := d.ShowNotification(context.Background(), notification.Target{UserID: "u1"}, title, opts)
	assert.ErrorIs(t, err, notification.ErrNoSubscription)

	err = d.ShowNotification(context.Background(), notification.Target{}, title, opts)
	assert.ErrorIs(t, err, notification.ErrNoSubscription)
}

func TestFCMDisplayer_PartialAndTotalFailure(t *testing.T) {
	title, opts := formattedOptions(t, `{"title":"t","body":"b"}`)
	subs := &fakeSubscriptions{subs: []models.PushSubscription{{Token: "a"}, {Token: "b"}}}
	boom := errors.New("boom")

	partial := &fakeSender{batch: &messaging.BatchResponse{
		SuccessCount: 1,
		FailureCount: 1,
		Responses:    []*messaging.SendResponse{{Success: true}, {Success: false, Error: boom}},
	}}
	d := notification.NewFCMDisplayer(partial, subs, "https://p", zap.NewNop())
	assert.NoError(t, d.ShowNotification(context.Background(), notification.Target{UserID: "u1"}, title, opts))

	total := &fakeSender{batch: &messaging.BatchResponse{
		FailureCount: 2,
		Responses:    []*messaging.SendResponse{{Error: boom}, {Error: boom}},
	}}
	d = notification.NewFCMDisplayer(total, subs, "https://p", zap.NewNop())
	err := d.ShowNotification(context.Background(), notification.Target{UserID: "u1"}, title, opts)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, subs.deleted, "only unregistered tokens are pruned")
}
