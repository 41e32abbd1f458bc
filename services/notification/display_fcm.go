package notification

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"mytelmed/models"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// FCMSender is the subset of *messaging.Client used for web push.
type FCMSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// SubscriptionStore resolves a user's registration tokens and forgets tokens FCM rejects.
type SubscriptionStore interface {
	GetByUserID(ctx context.Context, userID string) ([]models.PushSubscription, error)
	DeleteByToken(ctx context.Context, token string) error
}

// FCMDisplayer shows notifications through Firebase Cloud Messaging web push.
type FCMDisplayer struct {
	client  FCMSender
	subs    SubscriptionStore
	baseURL string
	logger  *zap.Logger
}

func NewFCMDisplayer(client FCMSender, subs SubscriptionStore, portalBaseURL string, logger *zap.Logger) *FCMDisplayer {
	return &FCMDisplayer{
		client:  client,
		subs:    subs,
		baseURL: strings.TrimSuffix(portalBaseURL, "/"),
		logger:  logger,
	}
}

// ShowNotification sends to target.Token when set, otherwise to every subscription of target.UserID.
func (d *FCMDisplayer) ShowNotification(ctx context.Context, target Target, title string, opts models.NotificationOptions) error {
	webpush := d.webpushConfig(title, opts)
	data := messageData(opts)

	if target.Token != "" {
		_, err := d.client.Send(ctx, &messaging.Message{
			Token:   target.Token,
			Data:    data,
			Webpush: webpush,
		})
		if err != nil {
			d.pruneIfUnregistered(ctx, target.Token, err)
			return fmt.Errorf("ShowNotification: failed to send FCM message: %w", err)
		}
		return nil
	}

	if target.UserID == "" {
		return ErrNoSubscription
	}
	subs, err := d.subs.GetByUserID(ctx, target.UserID)
	if err != nil {
		return fmt.Errorf("ShowNotification: could not load subscriptions for user %s: %w", target.UserID, err)
	}
	if len(subs) == 0 {
		return fmt.Errorf("ShowNotification: user %s: %w", target.UserID, ErrNoSubscription)
	}

	tokens := make([]string, 0, len(subs))
	for _, s := range subs {
		tokens = append(tokens, s.Token)
	}

	resp, err := d.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens:  tokens,
		Data:    data,
		Webpush: webpush,
	})
	if err != nil {
		return fmt.Errorf("ShowNotification: failed to send FCM multicast: %w", err)
	}

	var firstErr error
	for i, r := range resp.Responses {
		if r.Success || i >= len(tokens) {
			continue
		}
		if firstErr == nil {
			firstErr = r.Error
		}
		d.pruneIfUnregistered(ctx, tokens[i], r.Error)
	}
	if resp.SuccessCount == 0 {
		if firstErr == nil {
			firstErr = ErrNoSubscription
		}
		return fmt.Errorf("ShowNotification: all %d deliveries to user %s failed: %w", len(tokens), target.UserID, firstErr)
	}
	if resp.FailureCount > 0 {
		d.logger.Warn("some web push deliveries failed",
			zap.String("userId", target.UserID),
			zap.Int("success", resp.SuccessCount),
			zap.Int("failure", resp.FailureCount),
		)
	}
	return nil
}

func (d *FCMDisplayer) pruneIfUnregistered(ctx context.Context, token string, err error) {
	if err == nil || !messaging.IsUnregistered(err) || d.subs == nil {
		return
	}
	if delErr := d.subs.DeleteByToken(ctx, token); delErr != nil {
		d.logger.Warn("failed to prune unregistered token", zap.Error(delErr))
		return
	}
	d.logger.Info("pruned unregistered push token")
}

func (d *FCMDisplayer) webpushConfig(title string, opts models.NotificationOptions) *messaging.WebpushConfig {
	actions := make([]*messaging.WebpushNotificationAction, 0, len(opts.Actions))
	for _, a := range opts.Actions {
		actions = append(actions, &messaging.WebpushNotificationAction{
			Action: a.Action,
			Title:  a.Title,
			Icon:   a.Icon,
		})
	}

	ts := int64(opts.Data.Timestamp)
	cfg := &messaging.WebpushConfig{
		Headers: map[string]string{"Urgency": "high"},
		Notification: &messaging.WebpushNotification{
			Title:              title,
			Body:               opts.Body,
			Icon:               opts.Icon,
			Badge:              opts.Badge,
			Image:              opts.Image,
			Tag:                opts.Tag,
			Data:               opts.Data,
			Actions:            actions,
			RequireInteraction: opts.RequireInteraction,
			Silent:             opts.Silent,
			Vibrate:            opts.Vibrate,
			TimestampMillis:    &ts,
		},
	}
	// FCM only accepts https links; plain-http portals rely on the notification data instead.
	if link := d.absoluteURL(opts.Data.URL); strings.HasPrefix(link, "https://") {
		cfg.FCMOptions = &messaging.WebpushFCMOptions{Link: link}
	}
	return cfg
}

func (d *FCMDisplayer) absoluteURL(p string) string {
	if u, err := url.Parse(p); err == nil && u.IsAbs() {
		return p
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return d.baseURL + p
}

// messageData mirrors the notification data as FCM string data for the portal's worker script.
func messageData(opts models.NotificationOptions) map[string]string {
	data := map[string]string{
		"url":       opts.Data.URL,
		"tag":       opts.Tag,
		"timestamp": strconv.FormatInt(int64(opts.Data.Timestamp), 10),
	}
	if opts.Data.NotificationType != "" {
		data["notificationType"] = opts.Data.NotificationType
	}
	if opts.Data.UserID != "" {
		data["userId"] = opts.Data.UserID.String()
	}
	if opts.Data.AppointmentID != "" {
		data["appointmentId"] = opts.Data.AppointmentID.String()
	}
	if opts.Data.PrescriptionID != "" {
		data["prescriptionId"] = opts.Data.PrescriptionID.String()
	}
	return data
}
