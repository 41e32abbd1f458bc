package models

import "time"

// EventKind is a notification lifecycle transition.
type EventKind string

const (
	EventDelivered EventKind = "delivered"
	EventClicked   EventKind = "clicked"
	EventDismissed EventKind = "dismissed"
)

// NotificationEvent is an immutable record of one lifecycle transition.
type NotificationEvent struct {
	Event            EventKind  `json:"event" bson:"event"`
	NotificationType string     `json:"notificationType,omitempty" bson:"notificationType,omitempty"`
	Timestamp        int64      `json:"timestamp" bson:"timestamp"`
	UserID           FlexibleID `json:"userId,omitempty" bson:"userId,omitempty"`
	AppointmentID    FlexibleID `json:"appointmentId,omitempty" bson:"appointmentId,omitempty"`
	PrescriptionID   FlexibleID `json:"prescriptionId,omitempty" bson:"prescriptionId,omitempty"`
	Action           string     `json:"action,omitempty" bson:"action,omitempty"`
}

// PushEvent is an inbound push addressed either to a single FCM token or to
// every subscription of a user.
type PushEvent struct {
	UserID  string `json:"userId"`
	Token   string `json:"token"`
	Payload []byte `json:"-"`
}

// ClickEvent is reported by the portal when the user clicks a notification or one of its actions.
type ClickEvent struct {
	UserID string           `json:"-"`
	Action string           `json:"action"`
	Tag    string           `json:"tag"`
	Data   NotificationData `json:"data"`
}

// CloseEvent is reported by the portal when the user dismisses a notification.
type CloseEvent struct {
	UserID string           `json:"-"`
	Tag    string           `json:"tag"`
	Data   NotificationData `json:"data"`
}

// ArchivedEvent is a NotificationEvent after it has been synced out of the event cache.
type ArchivedEvent struct {
	Key               string    `json:"key" bson:"key"`
	NotificationEvent `bson:",inline"`
	ArchivedAt        time.Time `json:"archivedAt" bson:"archivedAt"`
}
