package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// NotificationPayload is the JSON body delivered with a push event.
type NotificationPayload struct {
	Title              string               `json:"title" validate:"required"`
	Body               string               `json:"body" validate:"required"`
	Icon               string               `json:"icon,omitempty"`
	Badge              string               `json:"badge,omitempty"`
	Image              string               `json:"image,omitempty"`
	Tag                string               `json:"tag,omitempty"`
	Data               NotificationData     `json:"data,omitempty"`
	Actions            []NotificationAction `json:"actions,omitempty"`
	RequireInteraction bool                 `json:"requireInteraction,omitempty"`
	Silent             bool                 `json:"silent,omitempty"`
	Vibrate            []int                `json:"vibrate,omitempty"`
}

// NotificationData is the strict form of the payload's free-form data map.
type NotificationData struct {
	URL              string      `json:"url,omitempty" bson:"url,omitempty"`
	NotificationType string      `json:"notificationType,omitempty" bson:"notificationType,omitempty"`
	UserID           FlexibleID  `json:"userId,omitempty" bson:"userId,omitempty"`
	AppointmentID    FlexibleID  `json:"appointmentId,omitempty" bson:"appointmentId,omitempty"`
	PrescriptionID   FlexibleID  `json:"prescriptionId,omitempty" bson:"prescriptionId,omitempty"`
	Timestamp        EpochMillis `json:"timestamp,omitempty" bson:"timestamp,omitempty"`
}

// NotificationAction is a button rendered on the notification.
type NotificationAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

// NotificationOptions is a payload with every default resolved, ready for display.
type NotificationOptions struct {
	Body               string               `json:"body"`
	Icon               string               `json:"icon"`
	Badge              string               `json:"badge"`
	Image              string               `json:"image,omitempty"`
	Tag                string               `json:"tag"`
	Data               NotificationData     `json:"data"`
	Actions            []NotificationAction `json:"actions,omitempty"`
	RequireInteraction bool                 `json:"requireInteraction"`
	Silent             bool                 `json:"silent"`
	Vibrate            []int                `json:"vibrate"`
}

// FlexibleID accepts both JSON strings and numbers; backends are not consistent about it.
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = FlexibleID(n.String())
	return nil
}

func (id FlexibleID) String() string {
	return string(id)
}

// EpochMillis is a Unix time in milliseconds. Backends that stringify data
// values send it quoted; anything unparseable decodes as zero.
type EpochMillis int64

func (ms *EpochMillis) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		*ms = 0
		return nil
	}
	*ms = EpochMillis(v)
	return nil
}
