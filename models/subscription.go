package models

import "time"

// PushSubscription binds an FCM registration token to a portal user.
type PushSubscription struct {
	ID         string    `bson:"id" json:"id"`
	UserID     string    `bson:"userId" json:"userId"`
	Token      string    `bson:"token" json:"-"`
	DeviceName string    `bson:"deviceName" json:"deviceName"`
	UserAgent  string    `bson:"userAgent" json:"userAgent"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updatedAt"`
}

// SubscriptionRequest is the body of a token registration call.
type SubscriptionRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceName string `json:"deviceName"`
}
