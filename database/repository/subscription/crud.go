package subscriptionRepo

import (
	"context"
	"errors"
	"time"

	"mytelmed/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrSubscriptionNotFound is returned when no subscription matches a delete.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// Upsert registers the token for the user. A token moving to another user is re-bound.
func (r *mongoSubscriptionRepo) Upsert(ctx context.Context, sub models.PushSubscription) (*models.PushSubscription, error) {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"userId":     sub.UserID,
			"deviceName": sub.DeviceName,
			"userAgent":  sub.UserAgent,
			"updatedAt":  now,
		},
		"$setOnInsert": bson.M{
			"id":        uuid.New().String(),
			"token":     sub.Token,
			"createdAt": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var saved models.PushSubscription
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"token": sub.Token}, update, opts).Decode(&saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// GetByUserID returns every subscription registered by the user.
func (r *mongoSubscriptionRepo) GetByUserID(ctx context.Context, userID string) ([]models.PushSubscription, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var subs []models.PushSubscription
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// DeleteByToken removes a token regardless of owner; used to prune tokens FCM no longer accepts.
func (r *mongoSubscriptionRepo) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"token": token})
	return err
}

// DeleteByUserAndToken removes a token owned by the user.
func (r *mongoSubscriptionRepo) DeleteByUserAndToken(ctx context.Context, userID, token string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"userId": userID, "token": token})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}
