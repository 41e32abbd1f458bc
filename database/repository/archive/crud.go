package archiveRepo

import (
	"context"
	"fmt"
	"time"

	"mytelmed/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Archive upserts the event under its cache key, so replaying a partially
// failed sync never duplicates a record.
func (r *mongoEventArchiveRepo) Archive(ctx context.Context, key string, event models.NotificationEvent) error {
	doc := models.ArchivedEvent{
		Key:               key,
		NotificationEvent: event,
		ArchivedAt:        time.Now(),
	}
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"key": key},
		bson.M{"$setOnInsert": doc},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("archive event %s: %w", key, err)
	}
	return nil
}

// ListByUser returns the most recent archived events of a user, newest first.
func (r *mongoEventArchiveRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]models.ArchivedEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []models.ArchivedEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
