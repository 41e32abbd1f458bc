package archiveRepo

import (
	"context"

	"mytelmed/database"
	"mytelmed/models"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EventArchiveRepository stores notification events flushed out of the local event cache.
type EventArchiveRepository interface {
	Archive(ctx context.Context, key string, event models.NotificationEvent) error
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.ArchivedEvent, error)
}

type mongoEventArchiveRepo struct {
	coll *mongo.Collection
}

// NewMongoEventArchiveRepo returns an EventArchiveRepository backed by MongoDB.
func NewMongoEventArchiveRepo() EventArchiveRepository {
	repo := &mongoEventArchiveRepo{
		coll: database.Database().Collection("notification_events"),
	}
	if err := repo.ensureIndexes(); err != nil {
		zap.L().Warn("event archive repo: index setup failed", zap.Error(err))
	}
	return repo
}
