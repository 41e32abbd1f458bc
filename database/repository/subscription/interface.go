package subscriptionRepo

import (
	"context"

	"mytelmed/database"
	"mytelmed/models"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// SubscriptionRepository persists FCM registration tokens per portal user.
type SubscriptionRepository interface {
	Upsert(ctx context.Context, sub models.PushSubscription) (*models.PushSubscription, error)
	GetByUserID(ctx context.Context, userID string) ([]models.PushSubscription, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteByUserAndToken(ctx context.Context, userID, token string) error
}

type mongoSubscriptionRepo struct {
	coll *mongo.Collection
}

// NewMongoSubscriptionRepo returns a SubscriptionRepository backed by MongoDB.
func NewMongoSubscriptionRepo() SubscriptionRepository {
	repo := &mongoSubscriptionRepo{
		coll: database.Database().Collection("push_subscriptions"),
	}
	if err := repo.ensureIndexes(); err != nil {
		zap.L().Warn("subscription repo: index setup failed", zap.Error(err))
	}
	return repo
}
