// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"mytelmed/config"

	"github.com/go-redis/redis/v8"
)

// EventCacheClient backs the notification event cache.
var EventCacheClient *redis.Client

// InitEventCache initializes the Redis client holding cached notification events.
func InitEventCache() {
	EventCacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisEventDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := EventCacheClient.Ping(ctx).Result()
	if err != nil {
		log.Fatalf("Failed to connect to Redis (Event Cache): %v", err)
	}
}

// GetEventCacheClient returns the event cache client, connecting on first use.
func GetEventCacheClient() *redis.Client {
	if EventCacheClient == nil {
		InitEventCache()
	}
	return EventCacheClient
}
