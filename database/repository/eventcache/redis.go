package eventcache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
)

const scanBatch = 200

type redisStore struct {
	client    *redis.Client
	namespace string
}

// NewRedisStore returns a Store whose keys live under "<name>:" in the given Redis database.
func NewRedisStore(client *redis.Client, name string) Store {
	return &redisStore{
		client:    client,
		namespace: name + ":",
	}
}

func (s *redisStore) Add(ctx context.Context, key string, value []byte) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.namespace+key, value, 0).Result()
	if err != nil {
		return false, fmt.Errorf("eventcache: add %s: %w", key, err)
	}
	return ok, nil
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, s.namespace+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("eventcache: get %s: %w", key, err)
	}
	return b, nil
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.namespace+key).Err(); err != nil {
		return fmt.Errorf("eventcache: delete %s: %w", key, err)
	}
	return nil
}

func (s *redisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.namespace+prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.namespace))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("eventcache: scan %s*: %w", prefix, err)
	}
	return keys, nil
}
