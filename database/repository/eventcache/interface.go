package eventcache

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("eventcache: entry not found")

// Store is the durable key-value cache holding notification lifecycle events.
// Keys are opaque to the store; Delete of a missing key is not an error.
type Store interface {
	// Add writes value under key only if key is not present yet.
	Add(ctx context.Context, key string, value []byte) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// Keys lists every key starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
