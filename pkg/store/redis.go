package store

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/voxelab/skelstitch/pkg/errors"
	"github.com/voxelab/skelstitch/pkg/observability"
)

// RedisStore keeps blobs in Redis, for pipelines whose chunk workers and
// merge step run on different machines. Keys are stored verbatim, so the
// path-like layout doubles as the Redis key namespace.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis at addr (host:port) and verifies the
// connection with a ping.
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(errors.ErrCodeStore, err, "connecting to redis at %s", addr)
	}
	return &RedisStore{client: client}, nil
}

// Get retrieves a blob, reporting found=false when the key doesn't exist.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		observability.Stores().OnStoreGet(ctx, key, false)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeStore, err, "reading %q", key)
	}
	observability.Stores().OnStoreGet(ctx, key, true)
	return data, true, nil
}

// Set stores a blob without expiration; pipeline artifacts are cleaned up
// explicitly, not by TTL.
func (s *RedisStore) Set(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "writing %q", key)
	}
	observability.Stores().OnStoreSet(ctx, key, len(data))
	return nil
}

// Delete removes a blob. Deleting a missing key is not an error.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "deleting %q", key)
	}
	return nil
}

// List returns every key under prefix, scanning incrementally so large
// namespaces don't block the server.
func (s *RedisStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "listing %q", prefix)
	}
	return keys, nil
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ensure RedisStore implements Store.
var _ Store = (*RedisStore)(nil)
