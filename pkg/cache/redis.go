package cache

import (
	"context"
	"time"

	"github.com/slidereel/slidereel-backend/pkg/redis"
)

// Redis adapts the shared redis client to the Store interface. Keys are used
// verbatim; namespacing is the caller's concern.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps the provided client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, key)
	if err != nil {
		if redis.IsNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(value), true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl)
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key)
}
