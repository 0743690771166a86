package evalcache

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	redisclient "github.com/StricklySoft/cypher-gateway/pkg/clients/redis"
)

// keyPrefix namespaces classification entries within a shared Redis
// instance that may also back other gateway caches.
const keyPrefix = "cypher-gateway:evalcache:"

// Redis backs the classification cache with a shared
// pkg/clients/redis.Client so every replica of a multi-instance deployment
// observes the same (query text -> Requirements) decisions instead of each
// one independently re-running EXPLAIN.
type Redis struct {
	client *redisclient.Client
}

// NewRedis wraps an already-connected redis client. Entries are stored
// with no expiration, matching Memory's write-once semantics.
func NewRedis(client *redisclient.Client) *Redis {
	return &Redis{client: client}
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, keyPrefix+key)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

// Set implements Cache.
func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, keyPrefix+key, value, 0*time.Second)
}

var _ Cache = (*Redis)(nil)
