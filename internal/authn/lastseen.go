package authn

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLastSeen records account last-seen markers in Redis. The marker has
// no bearing on authorization; it exists for operators.
type RedisLastSeen struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLastSeen constructs a RedisLastSeen recorder.
func NewRedisLastSeen(client *redis.Client, ttl time.Duration) *RedisLastSeen {
	return &RedisLastSeen{client: client, ttl: ttl}
}

// Touch stores the current time under the account's key.
func (r *RedisLastSeen) Touch(ctx context.Context, accountID int64) error {
	key := fmt.Sprintf("authn:last_seen:%d", accountID)
	return r.client.Set(ctx, key, time.Now().UTC().Format(time.RFC3339), r.ttl).Err()
}

var _ LastSeenRecorder = (*RedisLastSeen)(nil)
