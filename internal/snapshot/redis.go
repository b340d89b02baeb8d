package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quotify/api/internal/quote"
)

// RedisStore keeps the snapshot in a Redis string with an optional TTL.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore creates a Redis-backed snapshot store. A ttl of zero keeps
// the snapshot forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, key: Key, ttl: ttl, now: time.Now}
}

func (r *RedisStore) Save(ctx context.Context, s quote.State) error {
	data, err := Encode(s, r.now())
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context, defaults quote.State) (quote.State, bool, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return defaults, false, nil
	}
	if err != nil {
		return defaults, false, fmt.Errorf("loading snapshot: %w", err)
	}
	s, err := Decode(data, defaults)
	if err != nil {
		return defaults, false, err
	}
	return s, true, nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("clearing snapshot: %w", err)
	}
	return nil
}
