package synclock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// Redis is a SET NX lock shared by every process pointing at the same server.
// Each acquisition writes a fresh token, so only the holder can release it.
type Redis struct {
	client redis.UniversalClient
	key    string
	opts   options
}

func NewRedis(client redis.UniversalClient, key string, opts ...Option) *Redis {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if key == "" {
		key = "grantline:sync"
	}
	return &Redis{client: client, key: key, opts: o}
}

func (r *Redis) Acquire(ctx context.Context) (Release, error) {
	token := uuid.NewString()
	attempts := r.opts.retryCount
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		ok, err := r.client.SetNX(ctx, r.key, token, r.opts.ttl).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("set lock %s: %w", r.key, err)
		}
		if ok {
			return r.release(token), nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.opts.retryDelay):
		}
	}
	return nil, ErrNotAcquired
}

func (r *Redis) release(token string) Release {
	return func(ctx context.Context) error {
		n, err := unlockScript.Run(ctx, r.client, []string{r.key}, token).Int64()
		if err != nil {
			return fmt.Errorf("release lock %s: %w", r.key, err)
		}
		if n == 0 {
			return ErrNotHeld
		}
		return nil
	}
}
