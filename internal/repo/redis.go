package repo

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

type Redis struct{ C *redis.Client }

func NewRedis(addr string) *Redis {
	return &Redis{C: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *Redis) Ping(ctx context.Context) error { return r.C.Ping(ctx).Err() }
func (r *Redis) Close() error                   { return r.C.Close() }

// CountInWindow bumps a fixed-window counter and reports the running
// total. The first hit in a window sets the expiry.
func (r *Redis) CountInWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	n, err := r.C.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		r.C.Expire(ctx, key, window)
	}
	return n, nil
}
