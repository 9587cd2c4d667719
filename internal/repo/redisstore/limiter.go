package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// INCR the window counter, start the TTL on the first hit, reject past limit.
const fixedWindowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], tonumber(ARGV[2]))
end
if current > tonumber(ARGV[1]) then
	return 0
end
return 1
`

// FixedWindowLimiter allows at most limit hits per key per window.
type FixedWindowLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func NewFixedWindowLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) *FixedWindowLimiter {
	if window < time.Second {
		window = time.Second
	}
	return &FixedWindowLimiter{
		rdb:    rdb,
		prefix: key(prefix, "ratelimit"),
		limit:  limit,
		window: window,
	}
}

func (l *FixedWindowLimiter) Allow(ctx context.Context, subject string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}
	result, err := l.rdb.Eval(ctx, fixedWindowScript, []string{key(l.prefix, subject)}, l.limit, int(l.window.Seconds())).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", subject, err)
	}
	return result == 1, nil
}
