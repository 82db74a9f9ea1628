package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// The window is opened by a NX set so a burst of first hits cannot race the
// expiry; INCR keeps the TTL the window was opened with.
var selectionWindowScript = redis.NewScript(`
redis.call("SET", KEYS[1], 0, "PX", ARGV[1], "NX")
local selections = redis.call("INCR", KEYS[1])
return {selections, redis.call("PTTL", KEYS[1])}
`)

// ThrottleResult is the state of one subscriber's selection window after a hit.
type ThrottleResult struct {
	Selections int
	Limit      int
	ResetIn    time.Duration
}

// Allowed reports whether the hit fits in the window.
func (r ThrottleResult) Allowed() bool {
	return r.Limit <= 0 || r.Selections <= r.Limit
}

// RetryAfterSeconds rounds ResetIn up to whole seconds, never below one.
func (r ThrottleResult) RetryAfterSeconds() int {
	secs := int((r.ResetIn + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// RedisSelectionThrottle counts plan selections per subscriber in a fixed window
// shared by every bot instance.
type RedisSelectionThrottle struct {
	client redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

// NewRedisSelectionThrottle allows limit selections per subscriber per window.
func NewRedisSelectionThrottle(client redis.UniversalClient, keyPrefix string, limit int, window time.Duration) *RedisSelectionThrottle {
	trimmed := strings.TrimSuffix(strings.TrimSpace(keyPrefix), ":")
	if trimmed == "" {
		trimmed = "monetizegram"
	}
	if window < time.Second {
		window = time.Second
	}
	return &RedisSelectionThrottle{
		client: client,
		prefix: trimmed + ":checkout_selections:",
		limit:  limit,
		window: window,
	}
}

func (t *RedisSelectionThrottle) key(subscriberID int64) string {
	return t.prefix + strconv.FormatInt(subscriberID, 10)
}

// Hit records one plan selection by subscriberID.
func (t *RedisSelectionThrottle) Hit(ctx context.Context, subscriberID int64) (ThrottleResult, error) {
	if t == nil || t.client == nil || t.limit <= 0 {
		return ThrottleResult{}, nil
	}

	res, err := selectionWindowScript.Run(ctx, t.client, []string{t.key(subscriberID)}, t.window.Milliseconds()).Int64Slice()
	if err != nil {
		return ThrottleResult{}, fmt.Errorf("selection throttle: %w", err)
	}
	if len(res) != 2 {
		return ThrottleResult{}, fmt.Errorf("selection throttle: expected 2 values, got %d", len(res))
	}

	resetIn := time.Duration(res[1]) * time.Millisecond
	if res[1] < 0 {
		resetIn = t.window
	}
	return ThrottleResult{Selections: int(res[0]), Limit: t.limit, ResetIn: resetIn}, nil
}
