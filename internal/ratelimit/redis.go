package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
    tokens = capacity
    last_refill = now_ms
end

if interval_ms > 0 then
    local elapsed = math.max(0, now_ms - last_refill)
    local intervals = math.floor(elapsed / interval_ms)
    if intervals > 0 then
        tokens = math.min(capacity, tokens + intervals)
        last_refill = last_refill + (intervals * interval_ms)
    end
end

local allowed = 0
if tokens > 0 then
    allowed = 1
    tokens = tokens - 1
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)
return allowed
`)

// Redis shares one token bucket per key across every process using the
// same server. Redis errors fail open: Allow reports true together with
// the error.
type Redis struct {
	client   redis.Scripter
	prefix   string
	capacity int
	interval time.Duration
	ttl      time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

func NewRedis(client redis.Scripter, prefix string, perMinute int, logger zerolog.Logger) *Redis {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &Redis{
		client:   client,
		prefix:   prefix,
		capacity: perMinute,
		interval: time.Minute / time.Duration(perMinute),
		ttl:      2 * time.Minute,
		logger:   logger,
		now:      time.Now,
	}
}

func (limiter *Redis) Allow(ctx context.Context, key string) (bool, error) {
	args := []any{
		limiter.now().UnixMilli(),
		limiter.capacity,
		limiter.interval.Milliseconds(),
		int64(limiter.ttl / time.Second),
	}

	allowed, err := tokenBucketScript.Run(ctx, limiter.client, []string{limiter.prefix + key}, args...).Int()
	if err != nil {
		limiter.logger.Warn().Err(err).Str("key", key).Msg("rate limit check failed, allowing request")
		return true, fmt.Errorf("redis rate limit: %w", err)
	}
	return allowed == 1, nil
}

// NewRedisClient parses a redis:// URL and verifies the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
