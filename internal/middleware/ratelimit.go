package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Sliding window over a sorted set; the counter key keeps members unique within one millisecond.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local current = redis.call('ZCARD', key)

	if current < limit then
		local counter = redis.call('INCR', key .. ':counter')
		redis.call('ZADD', key, now, now .. ':' .. counter)
		local expire_seconds = math.ceil(window_ms / 1000)
		redis.call('EXPIRE', key, expire_seconds)
		redis.call('EXPIRE', key .. ':counter', expire_seconds)
		return {1, limit - current - 1, 0}
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local reset_at = 0
	if oldest and #oldest >= 2 then
		reset_at = tonumber(oldest[2]) + window_ms
	end
	return {0, 0, reset_at}
`)

type LimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type Limiter struct {
	client redis.Scripter
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewLimiter(client redis.Scripter, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{client: client, prefix: prefix, limit: limit, window: window, now: time.Now}
}

func (l *Limiter) Allow(ctx context.Context, key string) (*LimitResult, error) {
	now := l.now()
	res, err := slidingWindow.Run(ctx, l.client, []string{l.prefix + key},
		now.UnixMilli(), now.Add(-l.window).UnixMilli(), l.limit, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("redis script: %w", err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("unexpected redis reply length %d", len(res))
	}
	out := &LimitResult{Allowed: res[0] == 1, Remaining: int(res[1]), ResetAt: now.Add(l.window)}
	if res[2] > 0 {
		out.ResetAt = time.UnixMilli(res[2])
	}
	return out, nil
}

// LoginRateLimit throttles login attempts per client IP. Redis errors let the request through.
func LoginRateLimit(l *Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := l.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Printf("[ratelimit][err] %v", err)
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(l.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			retry := int(time.Until(res.ResetAt).Seconds()) + 1
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			log.Printf("[ratelimit][deny] ip=%s", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Too many login attempts, please try again later",
			})
			return
		}
		c.Next()
	}
}
