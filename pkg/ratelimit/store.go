package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store holds the single shared rate limit window.
// Save must replace the window in one atomic step and must refuse windows
// whose reset time is earlier than the stored one.
type Store interface {
	// Load returns the current window, or nil if none has been recorded.
	Load(ctx context.Context) (*Window, error)

	// Save records w and reports whether it replaced the stored window.
	Save(ctx context.Context, w *Window) (bool, error)
}

// MemoryStore keeps the window in process memory behind an atomic pointer.
type MemoryStore struct {
	current atomic.Pointer[Window]
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the current window.
func (s *MemoryStore) Load(_ context.Context) (*Window, error) {
	return s.current.Load(), nil
}

// Save swaps in w unless the stored window resets later.
func (s *MemoryStore) Save(_ context.Context, w *Window) (bool, error) {
	if w == nil {
		return false, errors.New("window cannot be nil")
	}
	for {
		cur := s.current.Load()
		if !supersedes(cur, w) {
			return false, nil
		}
		if s.current.CompareAndSwap(cur, w) {
			return true, nil
		}
	}
}

// RedisKeyWindow is the hash holding the shared window when Redis is used.
const RedisKeyWindow = "gh:rate_limit:core"

// saveScript stores the window fields in one hash write, keeping reset_at
// monotonic and, within one window, remaining non-increasing. The key
// expires shortly after the window resets.
var saveScript = redis.NewScript(`
local cur = tonumber(redis.call('HGET', KEYS[1], 'reset_at'))
local reset = tonumber(ARGV[1])
if cur and reset < cur then
  return 0
end
if cur and reset == cur then
  local cur_remaining = tonumber(redis.call('HGET', KEYS[1], 'remaining'))
  local remaining = tonumber(ARGV[2])
  if cur_remaining and cur_remaining >= 0 and (remaining < 0 or remaining > cur_remaining) then
    return 0
  end
end
redis.call('HSET', KEYS[1], 'reset_at', ARGV[1], 'remaining', ARGV[2], 'limit', ARGV[3], 'observed_at', ARGV[4])
redis.call('EXPIREAT', KEYS[1], reset + tonumber(ARGV[5]))
return 1
`)

// RedisStore shares the window between processes using the same token.
type RedisStore struct {
	redis *redis.Client
	grace time.Duration
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis: redisClient,
		grace: 60 * time.Second,
	}
}

// Load reads the window hash. A missing key yields a nil window.
func (s *RedisStore) Load(ctx context.Context) (*Window, error) {
	fields, err := s.redis.HGetAll(ctx, RedisKeyWindow).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	reset, err := strconv.ParseInt(fields["reset_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse reset_at: %w", err)
	}
	remaining, err := strconv.Atoi(fields["remaining"])
	if err != nil {
		return nil, fmt.Errorf("parse remaining: %w", err)
	}
	limit, _ := strconv.Atoi(fields["limit"])
	observed, _ := strconv.ParseInt(fields["observed_at"], 10, 64)

	return &Window{
		Remaining:  remaining,
		Limit:      limit,
		ResetAt:    time.Unix(reset, 0),
		ObservedAt: time.UnixMilli(observed),
	}, nil
}

// Save writes the window through a Lua script so concurrent writers from
// several processes cannot interleave partial updates.
func (s *RedisStore) Save(ctx context.Context, w *Window) (bool, error) {
	if w == nil {
		return false, errors.New("window cannot be nil")
	}
	applied, err := saveScript.Run(ctx, s.redis, []string{RedisKeyWindow},
		w.ResetAt.Unix(),
		w.Remaining,
		w.Limit,
		w.ObservedAt.UnixMilli(),
		int64(s.grace/time.Second),
	).Int()
	if err != nil {
		return false, fmt.Errorf("store rate limit window in redis: %w", err)
	}
	return applied == 1, nil
}
