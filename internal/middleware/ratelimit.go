package middleware

import (
    "context"
    "log"
    "math"
    "strconv"
    "sync"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/issue-tracker/internal/apperror"
    "github.com/iliyamo/issue-tracker/internal/config"
)

// RateStore counts requests per key within a fixed window.  Incr lazily
// creates (or resets) the window, increments the counter and reports the
// post-increment count together with the window's absolute reset time.
// The in-memory implementation is the single-process default; the Redis
// one shares counters across processes.  Both satisfy the same contract so
// the middleware does not care which is injected.
type RateStore interface {
    Incr(ctx context.Context, key string, window time.Duration) (count int, resetAt time.Time, err error)
}

// MemoryRateStore keeps counters in a mutex-guarded map.  A background
// sweep reclaims entries whose window has elapsed so memory stays bounded.
// In a multi-process deployment this store does not provide global
// enforcement — each process counts independently.  That is a documented
// scaling limit, not something this store pretends to solve.
type MemoryRateStore struct {
    mu      sync.Mutex
    entries map[string]*rateEntry
    stop    chan struct{}
    once    sync.Once
}

type rateEntry struct {
    count   int
    resetAt time.Time
}

// NewMemoryRateStore builds the store and starts its sweep loop.  Call
// Stop during shutdown to end the loop.
func NewMemoryRateStore(sweepInterval time.Duration) *MemoryRateStore {
    s := &MemoryRateStore{
        entries: make(map[string]*rateEntry),
        stop:    make(chan struct{}),
    }
    if sweepInterval <= 0 {
        sweepInterval = 5 * time.Minute
    }
    go s.sweepLoop(sweepInterval)
    return s
}

func (s *MemoryRateStore) Incr(_ context.Context, key string, window time.Duration) (int, time.Time, error) {
    now := time.Now()
    s.mu.Lock()
    defer s.mu.Unlock()
    e, ok := s.entries[key]
    if !ok || !now.Before(e.resetAt) {
        e = &rateEntry{resetAt: now.Add(window)}
        s.entries[key] = e
    }
    e.count++
    return e.count, e.resetAt, nil
}

func (s *MemoryRateStore) sweepLoop(interval time.Duration) {
    ticker := time.NewTicker(interval)
    defer ticker.Stop()
    for {
        select {
        case <-ticker.C:
            s.Sweep(time.Now())
        case <-s.stop:
            return
        }
    }
}

// Sweep drops entries whose window elapsed before now.
func (s *MemoryRateStore) Sweep(now time.Time) {
    s.mu.Lock()
    defer s.mu.Unlock()
    for k, e := range s.entries {
        if !now.Before(e.resetAt) {
            delete(s.entries, k)
        }
    }
}

// Stop terminates the sweep loop.  Safe to call more than once.
func (s *MemoryRateStore) Stop() {
    s.once.Do(func() { close(s.stop) })
}

// RedisRateStore implements the same fixed-window contract on Redis so
// counters are shared across processes.  Expiry doubles as the sweep:
// Redis drops stale keys on its own.
type RedisRateStore struct {
    rdb    *redis.Client
    script *redis.Script
}

func NewRedisRateStore(rdb *redis.Client) *RedisRateStore {
    return &RedisRateStore{
        rdb: rdb,
        script: redis.NewScript(`
            local c = redis.call('INCR', KEYS[1])
            if c == 1 then
                redis.call('PEXPIRE', KEYS[1], ARGV[1])
            end
            local ttl = redis.call('PTTL', KEYS[1])
            return { c, ttl }
        `),
    }
}

func (s *RedisRateStore) Incr(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
    vals, err := s.script.Run(ctx, s.rdb, []string{key}, window.Milliseconds()).Int64Slice()
    if err != nil {
        return 0, time.Time{}, err
    }
    if len(vals) != 2 {
        return 0, time.Time{}, err
    }
    ttl := vals[1]
    if ttl < 0 {
        ttl = window.Milliseconds()
    }
    return int(vals[0]), time.Now().Add(time.Duration(ttl) * time.Millisecond), nil
}

// RateLimit returns a middleware enforcing the given policy against the
// injected store.  The key is the client IP as Echo derives it from trusted
// forwarding headers, with "unknown" as the fallback sentinel.  Limit
// headers are set on every response; denials additionally carry
// Retry-After and an absolute X-RateLimit-Reset timestamp.  Store errors
// fail open: a broken Redis must not take down the API.
func RateLimit(policy config.RateLimitPolicy, store RateStore) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            ip := c.RealIP()
            if ip == "" {
                ip = "unknown"
            }
            key := "rl:" + policy.Name + ":" + ip

            count, resetAt, err := store.Incr(c.Request().Context(), key, policy.Window)
            if err != nil {
                log.Printf("ratelimit: store error for key=%s: %v", key, err)
                return next(c)
            }

            remaining := policy.MaxRequests - count
            if remaining < 0 {
                remaining = 0
            }
            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(policy.MaxRequests))
            h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

            if count > policy.MaxRequests {
                secs := int(math.Ceil(time.Until(resetAt).Seconds()))
                if secs < 1 {
                    secs = 1
                }
                reset := resetAt.UTC().Format(time.RFC3339)
                h.Set("Retry-After", strconv.Itoa(secs))
                h.Set("X-RateLimit-Reset", reset)
                return apperror.RateLimited(secs, policy.MaxRequests, reset)
            }
            return next(c)
        }
    }
}
