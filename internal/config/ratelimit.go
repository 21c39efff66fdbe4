package config

import (
    "os"
    "strconv"
    "time"
)

// RateLimitPolicy describes one fixed-window counting policy.  Name is used
// as the Redis/memory key namespace so tiers never share counters.
type RateLimitPolicy struct {
    Name        string
    Window      time.Duration
    MaxRequests int
}

// RateLimitConfig bundles the three policy tiers the API uses plus global
// switches.  Auth endpoints get the strict tier, authenticated API routes
// the moderate tier and unauthenticated reads the lenient tier.
type RateLimitConfig struct {
    Enabled       bool
    SweepInterval time.Duration
    Strict        RateLimitPolicy
    Moderate      RateLimitPolicy
    Lenient       RateLimitPolicy
}

// LoadRateLimitConfig reads the rate-limit tiers from the environment.
// Defaults follow the documented policy: 5/15min for auth, 100/15min for
// the API, 200/15min for public endpoints.
func LoadRateLimitConfig() RateLimitConfig {
    window := envDur("RATE_LIMIT_WINDOW", 15*time.Minute)
    cfg := RateLimitConfig{
        Enabled:       envBool("RATE_LIMIT_ENABLED", true),
        SweepInterval: envDur("RATE_LIMIT_SWEEP_INTERVAL", 5*time.Minute),
        Strict:        RateLimitPolicy{Name: "auth", Window: window, MaxRequests: envInt("RATE_LIMIT_AUTH_MAX", 5)},
        Moderate:      RateLimitPolicy{Name: "api", Window: window, MaxRequests: envInt("RATE_LIMIT_API_MAX", 100)},
        Lenient:       RateLimitPolicy{Name: "public", Window: window, MaxRequests: envInt("RATE_LIMIT_PUBLIC_MAX", 200)},
    }
    if cfg.SweepInterval <= 0 {
        cfg.SweepInterval = 5 * time.Minute
    }
    for _, p := range []*RateLimitPolicy{&cfg.Strict, &cfg.Moderate, &cfg.Lenient} {
        if p.MaxRequests < 1 {
            p.MaxRequests = 1
        }
        if p.Window <= 0 {
            p.Window = 15 * time.Minute
        }
    }
    return cfg
}

func envStr(k, d string) string {
    if v := os.Getenv(k); v != "" { return v }
    return d
}

func envBool(k string, d bool) bool {
    v := os.Getenv(k)
    if v == "" { return d }
    switch v {
    case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON": return true
    case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF": return false
    }
    return d
}

func envInt(k string, d int) int {
    v := os.Getenv(k); if v == "" { return d }
    if n, err := strconv.Atoi(v); err == nil { return n }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k); if v == "" { return d }
    if dur, err := time.ParseDuration(v); err == nil { return dur }
    return d
}
