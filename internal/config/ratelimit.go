package config

import "time"

// RateLimitConfig tunes the per-user token bucket applied to inbound
// transport events.  Double-tapped buttons and command floods drain the
// bucket instead of reaching the engine.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int           // bucket size (burst)
    RefillTokens   int           // tokens added per interval
    RefillInterval time.Duration // refill cadence
    TTL            time.Duration // idle bucket expiry in Redis
    Prefix         string        // key namespace
}

// LoadRateLimitConfig reads rate limiter settings from the environment,
// clamping values that would make the bucket unusable.
func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 20),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
    }
    if cfg.Capacity < 1 {
        cfg.Capacity = 1
    }
    if cfg.RefillTokens < 1 {
        cfg.RefillTokens = 1
    }
    if cfg.RefillInterval <= 0 {
        cfg.RefillInterval = time.Second
    }
    if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
        cfg.TTL = minTTL
    }
    return cfg
}
