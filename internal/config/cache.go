package config

import "time"

// CacheConfig controls the Redis cache in front of the public event
// listing.  When PerViewer is set the caller is part of the key, since
// is_favorited differs between users.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	PerViewer    bool
	Prefix       string
	MaxBodyBytes int
}

const (
	minCacheTTL = time.Second
	maxCacheTTL = 5 * time.Minute
)

func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:      envBool("EVENT_CACHE_ENABLED", true),
		TTL:          envDur("EVENT_CACHE_TTL", 30*time.Second),
		PerViewer:    envBool("EVENT_CACHE_PER_VIEWER", true),
		Prefix:       envStr("EVENT_CACHE_PREFIX", "reservita:events"),
		MaxBodyBytes: envInt("EVENT_CACHE_MAX_BODY_BYTES", 256<<10),
	}
	// a listing may only lag bookings and ratings briefly
	if cfg.TTL < minCacheTTL {
		cfg.TTL = minCacheTTL
	}
	if cfg.TTL > maxCacheTTL {
		cfg.TTL = maxCacheTTL
	}
	return cfg
}
