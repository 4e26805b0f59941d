package config

import "time"

// CacheConfig defines settings for the response cache placed in front of
// the public catalog endpoints.  Seat maps are never cached: they expose
// live holds and must reflect the ledger on every read.
//
// When Enabled is false or no Redis client is available the middleware is a
// pass-through.  Methods lists the HTTP methods to cache, TTL the lifetime
// of an entry, KeyStrategy which parts of the request form the key, Prefix
// the key namespace and MaxBodyBytes the largest body worth storing.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables.  The TTL default is short
// because availableSeats is part of the cached screening payload.
func LoadCacheConfig() CacheConfig {
	methods := map[string]bool{}
	for _, m := range envList("CACHE_METHODS", "GET") {
		methods[m] = true
	}
	cfg := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      methods,
		TTL:          envDur("CACHE_TTL", 10*time.Second),
		KeyStrategy:  getenv("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       getenv("CACHE_PREFIX", "cinema:cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	return cfg
}
