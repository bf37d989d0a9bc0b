// Package cache provides the read-through cache used for tenant, user, and
// log lookups. All operations are best-effort: callers log and fall through to
// the authoritative store on error, never surfacing a cache failure.
package cache

import (
	"context"
	"time"
)

// TTLs for cached entities. Log listings mutate more often, so they expire sooner.
const (
	TenantTTL = 300 * time.Second
	LogsTTL   = 120 * time.Second
)

// Cache is the key-value cache boundary. Implementations must tolerate
// unavailability; a failed operation returns an error but must not wedge.
type Cache interface {
	// Get returns the raw value for key, with ok false on a miss.
	Get(ctx context.Context, key string) (val []byte, ok bool, err error)
	// Set stores val under key with the given TTL.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	// DeletePattern removes every key matching the glob pattern and returns
	// the number removed.
	DeletePattern(ctx context.Context, pattern string) (int64, error)
}
