// Package cache provides the TTL cache used for marketplace lookups that change
// rarely, such as asset-contract fee configurations and payment tokens.
package cache

import "time"

// Cache stores values with a per-entry TTL.
type Cache interface {
	// Get returns (value, true) if found, (nil, false) otherwise.
	Get(key string) (any, bool)

	// Set reports whether the entry was admitted.
	Set(key string, value any, ttl time.Duration) bool

	Delete(key string)

	Close()
}
