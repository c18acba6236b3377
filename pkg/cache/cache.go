package cache

import "time"

// Cache is a TTL key/value store. The alert evaluator reads its config
// through it so evaluation passes do not hit storage every tick.
type Cache interface {
	// Get returns the value stored under key, or false when the key is
	// absent or its TTL has expired.
	Get(key string) (interface{}, bool)

	// Set stores value under key for at most ttl. A false return means the
	// entry was not admitted.
	Set(key string, value interface{}, ttl time.Duration) bool

	// Delete drops key if present.
	Delete(key string)

	// Close releases the cache's resources.
	Close()
}
