package cache

import "time"

// CacheService defines the behavior for caching mechanisms used by the
// delivery layer (enum/config responses). Correctness never depends on
// cache contents.
type CacheService interface {
	// Get retrieves a value from the cache. The second return reports
	// whether the key was present.
	Get(key string) (interface{}, bool)

	// Set adds a value to the cache with a TTL.
	Set(key string, value interface{}, duration time.Duration)

	// Delete removes a value from the cache.
	Delete(key string)

	// Flush removes all items.
	Flush()
}
