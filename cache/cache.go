// Package cache provides storage for decompressed entry content, keyed by
// entry identity.
//
// Keys incorporate the entry's offset, compressed size, and CRC32, so a
// stale archive handle cannot serve content for a different entry.
package cache

// Cache stores decompressed entry content.
//
// Implementations should handle their own size limits and eviction
// policies, and must be safe for concurrent use.
type Cache interface {
	// Get retrieves content by key. Returns false if the content is not
	// cached. The returned slice must be treated as immutable.
	Get(key string) ([]byte, bool)

	// Put stores content under key. The cache retains the slice; callers
	// must not modify it afterwards.
	Put(key string, content []byte)

	// Delete removes cached content for the key. Missing entries are a
	// no-op.
	Delete(key string)
}
