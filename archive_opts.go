package zip

import (
	"log/slog"

	"github.com/archfmt/zip/cache"
)

// Option configures an Archive.
type Option func(*Archive)

// WithMaxEntrySize limits the per-entry compressed and uncompressed sizes
// accepted by reads. Set limit to 0 to disable the limit.
func WithMaxEntrySize(limit uint64) Option {
	return func(a *Archive) {
		a.maxEntrySize = limit
	}
}

// WithCache enables caching of decompressed entry content.
//
// When enabled, content is cached after first read and served from cache
// on subsequent reads. Concurrent reads of the same entry are deduplicated.
func WithCache(c cache.Cache) Option {
	return func(a *Archive) {
		a.cache = c
	}
}

// WithLogger sets the logger for archive operations.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = logger
	}
}
