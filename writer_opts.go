package zip

import (
	"log/slog"
	"time"
)

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithWriterLogger sets the logger for write operations.
// If not set, logging is disabled.
func WithWriterLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = logger
	}
}

// EntryOption configures a single entry as it is added.
type EntryOption func(*entryConfig)

type entryConfig struct {
	modTime       time.Time
	extra         []byte
	comment       string
	externalAttrs uint32
}

// WithModTime sets the entry's last-modified time. The default is the
// time of the Add or Create call.
func WithModTime(t time.Time) EntryOption {
	return func(cfg *entryConfig) {
		cfg.modTime = t
	}
}

// WithExtra attaches raw extra-field bytes to the entry. The bytes are
// written as-is to both the local header and the central directory.
func WithExtra(extra []byte) EntryOption {
	return func(cfg *entryConfig) {
		cfg.extra = extra
	}
}

// WithEntryComment sets the per-entry comment stored in the central
// directory.
func WithEntryComment(comment string) EntryOption {
	return func(cfg *entryConfig) {
		cfg.comment = comment
	}
}

// WithExternalAttrs sets the host-dependent external attributes field,
// e.g. Unix mode bits in the high 16 bits.
func WithExternalAttrs(attrs uint32) EntryOption {
	return func(cfg *entryConfig) {
		cfg.externalAttrs = attrs
	}
}
