package storage

import (
	"context"
	"errors"
)

// Keys used by SessBox.
const (
	KeySessions  = "sessbox/sessions"
	KeyQueue     = "sessbox/queue"
	KeyBlocklist = "sessbox/blocklist"

	// KeySealSalt holds the passphrase salt of a SealedStore in clear.
	KeySealSalt = "sessbox/meta/seal-salt"
)

// Common errors
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrClosed      = errors.New("kv store closed")
)

// KeyValueStore is a durable string-keyed blob store.
//
// Set must not return before the value is durable to the degree the
// implementation promises; callers treat a nil error as "persisted".
// Implementations must be safe for concurrent use.
type KeyValueStore interface {
	// Get returns the value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources. Further calls return ErrClosed.
	Close() error
}

// Config configures the store built by the application.
type Config struct {
	// Engine selects the implementation ("badger" or "memory").
	// Default: "badger"
	Engine string

	// Dir is the Badger data directory.
	Dir string

	// Badger-specific configuration
	Badger BadgerConfig
}

// BadgerConfig contains Badger tuning parameters.
type BadgerConfig struct {
	// GCInterval is the interval between value log GC runs.
	// Default: 10m
	GCInterval string

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 8MB
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 64MB
	ValueLogFileSize int64

	// SyncWrites fsyncs after every write. The queue relies on a
	// successful Set meaning the operation survives a crash, so this
	// defaults to true.
	SyncWrites bool

	// InMemory runs Badger without touching disk.
	InMemory bool
}

// DefaultConfig returns the default store configuration.
func DefaultConfig(dir string) Config {
	return Config{
		Engine: "badger",
		Dir:    dir,
		Badger: DefaultBadgerConfig(),
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
// Sizes are small: SessBox stores a handful of documents.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:       "10m",
		GCThreshold:      0.5,
		CacheSize:        8 << 20,
		ValueLogFileSize: 64 << 20,
		SyncWrites:       true,
	}
}

// Stats contains storage engine statistics.
type Stats struct {
	LSMSize          uint64
	ValueLogSize     uint64
	TotalSize        uint64
	LastGCTime       int64 // Unix milliseconds
	GCBytesReclaimed uint64
}
