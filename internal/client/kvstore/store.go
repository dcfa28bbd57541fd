// Package kvstore is the durable key-value store behind the session store and
// the vault fallback.
//
// Backends:
//   - SQLite (default): a local file migrated with goose.
//   - Redis: for shared or disposable environments.
//   - Memory: non-durable, for tests and dry runs.
//
// Contract shared by all backends: Get of a missing key returns (nil, nil);
// SetMany, Remove and Apply apply all keys or none.
package kvstore

import (
	"context"
	"errors"
	"fmt"
)

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetMany(ctx context.Context, values map[string][]byte) error
	Remove(ctx context.Context, keys ...string) error
	// Apply writes set and then removes del as one atomic change.
	Apply(ctx context.Context, set map[string][]byte, del []string) error
	Close() error
}

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

var ErrUnknownBackend = errors.New("unknown storage backend")

// Options selects and configures a backend for Open.
type Options struct {
	Backend       string
	DSN           string
	RedisAddr     string
	RedisPassword string
	RedisPrefix   string
}

// Open builds the backend named in opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendSQLite, "":
		return OpenSQLite(ctx, opts.DSN)
	case BackendRedis:
		return OpenRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisPrefix)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
