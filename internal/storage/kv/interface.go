// internal/storage/kv/interface.go
package kv

import (
	"context"
	"fmt"
	"strings"

	"github.com/newthinker/pairdash/internal/core"
)

// Store is a durable string-keyed blob store, the server side of the
// dashboard's local storage.
type Store interface {
	// Get returns the value at key, or an error matching core.ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value at key, replacing any previous value
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Removing an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns all keys with the given prefix, sorted
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Closer is implemented by backends holding resources.
type Closer interface {
	Close() error
}

func notFound(key string) error {
	return core.WrapError(core.ErrNotFound, fmt.Errorf("key %q", key))
}

func validateKey(key string) error {
	if key == "" {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("empty key"))
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return core.WrapError(core.ErrStorageFailed, fmt.Errorf("invalid key %q", key))
		}
	}
	return nil
}
