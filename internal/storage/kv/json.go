package kv

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/newthinker/pairdash/internal/core"
)

// GetJSON decodes the value at key into v. A value that does not parse is
// reported as core.ErrStorageCorrupt.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return core.WrapError(core.ErrStorageCorrupt, fmt.Errorf("key %q: %w", key, err))
	}
	return nil
}

// PutJSON encodes v and stores it at key.
func PutJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %q: %w", key, err)
	}
	return s.Put(ctx, key, data)
}
