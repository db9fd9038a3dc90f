package kv

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/newthinker/pairdash/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()

	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)

	db, err := NewSQLite(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return map[string]Store{
		"memory":  NewMemory(),
		"localfs": fs,
		"sqlite":  db,
	}
}

func TestStore_PutGet(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Put(ctx, "connection", []byte(`{"connected":true}`)))

			got, err := s.Get(ctx, "connection")
			require.NoError(t, err)
			assert.Equal(t, `{"connected":true}`, string(got))

			require.NoError(t, s.Put(ctx, "connection", []byte(`{}`)))
			got, err = s.Get(ctx, "connection")
			require.NoError(t, err)
			assert.Equal(t, `{}`, string(got), "put replaces")
		})
	}
}

func TestStore_GetMissing(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(context.Background(), "absent")
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrNotFound))
		})
	}
}

func TestStore_Delete(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Put(ctx, "credentials", []byte("x")))
			require.NoError(t, s.Delete(ctx, "credentials"))

			_, err := s.Get(ctx, "credentials")
			assert.True(t, errors.Is(err, core.ErrNotFound))

			assert.NoError(t, s.Delete(ctx, "credentials"), "deleting absent key")
		})
	}
}

func TestStore_Keys(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Put(ctx, "session/connection", []byte("1")))
			require.NoError(t, s.Put(ctx, "session/credentials", []byte("2")))
			require.NoError(t, s.Put(ctx, "trading-strategies", []byte("[]")))

			keys, err := s.Keys(ctx, "session/")
			require.NoError(t, err)
			assert.Equal(t, []string{"session/connection", "session/credentials"}, keys)

			all, err := s.Keys(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 3)
		})
	}
}

func TestStore_RejectsInvalidKey(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			assert.Error(t, s.Put(ctx, "", []byte("x")))
			assert.Error(t, s.Put(ctx, "../escape", []byte("x")))
		})
	}
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "kv.db")
	ctx := context.Background()

	db, err := NewSQLite(dsn)
	require.NoError(t, err)
	require.NoError(t, db.Put(ctx, "k", []byte("v")))
	require.NoError(t, db.Close())

	db, err = NewSQLite(dsn)
	require.NoError(t, err)
	defer db.Close()

	got, err := db.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}

func TestSQLite_KeysEscapesWildcards(t *testing.T) {
	db, err := NewSQLite(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, db.Put(ctx, "a_b", []byte("1")))
	require.NoError(t, db.Put(ctx, "axb", []byte("2")))

	keys, err := db.Keys(ctx, "a_")
	require.NoError(t, err)
	assert.Equal(t, []string{"a_b"}, keys)
}
