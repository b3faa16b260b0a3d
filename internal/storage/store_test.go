package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// exercise runs the same contract against every Store implementation.
func exercise(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, KeyToken)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, KeyToken, "tok-1"))
	require.NoError(t, s.Set(ctx, KeyCSRF, "csrf-1"))

	v, ok, err := s.Get(ctx, KeyToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tok-1", v)

	require.NoError(t, s.Set(ctx, KeyToken, "tok-2"))
	v, _, err = s.Get(ctx, KeyToken)
	require.NoError(t, err)
	require.Equal(t, "tok-2", v)

	require.NoError(t, s.Delete(ctx, KeyToken, KeyCSRF))
	_, ok, err = s.Get(ctx, KeyToken)
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = s.Get(ctx, KeyCSRF)
	require.NoError(t, err)
	require.False(t, ok)

	// deleting missing keys is not an error
	require.NoError(t, s.Delete(ctx, "missing"))
	require.NoError(t, s.Delete(ctx))
}

func TestMemoryStore(t *testing.T) {
	exercise(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	s := NewFileStore(path)
	exercise(t, s)

	require.NoError(t, s.Set(context.Background(), KeyToken, "persisted"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// a second store over the same file sees the value
	v, ok, err := NewFileStore(path).Get(context.Background(), KeyToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "persisted", v)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, _, err := NewFileStore(path).Get(context.Background(), KeyToken)
	require.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	exercise(t, NewRedisStore(client, "test:"))

	require.NoError(t, NewRedisStore(client, "test:").Set(context.Background(), KeyCSRF, "x"))
	got, err := m.Get("test:" + KeyCSRF)
	require.NoError(t, err)
	require.Equal(t, "x", got)
}

func TestErrUnknownBackend(t *testing.T) {
	require.Contains(t, ErrUnknownBackend("sqlite").Error(), `"sqlite"`)
}
