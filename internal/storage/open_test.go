package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aiot-hub/aiot/backend/go-client/internal/config"
	mr "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	cfg := &config.Config{}
	cfg.Session.Store = BackendMemory
	s, closeFn, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer closeFn()
	require.IsType(t, &MemoryStore{}, s)

	cfg.Session.Store = BackendFile
	cfg.Session.File = filepath.Join(t.TempDir(), "s.json")
	s, _, err = Open(ctx, cfg)
	require.NoError(t, err)
	require.Equal(t, cfg.Session.File, s.(*FileStore).Path())

	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	cfg.Session.Store = BackendRedis
	cfg.Redis.Host, cfg.Redis.Port = m.Host(), m.Port()
	s, closeRedis, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer closeRedis()
	exercise(t, s)

	cfg.Session.Store = "etcd"
	_, _, err = Open(ctx, cfg)
	require.ErrorAs(t, err, new(ErrUnknownBackend))

	cfg.Session.Store = BackendMongo
	_, _, err = Open(ctx, cfg)
	require.Error(t, err)
}
