package storage

import (
	"context"
	"fmt"

	"github.com/aiot-hub/aiot/backend/go-client/internal/config"
	"github.com/aiot-hub/aiot/backend/go-client/internal/database"
	"github.com/redis/go-redis/v9"
)

// Open returns the store selected by cfg.Session.Store together with a
// function releasing its connections.
func Open(ctx context.Context, cfg *config.Config) (Store, func(), error) {
	noop := func() {}
	switch cfg.Session.Store {
	case BackendMemory:
		return NewMemoryStore(), noop, nil
	case BackendFile, "":
		return NewFileStore(cfg.Session.File), noop, nil
	case BackendRedis:
		if cfg.Redis.Host == "" {
			return nil, nil, fmt.Errorf("session store redis: REDIS_HOST is not set")
		}
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("session store redis: %w", err)
		}
		return NewRedisStore(client, cfg.Session.RedisPrefix), func() { _ = client.Close() }, nil
	case BackendMongo:
		if cfg.MongoDB.URI == "" {
			return nil, nil, fmt.Errorf("session store mongo: MONGODB_URI is not set")
		}
		client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err != nil {
			return nil, nil, fmt.Errorf("session store mongo: %w", err)
		}
		col := client.Database(cfg.MongoDB.Database).Collection("client_sessions")
		return NewMongoStore(col), func() { _ = client.Disconnect(context.Background()) }, nil
	}
	return nil, nil, ErrUnknownBackend(cfg.Session.Store)
}
