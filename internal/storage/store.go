// Package storage persists the client's small key/value state (bearer token,
// CSRF token) the way a browser keeps it in localStorage.
package storage

import (
	"context"
	"fmt"
)

// Well-known keys.
const (
	KeyToken = "adminToken"
	KeyCSRF  = "aiot_csrf_token"
)

// Store is a string key/value store. Get reports ok=false for missing keys.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Backend names accepted by SESSION_STORE.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// ErrUnknownBackend is returned by callers resolving a SESSION_STORE value.
type ErrUnknownBackend string

func (e ErrUnknownBackend) Error() string {
	return fmt.Sprintf("unknown session store %q (want memory|file|redis|mongo)", string(e))
}
