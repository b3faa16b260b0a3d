package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://aiot.example.com/api/")
	t.Setenv("SESSION_FILE", "/tmp/aiot-test/session.json")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "https://aiot.example.com/api", cfg.API.BaseURL)
	require.Equal(t, "https://aiot.example.com", cfg.API.UploadsBaseURL)
	require.Equal(t, time.Duration(0), cfg.API.Timeout)
	require.Equal(t, "file", cfg.Session.Store)
	require.Equal(t, "/tmp/aiot-test/session.json", cfg.Session.File)
	require.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout)
	require.Equal(t, 1920, cfg.Imaging.MaxWidth)
	require.Equal(t, 1080, cfg.Imaging.MaxHeight)
	require.InDelta(t, 0.8, cfg.Imaging.Quality, 1e-9)
	require.Equal(t, "image/jpeg", cfg.Imaging.MimeType)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://localhost:9000/api")
	t.Setenv("UPLOADS_BASE_URL", "https://cdn.example.com/")
	t.Setenv("SESSION_STORE", "Redis")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("IDLE_TIMEOUT_MINUTES", "5")
	t.Setenv("HTTP_TIMEOUT", "15")
	t.Setenv("DEVSERVER_ENFORCE_CSRF", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "https://cdn.example.com", cfg.API.UploadsBaseURL)
	require.Equal(t, "redis", cfg.Session.Store)
	require.Equal(t, "cache:6379", cfg.Redis.Addr())
	require.Equal(t, 5*time.Minute, cfg.Session.IdleTimeout)
	require.Equal(t, 15*time.Second, cfg.API.Timeout)
	require.True(t, cfg.Server.EnforceCSRF)
}

func TestOriginOf(t *testing.T) {
	require.Equal(t, "http://h:8000", originOf("http://h:8000/api/v1"))
	require.Equal(t, "https://h", originOf("https://h"))
	require.Equal(t, "h", originOf("h/api"))
}
