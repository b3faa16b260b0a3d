package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds configuration shared by the client, the CLI and the mock backend.
type Config struct {
	API       APIConfig
	Session   SessionConfig
	Redis     RedisConfig
	MongoDB   MongoDBConfig
	MinIO     MinIOConfig
	Imaging   ImagingConfig
	Server    ServerConfig
	JWT       JWTConfig
	Google    GoogleConfig
	RateLimit RateLimitConfig
	LogLevel  string
}

type APIConfig struct {
	BaseURL        string
	UploadsBaseURL string
	Timeout        time.Duration // zero means no client-side timeout
	RateLimitRPS   float64       // zero disables the outbound throttle
	RateLimitBurst int
	Locale         string
}

type SessionConfig struct {
	Store       string // memory | file | redis | mongo
	File        string
	RedisPrefix string
	IdleTimeout time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (r RedisConfig) Addr() string { return r.Host + ":" + r.Port }

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// MinIOConfig holds MinIO connection configuration for direct media uploads.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	URLExpiry time.Duration
}

type ImagingConfig struct {
	MaxWidth  int
	MaxHeight int
	Quality   float64
	MimeType  string
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	EnforceCSRF  bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
}

type GoogleConfig struct {
	ClientID string
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

// LoadConfig loads configuration from environment variables and an optional .env file.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("API_BASE_URL", "http://localhost:8000/api")
	v.SetDefault("HTTP_TIMEOUT", 0)
	v.SetDefault("API_RATE_LIMIT_RPS", 0)
	v.SetDefault("API_RATE_LIMIT_BURST", 1)
	v.SetDefault("LOCALE", "en")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("SESSION_STORE", "file")
	v.SetDefault("SESSION_REDIS_PREFIX", "aiot:")
	v.SetDefault("IDLE_TIMEOUT_MINUTES", 30)

	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("MONGODB_DATABASE", "aiot")
	v.SetDefault("MONGODB_TIMEOUT", 10)

	v.SetDefault("MINIO_BUCKET", "aiot-uploads")
	v.SetDefault("MINIO_URL_EXPIRY_HOURS", 24*7)

	v.SetDefault("IMAGE_MAX_WIDTH", 1920)
	v.SetDefault("IMAGE_MAX_HEIGHT", 1080)
	v.SetDefault("IMAGE_QUALITY", 0.8)
	v.SetDefault("IMAGE_MIME", "image/jpeg")

	v.SetDefault("SERVER_PORT", "8000")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("JWT_ACCESS_TOKEN_TTL", 120)

	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)

	baseURL := strings.TrimRight(v.GetString("API_BASE_URL"), "/")
	uploads := strings.TrimRight(v.GetString("UPLOADS_BASE_URL"), "/")
	if uploads == "" {
		uploads = originOf(baseURL)
	}

	cfg := &Config{
		API: APIConfig{
			BaseURL:        baseURL,
			UploadsBaseURL: uploads,
			Timeout:        time.Duration(v.GetInt("HTTP_TIMEOUT")) * time.Second,
			RateLimitRPS:   v.GetFloat64("API_RATE_LIMIT_RPS"),
			RateLimitBurst: v.GetInt("API_RATE_LIMIT_BURST"),
			Locale:         v.GetString("LOCALE"),
		},
		Session: SessionConfig{
			Store:       strings.ToLower(v.GetString("SESSION_STORE")),
			File:        v.GetString("SESSION_FILE"),
			RedisPrefix: v.GetString("SESSION_REDIS_PREFIX"),
			IdleTimeout: time.Duration(v.GetInt("IDLE_TIMEOUT_MINUTES")) * time.Minute,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			URLExpiry: time.Duration(v.GetInt("MINIO_URL_EXPIRY_HOURS")) * time.Hour,
		},
		Imaging: ImagingConfig{
			MaxWidth:  v.GetInt("IMAGE_MAX_WIDTH"),
			MaxHeight: v.GetInt("IMAGE_MAX_HEIGHT"),
			Quality:   v.GetFloat64("IMAGE_QUALITY"),
			MimeType:  v.GetString("IMAGE_MIME"),
		},
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			EnforceCSRF:  v.GetBool("DEVSERVER_ENFORCE_CSRF"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		JWT: JWTConfig{
			Secret:         os.Getenv("JWT_SECRET"),
			AccessTokenTTL: time.Duration(v.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
		},
		Google: GoogleConfig{
			ClientID: v.GetString("GOOGLE_CLIENT_ID"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		LogLevel: v.GetString("LOG_LEVEL"),
	}

	if cfg.Session.File == "" {
		cfg.Session.File = DefaultSessionFile()
	}

	return cfg, nil
}

// DefaultSessionFile returns the per-user session file location.
func DefaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "aiot", "session.json")
}

// originOf strips the path from a base URL: "http://h:8000/api" -> "http://h:8000".
func originOf(u string) string {
	scheme := ""
	rest := u
	if i := strings.Index(u, "://"); i >= 0 {
		scheme, rest = u[:i+3], u[i+3:]
	}
	if i := strings.Index(rest, "/"); i >= 0 {
		rest = rest[:i]
	}
	return scheme + rest
}
