// Command devserver runs a local implementation of the platform API for
// development and integration tests.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/aiot-hub/aiot/backend/go-client/handlers"
	"github.com/aiot-hub/aiot/backend/go-client/internal/config"
	"github.com/aiot-hub/aiot/backend/go-client/internal/database"
	"github.com/aiot-hub/aiot/backend/go-client/internal/media"
	"github.com/aiot-hub/aiot/backend/go-client/internal/models"
	"github.com/aiot-hub/aiot/backend/go-client/internal/oidc"
	"github.com/aiot-hub/aiot/backend/go-client/internal/posts/repository"
	postservice "github.com/aiot-hub/aiot/backend/go-client/internal/posts/service"
	"github.com/aiot-hub/aiot/backend/go-client/internal/resets"
	"github.com/aiot-hub/aiot/backend/go-client/internal/users"
	"github.com/aiot-hub/aiot/backend/go-client/pkg/logger"
	"github.com/aiot-hub/aiot/backend/go-client/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.SetComponent("devserver")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.JWT.Secret == "" {
		if cfg.Server.Environment == "production" {
			logger.Fatalf("JWT_SECRET is required")
		}
		cfg.JWT.Secret = "devserver-insecure-secret"
		logger.Warnf("JWT_SECRET not set; using a fixed development secret")
	}
	if cfg.Server.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.Infof("config loaded: mongo=%v redis=%v minio=%v google=%v csrf=%v",
		cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.MinIO.Endpoint != "", cfg.Google.ClientID != "", cfg.Server.EnforceCSRF)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := handlers.Deps{Config: cfg, UploadsDir: uploadsDir()}

	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", cfg.Redis.Addr(), err)
			rdb = nil
		} else {
			defer rdb.Close()
			logger.Infof("connected to Redis: %s", cfg.Redis.Addr())
		}
	}
	deps.Redis = rdb

	var mc *mongo.Client
	if cfg.MongoDB.URI != "" {
		mc = connectMongo(ctx, cfg)
		if mc != nil {
			defer func() { _ = mc.Disconnect(context.Background()) }()
		}
	}

	var resetRepo resets.Repository
	switch {
	case mc != nil:
		db := mc.Database(cfg.MongoDB.Database)
		deps.Users = users.NewService(users.NewMongoUserRepository(db.Collection("users")))
		postRepo, err := repository.NewMongoRepo(ctx, db.Collection("posts"))
		if err != nil {
			logger.Fatalf("posts index: %v", err)
		}
		deps.Posts = postservice.New(postRepo)
		resetRepo = resets.NewMongoRepository(db.Collection("password_resets"))
	default:
		logger.Infof("using in-memory users and posts")
		deps.Users = users.NewService(users.NewMemoryUserRepository())
		deps.Posts = postservice.NewMemoryService()
		resetRepo = resets.NewMemoryRepository()
	}
	if rdb != nil {
		resetRepo = resets.NewRedisRepository(rdb, "reset:")
		deps.Revocations = resets.NewRedisRevocations(rdb, cfg.JWT.AccessTokenTTL)
	} else {
		deps.Revocations = resets.NewMemoryRevocations()
	}
	deps.Resets = resets.NewService(resetRepo, resets.DefaultTTL)

	if cfg.MinIO.Endpoint != "" {
		up, err := media.NewMinIOUploader(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("MinIO unavailable, storing uploads on disk: %v", err)
		} else {
			deps.Uploader = up
		}
	}
	if deps.Uploader == nil {
		deps.Uploader = media.NewDiskUploader(deps.UploadsDir)
	}

	deps.Google = googleVerifier(ctx, cfg)

	if err := seedAdmin(ctx, deps.Users); err != nil {
		logger.Warnf("seed admin: %v", err)
	}

	r := handlers.NewRouter(deps)
	reg := prometheus.NewRegistry()
	metrics.RegisterServer(reg)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting devserver on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
	logger.Infof("devserver stopped")
}

func connectMongo(ctx context.Context, cfg *config.Config) *mongo.Client {
	client, err := database.ConnectWithRetry(ctx, cfg.MongoDB, 5, time.Second)
	if err != nil {
		logger.Warnf("could not connect to MongoDB; falling back to memory: %v", err)
		return nil
	}
	return client
}

func googleVerifier(ctx context.Context, cfg *config.Config) oidc.TokenVerifier {
	if strings.EqualFold(strings.TrimSpace(os.Getenv("ALLOW_INSECURE_TOKEN")), "true") {
		logger.Warnf("enabling insecure Google credential verifier (integration mode)")
		return oidc.NewInsecureVerifier()
	}
	if cfg.Google.ClientID == "" {
		return nil
	}
	v, err := oidc.NewVerifier(ctx, oidc.GoogleIssuer, cfg.Google.ClientID)
	if err != nil {
		logger.Warnf("failed to initialize Google verifier: %v", err)
		return nil
	}
	return v
}

// seedAdmin creates DEVSERVER_ADMIN_EMAIL as a super admin when it does not exist yet.
func seedAdmin(ctx context.Context, svc *users.Service) error {
	email := os.Getenv("DEVSERVER_ADMIN_EMAIL")
	password := os.Getenv("DEVSERVER_ADMIN_PASSWORD")
	if email == "" || password == "" {
		return nil
	}
	if _, err := svc.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, users.ErrNotFound) {
		return err
	}
	u, err := svc.Register(ctx, "Administrator", email, password)
	if err != nil {
		return err
	}
	if _, err := svc.SetRole(ctx, u.ID, models.RoleSuperAdmin); err != nil {
		return err
	}
	logger.Infof("seeded super admin %s", email)
	return nil
}

func uploadsDir() string {
	if d := os.Getenv("DEVSERVER_UPLOADS_DIR"); d != "" {
		return d
	}
	return filepath.Join(os.TempDir(), "aiot-devserver", "uploads")
}
