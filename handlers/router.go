package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/aiot-hub/aiot/backend/go-client/internal/config"
	"github.com/aiot-hub/aiot/backend/go-client/internal/media"
	"github.com/aiot-hub/aiot/backend/go-client/internal/models"
	"github.com/aiot-hub/aiot/backend/go-client/internal/oidc"
	posthandler "github.com/aiot-hub/aiot/backend/go-client/internal/posts/handler"
	postservice "github.com/aiot-hub/aiot/backend/go-client/internal/posts/service"
	"github.com/aiot-hub/aiot/backend/go-client/internal/resets"
	"github.com/aiot-hub/aiot/backend/go-client/internal/users"
	"github.com/aiot-hub/aiot/backend/go-client/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

var startTime = time.Now()

// Deps are the services behind the development API.
type Deps struct {
	Config      *config.Config
	Users       *users.Service
	Resets      *resets.Service
	Revocations resets.Revocations
	Posts       *postservice.Service
	Community   *Community
	Uploader    media.Uploader
	Google      oidc.TokenVerifier
	Redis       *redis.Client
	// UploadsDir is served under /uploads when set.
	UploadsDir string
	// OnReset overrides how reset tokens are delivered.
	OnReset ResetNotifier
}

// NewRouter builds the gin engine serving the API under /api.
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	r := gin.New()
	r.Use(cors, gin.Recovery())

	if cfg.RateLimit.Enabled {
		var l middleware.Limiter = middleware.NewMemoryLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		if cfg.RateLimit.UseRedis && d.Redis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			l = middleware.NewRedisLimiter(d.Redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win)
		}
		r.Use(middleware.RateLimit(l))
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", func(c *gin.Context) {
		deps := map[string]bool{
			"users": d.Users != nil,
			"posts": d.Posts != nil,
			"redis": true,
		}
		if d.Redis != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
			deps["redis"] = d.Redis.Ping(ctx).Err() == nil
			cancel()
		}
		status, code := "ready", http.StatusOK
		for _, ok := range deps {
			if !ok {
				status, code = "not_ready", http.StatusServiceUnavailable
			}
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(startTime).String()})
	})
	RegisterSwagger(r)
	if d.UploadsDir != "" {
		r.Static("/uploads", d.UploadsDir)
	}

	api := r.Group("/api")
	if cfg.Server.EnforceCSRF {
		api.Use(middleware.CSRFMiddleware(cfg.JWT.Secret))
	}
	authed := api.Group("", middleware.AuthMiddleware(cfg.JWT.Secret, d.Revocations))
	admin := authed.Group("", middleware.RequireRole(models.RoleAdmin, models.RoleSuperAdmin))

	ah := NewAuthHandler(cfg, d.Users, d.Resets, d.Revocations, d.Google)
	if d.OnReset != nil {
		ah.SetResetNotifier(d.OnReset)
	}
	ah.Register(api, authed)

	posthandler.RegisterPublicRoutes(api, d.Posts)
	posthandler.RegisterAdminRoutes(admin, d.Posts)

	community := d.Community
	if community == nil {
		community = NewCommunity(DefaultLearningPaths())
	}
	community.RegisterPublic(api)
	community.RegisterAuthed(authed)

	NewAdminHandler(d.Users, d.Revocations, d.Uploader).Register(admin)
	return r
}

// cors is a permissive policy for local development with credentials.
func cors(c *gin.Context) {
	origin := c.GetHeader("Origin")
	if origin == "" {
		origin = "*"
	} else {
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Add("Vary", "Origin")
	}
	c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
	c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, "+middleware.CSRFHeader)
	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}
