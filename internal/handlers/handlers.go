package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"skillquest/api/internal/config"
	"skillquest/api/internal/middleware"
	"skillquest/api/internal/ratelimit"
	"skillquest/api/internal/repository"
	"skillquest/api/internal/service"
)

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	authService *service.AuthService
	db          *pgxpool.Pool
	cache       *redis.Client
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	var limiterClient *redis.Client
	if cfg.RateLimit.Enabled {
		limiterClient = cache
	}
	limiter := ratelimit.NewLoginLimiter(limiterClient, cfg.RateLimit.MaxAttempts, cfg.RateLimit.Window)
	auth := service.NewAuthService(userRepo, auditRepo, limiter, cfg, log)

	return HandlerSet{
		log:         log,
		cfg:         cfg,
		authService: auth,
		db:          db,
		cache:       cache,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	auth := router.Group("/auth")
	auth.POST("/signup", h.Signup)
	auth.POST("/login", h.Login)

	protected := router.Group("/auth")
	protected.Use(middleware.Auth(h.cfg, h.authService))
	protected.PUT("/update-password", h.UpdatePassword)
	protected.GET("/me", h.Me)
}
