package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/larkhq/backend/internal/auth"
	"github.com/larkhq/backend/internal/cache"
	"github.com/larkhq/backend/internal/config"
	"github.com/larkhq/backend/internal/container"
	"github.com/larkhq/backend/internal/database"
	"github.com/larkhq/backend/internal/handlers"
	"github.com/larkhq/backend/internal/logger"
	"github.com/larkhq/backend/internal/metrics"
	"github.com/larkhq/backend/internal/middleware"
	"github.com/larkhq/backend/internal/telemetry"
	"github.com/larkhq/backend/internal/validation"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const serviceName = "lark-backend"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Log.Info("Lark backend starting",
		zap.String("environment", cfg.Environment))

	if err := database.Initialize(); err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.Migrate(); err != nil {
		logger.Log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Redis is optional; the feed composer falls back to the database
	// for the promo pool when it is absent
	redisClient, err := cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
	if err != nil {
		logger.Log.Warn("Redis unavailable, continuing without cache", zap.Error(err))
		redisClient = nil
	}

	validator := validation.NewServiceValidator()
	if err := validator.ValidateServices(context.Background()); err != nil {
		logger.Log.Fatal("Service validation failed", zap.Error(err))
	}

	tracerProvider, err := telemetry.InitTracer(telemetry.Config{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.TracingOTLPEndpoint,
		Enabled:      cfg.TracingEnabled,
		SamplingRate: cfg.TracingSamplingRate,
	})
	if err != nil {
		logger.Log.Warn("Failed to initialize tracing", zap.Error(err))
	}

	metrics.Initialize()

	authService := auth.NewService(cfg.JWTSecret)

	c := container.New().
		SetDB(database.DB).
		SetLogger(logger.Log).
		SetCache(redisClient).
		SetAuthService(authService).
		BuildEngines()
	if err := c.Validate(); err != nil {
		logger.Log.Fatal("Dependency validation failed", zap.Error(err))
	}

	c.OnCleanup(func(ctx context.Context) error {
		return database.Close()
	})
	if redisClient != nil {
		c.OnCleanup(func(ctx context.Context) error {
			return redisClient.Close()
		})
	}
	if tracerProvider != nil {
		c.OnCleanup(func(ctx context.Context) error {
			return tracerProvider.Shutdown(ctx)
		})
	}

	h := handlers.NewHandlersFromContainer(c)

	router := setupRouter(cfg, h, authService)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Log.Info("Lark backend listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := c.Cleanup(ctx); err != nil {
		logger.Log.Error("Cleanup failed", zap.Error(err))
	}

	logger.Log.Info("Server exited")
}

func setupRouter(cfg *config.Config, h *handlers.Handlers, authService *auth.Service) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.GinLoggerMiddleware())
	router.Use(middleware.MetricsMiddleware())
	if cfg.TracingEnabled {
		router.Use(middleware.TracingMiddleware(serviceName))
	}
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	router.Use(middleware.RedisRateLimitMiddleware(cfg.RateLimitMax, cfg.RateLimitWindow))

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.Register)
			authGroup.POST("/login", h.Login)
		}

		// Feed and post reads work for anonymous viewers
		public := api.Group("")
		public.Use(middleware.OptionalAuthMiddleware(authService))
		{
			public.GET("/feed", h.GetFeed)
			public.GET("/posts/:id", h.GetPost)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(authService))
		{
			protected.POST("/posts", h.CreatePost)
			protected.POST("/posts/:id/like", h.LikePost)
			protected.DELETE("/posts/:id/like", h.UnlikePost)
			protected.POST("/posts/:id/repost", h.RepostPost)
			protected.DELETE("/posts/:id/repost", h.UndoRepost)
			protected.POST("/posts/:id/bookmark", h.BookmarkPost)
			protected.DELETE("/posts/:id/bookmark", h.UnbookmarkPost)
			protected.POST("/posts/:id/vote", h.VotePoll)
			protected.POST("/posts/:id/stats", h.RecordPostStat)

			protected.POST("/users/:id/follow", h.FollowUser)
			protected.DELETE("/users/:id/follow", h.UnfollowUser)
			protected.POST("/users/:id/block", h.BlockUser)
			protected.DELETE("/users/:id/block", h.UnblockUser)
			protected.POST("/users/:id/mute", h.MuteUser)
			protected.DELETE("/users/:id/mute", h.UnmuteUser)
		}
	}

	return router
}
