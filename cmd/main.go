package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusconnect/campus/internal/assistant"
	"github.com/campusconnect/campus/internal/avatar"
	"github.com/campusconnect/campus/internal/cache"
	"github.com/campusconnect/campus/internal/chat"
	"github.com/campusconnect/campus/internal/config"
	"github.com/campusconnect/campus/internal/domain"
	"github.com/campusconnect/campus/internal/handler"
	"github.com/campusconnect/campus/internal/hub"
	"github.com/campusconnect/campus/internal/ids"
	"github.com/campusconnect/campus/internal/repository"
	"github.com/campusconnect/campus/internal/service"
	"github.com/campusconnect/campus/pkg/database"
	"github.com/campusconnect/campus/pkg/jwt"
	pkglog "github.com/campusconnect/campus/pkg/log"
	"github.com/campusconnect/campus/pkg/middleware"
	"github.com/campusconnect/campus/pkg/pubsub"
	"github.com/campusconnect/campus/pkg/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	pkglog.Init(cfg.Log)
	logger := pkglog.L()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database using GORM
	db, err := database.New(cfg.Database.ToDatabaseConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close(db)

	// Auto-migrate
	if err := database.AutoMigrate(db, domain.Models()...); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database migration completed")

	gen, err := ids.New(cfg.IDs.Strategy)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create id generator")
	}

	// Initialize repositories
	accountRepo := repository.NewGormAccountRepository(db)
	profileRepo := repository.NewGormProfileRepository(db)
	threadRepo := repository.NewGormThreadRepository(db, gen)
	postRepo := repository.NewGormPostRepository(db, gen)
	commentRepo := repository.NewGormCommentRepository(db, gen)

	// Redis backs the profile cache and session revocation when selected
	var redisClient *redis.Client
	if cfg.Cache.Driver == "redis" || cfg.JWT.Revocation == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.Redis.Address).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}

	var profileCache cache.ProfileCache
	switch cfg.Cache.Driver {
	case "redis":
		profileCache = cache.NewRedisProfileCache(redisClient, cfg.Cache.Prefix)
	case "memory":
		profileCache = cache.NewMemoryProfileCache()
	default:
		profileCache = cache.NoopProfileCache{}
	}
	defer profileCache.Close()

	var revocations jwt.RevocationStore
	if cfg.JWT.Revocation == "redis" {
		revocations = jwt.NewRedisRevocationStore(redisClient, cfg.Log.ServiceName)
	}

	tokens, err := jwt.NewManager(jwt.Options{
		AccessDuration:  cfg.JWT.AccessTokenDuration,
		RefreshDuration: cfg.JWT.RefreshTokenDuration,
		Issuer:          cfg.JWT.Issuer,
		PrivateKeyPEM:   cfg.JWT.PrivateKeyPEM,
		Revocations:     revocations,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create token manager")
	}
	if cfg.JWT.PrivateKeyPEM == "" {
		logger.Warn().Msg("no jwt private key configured, sessions will not survive a restart")
	}

	// Change-notification bus
	bus, err := pubsub.NewPubSub(cfg.PubSub)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.PubSub.Driver).Msg("failed to create pubsub")
	}
	defer bus.Close()
	logger.Info().Str("driver", cfg.PubSub.Driver).Msg("pubsub ready")

	// Object store for avatars
	media, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("failed to create storage")
	}

	bridge, err := assistant.New(ctx, assistant.Config{
		Provider:      cfg.Assistant.Provider,
		APIKey:        cfg.Assistant.APIKey,
		Model:         cfg.Assistant.Model,
		BaseURL:       cfg.Assistant.BaseURL,
		FallbackDelay: cfg.Assistant.FallbackDelay,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create assistant bridge")
	}
	logger.Info().Str("provider", cfg.Assistant.Provider).Bool("live", bridge.Live()).Msg("assistant bridge ready")

	// Initialize services
	authService := service.NewAuthService(accountRepo, profileRepo, tokens, bus, bcrypt.DefaultCost)
	profileService := service.NewProfileService(
		profileRepo,
		profileCache,
		cfg.Cache.TTL,
		avatar.NewProcessor(media, avatar.Config{
			Size:      cfg.Avatar.Size,
			Quality:   cfg.Avatar.Quality,
			MaxBytes:  cfg.Avatar.MaxBytes,
			MaxPixels: cfg.Avatar.MaxPixels,
		}),
		gen,
	)
	feedService := service.NewFeedService(threadRepo, postRepo, commentRepo, bus)

	if err := feedService.SeedThreads(ctx, cfg.Feed.SeedThreads); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed threads")
	}

	// Initialize Hub
	feedHub := hub.NewHub(feedService, bus)
	if err := feedHub.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start feed hub")
	}

	// Open chat screens, reaped when idle
	chats := chat.NewStore(bridge, cfg.Chat)
	go chats.Run(ctx)

	// Initialize HTTP handler
	httpHandler := handler.NewHandler(
		authService,
		profileService,
		feedService,
		bridge,
		chats,
		feedHub,
		media,
		middleware.NewAuthMiddleware(tokens),
		handler.Options{
			SecureCookies:  cfg.Server.SecureCookies,
			AvatarMaxBytes: cfg.Avatar.MaxBytes,
			WebSocket:      cfg.WebSocket,
		},
	)

	// Setup Gin router
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))

	// Register routes
	httpHandler.RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("addr", addr).Str("ids", gen.Name()).Msg("campus starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("campus stopped")
}
