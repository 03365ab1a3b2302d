package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atelierloop/gateway/internal/application/identity"
	"github.com/atelierloop/gateway/internal/application/rental"
	"github.com/atelierloop/gateway/internal/infrastructure/audit"
	"github.com/atelierloop/gateway/internal/infrastructure/auth"
	"github.com/atelierloop/gateway/internal/infrastructure/config"
	"github.com/atelierloop/gateway/internal/infrastructure/logger"
	"github.com/atelierloop/gateway/internal/infrastructure/scheduler"
	"github.com/atelierloop/gateway/internal/infrastructure/storage"
	"github.com/atelierloop/gateway/internal/infrastructure/telemetry"
	"github.com/atelierloop/gateway/internal/infrastructure/upstream"
	"github.com/atelierloop/gateway/internal/interfaces/http/handler"
	"github.com/atelierloop/gateway/internal/interfaces/http/middleware"
	"github.com/atelierloop/gateway/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting gateway",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Tracing (no-op when disabled)
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Redis backs the session, challenge and capability stores
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing redis client", zap.Error(err))
		}
	}()
	log.Info("Redis connected")

	// Audit trail database. The gateway keeps working without it; only the
	// trail is lost, so a missing host just logs a warning.
	var auditRepo *audit.Repository
	if cfg.Database.Host != "" {
		auditDB, err := audit.NewDatabase(&cfg.Database)
		if err != nil {
			log.Fatal("Failed to connect to audit database", zap.Error(err))
		}
		defer func() {
			if err := auditDB.Close(); err != nil {
				log.Error("Error closing audit database", zap.Error(err))
			}
		}()
		auditRepo = audit.NewRepository(auditDB.DB, log)
		if err := auditRepo.Migrate(); err != nil {
			log.Fatal("Failed to migrate audit schema", zap.Error(err))
		}
		log.Info("Audit database connected")
	} else {
		log.Warn("Audit database not configured, audit trail disabled")
	}

	// Marketplace API client
	apiClient := upstream.NewClient(cfg.Upstream, log)

	// Listing image storage (optional)
	var imageStorage *storage.ImageStorage
	if cfg.Storage.Endpoint != "" {
		imageStorage, err = storage.NewImageStorage(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize image storage", zap.Error(err))
		}
		if err := imageStorage.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to ensure image bucket", zap.Error(err))
		}
		log.Info("Image storage ready", zap.String("bucket", imageStorage.Bucket()))
	}

	// Stores and services
	jwtService := auth.NewJWTService(cfg.JWT)
	sessionStore := auth.NewRedisSessionStore(redisClient, cfg.JWT.Expiration)
	challengeStore := auth.NewRedisChallengeStore(redisClient)
	capabilityStore := auth.NewRedisCapabilityStore(redisClient, cfg.Admin.CapabilitySeed)

	// A nil *audit.Repository must never end up inside a non-nil interface
	// value, hence the explicit guards below.
	var auditor identity.AuditRecorder
	if auditRepo != nil {
		auditor = auditRepo
	}

	authService := identity.NewAuthService(
		apiClient, sessionStore, challengeStore, capabilityStore,
		jwtService, auditor, cfg.MFA, log,
	)

	var imageStore rental.ImageStore
	if imageStorage != nil {
		imageStore = imageStorage
	}
	var rentalAuditor rental.AuditRecorder
	if auditRepo != nil {
		rentalAuditor = auditRepo
	}
	rentalService := rental.NewService(apiClient, authService, imageStore, rentalAuditor, log)

	// Background sweep for expired cart holds
	var releaseRecorder scheduler.ReleaseRecorder
	if auditRepo != nil {
		releaseRecorder = auditRepo
	}
	sweeper := scheduler.NewHoldSweeper(cfg.Holds, apiClient, releaseRecorder, log)
	if err := sweeper.Start(ctx); err != nil {
		log.Fatal("Failed to start hold sweeper", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sweeper.Stop(stopCtx); err != nil {
			log.Error("Error stopping hold sweeper", zap.Error(err))
		}
	}()

	var routerAuditor middleware.AuditRecorder
	if auditRepo != nil {
		routerAuditor = auditRepo
	}

	engine := router.New(router.Dependencies{
		Config:       cfg,
		Logger:       log,
		JWTService:   jwtService,
		Capabilities: capabilityStore,
		Auditor:      routerAuditor,
		Auth:         handler.NewAuthHandler(authService, cfg.Cookie),
		Lister:       handler.NewListerHandler(rentalService),
		Renter:       handler.NewRenterHandler(rentalService),
		Admin:        handler.NewAdminHandler(rentalService, capabilityStore, cfg.Admin, routerAuditor, log),
		Catalog:      handler.NewCatalogHandler(rentalService),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
