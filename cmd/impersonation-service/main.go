// File: backend/services/impersonation-service/cmd/impersonation-service/main.go
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

	"github.com/go-redis/redis/v8"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/config"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/events/kafka"
	httpHandler "github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/handler/http"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/infrastructure/database"
	infraPostgres "github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/infrastructure/database/postgres"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/infrastructure/security"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/infrastructure/stepup"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/service"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/utils/logger"
)

const cloudEventSource = "impersonation-service"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	if cfg.Database.AutoMigrate {
		log.Info("Running database migrations")
		migrationURL := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			cfg.Database.User, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, cfg.Database.SSLMode)
		m, err := migrate.New("file://migrations", migrationURL)
		if err != nil {
			log.Fatal("Failed to create migration instance", zap.Error(err))
		}
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
		log.Info("Migrations applied successfully")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := infraPostgres.NewDBPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize PostgreSQL connection pool", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	var events service.EventPublisher = service.NoopPublisher{}
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log, cloudEventSource)
		if err != nil {
			log.Fatal("Failed to initialize Kafka producer", zap.Error(err))
		}
		defer producer.Close()
		events = producer
	}

	vault, err := security.NewAESGCMVault(cfg.Vault.KeyHex)
	if err != nil {
		log.Fatal("Failed to initialize credential vault", zap.Error(err))
	}

	tokenService, err := security.NewJWTTokenService(security.JWTConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		TokenTTL: cfg.Session.TTL,
	})
	if err != nil {
		log.Fatal("Failed to initialize token service", zap.Error(err))
	}

	clientRepo := database.NewPgxClientRepository(dbPool)
	sessionRepo := database.NewPgxSessionRepository(dbPool)
	auditRepo := database.NewPgxAuditLogRepository(dbPool)

	auditRecorder := service.NewAuditRecorder(auditRepo, cfg.Audit.QueueSize, log)
	defer auditRecorder.Close()

	impersonationService := service.NewImpersonationService(
		clientRepo,
		sessionRepo,
		auditRepo,
		vault,
		tokenService,
		auditRecorder,
		events,
		cfg.Session.TTL,
		log,
	)

	sweeper := service.NewExpirySweeper(sessionRepo, auditRecorder, events, cfg.Session.SweepInterval, log)
	go sweeper.Run(ctx)

	stepUpVerifier := stepup.NewRedisStepUpVerifier(redisClient, cfg.StepUp.Window)

	impersonationHandler := httpHandler.NewImpersonationHandler(impersonationService, log)
	healthHandler := httpHandler.NewHealthHandler(dbPool, log)

	router := httpHandler.SetupRouter(
		impersonationHandler,
		healthHandler,
		tokenService,
		sessionRepo,
		auditRecorder,
		stepUpVerifier,
		cfg,
		log,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("Starting HTTP server", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.ShutdownTimeout > 0 {
		return cfg.Server.ShutdownTimeout
	}
	return 15 * time.Second
}
