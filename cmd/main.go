package main

import (
	"context"
	"encoding/base64"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mansoorceksport/clubdesk/internal/config"
	"github.com/mansoorceksport/clubdesk/internal/domain"
	"github.com/mansoorceksport/clubdesk/internal/repository"
	"github.com/mansoorceksport/clubdesk/internal/server"
	"github.com/mansoorceksport/clubdesk/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("starting clubdesk settlement service", zap.String("environment", cfg.Server.Environment))

	ctx := context.Background()

	// Grafana Cloud requires Basic auth with instanceId:apiToken base64 encoded
	authString := cfg.OTEL.InstanceID + ":" + cfg.OTEL.Token
	authEncoded := base64.StdEncoding.EncodeToString([]byte(authString))

	otelProvider, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    cfg.OTEL.ServiceName,
		ServiceVersion: cfg.OTEL.ServiceVersion,
		Environment:    cfg.OTEL.Environment,
		OTLPEndpoint:   cfg.OTEL.Endpoint,
		OTLPHeaders: map[string]string{
			"Authorization": "Basic " + authEncoded,
		},
		URLPathPrefix: "/otlp",
		Enabled:       cfg.OTEL.Enabled,
	}, logger)
	if err != nil {
		logger.Warn("failed to initialize OpenTelemetry", zap.Error(err))
	}
	if otelProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelProvider.Shutdown(shutdownCtx); err != nil {
				logger.Warn("telemetry shutdown", zap.Error(err))
			}
		}()
	}

	// Connect to MongoDB. Settlements run in multi-document transactions so the
	// deployment must be a replica set.
	ctxMongo, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mongoOpts := options.Client().ApplyURI(cfg.MongoDB.URI)
	if cfg.OTEL.Enabled {
		mongoOpts.SetMonitor(otelmongo.NewMonitor())
	}

	mongoClient, err := mongo.Connect(ctxMongo, mongoOpts)
	if err != nil {
		logger.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Error("error disconnecting from MongoDB", zap.Error(err))
		}
	}()

	if err := mongoClient.Ping(ctxMongo, nil); err != nil {
		logger.Fatal("failed to ping MongoDB", zap.Error(err))
	}
	logger.Info("MongoDB connected", zap.String("database", cfg.MongoDB.Database))

	mongoDB := mongoClient.Database(cfg.MongoDB.Database)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))

	// Receipt archiving is optional
	var archive domain.ReceiptArchive
	if cfg.S3.Enabled() {
		seaweed, err := repository.NewSeaweedReceiptArchive(ctx, cfg.S3)
		if err != nil {
			logger.Warn("receipt archive disabled", zap.Error(err))
		} else {
			archive = seaweed
			logger.Info("receipt archive enabled", zap.String("bucket", cfg.S3.Bucket))
		}
	}

	app, err := server.NewApp(server.AppDependencies{
		Config:      cfg,
		MongoClient: mongoClient,
		MongoDB:     mongoDB,
		RedisClient: redisClient,
		Archive:     archive,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal("failed to build app", zap.Error(err))
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Info("shutting down gracefully")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}()

	logger.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
