package server

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/mansoorceksport/clubdesk/internal/config"
	"github.com/mansoorceksport/clubdesk/internal/domain"
	"github.com/mansoorceksport/clubdesk/internal/handler"
	"github.com/mansoorceksport/clubdesk/internal/middleware"
	"github.com/mansoorceksport/clubdesk/internal/repository"
	"github.com/mansoorceksport/clubdesk/internal/service"
	"github.com/mansoorceksport/clubdesk/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// AppDependencies holds the dependencies required to start the application
type AppDependencies struct {
	Config      *config.Config
	MongoClient *mongo.Client
	MongoDB     *mongo.Database
	RedisClient *redis.Client
	Archive     domain.ReceiptArchive // optional
	Logger      *zap.Logger
}

// NewApp creates and configures the Fiber application with the given dependencies
func NewApp(deps AppDependencies) (*fiber.App, error) {
	cfg := deps.Config
	log := deps.Logger.Named("http")

	// Initialize repositories
	sequenceRepo := repository.NewMongoSequenceRepository(deps.MongoDB)
	planRepo := repository.NewMongoPlanRepository(deps.MongoDB, sequenceRepo)
	memberRepo := repository.NewMongoMemberRepository(deps.MongoDB, sequenceRepo)
	paymentRepo := repository.NewMongoPaymentRepository(deps.MongoDB)
	membershipRepo, err := repository.NewMongoMembershipRepository(deps.MongoDB)
	if err != nil {
		return nil, err
	}
	receiptRepo, err := repository.NewMongoReceiptRepository(deps.MongoDB)
	if err != nil {
		return nil, err
	}
	cacheRepo := repository.NewRedisCacheRepository(deps.RedisClient)
	locker := repository.NewRedisMemberLocker(deps.RedisClient, cfg.Settlement.LockTTL, cfg.Settlement.LockWait, deps.Logger)

	// Initialize services
	settlementService := service.NewSettlementService(service.SettlementDependencies{
		Plans:         planRepo,
		Members:       memberRepo,
		Memberships:   membershipRepo,
		Payments:      paymentRepo,
		Receipts:      receiptRepo,
		Sequences:     sequenceRepo,
		Transactions:  repository.NewMongoTransactionRunner(deps.MongoClient),
		Locker:        locker,
		Archive:       deps.Archive,
		ReceiptPrefix: cfg.Settlement.ReceiptPrefix,
	}, deps.Logger)
	receiptQuery := service.NewReceiptQueryService(receiptRepo, cacheRepo, cfg.Settlement.ReceiptTTL, deps.Logger)

	// Initialize handlers
	settlementHandler := handler.NewSettlementHandler(settlementService)
	receiptHandler := handler.NewReceiptHandler(receiptQuery)
	planHandler := handler.NewPlanHandler(planRepo)
	memberHandler := handler.NewMemberHandler(memberRepo, membershipRepo)
	paymentHandler := handler.NewPaymentHandler(paymentRepo)

	bodyLimit := int(cfg.Server.BodyLimitKB * 1024)
	if bodyLimit <= 0 {
		bodyLimit = fiber.DefaultBodyLimit
	}

	app := fiber.New(fiber.Config{
		AppName:      "Clubdesk API",
		BodyLimit:    bodyLimit,
		ErrorHandler: customErrorHandler(log),
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(telemetry.FiberMiddleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Idempotency-Key, X-Correlation-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "clubdesk",
		})
	})

	v1 := app.Group("/v1")

	v1.Post("/settlements",
		middleware.IdempotencyMiddleware(deps.RedisClient, cfg.Settlement.IdempotencyTTL),
		middleware.RateLimit(rate.NewLimiter(rate.Limit(cfg.Settlement.RatePerSecond), cfg.Settlement.RateBurst)),
		settlementHandler.Settle,
	)

	v1.Get("/receipts/payment/:paymentId", receiptHandler.GetByPayment)

	payments := v1.Group("/payments")
	payments.Get("/", paymentHandler.List)
	payments.Get("/:id", paymentHandler.Get)
	payments.Get("/:paymentId/receipt", receiptHandler.GetByPayment)

	plans := v1.Group("/plans")
	plans.Get("/", planHandler.List)
	plans.Get("/:id", planHandler.Get)
	plans.Post("/", planHandler.Create)
	plans.Put("/:id", planHandler.Update)
	plans.Delete("/:id", planHandler.Deactivate)

	members := v1.Group("/members")
	members.Get("/", memberHandler.List)
	members.Post("/", memberHandler.Create)
	members.Get("/:id", memberHandler.Get)
	members.Get("/:id/membership", memberHandler.GetActiveMembership)
	members.Get("/:id/memberships", memberHandler.ListMemberships)

	return app, nil
}

func customErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code := domain.CodeInvalidRequest
			if fe.Code == fiber.StatusNotFound {
				code = domain.CodeNotFound
			}
			return c.Status(fe.Code).JSON(fiber.Map{
				"success": false,
				"error":   fiber.Map{"code": code, "message": fe.Message},
			})
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			err = domain.Persistence(err)
		}
		log.Error("unhandled request error", zap.String("path", c.Path()), zap.Error(err))
		return handler.WriteError(c, err)
	}
}
