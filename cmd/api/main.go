package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/openpayroll/batchpay/internal/chain"
	"github.com/openpayroll/batchpay/internal/config"
	"github.com/openpayroll/batchpay/internal/handler"
	"github.com/openpayroll/batchpay/internal/infra/postgresql"
	"github.com/openpayroll/batchpay/internal/infra/postgresql/migrations"
	infraredis "github.com/openpayroll/batchpay/internal/infra/redis"
	"github.com/openpayroll/batchpay/internal/migrator"
	"github.com/openpayroll/batchpay/internal/notifier"
	"github.com/openpayroll/batchpay/internal/observability"
	"github.com/openpayroll/batchpay/internal/repository"
	"github.com/openpayroll/batchpay/internal/service"
	"github.com/openpayroll/batchpay/internal/storage"
	"github.com/openpayroll/batchpay/internal/store"
	"github.com/openpayroll/batchpay/internal/transport"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics()
	checks := map[string]handler.Check{}

	var blobs storage.BlobStore
	var userRepo repository.UserRepository
	switch cfg.StorageBackend {
	case config.StorageBackendPostgres:
		db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
		if err != nil {
			logger.Fatal("postgres initialization failed", zap.Error(err))
		}
		if err := migrations.Migrate(db); err != nil {
			logger.Fatal("database migrations failed", zap.Error(err))
		}
		sqlDB, err := db.DB()
		if err != nil {
			logger.Fatal("postgres underlying db init failed", zap.Error(err))
		}
		defer sqlDB.Close()

		blobs = repository.NewGormBlobStore(db)
		userRepo = repository.NewGormUserRepo(db)
		checks["postgres"] = sqlDB.PingContext

	case config.StorageBackendRedis:
		rdb, err := infraredis.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis initialization failed", zap.Error(err))
		}
		defer rdb.Close()

		blobs, err = storage.NewRedisBlobStore(rdb)
		if err != nil {
			logger.Fatal("redis blob store init failed", zap.Error(err))
		}
		userRepo = repository.NewBlobUserRepo(blobs)
		checks["redis"] = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	report, err := migrator.New(blobs, logger).Run(startupCtx)
	if err != nil {
		logger.Fatal("storage migration failed", zap.Error(err))
	}
	if report.Changed() {
		logger.Info("storage migration rewrote persisted addresses",
			zap.Int("rowsDropped", report.RowsDropped),
			zap.Int("rowsRewritten", report.RowsRewritten),
		)
	}

	notices := notifier.Multi{notifier.NewBus()}
	if cfg.RabbitMQURL != "" {
		amqpNotifier, err := notifier.NewAMQPNotifier(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Fatal("amqp notifier init failed", zap.Error(err))
		}
		defer amqpNotifier.Close() //nolint:errcheck
		notices = append(notices, amqpNotifier)
	}

	payments := store.NewPaymentStore(blobs, notices, logger)
	history := store.NewHistoryStore(blobs, logger)
	users := store.NewUserStore(userRepo, blobs, notices, logger)
	for name, load := range map[string]func(context.Context) error{
		"payments": payments.Load,
		"history":  history.Load,
		"users":    users.Load,
	} {
		if err := load(startupCtx); err != nil {
			logger.Fatal("failed to load persisted state", zap.String("store", name), zap.Error(err))
		}
	}

	restyClient := resty.New()
	restyClient.SetTimeout(15 * time.Second)
	gateway, err := chain.NewWalletGatewayWithClient(
		cfg.WalletGatewayURL,
		restyClient,
		time.Duration(cfg.ConfirmPollSecs)*time.Second,
	)
	if err != nil {
		logger.Fatal("wallet gateway init failed", zap.Error(err))
	}

	collaborator := chain.Collaborator(gateway)
	if cfg.EthereumRPCURL != "" {
		watcher, err := chain.NewReceiptWatcher(cfg.EthereumRPCURL, logger)
		if err != nil {
			logger.Fatal("ethereum receipt watcher init failed", zap.Error(err))
		}
		defer watcher.Close()
		collaborator = chain.WithConfirmer(gateway, watcher)
	}

	batches, err := service.NewBatchService(payments, history, collaborator, notices, metrics, logger)
	if err != nil {
		logger.Fatal("batch service init failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:      "batchpay-api",
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(observability.CorrelationMiddleware())
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	handler.RegisterHealthRoutes(app, checks)
	if err := handler.RegisterPaymentRoutes(app, payments, batches, metrics); err != nil {
		logger.Fatal("failed to register payment routes", zap.Error(err))
	}
	if err := handler.RegisterHistoryRoutes(app, history); err != nil {
		logger.Fatal("failed to register history routes", zap.Error(err))
	}
	if err := handler.RegisterUserRoutes(app, users); err != nil {
		logger.Fatal("failed to register user routes", zap.Error(err))
	}
	if err := handler.RegisterDashboardRoutes(app, batches, payments, history, blobs); err != nil {
		logger.Fatal("failed to register dashboard routes", zap.Error(err))
	}

	go func() {
		logger.Info("batchpay api started", zap.Int("port", cfg.APIPort))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
