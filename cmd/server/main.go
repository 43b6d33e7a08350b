package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	catalogapp "github.com/stockledger/backend/internal/application/catalog"
	inventoryapp "github.com/stockledger/backend/internal/application/inventory"
	reportapp "github.com/stockledger/backend/internal/application/report"
	"github.com/stockledger/backend/internal/infrastructure/config"
	"github.com/stockledger/backend/internal/infrastructure/event"
	"github.com/stockledger/backend/internal/infrastructure/logger"
	"github.com/stockledger/backend/internal/infrastructure/migration"
	"github.com/stockledger/backend/internal/infrastructure/persistence"
	"github.com/stockledger/backend/internal/infrastructure/scheduler"
	"github.com/stockledger/backend/internal/infrastructure/telemetry"
	"github.com/stockledger/backend/internal/interfaces/http/handler"
	"github.com/stockledger/backend/internal/interfaces/http/middleware"
	"github.com/stockledger/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

//	@title			Stock Ledger API
//	@version		1.0
//	@description	Append-only inventory ledger: products, receipts, shipments and stock reports
//	@BasePath		/api/v1

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting stock ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
		zap.String("port", cfg.App.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	ctx := context.Background()

	// Telemetry is a no-op unless enabled
	telCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
	}
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telCfg, cfg.Telemetry.LogsEnabled, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = loggerProvider.Bridge(log, cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level))

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", db.Driver()))

	if cfg.Database.AutoMigrate {
		if err := migrateSchema(ctx, &cfg.Database, db, log); err != nil {
			log.Fatal("Failed to migrate database schema", zap.Error(err))
		}
	}

	dbSystem := "postgresql"
	if cfg.Database.IsSQLite() {
		dbSystem = "sqlite"
	}
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:  cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBSystem: dbSystem,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Post-commit notifications
	eventBus := event.NewInMemoryEventBus(log)
	if cfg.Redis.Enabled {
		redisClient, err := event.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Error("Redis unavailable, stock notifications disabled", zap.Error(err))
		} else {
			defer func() {
				_ = redisClient.Close()
			}()
			notifier := event.NewRedisStockNotifier(redisClient, cfg.Redis.ChannelPrefix, log)
			eventBus.Subscribe(notifier, notifier.EventTypes()...)
			log.Info("Redis stock notifications enabled",
				zap.String("addr", cfg.Redis.Addr()),
				zap.String("channel", notifier.AllChannel()),
			)
		}
	}
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	retry := persistence.RetryPolicy{
		MaxAttempts:     cfg.Ledger.RetryMaxAttempts,
		InitialInterval: cfg.Ledger.RetryInitialBackoff,
		MaxInterval:     time.Second,
	}
	scope := persistence.NewGormTransactionScope(db.DB, retry, log)
	productRepo := persistence.NewGormProductRepository(db.DB)
	ledgerStore := persistence.NewGormLedgerStore(db.DB)
	stockReportRepo := persistence.NewGormStockReportRepository(db.DB)

	productService := catalogapp.NewProductService(scope, productRepo, ledgerStore, log)
	productService.SetEventPublisher(eventBus)

	stockEngine := inventoryapp.NewStockEngine(scope, ledgerStore, log)
	stockEngine.SetEventPublisher(eventBus)

	reportService := reportapp.NewReportService(productRepo, ledgerStore, stockReportRepo, log)
	reportService.SetPageSizes(cfg.Ledger.HistoryPageSize, cfg.Ledger.HistoryMaxPageSize)

	ledgerMetrics, err := telemetry.NewLedgerMetrics(meterProvider.Meter(cfg.Telemetry.ServiceName), reportService, log)
	if err != nil {
		log.Fatal("Failed to register ledger metrics", zap.Error(err))
	}
	stockEngine.SetMetrics(ledgerMetrics)

	var auditScheduler *scheduler.BalanceAuditScheduler
	if cfg.Ledger.AuditEnabled {
		auditCfg := scheduler.DefaultAuditConfig()
		auditCfg.Interval = cfg.Ledger.AuditInterval
		auditCfg.Workers = cfg.Ledger.AuditWorkers
		auditScheduler, err = scheduler.NewBalanceAuditScheduler(auditCfg, reportService, log)
		if err != nil {
			log.Fatal("Failed to create balance audit scheduler", zap.Error(err))
		}
		if err := auditScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start balance audit scheduler", zap.Error(err))
		}
	}

	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to register request validators", zap.Error(err))
	}
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	engine := router.NewEngine(router.EngineConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: tracerProvider.IsEnabled(),
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		CORS:           cors,
		Logger:         log,
	}, router.Handlers{
		Product: handler.NewProductHandler(productService),
		Stock:   handler.NewStockHandler(stockEngine),
		Report:  handler.NewReportHandler(reportService),
		System:  handler.NewSystemHandler(cfg.App.Name, version, db),
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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Drain in-flight requests before the bus stops accepting their events
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if auditScheduler != nil {
		if err := auditScheduler.Stop(shutdownCtx); err != nil {
			log.Warn("Failed to stop balance audit scheduler", zap.Error(err))
		}
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop event bus", zap.Error(err))
	}
	if err := ledgerMetrics.Close(); err != nil {
		log.Warn("Failed to unregister ledger metrics", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to shutdown meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to shutdown tracer provider", zap.Error(err))
	}
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to shutdown logger provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// migrateSchema applies the versioned SQL migrations on PostgreSQL and
// falls back to gorm's AutoMigrate for SQLite.
func migrateSchema(ctx context.Context, cfg *config.DatabaseConfig, db *persistence.Database, log *zap.Logger) error {
	if cfg.IsSQLite() {
		log.Info("Applying sqlite schema")
		return db.AutoMigrate(ctx)
	}

	// The migrator closes its connection when done, so it gets its own handle.
	sqlDB, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return err
	}
	log.Info("Applying migrations", zap.String("path", cfg.MigrationsPath))
	return migration.Apply(sqlDB, cfg.MigrationsPath, log)
}
