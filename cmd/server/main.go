package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	identityapp "github.com/khata/backend/internal/application/identity"
	ledgerapp "github.com/khata/backend/internal/application/ledger"
	statementapp "github.com/khata/backend/internal/application/statement"
	"github.com/khata/backend/internal/domain/ledger"
	"github.com/khata/backend/internal/infrastructure/auth"
	"github.com/khata/backend/internal/infrastructure/cache"
	"github.com/khata/backend/internal/infrastructure/config"
	"github.com/khata/backend/internal/infrastructure/logger"
	"github.com/khata/backend/internal/infrastructure/persistence"
	stmtrender "github.com/khata/backend/internal/infrastructure/statement"
	"github.com/khata/backend/internal/infrastructure/storage"
	"github.com/khata/backend/internal/infrastructure/telemetry"
	"github.com/khata/backend/internal/interfaces/http/handler"
	"github.com/khata/backend/internal/interfaces/http/middleware"
	"github.com/khata/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
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
		_ = logger.Sync(log)
	}()

	// Bridge zap entries to the OTel log pipeline when telemetry is on
	logsProvider, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logs provider", zap.Error(err))
	}
	defer func() {
		if err := logsProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down logs provider", zap.Error(err))
		}
	}()
	if logsProvider.IsEnabled() {
		otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			LoggerProvider: logsProvider,
			Level:          logger.ParseLevel(cfg.Log.Level),
		})
		log = telemetry.NewBridgedLogger(log.Core(), otelCore,
			zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	}

	log.Info("Starting Khata Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Snapshot store for the ledger. SQLite deployments auto-migrate;
	// Postgres schemas are managed by cmd/migrate.
	snapshotStore := persistence.NewGormSnapshotStore(db.DB)
	if cfg.Database.Driver == "sqlite" {
		if err := snapshotStore.Migrate(); err != nil {
			log.Fatal("Failed to migrate snapshot schema", zap.Error(err))
		}
	}

	// Load the last persisted snapshot and rebuild the in-memory ledger.
	// The store is authoritative at runtime; the snapshot is recovery data.
	snap, err := snapshotStore.Load(context.Background())
	if err != nil {
		log.Fatal("Failed to load ledger snapshot", zap.Error(err))
	}
	ledgerStore := ledger.NewStore(ledger.WithSaver(snapshotStore.Save))
	ledgerStore.Restore(snap)
	log.Info("Ledger restored from snapshot",
		zap.Int("merchants", len(ledgerStore.TenantIDs())),
	)

	// Identity services
	merchantRepo := persistence.NewGormMerchantRepository(db.DB)
	jwtService := auth.NewJWTService(cfg.JWT)

	var blacklist auth.TokenBlacklist
	if cfg.Redis.Enabled {
		redisBlacklist, err := auth.NewRedisTokenBlacklist(auth.RedisTokenBlacklistConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis token blacklist", zap.Error(err))
		}
		blacklist = redisBlacklist
		log.Info("Using Redis token blacklist",
			zap.String("host", cfg.Redis.Host),
			zap.Int("port", cfg.Redis.Port),
		)
	} else {
		blacklist = auth.NewInMemoryTokenBlacklist()
		log.Info("Using in-memory token blacklist")
	}

	authService := identityapp.NewAuthService(
		merchantRepo, jwtService, blacklist, identityapp.DefaultAuthServiceConfig(), log,
	)

	// Ledger services
	customerService := ledgerapp.NewCustomerService(ledgerStore, log)
	ledgerService := ledgerapp.NewLedgerService(ledgerStore, log)

	// Statement rendering
	templateEngine, err := stmtrender.NewTemplateEngine()
	if err != nil {
		log.Fatal("Failed to initialize statement templates", zap.Error(err))
	}

	var statementOpts []statementapp.StatementServiceOption
	if cfg.Statement.Enabled {
		pdfRenderer, err := stmtrender.NewChromedpRenderer(&stmtrender.ChromedpConfig{
			DefaultTimeout: cfg.Statement.RenderTimeout,
			Headless:       true,
			DisableGPU:     true,
			NoSandbox:      true,
			Logger:         log,
		})
		if err != nil {
			log.Fatal("Failed to initialize PDF renderer", zap.Error(err))
		}
		defer func() {
			if err := pdfRenderer.Close(); err != nil {
				log.Error("Error closing PDF renderer", zap.Error(err))
			}
		}()
		statementOpts = append(statementOpts, statementapp.WithPDFRenderer(pdfRenderer))
		log.Info("PDF statement rendering enabled",
			zap.Duration("render_timeout", cfg.Statement.RenderTimeout),
		)

		if cfg.Statement.ArchiveToS3 {
			objectStore, err := storage.NewObjectStorage(&cfg.Storage, log)
			if err != nil {
				log.Fatal("Failed to initialize statement archive storage", zap.Error(err))
			}
			if s3Store, ok := objectStore.(*storage.S3ObjectStorage); ok {
				bucketCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				if err := s3Store.EnsureBucket(bucketCtx); err != nil {
					log.Warn("Statement archive bucket check failed", zap.Error(err))
				}
				cancel()
			}
			statementOpts = append(statementOpts, statementapp.WithArchive(objectStore))
			log.Info("Statement archiving enabled",
				zap.String("provider", cfg.Storage.Provider),
				zap.String("bucket", cfg.Storage.Bucket),
			)
		}
	}
	statementService := statementapp.NewStatementService(
		ledgerStore, merchantRepo, templateEngine, cfg.Statement, log, statementOpts...,
	)

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	if cfg.Telemetry.Enabled {
		ledgerMetrics, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
			Meter:    meterProvider.Meter("khata.ledger"),
			Logger:   log,
			Provider: ledgerStore,
		})
		if err != nil {
			log.Error("Failed to initialize ledger metrics", zap.Error(err))
		} else {
			ledgerService.SetBusinessMetrics(ledgerMetrics)
			ledgerMetrics.StartPeriodicCollection(context.Background(), 5*time.Minute)
			defer ledgerMetrics.Stop()
		}

		dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, telemetry.DefaultDBMetricsConfig(), log)
		if err != nil {
			log.Error("Failed to register database metrics", zap.Error(err))
		} else {
			dbMetrics.StartPoolStatsCollection(context.Background())
			defer dbMetrics.Stop()
		}

		if cfg.Telemetry.DBTraceEnabled {
			dbTraceCfg := telemetry.DefaultDBTracingConfig()
			dbTraceCfg.Enabled = true
			tracingPlugin := telemetry.NewDBTracingPlugin(dbTraceCfg, log)
			if err := tracingPlugin.RegisterOtelGorm(db.DB); err != nil {
				log.Error("Failed to register database tracing", zap.Error(err))
			}
		}
	}

	// Continuous profiling
	if cfg.Profiler.Enabled {
		profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
			Enabled:           cfg.Profiler.Enabled,
			ServerAddress:     cfg.Profiler.ServerAddress,
			ApplicationName:   cfg.Profiler.AppName,
			ProfileCPU:        true,
			ProfileInuseSpace: true,
			ProfileGoroutines: true,
		}, log)
		if err != nil {
			log.Error("Failed to start profiler", zap.Error(err))
		} else {
			defer func() {
				if err := profiler.Stop(); err != nil {
					log.Error("Error stopping profiler", zap.Error(err))
				}
			}()
		}
	}

	// Idempotency store (Redis when available, in-memory otherwise)
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}

	// Initialize HTTP handlers
	authHandler := handler.NewAuthHandler(authService)
	customerHandler := handler.NewCustomerHandler(customerService)
	ledgerHandler := handler.NewLedgerHandler(ledgerService)
	statementHandler := handler.NewStatementHandler(statementService)
	systemHandler := handler.NewSystemHandler(db.DB, ledgerStore)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing/Metrics - Observe requests
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	// 8. RateLimit - Throttle per-client request rates
	// 9. Idempotency - Deduplicate retried mutations
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.TraceEnrichment())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		ServiceName:   cfg.Telemetry.ServiceName,
		Enabled:       cfg.Telemetry.Enabled,
	}))
	if cfg.Profiler.Enabled {
		engine.Use(middleware.Profiling())
	}
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-Statement-Pages", "X-Statement-Archive-Url", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow))
	}

	// Idempotency keys for retried bill/payment submissions
	engine.Use(middleware.Idempotency(idempotencyStore))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", systemHandler.Health)

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: blacklist,
		SkipPaths: []string{
			"/api/v1/auth/register",
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
			"/api/v1/system/ping",
			"/api/v1/system/info",
			"/api/v1/system/health",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	r.Register(router.AuthRoutes(authHandler)).
		Register(router.LedgerRoutes(customerHandler, ledgerHandler, statementHandler)).
		Register(router.ReceivablesRoutes(ledgerHandler)).
		Register(router.SystemRoutes(systemHandler))

	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
