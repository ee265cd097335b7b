package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	policyapp "github.com/tempcover/backend/internal/application/policy"
	vehicleapp "github.com/tempcover/backend/internal/application/vehicle"
	"github.com/tempcover/backend/internal/infrastructure/billing"
	"github.com/tempcover/backend/internal/infrastructure/cache"
	"github.com/tempcover/backend/internal/infrastructure/config"
	"github.com/tempcover/backend/internal/infrastructure/email"
	"github.com/tempcover/backend/internal/infrastructure/logger"
	"github.com/tempcover/backend/internal/infrastructure/persistence"
	"github.com/tempcover/backend/internal/infrastructure/printing"
	"github.com/tempcover/backend/internal/infrastructure/rendering"
	"github.com/tempcover/backend/internal/infrastructure/storage"
	"github.com/tempcover/backend/internal/infrastructure/telemetry"
	"github.com/tempcover/backend/internal/infrastructure/vehicle"
	"github.com/tempcover/backend/internal/interfaces/http/handler"
	"github.com/tempcover/backend/internal/interfaces/http/middleware"
	"github.com/tempcover/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/tempcover/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const serviceVersion = "1.0.0"

//	@title			Tempcover Backend API
//	@version		1.0
//	@description	Temporary car insurance: vehicle lookup, Stripe checkout webhooks and policy document retrieval

//	@host		localhost:8080
//	@BasePath	/

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	baseLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	// Telemetry degrades to no-op providers when disabled
	providers, err := telemetry.Setup(context.Background(), cfg.Telemetry, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log := providers.BridgeLogger(baseLog, zapcore.InfoLevel)
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting tempcover backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Bool("telemetry", providers.Enabled()),
	)

	profiler, err := telemetry.NewProfiler(cfg.Profiling, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if cfg.Profiling.SpanProfiles {
		providers.EnableSpanProfiles(profiler)
	}

	meter := providers.Meter("github.com/tempcover/backend")
	metrics, err := telemetry.NewPolicyMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create policy metrics", zap.Error(err))
	}

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))

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

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.InstrumentDB(db.DB, 0, log); err != nil {
			log.Warn("Failed to instrument database", zap.Error(err))
		}
	}
	if err := telemetry.RegisterDBPoolMetrics(db.DB, meter); err != nil {
		log.Warn("Failed to register database pool metrics", zap.Error(err))
	}

	// Redis-backed stores, falling back to memory
	stores, err := cache.NewFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithVehicleTTL(cfg.Vehicle.CacheTTL),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	).Create(context.Background())
	if err != nil {
		log.Fatal("Failed to initialize cache", zap.Error(err))
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error("Error closing cache", zap.Error(err))
		}
	}()

	documentStore, memoryStore := newDocumentStore(cfg, log)

	// Repositories
	policyRepo := persistence.NewGormPolicyRepository(db.DB)
	documentRepo := persistence.NewGormPolicyDocumentRepository(db.DB)
	eventRepo := persistence.NewGormPolicyEventRepository(db.DB)

	// The printer backs the internal endpoints; the render client calls
	// those endpoints during fulfillment.
	printer := printing.NewChromedpRenderer(printing.ChromedpConfig{
		Timeout:   cfg.Internal.RenderTimeout,
		RemoteURL: cfg.Internal.ChromeURL,
		NoSandbox: cfg.Internal.NoSandbox,
		Logger:    log,
	})
	defer func() {
		if err := printer.Close(); err != nil {
			log.Error("Error closing PDF renderer", zap.Error(err))
		}
	}()
	renderService := policyapp.NewDocumentRenderService(printing.NewTemplateSet(), printer, log)
	renderClient := rendering.NewClient(cfg.Internal, rendering.WithLogger(log))

	mailer := email.NewSendGridSender(cfg.Email,
		email.WithLogger(log),
		email.WithSiteURL(cfg.App.SiteURL),
	)

	// Application services
	finalizeService := policyapp.NewFinalizeService(policyapp.FinalizeServiceConfig{
		Policies: policyRepo,
		Events:   eventRepo,
		Metrics:  metrics,
		Logger:   log,
	})
	fulfillmentService := policyapp.NewFulfillmentService(policyapp.FulfillmentServiceConfig{
		Policies:        policyRepo,
		Documents:       documentRepo,
		Events:          eventRepo,
		Renderer:        renderClient,
		Store:           documentStore,
		Mailer:          mailer,
		Locks:           stores.Idempotency,
		EmailLinkExpiry: cfg.Storage.EmailLinkExpiry,
		Metrics:         metrics,
		Logger:          log,
	})
	retrievalService := policyapp.NewRetrievalService(policyapp.RetrievalServiceConfig{
		Policies:        policyRepo,
		Documents:       documentRepo,
		Events:          eventRepo,
		Store:           documentStore,
		Mailer:          mailer,
		Fulfiller:       fulfillmentService,
		LinkExpiry:      cfg.Storage.PresignExpiration,
		EmailLinkExpiry: cfg.Storage.EmailLinkExpiry,
		Metrics:         metrics,
		Logger:          log,
	})
	webhookService := policyapp.NewWebhookService(policyapp.WebhookServiceConfig{
		Parser:    billing.NewStripeCheckoutParser(cfg.Stripe),
		Finalizer: finalizeService,
		Fulfiller: fulfillmentService,
		Seen:      stores.Idempotency,
		Metrics:   metrics,
		Logger:    log,
	})
	lookupService := vehicleapp.NewLookupService(vehicleapp.LookupServiceConfig{
		Registry: vehicle.NewDVLAClient(cfg.Vehicle, vehicle.WithLogger(log)),
		Cache:    stores.Vehicles,
		Metrics:  metrics,
		Logger:   log,
	})

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	r := router.NewRouter(cfg.HTTP,
		router.WithAPIVersion("v1"),
		router.WithLogger(log),
		router.WithMetrics(meter),
		tracingOption(cfg, providers),
	)
	defer r.Close()

	engine := r.Setup(router.Handlers{
		Health: handler.NewHealthHandler(serviceVersion, map[string]handler.HealthCheck{
			"database": db.Ping,
			"cache":    stores.Ping,
		}),
		Webhook:      handler.NewWebhookHandler(webhookService),
		InternalPDF:  handler.NewInternalPDFHandler(renderService, cfg.Internal.APIKey),
		Policy:       handler.NewPolicyHandler(retrievalService),
		Vehicle:      handler.NewVehicleHandler(lookupService),
		DevDocuments: devDocumentHandler(memoryStore),
		Docs:         docsHandler(cfg),
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

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	retrievalService.Wait()
	if err := providers.Shutdown(ctx); err != nil {
		log.Error("Telemetry shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newDocumentStore connects to S3 when it is configured. Without settings,
// development keeps documents in memory while production boots with a store
// that reports the missing variable on every request. The memory store is
// also returned so its links can be served.
func newDocumentStore(cfg *config.Config, log *zap.Logger) (policyapp.DocumentStore, *storage.MemoryDocumentStore) {
	s3Store, err := storage.NewS3DocumentStore(&cfg.Storage,
		storage.WithLogger(log),
		storage.WithPresignExpiration(cfg.Storage.PresignExpiration),
	)
	if err == nil {
		log.Info("Using S3 document storage", zap.String("bucket", s3Store.Bucket()))
		if !cfg.IsProduction() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s3Store.EnsureBucket(ctx); err != nil {
				log.Warn("Failed to ensure document bucket", zap.Error(err))
			}
		}
		return s3Store, nil
	}
	if !config.IsMissingEnv(err) {
		log.Fatal("Failed to initialize document storage", zap.Error(err))
	}
	if cfg.IsProduction() {
		log.Error("Document storage is not configured", zap.Error(err))
		return storage.NewUnconfiguredStore(err), nil
	}
	log.Warn("Document storage is not configured, keeping documents in memory", zap.Error(err))
	memory := storage.NewMemoryDocumentStore(strings.TrimRight(cfg.Internal.BaseURL, "/") + handler.DevDocumentsPath)
	return memory, memory
}

func devDocumentHandler(memory *storage.MemoryDocumentStore) *handler.DevDocumentHandler {
	if memory == nil {
		return nil
	}
	return handler.NewDevDocumentHandler(memory)
}

// docsHandler serves Swagger UI outside production, or when docs.enabled is set
func docsHandler(cfg *config.Config) gin.HandlerFunc {
	if !cfg.Docs.Enabled && cfg.IsProduction() {
		return nil
	}
	return ginSwagger.WrapHandler(swaggerFiles.Handler)
}

func tracingOption(cfg *config.Config, providers *telemetry.Providers) router.RouterOption {
	if !providers.Enabled() {
		return nil
	}
	return router.WithTracing(cfg.Telemetry.ServiceName)
}
