package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"demoapi/docs"
	"demoapi/internal/config"
	"demoapi/internal/database"
	"demoapi/internal/database/migration"
	handlers "demoapi/internal/http/handler"
	"demoapi/internal/http/middleware"
	"demoapi/internal/locale"
	"demoapi/internal/logging"
	"demoapi/internal/otel"
	"demoapi/internal/repository"
	"demoapi/internal/repository/memory"
	"demoapi/internal/repository/postgres"
	"demoapi/internal/service"
	"demoapi/internal/shutdown"
	"demoapi/internal/simulation"
)

// @title OpenTelemetry Demo API
// @version 1.0.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(logging.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Env:         cfg.Telemetry.Environment,
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync(log)

	ctx := context.Background()

	// Telemetry must be running before the app is built and the listener bound
	telemetry := otel.New(cfg.Telemetry, log)
	if err := telemetry.Start(ctx); err != nil {
		log.Fatal("failed to start telemetry", zap.Error(err))
	}

	shut := shutdown.New(cfg.ShutdownTimeout, log)
	shut.Add("telemetry", telemetry.Shutdown)

	users, products, closer, err := openStore(ctx, cfg, telemetry, log)
	if err != nil {
		_ = telemetry.Shutdown(ctx)
		log.Fatal("failed to open store", zap.Error(err), zap.String("driver", cfg.StoreDriver))
	}
	shut.Add("store", shutdown.CloseFunc(closer))

	policy, err := simulation.NewPolicy(cfg.Simulation)
	if err != nil {
		log.Fatal("invalid simulation policy", zap.Error(err))
	}
	catalogSvc := service.NewCatalogService(users, products, policy)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promMiddleware, err := middleware.NewPrometheusMiddleware(registry)
	if err != nil {
		log.Fatal("failed to register metrics", zap.Error(err))
	}

	msgs := locale.MustLookup(cfg.Locale)
	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(msgs, cfg.ExposeErrorDetails, log),
		DisableStartupMessage: true,
	})

	// Cancelled when draining times out in the http shutdown hook, aborting in-flight waits
	requestCtx, abortRequests := context.WithCancel(ctx)
	defer abortRequests()

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestContext(requestCtx))
	app.Use(middleware.Tracing(telemetry.Enabled(otel.HTTPServer), telemetry.TracerProvider(), telemetry.MeterProvider()))
	app.Use(middleware.Logger(log))
	app.Use(promMiddleware.Handler())
	// Innermost, so panics still reach the request log and metrics as 500s
	app.Use(recover.New())

	info := handlers.ServiceInfo{
		Name:         cfg.Telemetry.ServiceName,
		Version:      cfg.Telemetry.ServiceVersion,
		DashboardURL: cfg.DashboardURL,
	}
	handlers.RegisterRoutes(app, handlers.New(catalogSvc, msgs, info, log), registry)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	shut.Add("http", func(ctx context.Context) error {
		err := app.ShutdownWithContext(ctx)
		if err != nil {
			// drain timed out
			abortRequests()
		}
		return err
	})

	addr := ":" + cfg.Port
	log.Info("server listening",
		zap.String("addr", addr),
		zap.String("locale", cfg.Locale),
		zap.String("store", cfg.StoreDriver),
		zap.String("otlp_endpoint", cfg.Telemetry.Endpoint),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var listenFailed atomic.Bool
	go func() {
		if err := app.Listen(addr); err != nil {
			log.Error("server stopped", zap.Error(err))
			listenFailed.Store(true)
			cancel()
		}
	}()

	// Blocks until SIGINT/SIGTERM, then stops the server, closes the store and flushes telemetry
	shut.Wait(runCtx)
	if listenFailed.Load() {
		os.Exit(1)
	}
}

// openStore builds the repositories selected by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.AppConfig, telemetry *otel.Provider, log *zap.Logger) (repository.UserRepository, repository.ProductRepository, io.Closer, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		store := memory.NewStore(locale.SeedUsers(cfg.Locale), locale.SeedProducts(cfg.Locale))
		return store.Users(), store.Products(), store, nil
	case config.StorePostgres:
		db, err := database.NewPostgres(cfg.Database, database.Options{
			Instrument:     telemetry.Enabled(otel.DatabaseSQL),
			TracerProvider: telemetry.TracerProvider(),
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		seed := migration.Seed{Users: locale.SeedUsers(cfg.Locale), Products: locale.SeedProducts(cfg.Locale)}
		if err := migration.EnsureMigrated(ctx, db, seed, log); err != nil {
			return nil, nil, nil, errors.Join(err, db.Close())
		}
		return postgres.NewUserPostgres(db), postgres.NewProductPostgres(db), db, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
