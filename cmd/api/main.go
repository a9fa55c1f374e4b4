package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vaultapi/docs"
	"vaultapi/internal/config"
	handlers "vaultapi/internal/http/handler"
	"vaultapi/internal/http/middleware"
	"vaultapi/internal/keys"
	"vaultapi/internal/listing"
	"vaultapi/internal/logging"
	"vaultapi/internal/otel"
	"vaultapi/internal/service"
	"vaultapi/internal/storage"
	"vaultapi/internal/transfer"
)

// @title       Vault API
// @version     1.0
// @BasePath    /
// @securityDefinitions.apikey BearerAuth
// @in          header
// @name        Authorization
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	loc := cfg.Location()

	logger := logging.New(os.Stdout, cfg.LogLevel, loc)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		fatal(logger, "failed to initialize tracing", err)
	}

	// Object storage client (MinIO, S3 or in-memory, per STORAGE_BACKEND)
	store, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		fatal(logger, "failed to initialize object storage", err)
	}

	codec := keys.New(cfg.Storage.Prefix)
	lister := listing.New(store, codec, cfg.Storage.ListMaxKeys)
	issuer := transfer.New(store, codec, cfg.Storage.PresignExpiry)
	clock := service.RealClock{}

	svc := handlers.Services{
		Files:       service.NewFileService(store, codec, lister, issuer),
		Notes:       service.NewNoteService(store, lister, codec, clock, cfg.NotesTitleWorkers),
		Contacts:    service.NewContactService(store, codec, clock),
		Projections: service.NewProjectionService(store, lister, codec, clock, nil, cfg.NotesTitleWorkers),
		Onboarding:  service.NewOnboardingService(store, codec, clock),
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		fatal(logger, "failed to register metrics", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		DisableStartupMessage: true,
	})

	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(c *fiber.Ctx) bool {
		return c.Path() == "/metrics" || c.Path() == "/healthz"
	})))
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.LoggerWithWriter(os.Stdout, loc))
	app.Use(promMiddleware.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, store, svc, middleware.Tenant(cfg.Auth))

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

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("server shutdown failed", logging.Err(err))
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("server starting",
		slog.String("addr", addr),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("storage_prefix", codec.Prefix()),
		slog.Duration("presign_expiry", issuer.Expiry()),
	)
	if err := app.Listen(addr); err != nil {
		fatal(logger, "failed to start server", err)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		logger.Error("tracer shutdown failed", logging.Err(err))
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, logging.Err(err))
	os.Exit(1)
}
