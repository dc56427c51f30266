package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"pdfgate/docs"
	"pdfgate/internal/config"
	handlers "pdfgate/internal/http/handler"
	"pdfgate/internal/http/middleware"
	"pdfgate/internal/logging"
	"pdfgate/internal/otel"
	"pdfgate/internal/service"
	"pdfgate/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// @title PDF Gateway API
// @version 1.0
// @description Upload, stream, list, sign and delete PDF documents held in S3-compatible storage.
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	loc := logging.LoadLocation(cfg.Server.Timezone)
	log := logging.New(os.Stdout, cfg.Server.LogLevel, loc)

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize tracing")
	}

	objStore, err := storage.New(cfg.Storage)
	if err != nil {
		log.WithError(err).WithField("driver", cfg.Storage.Driver).Fatal("failed to initialize object storage")
	}

	docSvc := service.NewDocumentService(objStore, service.Options{
		MaxUploadBytes: cfg.Upload.MaxBytes,
		KeyPrefix:      cfg.Upload.KeyPrefix,
		SignedURLTTL:   time.Duration(cfg.Upload.SignedURLTTL) * time.Second,
		ListMaxItems:   cfg.Upload.ListMaxItems,
		Logger:         log,
	})

	promMiddleware, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		log.WithError(err).Fatal("failed to register metrics")
	}

	app := fiber.New(handlers.FiberConfig(cfg.Server.ReadBufferBytes))

	app.Use(recover.New())
	// RequestID adds/propagates X-Request-ID; Logger reads it back
	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware())
	app.Use(middleware.Logger(log))
	app.Use(promMiddleware.Handler())
	app.Use(cors.New(corsConfig(cfg.Server.CORSAllowedOrigins)))

	app.Get("/metrics", middleware.MetricsHandler(prometheus.DefaultGatherer))

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

	handlers.RegisterProbes(app)
	handlers.RegisterRoutes(app.Group("/api"), docSvc, log)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.WithError(err).Error("server shutdown failed")
		}
	}()

	log.WithFields(logrus.Fields{
		"port":    cfg.Server.Port,
		"driver":  cfg.Storage.Driver,
		"bucket":  cfg.Storage.Bucket,
		"max_mib": cfg.Upload.MaxBytes >> 20,
	}).Info("server starting")

	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.WithError(err).Fatal("failed to start server")
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		log.WithError(err).Warn("tracing shutdown failed")
	}
}

func corsConfig(origins []string) cors.Config {
	joined := strings.Join(origins, ",")
	if joined == "" {
		joined = "*"
	}
	return cors.Config{
		AllowOrigins: joined,
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Request-ID",
		// Fiber rejects credentials combined with a wildcard origin.
		AllowCredentials: joined != "*",
	}
}
