package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/temcen/reelrec/internal/config"
	"github.com/temcen/reelrec/internal/database"
	"github.com/temcen/reelrec/internal/handlers"
	"github.com/temcen/reelrec/internal/middleware"
	"github.com/temcen/reelrec/internal/services"
	"github.com/temcen/reelrec/internal/telemetry"
)

type App struct {
	config   *config.Config
	logger   *logrus.Logger
	db       *database.Database
	services *services.Services
	handlers *handlers.Handlers
	router   *gin.Engine
	tracer   *sdktrace.TracerProvider
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	tracer, err := telemetry.InitTracer(context.Background(), cfg.Server.ServiceName, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	app.tracer = tracer

	// Initialize database connections
	db, err := database.New(cfg, app.logger)
	if err != nil {
		app.shutdownTracer(context.Background())
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	// Initialize services
	services, err := services.New(cfg, app.logger, db)
	if err != nil {
		db.Close()
		app.shutdownTracer(context.Background())
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.services = services

	// Initialize handlers
	app.handlers = handlers.New(app.logger, services)

	// Setup router
	app.setupRouter()

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Logger() *logrus.Logger {
	return a.logger
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if err := a.services.Close(); err != nil {
		a.logger.WithError(err).Warn("Error flushing recommendation events")
	}

	a.shutdownTracer(ctx)

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		return err
	}

	return nil
}

// shutdownTracer flushes pending spans and stops the provider; the global
// provider then hands out no-op tracers.
func (a *App) shutdownTracer(ctx context.Context) {
	if a.tracer == nil {
		return
	}
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.WithError(err).Warn("Error flushing traces")
	}
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	if cfg.Logging.File != "" {
		logger.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.Logging.File,
			MaxSize:    cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAge:     cfg.Logging.MaxAgeDays,
			Compress:   true,
		}))
	}

	return logger
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Tracing(a.config.Server.ServiceName)...)
	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(a.config))
	router.Use(middleware.Compression())

	// Probes and metrics (no auth, no rate limit)
	router.GET("/health", a.handlers.Health.Check)
	router.GET("/ready", a.handlers.Health.Ready)
	router.GET("/metrics", a.handlers.Metrics.Prometheus)

	recommendations := router.Group("/api/recommendations")
	{
		if a.config.Auth.RateLimit.Enabled {
			recommendations.Use(middleware.RateLimit(a.services.RateLimiter, a.config.Auth.RateLimit, a.logger))
		}

		recommendations.GET("/top", a.handlers.Recommendation.GetTop)
		recommendations.GET("/similar/:movie_id", a.handlers.Recommendation.GetSimilar)
		recommendations.GET("/popular", a.handlers.Recommendation.GetPopular)
		recommendations.GET("/user/:user_id", a.handlers.Recommendation.GetUserHistory)
		recommendations.POST("", middleware.AdminAuth(a.services.Auth, a.logger), a.handlers.Recommendation.Create)
	}

	a.router = router
}
