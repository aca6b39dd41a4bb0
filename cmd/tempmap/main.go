package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"

	httpapi "github.com/tempmap/tempmap/internal/api/http"
	"github.com/tempmap/tempmap/internal/config"
	"github.com/tempmap/tempmap/internal/grid"
	"github.com/tempmap/tempmap/internal/heatmap"
	"github.com/tempmap/tempmap/internal/scheduler"
	"github.com/tempmap/tempmap/internal/store"
	"github.com/tempmap/tempmap/internal/weather"
	"github.com/tempmap/tempmap/internal/weather/providers"
	"github.com/tempmap/tempmap/internal/web"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	// Shared HTTP client for outbound forecast calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	palette := heatmap.Default()
	if cfg.PaletteFile != "" {
		palette, err = heatmap.LoadFile(cfg.PaletteFile)
		if err != nil {
			log.WithError(err).Fatal("failed to load palette")
		}
	}

	// The dataset is the single owned home of the fetched records; the
	// loader writes it, the handlers read it.
	dataset := store.New()

	source := providers.NewOpenMeteoProvider(httpClient, providers.OpenMeteoOptions{
		BaseURL:    cfg.OpenMeteoBaseURL,
		APIKey:     cfg.OpenMeteoAPIKey,
		Model:      cfg.OpenMeteoModel,
		BatchSize:  cfg.BatchSize,
		ChunkDelay: cfg.ChunkDelay,
		Backoff: providers.BackoffConfig{
			MaxRetries:      cfg.MaxRetries,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
	})

	points := grid.Generate()
	log.WithField("points", len(points)).Info("generated sampling grid")

	loader := weather.NewLoader(source, dataset, points)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initial load runs in the background so the server comes up
	// immediately; the page polls /api/v1/status for progress.
	go func() {
		if err := loader.Run(ctx); err != nil {
			log.WithError(err).Error("initial dataset load failed")
		}
	}()

	// Periodic refresh keeps a long-running instance current. The first
	// refresh waits a full interval; the goroutine above owns the initial
	// load.
	sched := scheduler.New(loader, cfg.FetchInterval)
	if err := sched.Start(ctx); err != nil {
		log.WithError(err).Fatal("failed to start scheduler")
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "tempmap",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "tempmap",
		})
	})

	httpapi.RegisterRoutes(app, dataset, heatmap.NewRenderer(palette), palette)
	web.Register(app)

	go func() {
		log.WithField("port", cfg.Port).Info("http server listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.WithError(err).Error("fiber server stopped")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.WithError(err).Error("error during shutdown")
	}
}
