package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/Norte-Itaipu/ion-data-service/internal/api/http"
	"github.com/Norte-Itaipu/ion-data-service/internal/cache"
	"github.com/Norte-Itaipu/ion-data-service/internal/config"
	"github.com/Norte-Itaipu/ion-data-service/internal/ion"
	"github.com/Norte-Itaipu/ion-data-service/internal/ion/sources"
	"github.com/Norte-Itaipu/ion-data-service/internal/rbmc"
	"github.com/Norte-Itaipu/ion-data-service/internal/scheduler"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound source calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Result cache: Redis when configured, in-memory otherwise. Either way
	// the pipeline treats it as best-effort.
	var resultCache cache.Cache
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to configure redis cache: %v", err)
		}
		defer redisCache.Close()
		resultCache = redisCache
	} else {
		resultCache = cache.NewMemory()
	}

	// Source adapters with resilience (backoff + circuit breaker).
	predicted := sources.NewPredicted(httpClient, cfg.PredictAPI)

	measured := make(map[string]ion.Source, len(cfg.Collections))
	for _, tag := range cfg.Collections {
		measured[tag] = sources.NewMeasured(httpClient, cfg.MeasuredAPI, tag)
	}

	// Core pipeline orchestrating windows, overlap scans, merge and cache.
	service := ion.NewService(predicted, predicted, measured, resultCache, cfg.CacheTTL, cfg.MaxDaysBack)

	// RBMC archive locator for the raw GNSS download links.
	locator := rbmc.NewLocator(httpClient, "")

	// Scheduler that keeps the per-station latest-overlap entries warm.
	sched := scheduler.New(cfg.Stations, cfg.WarmInterval, service)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "ion-data-service",
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

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "ion-data-service",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service, locator)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
