package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-sync/internal/api/http"
	"github.com/i474232898/weather-sync/internal/app"
	"github.com/i474232898/weather-sync/internal/config"
	"github.com/i474232898/weather-sync/internal/scheduler"
	"github.com/i474232898/weather-sync/internal/sites"
	"github.com/i474232898/weather-sync/internal/store"
	"github.com/i474232898/weather-sync/internal/weather"
	"github.com/i474232898/weather-sync/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.ValidateMaster(); err != nil {
		log.Fatalf("%v", err)
	}

	rt, err := app.New(cfg, "master")
	if err != nil {
		log.Fatalf("failed to build runtime: %v", err)
	}
	defer rt.Log.Sync()

	// Shared HTTP client for outbound weather API calls.
	httpClient := &http.Client{
		Timeout: cfg.Master.HTTPTimeout,
	}

	results := store.NewFileStore(rt)
	publisher := store.NewPublisher(rt)
	source := providers.NewGismeteoProvider(rt, httpClient)

	service := weather.NewService(rt, source, results, publisher)
	sched := scheduler.New(rt, service, func() ([]weather.Site, error) {
		return sites.Load(cfg.Master.SitesFile, rt.Log.Named("sites"))
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !cfg.Master.Daemon() {
		// Best-effort batch: per-site failures are logged, not fatal.
		if _, err := sched.RunOnce(ctx); err != nil {
			rt.Log.Fatal("cannot load sites", zap.Error(err))
		}
		return
	}

	if err := sched.Start(); err != nil {
		rt.Log.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	// Publication server slaves pull store objects from.
	server := fiber.New(fiber.Config{
		AppName:               "weather-master",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
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
	server.Use(recover.New())

	httpapi.RegisterRoutes(server, rt, results, publisher)

	go func() {
		rt.Log.Info("publication server listening", zap.String("port", cfg.Master.Port))
		if err := server.Listen(":" + cfg.Master.Port); err != nil {
			rt.Log.Error("fiber server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		rt.Log.Error("error during shutdown", zap.Error(err))
	}
}
