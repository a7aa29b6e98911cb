package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/adapters/http"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/app"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/pkg/config"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/pkg/logging"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("whispers-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logger := logging.Setup(logLevel, os.Getenv("LOG_FORMAT"), cfg.Telemetry.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Process-wide bus, optional cache and NATS bridge, map views
	application := app.New(cfg, logger)
	defer application.Close()

	deps := &http.Dependencies{
		Bus:           application.Bus,
		Views:         application.Views,
		Locator:       application.Locator,
		Bridge:        application.Bridge,
		Cache:         application.Cache,
		DeviceTimeout: cfg.Location.DeviceTimeout,
	}

	// Fiber
	server := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    256 * 1024, // event payloads are small
		AppName:      "Whispers API",
	})
	server.Use(recover.New())
	server.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(server, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := server.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests and open map views up to 10s to finish
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
