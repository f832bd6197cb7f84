package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gabarito/internal/config"
	"gabarito/pkg/observability"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	tel, err := observability.Setup(ctx, observability.Conf{
		Endpoint:   cfg.OtelEndpoint,
		AuthHeader: cfg.OtelAuthHeader,
		Level:      cfg.LogLevel,
	})
	if tel == nil {
		log.Fatalf("Failed to set up telemetry: %v", err)
	}
	logger := tel.Logger
	if err != nil {
		logger.Warn("Telemetry export disabled", zap.Error(err))
	}

	srv, err := newServer(ctx, cfg, logger, tel.Tracer)
	if err != nil {
		logger.Fatal("Failed to initialize server", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.AppPort),
			zap.String("store", cfg.StoreBackend), zap.String("audit", cfg.AuditTransport))
		if err := srv.app.Listen(cfg.AppPort); err != nil {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Shutting down server...")
	srv.shutdown(logger)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := tel.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during telemetry shutdown: %v", err)
	}
	logger.Info("Server gracefully stopped")
}
