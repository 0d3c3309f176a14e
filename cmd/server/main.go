// Package main is the entry point for the pantry tracker server.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vyrodovalexey/pantry-tracker/internal/auth"
	"github.com/vyrodovalexey/pantry-tracker/internal/config"
	"github.com/vyrodovalexey/pantry-tracker/internal/inventory"
	"github.com/vyrodovalexey/pantry-tracker/internal/server"
	"github.com/vyrodovalexey/pantry-tracker/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		basicLogger, _ := zap.NewProduction()
		basicLogger.Fatal("failed to load configuration", zap.Error(err))
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		basicLogger, _ := zap.NewProduction()
		basicLogger.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("configuration loaded",
		zap.Int("server_port", cfg.ServerPort),
		zap.Int("probe_port", cfg.ProbePort),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
		zap.String("auth_mode", cfg.AuthMode),
		zap.String("store_backend", cfg.StoreBackend),
		zap.String("store_collection", cfg.StoreCollection),
	)

	authenticator, err := createAuthenticator(cfg, logger)
	if err != nil {
		logger.Error("failed to create authenticator", zap.Error(err))
		return 1
	}

	openCtx, cancelOpen := context.WithTimeout(context.Background(), cfg.StoreTimeout)
	itemStore, err := store.Open(openCtx, cfg, logger)
	cancelOpen()
	if err != nil {
		logger.Error("failed to open store", zap.Error(err))
		return 1
	}
	defer closeStore(itemStore, logger)

	events := inventory.NewBroadcaster(inventory.DefaultSubscriberBuffer)
	controller := inventory.NewController(itemStore, events, logger)

	refreshCtx, cancelRefresh := context.WithTimeout(context.Background(), cfg.StoreTimeout)
	if err := controller.Refresh(refreshCtx); err != nil {
		// The page shows the failure and the next request retries.
		logger.Warn("initial refresh failed", zap.Error(err))
	}
	cancelRefresh()

	srv := server.New(cfg, logger, server.Components{
		Store:         itemStore,
		Controller:    controller,
		Events:        events,
		Authenticator: authenticator,
	})

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", zap.Error(err))
		controller.Close()
		events.Close()
		return 1
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		// Results of in-flight actions are discarded from here on.
		controller.Close()
		events.Close()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			return 1
		}
	}

	logger.Info("server stopped")
	return 0
}

// initLogger initializes a zap logger with the specified log level.
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return zapConfig.Build()
}

// createAuthenticator creates an authenticator based on the config auth mode.
// A nil authenticator disables authentication.
func createAuthenticator(
	cfg *config.Config,
	logger *zap.Logger,
) (auth.Authenticator, error) {
	authenticator, err := auth.New(cfg.AuthMode, cfg.BasicAuthUsers, cfg.APIKeys)
	if err != nil {
		return nil, err
	}

	if authenticator == nil {
		logger.Info("authentication disabled")
		return nil, nil
	}

	logger.Info("authentication enabled", zap.String("mode", string(authenticator.Method())))
	return authenticator, nil
}

// closeStore releases the store's connection or file handle, if it holds
// one.
func closeStore(s store.Store, logger *zap.Logger) {
	closer, ok := s.(io.Closer)
	if !ok {
		return
	}

	if err := closer.Close(); err != nil {
		logger.Error("failed to close store", zap.Error(err))
		return
	}
	logger.Info("store closed")
}
