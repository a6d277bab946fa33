package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"shopx/internal/app"
	"shopx/internal/config"
	"shopx/internal/httpserver"
	"shopx/internal/logger"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}).Named("api")
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("init app", zap.Error(err))
	}
	defer a.Close()

	store, err := a.SessionStore(ctx)
	if err != nil {
		log.Fatal("init session store", zap.Error(err))
	}

	srv, err := httpserver.New(cfg.HTTPAddr, log, a.Pool, a.HTTPDeps(store))
	if err != nil {
		log.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	} else {
		log.Info("server stopped")
	}
}
