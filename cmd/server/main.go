package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"devchat/internal/api"
	"devchat/internal/app"
	"devchat/internal/config"
)

func main() {
	cfg, err := config.LoadWithDotenv()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	logger, err := app.NewLogger(cfg.LogLevel)
	if err != nil {
		slog.Error("failed to create logger", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Second)
	h, err := app.NewHandler(initCtx, cfg, logger)
	initCancel()
	if err != nil {
		logger.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	router := api.NewRouter(api.RouterDependencies{
		FlowHandler:    h,
		AllowedOrigin:  cfg.AllowedOrigin,
		RequestTimeout: cfg.BackendTimeout + 5*time.Second,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.BackendTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "err", err)
			os.Exit(1)
		}
	}()

	<-stop
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
		os.Exit(1)
	}
	logger.Info("server shutdown complete")
}
