package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"devchat/internal/app"
	"devchat/internal/config"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
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

	// ---- Handler ----
	h, err := app.NewHandler(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
