// Package app wires the response flow from configuration. Both the Lambda
// entry point and the local HTTP server build their service here.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsbedrock "github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"devchat/handler"
	"devchat/internal/config"
	"devchat/internal/integrations/bedrock"
	"devchat/internal/integrations/openai"
	"devchat/internal/integrations/paramstore"
	"devchat/internal/usecase"
)

// NewLogger returns the JSON slog logger used by the server-side binaries.
func NewLogger(level string) (*slog.Logger, error) {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})), nil
}

// NewHandler loads AWS configuration and builds the flow handler.
func NewHandler(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*handler.Handler, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: load AWS config: %w", err)
	}

	params, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, fmt.Errorf("app: create SSM client: %w", err)
	}
	svc, err := NewService(ctx, cfg, awsCfg, params, logger)
	if err != nil {
		return nil, err
	}
	return handler.NewHandler(svc, handler.WithAllowedOrigin(cfg.AllowedOrigin), handler.WithLogger(logger))
}

// NewService builds the response flow over params with the backend chosen by
// cfg.Provider. Parameters are warmed once so a misconfigured deployment is
// reported at startup; a warm failure is logged and retried per request.
func NewService(ctx context.Context, cfg *config.Config, awsCfg aws.Config, params paramstore.Getter, logger *slog.Logger) (*usecase.ResponseService, error) {
	cache, err := paramstore.NewCache(params)
	if err != nil {
		return nil, fmt.Errorf("app: create parameter cache: %w", err)
	}

	prefix := strings.TrimRight(strings.TrimSpace(cfg.ParamPrefix), "/")
	names := []string{prefix + "/config/model"}

	var llm usecase.LLMClient
	switch cfg.Provider {
	case config.ProviderBedrock:
		llm, err = bedrock.NewClient(awsbedrock.NewFromConfig(awsCfg), cfg.BedrockMaxTokens)
	default:
		llm, err = openai.NewClient(cache, prefix, openai.WithBaseURL(cfg.OpenAIBaseURL))
		names = append(names, prefix+"/open-ai-token")
	}
	if err != nil {
		return nil, fmt.Errorf("app: create %s client: %w", cfg.Provider, err)
	}

	if err := cache.Warm(ctx, names...); err != nil {
		logger.Warn("parameter warm-up failed", "err", err, "names", names)
	}

	svc, err := usecase.NewResponseService(cache, llm, prefix, cfg.MaxQuestionLen, cfg.BackendTimeout)
	if err != nil {
		return nil, fmt.Errorf("app: create response service: %w", err)
	}
	logger.Info("response flow ready", "provider", cfg.Provider, "param_prefix", prefix)
	return svc, nil
}
