package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"devchat/internal/domain"
)

const (
	defaultMaxQuestion    = 500
	defaultBackendTimeout = 20 * time.Second
	modelParameter        = "/config/model"
)

type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// LLMClient is the generation backend. It returns the raw text the model
// produced for the requested output format.
type LLMClient interface {
	Generate(ctx context.Context, model string, messages []domain.ChatMessage, format domain.OutputFormat) (string, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// ResponseService renders the persona prompt for a question and validates
// what the backend sends back. It holds no per-request state.
type ResponseService struct {
	params         ParamGetter
	llm            LLMClient
	paramPrefix    string
	maxQuestionLen int
	backendTimeout time.Duration
}

func NewResponseService(p ParamGetter, llm LLMClient, paramPrefix string, maxQuestionLen int, backendTimeout time.Duration) (*ResponseService, error) {
	if p == nil {
		return nil, errors.New("usecase: param getter must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("usecase: parameter prefix must not be empty")
	}
	if maxQuestionLen <= 0 {
		maxQuestionLen = defaultMaxQuestion
	}
	if backendTimeout <= 0 {
		backendTimeout = defaultBackendTimeout
	}
	return &ResponseService{
		params:         p,
		llm:            llm,
		paramPrefix:    paramPrefix,
		maxQuestionLen: maxQuestionLen,
		backendTimeout: backendTimeout,
	}, nil
}

func (s *ResponseService) GenerateResponse(ctx context.Context, in GenerateResponseInput) (GenerateResponseOutput, error) {
	if utf8.RuneCountInString(in.Question) > s.maxQuestionLen {
		return GenerateResponseOutput{}, newError(ErrorInvalidInput, "question_too_long", nil)
	}

	model, err := s.params.GetParameter(ctx, s.paramPrefix+modelParameter)
	if err != nil {
		return GenerateResponseOutput{}, newError(ErrorInternal, "config_load_error", fmt.Errorf("usecase: load model: %w", err))
	}

	prompt, err := renderPrompt(in.Question)
	if err != nil {
		return GenerateResponseOutput{}, newError(ErrorInternal, "prompt_render_error", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.backendTimeout)
	defer cancel()

	raw, err := s.llm.Generate(callCtx, strings.TrimSpace(model), buildPromptMessages(prompt), domain.OutputFormat{
		Name:   OutputSchemaName,
		Schema: OutputSchema,
	})
	if err != nil {
		return GenerateResponseOutput{}, classifyBackendError(callCtx, err)
	}

	return DecodeOutput(raw)
}

func classifyBackendError(ctx context.Context, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return newError(ErrorUpstream, "backend_timeout", err)
	}
	if status, ok := upstreamStatusCode(err); ok && status == http.StatusTooManyRequests {
		return newError(ErrorRateLimited, "backend_rate_limited", err)
	}
	return newError(ErrorUpstream, "backend_error", err)
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
