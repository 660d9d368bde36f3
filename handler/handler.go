package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"devchat/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"
	maxBodyBytes      = 16 << 10
)

// UseCase is the response flow served by the handler.
type UseCase interface {
	GenerateResponse(ctx context.Context, in usecase.GenerateResponseInput) (usecase.GenerateResponseOutput, error)
}

type generateResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Handler exposes the response flow as an API Gateway proxy handler and as
// a plain http.Handler.
type Handler struct {
	uc            UseCase
	allowedOrigin string
	logger        *slog.Logger
}

type Option func(*Handler)

func WithAllowedOrigin(origin string) Option {
	return func(h *Handler) { h.allowedOrigin = strings.TrimSpace(origin) }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

func NewHandler(uc UseCase, opts ...Option) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	h := &Handler{uc: uc, allowedOrigin: "*", logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Handle serves an API Gateway proxy event. Failures are always reported in
// the response body; the returned error is reserved for the runtime.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := correlationIDFrom(event.Headers)
	headers := map[string]string{
		"Content-Type":                 "application/json",
		correlationHeader:              correlationID,
		"Access-Control-Allow-Origin":  h.allowedOrigin,
		"Access-Control-Allow-Headers": "Content-Type, " + correlationHeader,
		"Access-Control-Allow-Methods": "POST, OPTIONS",
	}

	if event.HTTPMethod == http.MethodOptions {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent, Headers: headers}, nil
	}

	var (
		status  int
		payload any
	)
	if raw, err := eventBody(event); err != nil {
		status, payload = h.failure(correlationID, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "malformed_input", Err: err})
	} else {
		status, payload = h.serve(ctx, raw, correlationID)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       string(body),
	}, nil
}

// ServeHTTP serves the same contract over net/http. CORS is left to the
// router.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	correlationID := strings.TrimSpace(r.Header.Get(correlationHeader))
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	w.Header().Set(correlationHeader, correlationID)

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	var (
		status  int
		payload any
	)
	switch {
	case err != nil:
		status, payload = h.failure(correlationID, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "unreadable_body", Err: err})
	case len(raw) > maxBodyBytes:
		status, payload = h.failure(correlationID, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "body_too_large"})
	default:
		status, payload = h.serve(r.Context(), raw, correlationID)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encode response", "err", err, "correlation_id", correlationID)
	}
}

func (h *Handler) serve(ctx context.Context, body []byte, correlationID string) (int, any) {
	in, err := usecase.DecodeInput(body)
	if err != nil {
		return h.failure(correlationID, err)
	}
	out, err := h.uc.GenerateResponse(ctx, in)
	if err != nil {
		return h.failure(correlationID, err)
	}
	return http.StatusOK, generateResponse{Response: out.Response}
}

func (h *Handler) failure(correlationID string, err error) (int, errorResponse) {
	code := usecase.CodeOf(err)
	status := statusFor(code)

	attrs := []any{"err", err, "code", code, "correlation_id", correlationID}
	var ue *usecase.Error
	if errors.As(err, &ue) {
		attrs = append(attrs, "reason", ue.Reason)
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("generate response failed", attrs...)
	} else {
		h.logger.Warn("generate response rejected", attrs...)
	}

	return status, errorResponse{Error: string(code), Message: messageFor(code)}
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests
	case usecase.ErrorUpstream, usecase.ErrorInvalidOutput:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(code usecase.ErrorCode) string {
	switch code {
	case usecase.ErrorInvalidInput:
		return "The request body must be a JSON object with a string \"question\" field."
	case usecase.ErrorRateLimited:
		return "Too many requests. Please try again shortly."
	case usecase.ErrorUpstream, usecase.ErrorInvalidOutput:
		return "The response could not be generated. Please try again."
	default:
		return "Internal error."
	}
}

// eventBody returns the request body, decoding it when API Gateway delivered
// it base64 encoded.
func eventBody(event events.APIGatewayProxyRequest) ([]byte, error) {
	if !event.IsBase64Encoded {
		return []byte(event.Body), nil
	}
	raw, err := base64.StdEncoding.DecodeString(event.Body)
	if err != nil {
		return nil, fmt.Errorf("handler: decode base64 body: %w", err)
	}
	return raw, nil
}

func correlationIDFrom(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, correlationHeader) {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return uuid.NewString()
}
