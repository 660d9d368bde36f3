package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"devchat/internal/usecase"
)

type stubUseCase struct {
	out    usecase.GenerateResponseOutput
	err    error
	in     usecase.GenerateResponseInput
	called bool
}

func (s *stubUseCase) GenerateResponse(_ context.Context, in usecase.GenerateResponseInput) (usecase.GenerateResponseOutput, error) {
	s.in = in
	s.called = true
	return s.out, s.err
}

func newTestHandler(t *testing.T, uc UseCase) *Handler {
	t.Helper()
	h, err := NewHandler(uc, WithAllowedOrigin("https://huzaifa.dev"), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return h
}

func makeEvent(body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/generate-response",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func TestNewHandler_ValidatesDependency(t *testing.T) {
	_, err := NewHandler(nil)
	require.Error(t, err)
}

func TestHandle_HappyPath(t *testing.T) {
	uc := &stubUseCase{out: usecase.GenerateResponseOutput{Response: "hello"}}
	h := newTestHandler(t, uc)

	resp, err := h.Handle(context.Background(), makeEvent(`{"question":"What do you do?"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, usecase.GenerateResponseInput{Question: "What do you do?"}, uc.in)

	out := parseBody[generateResponse](t, resp.Body)
	require.Equal(t, "hello", out.Response)
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])
	require.Equal(t, "https://huzaifa.dev", resp.Headers["Access-Control-Allow-Origin"])
}

func TestHandle_InvalidBody(t *testing.T) {
	for _, body := range []string{`not-json`, `{}`, `{"question":7}`, `{"question":"a","extra":1}`} {
		uc := &stubUseCase{}
		h := newTestHandler(t, uc)

		resp, err := h.Handle(context.Background(), makeEvent(body))
		require.NoError(t, err)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, "body=%s", body)
		require.False(t, uc.called, "flow must not be called for body=%s", body)

		out := parseBody[errorResponse](t, resp.Body)
		require.Equal(t, string(usecase.ErrorInvalidInput), out.Error)
		require.NotEmpty(t, out.Message)
	}
}

func TestHandle_MapsUseCaseErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "invalid input", err: &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "question_too_long"}, status: http.StatusBadRequest, code: string(usecase.ErrorInvalidInput)},
		{name: "invalid output", err: &usecase.Error{Code: usecase.ErrorInvalidOutput, Reason: "missing_response"}, status: http.StatusBadGateway, code: string(usecase.ErrorInvalidOutput)},
		{name: "rate limited", err: &usecase.Error{Code: usecase.ErrorRateLimited, Reason: "backend_rate_limited"}, status: http.StatusTooManyRequests, code: string(usecase.ErrorRateLimited)},
		{name: "upstream", err: &usecase.Error{Code: usecase.ErrorUpstream, Reason: "backend_timeout"}, status: http.StatusBadGateway, code: string(usecase.ErrorUpstream)},
		{name: "internal", err: &usecase.Error{Code: usecase.ErrorInternal, Reason: "config_load_error"}, status: http.StatusInternalServerError, code: string(usecase.ErrorInternal)},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, code: string(usecase.ErrorInternal)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(t, &stubUseCase{err: tc.err})

			resp, err := h.Handle(context.Background(), makeEvent(`{"question":"What do you do?"}`))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			out := parseBody[errorResponse](t, resp.Body)
			require.Equal(t, tc.code, out.Error)
			require.NotContains(t, out.Message, "boom")
		})
	}
}

func TestHandle_Base64Body(t *testing.T) {
	uc := &stubUseCase{out: usecase.GenerateResponseOutput{Response: "hello"}}
	h := newTestHandler(t, uc)

	event := makeEvent(base64.StdEncoding.EncodeToString([]byte(`{"question":"What do you do?"}`)))
	event.IsBase64Encoded = true
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "What do you do?", uc.in.Question)

	bad := makeEvent("%%%not-base64")
	bad.IsBase64Encoded = true
	uc = &stubUseCase{}
	resp, err = newTestHandler(t, uc).Handle(context.Background(), bad)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, string(usecase.ErrorInvalidInput), parseBody[errorResponse](t, resp.Body).Error)
	require.False(t, uc.called)
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	h := newTestHandler(t, &stubUseCase{out: usecase.GenerateResponseOutput{Response: "ok"}})

	event := makeEvent(`{"question":"What do you do?"}`)
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
}

func TestHandle_Preflight(t *testing.T) {
	uc := &stubUseCase{}
	h := newTestHandler(t, uc)

	event := makeEvent("")
	event.HTTPMethod = http.MethodOptions
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Contains(t, resp.Headers["Access-Control-Allow-Methods"], "POST")
	require.False(t, uc.called)
}

func TestServeHTTP_HappyPath(t *testing.T) {
	uc := &stubUseCase{out: usecase.GenerateResponseOutput{Response: "hi"}}
	h := newTestHandler(t, uc)

	req := httptest.NewRequest(http.MethodPost, "/generate-response", strings.NewReader(`{"question":"Hello?"}`))
	req.Header.Set("X-Correlation-Id", "corr-9")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "corr-9", rec.Header().Get("X-Correlation-Id"))
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, "hi", parseBody[generateResponse](t, rec.Body.String()).Response)
	require.Equal(t, "Hello?", uc.in.Question)
}

func TestServeHTTP_BodyTooLarge(t *testing.T) {
	uc := &stubUseCase{}
	h := newTestHandler(t, uc)

	big := `{"question":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/generate-response", strings.NewReader(big)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Correlation-Id"))
	require.False(t, uc.called)
}
