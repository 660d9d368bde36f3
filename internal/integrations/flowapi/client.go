// Package flowapi calls a deployed response flow over HTTP. The returned
// payload is validated against the same output schema the flow enforces.
package flowapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"devchat/internal/usecase"
)

// APIError is a non-2xx answer from the flow endpoint.
type APIError struct {
	StatusCode    int
	Code          string
	Message       string
	CorrelationID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("flowapi: status %d (%s): %s [correlation %s]", e.StatusCode, e.Code, e.Message, e.CorrelationID)
}

func (e *APIError) HTTPStatusCode() int {
	return e.StatusCode
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type Client struct {
	endpoint   string
	httpClient *http.Client
}

func NewClient(endpoint string, timeout time.Duration) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("flowapi: endpoint must not be empty")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{endpoint: endpoint, httpClient: &http.Client{Timeout: timeout}}, nil
}

func (c *Client) GenerateResponse(ctx context.Context, in usecase.GenerateResponseInput) (usecase.GenerateResponseOutput, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return usecase.GenerateResponseOutput{}, fmt.Errorf("flowapi: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return usecase.GenerateResponseOutput{}, fmt.Errorf("flowapi: create request: %w", err)
	}
	correlationID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Correlation-Id", correlationID)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return usecase.GenerateResponseOutput{}, fmt.Errorf("flowapi: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return usecase.GenerateResponseOutput{}, fmt.Errorf("flowapi: read response body: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: res.StatusCode, CorrelationID: res.Header.Get("X-Correlation-Id")}
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil {
			apiErr.Code, apiErr.Message = eb.Error, eb.Message
		}
		if apiErr.CorrelationID == "" {
			apiErr.CorrelationID = correlationID
		}
		return usecase.GenerateResponseOutput{}, apiErr
	}

	return usecase.DecodeOutput(string(raw))
}
