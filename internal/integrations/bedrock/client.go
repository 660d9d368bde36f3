// Package bedrock implements the generation backend on AWS Bedrock's
// InvokeModel API with Anthropic Claude models.
//
// The request body follows the Anthropic Messages format with an
// anthropic_version field; the model id travels in the InvokeModel input
// rather than in the body. Bedrock has no native structured output for these
// models, so the expected JSON Schema is appended to the system prompt.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"devchat/internal/domain"
)

const (
	anthropicVersion = "bedrock-2023-05-31"
	defaultMaxTokens = 1024
)

// bedrockAPI is the subset of *bedrockruntime.Client used here.
type bedrockAPI interface {
	InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type invokeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	System           string          `json:"system,omitempty"`
	Messages         []invokeMessage `json:"messages"`
}

type invokeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type invokeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

type Client struct {
	api       bedrockAPI
	maxTokens int
}

func NewClient(api bedrockAPI, maxTokens int) (*Client, error) {
	if api == nil {
		return nil, errors.New("bedrock: api must not be nil")
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{api: api, maxTokens: maxTokens}, nil
}

// Generate invokes model and returns the concatenated text blocks of the
// reply, with any markdown code fence around a JSON payload removed.
func (c *Client) Generate(ctx context.Context, model string, messages []domain.ChatMessage, format domain.OutputFormat) (string, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return "", errors.New("bedrock: model must not be empty")
	}

	body, err := json.Marshal(buildRequest(messages, format, c.maxTokens))
	if err != nil {
		return "", fmt.Errorf("bedrock: marshal request: %w", err)
	}

	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: invoke model: %w", err)
	}
	if out == nil || len(out.Body) == 0 {
		return "", errors.New("bedrock: empty response body")
	}

	var payload invokeResponse
	if err := json.Unmarshal(out.Body, &payload); err != nil {
		return "", fmt.Errorf("bedrock: decode response: %w", err)
	}

	var b strings.Builder
	for _, block := range payload.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("bedrock: no text content in response")
	}
	if len(format.Schema) == 0 {
		return b.String(), nil
	}
	return stripCodeFence(b.String()), nil
}

func buildRequest(messages []domain.ChatMessage, format domain.OutputFormat, maxTokens int) invokeRequest {
	var system []string
	turns := make([]invokeMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == domain.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, invokeMessage{Role: m.Role, Content: m.Content})
	}
	if len(format.Schema) > 0 {
		system = append(system, schemaInstruction(format))
	}
	return invokeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxTokens,
		System:           strings.Join(system, "\n\n"),
		Messages:         turns,
	}
}

func schemaInstruction(format domain.OutputFormat) string {
	return fmt.Sprintf(
		"Respond with a single JSON object named %q that matches this JSON Schema exactly. "+
			"Do not add any text before or after the JSON.\n%s",
		format.Name,
		strings.TrimSpace(string(format.Schema)),
	)
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
