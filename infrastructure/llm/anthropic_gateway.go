package llm

import (
	"context"
	"errors"
	"fmt"

	"neuronote/application/ports"
	"neuronote/domain/core/valueobjects"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicGateway calls the Anthropic Messages API. System turns are lifted
// into the system parameter; the SDK's own retries are off because the
// resilient wrapper owns retrying.
type AnthropicGateway struct {
	client    anthropic.Client
	maxTokens int64
}

func NewAnthropicGateway(apiKey, baseURL string, maxTokens int) *AnthropicGateway {
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicGateway{client: anthropic.NewClient(opts...), maxTokens: int64(maxTokens)}
}

func (g *AnthropicGateway) Name() string { return "anthropic" }

func (g *AnthropicGateway) Complete(ctx context.Context, model string, messages []ports.CompletionMessage) (valueobjects.ReplyContent, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: g.maxTokens,
	}
	for _, m := range messages {
		switch m.Role {
		case valueobjects.RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case valueobjects.RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) && !retryableStatus(apiErr.StatusCode) {
			return valueobjects.ReplyContent{}, &permanentError{fmt.Errorf("completion rejected: %w", err)}
		}
		return valueobjects.ReplyContent{}, err
	}

	chunks := make([]valueobjects.ReplyChunk, 0, len(resp.Content))
	for _, block := range resp.Content {
		chunks = append(chunks, valueobjects.ReplyChunk{Kind: block.Type, Text: block.Text})
	}
	return valueobjects.ChunkList(chunks...), nil
}
