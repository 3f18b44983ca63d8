// Package llm adapts hosted chat-completion APIs to ports.CompletionGateway.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"neuronote/application/ports"
	"neuronote/domain/core/valueobjects"

	"github.com/sashabaranov/go-openai"
)

// OpenAIGateway talks to any OpenAI-compatible chat endpoint. Pointed at
// https://api.mistral.ai/v1 it serves Mistral models.
type OpenAIGateway struct {
	client    *openai.Client
	maxTokens int
}

// NewOpenAIGateway creates a gateway. An empty baseURL uses OpenAI.
func NewOpenAIGateway(apiKey, baseURL string, maxTokens int) *OpenAIGateway {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIGateway{client: openai.NewClientWithConfig(cfg), maxTokens: maxTokens}
}

func (g *OpenAIGateway) Name() string { return "openai" }

func (g *OpenAIGateway) Complete(ctx context.Context, model string, messages []ports.CompletionMessage) (valueobjects.ReplyContent, error) {
	req := openai.ChatCompletionRequest{
		Model:     model,
		Messages:  make([]openai.ChatCompletionMessage, 0, len(messages)),
		MaxTokens: g.maxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return valueobjects.ReplyContent{}, classifyOpenAI(err)
	}
	if len(resp.Choices) == 0 {
		return valueobjects.ReplyContent{}, nil
	}

	msg := resp.Choices[0].Message
	if len(msg.MultiContent) > 0 {
		chunks := make([]valueobjects.ReplyChunk, 0, len(msg.MultiContent))
		for _, part := range msg.MultiContent {
			chunks = append(chunks, valueobjects.ReplyChunk{Kind: string(part.Type), Text: part.Text})
		}
		return valueobjects.ChunkList(chunks...), nil
	}
	return valueobjects.PlainText(msg.Content), nil
}

// classifyOpenAI marks client errors other than throttling as permanent.
func classifyOpenAI(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && !retryableStatus(apiErr.HTTPStatusCode) {
		return &permanentError{fmt.Errorf("completion rejected: %w", err)}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && !retryableStatus(reqErr.HTTPStatusCode) {
		return &permanentError{fmt.Errorf("completion rejected: %w", err)}
	}
	return err
}

func retryableStatus(status int) bool {
	return status == 0 || status == http.StatusTooManyRequests || status >= 500
}

// permanentError flags a provider error that retrying cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// IsPermanent reports whether err was flagged as not retryable.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
