// Package llm wraps the chat completion provider used by the validation,
// analysis and translation stages. The provider speaks the OpenAI chat API,
// pointed at any compatible endpoint via base URL.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/usamaalam01/LabReportAI/internal/logger"
)

// ErrNoChoices is returned when the provider answers without any completion.
var ErrNoChoices = errors.New("no response choices from provider")

// Request is a single chat completion request.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// Provider produces chat completions. Any error it returns is a transport or
// provider failure, never a content-level problem: callers decide whether to
// fail open or closed on it.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// OpenAIProvider implements Provider on the OpenAI-compatible chat API.
type OpenAIProvider struct {
	client *openai.Client
	log    zerolog.Logger
}

// NewOpenAIProvider creates a provider for the given API key. A non-empty
// baseURL points the client at an alternative OpenAI-compatible endpoint
// (e.g. Groq).
func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		log:    logger.WithComponent("llm"),
	}
}

// NewOpenAIProviderWithClient creates a provider with an explicit client (for testing).
func NewOpenAIProviderWithClient(client *openai.Client) *OpenAIProvider {
	return &OpenAIProvider{
		client: client,
		log:    logger.WithComponent("llm"),
	}
}

// Complete sends the request and returns the raw completion text.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	p.log.Debug().
		Str("model", req.Model).
		Int("prompt_length", len(req.Prompt)).
		Float32("temperature", req.Temperature).
		Msg("Sending chat completion request")

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Messages:    messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	content := resp.Choices[0].Message.Content
	p.log.Debug().Int("response_length", len(content)).Msg("Received chat completion")
	return content, nil
}
