// Package llm provides chat-completion clients for the diagram assistant,
// selectable between OpenAI-compatible endpoints and the Anthropic API,
// plus helpers for digging JSON out of model responses.
package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Providers selectable through Config.Provider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds the settings needed to construct a client.
type Config struct {
	// Provider picks the wire protocol. Empty defaults to ProviderOpenAI,
	// which also covers local inference servers speaking the same API.
	Provider string

	// Endpoint is the base URL. Required for OpenAI-compatible servers,
	// optional for Anthropic where it overrides the default API host.
	Endpoint string

	// Model is the model name, e.g. "gpt-4o" or "claude-sonnet-4-5".
	Model string

	// APIKey authenticates requests. Local endpoints may leave it empty.
	APIKey string
}

// LLMClient is the interface diagram assistants depend on.
// Use it for dependency injection to enable mocking in tests.
type LLMClient interface {
	// GenerateResponse sends prompt under systemMessage and returns the
	// completion with token usage.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint URL.
	GetEndpoint() string
}

// GenerateResponseResult is a completed generation with usage counters.
type GenerateResponseResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// NewClient constructs the client selected by cfg.Provider.
func NewClient(cfg *Config, logger *zap.Logger) (LLMClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("llm config is required")
	}

	switch cfg.Provider {
	case "", ProviderOpenAI:
		return NewOpenAIClient(cfg, logger)
	case ProviderAnthropic:
		return NewAnthropicClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

// Ensure both concrete clients satisfy LLMClient at compile time.
var (
	_ LLMClient = (*OpenAIClient)(nil)
	_ LLMClient = (*AnthropicClient)(nil)
)
