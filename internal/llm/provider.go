// Package llm provides text generation against multiple LLM backends
// (Gemini, OpenAI, Ollama) with model routing and fallback, plus the
// extraction utilities that turn raw model output into parsed JSON.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider names for routing and configuration.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Common errors returned by LLM providers.
var (
	ErrNoAPIKey      = errors.New("llm: API key not configured")
	ErrRateLimit     = errors.New("llm: rate limit exceeded")
	ErrContextLength = errors.New("llm: context length exceeded")
	ErrProviderDown  = errors.New("llm: provider unavailable")
	ErrInvalidModel  = errors.New("llm: invalid model")
	ErrEmptyResponse = errors.New("llm: empty response")
	ErrNoProviders   = errors.New("llm: no providers configured")
)

// Options configures a single generation request.
type Options struct {
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// Response is a complete text response from a provider.
type Response struct {
	Content  string        `json:"content"`
	Model    string        `json:"model"`
	Provider string        `json:"provider"`
	Usage    Usage         `json:"usage"`
	Latency  time.Duration `json:"latency"`
}

// Usage tracks token consumption for a request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Provider is the interface all LLM backends implement. Prompts are plain
// strings; the dashboard's prompt builders own all structure.
type Provider interface {
	// Name returns the provider identifier (e.g., "gemini").
	Name() string

	// Generate sends a prompt and returns the complete text response.
	Generate(ctx context.Context, prompt string, opts *Options) (*Response, error)

	// Models returns the list of available models for this provider.
	Models() []string

	// Ping checks that the provider is reachable and the key is valid.
	Ping(ctx context.Context) error
}

// DefaultOptions returns sensible request defaults.
func DefaultOptions() *Options {
	return &Options{
		Temperature: 0.4,
		MaxTokens:   8192,
	}
}

// String returns a human-readable summary of the response.
func (r *Response) String() string {
	truncated := r.Content
	if len(truncated) > 100 {
		truncated = truncated[:100] + "..."
	}
	return fmt.Sprintf("[%s/%s] %q, %d tokens, %v",
		r.Provider, r.Model, truncated, r.Usage.TotalTokens, r.Latency.Round(time.Millisecond))
}
