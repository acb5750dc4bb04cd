package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string `json:"role"` // "user", "assistant"
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
	JSON        bool   // Ask for a JSON-only reply where the backend supports it
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithJSON() Option {
	return func(o *Options) {
		o.JSON = true
	}
}

// Apply resolves opts over defaults.
func Apply(defaults Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}

// CompletionService defines the contract for any LLM backend. Failures are
// returned as *Error so callers can tell auth, rate-limit and timeout apart.
type CompletionService interface {
	// Complete sends a system prompt plus the ordered conversation and returns
	// the assistant text
	Complete(ctx context.Context, systemPrompt string, messages []Message, options ...Option) (string, error)
}
