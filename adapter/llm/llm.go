// Package llm provides minimal LLM adapters for the travel advisor runtime.
//
// The interface is intentionally small: agents need Complete and Stream, and
// nothing else. Provider-specific features stay behind Unwrap(). The advisor
// selects a provider from configuration the same way it picks between its
// hosted model ("vertex" -> Gemini) and open models ("groq" -> LiteLLM proxy).
package llm

import (
	"context"

	"github.com/voyagent/voyagent/voyagent"
)

// LLM is the minimal contract for agent-LLM interaction.
//
// Example:
//
//	model, err := NewGeminiLLM("", "gemini-2.5-flash")
//	messages := []*voyagent.Message{
//	    voyagent.NewMessage("system", "You are an expert travel advisor."),
//	    voyagent.NewMessage("user", "Find me a budget beach destination."),
//	}
//	response, err := model.Complete(ctx, messages, WithTemperature(0.7))
type LLM interface {
	// Complete generates a single completion from the LLM.
	//
	// The conversation history is passed as messages, which the adapter
	// converts to the provider's wire format. The response carries
	// role "agent" and provider metadata (model, usage, finish reason).
	Complete(ctx context.Context, messages []*voyagent.Message, opts ...CallOption) (*voyagent.Message, error)

	// Stream generates completion chunks from the LLM.
	//
	// Chunks are sent through the returned channel with metadata
	// {"streaming": true}; the channel is closed when the stream ends.
	// Adapters that hit an error mid-stream send a final chunk with an
	// "error" metadata key and close the channel.
	Stream(ctx context.Context, messages []*voyagent.Message, opts ...CallOption) (<-chan *voyagent.Message, error)

	// Model returns the model identifier for this LLM instance.
	Model() string

	// Unwrap returns the underlying provider client for advanced features.
	// Using it breaks provider portability.
	Unwrap() interface{}
}

// CallOptions holds provider-specific options for LLM calls.
type CallOptions struct {
	// Common options
	Temperature *float64
	MaxTokens   *int
	TopP        *float64

	// Provider-specific options
	Extra map[string]interface{}
}

// CallOption is a functional option for configuring LLM calls.
type CallOption func(*CallOptions)

// WithTemperature sets the sampling temperature (typically 0.0-2.0).
func WithTemperature(temperature float64) CallOption {
	return func(opts *CallOptions) {
		opts.Temperature = &temperature
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(maxTokens int) CallOption {
	return func(opts *CallOptions) {
		opts.MaxTokens = &maxTokens
	}
}

// WithTopP sets the nucleus sampling parameter.
func WithTopP(topP float64) CallOption {
	return func(opts *CallOptions) {
		opts.TopP = &topP
	}
}

// WithExtra adds a provider-specific option.
func WithExtra(key string, value interface{}) CallOption {
	return func(opts *CallOptions) {
		if opts.Extra == nil {
			opts.Extra = make(map[string]interface{})
		}
		opts.Extra[key] = value
	}
}

// BuildCallOptions creates CallOptions from functional options.
func BuildCallOptions(opts ...CallOption) *CallOptions {
	options := &CallOptions{
		Extra: make(map[string]interface{}),
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
