// Package middleware provides reusable decorators for agents.
package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/voyagent/voyagent/voyagent"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	// Default: 3
	MaxAttempts int

	// InitialBackoff is the first backoff duration. Default: 100ms
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff duration. Default: 10s
	MaxBackoff time.Duration

	// BackoffMultiplier is the exponential growth factor. Default: 2.0
	BackoffMultiplier float64

	// ShouldRetry decides whether an error triggers a retry.
	// If nil, all errors are retried.
	ShouldRetry func(error) bool
}

// DefaultRetryConfig returns a retry config with sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetryDecorator wraps an agent with exponential-backoff retry. It exists
// for the LLM-backed agents: provider calls fail transiently, and the
// advisor should ride through a rate-limit blip without surfacing it.
type RetryDecorator struct {
	agent  voyagent.Agent
	config RetryConfig
}

var _ voyagent.Agent = (*RetryDecorator)(nil)

// NewRetryDecorator creates a retry decorator around agent.
func NewRetryDecorator(agent voyagent.Agent, config RetryConfig) *RetryDecorator {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = 100 * time.Millisecond
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 10 * time.Second
	}
	if config.BackoffMultiplier <= 0 {
		config.BackoffMultiplier = 2.0
	}

	return &RetryDecorator{
		agent:  agent,
		config: config,
	}
}

// Name returns the name of the underlying agent.
func (r *RetryDecorator) Name() string {
	return r.agent.Name()
}

// Capabilities returns the capabilities of the underlying agent.
func (r *RetryDecorator) Capabilities() []string {
	return r.agent.Capabilities()
}

// Process retries the underlying agent with exponential backoff.
func (r *RetryDecorator) Process(ctx context.Context, message *voyagent.Message) (*voyagent.Message, error) {
	var lastErr error
	backoff := r.config.InitialBackoff

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		response, err := r.agent.Process(ctx, message)
		if err == nil {
			return response, nil
		}
		lastErr = err

		if r.config.ShouldRetry != nil && !r.config.ShouldRetry(err) {
			return nil, err
		}
		if attempt == r.config.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * r.config.BackoffMultiplier)
		if backoff > r.config.MaxBackoff {
			backoff = r.config.MaxBackoff
		}
	}

	return nil, fmt.Errorf("all %d attempts failed: %w", r.config.MaxAttempts, lastErr)
}
