// Package voyagent provides the core interfaces and types shared by the
// travel advisor runtime: conversation messages, agents, and callable tools.
package voyagent

import (
	"context"
	"fmt"
	"time"
)

// Message represents a single conversation turn exchanged between the user,
// an agent, or a tool.
type Message struct {
	Role      string                 `json:"role"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewMessage creates a new message with the given role and content.
// The message is not validated; call Validate before trusting
// externally-sourced content.
func NewMessage(role, content string) *Message {
	return &Message{
		Role:      role,
		Content:   content,
		Metadata:  make(map[string]interface{}),
		Timestamp: time.Now().UTC(),
	}
}

// NewValidatedMessage creates a new message and validates it immediately.
func NewValidatedMessage(role, content string) (*Message, error) {
	m := NewMessage(role, content)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// WithMetadata adds metadata to the message and returns it for chaining.
func (m *Message) WithMetadata(key string, value interface{}) *Message {
	m.Metadata[key] = value
	return m
}

const (
	maxContentSize  = 1024 * 1024 // 1MB
	maxMetadataKeys = 100
	maxKeyLength    = 50
	maxValueSize    = 10 * 1024 // 10KB
)

// Validate checks the message against the runtime's size and role constraints.
func (m *Message) Validate() error {
	if m.Role == "" {
		return fmt.Errorf("message role cannot be empty")
	}

	allowedRoles := map[string]bool{
		"user":      true,
		"assistant": true,
		"system":    true,
		"tool":      true,
		"agent":     true,
	}
	if !allowedRoles[m.Role] {
		return fmt.Errorf("invalid message role: %s. Must be one of: user, assistant, system, tool, agent", m.Role)
	}

	if len(m.Content) > maxContentSize {
		return fmt.Errorf("message content exceeds maximum size of %d bytes (got %d bytes)", maxContentSize, len(m.Content))
	}

	if m.Metadata != nil {
		if len(m.Metadata) > maxMetadataKeys {
			return fmt.Errorf("message metadata exceeds maximum of %d keys (got %d)", maxMetadataKeys, len(m.Metadata))
		}
		for key, value := range m.Metadata {
			if len(key) > maxKeyLength {
				return fmt.Errorf("metadata key '%s...' exceeds maximum length of %d characters", key[:min(20, len(key))], maxKeyLength)
			}
			if valueStr := fmt.Sprintf("%v", value); len(valueStr) > maxValueSize {
				return fmt.Errorf("metadata value for key '%s' exceeds maximum size of %d bytes", key, maxValueSize)
			}
		}
	}

	return nil
}

// ToolResult represents the outcome of a tool execution.
type ToolResult struct {
	Success  bool                   `json:"success"`
	Data     interface{}            `json:"data,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Metadata map[string]interface{} `json:"metadata"`
}

// NewToolResult creates a successful tool result.
func NewToolResult(data interface{}) *ToolResult {
	return &ToolResult{
		Success:  true,
		Data:     data,
		Metadata: make(map[string]interface{}),
	}
}

// NewToolError creates a tool result representing an error.
func NewToolError(err string) *ToolResult {
	return &ToolResult{
		Success:  false,
		Error:    err,
		Metadata: make(map[string]interface{}),
	}
}

// WithMetadata adds metadata to the tool result and returns it for chaining.
func (t *ToolResult) WithMetadata(key string, value interface{}) *ToolResult {
	t.Metadata[key] = value
	return t
}

// Agent is the core interface implemented by every conversational agent in
// the runtime, from the travel advisor itself down to routing shims.
type Agent interface {
	// Name returns the unique identifier for this agent.
	Name() string

	// Process handles a message and returns a response.
	Process(ctx context.Context, message *Message) (*Message, error)

	// Capabilities returns capability identifiers this agent supports.
	// May be empty.
	Capabilities() []string
}

// Introspector is implemented by agents that can report a snapshot of their
// internal state. The runner logs introspection results when available.
type Introspector interface {
	Introspect() *IntrospectionResult
}

// Tool represents an executable capability that agents can invoke during a
// conversation, such as a destination search or a weather lookup.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	Description() string

	// Execute runs the tool with the given parameters and returns a result.
	Execute(ctx context.Context, params map[string]interface{}) (*ToolResult, error)
}
