// Package memory provides memory systems for advisor conversation history.
//
// This package defines interfaces and implementations for storing and
// retrieving conversation history, enabling context management beyond raw
// message lists.
//
// Implementations:
//   - InMemoryMemory: Simple in-memory storage with LRU eviction
//   - RedisMemory: Redis-backed with TTL for multi-instance deployments
//   - SQLiteMemory: SQLite-backed cross-session store with keyword-tagged
//     summaries, used for persistent memory on proxy-routed models
package memory

import (
	"context"

	"github.com/voyagent/voyagent/voyagent"
)

// Memory is the minimal interface for session-scoped memory systems.
//
// Memory systems store and retrieve conversation history for a single
// session. Cross-session persistence with user scoping is provided by
// SQLiteMemory, which exposes its own API on top of this interface.
//
// Example:
//
//	mem := NewInMemoryMemory(1000)
//	err := mem.Store(ctx, "session-123", message, nil)
//	messages, err := mem.Retrieve(ctx, "session-123", RetrieveOptions{Limit: 10})
type Memory interface {
	// Store saves a message to memory with optional metadata.
	//
	// Args:
	//   ctx: Context for cancellation
	//   sessionID: Unique session identifier
	//   message: Message to store
	//   metadata: Optional metadata (importance score, tags, etc.)
	Store(ctx context.Context, sessionID string, message *voyagent.Message, metadata map[string]interface{}) error

	// Retrieve fetches messages from memory, most recent first.
	//
	// Example:
	//   messages, err := mem.Retrieve(ctx, "session-123", RetrieveOptions{Limit: 10})
	Retrieve(ctx context.Context, sessionID string, opts RetrieveOptions) ([]*voyagent.Message, error)

	// Summarize creates a summary of conversation history.
	Summarize(ctx context.Context, sessionID string, opts SummarizeOptions) (*voyagent.Message, error)

	// Clear removes all memory for a session.
	Clear(ctx context.Context, sessionID string) error

	// Capabilities returns the memory capabilities.
	//
	// Possible capabilities:
	//   - "basic_retrieval": Supports simple Retrieve()
	//   - "persistence": Data survives restarts
	//   - "ttl": Supports automatic expiry
	//   - "cross_session": Supports user-scoped retrieval across sessions
	Capabilities() []string
}

// RetrieveOptions specifies options for retrieving messages.
type RetrieveOptions struct {
	// Query is an optional keyword query for retrieval (if supported)
	Query string

	// Limit is the maximum number of messages to return (default: 10)
	Limit int

	// TimeRange filters messages by time (optional)
	TimeRange *TimeRange

	// ImportanceThreshold filters messages by importance score (optional)
	ImportanceThreshold *float64

	// Tags filters messages that have any of these tags (optional)
	Tags []string
}

// TimeRange represents a time range filter.
type TimeRange struct {
	Start int64 // Unix timestamp in seconds
	End   int64 // Unix timestamp in seconds
}

// SummarizeOptions specifies options for summarization.
type SummarizeOptions struct {
	// MaxLength is the maximum length of the summary (optional)
	MaxLength int

	// Style is the summary style: "brief" or "detailed" (optional)
	Style string
}

// MessageWithMetadata wraps a message with its timestamp and metadata.
type MessageWithMetadata struct {
	Timestamp float64                // Unix timestamp with microsecond precision
	Message   *voyagent.Message      // The message
	Metadata  map[string]interface{} // Associated metadata
}
