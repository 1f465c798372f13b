package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/voyagent/voyagent/voyagent"
)

// InMemoryMemory provides simple in-memory storage with LRU eviction.
//
// Features:
//   - Fast access (no I/O)
//   - LRU eviction when maxSize reached
//   - Per-session storage
//   - Optional metadata support
//
// Limitations:
//   - No persistence (data lost on restart)
//   - No cross-session retrieval
//
// Use cases:
//   - Testing
//   - Single-session advisory chats where persistence is not needed
//
// Example:
//
//	mem := NewInMemoryMemory(1000)
//	err := mem.Store(ctx, "session-123", message, nil)
//	messages, err := mem.Retrieve(ctx, "session-123", RetrieveOptions{Limit: 10})
type InMemoryMemory struct {
	maxSize int
	mu      sync.RWMutex
	// sessionID -> list of messages with metadata
	storage map[string][]MessageWithMetadata
	// Counter to ensure unique ordering even for same-timestamp messages
	counter int64
}

// NewInMemoryMemory creates a new in-memory memory instance.
//
// Args:
//
//	maxSize: Maximum number of messages to store per session before LRU eviction
func NewInMemoryMemory(maxSize int) *InMemoryMemory {
	return &InMemoryMemory{
		maxSize: maxSize,
		storage: make(map[string][]MessageWithMetadata),
	}
}

// Store saves a message to memory with optional metadata.
func (m *InMemoryMemory) Store(ctx context.Context, sessionID string, message *voyagent.Message, metadata map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.storage[sessionID]; !exists {
		m.storage[sessionID] = make([]MessageWithMetadata, 0)
	}

	// Use counter to ensure unique ordering for same-timestamp messages
	timestamp := float64(time.Now().UnixNano()) / 1e9
	timestamp += float64(m.counter) * 0.000001
	m.counter++

	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	m.storage[sessionID] = append(m.storage[sessionID], MessageWithMetadata{
		Timestamp: timestamp,
		Message:   message,
		Metadata:  metadata,
	})

	// LRU eviction if over limit
	if len(m.storage[sessionID]) > m.maxSize {
		m.storage[sessionID] = m.storage[sessionID][1:]
	}

	return nil
}

// Retrieve fetches messages from memory, most recent first.
//
// Supports filtering by:
//   - TimeRange: Filter by time range
//   - ImportanceThreshold: Filter by importance score (requires metadata with "importance")
//   - Tags: Filter by tags (requires metadata with "tags")
func (m *InMemoryMemory) Retrieve(ctx context.Context, sessionID string, opts RetrieveOptions) ([]*voyagent.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessionStorage, exists := m.storage[sessionID]
	if !exists {
		return []*voyagent.Message{}, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	messagesWithMetadata := make([]MessageWithMetadata, len(sessionStorage))
	copy(messagesWithMetadata, sessionStorage)

	// Reverse to get most recent first
	for i, j := 0, len(messagesWithMetadata)-1; i < j; i, j = i+1, j-1 {
		messagesWithMetadata[i], messagesWithMetadata[j] = messagesWithMetadata[j], messagesWithMetadata[i]
	}

	filtered := make([]*voyagent.Message, 0)
	for _, item := range messagesWithMetadata {
		if opts.TimeRange != nil {
			msgTime := int64(item.Timestamp)
			if msgTime < opts.TimeRange.Start || msgTime > opts.TimeRange.End {
				continue
			}
		}

		if opts.ImportanceThreshold != nil {
			importance := 0.0
			if val, ok := item.Metadata["importance"]; ok {
				if f, ok := val.(float64); ok {
					importance = f
				}
			}
			if importance < *opts.ImportanceThreshold {
				continue
			}
		}

		if len(opts.Tags) > 0 && !hasAnyTag(item.Metadata, opts.Tags) {
			continue
		}

		filtered = append(filtered, item.Message)

		if len(filtered) >= limit {
			break
		}
	}

	return filtered, nil
}

// hasAnyTag reports whether metadata carries any of the required tags.
func hasAnyTag(metadata map[string]interface{}, required []string) bool {
	messageTags := make(map[string]bool)
	if val, ok := metadata["tags"]; ok {
		switch tags := val.(type) {
		case []string:
			for _, tag := range tags {
				messageTags[tag] = true
			}
		case []interface{}:
			for _, tag := range tags {
				if str, ok := tag.(string); ok {
					messageTags[str] = true
				}
			}
		}
	}

	for _, tag := range required {
		if messageTags[tag] {
			return true
		}
	}
	return false
}

// Summarize creates a summary of conversation history.
//
// Simple implementation: Returns a message with concatenated content.
// Production use should use LLM-based summarization.
func (m *InMemoryMemory) Summarize(ctx context.Context, sessionID string, opts SummarizeOptions) (*voyagent.Message, error) {
	messages, err := m.Retrieve(ctx, sessionID, RetrieveOptions{Limit: 100})
	if err != nil {
		return nil, err
	}

	if len(messages) == 0 {
		return voyagent.NewMessage("system", "No messages in session."), nil
	}

	summaryParts := make([]string, 0)
	maxMessages := 10
	if len(messages) < maxMessages {
		maxMessages = len(messages)
	}

	for i := 0; i < maxMessages; i++ {
		msg := messages[i]
		preview := msg.Content
		if len(preview) > 100 {
			preview = preview[:100] + "..."
		}
		summaryParts = append(summaryParts, fmt.Sprintf("%d. [%s] %s", i+1, msg.Role, preview))
	}

	summaryContent := fmt.Sprintf("Session summary (%d messages):\n%s", len(messages), strings.Join(summaryParts, "\n"))

	return voyagent.NewMessage("system", summaryContent), nil
}

// Clear removes all memory for a session.
func (m *InMemoryMemory) Clear(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.storage, sessionID)
	return nil
}

// Capabilities returns the memory capabilities.
func (m *InMemoryMemory) Capabilities() []string {
	return []string{
		"basic_retrieval",
		"time_filtering",
		"importance_filtering",
		"tag_filtering",
	}
}

// GetSessionCount returns the number of messages stored for a session.
func (m *InMemoryMemory) GetSessionCount(sessionID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if storage, exists := m.storage[sessionID]; exists {
		return len(storage)
	}
	return 0
}

// GetAllSessions returns a list of all session IDs.
func (m *InMemoryMemory) GetAllSessions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]string, 0, len(m.storage))
	for sessionID := range m.storage {
		sessions = append(sessions, sessionID)
	}
	sort.Strings(sessions)
	return sessions
}

var _ Memory = (*InMemoryMemory)(nil)
