// Package session provides conversation session management for advisors.
//
// A session scopes one conversation: it carries the message history and
// arbitrary state for a (appName, userID) pair. Services hand out sessions
// and persist them between turns.
//
// Implementations:
//   - InMemoryService: process-local sessions, full conversation context
//   - FileService: JSON files on disk, sessions survive restarts
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/voyagent/voyagent/voyagent"
)

// Session is one conversation between a user and an advisor application.
type Session struct {
	ID        string                 `json:"id"`
	AppName   string                 `json:"app_name"`
	UserID    string                 `json:"user_id"`
	State     map[string]interface{} `json:"state,omitempty"`
	Messages  []*voyagent.Message    `json:"messages"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Service manages session lifecycle and persistence.
type Service interface {
	// Create starts a new session for a user within an application.
	Create(ctx context.Context, appName, userID string) (*Session, error)

	// Get returns a session by ID, or an error if it does not exist.
	Get(ctx context.Context, appName, userID, sessionID string) (*Session, error)

	// AppendMessage adds a message to a session's history and persists it.
	AppendMessage(ctx context.Context, appName, userID, sessionID string, message *voyagent.Message) error

	// List returns all sessions for a user within an application,
	// most recently updated first.
	List(ctx context.Context, appName, userID string) ([]*Session, error)

	// Delete removes a session.
	Delete(ctx context.Context, appName, userID, sessionID string) error
}

// newSession builds a session with a fresh UUID.
func newSession(appName, userID string) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.New().String(),
		AppName:   appName,
		UserID:    userID,
		State:     make(map[string]interface{}),
		Messages:  make([]*voyagent.Message, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
