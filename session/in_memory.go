package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/voyagent/voyagent/voyagent"
)

// InMemoryService keeps sessions in process memory.
//
// Good for:
//   - Testing
//   - Single-process deployments where conversation context within the
//     process lifetime is enough
//
// Not suitable for:
//   - Cross-restart persistence (use FileService)
type InMemoryService struct {
	mu sync.RWMutex
	// key: appName/userID/sessionID
	sessions map[string]*Session
}

// NewInMemoryService creates an in-memory session service.
func NewInMemoryService() *InMemoryService {
	return &InMemoryService{
		sessions: make(map[string]*Session),
	}
}

func sessionKey(appName, userID, sessionID string) string {
	return appName + "/" + userID + "/" + sessionID
}

// Create starts a new session.
func (s *InMemoryService) Create(ctx context.Context, appName, userID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := newSession(appName, userID)
	s.sessions[sessionKey(appName, userID, session.ID)] = session
	return session, nil
}

// Get returns a session by ID.
func (s *InMemoryService) Get(ctx context.Context, appName, userID, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionKey(appName, userID, sessionID)]
	if !ok {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	return session, nil
}

// AppendMessage adds a message to a session's history.
func (s *InMemoryService) AppendMessage(ctx context.Context, appName, userID, sessionID string, message *voyagent.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionKey(appName, userID, sessionID)]
	if !ok {
		return fmt.Errorf("session %s not found", sessionID)
	}
	session.Messages = append(session.Messages, message)
	session.UpdatedAt = time.Now()
	return nil
}

// List returns all sessions for a user, most recently updated first.
func (s *InMemoryService) List(ctx context.Context, appName, userID string) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*Session, 0)
	for _, session := range s.sessions {
		if session.AppName == appName && session.UserID == userID {
			sessions = append(sessions, session)
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// Delete removes a session.
func (s *InMemoryService) Delete(ctx context.Context, appName, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey(appName, userID, sessionID)
	if _, ok := s.sessions[key]; !ok {
		return fmt.Errorf("session %s not found", sessionID)
	}
	delete(s.sessions, key)
	return nil
}

var _ Service = (*InMemoryService)(nil)
