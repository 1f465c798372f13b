package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/voyagent/voyagent/voyagent"
)

// FileService persists sessions as JSON files on disk.
//
// Layout: {baseDir}/{appName}/{userID}/{sessionID}.json
//
// Good for:
//   - Local development with persistence across restarts
//   - Small deployments without shared infrastructure
//
// Not suitable for:
//   - Multi-instance deployments (no locking across processes)
type FileService struct {
	baseDir string
	mu      sync.Mutex
}

// NewFileService creates a file-backed session service rooted at baseDir.
func NewFileService(baseDir string) (*FileService, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &FileService{baseDir: baseDir}, nil
}

func (s *FileService) sessionPath(appName, userID, sessionID string) string {
	return filepath.Join(s.baseDir, appName, userID, sessionID+".json")
}

func (s *FileService) writeSession(session *Session) error {
	path := s.sessionPath(session.AppName, session.UserID, session.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Write to temp file then rename for atomicity
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to finalize session write: %w", err)
	}
	return nil
}

func (s *FileService) readSession(appName, userID, sessionID string) (*Session, error) {
	data, err := os.ReadFile(s.sessionPath(appName, userID, sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("session %s not found", sessionID)
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// Create starts a new session and persists it.
func (s *FileService) Create(ctx context.Context, appName, userID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := newSession(appName, userID)
	if err := s.writeSession(session); err != nil {
		return nil, err
	}
	return session, nil
}

// Get returns a session by ID.
func (s *FileService) Get(ctx context.Context, appName, userID, sessionID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readSession(appName, userID, sessionID)
}

// AppendMessage adds a message to a session's history and persists it.
func (s *FileService) AppendMessage(ctx context.Context, appName, userID, sessionID string, message *voyagent.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.readSession(appName, userID, sessionID)
	if err != nil {
		return err
	}
	session.Messages = append(session.Messages, message)
	session.UpdatedAt = time.Now()
	return s.writeSession(session)
}

// List returns all sessions for a user, most recently updated first.
func (s *FileService) List(ctx context.Context, appName, userID string) ([]*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.baseDir, appName, userID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Session{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := make([]*Session, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		session, err := s.readSession(appName, userID, strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue // Skip unreadable files
		}
		sessions = append(sessions, session)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// Delete removes a session.
func (s *FileService) Delete(ctx context.Context, appName, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.sessionPath(appName, userID, sessionID)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("session %s not found", sessionID)
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

var _ Service = (*FileService)(nil)
