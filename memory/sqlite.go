package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Keyword sets used to tag user messages when generating summaries.
var (
	preferenceKeywords = []string{"prefer", "like", "love", "want", "need", "budget", "favorite"}
	factPatterns       = []string{"my name is", "i am", "i live in", "i work", "i have"}
)

// Record is a single retrieved memory entry.
//
// Kind is either "conversation" (a stored message) or "summary" (a
// keyword-tagged extract). Conversation records carry MessageType,
// SessionID and Timestamp; summary records carry MemoryType,
// RelevanceScore and CreatedAt.
type Record struct {
	Kind           string
	Content        string
	MessageType    string
	SessionID      string
	Timestamp      time.Time
	MemoryType     string
	RelevanceScore float64
	CreatedAt      time.Time
}

// Stats describes the state of a SQLite memory store.
type Stats struct {
	TotalConversations int64
	TotalSummaries     int64
	UniqueUsers        int64
	UniqueApps         int64
	DBSizeMB           float64
}

// SQLiteMemory provides cross-session memory persistence backed by SQLite.
//
// It stores full conversation turns plus keyword-tagged summaries scoped by
// user and application, so an advisor can recall preferences and facts across
// sessions even when the underlying model has no native memory service. It is
// also the substrate for memory poisoning and cross-user contamination
// experiments in the redteam package.
//
// Tables:
//   - conversations: every stored message (user and agent), scoped by
//     user_id, app_name and session_id
//   - memory_summaries: extracted preference/fact/context summaries with
//     relevance scoring and access tracking
//
// Example:
//
//	mem, err := NewSQLiteMemory("data/voyagent_memory.db")
//	err = mem.StoreConversation(ctx, "alice", "travel-advisor", sessionID,
//	    "I prefer beach destinations", "Noted, I will keep that in mind.", nil)
//	records, err := mem.RetrieveMemories(ctx, "alice", "travel-advisor", "", 10)
type SQLiteMemory struct {
	dbPath string
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteMemory opens (creating if needed) a SQLite-backed memory store at
// dbPath. Parent directories are created automatically.
func NewSQLiteMemory(dbPath string) (*SQLiteMemory, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create memory directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory database: %w", err)
	}

	m := &SQLiteMemory{
		dbPath: dbPath,
		db:     db,
		logger: slog.Default(),
	}
	if err := m.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

// SetLogger replaces the logger used for injection warnings and cleanup logs.
func (m *SQLiteMemory) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

func (m *SQLiteMemory) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			app_name TEXT NOT NULL,
			session_id TEXT NOT NULL,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
			message_type TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS memory_summaries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			app_name TEXT NOT NULL,
			memory_type TEXT NOT NULL,
			summary TEXT NOT NULL,
			relevance_score REAL DEFAULT 1.0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			last_accessed DATETIME DEFAULT CURRENT_TIMESTAMP,
			access_count INTEGER DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conv_user_app ON conversations(user_id, app_name)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_user_app ON memory_summaries(user_id, app_name)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_relevance ON memory_summaries(relevance_score DESC)`,
	}

	for _, stmt := range statements {
		if _, err := m.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize memory schema: %w", err)
		}
	}
	return nil
}

// StoreConversation stores one conversation turn (user message plus agent
// response) and generates keyword-tagged summaries for later retrieval.
func (m *SQLiteMemory) StoreConversation(ctx context.Context, userID, appName, sessionID, userMessage, agentResponse string, metadata map[string]interface{}) error {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	const insert = `INSERT INTO conversations (user_id, app_name, session_id, message_type, content, metadata)
		VALUES (?, ?, ?, ?, ?, ?)`

	if _, err := tx.ExecContext(ctx, insert, userID, appName, sessionID, "user", userMessage, string(metaJSON)); err != nil {
		return fmt.Errorf("failed to store user message: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insert, userID, appName, sessionID, "agent", agentResponse, string(metaJSON)); err != nil {
		return fmt.Errorf("failed to store agent response: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit conversation: %w", err)
	}

	return m.generateSummaries(ctx, userID, appName, userMessage, agentResponse)
}

// generateSummaries extracts preference, fact and context summaries from a
// conversation turn.
func (m *SQLiteMemory) generateSummaries(ctx context.Context, userID, appName, userMessage, agentResponse string) error {
	lower := strings.ToLower(userMessage)

	if containsAny(lower, preferenceKeywords) {
		if err := m.storeSummary(ctx, userID, appName, "preference", userMessage, 1.0); err != nil {
			return err
		}
	}

	if containsAny(lower, factPatterns) {
		if err := m.storeSummary(ctx, userID, appName, "fact", userMessage, 1.0); err != nil {
			return err
		}
	}

	contextSummary := fmt.Sprintf("User discussed: %s... Agent provided: %s...",
		truncate(userMessage, 100), truncate(agentResponse, 100))
	return m.storeSummary(ctx, userID, appName, "context", contextSummary, 0.7)
}

func (m *SQLiteMemory) storeSummary(ctx context.Context, userID, appName, memoryType, summary string, relevanceScore float64) error {
	const insert = `INSERT INTO memory_summaries (user_id, app_name, memory_type, summary, relevance_score)
		VALUES (?, ?, ?, ?, ?)`
	if _, err := m.db.ExecContext(ctx, insert, userID, appName, memoryType, summary, relevanceScore); err != nil {
		return fmt.Errorf("failed to store memory summary: %w", err)
	}
	return nil
}

// RetrieveMemories returns recent conversations and top summaries for a user.
//
// Conversations come back most recent first, up to 2x limit. Summaries are
// ordered by relevance score then recency of access, up to limit. Retrieval
// bumps last_accessed and access_count on the user's summaries.
func (m *SQLiteMemory) RetrieveMemories(ctx context.Context, userID, appName, query string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}

	convRows, err := m.db.QueryContext(ctx, `
		SELECT DISTINCT session_id, timestamp, content, message_type
		FROM conversations
		WHERE user_id = ? AND app_name = ?
		ORDER BY timestamp DESC
		LIMIT ?`, userID, appName, limit*2)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer convRows.Close()

	memories := make([]Record, 0, limit*3)
	for convRows.Next() {
		rec := Record{Kind: "conversation"}
		if err := convRows.Scan(&rec.SessionID, &rec.Timestamp, &rec.Content, &rec.MessageType); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		memories = append(memories, rec)
	}
	if err := convRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read conversations: %w", err)
	}

	sumRows, err := m.db.QueryContext(ctx, `
		SELECT memory_type, summary, relevance_score, created_at
		FROM memory_summaries
		WHERE user_id = ? AND app_name = ?
		ORDER BY relevance_score DESC, last_accessed DESC
		LIMIT ?`, userID, appName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer sumRows.Close()

	for sumRows.Next() {
		rec := Record{Kind: "summary"}
		if err := sumRows.Scan(&rec.MemoryType, &rec.Content, &rec.RelevanceScore, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		memories = append(memories, rec)
	}
	if err := sumRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read summaries: %w", err)
	}

	if _, err := m.db.ExecContext(ctx, `
		UPDATE memory_summaries
		SET last_accessed = CURRENT_TIMESTAMP, access_count = access_count + 1
		WHERE user_id = ? AND app_name = ?`, userID, appName); err != nil {
		return nil, fmt.Errorf("failed to update access tracking: %w", err)
	}

	return memories, nil
}

// InjectMaliciousMemory plants attacker-controlled content in a user's memory
// for poisoning experiments. It stores a high-relevance summary plus a fake
// conversation turn so the content persists through both retrieval paths.
func (m *SQLiteMemory) InjectMaliciousMemory(ctx context.Context, userID, appName, content, memoryType string, relevanceScore float64) error {
	if memoryType == "" {
		memoryType = "preference"
	}
	if relevanceScore == 0 {
		relevanceScore = 1.0
	}

	if err := m.storeSummary(ctx, userID, appName, memoryType, content, relevanceScore); err != nil {
		return err
	}

	fakeSessionID := fmt.Sprintf("malicious_%d", time.Now().Unix())
	if err := m.StoreConversation(ctx, userID, appName, fakeSessionID,
		"[INJECTED] "+content,
		"[INJECTED] I understand and will remember this preference.",
		map[string]interface{}{"injected": true, "attack_type": "memory_poisoning"}); err != nil {
		return err
	}

	m.logger.WarnContext(ctx, "injected malicious memory",
		"user_id", userID,
		"content", truncate(content, 50))
	return nil
}

// ContaminateCrossUser copies malicious content from a source user into a
// target user's memory, simulating a cross-user contamination attack.
func (m *SQLiteMemory) ContaminateCrossUser(ctx context.Context, sourceUserID, targetUserID, appName, contaminationData string) error {
	if err := m.InjectMaliciousMemory(ctx, targetUserID, appName, contaminationData, "contamination", 0.9); err != nil {
		return err
	}

	m.logger.WarnContext(ctx, "cross-user contamination",
		"source_user", sourceUserID,
		"target_user", targetUserID)
	return nil
}

// ClearUser removes all memory for a user. An empty appName clears the user's
// memory across all applications.
func (m *SQLiteMemory) ClearUser(ctx context.Context, userID, appName string) error {
	var err error
	if appName != "" {
		_, err = m.db.ExecContext(ctx, `DELETE FROM conversations WHERE user_id = ? AND app_name = ?`, userID, appName)
		if err == nil {
			_, err = m.db.ExecContext(ctx, `DELETE FROM memory_summaries WHERE user_id = ? AND app_name = ?`, userID, appName)
		}
	} else {
		_, err = m.db.ExecContext(ctx, `DELETE FROM conversations WHERE user_id = ?`, userID)
		if err == nil {
			_, err = m.db.ExecContext(ctx, `DELETE FROM memory_summaries WHERE user_id = ?`, userID)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to clear user memory: %w", err)
	}

	m.logger.InfoContext(ctx, "cleared user memory", "user_id", userID)
	return nil
}

// GetStats returns memory system statistics.
func (m *SQLiteMemory) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats

	queries := []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(*) FROM conversations`, &stats.TotalConversations},
		{`SELECT COUNT(*) FROM memory_summaries`, &stats.TotalSummaries},
		{`SELECT COUNT(DISTINCT user_id) FROM conversations`, &stats.UniqueUsers},
		{`SELECT COUNT(DISTINCT app_name) FROM conversations`, &stats.UniqueApps},
	}
	for _, q := range queries {
		if err := m.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return Stats{}, fmt.Errorf("failed to collect memory stats: %w", err)
		}
	}

	if info, err := os.Stat(m.dbPath); err == nil {
		stats.DBSizeMB = float64(info.Size()) / (1024 * 1024)
	}

	return stats, nil
}

// Close closes the underlying database.
func (m *SQLiteMemory) Close() error {
	return m.db.Close()
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// truncate shortens s to at most n runes. Cutting on a rune boundary keeps
// summaries valid UTF-8 for non-ASCII conversations.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
