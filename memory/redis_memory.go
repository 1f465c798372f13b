package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voyagent/voyagent/voyagent"
)

// RedisMemory provides Redis-backed memory with TTL.
//
// Features:
//   - Persistent storage (survives restarts)
//   - TTL support (automatic expiry)
//   - Shared memory across advisor instances
//
// Use cases:
//   - Production deployments with multiple advisor replicas
//   - When session history must survive process restarts
//
// Redis Data Structure:
//   - Key: "voyagent:memory:{session_id}:messages"
//   - Type: Sorted Set (ZSET)
//   - Score: Timestamp (for ordering)
//   - Value: JSON(message, metadata)
//
// Example:
//
//	mem, err := NewRedisMemory("redis://localhost:6379", 86400, "voyagent:memory")
//	err = mem.Store(ctx, "session-123", message, nil)
type RedisMemory struct {
	redisURL  string
	ttl       time.Duration
	keyPrefix string
	client    *redis.Client
}

// NewRedisMemory creates a new Redis-backed memory instance.
//
// Args:
//
//	redisURL: Redis connection URL
//	ttlSeconds: Time-to-live in seconds (0 = no expiry)
//	keyPrefix: Prefix for Redis keys
func NewRedisMemory(redisURL string, ttlSeconds int, keyPrefix string) (*RedisMemory, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	return &RedisMemory{
		redisURL:  redisURL,
		ttl:       time.Duration(ttlSeconds) * time.Second,
		keyPrefix: keyPrefix,
		client:    redis.NewClient(opts),
	}, nil
}

// sessionKey returns the Redis key for a session.
func (r *RedisMemory) sessionKey(sessionID string) string {
	return fmt.Sprintf("%s:%s:messages", r.keyPrefix, sessionID)
}

func (r *RedisMemory) serializeMessage(message *voyagent.Message, metadata map[string]interface{}) (string, error) {
	data := map[string]interface{}{
		"role":     message.Role,
		"content":  message.Content,
		"metadata": metadata,
	}
	bytes, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to serialize message: %w", err)
	}
	return string(bytes), nil
}

func (r *RedisMemory) deserializeMessage(data string) (*voyagent.Message, map[string]interface{}, error) {
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(data), &parsed); err != nil {
		return nil, nil, fmt.Errorf("failed to deserialize message: %w", err)
	}

	role, _ := parsed["role"].(string)
	content, _ := parsed["content"].(string)
	metadata, _ := parsed["metadata"].(map[string]interface{})
	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	return voyagent.NewMessage(role, content), metadata, nil
}

// Store saves a message to Redis with optional metadata.
func (r *RedisMemory) Store(ctx context.Context, sessionID string, message *voyagent.Message, metadata map[string]interface{}) error {
	timestamp := float64(time.Now().UnixNano()) / 1e9
	if metadata == nil {
		metadata = make(map[string]interface{})
	}
	value, err := r.serializeMessage(message, metadata)
	if err != nil {
		return err
	}

	// Sorted set ordered by timestamp
	key := r.sessionKey(sessionID)
	if err := r.client.ZAdd(ctx, key, redis.Z{
		Score:  timestamp,
		Member: value,
	}).Err(); err != nil {
		return fmt.Errorf("failed to store message: %w", err)
	}

	if r.ttl > 0 {
		if err := r.client.Expire(ctx, key, r.ttl).Err(); err != nil {
			return fmt.Errorf("failed to set TTL: %w", err)
		}
	}

	return nil
}

// Retrieve fetches messages from Redis, most recent first.
func (r *RedisMemory) Retrieve(ctx context.Context, sessionID string, opts RetrieveOptions) ([]*voyagent.Message, error) {
	key := r.sessionKey(sessionID)

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	// ZREVRANGE returns highest scores first
	values, err := r.client.ZRevRangeWithScores(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve messages: %w", err)
	}

	if len(values) == 0 {
		return []*voyagent.Message{}, nil
	}

	filtered := make([]*voyagent.Message, 0)
	for _, value := range values {
		data, ok := value.Member.(string)
		if !ok {
			continue
		}

		message, metadata, err := r.deserializeMessage(data)
		if err != nil {
			continue // Skip malformed messages
		}

		timestamp := int64(value.Score)

		if opts.TimeRange != nil {
			if timestamp < opts.TimeRange.Start || timestamp > opts.TimeRange.End {
				continue
			}
		}

		if opts.ImportanceThreshold != nil {
			importance := 0.0
			if val, ok := metadata["importance"]; ok {
				if f, ok := val.(float64); ok {
					importance = f
				}
			}
			if importance < *opts.ImportanceThreshold {
				continue
			}
		}

		if len(opts.Tags) > 0 && !hasAnyTag(metadata, opts.Tags) {
			continue
		}

		filtered = append(filtered, message)

		if len(filtered) >= limit {
			break
		}
	}

	return filtered, nil
}

// Summarize creates a summary of conversation history.
func (r *RedisMemory) Summarize(ctx context.Context, sessionID string, opts SummarizeOptions) (*voyagent.Message, error) {
	messages, err := r.Retrieve(ctx, sessionID, RetrieveOptions{Limit: 100})
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
func (r *RedisMemory) Clear(ctx context.Context, sessionID string) error {
	key := r.sessionKey(sessionID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Capabilities returns the memory capabilities.
func (r *RedisMemory) Capabilities() []string {
	return []string{
		"basic_retrieval",
		"persistence",
		"ttl",
		"time_filtering",
		"importance_filtering",
		"tag_filtering",
	}
}

// GetSessionCount returns the number of messages stored for a session.
func (r *RedisMemory) GetSessionCount(ctx context.Context, sessionID string) (int64, error) {
	key := r.sessionKey(sessionID)
	count, err := r.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get session count: %w", err)
	}
	return count, nil
}

// GetAllSessions returns a list of all session IDs.
func (r *RedisMemory) GetAllSessions(ctx context.Context) ([]string, error) {
	pattern := fmt.Sprintf("%s:*:messages", r.keyPrefix)
	sessions := make([]string, 0)

	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		// Key format: "voyagent:memory:{session_id}:messages"
		parts := strings.Split(key, ":")
		if len(parts) >= 3 {
			sessions = append(sessions, parts[len(parts)-2])
		}
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}

	return sessions, nil
}

// Close closes the Redis connection.
func (r *RedisMemory) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

var _ Memory = (*RedisMemory)(nil)
