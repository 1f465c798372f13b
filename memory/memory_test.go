package memory

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/voyagent/voyagent/voyagent"
)

func TestInMemoryMemory(t *testing.T) {
	ctx := context.Background()
	mem := NewInMemoryMemory(100)

	// Test Store
	msg1 := voyagent.NewMessage("user", "I want a beach vacation")
	err := mem.Store(ctx, "session-1", msg1, nil)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	msg2 := voyagent.NewMessage("agent", "Bali is a great fit")
	err = mem.Store(ctx, "session-1", msg2, map[string]interface{}{"importance": 0.8})
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	// Test Retrieve
	messages, err := mem.Retrieve(ctx, "session-1", RetrieveOptions{Limit: 10})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	if len(messages) != 2 {
		t.Errorf("Expected 2 messages, got %d", len(messages))
	}

	// Should be most recent first
	if messages[0].Content != "Bali is a great fit" {
		t.Errorf("Expected 'Bali is a great fit', got '%s'", messages[0].Content)
	}

	// Test GetSessionCount
	count := mem.GetSessionCount("session-1")
	if count != 2 {
		t.Errorf("Expected count 2, got %d", count)
	}

	// Test Clear
	err = mem.Clear(ctx, "session-1")
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	messages, err = mem.Retrieve(ctx, "session-1", RetrieveOptions{Limit: 10})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	if len(messages) != 0 {
		t.Errorf("Expected 0 messages after clear, got %d", len(messages))
	}
}

func TestInMemoryMemoryFiltering(t *testing.T) {
	ctx := context.Background()
	mem := NewInMemoryMemory(100)

	msg1 := voyagent.NewMessage("user", "Low importance")
	err := mem.Store(ctx, "session-1", msg1, map[string]interface{}{"importance": 0.3})
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	msg2 := voyagent.NewMessage("user", "High importance")
	err = mem.Store(ctx, "session-1", msg2, map[string]interface{}{"importance": 0.9})
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	threshold := 0.5
	messages, err := mem.Retrieve(ctx, "session-1", RetrieveOptions{
		Limit:               10,
		ImportanceThreshold: &threshold,
	})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	if len(messages) != 1 {
		t.Fatalf("Expected 1 message above threshold, got %d", len(messages))
	}
	if messages[0].Content != "High importance" {
		t.Errorf("Expected 'High importance', got '%s'", messages[0].Content)
	}

	// Tag filtering
	msg3 := voyagent.NewMessage("user", "Tagged message")
	err = mem.Store(ctx, "session-1", msg3, map[string]interface{}{"tags": []string{"booking"}})
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	messages, err = mem.Retrieve(ctx, "session-1", RetrieveOptions{
		Limit: 10,
		Tags:  []string{"booking"},
	})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	if len(messages) != 1 {
		t.Fatalf("Expected 1 tagged message, got %d", len(messages))
	}
	if messages[0].Content != "Tagged message" {
		t.Errorf("Expected 'Tagged message', got '%s'", messages[0].Content)
	}
}

func TestInMemoryMemoryLRUEviction(t *testing.T) {
	ctx := context.Background()
	mem := NewInMemoryMemory(3)

	for i := 0; i < 5; i++ {
		msg := voyagent.NewMessage("user", fmt.Sprintf("Message %d", i))
		if err := mem.Store(ctx, "session-1", msg, nil); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
	}

	if count := mem.GetSessionCount("session-1"); count != 3 {
		t.Errorf("Expected 3 messages after eviction, got %d", count)
	}

	messages, err := mem.Retrieve(ctx, "session-1", RetrieveOptions{Limit: 10})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	// Oldest two should be evicted
	for _, msg := range messages {
		if msg.Content == "Message 0" || msg.Content == "Message 1" {
			t.Errorf("Evicted message still present: %s", msg.Content)
		}
	}
}

func TestInMemoryMemorySummarize(t *testing.T) {
	ctx := context.Background()
	mem := NewInMemoryMemory(100)

	summary, err := mem.Summarize(ctx, "empty-session", SummarizeOptions{})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary.Content != "No messages in session." {
		t.Errorf("Unexpected empty summary: %s", summary.Content)
	}

	if err := mem.Store(ctx, "session-1", voyagent.NewMessage("user", "Plan a trip to Tokyo"), nil); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	summary, err = mem.Summarize(ctx, "session-1", SummarizeOptions{})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary.Role != "system" {
		t.Errorf("Expected role 'system', got '%s'", summary.Role)
	}
	if !strings.Contains(summary.Content, "Plan a trip to Tokyo") {
		t.Errorf("Summary missing message content: %s", summary.Content)
	}
}
