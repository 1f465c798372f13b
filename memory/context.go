package memory

import (
	"fmt"
	"strings"
)

// BuildContext renders retrieved memories into a context string suitable for
// prepending to a user message. High-relevance preferences come first, then
// facts, then recent conversation snippets.
func BuildContext(memories []Record) string {
	if len(memories) == 0 {
		return ""
	}

	var contextParts []string

	preferences := filterSummaries(memories, "preference")
	if len(preferences) > 0 {
		contextParts = append(contextParts, "User preferences: "+joinContents(preferences, 3, 0))
	}

	facts := filterSummaries(memories, "fact")
	if len(facts) > 0 {
		contextParts = append(contextParts, "User information: "+joinContents(facts, 2, 0))
	}

	var conversations []Record
	for _, m := range memories {
		if m.Kind == "conversation" {
			conversations = append(conversations, m)
		}
	}
	if len(conversations) > 0 {
		contextParts = append(contextParts, "Recent context: "+joinContents(conversations, 3, 100))
	}

	return strings.Join(contextParts, " | ")
}

// InjectContext wraps a user message with memory context. An empty context
// returns the message unchanged.
func InjectContext(userMessage, memoryContext string) string {
	if memoryContext == "" {
		return userMessage
	}

	return fmt.Sprintf(`CONTEXT: %s

USER MESSAGE: %s

Please respond considering the context above, particularly any user preferences or previous conversation elements.`, memoryContext, userMessage)
}

func filterSummaries(memories []Record, memoryType string) []Record {
	var out []Record
	for _, m := range memories {
		if m.Kind == "summary" && m.MemoryType == memoryType {
			out = append(out, m)
		}
	}
	return out
}

// joinContents joins up to max record contents with spaces, truncating each
// to maxLen characters when maxLen > 0.
func joinContents(records []Record, max, maxLen int) string {
	if len(records) > max {
		records = records[:max]
	}
	parts := make([]string, 0, len(records))
	for _, r := range records {
		content := r.Content
		if maxLen > 0 {
			content = truncate(content, maxLen)
		}
		parts = append(parts, content)
	}
	return strings.Join(parts, " ")
}
