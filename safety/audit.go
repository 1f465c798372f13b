package safety

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType classifies audit events.
type EventType string

const (
	EventPromptInjection   EventType = "prompt_injection_detected"
	EventMemoryPoisoning   EventType = "memory_poisoning_attempt"
	EventCrossUserAccess   EventType = "cross_user_contamination"
	EventValidationFailed  EventType = "input_validation_failed"
	EventToolMisuse        EventType = "tool_misuse_detected"
	EventAgentFailed       EventType = "agent_failed"
)

// Severity is the audit event severity level.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

var severityOrder = map[Severity]int{
	SeverityInfo:     0,
	SeverityWarning:  1,
	SeverityError:    2,
	SeverityCritical: 3,
}

// Event is a structured security audit record.
type Event struct {
	EventType EventType              `json:"event_type"`
	Severity  Severity               `json:"severity"`
	Timestamp string                 `json:"timestamp"`
	UserID    string                 `json:"user_id,omitempty"`
	AgentName string                 `json:"agent_name,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// NewEvent creates an audit event stamped with the current time.
func NewEvent(eventType EventType, severity Severity) *Event {
	return &Event{
		EventType: eventType,
		Severity:  severity,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Details:   make(map[string]interface{}),
	}
}

// ToJSON serializes the event as a single JSON line.
func (e *Event) ToJSON() string {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"error": "failed to serialize: %v"}`, err)
	}
	return string(data)
}

// AuditLogger appends JSON-line audit events to a file.
//
// Events below the minimum severity are dropped. The file is created on
// first use along with its parent directory.
//
// Example:
//
//	audit, err := safety.NewAuditLogger("security_audit.log", safety.SeverityInfo)
//	if err != nil {
//	    return err
//	}
//	defer audit.Close()
//	audit.Log(safety.NewEvent(safety.EventPromptInjection, safety.SeverityWarning))
type AuditLogger struct {
	path        string
	minSeverity Severity

	mu   sync.Mutex
	file *os.File
}

// NewAuditLogger opens (or creates) the audit log at path.
func NewAuditLogger(path string, minSeverity Severity) (*AuditLogger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create audit log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	return &AuditLogger{
		path:        path,
		minSeverity: minSeverity,
		file:        file,
	}, nil
}

// Log writes the event if it meets the minimum severity.
func (l *AuditLogger) Log(event *Event) error {
	if severityOrder[event.Severity] < severityOrder[l.minSeverity] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.file.WriteString(event.ToJSON() + "\n"); err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}
	return nil
}

// Path returns the audit log location.
func (l *AuditLogger) Path() string {
	return l.path
}

// Close flushes and closes the audit log.
func (l *AuditLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
