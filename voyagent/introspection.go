package voyagent

import (
	"fmt"
	"time"
)

// IntrospectionResult is a snapshot of an agent's internal state: what it
// can do, what it remembers, and any agent-specific counters.
type IntrospectionResult struct {
	// Timestamp when introspection was performed (UTC)
	Timestamp time.Time `json:"timestamp"`

	// AgentName is the name of the agent that was introspected
	AgentName string `json:"agent_name"`

	// Capabilities is the list of capability strings this agent supports
	Capabilities []string `json:"capabilities"`

	// MemoryState contains the agent's memory contents (nil if no memory)
	MemoryState map[string]interface{} `json:"memory_state,omitempty"`

	// InternalState contains agent-specific internal state
	InternalState map[string]interface{} `json:"internal_state"`

	// Metadata provides additional introspection information
	Metadata map[string]interface{} `json:"metadata"`
}

// NewIntrospectionResult creates a validated introspection result.
func NewIntrospectionResult(
	agentName string,
	capabilities []string,
	memoryState map[string]interface{},
	internalState map[string]interface{},
	metadata map[string]interface{},
) (*IntrospectionResult, error) {
	if agentName == "" {
		return nil, fmt.Errorf("agent name cannot be empty")
	}
	if capabilities == nil {
		return nil, fmt.Errorf("capabilities cannot be nil (use empty slice)")
	}
	if internalState == nil {
		return nil, fmt.Errorf("internal state cannot be nil (use empty map)")
	}
	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	return &IntrospectionResult{
		Timestamp:     time.Now().UTC(),
		AgentName:     agentName,
		Capabilities:  capabilities,
		MemoryState:   memoryState,
		InternalState: internalState,
		Metadata:      metadata,
	}, nil
}

// DefaultIntrospectionResult builds a minimal introspection result for
// agents without memory or internal counters.
func DefaultIntrospectionResult(agent Agent) *IntrospectionResult {
	result, _ := NewIntrospectionResult(
		agent.Name(),
		agent.Capabilities(),
		nil,
		map[string]interface{}{},
		nil,
	)
	return result
}
