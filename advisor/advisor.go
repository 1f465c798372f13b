// Package advisor implements the travel advisor conversational agent, the
// intent-routing orchestrator above it, and the runner that wires sessions
// and cross-session memory around each turn.
package advisor

import (
	"context"
	"fmt"
	"sync"

	"github.com/voyagent/voyagent/adapter/llm"
	"github.com/voyagent/voyagent/voyagent"
)

// Config configures an Advisor.
type Config struct {
	// LLM generates completions for the advisor
	LLM llm.LLM

	// MaxHistory is the maximum number of messages retained in the
	// conversation window (default: 20). System messages are always kept.
	MaxHistory int

	// ProjectID and DatasetID qualify table names in the generated
	// instruction prompt. Ignored when Instruction is set.
	ProjectID string
	DatasetID string

	// Instruction overrides the generated system instruction.
	Instruction string
}

// Advisor is the travel advisor agent.
//
// It maintains conversation history across turns so the model can build on
// previous exchanges, pruning the oldest non-system messages when the window
// fills. The system instruction carries the database usage rules the model
// follows when it emits SQL for the warehouse tools.
//
// Example:
//
//	adv, err := advisor.New(&advisor.Config{
//	    LLM:       model,
//	    ProjectID: "my-project",
//	})
//	if err != nil {
//	    return err
//	}
//	resp, err := adv.Process(ctx, voyagent.NewMessage("user", "Find budget beach destinations"))
type Advisor struct {
	name        string
	model       llm.LLM
	maxHistory  int
	instruction string

	mu      sync.Mutex
	history []*voyagent.Message
}

var _ voyagent.Agent = (*Advisor)(nil)

// New creates a travel advisor agent.
func New(config *Config) (*Advisor, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.LLM == nil {
		return nil, fmt.Errorf("llm is required")
	}

	maxHistory := config.MaxHistory
	if maxHistory == 0 {
		maxHistory = 20
	}

	instruction := config.Instruction
	if instruction == "" {
		instruction = InstructionPrompt(config.ProjectID, config.DatasetID)
	}

	a := &Advisor{
		name:        "TravelAdvisor",
		model:       config.LLM,
		maxHistory:  maxHistory,
		instruction: instruction,
		history:     make([]*voyagent.Message, 0),
	}
	a.history = append(a.history, voyagent.NewMessage("system", instruction))
	return a, nil
}

// Name returns the agent's identifier.
func (a *Advisor) Name() string {
	return a.name
}

// Capabilities returns the agent's capabilities.
func (a *Advisor) Capabilities() []string {
	return []string{"conversational", "travel_advice", "history_management"}
}

// Instruction returns the system instruction in effect.
func (a *Advisor) Instruction() string {
	return a.instruction
}

// Process generates a response with full conversation context.
//
// Both the input message and the response are added to history. When history
// exceeds the window, the oldest non-system messages are dropped first.
func (a *Advisor) Process(ctx context.Context, message *voyagent.Message) (*voyagent.Message, error) {
	if message == nil {
		return nil, fmt.Errorf("message cannot be nil")
	}

	a.mu.Lock()
	a.history = append(a.history, message)
	a.pruneHistory()
	window := make([]*voyagent.Message, len(a.history))
	copy(window, a.history)
	a.mu.Unlock()

	response, err := a.model.Complete(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("llm completion failed: %w", err)
	}

	a.mu.Lock()
	a.history = append(a.history, response)
	a.pruneHistory()
	a.mu.Unlock()

	return response, nil
}

// pruneHistory drops the oldest non-system messages past the window limit.
// Callers must hold the mutex.
func (a *Advisor) pruneHistory() {
	if len(a.history) <= a.maxHistory {
		return
	}

	system := make([]*voyagent.Message, 0, 1)
	conversation := make([]*voyagent.Message, 0, len(a.history))
	for _, msg := range a.history {
		if msg.Role == "system" {
			system = append(system, msg)
		} else {
			conversation = append(conversation, msg)
		}
	}

	keep := a.maxHistory - len(system)
	if keep < 0 {
		keep = 0
	}
	if len(conversation) > keep {
		conversation = conversation[len(conversation)-keep:]
	}

	a.history = append(system, conversation...)
}

// ClearHistory resets the conversation, keeping the system instruction.
func (a *Advisor) ClearHistory() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = []*voyagent.Message{voyagent.NewMessage("system", a.instruction)}
}

// History returns a copy of the current conversation window.
func (a *Advisor) History() []*voyagent.Message {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]*voyagent.Message, len(a.history))
	for i, msg := range a.history {
		cp := voyagent.NewMessage(msg.Role, msg.Content)
		for k, v := range msg.Metadata {
			cp.Metadata[k] = v
		}
		cp.Timestamp = msg.Timestamp
		out[i] = cp
	}
	return out
}

// HistoryLength returns the number of messages in the window.
func (a *Advisor) HistoryLength() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.history)
}

// Introspect reports the advisor's internal state snapshot.
func (a *Advisor) Introspect() *voyagent.IntrospectionResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	result, _ := voyagent.NewIntrospectionResult(
		a.name,
		a.Capabilities(),
		nil,
		map[string]interface{}{
			"history_length": len(a.history),
			"max_history":    a.maxHistory,
			"model":          a.model.Model(),
		},
		nil,
	)
	return result
}

var _ voyagent.Introspector = (*Advisor)(nil)
