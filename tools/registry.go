// Package tools provides the travel advisor's tool surface: tool registry
// and dispatch, mock travel lookups (weather, flights, hotels, currency),
// and deliberately vulnerable file and SQL tools used as red-team targets.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/voyagent/voyagent/voyagent"
)

// Registry manages available tools for an agent.
type Registry struct {
	tools map[string]voyagent.Tool
}

// NewRegistry creates a new tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]voyagent.Tool),
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool voyagent.Tool) error {
	if tool == nil {
		return fmt.Errorf("tool cannot be nil")
	}
	if tool.Name() == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if _, exists := r.tools[tool.Name()]; exists {
		return fmt.Errorf("tool '%s' is already registered", tool.Name())
	}
	r.tools[tool.Name()] = tool
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (voyagent.Tool, bool) {
	tool, exists := r.tools[name]
	return tool, exists
}

// List returns all registered tool names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptions returns a formatted description of all available tools.
func (r *Registry) Descriptions() string {
	if len(r.tools) == 0 {
		return "No tools available."
	}

	var sb strings.Builder
	sb.WriteString("Available tools:\n")
	for _, name := range r.List() {
		tool := r.tools[name]
		sb.WriteString(fmt.Sprintf("- %s: %s\n", name, tool.Description()))
	}
	return sb.String()
}

// ToolCall represents a request to execute a tool.
type ToolCall struct {
	ToolName   string                 `json:"tool_name"`
	Parameters map[string]interface{} `json:"parameters"`
}

// ToolAgent wraps an agent with tool calling capabilities.
//
// If a message carries tool calls in its "tool_calls" metadata, they are
// executed against the registry and the results returned. Otherwise the
// message passes through to the underlying agent.
type ToolAgent struct {
	agent    voyagent.Agent
	registry *Registry
}

var _ voyagent.Agent = (*ToolAgent)(nil)

// NewToolAgent creates a new tool-enabled agent.
func NewToolAgent(agent voyagent.Agent, registry *Registry) *ToolAgent {
	return &ToolAgent{
		agent:    agent,
		registry: registry,
	}
}

// Name returns the name of the underlying agent.
func (t *ToolAgent) Name() string {
	return t.agent.Name()
}

// Capabilities returns the capabilities of the underlying agent plus tool support.
func (t *ToolAgent) Capabilities() []string {
	caps := t.agent.Capabilities()
	return append(caps, "tool_calling")
}

// Process handles a message with tool calling support.
func (t *ToolAgent) Process(ctx context.Context, message *voyagent.Message) (*voyagent.Message, error) {
	toolCallsData, hasToolCalls := message.Metadata["tool_calls"]
	if !hasToolCalls {
		return t.agent.Process(ctx, message)
	}

	toolCalls, err := t.parseToolCalls(toolCallsData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tool calls: %w", err)
	}

	results := make([]*voyagent.ToolResult, len(toolCalls))
	for i, call := range toolCalls {
		result, err := t.executeTool(ctx, call)
		if err != nil {
			results[i] = voyagent.NewToolError(err.Error())
		} else {
			results[i] = result
		}
	}

	response := voyagent.NewMessage("agent", t.formatToolResults(results))
	response.Metadata["tool_results"] = results
	return response, nil
}

// parseToolCalls converts metadata to ToolCall structures.
func (t *ToolAgent) parseToolCalls(data interface{}) ([]*ToolCall, error) {
	// Round-trip through JSON for type safety
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool calls: %w", err)
	}

	var calls []*ToolCall
	if err := json.Unmarshal(jsonData, &calls); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tool calls: %w", err)
	}

	return calls, nil
}

func (t *ToolAgent) executeTool(ctx context.Context, call *ToolCall) (*voyagent.ToolResult, error) {
	tool, exists := t.registry.Get(call.ToolName)
	if !exists {
		return nil, fmt.Errorf("tool '%s' not found", call.ToolName)
	}

	return tool.Execute(ctx, call.Parameters)
}

func (t *ToolAgent) formatToolResults(results []*voyagent.ToolResult) string {
	var sb strings.Builder
	sb.WriteString("Tool execution results:\n")
	for i, result := range results {
		if result.Success {
			sb.WriteString(fmt.Sprintf("%d. Success: %v\n", i+1, result.Data))
		} else {
			sb.WriteString(fmt.Sprintf("%d. Error: %s\n", i+1, result.Error))
		}
	}
	return sb.String()
}

// GetRegistry returns the tool registry for this agent.
func (t *ToolAgent) GetRegistry() *Registry {
	return t.registry
}
