package toolbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/voyagent/voyagent/voyagent"
)

// DefaultToolsetName is the toolset serving the travel database tools.
const DefaultToolsetName = "travel-database"

// ToolSpec describes one remote tool as advertised by the Toolbox server.
type ToolSpec struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Parameters  map[string]ParamSpec `json:"parameters"`
}

// ParamSpec describes a single tool parameter.
type ParamSpec struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Client talks to an MCP Toolbox server over HTTP with service account auth.
//
// Example:
//
//	auth, err := toolbox.NewAuthProvider(ctx, "my-project")
//	client := toolbox.NewClient("http://localhost:5000", auth)
//	tools, err := client.LoadToolset(ctx, "travel-database")
type Client struct {
	baseURL    string
	auth       *AuthProvider
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Toolbox client. An empty toolboxURL defaults to
// http://localhost:5000.
func NewClient(toolboxURL string, auth *AuthProvider) *Client {
	if toolboxURL == "" {
		toolboxURL = "http://localhost:5000"
	}
	return &Client{
		baseURL:    toolboxURL,
		auth:       auth,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     slog.Default(),
	}
}

// SetLogger replaces the client logger.
func (c *Client) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	headers, err := c.auth.Headers()
	if err != nil {
		return nil, err
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("toolbox request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read toolbox response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("toolbox returned status %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}

// LoadToolset fetches all tool specs in a toolset. An empty name loads
// DefaultToolsetName.
func (c *Client) LoadToolset(ctx context.Context, toolsetName string) ([]ToolSpec, error) {
	if toolsetName == "" {
		toolsetName = DefaultToolsetName
	}

	data, err := c.doRequest(ctx, http.MethodGet, "/api/toolset/"+toolsetName, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load toolset %q: %w", toolsetName, err)
	}

	var manifest struct {
		Tools map[string]struct {
			Description string               `json:"description"`
			Parameters  map[string]ParamSpec `json:"parameters"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to decode toolset manifest: %w", err)
	}

	specs := make([]ToolSpec, 0, len(manifest.Tools))
	for name, tool := range manifest.Tools {
		specs = append(specs, ToolSpec{
			Name:        name,
			Description: tool.Description,
			Parameters:  tool.Parameters,
		})
	}

	c.logger.InfoContext(ctx, "loaded toolset", "toolset", toolsetName, "tools", len(specs))
	return specs, nil
}

// LoadTool fetches a single tool spec by name.
func (c *Client) LoadTool(ctx context.Context, toolName string) (*ToolSpec, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/api/tool/"+toolName, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load tool %q: %w", toolName, err)
	}

	var spec ToolSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to decode tool spec: %w", err)
	}
	if spec.Name == "" {
		spec.Name = toolName
	}

	c.logger.InfoContext(ctx, "loaded tool", "tool", toolName)
	return &spec, nil
}

// Invoke executes a remote tool with the given parameters and returns its
// textual result.
func (c *Client) Invoke(ctx context.Context, toolName string, params map[string]interface{}) (string, error) {
	data, err := c.doRequest(ctx, http.MethodPost, "/api/tool/"+toolName+"/invoke", params)
	if err != nil {
		return "", fmt.Errorf("failed to invoke tool %q: %w", toolName, err)
	}

	var result struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		// Some tools return raw text
		return string(data), nil
	}
	return result.Result, nil
}

// RemoteTool adapts a Toolbox tool spec into the agent Tool interface.
type RemoteTool struct {
	client *Client
	spec   ToolSpec
}

// NewRemoteTool wraps a tool spec with the client used to invoke it.
func NewRemoteTool(client *Client, spec ToolSpec) *RemoteTool {
	return &RemoteTool{client: client, spec: spec}
}

// Name returns the tool name.
func (t *RemoteTool) Name() string { return t.spec.Name }

// Description returns the tool description.
func (t *RemoteTool) Description() string { return t.spec.Description }

// Execute invokes the remote tool.
func (t *RemoteTool) Execute(ctx context.Context, params map[string]interface{}) (*voyagent.ToolResult, error) {
	result, err := t.client.Invoke(ctx, t.spec.Name, params)
	if err != nil {
		return voyagent.NewToolError(err.Error()), nil
	}
	return voyagent.NewToolResult(result), nil
}

var _ voyagent.Tool = (*RemoteTool)(nil)
