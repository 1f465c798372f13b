package toolbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/voyagent/voyagent/voyagent"
	"github.com/voyagent/voyagent/warehouse"
)

// MockClient serves the travel-database toolset directly from the warehouse,
// for development and testing when no Toolbox server is running. The tools it
// produces have the same names and parameters as the remote ones.
type MockClient struct {
	warehouse *warehouse.Service
	logger    *slog.Logger
}

// NewMockClient creates a mock Toolbox client over a warehouse service.
func NewMockClient(svc *warehouse.Service) *MockClient {
	return &MockClient{
		warehouse: svc,
		logger:    slog.Default(),
	}
}

// Tools returns the mock travel-database tools.
func (m *MockClient) Tools() []voyagent.Tool {
	tools := []voyagent.Tool{
		&searchDestinationsTool{warehouse: m.warehouse},
		&savePreferencesTool{warehouse: m.warehouse},
		&getPreferencesTool{warehouse: m.warehouse},
	}
	m.logger.Info("created mock database tools", "count", len(tools))
	return tools
}

// FilterTools returns the subset of tools named by specs, in spec order.
// Used when a local manifest narrows the served toolset.
func FilterTools(all []voyagent.Tool, specs []ToolSpec) []voyagent.Tool {
	byName := make(map[string]voyagent.Tool, len(all))
	for _, tool := range all {
		byName[tool.Name()] = tool
	}

	filtered := make([]voyagent.Tool, 0, len(specs))
	for _, spec := range specs {
		if tool, ok := byName[spec.Name]; ok {
			filtered = append(filtered, tool)
		}
	}
	return filtered
}

func paramString(params map[string]interface{}, key, fallback string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func paramInt(params map[string]interface{}, key string, fallback int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}

type searchDestinationsTool struct {
	warehouse *warehouse.Service
}

func (t *searchDestinationsTool) Name() string { return "search_destinations" }

func (t *searchDestinationsTool) Description() string {
	return "Search for travel destinations based on criteria"
}

func (t *searchDestinationsTool) Execute(ctx context.Context, params map[string]interface{}) (*voyagent.ToolResult, error) {
	userID := paramString(params, "user_id", "default_user")
	filter := warehouse.SearchFilter{
		BudgetCategory: paramString(params, "budget_category", ""),
		Region:         paramString(params, "region", ""),
		Category:       paramString(params, "category", ""),
		Season:         paramString(params, "season", ""),
		Limit:          paramInt(params, "limit", 10),
	}

	results, err := t.warehouse.SearchDestinations(ctx, userID, filter)
	if err != nil {
		return voyagent.NewToolError(fmt.Sprintf("Error searching destinations: %v", err)), nil
	}

	if len(results) == 0 {
		return voyagent.NewToolResult("No destinations found matching your criteria."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d destinations:\n\n", len(results))
	for _, dest := range results {
		fmt.Fprintf(&b, "**%s, %s**\n", dest.Name, dest.Country)
		fmt.Fprintf(&b, "   Category: %s\n", dest.Category)
		fmt.Fprintf(&b, "   Region: %s\n", dest.Region)
		fmt.Fprintf(&b, "   Best Season: %s\n", dest.BestSeason)
		fmt.Fprintf(&b, "   Budget: %s\n", dest.BudgetCategory)
		fmt.Fprintf(&b, "   Description: %s\n\n", dest.Description)
	}
	return voyagent.NewToolResult(b.String()), nil
}

type savePreferencesTool struct {
	warehouse *warehouse.Service
}

func (t *savePreferencesTool) Name() string { return "save_user_preferences" }

func (t *savePreferencesTool) Description() string {
	return "Save user travel preferences"
}

func (t *savePreferencesTool) Execute(ctx context.Context, params map[string]interface{}) (*voyagent.ToolResult, error) {
	userID := paramString(params, "user_id", "")
	if userID == "" {
		return voyagent.NewToolError("user_id is required"), nil
	}
	sessionID := paramString(params, "session_id", "default_session")

	var preferences map[string]interface{}
	if raw := paramString(params, "preferences_json", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &preferences); err != nil {
			return voyagent.NewToolError(fmt.Sprintf("Error saving preferences: %v", err)), nil
		}
	} else if prefs, ok := params["preferences"].(map[string]interface{}); ok {
		preferences = prefs
	}
	if len(preferences) == 0 {
		return voyagent.NewToolError("no preferences provided"), nil
	}

	if err := t.warehouse.SaveUserPreferences(ctx, userID, preferences, sessionID); err != nil {
		return voyagent.NewToolError(fmt.Sprintf("Error saving preferences: %v", err)), nil
	}

	types := make([]string, 0, len(preferences))
	for prefType := range preferences {
		types = append(types, prefType)
	}
	return voyagent.NewToolResult(fmt.Sprintf("Saved preferences for user %s: %v", userID, types)), nil
}

type getPreferencesTool struct {
	warehouse *warehouse.Service
}

func (t *getPreferencesTool) Name() string { return "get_user_preferences" }

func (t *getPreferencesTool) Description() string {
	return "Get user travel preferences"
}

func (t *getPreferencesTool) Execute(ctx context.Context, params map[string]interface{}) (*voyagent.ToolResult, error) {
	userID := paramString(params, "user_id", "")
	if userID == "" {
		return voyagent.NewToolError("user_id is required"), nil
	}

	preferences, err := t.warehouse.GetUserPreferences(ctx, userID)
	if err != nil {
		return voyagent.NewToolError(fmt.Sprintf("Error getting preferences: %v", err)), nil
	}

	if len(preferences) == 0 {
		return voyagent.NewToolResult(fmt.Sprintf("No preferences found for user %s", userID)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "User preferences for %s:\n\n", userID)
	for prefType, prefValue := range preferences {
		fmt.Fprintf(&b, "- %s: %v\n", prefType, prefValue)
	}
	return voyagent.NewToolResult(b.String()), nil
}
