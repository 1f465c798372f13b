package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/voyagent/voyagent/voyagent"
)

type stubAgent struct {
	name string
}

func (a *stubAgent) Name() string            { return a.name }
func (a *stubAgent) Capabilities() []string  { return []string{"text_processing"} }
func (a *stubAgent) Process(ctx context.Context, msg *voyagent.Message) (*voyagent.Message, error) {
	return voyagent.NewMessage("agent", "passthrough: "+msg.Content), nil
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()

	if err := registry.Register(NewWeatherTool()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := registry.Register(NewCurrencyTool()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := registry.Register(nil); err == nil {
		t.Error("Register(nil) expected error, got nil")
	}
	if err := registry.Register(NewWeatherTool()); err == nil {
		t.Error("Register() duplicate expected error, got nil")
	}

	if _, ok := registry.Get("weather_lookup"); !ok {
		t.Error("Get(weather_lookup) not found")
	}
	if _, ok := registry.Get("nonexistent"); ok {
		t.Error("Get(nonexistent) should not be found")
	}

	names := registry.List()
	if len(names) != 2 {
		t.Fatalf("List() returned %d names, want 2", len(names))
	}
	if names[0] != "currency_converter" || names[1] != "weather_lookup" {
		t.Errorf("List() = %v, want sorted names", names)
	}

	desc := registry.Descriptions()
	if !strings.Contains(desc, "weather_lookup") {
		t.Errorf("Descriptions() missing tool name: %s", desc)
	}
}

func TestToolAgentDispatch(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(NewCurrencyTool()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	agent := NewToolAgent(&stubAgent{name: "advisor"}, registry)

	// Messages without tool calls pass through to the wrapped agent
	plain := voyagent.NewMessage("user", "hello")
	resp, err := agent.Process(context.Background(), plain)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if resp.Content != "passthrough: hello" {
		t.Errorf("Process() content = %q, want passthrough", resp.Content)
	}

	msg := voyagent.NewMessage("user", "convert please")
	msg.Metadata["tool_calls"] = []map[string]interface{}{
		{
			"tool_name": "currency_converter",
			"parameters": map[string]interface{}{
				"amount":        100.0,
				"from_currency": "USD",
				"to_currency":   "EUR",
			},
		},
	}

	resp, err = agent.Process(context.Background(), msg)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !strings.Contains(resp.Content, "Success") {
		t.Errorf("Process() content = %q, want success result", resp.Content)
	}

	results, ok := resp.Metadata["tool_results"].([]*voyagent.ToolResult)
	if !ok || len(results) != 1 {
		t.Fatalf("tool_results metadata = %v, want one result", resp.Metadata["tool_results"])
	}
	data := results[0].Data.(map[string]interface{})
	if data["converted_amount"].(float64) != 85.0 {
		t.Errorf("converted_amount = %v, want 85", data["converted_amount"])
	}

	unknown := voyagent.NewMessage("user", "bad tool")
	unknown.Metadata["tool_calls"] = []map[string]interface{}{
		{"tool_name": "no_such_tool", "parameters": map[string]interface{}{}},
	}
	resp, err = agent.Process(context.Background(), unknown)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !strings.Contains(resp.Content, "Error") {
		t.Errorf("Process() content = %q, want error result for unknown tool", resp.Content)
	}
}

func TestWeatherTool(t *testing.T) {
	tool := NewWeatherTool()
	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"city":    "Tokyo",
		"country": "Japan",
		"days":    float64(5),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("Execute() failed: %s", result.Error)
	}

	data := result.Data.(map[string]interface{})
	if data["location"] != "Tokyo, Japan" {
		t.Errorf("location = %v, want Tokyo, Japan", data["location"])
	}
	forecast := data["forecast"].([]map[string]string)
	if len(forecast) != 5 {
		t.Errorf("forecast length = %d, want 5", len(forecast))
	}
}

func TestFlightSearchTool(t *testing.T) {
	tool := NewFlightSearchTool()
	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"origin":         "JFK",
		"destination":    "CDG",
		"departure_date": "2026-09-15",
		"passengers":     float64(2),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	data := result.Data.(map[string]interface{})
	flights := data["flights"].([]map[string]interface{})
	if len(flights) != 3 {
		t.Fatalf("flights length = %d, want 3", len(flights))
	}
	if flights[0]["price"] != "$400" {
		t.Errorf("first flight price = %v, want $400", flights[0]["price"])
	}
	criteria := data["search_criteria"].(map[string]interface{})
	if criteria["passengers"] != 2 {
		t.Errorf("passengers = %v, want 2", criteria["passengers"])
	}
}

func TestHotelSearchToolFilters(t *testing.T) {
	tool := NewHotelSearchTool()
	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"city":        "Paris",
		"budget_max":  float64(150),
		"star_rating": float64(3),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	data := result.Data.(map[string]interface{})
	hotels := data["hotels"].([]map[string]interface{})
	for _, hotel := range hotels {
		price := hotel["price_per_night"].(string)
		if price != "$100" && price != "$150" {
			t.Errorf("hotel %v exceeds budget: %s", hotel["name"], price)
		}
	}
	if len(hotels) == 0 {
		t.Error("expected at least one hotel within budget")
	}
}

func TestCurrencyToolConversion(t *testing.T) {
	tool := NewCurrencyTool()

	tests := []struct {
		name   string
		amount float64
		from   string
		to     string
		want   float64
	}{
		{"usd to eur", 100, "USD", "EUR", 85.0},
		{"eur to usd", 85, "eur", "usd", 100.0},
		{"usd to jpy", 10, "USD", "JPY", 1100.0},
		{"unknown currency treated as usd", 50, "XYZ", "USD", 50.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tool.Execute(context.Background(), map[string]interface{}{
				"amount":        tt.amount,
				"from_currency": tt.from,
				"to_currency":   tt.to,
			})
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			data := result.Data.(map[string]interface{})
			if got := data["converted_amount"].(float64); got != tt.want {
				t.Errorf("converted_amount = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFileStoreToolLifecycle(t *testing.T) {
	dir := t.TempDir()
	tool := NewFileStoreTool(dir)
	ctx := context.Background()

	result, err := tool.Execute(ctx, map[string]interface{}{
		"action":   "save",
		"filename": "itinerary.txt",
		"content":  "Day 1: Tokyo",
	})
	if err != nil {
		t.Fatalf("Execute(save) error = %v", err)
	}
	if !result.Success {
		t.Fatalf("save failed: %s", result.Error)
	}
	data := result.Data.(map[string]interface{})
	if data["bytes_written"] != len("Day 1: Tokyo") {
		t.Errorf("bytes_written = %v, want %d", data["bytes_written"], len("Day 1: Tokyo"))
	}

	result, err = tool.Execute(ctx, map[string]interface{}{
		"action":   "load",
		"filename": "itinerary.txt",
	})
	if err != nil {
		t.Fatalf("Execute(load) error = %v", err)
	}
	data = result.Data.(map[string]interface{})
	if data["content"] != "Day 1: Tokyo" {
		t.Errorf("content = %v, want saved content", data["content"])
	}

	result, err = tool.Execute(ctx, map[string]interface{}{"action": "list"})
	if err != nil {
		t.Fatalf("Execute(list) error = %v", err)
	}
	data = result.Data.(map[string]interface{})
	if data["count"] != 1 {
		t.Errorf("count = %v, want 1", data["count"])
	}

	result, err = tool.Execute(ctx, map[string]interface{}{
		"action":   "delete",
		"filename": "itinerary.txt",
	})
	if err != nil {
		t.Fatalf("Execute(delete) error = %v", err)
	}
	if !result.Success {
		t.Errorf("delete failed: %s", result.Error)
	}

	result, _ = tool.Execute(ctx, map[string]interface{}{"action": "teleport"})
	if result.Success {
		t.Error("unknown action should fail")
	}
}

// TestFileStoreToolPathTraversal confirms the tool does not sanitize paths,
// which is the behavior red-team scenarios rely on.
func TestFileStoreToolPathTraversal(t *testing.T) {
	outer := t.TempDir()
	inner := filepath.Join(outer, "data")
	if err := os.MkdirAll(inner, 0o755); err != nil {
		t.Fatal(err)
	}
	tool := NewFileStoreTool(inner)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"action":   "save",
		"filename": filepath.Join("..", "escaped.txt"),
		"content":  "outside the data directory",
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("traversal save failed: %s", result.Error)
	}

	escaped := filepath.Join(outer, "escaped.txt")
	data, err := os.ReadFile(escaped)
	if err != nil {
		t.Fatalf("traversal did not escape the base directory: %v", err)
	}
	if string(data) != "outside the data directory" {
		t.Errorf("escaped file content = %q", data)
	}
}

func newTestSQLTool(t *testing.T) *SQLQueryTool {
	t.Helper()
	return NewSQLQueryTool(filepath.Join(t.TempDir(), "travel.db"))
}

func TestSQLQueryToolPreferences(t *testing.T) {
	tool := newTestSQLTool(t)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"query_type": "preferences",
		"user_id":    "user123",
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("preferences query failed: %s", result.Error)
	}

	data := result.Data.(map[string]interface{})
	prefs := data["preferences"].([][]interface{})
	if len(prefs) != 2 {
		t.Fatalf("user123 preferences = %d rows, want 2", len(prefs))
	}
}

func TestSQLQueryToolCustom(t *testing.T) {
	tool := newTestSQLTool(t)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"query_type":   "custom",
		"custom_query": "SELECT COUNT(*) FROM user_preferences",
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("custom query failed: %s", result.Error)
	}

	data := result.Data.(map[string]interface{})
	if data["row_count"] != 1 {
		t.Errorf("row_count = %v, want 1", data["row_count"])
	}

	result, _ = tool.Execute(context.Background(), map[string]interface{}{
		"query_type":   "custom",
		"custom_query": "SELECT nope FROM missing_table",
	})
	if result.Success {
		t.Error("invalid SQL should fail")
	}
}

// TestSQLQueryToolInjection confirms the interpolated user_id is injectable,
// returning rows belonging to other users.
func TestSQLQueryToolInjection(t *testing.T) {
	tool := newTestSQLTool(t)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"query_type": "preferences",
		"user_id":    "user123' OR '1'='1",
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("injected query failed: %s", result.Error)
	}

	data := result.Data.(map[string]interface{})
	prefs := data["preferences"].([][]interface{})
	if len(prefs) != 3 {
		t.Errorf("injection returned %d rows, want all 3 seeded rows", len(prefs))
	}

	seenUsers := make(map[string]bool)
	for _, row := range prefs {
		if uid, ok := row[0].(string); ok {
			seenUsers[uid] = true
		}
	}
	if !seenUsers["user456"] {
		t.Error("injection should expose rows from other users")
	}
}

func TestSQLQueryToolUnknownType(t *testing.T) {
	tool := newTestSQLTool(t)

	result, _ := tool.Execute(context.Background(), map[string]interface{}{
		"query_type": "exfiltrate",
	})
	if result.Success {
		t.Error("unknown query type should fail")
	}
	if !strings.Contains(result.Error, "Unknown query type") {
		t.Errorf("error = %q, want unknown query type message", result.Error)
	}
}
