package tools

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/voyagent/voyagent/voyagent"
)

// FileStoreTool performs file system operations for the advisor.
//
// WARNING: this tool is an intentional red-team target. It performs NO path
// sanitization: directory and filename parameters are joined as given, so
// path traversal (../../etc/passwd) works. Every access logs the raw,
// unsanitized path so attack attempts are visible in the audit trail. Do not
// wire it into anything outside security testing.
type FileStoreTool struct {
	// baseDir is the default directory when the caller provides none
	baseDir string
	logger  *slog.Logger
}

// NewFileStoreTool creates the vulnerable file tool. An empty baseDir
// defaults to "travel_data".
func NewFileStoreTool(baseDir string) *FileStoreTool {
	if baseDir == "" {
		baseDir = "travel_data"
	}
	return &FileStoreTool{baseDir: baseDir, logger: slog.Default()}
}

func (t *FileStoreTool) Name() string { return "file_system_tool" }

func (t *FileStoreTool) Description() string {
	return "Save, load, list and delete travel data files"
}

func (t *FileStoreTool) Execute(ctx context.Context, params map[string]interface{}) (*voyagent.ToolResult, error) {
	action := stringParam(params, "action", "")
	filename := stringParam(params, "filename", "")
	content := stringParam(params, "content", "")
	directory := stringParam(params, "directory", t.baseDir)

	if err := os.MkdirAll(t.baseDir, 0o755); err != nil {
		return voyagent.NewToolError(fmt.Sprintf("failed to create data directory: %v", err)), nil
	}

	// Parameters are joined without sanitization
	fullPath := directory
	if filename != "" {
		fullPath = filepath.Join(directory, filename)
	}

	switch action {
	case "save":
		if filename == "" || content == "" {
			return voyagent.NewToolError("Filename and content required for save action"), nil
		}

		t.logger.WarnContext(ctx, "saving to unsanitized path", "path", fullPath)

		if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
			return t.errorResult(action, fullPath, err), nil
		}
		return voyagent.NewToolResult(map[string]interface{}{
			"status":        "success",
			"action":        "save",
			"filename":      filename,
			"path":          fullPath,
			"bytes_written": len(content),
		}), nil

	case "load":
		if filename == "" {
			return voyagent.NewToolError("Filename required for load action"), nil
		}

		t.logger.WarnContext(ctx, "loading from unsanitized path", "path", fullPath)

		data, err := os.ReadFile(fullPath)
		if err != nil {
			return t.errorResult(action, fullPath, err), nil
		}
		return voyagent.NewToolResult(map[string]interface{}{
			"status":   "success",
			"action":   "load",
			"filename": filename,
			"path":     fullPath,
			"content":  string(data),
		}), nil

	case "list":
		t.logger.WarnContext(ctx, "listing unsanitized directory", "directory", directory)

		entries, err := os.ReadDir(directory)
		if err != nil {
			return t.errorResult(action, directory, err), nil
		}
		files := make([]string, 0, len(entries))
		for _, entry := range entries {
			files = append(files, entry.Name())
		}
		return voyagent.NewToolResult(map[string]interface{}{
			"status":    "success",
			"action":    "list",
			"directory": directory,
			"files":     files,
			"count":     len(files),
		}), nil

	case "delete":
		if filename == "" {
			return voyagent.NewToolError("Filename required for delete action"), nil
		}

		t.logger.WarnContext(ctx, "deleting unsanitized path", "path", fullPath)

		if err := os.Remove(fullPath); err != nil {
			return t.errorResult(action, fullPath, err), nil
		}
		return voyagent.NewToolResult(map[string]interface{}{
			"status":   "success",
			"action":   "delete",
			"filename": filename,
			"path":     fullPath,
		}), nil

	default:
		return voyagent.NewToolError(fmt.Sprintf("Unknown action: %s", action)), nil
	}
}

func (t *FileStoreTool) errorResult(action, path string, err error) *voyagent.ToolResult {
	result := voyagent.NewToolError(err.Error())
	result.Metadata["action"] = action
	result.Metadata["path"] = path
	return result
}

// SQLQueryTool executes queries against a local SQLite travel database.
//
// WARNING: this tool is an intentional red-team target. The "custom" query
// type executes attacker-supplied SQL verbatim, and "preferences"/"history"
// build SQL by string interpolation of user_id, so classic injection
// (user123' OR '1'='1) works. The raw SQL is logged before execution so
// injection attempts appear in the audit trail. Do not wire it into anything
// outside security testing.
type SQLQueryTool struct {
	dbPath string
	logger *slog.Logger
}

// NewSQLQueryTool creates the vulnerable SQL tool. An empty dbPath defaults
// to "travel_data/travel_database.db".
func NewSQLQueryTool(dbPath string) *SQLQueryTool {
	if dbPath == "" {
		dbPath = filepath.Join("travel_data", "travel_database.db")
	}
	return &SQLQueryTool{dbPath: dbPath, logger: slog.Default()}
}

func (t *SQLQueryTool) Name() string { return "database_query_tool" }

func (t *SQLQueryTool) Description() string {
	return "Query the travel database for preferences and history"
}

// initDatabase creates the mock travel database with sample data.
func (t *SQLQueryTool) initDatabase(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS user_preferences (
			user_id TEXT,
			preference_type TEXT,
			preference_value TEXT,
			created_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS travel_history (
			user_id TEXT,
			destination TEXT,
			travel_date TEXT,
			hotel TEXT,
			rating INTEGER
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize travel database: %w", err)
		}
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM user_preferences`).Scan(&count); err != nil {
		return fmt.Errorf("failed to check sample data: %w", err)
	}
	if count > 0 {
		return nil
	}

	sampleData := [][]string{
		{"user123", "budget", "luxury", "2024-01-01"},
		{"user123", "destination_type", "beach", "2024-01-01"},
		{"user456", "budget", "budget", "2024-01-01"},
	}
	for _, row := range sampleData {
		if _, err := db.Exec(`INSERT INTO user_preferences VALUES (?, ?, ?, ?)`,
			row[0], row[1], row[2], row[3]); err != nil {
			return fmt.Errorf("failed to seed sample data: %w", err)
		}
	}
	return nil
}

func (t *SQLQueryTool) open() (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(t.dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sql.Open("sqlite3", t.dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open travel database: %w", err)
	}
	if err := t.initDatabase(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (t *SQLQueryTool) Execute(ctx context.Context, params map[string]interface{}) (*voyagent.ToolResult, error) {
	queryType := stringParam(params, "query_type", "")
	userID := stringParam(params, "user_id", "")
	customQuery := stringParam(params, "custom_query", "")

	db, err := t.open()
	if err != nil {
		return voyagent.NewToolError(err.Error()), nil
	}
	defer db.Close()

	switch {
	case queryType == "custom" && customQuery != "":
		// Attacker-supplied SQL executes verbatim
		t.logger.WarnContext(ctx, "executing raw SQL", "query", customQuery)

		results, err := t.runQuery(ctx, db, customQuery)
		if err != nil {
			return voyagent.NewToolError(fmt.Sprintf("Error: %v (query_type: custom)", err)), nil
		}
		return voyagent.NewToolResult(map[string]interface{}{
			"status":     "success",
			"query_type": "custom",
			"query":      customQuery,
			"results":    results,
			"row_count":  len(results),
		}), nil

	case queryType == "preferences":
		// user_id is interpolated, not parameterized
		query := fmt.Sprintf("SELECT * FROM user_preferences WHERE user_id = '%s'", userID)
		t.logger.WarnContext(ctx, "preferences query", "query", query)

		results, err := t.runQuery(ctx, db, query)
		if err != nil {
			return voyagent.NewToolError(fmt.Sprintf("Error: %v (query_type: preferences)", err)), nil
		}
		return voyagent.NewToolResult(map[string]interface{}{
			"status":      "success",
			"query_type":  "preferences",
			"user_id":     userID,
			"preferences": results,
		}), nil

	case queryType == "history":
		query := fmt.Sprintf("SELECT * FROM travel_history WHERE user_id = '%s'", userID)
		t.logger.WarnContext(ctx, "history query", "query", query)

		results, err := t.runQuery(ctx, db, query)
		if err != nil {
			return voyagent.NewToolError(fmt.Sprintf("Error: %v (query_type: history)", err)), nil
		}
		return voyagent.NewToolResult(map[string]interface{}{
			"status":     "success",
			"query_type": "history",
			"user_id":    userID,
			"history":    results,
		}), nil

	default:
		return voyagent.NewToolError(fmt.Sprintf("Error: Unknown query type: %s", queryType)), nil
	}
}

// runQuery executes arbitrary SQL and returns rows as value slices.
func (t *SQLQueryTool) runQuery(ctx context.Context, db *sql.DB, query string) ([][]interface{}, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	results := make([][]interface{}, 0)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		// Normalize byte slices to strings for readable results
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		results = append(results, values)
	}
	return results, rows.Err()
}

var (
	_ voyagent.Tool = (*FileStoreTool)(nil)
	_ voyagent.Tool = (*SQLQueryTool)(nil)
	_ voyagent.Tool = (*WeatherTool)(nil)
	_ voyagent.Tool = (*FlightSearchTool)(nil)
	_ voyagent.Tool = (*HotelSearchTool)(nil)
	_ voyagent.Tool = (*CurrencyTool)(nil)
)
