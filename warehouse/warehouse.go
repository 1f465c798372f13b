// Package warehouse provides the BigQuery-backed travel data layer.
//
// It manages the travel dataset (destinations, user_preferences,
// travel_history, agent_interactions), powers destination search with
// parameterized queries, stores user preferences and logs advisor
// interactions for analytics.
package warehouse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// DefaultDatasetID is the BigQuery dataset holding travel data.
const DefaultDatasetID = "travel_data"

// Destination is one row of the destinations table.
type Destination struct {
	DestinationID  string  `bigquery:"destination_id" json:"destination_id"`
	Name           string  `bigquery:"name" json:"name"`
	Country        string  `bigquery:"country" json:"country"`
	Region         string  `bigquery:"region" json:"region"`
	Category       string  `bigquery:"category" json:"category"`
	Description    string  `bigquery:"description" json:"description"`
	AvgTemperature float64 `bigquery:"avg_temperature" json:"avg_temperature"`
	BestSeason     string  `bigquery:"best_season" json:"best_season"`
	BudgetCategory string  `bigquery:"budget_category" json:"budget_category"`
}

// SearchFilter narrows a destination search. Zero-value fields are ignored.
type SearchFilter struct {
	// BudgetCategory is one of budget, mid_range, luxury
	BudgetCategory string
	// Region is a geographic region, e.g. "Southeast Asia"
	Region string
	// Category is one of beach, mountain, city, cultural
	Category string
	// Season matches the destination's best travel season
	Season string
	// Limit caps the number of results (default: 10)
	Limit int
}

// Interaction is one logged advisor exchange.
type Interaction struct {
	UserID        string
	SessionID     string
	QueryType     string
	UserQuery     string
	AgentResponse string
	ToolsUsed     []string
}

// Service manages travel data in BigQuery.
//
// All queries use fully qualified table names and query parameters; user
// input never reaches SQL text directly.
//
// Example:
//
//	svc, err := warehouse.NewService(ctx, "my-project", "")
//	destinations, err := svc.SearchDestinations(ctx, "alice", warehouse.SearchFilter{
//	    BudgetCategory: "budget",
//	    Category:       "beach",
//	})
type Service struct {
	projectID string
	datasetID string
	client    *bigquery.Client
	logger    *slog.Logger
}

// NewService creates a warehouse service. An empty projectID falls back to
// GOOGLE_CLOUD_PROJECT; an empty datasetID uses DefaultDatasetID.
func NewService(ctx context.Context, projectID, datasetID string, opts ...option.ClientOption) (*Service, error) {
	if projectID == "" {
		projectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	if projectID == "" {
		return nil, fmt.Errorf("project ID must be provided or set in GOOGLE_CLOUD_PROJECT")
	}
	if datasetID == "" {
		datasetID = DefaultDatasetID
	}

	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create BigQuery client: %w", err)
	}

	return &Service{
		projectID: projectID,
		datasetID: datasetID,
		client:    client,
		logger:    slog.Default(),
	}, nil
}

// SetLogger replaces the service logger.
func (s *Service) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// datasetRef returns "project.dataset".
func (s *Service) datasetRef() string {
	return s.projectID + "." + s.datasetID
}

// tableRef returns a fully qualified, backtick-quoted table reference.
func (s *Service) tableRef(table string) string {
	return fmt.Sprintf("`%s.%s`", s.datasetRef(), table)
}

// EnsureDataset creates the travel dataset if it does not exist.
func (s *Service) EnsureDataset(ctx context.Context) error {
	dataset := s.client.Dataset(s.datasetID)
	if _, err := dataset.Metadata(ctx); err == nil {
		s.logger.InfoContext(ctx, "dataset already exists", "dataset", s.datasetRef())
		return nil
	}

	if err := dataset.Create(ctx, &bigquery.DatasetMetadata{Location: "US"}); err != nil {
		return fmt.Errorf("failed to create dataset %s: %w", s.datasetRef(), err)
	}
	s.logger.InfoContext(ctx, "created dataset", "dataset", s.datasetRef())
	return nil
}

// EnsureTables creates the travel tables if they do not exist.
func (s *Service) EnsureTables(ctx context.Context) error {
	tables := map[string]string{
		"destinations": `
			CREATE TABLE IF NOT EXISTS %s (
				destination_id STRING,
				name STRING,
				country STRING,
				region STRING,
				category STRING,
				description STRING,
				avg_temperature FLOAT64,
				best_season STRING,
				budget_category STRING,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP(),
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP()
			)`,
		"user_preferences": `
			CREATE TABLE IF NOT EXISTS %s (
				user_id STRING,
				preference_type STRING,
				preference_value JSON,
				session_id STRING,
				created_by_agent STRING DEFAULT 'travel_advisor_agent',
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP(),
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP()
			)`,
		"travel_history": `
			CREATE TABLE IF NOT EXISTS %s (
				user_id STRING,
				destination_id STRING,
				visit_date DATE,
				rating FLOAT64,
				feedback STRING,
				trip_duration_days INT64,
				budget_spent FLOAT64,
				session_id STRING,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP()
			)`,
		"agent_interactions": `
			CREATE TABLE IF NOT EXISTS %s (
				interaction_id STRING,
				user_id STRING,
				session_id STRING,
				agent_name STRING DEFAULT 'travel_advisor_agent',
				query_type STRING,
				user_query STRING,
				agent_response STRING,
				tools_used JSON,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP()
			)`,
	}

	for name, ddl := range tables {
		query := s.client.Query(fmt.Sprintf(ddl, s.tableRef(name)))
		job, err := query.Run(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table %s: %w", name, err)
		}
		status, err := job.Wait(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table %s: %w", name, err)
		}
		if err := status.Err(); err != nil {
			return fmt.Errorf("failed to create table %s: %w", name, err)
		}
		s.logger.InfoContext(ctx, "ensured table exists", "table", name)
	}
	return nil
}

// buildSearchQuery assembles the parameterized destinations search.
func (s *Service) buildSearchQuery(filter SearchFilter) (string, []bigquery.QueryParameter) {
	conditions := make([]string, 0, 4)
	params := make([]bigquery.QueryParameter, 0, 4)

	add := func(column, name, value string) {
		if value == "" {
			return
		}
		conditions = append(conditions, fmt.Sprintf("%s = @%s", column, name))
		params = append(params, bigquery.QueryParameter{Name: name, Value: value})
	}
	add("budget_category", "budget_category", filter.BudgetCategory)
	add("region", "region", filter.Region)
	add("category", "category", filter.Category)
	add("best_season", "season", filter.Season)

	whereClause := "1=1"
	if len(conditions) > 0 {
		whereClause = strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	params = append(params, bigquery.QueryParameter{Name: "limit", Value: int64(limit)})

	query := fmt.Sprintf(`
		SELECT
			destination_id,
			name,
			country,
			region,
			category,
			description,
			avg_temperature,
			best_season,
			budget_category
		FROM %s
		WHERE %s
		ORDER BY name
		LIMIT @limit`, s.tableRef("destinations"), whereClause)

	return query, params
}

// SearchDestinations searches destinations matching the filter and logs the
// interaction for the user.
func (s *Service) SearchDestinations(ctx context.Context, userID string, filter SearchFilter) ([]Destination, error) {
	sql, params := s.buildSearchQuery(filter)

	query := s.client.Query(sql)
	query.Parameters = params

	it, err := query.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search destinations: %w", err)
	}

	destinations := make([]Destination, 0)
	for {
		var dest Destination
		err := it.Next(&dest)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read destination row: %w", err)
		}
		destinations = append(destinations, dest)
	}

	if err := s.LogInteraction(ctx, Interaction{
		UserID:    userID,
		QueryType: "search_destinations",
		UserQuery: fmt.Sprintf("Search destinations: budget=%s, region=%s, category=%s",
			filter.BudgetCategory, filter.Region, filter.Category),
		AgentResponse: fmt.Sprintf("Found %d destinations", len(destinations)),
		ToolsUsed:     []string{"search_destinations"},
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to log search interaction", "error", err)
	}

	s.logger.InfoContext(ctx, "destination search complete",
		"user_id", userID, "results", len(destinations))
	return destinations, nil
}

// AllDestinations returns all destinations ordered by name.
func (s *Service) AllDestinations(ctx context.Context, limit int) ([]Destination, error) {
	if limit <= 0 {
		limit = 10
	}

	query := s.client.Query(fmt.Sprintf(`
		SELECT
			destination_id,
			name,
			country,
			region,
			category,
			description,
			avg_temperature,
			best_season,
			budget_category
		FROM %s
		ORDER BY name
		LIMIT @limit`, s.tableRef("destinations")))
	query.Parameters = []bigquery.QueryParameter{{Name: "limit", Value: int64(limit)}}

	it, err := query.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list destinations: %w", err)
	}

	destinations := make([]Destination, 0)
	for {
		var dest Destination
		err := it.Next(&dest)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read destination row: %w", err)
		}
		destinations = append(destinations, dest)
	}
	return destinations, nil
}

// SaveUserPreferences stores each preference as its own row, with the value
// JSON-encoded.
func (s *Service) SaveUserPreferences(ctx context.Context, userID string, preferences map[string]interface{}, sessionID string) error {
	if sessionID == "" {
		sessionID = "default"
	}

	for prefType, prefValue := range preferences {
		value, err := json.Marshal(prefValue)
		if err != nil {
			return fmt.Errorf("failed to encode preference %s: %w", prefType, err)
		}

		query := s.client.Query(fmt.Sprintf(`
			INSERT INTO %s
			(user_id, preference_type, preference_value, session_id)
			VALUES (@user_id, @pref_type, PARSE_JSON(@pref_value), @session_id)`,
			s.tableRef("user_preferences")))
		query.Parameters = []bigquery.QueryParameter{
			{Name: "user_id", Value: userID},
			{Name: "pref_type", Value: prefType},
			{Name: "pref_value", Value: string(value)},
			{Name: "session_id", Value: sessionID},
		}

		job, err := query.Run(ctx)
		if err != nil {
			return fmt.Errorf("failed to save preference %s: %w", prefType, err)
		}
		status, err := job.Wait(ctx)
		if err != nil {
			return fmt.Errorf("failed to save preference %s: %w", prefType, err)
		}
		if err := status.Err(); err != nil {
			return fmt.Errorf("failed to save preference %s: %w", prefType, err)
		}
	}

	s.logger.InfoContext(ctx, "saved preferences", "user_id", userID, "count", len(preferences))
	return nil
}

// GetUserPreferences returns a user's saved preferences, most recent value
// per type.
func (s *Service) GetUserPreferences(ctx context.Context, userID string) (map[string]interface{}, error) {
	query := s.client.Query(fmt.Sprintf(`
		SELECT preference_type, TO_JSON_STRING(preference_value) AS preference_value
		FROM %s
		WHERE user_id = @user_id
		ORDER BY updated_at DESC`, s.tableRef("user_preferences")))
	query.Parameters = []bigquery.QueryParameter{{Name: "user_id", Value: userID}}

	it, err := query.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get user preferences: %w", err)
	}

	preferences := make(map[string]interface{})
	for {
		var row struct {
			PreferenceType  string `bigquery:"preference_type"`
			PreferenceValue string `bigquery:"preference_value"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read preference row: %w", err)
		}

		// Rows come back most recent first; keep the first value per type
		if _, exists := preferences[row.PreferenceType]; exists {
			continue
		}
		var value interface{}
		if err := json.Unmarshal([]byte(row.PreferenceValue), &value); err != nil {
			value = row.PreferenceValue
		}
		preferences[row.PreferenceType] = value
	}

	s.logger.InfoContext(ctx, "retrieved preferences", "user_id", userID, "count", len(preferences))
	return preferences, nil
}

// LogInteraction records an advisor exchange in the agent_interactions table.
func (s *Service) LogInteraction(ctx context.Context, interaction Interaction) error {
	sessionID := interaction.SessionID
	if sessionID == "" {
		sessionID = "default"
	}
	toolsJSON, err := json.Marshal(interaction.ToolsUsed)
	if err != nil {
		return fmt.Errorf("failed to encode tools list: %w", err)
	}

	query := s.client.Query(fmt.Sprintf(`
		INSERT INTO %s
		(interaction_id, user_id, session_id, query_type, user_query, agent_response, tools_used)
		VALUES (@interaction_id, @user_id, @session_id, @query_type, @user_query, @agent_response, PARSE_JSON(@tools_used))`,
		s.tableRef("agent_interactions")))
	query.Parameters = []bigquery.QueryParameter{
		{Name: "interaction_id", Value: uuid.New().String()},
		{Name: "user_id", Value: interaction.UserID},
		{Name: "session_id", Value: sessionID},
		{Name: "query_type", Value: interaction.QueryType},
		{Name: "user_query", Value: interaction.UserQuery},
		{Name: "agent_response", Value: interaction.AgentResponse},
		{Name: "tools_used", Value: string(toolsJSON)},
	}

	job, err := query.Run(ctx)
	if err != nil {
		return fmt.Errorf("failed to log interaction: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("failed to log interaction: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("failed to log interaction: %w", err)
	}
	return nil
}

// Close closes the underlying BigQuery client.
func (s *Service) Close() error {
	return s.client.Close()
}
