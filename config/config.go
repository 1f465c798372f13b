// Package config loads the advisor's configuration from a YAML file with
// environment variable overrides. Environment always wins over the file, so
// deployments can keep credentials out of config files.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full advisor configuration.
type Config struct {
	Project   ProjectConfig   `yaml:"project"`
	Model     ModelConfig     `yaml:"model"`
	Memory    MemoryConfig    `yaml:"memory"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Toolbox   ToolboxConfig   `yaml:"toolbox"`
	Warehouse WarehouseConfig `yaml:"warehouse"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ProjectConfig identifies the Google Cloud project.
type ProjectConfig struct {
	ID       string `yaml:"id"`
	Location string `yaml:"location"`
}

// ModelConfig selects the LLM provider and model.
type ModelConfig struct {
	// Provider is one of "vertex", "groq", "openai", "bedrock".
	Provider string `yaml:"provider"`
	Name     string `yaml:"name"`
	APIKey   string `yaml:"api_key"`
}

// MemoryConfig controls the cross-session memory store and the
// session-scoped working memory.
type MemoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`

	// Recent selects the working memory backend: "inmemory", "redis",
	// or "none".
	Recent   string `yaml:"recent"`
	RedisURL string `yaml:"redis_url"`
	// RedisTTL is the working memory expiry in seconds (0 = no expiry).
	RedisTTL int `yaml:"redis_ttl"`
}

// SessionsConfig selects the session backend.
type SessionsConfig struct {
	// Backend is "memory" or "file".
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
}

// ToolboxConfig points at the remote tool-catalog server.
type ToolboxConfig struct {
	URL      string `yaml:"url"`
	Toolset  string `yaml:"toolset"`
	Manifest string `yaml:"manifest"`
	// Mock serves the toolset locally from the warehouse instead of the
	// remote server.
	Mock bool `yaml:"mock"`
}

// WarehouseConfig names the BigQuery dataset.
type WarehouseConfig struct {
	Dataset string `yaml:"dataset"`
}

// LoggingConfig controls logging and trace export.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	TraceStdout bool   `yaml:"trace_stdout"`

	// MetricsAddr, when set, serves the Prometheus scrape endpoint at
	// this address during chat sessions (e.g. ":9464").
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Project: ProjectConfig{
			Location: "us-central1",
		},
		Model: ModelConfig{
			Provider: "vertex",
		},
		Memory: MemoryConfig{
			Enabled: true,
			DBPath:  "memory.db",
			Recent:  "inmemory",
		},
		Sessions: SessionsConfig{
			Backend: "memory",
		},
		Toolbox: ToolboxConfig{
			URL:     "http://localhost:5000",
			Toolset: "travel-database",
			Mock:    true,
		},
		Warehouse: WarehouseConfig{
			Dataset: "travel_data",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path, applies environment overrides, and
// returns the result. An empty path or missing file yields defaults plus
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Fall through to env overrides
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides file values with environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		c.Project.ID = v
	}
	if v := os.Getenv("GOOGLE_CLOUD_LOCATION"); v != "" {
		c.Project.Location = v
	}
	if v := os.Getenv("MODEL_PROVIDER"); v != "" {
		c.Model.Provider = v
	}
	if v := os.Getenv("MODEL_NAME"); v != "" {
		c.Model.Name = v
	}
	if v := os.Getenv("GROQ_API_KEY"); v != "" && c.Model.Provider == "groq" {
		c.Model.APIKey = v
	}
	if v := os.Getenv("MEMORY_DB_PATH"); v != "" {
		c.Memory.DBPath = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Memory.RedisURL = v
	}
	if v := os.Getenv("TOOLBOX_URL"); v != "" {
		c.Toolbox.URL = v
	}
	if v := os.Getenv("TRAVEL_DATASET"); v != "" {
		c.Warehouse.Dataset = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case "", "vertex", "gemini", "groq", "openai", "bedrock":
	default:
		return fmt.Errorf("unknown model provider: %q", c.Model.Provider)
	}

	switch c.Sessions.Backend {
	case "", "memory":
	case "file":
		if c.Sessions.Dir == "" {
			return fmt.Errorf("sessions.dir is required for the file backend")
		}
	default:
		return fmt.Errorf("unknown sessions backend: %q", c.Sessions.Backend)
	}

	if c.Memory.Enabled && c.Memory.DBPath == "" {
		return fmt.Errorf("memory.db_path is required when memory is enabled")
	}

	switch c.Memory.Recent {
	case "", "none", "inmemory":
	case "redis":
		if c.Memory.RedisURL == "" {
			return fmt.Errorf("memory.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown working memory backend: %q", c.Memory.Recent)
	}
	return nil
}
