package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Model.Provider != "vertex" {
		t.Errorf("provider = %q, want vertex", cfg.Model.Provider)
	}
	if cfg.Warehouse.Dataset != "travel_data" {
		t.Errorf("dataset = %q, want travel_data", cfg.Warehouse.Dataset)
	}
	if !cfg.Toolbox.Mock {
		t.Error("toolbox should default to mock mode")
	}
	if cfg.Memory.Recent != "inmemory" {
		t.Errorf("working memory backend = %q, want inmemory", cfg.Memory.Recent)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voyagent.yaml")
	content := `
project:
  id: test-project
model:
  provider: groq
  name: groq/llama3-70b-8192
sessions:
  backend: file
  dir: /tmp/sessions
memory:
  enabled: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Project.ID != "test-project" {
		t.Errorf("project = %q", cfg.Project.ID)
	}
	if cfg.Model.Name != "groq/llama3-70b-8192" {
		t.Errorf("model = %q", cfg.Model.Name)
	}
	if cfg.Memory.Enabled {
		t.Error("memory should be disabled")
	}
	// Unset fields keep defaults
	if cfg.Project.Location != "us-central1" {
		t.Errorf("location = %q, want default", cfg.Project.Location)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "env-project")
	t.Setenv("MODEL_PROVIDER", "groq")
	t.Setenv("GROQ_API_KEY", "gsk_test")
	t.Setenv("TOOLBOX_URL", "http://toolbox:8080")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Project.ID != "env-project" {
		t.Errorf("project = %q, want env-project", cfg.Project.ID)
	}
	if cfg.Model.Provider != "groq" || cfg.Model.APIKey != "gsk_test" {
		t.Errorf("model = %+v", cfg.Model)
	}
	if cfg.Toolbox.URL != "http://toolbox:8080" {
		t.Errorf("toolbox url = %q", cfg.Toolbox.URL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"unknown provider", func(c *Config) { c.Model.Provider = "palm" }, true},
		{"file backend without dir", func(c *Config) { c.Sessions.Backend = "file" }, true},
		{"file backend with dir", func(c *Config) {
			c.Sessions.Backend = "file"
			c.Sessions.Dir = "/tmp/s"
		}, false},
		{"memory without path", func(c *Config) { c.Memory.DBPath = "" }, true},
		{"redis working memory without url", func(c *Config) { c.Memory.Recent = "redis" }, true},
		{"redis working memory with url", func(c *Config) {
			c.Memory.Recent = "redis"
			c.Memory.RedisURL = "redis://localhost:6379"
		}, false},
		{"unknown working memory backend", func(c *Config) { c.Memory.Recent = "vector" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
