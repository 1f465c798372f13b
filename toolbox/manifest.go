package toolbox

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is a parsed tools.yaml, the configuration format consumed by the
// Toolbox server: named sources, tool definitions bound to a source, and
// toolsets grouping tools for loading.
type Manifest struct {
	Sources  map[string]SourceConfig `yaml:"sources"`
	Tools    map[string]ToolConfig   `yaml:"tools"`
	Toolsets map[string][]string     `yaml:"toolsets"`
}

// SourceConfig is one data source entry.
type SourceConfig struct {
	Kind     string `yaml:"kind"`
	Project  string `yaml:"project,omitempty"`
	Dataset  string `yaml:"dataset,omitempty"`
	Location string `yaml:"location,omitempty"`
}

// ToolConfig is one tool entry.
type ToolConfig struct {
	Kind        string            `yaml:"kind"`
	Source      string            `yaml:"source"`
	Description string            `yaml:"description"`
	Statement   string            `yaml:"statement,omitempty"`
	Parameters  []ParameterConfig `yaml:"parameters,omitempty"`
}

// ParameterConfig is one tool parameter entry.
type ParameterConfig struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

// LoadManifest reads and validates a tools.yaml file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest parses tools.yaml content and validates references.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	for name, tool := range m.Tools {
		if tool.Source == "" {
			return nil, fmt.Errorf("tool %q has no source", name)
		}
		if _, ok := m.Sources[tool.Source]; !ok {
			return nil, fmt.Errorf("tool %q references unknown source %q", name, tool.Source)
		}
	}

	for setName, toolNames := range m.Toolsets {
		for _, toolName := range toolNames {
			if _, ok := m.Tools[toolName]; !ok {
				return nil, fmt.Errorf("toolset %q references unknown tool %q", setName, toolName)
			}
		}
	}

	return &m, nil
}

// ToolsetSpecs returns the tool specs for a toolset, for clients that load
// manifests locally instead of from a server.
func (m *Manifest) ToolsetSpecs(toolsetName string) ([]ToolSpec, error) {
	toolNames, ok := m.Toolsets[toolsetName]
	if !ok {
		return nil, fmt.Errorf("toolset %q not found", toolsetName)
	}

	specs := make([]ToolSpec, 0, len(toolNames))
	for _, name := range toolNames {
		tool := m.Tools[name]
		params := make(map[string]ParamSpec, len(tool.Parameters))
		for _, p := range tool.Parameters {
			params[p.Name] = ParamSpec{Type: p.Type, Description: p.Description}
		}
		specs = append(specs, ToolSpec{
			Name:        name,
			Description: tool.Description,
			Parameters:  params,
		})
	}
	return specs, nil
}
