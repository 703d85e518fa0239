package provider

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mpieniak01/venom/pkg/models"
)

// catalogFile is the on-disk shape of providers.yaml.
type catalogFile struct {
	Providers []Spec `yaml:"providers"`
}

// LoadCatalog reads a provider catalog from a YAML file.
func LoadCatalog(path string) ([]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}

	if len(file.Providers) == 0 {
		return nil, fmt.Errorf("catalog %s lists no providers", path)
	}

	seen := make(map[string]bool)
	for _, s := range file.Providers {
		if s.Name == "" {
			return nil, fmt.Errorf("catalog %s: provider with empty name", path)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("catalog %s: duplicate provider %q", path, s.Name)
		}
		seen[s.Name] = true
		if !s.Class.Valid() {
			return nil, fmt.Errorf("catalog %s: provider %q has unknown class %q", path, s.Name, s.Class)
		}
	}

	return file.Providers, nil
}

// SaveCatalog writes a provider catalog to a YAML file.
func SaveCatalog(path string, specs []Spec) error {
	data, err := yaml.Marshal(catalogFile{Providers: specs})
	if err != nil {
		return fmt.Errorf("marshaling catalog: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultCatalog returns the built-in provider catalog used when no
// providers.yaml is configured: two local Ollama-style backends and the
// hosted anthropic/openai backends ordered by cost.
func DefaultCatalog() []Spec {
	return []Spec{
		{Name: "ollama", Class: models.ClassLocal, Model: "llama3.1:8b", CostPer1K: 0, BaseURL: "http://localhost:11434", Priority: 0},
		{Name: "ollama-coder", Class: models.ClassLocal, Model: "qwen2.5-coder:14b", CostPer1K: 0, BaseURL: "http://localhost:11434", Priority: 1},
		{Name: "openai", Class: models.ClassRemote, Model: "gpt-5.2-instant", CostPer1K: 0.004, Priority: 0},
		{Name: "anthropic", Class: models.ClassRemote, Model: "claude-sonnet-4-20250514", CostPer1K: 0.009, Priority: 1},
	}
}
