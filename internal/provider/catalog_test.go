package provider

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mpieniak01/venom/pkg/models"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "providers.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestLoadCatalog(t *testing.T) {
	path := writeCatalog(t, `
providers:
  - name: ollama
    class: local
    model: llama3.1:8b
    base_url: http://localhost:11434
  - name: anthropic
    class: remote
    model: claude-sonnet-4-20250514
    cost_per_1k: 0.009
    priority: 1
`)

	specs, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("got %d specs, want 2", len(specs))
	}
	if specs[0].Name != "ollama" || specs[0].Class != models.ClassLocal || specs[0].BaseURL != "http://localhost:11434" {
		t.Errorf("spec[0] = %+v", specs[0])
	}
	if specs[1].CostPer1K != 0.009 || specs[1].Priority != 1 {
		t.Errorf("spec[1] = %+v", specs[1])
	}
}

func TestLoadCatalogValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty catalog", "providers: []"},
		{"missing name", "providers:\n  - class: local\n    model: m"},
		{"duplicate name", "providers:\n  - name: x\n    class: local\n  - name: x\n    class: remote"},
		{"bad class", "providers:\n  - name: x\n    class: cloud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadCatalog(writeCatalog(t, tt.content)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveCatalogRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := SaveCatalog(path, DefaultCatalog()); err != nil {
		t.Fatalf("SaveCatalog: %v", err)
	}
	specs, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(specs) != len(DefaultCatalog()) {
		t.Errorf("got %d specs, want %d", len(specs), len(DefaultCatalog()))
	}
}

func TestRegistryCandidateOrdering(t *testing.T) {
	reg := NewRegistry([]Spec{
		{Name: "b-local", Class: models.ClassLocal, Priority: 1},
		{Name: "a-local", Class: models.ClassLocal, Priority: 0},
		{Name: "remote", Class: models.ClassRemote, Priority: 0},
	})

	locals := reg.Candidates(models.ClassLocal)
	if len(locals) != 2 || locals[0].Name != "a-local" || locals[1].Name != "b-local" {
		t.Errorf("local candidates = %+v, want priority order", locals)
	}
	if remotes := reg.Candidates(models.ClassRemote); len(remotes) != 1 {
		t.Errorf("remote candidates = %+v", remotes)
	}
}

func TestRegistryRejectsUnknownAdapter(t *testing.T) {
	reg := NewRegistry([]Spec{{Name: "known", Class: models.ClassLocal}})
	if err := reg.Register("unknown", NewMockAdapter("unknown")); err == nil {
		t.Error("registering an adapter without a catalog entry should fail")
	}
	if err := reg.Register("known", NewMockAdapter("known")); err != nil {
		t.Errorf("register known: %v", err)
	}
	if _, ok := reg.Adapter("known"); !ok {
		t.Error("registered adapter should be retrievable")
	}
}

func TestEstimateCost(t *testing.T) {
	s := Spec{CostPer1K: 0.01}
	if got := s.EstimateCost(2000); got != 0.02 {
		t.Errorf("EstimateCost(2000) = %f, want 0.02", got)
	}
	free := Spec{}
	if got := free.EstimateCost(100000); got != 0 {
		t.Errorf("free spec cost = %f, want 0", got)
	}
}
