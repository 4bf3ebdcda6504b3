package config

import (
	"os"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Input.Dir != "./Traps" {
		t.Errorf("Input.Dir = %q, want %q", cfg.Input.Dir, "./Traps")
	}
	if cfg.Input.Extension != ".txt" {
		t.Errorf("Input.Extension = %q, want %q", cfg.Input.Extension, ".txt")
	}
	if cfg.Output.Dir != "./Output" {
		t.Errorf("Output.Dir = %q, want %q", cfg.Output.Dir, "./Output")
	}
	if cfg.Catalog.IdentifierKindID != 2 {
		t.Errorf("Catalog.IdentifierKindID = %d, want 2", cfg.Catalog.IdentifierKindID)
	}
	if cfg.Process.OperatorID != 1 {
		t.Errorf("Process.OperatorID = %d, want 1", cfg.Process.OperatorID)
	}
	if cfg.Process.Workers < 1 {
		t.Errorf("Process.Workers = %d, want >= 1", cfg.Process.Workers)
	}
}

func TestMerge(t *testing.T) {
	m := NewManager()

	partial := &Config{}
	partial.Input.Dir = "/srv/traps"
	partial.Process.Workers = 3
	partial.Catalog.DSN = "sqlserver://sa:x@db?database=Gestel"
	m.merge(partial)

	cfg := m.Get()
	if cfg.Input.Dir != "/srv/traps" {
		t.Errorf("Input.Dir = %q, want %q", cfg.Input.Dir, "/srv/traps")
	}
	if cfg.Process.Workers != 3 {
		t.Errorf("Process.Workers = %d, want 3", cfg.Process.Workers)
	}
	// untouched fields keep their defaults
	if cfg.Output.Dir != "./Output" {
		t.Errorf("Output.Dir = %q, want default", cfg.Output.Dir)
	}
	if cfg.Process.OperatorID != 1 {
		t.Errorf("Process.OperatorID = %d, want default 1", cfg.Process.OperatorID)
	}
}

func TestMergeFromYAML(t *testing.T) {
	raw := `
input:
  dir: /data/traps
catalog:
  snapshot: /data/identifiers.csv
  identifier_kind_id: 7
process:
  skip_imported: true
`
	var partial Config
	if err := yaml.Unmarshal([]byte(raw), &partial); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	m := NewManager()
	m.merge(&partial)

	cfg := m.Get()
	if cfg.Input.Dir != "/data/traps" {
		t.Errorf("Input.Dir = %q", cfg.Input.Dir)
	}
	if cfg.Catalog.Snapshot != "/data/identifiers.csv" {
		t.Errorf("Catalog.Snapshot = %q", cfg.Catalog.Snapshot)
	}
	if cfg.Catalog.IdentifierKindID != 7 {
		t.Errorf("Catalog.IdentifierKindID = %d, want 7", cfg.Catalog.IdentifierKindID)
	}
	if !cfg.Process.SkipImported {
		t.Error("Process.SkipImported not merged")
	}
}

func TestLoadEnv(t *testing.T) {
	os.Setenv("TRAPFLOW_TRAPS_FOLDER", "/env/traps")
	os.Setenv("TRAPFLOW_OPERATOR_ID", "42")
	os.Setenv("TRAPFLOW_WORKERS", "2")
	defer func() {
		os.Unsetenv("TRAPFLOW_TRAPS_FOLDER")
		os.Unsetenv("TRAPFLOW_OPERATOR_ID")
		os.Unsetenv("TRAPFLOW_WORKERS")
	}()

	m := NewManager()
	m.loadEnv()

	cfg := m.Get()
	if cfg.Input.Dir != "/env/traps" {
		t.Errorf("Input.Dir = %q, want /env/traps", cfg.Input.Dir)
	}
	if cfg.Process.OperatorID != 42 {
		t.Errorf("Process.OperatorID = %d, want 42", cfg.Process.OperatorID)
	}
	if cfg.Process.Workers != 2 {
		t.Errorf("Process.Workers = %d, want 2", cfg.Process.Workers)
	}
}
