package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	content := `separator: ","
variant: extensive-v2
attributes: true
single-header: false
cutoff: 500
select:
  - Root.Row.Id
  - Root.Row.Tag
output: rows.csv
`
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Separator != "," {
		t.Errorf("Separator = %q, want %q", p.Separator, ",")
	}
	if p.Variant != "extensive-v2" {
		t.Errorf("Variant = %q, want %q", p.Variant, "extensive-v2")
	}
	if p.Attributes == nil || !*p.Attributes {
		t.Error("Attributes should be set to true")
	}
	if p.SingleHeader == nil || *p.SingleHeader {
		t.Error("SingleHeader should be set to false")
	}
	if p.Namespaces != nil {
		t.Error("Namespaces should stay unset")
	}
	if p.Cutoff == nil || *p.Cutoff != 500 {
		t.Errorf("Cutoff = %v, want 500", p.Cutoff)
	}
	if len(p.Select) != 2 || p.Select[0] != "Root.Row.Id" {
		t.Errorf("Select = %v", p.Select)
	}
	if p.Output != "rows.csv" {
		t.Errorf("Output = %q, want %q", p.Output, "rows.csv")
	}
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte(":\n  - ["), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() should fail on malformed YAML")
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load("/no/such/profile.yaml"); err == nil {
		t.Fatal("Load() should fail on a missing file")
	}
}
