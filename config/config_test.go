package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ValidationScope != ScopeChanged {
		t.Errorf("expected default scope %q, got %q", ScopeChanged, cfg.ValidationScope)
	}
	if got := cfg.GetSeverity("python_syntax_error"); got != SeverityError {
		t.Errorf("expected python_syntax_error to default to error, got %s", got)
	}
	if got := cfg.GetSeverity("python_docstring_too_short"); got != SeverityInfo {
		t.Errorf("expected python_docstring_too_short to default to info, got %s", got)
	}
	if cfg.MinDocstringLength != 10 {
		t.Errorf("expected min docstring length 10, got %d", cfg.MinDocstringLength)
	}
	if !cfg.IsBlocking(SeverityError) {
		t.Error("expected error severity to block by default")
	}
	if cfg.IsBlocking(SeverityWarning) {
		t.Error("expected warning severity not to block by default")
	}
}

func TestGetSeverityUnmappedDefaultsToWarning(t *testing.T) {
	cfg := DefaultConfig()

	// These kinds are deliberately absent from the default map.
	for _, kind := range []string{"xml_view_dangerous_replace_low_priority", "xml_button_without_type", "made_up_check"} {
		if got := cfg.GetSeverity(kind); got != SeverityWarning {
			t.Errorf("GetSeverity(%s) = %s, want warning", kind, got)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "full scope is valid",
			modify:  func(c *Config) { c.ValidationScope = ScopeFull },
			wantErr: false,
		},
		{
			name:    "unknown scope",
			modify:  func(c *Config) { c.ValidationScope = "sometimes" },
			wantErr: true,
		},
		{
			name:    "bad severity level",
			modify:  func(c *Config) { c.Severity["python_syntax_error"] = "fatal" },
			wantErr: true,
		},
		{
			name:    "bad blocking severity",
			modify:  func(c *Config) { c.BlockingSeverities = []Severity{"critical"} },
			wantErr: true,
		},
		{
			name:    "negative docstring length",
			modify:  func(c *Config) { c.MinDocstringLength = -1 },
			wantErr: true,
		},
		{
			name:    "negative workers",
			modify:  func(c *Config) { c.Workers = -2 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ".odoolint.yaml")

	content := `
validation_scope: full
base_branch: origin/develop
severity:
  python_field_missing_help: error
blocking_severities: [error, warning]
disabled_checks:
  - missing_readme
skip_string_fields: [custom_only]
min_docstring_length: 20
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.ValidationScope != ScopeFull {
		t.Errorf("expected scope full, got %s", cfg.ValidationScope)
	}
	if cfg.BaseBranch != "origin/develop" {
		t.Errorf("expected base branch origin/develop, got %s", cfg.BaseBranch)
	}
	// Overridden kind takes the user value; other defaults remain merged in.
	if got := cfg.GetSeverity("python_field_missing_help"); got != SeverityError {
		t.Errorf("expected overridden severity error, got %s", got)
	}
	if got := cfg.GetSeverity("python_syntax_error"); got != SeverityError {
		t.Errorf("expected default severity to survive the overlay, got %s", got)
	}
	if !cfg.IsBlocking(SeverityWarning) {
		t.Error("expected warning to block after override")
	}
	if cfg.ShouldReport("missing_readme") {
		t.Error("expected missing_readme to be disabled")
	}
	// Replacement semantics: the skip list is the user's, not the default.
	if cfg.SkipString("active") {
		t.Error("expected user skip list to replace the default")
	}
	if !cfg.SkipString("custom_only") {
		t.Error("expected custom_only in skip list")
	}
	if cfg.MinDocstringLength != 20 {
		t.Errorf("expected min docstring length 20, got %d", cfg.MinDocstringLength)
	}
}

func TestSkipDocstringUnionsDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SkipDocstringMethods = []string{"button_confirm"}

	if !cfg.SkipDocstring("button_confirm") {
		t.Error("expected configured method to be skipped")
	}
	// Dunders stay skipped even when the config adds its own names.
	if !cfg.SkipDocstring("__init__") {
		t.Error("expected __init__ to remain skipped")
	}
	if cfg.SkipDocstring("action_post") {
		t.Error("did not expect action_post to be skipped")
	}
}

func TestIsPathExcluded(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		path string
		want bool
	}{
		{"my_module/migrations/16.0.1.0/pre.py", true},
		{"/abs/repo/my_module/tests/test_sale.py", true},
		{"my_module/static/src/js/widget.js", true},
		{"my_module/models/sale_order.py", false},
		{"my_module/views/sale_views.xml", false},
	}

	for _, tt := range tests {
		if got := cfg.IsPathExcluded(tt.path); got != tt.want {
			t.Errorf("IsPathExcluded(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		ValidationScope: ScopeFull,
		BaseBranch:      "origin/main",
		Workers:         4,
	}

	base.Merge(override)

	if base.ValidationScope != ScopeFull {
		t.Errorf("expected scope full, got %s", base.ValidationScope)
	}
	if base.BaseBranch != "origin/main" {
		t.Errorf("expected base branch origin/main, got %s", base.BaseBranch)
	}
	if base.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", base.Workers)
	}
	// Untouched fields keep their defaults.
	if base.MinDocstringLength != 10 {
		t.Errorf("expected min docstring length to remain 10, got %d", base.MinDocstringLength)
	}
	if !base.SkipString("active") {
		t.Error("expected default skip list to survive merge")
	}
}

func TestLoaderFallsBackToDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ".odoolint.yaml")
	if err := os.WriteFile(configPath, []byte("validation_scope: [not, a, string"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	loader := NewLoader(nil)
	cfg := loader.Load(configPath)
	if cfg == nil {
		t.Fatal("expected defaults, got nil")
	}
	if cfg.ValidationScope != ScopeChanged {
		t.Errorf("expected default scope after bad config, got %s", cfg.ValidationScope)
	}
}

func TestLoaderInvalidConfigFallsBack(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ".odoolint.yaml")
	if err := os.WriteFile(configPath, []byte("validation_scope: sometimes\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	loader := NewLoader(nil)
	cfg := loader.Load(configPath)
	if cfg.ValidationScope != ScopeChanged {
		t.Errorf("expected default scope after invalid config, got %s", cfg.ValidationScope)
	}
}
