// Package config provides configuration loading and the severity policy for odoolint.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Severity classifies a diagnostic kind. Ordering: error > warning > info.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Severities lists all levels in display order (most severe first).
func Severities() []Severity {
	return []Severity{SeverityError, SeverityWarning, SeverityInfo}
}

// Priority returns the sort weight of a severity (higher is more severe).
func (s Severity) Priority() int {
	switch s {
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is one of the known levels.
func (s Severity) Valid() bool {
	return s == SeverityError || s == SeverityWarning || s == SeverityInfo
}

// defaultSeverity maps each diagnostic kind to its built-in severity.
// Kinds absent from this map report at SeverityWarning.
var defaultSeverity = map[string]Severity{
	// Syntax errors always block.
	"xml_syntax_error":      SeverityError,
	"csv_syntax_error":      SeverityError,
	"python_syntax_error":   SeverityError,
	"manifest_syntax_error": SeverityError,
	"po_syntax_error":       SeverityError,
	// Duplicates block.
	"xml_duplicate_record_id":         SeverityError,
	"csv_duplicate_record_id":         SeverityError,
	"po_duplicate_message_definition": SeverityError,
	"xml_duplicate_fields":            SeverityError,
	// Model issues that surface as runtime warnings in Odoo.
	"python_duplicate_field_label":        SeverityError,
	"python_inconsistent_compute_sudo":    SeverityError,
	"python_tracking_without_mail_thread": SeverityError,
	"python_selection_on_related":         SeverityError,
	"xml_deprecated_active_id_usage":      SeverityError,
	"xml_alert_missing_role":              SeverityError,
	// Dangerous patterns.
	"xml_create_user_wo_reset_password": SeverityWarning,
	"xml_dangerous_filter_wo_user":      SeverityWarning,
	"xml_hardcoded_id":                  SeverityWarning,
	"xml_duplicate_view_priority":       SeverityWarning,
	// Deprecations.
	"xml_deprecated_tree_attribute":   SeverityWarning,
	"xml_deprecated_data_node":        SeverityWarning,
	"xml_deprecated_openerp_xml_node": SeverityWarning,
	"xml_deprecated_t_raw":            SeverityWarning,
	"xml_deprecated_qweb_directive":   SeverityWarning,
	// Code quality.
	"python_field_missing_string":     SeverityWarning,
	"python_field_missing_help":       SeverityWarning,
	"python_method_missing_docstring": SeverityWarning,
	"python_docstring_too_short":      SeverityInfo,
	"python_docstring_uninformative":  SeverityInfo,
	// Translation catalogs.
	"po_requires_module":     SeverityWarning,
	"po_python_parse_printf": SeverityWarning,
	"po_python_parse_format": SeverityWarning,
	// Other.
	"xml_redundant_module_name": SeverityInfo,
	"xml_not_valid_char_link":   SeverityWarning,
	"missing_readme":            SeverityInfo,
}

// defaultSkipString names fields whose missing label is never reported.
var defaultSkipString = []string{
	"active", "name", "sequence", "company_id", "currency_id",
	"create_uid", "create_date", "write_uid", "write_date",
	"message_ids", "message_follower_ids", "activity_ids",
}

// defaultSkipHelp names fields whose missing help is never reported.
var defaultSkipHelp = []string{
	"active", "name", "sequence", "company_id", "currency_id",
}

// defaultSkipDocstring names dunder methods exempt from docstring checks.
// User-configured names extend this set, never replace it.
var defaultSkipDocstring = map[string]bool{
	"__init__": true, "__str__": true, "__repr__": true, "__len__": true,
	"__bool__": true, "__getitem__": true, "__setitem__": true,
	"__delitem__": true, "__iter__": true, "__next__": true,
	"__contains__": true, "__call__": true, "__enter__": true,
	"__exit__": true, "__eq__": true, "__ne__": true, "__lt__": true,
	"__le__": true, "__gt__": true, "__ge__": true, "__hash__": true,
	"__format__": true,
}

// DefaultExcludePaths are the glob patterns excluded from validation unless
// the config overrides them.
var DefaultExcludePaths = []string{
	"**/migrations/**",
	"**/tests/**",
	"**/static/**",
	"**/__pycache__/**",
	"**/node_modules/**",
}

// Scope modes.
const (
	ScopeChanged = "changed"
	ScopeFull    = "full"
)

// Config is the odoolint configuration. The loader builds it once; the
// pipeline treats it as read-only.
type Config struct {
	// ValidationScope is "changed" (default) or "full".
	ValidationScope string `yaml:"validation_scope"`
	// BaseBranch overrides the auto-detected diff base in CI.
	BaseBranch string `yaml:"base_branch"`
	// OdooVersion is the fallback target version when the manifest does
	// not declare one.
	OdooVersion string `yaml:"odoo_version"`
	// Severity holds the effective kind→severity map (defaults merged with
	// user overrides at load time).
	Severity map[string]Severity `yaml:"severity"`
	// BlockingSeverities decides which severities fail the run.
	BlockingSeverities []Severity `yaml:"blocking_severities"`
	// DisabledChecks suppresses kinds entirely.
	DisabledChecks []string `yaml:"disabled_checks"`
	// SkipStringFields / SkipHelpFields replace the built-in skip lists.
	SkipStringFields []string `yaml:"skip_string_fields"`
	SkipHelpFields   []string `yaml:"skip_help_fields"`
	// SkipDocstringMethods extends the built-in dunder skip set.
	SkipDocstringMethods []string `yaml:"skip_docstring_methods"`
	// MinDocstringLength is the shortest acceptable docstring.
	MinDocstringLength int `yaml:"min_docstring_length"`
	// ExcludePaths are doublestar globs removed before extraction.
	ExcludePaths []string `yaml:"exclude_paths"`
	// ReadmeNames are accepted README file names at the addon root.
	ReadmeNames []string `yaml:"readme_names"`
	// Workers caps the extraction pool size (0 = GOMAXPROCS).
	Workers int `yaml:"workers"`
}

// DefaultConfig returns a Config with built-in defaults.
func DefaultConfig() *Config {
	sev := make(map[string]Severity, len(defaultSeverity))
	for k, v := range defaultSeverity {
		sev[k] = v
	}
	return &Config{
		ValidationScope:    ScopeChanged,
		Severity:           sev,
		BlockingSeverities: []Severity{SeverityError},
		SkipStringFields:   slices.Clone(defaultSkipString),
		SkipHelpFields:     slices.Clone(defaultSkipHelp),
		MinDocstringLength: 10,
		ExcludePaths:       slices.Clone(DefaultExcludePaths),
		ReadmeNames:        []string{"README.md", "README.rst", "README.txt", "README"},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.ValidationScope != ScopeChanged && c.ValidationScope != ScopeFull {
		return fmt.Errorf("validation_scope must be %q or %q, got %q", ScopeChanged, ScopeFull, c.ValidationScope)
	}
	for kind, sev := range c.Severity {
		if !sev.Valid() {
			return fmt.Errorf("severity for %s must be error, warning or info, got %q", kind, sev)
		}
	}
	for _, sev := range c.BlockingSeverities {
		if !sev.Valid() {
			return fmt.Errorf("blocking severity %q is not a valid level", sev)
		}
	}
	if c.MinDocstringLength < 0 {
		return fmt.Errorf("min_docstring_length must not be negative")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file layered over defaults.
// Severity entries merge key-by-key; list fields replace their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values). Used to layer command-line flags over file config.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.ValidationScope != "" {
		c.ValidationScope = other.ValidationScope
	}
	if other.BaseBranch != "" {
		c.BaseBranch = other.BaseBranch
	}
	if other.OdooVersion != "" {
		c.OdooVersion = other.OdooVersion
	}
	if c.Severity == nil {
		c.Severity = make(map[string]Severity)
	}
	for kind, sev := range other.Severity {
		c.Severity[kind] = sev
	}
	if len(other.BlockingSeverities) > 0 {
		c.BlockingSeverities = other.BlockingSeverities
	}
	if len(other.DisabledChecks) > 0 {
		c.DisabledChecks = other.DisabledChecks
	}
	if len(other.SkipStringFields) > 0 {
		c.SkipStringFields = other.SkipStringFields
	}
	if len(other.SkipHelpFields) > 0 {
		c.SkipHelpFields = other.SkipHelpFields
	}
	if len(other.SkipDocstringMethods) > 0 {
		c.SkipDocstringMethods = other.SkipDocstringMethods
	}
	if other.MinDocstringLength != 0 {
		c.MinDocstringLength = other.MinDocstringLength
	}
	if len(other.ExcludePaths) > 0 {
		c.ExcludePaths = other.ExcludePaths
	}
	if len(other.ReadmeNames) > 0 {
		c.ReadmeNames = other.ReadmeNames
	}
	if other.Workers != 0 {
		c.Workers = other.Workers
	}
}

// GetSeverity returns the severity for a diagnostic kind. Unmapped kinds
// report at SeverityWarning.
func (c *Config) GetSeverity(kind string) Severity {
	if sev, ok := c.Severity[kind]; ok {
		return sev
	}
	return SeverityWarning
}

// IsBlocking reports whether the severity fails the run.
func (c *Config) IsBlocking(sev Severity) bool {
	return slices.Contains(c.BlockingSeverities, sev)
}

// ShouldReport reports whether a diagnostic kind is enabled.
func (c *Config) ShouldReport(kind string) bool {
	return !slices.Contains(c.DisabledChecks, kind)
}

// SkipString reports whether a field name is exempt from the missing-string
// check.
func (c *Config) SkipString(field string) bool {
	return slices.Contains(c.SkipStringFields, field)
}

// SkipHelp reports whether a field name is exempt from the missing-help
// check.
func (c *Config) SkipHelp(field string) bool {
	return slices.Contains(c.SkipHelpFields, field)
}

// SkipDocstring reports whether a method name is exempt from docstring
// checks. The built-in dunder set always applies.
func (c *Config) SkipDocstring(method string) bool {
	return defaultSkipDocstring[method] || slices.Contains(c.SkipDocstringMethods, method)
}

// IsPathExcluded reports whether a file path matches any exclusion glob.
func (c *Config) IsPathExcluded(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, pattern := range c.ExcludePaths {
		if ok, err := doublestar.Match(pattern, slashed); err == nil && ok {
			return true
		}
		// Relative patterns still match absolute candidate paths.
		if !strings.HasPrefix(pattern, "/") && !strings.HasPrefix(pattern, "**") {
			if ok, err := doublestar.Match("**/"+pattern, slashed); err == nil && ok {
				return true
			}
		}
	}
	return false
}
