package checks

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/c360studio/odoolint/config"
)

func TestResultAddAndCounts(t *testing.T) {
	r := NewResult(config.DefaultConfig())
	assert.True(t, r.Empty())

	r.Add("xml_syntax_error", "a.xml:1 broken")
	r.Add("xml_deprecated_tree_attribute", "b.xml:3 colors", "b.xml:9 fonts")

	assert.False(t, r.Empty())
	assert.Equal(t, []string{"xml_deprecated_tree_attribute", "xml_syntax_error"}, r.Kinds())

	counts := r.Counts()
	assert.Equal(t, 1, counts[config.SeverityError])
	assert.Equal(t, 2, counts[config.SeverityWarning])
	assert.Equal(t, 0, counts[config.SeverityInfo])
}

func TestResultDisabledKindDropped(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DisabledChecks = []string{"xml_deprecated_tree_attribute"}

	r := NewResult(cfg)
	r.Add("xml_deprecated_tree_attribute", "b.xml:3 colors")

	assert.True(t, r.Empty())
	assert.Nil(t, r.Messages("xml_deprecated_tree_attribute"))
}

func TestResultSeverityOverrideFlipsBlocking(t *testing.T) {
	cfg := config.DefaultConfig()
	r := NewResult(cfg)
	r.Add("xml_deprecated_tree_attribute", "b.xml:3 colors")
	assert.False(t, r.HasBlocking(), "warnings do not block by default")

	cfg.Severity["xml_deprecated_tree_attribute"] = config.SeverityError
	assert.True(t, r.HasBlocking())

	cfg.BlockingSeverities = []config.Severity{}
	assert.False(t, r.HasBlocking())
}

func TestResultUnknownKindDefaultsToWarning(t *testing.T) {
	r := NewResult(config.DefaultConfig())
	r.Add("some_future_check", "a.py:1 message")

	grouped := r.BySeverity()
	assert.Contains(t, grouped[config.SeverityWarning], "some_future_check")
}

func TestResultStripsCIWorkspacePrefix(t *testing.T) {
	r := NewResult(config.DefaultConfig())
	r.Add("xml_syntax_error", "/home/runner/work/repo/addons/sale/views/a.xml:4 broken")

	assert.Equal(t,
		[]string{"addons/sale/views/a.xml:4 broken"},
		r.Messages("xml_syntax_error"))
}

func TestResultMerge(t *testing.T) {
	cfg := config.DefaultConfig()
	a := NewResult(cfg)
	a.Add("csv_duplicate_record_id", "one")

	b := NewResult(cfg)
	b.Add("csv_duplicate_record_id", "two")
	b.Add("po_syntax_error", "three")

	a.Merge(b)
	a.Merge(nil)

	assert.Equal(t, []string{"one", "two"}, a.Messages("csv_duplicate_record_id"))
	assert.Equal(t, []string{"three"}, a.Messages("po_syntax_error"))
}

func TestResultDiagnosticsOrderedByKind(t *testing.T) {
	r := NewResult(config.DefaultConfig())
	r.Add("po_syntax_error", "z")
	r.Add("csv_duplicate_record_id", "a")

	diags := r.Diagnostics()
	assert.Len(t, diags, 2)
	assert.Equal(t, "csv_duplicate_record_id", diags[0].Kind)
	assert.Equal(t, "po_syntax_error", diags[1].Kind)
	assert.Equal(t, config.SeverityError, diags[1].Severity)
}
