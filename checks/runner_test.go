package checks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/odoolint/addon"
	"github.com/c360studio/odoolint/config"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

const runnerManifest = `{
    "name": "Tester",
    "version": "17.0.1.0.0",
    "data": ["views/order_views.xml"],
}
`

const runnerModel = `from odoo import fields, models


class Order(models.Model):
    _name = "tester.order"
    _description = "Test order"

    date_start = fields.Date(string="Date")
    date_end = fields.Date(string="Date")
`

const runnerViews = `<odoo>
    <record id="view_order" model="res.partner"/>
    <record id="view_order" model="res.partner"/>
</odoo>
`

func runnerAddon(t *testing.T, extra map[string]string) *addon.Addon {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "tester")
	files := map[string]string{
		"__manifest__.py":       runnerManifest,
		"__init__.py":           "from . import models\n",
		"models/__init__.py":    "from . import order\n",
		"models/order.py":       runnerModel,
		"views/order_views.xml": runnerViews,
	}
	for rel, content := range extra {
		files[rel] = content
	}
	writeTree(t, dir, files)
	return addon.Load(context.Background(), dir, config.DefaultConfig())
}

func TestRunnerFullScope(t *testing.T) {
	a := runnerAddon(t, nil)
	runner := NewRunner(config.DefaultConfig(), nil, nil, nil)

	out, err := runner.Run(context.Background(), a)
	require.NoError(t, err)

	assert.Len(t, out.Python, 4, "all python units kept for coverage")
	assert.Contains(t, out.Result.Kinds(), "missing_readme")
	assert.Contains(t, out.Result.Kinds(), "python_duplicate_field_label")
	assert.Contains(t, out.Result.Kinds(), "xml_duplicate_record_id")
	assert.True(t, out.HasBlocking())
}

func TestRunnerReadmePresent(t *testing.T) {
	a := runnerAddon(t, map[string]string{"README.md": "# Tester\n"})
	runner := NewRunner(config.DefaultConfig(), nil, nil, nil)

	out, err := runner.Run(context.Background(), a)
	require.NoError(t, err)

	assert.NotContains(t, out.Result.Kinds(), "missing_readme")
}

func TestRunnerScopeFiltersRules(t *testing.T) {
	a := runnerAddon(t, nil)
	xmlOnly := ScopeFunc(func(_ context.Context, path string) bool {
		return strings.HasSuffix(path, ".xml")
	})
	runner := NewRunner(config.DefaultConfig(), nil, xmlOnly, nil)

	out, err := runner.Run(context.Background(), a)
	require.NoError(t, err)

	// Python rules see nothing, but the units stay available so
	// coverage is computed over the whole addon.
	assert.Len(t, out.Python, 4)
	assert.NotContains(t, out.Result.Kinds(), "python_duplicate_field_label")
	assert.Contains(t, out.Result.Kinds(), "xml_duplicate_record_id")
}

func TestRunnerNotInstallableSkipsChecks(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "off")
	writeTree(t, dir, map[string]string{
		"__manifest__.py": `{"name": "Off", "installable": False}`,
		"__init__.py":     "",
	})
	a := addon.Load(context.Background(), dir, config.DefaultConfig())
	runner := NewRunner(config.DefaultConfig(), nil, nil, nil)

	out, err := runner.Run(context.Background(), a)
	require.NoError(t, err)

	assert.True(t, out.Result.Empty())
	assert.Nil(t, out.Python)
}

func TestRunnerBrokenManifest(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "broken")
	writeTree(t, dir, map[string]string{
		"__manifest__.py": `{"name": "Broken"`,
		"__init__.py":     "",
	})
	a := addon.Load(context.Background(), dir, config.DefaultConfig())
	runner := NewRunner(config.DefaultConfig(), nil, nil, nil)

	out, err := runner.Run(context.Background(), a)
	require.NoError(t, err)

	assert.Equal(t, []string{"manifest_syntax_error"}, out.Result.Kinds())
}

func TestRunnerRunAll(t *testing.T) {
	a := runnerAddon(t, map[string]string{"README.md": "# Tester\n"})
	runner := NewRunner(config.DefaultConfig(), nil, nil, nil)

	results, err := runner.RunAll(context.Background(), []*addon.Addon{a, a})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
