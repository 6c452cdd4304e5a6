package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/odoolint/checks"
	"github.com/c360studio/odoolint/config"
)

func TestBuildJSONReport(t *testing.T) {
	cov := Collect(config.DefaultConfig(), []*checks.AddonResult{sampleResult(t)})
	report := BuildJSONReport(cov)

	assert.NotEmpty(t, report.RunID)
	assert.False(t, report.GeneratedAt.IsZero())

	assert.Equal(t, 1, report.Summary.ModulesCount)
	assert.Equal(t, 1, report.Summary.ModelsCount)
	assert.Equal(t, 2, report.Summary.Methods.Total)
	assert.Equal(t, 1, report.Summary.Methods.Documented)
	assert.Equal(t, 50.0, report.Summary.Methods.Coverage)
	assert.Equal(t, 3, report.Summary.Fields.Total)
	assert.Equal(t, 2, report.Summary.Fields.WithString)
	assert.Equal(t, 66.7, report.Summary.Fields.StringCoverage)
	assert.Equal(t, 1, report.Summary.Issues.Errors)

	require.Len(t, report.Modules, 1)
	module := report.Modules[0]
	assert.Equal(t, "tester", module.Name)
	require.Len(t, module.Models, 1)
	assert.Equal(t, "Order", module.Models[0].ClassName)
	assert.Equal(t, "tester.order", module.Models[0].ModelName)
	assert.Equal(t, 50.0, module.Models[0].MethodCoverage)
}

func TestJSONReportSave(t *testing.T) {
	cov := Collect(config.DefaultConfig(), []*checks.AddonResult{sampleResult(t)})
	report := BuildJSONReport(cov)

	path := filepath.Join(t.TempDir(), "out", "coverage.json")
	require.NoError(t, report.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded JSONReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, report.RunID, decoded.RunID)
	assert.Equal(t, report.Summary, decoded.Summary)
}

func TestRound1(t *testing.T) {
	assert.Equal(t, 66.7, round1(66.666))
	assert.Equal(t, 33.3, round1(33.333))
	assert.Equal(t, 100.0, round1(100.0))
}
