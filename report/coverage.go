// Package report renders validation results: the terminal printer,
// repository coverage metrics, the JSON coverage report, and the
// Prometheus textfile export.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/c360studio/odoolint/checks"
	"github.com/c360studio/odoolint/config"
	"github.com/c360studio/odoolint/extract"
)

// Coverage goals. Informational only; they never block a run.
const (
	DocstringGoal = 80.0
	StringGoal    = 90.0
	HelpGoal      = 50.0
)

// ModelCoverage holds documentation counters for one model class.
type ModelCoverage struct {
	Class string
	Model string
	Path  string

	PublicMethods     int
	DocumentedMethods int

	Fields           int
	FieldsWithString int
	FieldsWithHelp   int
}

// MethodCoverage is the documented share of public methods, 100 when
// the model has none.
func (m *ModelCoverage) MethodCoverage() float64 {
	return pct(m.DocumentedMethods, m.PublicMethods)
}

// StringCoverage is the labeled share of own fields.
func (m *ModelCoverage) StringCoverage() float64 {
	return pct(m.FieldsWithString, m.Fields)
}

// HelpCoverage is the share of own fields carrying help text.
func (m *ModelCoverage) HelpCoverage() float64 {
	return pct(m.FieldsWithHelp, m.Fields)
}

// ModuleCoverage aggregates the model counters of one addon.
type ModuleCoverage struct {
	Name   string
	Path   string
	Models []*ModelCoverage
}

func (m *ModuleCoverage) totals() (publicMethods, documented, fields, withString, withHelp int) {
	for _, model := range m.Models {
		publicMethods += model.PublicMethods
		documented += model.DocumentedMethods
		fields += model.Fields
		withString += model.FieldsWithString
		withHelp += model.FieldsWithHelp
	}
	return
}

// MethodCoverage is the documented share of the addon's public methods.
func (m *ModuleCoverage) MethodCoverage() float64 {
	public, documented, _, _, _ := m.totals()
	return pct(documented, public)
}

// StringCoverage is the labeled share of the addon's fields.
func (m *ModuleCoverage) StringCoverage() float64 {
	_, _, fields, withString, _ := m.totals()
	return pct(withString, fields)
}

// HelpCoverage is the share of the addon's fields carrying help text.
func (m *ModuleCoverage) HelpCoverage() float64 {
	_, _, fields, _, withHelp := m.totals()
	return pct(withHelp, fields)
}

// Coverage is the repository-wide documentation picture plus the
// issue counts of the run.
type Coverage struct {
	Modules []*ModuleCoverage

	Errors   int
	Warnings int
	Info     int

	// Repository counters behind the METRICS line. Fields exempt via
	// the skip lists are left out of the "needing" denominators.
	Models              int
	TotalFields         int
	FieldsNeedingString int
	FieldsWithString    int
	FieldsNeedingHelp   int
	FieldsWithHelp      int
	PublicMethods       int
	DocumentedMethods   int
}

// DocstringCoverage is the repository docstring percentage.
func (c *Coverage) DocstringCoverage() float64 {
	return pct(c.DocumentedMethods, c.PublicMethods)
}

// StringCoverage is the repository field label percentage.
func (c *Coverage) StringCoverage() float64 {
	return pct(c.FieldsWithString, c.FieldsNeedingString)
}

// HelpCoverage is the repository field help percentage.
func (c *Coverage) HelpCoverage() float64 {
	return pct(c.FieldsWithHelp, c.FieldsNeedingHelp)
}

// Empty reports whether the run produced nothing measurable.
func (c *Coverage) Empty() bool {
	return c.FieldsNeedingString == 0 && c.FieldsNeedingHelp == 0 && c.PublicMethods == 0
}

// Collect computes coverage over every Python unit of every validated
// addon. Coverage ignores the validation scope: a partial run still
// reports repository-wide numbers.
func Collect(cfg *config.Config, results []*checks.AddonResult) *Coverage {
	cov := &Coverage{}

	for _, res := range results {
		counts := res.Result.Counts()
		cov.Errors += counts[config.SeverityError]
		cov.Warnings += counts[config.SeverityWarning]
		cov.Info += counts[config.SeverityInfo]

		module := &ModuleCoverage{Name: res.Addon.Name, Path: res.Addon.Path}
		for _, unit := range res.Python {
			if unit.Python == nil {
				continue
			}
			for _, model := range unit.Python.Models {
				if !model.IsOdooModel {
					continue
				}
				mc := collectModel(cfg, model, cov)
				if mc != nil {
					module.Models = append(module.Models, mc)
				}
			}
		}
		cov.Modules = append(cov.Modules, module)
	}
	return cov
}

// collectModel folds one model into the repository counters and
// returns its per-model breakdown, nil when the model has nothing to
// measure.
func collectModel(cfg *config.Config, model *extract.Model, cov *Coverage) *ModelCoverage {
	cov.Models++

	mc := &ModelCoverage{
		Class: model.Class,
		Model: model.Identity(),
		Path:  model.Path,
	}
	if mc.Model == "" {
		mc.Model = model.Class
	}

	measured := 0
	for _, method := range model.Methods {
		if method.Private() && !method.Magic() {
			continue
		}
		if cfg.SkipDocstring(method.Name) {
			continue
		}
		measured++
		cov.PublicMethods++
		if method.HasDocstring {
			cov.DocumentedMethods++
		}
		if method.Private() {
			continue
		}
		mc.PublicMethods++
		if method.HasDocstring {
			mc.DocumentedMethods++
		}
	}

	for _, field := range model.Fields {
		if field.Private() {
			continue
		}
		measured++
		if field.Related != "" {
			continue
		}
		cov.TotalFields++
		mc.Fields++

		if cfg.SkipString(field.Name) {
			mc.FieldsWithString++
		} else {
			cov.FieldsNeedingString++
			if field.String != "" {
				cov.FieldsWithString++
				mc.FieldsWithString++
			}
		}
		if cfg.SkipHelp(field.Name) {
			mc.FieldsWithHelp++
		} else {
			cov.FieldsNeedingHelp++
			if field.Help != "" {
				cov.FieldsWithHelp++
				mc.FieldsWithHelp++
			}
		}
	}

	if measured == 0 {
		return nil
	}
	return mc
}

// WriteSummary prints the repository coverage block, ending with the
// machine-readable METRICS line that CI pipelines scrape.
func WriteSummary(w io.Writer, cov *Coverage) {
	if cov.Empty() {
		return
	}

	docstring := cov.DocstringCoverage()
	str := cov.StringCoverage()
	help := cov.HelpCoverage()

	rule := strings.Repeat("-", 60)
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "REPOSITORY COVERAGE (Informational)")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  Modules analyzed: %d\n", len(cov.Modules))
	fmt.Fprintf(w, "  Models: %d | Total Fields: %d | Public Methods: %d\n",
		cov.Models, cov.TotalFields, cov.PublicMethods)
	fmt.Fprintf(w, "  Fields needing string: %d | Fields needing help: %d\n",
		cov.FieldsNeedingString, cov.FieldsNeedingHelp)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Docstrings:          %5.1f%%  (%d/%d)  %s (goal: >=%.0f%%)\n",
		docstring, cov.DocumentedMethods, cov.PublicMethods, passOrWarn(docstring, DocstringGoal), DocstringGoal)
	fmt.Fprintf(w, "  Fields with string:  %5.1f%%  (%d/%d)  %s (goal: >=%.0f%%)\n",
		str, cov.FieldsWithString, cov.FieldsNeedingString, passOrWarn(str, StringGoal), StringGoal)
	fmt.Fprintf(w, "  Fields with help:    %5.1f%%  (%d/%d)  %s (goal: >=%.0f%%)\n",
		help, cov.FieldsWithHelp, cov.FieldsNeedingHelp, passOrWarn(help, HelpGoal), HelpGoal)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "These metrics are informational and do NOT block validation.")
	fmt.Fprintf(w, "METRICS:docstring_cov=%.1f,docstring_documented=%d,docstring_total=%d,"+
		"string_cov=%.1f,string_documented=%d,string_total=%d,"+
		"help_cov=%.1f,help_documented=%d,help_total=%d,models=%d\n",
		docstring, cov.DocumentedMethods, cov.PublicMethods,
		str, cov.FieldsWithString, cov.FieldsNeedingString,
		help, cov.FieldsWithHelp, cov.FieldsNeedingHelp,
		cov.Models)
	fmt.Fprintln(w)
}

func passOrWarn(value, goal float64) string {
	if value >= goal {
		return "PASS"
	}
	return "WARN"
}

// pct is have/total as a percentage, 100 when there is nothing to
// count.
func pct(have, total int) float64 {
	if total == 0 {
		return 100.0
	}
	return float64(have) / float64(total) * 100.0
}
