package checks

import (
	"fmt"
	"sort"
	"strings"

	"github.com/c360studio/odoolint/config"
	"github.com/c360studio/odoolint/extract"
)

// pythonChecker runs the model rules over the Python units of one
// addon. Models must already be enriched by ResolveMailThread.
type pythonChecker struct {
	cfg    *config.Config
	units  []*extract.Unit
	result *Result
}

func checkPython(cfg *config.Config, units []*extract.Unit, result *Result) {
	c := &pythonChecker{cfg: cfg, units: units, result: result}

	c.checkSyntaxErrors()
	for _, unit := range units {
		if unit.Python == nil {
			continue
		}
		for _, model := range unit.Python.Models {
			c.checkDuplicateFieldLabels(model)
			c.checkInconsistentComputeSudo(model)
			c.checkTrackingWithoutMailThread(model)
			c.checkSelectionOnRelated(model)
			c.checkFieldMissingString(model)
			c.checkFieldMissingHelp(model)
			c.checkMethodMissingDocstring(model)
			c.checkDocstringQuality(model)
		}
	}
}

func (c *pythonChecker) checkSyntaxErrors() {
	for _, unit := range c.units {
		if unit.ParseError == nil {
			continue
		}
		c.result.Add("python_syntax_error",
			fmt.Sprintf("%s:%d %s", unit.Path, unit.ParseError.Line, unit.ParseError.Message))
	}
}

// checkDuplicateFieldLabels flags fields sharing a label within one
// model: one diagnostic per label group, placed at the first field.
func (c *pythonChecker) checkDuplicateFieldLabels(model *extract.Model) {
	byLabel := make(map[string][]*extract.Field)
	var order []string
	for _, field := range model.Fields {
		if field.String == "" {
			continue
		}
		if _, seen := byLabel[field.String]; !seen {
			order = append(order, field.String)
		}
		byLabel[field.String] = append(byLabel[field.String], field)
	}

	for _, label := range order {
		group := byLabel[label]
		if len(group) < 2 {
			continue
		}
		c.result.Add("python_duplicate_field_label",
			fmt.Sprintf("%s:%d Fields (%s) have the same label: %q",
				model.Path, group[0].Line, fieldNames(group), label))
	}
}

// checkInconsistentComputeSudo flags fields sharing a compute method
// but declaring diverging compute_sudo values; an undeclared value
// counts as its own value.
func (c *pythonChecker) checkInconsistentComputeSudo(model *extract.Model) {
	byCompute := make(map[string][]*extract.Field)
	var order []string
	for _, field := range model.Fields {
		if field.Compute == "" {
			continue
		}
		if _, seen := byCompute[field.Compute]; !seen {
			order = append(order, field.Compute)
		}
		byCompute[field.Compute] = append(byCompute[field.Compute], field)
	}

	for _, compute := range order {
		group := byCompute[compute]
		if len(group) < 2 {
			continue
		}
		values := make(map[string]bool)
		for _, field := range group {
			switch {
			case field.ComputeSudo == nil:
				values["unset"] = true
			case *field.ComputeSudo:
				values["true"] = true
			default:
				values["false"] = true
			}
		}
		if len(values) > 1 {
			c.result.Add("python_inconsistent_compute_sudo",
				fmt.Sprintf("%s:%d Inconsistent 'compute_sudo' for fields (%s) using compute='%s'",
					model.Path, group[0].Line, fieldNames(group), compute))
		}
	}
}

// checkTrackingWithoutMailThread flags tracking on models without the
// resolved mail.thread capability. Classes that are not models at all
// are exempt.
func (c *pythonChecker) checkTrackingWithoutMailThread(model *extract.Model) {
	if model.HasMailThread || !model.IsOdooModel {
		return
	}
	for _, field := range model.Fields {
		if field.Tracking {
			c.result.Add("python_tracking_without_mail_thread",
				fmt.Sprintf("%s:%d Field %q has tracking but model does not inherit from mail.thread",
					model.Path, field.Line, field.Name))
		}
	}
}

func (c *pythonChecker) checkSelectionOnRelated(model *extract.Model) {
	for _, field := range model.Fields {
		if field.Related != "" && field.Selection {
			c.result.Add("python_selection_on_related",
				fmt.Sprintf("%s:%d Field %q is related but has selection (will be ignored)",
					model.Path, field.Line, field.Name))
		}
	}
}

func (c *pythonChecker) checkFieldMissingString(model *extract.Model) {
	if !model.IsOdooModel {
		return
	}
	for _, field := range model.Fields {
		if field.Private() || field.Related != "" || c.cfg.SkipString(field.Name) {
			continue
		}
		if field.String == "" {
			c.result.Add("python_field_missing_string",
				fmt.Sprintf("%s:%d Field %q is missing string attribute", model.Path, field.Line, field.Name))
		}
	}
}

func (c *pythonChecker) checkFieldMissingHelp(model *extract.Model) {
	if !model.IsOdooModel {
		return
	}
	for _, field := range model.Fields {
		if field.Private() || field.Related != "" || c.cfg.SkipHelp(field.Name) {
			continue
		}
		if field.Help == "" {
			c.result.Add("python_field_missing_help",
				fmt.Sprintf("%s:%d Field %q is missing help attribute", model.Path, field.Line, field.Name))
		}
	}
}

func (c *pythonChecker) checkMethodMissingDocstring(model *extract.Model) {
	if !model.IsOdooModel {
		return
	}
	for _, method := range model.Methods {
		if method.Private() || c.cfg.SkipDocstring(method.Name) {
			continue
		}
		if !method.HasDocstring {
			c.result.Add("python_method_missing_docstring",
				fmt.Sprintf("%s:%d Public method %q is missing docstring", model.Path, method.Line, method.Name))
		}
	}
}

// checkDocstringQuality flags docstrings that are present but shorter
// than the configured minimum, or textually equal to the method name
// with underscores as spaces.
func (c *pythonChecker) checkDocstringQuality(model *extract.Model) {
	if !model.IsOdooModel {
		return
	}
	for _, method := range model.Methods {
		if method.Private() || !method.HasDocstring {
			continue
		}

		if len(strings.TrimSpace(method.Docstring)) < c.cfg.MinDocstringLength {
			c.result.Add("python_docstring_too_short",
				fmt.Sprintf("%s:%d Method %q has too short docstring (min %d chars)",
					model.Path, method.Line, method.Name, c.cfg.MinDocstringLength))
		}

		nameClean := strings.TrimSpace(strings.ToLower(strings.ReplaceAll(method.Name, "_", " ")))
		docClean := strings.TrimRight(strings.ToLower(strings.TrimSpace(method.Docstring)), ".")
		if docClean == nameClean {
			c.result.Add("python_docstring_uninformative",
				fmt.Sprintf("%s:%d Method %q has uninformative docstring", model.Path, method.Line, method.Name))
		}
	}
}

func fieldNames(fields []*extract.Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return strings.Join(names, ", ")
}

// allModels flattens the models of a unit batch in deterministic
// order: units sorted by path, models in declaration order.
func allModels(units []*extract.Unit) []*extract.Model {
	sorted := make([]*extract.Unit, len(units))
	copy(sorted, units)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	var models []*extract.Model
	for _, unit := range sorted {
		if unit.Python != nil {
			models = append(models, unit.Python.Models...)
		}
	}
	return models
}
