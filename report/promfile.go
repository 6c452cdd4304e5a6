package report

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WriteMetricsFile exports the coverage and issue counters in the
// Prometheus textfile collector format, so a node exporter can pick
// them up from CI runs.
func WriteMetricsFile(path string, cov *Coverage) error {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	gauges := map[string]float64{
		"odoolint_docstring_coverage_percent": cov.DocstringCoverage(),
		"odoolint_string_coverage_percent":    cov.StringCoverage(),
		"odoolint_help_coverage_percent":      cov.HelpCoverage(),
		"odoolint_models_total":               float64(cov.Models),
		"odoolint_fields_total":               float64(cov.TotalFields),
		"odoolint_public_methods_total":       float64(cov.PublicMethods),
		"odoolint_documented_methods_total":   float64(cov.DocumentedMethods),
		"odoolint_modules_total":              float64(len(cov.Modules)),
	}
	help := map[string]string{
		"odoolint_docstring_coverage_percent": "Share of public methods with a docstring",
		"odoolint_string_coverage_percent":    "Share of fields with a string attribute",
		"odoolint_help_coverage_percent":      "Share of fields with a help attribute",
		"odoolint_models_total":               "Odoo models analyzed",
		"odoolint_fields_total":               "Fields analyzed",
		"odoolint_public_methods_total":       "Public methods analyzed",
		"odoolint_documented_methods_total":   "Public methods carrying a docstring",
		"odoolint_modules_total":              "Addons analyzed",
	}
	for name, value := range gauges {
		factory.NewGauge(prometheus.GaugeOpts{Name: name, Help: help[name]}).Set(value)
	}

	issues := factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "odoolint_issues_total",
		Help: "Diagnostics reported in the last run, by severity",
	}, []string{"severity"})
	issues.WithLabelValues("error").Set(float64(cov.Errors))
	issues.WithLabelValues("warning").Set(float64(cov.Warnings))
	issues.WithLabelValues("info").Set(float64(cov.Info))

	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics file: %w", err)
	}
	return nil
}
