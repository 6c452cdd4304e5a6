// Package checks is the diagnostic engine: it turns extracted facts
// into severity-tagged diagnostics, resolves transitive capability
// inheritance, and aggregates results into a blocking decision.
package checks

import (
	"regexp"
	"sort"

	"github.com/c360studio/odoolint/config"
)

// Diagnostic is one rule violation or parse failure. Message carries
// the file:line position as its prefix.
type Diagnostic struct {
	Kind     string
	Severity config.Severity
	Message  string
}

// ciWorkspacePrefix strips the runner workspace prefix from messages
// so CI output shows repository-relative paths.
var ciWorkspacePrefix = regexp.MustCompile(`/home/runner/work/[^/]+/`)

// Result accumulates diagnostics for one addon. Disabled kinds are
// dropped at add time; everything retained keeps its configured
// severity for grouping and the blocking decision.
type Result struct {
	cfg    *config.Config
	byKind map[string][]string
}

// NewResult creates an empty result bound to the severity policy.
func NewResult(cfg *config.Config) *Result {
	return &Result{cfg: cfg, byKind: make(map[string][]string)}
}

// Add records messages under a diagnostic kind. Messages for disabled
// kinds are silently dropped.
func (r *Result) Add(kind string, messages ...string) {
	if len(messages) == 0 || !r.cfg.ShouldReport(kind) {
		return
	}
	for _, msg := range messages {
		r.byKind[kind] = append(r.byKind[kind], ciWorkspacePrefix.ReplaceAllString(msg, ""))
	}
}

// Merge appends every retained diagnostic from another result.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	for kind, messages := range other.byKind {
		r.Add(kind, messages...)
	}
}

// Empty reports whether no diagnostics were retained.
func (r *Result) Empty() bool {
	for _, messages := range r.byKind {
		if len(messages) > 0 {
			return false
		}
	}
	return true
}

// Kinds returns the retained diagnostic kinds in sorted order.
func (r *Result) Kinds() []string {
	kinds := make([]string, 0, len(r.byKind))
	for kind := range r.byKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Messages returns the messages recorded under a kind.
func (r *Result) Messages(kind string) []string {
	return r.byKind[kind]
}

// Diagnostics returns every retained diagnostic, ordered by kind.
func (r *Result) Diagnostics() []Diagnostic {
	var out []Diagnostic
	for _, kind := range r.Kinds() {
		sev := r.cfg.GetSeverity(kind)
		for _, msg := range r.byKind[kind] {
			out = append(out, Diagnostic{Kind: kind, Severity: sev, Message: msg})
		}
	}
	return out
}

// BySeverity groups kind→messages under each severity level.
func (r *Result) BySeverity() map[config.Severity]map[string][]string {
	grouped := map[config.Severity]map[string][]string{
		config.SeverityError:   {},
		config.SeverityWarning: {},
		config.SeverityInfo:    {},
	}
	for kind, messages := range r.byKind {
		sev := r.cfg.GetSeverity(kind)
		grouped[sev][kind] = messages
	}
	return grouped
}

// Counts returns the number of diagnostics per severity.
func (r *Result) Counts() map[config.Severity]int {
	counts := map[config.Severity]int{
		config.SeverityError:   0,
		config.SeverityWarning: 0,
		config.SeverityInfo:    0,
	}
	for kind, messages := range r.byKind {
		counts[r.cfg.GetSeverity(kind)] += len(messages)
	}
	return counts
}

// HasBlocking reports whether any retained diagnostic's severity is in
// the blocking set.
func (r *Result) HasBlocking() bool {
	for kind, messages := range r.byKind {
		if len(messages) == 0 {
			continue
		}
		if r.cfg.IsBlocking(r.cfg.GetSeverity(kind)) {
			return true
		}
	}
	return false
}

// BlockingSeverities exposes the configured blocking set for display.
func (r *Result) BlockingSeverities() []config.Severity {
	return r.cfg.BlockingSeverities
}
