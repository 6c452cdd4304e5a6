package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/c360studio/odoolint/checks"
	"github.com/c360studio/odoolint/config"
)

// maxMessageLength truncates individual diagnostics so one pathological
// message cannot flood the terminal.
const maxMessageLength = 200

// defaultTerminalLimit caps messages per check in interactive runs; CI
// runs print everything.
const defaultTerminalLimit = 10

var severityColors = map[config.Severity]*color.Color{
	config.SeverityError:   color.New(color.FgHiRed),
	config.SeverityWarning: color.New(color.FgHiYellow),
	config.SeverityInfo:    color.New(color.FgHiBlue),
}

var asciiIcons = map[config.Severity]string{
	config.SeverityError:   "[ERROR]",
	config.SeverityWarning: "[WARN]",
	config.SeverityInfo:    "[INFO]",
}

var unicodeIcons = map[config.Severity]string{
	config.SeverityError:   "❌",
	config.SeverityWarning: "⚠️",
	config.SeverityInfo:    "ℹ️",
}

// Printer renders addon results for a terminal or a CI log.
type Printer struct {
	w           io.Writer
	cfg         *config.Config
	useUnicode  bool
	maxMessages int // 0 means unlimited
	bold        *color.Color
	success     *color.Color
}

// PrinterOption configures a Printer.
type PrinterOption func(*Printer)

// WithMaxMessages overrides the per-check message cap; 0 lifts it.
func WithMaxMessages(n int) PrinterOption {
	return func(p *Printer) { p.maxMessages = n }
}

// WithUnicode forces unicode icons on or off.
func WithUnicode(on bool) PrinterOption {
	return func(p *Printer) { p.useUnicode = on }
}

// NewPrinter creates a printer. Defaults depend on the environment:
// unicode icons and a 10-message cap on a terminal, ASCII and no cap
// under CI.
func NewPrinter(w io.Writer, cfg *config.Config, opts ...PrinterOption) *Printer {
	interactive := isTerminal(w) && os.Getenv("CI") == ""

	p := &Printer{
		w:          w,
		cfg:        cfg,
		useUnicode: interactive,
		bold:       color.New(color.Bold),
		success:    color.New(color.FgHiGreen),
	}
	if interactive {
		p.maxMessages = defaultTerminalLimit
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func (p *Printer) icon(sev config.Severity) string {
	if p.useUnicode {
		return unicodeIcons[sev]
	}
	return asciiIcons[sev]
}

// PrintResults renders every finding of one addon grouped by severity.
func (p *Printer) PrintResults(res *checks.AddonResult, scope string) {
	if res.Result.Empty() {
		return
	}

	bySeverity := res.Result.BySeverity()
	counts := res.Result.Counts()

	fmt.Fprintln(p.w)
	rule := strings.Repeat("=", 60)
	p.bold.Fprintln(p.w, rule)
	p.bold.Fprintf(p.w, "MODULE: %s\n", res.Addon.Name)
	fmt.Fprintf(p.w, "   Scope: %s\n", scopeLabel(scope))
	p.bold.Fprintln(p.w, rule)

	for _, sev := range config.Severities() {
		kinds := bySeverity[sev]
		if len(kinds) == 0 {
			continue
		}

		fmt.Fprintln(p.w)
		severityColors[sev].Fprintf(p.w, "%s %sS (%d)", p.icon(sev), strings.ToUpper(string(sev)), counts[sev])
		if p.cfg.IsBlocking(sev) {
			severityColors[config.SeverityError].Fprint(p.w, " [BLOCKING]")
		}
		fmt.Fprintln(p.w)
		fmt.Fprintln(p.w, strings.Repeat("-", 50))

		names := make([]string, 0, len(kinds))
		for kind := range kinds {
			names = append(names, kind)
		}
		sort.Strings(names)

		for _, kind := range names {
			messages := kinds[kind]
			fmt.Fprintln(p.w)
			fmt.Fprintf(p.w, "  %s (%d)\n", p.bold.Sprint(displayName(kind)), len(messages))

			shown := messages
			if p.maxMessages > 0 && len(shown) > p.maxMessages {
				shown = shown[:p.maxMessages]
			}
			for _, msg := range shown {
				if len(msg) > maxMessageLength {
					msg = msg[:maxMessageLength-3] + "..."
				}
				fmt.Fprintf(p.w, "    - %s\n", msg)
			}
			if p.maxMessages > 0 && len(messages) > p.maxMessages {
				fmt.Fprintf(p.w, "    ... and %d more\n", len(messages)-p.maxMessages)
			}
		}
	}

	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, strings.Repeat("-", 50))
	p.printSummary(counts)
}

func (p *Printer) printSummary(counts map[config.Severity]int) {
	var parts []string
	for _, sev := range config.Severities() {
		count := counts[sev]
		if count == 0 && sev == config.SeverityInfo {
			continue
		}
		text := fmt.Sprintf("%s %d %s%s", p.icon(sev), count, sev, plural(count))
		if p.cfg.IsBlocking(sev) && count > 0 {
			text += " (blocking)"
		}
		parts = append(parts, severityColors[sev].Sprint(text))
	}
	fmt.Fprintf(p.w, "Summary: %s\n", strings.Join(parts, " | "))
}

// PrintSuccess reports a clean addon.
func (p *Printer) PrintSuccess(name, scope string) {
	label := "(full)"
	if scope == config.ScopeChanged {
		label = "(changed files)"
	}
	if name != "" {
		p.success.Fprintf(p.w, "%s: All checks passed! %s\n", name, label)
		return
	}
	p.success.Fprintln(p.w, "All checks passed!")
}

// PrintBlockingNotice prints the final failure banner.
func (p *Printer) PrintBlockingNotice() {
	red := severityColors[config.SeverityError]
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(p.w)
	red.Fprintln(p.w, rule)
	red.Fprintln(p.w, "VALIDATION FAILED - Blocking issues found")
	red.Fprintln(p.w, rule)
	fmt.Fprintln(p.w)
}

// PrintFinalSummary prints the multi-addon recap.
func (p *Printer) PrintFinalSummary(results []*checks.AddonResult, scope string, versions []string, elapsed float64) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, rule)
	fmt.Fprintln(p.w, "FINAL SUMMARY")
	fmt.Fprintln(p.w, rule)
	fmt.Fprintf(p.w, "  Validation scope: %s\n", scopeLabel(scope))
	if len(versions) > 0 {
		fmt.Fprintf(p.w, "  Odoo version(s): %s\n", strings.Join(versions, ", "))
	}

	totals := map[config.Severity]int{}
	withIssues := 0
	for _, res := range results {
		if res.Result.Empty() {
			continue
		}
		withIssues++
		for sev, count := range res.Result.Counts() {
			totals[sev] += count
		}
	}

	fmt.Fprintf(p.w, "  Modules checked: %d\n", len(results))
	fmt.Fprintf(p.w, "  Modules with issues: %d\n", withIssues)
	fmt.Fprintf(p.w, "  Errors: %d\n", totals[config.SeverityError])
	fmt.Fprintf(p.w, "  Warnings: %d\n", totals[config.SeverityWarning])
	fmt.Fprintf(p.w, "  Info: %d\n", totals[config.SeverityInfo])
	fmt.Fprintf(p.w, "  Elapsed time: %.2fs\n", elapsed)
}

func scopeLabel(scope string) string {
	if scope == config.ScopeChanged {
		return "changed files only"
	}
	return "full repository"
}

// displayName turns a diagnostic kind into a title: xml_syntax_error
// becomes "Xml Syntax Error".
func displayName(kind string) string {
	words := strings.Split(kind, "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
