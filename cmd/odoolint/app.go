package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/odoolint/addon"
	"github.com/c360studio/odoolint/checks"
	"github.com/c360studio/odoolint/config"
	"github.com/c360studio/odoolint/report"
	"github.com/c360studio/odoolint/scope"
	"github.com/c360studio/odoolint/tools/git"
	"github.com/c360studio/odoolint/watch"
)

type app struct {
	configPath  string
	scopeFlag   string
	baseRef     string
	odooVersion string
	format      string
	jsonReport  string
	metricsFile string
	maxMessages int
	noCoverage  bool
	allModules  bool
	workers     int
	verbose     bool
	quiet       bool
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Odoo addon validator",
		Long: `Odoolint validates Odoo addon source artifacts before they reach
a database: Python models, XML records, CSV data files, and PO
translation catalogs.

Findings are classified as errors, warnings or info; by default only
errors block. Validation scope defaults to changed files (staged
locally, diffed against the base branch in CI) with coverage metrics
always computed over the whole addon.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file path (default: search upward for "+config.ConfigFileNames[0]+")")
	pf.StringVar(&a.scopeFlag, "scope", "", "validation scope: changed or full")
	pf.StringVar(&a.baseRef, "base-ref", "", "base branch for CI diffs")
	pf.StringVar(&a.odooVersion, "odoo-version", "", "target Odoo version (default: detect from manifest)")
	pf.IntVar(&a.workers, "workers", 0, "extraction workers (0 = number of CPUs)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "suppress output")

	check := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Validate addons",
		Long: `Validate the addons at the given paths. Paths may be addon
directories or individual files; files are mapped to their containing
addon. Without paths, addons are detected from staged files, falling
back to the current directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCheck(cmd.Context(), args)
		},
	}
	check.Flags().StringVar(&a.format, "format", "text", "output format: text or json")
	check.Flags().StringVar(&a.jsonReport, "json-report", "", "write a JSON coverage report to this path")
	check.Flags().StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path")
	check.Flags().IntVar(&a.maxMessages, "max-messages", 0, "max messages per check (0 = 10 in terminal, unlimited in CI)")
	check.Flags().BoolVar(&a.noCoverage, "no-coverage", false, "skip the coverage summary")
	check.Flags().BoolVar(&a.allModules, "all-modules", false, "list clean addons too")
	cmd.AddCommand(check)

	cmd.AddCommand(&cobra.Command{
		Use:   "watch [paths...]",
		Short: "Re-validate addons on file changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWatch(cmd.Context(), args)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default " + config.ConfigFileNames[0] + " to the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ConfigFileNames[0]
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.DefaultConfig().SaveToFile(path); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

// setup loads configuration, applies flag overrides, and builds the
// logger. Config problems surface here, before any addon is touched.
func (a *app) setup() (*config.Config, *slog.Logger, error) {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	if a.quiet {
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := config.NewLoader(logger).Load(a.configPath)
	cfg.Merge(&config.Config{
		ValidationScope: a.scopeFlag,
		BaseBranch:      a.baseRef,
		OdooVersion:     a.odooVersion,
		Workers:         a.workers,
	})
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// resolveAddons maps the CLI arguments to addon directories.
func (a *app) resolveAddons(ctx context.Context, args []string) []string {
	if len(args) > 0 {
		if !addon.IsFileList(args) {
			return args
		}
		detected := addon.DetectFromPaths(args)
		if len(detected) > 0 && !a.quiet {
			fmt.Printf("[%s] Detected %d addon(s) from %d file(s)\n", appName, len(detected), len(args))
		}
		return detected
	}

	exec := git.NewExecutor(".")
	if detected := addon.DetectFromStaged(ctx, exec); len(detected) > 0 {
		if !a.quiet {
			fmt.Printf("[%s] Detected %d addon(s) from staged files\n", appName, len(detected))
		}
		return detected
	}
	return []string{"."}
}

func (a *app) buildScope(cfg *config.Config, logger *slog.Logger) checks.Scope {
	if cfg.ValidationScope == config.ScopeFull {
		return checks.FullScope
	}
	detector := scope.NewDetector(git.NewExecutor("."), logger, cfg.BaseBranch)
	return checks.ScopeFunc(detector.IsChanged)
}

func (a *app) runCheck(ctx context.Context, args []string) error {
	cfg, logger, err := a.setup()
	if err != nil {
		return err
	}

	start := time.Now()
	paths := a.resolveAddons(ctx, args)
	if len(paths) == 0 {
		if !a.quiet {
			fmt.Printf("[%s] No Odoo addons detected from provided files\n", appName)
		}
		return nil
	}

	runner := checks.NewRunner(cfg, nil, a.buildScope(cfg, logger), logger)

	var addons []*addon.Addon
	for _, path := range paths {
		addons = append(addons, addon.Load(ctx, path, cfg))
	}

	results, err := runner.RunAll(ctx, addons)
	if err != nil {
		return err
	}

	cov := report.Collect(cfg, results)
	blocking := false
	for _, res := range results {
		if res.HasBlocking() {
			blocking = true
		}
	}

	if a.format == "json" {
		payload := report.BuildJSONReport(cov)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(payload); err != nil {
			return err
		}
	} else if !a.quiet {
		a.printText(cfg, results, cov, start)
	}

	if a.jsonReport != "" {
		if err := report.BuildJSONReport(cov).Save(a.jsonReport); err != nil {
			return err
		}
		if !a.quiet {
			fmt.Printf("\nCoverage report saved to: %s\n", a.jsonReport)
		}
	}
	if a.metricsFile != "" {
		if err := report.WriteMetricsFile(a.metricsFile, cov); err != nil {
			return err
		}
	}

	if blocking {
		return errBlocking
	}
	return nil
}

func (a *app) printText(cfg *config.Config, results []*checks.AddonResult, cov *report.Coverage, start time.Time) {
	var opts []report.PrinterOption
	if a.maxMessages > 0 {
		opts = append(opts, report.WithMaxMessages(a.maxMessages))
	}
	printer := report.NewPrinter(os.Stdout, cfg, opts...)

	for _, res := range results {
		if res.Result.Empty() {
			if a.allModules {
				printer.PrintSuccess(res.Addon.Name, cfg.ValidationScope)
			}
			continue
		}
		printer.PrintResults(res, cfg.ValidationScope)
	}

	if !a.noCoverage {
		report.WriteSummary(os.Stdout, cov)
	}

	if len(results) > 1 {
		versions := map[string]bool{}
		for _, res := range results {
			if res.Addon.Version != "" {
				versions[res.Addon.Version] = true
			}
		}
		sorted := make([]string, 0, len(versions))
		for v := range versions {
			sorted = append(sorted, v)
		}
		sort.Strings(sorted)
		printer.PrintFinalSummary(results, cfg.ValidationScope, sorted, time.Since(start).Seconds())
	}

	for _, res := range results {
		if res.HasBlocking() {
			printer.PrintBlockingNotice()
			break
		}
	}
}

// runWatch validates once, then re-validates affected addons on every
// debounced change batch until interrupted. Watch mode always uses
// full scope: the watcher itself decides what changed.
func (a *app) runWatch(ctx context.Context, args []string) error {
	a.scopeFlag = config.ScopeFull
	cfg, logger, err := a.setup()
	if err != nil {
		return err
	}

	sigCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	paths := a.resolveAddons(sigCtx, args)
	if len(paths) == 0 {
		paths = []string{"."}
	}

	runner := checks.NewRunner(cfg, nil, checks.FullScope, logger)
	printer := report.NewPrinter(os.Stdout, cfg)

	validate := func(targets []string) {
		for _, path := range targets {
			loaded := addon.Load(sigCtx, path, cfg)
			res, err := runner.Run(sigCtx, loaded)
			if err != nil {
				logger.Error("validation failed", "addon", loaded.Name, "error", err)
				continue
			}
			if res.Result.Empty() {
				printer.PrintSuccess(loaded.Name, cfg.ValidationScope)
			} else {
				printer.PrintResults(res, cfg.ValidationScope)
			}
		}
	}

	validate(paths)

	watcher, err := watch.NewWatcher(watch.Config{Roots: paths, Logger: logger})
	if err != nil {
		return err
	}
	if err := watcher.Start(sigCtx); err != nil {
		return err
	}

	for {
		select {
		case <-sigCtx.Done():
			logger.Info("shutting down")
			return watcher.Stop()
		case event, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			logger.Info("changes detected", "addons", len(event.Addons), "files", len(event.Paths))
			validate(event.Addons)
		}
	}
}
