package checks

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/c360studio/odoolint/addon"
	"github.com/c360studio/odoolint/config"
	"github.com/c360studio/odoolint/extract"
)

// sequentialThreshold is the batch size below which spawning an
// extraction pool costs more than it saves.
const sequentialThreshold = 8

// Scope decides which files the rules look at. The manifest and
// readme checks always run; everything file-based goes through here.
type Scope interface {
	InScope(ctx context.Context, path string) bool
}

// ScopeFunc adapts a function to the Scope interface.
type ScopeFunc func(ctx context.Context, path string) bool

// InScope calls f.
func (f ScopeFunc) InScope(ctx context.Context, path string) bool {
	return f(ctx, path)
}

// FullScope puts every file in scope.
var FullScope Scope = ScopeFunc(func(context.Context, string) bool { return true })

// Runner validates addons: it extracts the referenced files, resolves
// model capabilities, and dispatches the rule sets.
type Runner struct {
	cfg      *config.Config
	registry *extract.Registry
	scope    Scope
	logger   *slog.Logger
}

// NewRunner creates a runner. A nil scope validates everything; a nil
// registry uses the package defaults.
func NewRunner(cfg *config.Config, registry *extract.Registry, scope Scope, logger *slog.Logger) *Runner {
	if registry == nil {
		registry = extract.DefaultRegistry
	}
	if scope == nil {
		scope = FullScope
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, registry: registry, scope: scope, logger: logger}
}

// AddonResult is the outcome of validating one addon.
type AddonResult struct {
	Addon  *addon.Addon
	Result *Result
	// Python holds every Python unit of the addon regardless of scope;
	// coverage metrics are computed over the whole addon even when the
	// rules only look at changed files.
	Python []*extract.Unit
}

// HasBlocking reports whether the addon fails the run.
func (ar *AddonResult) HasBlocking() bool {
	return ar.Result.HasBlocking()
}

// Run validates one addon. The returned error reports infrastructure
// failures only; findings land in the Result.
func (r *Runner) Run(ctx context.Context, a *addon.Addon) (*AddonResult, error) {
	result := NewResult(r.cfg)
	out := &AddonResult{Addon: a, Result: result}

	if a.Manifest.Empty() {
		result.Add("manifest_syntax_error",
			fmt.Sprintf("%s could not be loaded %s", a.ManifestPath, a.LoadErr))
	}
	if !a.Installable() {
		r.logger.Debug("addon not installable, skipping checks", "addon", a.Name)
		return out, nil
	}

	if !a.HasReadme(r.cfg) {
		result.Add("missing_readme",
			fmt.Sprintf("%s missing README. Template: %s", a.Path, addon.ReadmeTemplateURL))
	}

	python, err := r.extractAll(ctx, a.FilesByExt(".py"))
	if err != nil {
		return nil, err
	}
	out.Python = python

	scopedPython := r.inScope(ctx, python)
	xml, err := r.extractScoped(ctx, a.FilesByExt(".xml"))
	if err != nil {
		return nil, err
	}
	csv, err := r.extractScoped(ctx, a.FilesByExt(".csv"))
	if err != nil {
		return nil, err
	}
	po, err := r.extractScoped(ctx, a.FilesByExt(".po"))
	if err != nil {
		return nil, err
	}
	pot, err := r.extractScoped(ctx, a.FilesByExt(".pot"))
	if err != nil {
		return nil, err
	}
	po = append(po, pot...)

	// Capability resolution sees the whole addon so an inheritance
	// chain declared in an unchanged file still counts.
	ResolveMailThread(allModels(python))

	checkPython(r.cfg, scopedPython, result)
	checkXML(r.cfg, a.Name, xml, result)
	checkXMLAdvanced(r.cfg, xml, result)
	checkCSV(r.cfg, csv, result)
	checkPO(r.cfg, po, result)

	r.logger.Debug("addon validated",
		"addon", a.Name,
		"python", len(scopedPython), "xml", len(xml), "csv", len(csv), "po", len(po),
		"kinds", len(result.Kinds()))
	return out, nil
}

// RunAll validates a batch of addons in order.
func (r *Runner) RunAll(ctx context.Context, addons []*addon.Addon) ([]*AddonResult, error) {
	results := make([]*AddonResult, 0, len(addons))
	for _, a := range addons {
		res, err := r.Run(ctx, a)
		if err != nil {
			return nil, fmt.Errorf("validate %s: %w", a.Name, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Runner) inScope(ctx context.Context, units []*extract.Unit) []*extract.Unit {
	var out []*extract.Unit
	for _, unit := range units {
		if r.scope.InScope(ctx, unit.Path) {
			out = append(out, unit)
		}
	}
	return out
}

// extractScoped extracts the referenced files that the scope admits.
func (r *Runner) extractScoped(ctx context.Context, refs []addon.FileRef) ([]*extract.Unit, error) {
	var scoped []addon.FileRef
	for _, ref := range refs {
		if r.scope.InScope(ctx, ref.Path) {
			scoped = append(scoped, ref)
		}
	}
	return r.extractAll(ctx, scoped)
}

// extractAll parses every referenced file, fanning out to a worker
// pool for larger batches. Order of the returned units matches refs.
func (r *Runner) extractAll(ctx context.Context, refs []addon.FileRef) ([]*extract.Unit, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	workers := r.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(refs) {
		workers = len(refs)
	}

	units := make([]*extract.Unit, len(refs))
	if len(refs) <= sequentialThreshold || workers == 1 {
		extractors := make(map[string]extract.Extractor)
		for i, ref := range refs {
			unit, err := r.extractOne(ctx, extractors, ref)
			if err != nil {
				return nil, err
			}
			units[i] = unit
		}
		return compactUnits(units), nil
	}

	jobs := make(chan int)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := range refs {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			// Extractors are not goroutine-safe; each worker gets its own.
			extractors := make(map[string]extract.Extractor)
			for i := range jobs {
				unit, err := r.extractOne(gctx, extractors, refs[i])
				if err != nil {
					return err
				}
				units[i] = unit
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return compactUnits(units), nil
}

func (r *Runner) extractOne(ctx context.Context, extractors map[string]extract.Extractor, ref addon.FileRef) (*extract.Unit, error) {
	ex, ok := extractors[ref.Ext]
	if !ok {
		var found bool
		ex, found = r.registry.ForExtension(ref.Ext)
		if !found {
			r.logger.Debug("no extractor registered", "ext", ref.Ext, "path", ref.Path)
			return nil, nil
		}
		extractors[ref.Ext] = ex
	}

	unit, err := ex.Extract(ctx, ref.Path)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", ref.Path, err)
	}
	unit.Section = ref.Section
	return unit, nil
}

func compactUnits(units []*extract.Unit) []*extract.Unit {
	out := units[:0]
	for _, unit := range units {
		if unit != nil {
			out = append(out, unit)
		}
	}
	return out
}
