// Package scope narrows validation to the files changed in the current
// commit or pull request.
//
// Context detection mirrors the environments the tool runs in: CI is
// recognized from the usual environment variables, a local pre-commit
// run from the presence of staged files. Detection is fail-soft: when
// git is unavailable or a diff fails, the changed set comes back empty
// and nothing is in scope, rather than aborting the run.
package scope

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/c360studio/odoolint/tools/git"
)

// Execution contexts.
const (
	ContextLocal   = "local"
	ContextCI      = "ci"
	ContextUnknown = "unknown"
)

// EnvBaseBranch names the environment variable that pins the base
// branch for CI diffs.
const EnvBaseBranch = "ODOOLINT_BASE_BRANCH"

// gitTimeout bounds each git subprocess
const gitTimeout = 10 * time.Second

// baseCandidates are probed in order when no base branch is configured.
var baseCandidates = []string{"main", "master", "develop"}

// Detector resolves the execution context and the set of changed files
// for the current run. Results are memoized, so one detector serves a
// whole validation pass.
type Detector struct {
	exec   *git.Executor
	logger *slog.Logger

	baseOverride string

	execContext string
	base        string
	root        string
	changed     map[string]struct{}
}

// NewDetector creates a detector backed by the given git executor.
// baseOverride, when non-empty, pins the base branch instead of
// consulting the environment.
func NewDetector(exec *git.Executor, logger *slog.Logger, baseOverride string) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{exec: exec, logger: logger, baseOverride: baseOverride}
}

// Context reports whether the run looks like CI, a local pre-commit
// hook, or neither.
func (d *Detector) Context(ctx context.Context) string {
	if d.execContext != "" {
		return d.execContext
	}
	d.execContext = d.detectContext(ctx)
	d.logger.Debug("detected execution context", "context", d.execContext)
	return d.execContext
}

func (d *Detector) detectContext(ctx context.Context) string {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return ContextCI
	}
	if os.Getenv("GITHUB_BASE_REF") != "" || os.Getenv(EnvBaseBranch) != "" {
		return ContextCI
	}

	cctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()
	if staged, err := d.exec.StagedFiles(cctx); err == nil && len(staged) > 0 {
		return ContextLocal
	}
	return ContextUnknown
}

// BaseBranch resolves the ref that CI diffs compare against.
//
// Priority: explicit override, ODOOLINT_BASE_BRANCH, GITHUB_BASE_REF,
// the first of origin/{main,master,develop} that exists, then HEAD~1.
func (d *Detector) BaseBranch(ctx context.Context) string {
	if d.base != "" {
		return d.base
	}
	d.base = d.detectBase(ctx)
	d.logger.Debug("resolved base branch", "base", d.base)
	return d.base
}

func (d *Detector) detectBase(ctx context.Context) string {
	if d.baseOverride != "" {
		return originRef(d.baseOverride)
	}
	if env := os.Getenv(EnvBaseBranch); env != "" {
		return originRef(env)
	}
	if pr := os.Getenv("GITHUB_BASE_REF"); pr != "" {
		return "origin/" + pr
	}

	for _, candidate := range baseCandidates {
		cctx, cancel := context.WithTimeout(ctx, gitTimeout)
		exists := d.exec.RefExists(cctx, "origin/"+candidate)
		cancel()
		if exists {
			return "origin/" + candidate
		}
	}
	return "HEAD~1"
}

// ChangedFiles returns the changed set as absolute, symlink-resolved
// paths. Local runs use the staged index, CI runs diff against the
// base branch, and an unknown context tries staged files first.
func (d *Detector) ChangedFiles(ctx context.Context) map[string]struct{} {
	if d.changed != nil {
		return d.changed
	}

	switch d.Context(ctx) {
	case ContextLocal:
		d.changed = d.stagedSet(ctx)
	case ContextCI:
		d.changed = d.ciChangedSet(ctx)
	default:
		d.changed = d.stagedSet(ctx)
		if len(d.changed) == 0 {
			d.changed = d.ciChangedSet(ctx)
		}
	}

	d.logger.Debug("changed set resolved", "files", len(d.changed))
	return d.changed
}

// IsChanged checks whether a path is in the changed set.
func (d *Detector) IsChanged(ctx context.Context, path string) bool {
	_, ok := d.ChangedFiles(ctx)[realPath(path)]
	return ok
}

func (d *Detector) stagedSet(ctx context.Context) map[string]struct{} {
	cctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	files, err := d.exec.StagedFiles(cctx)
	if err != nil {
		d.logger.Debug("failed to list staged files", "error", err)
		return map[string]struct{}{}
	}
	return d.toSet(ctx, files)
}

func (d *Detector) ciChangedSet(ctx context.Context) map[string]struct{} {
	base := d.BaseBranch(ctx)
	if !d.ensureBase(ctx, base) {
		d.logger.Debug("base ref unavailable, nothing in scope", "base", base)
		return map[string]struct{}{}
	}

	cctx, cancel := context.WithTimeout(ctx, gitTimeout)
	files, err := d.exec.ChangedFiles(cctx, base, true)
	cancel()
	if err != nil {
		d.logger.Debug("merge-base diff failed, falling back", "base", base, "error", err)
		cctx, cancel := context.WithTimeout(ctx, gitTimeout)
		files, err = d.exec.ChangedFiles(cctx, base, false)
		cancel()
		if err != nil {
			d.logger.Debug("diff against base failed", "base", base, "error", err)
			return map[string]struct{}{}
		}
	}
	return d.toSet(ctx, files)
}

// ensureBase makes the base ref resolvable, fetching it shallowly when
// a CI checkout does not have it.
func (d *Detector) ensureBase(ctx context.Context, base string) bool {
	if base == "HEAD~1" {
		return true
	}

	cctx, cancel := context.WithTimeout(ctx, gitTimeout)
	exists := d.exec.RefExists(cctx, base)
	cancel()
	if exists {
		return true
	}

	branch := strings.TrimPrefix(base, "origin/")
	d.logger.Debug("base ref missing, fetching", "branch", branch)

	fctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()
	if err := d.exec.FetchBranch(fctx, branch); err != nil {
		d.logger.Debug("fetch failed", "branch", branch, "error", err)
		return false
	}
	return true
}

// toSet converts repo-relative diff output into absolute paths.
func (d *Detector) toSet(ctx context.Context, files []string) map[string]struct{} {
	root := d.repoRoot(ctx)
	set := make(map[string]struct{}, len(files))
	for _, f := range files {
		set[realPath(filepath.Join(root, f))] = struct{}{}
	}
	return set
}

func (d *Detector) repoRoot(ctx context.Context) string {
	if d.root != "" {
		return d.root
	}

	cctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()
	top, err := d.exec.Toplevel(cctx)
	if err != nil {
		top, _ = os.Getwd()
	}
	d.root = top
	return d.root
}

func originRef(branch string) string {
	if strings.HasPrefix(branch, "origin/") {
		return branch
	}
	return "origin/" + branch
}

// realPath normalizes a path for set membership: absolute, with
// symlinks resolved when the file exists.
func realPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}
