// Package git runs git subprocesses for change detection.
package git

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Executor runs git commands rooted at a repository directory.
type Executor struct {
	repoRoot string
}

// NewExecutor creates a git executor for the given repository root.
// An empty root runs commands in the process working directory.
func NewExecutor(repoRoot string) *Executor {
	return &Executor{repoRoot: repoRoot}
}

// runGit executes a git command in the repo directory
func (e *Executor) runGit(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if e.repoRoot != "" {
		cmd.Dir = e.repoRoot
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

// IsGitRepo checks if the repo root is inside a git repository.
func (e *Executor) IsGitRepo(ctx context.Context) bool {
	_, err := e.runGit(ctx, "rev-parse", "--git-dir")
	return err == nil
}

// Toplevel returns the absolute path of the repository root.
func (e *Executor) Toplevel(ctx context.Context) (string, error) {
	output, err := e.runGit(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// RefExists checks if a ref resolves to a commit.
func (e *Executor) RefExists(ctx context.Context, ref string) bool {
	_, err := e.runGit(ctx, "rev-parse", "--verify", "--quiet", ref)
	return err == nil
}

// FetchBranch fetches a single branch from origin with a shallow history.
// CI checkouts are often shallow clones that lack the base branch.
func (e *Executor) FetchBranch(ctx context.Context, branch string) error {
	_, err := e.runGit(ctx, "fetch", "origin", branch, "--depth=1")
	return err
}

// StagedFiles returns paths staged for commit. Deleted files are
// excluded since they no longer exist to validate.
func (e *Executor) StagedFiles(ctx context.Context) ([]string, error) {
	output, err := e.runGit(ctx, "diff", "--cached", "--name-only", "--diff-filter=ACMR")
	if err != nil {
		return nil, err
	}
	return splitFiles(output), nil
}

// ChangedFiles returns paths that differ from base. threeDot selects
// the merge-base form (base...HEAD), which ignores commits that landed
// on base after the branch point.
func (e *Executor) ChangedFiles(ctx context.Context, base string, threeDot bool) ([]string, error) {
	spec := base + "..HEAD"
	if threeDot {
		spec = base + "...HEAD"
	}
	output, err := e.runGit(ctx, "diff", "--name-only", "--diff-filter=ACMR", spec)
	if err != nil {
		return nil, err
	}
	return splitFiles(output), nil
}

// splitFiles splits git output into non-empty trimmed lines
func splitFiles(output string) []string {
	var files []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			files = append(files, line)
		}
	}
	return files
}
