package addon

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/c360studio/odoolint/tools/git"
)

// maxAncestorHops bounds the walk from a file up to its addon root.
const maxAncestorHops = 10

// relevantExtensions are the staged-file extensions that imply an
// addon needs validating.
var relevantExtensions = map[string]bool{
	".py": true, ".xml": true, ".csv": true, ".po": true, ".pot": true,
}

// fileListExtensions recognize path arguments that are files rather
// than addon directories.
var fileListExtensions = map[string]bool{
	".py": true, ".xml": true, ".csv": true, ".po": true, ".pot": true,
	".yml": true, ".yaml": true, ".json": true, ".md": true, ".rst": true, ".txt": true,
}

// IsFileList reports whether the path arguments look like individual
// files instead of addon directories.
func IsFileList(paths []string) bool {
	for _, path := range paths {
		if fileListExtensions[strings.ToLower(filepath.Ext(path))] {
			return true
		}
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return true
		}
	}
	return false
}

// FindRoot walks up from a file or directory looking for a manifest.
// Returns the addon directory, or empty when none is found within the
// hop limit.
func FindRoot(path string) string {
	dir := resolvePath(path)
	if info, err := os.Stat(dir); err == nil && info.Mode().IsRegular() {
		dir = filepath.Dir(dir)
	}

	for i := 0; i < maxAncestorHops; i++ {
		for _, name := range ManifestNames {
			if info, err := os.Stat(filepath.Join(dir, name)); err == nil && info.Mode().IsRegular() {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// DetectFromPaths maps a mixed list of files and directories to the
// unique addon directories containing them. Directories that are
// themselves addons win over ancestors found from files.
func DetectFromPaths(paths []string) []string {
	seen := make(map[string]bool)
	var fromFiles []string
	var direct []string

	for _, path := range paths {
		if path == "" {
			continue
		}
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if isAddonDir(path) {
				direct = append(direct, resolvePath(path))
				continue
			}
		}
		if root := FindRoot(path); root != "" && !seen[root] {
			seen[root] = true
			fromFiles = append(fromFiles, root)
		}
	}

	if len(direct) > 0 {
		return direct
	}
	sort.Strings(fromFiles)
	return fromFiles
}

// DetectFromStaged finds addons from the files staged in git. Returns
// nil when nothing relevant is staged, so callers can fall back.
func DetectFromStaged(ctx context.Context, exec *git.Executor) []string {
	staged, err := exec.StagedFiles(ctx)
	if err != nil || len(staged) == 0 {
		return nil
	}

	var relevant []string
	for _, f := range staged {
		if relevantExtensions[strings.ToLower(filepath.Ext(f))] ||
			strings.Contains(f, "__manifest__") || strings.Contains(f, "__openerp__") {
			relevant = append(relevant, f)
		}
	}
	if len(relevant) == 0 {
		return nil
	}
	return DetectFromPaths(relevant)
}

func isAddonDir(path string) bool {
	for _, name := range ManifestNames {
		if info, err := os.Stat(filepath.Join(path, name)); err == nil && info.Mode().IsRegular() {
			return true
		}
	}
	return false
}
