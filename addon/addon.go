// Package addon discovers Odoo addons and the source files each one
// declares for validation.
//
// An addon is a directory carrying a manifest (__manifest__.py or the
// legacy __openerp__.py) next to an __init__.py. The manifest's data
// sections, the i18n catalogs, and every Python source below the addon
// make up the validation set; exclusion globs from the configuration
// are applied while collecting, before anything is parsed.
package addon

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/odoolint/config"
)

// ManifestNames are the file names that mark a directory as an addon,
// in detection order.
var ManifestNames = []string{"__openerp__.py", "__manifest__.py"}

// ReadmeTemplateURL points at the README scaffold suggested when an
// addon ships without one.
const ReadmeTemplateURL = "https://github.com/c360studio/odoolint/blob/main/docs/README_TEMPLATE.rst"

// prunedDirs are never descended into when walking for Python sources.
var prunedDirs = map[string]bool{
	"__pycache__":  true,
	".git":         true,
	"node_modules": true,
	"static":       true,
	"lib":          true,
}

// FileRef is one file slated for validation.
type FileRef struct {
	// Path is the resolved location on disk.
	Path string
	// Rel is the path as referenced: the manifest entry for data files,
	// the addon-relative path for walked sources.
	Rel string
	// Section is the manifest key the file came from, "default" for
	// i18n catalogs, "python" for walked sources.
	Section string
	// Ext is the lowercase file extension.
	Ext string
}

// Addon is one discovered addon: its manifest, load state, and the
// files referenced for validation, grouped by extension.
type Addon struct {
	Name         string
	Path         string
	ManifestPath string
	Manifest     *Manifest
	// LoadErr carries the manifest parse failure, empty when the
	// manifest loaded (or was simply absent).
	LoadErr string
	// Version is the resolved target version series.
	Version string
	// Files maps lowercase extensions to referenced files.
	Files map[string][]FileRef
}

// Load builds an Addon from a manifest path or an addon directory.
// Load never fails: a missing or broken manifest leaves Manifest nil
// with the detail in LoadErr, and checks downstream decide what that
// means.
func Load(ctx context.Context, path string, cfg *config.Config) *Addon {
	manifestPath := resolveManifestPath(path)
	addonPath := filepath.Dir(manifestPath)

	a := &Addon{
		Name:         filepath.Base(addonPath),
		Path:         addonPath,
		ManifestPath: manifestPath,
	}
	a.Manifest = a.loadManifest(ctx)
	a.Version = DetectVersion(a.Manifest, cfg)
	a.Files = collectFiles(addonPath, a.Manifest, cfg)
	return a
}

// Installable reports whether checks beyond the manifest itself should
// run: the manifest loaded, has keys, and does not opt out.
func (a *Addon) Installable() bool {
	return !a.Manifest.Empty() && a.Manifest.Installable
}

// FilesByExt returns the referenced files with the given extension.
func (a *Addon) FilesByExt(ext string) []FileRef {
	return a.Files[strings.ToLower(ext)]
}

// HasReadme reports whether any accepted README name exists at the
// addon root.
func (a *Addon) HasReadme(cfg *config.Config) bool {
	for _, name := range cfg.ReadmeNames {
		if info, err := os.Stat(filepath.Join(a.Path, name)); err == nil && info.Mode().IsRegular() {
			return true
		}
	}
	return false
}

// resolveManifestPath maps an addon directory to its manifest file;
// paths that already point at a file pass through.
func resolveManifestPath(path string) string {
	for _, name := range ManifestNames {
		candidate := filepath.Join(path, name)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate
		}
	}
	return path
}

func (a *Addon) loadManifest(ctx context.Context) *Manifest {
	var known bool
	base := filepath.Base(a.ManifestPath)
	for _, name := range ManifestNames {
		if base == name {
			known = true
			break
		}
	}
	if !known {
		return nil
	}
	if info, err := os.Stat(a.ManifestPath); err != nil || !info.Mode().IsRegular() {
		return nil
	}
	if _, err := os.Stat(filepath.Join(a.Path, "__init__.py")); err != nil {
		return nil
	}

	content, err := os.ReadFile(a.ManifestPath)
	if err != nil {
		a.LoadErr = fmt.Sprintf("Manifest %s with error %v", a.ManifestPath, err)
		return nil
	}
	m, err := ParseManifest(ctx, content)
	if err != nil {
		a.LoadErr = fmt.Sprintf("Manifest %s with error %v", a.ManifestPath, err)
		return nil
	}
	if m.Empty() {
		return nil
	}
	return m
}

// collectFiles gathers the validation set: manifest data entries in
// section order, then i18n catalogs, then every Python source under
// the addon. Exclusion globs match the same string a user would write:
// the manifest entry, the glob result, or the addon-relative path.
func collectFiles(addonPath string, m *Manifest, cfg *config.Config) map[string][]FileRef {
	files := make(map[string][]FileRef)
	add := func(ref FileRef) {
		files[ref.Ext] = append(files[ref.Ext], ref)
	}

	if m != nil {
		for _, section := range dataSections {
			for _, entry := range m.DataFiles[section] {
				rel := filepath.Clean(filepath.FromSlash(entry))
				if cfg.IsPathExcluded(rel) {
					continue
				}
				add(FileRef{
					Path:    resolvePath(filepath.Join(addonPath, rel)),
					Rel:     rel,
					Section: section,
					Ext:     strings.ToLower(filepath.Ext(entry)),
				})
			}
		}
	}

	for _, pattern := range []string{"i18n*/*.po", "i18n*/*.pot"} {
		matches, err := doublestar.FilepathGlob(filepath.Join(addonPath, pattern))
		if err != nil {
			continue
		}
		for _, match := range matches {
			if cfg.IsPathExcluded(match) {
				continue
			}
			rel, err := filepath.Rel(addonPath, match)
			if err != nil {
				rel = match
			}
			add(FileRef{
				Path:    resolvePath(match),
				Rel:     rel,
				Section: "default",
				Ext:     strings.ToLower(filepath.Ext(match)),
			})
		}
	}

	filepath.WalkDir(addonPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != addonPath && prunedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".py") {
			return nil
		}
		rel, err := filepath.Rel(addonPath, path)
		if err != nil {
			rel = path
		}
		if cfg.IsPathExcluded(rel) {
			return nil
		}
		add(FileRef{Path: resolvePath(path), Rel: rel, Section: "python", Ext: ".py"})
		return nil
	})

	return files
}

// resolvePath mirrors realpath: absolute with symlinks resolved when
// the target exists.
func resolvePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}
