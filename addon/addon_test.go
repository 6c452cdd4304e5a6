package addon

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/c360studio/odoolint/config"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

const sampleManifest = `{
    "name": "Sale Extra",
    "version": "17.0.1.0.0",
    "data": [
        "security/ir.model.access.csv",
        "views/sale_views.xml",
    ],
    "demo": ["demo/demo_data.xml"],
}
`

func sampleAddon(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "sale_extra")
	writeTree(t, dir, map[string]string{
		"__manifest__.py":             sampleManifest,
		"__init__.py":                 "from . import models\n",
		"models/__init__.py":          "from . import sale\n",
		"models/sale.py":              "from odoo import models\n",
		"views/sale_views.xml":        "<odoo/>\n",
		"security/ir.model.access.csv": "id,name\n",
		"demo/demo_data.xml":          "<odoo/>\n",
		"i18n/es.po":                  "msgid \"\"\nmsgstr \"\"\n",
		"i18n/sale_extra.pot":         "msgid \"\"\nmsgstr \"\"\n",
		"tests/test_sale.py":          "def test(): pass\n",
		"static/lib/vendor.py":        "x = 1\n",
	})
	return dir
}

func TestLoad(t *testing.T) {
	dir := sampleAddon(t)
	a := Load(context.Background(), dir, config.DefaultConfig())

	if a.Name != "sale_extra" {
		t.Errorf("Name = %q", a.Name)
	}
	if a.LoadErr != "" {
		t.Fatalf("LoadErr = %q", a.LoadErr)
	}
	if !a.Installable() {
		t.Fatal("Installable() = false")
	}
	if a.Version != "17.0" {
		t.Errorf("Version = %q, want 17.0", a.Version)
	}

	xml := a.FilesByExt(".xml")
	if len(xml) != 2 {
		t.Fatalf("xml files = %d, want 2", len(xml))
	}
	if xml[0].Rel != filepath.Join("views", "sale_views.xml") || xml[0].Section != "data" {
		t.Errorf("xml[0] = %+v", xml[0])
	}
	if xml[1].Section != "demo" {
		t.Errorf("xml[1].Section = %q, want demo", xml[1].Section)
	}

	csv := a.FilesByExt(".csv")
	if len(csv) != 1 || csv[0].Section != "data" {
		t.Errorf("csv files = %+v", csv)
	}

	po := a.FilesByExt(".po")
	if len(po) != 1 || po[0].Section != "default" {
		t.Errorf("po files = %+v", po)
	}
	if pot := a.FilesByExt(".pot"); len(pot) != 1 {
		t.Errorf("pot files = %+v", pot)
	}

	var pyRels []string
	for _, ref := range a.FilesByExt(".py") {
		pyRels = append(pyRels, filepath.ToSlash(ref.Rel))
		if ref.Section != "python" {
			t.Errorf("%s: Section = %q, want python", ref.Rel, ref.Section)
		}
	}
	wantPy := map[string]bool{
		"__manifest__.py":    true,
		"__init__.py":        true,
		"models/__init__.py": true,
		"models/sale.py":     true,
	}
	if len(pyRels) != len(wantPy) {
		t.Fatalf("python files = %v, want %v", pyRels, wantPy)
	}
	for _, rel := range pyRels {
		if !wantPy[rel] {
			t.Errorf("unexpected python file %q (tests/static must be pruned)", rel)
		}
	}
}

func TestLoad_ExcludedDataEntry(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mod")
	writeTree(t, dir, map[string]string{
		"__manifest__.py": `{"name": "x", "data": ["views/ok.xml", "migrations/legacy.xml"]}`,
		"__init__.py":     "",
		"views/ok.xml":    "<odoo/>",
	})
	a := Load(context.Background(), dir, config.DefaultConfig())

	xml := a.FilesByExt(".xml")
	if len(xml) != 1 || filepath.ToSlash(xml[0].Rel) != "views/ok.xml" {
		t.Errorf("xml files = %+v, want only views/ok.xml", xml)
	}
}

func TestLoad_BrokenManifest(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "broken")
	writeTree(t, dir, map[string]string{
		"__manifest__.py": `{"name": open("x")}`,
		"__init__.py":     "",
	})
	a := Load(context.Background(), dir, config.DefaultConfig())

	if a.Manifest != nil {
		t.Error("Manifest != nil for broken manifest")
	}
	if a.LoadErr == "" {
		t.Error("LoadErr empty, want parse detail")
	}
	if a.Installable() {
		t.Error("Installable() = true for broken manifest")
	}
}

func TestLoad_MissingInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "noinit")
	writeTree(t, dir, map[string]string{
		"__manifest__.py": `{"name": "x"}`,
	})
	a := Load(context.Background(), dir, config.DefaultConfig())

	if a.Manifest != nil {
		t.Error("Manifest != nil without __init__.py")
	}
	if a.LoadErr != "" {
		t.Errorf("LoadErr = %q, want empty (not a parse failure)", a.LoadErr)
	}
}

func TestLoad_NotInstallable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "off")
	writeTree(t, dir, map[string]string{
		"__manifest__.py": `{"name": "x", "installable": False}`,
		"__init__.py":     "",
	})
	a := Load(context.Background(), dir, config.DefaultConfig())

	if a.Manifest == nil {
		t.Fatal("Manifest = nil")
	}
	if a.Installable() {
		t.Error("Installable() = true, want false")
	}
}

func TestHasReadme(t *testing.T) {
	dir := sampleAddon(t)
	cfg := config.DefaultConfig()

	a := Load(context.Background(), dir, cfg)
	if a.HasReadme(cfg) {
		t.Error("HasReadme = true without README")
	}

	writeTree(t, dir, map[string]string{"README.rst": "Sale Extra\n"})
	if !a.HasReadme(cfg) {
		t.Error("HasReadme = false with README.rst present")
	}
}

func TestDetectFromPaths(t *testing.T) {
	dir := sampleAddon(t)

	got := DetectFromPaths([]string{dir})
	if len(got) != 1 || got[0] != resolvePath(dir) {
		t.Errorf("direct dir: %v", got)
	}

	got = DetectFromPaths([]string{filepath.Join(dir, "models", "sale.py")})
	if len(got) != 1 || got[0] != resolvePath(dir) {
		t.Errorf("from file: %v", got)
	}

	// Same addon referenced twice collapses to one entry.
	got = DetectFromPaths([]string{
		filepath.Join(dir, "models", "sale.py"),
		filepath.Join(dir, "views", "sale_views.xml"),
	})
	if len(got) != 1 {
		t.Errorf("dedup: %v", got)
	}

	if got := DetectFromPaths([]string{t.TempDir()}); len(got) != 0 {
		t.Errorf("non-addon dir: %v", got)
	}
}

func TestIsFileList(t *testing.T) {
	if !IsFileList([]string{"models/sale.py"}) {
		t.Error("py path not recognized as file list")
	}
	if IsFileList([]string{"some_addon"}) {
		t.Error("bare directory name treated as file list")
	}
	if IsFileList(nil) {
		t.Error("empty list treated as file list")
	}
}

func TestDetectVersion(t *testing.T) {
	cfg := config.DefaultConfig()
	tests := []struct {
		name     string
		manifest *Manifest
		config   string
		want     string
	}{
		{"supported series", &Manifest{Version: "18.0.1.0.0", pairs: 1}, "", "18.0"},
		{"future series", &Manifest{Version: "21.0.1.0", pairs: 1}, "", "21.0"},
		{"too old falls back", &Manifest{Version: "14.0.1.0.0", pairs: 1}, "", "17.0"},
		{"config fallback", nil, "18.0", "18.0"},
		{"config normalized", nil, "18", "18.0"},
		{"default", nil, "", "17.0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg.OdooVersion = tc.config
			if got := DetectVersion(tc.manifest, cfg); got != tc.want {
				t.Errorf("DetectVersion = %q, want %q", got, tc.want)
			}
		})
	}
}
