package addon

import (
	"context"
	"testing"
)

func TestParseManifest(t *testing.T) {
	content := `# -*- coding: utf-8 -*-
{
    "name": "Sale Extra",
    "version": "17.0.1.0.3",
    "data": [
        "security/ir.model.access.csv",
        "views/sale_views.xml",
    ],
    "demo": ["demo/demo_data.xml"],
    "installable": True,
}
`
	m, err := ParseManifest(context.Background(), []byte(content))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if m.Empty() {
		t.Fatal("manifest reported empty")
	}
	if m.Version != "17.0.1.0.3" {
		t.Errorf("Version = %q", m.Version)
	}
	if !m.Installable {
		t.Error("Installable = false, want true")
	}

	data := m.DataFiles["data"]
	if len(data) != 2 || data[0] != "security/ir.model.access.csv" || data[1] != "views/sale_views.xml" {
		t.Errorf("data = %v", data)
	}
	if demo := m.DataFiles["demo"]; len(demo) != 1 || demo[0] != "demo/demo_data.xml" {
		t.Errorf("demo = %v", demo)
	}
}

func TestParseManifest_NotInstallable(t *testing.T) {
	for _, value := range []string{"False", "0", "None", `""`} {
		m, err := ParseManifest(context.Background(), []byte(`{"name": "x", "installable": `+value+`}`))
		if err != nil {
			t.Fatalf("ParseManifest(%s): %v", value, err)
		}
		if m.Installable {
			t.Errorf("installable=%s: Installable = true, want false", value)
		}
	}
}

func TestParseManifest_InstallableDefault(t *testing.T) {
	m, err := ParseManifest(context.Background(), []byte(`{"name": "x"}`))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if !m.Installable {
		t.Error("Installable = false, want default true")
	}
}

func TestParseManifest_ConcatenatedString(t *testing.T) {
	m, err := ParseManifest(context.Background(), []byte(`{"data": ["views/" "sale.xml"]}`))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if data := m.DataFiles["data"]; len(data) != 1 || data[0] != "views/sale.xml" {
		t.Errorf("data = %v", data)
	}
}

func TestParseManifest_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not a dict", `["a", "b"]`},
		{"call expression", `{"data": glob("*.xml")}`},
		{"two statements", `x = 1` + "\n" + `{"name": "x"}`},
		{"syntax error", `{"name": `},
		{"empty file", ``},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseManifest(context.Background(), []byte(tc.content)); err == nil {
				t.Errorf("ParseManifest(%q): expected error", tc.content)
			}
		})
	}
}

func TestParseManifest_EmptyDict(t *testing.T) {
	m, err := ParseManifest(context.Background(), []byte(`{}`))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if !m.Empty() {
		t.Error("Empty() = false for {}")
	}
}
