package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func parseXMLSource(t *testing.T, code string) *Unit {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.xml")
	if err := os.WriteFile(path, []byte(code), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	unit, err := NewXMLExtractor().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return unit
}

func TestExtractXML_Tree(t *testing.T) {
	code := `<?xml version="1.0" encoding="utf-8"?>
<odoo>
    <data noupdate="1">
        <record id="view_a" model="ir.ui.view">
            <field name="priority">99</field>
        </record>
    </data>
</odoo>
`
	unit := parseXMLSource(t, code)
	if unit.ParseError != nil {
		t.Fatalf("unexpected parse error: %+v", unit.ParseError)
	}

	root := unit.XML.Root
	if root.Tag != "odoo" {
		t.Fatalf("root tag = %q, want odoo", root.Tag)
	}
	if root.Line != 2 {
		t.Errorf("root line = %d, want 2", root.Line)
	}

	data := root.ChildrenByTag("data")
	if len(data) != 1 {
		t.Fatalf("data children = %d, want 1", len(data))
	}
	if data[0].Attr("noupdate") != "1" {
		t.Errorf("noupdate = %q, want 1", data[0].Attr("noupdate"))
	}

	records := data[0].ChildrenByTag("record")
	if len(records) != 1 {
		t.Fatalf("record children = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.Attr("id") != "view_a" || rec.Attr("model") != "ir.ui.view" {
		t.Errorf("record attrs = %v", rec.Attrs)
	}
	if rec.Line != 4 {
		t.Errorf("record line = %d, want 4", rec.Line)
	}
	if rec.Parent != data[0] {
		t.Error("record parent link broken")
	}

	fields := rec.ChildrenByTag("field")
	if len(fields) != 1 {
		t.Fatalf("field children = %d, want 1", len(fields))
	}
	if fields[0].Text != "99" {
		t.Errorf("field text = %q, want 99", fields[0].Text)
	}
}

func TestExtractXML_Walk(t *testing.T) {
	code := `<odoo>
    <record id="a"/>
    <template>
        <t t-esc="x"/>
    </template>
</odoo>
`
	unit := parseXMLSource(t, code)

	var tags []string
	unit.XML.Root.Walk(func(el *XMLElement) {
		tags = append(tags, el.Tag)
	})
	want := []string{"odoo", "record", "template", "t"}
	if len(tags) != len(want) {
		t.Fatalf("walked %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("walk order[%d] = %q, want %q", i, tags[i], want[i])
		}
	}
}

func TestExtractXML_ParseError(t *testing.T) {
	code := `<odoo>
    <record id="a">
</odoo>
`
	unit := parseXMLSource(t, code)
	if unit.ParseError == nil {
		t.Fatal("ParseError = nil, want syntax error")
	}
	if unit.ParseError.Line == 0 {
		t.Error("ParseError.Line = 0, want positioned error")
	}
	if unit.XML.Root == nil || unit.XML.Root.Tag != emptyTreeTag {
		t.Errorf("degraded root = %+v, want %q placeholder", unit.XML.Root, emptyTreeTag)
	}
	if len(unit.XML.Root.Children) != 0 {
		t.Error("placeholder root should have no children")
	}
}

func TestExtractXML_EmptyDocument(t *testing.T) {
	unit := parseXMLSource(t, "")
	if unit.ParseError == nil {
		t.Fatal("ParseError = nil, want empty-document error")
	}
	if unit.XML.Root.Tag != emptyTreeTag {
		t.Errorf("root tag = %q, want placeholder", unit.XML.Root.Tag)
	}
}

func TestExtractXML_MultilineTag(t *testing.T) {
	code := `<odoo>
    <record
        id="spread"
        model="ir.ui.view">
    </record>
</odoo>
`
	unit := parseXMLSource(t, code)
	records := unit.XML.Root.ChildrenByTag("record")
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].Line != 2 {
		t.Errorf("multiline tag line = %d, want opening line 2", records[0].Line)
	}
}
