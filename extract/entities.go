// Package extract parses addon source files into structured facts.
//
// Each supported artifact family (Python models, XML records, CSV data,
// PO catalogs) has an extractor that turns one file into a Unit. A Unit
// carries the facts the rule engine consumes plus an optional
// ParseError when the file could not be fully parsed. Extraction never
// fails a batch: malformed input degrades to a ParseError on that unit
// and processing continues.
package extract

import (
	"context"
	"strings"
)

// UnitKind identifies the artifact family a source unit belongs to.
type UnitKind string

// Supported unit kinds.
const (
	KindPython UnitKind = "python"
	KindXML    UnitKind = "xml"
	KindCSV    UnitKind = "csv"
	KindPO     UnitKind = "po"
)

// ParseError records a failure to parse one source unit.
type ParseError struct {
	Line    int // 1-based, 0 when unknown
	Message string
}

// Unit is one parsed source file. The facts field matching Kind is
// always populated (possibly with partial or empty facts); ParseError
// is set when parsing failed.
type Unit struct {
	Path    string
	Section string // manifest section the file came from (data, demo, python, default)
	Kind    UnitKind

	Python *PythonFacts
	XML    *XMLFacts
	CSV    *CSVFacts
	PO     *POFacts

	ParseError *ParseError
}

// Extractor parses one file into a Unit. Parse and read failures are
// reported through Unit.ParseError, not the error return, so a bad
// file never aborts a batch.
//
// Extractor instances are not safe for concurrent use; create one per
// goroutine.
type Extractor interface {
	Extract(ctx context.Context, path string) (*Unit, error)
}

// PythonFacts holds the model classes extracted from one Python file.
type PythonFacts struct {
	Models []*Model
}

// Model is one class declaration. HasMailThread starts false and is
// set during inheritance resolution; all other fields are fixed at
// extraction time.
type Model struct {
	Class       string // Python class name
	Path        string
	Line        int
	Name        string   // _name value, empty for extension-only classes
	Inherits    []string // _inherit values in declaration order
	Description string
	IsOdooModel bool

	HasMailThread bool

	Fields  []*Field
	Methods []*Method
}

// Identity returns the name the model is indexed under: _name when
// declared, otherwise the first _inherit target.
func (m *Model) Identity() string {
	if m.Name != "" {
		return m.Name
	}
	if len(m.Inherits) > 0 {
		return m.Inherits[0]
	}
	return ""
}

// Field is one recognized field declaration inside a class body.
type Field struct {
	Name string
	Type string // vocabulary tag: Char, Many2one, ...
	Line int

	String      string
	Help        string
	Related     string
	Compute     string
	ComputeSudo *bool // nil when not declared
	Tracking    bool
	Selection   bool
	Comodel     string
}

// Private reports whether the field name starts with an underscore.
func (f *Field) Private() bool {
	return strings.HasPrefix(f.Name, "_")
}

// Method is one function definition inside a class body.
type Method struct {
	Name       string
	Line       int
	Decorators []string

	HasDocstring bool
	Docstring    string
}

// Private reports whether the method name starts with an underscore.
func (m *Method) Private() bool {
	return strings.HasPrefix(m.Name, "_")
}

// Magic reports whether the method uses dunder naming.
func (m *Method) Magic() bool {
	return strings.HasPrefix(m.Name, "__") && strings.HasSuffix(m.Name, "__")
}

// XMLFacts holds the positioned element tree of one XML file. Root is
// never nil: a file that failed to parse gets an empty placeholder
// element so rules can still walk it.
type XMLFacts struct {
	Root *XMLElement
}

// XMLElement is one element with source position and parent link.
type XMLElement struct {
	Tag      string
	Attrs    map[string]string
	Line     int
	Text     string // concatenated direct character data
	Parent   *XMLElement
	Children []*XMLElement
}

// Attr returns the attribute value, or empty when absent.
func (e *XMLElement) Attr(name string) string {
	return e.Attrs[name]
}

// HasAttr reports whether the attribute is present.
func (e *XMLElement) HasAttr(name string) bool {
	_, ok := e.Attrs[name]
	return ok
}

// Walk visits the element and all descendants in document order.
func (e *XMLElement) Walk(fn func(*XMLElement)) {
	fn(e)
	for _, child := range e.Children {
		child.Walk(fn)
	}
}

// ChildrenByTag returns the direct children with the given tag.
func (e *XMLElement) ChildrenByTag(tag string) []*XMLElement {
	var out []*XMLElement
	for _, child := range e.Children {
		if child.Tag == tag {
			out = append(out, child)
		}
	}
	return out
}

// CSVFacts holds the record rows of one CSV data file.
type CSVFacts struct {
	Model string // derived from the file basename
	Rows  []CSVRow
}

// CSVRow is one data row carrying a non-empty external id.
type CSVRow struct {
	ID   string
	Line int
}

// POFacts holds the entries of one gettext catalog.
type POFacts struct {
	Entries []*POEntry
}

// POEntry is one msgid/msgstr pair. Line is the first line of the
// entry block (comments included); MsgIDLine is where the msgid
// keyword appears, which is what translators see in msgfmt output.
type POEntry struct {
	MsgID     string
	MsgStr    string
	Comment   string // extracted "#." comments joined with newlines
	Flags     []string
	Line      int
	MsgIDLine int
	Obsolete  bool
}

// HasFlag reports whether the entry carries the given "#," flag.
func (e *POEntry) HasFlag(name string) bool {
	for _, f := range e.Flags {
		if f == name {
			return true
		}
	}
	return false
}
