package extract

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"os"
	"sort"
)

// emptyTreeTag is the placeholder root used when a file has no usable
// tree, so rules can walk parse failures without nil checks.
const emptyTreeTag = "__empty__"

func init() {
	DefaultRegistry.Register(KindXML, []string{".xml"}, func() Extractor {
		return NewXMLExtractor()
	})
}

// XMLExtractor builds a positioned element tree from one XML file. A
// malformed file degrades to an empty placeholder tree plus a
// ParseError so every rule sees the same view of the file.
type XMLExtractor struct{}

// NewXMLExtractor creates an XML extractor.
func NewXMLExtractor() *XMLExtractor {
	return &XMLExtractor{}
}

// Extract parses the file at path.
func (x *XMLExtractor) Extract(ctx context.Context, path string) (*Unit, error) {
	unit := &Unit{Path: path, Kind: KindXML}

	content, err := os.ReadFile(path)
	if err != nil {
		unit.XML = &XMLFacts{Root: &XMLElement{Tag: emptyTreeTag}}
		unit.ParseError = &ParseError{Message: err.Error()}
		return unit, nil
	}

	root, perr := parseXMLTree(content)
	unit.XML = &XMLFacts{Root: root}
	unit.ParseError = perr
	return unit, nil
}

// parseXMLTree tokenizes the document, keeping one line number per
// element. The decoder offset before each token marks where the
// token's "<" sits, which matches the line reported by reference
// parsers for multi-line tags.
func parseXMLTree(content []byte) (*XMLElement, *ParseError) {
	nl := newlineOffsets(content)
	dec := xml.NewDecoder(bytes.NewReader(content))

	var root *XMLElement
	var stack []*XMLElement

	for {
		offset := dec.InputOffset()
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			perr := &ParseError{Message: err.Error()}
			var syn *xml.SyntaxError
			if errors.As(err, &syn) {
				perr.Line = syn.Line
			}
			return &XMLElement{Tag: emptyTreeTag}, perr
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &XMLElement{
				Tag:   t.Name.Local,
				Line:  lineAt(nl, offset),
				Attrs: make(map[string]string, len(t.Attr)),
			}
			for _, attr := range t.Attr {
				el.Attrs[attrName(attr.Name)] = attr.Value
			}
			if len(stack) == 0 {
				if root == nil {
					root = el
				}
			} else {
				parent := stack[len(stack)-1]
				el.Parent = parent
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				top.Text += string(t)
			}
		}
	}

	if root == nil {
		return &XMLElement{Tag: emptyTreeTag}, &ParseError{Line: 1, Message: "document is empty"}
	}
	return root, nil
}

// attrName keeps namespace prefixes visible: encoding/xml expands
// known prefixes into URLs, so a short Space is treated as the
// original prefix (t-esc stays t-esc either way since "-" names are
// not namespaces).
func attrName(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

func newlineOffsets(content []byte) []int {
	var offsets []int
	for i, b := range content {
		if b == '\n' {
			offsets = append(offsets, i)
		}
	}
	return offsets
}

func lineAt(newlines []int, offset int64) int {
	return sort.SearchInts(newlines, int(offset)) + 1
}
