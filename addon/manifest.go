package addon

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// dataSections are the manifest keys whose entries reference data
// files, in load order.
var dataSections = []string{"data", "demo", "demo_xml", "init_xml", "test", "update_xml"}

// Manifest holds the keys read out of an addon manifest. A manifest is
// a Python dict literal; anything that is not a literal fails the
// parse, the same way a literal evaluator would.
type Manifest struct {
	// DataFiles maps each data section to its declared files.
	DataFiles map[string][]string
	// Installable defaults to true when the key is absent.
	Installable bool
	// Version is the raw manifest version string.
	Version string

	pairs int
}

// Empty reports whether the manifest carried no keys at all.
func (m *Manifest) Empty() bool {
	return m == nil || m.pairs == 0
}

// ParseManifest evaluates a manifest dict literal.
func ParseManifest(ctx context.Context, content []byte) (*Manifest, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("invalid syntax")
	}

	var expr *sitter.Node
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		if child.Type() != "expression_statement" || expr != nil {
			return nil, fmt.Errorf("manifest must be a single dict literal")
		}
		expr = child
	}
	if expr == nil || expr.NamedChildCount() == 0 {
		return nil, fmt.Errorf("manifest must be a single dict literal")
	}

	dict := expr.NamedChild(0)
	if dict.Type() != "dictionary" {
		return nil, fmt.Errorf("manifest must be a dict literal, got %s", dict.Type())
	}
	if err := checkLiteral(dict); err != nil {
		return nil, err
	}

	m := &Manifest{
		DataFiles:   make(map[string][]string),
		Installable: true,
	}
	sections := make(map[string]bool, len(dataSections))
	for _, s := range dataSections {
		sections[s] = true
	}

	for i := 0; i < int(dict.NamedChildCount()); i++ {
		pair := dict.NamedChild(i)
		if pair.Type() != "pair" {
			continue
		}
		m.pairs++

		keyNode := pair.ChildByFieldName("key")
		valueNode := pair.ChildByFieldName("value")
		if keyNode == nil || valueNode == nil {
			continue
		}
		key, ok := manifestString(keyNode, content)
		if !ok {
			continue
		}

		switch {
		case sections[key]:
			m.DataFiles[key] = manifestStringList(valueNode, content)
		case key == "installable":
			m.Installable = manifestTruthy(valueNode, content)
		case key == "version":
			if v, ok := manifestString(valueNode, content); ok {
				m.Version = v
			}
		}
	}
	return m, nil
}

// literalTypes are the node types a literal evaluator accepts.
var literalTypes = map[string]bool{
	"dictionary": true, "pair": true, "list": true, "tuple": true,
	"set": true, "string": true, "concatenated_string": true,
	"string_start": true, "string_content": true, "string_end": true,
	"escape_sequence": true, "integer": true, "float": true,
	"true": true, "false": true, "none": true, "unary_operator": true,
	"parenthesized_expression": true, "comment": true,
}

func checkLiteral(node *sitter.Node) error {
	if !literalTypes[node.Type()] {
		return fmt.Errorf("manifest contains a non-literal %s expression", node.Type())
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if err := checkLiteral(node.NamedChild(i)); err != nil {
			return err
		}
	}
	return nil
}

func manifestString(node *sitter.Node, content []byte) (string, bool) {
	if node.Type() == "concatenated_string" {
		var parts []string
		for i := 0; i < int(node.NamedChildCount()); i++ {
			if s, ok := manifestString(node.NamedChild(i), content); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ""), true
	}
	if node.Type() != "string" {
		return "", false
	}

	var start, end *sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "string_start":
			start = child
		case "string_end":
			end = child
		}
	}
	if start != nil && end != nil && start.EndByte() <= end.StartByte() {
		return string(content[start.EndByte():end.StartByte()]), true
	}

	text := string(content[node.StartByte():node.EndByte()])
	for _, quote := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(text, quote) && strings.HasSuffix(text, quote) && len(text) >= 2*len(quote) {
			return text[len(quote) : len(text)-len(quote)], true
		}
	}
	return text, true
}

func manifestStringList(node *sitter.Node, content []byte) []string {
	if node.Type() != "list" && node.Type() != "tuple" {
		return nil
	}
	var out []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if s, ok := manifestString(node.NamedChild(i), content); ok {
			out = append(out, s)
		}
	}
	return out
}

func manifestTruthy(node *sitter.Node, content []byte) bool {
	switch node.Type() {
	case "true":
		return true
	case "false", "none":
		return false
	case "integer":
		return string(content[node.StartByte():node.EndByte()]) != "0"
	case "string":
		s, _ := manifestString(node, content)
		return s != ""
	default:
		return true
	}
}
