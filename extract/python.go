package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// fieldTypes is the declared-field vocabulary recognized on the right
// side of class-body assignments.
var fieldTypes = map[string]bool{
	"Char":                 true,
	"Text":                 true,
	"Html":                 true,
	"Integer":              true,
	"Float":                true,
	"Monetary":             true,
	"Boolean":              true,
	"Date":                 true,
	"Datetime":             true,
	"Binary":               true,
	"Selection":            true,
	"Many2one":             true,
	"One2many":             true,
	"Many2many":            true,
	"Reference":            true,
	"Image":                true,
	"Json":                 true,
	"Properties":           true,
	"PropertiesDefinition": true,
}

// relationalTypes are the field types whose first positional argument
// names the comodel instead of the label.
var relationalTypes = map[string]bool{
	"Many2one":  true,
	"One2many":  true,
	"Many2many": true,
}

// modelBaseClasses are the framework base classes that mark a class as
// a model when they appear as an attribute base.
var modelBaseClasses = map[string]bool{
	"Model":          true,
	"TransientModel": true,
	"AbstractModel":  true,
}

func init() {
	DefaultRegistry.Register(KindPython, []string{".py"}, func() Extractor {
		return NewPythonExtractor()
	})
}

// PythonExtractor parses Python sources with tree-sitter and extracts
// model classes, field declarations, and method definitions.
type PythonExtractor struct {
	parser *sitter.Parser
}

// NewPythonExtractor creates a Python extractor.
func NewPythonExtractor() *PythonExtractor {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	return &PythonExtractor{parser: parser}
}

// Extract parses the file at path. Syntax errors yield partial facts
// plus a ParseError: everything up to the damaged region is kept.
func (p *PythonExtractor) Extract(ctx context.Context, path string) (*Unit, error) {
	unit := &Unit{Path: path, Kind: KindPython, Python: &PythonFacts{}}

	content, err := os.ReadFile(path)
	if err != nil {
		unit.ParseError = &ParseError{Message: err.Error()}
		return unit, nil
	}

	tree, err := p.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	p.collectClasses(root, content, path, unit.Python)

	if root.HasError() {
		line := firstErrorLine(root)
		unit.ParseError = &ParseError{Line: line, Message: "invalid syntax"}
	}
	return unit, nil
}

// collectClasses walks the tree appending a Model for every class
// definition, including classes nested in functions.
func (p *PythonExtractor) collectClasses(node *sitter.Node, content []byte, path string, facts *PythonFacts) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "class_definition":
			facts.Models = append(facts.Models, p.extractModel(child, content, path, facts))
		case "decorated_definition":
			if def := findDefinition(child); def != nil && def.Type() == "class_definition" {
				facts.Models = append(facts.Models, p.extractModel(def, content, path, facts))
			} else {
				p.collectClasses(child, content, path, facts)
			}
		default:
			p.collectClasses(child, content, path, facts)
		}
	}
}

func (p *PythonExtractor) extractModel(classNode *sitter.Node, content []byte, path string, facts *PythonFacts) *Model {
	model := &Model{
		Path: path,
		Line: int(classNode.StartPoint().Row) + 1,
	}
	if nameNode := classNode.ChildByFieldName("name"); nameNode != nil {
		model.Class = nodeText(nameNode, content)
	}

	if supers := classNode.ChildByFieldName("superclasses"); supers != nil {
		for i := 0; i < int(supers.NamedChildCount()); i++ {
			base := supers.NamedChild(i)
			if base.Type() != "attribute" {
				continue
			}
			attr := base.ChildByFieldName("attribute")
			if attr != nil && modelBaseClasses[nodeText(attr, content)] {
				model.IsOdooModel = true
			}
		}
	}

	if body := classNode.ChildByFieldName("body"); body != nil {
		p.scanBody(body, content, path, model, facts, true)
	}
	return model
}

// scanBody collects fields and methods from a class subtree. Model
// attributes (_name, _inherit, _description) are only honored at the
// direct body level; field assignments and function definitions are
// picked up anywhere below, except inside nested classes, which become
// models of their own.
func (p *PythonExtractor) scanBody(node *sitter.Node, content []byte, path string, model *Model, facts *PythonFacts, direct bool) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "class_definition":
			facts.Models = append(facts.Models, p.extractModel(child, content, path, facts))
		case "decorated_definition":
			def := findDefinition(child)
			switch {
			case def == nil:
			case def.Type() == "class_definition":
				facts.Models = append(facts.Models, p.extractModel(def, content, path, facts))
			case def.Type() == "function_definition":
				model.Methods = append(model.Methods, p.extractMethod(def, child, content))
				p.scanBody(def, content, path, model, facts, false)
			}
		case "function_definition":
			model.Methods = append(model.Methods, p.extractMethod(child, nil, content))
			p.scanBody(child, content, path, model, facts, false)
		case "assignment":
			p.scanAssignment(child, content, model, direct)
		default:
			p.scanBody(child, content, path, model, facts, false)
		}
	}
}

func (p *PythonExtractor) scanAssignment(assign *sitter.Node, content []byte, model *Model, direct bool) {
	left := assign.ChildByFieldName("left")
	right := assign.ChildByFieldName("right")
	if left == nil || right == nil || left.Type() != "identifier" {
		return
	}
	target := nodeText(left, content)

	if direct {
		switch target {
		case "_name":
			if s, ok := stringConstant(right, content); ok {
				model.Name = s
				model.IsOdooModel = true
				return
			}
		case "_inherit":
			if parents, ok := stringOrList(right, content); ok {
				model.Inherits = append(model.Inherits, parents...)
				model.IsOdooModel = true
				return
			}
		case "_description":
			if s, ok := stringConstant(right, content); ok {
				model.Description = s
				return
			}
		}
	}

	call, ok := p.recognizeFieldCall(right, content)
	if !ok {
		return
	}
	model.Fields = append(model.Fields, p.extractField(target, call, assign, content))
}

// fieldCall is a recognized field-constructor call.
type fieldCall struct {
	typeName string
	args     *sitter.Node // argument_list, may be nil
}

// recognizeFieldCall classifies an assignment value as a field
// declaration. Recognized forms are fields.X(...) attribute calls and
// bare X(...) calls whose callee is in the field vocabulary.
func (p *PythonExtractor) recognizeFieldCall(value *sitter.Node, content []byte) (fieldCall, bool) {
	if value.Type() != "call" {
		return fieldCall{}, false
	}
	fn := value.ChildByFieldName("function")
	if fn == nil {
		return fieldCall{}, false
	}

	var typeName string
	switch fn.Type() {
	case "attribute":
		obj := fn.ChildByFieldName("object")
		attr := fn.ChildByFieldName("attribute")
		if obj != nil && attr != nil && obj.Type() == "identifier" && nodeText(obj, content) == "fields" {
			typeName = nodeText(attr, content)
		}
	case "identifier":
		typeName = nodeText(fn, content)
	}
	if !fieldTypes[typeName] {
		return fieldCall{}, false
	}
	return fieldCall{typeName: typeName, args: value.ChildByFieldName("arguments")}, true
}

func (p *PythonExtractor) extractField(name string, call fieldCall, assign *sitter.Node, content []byte) *Field {
	field := &Field{
		Name: name,
		Type: call.typeName,
		Line: int(assign.StartPoint().Row) + 1,
	}
	if call.args == nil {
		return field
	}

	positionalSeen := false
	for i := 0; i < int(call.args.NamedChildCount()); i++ {
		arg := call.args.NamedChild(i)
		if arg.Type() == "comment" {
			continue
		}
		if arg.Type() != "keyword_argument" {
			if positionalSeen {
				continue
			}
			positionalSeen = true
			if relationalTypes[call.typeName] {
				if s, ok := stringConstant(arg, content); ok {
					field.Comodel = s
				}
			} else if s, ok := textValue(arg, content); ok {
				field.String = s
			}
			continue
		}

		kwName := arg.ChildByFieldName("name")
		kwValue := arg.ChildByFieldName("value")
		if kwName == nil || kwValue == nil {
			continue
		}
		switch nodeText(kwName, content) {
		case "string":
			if s, ok := textValue(kwValue, content); ok {
				field.String = s
			}
		case "help":
			if s, ok := textValue(kwValue, content); ok {
				field.Help = s
			}
		case "related":
			if s, ok := stringConstant(kwValue, content); ok {
				field.Related = s
			}
		case "compute":
			if s, ok := stringConstant(kwValue, content); ok {
				field.Compute = s
			} else if kwValue.Type() == "identifier" {
				field.Compute = nodeText(kwValue, content)
			}
		case "compute_sudo":
			field.ComputeSudo = boolConstant(kwValue, content)
		case "tracking":
			field.Tracking = truthyConstant(kwValue, content, true)
		case "selection":
			field.Selection = true
		case "comodel_name":
			if s, ok := stringConstant(kwValue, content); ok {
				field.Comodel = s
			}
		}
	}
	return field
}

func (p *PythonExtractor) extractMethod(defNode, decorated *sitter.Node, content []byte) *Method {
	method := &Method{
		Line: int(defNode.StartPoint().Row) + 1,
	}
	if nameNode := defNode.ChildByFieldName("name"); nameNode != nil {
		method.Name = nodeText(nameNode, content)
	}
	if body := defNode.ChildByFieldName("body"); body != nil {
		if doc, ok := bodyDocstring(body, content); ok {
			method.HasDocstring = true
			method.Docstring = doc
		}
	}
	if decorated != nil {
		method.Decorators = extractDecorators(decorated, content)
	}
	return method
}

// bodyDocstring returns the docstring when the first statement of a
// block is a string expression. An empty docstring still counts as
// present.
func bodyDocstring(body *sitter.Node, content []byte) (string, bool) {
	if body.NamedChildCount() == 0 {
		return "", false
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return "", false
	}
	expr := first.NamedChild(0)
	if expr.Type() != "string" {
		return "", false
	}
	return stringText(expr, content), true
}

// extractDecorators returns the bare decorator names: api.depends(...)
// and @api.model both yield the trailing attribute name.
func extractDecorators(decorated *sitter.Node, content []byte) []string {
	var names []string
	for i := 0; i < int(decorated.NamedChildCount()); i++ {
		child := decorated.NamedChild(i)
		if child.Type() != "decorator" {
			continue
		}
		if child.NamedChildCount() == 0 {
			continue
		}
		if name := decoratorName(child.NamedChild(0), content); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func decoratorName(node *sitter.Node, content []byte) string {
	switch node.Type() {
	case "identifier":
		return nodeText(node, content)
	case "attribute":
		if attr := node.ChildByFieldName("attribute"); attr != nil {
			return nodeText(attr, content)
		}
	case "call":
		if fn := node.ChildByFieldName("function"); fn != nil {
			return decoratorName(fn, content)
		}
	}
	return ""
}

// findDefinition returns the definition wrapped by a decorated_definition.
func findDefinition(decorated *sitter.Node) *sitter.Node {
	if def := decorated.ChildByFieldName("definition"); def != nil {
		return def
	}
	for i := 0; i < int(decorated.NamedChildCount()); i++ {
		child := decorated.NamedChild(i)
		switch child.Type() {
		case "class_definition", "function_definition":
			return child
		}
	}
	return nil
}

// stringOrList extracts one string or a list of strings. Non-string
// list items are skipped.
func stringOrList(node *sitter.Node, content []byte) ([]string, bool) {
	if s, ok := stringConstant(node, content); ok {
		return []string{s}, true
	}
	if node.Type() != "list" {
		return nil, false
	}
	var out []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if s, ok := stringConstant(node.NamedChild(i), content); ok {
			out = append(out, s)
		}
	}
	return out, true
}

// textValue extracts a literal string, tolerating a one-argument
// translation-marker wrapper: both "Label" and _("Label") yield Label.
func textValue(node *sitter.Node, content []byte) (string, bool) {
	if s, ok := stringConstant(node, content); ok {
		return s, true
	}
	if node.Type() != "call" {
		return "", false
	}
	fn := node.ChildByFieldName("function")
	if fn == nil || fn.Type() != "identifier" || nodeText(fn, content) != "_" {
		return "", false
	}
	args := node.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() != 1 {
		return "", false
	}
	return stringConstant(args.NamedChild(0), content)
}

func stringConstant(node *sitter.Node, content []byte) (string, bool) {
	if node == nil || node.Type() != "string" {
		return "", false
	}
	return stringText(node, content), true
}

// stringText returns the content of a string literal. Concatenation of
// string_start/string_end slicing handles every quote style and
// prefix; older grammars without those nodes fall back to trimming.
func stringText(node *sitter.Node, content []byte) string {
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
		return string(content[start.EndByte():end.StartByte()])
	}

	text := nodeText(node, content)
	for _, prefix := range []string{"rb", "br", "f", "r", "b", "u"} {
		lower := strings.ToLower(text)
		if strings.HasPrefix(lower, prefix) && len(text) > len(prefix) {
			text = text[len(prefix):]
			break
		}
	}
	for _, quote := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(text, quote) && strings.HasSuffix(text, quote) && len(text) >= 2*len(quote) {
			return text[len(quote) : len(text)-len(quote)]
		}
	}
	return text
}

// boolConstant maps a constant to a tri-state boolean: nil when the
// value is None or not a constant.
func boolConstant(node *sitter.Node, content []byte) *bool {
	v := new(bool)
	switch node.Type() {
	case "true":
		*v = true
	case "false":
		*v = false
	case "integer":
		*v = nodeText(node, content) != "0"
	case "string":
		*v = stringText(node, content) != ""
	default:
		return nil
	}
	return v
}

// truthyConstant maps a constant to its truthiness; non-constant
// expressions take the fallback.
func truthyConstant(node *sitter.Node, content []byte, fallback bool) bool {
	switch node.Type() {
	case "true":
		return true
	case "false", "none":
		return false
	case "integer":
		return nodeText(node, content) != "0"
	case "string":
		return stringText(node, content) != ""
	default:
		return fallback
	}
}

func nodeText(node *sitter.Node, content []byte) string {
	return string(content[node.StartByte():node.EndByte()])
}

// firstErrorLine finds the first error or missing node in the tree.
func firstErrorLine(node *sitter.Node) int {
	if node.Type() == "ERROR" || node.IsMissing() {
		return int(node.StartPoint().Row) + 1
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if line := firstErrorLine(node.Child(i)); line > 0 {
			return line
		}
	}
	return 0
}
