package parsers

import (
	"fmt"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
)

var declKinds = map[string]DeclKind{
	"class_declaration":     DeclClass,
	"interface_declaration": DeclInterface,
	"enum_declaration":      DeclEnum,
	"record_declaration":    DeclRecord,
}

// JavaParser parses Java source code with the tree-sitter Java grammar.
//
// A JavaParser is safe for concurrent use: every Parse call gets its own
// tree-sitter parser.
type JavaParser struct {
	language *tree_sitter.Language
}

// NewJavaParser creates a new Java parser.
func NewJavaParser() *JavaParser {
	return &JavaParser{
		language: tree_sitter.NewLanguage(tree_sitter_java.Language()),
	}
}

// Language returns the language this parser handles.
func (p *JavaParser) Language() string {
	return "java"
}

// Parse parses Java source code and extracts package, imports and type
// declarations. Syntax errors do not fail the parse; declarations that
// cannot be read are dropped and ParseResult.HasErrors is set.
func (p *JavaParser) Parse(filePath string, content []byte) (*ParseResult, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(p.language); err != nil {
		return nil, fmt.Errorf("setting java grammar: %w", err)
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("parsing %s: no syntax tree produced", filePath)
	}
	defer tree.Close()

	root := tree.RootNode()
	result := &ParseResult{
		FilePath:  filePath,
		Imports:   []ImportStatement{},
		Types:     []TypeDecl{},
		HasErrors: root.HasError(),
	}

	x := &javaExtractor{source: content, result: result}
	for i := uint(0); i < root.NamedChildCount(); i++ {
		child := root.NamedChild(i)
		switch kind := child.Kind(); {
		case kind == "package_declaration":
			result.Package = x.packageName(child)
		case kind == "import_declaration":
			x.addImport(child)
		case declKinds[kind] != "":
			x.addType(child, "")
		}
	}

	return result, nil
}

type javaExtractor struct {
	source []byte
	result *ParseResult
}

func (x *javaExtractor) text(n *tree_sitter.Node) string {
	return string(x.source[n.StartByte():n.EndByte()])
}

// compactText returns the node text with all whitespace removed, for
// dotted names that may be split across lines.
func (x *javaExtractor) compactText(n *tree_sitter.Node) string {
	return strings.Join(strings.Fields(x.text(n)), "")
}

func (x *javaExtractor) packageName(n *tree_sitter.Node) string {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c.Kind() == "scoped_identifier" || c.Kind() == "identifier" {
			return x.compactText(c)
		}
	}
	return ""
}

func (x *javaExtractor) addImport(n *tree_sitter.Node) {
	imp := ImportStatement{StartLine: int(n.StartPosition().Row) + 1}
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		switch c.Kind() {
		case "static":
			imp.IsStatic = true
		case "asterisk":
			imp.IsWildcard = true
		case "scoped_identifier", "identifier":
			imp.Path = x.compactText(c)
		}
	}
	if imp.Path != "" {
		x.result.Imports = append(x.result.Imports, imp)
	}
}

func (x *javaExtractor) addType(n *tree_sitter.Node, outer string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}

	decl := TypeDecl{
		Name:           x.text(nameNode),
		Kind:           declKinds[n.Kind()],
		Outer:          outer,
		TypeParameters: x.typeParameters(n.ChildByFieldName("type_parameters")),
		Modifiers:      x.modifiers(n),
		StartLine:      int(n.StartPosition().Row) + 1,
		EndLine:        int(n.EndPosition().Row) + 1,
	}

	switch decl.Kind {
	case DeclClass:
		if sc := n.ChildByFieldName("superclass"); sc != nil && sc.NamedChildCount() > 0 {
			if ref := x.typeRef(sc.NamedChild(0)); ref != nil {
				decl.Extends = []*TypeRef{ref}
			}
		}
		decl.Implements = x.typeList(n.ChildByFieldName("interfaces"))
	case DeclInterface:
		decl.Extends = x.typeList(childByKind(n, "extends_interfaces"))
	case DeclEnum, DeclRecord:
		decl.Implements = x.typeList(n.ChildByFieldName("interfaces"))
	}

	// Nested declarations are appended while walking the body, so fill in
	// methods through the index once the walk is done.
	index := len(x.result.Types)
	x.result.Types = append(x.result.Types, decl)

	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	var methods []MethodDecl
	x.walkBody(body, decl.BinaryName(), &methods)
	x.result.Types[index].Methods = methods
}

func (x *javaExtractor) walkBody(body *tree_sitter.Node, owner string, methods *[]MethodDecl) {
	for i := uint(0); i < body.NamedChildCount(); i++ {
		child := body.NamedChild(i)
		switch kind := child.Kind(); {
		case kind == "method_declaration":
			if m, ok := x.method(child); ok {
				*methods = append(*methods, m)
			}
		case kind == "enum_body_declarations":
			x.walkBody(child, owner, methods)
		case declKinds[kind] != "":
			x.addType(child, owner)
		}
	}
}

func (x *javaExtractor) method(n *tree_sitter.Node) (MethodDecl, bool) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return MethodDecl{}, false
	}

	m := MethodDecl{
		Name:           x.text(nameNode),
		TypeParameters: x.typeParameters(n.ChildByFieldName("type_parameters")),
		Modifiers:      x.modifiers(n),
		StartLine:      int(n.StartPosition().Row) + 1,
		EndLine:        int(n.EndPosition().Row) + 1,
	}

	if params := n.ChildByFieldName("parameters"); params != nil {
		for i := uint(0); i < params.NamedChildCount(); i++ {
			switch params.NamedChild(i).Kind() {
			case "formal_parameter", "spread_parameter":
				m.ParameterCount++
			}
		}
	}

	if ref := x.typeRef(n.ChildByFieldName("type")); ref != nil {
		// Legacy `int values()[]` form.
		if dims := n.ChildByFieldName("dimensions"); dims != nil {
			ref = wrapArray(ref, countDimensions(dims))
		}
		m.ReturnType = ref
	}

	return m, true
}

func (x *javaExtractor) modifiers(n *tree_sitter.Node) []string {
	mods := childByKind(n, "modifiers")
	if mods == nil {
		return nil
	}
	var out []string
	for i := uint(0); i < mods.ChildCount(); i++ {
		c := mods.Child(i)
		if !c.IsNamed() {
			out = append(out, c.Kind())
		}
	}
	return out
}

func (x *javaExtractor) typeParameters(n *tree_sitter.Node) []string {
	if n == nil {
		return nil
	}
	var names []string
	for i := uint(0); i < n.NamedChildCount(); i++ {
		param := n.NamedChild(i)
		if param.Kind() != "type_parameter" {
			continue
		}
		for j := uint(0); j < param.NamedChildCount(); j++ {
			c := param.NamedChild(j)
			if c.Kind() == "type_identifier" || c.Kind() == "identifier" {
				names = append(names, x.text(c))
				break
			}
		}
	}
	return names
}

// typeList reads the types of a super_interfaces or extends_interfaces node.
func (x *javaExtractor) typeList(n *tree_sitter.Node) []*TypeRef {
	if n == nil {
		return nil
	}
	list := childByKind(n, "type_list")
	if list == nil {
		return nil
	}
	var refs []*TypeRef
	for i := uint(0); i < list.NamedChildCount(); i++ {
		if ref := x.typeRef(list.NamedChild(i)); ref != nil {
			refs = append(refs, ref)
		}
	}
	return refs
}

// typeRef converts a type node. Returns nil for erroneous or unknown nodes.
func (x *javaExtractor) typeRef(n *tree_sitter.Node) *TypeRef {
	if n == nil || n.IsError() || n.IsMissing() || n.HasError() {
		return nil
	}

	switch n.Kind() {
	case "void_type":
		return &TypeRef{Kind: RefVoid, Name: "void"}

	case "integral_type", "floating_point_type", "boolean_type":
		return &TypeRef{Kind: RefPrimitive, Name: x.text(n)}

	case "type_identifier", "identifier":
		return &TypeRef{Kind: RefNamed, Name: x.text(n)}

	case "scoped_type_identifier":
		return &TypeRef{Kind: RefNamed, Name: x.scopedName(n)}

	case "generic_type":
		ref := &TypeRef{Kind: RefNamed}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			c := n.NamedChild(i)
			switch c.Kind() {
			case "type_identifier":
				ref.Name = x.text(c)
			case "scoped_type_identifier":
				ref.Name = x.scopedName(c)
			case "type_arguments":
				for j := uint(0); j < c.NamedChildCount(); j++ {
					if arg := x.typeRef(c.NamedChild(j)); arg != nil {
						ref.Args = append(ref.Args, arg)
					}
				}
			}
		}
		if ref.Name == "" {
			return nil
		}
		return ref

	case "array_type":
		elem := x.typeRef(n.ChildByFieldName("element"))
		if elem == nil {
			return nil
		}
		return wrapArray(elem, countDimensions(n.ChildByFieldName("dimensions")))

	case "annotated_type":
		for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
			c := n.NamedChild(uint(i))
			if !isAnnotation(c.Kind()) {
				return x.typeRef(c)
			}
		}
		return nil

	case "wildcard":
		ref := &TypeRef{Kind: RefWildcard}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			c := n.NamedChild(i)
			switch {
			case c.Kind() == "super":
				ref.Super = true
			case isAnnotation(c.Kind()):
			default:
				ref.Element = x.typeRef(c)
			}
		}
		return ref
	}

	return nil
}

func (x *javaExtractor) scopedName(n *tree_sitter.Node) string {
	var parts []string
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		switch c.Kind() {
		case "type_identifier", "identifier":
			parts = append(parts, x.text(c))
		case "scoped_type_identifier":
			parts = append(parts, x.scopedName(c))
		case "generic_type":
			if inner := x.typeRef(c); inner != nil {
				parts = append(parts, inner.Name)
			}
		}
	}
	return strings.Join(parts, ".")
}

func wrapArray(elem *TypeRef, dims int) *TypeRef {
	for i := 0; i < dims; i++ {
		elem = &TypeRef{Kind: RefArray, Element: elem}
	}
	return elem
}

func countDimensions(n *tree_sitter.Node) int {
	if n == nil {
		return 1
	}
	count := 0
	for i := uint(0); i < n.ChildCount(); i++ {
		if n.Child(i).Kind() == "[" {
			count++
		}
	}
	if count == 0 {
		return 1
	}
	return count
}

func isAnnotation(kind string) bool {
	return kind == "annotation" || kind == "marker_annotation"
}

// childByKind finds the first child with the given kind.
func childByKind(n *tree_sitter.Node, kind string) *tree_sitter.Node {
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c.Kind() == kind {
			return c
		}
	}
	return nil
}
