// Package parsers provides tree-sitter based parsers that extract the
// declarations fluentgen needs from source files.
package parsers

import "slices"

// DeclKind is the kind of a type declaration.
type DeclKind string

const (
	DeclClass     DeclKind = "class"
	DeclInterface DeclKind = "interface"
	DeclEnum      DeclKind = "enum"
	DeclRecord    DeclKind = "record"
)

// RefKind is the shape of a type reference as written in source.
type RefKind int

const (
	RefVoid RefKind = iota
	RefPrimitive
	RefArray
	RefNamed
	RefWildcard
)

// TypeRef is a type as written in source, before resolution.
type TypeRef struct {
	// Kind is the shape of the reference.
	Kind RefKind

	// Name is the primitive keyword or the dotted name as written
	// ("List", "java.util.List", "Map.Entry"). Empty for arrays and wildcards.
	Name string

	// Args holds the type arguments of a named type.
	Args []*TypeRef

	// Element is the component of an array or the bound of a wildcard
	// (nil for an unbounded wildcard).
	Element *TypeRef

	// Super marks a `? super T` wildcard.
	Super bool
}

// ImportStatement represents an import declaration.
type ImportStatement struct {
	// Path is the imported qualified name, without the trailing ".*".
	Path string

	// IsStatic marks `import static`.
	IsStatic bool

	// IsWildcard marks on-demand imports (`import a.b.*`).
	IsWildcard bool

	// StartLine is the line number of the import.
	StartLine int
}

// MethodDecl represents a method declaration.
type MethodDecl struct {
	// Name is the method name.
	Name string

	// ReturnType is nil when the declared return type could not be read,
	// e.g. because the source is incomplete.
	ReturnType *TypeRef

	// ParameterCount is the number of formal parameters (varargs included).
	ParameterCount int

	// TypeParameters holds the names of method type parameters.
	TypeParameters []string

	// Modifiers holds keyword modifiers (public, static, ...).
	Modifiers []string

	// StartLine is the starting line number (1-based)
	StartLine int

	// EndLine is the ending line number (1-based)
	EndLine int
}

// HasModifier reports whether the method carries the keyword modifier.
func (m *MethodDecl) HasModifier(mod string) bool {
	return slices.Contains(m.Modifiers, mod)
}

// TypeDecl represents a class, interface, enum or record declaration.
type TypeDecl struct {
	// Name is the simple name.
	Name string

	// Kind is the declaration kind.
	Kind DeclKind

	// Outer is the dotted chain of enclosing type names for nested
	// declarations, empty for top-level ones.
	Outer string

	// TypeParameters holds the names of declared type parameters.
	TypeParameters []string

	// Extends lists the superclass (classes) or super-interfaces (interfaces).
	Extends []*TypeRef

	// Implements lists implemented interfaces (classes, enums, records).
	Implements []*TypeRef

	// Methods lists declared methods in source order.
	Methods []MethodDecl

	// Modifiers holds keyword modifiers.
	Modifiers []string

	// StartLine is the starting line number (1-based)
	StartLine int

	// EndLine is the ending line number (1-based)
	EndLine int
}

// BinaryName returns the name relative to the package, nested types joined
// with dots ("Outer.Inner").
func (d *TypeDecl) BinaryName() string {
	if d.Outer == "" {
		return d.Name
	}
	return d.Outer + "." + d.Name
}

// HasModifier reports whether the declaration carries the keyword modifier.
func (d *TypeDecl) HasModifier(mod string) bool {
	return slices.Contains(d.Modifiers, mod)
}

// ParseResult contains all parsed information from a source file.
type ParseResult struct {
	// FilePath is the path the result was parsed from.
	FilePath string

	// Package is the package name, empty for the default package.
	Package string

	// Imports found in the file
	Imports []ImportStatement

	// Types declared in the file, outer declarations before nested ones.
	Types []TypeDecl

	// HasErrors reports that the parser had to recover from syntax errors.
	HasErrors bool
}

// Parser defines the interface for language-specific parsers.
type Parser interface {
	// Parse parses source code and extracts its declarations.
	Parse(filePath string, content []byte) (*ParseResult, error)

	// Language returns the language this parser handles
	Language() string
}
