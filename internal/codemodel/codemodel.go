// Package codemodel defines the read-only query surface the converter needs
// from a code model: classes, their methods, return types and inheritance.
//
// Implementations own the underlying data. Callers must hold whatever read
// access the implementation requires (see javamodel.Workspace.Read) for the
// whole duration of a query sequence.
package codemodel

// Scope selects which classes a lookup may see.
type Scope int

const (
	// ScopeProject covers user sources only.
	ScopeProject Scope = iota
	// ScopeAll covers user sources and library declarations.
	ScopeAll
)

func (s Scope) String() string {
	switch s {
	case ScopeProject:
		return "project"
	case ScopeAll:
		return "all"
	default:
		return "unknown"
	}
}

// TypeKind tags the shape of a Type.
type TypeKind int

const (
	KindVoid TypeKind = iota
	KindPrimitive
	KindArray
	KindClass
	KindTypeParameter
)

func (k TypeKind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindPrimitive:
		return "primitive"
	case KindArray:
		return "array"
	case KindClass:
		return "class"
	case KindTypeParameter:
		return "type_parameter"
	default:
		return "unknown"
	}
}

// Type is a use of a type, such as a method's return type.
type Type interface {
	// Kind returns the shape of the type.
	Kind() TypeKind

	// CanonicalText returns the fully resolved textual form, e.g.
	// "java.util.List<org.team.Player>" or "int[]".
	CanonicalText() string

	// PresentableText returns the short form, e.g. "List<Player>".
	PresentableText() string

	// ClassName returns the simple class name for class types, the
	// parameter name for type parameters, and "" otherwise.
	ClassName() string

	// ComponentType returns the component of an array type, nil otherwise.
	ComponentType() Type

	// TypeArguments returns the type arguments of a class type. Wildcards
	// are reported by their bound; an unbounded wildcard reports nil.
	TypeArguments() []Type

	// Resolve returns the class a class type refers to.
	Resolve() (Class, bool)
}

// Method is a method declared by a class.
type Method interface {
	Name() string
	ParameterCount() int

	// ReturnType returns nil when the return type cannot be determined,
	// e.g. in incomplete or erroneous code.
	ReturnType() Type

	ContainingClass() Class
}

// Class is a class, interface, enum or record declaration.
type Class interface {
	// Name returns the simple name.
	Name() string

	// PackageName returns the enclosing package, "" for the default package.
	PackageName() string

	// QualifiedName returns the fully qualified name.
	QualifiedName() string

	// Methods returns the declared methods in source order.
	Methods() []Method

	// IsInheritor reports whether the class extends or implements base,
	// directly or, when transitive is set, through any supertype.
	IsInheritor(base Class, transitive bool) bool
}

// Workspace resolves classes by qualified name.
type Workspace interface {
	FindClass(qualifiedName string, scope Scope) (Class, bool)
}
