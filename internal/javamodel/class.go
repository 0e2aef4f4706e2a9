package javamodel

import (
	"github.com/Benny93/fluentgen/internal/codemodel"
	"github.com/Benny93/fluentgen/internal/parsers"
)

// Class is a type declaration loaded into a Workspace.
type Class struct {
	ws            *Workspace
	file          *sourceFile
	decl          *parsers.TypeDecl
	outer         *Class
	qualifiedName string
	methods       []codemodel.Method
}

var _ codemodel.Class = (*Class)(nil)

// Name returns the simple name.
func (c *Class) Name() string {
	return c.decl.Name
}

// PackageName returns the package, "" for the default package.
func (c *Class) PackageName() string {
	return c.file.result.Package
}

// QualifiedName returns the package-qualified name, nested types joined
// with dots.
func (c *Class) QualifiedName() string {
	return c.qualifiedName
}

// Kind returns the declaration kind.
func (c *Class) Kind() parsers.DeclKind {
	return c.decl.Kind
}

// FilePath returns the file the class was declared in.
func (c *Class) FilePath() string {
	return c.file.path
}

// IsLibrary reports whether the class is a bundled library declaration.
func (c *Class) IsLibrary() bool {
	return c.file.library
}

// Outer returns the enclosing class of a nested declaration.
func (c *Class) Outer() *Class {
	return c.outer
}

// IsPublic reports whether the class is accessible outside its package:
// declared public, or a member of an interface. Only public classes are
// described.
func (c *Class) IsPublic() bool {
	if c.decl.HasModifier("public") {
		return true
	}
	outer := c.Outer()
	return outer != nil && outer.Kind() == parsers.DeclInterface
}

// Methods returns the declared methods in source order.
func (c *Class) Methods() []codemodel.Method {
	out := make([]codemodel.Method, len(c.methods))
	copy(out, c.methods)
	return out
}

// Supertypes returns the resolved direct supertypes. Supertypes that do not
// resolve to a loaded class are omitted.
func (c *Class) Supertypes() []*Class {
	refs := make([]*parsers.TypeRef, 0, len(c.decl.Extends)+len(c.decl.Implements))
	refs = append(refs, c.decl.Extends...)
	refs = append(refs, c.decl.Implements...)

	ctx := c.scope(nil)
	var out []*Class
	for _, ref := range refs {
		t := c.ws.typeOf(ref, ctx)
		if t == nil || t.class == nil {
			continue
		}
		out = append(out, t.class)
	}
	return out
}

// IsInheritor reports whether c extends or implements base. A class is not
// an inheritor of itself. Transitive answers are memoized until the
// workspace changes.
func (c *Class) IsInheritor(base codemodel.Class, transitive bool) bool {
	if base == nil {
		return false
	}
	target := base.QualifiedName()

	if !transitive {
		for _, st := range c.Supertypes() {
			if st.qualifiedName == target {
				return true
			}
		}
		return false
	}

	key := c.qualifiedName + "\x00" + target
	if v, ok := c.ws.inherit.Get(key); ok {
		return v
	}
	result := c.inherits(target, make(map[*Class]bool))
	c.ws.inherit.Add(key, result)
	return result
}

func (c *Class) inherits(target string, visited map[*Class]bool) bool {
	if visited[c] {
		return false
	}
	visited[c] = true

	for _, st := range c.Supertypes() {
		if st.qualifiedName == target || st.inherits(target, visited) {
			return true
		}
	}
	return false
}

func (c *Class) scope(method *parsers.MethodDecl) resolveContext {
	ctx := resolveContext{file: c.file, owner: c}
	if method != nil {
		ctx.methodTypeParams = method.TypeParameters
	}
	return ctx
}

func (c *Class) String() string {
	return c.qualifiedName
}

// Method is a method declared by a Class.
type Method struct {
	class *Class
	decl  *parsers.MethodDecl
}

var _ codemodel.Method = (*Method)(nil)

// Name returns the method name.
func (m *Method) Name() string {
	return m.decl.Name
}

// ParameterCount returns the number of formal parameters.
func (m *Method) ParameterCount() int {
	return m.decl.ParameterCount
}

// ReturnType resolves the declared return type. Returns nil when the
// declaration has no readable return type.
func (m *Method) ReturnType() codemodel.Type {
	if m.decl.ReturnType == nil {
		return nil
	}
	t := m.class.ws.typeOf(m.decl.ReturnType, m.class.scope(m.decl))
	if t == nil {
		return nil
	}
	return t
}

// ContainingClass returns the declaring class.
func (m *Method) ContainingClass() codemodel.Class {
	return m.class
}

func (m *Method) String() string {
	return m.class.qualifiedName + "#" + m.decl.Name
}
