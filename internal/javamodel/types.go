package javamodel

import (
	"strings"

	"github.com/Benny93/fluentgen/internal/codemodel"
	"github.com/Benny93/fluentgen/internal/parsers"
)

const javaLang = "java.lang"

// javaType is a resolved use of a type.
type javaType struct {
	kind codemodel.TypeKind

	// name is the keyword for primitives and void, the parameter name for
	// type parameters, and the qualified (or, when unknown, written) name
	// for class types.
	name string

	class     *Class
	args      []*javaType
	component *javaType

	wildcard bool
	super    bool
	bound    *javaType
}

var _ codemodel.Type = (*javaType)(nil)

func (t *javaType) Kind() codemodel.TypeKind {
	return t.kind
}

func (t *javaType) CanonicalText() string {
	switch {
	case t.wildcard:
		return wildcardText(t, (*javaType).CanonicalText)
	case t.kind == codemodel.KindArray:
		return t.component.CanonicalText() + "[]"
	case t.kind == codemodel.KindClass:
		name := t.name
		if t.class != nil {
			name = t.class.qualifiedName
		}
		return name + argsText(t.args, ",", (*javaType).CanonicalText)
	default:
		return t.name
	}
}

func (t *javaType) PresentableText() string {
	switch {
	case t.wildcard:
		return wildcardText(t, (*javaType).PresentableText)
	case t.kind == codemodel.KindArray:
		return t.component.PresentableText() + "[]"
	case t.kind == codemodel.KindClass:
		return t.ClassName() + argsText(t.args, ", ", (*javaType).PresentableText)
	default:
		return t.name
	}
}

func (t *javaType) ClassName() string {
	switch t.kind {
	case codemodel.KindClass:
		if t.class != nil {
			return t.class.Name()
		}
		if i := strings.LastIndex(t.name, "."); i >= 0 {
			return t.name[i+1:]
		}
		return t.name
	case codemodel.KindTypeParameter:
		return t.name
	default:
		return ""
	}
}

func (t *javaType) ComponentType() codemodel.Type {
	if t.component == nil {
		return nil
	}
	return t.component
}

func (t *javaType) TypeArguments() []codemodel.Type {
	if len(t.args) == 0 {
		return nil
	}
	out := make([]codemodel.Type, len(t.args))
	for i, a := range t.args {
		if !a.wildcard {
			out[i] = a
			continue
		}
		if a.bound != nil {
			out[i] = a.bound
		}
	}
	return out
}

func (t *javaType) Resolve() (codemodel.Class, bool) {
	if t.class == nil {
		return nil, false
	}
	return t.class, true
}

func (t *javaType) String() string {
	return t.CanonicalText()
}

func wildcardText(t *javaType, text func(*javaType) string) string {
	if t.bound == nil {
		return "?"
	}
	if t.super {
		return "? super " + text(t.bound)
	}
	return "? extends " + text(t.bound)
}

func argsText(args []*javaType, sep string, text func(*javaType) string) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = text(a)
	}
	return "<" + strings.Join(parts, sep) + ">"
}

// resolveContext is the lexical position a type reference is resolved from.
type resolveContext struct {
	file             *sourceFile
	owner            *Class
	methodTypeParams []string
}

// typeOf resolves a type reference. Returns nil for references that cannot
// form a type.
func (w *Workspace) typeOf(ref *parsers.TypeRef, ctx resolveContext) *javaType {
	if ref == nil {
		return nil
	}

	switch ref.Kind {
	case parsers.RefVoid:
		return &javaType{kind: codemodel.KindVoid, name: "void"}

	case parsers.RefPrimitive:
		return &javaType{kind: codemodel.KindPrimitive, name: ref.Name}

	case parsers.RefArray:
		component := w.typeOf(ref.Element, ctx)
		if component == nil {
			return nil
		}
		return &javaType{kind: codemodel.KindArray, component: component}

	case parsers.RefNamed:
		t := w.resolveNamed(ref.Name, ctx)
		for _, arg := range ref.Args {
			if at := w.typeOf(arg, ctx); at != nil {
				t.args = append(t.args, at)
			}
		}
		return t

	case parsers.RefWildcard:
		return &javaType{
			kind:     codemodel.KindClass,
			wildcard: true,
			super:    ref.Super,
			bound:    w.typeOf(ref.Element, ctx),
		}
	}

	return nil
}

func (w *Workspace) resolveNamed(name string, ctx resolveContext) *javaType {
	head, rest, dotted := strings.Cut(name, ".")

	if !dotted {
		if isTypeParameter(name, ctx) {
			return &javaType{kind: codemodel.KindTypeParameter, name: name}
		}
		if c := w.resolveSimple(name, ctx); c != nil {
			return &javaType{kind: codemodel.KindClass, class: c}
		}
		return &javaType{kind: codemodel.KindClass, name: w.guessQualified(name, ctx)}
	}

	// Outer.Inner where Outer is visible by simple name.
	if c := w.resolveSimple(head, ctx); c != nil {
		if nested := w.lookup(c.qualifiedName + "." + rest); nested != nil {
			return &javaType{kind: codemodel.KindClass, class: nested}
		}
	}
	if c := w.lookup(name); c != nil {
		return &javaType{kind: codemodel.KindClass, class: c}
	}
	return &javaType{kind: codemodel.KindClass, name: w.guessQualified(head, ctx) + "." + rest}
}

func isTypeParameter(name string, ctx resolveContext) bool {
	for _, p := range ctx.methodTypeParams {
		if p == name {
			return true
		}
	}
	for c := ctx.owner; c != nil; c = c.outer {
		for _, p := range c.decl.TypeParameters {
			if p == name {
				return true
			}
		}
	}
	return false
}

// resolveSimple resolves a simple type name: enclosing and nested types,
// types declared in the same file, single-type imports, the same package,
// on-demand imports and finally java.lang.
func (w *Workspace) resolveSimple(name string, ctx resolveContext) *Class {
	for c := ctx.owner; c != nil; c = c.outer {
		if nested := w.lookup(c.qualifiedName + "." + name); nested != nil {
			return nested
		}
		if c.decl.Name == name {
			return c
		}
	}

	if ctx.file == nil {
		return nil
	}

	for _, c := range ctx.file.classes {
		if c.outer == nil && c.decl.Name == name {
			return c
		}
	}

	imports := ctx.file.result.Imports
	for _, imp := range imports {
		if imp.IsStatic || imp.IsWildcard {
			continue
		}
		if imp.Path == name || strings.HasSuffix(imp.Path, "."+name) {
			if c := w.lookup(imp.Path); c != nil {
				return c
			}
		}
	}

	if c := w.lookup(qualify(ctx.file.result.Package, name)); c != nil {
		return c
	}

	for _, imp := range imports {
		if imp.IsStatic || !imp.IsWildcard {
			continue
		}
		if c := w.lookup(imp.Path + "." + name); c != nil {
			return c
		}
	}

	return w.lookup(javaLang + "." + name)
}

// guessQualified names an unresolved simple type through a matching
// single-type import, or keeps the written name. For a dotted name it is
// given the first segment.
func (w *Workspace) guessQualified(name string, ctx resolveContext) string {
	if ctx.file == nil {
		return name
	}
	for _, imp := range ctx.file.result.Imports {
		if !imp.IsStatic && !imp.IsWildcard && strings.HasSuffix(imp.Path, "."+name) {
			return imp.Path
		}
	}
	return name
}
