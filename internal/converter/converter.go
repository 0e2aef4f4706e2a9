// Package converter turns code-model classes into class descriptions: it
// picks the getters of a class, derives property names, classifies each
// return type and collects the types generated code has to import.
package converter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Benny93/fluentgen/internal/codemodel"
	"github.com/Benny93/fluentgen/internal/description"
	"github.com/Benny93/fluentgen/internal/logger"
)

// IterableCapability is the interface a type has to (transitively)
// implement to be described as a collection-shaped property.
const IterableCapability = "java.lang.Iterable"

// ErrCapabilityNotFound is returned when IterableCapability cannot be found
// in the workspace. Conversion refuses to continue rather than describe
// every collection as a plain reference.
var ErrCapabilityNotFound = errors.New("iterable capability not found")

var rawElement = description.NewTypeName("Object", "java.lang")

// Shape is the classification of a property type.
type Shape int

const (
	ShapePrimitive Shape = iota
	ShapeArray
	ShapeIterable
	ShapeReference
)

func (s Shape) String() string {
	switch s {
	case ShapePrimitive:
		return "primitive"
	case ShapeArray:
		return "array"
	case ShapeIterable:
		return "iterable"
	case ShapeReference:
		return "reference"
	default:
		return "unknown"
	}
}

// Classify tags t given the resolved iterable capability.
func Classify(t codemodel.Type, iterable codemodel.Class) Shape {
	switch t.Kind() {
	case codemodel.KindArray:
		return ShapeArray
	case codemodel.KindClass:
		if cls, ok := t.Resolve(); ok && isIterable(cls, iterable) {
			return ShapeIterable
		}
		return ShapeReference
	case codemodel.KindTypeParameter:
		return ShapeReference
	default:
		return ShapePrimitive
	}
}

// isIterable reports whether cls inherits the capability. The capability
// itself is not an inheritor of itself and stays a plain reference.
func isIterable(cls, iterable codemodel.Class) bool {
	return cls.IsInheritor(iterable, true)
}

// Converter builds class descriptions against a code model.
//
// Callers must hold read access to the code model for the duration of each
// call. A Converter keeps no state between calls and may be shared by
// concurrent conversions of different classes.
type Converter struct {
	ws codemodel.Workspace
}

// NewConverter creates a converter reading from ws.
func NewConverter(ws codemodel.Workspace) *Converter {
	return &Converter{ws: ws}
}

// ConvertToClassDescription describes class. Getters whose return type
// cannot be determined are skipped; a missing iterable capability fails the
// whole conversion with ErrCapabilityNotFound.
func (c *Converter) ConvertToClassDescription(ctx context.Context, class codemodel.Class) (*description.ClassDescription, error) {
	log := logger.FromContext(ctx).With("class", class.QualifiedName())

	iterable, err := c.iterableCapability()
	if err != nil {
		return nil, fmt.Errorf("converting %s: %w", class.QualifiedName(), err)
	}

	b := description.NewBuilder(ClassTypeName(class))

	getters := GetterMethodsOf(class)
	log.Debug("Getters found", "getters", methodNames(getters))

	for _, getter := range getters {
		td := typeDescriptionOf(getter.ReturnType(), iterable)
		log.Debug("Getter described", "getter", getter.Name(), "type", td.String())

		if !b.AddGetter(description.NewGetterDescription(PropertyNameOf(getter), td)) {
			log.Debug("Duplicate property ignored", "getter", getter.Name())
		}
	}

	b.AddImports(neededImports(getters))

	return b.Build(), nil
}

// GetTypeDescription describes the return type of getter.
func (c *Converter) GetTypeDescription(getter codemodel.Method) (description.TypeDescription, error) {
	rt := getter.ReturnType()
	if rt == nil {
		return description.TypeDescription{}, fmt.Errorf("method %s has no resolvable return type", getter.Name())
	}
	iterable, err := c.iterableCapability()
	if err != nil {
		return description.TypeDescription{}, err
	}
	return typeDescriptionOf(rt, iterable), nil
}

// GetNeededImportsFor returns the types a generated assertion for class
// has to import: the erased class type of every getter returning a class.
// Array components and iterable elements are not collected.
func (c *Converter) GetNeededImportsFor(class codemodel.Class) *description.TypeNameSet {
	return neededImports(GetterMethodsOf(class))
}

func (c *Converter) iterableCapability() (codemodel.Class, error) {
	iterable, ok := c.ws.FindClass(IterableCapability, codemodel.ScopeAll)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCapabilityNotFound, IterableCapability)
	}
	return iterable, nil
}

func typeDescriptionOf(t codemodel.Type, iterable codemodel.Class) description.TypeDescription {
	switch Classify(t, iterable) {
	case ShapeArray:
		return description.NewArrayType(TypeNameOf(t), TypeNameOf(t.ComponentType()))

	case ShapeIterable:
		cls, _ := t.Resolve()
		return description.NewIterableType(ClassTypeName(cls), elementTypeName(t))

	default:
		return description.NewPlainType(TypeNameOf(t))
	}
}

// elementTypeName names the first type argument of an iterable type,
// unwrapping wildcard bounds. Raw and unbounded types yield java.lang.Object.
func elementTypeName(t codemodel.Type) description.TypeName {
	args := t.TypeArguments()
	if len(args) == 0 || args[0] == nil {
		return rawElement
	}
	return TypeNameOf(args[0])
}

func neededImports(getters []codemodel.Method) *description.TypeNameSet {
	imports := description.NewTypeNameSet()
	for _, getter := range getters {
		rt := getter.ReturnType()
		if rt == nil || rt.Kind() != codemodel.KindClass {
			continue
		}
		imports.Add(TypeNameOf(rt))
	}
	return imports
}

// ClassTypeName names a class by package and package-relative name
// ("Map.Entry" for nested types).
func ClassTypeName(cls codemodel.Class) description.TypeName {
	pkg := cls.PackageName()
	if pkg == "" {
		return description.NewTypeName(cls.QualifiedName(), "")
	}
	return description.NewTypeName(strings.TrimPrefix(cls.QualifiedName(), pkg+"."), pkg)
}

// TypeNameOf names a type: primitives and type parameters by keyword,
// classes by erased class name, arrays by their erased component name
// followed by the dimensions ("int[]", "Player[]" in org.team).
func TypeNameOf(t codemodel.Type) description.TypeName {
	switch t.Kind() {
	case codemodel.KindClass:
		if cls, ok := t.Resolve(); ok {
			return ClassTypeName(cls)
		}
		return description.ParseTypeName(t.CanonicalText())

	case codemodel.KindArray:
		dims := ""
		component := t
		for component.Kind() == codemodel.KindArray {
			dims += "[]"
			component = component.ComponentType()
		}
		name := TypeNameOf(component)
		name.Name += dims
		return name

	default:
		return description.NewTypeName(t.CanonicalText(), "")
	}
}

func methodNames(methods []codemodel.Method) []string {
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = m.Name()
	}
	return names
}
