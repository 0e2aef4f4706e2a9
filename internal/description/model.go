package description

import (
	"fmt"
	"sort"
	"strings"
)

// TypeDescription describes the type of a property.
//
// IsArray and IsIterable are mutually exclusive. ElementTypeName is set iff
// exactly one of them is true. Use the constructors to keep that invariant.
type TypeDescription struct {
	TypeName        TypeName
	IsArray         bool
	IsIterable      bool
	ElementTypeName *TypeName
}

// NewPlainType describes a primitive or plain reference type.
func NewPlainType(name TypeName) TypeDescription {
	return TypeDescription{TypeName: name}
}

// NewArrayType describes an array whose components are element.
func NewArrayType(name, element TypeName) TypeDescription {
	return TypeDescription{TypeName: name, IsArray: true, ElementTypeName: &element}
}

// NewIterableType describes an iterable type yielding element.
func NewIterableType(name, element TypeName) TypeDescription {
	return TypeDescription{TypeName: name, IsIterable: true, ElementTypeName: &element}
}

// Validate checks the array/iterable/element invariant.
func (t TypeDescription) Validate() error {
	if t.IsArray && t.IsIterable {
		return fmt.Errorf("type %s: array and iterable are mutually exclusive", t.TypeName)
	}
	hasElement := t.ElementTypeName != nil
	if hasElement != (t.IsArray || t.IsIterable) {
		return fmt.Errorf("type %s: element type must be set iff array or iterable", t.TypeName)
	}
	return nil
}

// Element returns the element type name, or the zero value.
func (t TypeDescription) Element() TypeName {
	if t.ElementTypeName == nil {
		return TypeName{}
	}
	return *t.ElementTypeName
}

// Equal reports structural equality.
func (t TypeDescription) Equal(other TypeDescription) bool {
	return t.TypeName == other.TypeName &&
		t.IsArray == other.IsArray &&
		t.IsIterable == other.IsIterable &&
		t.Element() == other.Element() &&
		(t.ElementTypeName == nil) == (other.ElementTypeName == nil)
}

// clone returns a copy that shares no memory with t.
func (t TypeDescription) clone() TypeDescription {
	if t.ElementTypeName != nil {
		el := *t.ElementTypeName
		t.ElementTypeName = &el
	}
	return t
}

func (t TypeDescription) String() string {
	switch {
	case t.IsArray:
		return fmt.Sprintf("%s (array of %s)", t.TypeName, t.Element())
	case t.IsIterable:
		return fmt.Sprintf("%s (iterable of %s)", t.TypeName, t.Element())
	default:
		return t.TypeName.String()
	}
}

// GetterDescription pairs a property name with its type.
type GetterDescription struct {
	PropertyName string
	Type         TypeDescription
}

// NewGetterDescription creates a getter description.
func NewGetterDescription(propertyName string, typ TypeDescription) GetterDescription {
	return GetterDescription{PropertyName: propertyName, Type: typ}
}

func (g GetterDescription) clone() GetterDescription {
	g.Type = g.Type.clone()
	return g
}

// GetterSet is an ordered, duplicate-free set of getter descriptions keyed
// by property name. The first description added for a property wins.
type GetterSet struct {
	items []GetterDescription
}

// Add inserts g in property-name order. Returns false if a description for
// the same property is already present; the existing one is kept.
func (s *GetterSet) Add(g GetterDescription) bool {
	idx := sort.Search(len(s.items), func(i int) bool {
		return s.items[i].PropertyName >= g.PropertyName
	})
	if idx < len(s.items) && s.items[idx].PropertyName == g.PropertyName {
		return false
	}
	s.items = append(s.items, GetterDescription{})
	copy(s.items[idx+1:], s.items[idx:])
	s.items[idx] = g.clone()
	return true
}

// Get returns the description for a property.
func (s *GetterSet) Get(propertyName string) (GetterDescription, bool) {
	idx := sort.Search(len(s.items), func(i int) bool {
		return s.items[i].PropertyName >= propertyName
	})
	if idx < len(s.items) && s.items[idx].PropertyName == propertyName {
		return s.items[idx].clone(), true
	}
	return GetterDescription{}, false
}

// Len returns the number of getters.
func (s *GetterSet) Len() int {
	return len(s.items)
}

// Items returns a copy of the getters in property-name order.
func (s *GetterSet) Items() []GetterDescription {
	out := make([]GetterDescription, len(s.items))
	for i, g := range s.items {
		out[i] = g.clone()
	}
	return out
}

// ClassDescription is the root output of a conversion.
type ClassDescription struct {
	classType TypeName
	getters   GetterSet
	imports   TypeNameSet
}

// ClassType returns the described class.
func (c *ClassDescription) ClassType() TypeName {
	return c.classType
}

// QualifiedName returns the qualified name of the described class.
func (c *ClassDescription) QualifiedName() string {
	return c.classType.String()
}

// Getters returns the getter descriptions ordered by property name.
func (c *ClassDescription) Getters() []GetterDescription {
	return c.getters.Items()
}

// Getter returns the description of a single property.
func (c *ClassDescription) Getter(propertyName string) (GetterDescription, bool) {
	return c.getters.Get(propertyName)
}

// Imports returns the types the generated code must import, ordered.
func (c *ClassDescription) Imports() []TypeName {
	return c.imports.Items()
}

// Equal reports structural equality.
func (c *ClassDescription) Equal(other *ClassDescription) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.classType != other.classType {
		return false
	}
	a, b := c.getters.Items(), other.getters.Items()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].PropertyName != b[i].PropertyName || !a[i].Type.Equal(b[i].Type) {
			return false
		}
	}
	ia, ib := c.imports.Items(), other.imports.Items()
	if len(ia) != len(ib) {
		return false
	}
	for i := range ia {
		if ia[i] != ib[i] {
			return false
		}
	}
	return true
}

func (c *ClassDescription) String() string {
	var sb strings.Builder
	sb.WriteString(c.classType.String())
	sb.WriteString(" {")
	for i, g := range c.getters.items {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(" ")
		sb.WriteString(g.PropertyName)
		sb.WriteString(": ")
		sb.WriteString(g.Type.String())
	}
	sb.WriteString(" }")
	return sb.String()
}

// Builder assembles a ClassDescription. A builder is single-use: Build
// hands over its state and resets it.
type Builder struct {
	desc *ClassDescription
}

// NewBuilder starts a description for classType.
func NewBuilder(classType TypeName) *Builder {
	return &Builder{desc: &ClassDescription{classType: classType}}
}

// AddGetter adds a getter description. Duplicated property names are
// ignored; returns false when g was dropped.
func (b *Builder) AddGetter(g GetterDescription) bool {
	return b.desc.getters.Add(g)
}

// AddImport adds a type to import.
func (b *Builder) AddImport(name TypeName) bool {
	return b.desc.imports.Add(name)
}

// AddImports adds every name of set.
func (b *Builder) AddImports(set *TypeNameSet) {
	for _, name := range set.items {
		b.desc.imports.Add(name)
	}
}

// Build returns the finished description.
func (b *Builder) Build() *ClassDescription {
	d := b.desc
	b.desc = &ClassDescription{classType: d.classType}
	return d
}
