// Package description provides the generator-agnostic description model
// produced for each converted class.
//
// A ClassDescription names the class, lists its properties (one
// GetterDescription per getter, ordered by property name) and the types a
// generated assertion class has to import. Descriptions are immutable once
// built and are handed to the downstream source emitter as-is.
package description

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TypeName identifies a type by simple name and optional package.
type TypeName struct {
	// Name is the simple name (e.g. "List", "int", "int[]").
	Name string `json:"name" yaml:"name"`

	// Package is the enclosing package, empty for primitives and the
	// default package.
	Package string `json:"package,omitempty" yaml:"package,omitempty"`
}

// NewTypeName creates a TypeName in the given package.
func NewTypeName(name, pkg string) TypeName {
	return TypeName{Name: name, Package: pkg}
}

// ParseTypeName splits a dotted, erased type name into package and simple
// name. Type arguments are dropped: "java.util.List<Foo>" -> java.util/List.
// The name starts at the first segment with an upper-case initial, so nested
// types stay whole: "java.util.Map.Entry" -> java.util/Map.Entry and
// "Map.Entry" -> Map.Entry with no package.
func ParseTypeName(text string) TypeName {
	if idx := strings.IndexByte(text, '<'); idx >= 0 {
		text = text[:idx]
	}
	text = strings.TrimSpace(text)

	segments := strings.Split(text, ".")
	split := len(segments) - 1
	for i, seg := range segments[:split] {
		if r, _ := utf8.DecodeRuneInString(seg); unicode.IsUpper(r) {
			split = i
			break
		}
	}
	return TypeName{
		Name:    strings.Join(segments[split:], "."),
		Package: strings.Join(segments[:split], "."),
	}
}

// IsZero reports whether the type name is unset.
func (t TypeName) IsZero() bool {
	return t.Name == "" && t.Package == ""
}

// String returns the qualified form, or the simple name when no package is set.
func (t TypeName) String() string {
	if t.Package == "" {
		return t.Name
	}
	return t.Package + "." + t.Name
}

// Compare orders type names by package, then simple name.
func (t TypeName) Compare(other TypeName) int {
	if c := strings.Compare(t.Package, other.Package); c != 0 {
		return c
	}
	return strings.Compare(t.Name, other.Name)
}

// Less reports whether t sorts before other.
func (t TypeName) Less(other TypeName) bool {
	return t.Compare(other) < 0
}

// TypeNameSet is an ordered, duplicate-free set of type names.
type TypeNameSet struct {
	items []TypeName
}

// NewTypeNameSet creates a set holding the given names.
func NewTypeNameSet(names ...TypeName) *TypeNameSet {
	s := &TypeNameSet{}
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add inserts a name, keeping the set sorted. Returns false for duplicates.
func (s *TypeNameSet) Add(name TypeName) bool {
	idx := sort.Search(len(s.items), func(i int) bool {
		return s.items[i].Compare(name) >= 0
	})
	if idx < len(s.items) && s.items[idx] == name {
		return false
	}
	s.items = append(s.items, TypeName{})
	copy(s.items[idx+1:], s.items[idx:])
	s.items[idx] = name
	return true
}

// Contains reports whether the set holds name.
func (s *TypeNameSet) Contains(name TypeName) bool {
	idx := sort.Search(len(s.items), func(i int) bool {
		return s.items[i].Compare(name) >= 0
	})
	return idx < len(s.items) && s.items[idx] == name
}

// Len returns the number of names in the set.
func (s *TypeNameSet) Len() int {
	return len(s.items)
}

// Items returns a copy of the names in order.
func (s *TypeNameSet) Items() []TypeName {
	out := make([]TypeName, len(s.items))
	copy(out, s.items)
	return out
}
