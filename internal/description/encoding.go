package description

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Wire forms used for JSON (store, MCP) and YAML (CLI output).

type typeDescriptionDoc struct {
	Type       TypeName  `json:"type" yaml:"type"`
	IsArray    bool      `json:"is_array,omitempty" yaml:"is_array,omitempty"`
	IsIterable bool      `json:"is_iterable,omitempty" yaml:"is_iterable,omitempty"`
	Element    *TypeName `json:"element,omitempty" yaml:"element,omitempty"`
}

type getterDoc struct {
	Property string             `json:"property" yaml:"property"`
	Type     typeDescriptionDoc `json:"type" yaml:"type"`
}

type classDoc struct {
	Class   TypeName    `json:"class" yaml:"class"`
	Getters []getterDoc `json:"getters" yaml:"getters"`
	Imports []TypeName  `json:"imports" yaml:"imports"`
}

func (c *ClassDescription) toDoc() classDoc {
	doc := classDoc{
		Class:   c.classType,
		Getters: make([]getterDoc, 0, c.getters.Len()),
		Imports: c.imports.Items(),
	}
	for _, g := range c.getters.items {
		td := typeDescriptionDoc{
			Type:       g.Type.TypeName,
			IsArray:    g.Type.IsArray,
			IsIterable: g.Type.IsIterable,
		}
		if g.Type.ElementTypeName != nil {
			el := *g.Type.ElementTypeName
			td.Element = &el
		}
		doc.Getters = append(doc.Getters, getterDoc{Property: g.PropertyName, Type: td})
	}
	return doc
}

func fromDoc(doc classDoc) (*ClassDescription, error) {
	b := NewBuilder(doc.Class)
	for _, g := range doc.Getters {
		td := TypeDescription{
			TypeName:        g.Type.Type,
			IsArray:         g.Type.IsArray,
			IsIterable:      g.Type.IsIterable,
			ElementTypeName: g.Type.Element,
		}
		if err := td.Validate(); err != nil {
			return nil, fmt.Errorf("property %s: %w", g.Property, err)
		}
		b.AddGetter(NewGetterDescription(g.Property, td))
	}
	for _, imp := range doc.Imports {
		b.AddImport(imp)
	}
	return b.Build(), nil
}

// MarshalJSON implements json.Marshaler.
func (c *ClassDescription) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.toDoc())
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *ClassDescription) UnmarshalJSON(data []byte) error {
	var doc classDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	d, err := fromDoc(doc)
	if err != nil {
		return err
	}
	*c = *d
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (c *ClassDescription) MarshalYAML() (any, error) {
	return c.toDoc(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *ClassDescription) UnmarshalYAML(node *yaml.Node) error {
	var doc classDoc
	if err := node.Decode(&doc); err != nil {
		return err
	}
	d, err := fromDoc(doc)
	if err != nil {
		return err
	}
	*c = *d
	return nil
}
