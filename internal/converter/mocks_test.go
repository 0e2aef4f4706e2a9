package converter

import (
	"github.com/stretchr/testify/mock"

	"github.com/Benny93/fluentgen/internal/codemodel"
)

// MockWorkspace implements codemodel.Workspace for testing
type MockWorkspace struct {
	mock.Mock
}

func (m *MockWorkspace) FindClass(qualifiedName string, scope codemodel.Scope) (codemodel.Class, bool) {
	args := m.Called(qualifiedName, scope)
	cls, ok := args.Get(0).(codemodel.Class)
	if !ok {
		return nil, false
	}
	return cls, args.Bool(1)
}

// fakeType is a hand-built codemodel.Type.
type fakeType struct {
	kind      codemodel.TypeKind
	text      string
	class     codemodel.Class
	args      []codemodel.Type
	component codemodel.Type
}

func (t *fakeType) Kind() codemodel.TypeKind { return t.kind }
func (t *fakeType) CanonicalText() string { return t.text }
func (t *fakeType) PresentableText() string { return t.text }
func (t *fakeType) ClassName() string { return t.text }
func (t *fakeType) ComponentType() codemodel.Type { return t.component }
func (t *fakeType) TypeArguments() []codemodel.Type { return t.args }

func (t *fakeType) Resolve() (codemodel.Class, bool) {
	return t.class, t.class != nil
}

func primitive(name string) *fakeType {
	return &fakeType{kind: codemodel.KindPrimitive, text: name}
}

func voidType() *fakeType {
	return &fakeType{kind: codemodel.KindVoid, text: "void"}
}

// fakeMethod is a hand-built codemodel.Method. A nil ret models a method
// whose return type could not be determined.
type fakeMethod struct {
	name   string
	params int
	ret    codemodel.Type
	owner  codemodel.Class
}

func (m *fakeMethod) Name() string { return m.name }
func (m *fakeMethod) ParameterCount() int { return m.params }
func (m *fakeMethod) ContainingClass() codemodel.Class { return m.owner }

func (m *fakeMethod) ReturnType() codemodel.Type {
	if m.ret == nil {
		return nil
	}
	return m.ret
}

// fakeClass is a hand-built codemodel.Class.
type fakeClass struct {
	name    string
	pkg     string
	methods []codemodel.Method
	supers  []string
}

func (c *fakeClass) Name() string { return c.name }
func (c *fakeClass) PackageName() string { return c.pkg }
func (c *fakeClass) Methods() []codemodel.Method { return c.methods }

func (c *fakeClass) QualifiedName() string {
	if c.pkg == "" {
		return c.name
	}
	return c.pkg + "." + c.name
}

func (c *fakeClass) IsInheritor(base codemodel.Class, _ bool) bool {
	for _, s := range c.supers {
		if s == base.QualifiedName() {
			return true
		}
	}
	return false
}
