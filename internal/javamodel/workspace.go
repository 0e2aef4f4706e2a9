// Package javamodel builds a queryable Java code model from parsed source
// files and a bundled set of JDK declarations.
package javamodel

import (
	"fmt"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Benny93/fluentgen/internal/codemodel"
	"github.com/Benny93/fluentgen/internal/parsers"
)

// DefaultCacheSize bounds the inheritance memo when Options.CacheSize is unset.
const DefaultCacheSize = 4096

// Options configures a Workspace.
type Options struct {
	// JDKStubs loads the bundled java.lang / java.util declarations into
	// the library scope.
	JDKStubs bool

	// CacheSize bounds the transitive-inheritance memo.
	CacheSize int
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{JDKStubs: true, CacheSize: DefaultCacheSize}
}

// Workspace holds the classes of a set of Java files.
//
// All queries go through Read, which holds the read lock for the duration
// of the callback. Load, Reload and Remove take the write lock.
type Workspace struct {
	mu sync.RWMutex

	parser  parsers.Parser
	files   map[string]*sourceFile
	classes map[string]*Class
	library map[string]*Class

	inherit *lru.Cache[string, bool]
}

type sourceFile struct {
	path    string
	result  *parsers.ParseResult
	classes []*Class
	library bool
}

// NewWorkspace creates an empty workspace.
func NewWorkspace(parser parsers.Parser, opts Options) (*Workspace, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, bool](size)
	if err != nil {
		return nil, fmt.Errorf("creating inheritance cache: %w", err)
	}

	w := &Workspace{
		parser:  parser,
		files:   make(map[string]*sourceFile),
		classes: make(map[string]*Class),
		library: make(map[string]*Class),
		inherit: cache,
	}

	if opts.JDKStubs {
		if err := w.loadJDK(); err != nil {
			return nil, err
		}
	}

	return w, nil
}

// Load adds parse results to the project scope. A result for a path that is
// already loaded replaces the previous one.
func (w *Workspace) Load(results ...*parsers.ParseResult) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, r := range results {
		if r != nil {
			w.addLocked(r, false)
		}
	}
	w.inherit.Purge()
}

// Reload parses content and replaces the classes previously loaded from path.
func (w *Workspace) Reload(path string, content []byte) error {
	result, err := w.parser.Parse(path, content)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	w.Load(result)
	return nil
}

// Remove drops every class loaded from path. Returns false if the path was
// not loaded.
func (w *Workspace) Remove(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	removed := w.removeLocked(path)
	if removed {
		w.inherit.Purge()
	}
	return removed
}

// Read runs fn with read access to the workspace.
func (w *Workspace) Read(fn func(v *View) error) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return fn(&View{w: w})
}

func (w *Workspace) addLocked(r *parsers.ParseResult, library bool) {
	if !library {
		w.removeLocked(r.FilePath)
	}

	f := &sourceFile{path: r.FilePath, result: r, library: library}
	byBinary := make(map[string]*Class, len(r.Types))

	for i := range r.Types {
		decl := &r.Types[i]
		c := &Class{
			ws:            w,
			file:          f,
			decl:          decl,
			outer:         byBinary[decl.Outer],
			qualifiedName: qualify(r.Package, decl.BinaryName()),
		}
		c.methods = make([]codemodel.Method, 0, len(decl.Methods))
		for j := range decl.Methods {
			c.methods = append(c.methods, &Method{class: c, decl: &decl.Methods[j]})
		}
		byBinary[decl.BinaryName()] = c
		f.classes = append(f.classes, c)

		if library {
			w.library[c.qualifiedName] = c
		} else {
			w.classes[c.qualifiedName] = c
		}
	}

	if !library {
		w.files[r.FilePath] = f
	}
}

func (w *Workspace) removeLocked(path string) bool {
	f, ok := w.files[path]
	if !ok {
		return false
	}
	for _, c := range f.classes {
		if w.classes[c.qualifiedName] == c {
			delete(w.classes, c.qualifiedName)
		}
	}
	delete(w.files, path)
	return true
}

// lookup finds a class by qualified name, project classes first.
func (w *Workspace) lookup(qualifiedName string) *Class {
	if c, ok := w.classes[qualifiedName]; ok {
		return c
	}
	return w.library[qualifiedName]
}

// View is the read-side query surface of a Workspace. A View is only valid
// inside the Read callback that produced it.
type View struct {
	w *Workspace
}

var _ codemodel.Workspace = (*View)(nil)

// FindClass looks up a class by qualified name. ScopeProject sees loaded
// source files only; ScopeAll also sees library declarations.
func (v *View) FindClass(qualifiedName string, scope codemodel.Scope) (codemodel.Class, bool) {
	if c, ok := v.w.classes[qualifiedName]; ok {
		return c, true
	}
	if scope == codemodel.ScopeAll {
		if c, ok := v.w.library[qualifiedName]; ok {
			return c, true
		}
	}
	return nil, false
}

// Class is FindClass returning the concrete type.
func (v *View) Class(qualifiedName string, scope codemodel.Scope) (*Class, bool) {
	c, ok := v.FindClass(qualifiedName, scope)
	if !ok {
		return nil, false
	}
	return c.(*Class), true
}

// Classes returns the classes visible in scope ordered by qualified name.
func (v *View) Classes(scope codemodel.Scope) []*Class {
	out := make([]*Class, 0, len(v.w.classes))
	for _, c := range v.w.classes {
		out = append(out, c)
	}
	if scope == codemodel.ScopeAll {
		for qn, c := range v.w.library {
			if _, shadowed := v.w.classes[qn]; !shadowed {
				out = append(out, c)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].qualifiedName < out[j].qualifiedName
	})
	return out
}

// ClassesInFile returns the classes declared in path in declaration order.
func (v *View) ClassesInFile(path string) []*Class {
	f, ok := v.w.files[path]
	if !ok {
		return nil
	}
	out := make([]*Class, len(f.classes))
	copy(out, f.classes)
	return out
}

// Files returns the loaded project file paths, sorted.
func (v *View) Files() []string {
	out := make([]string, 0, len(v.w.files))
	for path := range v.w.files {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

func qualify(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}
