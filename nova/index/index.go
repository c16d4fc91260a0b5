// Package index maintains per-file symbols, method signatures, the class/
// interface hierarchy, and name-candidate references over a set of parsed
// Java files (spec §4.3). It is the only semantic knowledge the refactoring
// engine has — deliberately stopping short of full type resolution, the way
// the teacher's java.ClassModel stops at structural modeling rather than
// type checking.
package index

import (
	"sort"
	"sync"

	"golang.org/x/exp/maps"

	"github.com/nova-ide/nova/nova/syntax"
)

// SymbolKind mirrors spec §3's Symbol.kind enumeration.
type SymbolKind int

const (
	KindClass SymbolKind = iota
	KindInterface
	KindEnum
	KindRecord
	KindAnnotationType
	KindMethod
	KindConstructor
	KindField
)

// SymbolID is stable for the lifetime of the Index; re-indexing a file mints
// fresh ids for its symbols rather than reusing old ones, so stale ids never
// alias a different symbol (spec §3 invariant).
type SymbolID int64

// Symbol is spec §3's Symbol record. Methods additionally carry an erased,
// normalized parameter-type signature.
type Symbol struct {
	ID         SymbolID
	Kind       SymbolKind
	Name       string
	Container  string // fully-qualified name of the enclosing class, or "" for a top-level type
	File       string
	NameRange  syntax.Span
	DeclRange  syntax.Span
	ParamTypes []string // erased parameter types, methods/constructors only
	ReturnType string
	Node       *syntax.Node // the declaration node, for header/body rewriting
}

// QualifiedName is Name when Container is empty and Container + "." + Name
// otherwise.
func (s *Symbol) QualifiedName() string {
	if s.Container == "" {
		return s.Name
	}
	return s.Container + "." + s.Name
}

// ReferenceKind classifies an identifier occurrence found by
// FindNameCandidates.
type ReferenceKind int

const (
	ReferenceCall ReferenceKind = iota
	ReferenceRead
	ReferenceWrite
	ReferenceOther
)

// Reference is one identifier occurrence with the given text.
type Reference struct {
	File string
	Span syntax.Span
	Kind ReferenceKind
}

// fileEntry holds everything the index knows about one source file.
type fileEntry struct {
	path string
	text string
	tree *syntax.Node
}

// typeEntry is one class/interface/enum/record/annotation declaration.
type typeEntry struct {
	qualifiedName string
	kind          SymbolKind
	extends       []string // class: at most one; interface: zero or more superinterfaces
	implements    []string // class implements list
	methods       []SymbolID
	fields        []SymbolID
}

// Index is the semantic model the refactoring engine queries. Build and
// Remove take mu's write lock; the query methods take its read lock.
type Index struct {
	mu sync.RWMutex

	files   map[string]*fileEntry
	symbols map[SymbolID]*Symbol
	types   map[string]*typeEntry // qualified name -> type
	nextID  SymbolID
}

func New() *Index {
	return &Index{
		files:   make(map[string]*fileEntry),
		symbols: make(map[SymbolID]*Symbol),
		types:   make(map[string]*typeEntry),
	}
}

// FileText returns the last-indexed text of path, for resolving a Span back
// to a string.
func (ix *Index) FileText(path string) (string, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	f, ok := ix.files[path]
	if !ok {
		return "", false
	}
	return f.text, true
}

// Tree returns the last-indexed parse tree of path, for callers (the
// change-signature engine) that need direct node access beyond what
// FindNameCandidates' flattened References expose.
func (ix *Index) Tree(path string) (*syntax.Node, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	f, ok := ix.files[path]
	if !ok {
		return nil, false
	}
	return f.tree, true
}

// FilePaths returns every indexed file path, sorted.
func (ix *Index) FilePaths() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	paths := maps.Keys(ix.files)
	sort.Strings(paths)
	return paths
}

// Symbol looks up a symbol by its stable id.
func (ix *Index) Symbol(id SymbolID) (*Symbol, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	s, ok := ix.symbols[id]
	return s, ok
}

// FindMethod looks up a method by (class, name, erased parameter types).
func (ix *Index) FindMethod(class, name string, paramTypes []string) (*Symbol, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	t, ok := ix.types[class]
	if !ok {
		return nil, false
	}
	for _, id := range t.methods {
		s := ix.symbols[id]
		if s.Name == name && sameErasedParams(s.ParamTypes, paramTypes) {
			return s, true
		}
	}
	return nil, false
}

// FindMethodsByName looks up every method overload in class with the given
// name, by (class, method_name) per spec §4.3.
func (ix *Index) FindMethodsByName(class, name string) []*Symbol {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	t, ok := ix.types[class]
	if !ok {
		return nil
	}
	var out []*Symbol
	for _, id := range t.methods {
		s := ix.symbols[id]
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

func sameErasedParams(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// IsInterface reports whether the named type is an interface.
func (ix *Index) IsInterface(class string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	t, ok := ix.types[class]
	return ok && t.kind == KindInterface
}

// IsAnnotationType reports whether the named type is an `@interface`
// declaration.
func (ix *Index) IsAnnotationType(name string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	t, ok := ix.types[name]
	return ok && t.kind == KindAnnotationType
}

// ClassExtends returns the single superclass name of a class declaration
// (empty if none is declared, i.e. implicitly java.lang.Object).
func (ix *Index) ClassExtends(class string) string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	t, ok := ix.types[class]
	if !ok || t.kind != KindClass || len(t.extends) == 0 {
		return ""
	}
	return t.extends[0]
}

// ClassImplements returns the interfaces a class declares in its implements
// clause.
func (ix *Index) ClassImplements(class string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	t, ok := ix.types[class]
	if !ok {
		return nil
	}
	return append([]string(nil), t.implements...)
}

// InterfaceExtends returns the superinterfaces an interface declares.
func (ix *Index) InterfaceExtends(iface string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	t, ok := ix.types[iface]
	if !ok || t.kind != KindInterface {
		return nil
	}
	return append([]string(nil), t.extends...)
}

// AllTypes returns every known type's qualified name, sorted, for
// deterministic iteration (grounded on the teacher's indirect
// golang.org/x/exp/maps dependency rather than a hand-rolled sort loop).
func (ix *Index) AllTypes() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	names := maps.Keys(ix.types)
	sort.Strings(names)
	return names
}

// directSubtypes returns every type that directly extends/implements base.
func (ix *Index) directSubtypes(base string) []string {
	var out []string
	for _, name := range ix.AllTypes() {
		t := ix.types[name]
		for _, e := range t.extends {
			if e == base {
				out = append(out, name)
			}
		}
		for _, im := range t.implements {
			if im == base {
				out = append(out, name)
			}
		}
	}
	return out
}

// FindOverridden walks the hierarchy upward from class (its superclass
// chain, then implemented/extended interfaces) looking for a method with
// the same name and erased parameter types as method. Per spec §4.5, for an
// interface target, superinterfaces are walked; for class targets,
// interfaces the class implements are also considered.
func (ix *Index) FindOverridden(class string, method *Symbol) []*Symbol {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []*Symbol
	seen := map[string]bool{class: true}
	var visitSuper func(name string)
	visitSuper = func(name string) {
		t, ok := ix.types[name]
		if !ok {
			return
		}
		var parents []string
		if t.kind == KindInterface {
			parents = t.extends
		} else {
			parents = append(parents, t.extends...)
			parents = append(parents, t.implements...)
		}
		for _, p := range parents {
			if seen[p] {
				continue
			}
			seen[p] = true
			if s := ix.findDirectMethodLocked(p, method.Name, method.ParamTypes); s != nil {
				out = append(out, s)
			}
			visitSuper(p)
		}
	}
	visitSuper(class)
	return out
}

// FindOverrides walks the hierarchy downward from class (its subclasses, or
// for an interface target, subinterfaces and implementing classes) looking
// for redeclarations of method.
func (ix *Index) FindOverrides(class string, method *Symbol) []*Symbol {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []*Symbol
	seen := map[string]bool{class: true}
	var visitSub func(name string)
	visitSub = func(name string) {
		for _, child := range ix.directSubtypes(name) {
			if seen[child] {
				continue
			}
			seen[child] = true
			if s := ix.findDirectMethodLocked(child, method.Name, method.ParamTypes); s != nil {
				out = append(out, s)
			}
			visitSub(child)
		}
	}
	visitSub(class)
	return out
}

func (ix *Index) findDirectMethodLocked(class, name string, paramTypes []string) *Symbol {
	t, ok := ix.types[class]
	if !ok {
		return nil
	}
	for _, id := range t.methods {
		s := ix.symbols[id]
		if s.Name == name && sameErasedParams(s.ParamTypes, paramTypes) {
			return s
		}
	}
	return nil
}

// FindNameCandidates returns every identifier occurrence with the given
// text across all indexed files, classified with a coarse ReferenceKind.
func (ix *Index) FindNameCandidates(name string) []Reference {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []Reference
	paths := maps.Keys(ix.files)
	sort.Strings(paths)
	for _, path := range paths {
		f := ix.files[path]
		var walk func(n, parent, grandparent *syntax.Node)
		walk = func(n, parent, grandparent *syntax.Node) {
			if n == nil {
				return
			}
			if n.Kind == syntax.KindIdentifier && n.TokenLiteral() == name {
				out = append(out, Reference{File: path, Span: n.Span, Kind: classifyReference(n, parent, grandparent)})
			}
			for _, c := range n.Children {
				walk(c, n, parent)
			}
		}
		walk(f.tree, nil, nil)
	}
	return out
}
