package index

import (
	"strings"

	"github.com/nova-ide/nova/nova/syntax"
)

// Build (re)indexes one file's compilation unit. Re-indexing an
// already-known path replaces its symbols with fresh ids; any previously
// handed-out SymbolID for that file becomes stale (spec §3 invariant: a
// stale id never aliases a different symbol, it simply stops resolving).
func (ix *Index) Build(path, text string, tree *syntax.Node) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.removeFileLocked(path)
	ix.files[path] = &fileEntry{path: path, text: text, tree: tree}

	pkg := packageName(tree)
	b := &builder{ix: ix, file: path, pkg: pkg}
	for _, child := range tree.Children {
		b.indexTypeDecl(child, "")
	}
}

// Remove drops a file and every symbol/type it contributed.
func (ix *Index) Remove(path string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeFileLocked(path)
}

func (ix *Index) removeFileLocked(path string) {
	if _, ok := ix.files[path]; !ok {
		return
	}
	delete(ix.files, path)
	for name, t := range ix.types {
		if t.fileOf(ix, path) {
			delete(ix.types, name)
		}
	}
	for id, s := range ix.symbols {
		if s.File == path {
			delete(ix.symbols, id)
		}
	}
}

// fileOf reports whether any symbol belonging to t came from path; used only
// to garbage-collect a type entry when its declaring file is re-indexed.
func (t *typeEntry) fileOf(ix *Index, path string) bool {
	for _, id := range t.methods {
		if s, ok := ix.symbols[id]; ok && s.File == path {
			return true
		}
	}
	for _, id := range t.fields {
		if s, ok := ix.symbols[id]; ok && s.File == path {
			return true
		}
	}
	return false
}

type builder struct {
	ix   *Index
	file string
	pkg  string
}

func packageName(cu *syntax.Node) string {
	for _, c := range cu.Children {
		if c.Kind == syntax.KindPackageDecl {
			var parts []string
			for _, id := range c.Children {
				if id.Kind == syntax.KindIdentifier {
					parts = append(parts, id.TokenLiteral())
				}
			}
			return strings.Join(parts, ".")
		}
	}
	return ""
}

var typeDeclKinds = map[syntax.NodeKind]SymbolKind{
	syntax.KindClassDecl:      KindClass,
	syntax.KindInterfaceDecl:  KindInterface,
	syntax.KindEnumDecl:       KindEnum,
	syntax.KindRecordDecl:     KindRecord,
	syntax.KindAnnotationDecl: KindAnnotationType,
}

// indexTypeDecl indexes a class/interface/enum/record/annotation
// declaration and recurses into nested type declarations in its body.
// container is the enclosing qualified type name, or "" at the top level.
func (b *builder) indexTypeDecl(n *syntax.Node, container string) {
	kind, ok := typeDeclKinds[n.Kind]
	if !ok {
		return
	}
	nameNode := n.FirstChildOfKind(syntax.KindIdentifier)
	if nameNode == nil {
		return
	}
	simple := nameNode.TokenLiteral()
	qualified := simple
	if container != "" {
		qualified = container + "." + simple
	} else if b.pkg != "" {
		qualified = b.pkg + "." + simple
	}

	// A supertype written without a package is taken to be in this file's
	// package, so hierarchy queries use the same qualified names that key
	// ix.types.
	qualify := func(t *syntax.Node) string {
		name := eraseType(t)
		if b.pkg != "" && !strings.Contains(name, ".") {
			return b.pkg + "." + name
		}
		return name
	}
	entry := &typeEntry{qualifiedName: qualified, kind: kind}
	if ext := n.FirstChildOfKind(syntax.KindExtendsClause); ext != nil {
		for _, t := range ext.Children {
			entry.extends = append(entry.extends, qualify(t))
		}
	}
	if impl := n.FirstChildOfKind(syntax.KindImplementsClause); impl != nil {
		for _, t := range impl.Children {
			entry.implements = append(entry.implements, qualify(t))
		}
	}
	b.ix.types[qualified] = entry

	body := n.FirstChildOfKind(syntax.KindBlock)
	if body == nil {
		return
	}
	for _, member := range body.Children {
		switch member.Kind {
		case syntax.KindMethodDecl:
			b.indexMethod(member, qualified, false)
		case syntax.KindConstructorDecl:
			b.indexMethod(member, qualified, true)
		case syntax.KindFieldDecl:
			b.indexField(member, qualified)
		case syntax.KindClassDecl, syntax.KindInterfaceDecl, syntax.KindEnumDecl,
			syntax.KindRecordDecl, syntax.KindAnnotationDecl:
			b.indexTypeDecl(member, qualified)
		}
	}
}

func (b *builder) indexMethod(n *syntax.Node, container string, isCtor bool) {
	nameNode := n.FirstChildOfKind(syntax.KindIdentifier)
	if nameNode == nil {
		return
	}
	params := n.FirstChildOfKind(syntax.KindParameters)
	var paramTypes []string
	if params != nil {
		for _, p := range params.Children {
			if p.Kind != syntax.KindParameter {
				continue
			}
			if t := p.FirstChildOfKind(syntax.KindType); t != nil {
				paramTypes = append(paramTypes, eraseType(t))
			} else if t := firstTypeLikeChild(p); t != nil {
				paramTypes = append(paramTypes, eraseType(t))
			}
		}
	}
	kind := KindMethod
	var retType string
	if isCtor {
		kind = KindConstructor
	} else {
		// MethodDecl children: [Modifiers, TypeParameters?, ReturnType, Identifier, Parameters, ...]
		for _, c := range n.Children {
			if c == nameNode {
				break
			}
			if isTypeLike(c) {
				retType = eraseType(c)
			}
		}
	}
	sym := &Symbol{
		ID:         b.ix.nextSymbolID(),
		Kind:       kind,
		Name:       nameNode.TokenLiteral(),
		Container:  container,
		File:       b.file,
		NameRange:  nameNode.Span,
		DeclRange:  n.Span,
		ParamTypes: paramTypes,
		ReturnType: retType,
		Node:       n,
	}
	b.ix.symbols[sym.ID] = sym
	t := b.ix.types[container]
	t.methods = append(t.methods, sym.ID)
}

func (b *builder) indexField(n *syntax.Node, container string) {
	typeNode := n.FirstChildOfKind(syntax.KindType)
	if typeNode == nil {
		typeNode = firstTypeLikeChild(n)
	}
	erased := ""
	if typeNode != nil {
		erased = eraseType(typeNode)
	}
	for _, decl := range n.ChildrenOfKind(syntax.KindParameter) {
		nameNode := decl.FirstChildOfKind(syntax.KindIdentifier)
		if nameNode == nil {
			continue
		}
		sym := &Symbol{
			ID:         b.ix.nextSymbolID(),
			Kind:       KindField,
			Name:       nameNode.TokenLiteral(),
			Container:  container,
			File:       b.file,
			NameRange:  nameNode.Span,
			DeclRange:  decl.Span,
			ReturnType: erased,
			Node:       decl,
		}
		b.ix.symbols[sym.ID] = sym
		t := b.ix.types[container]
		t.fields = append(t.fields, sym.ID)
	}
}

func (ix *Index) nextSymbolID() SymbolID {
	ix.nextID++
	return ix.nextID
}

func isTypeLike(n *syntax.Node) bool {
	switch n.Kind {
	case syntax.KindType, syntax.KindParameterizedType, syntax.KindArrayType, syntax.KindWildcard:
		return true
	}
	return false
}

func firstTypeLikeChild(n *syntax.Node) *syntax.Node {
	for _, c := range n.Children {
		if isTypeLike(c) {
			return c
		}
	}
	return nil
}

// eraseType renders a Type/ParameterizedType/ArrayType/Wildcard node as an
// erased, normalized signature string: generic type arguments are dropped,
// qualified segments are dotted, array dimensions become a "[]" suffix —
// spec §3/§GLOSSARY's "erased signature".
func eraseType(n *syntax.Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case syntax.KindArrayType:
		if len(n.Children) == 0 {
			return "[]"
		}
		return eraseType(n.Children[0]) + "[]"
	case syntax.KindWildcard:
		return "?"
	case syntax.KindType, syntax.KindParameterizedType:
		if n.Token != nil {
			return n.TokenLiteral() // primitive type leaf
		}
		var parts []string
		for _, c := range n.Children {
			switch c.Kind {
			case syntax.KindIdentifier:
				parts = append(parts, c.TokenLiteral())
			case syntax.KindType, syntax.KindParameterizedType:
				parts = append(parts, eraseType(c))
			}
		}
		return strings.Join(parts, ".")
	default:
		return n.TokenLiteral()
	}
}

// classifyReference gives a coarse ReferenceKind to an Identifier node found
// during a FindNameCandidates scan, given its immediate parent (and, for a
// FieldAccess parent, that parent's own parent). This is a structural
// heuristic, not a resolved binding — it only looks at the identifier's
// immediate tree shape, the way the teacher's at_point.go resolves
// references lexically rather than semantically.
func classifyReference(n, parent, grandparent *syntax.Node) ReferenceKind {
	if parent == nil {
		return ReferenceOther
	}
	switch parent.Kind {
	case syntax.KindCallExpr:
		if len(parent.Children) > 0 && parent.Children[0] == n {
			return ReferenceCall
		}
	case syntax.KindFieldAccess:
		// `recv.name(...)`: name is the last child of FieldAccess, and
		// FieldAccess is in turn the callee of an enclosing CallExpr.
		if len(parent.Children) > 0 && parent.Children[len(parent.Children)-1] == n {
			if grandparent != nil && grandparent.Kind == syntax.KindCallExpr &&
				len(grandparent.Children) > 0 && grandparent.Children[0] == parent {
				return ReferenceCall
			}
		}
	case syntax.KindAssignExpr:
		if len(parent.Children) > 0 && parent.Children[0] == n {
			return ReferenceWrite
		}
	}
	return ReferenceRead
}
