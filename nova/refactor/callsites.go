package refactor

import (
	"strings"

	"github.com/nova-ide/nova/nova/index"
	"github.com/nova-ide/nova/nova/syntax"
)

// callSite is one `name(...)` invocation found by findCallSites, with just
// enough lexical context (spec §4.5 step 4) to attempt receiver-class
// inference and overload disambiguation without full type checking.
type callSite struct {
	call             *syntax.Node // CallExpr
	nameNode         *syntax.Node // Identifier carrying the method name
	args             *syntax.Node // ArgumentList
	receiverExpr     *syntax.Node // nil for an implicit/bare call
	enclosingClass   string
	localVarTypes    map[string]string
	declaredLocalType string // set when call is the sole initializer of `T x = call(...)`, else ""
}

// findCallSites walks tree collecting every Call occurrence of name,
// tracking the innermost enclosing class (for implicit-this receivers) and
// the nearest enclosing method's parameter/local-variable bindings (for
// best-effort receiver-type inference), per spec §4.5 step 4.
func findCallSites(tree *syntax.Node, name string) []callSite {
	var out []callSite
	var classStack []string
	localTypes := map[string]string{}
	declaredTypeOf := map[*syntax.Node]string{}

	var walk func(n *syntax.Node)
	walk = func(n *syntax.Node) {
		if n == nil {
			return
		}
		switch n.Kind {
		case syntax.KindClassDecl, syntax.KindInterfaceDecl, syntax.KindEnumDecl,
			syntax.KindRecordDecl, syntax.KindAnnotationDecl:
			cname := ""
			if id := n.FirstChildOfKind(syntax.KindIdentifier); id != nil {
				cname = id.TokenLiteral()
			}
			classStack = append(classStack, cname)
			for _, c := range n.Children {
				walk(c)
			}
			classStack = classStack[:len(classStack)-1]
			return

		case syntax.KindMethodDecl, syntax.KindConstructorDecl:
			saved := localTypes
			localTypes = map[string]string{}
			if params := n.FirstChildOfKind(syntax.KindParameters); params != nil {
				for _, p := range params.Children {
					if p.Kind != syntax.KindParameter {
						continue
					}
					if typ, id := paramTypeAndName(p); typ != nil && id != nil {
						localTypes[id.TokenLiteral()] = eraseTypeText(typ.TokenLiteral())
					}
				}
			}
			for _, c := range n.Children {
				walk(c)
			}
			localTypes = saved
			return

		case syntax.KindLocalVarDecl:
			recordLocalVarDecl(n, localTypes, declaredTypeOf)

		case syntax.KindCallExpr:
			if len(n.Children) == 0 {
				break
			}
			callee := n.Children[0]
			var nameNode, receiver *syntax.Node
			switch {
			case callee.Kind == syntax.KindIdentifier:
				nameNode = callee
			case callee.Kind == syntax.KindFieldAccess && len(callee.Children) == 2:
				receiver = callee.Children[0]
				nameNode = callee.Children[1]
			}
			if nameNode != nil && nameNode.TokenLiteral() == name {
				enclosing := ""
				if len(classStack) > 0 {
					enclosing = classStack[len(classStack)-1]
				}
				out = append(out, callSite{
					call:              n,
					nameNode:          nameNode,
					args:              n.FirstChildOfKind(syntax.KindArgumentList),
					receiverExpr:      receiver,
					enclosingClass:    enclosing,
					localVarTypes:     copyStringMap(localTypes),
					declaredLocalType: declaredTypeOf[n],
				})
			}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(tree)
	return out
}

func recordLocalVarDecl(n *syntax.Node, localTypes map[string]string, declaredTypeOf map[*syntax.Node]string) {
	var typeNode *syntax.Node
	for _, c := range n.Children {
		if isTypeLikeKind(c.Kind) {
			typeNode = c
			break
		}
	}
	if typeNode == nil {
		return
	}
	declaredType := eraseTypeText(typeNode.TokenLiteral())
	for _, c := range n.Children {
		if c.Kind != syntax.KindParameter {
			continue
		}
		if id := c.FirstChildOfKind(syntax.KindIdentifier); id != nil {
			localTypes[id.TokenLiteral()] = declaredType
		}
		// `T x = call(...)`: the declarator is [Identifier, initializer].
		if len(c.Children) == 2 && c.Children[1].Kind == syntax.KindCallExpr {
			declaredTypeOf[c.Children[1]] = declaredType
		}
	}
}

func copyStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// inferReceiverClass is spec §4.5 step 4's best-effort receiver inference:
// implicit-this/`this`/`new T(`/`TypeName.`/a local variable with a known
// declared type. An unqualified identifier that isn't a known local is
// treated as a (possibly static) type name; if nothing in the index
// matches it, the call site is silently skipped further on, matching this
// repo's lexical, best-effort resolution policy throughout.
func inferReceiverClass(site callSite) (string, bool) {
	if site.receiverExpr == nil {
		return site.enclosingClass, site.enclosingClass != ""
	}
	switch site.receiverExpr.Kind {
	case syntax.KindThis:
		return site.enclosingClass, site.enclosingClass != ""
	case syntax.KindNewExpr:
		if len(site.receiverExpr.Children) > 0 {
			return eraseTypeText(site.receiverExpr.Children[0].TokenLiteral()), true
		}
	case syntax.KindIdentifier:
		name := site.receiverExpr.TokenLiteral()
		if t, ok := site.localVarTypes[name]; ok {
			return t, true
		}
		return name, true
	}
	return "", false
}

// resolveTypeName maps a source-written type name (simple or qualified) to
// the index's fully-qualified key, preferring an exact match.
func resolveTypeName(ix *index.Index, name string) (string, bool) {
	for _, t := range ix.AllTypes() {
		if t == name {
			return t, true
		}
	}
	for _, t := range ix.AllTypes() {
		if simpleName(t) == name {
			return t, true
		}
	}
	return "", false
}

func simpleName(qualified string) string {
	if i := strings.LastIndexByte(qualified, '.'); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}

// isSubtypeOrSelf reports whether class is ancestor, or extends/implements
// it transitively, walking the hierarchy the same way
// nova/index.FindOverridden does.
func isSubtypeOrSelf(ix *index.Index, class, ancestor string) bool {
	if class == ancestor {
		return true
	}
	seen := map[string]bool{class: true}
	queue := []string{class}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		var parents []string
		if ix.IsInterface(cur) {
			parents = ix.InterfaceExtends(cur)
		} else {
			if e := ix.ClassExtends(cur); e != "" {
				parents = append(parents, e)
			}
			parents = append(parents, ix.ClassImplements(cur)...)
		}
		for _, p := range parents {
			if p == ancestor {
				return true
			}
			if !seen[p] {
				seen[p] = true
				queue = append(queue, p)
			}
		}
	}
	return false
}

// reachableMethodsByName collects every method named name declared on class
// or any of its ancestors, for ambiguous-overload detection.
func reachableMethodsByName(ix *index.Index, class, name string) []*index.Symbol {
	var out []*index.Symbol
	seen := map[string]bool{}
	queue := []string{class}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		out = append(out, ix.FindMethodsByName(cur, name)...)
		if ix.IsInterface(cur) {
			queue = append(queue, ix.InterfaceExtends(cur)...)
		} else {
			if e := ix.ClassExtends(cur); e != "" {
				queue = append(queue, e)
			}
			queue = append(queue, ix.ClassImplements(cur)...)
		}
	}
	return out
}

// rewriteCallSites implements spec §4.5 step 4 (and the ambiguous-call-site
// and return-type-incompatibility halves of step 3): every textual
// occurrence of target's name, filtered to genuine calls outside any
// affected declaration's own header/body, resolved through the hierarchy,
// and rewritten per the plan.
func rewriteCallSites(ix *index.Index, target *index.Symbol, affected []*index.Symbol, plan Plan) ([]TextEdit, []Conflict) {
	affectedByContainer := map[string]*index.Symbol{}
	for _, s := range affected {
		affectedByContainer[s.Container] = s
	}
	declSpans := map[string][]syntax.Span{}
	for _, s := range affected {
		declSpans[s.File] = append(declSpans[s.File], s.DeclRange)
	}

	var edits []TextEdit
	var conflicts []Conflict

	for _, path := range ix.FilePaths() {
		tree, ok := ix.Tree(path)
		if !ok {
			continue
		}
		text, _ := ix.FileText(path)
		src := []byte(text)

		for _, site := range findCallSites(tree, target.Name) {
			if insideAnyDeclHeader(site.call.Span, declSpans[path]) {
				continue
			}
			rc, ok := inferReceiverClass(site)
			if !ok {
				continue
			}
			resolved, ok := resolveTypeName(ix, rc)
			if !ok {
				continue
			}

			var matchedSym *index.Symbol
			argCount := 0
			if site.args != nil {
				argCount = len(site.args.Children)
			}
			for _, s := range affected {
				if isSubtypeOrSelf(ix, resolved, s.Container) && len(s.ParamTypes) == argCount {
					matchedSym = s
					break
				}
			}
			if matchedSym == nil {
				continue
			}

			candidates := reachableMethodsByName(ix, resolved, target.Name)
			others := 0
			for _, c := range candidates {
				if c.ID == matchedSym.ID {
					continue
				}
				if len(c.ParamTypes) == argCount {
					others++
				}
			}
			if others > 0 {
				conflicts = append(conflicts, Conflict{
					Kind: ConflictAmbiguousCallSite, File: path, Span: site.call.Span,
					Message: "more than one overload of " + target.Name + " in " + resolved + "'s hierarchy could accept this call",
				})
				continue
			}

			if rt, found := returnTypeConflict(site, target, plan); found {
				rt.File = path
				conflicts = append(conflicts, *rt)
				continue
			}

			if plan.NewName != nil && *plan.NewName != target.Name {
				edits = append(edits, TextEdit{File: path, Span: site.nameNode.Span, NewText: *plan.NewName})
			}
			if plan.Parameters != nil && site.args != nil {
				edits = append(edits, TextEdit{
					File: path, Span: site.args.Span,
					NewText: renderArguments(src, site.args, plan),
				})
			}
		}
	}
	return edits, conflicts
}

func insideAnyDeclHeader(callSpan syntax.Span, decls []syntax.Span) bool {
	for _, d := range decls {
		if callSpan.Start.Offset >= d.Start.Offset && callSpan.End.Offset <= d.End.Offset {
			return true
		}
	}
	return false
}

// returnTypeConflict implements spec §4.5 step 3's "declaration-style
// assignment T x = call(...)" check: best-effort, accepting equality or a
// declared type of Object.
func returnTypeConflict(site callSite, target *index.Symbol, plan Plan) (*Conflict, bool) {
	if plan.NewReturnType == nil || site.declaredLocalType == "" {
		return nil, false
	}
	newReturn := eraseTypeText(*plan.NewReturnType)
	if newReturn == eraseTypeText(target.ReturnType) {
		return nil, false
	}
	if site.declaredLocalType == newReturn || site.declaredLocalType == "Object" {
		return nil, false
	}
	return &Conflict{
		Kind: ConflictReturnTypeIncompatible, File: "", Span: site.call.Span,
		Message: "new return type " + newReturn + " is not assignable to the declared local type " + site.declaredLocalType,
	}, true
}

// renderArguments rewrites a Call's ArgumentList to match plan.Parameters:
// ExistingParam copies the original argument expression verbatim,
// AddParam splices in its DefaultValue.
func renderArguments(src []byte, args *syntax.Node, plan Plan) string {
	var pieces []string
	for _, op := range plan.Parameters {
		switch o := op.(type) {
		case ExistingParam:
			if o.OldIndex >= 0 && o.OldIndex < len(args.Children) {
				pieces = append(pieces, args.Children[o.OldIndex].SourceText(src))
			}
		case AddParam:
			if o.DefaultValue != nil {
				pieces = append(pieces, *o.DefaultValue)
			}
		}
	}
	return "(" + strings.Join(pieces, ", ") + ")"
}
