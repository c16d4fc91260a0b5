package refactor

import (
	"strings"

	"github.com/nova-ide/nova/nova/index"
	"github.com/nova-ide/nova/nova/syntax"
)

// validateParameterOps checks spec §4.5 step 3's first two conflicts
// against the target's own original parameter list.
func validateParameterOps(target *index.Symbol, plan Plan) []Conflict {
	var conflicts []Conflict
	for _, op := range plan.Parameters {
		switch o := op.(type) {
		case ExistingParam:
			if o.OldIndex < 0 || o.OldIndex >= len(target.ParamTypes) {
				conflicts = append(conflicts, Conflict{
					Kind: ConflictInvalidParameterIndex, File: target.File, Span: target.DeclRange,
					Message: "old_index refers to a parameter the target method doesn't have",
				})
			}
		case AddParam:
			if o.DefaultValue == nil {
				conflicts = append(conflicts, Conflict{
					Kind: ConflictAddedParameterMissingDefault, File: target.File, Span: target.DeclRange,
					Message: "added parameter " + o.Name + " has no default_value to rewrite call sites with",
				})
			}
		}
	}
	return conflicts
}

// validateRemovedParamUsage implements spec §4.5 step 3's "removed
// parameter still referenced in any affected method body" check: a
// best-effort lexical identifier scan inside each affected declaration's
// body, the way the teacher's at_point.go resolves identifiers lexically
// rather than via full binding resolution.
func validateRemovedParamUsage(ix *index.Index, target *index.Symbol, affected []*index.Symbol, plan Plan) []Conflict {
	if plan.Parameters == nil {
		return nil
	}
	kept := keptOldIndexes(plan)
	var removedNames []string
	for i := range target.ParamTypes {
		if !kept[i] {
			h := parseHeader(ix, target)
			if h != nil && i < len(h.paramList) {
				if _, name := paramTypeAndName(h.paramList[i]); name != nil {
					removedNames = append(removedNames, name.TokenLiteral())
				}
			}
		}
	}
	if len(removedNames) == 0 {
		return nil
	}

	var conflicts []Conflict
	for _, sym := range affected {
		h := parseHeader(ix, sym)
		if h == nil {
			continue
		}
		body := sym.Node.FirstChildOfKind(syntax.KindBlock)
		if body == nil {
			continue
		}
		for _, name := range removedNames {
			if span, found := findIdentifierUse(body, name); found {
				conflicts = append(conflicts, Conflict{
					Kind: ConflictRemovedParameterReferenced, File: sym.File, Span: span,
					Message: "removed parameter " + name + " is still referenced in " + sym.QualifiedName() + "'s body",
				})
			}
		}
	}
	return conflicts
}

// findIdentifierUse returns the span of the first occurrence of name as a
// value-position identifier (not a FieldAccess member name) inside n.
func findIdentifierUse(n *syntax.Node, name string) (syntax.Span, bool) {
	var found syntax.Span
	var ok bool
	var walk func(n, parent *syntax.Node)
	walk = func(n, parent *syntax.Node) {
		if ok || n == nil {
			return
		}
		if n.Kind == syntax.KindIdentifier && n.TokenLiteral() == name {
			if !(parent != nil && parent.Kind == syntax.KindFieldAccess && len(parent.Children) > 0 && parent.Children[len(parent.Children)-1] == n) {
				found, ok = n.Span, true
				return
			}
		}
		for _, c := range n.Children {
			walk(c, n)
		}
	}
	walk(n, nil)
	return found, ok
}

// validateSignatureCollision checks spec §4.5 step 3's "new signature
// collides with an existing method in the same class that is not itself
// affected".
func validateSignatureCollision(ix *index.Index, affected []*index.Symbol, plan Plan) []Conflict {
	affectedIDs := map[index.SymbolID]bool{}
	for _, s := range affected {
		affectedIDs[s.ID] = true
	}
	var conflicts []Conflict
	for _, sym := range affected {
		newName := sym.Name
		if plan.NewName != nil {
			newName = *plan.NewName
		}
		newParams := newErasedParamTypes(ix, sym, plan)
		for _, candidate := range ix.FindMethodsByName(sym.Container, newName) {
			if affectedIDs[candidate.ID] {
				continue
			}
			if sameErasedTypes(candidate.ParamTypes, newParams) {
				conflicts = append(conflicts, Conflict{
					Kind: ConflictSignatureCollision, File: sym.File, Span: sym.DeclRange,
					Message: "new signature " + newName + "(" + strings.Join(newParams, ", ") + ") collides with an existing, unaffected method in " + sym.Container,
				})
			}
		}
	}
	return conflicts
}

// newErasedParamTypes computes an affected declaration's new erased
// parameter-type list from the plan, for collision detection. ExistingParam
// reuses the declaration's own original erased type unless NewType
// overrides it; AddParam contributes a lightly erased form of its literal
// type text.
func newErasedParamTypes(ix *index.Index, sym *index.Symbol, plan Plan) []string {
	if plan.Parameters == nil {
		return sym.ParamTypes
	}
	var out []string
	for _, op := range plan.Parameters {
		switch o := op.(type) {
		case ExistingParam:
			if o.OldIndex >= 0 && o.OldIndex < len(sym.ParamTypes) {
				if o.NewType != nil {
					out = append(out, eraseTypeText(*o.NewType))
				} else {
					out = append(out, sym.ParamTypes[o.OldIndex])
				}
			}
		case AddParam:
			out = append(out, eraseTypeText(o.Type))
		}
	}
	return out
}

func sameErasedTypes(a, b []string) bool {
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

// eraseTypeText strips generic type arguments and whitespace from a
// literal type string ("List<String>" -> "List"), mirroring
// nova/index.eraseType's normalization closely enough for collision and
// overload-count comparisons against source text the index never parsed.
func eraseTypeText(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '<'); i >= 0 {
		if j := strings.LastIndexByte(s, '>'); j > i {
			s = s[:i] + s[j+1:]
		}
	}
	return strings.Join(strings.Fields(s), "")
}
