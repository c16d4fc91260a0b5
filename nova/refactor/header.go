package refactor

import (
	"strings"

	"github.com/nova-ide/nova/nova/index"
	"github.com/nova-ide/nova/nova/syntax"
)

// header is a method/constructor declaration's parsed-from-source parts,
// spec §4.5 step 1 ("parse its header ... from source").
type header struct {
	decl       *syntax.Node
	src        []byte
	nameNode   *syntax.Node
	retType    *syntax.Node // nil for constructors
	params     *syntax.Node // Parameters node, span includes the parens
	paramList  []*syntax.Node
	throws     *syntax.Node // nil if no throws clause
	isCtor     bool
}

func parseHeader(ix *index.Index, sym *index.Symbol) *header {
	text, ok := ix.FileText(sym.File)
	if !ok || sym.Node == nil {
		return nil
	}
	h := &header{decl: sym.Node, src: []byte(text), isCtor: sym.Kind == index.KindConstructor}
	h.nameNode = sym.Node.FirstChildOfKind(syntax.KindIdentifier)
	h.params = sym.Node.FirstChildOfKind(syntax.KindParameters)
	h.throws = sym.Node.FirstChildOfKind(syntax.KindThrowsList)
	if !h.isCtor {
		for _, c := range sym.Node.Children {
			if c == h.nameNode {
				break
			}
			if isTypeLikeKind(c.Kind) {
				h.retType = c
			}
		}
	}
	if h.params != nil {
		for _, p := range h.params.Children {
			if p.Kind == syntax.KindParameter {
				h.paramList = append(h.paramList, p)
			}
		}
	}
	return h
}

func isTypeLikeKind(k syntax.NodeKind) bool {
	switch k {
	case syntax.KindType, syntax.KindParameterizedType, syntax.KindArrayType, syntax.KindWildcard:
		return true
	}
	return false
}

// paramTypeAndName extracts a Parameter node's type and name children — the
// type is its first type-like child, the name its trailing Identifier
// (absent on a ReceiverParameter, which this plan never touches).
func paramTypeAndName(p *syntax.Node) (typ, name *syntax.Node) {
	for _, c := range p.Children {
		if isTypeLikeKind(c.Kind) {
			typ = c
		}
	}
	if n := len(p.Children); n > 0 && p.Children[n-1].Kind == syntax.KindIdentifier {
		name = p.Children[n-1]
	}
	return
}

// rewriteHeader produces the edits that turn sym's declaration into the
// shape plan describes: renamed, reparameterized, a new return type, and/or
// a new throws clause. Every affected declaration gets the same rename and
// return-type/throws text verbatim; only the parameter list is rendered
// per-declaration since OldIndex refers to that declaration's own original
// parameters.
func rewriteHeader(ix *index.Index, sym *index.Symbol, plan Plan) ([]TextEdit, []Conflict) {
	h := parseHeader(ix, sym)
	if h == nil {
		return nil, []Conflict{{
			Kind:    ConflictParseError,
			File:    sym.File,
			Span:    sym.DeclRange,
			Message: "could not parse declaration header for " + sym.Name,
		}}
	}
	var edits []TextEdit

	if plan.NewName != nil && h.nameNode != nil && h.nameNode.TokenLiteral() != *plan.NewName {
		edits = append(edits, TextEdit{File: sym.File, Span: h.nameNode.Span, NewText: *plan.NewName})
	}

	if plan.Parameters != nil && h.params != nil {
		text, conflicts := renderParameterList(h, plan, sym)
		if len(conflicts) > 0 {
			return nil, conflicts
		}
		edits = append(edits, TextEdit{File: sym.File, Span: h.params.Span, NewText: text})
	}

	if plan.NewReturnType != nil && h.retType != nil {
		edits = append(edits, TextEdit{File: sym.File, Span: h.retType.Span, NewText: *plan.NewReturnType})
	}

	if plan.NewThrows != nil {
		newText := ""
		if len(plan.NewThrows) > 0 {
			newText = "throws " + strings.Join(plan.NewThrows, ", ") + " "
		}
		if h.throws != nil {
			edits = append(edits, TextEdit{File: sym.File, Span: h.throws.Span, NewText: strings.TrimSuffix(newText, " ")})
		} else if newText != "" && h.params != nil {
			at := h.params.Span.End
			edits = append(edits, TextEdit{
				File:    sym.File,
				Span:    syntax.Span{Start: at, End: at},
				NewText: " " + strings.TrimSuffix(newText, " "),
			})
		}
	}

	return edits, nil
}

// renderParameterList applies plan.Parameters to sym's own original
// parameter list (captured in h.paramList) and renders "(a, b, c)" text.
func renderParameterList(h *header, plan Plan, sym *index.Symbol) (string, []Conflict) {
	var pieces []string
	var conflicts []Conflict
	for _, op := range plan.Parameters {
		switch o := op.(type) {
		case ExistingParam:
			if o.OldIndex < 0 || o.OldIndex >= len(h.paramList) {
				conflicts = append(conflicts, Conflict{
					Kind: ConflictInvalidParameterIndex, File: sym.File, Span: sym.DeclRange,
					Message: "old_index out of range for this declaration's parameter list",
				})
				continue
			}
			p := h.paramList[o.OldIndex]
			typ, name := paramTypeAndName(p)
			typeText := ""
			if typ != nil {
				typeText = typ.SourceText(h.src)
			}
			if o.NewType != nil {
				typeText = *o.NewType
			}
			nameText := ""
			if name != nil {
				nameText = name.TokenLiteral()
			}
			if o.NewName != nil {
				nameText = *o.NewName
			}
			pieces = append(pieces, typeText+" "+nameText)
		case AddParam:
			pieces = append(pieces, o.Type+" "+o.Name)
		}
	}
	return "(" + strings.Join(pieces, ", ") + ")", conflicts
}
