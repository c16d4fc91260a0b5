package refactor

import (
	"github.com/nova-ide/nova/nova/index"
	"github.com/nova-ide/nova/nova/syntax"
)

// rewriteAnnotationValueShorthand implements spec §4.5 step 5: renaming an
// annotation type's `value` element also rewrites shorthand usages
// `@Anno(expr)` into `@Anno(newName = expr)` at usage sites whose resolved
// annotation type matches the target's declaring type.
func rewriteAnnotationValueShorthand(ix *index.Index, target *index.Symbol, plan Plan) []TextEdit {
	if plan.NewName == nil || target.Name != "value" || !ix.IsAnnotationType(target.Container) {
		return nil
	}
	var edits []TextEdit
	for _, path := range ix.FilePaths() {
		tree, ok := ix.Tree(path)
		if !ok {
			continue
		}
		text, _ := ix.FileText(path)
		src := []byte(text)
		for _, ann := range findAnnotations(tree) {
			elem := findShorthandElement(ann)
			if elem == nil {
				continue
			}
			qname := ann.Children[0].SourceText(src)
			resolved, ok := resolveTypeName(ix, qname)
			if !ok || resolved != target.Container {
				continue
			}
			expr := elem.Children[0]
			edits = append(edits, TextEdit{
				File:    path,
				Span:    syntax.Span{Start: expr.Span.Start, End: expr.Span.Start},
				NewText: *plan.NewName + " = ",
			})
		}
	}
	return edits
}

// findAnnotations collects every Annotation usage node (not the `@interface`
// declaration itself, which is a separate KindAnnotationDecl node) in tree.
func findAnnotations(n *syntax.Node) []*syntax.Node {
	var out []*syntax.Node
	var walk func(n *syntax.Node)
	walk = func(n *syntax.Node) {
		if n == nil {
			return
		}
		if n.Kind == syntax.KindAnnotation {
			out = append(out, n)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(n)
	return out
}

// findShorthandElement returns ann's single implicit-`value` element node
// (`@Anno(expr)`), or nil when ann has no element at all or uses the
// named-pairs form (`@Anno(a = 1, ...)`, whose outer AnnotationElement wraps
// one or more AnnotationElement pair children instead of a bare expression).
func findShorthandElement(ann *syntax.Node) *syntax.Node {
	if len(ann.Children) < 2 {
		return nil
	}
	elem := ann.Children[1]
	if elem.Kind != syntax.KindAnnotationElement || len(elem.Children) != 1 {
		return nil
	}
	if elem.Children[0].Kind == syntax.KindAnnotationElement {
		return nil
	}
	return elem
}
