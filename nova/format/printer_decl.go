package format

import (
	"strings"

	"github.com/nova-ide/nova/nova/syntax"
)

// Declaration printing, grounded on the teacher's java_pretty_decl.go:
// modifiers/annotations before a declaration keyword, comma-joined clauses,
// and a brace-delimited body indented one level in.

func (p *printer) printModifiers(mods *syntax.Node) {
	if mods == nil {
		p.writeIndent()
		return
	}
	var keywords []string
	for _, c := range mods.Children {
		if c.Kind == syntax.KindAnnotation {
			p.writeIndent()
			p.printAnnotation(c)
			p.newline()
			continue
		}
		keywords = append(keywords, c.TokenLiteral())
	}
	p.writeIndent()
	if len(keywords) > 0 {
		p.write(strings.Join(keywords, " "))
		p.write(" ")
	}
}

func (p *printer) printAnnotation(n *syntax.Node) {
	p.write("@")
	for _, c := range n.Children {
		if c.Kind == syntax.KindIdentifier || c.Kind == syntax.KindQualifiedName {
			p.write(qualifiedNameText(c))
			break
		}
	}
	if elem := n.FirstChildOfKind(syntax.KindAnnotationElement); elem != nil {
		p.write("(")
		p.printAnnotationElement(elem)
		p.write(")")
	}
}

func (p *printer) printAnnotationElement(n *syntax.Node) {
	pairs := false
	for _, c := range n.Children {
		if c.Kind == syntax.KindAnnotationElement {
			pairs = true
			break
		}
	}
	if !pairs {
		if len(n.Children) > 0 {
			p.writeAnnotationValue(n.Children[0])
		}
		return
	}
	for i, pair := range n.Children {
		if i > 0 {
			p.write(", ")
		}
		if name := pair.FirstChildOfKind(syntax.KindIdentifier); name != nil {
			p.write(name.TokenLiteral())
			p.write(" = ")
		}
		for _, vc := range pair.Children {
			if vc.Kind != syntax.KindIdentifier {
				p.writeAnnotationValue(vc)
			}
		}
	}
}

func (p *printer) writeAnnotationValue(n *syntax.Node) {
	switch n.Kind {
	case syntax.KindAnnotation:
		p.printAnnotation(n)
	case syntax.KindArrayInit:
		p.write("{")
		for i, c := range n.Children {
			if i > 0 {
				p.write(", ")
			}
			p.writeAnnotationValue(c)
		}
		p.write("}")
	default:
		p.write(p.exprText(n))
	}
}

func typeDeclKeyword(k syntax.NodeKind) string {
	switch k {
	case syntax.KindClassDecl:
		return "class"
	case syntax.KindInterfaceDecl:
		return "interface"
	case syntax.KindEnumDecl:
		return "enum"
	case syntax.KindRecordDecl:
		return "record"
	case syntax.KindAnnotationDecl:
		return "@interface"
	}
	return ""
}

func (p *printer) printTypeDecl(n *syntax.Node) {
	p.printModifiers(n.FirstChildOfKind(syntax.KindModifiers))
	p.write(typeDeclKeyword(n.Kind))
	p.write(" ")
	if name := n.FirstChildOfKind(syntax.KindIdentifier); name != nil {
		p.write(name.TokenLiteral())
	}
	if tp := n.FirstChildOfKind(syntax.KindTypeParameters); tp != nil {
		p.printTypeParameters(tp)
	}
	if n.Kind == syntax.KindRecordDecl {
		p.printParameters(n.FirstChildOfKind(syntax.KindParameters))
	}
	if ext := n.FirstChildOfKind(syntax.KindExtendsClause); ext != nil {
		p.write(" extends ")
		p.printTypeListChildren(ext)
	}
	if impl := n.FirstChildOfKind(syntax.KindImplementsClause); impl != nil {
		p.write(" implements ")
		p.printTypeListChildren(impl)
	}
	if perm := n.FirstChildOfKind(syntax.KindPermitsClause); perm != nil {
		p.write(" permits ")
		p.printTypeListChildren(perm)
	}
	p.write(" ")
	if n.Kind == syntax.KindEnumDecl {
		p.printEnumBody(n)
		return
	}
	if body := n.FirstChildOfKind(syntax.KindBlock); body != nil {
		p.printBlock(body)
	} else {
		p.write("{}")
	}
}

func (p *printer) printTypeListChildren(n *syntax.Node) {
	for i, c := range n.Children {
		if i > 0 {
			p.write(", ")
		}
		p.write(p.typeText(c))
	}
}

func (p *printer) printEnumBody(n *syntax.Node) {
	var constants, members []*syntax.Node
	for _, c := range n.Children {
		switch c.Kind {
		case syntax.KindModifiers, syntax.KindIdentifier, syntax.KindImplementsClause, syntax.KindTypeParameters:
			continue
		case syntax.KindEnumConstant:
			constants = append(constants, c)
		default:
			members = append(members, c)
		}
	}
	if len(constants) == 0 && len(members) == 0 {
		p.write("{}")
		return
	}
	p.write("{")
	p.newline()
	p.indent++
	for i, c := range constants {
		p.beforeNode(c, i > 0)
		p.printEnumConstant(c)
		if i < len(constants)-1 {
			p.write(",")
		} else {
			p.write(";")
		}
		p.newline()
	}
	for _, c := range members {
		p.beforeNode(c, true)
		p.printNode(c)
		p.newline()
	}
	p.indent--
	p.writeIndent()
	p.write("}")
}

func (p *printer) printEnumConstant(n *syntax.Node) {
	p.writeIndent()
	for _, c := range n.Children {
		if c.Kind == syntax.KindAnnotation {
			p.printAnnotation(c)
			p.write(" ")
		}
	}
	if name := n.FirstChildOfKind(syntax.KindIdentifier); name != nil {
		p.write(name.TokenLiteral())
	}
	if args := n.FirstChildOfKind(syntax.KindArgumentList); args != nil {
		p.printArgumentList(args)
	}
	if body := n.FirstChildOfKind(syntax.KindBlock); body != nil {
		p.write(" ")
		p.printBlock(body)
	}
}

func (p *printer) printFieldDecl(n *syntax.Node) {
	p.printModifiers(n.FirstChildOfKind(syntax.KindModifiers))
	if typ := typeChild(n); typ != nil {
		p.write(p.typeText(typ))
		p.write(" ")
	}
	first := true
	for _, c := range n.Children {
		if c.Kind != syntax.KindParameter {
			continue
		}
		if !first {
			p.write(", ")
		}
		first = false
		p.printVarDeclarator(c)
	}
	p.write(";")
}

func (p *printer) printVarDeclarator(d *syntax.Node) {
	if name := d.FirstChildOfKind(syntax.KindIdentifier); name != nil {
		p.write(name.TokenLiteral())
	}
	for _, c := range d.Children {
		if c.Kind == syntax.KindIdentifier {
			continue
		}
		p.write(" = ")
		if c.Kind == syntax.KindArrayInit {
			p.writeAnnotationValue(c) // "{a, b, c}" rendering, same shape as an array init
		} else {
			p.write(p.exprText(c))
		}
	}
}

func (p *printer) printMethodDecl(n *syntax.Node) {
	mods := n.FirstChildOfKind(syntax.KindModifiers)
	p.printModifiers(mods)
	if tp := n.FirstChildOfKind(syntax.KindTypeParameters); tp != nil {
		p.printTypeParameters(tp)
		p.write(" ")
	}
	retType := typeChild(n)
	if retType != nil {
		p.write(p.typeText(retType))
		p.write(" ")
	}
	if name := n.FirstChildOfKind(syntax.KindIdentifier); name != nil {
		p.write(name.TokenLiteral())
	}
	params := n.FirstChildOfKind(syntax.KindParameters)
	p.printParameters(params)
	if throws := n.FirstChildOfKind(syntax.KindThrowsList); throws != nil {
		p.write(" ")
		p.printThrowsList(throws)
	}
	if body := n.FirstChildOfKind(syntax.KindBlock); body != nil {
		p.write(" ")
		p.printBlock(body)
		return
	}
	for _, c := range n.Children {
		if c == mods || c == retType || c == params {
			continue
		}
		if c.Kind == syntax.KindIdentifier || c.Kind == syntax.KindThrowsList || c.Kind == syntax.KindTypeParameters {
			continue
		}
		p.write(" default ")
		p.write(p.exprText(c))
		break
	}
	p.write(";")
}

func (p *printer) printConstructorDecl(n *syntax.Node) {
	p.printModifiers(n.FirstChildOfKind(syntax.KindModifiers))
	if name := n.FirstChildOfKind(syntax.KindIdentifier); name != nil {
		p.write(name.TokenLiteral())
	}
	p.printParameters(n.FirstChildOfKind(syntax.KindParameters))
	if throws := n.FirstChildOfKind(syntax.KindThrowsList); throws != nil {
		p.write(" ")
		p.printThrowsList(throws)
	}
	p.write(" ")
	if body := n.FirstChildOfKind(syntax.KindBlock); body != nil {
		p.printBlock(body)
	} else {
		p.write("{}")
	}
}

func (p *printer) printInitializerBlock(n *syntax.Node) {
	isStatic := false
	if mods := n.FirstChildOfKind(syntax.KindModifiers); mods != nil {
		for _, c := range mods.Children {
			if c.TokenLiteral() == "static" {
				isStatic = true
			}
		}
	}
	p.writeIndent()
	if isStatic {
		p.write("static ")
	}
	if body := n.FirstChildOfKind(syntax.KindBlock); body != nil {
		p.printBlock(body)
	} else {
		p.write("{}")
	}
}

func (p *printer) printBlock(n *syntax.Node) {
	if len(n.Children) == 0 {
		p.writeIndent()
		p.write("{}")
		return
	}
	p.writeIndent()
	p.write("{")
	p.newline()
	p.indent++
	for i, c := range n.Children {
		p.beforeNode(c, i > 0)
		p.printNode(c)
		p.newline()
	}
	p.indent--
	p.writeIndent()
	p.write("}")
}

func (p *printer) printTypeParameters(n *syntax.Node) {
	p.write("<")
	for i, c := range n.Children {
		if i > 0 {
			p.write(", ")
		}
		p.printTypeParameter(c)
	}
	p.write(">")
}

func (p *printer) printTypeParameter(n *syntax.Node) {
	for _, c := range n.Children {
		if c.Kind == syntax.KindAnnotation {
			p.printAnnotation(c)
			p.write(" ")
		}
	}
	if name := n.FirstChildOfKind(syntax.KindIdentifier); name != nil {
		p.write(name.TokenLiteral())
	}
	first := true
	for _, c := range n.Children {
		if !isTypeKind(c.Kind) {
			continue
		}
		if first {
			p.write(" extends ")
		} else {
			p.write(" & ")
		}
		first = false
		p.write(p.typeText(c))
	}
}

func (p *printer) printParameters(n *syntax.Node) {
	p.write("(")
	if n == nil || len(n.Children) == 0 {
		p.write(")")
		return
	}
	width := p.measure(func(mp *printer) { mp.printParamList(n) })
	if !p.wouldExceed(width + 1) {
		p.printParamList(n)
		p.write(")")
		return
	}
	p.newline()
	p.indent++
	for i, c := range n.Children {
		p.writeIndent()
		p.printParameter(c)
		if i < len(n.Children)-1 {
			p.write(",")
		}
		p.newline()
	}
	p.indent--
	p.writeIndent()
	p.write(")")
}

func (p *printer) printParamList(n *syntax.Node) {
	for i, c := range n.Children {
		if i > 0 {
			p.write(", ")
		}
		p.printParameter(c)
	}
}

func (p *printer) printParameter(n *syntax.Node) {
	if n.Kind == syntax.KindReceiverParameter {
		if t := typeChild(n); t != nil {
			p.write(p.typeText(t))
		}
		p.write(".this")
		return
	}
	for _, c := range n.Children {
		switch {
		case c.Kind == syntax.KindAnnotation:
			p.printAnnotation(c)
			p.write(" ")
		case c.Kind == syntax.KindIdentifier && c.TokenLiteral() == "final":
			p.write("final ")
		}
	}
	if t := typeChild(n); t != nil {
		p.write(p.typeText(t))
		p.write(" ")
	}
	if name := lastIdentifierChild(n); name != nil {
		p.write(name.TokenLiteral())
	}
}

func (p *printer) printThrowsList(n *syntax.Node) {
	p.write("throws ")
	for i, c := range n.Children {
		if i > 0 {
			p.write(", ")
		}
		p.write(p.typeText(c))
	}
}

func isTypeKind(k syntax.NodeKind) bool {
	switch k {
	case syntax.KindType, syntax.KindParameterizedType, syntax.KindArrayType, syntax.KindWildcard:
		return true
	}
	return false
}

func typeChild(n *syntax.Node) *syntax.Node {
	for _, c := range n.Children {
		if isTypeKind(c.Kind) {
			return c
		}
	}
	return nil
}

func lastIdentifierChild(n *syntax.Node) *syntax.Node {
	var last *syntax.Node
	for _, c := range n.Children {
		if c.Kind == syntax.KindIdentifier {
			last = c
		}
	}
	return last
}
