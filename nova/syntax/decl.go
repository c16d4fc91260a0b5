package syntax

// parseTypeDecl parses a top-level or member type declaration: class,
// interface, enum, record, or annotation, each preceded by modifiers.
func (p *Parser) parseTypeDecl() *Node {
	mods := p.parseModifiers()
	switch p.peek().Kind {
	case TokenClass:
		return p.parseClassDecl(mods)
	case TokenInterface:
		return p.parseInterfaceDecl(mods)
	case TokenAt:
		if p.peekN(1).Kind == TokenInterface {
			return p.parseAnnotationDecl(mods)
		}
	case TokenEnum:
		return p.parseEnumDecl(mods)
	case TokenIdent:
		if p.peek().Literal == "record" && p.isRecordHeaderAhead() {
			return p.parseRecordDecl(mods)
		}
	}
	node := p.startNode(KindError)
	node.AddChild(mods)
	node.AddChild(p.errorNode("expected a type declaration", declRecovery, TokenClass, TokenInterface, TokenEnum))
	return p.finishNode(node)
}

// isRecordHeaderAhead distinguishes the contextual `record` keyword from an
// identifier literally named "record" by checking whether an identifier and
// then a '(' follow.
func (p *Parser) isRecordHeaderAhead() bool {
	return p.isIdentLikeAt(1) && p.peekN(2).Kind == TokenLParen
}

// --- modifiers & annotations ----------------------------------------------

var modifierKinds = map[TokenKind]bool{
	TokenPublic: true, TokenPrivate: true, TokenProtected: true, TokenStatic: true,
	TokenFinal: true, TokenAbstract: true, TokenSynchronized: true, TokenNative: true,
	TokenTransient: true, TokenVolatile: true, TokenStrictfp: true, TokenDefault: true,
}

func (p *Parser) parseModifiers() *Node {
	node := p.startNode(KindModifiers)
	for {
		if p.check(TokenAt) && p.peekN(1).Kind != TokenInterface {
			node.AddChild(p.parseAnnotation())
			continue
		}
		if modifierKinds[p.peek().Kind] {
			tok := p.advance()
			node.AddChild(p.leaf(KindIdentifier, tok))
			continue
		}
		if p.peek().Kind == TokenIdent && p.peek().Literal == "sealed" && p.startsTypeDeclAfterModifierAt(1) {
			tok := p.advance()
			node.AddChild(p.leaf(KindIdentifier, tok))
			continue
		}
		if p.peek().Kind == TokenIdent && p.peek().Literal == "non-sealed" {
			tok := p.advance()
			node.AddChild(p.leaf(KindIdentifier, tok))
			continue
		}
		break
	}
	return p.finishNode(node)
}

// startsTypeDeclAfterModifierAt is a conservative heuristic: true if the
// token n positions ahead is a class or interface keyword or the '@' of an
// annotation type. Tokens in between are not inspected, and enum or record
// headers do not count. Used only to keep "sealed" from being misread as a
// type name in ordinary code.
func (p *Parser) startsTypeDeclAfterModifierAt(n int) bool {
	k := p.peekN(n).Kind
	return k == TokenClass || k == TokenInterface || k == TokenAt
}

func (p *Parser) parseAnnotation() *Node {
	node := p.startNode(KindAnnotation)
	p.expect(TokenAt)
	node.AddChild(p.parseQualifiedName())
	if p.check(TokenLParen) {
		p.advance()
		if !p.check(TokenRParen) {
			node.AddChild(p.parseAnnotationElements())
		}
		p.expect(TokenRParen)
	}
	return p.finishNode(node)
}

// parseAnnotationElements handles both `@Foo(value)` (single implicit
// "value" element) and `@Foo(a = 1, b = 2)` (named elements).
func (p *Parser) parseAnnotationElements() *Node {
	save := p.mark()
	if p.isIdentLikeAt(0) && p.peekN(1).Kind == TokenAssign {
		p.rewind(save)
		return p.parseAnnotationPairs()
	}
	p.rewind(save)
	node := p.startNode(KindAnnotationElement)
	node.AddChild(p.parseAnnotationValue())
	return p.finishNode(node)
}

func (p *Parser) parseAnnotationPairs() *Node {
	node := p.startNode(KindAnnotationElement)
	progress := p.mustProgress()
	for {
		pair := p.startNode(KindAnnotationElement)
		if ident := p.expectIdentifier(); ident != nil {
			pair.AddChild(p.leaf(KindIdentifier, *ident))
		}
		p.expect(TokenAssign)
		pair.AddChild(p.parseAnnotationValue())
		node.AddChild(p.finishNode(pair))
		if !p.check(TokenComma) {
			break
		}
		p.advance()
		if !progress() {
			break
		}
		progress = p.mustProgress()
	}
	return p.finishNode(node)
}

func (p *Parser) parseAnnotationValue() *Node {
	if p.check(TokenAt) {
		return p.parseAnnotation()
	}
	if p.check(TokenLBrace) {
		node := p.startNode(KindArrayInit)
		p.advance()
		progress := p.mustProgress()
		for !p.check(TokenRBrace) && !p.check(TokenEOF) {
			node.AddChild(p.parseAnnotationValue())
			if p.check(TokenComma) {
				p.advance()
			}
			if !progress() {
				break
			}
			progress = p.mustProgress()
		}
		p.expect(TokenRBrace)
		return p.finishNode(node)
	}
	return p.parseExpression()
}

// --- class / interface / enum / record / annotation -----------------------

func (p *Parser) parseClassDecl(mods *Node) *Node {
	node := p.startNode(KindClassDecl)
	node.AddChild(mods)
	p.expect(TokenClass)
	if ident := p.expectIdentifier(); ident != nil {
		node.AddChild(p.leaf(KindIdentifier, *ident))
	}
	if p.check(TokenLT) {
		node.AddChild(p.parseTypeParameters())
	}
	if p.check(TokenExtends) {
		node.AddChild(p.parseExtendsClause(false))
	}
	if p.check(TokenImplements) {
		node.AddChild(p.parseImplementsClause())
	}
	if p.isPermitsAhead() {
		node.AddChild(p.parsePermitsClause())
	}
	node.AddChild(p.parseClassBody())
	return p.finishNode(node)
}

func (p *Parser) isPermitsAhead() bool {
	return p.peek().Kind == TokenIdent && p.peek().Literal == "permits"
}

func (p *Parser) parseInterfaceDecl(mods *Node) *Node {
	node := p.startNode(KindInterfaceDecl)
	node.AddChild(mods)
	p.expect(TokenInterface)
	if ident := p.expectIdentifier(); ident != nil {
		node.AddChild(p.leaf(KindIdentifier, *ident))
	}
	if p.check(TokenLT) {
		node.AddChild(p.parseTypeParameters())
	}
	if p.check(TokenExtends) {
		node.AddChild(p.parseExtendsClause(true))
	}
	if p.isPermitsAhead() {
		node.AddChild(p.parsePermitsClause())
	}
	node.AddChild(p.parseClassBody())
	return p.finishNode(node)
}

func (p *Parser) parseAnnotationDecl(mods *Node) *Node {
	node := p.startNode(KindAnnotationDecl)
	node.AddChild(mods)
	p.expect(TokenAt)
	p.expect(TokenInterface)
	if ident := p.expectIdentifier(); ident != nil {
		node.AddChild(p.leaf(KindIdentifier, *ident))
	}
	node.AddChild(p.parseClassBody())
	return p.finishNode(node)
}

func (p *Parser) parseEnumDecl(mods *Node) *Node {
	node := p.startNode(KindEnumDecl)
	node.AddChild(mods)
	p.expect(TokenEnum)
	if ident := p.expectIdentifier(); ident != nil {
		node.AddChild(p.leaf(KindIdentifier, *ident))
	}
	if p.check(TokenImplements) {
		node.AddChild(p.parseImplementsClause())
	}
	p.expect(TokenLBrace)
	for p.check(TokenAt) || p.isIdentLikeAt(0) {
		node.AddChild(p.parseEnumConstant())
		if p.check(TokenComma) {
			p.advance()
			continue
		}
		break
	}
	if p.check(TokenSemicolon) {
		p.advance()
		progress := p.mustProgress()
		for !p.check(TokenRBrace) && !p.check(TokenEOF) {
			node.AddChild(p.parseClassMember())
			if !progress() {
				break
			}
			progress = p.mustProgress()
		}
	}
	p.expect(TokenRBrace)
	return p.finishNode(node)
}

func (p *Parser) parseEnumConstant() *Node {
	node := p.startNode(KindEnumConstant)
	for p.check(TokenAt) {
		node.AddChild(p.parseAnnotation())
	}
	if ident := p.expectIdentifier(); ident != nil {
		node.AddChild(p.leaf(KindIdentifier, *ident))
	}
	if p.check(TokenLParen) {
		node.AddChild(p.parseArgumentList())
	}
	if p.check(TokenLBrace) {
		node.AddChild(p.parseClassBody())
	}
	return p.finishNode(node)
}

func (p *Parser) parseRecordDecl(mods *Node) *Node {
	node := p.startNode(KindRecordDecl)
	node.AddChild(mods)
	p.advance() // "record"
	if ident := p.expectIdentifier(); ident != nil {
		node.AddChild(p.leaf(KindIdentifier, *ident))
	}
	if p.check(TokenLT) {
		node.AddChild(p.parseTypeParameters())
	}
	node.AddChild(p.parseParameters())
	if p.check(TokenImplements) {
		node.AddChild(p.parseImplementsClause())
	}
	node.AddChild(p.parseClassBody())
	return p.finishNode(node)
}

func (p *Parser) parseExtendsClause(multiple bool) *Node {
	node := p.startNode(KindExtendsClause)
	p.expect(TokenExtends)
	node.AddChild(p.parseType())
	if multiple {
		for p.check(TokenComma) {
			p.advance()
			node.AddChild(p.parseType())
		}
	}
	return p.finishNode(node)
}

func (p *Parser) parseImplementsClause() *Node {
	node := p.startNode(KindImplementsClause)
	p.expect(TokenImplements)
	node.AddChild(p.parseType())
	for p.check(TokenComma) {
		p.advance()
		node.AddChild(p.parseType())
	}
	return p.finishNode(node)
}

func (p *Parser) parsePermitsClause() *Node {
	node := p.startNode(KindPermitsClause)
	p.advance() // "permits"
	node.AddChild(p.parseType())
	for p.check(TokenComma) {
		p.advance()
		node.AddChild(p.parseType())
	}
	return p.finishNode(node)
}

// --- class body & members --------------------------------------------------

func (p *Parser) parseClassBody() *Node {
	node := p.startNode(KindBlock)
	if p.expect(TokenLBrace) == nil {
		node.AddChild(p.errorNode("expected '{'", declRecovery, TokenLBrace))
		return p.finishNode(node)
	}
	progress := p.mustProgress()
	for !p.check(TokenRBrace) && !p.check(TokenEOF) {
		if p.check(TokenSemicolon) {
			p.advance()
		} else {
			node.AddChild(p.parseClassMember())
		}
		if !progress() {
			break
		}
		progress = p.mustProgress()
	}
	p.expect(TokenRBrace)
	return p.finishNode(node)
}

func (p *Parser) parseClassMember() *Node {
	if p.check(TokenLBrace) {
		return p.parseInitializerBlock(false)
	}
	save := p.mark()
	mods := p.parseModifiers()
	if p.check(TokenLBrace) {
		isStatic := false
		for _, c := range mods.Children {
			if c.TokenLiteral() == "static" {
				isStatic = true
			}
		}
		block := p.parseInitializerBlock(isStatic)
		block.Children = append([]*Node{mods}, block.Children...)
		return block
	}
	switch p.peek().Kind {
	case TokenClass, TokenInterface, TokenEnum:
		p.rewind(save)
		return p.parseTypeDecl()
	case TokenAt:
		if p.peekN(1).Kind == TokenInterface {
			p.rewind(save)
			return p.parseTypeDecl()
		}
	case TokenIdent:
		if p.peek().Literal == "record" && p.isRecordHeaderAhead() {
			p.rewind(save)
			return p.parseTypeDecl()
		}
	}
	// constructor: identifier directly followed by '('
	if p.isIdentLikeAt(0) && p.peekN(1).Kind == TokenLParen {
		return p.parseConstructorDecl(mods)
	}
	if p.check(TokenLT) {
		return p.parseGenericMember(mods)
	}
	typ := p.parseType()
	if ident := p.expectIdentifier(); ident != nil {
		if p.check(TokenLParen) {
			return p.finishMethodDecl(mods, nil, typ, *ident)
		}
		return p.finishFieldDecl(mods, typ, *ident)
	}
	node := p.startNode(KindError)
	node.AddChild(mods)
	node.AddChild(typ)
	node.AddChild(p.errorNode("expected member name", declRecovery))
	return p.finishNode(node)
}

func (p *Parser) parseGenericMember(mods *Node) *Node {
	typeParams := p.parseTypeParameters()
	typ := p.parseType()
	ident := p.expectIdentifier()
	if ident == nil {
		node := p.startNode(KindError)
		node.AddChild(mods)
		node.AddChild(typeParams)
		node.AddChild(typ)
		node.AddChild(p.errorNode("expected member name", declRecovery))
		return p.finishNode(node)
	}
	return p.finishMethodDecl(mods, typeParams, typ, *ident)
}

func (p *Parser) finishMethodDecl(mods, typeParams, retType *Node, nameTok Token) *Node {
	node := p.startNode(KindMethodDecl)
	node.AddChild(mods)
	node.AddChild(typeParams)
	node.AddChild(retType)
	node.AddChild(p.leaf(KindIdentifier, nameTok))
	node.AddChild(p.parseParameters())
	for p.check(TokenLBracket) {
		p.advance()
		p.expect(TokenRBracket)
	}
	if p.check(TokenThrows) {
		node.AddChild(p.parseThrowsList())
	}
	if p.check(TokenLBrace) {
		node.AddChild(p.parseBlock())
	} else if p.peek().Kind == TokenIdent && p.peek().Literal == "default" {
		// handled via modifiers already; annotation default value form:
		// `Type name() default <value>;`
		p.advance()
		node.AddChild(p.parseAnnotationValue())
		p.expect(TokenSemicolon)
	} else {
		p.expect(TokenSemicolon)
	}
	return p.finishNode(node)
}

func (p *Parser) finishFieldDecl(mods, typ *Node, nameTok Token) *Node {
	node := p.startNode(KindFieldDecl)
	node.AddChild(mods)
	node.AddChild(typ)
	node.AddChild(p.parseVarDeclarator(nameTok))
	for p.check(TokenComma) {
		p.advance()
		ident := p.expectIdentifier()
		if ident == nil {
			break
		}
		node.AddChild(p.parseVarDeclarator(*ident))
	}
	p.expect(TokenSemicolon)
	return p.finishNode(node)
}

func (p *Parser) parseVarDeclarator(nameTok Token) *Node {
	node := p.startNode(KindParameter)
	node.AddChild(p.leaf(KindIdentifier, nameTok))
	for p.check(TokenLBracket) {
		p.advance()
		p.expect(TokenRBracket)
	}
	if p.check(TokenAssign) {
		p.advance()
		if p.check(TokenLBrace) {
			node.AddChild(p.parseArrayInit())
		} else {
			node.AddChild(p.parseExpression())
		}
	}
	return p.finishNode(node)
}

func (p *Parser) parseConstructorDecl(mods *Node) *Node {
	node := p.startNode(KindConstructorDecl)
	node.AddChild(mods)
	ident := p.advance()
	node.AddChild(p.leaf(KindIdentifier, ident))
	node.AddChild(p.parseParameters())
	if p.check(TokenThrows) {
		node.AddChild(p.parseThrowsList())
	}
	node.AddChild(p.parseBlock())
	return p.finishNode(node)
}

func (p *Parser) parseInitializerBlock(isStatic bool) *Node {
	node := p.startNode(KindInitializerBlock)
	_ = isStatic
	node.AddChild(p.parseBlock())
	return p.finishNode(node)
}

func (p *Parser) parseThrowsList() *Node {
	node := p.startNode(KindThrowsList)
	p.expect(TokenThrows)
	node.AddChild(p.parseType())
	for p.check(TokenComma) {
		p.advance()
		node.AddChild(p.parseType())
	}
	return p.finishNode(node)
}

// --- type parameters / parameters ------------------------------------------

func (p *Parser) parseTypeParameters() *Node {
	node := p.startNode(KindTypeParameters)
	p.expect(TokenLT)
	progress := p.mustProgress()
	for !p.check(TokenGT) && !p.check(TokenEOF) {
		node.AddChild(p.parseTypeParameter())
		if p.check(TokenComma) {
			p.advance()
		}
		if !progress() {
			break
		}
		progress = p.mustProgress()
	}
	p.expectCloseAngle()
	return p.finishNode(node)
}

func (p *Parser) parseTypeParameter() *Node {
	node := p.startNode(KindTypeParameter)
	for p.check(TokenAt) {
		node.AddChild(p.parseAnnotation())
	}
	if ident := p.expectIdentifier(); ident != nil {
		node.AddChild(p.leaf(KindIdentifier, *ident))
	}
	if p.check(TokenExtends) {
		p.advance()
		node.AddChild(p.parseType())
		for p.check(TokenBitAnd) {
			p.advance()
			node.AddChild(p.parseType())
		}
	}
	return p.finishNode(node)
}

func (p *Parser) parseParameters() *Node {
	node := p.startNode(KindParameters)
	if p.expect(TokenLParen) == nil {
		node.AddChild(p.errorNode("expected '('", stmtRecovery, TokenLParen))
		return p.finishNode(node)
	}
	progress := p.mustProgress()
	for !p.check(TokenRParen) && !p.check(TokenEOF) {
		node.AddChild(p.parseParameter())
		if p.check(TokenComma) {
			p.advance()
		}
		if !progress() {
			break
		}
		progress = p.mustProgress()
	}
	p.expect(TokenRParen)
	return p.finishNode(node)
}

func (p *Parser) parseParameter() *Node {
	node := p.startNode(KindParameter)
	for {
		if p.check(TokenAt) {
			node.AddChild(p.parseAnnotation())
			continue
		}
		if p.check(TokenFinal) {
			tok := p.advance()
			node.AddChild(p.leaf(KindIdentifier, tok))
			continue
		}
		break
	}
	// receiver parameter: Type.this or Type Outer.this
	typ := p.parseType()
	if p.check(TokenEllipsis) {
		p.advance()
		arr := &Node{Kind: KindArrayType, Span: typ.Span}
		arr.AddChild(typ)
		typ = arr
	}
	node.AddChild(typ)
	if p.check(TokenThis) {
		p.advance()
		node.Kind = KindReceiverParameter
		return p.finishNode(node)
	}
	if ident := p.expectIdentifier(); ident != nil {
		for p.check(TokenLBracket) {
			p.advance()
			p.expect(TokenRBracket)
		}
		node.AddChild(p.leaf(KindIdentifier, *ident))
	} else {
		node.AddChild(p.errorNode("expected parameter name", stmtRecovery, TokenIdent))
	}
	return p.finishNode(node)
}

func (p *Parser) parseArgumentList() *Node {
	node := p.startNode(KindArgumentList)
	p.expect(TokenLParen)
	progress := p.mustProgress()
	for !p.check(TokenRParen) && !p.check(TokenEOF) {
		node.AddChild(p.parseExpression())
		if p.check(TokenComma) {
			p.advance()
		}
		if !progress() {
			break
		}
		progress = p.mustProgress()
	}
	p.expect(TokenRParen)
	return p.finishNode(node)
}
