package syntax

// expectCloseAngle consumes a single '>' that closes a type argument or
// parameter list, splitting a lexed '>>' or '>>>' token into its
// constituent '>' tokens in place so that nested generics like
// `List<List<String>>` parse without requiring the lexer to special-case
// angle brackets. The unconsumed remainder is pushed back onto the token
// stream as a synthetic token of the same span, shrunk by one character.
func (p *Parser) expectCloseAngle() bool {
	tok := p.peek()
	switch tok.Kind {
	case TokenGT:
		p.advance()
		return true
	case TokenShr, TokenUShr, TokenGE, TokenShrAssign, TokenUShrAssign:
		p.splitLeadingAngle(tok)
		return true
	}
	return false
}

// splitLeadingAngle replaces the current token with a narrower one that
// has had a single leading '>' character peeled off, without consuming
// the peeled '>'. The peeled character is accounted for by the caller.
func (p *Parser) splitLeadingAngle(tok Token) {
	next := narrowAfterAngle(tok)
	start := tok.Span.Start
	start.Offset++
	start.Column++
	replacement := Token{
		Kind:    next,
		Span:    Span{Start: start, End: tok.Span.End},
		Literal: tok.Literal[1:],
	}
	if p.pos < len(p.tokens) {
		p.tokens[p.pos] = replacement
	}
}

func narrowAfterAngle(tok Token) TokenKind {
	switch tok.Kind {
	case TokenShr:
		return TokenGT
	case TokenUShr:
		return TokenShr
	case TokenGE:
		return TokenAssign
	case TokenShrAssign:
		return TokenGE
	case TokenUShrAssign:
		return TokenShrAssign
	}
	return tok.Kind
}

// parseType parses a (possibly array, possibly parameterized, possibly
// annotated) type reference.
func (p *Parser) parseType() *Node {
	node := p.parsePrimitiveOrClassType()
	for p.check(TokenLBracket) && p.peekN(1).Kind == TokenRBracket {
		p.advance()
		p.advance()
		arr := &Node{Kind: KindArrayType, Span: Span{Start: node.Span.Start}}
		arr.AddChild(node)
		node = p.finishNode(arr)
	}
	return node
}

var primitiveKinds = map[TokenKind]bool{
	TokenBoolean: true, TokenByte: true, TokenShort: true, TokenInt: true,
	TokenLong: true, TokenChar: true, TokenFloat: true, TokenDouble: true, TokenVoid: true,
}

func (p *Parser) parsePrimitiveOrClassType() *Node {
	for p.check(TokenAt) {
		p.parseAnnotation()
	}
	if primitiveKinds[p.peek().Kind] {
		tok := p.advance()
		return p.leaf(KindType, tok)
	}
	if p.check(TokenQuestion) {
		return p.parseWildcard()
	}
	node := p.startNode(KindType)
	ident := p.expectIdentifier()
	if ident == nil {
		return p.errorNode("expected type", stmtRecovery, TokenIdent)
	}
	node.AddChild(p.leaf(KindIdentifier, *ident))
	if p.check(TokenLT) {
		node.AddChild(p.parseTypeArguments())
		node.Kind = KindParameterizedType
	}
	for p.check(TokenDot) && p.isIdentLikeAt(1) {
		p.advance()
		seg := p.expectIdentifier()
		if seg == nil {
			break
		}
		wrapped := &Node{Kind: KindType, Span: Span{Start: node.Span.Start}}
		wrapped.AddChild(node)
		wrapped.AddChild(p.leaf(KindIdentifier, *seg))
		if p.check(TokenLT) {
			wrapped.AddChild(p.parseTypeArguments())
			wrapped.Kind = KindParameterizedType
		}
		node = p.finishNode(wrapped)
	}
	return p.finishNode(node)
}

func (p *Parser) parseWildcard() *Node {
	node := p.startNode(KindWildcard)
	p.expect(TokenQuestion)
	if p.check(TokenExtends) || p.check(TokenSuper) {
		bound := p.advance()
		node.AddChild(p.leaf(KindIdentifier, bound))
		node.AddChild(p.parseType())
	}
	return p.finishNode(node)
}

func (p *Parser) parseTypeArguments() *Node {
	node := p.startNode(KindTypeArguments)
	p.expect(TokenLT)
	if p.check(TokenGT) {
		// diamond operator <>
		p.advance()
		return p.finishNode(node)
	}
	progress := p.mustProgress()
	for !p.check(TokenGT) && !p.check(TokenShr) && !p.check(TokenUShr) && !p.check(TokenEOF) {
		arg := p.startNode(KindTypeArgument)
		arg.AddChild(p.parseType())
		node.AddChild(p.finishNode(arg))
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
