package syntax

// Java expression grammar, precedence-climbing over a small table plus
// dedicated handling for the productions JLS treats specially: assignment
// (right-assoc), the conditional operator, lambdas, casts, `new`, and
// postfix chains of field access / array access / calls / method refs.
//
// Ambiguity resolution follows spec §4.1: lambda-vs-parenthesized-expr is
// disambiguated by scanning forward for a matching ')' followed by '->';
// cast-vs-parenthesized-expr is disambiguated by checking that the paren
// contents parse as a type and the following token can start an expression.

func (p *Parser) parseExpression() *Node {
	return p.parseAssignment()
}

var assignOps = map[TokenKind]bool{
	TokenAssign: true, TokenPlusAssign: true, TokenMinusAssign: true, TokenStarAssign: true,
	TokenSlashAssign: true, TokenPercentAssign: true, TokenAndAssign: true, TokenOrAssign: true,
	TokenXorAssign: true, TokenShlAssign: true, TokenShrAssign: true, TokenUShrAssign: true,
}

func (p *Parser) parseAssignment() *Node {
	if p.looksLikeLambda() {
		return p.parseLambda()
	}
	left := p.parseTernary()
	if assignOps[p.peek().Kind] {
		op := p.advance()
		right := p.parseAssignment()
		node := &Node{Kind: KindAssignExpr, Span: Span{Start: left.Span.Start, End: right.Span.End}}
		node.AddChild(left)
		node.AddChild(&Node{Kind: KindIdentifier, Span: op.Span, Token: &op})
		node.AddChild(right)
		return node
	}
	return left
}

func (p *Parser) parseTernary() *Node {
	cond := p.parseBinary(0)
	if !p.check(TokenQuestion) {
		return cond
	}
	p.advance()
	then := p.parseExpression()
	p.expect(TokenColon)
	var els *Node
	if p.looksLikeLambda() {
		els = p.parseLambda()
	} else {
		els = p.parseTernary()
	}
	node := &Node{Kind: KindTernaryExpr, Span: Span{Start: cond.Span.Start, End: els.Span.End}}
	node.AddChild(cond)
	node.AddChild(then)
	node.AddChild(els)
	return node
}

// binaryPrecedence maps each binary operator token to its JLS precedence
// level, low to high; instanceof is folded in at the relational level.
var binaryPrecedence = map[TokenKind]int{
	TokenOr:  1,
	TokenAnd: 2,
	TokenBitOr: 3, TokenBitXor: 4, TokenBitAnd: 5,
	TokenEQ: 6, TokenNE: 6,
	TokenLT: 7, TokenGT: 7, TokenLE: 7, TokenGE: 7, TokenInstanceof: 7,
	TokenShl: 8, TokenShr: 8, TokenUShr: 8,
	TokenPlus: 9, TokenMinus: 9,
	TokenStar: 10, TokenSlash: 10, TokenPercent: 10,
}

func (p *Parser) parseBinary(minPrec int) *Node {
	left := p.parseUnary()
	for {
		tok := p.peek()
		prec, ok := binaryPrecedence[tok.Kind]
		if !ok || prec < minPrec {
			return left
		}
		if tok.Kind == TokenInstanceof {
			p.advance()
			typ := p.parseType()
			node := &Node{Kind: KindInstanceofExpr, Span: Span{Start: left.Span.Start, End: typ.Span.End}}
			node.AddChild(left)
			node.AddChild(typ)
			if p.isIdentifierLike() {
				bind := p.advance()
				node.AddChild(p.leaf(KindIdentifier, bind))
				node.Span.End = bind.Span.End
			}
			left = node
			continue
		}
		p.advance()
		right := p.parseBinary(prec + 1)
		node := &Node{Kind: KindBinaryExpr, Span: Span{Start: left.Span.Start, End: right.Span.End}}
		node.AddChild(left)
		node.AddChild(&Node{Kind: KindIdentifier, Span: tok.Span, Token: &tok})
		node.AddChild(right)
		left = node
	}
}

var unaryPrefixOps = map[TokenKind]bool{
	TokenPlus: true, TokenMinus: true, TokenNot: true, TokenBitNot: true,
	TokenIncrement: true, TokenDecrement: true,
}

func (p *Parser) parseUnary() *Node {
	if castType, ok := p.tryParseCastAhead(); ok {
		operand := p.parseUnary()
		node := &Node{Kind: KindCastExpr, Span: Span{Start: castType.Span.Start, End: operand.Span.End}}
		node.AddChild(castType)
		node.AddChild(operand)
		return node
	}
	tok := p.peek()
	if unaryPrefixOps[tok.Kind] {
		p.advance()
		operand := p.parseUnary()
		node := &Node{Kind: KindUnaryExpr, Span: Span{Start: tok.Span.Start, End: operand.Span.End}}
		node.AddChild(&Node{Kind: KindIdentifier, Span: tok.Span, Token: &tok})
		node.AddChild(operand)
		return node
	}
	return p.parsePostfix()
}

// tryParseCastAhead speculatively parses "(" Type ")" and accepts it as a
// cast only if the token that follows can start a unary expression — this
// is what distinguishes `(Foo) bar` (cast) from `(Foo) + bar` (parenthesized
// expression used as the left operand of a binary `+`).
func (p *Parser) tryParseCastAhead() (*Node, bool) {
	if !p.check(TokenLParen) {
		return nil, false
	}
	save := p.mark()
	start := p.peek().Span.Start
	p.advance()
	if !p.canStartType() {
		p.rewind(save)
		return nil, false
	}
	typ := p.parseType()
	if typ.IsError() || !p.check(TokenRParen) {
		p.rewind(save)
		return nil, false
	}
	closeParen := p.advance()
	if !p.canStartUnaryOperand(typ) {
		p.rewind(save)
		return nil, false
	}
	typ.Span = Span{Start: start, End: closeParen.Span.End}
	return typ, true
}

func (p *Parser) canStartType() bool {
	switch p.peek().Kind {
	case TokenBoolean, TokenByte, TokenShort, TokenInt, TokenLong, TokenChar,
		TokenFloat, TokenDouble, TokenVoid:
		return true
	}
	return p.isIdentifierLike()
}

// canStartUnaryOperand reports whether the current token can begin the
// operand of a cast. Primitive-type casts are unambiguous; reference-type
// casts require a token that cannot also continue a binary expression
// (identifier, literal, '(', unary operator, `this`/`super`/`new`), so that
// `(Foo) + bar` parses as a parenthesized expression plus bar, not a cast of
// unary-plus bar.
func (p *Parser) canStartUnaryOperand(castType *Node) bool {
	if castType.Kind != KindType && castType.Kind != KindParameterizedType && castType.Kind != KindArrayType {
		return false
	}
	isPrimitive := castType.Kind == KindType && castType.Token != nil
	switch p.peek().Kind {
	case TokenIdent, TokenVar, TokenYield, TokenThis, TokenSuper, TokenNew,
		TokenIntLiteral, TokenFloatLiteral, TokenCharLiteral, TokenStringLiteral, TokenTextBlock,
		TokenTrue, TokenFalse, TokenNull, TokenLParen, TokenNot, TokenBitNot:
		return true
	case TokenPlus, TokenMinus, TokenIncrement, TokenDecrement:
		// Ambiguous with binary +/- on a parenthesized expression; only a
		// primitive-type cast is unambiguous here (`(int) -x` is always a
		// cast, `(Foo) -x` could be subtraction of a call result).
		return isPrimitive
	}
	return false
}

// looksLikeLambda detects `identifier ->`, `() ->`, and `(a, b, ...) ->`
// without committing to consuming any tokens.
func (p *Parser) looksLikeLambda() bool {
	if p.isIdentifierLike() && p.peekN(1).Kind == TokenArrow {
		return true
	}
	if !p.check(TokenLParen) {
		return false
	}
	save := p.mark()
	defer p.rewind(save)
	depth := 0
	for {
		switch p.peek().Kind {
		case TokenEOF:
			return false
		case TokenLParen:
			depth++
			p.advance()
		case TokenRParen:
			depth--
			p.advance()
			if depth == 0 {
				return p.check(TokenArrow)
			}
		default:
			p.advance()
		}
	}
}

func (p *Parser) parseLambda() *Node {
	start := p.peek().Span.Start
	params := p.startNode(KindParameters)
	if p.check(TokenLParen) {
		p.advance()
		progress := p.mustProgress()
		for !p.check(TokenRParen) && !p.check(TokenEOF) {
			params.AddChild(p.parseLambdaParameter())
			if p.check(TokenComma) {
				p.advance()
			}
			if !progress() {
				break
			}
			progress = p.mustProgress()
		}
		p.expect(TokenRParen)
	} else {
		ident := p.advance()
		param := p.startNode(KindParameter)
		param.AddChild(p.leaf(KindIdentifier, ident))
		params.AddChild(p.finishNode(param))
	}
	params = p.finishNode(params)
	p.expect(TokenArrow)
	var body *Node
	if p.check(TokenLBrace) {
		body = p.parseBlock()
	} else {
		body = p.parseExpression()
	}
	node := &Node{Kind: KindLambdaExpr, Span: Span{Start: start, End: body.Span.End}}
	node.AddChild(params)
	node.AddChild(body)
	return node
}

// parseLambdaParameter accepts both the typed form (used when one parameter
// in the list has an explicit type, JLS requires all to) and the implicit
// single-identifier form.
func (p *Parser) parseLambdaParameter() *Node {
	save := p.mark()
	if p.isIdentifierLike() && (p.peekN(1).Kind == TokenComma || p.peekN(1).Kind == TokenRParen) {
		node := p.startNode(KindParameter)
		ident := p.advance()
		node.AddChild(p.leaf(KindIdentifier, ident))
		return p.finishNode(node)
	}
	p.rewind(save)
	return p.parseParameter()
}

func (p *Parser) parsePostfix() *Node {
	expr := p.parsePrimary()
	for {
		switch p.peek().Kind {
		case TokenDot:
			p.advance()
			if p.check(TokenClass) {
				tok := p.advance()
				node := &Node{Kind: KindClassLiteral, Span: Span{Start: expr.Span.Start, End: tok.Span.End}}
				node.AddChild(expr)
				expr = node
				continue
			}
			if p.check(TokenNew) {
				expr = p.parseQualifiedNew(expr)
				continue
			}
			if p.check(TokenThis) {
				tok := p.advance()
				node := &Node{Kind: KindFieldAccess, Span: Span{Start: expr.Span.Start, End: tok.Span.End}}
				node.AddChild(expr)
				node.AddChild(&Node{Kind: KindThis, Span: tok.Span, Token: &tok})
				expr = node
				continue
			}
			if p.check(TokenLT) {
				p.parseTypeArguments() // explicit type witness on a call; discarded
			}
			ident := p.expectIdentifier()
			if ident == nil {
				expr = &Node{Kind: KindFieldAccess, Span: expr.Span}
				break
			}
			access := &Node{Kind: KindFieldAccess, Span: Span{Start: expr.Span.Start, End: ident.Span.End}}
			access.AddChild(expr)
			access.AddChild(p.leaf(KindIdentifier, *ident))
			if p.check(TokenLParen) {
				args := p.parseArgumentList()
				call := &Node{Kind: KindCallExpr, Span: Span{Start: access.Span.Start, End: args.Span.End}}
				call.AddChild(access)
				call.AddChild(args)
				expr = call
			} else {
				expr = access
			}
		case TokenLBracket:
			p.advance()
			index := p.parseExpression()
			end := p.peek()
			p.expect(TokenRBracket)
			node := &Node{Kind: KindArrayAccess, Span: Span{Start: expr.Span.Start, End: end.Span.End}}
			node.AddChild(expr)
			node.AddChild(index)
			expr = node
		case TokenColonColon:
			p.advance()
			var nameTok Token
			if p.check(TokenNew) {
				nameTok = p.advance()
			} else if ident := p.expectIdentifier(); ident != nil {
				nameTok = *ident
			}
			node := &Node{Kind: KindMethodRef, Span: Span{Start: expr.Span.Start, End: nameTok.Span.End}}
			node.AddChild(expr)
			node.AddChild(p.leaf(KindIdentifier, nameTok))
			expr = node
		case TokenIncrement, TokenDecrement:
			tok := p.advance()
			node := &Node{Kind: KindPostfixExpr, Span: Span{Start: expr.Span.Start, End: tok.Span.End}}
			node.AddChild(expr)
			node.AddChild(&Node{Kind: KindIdentifier, Span: tok.Span, Token: &tok})
			expr = node
		default:
			return expr
		}
	}
}

func (p *Parser) parseQualifiedNew(qualifier *Node) *Node {
	p.advance() // "new"
	typ := p.parsePrimitiveOrClassType()
	args := p.parseArgumentList()
	node := &Node{Kind: KindNewExpr, Span: Span{Start: qualifier.Span.Start, End: args.Span.End}}
	node.AddChild(qualifier)
	node.AddChild(typ)
	node.AddChild(args)
	if p.check(TokenLBrace) {
		body := p.parseClassBody()
		node.AddChild(body)
		node.Span.End = body.Span.End
	}
	return node
}

func (p *Parser) parsePrimary() *Node {
	tok := p.peek()
	switch tok.Kind {
	case TokenIntLiteral, TokenFloatLiteral, TokenCharLiteral, TokenStringLiteral, TokenTextBlock,
		TokenTrue, TokenFalse, TokenNull:
		p.advance()
		return &Node{Kind: KindLiteral, Span: tok.Span, Token: &tok}
	case TokenThis:
		p.advance()
		node := &Node{Kind: KindThis, Span: tok.Span, Token: &tok}
		if p.check(TokenLParen) {
			args := p.parseArgumentList()
			call := &Node{Kind: KindCallExpr, Span: Span{Start: node.Span.Start, End: args.Span.End}}
			call.AddChild(node)
			call.AddChild(args)
			return call
		}
		return node
	case TokenSuper:
		p.advance()
		node := &Node{Kind: KindSuper, Span: tok.Span, Token: &tok}
		if p.check(TokenLParen) {
			args := p.parseArgumentList()
			call := &Node{Kind: KindCallExpr, Span: Span{Start: node.Span.Start, End: args.Span.End}}
			call.AddChild(node)
			call.AddChild(args)
			return call
		}
		if p.check(TokenDot) {
			p.advance()
			ident := p.expectIdentifier()
			if ident != nil {
				access := &Node{Kind: KindFieldAccess, Span: Span{Start: node.Span.Start, End: ident.Span.End}}
				access.AddChild(node)
				access.AddChild(p.leaf(KindIdentifier, *ident))
				if p.check(TokenLParen) {
					args := p.parseArgumentList()
					call := &Node{Kind: KindCallExpr, Span: Span{Start: access.Span.Start, End: args.Span.End}}
					call.AddChild(access)
					call.AddChild(args)
					return call
				}
				return access
			}
		}
		return node
	case TokenNew:
		return p.parseNewExpr()
	case TokenLParen:
		p.advance()
		inner := p.parseExpression()
		p.expect(TokenRParen)
		node := &Node{Kind: KindParenExpr, Span: Span{Start: tok.Span.Start}}
		node.AddChild(inner)
		return p.finishNode(node)
	case TokenSwitch:
		return p.parseSwitchExpr()
	case TokenBoolean, TokenByte, TokenShort, TokenInt, TokenLong, TokenChar, TokenFloat, TokenDouble, TokenVoid:
		typ := p.parseType()
		for p.check(TokenLBracket) && p.peekN(1).Kind == TokenRBracket {
			p.advance()
			p.advance()
			arr := &Node{Kind: KindArrayType, Span: typ.Span}
			arr.AddChild(typ)
			typ = arr
		}
		p.expect(TokenDot)
		classTok := p.expect(TokenClass)
		node := &Node{Kind: KindClassLiteral, Span: typ.Span}
		if classTok != nil {
			node.Span.End = classTok.Span.End
		}
		node.AddChild(typ)
		return node
	default:
		if p.isIdentifierLike() {
			return p.parseIdentifierPrimary()
		}
		return p.errorNode("expected expression", stmtRecovery, TokenIdent)
	}
}

// parseIdentifierPrimary parses a single identifier, or a call when an
// argument list follows it, then lets parsePostfix's caller continue the
// chain: its TokenDot branch builds dotted names (a.b.c) and turns
// `Foo.class` into a KindClassLiteral node.
func (p *Parser) parseIdentifierPrimary() *Node {
	ident := p.advance()
	node := &Node{Kind: KindIdentifier, Span: ident.Span, Token: &ident}
	if p.check(TokenLParen) {
		args := p.parseArgumentList()
		call := &Node{Kind: KindCallExpr, Span: Span{Start: node.Span.Start, End: args.Span.End}}
		call.AddChild(node)
		call.AddChild(args)
		return call
	}
	return node
}

func (p *Parser) parseNewExpr() *Node {
	start := p.peek().Span.Start
	p.advance() // "new"
	if p.check(TokenLT) {
		p.parseTypeArguments() // diamond-style explicit type witness; discarded
	}
	typ := p.parsePrimitiveOrClassType()
	if p.check(TokenLBracket) {
		return p.parseNewArray(start, typ)
	}
	args := p.parseArgumentList()
	node := &Node{Kind: KindNewExpr, Span: Span{Start: start, End: args.Span.End}}
	node.AddChild(typ)
	node.AddChild(args)
	if p.check(TokenLBrace) {
		body := p.parseClassBody()
		node.AddChild(body)
		node.Span.End = body.Span.End
	}
	return node
}

func (p *Parser) parseNewArray(start Position, typ *Node) *Node {
	node := &Node{Kind: KindNewArrayExpr, Span: Span{Start: start}}
	node.AddChild(typ)
	for p.check(TokenLBracket) {
		p.advance()
		if p.check(TokenRBracket) {
			p.advance()
			continue
		}
		node.AddChild(p.parseExpression())
		p.expect(TokenRBracket)
	}
	if p.check(TokenLBrace) {
		node.AddChild(p.parseArrayInit())
	}
	return p.finishNode(node)
}

func (p *Parser) parseArrayInit() *Node {
	node := p.startNode(KindArrayInit)
	p.expect(TokenLBrace)
	progress := p.mustProgress()
	for !p.check(TokenRBrace) && !p.check(TokenEOF) {
		if p.check(TokenLBrace) {
			node.AddChild(p.parseArrayInit())
		} else {
			node.AddChild(p.parseExpression())
		}
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

// parseSwitchExpr and parseSwitchStmt share parseSwitchBody; see stmt.go.
func (p *Parser) parseSwitchExpr() *Node {
	node := p.startNode(KindSwitchExpr)
	p.parseSwitchHeaderAndBody(node)
	return p.finishNode(node)
}
