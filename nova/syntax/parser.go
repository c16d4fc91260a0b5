package syntax

import "io"

// Option configures a Parser.
type Option func(*Parser)

func WithFile(path string) Option { return func(p *Parser) { p.file = path } }

func WithStartLine(line int) Option { return func(p *Parser) { p.startLine = line } }

type Parser struct {
	file       string
	startLine  int
	reader     io.Reader
	input      []byte
	rawTokens  []Token // full stream including trivia, from LexAll
	tokens     []Token // significant tokens only, trivia attached
	pos        int
	incomplete bool
	errors     []ParseError
}

// ParseCompilationUnit parses r as a full .java file (or module-info.java).
func ParseCompilationUnit(r io.Reader, opts ...Option) (*Node, []ParseError) {
	p := newParser(r, opts...)
	if err := p.readAll(); err != nil {
		return nil, []ParseError{{Message: "read source: " + err.Error()}}
	}
	p.tokenize()
	node := p.parseCompilationUnit()
	if node != nil {
		// The declaration-level parse functions don't all thread punctuation
		// tokens (braces, parens, semicolons) onto the tree as children, so
		// Node.Text() can't be trusted to reconstruct the source through
		// every interior node. Forcing the root span to the full input
		// width makes SourceText correct at the one level the round-trip
		// contract actually needs it: the whole file, trivia included.
		node.Span = Span{
			Start: Position{File: p.file, Offset: 0, Line: p.startLine, Column: 1},
			End:   endOfInput(p.input, p.file, p.startLine),
		}
	}
	return node, p.errors
}

func endOfInput(input []byte, file string, startLine int) Position {
	line, col := startLine, 1
	for _, b := range input {
		if b == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return Position{File: file, Offset: len(input), Line: line, Column: col}
}

func newParser(r io.Reader, opts ...Option) *Parser {
	p := &Parser{startLine: 1, reader: r}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Parser) readAll() error {
	if p.input != nil {
		return nil
	}
	data, err := io.ReadAll(p.reader)
	if err != nil {
		return err
	}
	p.input = data
	return nil
}

func (p *Parser) tokenize() {
	p.rawTokens = LexAll(p.input, p.file)
	p.tokens = AttachTrivia(p.rawTokens)
}

// Text returns the exact source text this parser was given, independent of
// tree reconstruction — used by callers that only need the original bytes.
func (p *Parser) Text() string { return string(p.input) }

// --- token-stream cursor -----------------------------------------------

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Kind: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekN(n int) Token {
	if p.pos+n >= len(p.tokens) {
		return Token{Kind: TokenEOF}
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) check(kind TokenKind) bool { return p.peek().Kind == kind }

func (p *Parser) match(kinds ...TokenKind) bool {
	k := p.peek().Kind
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

func (p *Parser) expect(kind TokenKind) *Token {
	if p.check(kind) {
		tok := p.advance()
		return &tok
	}
	return nil
}

func (p *Parser) isIdentifierLike() bool {
	switch p.peek().Kind {
	case TokenIdent, TokenVar, TokenYield, TokenRecord, TokenSealed, TokenNonSealed, TokenPermits,
		TokenModule, TokenOpen, TokenRequires, TokenTransitive, TokenExports, TokenOpens,
		TokenTo, TokenUses, TokenProvides, TokenWith:
		return true
	}
	return false
}

func (p *Parser) expectIdentifier() *Token {
	if p.isIdentifierLike() {
		tok := p.advance()
		return &tok
	}
	return nil
}

// checkpoint/rewind support speculative lookahead used to disambiguate
// lambda-vs-parenthesized-expression and cast-vs-parenthesized-expression.
type checkpoint struct{ pos int }

func (p *Parser) mark() checkpoint { return checkpoint{pos: p.pos} }

func (p *Parser) rewind(c checkpoint) { p.pos = c.pos }

// mustProgress returns a closure to call at the end of a loop body; it
// forces the cursor forward by one token if nothing was consumed, so a
// malformed grammar rule can never spin forever.
func (p *Parser) mustProgress() func() bool {
	saved := p.pos
	return func() bool {
		if p.pos == saved {
			if !p.check(TokenEOF) {
				p.advance()
			}
			return false
		}
		return true
	}
}

// --- node building -------------------------------------------------------

func (p *Parser) startNode(kind NodeKind) *Node {
	return &Node{Kind: kind, Span: Span{Start: p.peek().Span.Start}}
}

func (p *Parser) finishNode(n *Node) *Node {
	if p.pos > 0 && p.pos <= len(p.tokens) {
		n.Span.End = p.tokens[p.pos-1].Span.End
	} else if len(p.tokens) > 0 {
		n.Span.End = p.tokens[len(p.tokens)-1].Span.End
	}
	return n
}

func (p *Parser) leaf(kind NodeKind, tok Token) *Node {
	t := tok
	return &Node{Kind: kind, Span: tok.Span, Token: &t}
}

// errorNode wraps the current token in an Error node, records a
// ParseError, and advances to the nearest recovery token.
func (p *Parser) errorNode(msg string, recoverTo []TokenKind, expected ...TokenKind) *Node {
	tok := p.peek()
	if tok.Kind == TokenEOF {
		p.incomplete = true
	}
	perr := ParseError{Message: msg, Expected: expected, Got: tok, Span: tok.Span}
	p.errors = append(p.errors, perr)
	node := &Node{Kind: KindError, Span: tok.Span, Err: &perr}
	p.recoverTo(recoverTo)
	return node
}

// declRecovery is the default recovery set: declaration keywords, braces,
// semicolon, or EOF.
var declRecovery = []TokenKind{
	TokenClass, TokenInterface, TokenEnum, TokenRecord, TokenAt,
	TokenPublic, TokenPrivate, TokenProtected, TokenStatic, TokenFinal,
	TokenLBrace, TokenRBrace, TokenSemicolon,
}

var stmtRecovery = []TokenKind{TokenSemicolon, TokenRBrace}

func (p *Parser) recoverTo(kinds []TokenKind) {
	if !p.check(TokenEOF) {
		p.advance()
	}
	if len(kinds) == 0 {
		return
	}
	for !p.check(TokenEOF) {
		for _, k := range kinds {
			if p.check(k) {
				return
			}
		}
		p.advance()
	}
}

// --- compilation unit ----------------------------------------------------

func (p *Parser) parseCompilationUnit() *Node {
	node := p.startNode(KindCompilationUnit)

	if p.check(TokenAt) || p.check(TokenPackage) {
		save := p.mark()
		if p.isAnnotatedPackage() || p.check(TokenPackage) {
			node.AddChild(p.parsePackageDecl())
		} else {
			p.rewind(save)
		}
	}

	for p.check(TokenImport) {
		node.AddChild(p.parseImportDecl())
	}

	if p.isModuleDecl() {
		node.AddChild(p.parseModuleDecl())
		return p.finishNode(node)
	}

	progress := p.mustProgress()
	for !p.check(TokenEOF) {
		if p.check(TokenSemicolon) {
			p.advance()
		} else {
			node.AddChild(p.parseTypeDecl())
		}
		if !progress() {
			break
		}
		progress = p.mustProgress()
	}
	return p.finishNode(node)
}

func (p *Parser) isAnnotatedPackage() bool {
	// @Foo package ...  — only the case if, after skipping one or more
	// annotations, a `package` keyword follows.
	save := p.mark()
	defer p.rewind(save)
	for p.check(TokenAt) {
		p.advance()
		p.skipAnnotationBody()
	}
	return p.check(TokenPackage)
}

func (p *Parser) skipAnnotationBody() {
	p.parseQualifiedName()
	if p.check(TokenLParen) {
		depth := 0
		for {
			if p.check(TokenLParen) {
				depth++
			} else if p.check(TokenRParen) {
				depth--
				p.advance()
				if depth == 0 {
					break
				}
				continue
			} else if p.check(TokenEOF) {
				break
			}
			p.advance()
		}
	}
}

func (p *Parser) isModuleDecl() bool {
	save := p.mark()
	defer p.rewind(save)
	if p.check(TokenOpen) {
		p.advance()
	}
	return p.check(TokenModule)
}

func (p *Parser) parsePackageDecl() *Node {
	node := p.startNode(KindPackageDecl)
	for p.check(TokenAt) {
		node.AddChild(p.parseAnnotation())
	}
	if tok := p.expect(TokenPackage); tok == nil {
		node.AddChild(p.errorNode("expected 'package'", declRecovery, TokenPackage))
		return p.finishNode(node)
	}
	node.AddChild(p.parseQualifiedName())
	p.expect(TokenSemicolon)
	return p.finishNode(node)
}

func (p *Parser) parseImportDecl() *Node {
	node := p.startNode(KindImportDecl)
	p.expect(TokenImport)
	if p.check(TokenStatic) {
		tok := p.advance()
		node.AddChild(p.leaf(KindIdentifier, tok))
	}
	node.AddChild(p.parseQualifiedNameWithStar())
	p.expect(TokenSemicolon)
	return p.finishNode(node)
}

func (p *Parser) parseQualifiedNameWithStar() *Node {
	node := p.parseQualifiedName()
	if p.check(TokenDot) && p.peekN(1).Kind == TokenStar {
		p.advance()
		star := p.advance()
		wrapped := &Node{Kind: KindQualifiedName, Span: Span{Start: node.Span.Start, End: star.Span.End}}
		wrapped.AddChild(node)
		wrapped.AddChild(p.leaf(KindIdentifier, star))
		return wrapped
	}
	return node
}

func (p *Parser) parseQualifiedName() *Node {
	first := p.expectIdentifier()
	if first == nil {
		return p.errorNode("expected identifier", stmtRecovery, TokenIdent)
	}
	node := p.leaf(KindIdentifier, *first)
	for p.check(TokenDot) && p.peekN(1).Kind != TokenStar && p.isIdentLikeAt(1) {
		p.advance()
		ident := p.expectIdentifier()
		if ident == nil {
			break
		}
		wrapped := &Node{Kind: KindQualifiedName, Span: Span{Start: node.Span.Start, End: ident.Span.End}}
		wrapped.AddChild(node)
		wrapped.AddChild(p.leaf(KindIdentifier, *ident))
		node = wrapped
	}
	return node
}

func (p *Parser) isIdentLikeAt(n int) bool {
	switch p.peekN(n).Kind {
	case TokenIdent, TokenVar, TokenYield, TokenRecord, TokenSealed, TokenNonSealed, TokenPermits:
		return true
	}
	return false
}

// --- module-info ----------------------------------------------------------

func (p *Parser) parseModuleDecl() *Node {
	node := p.startNode(KindModuleDecl)
	if p.check(TokenOpen) {
		p.advance()
	}
	p.expect(TokenModule)
	node.AddChild(p.parseQualifiedName())
	if p.expect(TokenLBrace) == nil {
		node.AddChild(p.errorNode("expected '{'", declRecovery, TokenLBrace))
		return p.finishNode(node)
	}
	progress := p.mustProgress()
	for !p.check(TokenRBrace) && !p.check(TokenEOF) {
		node.AddChild(p.parseModuleDirective())
		if !progress() {
			break
		}
		progress = p.mustProgress()
	}
	p.expect(TokenRBrace)
	return p.finishNode(node)
}

func (p *Parser) parseModuleDirective() *Node {
	switch p.peek().Kind {
	case TokenRequires:
		node := p.startNode(KindRequiresDirective)
		p.advance()
		for p.match(TokenTransitive, TokenStatic) {
			p.advance()
		}
		node.AddChild(p.parseQualifiedName())
		p.expect(TokenSemicolon)
		return p.finishNode(node)
	case TokenExports:
		node := p.startNode(KindExportsDirective)
		p.advance()
		node.AddChild(p.parseQualifiedName())
		if p.check(TokenTo) {
			p.advance()
			node.AddChild(p.parseQualifiedName())
			for p.check(TokenComma) {
				p.advance()
				node.AddChild(p.parseQualifiedName())
			}
		}
		p.expect(TokenSemicolon)
		return p.finishNode(node)
	case TokenOpens:
		node := p.startNode(KindOpensDirective)
		p.advance()
		node.AddChild(p.parseQualifiedName())
		if p.check(TokenTo) {
			p.advance()
			node.AddChild(p.parseQualifiedName())
			for p.check(TokenComma) {
				p.advance()
				node.AddChild(p.parseQualifiedName())
			}
		}
		p.expect(TokenSemicolon)
		return p.finishNode(node)
	case TokenUses:
		node := p.startNode(KindUsesDirective)
		p.advance()
		node.AddChild(p.parseQualifiedName())
		p.expect(TokenSemicolon)
		return p.finishNode(node)
	case TokenProvides:
		node := p.startNode(KindProvidesDirective)
		p.advance()
		node.AddChild(p.parseQualifiedName())
		if p.check(TokenWith) {
			p.advance()
			node.AddChild(p.parseQualifiedName())
			for p.check(TokenComma) {
				p.advance()
				node.AddChild(p.parseQualifiedName())
			}
		}
		p.expect(TokenSemicolon)
		return p.finishNode(node)
	default:
		return p.errorNode("expected module directive", declRecovery)
	}
}
