package format

import (
	"strings"

	"github.com/nova-ide/nova/nova/syntax"
)

// printer walks a parsed syntax tree and re-renders it under a Config. It is
// grounded on the teacher's JavaPrettyPrinter (format/java_pretty*.go): the
// same write/writeIndent/newline/wouldExceed primitives, the same
// measure-with-a-disposable-sub-printer trick for deciding whether a
// construct fits on one line, and the same comment-interleaving idea --
// except comments come from each token's LeadingTrivia rather than a
// separately tracked, line-sorted comment list, since nova/syntax attaches
// them at lex time.
type printer struct {
	cfg    Config
	buf    strings.Builder
	indent int
	column int
	atBOL  bool
}

func newPrinter(cfg Config, initialIndent int) *printer {
	return &printer{cfg: cfg, indent: initialIndent, atBOL: true}
}

func (p *printer) write(s string) {
	p.buf.WriteString(s)
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		p.column = len(s) - idx - 1
	} else {
		p.column += len(s)
	}
}

func (p *printer) writeIndent() {
	if !p.atBOL {
		return
	}
	unit := p.cfg.indentUnit()
	for i := 0; i < p.indent; i++ {
		p.write(unit)
	}
	p.atBOL = false
}

func (p *printer) newline() {
	p.write(p.cfg.NewlineStyle.text())
	p.atBOL = true
	p.column = 0
}

// blankline emits one fully empty line, regardless of NewlineStyle, by
// writing the terminator without any indent.
func (p *printer) blankline() {
	p.write(p.cfg.NewlineStyle.text())
}

func (p *printer) wouldExceed(extra int) bool {
	max := p.cfg.MaxLineLength
	if max <= 0 {
		max = 100
	}
	return p.column+extra > max
}

// measure renders fn against a disposable sub-printer with an effectively
// unbounded line length, and returns how wide the result would be -- used to
// decide whether a construct fits on the current line before committing to
// writing it.
func (p *printer) measure(fn func(mp *printer)) int {
	mp := &printer{cfg: p.cfg, atBOL: false}
	mp.cfg.MaxLineLength = 1 << 30
	fn(mp)
	return mp.buf.Len()
}

// emitLeadingTrivia renders every comment attached to tok as its own line
// (or inline, for a block comment directly preceding a token with no
// intervening newline) ahead of the token's own text, preserving at most one
// blank line between items the way the teacher's emitCommentsBeforeLine does
// via its lastLine+1 check.
func (p *printer) emitLeadingTrivia(tok syntax.Token) {
	sawBlank := false
	for _, tv := range tok.LeadingTrivia {
		switch tv.Kind {
		case syntax.TokenBlankLine:
			sawBlank = true
		case syntax.TokenLineComment, syntax.TokenBlockComment, syntax.TokenDocComment:
			if sawBlank {
				p.blankline()
			}
			sawBlank = false
			p.writeIndent()
			p.write(tv.Literal)
			p.newline()
		}
	}
}

// precedesBlankLine reports whether tok's leading trivia contains a blank
// run, used to decide whether to preserve a blank line between two
// declarations or statements.
func precedesBlankLine(tok syntax.Token) bool {
	for _, tv := range tok.LeadingTrivia {
		if tv.Kind == syntax.TokenBlankLine {
			return true
		}
	}
	return false
}

// firstToken returns the first significant token spanned by n, used to read
// off its leading trivia for comment emission.
func firstToken(n *syntax.Node) (syntax.Token, bool) {
	toks := n.Tokens()
	if len(toks) == 0 {
		return syntax.Token{}, false
	}
	return toks[0], true
}

func (p *printer) beforeNode(n *syntax.Node, blankBefore bool) {
	tok, ok := firstToken(n)
	if !ok {
		return
	}
	if blankBefore && precedesBlankLine(tok) {
		p.blankline()
	}
	p.emitLeadingTrivia(tok)
}

func (p *printer) flushTrailingComments() {
	// Any comment trailing the final '}' or EOF lives in the EOF token's own
	// leading trivia chain via AttachTrivia; printNode(CompilationUnit)
	// already walks every child, so nothing further is owed here unless the
	// file ends in comments with no following declaration. That case is
	// handled by printCompilationUnit directly.
}

// printNode dispatches on node kind. Kinds without a dedicated printer fall
// back to printGeneric, which renders the node's original source text
// unmodified -- a correctness-preserving degrade for constructs this printer
// does not specifically reformat.
func (p *printer) printNode(n *syntax.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case syntax.KindCompilationUnit:
		p.printCompilationUnit(n)
	case syntax.KindPackageDecl:
		p.printPackageDecl(n)
	case syntax.KindImportDecl:
		p.printImportDecl(n)
	case syntax.KindModuleDecl:
		p.printModuleDecl(n)
	case syntax.KindClassDecl, syntax.KindInterfaceDecl, syntax.KindEnumDecl,
		syntax.KindRecordDecl, syntax.KindAnnotationDecl:
		p.printTypeDecl(n)
	case syntax.KindFieldDecl:
		p.printFieldDecl(n)
	case syntax.KindMethodDecl:
		p.printMethodDecl(n)
	case syntax.KindConstructorDecl:
		p.printConstructorDecl(n)
	case syntax.KindInitializerBlock:
		p.printInitializerBlock(n)
	case syntax.KindBlock:
		p.printBlock(n)
	default:
		if isStatementKind(n.Kind) {
			p.printStatement(n)
			return
		}
		p.printGeneric(n)
	}
}

// printGeneric reproduces n's original text verbatim (including its own
// leading trivia) at the current indent. Used for node kinds this printer
// has no dedicated rendering for; never loses information even when it
// doesn't reflow it.
func (p *printer) printGeneric(n *syntax.Node) {
	toks := n.Tokens()
	for i, t := range toks {
		if i == 0 {
			p.writeIndent()
		}
		p.write(t.FullText())
	}
}

func (p *printer) printCompilationUnit(n *syntax.Node) {
	for i, c := range n.Children {
		if c == nil {
			continue
		}
		p.beforeNode(c, i > 0)
		p.printNode(c)
		p.newline()
		if i < len(n.Children)-1 {
			p.newline()
		}
	}
}

func (p *printer) printPackageDecl(n *syntax.Node) {
	p.writeIndent()
	for _, c := range n.Children {
		if c.Kind == syntax.KindAnnotation {
			p.printAnnotation(c)
			p.write(" ")
		}
	}
	p.write("package ")
	if name := lastChild(n); name != nil {
		p.write(qualifiedNameText(name))
	}
	p.write(";")
}

func (p *printer) printImportDecl(n *syntax.Node) {
	p.writeIndent()
	p.write("import ")
	for _, c := range n.Children {
		if c.Kind == syntax.KindIdentifier && c.TokenLiteral() == "static" {
			p.write("static ")
		}
	}
	if name := lastChild(n); name != nil {
		p.write(qualifiedNameText(name))
	}
	p.write(";")
}

func lastChild(n *syntax.Node) *syntax.Node {
	if len(n.Children) == 0 {
		return nil
	}
	return n.Children[len(n.Children)-1]
}

func (p *printer) printModuleDecl(n *syntax.Node) {
	// Module declarations are rare enough in practice, and varied enough in
	// shape (open/transitive/to-lists), that reflowing them buys little;
	// render verbatim.
	p.printGeneric(n)
}

// qualifiedNameText renders a dotted name tree as parseQualifiedName builds
// it: a bare KindIdentifier leaf for a single segment, or a left-folded pair
// of (previous, KindIdentifier) under KindQualifiedName for each further
// segment (including a trailing "*" segment from an on-demand import).
func qualifiedNameText(n *syntax.Node) string {
	if n == nil {
		return ""
	}
	if n.Kind == syntax.KindIdentifier {
		return n.TokenLiteral()
	}
	if n.Kind == syntax.KindQualifiedName && len(n.Children) == 2 {
		return qualifiedNameText(n.Children[0]) + "." + qualifiedNameText(n.Children[1])
	}
	return strings.TrimSpace(n.Text())
}

func isStatementKind(k syntax.NodeKind) bool {
	switch k {
	case syntax.KindEmptyStmt, syntax.KindExprStmt, syntax.KindIfStmt, syntax.KindForStmt,
		syntax.KindEnhancedForStmt, syntax.KindWhileStmt, syntax.KindDoStmt, syntax.KindSwitchStmt,
		syntax.KindReturnStmt, syntax.KindBreakStmt, syntax.KindContinueStmt, syntax.KindThrowStmt,
		syntax.KindTryStmt, syntax.KindSynchronizedStmt, syntax.KindAssertStmt, syntax.KindYieldStmt,
		syntax.KindLocalVarDecl, syntax.KindLocalClassDecl, syntax.KindLabeledStmt:
		return true
	}
	return false
}
