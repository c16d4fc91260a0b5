// Package format implements Nova's Java formatter (spec §4.2): a
// config-driven, idempotent rendering of the syntax tree that is lossless
// with respect to comment and literal content and safe on unterminated
// literals. It is grounded on the teacher repo's JavaPrettyPrinter
// (format/java_pretty*.go) but is built directly on the token stream rather
// than re-deriving whitespace from a separately tracked comment list, since
// nova/syntax already attaches every comment as LeadingTrivia on the token
// it precedes.
package format

import (
	"bytes"

	"github.com/nova-ide/nova/nova/syntax"
)

// IndentStyle selects the whitespace unit used for one indent level.
type IndentStyle int

const (
	IndentSpaces IndentStyle = iota
	IndentTabs
)

// Newline selects the line terminator written between lines.
type Newline int

const (
	NewlineLF Newline = iota
	NewlineCRLF
	NewlineCR
)

func (n Newline) text() string {
	switch n {
	case NewlineCRLF:
		return "\r\n"
	case NewlineCR:
		return "\r"
	default:
		return "\n"
	}
}

// Config is the formatter's FormatConfig (spec §4.2).
type Config struct {
	IndentStyle        IndentStyle
	IndentWidth        int
	MaxLineLength      int
	NewlineStyle       Newline
	InsertFinalNewline bool
	TrimFinalNewlines  bool
}

// DefaultConfig matches common javac-community tooling defaults.
func DefaultConfig() Config {
	return Config{
		IndentStyle:        IndentSpaces,
		IndentWidth:        4,
		MaxLineLength:      100,
		NewlineStyle:       NewlineLF,
		InsertFinalNewline: true,
		TrimFinalNewlines:  true,
	}
}

func (c Config) indentUnit() string {
	if c.IndentStyle == IndentTabs {
		return "\t"
	}
	width := c.IndentWidth
	if width <= 0 {
		width = 4
	}
	return spacesOf(width)
}

func spacesOf(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

// Format renders src according to cfg at the given initial indent level.
// It is a fixed point: Format(Format(src, cfg), cfg) == Format(src, cfg) for
// any src that does not contain an unterminated literal (spec §8).
func Format(src []byte, cfg Config, initialIndent int) (string, error) {
	if cfg.MaxLineLength <= 0 {
		cfg.MaxLineLength = 100
	}
	if cfg.IndentWidth <= 0 && cfg.IndentStyle == IndentSpaces {
		cfg.IndentWidth = 4
	}

	if k, ok := firstUnterminatedLiteral(src); ok {
		head, err := formatTree(src[:k], cfg, initialIndent)
		if err != nil {
			return "", err
		}
		return head + string(src[k:]), nil
	}

	out, err := formatTree(src, cfg, initialIndent)
	if err != nil {
		return "", err
	}
	return applyFinalNewlinePolicy(out, cfg), nil
}

func formatTree(src []byte, cfg Config, initialIndent int) (string, error) {
	tree, _ := syntax.ParseCompilationUnit(bytes.NewReader(src))
	if tree == nil {
		return string(src), nil
	}
	p := newPrinter(cfg, initialIndent)
	p.printNode(tree)
	p.flushTrailingComments()
	return p.buf.String(), nil
}

// firstUnterminatedLiteral scans the raw (trivia-inclusive) token stream for
// the first string/char/text-block literal that never found its closing
// delimiter, returning the byte offset where it starts. The formatter's
// failure mode (spec §4.2, §8) is to format everything before that offset
// and copy the remainder of src verbatim, which keeps it idempotent even on
// malformed input.
func firstUnterminatedLiteral(src []byte) (int, bool) {
	for _, tok := range syntax.LexAll(src, "") {
		if !isUnterminated(tok) {
			continue
		}
		return tok.Span.Start.Offset, true
	}
	return 0, false
}

func isUnterminated(tok syntax.Token) bool {
	switch tok.Kind {
	case syntax.TokenStringLiteral:
		return len(tok.Literal) < 2 || tok.Literal[len(tok.Literal)-1] != '"'
	case syntax.TokenCharLiteral:
		return len(tok.Literal) < 2 || tok.Literal[len(tok.Literal)-1] != '\''
	case syntax.TokenTextBlock:
		return len(tok.Literal) < 6 || tok.Literal[len(tok.Literal)-3:] != `"""`
	}
	return false
}

func applyFinalNewlinePolicy(out string, cfg Config) string {
	if cfg.TrimFinalNewlines {
		for len(out) > 0 && (out[len(out)-1] == '\n' || out[len(out)-1] == '\r') {
			out = out[:len(out)-1]
		}
	}
	if cfg.InsertFinalNewline {
		out += cfg.NewlineStyle.text()
	}
	return out
}
