// Package streamdebug analyzes and samples Java stream-pipeline expressions
// for live debugging (spec §4.8): parse a dotted call chain into a source,
// its intermediate operations, and an optional terminal, then re-evaluate a
// bounded prefix of it through a live JDWP connection stage by stage.
package streamdebug

import "fmt"

// Position is an offset/line/column in the expression text being analyzed,
// in the same style as the teacher's own position-tracking lexer token
// (ebnflex.Position) — these expressions are short, single-line snippets, so
// there is no filename to carry.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

func isIdentStart(b byte) bool {
	return b == '_' || b == '$' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}
