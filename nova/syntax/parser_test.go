package syntax

import (
	"bytes"
	"strings"
	"testing"
)

func parseSrc(t *testing.T, src string) (*Node, []ParseError) {
	t.Helper()
	tree, errs := ParseCompilationUnit(strings.NewReader(src), WithFile("T.java"))
	if tree == nil {
		t.Fatalf("expected a tree even on malformed input")
	}
	return tree, errs
}

func TestRoundTripTextEqualsSource(t *testing.T) {
	srcs := []string{
		"package p;\nclass C {\n  int x = 1;\n}\n",
		"",
		"// just a comment\n",
		"class A { void m() { if (x > 0) { return; } } }",
		"class A<T extends Comparable<T>> { List<List<T>> f; }",
	}
	for _, src := range srcs {
		tree, _ := parseSrc(t, src)
		if got := tree.SourceText([]byte(src)); got != src {
			t.Fatalf("SourceText round-trip mismatch:\n got: %q\nwant: %q", got, src)
		}
	}
}

func TestLexAllCoversInputWithNoGaps(t *testing.T) {
	src := "class C { int x = 1 /* c */ ; }"
	toks := LexAll([]byte(src), "C.java")
	off := 0
	for _, tok := range toks {
		if tok.Span.Start.Offset != off {
			t.Fatalf("gap before token %v at offset %d, expected %d", tok.Kind, tok.Span.Start.Offset, off)
		}
		off = tok.Span.End.Offset
	}
	if off != len(src) {
		t.Fatalf("token stream covers [0,%d), want [0,%d)", off, len(src))
	}
}

func TestNestedGenericsSplitClosingAngles(t *testing.T) {
	src := "class C { Map<String, List<Integer>> m; }"
	tree, errs := parseSrc(t, src)
	for _, e := range errs {
		t.Fatalf("unexpected parse error: %s", e.Message)
	}
	if got := tree.SourceText([]byte(src)); got != src {
		t.Fatalf("round trip broke on nested generics: got %q want %q", got, src)
	}
}

func TestRecoveryProducesErrorNodeAndContinues(t *testing.T) {
	src := "class C { void m() { @#$ } void n() {} }"
	tree, errs := parseSrc(t, src)
	if len(errs) == 0 {
		t.Fatalf("expected at least one recorded parse error")
	}
	foundN := false
	Walk(tree, func(n *Node) bool {
		if n.Kind == KindMethodDecl {
			if id := n.FirstChildOfKind(KindIdentifier); id != nil && id.TokenLiteral() == "n" {
				foundN = true
			}
		}
		return true
	})
	if !foundN {
		t.Fatalf("expected parser to recover and still find method n()")
	}
}

func TestLambdaVsParenExprDisambiguation(t *testing.T) {
	srcs := []string{
		"class C { Runnable r = () -> {}; }",
		"class C { int x = (1 + 2) * 3; }",
		"class C { Function<Integer,Integer> f = (Integer i) -> i + 1; }",
	}
	for _, src := range srcs {
		tree, errs := parseSrc(t, src)
		for _, e := range errs {
			t.Fatalf("unexpected parse error for %q: %s", src, e.Message)
		}
		if got := tree.SourceText([]byte(src)); got != src {
			t.Fatalf("round trip mismatch for %q: got %q", src, got)
		}
	}
}

func TestCastVsParenExprDisambiguation(t *testing.T) {
	src := "class C { Object o = (String) x; int y = (x); }"
	tree, errs := parseSrc(t, src)
	for _, e := range errs {
		t.Fatalf("unexpected parse error: %s", e.Message)
	}
	var casts, parens int
	Walk(tree, func(n *Node) bool {
		switch n.Kind {
		case KindCastExpr:
			casts++
		case KindParenExpr:
			parens++
		}
		return true
	})
	if casts != 1 {
		t.Fatalf("expected exactly one cast expr, got %d", casts)
	}
	if parens != 1 {
		t.Fatalf("expected exactly one paren expr, got %d", parens)
	}
}

func TestNeverPanicsOnArbitraryBytes(t *testing.T) {
	inputs := [][]byte{
		nil,
		{0, 1, 2, 255},
		[]byte("class"),
		[]byte("\"unterminated"),
		[]byte("'x"),
		bytes.Repeat([]byte("}"), 50),
	}
	for _, in := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("parser panicked on %q: %v", in, r)
				}
			}()
			ParseCompilationUnit(bytes.NewReader(in))
		}()
	}
}
