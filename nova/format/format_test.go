package format

import (
	"strings"
	"testing"
)

func mustFormat(t *testing.T, src string, cfg Config) string {
	t.Helper()
	out, err := Format([]byte(src), cfg, 0)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	return out
}

func TestFormatIsIdempotent(t *testing.T) {
	srcs := []string{
		"class C{int x=1;void m( int a,int b ){if(a>b){return;}else{return;}}}",
		"package p;\n\nclass C {\n    // leading\n    int x;\n\n\n\n    int y;\n}\n",
		"class C { void m() { switch (x) { case 1: foo(); break; default: bar(); } } }",
		"interface I<T extends Comparable<T>> { List<Map<String, T>> f(); }",
	}
	cfg := DefaultConfig()
	for _, src := range srcs {
		once := mustFormat(t, src, cfg)
		twice, err := Format([]byte(once), cfg, 0)
		if err != nil {
			t.Fatalf("Format second pass: %v", err)
		}
		if once != twice {
			t.Fatalf("not idempotent:\n--- once ---\n%s\n--- twice ---\n%s", once, twice)
		}
	}
}

func TestFormatPreservesCommentText(t *testing.T) {
	src := "class C {\n  // a trailing remark\n  int x;\n}\n"
	out := mustFormat(t, src, DefaultConfig())
	if !strings.Contains(out, "// a trailing remark") {
		t.Fatalf("formatted output dropped the line comment:\n%s", out)
	}
}

func TestFormatCollapsesBlankRuns(t *testing.T) {
	src := "class C {\n  int a;\n\n\n\n\n  int b;\n}\n"
	out := mustFormat(t, src, DefaultConfig())
	if strings.Contains(out, "\n\n\n") {
		t.Fatalf("expected blank runs collapsed to a single blank line, got:\n%s", out)
	}
}

func TestFormatUnterminatedLiteralCopiesTailVerbatim(t *testing.T) {
	head := `class C { String s = `
	tail := `"never closes` + "\n"
	src := head + tail
	out := mustFormat(t, src, DefaultConfig())
	if len(out) < len(tail) {
		t.Fatalf("formatted output shorter than the unterminated tail alone: %q", out)
	}
	if got := out[len(out)-len(tail):]; got != tail {
		t.Fatalf("expected verbatim tail %q, got %q", tail, got)
	}
}

func TestFormatDotDotNeverFusesIntoEllipsis(t *testing.T) {
	src := "class C { void m(int... xs) { a.b.c(); } }"
	out := mustFormat(t, src, DefaultConfig())
	if strings.Contains(out, "c.b.a") {
		t.Fatalf("unexpected reordering")
	}
	if strings.Contains(out, "..") && !strings.Contains(out, "...") {
		t.Fatalf("formatter fused two '.' tokens into a non-varargs run: %s", out)
	}
}

func TestFormatTabsIndentStyle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IndentStyle = IndentTabs
	src := "class C {\nint x;\n}\n"
	out := mustFormat(t, src, cfg)
	if !strings.Contains(out, "\tint x;") {
		t.Fatalf("expected a tab-indented field, got %q", out)
	}
}
