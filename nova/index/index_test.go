package index

import (
	"strings"
	"testing"

	"github.com/nova-ide/nova/nova/syntax"
)

func mustParse(t *testing.T, path, src string) *syntax.Node {
	t.Helper()
	tree, errs := syntax.ParseCompilationUnit(strings.NewReader(src), syntax.WithFile(path))
	for _, e := range errs {
		t.Fatalf("unexpected parse error in %s: %s", path, e.Message)
	}
	return tree
}

func TestBuildIndexesClassMembers(t *testing.T) {
	src := `package p;
class C {
  int x;
  void m(int a, String b) {}
  void m(int a) {}
}
`
	ix := New()
	ix.Build("C.java", src, mustParse(t, "C.java", src))

	methods := ix.FindMethodsByName("p.C", "m")
	if len(methods) != 2 {
		t.Fatalf("expected 2 overloads, got %d", len(methods))
	}

	one, ok := ix.FindMethod("p.C", "m", []string{"int"})
	if !ok {
		t.Fatalf("expected to find m(int)")
	}
	if len(one.ParamTypes) != 1 || one.ParamTypes[0] != "int" {
		t.Fatalf("unexpected param types: %v", one.ParamTypes)
	}

	two, ok := ix.FindMethod("p.C", "m", []string{"int", "String"})
	if !ok || len(two.ParamTypes) != 2 {
		t.Fatalf("expected to find m(int, String), got %v ok=%v", two, ok)
	}
}

func TestHierarchyWalks(t *testing.T) {
	src := `package p;
interface I { void m(); }
class C implements I { public void m() {} }
class D extends C {}
`
	ix := New()
	ix.Build("f.java", src, mustParse(t, "f.java", src))

	if !ix.IsInterface("p.I") {
		t.Fatalf("expected p.I to be an interface")
	}
	if got := ix.ClassExtends("p.D"); got != "p.C" {
		t.Fatalf("expected p.D extends p.C, got %q", got)
	}
	impl := ix.ClassImplements("p.C")
	if len(impl) != 1 || impl[0] != "p.I" {
		t.Fatalf("expected p.C implements [p.I], got %v", impl)
	}

	im, _ := ix.FindMethod("p.I", "m", nil)
	overrides := ix.FindOverrides("p.I", im)
	var names []string
	for _, s := range overrides {
		names = append(names, s.Container)
	}
	if len(names) != 1 || names[0] != "p.C" {
		t.Fatalf("expected p.I.m overridden by p.C only, got %v", names)
	}

	cm, _ := ix.FindMethod("p.C", "m", nil)
	overridden := ix.FindOverridden("p.C", cm)
	if len(overridden) != 1 || overridden[0].Container != "p.I" {
		t.Fatalf("expected p.C.m to override p.I.m, got %v", overridden)
	}
}

func TestFindNameCandidatesClassifiesReferences(t *testing.T) {
	src := `package p;
class C {
  void m() {
    int x = 1;
    x = 2;
    foo(x);
  }
}
`
	ix := New()
	ix.Build("f.java", src, mustParse(t, "f.java", src))

	refs := ix.FindNameCandidates("x")
	var reads, writes int
	for _, r := range refs {
		switch r.Kind {
		case ReferenceRead:
			reads++
		case ReferenceWrite:
			writes++
		}
	}
	if writes != 1 {
		t.Fatalf("expected exactly one write of x, got %d (refs=%v)", writes, refs)
	}
	if reads < 1 {
		t.Fatalf("expected at least one read of x, got %d", reads)
	}

	fooRefs := ix.FindNameCandidates("foo")
	if len(fooRefs) != 1 || fooRefs[0].Kind != ReferenceCall {
		t.Fatalf("expected foo to be a single call reference, got %v", fooRefs)
	}
}

func TestReindexReplacesSymbols(t *testing.T) {
	ix := New()
	src1 := "package p;\nclass C { void a() {} }\n"
	ix.Build("C.java", src1, mustParse(t, "C.java", src1))
	first, ok := ix.FindMethod("p.C", "a", nil)
	if !ok {
		t.Fatalf("expected to find a()")
	}

	src2 := "package p;\nclass C { void b() {} }\n"
	ix.Build("C.java", src2, mustParse(t, "C.java", src2))

	if _, ok := ix.FindMethod("p.C", "a", nil); ok {
		t.Fatalf("expected a() to be gone after re-index")
	}
	if _, ok := ix.Symbol(first.ID); ok {
		t.Fatalf("expected stale symbol id to no longer resolve")
	}
	if _, ok := ix.FindMethod("p.C", "b", nil); !ok {
		t.Fatalf("expected to find b() after re-index")
	}
}
