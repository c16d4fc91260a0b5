package refactor

import (
	"strings"
	"testing"

	"github.com/nova-ide/nova/nova/index"
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

func strPtr(s string) *string { return &s }

func TestRenamePropagatesThroughHierarchyNoSpuriousEdits(t *testing.T) {
	src := `package p;
interface I { void m(); }
class C implements I { public void m() {} }
class D extends C {}
`
	ix := index.New()
	ix.Build("p/I.java", src, mustParse(t, "p/I.java", src))

	target, ok := ix.FindMethod("p.I", "m", nil)
	if !ok {
		t.Fatal("expected to find I.m")
	}

	we, err := ChangeSignature(ix, Plan{
		TargetMethodID:       target.ID,
		NewName:              strPtr("n"),
		HierarchyPropagation: PropagateBoth,
	})
	if err != nil {
		t.Fatalf("unexpected conflicts: %v", err)
	}
	if len(we.Edits) != 2 {
		t.Fatalf("expected exactly 2 rename edits (I.m and C.m), got %d: %+v", len(we.Edits), we.Edits)
	}
	for _, e := range we.Edits {
		if e.NewText != "n" {
			t.Errorf("expected every edit to rename to 'n', got %q", e.NewText)
		}
	}
}

func TestAddedParameterWithoutDefaultConflicts(t *testing.T) {
	src := `package p2;
class C { void m(int a) {} }
`
	ix := index.New()
	ix.Build("p2/C.java", src, mustParse(t, "p2/C.java", src))

	target, ok := ix.FindMethod("p2.C", "m", []string{"int"})
	if !ok {
		t.Fatal("expected to find C.m")
	}

	_, err := ChangeSignature(ix, Plan{
		TargetMethodID: target.ID,
		Parameters: []ParamOp{
			ExistingParam{OldIndex: 0},
			AddParam{Name: "b", Type: "String"},
		},
	})
	if err == nil {
		t.Fatal("expected a conflict for the added parameter with no default_value")
	}
	ce, ok := err.(*ConflictError)
	if !ok {
		t.Fatalf("expected *ConflictError, got %T", err)
	}
	found := false
	for _, c := range ce.Conflicts {
		if c.Kind == ConflictAddedParameterMissingDefault {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected AddedParameterMissingDefault among conflicts, got %+v", ce.Conflicts)
	}
}

func TestChangeSignatureRewritesCallSite(t *testing.T) {
	src := `package p3;
class C {
  void m(int a) { foo(); }
  void caller() { m(1); }
}
`
	ix := index.New()
	ix.Build("p3/C.java", src, mustParse(t, "p3/C.java", src))

	target, ok := ix.FindMethod("p3.C", "m", []string{"int"})
	if !ok {
		t.Fatal("expected to find C.m")
	}

	we, err := ChangeSignature(ix, Plan{
		TargetMethodID: target.ID,
		NewName:        strPtr("m2"),
	})
	if err != nil {
		t.Fatalf("unexpected conflicts: %v", err)
	}
	if len(we.Edits) != 2 {
		t.Fatalf("expected 2 edits (declaration + call site), got %d: %+v", len(we.Edits), we.Edits)
	}
	for _, e := range we.Edits {
		if e.NewText != "m2" {
			t.Errorf("expected every edit to rename to 'm2', got %q", e.NewText)
		}
	}
}

func TestRemovedParameterStillReferencedConflicts(t *testing.T) {
	src := `package p4;
class C { int m(int a) { return a + 1; } }
`
	ix := index.New()
	ix.Build("p4/C.java", src, mustParse(t, "p4/C.java", src))

	target, ok := ix.FindMethod("p4.C", "m", []string{"int"})
	if !ok {
		t.Fatal("expected to find C.m")
	}

	_, err := ChangeSignature(ix, Plan{
		TargetMethodID: target.ID,
		Parameters:     []ParamOp{}, // drop the only parameter entirely
	})
	if err == nil {
		t.Fatal("expected a conflict: parameter 'a' is still referenced in the body")
	}
	ce, ok := err.(*ConflictError)
	if !ok {
		t.Fatalf("expected *ConflictError, got %T", err)
	}
	found := false
	for _, c := range ce.Conflicts {
		if c.Kind == ConflictRemovedParameterReferenced {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected RemovedParameterReferenced among conflicts, got %+v", ce.Conflicts)
	}
}

func TestMissingTargetConflicts(t *testing.T) {
	src := `package p6;
class C { void m() {} }
`
	ix := index.New()
	ix.Build("p6/C.java", src, mustParse(t, "p6/C.java", src))

	_, err := ChangeSignature(ix, Plan{TargetMethodID: index.SymbolID(99999)})
	if err == nil {
		t.Fatal("expected a conflict for a target_method_id that doesn't resolve to a method")
	}
	ce, ok := err.(*ConflictError)
	if !ok {
		t.Fatalf("expected *ConflictError, got %T", err)
	}
	found := false
	for _, c := range ce.Conflicts {
		if c.Kind == ConflictMissingTarget {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected MissingTarget among conflicts, got %+v", ce.Conflicts)
	}
}

func TestChangeSignatureRewritesAnnotationShorthand(t *testing.T) {
	src := `package p5;
@interface Anno { String value(); }
@Anno("hello")
class C {}
`
	ix := index.New()
	ix.Build("p5/Anno.java", src, mustParse(t, "p5/Anno.java", src))

	target, ok := ix.FindMethod("p5.Anno", "value", nil)
	if !ok {
		t.Fatal("expected to find Anno.value")
	}

	we, err := ChangeSignature(ix, Plan{
		TargetMethodID: target.ID,
		NewName:        strPtr("text"),
	})
	if err != nil {
		t.Fatalf("unexpected conflicts: %v", err)
	}
	var sawShorthandInsert, sawDeclRename bool
	for _, e := range we.Edits {
		if e.NewText == "text = " {
			sawShorthandInsert = true
		}
		if e.NewText == "text" {
			sawDeclRename = true
		}
	}
	if !sawShorthandInsert {
		t.Fatalf("expected an inserted 'text = ' edit at the shorthand usage site, got %+v", we.Edits)
	}
	if !sawDeclRename {
		t.Fatalf("expected the value() declaration itself renamed to 'text', got %+v", we.Edits)
	}
}
