package dap

import (
	"testing"

	"github.com/nova-ide/nova/nova/jdwp"
)

func TestHandleTables_RepeatedStackTraceReturnsSameFrameHandle(t *testing.T) {
	h := NewHandleTables()
	ctx := FrameContext{ThreadID: 1, TypeID: 10, MethodID: 20}

	first := h.AllocFrame(ctx)
	second := h.AllocFrame(ctx)
	if first != second {
		t.Fatalf("AllocFrame returned %d then %d for the same context; want the same handle within one stop", first, second)
	}
	got, ok := h.LookupFrame(first)
	if !ok || got != ctx {
		t.Fatalf("LookupFrame(%d) = %+v, %v; want %+v, true", first, got, ok, ctx)
	}
}

func TestHandleTables_FrameHandleInvalidatedAfterResume(t *testing.T) {
	h := NewHandleTables()
	handle := h.AllocFrame(FrameContext{ThreadID: 1})

	h.InvalidateStop()

	if _, ok := h.LookupFrame(handle); ok {
		t.Fatal("expected a frame handle from before the resume to fail to resolve")
	}
}

func TestHandleTables_ScopeHandleEmptyAfterResume(t *testing.T) {
	h := NewHandleTables()
	frame := h.AllocFrame(FrameContext{ThreadID: 1})
	scope := h.AllocScope(frame, ScopeLocal)

	h.InvalidateStop()

	kind, _, ok := h.LookupScope(scope)
	if ok {
		t.Fatalf("expected a stale scope handle to fail lookup, got kind=%v", kind)
	}
}

func TestHandleTables_PinnedScopeRefAlwaysResolves(t *testing.T) {
	h := NewHandleTables()
	kind, _, ok := h.LookupScope(PinnedScopeRef)
	if !ok || kind != ScopePinned {
		t.Fatalf("PinnedScopeRef should always resolve to ScopePinned, got kind=%v ok=%v", kind, ok)
	}
	h.InvalidateStop()
	kind, _, ok = h.LookupScope(PinnedScopeRef)
	if !ok || kind != ScopePinned {
		t.Fatal("PinnedScopeRef must survive InvalidateStop, unlike per-stop scope handles")
	}
}

func TestHandleTables_ObjectHandleSurvivesAcrossStops(t *testing.T) {
	h := NewHandleTables()
	obj := jdwp.ObjectID(777)

	ref := h.HandleForObject(obj)
	if ref < ObjectHandleBase {
		t.Fatalf("object handle %d should be >= ObjectHandleBase %d", ref, ObjectHandleBase)
	}

	h.InvalidateStop()

	again := h.HandleForObject(obj)
	if again != ref {
		t.Fatalf("HandleForObject should return the same handle for the same object across stops: got %d, want %d", again, ref)
	}
	resolved, ok := h.ObjectForHandle(ref)
	if !ok || resolved != obj {
		t.Fatalf("ObjectForHandle(%d) = %v, %v; want %v, true", ref, resolved, ok, obj)
	}
}

func TestHandleTables_PinUnpin(t *testing.T) {
	h := NewHandleTables()
	ref := h.HandleForObject(42)

	if h.IsPinned(ref) {
		t.Fatal("a fresh object handle should not start pinned")
	}
	h.Pin(ref)
	if !h.IsPinned(ref) {
		t.Fatal("expected the handle to be pinned after Pin")
	}
	pinned := h.PinnedHandles()
	if len(pinned) != 1 || pinned[0] != ref {
		t.Fatalf("PinnedHandles() = %v, want [%d]", pinned, ref)
	}
	h.Unpin(ref)
	if h.IsPinned(ref) {
		t.Fatal("expected the handle to be unpinned after Unpin")
	}
	if len(h.PinnedHandles()) != 0 {
		t.Fatal("expected no pinned handles after Unpin")
	}
}

func TestClassNameFromSourcePath(t *testing.T) {
	cases := map[string]string{
		"/repo/src/main/java/com/acme/Main.java": "com.acme.Main",
		"/repo/src/test/java/com/acme/MainTest.java": "com.acme.MainTest",
		"src/Main.java": "Main",
	}
	for path, want := range cases {
		if got := classNameFromSourcePath(path); got != want {
			t.Errorf("classNameFromSourcePath(%q) = %q, want %q", path, got, want)
		}
	}
}
