package dap

import (
	"sort"

	"github.com/sasha-s/go-deadlock"

	"github.com/nova-ide/nova/nova/jdwp"
)

// Handle ranges (spec §3 ObjectHandle, §4.7): three disjoint DAP
// variablesReference ranges coexist in one session.
const (
	frameHandleBase  = 1
	scopeHandleBase  = 100000
	// ObjectHandleBase is spec §3's OBJECT_HANDLE_BASE: every object handle
	// is >= this value, long-lived across stops.
	ObjectHandleBase = 1000000
	// PinnedScopeRef is spec §3's PINNED_SCOPE_REF: the one synthetic
	// reference reserved for the pinned-objects scope, distinct from both
	// per-stop scope handles and real object handles.
	PinnedScopeRef = ObjectHandleBase - 1
)

// FrameContext is spec §3's FrameContext, cached per frame handle until the
// owning thread resumes.
type FrameContext struct {
	ThreadID  jdwp.ThreadID
	FrameID   jdwp.FrameID
	TypeID    jdwp.ReferenceTypeID
	MethodID  jdwp.MethodID
	CodeIndex int64
}

// ScopeKind distinguishes a stack frame's Local/Static scopes from the
// session-wide pinned scope (spec §4.7).
type ScopeKind int

const (
	ScopeLocal ScopeKind = iota
	ScopeStatic
	ScopePinned
)

type scopeEntry struct {
	kind  ScopeKind
	frame int // frame handle this scope belongs to (0 for the pinned scope)
}

// HandleTables owns a session's three handle ranges. Frame and scope
// handles are wiped on every resume (spec §4.7's "invalidated on resume");
// object handles persist until explicitly dropped (they never are, short
// of session shutdown) per spec §3's "object handles remain valid as long
// as the underlying JVM object is alive and known to the session". Guarded
// by go-deadlock's Mutex, the same concurrency-sensitive-state dependency
// the workspace cache uses, since the session and any background event
// delivery can touch these tables from different goroutines.
type HandleTables struct {
	mu deadlock.Mutex

	generation int // bumped on every resume; invalidates frame/scope handles

	nextFrame int
	frames    map[int]frameRecord

	nextScope int
	scopes    map[int]scopeEntry

	nextObject  int
	objects     map[int]jdwp.ObjectID
	objectToRef map[jdwp.ObjectID]int

	pinned map[int]bool // object handle -> pinned
}

type frameRecord struct {
	generation int
	ctx        FrameContext
}

func NewHandleTables() *HandleTables {
	return &HandleTables{
		frames:      make(map[int]frameRecord),
		scopes:      make(map[int]scopeEntry),
		objects:     make(map[int]jdwp.ObjectID),
		objectToRef: make(map[jdwp.ObjectID]int),
		pinned:      make(map[int]bool),
		nextFrame:   frameHandleBase,
		nextScope:   scopeHandleBase,
		nextObject:  ObjectHandleBase,
	}
}

// InvalidateStop bumps the generation, invalidating every outstanding
// frame/scope handle (spec §4.7: resume, next, step_in, step_out, or a
// stepInTargets-driven step). Object handles and pinning state survive.
func (h *HandleTables) InvalidateStop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.generation++
	h.frames = make(map[int]frameRecord)
	h.scopes = make(map[int]scopeEntry)
	h.nextFrame = frameHandleBase
	h.nextScope = scopeHandleBase
}

// AllocFrame returns the frame handle for ctx in the current stop, stable
// across repeated stackTrace queries within the same stop: a new handle is
// only minted for a context not already recorded since the last
// InvalidateStop.
func (h *HandleTables) AllocFrame(ctx FrameContext) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, rec := range h.frames {
		if rec.ctx == ctx {
			return id
		}
	}
	id := h.nextFrame
	h.nextFrame++
	h.frames[id] = frameRecord{generation: h.generation, ctx: ctx}
	return id
}

// LookupFrame returns the FrameContext for a frame handle, failing if the
// handle is stale (spec §4.7: "looking up a stale frame handle fails").
func (h *HandleTables) LookupFrame(handle int) (FrameContext, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, ok := h.frames[handle]
	if !ok || rec.generation != h.generation {
		return FrameContext{}, false
	}
	return rec.ctx, true
}

// AllocScope mints a Local or Static scope handle bound to a frame handle.
func (h *HandleTables) AllocScope(frame int, kind ScopeKind) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextScope
	h.nextScope++
	h.scopes[id] = scopeEntry{kind: kind, frame: frame}
	return id
}

// LookupScope reports a scope handle's kind and owning frame. A stale
// scope handle (spec §4.7: "returns an empty variable list") is reported
// via the bool return rather than panicking; callers render it as zero
// variables instead of erroring.
func (h *HandleTables) LookupScope(handle int) (ScopeKind, int, bool) {
	if handle == PinnedScopeRef {
		return ScopePinned, 0, true
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.scopes[handle]
	if !ok {
		return 0, 0, false
	}
	// A scope handle minted in an earlier generation is stale even though
	// its integer key might coincidentally still be present after wraps;
	// InvalidateStop already clears the map each generation, so presence
	// alone is sufficient here.
	return e.kind, e.frame, true
}

// HandleForObject returns the stable handle for a JVM object, minting one
// on first sight (spec §3: object handles are stable across stops as long
// as the underlying JVM object is alive and known to the session).
func (h *HandleTables) HandleForObject(obj jdwp.ObjectID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ref, ok := h.objectToRef[obj]; ok {
		return ref
	}
	ref := h.nextObject
	h.nextObject++
	h.objects[ref] = obj
	h.objectToRef[obj] = ref
	return ref
}

// ObjectForHandle resolves an object handle back to its JVM object id.
func (h *HandleTables) ObjectForHandle(handle int) (jdwp.ObjectID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	obj, ok := h.objects[handle]
	return obj, ok
}

// Pin marks an object handle pinned; Unpin clears it. PinnedHandles lists
// every currently-pinned handle for the synthetic pinned scope's children
// (spec §4.7).
func (h *HandleTables) Pin(handle int)   { h.mu.Lock(); h.pinned[handle] = true; h.mu.Unlock() }
func (h *HandleTables) Unpin(handle int) { h.mu.Lock(); delete(h.pinned, handle); h.mu.Unlock() }
func (h *HandleTables) IsPinned(handle int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pinned[handle]
}
func (h *HandleTables) PinnedHandles() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]int, 0, len(h.pinned))
	for ref := range h.pinned {
		out = append(out, ref)
	}
	sort.Ints(out)
	return out
}
