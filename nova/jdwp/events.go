package jdwp

// EventKind is JDWP's EventKind enum, restricted to what spec §4.6/§4.7
// recognize.
type EventKind byte

const (
	EventSingleStep               EventKind = 1
	EventBreakpoint                EventKind = 2
	EventException                 EventKind = 4
	EventMethodExit                 EventKind = 41
	EventMethodExitWithReturnValue EventKind = 42
	EventClassPrepare               EventKind = 8
	EventThreadStart                EventKind = 6
	EventThreadDeath                EventKind = 7
	EventVMDeath                    EventKind = 99
)

// SuspendPolicy is JDWP's SuspendPolicy enum.
type SuspendPolicy byte

const (
	SuspendNone      SuspendPolicy = 0
	SuspendEventThread SuspendPolicy = 1
	SuspendAll       SuspendPolicy = 2
)

// Event is one entry of a Composite event (spec §3 glossary: "Composite
// event" carries one or more simultaneous events).
type Event struct {
	Kind          EventKind
	RequestID     int
	Thread        ThreadID
	Location      *EventLocation // breakpoint/step/method-exit
	Exception     *ExceptionEventData
	ReturnValue   *Value // MethodExitWithReturnValue only
}

type EventLocation struct {
	TypeTag   TypeTag
	Type      ReferenceTypeID
	Method    MethodID
	CodeIndex int64
}

type ExceptionEventData struct {
	Location       EventLocation
	Exception      ObjectID
	ExceptionType  ReferenceTypeID
	Catch          *EventLocation // nil if uncaught
}

// MethodExitValue is a return/expression value parked for a thread until
// its next stop (spec §4.6: "the returned value is parked keyed by thread
// id; it is attached to the next stop on that thread").
type MethodExitValue struct {
	Value    Value
	ForStep  bool // true when produced alongside an active step request
}

// decodeComposite is a Client method (not a free function) so Location and
// thread ids decode at the connection's negotiated width (spec §4.6: the
// target may use 4- or 8-byte ids) rather than assuming one.
func (c *Client) decodeComposite(data []byte) []*Event {
	r := newReader(data)
	_ = SuspendPolicy(r.u1())
	n := int(r.u4())
	out := make([]*Event, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		kind := EventKind(r.u1())
		e := &Event{Kind: kind}
		switch kind {
		case EventSingleStep, EventBreakpoint, EventMethodExit:
			e.RequestID = int(r.u4())
			e.Thread = c.rThreadID(r)
			e.Location = c.decodeLocation(r)
		case EventMethodExitWithReturnValue:
			e.RequestID = int(r.u4())
			e.Thread = c.rThreadID(r)
			e.Location = c.decodeLocation(r)
			v := c.rValue(r)
			e.ReturnValue = &v
		case EventException:
			e.RequestID = int(r.u4())
			e.Thread = c.rThreadID(r)
			loc := c.decodeLocation(r)
			exObj := c.rObjectID(r)
			exType := c.rRefTypeID(r)
			hasCatch := r.u1()
			var catch *EventLocation
			if hasCatch != 0 {
				catch = c.decodeLocation(r)
			} else {
				c.decodeLocation(r) // still present on the wire, zeroed
			}
			e.Exception = &ExceptionEventData{Location: *loc, Exception: exObj, ExceptionType: exType, Catch: catch}
		case EventClassPrepare, EventThreadStart, EventThreadDeath:
			e.RequestID = int(r.u4())
			e.Thread = c.rThreadID(r)
		case EventVMDeath:
			e.RequestID = int(r.u4())
		default:
			// Unknown event kind: stop decoding further entries in this
			// composite rather than guess at its payload shape.
			return out
		}
		out = append(out, e)
	}
	return out
}

func (c *Client) decodeLocation(r *reader) *EventLocation {
	tag := TypeTag(r.u1())
	rt := c.rRefTypeID(r)
	m := c.rMethodID(r)
	idx := int64(r.u8())
	return &EventLocation{TypeTag: tag, Type: rt, Method: m, CodeIndex: idx}
}

// handleEvent implements spec §4.6's MethodExitWithReturnValue parking and
// step/method-exit-request bookkeeping: "active step and method-exit
// requests are cleared upon stop delivery and upon issuing a new step."
func (c *Client) handleEvent(e *Event) {
	if e.Kind == EventMethodExitWithReturnValue && e.ReturnValue != nil {
		c.pendingReturnsMu.Lock()
		c.pendingReturns[e.Thread] = &MethodExitValue{Value: *e.ReturnValue}
		c.pendingReturnsMu.Unlock()
	}
	switch e.Kind {
	case EventSingleStep, EventBreakpoint, EventException:
		c.clearStepState(e.Thread)
	}
}

// TakePendingReturn consumes (and clears) any method-exit return value
// parked for thread t, for attaching to the next stop (spec §4.6).
func (c *Client) TakePendingReturn(t ThreadID) (MethodExitValue, bool) {
	c.pendingReturnsMu.Lock()
	defer c.pendingReturnsMu.Unlock()
	v, ok := c.pendingReturns[t]
	if !ok {
		return MethodExitValue{}, false
	}
	delete(c.pendingReturns, t)
	return *v, true
}

func (c *Client) clearStepState(t ThreadID) {
	c.cacheMu.Lock()
	delete(c.stepRequests, t)
	c.cacheMu.Unlock()
}

// --- EventRequest.Set / Clear ---

type modifier struct {
	kind byte
	data []byte
}

const (
	modKindLocationOnly = 7
	modKindExceptionOnly = 8
	modKindThreadOnly    = 3
	modKindStep          = 10
)

// SetBreakpoint installs a Breakpoint request at the given location with
// SuspendPolicy.EVENT_THREAD (spec §4.6 set_line_breakpoint).
func (c *Client) SetBreakpoint(loc EventLocation) (int, error) {
	mw := &writer{}
	mw.u1(modKindLocationOnly)
	mw.u1(byte(loc.TypeTag))
	c.wRefTypeID(mw, loc.Type)
	c.wMethodID(mw, loc.Method)
	mw.u8(uint64(loc.CodeIndex))
	return c.eventRequestSet(EventBreakpoint, SuspendEventThread, [][]byte{mw.buf})
}

// SetStep installs a Step request for a thread (spec §4.6 next/step_in/
// step_out); size/depth follow JDWP's StepSize/StepDepth enums (size is
// always 1=line granularity; depth 0=into, 1=over, 2=out).
func (c *Client) SetStep(t ThreadID, depth int) (int, error) {
	mw := &writer{}
	mw.u1(modKindStep)
	c.wThreadID(mw, t)
	mw.u4(1) // size: line
	mw.u4(uint32(depth))
	id, err := c.eventRequestSet(EventSingleStep, SuspendEventThread, [][]byte{mw.buf})
	if err == nil {
		c.cacheMu.Lock()
		c.stepRequests[t] = id
		c.cacheMu.Unlock()
	}
	return id, err
}

// SetMethodExitWithReturnValue installs a method-exit-with-return-value
// request scoped to a thread, used alongside a step so the stop event
// carries the stepped-over call's return value (spec §4.6/§4.7).
func (c *Client) SetMethodExitWithReturnValue(t ThreadID) (int, error) {
	mw := &writer{}
	mw.u1(modKindThreadOnly)
	c.wThreadID(mw, t)
	return c.eventRequestSet(EventMethodExitWithReturnValue, SuspendEventThread, [][]byte{mw.buf})
}

// SetExceptionRequest enables exception events, optionally restricted to
// caught or uncaught exceptions (spec §4.7 setExceptionBreakpoints).
func (c *Client) SetExceptionRequest(caught, uncaught bool) (int, error) {
	mw := &writer{}
	mw.u1(modKindExceptionOnly)
	c.wRefTypeID(mw, 0) // refType: null = any
	mw.u1(boolByte(caught))
	mw.u1(boolByte(uncaught))
	return c.eventRequestSet(EventException, SuspendEventThread, [][]byte{mw.buf})
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func (c *Client) eventRequestSet(kind EventKind, policy SuspendPolicy, mods [][]byte) (int, error) {
	w := &writer{}
	w.u1(byte(kind))
	w.u1(byte(policy))
	w.u4(uint32(len(mods)))
	for _, m := range mods {
		w.bytes(m)
	}
	reply, err := c.request(csEventRequest, cmdEventRequestSet, w.buf)
	if err != nil {
		return 0, err
	}
	r := newReader(reply.Data)
	return int(r.u4()), r.err
}

// ClearEvent removes a previously-set request (spec §4.6/§4.7: "cleared
// upon stop delivery and upon issuing a new step").
func (c *Client) ClearEvent(kind EventKind, requestID int) error {
	w := &writer{}
	w.u1(byte(kind))
	w.u4(uint32(requestID))
	_, err := c.request(csEventRequest, cmdEventRequestClear, w.buf)
	return err
}
