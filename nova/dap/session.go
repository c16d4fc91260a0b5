package dap

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/nova-ide/nova/nova/config"
	"github.com/nova-ide/nova/nova/jdwp"
	"github.com/nova-ide/nova/nova/logging"
)

var log = logging.For("dap")

// Session is spec §4.7's DAP session: a single cooperative task over one
// transport, owning exactly one jdwp.Client and all handle tables.
// Concurrency discipline follows spec §5: requests are handled serially by
// Run's loop; the only other goroutine is jdwp.Client's own read loop,
// whose events flow back in through the client's Events() channel and get
// drained between requests, never concurrently with request handling.
type Session struct {
	transport *Transport
	jdwpConn  *jdwp.Client
	handles   *HandleTables

	capabilities Capabilities

	breakpointsBySource map[string][]breakpointEntry
	exceptionCaught     bool
	exceptionUncaught   bool

	// per-thread step bookkeeping so next/stepIn/stepOut know whether to
	// surface a captured expression/return value before the stopped event
	// (spec §4.6/§4.7 ordering guarantee).
	stepDepth map[jdwp.ThreadID]int

	// lastExceptionByThread records the exception object that produced the
	// most recent exception stop on each thread, so exceptionInfo (spec
	// §4.7) has something to describe — JDWP's Event.Exception carries the
	// object, but StackFrame state doesn't, so the session must remember it.
	lastExceptionByThread map[jdwp.ThreadID]jdwp.ObjectID

	hotSwapTempDirs []string

	// methodReturnValuesEnabled tracks which threads have opted in to
	// captured return/expression values on their next/stepIn/stepOut (spec
	// §4.6/§4.7's nova/enableMethodReturnValues extension).
	methodReturnValuesEnabled map[jdwp.ThreadID]bool

	mu   sync.Mutex // guards breakpointsBySource, stepDepth, lastExceptionByThread, hotSwapTempDirs, methodReturnValuesEnabled
	quit chan struct{}
}

type breakpointEntry struct {
	Line      int
	CodeIndex int64
	Type      jdwp.ReferenceTypeID
	Method    jdwp.MethodID
	RequestID int
}

// Capabilities is spec §4.7 initialize's response (spec §6's
// "supported capabilities").
type Capabilities struct {
	SupportsConfigurationDoneRequest bool `json:"supportsConfigurationDoneRequest"`
	SupportsSetVariable              bool `json:"supportsSetVariable"`
	SupportsStepInTargetsRequest     bool `json:"supportsStepInTargetsRequest"`
	SupportsExceptionOptions         bool `json:"supportsExceptionOptions"`
	SupportsEvaluateForHovers        bool `json:"supportsEvaluateForHovers"`
	SupportsHotSwap                  bool `json:"supportsHotSwap"`
	SupportsPinObject                bool `json:"supportsPinObject"`
	SupportsRedefineClasses          bool `json:"supportsRedefineClasses"`
}

func defaultCapabilities() Capabilities {
	return Capabilities{
		SupportsConfigurationDoneRequest: true,
		SupportsSetVariable:              true,
		SupportsStepInTargetsRequest:     true,
		SupportsExceptionOptions:         true,
		SupportsEvaluateForHovers:        true,
		SupportsHotSwap:                  true,
		SupportsPinObject:                true,
		SupportsRedefineClasses:          true,
	}
}

// NewSession builds a session over an established transport. attach
// installs the JDWP connection, so a freshly built Session has no
// jdwpConn until its "attach" request is handled.
func NewSession(transport *Transport) *Session {
	return &Session{
		transport:             transport,
		handles:               NewHandleTables(),
		capabilities:          defaultCapabilities(),
		breakpointsBySource:       make(map[string][]breakpointEntry),
		stepDepth:                 make(map[jdwp.ThreadID]int),
		lastExceptionByThread:     make(map[jdwp.ThreadID]jdwp.ObjectID),
		methodReturnValuesEnabled: make(map[jdwp.ThreadID]bool),
		quit:                      make(chan struct{}),
	}
}

func (s *Session) recordException(t jdwp.ThreadID, obj jdwp.ObjectID) {
	s.mu.Lock()
	s.lastExceptionByThread[t] = obj
	s.mu.Unlock()
}

func (s *Session) lastException(t jdwp.ThreadID) (jdwp.ObjectID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.lastExceptionByThread[t]
	return obj, ok
}

// Run is the session's cooperative loop (spec §5, §9: "single task +
// channel of incoming messages"). It returns when the transport closes or
// disconnect is handled.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-s.quit:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := s.transport.ReadMessage()
		if err != nil {
			return err
		}
		if msg.Type != "request" {
			continue
		}

		// Drain any JDWP events queued since the previous request before
		// handling this one, so stop events are never stale by the time a
		// client reacts to them (spec §5's event-ordering guarantee).
		s.drainEvents()

		resp := s.dispatch(msg)
		if resp != nil {
			if err := s.transport.WriteMessage(resp); err != nil {
				return err
			}
		}
	}
}

func (s *Session) dispatch(req *Message) *Message {
	handler, ok := handlers[req.Command]
	if !ok {
		return newErrorResponse(req, fmt.Sprintf("unknown command %q", req.Command))
	}
	body, err := handler(s, req)
	if err != nil {
		return newErrorResponse(req, err.Error())
	}
	return newResponse(req, body)
}

// handlerFunc is one DAP command's implementation: decode req.Arguments,
// do the work, return the response body (or an error mapped to
// success=false per spec §7).
type handlerFunc func(s *Session, req *Message) (any, error)

var handlers = map[string]handlerFunc{
	"initialize":             (*Session).handleInitialize,
	"attach":                 (*Session).handleAttach,
	"disconnect":             (*Session).handleDisconnect,
	"setBreakpoints":         (*Session).handleSetBreakpoints,
	"setExceptionBreakpoints": (*Session).handleSetExceptionBreakpoints,
	"threads":                (*Session).handleThreads,
	"stackTrace":             (*Session).handleStackTrace,
	"scopes":                 (*Session).handleScopes,
	"variables":              (*Session).handleVariables,
	"setVariable":            (*Session).handleSetVariable,
	"continue":               (*Session).handleContinue,
	"next":                   (*Session).handleNext,
	"stepIn":                 (*Session).handleStepIn,
	"stepOut":                (*Session).handleStepOut,
	"pause":                  (*Session).handlePause,
	"stepInTargets":          (*Session).handleStepInTargets,
	"exceptionInfo":          (*Session).handleExceptionInfo,
	"evaluate":               (*Session).handleEvaluate,
	"redefineClasses":        (*Session).handleRedefineClasses,
	"nova/hotSwap":           (*Session).handleHotSwap,
	"nova/pinObject":         (*Session).handlePinObject,
	"nova/enableMethodReturnValues": (*Session).handleEnableMethodReturnValues,
}

func decodeArgs(req *Message, v any) error {
	if len(req.Arguments) == 0 {
		return nil
	}
	return json.Unmarshal(req.Arguments, v)
}

// emitEvent writes an event frame. Used both from request handlers (e.g.
// the "Expression value: …" output before a stopped event) and from the
// background event pump.
func (s *Session) emitEvent(name string, body any) {
	_ = s.transport.WriteMessage(newEvent(name, body))
}

// drainEvents dispatches every JDWP event queued since the last drain,
// non-blockingly, converting Step/Breakpoint/Exception stops into DAP
// "stopped" events and invalidating per-stop handles on any resume that
// produced an event (spec §4.7 state machine).
func (s *Session) drainEvents() {
	if s.jdwpConn == nil {
		return
	}
	for {
		select {
		case e := <-s.jdwpConn.Events():
			s.handleJDWPEvent(e)
		default:
			return
		}
	}
}

func (s *Session) handleJDWPEvent(e *jdwp.Event) {
	switch e.Kind {
	case jdwp.EventBreakpoint, jdwp.EventSingleStep, jdwp.EventException:
		s.handles.InvalidateStop()
		reason := "breakpoint"
		switch e.Kind {
		case jdwp.EventSingleStep:
			reason = "step"
		case jdwp.EventException:
			reason = "exception"
			if e.Exception != nil {
				s.recordException(e.Thread, e.Exception.Exception)
			}
		}
		if reason == "step" {
			if v, ok := s.jdwpConn.TakePendingReturn(e.Thread); ok {
				s.emitEvent("output", OutputBody{Category: "console", Output: "Expression value: " + s.renderValueForOutput(v.Value)})
			}
		}
		s.emitEvent("stopped", StoppedBody{Reason: reason, ThreadID: int(e.Thread), AllThreadsStopped: false})
	}
}

func (s *Session) renderValueForOutput(v jdwp.Value) string {
	if !v.IsObject() {
		return fmt.Sprintf("%v", v.Prim)
	}
	if v.Obj == 0 {
		return "null"
	}
	p, err := s.jdwpConn.PreviewObject(v.Obj)
	if err != nil {
		return fmt.Sprintf("#%d", v.Obj)
	}
	return p.Text
}

// Shutdown stops Run's loop and tears down the JDWP connection, unpinning
// every pinned object first (spec §5: pinning "is always paired with an
// enable on unpin or on session shutdown").
func (s *Session) Shutdown() {
	if s.jdwpConn != nil {
		for _, h := range s.handles.PinnedHandles() {
			if obj, ok := s.handles.ObjectForHandle(h); ok {
				s.jdwpConn.EnableCollection(obj)
			}
		}
		s.jdwpConn.Close()
	}
	s.mu.Lock()
	dirs := s.hotSwapTempDirs
	s.hotSwapTempDirs = nil
	s.mu.Unlock()
	if !config.KeepHotSwapTemp() {
		for _, d := range dirs {
			os.RemoveAll(d)
		}
	}
	close(s.quit)
}
