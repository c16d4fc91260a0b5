package dap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/nova-ide/nova/nova/jdwp"
)

type initializeArgs struct {
	ClientID string `json:"clientID"`
}

func (s *Session) handleInitialize(req *Message) (any, error) {
	var args initializeArgs
	decodeArgs(req, &args)
	log.Infof("initialize from client %q", args.ClientID)
	return s.capabilities, nil
}

type attachArgs struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// handleAttach connects the JDWP client (spec §4.7 attach(host, port)).
func (s *Session) handleAttach(req *Message) (any, error) {
	var args attachArgs
	if err := decodeArgs(req, &args); err != nil {
		return nil, errors.Wrap(err, "decode attach arguments")
	}
	addr := fmt.Sprintf("%s:%d", args.Host, args.Port)
	conn, err := jdwp.Connect(context.Background(), addr, 10, 200*time.Millisecond)
	if err != nil {
		return nil, errors.Wrapf(err, "attach to %s", addr)
	}
	s.jdwpConn = conn
	log.Infof("attached to %s", addr)
	return struct{}{}, nil
}

func (s *Session) handleDisconnect(req *Message) (any, error) {
	s.Shutdown()
	return struct{}{}, nil
}

type source struct {
	Path string `json:"path"`
	Name string `json:"name,omitempty"`
}

type setBreakpointsArgs struct {
	Source      source `json:"source"`
	Breakpoints []struct {
		Line int `json:"line"`
	} `json:"breakpoints"`
}

type breakpointResult struct {
	Verified bool `json:"verified"`
	Line     int  `json:"line,omitempty"`
	Message  string `json:"message,omitempty"`
}

// classNameFromSourcePath infers a fully-qualified class name from a
// source path the way a DAP front-end normally would: everything after
// the last recognizable source root, dotted, sans ".java" (spec §4.7:
// "inferred from source path").
func classNameFromSourcePath(path string) string {
	p := strings.TrimSuffix(path, ".java")
	for _, root := range []string{"src/main/java/", "src/test/java/", "src/"} {
		if idx := strings.Index(p, root); idx != -1 {
			p = p[idx+len(root):]
			break
		}
	}
	p = strings.TrimPrefix(p, "/")
	return strings.ReplaceAll(p, "/", ".")
}

// handleSetBreakpoints resolves each requested line to the nearest
// executable line in the class's line table (spec §4.7).
func (s *Session) handleSetBreakpoints(req *Message) (any, error) {
	var args setBreakpointsArgs
	if err := decodeArgs(req, &args); err != nil {
		return nil, err
	}
	if s.jdwpConn == nil {
		return nil, errors.New("not attached")
	}
	className := classNameFromSourcePath(args.Source.Path)

	s.mu.Lock()
	delete(s.breakpointsBySource, args.Source.Path)
	s.mu.Unlock()

	results := make([]breakpointResult, 0, len(args.Breakpoints))
	var entries []breakpointEntry
	for _, bp := range args.Breakpoints {
		reqID, resolved, err := s.jdwpConn.SetLineBreakpoint(className, "", bp.Line)
		if err != nil {
			results = append(results, breakpointResult{Verified: false, Message: err.Error()})
			continue
		}
		results = append(results, breakpointResult{Verified: true, Line: resolved})
		entries = append(entries, breakpointEntry{Line: resolved, RequestID: reqID})
	}
	s.mu.Lock()
	s.breakpointsBySource[args.Source.Path] = entries
	s.mu.Unlock()

	return struct {
		Breakpoints []breakpointResult `json:"breakpoints"`
	}{results}, nil
}

type setExceptionBreakpointsArgs struct {
	Filters []string `json:"filters"`
}

// handleSetExceptionBreakpoints enables caught/uncaught exception events
// (spec §4.7). Filter names "caught"/"uncaught" follow the common DAP
// exceptionBreakpointFilters convention.
func (s *Session) handleSetExceptionBreakpoints(req *Message) (any, error) {
	var args setExceptionBreakpointsArgs
	if err := decodeArgs(req, &args); err != nil {
		return nil, err
	}
	if s.jdwpConn == nil {
		return nil, errors.New("not attached")
	}
	caught, uncaught := false, false
	for _, f := range args.Filters {
		switch f {
		case "caught":
			caught = true
		case "uncaught":
			uncaught = true
		}
	}
	s.mu.Lock()
	s.exceptionCaught, s.exceptionUncaught = caught, uncaught
	s.mu.Unlock()
	if caught || uncaught {
		if _, err := s.jdwpConn.SetExceptionRequest(caught, uncaught); err != nil {
			return nil, err
		}
	}
	return struct{}{}, nil
}

type exceptionInfoArgs struct {
	ThreadID int `json:"threadId"`
}

type exceptionInfoResult struct {
	ExceptionID string `json:"exceptionId"`
	Description string `json:"description"`
	BreakMode   string `json:"breakMode"`
	Details     struct {
		Message    string `json:"message"`
		TypeName   string `json:"typeName"`
		FullTypeName string `json:"fullTypeName"`
	} `json:"details"`
}

// handleExceptionInfo returns the fully-qualified type name, simple name,
// description, and break mode of the exception at the current stop (spec
// §4.7).
func (s *Session) handleExceptionInfo(req *Message) (any, error) {
	var args exceptionInfoArgs
	if err := decodeArgs(req, &args); err != nil {
		return nil, err
	}
	if s.jdwpConn == nil {
		return nil, errors.New("not attached")
	}
	frames, err := s.jdwpConn.Frames(jdwp.ThreadID(args.ThreadID))
	if err != nil || len(frames) == 0 {
		return nil, errors.New("no current exception on this thread")
	}
	// The exception object itself isn't part of StackFrame state; a real
	// adapter tracks it from the Event.Exception that produced the stop.
	// This session looks it up the same way: the last exception event
	// recorded for the thread by handleJDWPEvent.
	exObj, ok := s.lastException(jdwp.ThreadID(args.ThreadID))
	if !ok {
		return nil, errors.New("no current exception on this thread")
	}
	_, rt, err := s.jdwpConn.ObjectReferenceType(exObj)
	if err != nil {
		return nil, err
	}
	sig, err := s.jdwpConn.Signature(rt)
	if err != nil {
		return nil, err
	}
	full := strings.TrimSuffix(strings.TrimPrefix(sig, "L"), ";")
	full = strings.ReplaceAll(full, "/", ".")
	simple := full
	if idx := strings.LastIndex(full, "."); idx != -1 {
		simple = full[idx+1:]
	}
	preview, _ := s.jdwpConn.PreviewObject(exObj)
	desc := simple
	if preview != nil {
		desc = preview.Text
	}
	mode := "unhandled"
	if s.exceptionCaught {
		mode = "always"
	}
	var result exceptionInfoResult
	result.ExceptionID = full
	result.Description = desc
	result.BreakMode = mode
	result.Details.Message = desc
	result.Details.TypeName = simple
	result.Details.FullTypeName = full
	return result, nil
}
