// Package dap implements spec §4.7's DAP session: a long-lived,
// single-threaded cooperative loop translating Debug Adapter Protocol
// requests into JDWP operations, owning one jdwp.Client and all handle
// tables. Session/handle-table shape is grounded in the teacher's
// java/codebase/lsp.go handler-table dispatch (a struct of method-valued
// fields keyed by command name), even though glsp itself is not imported
// (see DESIGN.md) — jsonrpc2's length-delimited JSON codec covers the wire
// framing glsp would otherwise have provided.
package dap

import "encoding/json"

// Message is the envelope every DAP wire message shares (spec §6):
// requests, responses, and events all carry seq/type, plus
// type-specific fields left as raw JSON until dispatch.
type Message struct {
	Seq  int    `json:"seq"`
	Type string `json:"type"` // "request", "response", "event"

	// request
	Command   string          `json:"command,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`

	// response
	RequestSeq int             `json:"request_seq,omitempty"`
	Success    bool            `json:"success,omitempty"`
	Message    string          `json:"message,omitempty"`
	Body       json.RawMessage `json:"body,omitempty"` // response or event payload

	// event
	Event string `json:"event,omitempty"`
}

// newResponse builds a success response envelope for a request.
func newResponse(req *Message, body any) *Message {
	m := &Message{Type: "response", RequestSeq: req.Seq, Success: true, Command: req.Command}
	if body != nil {
		b, _ := json.Marshal(body)
		m.Body = b
	}
	return m
}

// newErrorResponse builds a failure response (spec §7: "maps them to
// success=false DAP responses with a human-readable message").
func newErrorResponse(req *Message, message string) *Message {
	return &Message{Type: "response", RequestSeq: req.Seq, Success: false, Command: req.Command, Message: message}
}

// newEvent builds an event envelope.
func newEvent(name string, body any) *Message {
	m := &Message{Type: "event", Event: name}
	if body != nil {
		b, _ := json.Marshal(body)
		m.Body = b
	}
	return m
}

// StoppedBody is the body of a "stopped" event (spec §6: reason in
// {breakpoint, step, pause, exception}, plus allThreadsStopped).
type StoppedBody struct {
	Reason            string `json:"reason"`
	ThreadID          int    `json:"threadId"`
	AllThreadsStopped bool   `json:"allThreadsStopped"`
	Description       string `json:"description,omitempty"`
	Text              string `json:"text,omitempty"`
}

// OutputBody is the body of an "output" event.
type OutputBody struct {
	Category string `json:"category,omitempty"`
	Output   string `json:"output"`
}

// ContinuedBody is the body of a "continued" event.
type ContinuedBody struct {
	ThreadID            int  `json:"threadId"`
	AllThreadsContinued bool `json:"allThreadsContinued"`
}
