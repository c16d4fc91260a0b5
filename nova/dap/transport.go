package dap

import (
	"bufio"
	"io"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
)

// Transport frames DAP messages the way LSP does — a Content-Length
// header followed by a JSON body — reusing jsonrpc2's
// VSCodeObjectCodec purely for that length-delimited encode/decode (spec
// §6's wire format), not for jsonrpc2's own method/id request-matching,
// which doesn't fit DAP's seq/type envelope.
type Transport struct {
	codec jsonrpc2.ObjectCodec
	r     *bufio.Reader
	w     io.Writer
	wMu   sync.Mutex
}

// NewTransport wraps rw (typically a stdio pipe or a TCP connection from
// the IDE front-end) in DAP's length-delimited JSON framing.
func NewTransport(rw io.ReadWriter) *Transport {
	return &Transport{
		codec: jsonrpc2.VSCodeObjectCodec{},
		r:     bufio.NewReader(rw),
		w:     rw,
	}
}

// ReadMessage blocks for the next framed DAP message.
func (t *Transport) ReadMessage() (*Message, error) {
	var m Message
	if err := t.codec.ReadObject(t.r, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// WriteMessage frames and writes one DAP message. Safe for concurrent use
// so the session's outgoing event stream and its response to the request
// currently being handled never interleave mid-frame (spec §5: "DAP
// responses are emitted in request order").
func (t *Transport) WriteMessage(m *Message) error {
	t.wMu.Lock()
	defer t.wMu.Unlock()
	return t.codec.WriteObject(t.w, m)
}
