package dap

import (
	"encoding/json"
	"net"
	"strings"
	"testing"

	"github.com/nova-ide/nova/nova/jdwp"
)

// fakeJVM answers just enough JDWP requests to drive a breakpoint-stop
// scenario: one thread, one frame in a class with a single int local "x"
// and a single static int field "counter" (spec §8 scenario 1: "breakpoint
// stop exposes locals and statics").
type fakeJVM struct {
	conn net.Conn
}

func newFakeSession(t *testing.T) (*Session, *fakeJVM) {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	jvm := &fakeJVM{conn: serverConn}
	go jvm.serve(t)

	client, err := jdwp.NewFromConn(clientConn)
	if err != nil {
		t.Fatalf("NewFromConn: %v", err)
	}
	s := NewSession(nil)
	s.jdwpConn = client
	return s, jvm
}

func (j *fakeJVM) serve(t *testing.T) {
	buf := make([]byte, len(jdwp.Handshake))
	if _, err := readFullConn(j.conn, buf); err != nil {
		return
	}
	j.conn.Write([]byte(jdwp.Handshake))

	for {
		p, err := readTestPacket(j.conn)
		if err != nil {
			return
		}
		reply := j.reply(p)
		reply.ID = p.ID
		j.conn.Write(encodeTestPacket(reply))
	}
}

func readFullConn(c net.Conn, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := c.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// testPacket/readTestPacket/encodeTestPacket mirror jdwp's own unexported
// Packet wire format (11-byte header: length, id, flags, then
// commandSet+command or errorCode) since the dap package can't reach into
// jdwp's unexported packet.go from outside the package.
type testPacket struct {
	ID                 uint32
	Flags              byte
	CommandSet, Command byte
	ErrorCode          uint16
	Data               []byte
}

func readTestPacket(c net.Conn) (*testPacket, error) {
	var hdr [11]byte
	if _, err := readFullConn(c, hdr[:4]); err != nil {
		return nil, err
	}
	length := be32(hdr[0:4])
	if _, err := readFullConn(c, hdr[4:11]); err != nil {
		return nil, err
	}
	p := &testPacket{ID: be32(hdr[4:8]), Flags: hdr[8]}
	dataLen := int(length) - 11
	data := make([]byte, dataLen)
	if dataLen > 0 {
		if _, err := readFullConn(c, data); err != nil {
			return nil, err
		}
	}
	if p.Flags&0x80 != 0 {
		p.ErrorCode = uint16(hdr[9])<<8 | uint16(hdr[10])
	} else {
		p.CommandSet = hdr[9]
		p.Command = hdr[10]
	}
	p.Data = data
	return p, nil
}

func encodeTestPacket(p *testPacket) []byte {
	length := 11 + len(p.Data)
	buf := make([]byte, length)
	putBE32(buf[0:4], uint32(length))
	putBE32(buf[4:8], p.ID)
	buf[8] = p.Flags
	if p.Flags&0x80 != 0 {
		buf[9] = byte(p.ErrorCode >> 8)
		buf[10] = byte(p.ErrorCode)
	} else {
		buf[9] = p.CommandSet
		buf[10] = p.Command
	}
	copy(buf[11:], p.Data)
	return buf
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func putBE32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func jstr(s string) []byte {
	out := make([]byte, 4+len(s))
	putBE32(out[0:4], uint32(len(s)))
	copy(out[4:], s)
	return out
}

// reply answers the fixed sequence of requests the test scenario needs:
// IDSizes (all 8-byte), AllThreads (one thread), ThreadName, Frames (one
// frame), ReferenceType.Signature, Methods, SourceFile, Method.LineTable,
// Method.VariableTable, StackFrame.GetValues, ReferenceType.Fields,
// ReferenceType.GetValues (statics).
func (j *fakeJVM) reply(p *testPacket) *testPacket {
	const (
		csVM = 1
		csRT = 2
		csMethod = 6
		csThread = 11
		csStack  = 16
	)
	switch {
	case p.CommandSet == csVM && p.Command == 7: // IDSizes
		data := append(append(append(append(append([]byte{}, be4(8)...), be4(8)...), be4(8)...), be4(8)...), be4(8)...)
		return &testPacket{Flags: 0x80, Data: data}
	case p.CommandSet == csVM && p.Command == 4: // AllThreads
		data := append(be4(1), be8(100)...) // one thread id=100
		return &testPacket{Flags: 0x80, Data: data}
	case p.CommandSet == csVM && p.Command == 2: // ClassesBySignature
		var data []byte
		data = append(data, be4(1)...)
		data = append(data, byte(1)) // type tag class
		data = append(data, be8(10)...)
		data = append(data, be4(0)...) // status
		return &testPacket{Flags: 0x80, Data: data}
	case p.CommandSet == csVM && p.Command == 18: // RedefineClasses
		return &testPacket{Flags: 0x80, ErrorCode: 62}
	case p.CommandSet == csThread && p.Command == 1: // ThreadName
		return &testPacket{Flags: 0x80, Data: jstr("main")}
	case p.CommandSet == csThread && p.Command == 6: // Frames
		var data []byte
		data = append(data, be4(1)...)       // 1 frame
		data = append(data, be8(1)...)       // frame id
		data = append(data, byte(1))         // type tag class
		data = append(data, be8(10)...)      // reference type id
		data = append(data, be8(20)...)      // method id
		data = append(data, be8(5)...)       // code index
		return &testPacket{Flags: 0x80, Data: data}
	case p.CommandSet == csRT && p.Command == 1: // Signature
		return &testPacket{Flags: 0x80, Data: jstr("Lcom/acme/Main;")}
	case p.CommandSet == csRT && p.Command == 5: // Methods
		var data []byte
		data = append(data, be4(1)...)
		data = append(data, be8(20)...)
		data = append(data, jstr("run")...)
		data = append(data, jstr("()V")...)
		data = append(data, be4(0)...)
		return &testPacket{Flags: 0x80, Data: data}
	case p.CommandSet == csRT && p.Command == 7: // SourceFile
		return &testPacket{Flags: 0x80, Data: jstr("Main.java")}
	case p.CommandSet == csMethod && p.Command == 1: // LineTable
		var data []byte
		data = append(data, be8(0)...)
		data = append(data, be8(10)...)
		data = append(data, be4(1)...)
		data = append(data, be8(5)...)
		data = append(data, be4(3)...)
		return &testPacket{Flags: 0x80, Data: data}
	case p.CommandSet == csMethod && p.Command == 2: // VariableTable
		var data []byte
		data = append(data, be4(0)...) // argCnt
		data = append(data, be4(1)...) // slot count
		data = append(data, be8(0)...) // codeIndex
		data = append(data, jstr("x")...)
		data = append(data, jstr("I")...)
		data = append(data, be4(100)...) // length
		data = append(data, be4(1)...)   // slot
		return &testPacket{Flags: 0x80, Data: data}
	case p.CommandSet == csStack && p.Command == 1: // StackFrame.GetValues
		var data []byte
		data = append(data, be4(1)...)
		data = append(data, byte('I'))
		data = append(data, be4(42)...)
		return &testPacket{Flags: 0x80, Data: data}
	case p.CommandSet == csRT && p.Command == 4: // Fields
		var data []byte
		data = append(data, be4(1)...)
		data = append(data, be8(30)...)
		data = append(data, jstr("counter")...)
		data = append(data, jstr("I")...)
		data = append(data, be4(0x0008)...) // static
		return &testPacket{Flags: 0x80, Data: data}
	case p.CommandSet == csRT && p.Command == 6: // ReferenceType.GetValues (statics)
		var data []byte
		data = append(data, be4(1)...)
		data = append(data, byte('I'))
		data = append(data, be4(7)...)
		return &testPacket{Flags: 0x80, Data: data}
	default:
		return &testPacket{Flags: 0x80, Data: nil}
	}
}

func be4(v uint32) []byte {
	b := make([]byte, 4)
	putBE32(b, v)
	return b
}

func be8(v uint64) []byte {
	b := make([]byte, 8)
	b[0] = byte(v >> 56)
	b[1] = byte(v >> 48)
	b[2] = byte(v >> 40)
	b[3] = byte(v >> 32)
	b[4] = byte(v >> 24)
	b[5] = byte(v >> 16)
	b[6] = byte(v >> 8)
	b[7] = byte(v)
	return b
}

func TestSession_BreakpointStopExposesLocalsAndStatics(t *testing.T) {
	s, _ := newFakeSession(t)
	defer s.jdwpConn.Close()

	threadsResp, err := s.handleThreads(&Message{})
	if err != nil {
		t.Fatalf("handleThreads: %v", err)
	}
	tl := threadsResp.(struct {
		Threads []threadInfo `json:"threads"`
	})
	if len(tl.Threads) != 1 || tl.Threads[0].Name != "main" {
		t.Fatalf("unexpected threads: %+v", tl.Threads)
	}

	stArgs, _ := marshalArgs(stackTraceArgs{ThreadID: tl.Threads[0].ID})
	stResp, err := s.handleStackTrace(&Message{Arguments: stArgs})
	if err != nil {
		t.Fatalf("handleStackTrace: %v", err)
	}
	st := stResp.(struct {
		StackFrames []stackFrameDTO `json:"stackFrames"`
		TotalFrames int             `json:"totalFrames"`
	})
	if len(st.StackFrames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(st.StackFrames))
	}
	frameHandle := st.StackFrames[0].ID

	scArgs, _ := marshalArgs(scopesArgs{FrameID: frameHandle})
	scResp, err := s.handleScopes(&Message{Arguments: scArgs})
	if err != nil {
		t.Fatalf("handleScopes: %v", err)
	}
	scopes := scResp.(struct {
		Scopes []scopeDTO `json:"scopes"`
	}).Scopes
	if len(scopes) != 3 || scopes[0].Name != "Local" || scopes[1].Name != "Static" || scopes[2].Name != "Pinned" {
		t.Fatalf("unexpected scopes: %+v", scopes)
	}
	if scopes[2].VariablesReference != PinnedScopeRef {
		t.Fatalf("expected the pinned scope to use PinnedScopeRef, got %d", scopes[2].VariablesReference)
	}

	localArgs, _ := marshalArgs(variablesArgs{VariablesReference: scopes[0].VariablesReference})
	localResp, err := s.handleVariables(&Message{Arguments: localArgs})
	if err != nil {
		t.Fatalf("handleVariables(local): %v", err)
	}
	locals := localResp.(struct {
		Variables []variableDTO `json:"variables"`
	}).Variables
	if len(locals) != 1 || locals[0].Name != "x" || locals[0].Value != "42" {
		t.Fatalf("unexpected locals: %+v", locals)
	}

	staticArgs, _ := marshalArgs(variablesArgs{VariablesReference: scopes[1].VariablesReference})
	staticResp, err := s.handleVariables(&Message{Arguments: staticArgs})
	if err != nil {
		t.Fatalf("handleVariables(static): %v", err)
	}
	statics := staticResp.(struct {
		Variables []variableDTO `json:"variables"`
	}).Variables
	if len(statics) != 1 || statics[0].Name != "counter" || statics[0].Value != "7" {
		t.Fatalf("unexpected statics: %+v", statics)
	}

	// Resuming invalidates the frame/scope handles from this stop.
	s.handles.InvalidateStop()
	if _, ok := s.handles.LookupFrame(frameHandle); ok {
		t.Fatal("expected the frame handle to be invalidated after a resume")
	}
}

func marshalArgs(v any) ([]byte, error) {
	return json.Marshal(v)
}

// TestSession_HotSwapSurfacesSchemaChange drives spec §8 scenario 4 end to
// end through the DAP handler: a mock JVM whose RedefineClasses reply is
// JDWP error 62 yields results[0].status == "schema_change" with "JDWP
// error 62" in the message, not a generic failure.
func TestSession_HotSwapSurfacesSchemaChange(t *testing.T) {
	s, _ := newFakeSession(t)
	defer s.jdwpConn.Close()

	args, _ := marshalArgs(hotSwapArgs{
		Classes: []hotSwapClassArg{
			{ClassName: "com.acme.Main", BytecodeBase64: "ygA="},
		},
	})
	resp, err := s.handleHotSwap(&Message{Arguments: args})
	if err != nil {
		t.Fatalf("handleHotSwap: %v", err)
	}
	results := resp.(struct {
		Results []hotSwapResult `json:"results"`
	}).Results
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Status != "schema_change" {
		t.Fatalf("expected status schema_change, got %q", results[0].Status)
	}
	if !strings.Contains(results[0].Message, "JDWP error 62") {
		t.Fatalf("expected message to mention JDWP error 62, got %q", results[0].Message)
	}
}
