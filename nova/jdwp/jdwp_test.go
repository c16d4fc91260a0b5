package jdwp

import (
	"net"
	"testing"
)

// mockJVM is a minimal JDWP server sufficient to drive Client through the
// handshake and a handful of request/reply exchanges, the way spec §8
// scenario 4 ("a mock JVM reports canRedefineClasses=true but returns JDWP
// error 62") expects tests to be written against a fake debuggee rather
// than a real JVM.
type mockJVM struct {
	conn        net.Conn
	idSizes     IDSizes
	onRequest   func(p *Packet) *Packet // nil -> default IDSizes/handshake handling
}

func newMockJVM(t *testing.T) (client *Client, jvm *mockJVM) {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	jvm = &mockJVM{conn: serverConn, idSizes: IDSizes{FieldIDSize: 8, MethodIDSize: 8, ObjectIDSize: 8, ReferenceTypeIDSize: 8, FrameIDSize: 8}}
	go jvm.serve(t)

	var err error
	client, err = NewFromConn(clientConn)
	if err != nil {
		t.Fatalf("NewFromConn: %v", err)
	}
	return client, jvm
}

func (m *mockJVM) serve(t *testing.T) {
	buf := make([]byte, len(Handshake))
	if _, err := readFullN(m.conn, buf); err != nil {
		return
	}
	m.conn.Write([]byte(Handshake))

	for {
		p, err := readPacket(m.conn)
		if err != nil {
			return
		}
		reply := m.reply(p)
		m.conn.Write(reply.encode())
	}
}

func readFullN(c net.Conn, buf []byte) (int, error) {
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

func (m *mockJVM) reply(p *Packet) *Packet {
	if m.onRequest != nil {
		if r := m.onRequest(p); r != nil {
			r.ID = p.ID
			r.Flags = flagReply
			return r
		}
	}
	if p.CommandSet == csVirtualMachine && p.Command == cmdVMIDSizes {
		w := &writer{}
		w.u4(uint32(m.idSizes.FieldIDSize))
		w.u4(uint32(m.idSizes.MethodIDSize))
		w.u4(uint32(m.idSizes.ObjectIDSize))
		w.u4(uint32(m.idSizes.ReferenceTypeIDSize))
		w.u4(uint32(m.idSizes.FrameIDSize))
		return &Packet{ID: p.ID, Flags: flagReply, Data: w.buf}
	}
	return &Packet{ID: p.ID, Flags: flagReply, Data: nil}
}

func TestConnectHandshakeAndIDSizes(t *testing.T) {
	client, _ := newMockJVM(t)
	defer client.Close()

	sizes := client.IDSizes()
	if sizes.ObjectIDSize != 8 || sizes.MethodIDSize != 8 {
		t.Fatalf("unexpected id sizes: %+v", sizes)
	}
}

func TestPacketRoundTrip(t *testing.T) {
	p := &Packet{ID: 42, CommandSet: 1, Command: 7, Data: []byte("hello")}
	encoded := p.encode()

	clientConn, serverConn := net.Pipe()
	done := make(chan struct{})
	go func() {
		serverConn.Write(encoded)
		close(done)
	}()

	got, err := readPacket(clientConn)
	if err != nil {
		t.Fatalf("readPacket: %v", err)
	}
	<-done
	if got.ID != p.ID || got.CommandSet != p.CommandSet || got.Command != p.Command {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if string(got.Data) != "hello" {
		t.Fatalf("data = %q, want %q", got.Data, "hello")
	}
}

func TestReadPacketRejectsOversizedLength(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	go func() {
		var hdr [4]byte
		hdr[0] = 0xFF
		hdr[1] = 0xFF
		hdr[2] = 0xFF
		hdr[3] = 0xFF
		serverConn.Write(hdr[:])
	}()

	_, err := readPacket(clientConn)
	if err == nil {
		t.Fatal("expected an error for an oversized length prefix")
	}
}

func TestRedefineClassesSurfacesSchemaChangeError(t *testing.T) {
	client, jvm := newMockJVM(t)
	defer client.Close()

	jvm.onRequest = func(p *Packet) *Packet {
		if p.CommandSet == csVirtualMachine && p.Command == cmdVMRedefineClasses {
			return &Packet{ErrorCode: 62}
		}
		return nil
	}

	err := client.RedefineClasses(1, []byte{0xCA, 0xFE})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !IsSchemaChange(err) {
		t.Fatalf("expected schema-change error, got %v", err)
	}
}

func TestLineTableClosestCodeIndexMovesToEarlierLine(t *testing.T) {
	// A source whose line 4 is "}" and line 3 is "int x = 0;": setting a
	// breakpoint at line 4 resolves to line 3 (spec §8 scenario 2), because
	// the line table only has an entry for line 3's statement.
	lt := &LineTable{Entries: []LineEntry{
		{CodeIndex: 0, Line: 1},
		{CodeIndex: 4, Line: 3},
	}}
	idx, line, ok := lt.ClosestCodeIndex(4)
	if !ok {
		t.Fatal("expected a resolvable code index")
	}
	if line != 3 || idx != 4 {
		t.Fatalf("got (idx=%d, line=%d), want (idx=4, line=3)", idx, line)
	}
}

func TestLocalVarTableResolveInnermostScopeWins(t *testing.T) {
	vt := &LocalVarTable{Slots: []LocalVarSlot{
		{CodeIndex: 0, Length: 100, Name: "x", Slot: 1},
		{CodeIndex: 10, Length: 5, Name: "x", Slot: 2},
	}}
	slot, ok := vt.Resolve("x", 12)
	if !ok {
		t.Fatal("expected to resolve x")
	}
	if slot.Slot != 2 {
		t.Fatalf("expected innermost slot 2, got %d", slot.Slot)
	}
}

func TestClient_TakePendingReturnParksByThread(t *testing.T) {
	c := &Client{pendingReturns: make(map[ThreadID]*MethodExitValue)}
	c.handleEvent(&Event{Kind: EventMethodExitWithReturnValue, Thread: 5, ReturnValue: &Value{Tag: TagInt, Prim: 42}})

	v, ok := c.TakePendingReturn(5)
	if !ok || v.Value.Prim != 42 {
		t.Fatalf("expected parked return value 42, got %+v ok=%v", v, ok)
	}
	if _, ok := c.TakePendingReturn(5); ok {
		t.Fatal("expected the parked value to be consumed exactly once")
	}
}
