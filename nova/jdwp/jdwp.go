// Package jdwp implements spec §4.6's JDWP client: a single TCP connection
// to a JVM, translating Java Debug Wire Protocol request/reply/event packets
// and caching per-connection metadata (reference types, methods, fields,
// line tables). Packet framing follows the teacher's binary-struct-decoding
// style (a cursor-over-a-reader approach the teacher used for .class-file
// parsing); the connect
// loop's shape is grounded in the pack's TCP dial/retry code
// (cgrushko-tools_jvm_autodeps/jadep/grpcloader/grpcloader.go), though JDWP
// itself is a bespoke binary protocol, not gRPC.
package jdwp

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/nova-ide/nova/nova/logging"
)

var log = logging.For("jdwp")

// IDSizes is the result of VirtualMachine/IDSizes: the JVM under debug may
// use 4- or 8-byte ids for each of these handle kinds.
type IDSizes struct {
	FieldIDSize         int
	MethodIDSize        int
	ObjectIDSize        int
	ReferenceTypeIDSize int
	FrameIDSize         int
}

// Client owns exactly one TCP connection to a JVM (spec §5: "the JDWP
// client holds one TCP stream and one outstanding request at a time").
type Client struct {
	conn net.Conn

	writeMu sync.Mutex // one outstanding request at a time
	nextID  uint32

	pending   map[uint32]chan *Packet
	pendingMu sync.Mutex

	events chan *Event

	sizes IDSizes

	cacheMu           sync.Mutex
	classBySignature  map[string][]ReferenceTypeID
	refTypeSignatures map[ReferenceTypeID]string
	methodsByType     map[ReferenceTypeID][]MethodInfo
	fieldsByType      map[ReferenceTypeID][]FieldInfo
	lineTables        map[MethodKey]*LineTable
	localVarTables    map[MethodKey]*LocalVarTable
	sourceFiles       map[ReferenceTypeID]string

	pendingReturns   map[ThreadID]*MethodExitValue
	pendingReturnsMu sync.Mutex

	stepRequests map[ThreadID]int // active EventRequest.Set id for a thread's step/method-exit pair

	closed int32
}

// MethodKey identifies a method within a reference type for table caches.
type MethodKey struct {
	Type   ReferenceTypeID
	Method MethodID
}

// Handshake is the fixed ASCII string both sides exchange on connect.
const Handshake = "JDWP-Handshake"

// MaxPacket bounds accepted packet length prefixes; the client refuses
// anything outside [headerLen, MaxPacket] before allocating a buffer
// (spec §4.6: "rejects length prefixes outside [header_len, MAX_PACKET]
// before allocating").
const MaxPacket = 64 << 20

const headerLen = 11

// Connect dials host:port, performs the JDWP handshake, and queries
// VirtualMachine/IDSizes. The retry/backoff shape mirrors the pack's
// TCP dial loop (jadep/grpcloader.go): a handful of attempts with a short
// delay, since the debuggee JVM may not yet be listening.
func Connect(ctx context.Context, addr string, attempts int, delay time.Duration) (*Client, error) {
	var conn net.Conn
	var err error
	for i := 0; i < attempts; i++ {
		var d net.Dialer
		conn, err = d.DialContext(ctx, "tcp", addr)
		if err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}
	c, err := newClient(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	log.Infof("connected to %s", addr)
	return c, nil
}

// NewFromConn wraps an already-established connection (a mock JVM in
// tests, or a socket accepted in listen mode) the same way Connect does,
// without the dial/retry loop.
func NewFromConn(conn net.Conn) (*Client, error) {
	return newClient(conn)
}

func newClient(conn net.Conn) (*Client, error) {
	c := &Client{
		conn:              conn,
		pending:           make(map[uint32]chan *Packet),
		events:            make(chan *Event, 64),
		classBySignature:  make(map[string][]ReferenceTypeID),
		refTypeSignatures: make(map[ReferenceTypeID]string),
		methodsByType:     make(map[ReferenceTypeID][]MethodInfo),
		fieldsByType:      make(map[ReferenceTypeID][]FieldInfo),
		lineTables:        make(map[MethodKey]*LineTable),
		localVarTables:    make(map[MethodKey]*LocalVarTable),
		sourceFiles:       make(map[ReferenceTypeID]string),
		pendingReturns:    make(map[ThreadID]*MethodExitValue),
		stepRequests:      make(map[ThreadID]int),
	}
	if err := c.handshake(); err != nil {
		return nil, err
	}
	go c.readLoop()
	sizes, err := c.idSizes()
	if err != nil {
		return nil, errors.Wrap(err, "VirtualMachine.IDSizes")
	}
	c.sizes = sizes
	return c, nil
}

func (c *Client) handshake() error {
	if _, err := c.conn.Write([]byte(Handshake)); err != nil {
		return errors.Wrap(err, "write handshake")
	}
	buf := make([]byte, len(Handshake))
	if _, err := readFull(c.conn, buf); err != nil {
		return errors.Wrap(err, "read handshake")
	}
	if string(buf) != Handshake {
		return errors.New("handshake failed: unexpected reply")
	}
	return nil
}

func readFull(r net.Conn, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// Events returns the channel of asynchronous JDWP events (Step, Breakpoint,
// class-prepare, …) the session should drain between requests.
func (c *Client) Events() <-chan *Event { return c.events }

// Close tears down the connection; per spec §3 lifecycle, JDWP caches are
// per-connection and die with it.
func (c *Client) Close() error {
	atomic.StoreInt32(&c.closed, 1)
	return c.conn.Close()
}

func (c *Client) allocID() uint32 {
	return atomic.AddUint32(&c.nextID, 1)
}

// IDSizes reports the id widths negotiated at connect time.
func (c *Client) IDSizes() IDSizes { return c.sizes }
