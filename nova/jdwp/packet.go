package jdwp

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const flagReply = 0x80

// Packet is spec §4.6's wire frame: a command packet carries
// (commandSet, command); a reply packet carries errorCode instead.
type Packet struct {
	ID         uint32
	Flags      byte
	CommandSet byte
	Command    byte
	ErrorCode  uint16
	Data       []byte
}

func (p *Packet) IsReply() bool { return p.Flags&flagReply != 0 }

func (p *Packet) encode() []byte {
	length := uint32(headerLen + len(p.Data))
	buf := make([]byte, length)
	binary.BigEndian.PutUint32(buf[0:4], length)
	binary.BigEndian.PutUint32(buf[4:8], p.ID)
	buf[8] = p.Flags
	if p.IsReply() {
		binary.BigEndian.PutUint16(buf[9:11], p.ErrorCode)
	} else {
		buf[9] = p.CommandSet
		buf[10] = p.Command
	}
	copy(buf[11:], p.Data)
	return buf
}

// readPacket reads one framed packet from r, rejecting an out-of-range
// length prefix before allocating the payload buffer (spec §4.6).
func readPacket(r io.Reader) (*Packet, error) {
	var hdr [11]byte
	if _, err := io.ReadFull(r, hdr[:4]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(hdr[:4])
	if length < headerLen || length > MaxPacket {
		return nil, errors.Errorf("jdwp: packet length %d out of range [%d, %d]", length, headerLen, MaxPacket)
	}
	if _, err := io.ReadFull(r, hdr[4:11]); err != nil {
		return nil, err
	}
	p := &Packet{
		ID:    binary.BigEndian.Uint32(hdr[4:8]),
		Flags: hdr[8],
	}
	dataLen := int(length) - headerLen
	data := make([]byte, 0, dataLen)
	if dataLen > 0 {
		data = data[:dataLen]
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, err
		}
	}
	if p.IsReply() {
		p.ErrorCode = binary.BigEndian.Uint16(hdr[9:11])
	} else {
		p.CommandSet = hdr[9]
		p.Command = hdr[10]
	}
	p.Data = data
	return p, nil
}

func (c *Client) readLoop() {
	for {
		p, err := readPacket(c.conn)
		if err != nil {
			c.failAllPending(err)
			return
		}
		if p.IsReply() {
			c.pendingMu.Lock()
			ch := c.pending[p.ID]
			delete(c.pending, p.ID)
			c.pendingMu.Unlock()
			if ch != nil {
				ch <- p
			}
			continue
		}
		// Command packets sent by the VM are asynchronous events (spec §4.6:
		// "any command packets encountered along the way are asynchronous
		// events"). Event.Composite is command-set 64, command 100.
		if p.CommandSet == csEvent && p.Command == cmdEventComposite {
			evts := c.decodeComposite(p.Data)
			for _, e := range evts {
				c.handleEvent(e)
				c.events <- e
			}
		}
	}
}

func (c *Client) failAllPending(err error) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// request sends a command packet and blocks for its reply, honoring spec
// §5's "one outstanding request at a time" by holding writeMu from the
// write until the reply arrives; reads happen on readLoop, so interleaved
// events are still dispatched in arrival order before the awaited reply
// returns.
func (c *Client) request(commandSet, command byte, data []byte) (*Packet, error) {
	id := c.allocID()
	ch := make(chan *Packet, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	p := &Packet{ID: id, CommandSet: commandSet, Command: command, Data: data}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.conn.Write(p.encode())
	if err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return nil, errors.Wrap(err, "write request")
	}

	reply, ok := <-ch
	if !ok {
		return nil, errors.New("jdwp: connection closed while awaiting reply")
	}
	if reply.ErrorCode != 0 {
		return reply, &CommandError{Code: reply.ErrorCode}
	}
	return reply, nil
}

// writer is a small byte-buffer builder for request payloads, the encode
// counterpart to the teacher's classfile readU1/readU2/readU4 decode-side
// reader.
type writer struct {
	buf []byte
}

func (w *writer) u1(v byte)    { w.buf = append(w.buf, v) }
func (w *writer) u2(v uint16)  { w.buf = binary.BigEndian.AppendUint16(w.buf, v) }
func (w *writer) u4(v uint32)  { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }
func (w *writer) u8(v uint64)  { w.buf = binary.BigEndian.AppendUint64(w.buf, v) }
func (w *writer) bytes(b []byte) { w.buf = append(w.buf, b...) }

func (w *writer) jstring(s string) {
	w.u4(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *writer) id(size int, v int64) {
	switch size {
	case 8:
		w.u8(uint64(v))
	default:
		w.u4(uint32(v))
	}
}

func (c *Client) wObjectID(w *writer, v ObjectID) { w.id(c.sizes.ObjectIDSize, int64(v)) }
func (c *Client) wRefTypeID(w *writer, v ReferenceTypeID) {
	w.id(c.sizes.ReferenceTypeIDSize, int64(v))
}
func (c *Client) wMethodID(w *writer, v MethodID) { w.id(c.sizes.MethodIDSize, int64(v)) }
func (c *Client) wFieldID(w *writer, v FieldID)   { w.id(c.sizes.FieldIDSize, int64(v)) }
func (c *Client) wFrameID(w *writer, v FrameID)   { w.id(c.sizes.FrameIDSize, int64(v)) }
func (c *Client) wThreadID(w *writer, v ThreadID) { w.id(c.sizes.ObjectIDSize, int64(v)) }

// reader is the decode-side cursor over a reply payload.
type reader struct {
	buf []byte
	pos int
	err error
}

func newReader(buf []byte) *reader { return &reader{buf: buf} }

func (r *reader) need(n int) bool {
	if r.err != nil || r.pos+n > len(r.buf) {
		if r.err == nil {
			r.err = errors.New("jdwp: truncated reply")
		}
		return false
	}
	return true
}

func (r *reader) u1() byte {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.pos]
	r.pos++
	return v
}

func (r *reader) u2() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos : r.pos+2])
	r.pos += 2
	return v
}

func (r *reader) u4() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos : r.pos+4])
	r.pos += 4
	return v
}

func (r *reader) u8() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos : r.pos+8])
	r.pos += 8
	return v
}

func (r *reader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) jstring() string {
	n := r.u4()
	return string(r.bytes(int(n)))
}

func (r *reader) id(size int) int64 {
	if size == 8 {
		return int64(r.u8())
	}
	return int64(int32(r.u4()))
}

func (c *Client) rObjectID(r *reader) ObjectID            { return ObjectID(r.id(c.sizes.ObjectIDSize)) }
func (c *Client) rRefTypeID(r *reader) ReferenceTypeID     { return ReferenceTypeID(r.id(c.sizes.ReferenceTypeIDSize)) }
func (c *Client) rMethodID(r *reader) MethodID             { return MethodID(r.id(c.sizes.MethodIDSize)) }
func (c *Client) rFieldID(r *reader) FieldID                { return FieldID(r.id(c.sizes.FieldIDSize)) }
func (c *Client) rFrameID(r *reader) FrameID                { return FrameID(r.id(c.sizes.FrameIDSize)) }
func (c *Client) rThreadID(r *reader) ThreadID              { return ThreadID(r.id(c.sizes.ObjectIDSize)) }

func (c *Client) rValue(r *reader) Value {
	tag := Tag(r.u1())
	return c.rValueTagged(r, tag)
}

func (c *Client) rValueTagged(r *reader, tag Tag) Value {
	v := Value{Tag: tag}
	switch tag {
	case TagBoolean:
		v.Prim = int64(r.u1())
	case TagByte:
		v.Prim = int64(int8(r.u1()))
	case TagChar:
		v.Prim = int64(r.u2())
	case TagShort:
		v.Prim = int64(int16(r.u2()))
	case TagInt:
		v.Prim = int64(int32(r.u4()))
	case TagLong:
		v.Prim = int64(r.u8())
	case TagFloat:
		v.Float = float64(math4(r.u4()))
	case TagDouble:
		v.Float = math8(r.u8())
	case TagVoid:
		// no payload
	default:
		v.Obj = c.rObjectID(r)
	}
	return v
}

func (c *Client) wValue(w *writer, v Value) {
	w.u1(byte(v.Tag))
	switch v.Tag {
	case TagBoolean, TagByte:
		w.u1(byte(v.Prim))
	case TagChar, TagShort:
		w.u2(uint16(v.Prim))
	case TagInt:
		w.u4(uint32(v.Prim))
	case TagLong:
		w.u8(uint64(v.Prim))
	case TagFloat:
		w.u4(math4bits(float32(v.Float)))
	case TagDouble:
		w.u8(math8bits(v.Float))
	case TagVoid:
	default:
		c.wObjectID(w, v.Obj)
	}
}
