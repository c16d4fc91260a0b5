package jdwp

import (
	"github.com/pkg/errors"

	"github.com/nova-ide/nova/classfile"
)

// Command sets (JDWP protocol, abbreviated to the subset spec §4.6 needs).
const (
	csVirtualMachine  = 1
	csReferenceType   = 2
	csClassType       = 3
	csMethod          = 6
	csObjectReference = 9
	csStringReference = 10
	csThreadReference  = 11
	csArrayReference  = 13
	csClassLoaderReference = 14
	csEventRequest    = 15
	csStackFrame      = 16
	csClassObjectReference = 17
	csArrayType       = 4
	csEvent           = 64
)

// InvokeSingleThreaded is JDWP's INVOKE_SINGLE_THREADED option bit: only the
// invoking thread is resumed for the call's duration, every other thread
// stays suspended (nova/streamdebug relies on this so a sampling call can't
// race the rest of the suspended VM).
const InvokeSingleThreaded = 0x01

const (
	cmdVMVersion            = 1
	cmdVMClassesBySignature = 2
	cmdVMAllThreads         = 4
	cmdVMIDSizes            = 7
	cmdVMResume             = 9
	cmdVMCreateString       = 11
	cmdVMRedefineClasses    = 18

	cmdRTSignature    = 1
	cmdRTClassLoader  = 2
	cmdRTFields       = 4
	cmdRTMethods      = 5
	cmdRTGetValues    = 6
	cmdRTSourceFile    = 7
	cmdRTInterfaces   = 10

	cmdArrayTypeNewInstance = 1

	cmdClassObjReflectedType = 1

	cmdClassTypeSetValues    = 2
	cmdClassTypeInvokeMethod = 3

	cmdObjRefInvokeMethod = 6

	cmdMethodLineTable     = 1
	cmdMethodVariableTable = 2

	cmdObjRefReferenceType     = 1
	cmdObjRefGetValues         = 2
	cmdObjRefSetValues         = 3
	cmdObjRefDisableCollection = 7
	cmdObjRefEnableCollection  = 8

	cmdStringValue = 1

	cmdThreadName       = 1
	cmdThreadSuspend    = 2
	cmdThreadResume     = 3
	cmdThreadFrames     = 6
	cmdThreadFrameCount = 7

	cmdArrayLength    = 1
	cmdArrayGetValues = 2
	cmdArraySetValues = 3

	cmdEventRequestSet   = 1
	cmdEventRequestClear = 2

	cmdStackGetValues = 1
	cmdStackSetValues = 2
	cmdStackThisObj   = 3

	cmdEventComposite = 100
)

// CommandError wraps a non-zero JDWP reply error code (spec §7:
// CommandFailed{error_code}).
type CommandError struct {
	Code uint16
}

func (e *CommandError) Error() string {
	if e.Code == 62 {
		return "JDWP error 62 (schema change not implemented / incompatible class change)"
	}
	return errors.Errorf("JDWP error %d", e.Code).Error()
}

// IsSchemaChange reports whether err is JDWP error 62 ("class definitions
// incompatible"), the redefine-classes-specific failure spec §4.7/§8
// scenario 4 calls out by name.
func IsSchemaChange(err error) bool {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.Code == 62
	}
	return false
}

func (c *Client) idSizes() (IDSizes, error) {
	reply, err := c.request(csVirtualMachine, cmdVMIDSizes, nil)
	if err != nil {
		return IDSizes{}, err
	}
	r := newReader(reply.Data)
	return IDSizes{
		FieldIDSize:         int(r.u4()),
		MethodIDSize:        int(r.u4()),
		ObjectIDSize:        int(r.u4()),
		ReferenceTypeIDSize: int(r.u4()),
		FrameIDSize:         int(r.u4()),
	}, r.err
}

// ClassesBySignature resolves a JNI-style signature (e.g. "Lcom/acme/Main;")
// to its loaded ReferenceTypeIDs, using the cache when populated.
func (c *Client) ClassesBySignature(signature string) ([]ReferenceTypeInfo, error) {
	c.cacheMu.Lock()
	if ids, ok := c.classBySignature[signature]; ok {
		c.cacheMu.Unlock()
		out := make([]ReferenceTypeInfo, len(ids))
		for i, id := range ids {
			out[i] = ReferenceTypeInfo{ID: id, Signature: signature}
		}
		return out, nil
	}
	c.cacheMu.Unlock()

	w := &writer{}
	w.jstring(signature)
	reply, err := c.request(csVirtualMachine, cmdVMClassesBySignature, w.buf)
	if err != nil {
		return nil, err
	}
	r := newReader(reply.Data)
	n := int(r.u4())
	out := make([]ReferenceTypeInfo, 0, n)
	ids := make([]ReferenceTypeID, 0, n)
	for i := 0; i < n; i++ {
		tag := TypeTag(r.u1())
		id := c.rRefTypeID(r)
		_ = r.u4() // status
		out = append(out, ReferenceTypeInfo{ID: id, TypeTag: tag, Signature: signature})
		ids = append(ids, id)
	}
	if r.err != nil {
		return nil, r.err
	}
	c.cacheMu.Lock()
	c.classBySignature[signature] = ids
	for _, id := range ids {
		c.refTypeSignatures[id] = signature
	}
	c.cacheMu.Unlock()
	return out, nil
}

// Signature returns (and caches) a ReferenceType's JNI signature.
func (c *Client) Signature(rt ReferenceTypeID) (string, error) {
	c.cacheMu.Lock()
	if sig, ok := c.refTypeSignatures[rt]; ok {
		c.cacheMu.Unlock()
		return sig, nil
	}
	c.cacheMu.Unlock()

	w := &writer{}
	c.wRefTypeID(w, rt)
	reply, err := c.request(csReferenceType, cmdRTSignature, w.buf)
	if err != nil {
		return "", err
	}
	r := newReader(reply.Data)
	sig := r.jstring()
	if r.err != nil {
		return "", r.err
	}
	c.cacheMu.Lock()
	c.refTypeSignatures[rt] = sig
	c.cacheMu.Unlock()
	return sig, nil
}

// Methods returns (and caches) a ReferenceType's declared methods.
func (c *Client) Methods(rt ReferenceTypeID) ([]MethodInfo, error) {
	c.cacheMu.Lock()
	if ms, ok := c.methodsByType[rt]; ok {
		c.cacheMu.Unlock()
		return ms, nil
	}
	c.cacheMu.Unlock()

	w := &writer{}
	c.wRefTypeID(w, rt)
	reply, err := c.request(csReferenceType, cmdRTMethods, w.buf)
	if err != nil {
		return nil, err
	}
	r := newReader(reply.Data)
	n := int(r.u4())
	out := make([]MethodInfo, 0, n)
	for i := 0; i < n; i++ {
		id := c.rMethodID(r)
		name := r.jstring()
		sig := r.jstring()
		mods := r.u4()
		out = append(out, MethodInfo{ID: id, Name: name, Signature: sig, ModBits: mods})
	}
	if r.err != nil {
		return nil, r.err
	}
	c.cacheMu.Lock()
	c.methodsByType[rt] = out
	c.cacheMu.Unlock()
	return out, nil
}

// Fields returns (and caches) a ReferenceType's declared fields.
func (c *Client) Fields(rt ReferenceTypeID) ([]FieldInfo, error) {
	c.cacheMu.Lock()
	if fs, ok := c.fieldsByType[rt]; ok {
		c.cacheMu.Unlock()
		return fs, nil
	}
	c.cacheMu.Unlock()

	w := &writer{}
	c.wRefTypeID(w, rt)
	reply, err := c.request(csReferenceType, cmdRTFields, w.buf)
	if err != nil {
		return nil, err
	}
	r := newReader(reply.Data)
	n := int(r.u4())
	out := make([]FieldInfo, 0, n)
	for i := 0; i < n; i++ {
		id := FieldID(r.id(c.sizes.FieldIDSize))
		name := r.jstring()
		sig := r.jstring()
		mods := r.u4()
		out = append(out, FieldInfo{ID: id, Name: name, Sig: sig, ModBits: mods})
	}
	if r.err != nil {
		return nil, r.err
	}
	c.cacheMu.Lock()
	c.fieldsByType[rt] = out
	c.cacheMu.Unlock()
	return out, nil
}

// SourceFile returns (and caches) a ReferenceType's declared source file name.
func (c *Client) SourceFile(rt ReferenceTypeID) (string, error) {
	c.cacheMu.Lock()
	if sf, ok := c.sourceFiles[rt]; ok {
		c.cacheMu.Unlock()
		return sf, nil
	}
	c.cacheMu.Unlock()

	w := &writer{}
	c.wRefTypeID(w, rt)
	reply, err := c.request(csReferenceType, cmdRTSourceFile, w.buf)
	if err != nil {
		return "", err
	}
	r := newReader(reply.Data)
	sf := r.jstring()
	if r.err != nil {
		return "", r.err
	}
	c.cacheMu.Lock()
	c.sourceFiles[rt] = sf
	c.cacheMu.Unlock()
	return sf, nil
}

// LineTable returns (and caches) a method's Method.LineTable.
func (c *Client) LineTable(rt ReferenceTypeID, m MethodID) (*LineTable, error) {
	key := MethodKey{Type: rt, Method: m}
	c.cacheMu.Lock()
	if lt, ok := c.lineTables[key]; ok {
		c.cacheMu.Unlock()
		return lt, nil
	}
	c.cacheMu.Unlock()

	w := &writer{}
	c.wRefTypeID(w, rt)
	c.wMethodID(w, m)
	reply, err := c.request(csMethod, cmdMethodLineTable, w.buf)
	if err != nil {
		return nil, err
	}
	r := newReader(reply.Data)
	lt := &LineTable{Start: int64(r.u8()), End: int64(r.u8())}
	n := int(r.u4())
	lt.Entries = make([]LineEntry, 0, n)
	for i := 0; i < n; i++ {
		lt.Entries = append(lt.Entries, LineEntry{CodeIndex: int64(r.u8()), Line: int(r.u4())})
	}
	if r.err != nil {
		return nil, r.err
	}
	c.cacheMu.Lock()
	c.lineTables[key] = lt
	c.cacheMu.Unlock()
	return lt, nil
}

// VariableTable returns (and caches) a method's local-variable table.
func (c *Client) VariableTable(rt ReferenceTypeID, m MethodID) (*LocalVarTable, error) {
	key := MethodKey{Type: rt, Method: m}
	c.cacheMu.Lock()
	if vt, ok := c.localVarTables[key]; ok {
		c.cacheMu.Unlock()
		return vt, nil
	}
	c.cacheMu.Unlock()

	w := &writer{}
	c.wRefTypeID(w, rt)
	c.wMethodID(w, m)
	reply, err := c.request(csMethod, cmdMethodVariableTable, w.buf)
	if err != nil {
		return nil, err
	}
	r := newReader(reply.Data)
	vt := &LocalVarTable{ArgCount: int(r.u4())}
	n := int(r.u4())
	vt.Slots = make([]LocalVarSlot, 0, n)
	for i := 0; i < n; i++ {
		codeIndex := int64(r.u8())
		name := r.jstring()
		sig := r.jstring()
		length := int64(r.u4())
		slot := int(r.u4())
		vt.Slots = append(vt.Slots, LocalVarSlot{CodeIndex: codeIndex, Name: name, Signature: sig, Length: length, Slot: slot})
	}
	if r.err != nil {
		return nil, r.err
	}
	c.cacheMu.Lock()
	c.localVarTables[key] = vt
	c.cacheMu.Unlock()
	return vt, nil
}

// AllThreads returns every live thread id in the target VM.
func (c *Client) AllThreads() ([]ThreadID, error) {
	reply, err := c.request(csVirtualMachine, cmdVMAllThreads, nil)
	if err != nil {
		return nil, err
	}
	r := newReader(reply.Data)
	n := int(r.u4())
	out := make([]ThreadID, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, c.rThreadID(r))
	}
	return out, r.err
}

// ThreadName returns a thread's name.
func (c *Client) ThreadName(t ThreadID) (string, error) {
	w := &writer{}
	c.wThreadID(w, t)
	reply, err := c.request(csThreadReference, cmdThreadName, w.buf)
	if err != nil {
		return "", err
	}
	r := newReader(reply.Data)
	return r.jstring(), r.err
}

// Frame is one StackFrame/Frames entry: a frame id plus its current
// location.
type Frame struct {
	ID        FrameID
	Type      ReferenceTypeID
	Method    MethodID
	CodeIndex int64
}

// Frames returns the thread's stack, innermost first.
func (c *Client) Frames(t ThreadID) ([]Frame, error) {
	w := &writer{}
	c.wThreadID(w, t)
	w.u4(0)  // startFrame
	w.u4(uint32(0xFFFFFFFF)) // length: all
	reply, err := c.request(csThreadReference, cmdThreadFrames, w.buf)
	if err != nil {
		return nil, err
	}
	r := newReader(reply.Data)
	n := int(r.u4())
	out := make([]Frame, 0, n)
	for i := 0; i < n; i++ {
		id := c.rFrameID(r)
		typeTag := TypeTag(r.u1())
		_ = typeTag
		rt := c.rRefTypeID(r)
		m := c.rMethodID(r)
		idx := int64(r.u8())
		out = append(out, Frame{ID: id, Type: rt, Method: m, CodeIndex: idx})
	}
	return out, r.err
}

// Resume resumes every thread in the VM (VirtualMachine.Resume).
func (c *Client) Resume() error {
	_, err := c.request(csVirtualMachine, cmdVMResume, nil)
	return err
}

// ResumeThread resumes exactly one thread (ThreadReference.Resume), which
// DAP's continue(thread) uses so allThreadsContinued stays false (spec
// §4.7).
func (c *Client) ResumeThread(t ThreadID) error {
	w := &writer{}
	c.wThreadID(w, t)
	_, err := c.request(csThreadReference, cmdThreadResume, w.buf)
	return err
}

// SuspendThread suspends exactly one thread.
func (c *Client) SuspendThread(t ThreadID) error {
	w := &writer{}
	c.wThreadID(w, t)
	_, err := c.request(csThreadReference, cmdThreadSuspend, w.buf)
	return err
}

// GetStackValues reads local variables for a frame (StackFrame.GetValues).
func (c *Client) GetStackValues(t ThreadID, f FrameID, slots []LocalVarSlot) ([]Value, error) {
	w := &writer{}
	c.wThreadID(w, t)
	c.wFrameID(w, f)
	w.u4(uint32(len(slots)))
	for _, s := range slots {
		w.u4(uint32(s.Slot))
		w.u1(sigTag(s.Signature))
	}
	reply, err := c.request(csStackFrame, cmdStackGetValues, w.buf)
	if err != nil {
		return nil, err
	}
	r := newReader(reply.Data)
	n := int(r.u4())
	out := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, c.rValue(r))
	}
	return out, r.err
}

// SetStackValue writes one local variable's value (StackFrame.SetValues).
func (c *Client) SetStackValue(t ThreadID, f FrameID, slot int, v Value) error {
	w := &writer{}
	c.wThreadID(w, t)
	c.wFrameID(w, f)
	w.u4(1)
	w.u4(uint32(slot))
	c.wValue(w, v)
	_, err := c.request(csStackFrame, cmdStackSetValues, w.buf)
	return err
}

// ObjectReferenceType returns an object's runtime ReferenceType (used to
// fill in the dynamic type of an evaluate() result, spec §4.6).
func (c *Client) ObjectReferenceType(o ObjectID) (TypeTag, ReferenceTypeID, error) {
	w := &writer{}
	c.wObjectID(w, o)
	reply, err := c.request(csObjectReference, cmdObjRefReferenceType, w.buf)
	if err != nil {
		return 0, 0, err
	}
	r := newReader(reply.Data)
	tag := TypeTag(r.u1())
	rt := c.rRefTypeID(r)
	return tag, rt, r.err
}

// GetObjectFields reads instance field values (ObjectReference.GetValues).
func (c *Client) GetObjectFields(o ObjectID, fields []FieldInfo) ([]Value, error) {
	w := &writer{}
	c.wObjectID(w, o)
	w.u4(uint32(len(fields)))
	for _, f := range fields {
		c.wFieldID(w, f.ID)
	}
	reply, err := c.request(csObjectReference, cmdObjRefGetValues, w.buf)
	if err != nil {
		return nil, err
	}
	r := newReader(reply.Data)
	n := int(r.u4())
	out := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, c.rValue(r))
	}
	return out, r.err
}

// SetObjectField writes one instance field (ObjectReference.SetValues).
func (c *Client) SetObjectField(o ObjectID, f FieldID, v Value) error {
	w := &writer{}
	c.wObjectID(w, o)
	w.u4(1)
	c.wFieldID(w, f)
	c.wValueUntagged(w, v)
	_, err := c.request(csObjectReference, cmdObjRefSetValues, w.buf)
	return err
}

// GetStaticFields reads static field values via ReferenceType.GetValues,
// used for a frame's "Static" scope (spec §4.7).
func (c *Client) GetStaticFields(rt ReferenceTypeID, fields []FieldInfo) ([]Value, error) {
	w := &writer{}
	c.wRefTypeID(w, rt)
	w.u4(uint32(len(fields)))
	for _, f := range fields {
		c.wFieldID(w, f.ID)
	}
	reply, err := c.request(csReferenceType, cmdRTGetValues, w.buf)
	if err != nil {
		return nil, err
	}
	r := newReader(reply.Data)
	n := int(r.u4())
	out := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, c.rValue(r))
	}
	return out, r.err
}

// SetStaticField writes one static field (ClassType.SetValues).
func (c *Client) SetStaticField(rt ReferenceTypeID, f FieldID, v Value) error {
	w := &writer{}
	c.wRefTypeID(w, rt)
	w.u4(1)
	c.wFieldID(w, f)
	c.wValueUntagged(w, v)
	_, err := c.request(csClassType, cmdClassTypeSetValues, w.buf)
	return err
}

// wValueUntagged writes a value's raw bytes without its leading tag byte
// (ObjectReference/ClassType.SetValues take untagged values sized by the
// target field's own declared type, unlike StackFrame.SetValues).
func (c *Client) wValueUntagged(w *writer, v Value) {
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
	default:
		c.wObjectID(w, v.Obj)
	}
}

// DisableCollection pins an object against JDWP-side garbage collection
// (spec §4.6, §4.7 pinning).
func (c *Client) DisableCollection(o ObjectID) error {
	w := &writer{}
	c.wObjectID(w, o)
	_, err := c.request(csObjectReference, cmdObjRefDisableCollection, w.buf)
	return err
}

// EnableCollection undoes DisableCollection.
func (c *Client) EnableCollection(o ObjectID) error {
	w := &writer{}
	c.wObjectID(w, o)
	_, err := c.request(csObjectReference, cmdObjRefEnableCollection, w.buf)
	return err
}

// StringValue reads a java.lang.String object's UTF-8 contents.
func (c *Client) StringValue(o ObjectID) (string, error) {
	w := &writer{}
	c.wObjectID(w, o)
	reply, err := c.request(csStringReference, cmdStringValue, w.buf)
	if err != nil {
		return "", err
	}
	r := newReader(reply.Data)
	return r.jstring(), r.err
}

// ArrayLength returns an array object's element count.
func (c *Client) ArrayLength(o ArrayID) (int, error) {
	w := &writer{}
	c.wObjectID(w, o)
	reply, err := c.request(csArrayReference, cmdArrayLength, w.buf)
	if err != nil {
		return 0, err
	}
	r := newReader(reply.Data)
	return int(r.u4()), r.err
}

// ArrayValues reads length elements of an array starting at index.
func (c *Client) ArrayValues(o ArrayID, index, length int) ([]Value, error) {
	w := &writer{}
	c.wObjectID(w, o)
	w.u4(uint32(index))
	w.u4(uint32(length))
	reply, err := c.request(csArrayReference, cmdArrayGetValues, w.buf)
	if err != nil {
		return nil, err
	}
	r := newReader(reply.Data)
	tag := Tag(r.u1())
	n := int(r.u4())
	out := make([]Value, 0, n)
	isObjTag := tag == TagArray || tag == TagObject || tag == TagString || tag == TagThread || tag == TagThreadGroup || tag == TagClassLoader || tag == TagClassObject
	for i := 0; i < n; i++ {
		if isObjTag {
			out = append(out, c.rValue(r)) // each element re-tagged
		} else {
			out = append(out, c.rValueTagged(r, tag))
		}
	}
	return out, r.err
}

// ArraySetValues writes values starting at index (ArrayReference.SetValues).
func (c *Client) ArraySetValues(o ArrayID, index int, values []Value) error {
	w := &writer{}
	c.wObjectID(w, o)
	w.u4(uint32(index))
	w.u4(uint32(len(values)))
	for _, v := range values {
		c.wValueUntagged(w, v)
	}
	_, err := c.request(csArrayReference, cmdArraySetValues, w.buf)
	return err
}

// RedefineClasses installs new bytecode for an already-loaded class (spec
// §4.6 hot-swap). A JDWP error 62 reply means the new bytecode changes the
// class's schema in a way the running VM can't apply live.
func (c *Client) RedefineClasses(rt ReferenceTypeID, bytecode []byte) error {
	w := &writer{}
	w.u4(1)
	c.wRefTypeID(w, rt)
	w.u4(uint32(len(bytecode)))
	w.bytes(bytecode)
	_, err := c.request(csVirtualMachine, cmdVMRedefineClasses, w.buf)
	return err
}

// InvokeResult is the outcome of a method invocation: the returned value
// plus, for a thrown exception, the exception object (spec §4.8's stream
// sampling surfaces a thrown exception as a Jdwp error, not a crashed
// session).
type InvokeResult struct {
	Value     Value
	Exception ObjectID // 0 when nothing was thrown
}

// InvokeStaticMethod calls ClassType.InvokeMethod: a static method on a
// loaded class, run on the given (suspended) thread with
// InvokeSingleThreaded so the rest of the VM stays parked (nova/streamdebug
// §4.8's stage-by-stage re-evaluation).
func (c *Client) InvokeStaticMethod(rt ReferenceTypeID, t ThreadID, m MethodID, args []Value, options uint32) (*InvokeResult, error) {
	w := &writer{}
	c.wRefTypeID(w, rt)
	c.wThreadID(w, t)
	c.wMethodID(w, m)
	w.u4(uint32(len(args)))
	for _, a := range args {
		c.wValue(w, a)
	}
	w.u4(options)
	reply, err := c.request(csClassType, cmdClassTypeInvokeMethod, w.buf)
	if err != nil {
		return nil, err
	}
	r := newReader(reply.Data)
	v := c.rValue(r)
	_ = r.u1() // exception's tag byte; Throwable is always an object tag
	exc := c.rObjectID(r)
	if r.err != nil {
		return nil, r.err
	}
	return &InvokeResult{Value: v, Exception: exc}, nil
}

// InvokeInstanceMethod calls ObjectReference.InvokeMethod: an instance
// method dispatched virtually from rt (the compile-time/declaring type used
// to resolve overloads), run on the given thread with InvokeSingleThreaded.
func (c *Client) InvokeInstanceMethod(o ObjectID, t ThreadID, rt ReferenceTypeID, m MethodID, args []Value, options uint32) (*InvokeResult, error) {
	w := &writer{}
	c.wObjectID(w, o)
	c.wThreadID(w, t)
	c.wRefTypeID(w, rt)
	c.wMethodID(w, m)
	w.u4(uint32(len(args)))
	for _, a := range args {
		c.wValue(w, a)
	}
	w.u4(options)
	reply, err := c.request(csObjectReference, cmdObjRefInvokeMethod, w.buf)
	if err != nil {
		return nil, err
	}
	r := newReader(reply.Data)
	v := c.rValue(r)
	_ = r.u1()
	exc := c.rObjectID(r)
	if r.err != nil {
		return nil, r.err
	}
	return &InvokeResult{Value: v, Exception: exc}, nil
}

// ClassLoader returns a ReferenceType's defining class loader
// (ReferenceType.ClassLoader), 0 for the bootstrap loader. nova/streamdebug
// uses this to find the defineClass method its compiled-probe-class
// injection (spec §4.8) defines the probe class through.
func (c *Client) ClassLoader(rt ReferenceTypeID) (ObjectID, error) {
	w := &writer{}
	c.wRefTypeID(w, rt)
	reply, err := c.request(csReferenceType, cmdRTClassLoader, w.buf)
	if err != nil {
		return 0, err
	}
	r := newReader(reply.Data)
	loader := c.rObjectID(r)
	return loader, r.err
}

// CreateString interns a new java.lang.String in the target VM
// (VirtualMachine.CreateString), used to pass a class name into
// ClassLoader.defineClass.
func (c *Client) CreateString(s string) (StringID, error) {
	w := &writer{}
	w.jstring(s)
	reply, err := c.request(csVirtualMachine, cmdVMCreateString, w.buf)
	if err != nil {
		return 0, err
	}
	r := newReader(reply.Data)
	id := c.rObjectID(r)
	return id, r.err
}

// NewByteArray allocates a fresh byte[] of the given length
// (ArrayType.NewInstance on the "[B" array type), then populates it with
// data via ArraySetValues. Used to pass compiled probe-class bytecode into
// ClassLoader.defineClass(String,byte[],int,int).
func (c *Client) NewByteArray(data []byte) (ArrayID, error) {
	types, err := c.ClassesBySignature("[B")
	if err != nil {
		return 0, err
	}
	if len(types) == 0 {
		return 0, errors.New("array type [B not loaded")
	}
	w := &writer{}
	c.wRefTypeID(w, types[0].ID)
	w.u4(uint32(len(data)))
	reply, err := c.request(csArrayType, cmdArrayTypeNewInstance, w.buf)
	if err != nil {
		return 0, err
	}
	r := newReader(reply.Data)
	_ = r.u1() // tag byte, always TagArray
	arr := c.rObjectID(r)
	if r.err != nil {
		return 0, r.err
	}
	if len(data) > 0 {
		values := make([]Value, len(data))
		for i, b := range data {
			values[i] = Value{Tag: TagByte, Prim: int64(int8(b))}
		}
		if err := c.ArraySetValues(arr, 0, values); err != nil {
			return 0, err
		}
	}
	return arr, nil
}

// ReflectedType converts a java.lang.Class instance into the
// ReferenceTypeID it reflects (ClassObjectReference.ReflectedType) — the
// step after ClassLoader.defineClass returns its Class<?> result, so the
// newly injected probe class can be looked up by Methods/InvokeStaticMethod
// like any other loaded type.
func (c *Client) ReflectedType(classObject ObjectID) (ReferenceTypeID, error) {
	w := &writer{}
	c.wObjectID(w, classObject)
	reply, err := c.request(csClassObjectReference, cmdClassObjReflectedType, w.buf)
	if err != nil {
		return 0, err
	}
	r := newReader(reply.Data)
	_ = r.u1() // TypeTag
	rt := c.rRefTypeID(r)
	return rt, r.err
}

// sigTag maps a JNI field signature to its JDWP value tag, used when
// requesting typed StackFrame.GetValues slots. Parses via the teacher's
// classfile.ParseFieldDescriptor rather than hand-rolling the same
// base-type/array/class-name switch classfile/descriptor.go already does.
func sigTag(sig string) byte {
	ft := classfile.ParseFieldDescriptor(sig)
	if ft == nil {
		return byte(TagObject)
	}
	if ft.IsArray() {
		return byte(TagArray)
	}
	if ft.IsReference() {
		return byte(TagObject)
	}
	if tag, ok := baseTypeTags[ft.BaseType]; ok {
		return byte(tag)
	}
	return byte(TagObject)
}

var baseTypeTags = map[string]Tag{
	"byte": TagByte, "char": TagChar, "double": TagDouble, "float": TagFloat,
	"int": TagInt, "long": TagLong, "short": TagShort, "boolean": TagBoolean,
}
