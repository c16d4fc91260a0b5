package jdwp

import "testing"

func TestClassLoaderDecodesObjectID(t *testing.T) {
	client, jvm := newMockJVM(t)
	defer client.Close()

	jvm.onRequest = func(p *Packet) *Packet {
		if p.CommandSet == csReferenceType && p.Command == cmdRTClassLoader {
			w := &writer{}
			client.wObjectID(w, 0x42)
			return &Packet{Data: w.buf}
		}
		return nil
	}

	loader, err := client.ClassLoader(7)
	if err != nil {
		t.Fatalf("ClassLoader: %v", err)
	}
	if loader != 0x42 {
		t.Fatalf("loader = %d, want 0x42", loader)
	}
}

func TestCreateStringSendsUTF8AndDecodesID(t *testing.T) {
	client, jvm := newMockJVM(t)
	defer client.Close()

	var gotString string
	jvm.onRequest = func(p *Packet) *Packet {
		if p.CommandSet == csVirtualMachine && p.Command == cmdVMCreateString {
			r := newReader(p.Data)
			gotString = r.jstring()
			w := &writer{}
			client.wObjectID(w, 0x99)
			return &Packet{Data: w.buf}
		}
		return nil
	}

	id, err := client.CreateString("__NovaStreamProbe_1")
	if err != nil {
		t.Fatalf("CreateString: %v", err)
	}
	if id != 0x99 {
		t.Fatalf("id = %d, want 0x99", id)
	}
	if gotString != "__NovaStreamProbe_1" {
		t.Fatalf("server saw string %q", gotString)
	}
}

func TestReflectedTypeDecodesReferenceTypeID(t *testing.T) {
	client, jvm := newMockJVM(t)
	defer client.Close()

	jvm.onRequest = func(p *Packet) *Packet {
		if p.CommandSet == csClassObjectReference && p.Command == cmdClassObjReflectedType {
			w := &writer{}
			w.u1(byte(TypeTagClass))
			client.wRefTypeID(w, 0xABCD)
			return &Packet{Data: w.buf}
		}
		return nil
	}

	rt, err := client.ReflectedType(0x1234)
	if err != nil {
		t.Fatalf("ReflectedType: %v", err)
	}
	if rt != 0xABCD {
		t.Fatalf("rt = %#x, want 0xABCD", rt)
	}
}

func TestDefineAndInvokeStaticWiresThroughClassLoaderAndProbeClass(t *testing.T) {
	client, jvm := newMockJVM(t)
	defer client.Close()

	const (
		classLoaderRT   ReferenceTypeID = 1
		loaderObj       ObjectID        = 0x10
		defineClassMID  MethodID        = 0x20
		byteArrayRT     ReferenceTypeID = 2
		byteArrayObj    ObjectID        = 0x30
		nameStringObj   ObjectID        = 0x40
		probeClassObj   ObjectID        = 0x50
		probeRT         ReferenceTypeID = 3
		probeEvalMethod MethodID        = 0x60
		resultValue     int64           = 7
	)

	jvm.onRequest = func(p *Packet) *Packet {
		switch {
		case p.CommandSet == csVirtualMachine && p.Command == cmdVMClassesBySignature:
			r := newReader(p.Data)
			sig := r.jstring()
			w := &writer{}
			w.u4(1)
			if sig == "Ljava/lang/ClassLoader;" {
				w.u1(byte(TypeTagClass))
				client.wRefTypeID(w, classLoaderRT)
			} else {
				w.u1(byte(TypeTagArray))
				client.wRefTypeID(w, byteArrayRT)
			}
			w.u4(0)
			return &Packet{Data: w.buf}

		case p.CommandSet == csReferenceType && p.Command == cmdRTClassLoader:
			w := &writer{}
			client.wObjectID(w, loaderObj)
			return &Packet{Data: w.buf}

		case p.CommandSet == csReferenceType && p.Command == cmdRTMethods:
			r := newReader(p.Data)
			rt := client.rRefTypeID(r)
			w := &writer{}
			if rt == classLoaderRT {
				w.u4(1)
				client.wMethodID(w, defineClassMID)
				w.jstring("defineClass")
				w.jstring("(Ljava/lang/String;[BII)Ljava/lang/Class;")
				w.u4(0)
			} else {
				w.u4(1)
				client.wMethodID(w, probeEvalMethod)
				w.jstring("eval")
				w.jstring("()Ljava/lang/Object;")
				w.u4(0)
			}
			return &Packet{Data: w.buf}

		case p.CommandSet == csVirtualMachine && p.Command == cmdVMCreateString:
			w := &writer{}
			client.wObjectID(w, nameStringObj)
			return &Packet{Data: w.buf}

		case p.CommandSet == csArrayType && p.Command == cmdArrayTypeNewInstance:
			w := &writer{}
			w.u1(byte(TagArray))
			client.wObjectID(w, byteArrayObj)
			return &Packet{Data: w.buf}

		case p.CommandSet == csArrayReference && p.Command == cmdArraySetValues:
			return &Packet{Data: nil}

		case p.CommandSet == csObjectReference && p.Command == cmdObjRefInvokeMethod:
			// ClassLoader.defineClass(...) on the loader instance.
			w := &writer{}
			w.u1(byte(TagClassObject))
			client.wObjectID(w, probeClassObj)
			w.u1(byte(TagObject))
			client.wObjectID(w, 0) // no exception
			return &Packet{Data: w.buf}

		case p.CommandSet == csClassObjectReference && p.Command == cmdClassObjReflectedType:
			w := &writer{}
			w.u1(byte(TypeTagClass))
			client.wRefTypeID(w, probeRT)
			return &Packet{Data: w.buf}

		case p.CommandSet == csClassType && p.Command == cmdClassTypeInvokeMethod:
			w := &writer{}
			w.u1(byte(TagInt))
			w.u4(uint32(resultValue))
			w.u1(byte(TagObject))
			client.wObjectID(w, 0) // no exception
			return &Packet{Data: w.buf}
		}
		return nil
	}

	res, err := client.DefineAndInvokeStatic(9, probeRT, "__NovaStreamProbe_1", []byte{0xCA, 0xFE}, "eval", nil)
	if err != nil {
		t.Fatalf("DefineAndInvokeStatic: %v", err)
	}
	if res.Exception != 0 {
		t.Fatalf("unexpected exception object %d", res.Exception)
	}
	if res.Value.Prim != resultValue {
		t.Fatalf("result = %d, want %d", res.Value.Prim, resultValue)
	}
}
