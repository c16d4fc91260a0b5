package jdwp

import (
	"github.com/pkg/errors"
)

// DefineAndInvokeStatic injects a freshly compiled helper class into the
// target VM and invokes one of its static methods, returning the result.
// This is how nova/streamdebug (spec §4.8) re-evaluates a stream pipeline
// expression: rather than attempting to resolve arbitrary Java syntax over
// the wire (explicitly out of scope per spec §1's evaluate() non-goal),
// the caller compiles the expression into a real .java source file with
// javac — exactly the way nova/dap's hot-swap already does — and this
// method loads the resulting bytecode through the same class loader as
// declaringType via reflection over ClassLoader.defineClass, then invokes
// the named static method on it.
//
// declaringType anchors which class loader the probe class is defined
// under, so it can see the same types (the user's classes, in particular)
// as the code being debugged.
func (c *Client) DefineAndInvokeStatic(thread ThreadID, declaringType ReferenceTypeID, className string, bytecode []byte, methodName string, args []Value) (*InvokeResult, error) {
	loader, err := c.ClassLoader(declaringType)
	if err != nil {
		return nil, errors.Wrap(err, "resolve class loader")
	}
	if loader == 0 {
		loader, err = c.systemClassLoader(thread)
		if err != nil {
			return nil, errors.Wrap(err, "resolve system class loader")
		}
	}

	probeClass, err := c.defineClass(loader, thread, className, bytecode)
	if err != nil {
		return nil, errors.Wrap(err, "define probe class")
	}
	probeRT, err := c.ReflectedType(probeClass)
	if err != nil {
		return nil, errors.Wrap(err, "resolve probe class reference type")
	}
	methods, err := c.Methods(probeRT)
	if err != nil {
		return nil, errors.Wrap(err, "list probe class methods")
	}
	var m MethodID
	found := false
	for _, mi := range methods {
		if mi.Name == methodName {
			m = mi.ID
			found = true
			break
		}
	}
	if !found {
		return nil, errors.Errorf("probe class %s has no method %s", className, methodName)
	}
	return c.InvokeStaticMethod(probeRT, thread, m, args, InvokeSingleThreaded)
}

// systemClassLoader resolves ClassLoader.getSystemClassLoader() for the
// bootstrap-loader case (ReferenceType.ClassLoader returns object id 0 for
// classes loaded by the bootstrap loader, which has no object
// representation of its own to define new classes through).
func (c *Client) systemClassLoader(thread ThreadID) (ObjectID, error) {
	types, err := c.ClassesBySignature("Ljava/lang/ClassLoader;")
	if err != nil {
		return 0, err
	}
	if len(types) == 0 {
		return 0, errors.New("java.lang.ClassLoader not loaded")
	}
	methods, err := c.Methods(types[0].ID)
	if err != nil {
		return 0, err
	}
	for _, m := range methods {
		if m.Name == "getSystemClassLoader" && m.Signature == "()Ljava/lang/ClassLoader;" {
			res, err := c.InvokeStaticMethod(types[0].ID, thread, m.ID, nil, InvokeSingleThreaded)
			if err != nil {
				return 0, err
			}
			return res.Value.Obj, nil
		}
	}
	return 0, errors.New("ClassLoader.getSystemClassLoader not found")
}

// defineClass invokes ClassLoader.defineClass(String,byte[],int,int) on
// loader, returning the resulting Class object.
func (c *Client) defineClass(loader ObjectID, thread ThreadID, className string, bytecode []byte) (ObjectID, error) {
	types, err := c.ClassesBySignature("Ljava/lang/ClassLoader;")
	if err != nil {
		return 0, err
	}
	if len(types) == 0 {
		return 0, errors.New("java.lang.ClassLoader not loaded")
	}
	methods, err := c.Methods(types[0].ID)
	if err != nil {
		return 0, err
	}
	var defineClassMethod MethodID
	found := false
	for _, m := range methods {
		if m.Name == "defineClass" && m.Signature == "(Ljava/lang/String;[BII)Ljava/lang/Class;" {
			defineClassMethod = m.ID
			found = true
			break
		}
	}
	if !found {
		return 0, errors.New("ClassLoader.defineClass(String,byte[],int,int) not found")
	}

	nameID, err := c.CreateString(className)
	if err != nil {
		return 0, err
	}
	bytesID, err := c.NewByteArray(bytecode)
	if err != nil {
		return 0, err
	}
	args := []Value{
		{Tag: TagString, Obj: nameID},
		{Tag: TagArray, Obj: bytesID},
		{Tag: TagInt, Prim: 0},
		{Tag: TagInt, Prim: int64(len(bytecode))},
	}
	res, err := c.InvokeInstanceMethod(loader, thread, types[0].ID, defineClassMethod, args, InvokeSingleThreaded)
	if err != nil {
		return 0, err
	}
	if res.Exception != 0 {
		return 0, errors.New("defineClass threw an exception")
	}
	return res.Value.Obj, nil
}
