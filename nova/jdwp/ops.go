package jdwp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nova-ide/nova/classfile"
)

// Sample size bounds for preview_object/object_children (spec §4.6: "sample
// sizes are bounded").
const (
	MaxArraySample    = 100
	MaxCollectionSample = 50
	MaxMapBucketScan    = 64 // bounded step count following collision chains
)

// ErrNotConnected mirrors spec §7's NotConnected JDWP error kind, which
// CommandError does not cover.
var (
	ErrNotConnected = errors.New("jdwp: not connected")
)

// InvalidObjectIDError is spec §7's InvalidObjectId(id).
type InvalidObjectIDError struct{ ID ObjectID }

func (e *InvalidObjectIDError) Error() string {
	return fmt.Sprintf("jdwp: invalid object id %d", e.ID)
}

// SetLineBreakpoint resolves className (a dotted binary name, e.g.
// "com.acme.Main", turned into its JNI signature here) plus line to the nearest executable code index via the
// class's line table, and installs a Breakpoint request there (spec §4.6:
// "resolves to the closest code index in the line table; uses
// SuspendPolicy.EVENT_THREAD").
func (c *Client) SetLineBreakpoint(className string, methodName string, line int) (requestID int, resolvedLine int, err error) {
	sig := "L" + strings.ReplaceAll(className, ".", "/") + ";"
	types, err := c.ClassesBySignature(sig)
	if err != nil || len(types) == 0 {
		return 0, 0, errors.Errorf("jdwp: class not loaded: %s", className)
	}
	rt := types[0].ID

	methods, err := c.Methods(rt)
	if err != nil {
		return 0, 0, err
	}
	for _, m := range methods {
		if methodName != "" && m.Name != methodName {
			continue
		}
		lt, err := c.LineTable(rt, m.ID)
		if err != nil || lt == nil {
			continue
		}
		idx, resolved, ok := lt.ClosestCodeIndex(line)
		if !ok {
			continue
		}
		reqID, err := c.SetBreakpoint(EventLocation{TypeTag: types[0].TypeTag, Type: rt, Method: m.ID, CodeIndex: idx})
		if err != nil {
			return 0, 0, err
		}
		return reqID, resolved, nil
	}
	return 0, 0, errors.Errorf("jdwp: line %d has no executable location in %s", line, className)
}

// EvalResult is the outcome of Evaluate: a value plus, for object results,
// the runtime reference type JDWP reports for it (spec §4.6: "for object
// results fills in the runtime type by querying the object's reference
// type").
type EvalResult struct {
	Value       Value
	RuntimeType string
}

// Evaluate supports spec §4.6's restricted expression grammar: a single
// Java identifier, resolved against the frame's local-variable table at
// its current code index.
func (c *Client) Evaluate(expr string, t ThreadID, f Frame) (*EvalResult, error) {
	ident := strings.TrimSpace(expr)
	if !isSimpleIdentifier(ident) {
		return nil, errors.Errorf("jdwp: unsupported expression %q (only a single identifier is supported)", expr)
	}
	vt, err := c.VariableTable(f.Type, f.Method)
	if err != nil {
		return nil, errors.Wrap(err, "VariableTable")
	}
	slot, ok := vt.Resolve(ident, f.CodeIndex)
	if !ok {
		return nil, errors.Errorf("jdwp: no local variable named %q in scope", ident)
	}
	values, err := c.GetStackValues(t, f.ID, []LocalVarSlot{slot})
	if err != nil || len(values) == 0 {
		return nil, errors.Wrap(err, "StackFrame.GetValues")
	}
	v := values[0]
	res := &EvalResult{Value: v}
	if v.IsObject() && v.Obj != 0 {
		_, rt, err := c.ObjectReferenceType(v.Obj)
		if err == nil {
			if sig, err := c.Signature(rt); err == nil {
				res.RuntimeType = sig
			}
		}
	}
	return res, nil
}

// ParseLiteral parses text into a Value typed by a JNI field signature, for
// setVariable's restricted literal grammar (spec §4.7): numeric/boolean
// literals for primitive slots, "null" for reference slots. Assigning a
// non-null object by text isn't supported — object values only flow from
// evaluate/preview results, never from a typed literal.
func (c *Client) ParseLiteral(sig string, text string) (Value, error) {
	text = strings.TrimSpace(text)
	tag := Tag(sigTag(sig))
	switch tag {
	case TagBoolean:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return Value{}, errors.Wrapf(err, "parse boolean %q", text)
		}
		p := int64(0)
		if b {
			p = 1
		}
		return Value{Tag: tag, Prim: p}, nil
	case TagByte, TagShort, TagInt, TagLong:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Value{}, errors.Wrapf(err, "parse integer %q", text)
		}
		return Value{Tag: tag, Prim: n}, nil
	case TagChar:
		r := []rune(text)
		if len(r) != 1 {
			return Value{}, errors.Errorf("jdwp: %q is not a single character", text)
		}
		return Value{Tag: tag, Prim: int64(r[0])}, nil
	case TagFloat, TagDouble:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, errors.Wrapf(err, "parse float %q", text)
		}
		return Value{Tag: tag, Float: f}, nil
	default:
		if text == "null" {
			return Value{Tag: tag, Obj: 0}, nil
		}
		return Value{}, errors.Errorf("jdwp: setVariable only supports assigning null to reference slots, got %q", text)
	}
}

func isSimpleIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || r == '$'
		isDigit := r >= '0' && r <= '9'
		if i == 0 && !isLetter {
			return false
		}
		if i > 0 && !isLetter && !isDigit {
			return false
		}
	}
	return true
}

// Preview is a structured preview of a live object (spec §4.6
// preview_object).
type Preview struct {
	Kind    string // "string", "primitive", "optional", "array", "list", "map", "set", "object"
	Text    string // rendered summary, e.g. `"hello"`, `Optional[42]`, `<Foo>#7`
	Sample  []string
	Length  int // arrays/collections
	Fields  map[string]string
}

// PreviewObject renders spec §4.6's rich preview for a live object handle.
func (c *Client) PreviewObject(o ObjectID) (*Preview, error) {
	if o == 0 {
		return &Preview{Kind: "object", Text: "null"}, nil
	}
	_, rt, err := c.ObjectReferenceType(o)
	if err != nil {
		return nil, &InvalidObjectIDError{ID: o}
	}
	sig, err := c.Signature(rt)
	if err != nil {
		return nil, err
	}

	switch {
	case sig == "Ljava/lang/String;":
		s, err := c.StringValue(o)
		if err != nil {
			return nil, err
		}
		return &Preview{Kind: "string", Text: fmt.Sprintf("%q", s)}, nil
	case isBoxedPrimitive(sig):
		return c.previewBoxed(o, sig)
	case sig == "Ljava/util/Optional;":
		return c.previewOptional(o, rt)
	case strings.HasPrefix(sig, "["):
		return c.previewArray(o, sig)
	case sig == "Ljava/util/ArrayList;":
		return c.previewArrayList(o, rt)
	case sig == "Ljava/util/HashMap;":
		return c.previewHashMap(o, rt)
	case sig == "Ljava/util/HashSet;":
		return c.previewHashSet(o, rt)
	default:
		return &Preview{Kind: "object", Text: fmt.Sprintf("<%s>#%d", stripJNI(sig), o)}, nil
	}
}

var boxedSigs = map[string]Tag{
	"Ljava/lang/Integer;":   TagInt,
	"Ljava/lang/Long;":      TagLong,
	"Ljava/lang/Short;":     TagShort,
	"Ljava/lang/Byte;":      TagByte,
	"Ljava/lang/Character;": TagChar,
	"Ljava/lang/Boolean;":   TagBoolean,
	"Ljava/lang/Float;":     TagFloat,
	"Ljava/lang/Double;":    TagDouble,
}

func isBoxedPrimitive(sig string) bool { _, ok := boxedSigs[sig]; return ok }

// previewBoxed unboxes a primitive wrapper by reading its single "value"
// field (spec §4.6: "primitive wrappers (unboxed)").
func (c *Client) previewBoxed(o ObjectID, sig string) (*Preview, error) {
	_, rt, err := c.ObjectReferenceType(o)
	if err != nil {
		return nil, err
	}
	fields, err := c.Fields(rt)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		if f.Name != "value" || f.IsStatic() {
			continue
		}
		vals, err := c.GetObjectFields(o, []FieldInfo{f})
		if err != nil || len(vals) == 0 {
			return nil, err
		}
		return &Preview{Kind: "primitive", Text: renderPrimitive(vals[0])}, nil
	}
	return &Preview{Kind: "primitive", Text: "?"}, nil
}

func renderPrimitive(v Value) string {
	switch v.Tag {
	case TagFloat, TagDouble:
		return fmt.Sprintf("%v", v.Float)
	case TagBoolean:
		return fmt.Sprintf("%v", v.Prim != 0)
	case TagChar:
		return fmt.Sprintf("%q", rune(v.Prim))
	default:
		return fmt.Sprintf("%d", v.Prim)
	}
}

// previewOptional renders Optional[x]/Optional.empty per spec §4.6/§4.8.
func (c *Client) previewOptional(o ObjectID, rt ReferenceTypeID) (*Preview, error) {
	fields, err := c.Fields(rt)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		if f.Name != "value" || f.IsStatic() {
			continue
		}
		vals, err := c.GetObjectFields(o, []FieldInfo{f})
		if err != nil || len(vals) == 0 {
			return nil, err
		}
		if vals[0].Obj == 0 && vals[0].IsObject() {
			return &Preview{Kind: "optional", Text: "Optional.empty"}, nil
		}
		inner, err := c.PreviewObject(vals[0].Obj)
		if err != nil {
			return &Preview{Kind: "optional", Text: "Optional.empty"}, nil
		}
		return &Preview{Kind: "optional", Text: fmt.Sprintf("Optional[%s]", inner.Text)}, nil
	}
	return &Preview{Kind: "optional", Text: "Optional.empty"}, nil
}

func (c *Client) previewArray(o ObjectID, sig string) (*Preview, error) {
	length, err := c.ArrayLength(o)
	if err != nil {
		return nil, err
	}
	n := length
	if n > MaxArraySample {
		n = MaxArraySample
	}
	values, err := c.ArrayValues(o, 0, n)
	if err != nil {
		return nil, err
	}
	sample := make([]string, 0, n)
	for _, v := range values {
		sample = append(sample, c.renderValue(v))
	}
	return &Preview{Kind: "array", Text: fmt.Sprintf("%s[%d]", stripJNI(sig), length), Length: length, Sample: sample}, nil
}

// previewArrayList reads ArrayList's backing elementData field (spec §4.6).
func (c *Client) previewArrayList(o ObjectID, rt ReferenceTypeID) (*Preview, error) {
	size, elementData, err := c.listInternals(o, rt)
	if err != nil {
		return nil, err
	}
	n := size
	if n > MaxCollectionSample {
		n = MaxCollectionSample
	}
	values, err := c.ArrayValues(elementData, 0, n)
	if err != nil {
		return nil, err
	}
	sample := make([]string, 0, n)
	for _, v := range values {
		sample = append(sample, c.renderValue(v))
	}
	return &Preview{Kind: "list", Text: fmt.Sprintf("ArrayList(%d)", size), Length: size, Sample: sample}, nil
}

func (c *Client) listInternals(o ObjectID, rt ReferenceTypeID) (size int, elementData ObjectID, err error) {
	fields, err := c.Fields(rt)
	if err != nil {
		return 0, 0, err
	}
	var sizeField, dataField *FieldInfo
	for i, f := range fields {
		switch f.Name {
		case "size":
			sizeField = &fields[i]
		case "elementData":
			dataField = &fields[i]
		}
	}
	if sizeField == nil || dataField == nil {
		return 0, 0, errors.New("jdwp: ArrayList layout fields not found")
	}
	vals, err := c.GetObjectFields(o, []FieldInfo{*sizeField, *dataField})
	if err != nil || len(vals) != 2 {
		return 0, 0, err
	}
	return int(vals[0].Prim), vals[1].Obj, nil
}

// previewHashMap scans HashMap's bucket array, following collision chains
// with a bounded step count (spec §4.6).
func (c *Client) previewHashMap(o ObjectID, rt ReferenceTypeID) (*Preview, error) {
	fields, err := c.Fields(rt)
	if err != nil {
		return nil, err
	}
	var tableField, sizeField *FieldInfo
	for i, f := range fields {
		switch f.Name {
		case "table":
			tableField = &fields[i]
		case "size":
			sizeField = &fields[i]
		}
	}
	if tableField == nil {
		return &Preview{Kind: "map", Text: "HashMap(0)"}, nil
	}
	want := []FieldInfo{*tableField}
	if sizeField != nil {
		want = append(want, *sizeField)
	}
	vals, err := c.GetObjectFields(o, want)
	if err != nil || len(vals) == 0 {
		return nil, err
	}
	table := vals[0].Obj
	size := 0
	if sizeField != nil && len(vals) > 1 {
		size = int(vals[1].Prim)
	}
	if table == 0 {
		return &Preview{Kind: "map", Text: fmt.Sprintf("HashMap(%d)", size)}, nil
	}
	bucketCount, err := c.ArrayLength(table)
	if err != nil {
		return nil, err
	}
	sample := make([]string, 0, MaxCollectionSample)
	steps := 0
	for b := 0; b < bucketCount && len(sample) < MaxCollectionSample && steps < MaxMapBucketScan; b++ {
		vals, err := c.ArrayValues(table, b, 1)
		if err != nil || len(vals) == 0 || vals[0].Obj == 0 {
			continue
		}
		node := vals[0].Obj
		for node != 0 && len(sample) < MaxCollectionSample && steps < MaxMapBucketScan {
			steps++
			kv, err := c.nodeKeyValueNext(node)
			if err != nil {
				break
			}
			keyPrev, _ := c.PreviewObject(kv.key)
			valPrev, _ := c.PreviewObject(kv.value)
			kt, vt := "null", "null"
			if keyPrev != nil {
				kt = keyPrev.Text
			}
			if valPrev != nil {
				vt = valPrev.Text
			}
			sample = append(sample, fmt.Sprintf("%s=%s", kt, vt))
			node = kv.next
		}
	}
	return &Preview{Kind: "map", Text: fmt.Sprintf("HashMap(%d)", size), Length: size, Sample: sample}, nil
}

type nodeKV struct {
	key, value ObjectID
	next       ObjectID
}

// nodeKeyValueNext reads a java.util.HashMap$Node's key/value/next fields.
func (c *Client) nodeKeyValueNext(node ObjectID) (nodeKV, error) {
	_, rt, err := c.ObjectReferenceType(node)
	if err != nil {
		return nodeKV{}, err
	}
	fields, err := c.Fields(rt)
	if err != nil {
		return nodeKV{}, err
	}
	var want []FieldInfo
	idx := map[string]int{}
	for _, f := range fields {
		switch f.Name {
		case "key", "value", "next":
			idx[f.Name] = len(want)
			want = append(want, f)
		}
	}
	vals, err := c.GetObjectFields(node, want)
	if err != nil {
		return nodeKV{}, err
	}
	var kv nodeKV
	if i, ok := idx["key"]; ok {
		kv.key = vals[i].Obj
	}
	if i, ok := idx["value"]; ok {
		kv.value = vals[i].Obj
	}
	if i, ok := idx["next"]; ok {
		kv.next = vals[i].Obj
	}
	return kv, nil
}

// previewHashSet renders via its backing map field (spec §4.6: "HashSet
// (via its map)").
func (c *Client) previewHashSet(o ObjectID, rt ReferenceTypeID) (*Preview, error) {
	fields, err := c.Fields(rt)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		if f.Name != "map" {
			continue
		}
		vals, err := c.GetObjectFields(o, []FieldInfo{f})
		if err != nil || len(vals) == 0 || vals[0].Obj == 0 {
			return &Preview{Kind: "set", Text: "HashSet(0)"}, nil
		}
		_, mrt, err := c.ObjectReferenceType(vals[0].Obj)
		if err != nil {
			return nil, err
		}
		mapPreview, err := c.previewHashMap(vals[0].Obj, mrt)
		if err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(mapPreview.Sample))
		for _, kv := range mapPreview.Sample {
			keys = append(keys, strings.SplitN(kv, "=", 2)[0])
		}
		return &Preview{Kind: "set", Text: fmt.Sprintf("HashSet(%d)", mapPreview.Length), Length: mapPreview.Length, Sample: keys}, nil
	}
	return &Preview{Kind: "set", Text: "HashSet(0)"}, nil
}

// RenderValue renders any Value the way variable/preview display does:
// primitives via renderPrimitive, objects via PreviewObject's summary text.
// nova/streamdebug uses this to turn a sampled stage's result into the
// output preview spec §4.8 describes (unboxed primitives, Optional[x]/
// Optional.empty, <type>#id object references).
func (c *Client) RenderValue(v Value) string {
	return c.renderValue(v)
}

func (c *Client) renderValue(v Value) string {
	if !v.IsObject() {
		return renderPrimitive(v)
	}
	if v.Obj == 0 {
		return "null"
	}
	p, err := c.PreviewObject(v.Obj)
	if err != nil {
		return fmt.Sprintf("#%d", v.Obj)
	}
	return p.Text
}

// stripJNI renders a JNI field descriptor ("[Ljava/lang/String;") as a
// source-level Java type name ("java.lang.String[]"), reusing the
// teacher's classfile descriptor parser (classfile/descriptor.go) instead
// of re-deriving the same array-depth/class-name logic here.
func stripJNI(sig string) string {
	ft := classfile.ParseFieldDescriptor(sig)
	if ft == nil {
		return sig
	}
	return ft.String()
}

// Child is one entry of ObjectChildren: a named/indexed value plus its
// declared type, for spec §4.6 object_children.
type Child struct {
	Name  string
	Type  string
	Value Value
	Text  string
}

// ObjectChildren returns an array's length+sampled indices, or an object's
// non-static fields (spec §4.6).
func (c *Client) ObjectChildren(o ObjectID) ([]Child, error) {
	_, rt, err := c.ObjectReferenceType(o)
	if err != nil {
		return nil, &InvalidObjectIDError{ID: o}
	}
	sig, err := c.Signature(rt)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(sig, "[") {
		length, err := c.ArrayLength(o)
		if err != nil {
			return nil, err
		}
		n := length
		if n > MaxArraySample {
			n = MaxArraySample
		}
		values, err := c.ArrayValues(o, 0, n)
		if err != nil {
			return nil, err
		}
		out := []Child{{Name: "length", Type: "int", Value: Value{Tag: TagInt, Prim: int64(length)}, Text: fmt.Sprintf("%d", length)}}
		for i, v := range values {
			out = append(out, Child{Name: fmt.Sprintf("[%d]", i), Type: stripJNI(sig[1:]), Value: v, Text: c.renderValue(v)})
		}
		return out, nil
	}
	fields, err := c.Fields(rt)
	if err != nil {
		return nil, err
	}
	var instanceFields []FieldInfo
	for _, f := range fields {
		if !f.IsStatic() {
			instanceFields = append(instanceFields, f)
		}
	}
	values, err := c.GetObjectFields(o, instanceFields)
	if err != nil {
		return nil, err
	}
	out := make([]Child, 0, len(instanceFields))
	for i, f := range instanceFields {
		out = append(out, Child{Name: f.Name, Type: stripJNI(f.Sig), Value: values[i], Text: c.renderValue(values[i])})
	}
	return out, nil
}
