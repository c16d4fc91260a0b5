package classfile

import "testing"

func TestParseFieldDescriptorPrimitives(t *testing.T) {
	cases := map[string]string{
		"I": "int", "J": "long", "Z": "boolean", "B": "byte",
		"C": "char", "S": "short", "F": "float", "D": "double",
	}
	for desc, want := range cases {
		ft := ParseFieldDescriptor(desc)
		if ft == nil {
			t.Fatalf("ParseFieldDescriptor(%q) = nil", desc)
		}
		if got := ft.String(); got != want {
			t.Fatalf("ParseFieldDescriptor(%q).String() = %q, want %q", desc, got, want)
		}
		if ft.IsReference() {
			t.Fatalf("%q unexpectedly reports IsReference", desc)
		}
	}
}

func TestParseFieldDescriptorReferenceAndArray(t *testing.T) {
	ft := ParseFieldDescriptor("Ljava/lang/String;")
	if ft == nil || ft.String() != "java.lang.String" {
		t.Fatalf("unexpected descriptor: %+v", ft)
	}
	if !ft.IsReference() || ft.IsArray() {
		t.Fatalf("expected a non-array reference type, got %+v", ft)
	}

	arr := ParseFieldDescriptor("[[I")
	if arr == nil || arr.String() != "[][]int" {
		t.Fatalf("unexpected array descriptor: %+v", arr)
	}
	if !arr.IsArray() || !arr.IsReference() {
		t.Fatalf("expected an array to report both IsArray and IsReference, got %+v", arr)
	}
}

func TestParseFieldDescriptorMalformed(t *testing.T) {
	if ft := ParseFieldDescriptor(""); ft != nil {
		t.Fatalf("expected nil for empty descriptor, got %+v", ft)
	}
	if ft := ParseFieldDescriptor("Ljava/lang/String"); ft != nil {
		t.Fatalf("expected nil for an unterminated class descriptor, got %+v", ft)
	}
	if ft := ParseFieldDescriptor("Q"); ft != nil {
		t.Fatalf("expected nil for an unrecognized tag, got %+v", ft)
	}
}
