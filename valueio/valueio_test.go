package valueio

import (
	"bytes"
	"testing"

	"github.com/Lance219/pdfio/object"
	"github.com/Lance219/pdfio/token"
)

func readAll(t *testing.T, s string) object.Value {
	t.Helper()
	tr := token.NewReader(bytes.NewReader([]byte(s)), 0)
	v, err := Read(tr)
	if err != nil {
		t.Fatalf("Read(%q) error = %v", s, err)
	}
	return v
}

func TestReadScalarValues(t *testing.T) {
	if v := readAll(t, "true"); v != object.Boolean(true) {
		t.Fatalf("true: got %#v", v)
	}
	if v := readAll(t, "/Catalog"); v != object.Name("Catalog") {
		t.Fatalf("/Catalog: got %#v", v)
	}
	if v := readAll(t, "42"); v != object.Integer(42) {
		t.Fatalf("42: got %#v", v)
	}
	if v := readAll(t, "3.5"); v != object.Real(3.5) {
		t.Fatalf("3.5: got %#v", v)
	}
}

func TestReadIndirectReference(t *testing.T) {
	v := readAll(t, "12 0 R")
	ref, ok := v.(object.Reference)
	if !ok || ref.Num != 12 || ref.Gen != 0 {
		t.Fatalf("got %#v, want Reference{12,0}", v)
	}
}

func TestReadBareIntegerNotFollowedByR(t *testing.T) {
	tr := token.NewReader(bytes.NewReader([]byte("12 0 obj")), 0)
	v, err := Read(tr)
	if err != nil {
		t.Fatalf("Read error = %v", err)
	}
	if v != object.Integer(12) {
		t.Fatalf("got %#v, want Integer(12)", v)
	}
	second, err := Read(tr)
	if err != nil || second != object.Integer(0) {
		t.Fatalf("second Read = %#v, %v", second, err)
	}
}

func TestReadArrayOfReferences(t *testing.T) {
	v := readAll(t, "[1 0 R 2 0 R 3]")
	arr, ok := v.(*object.Array)
	if !ok || arr.Len() != 3 {
		t.Fatalf("got %#v", v)
	}
	last, _ := arr.Get(2)
	if last != object.Integer(3) {
		t.Fatalf("last element = %#v, want Integer(3)", last)
	}
}

func TestReadDictionary(t *testing.T) {
	v := readAll(t, "<< /Type /Catalog /Pages 2 0 R >>")
	dict, ok := v.(*object.Dictionary)
	if !ok {
		t.Fatalf("got %#v, want *object.Dictionary", v)
	}
	if n, ok := dict.Name("Type"); !ok || n != "Catalog" {
		t.Fatalf("Type = %q, %v", n, ok)
	}
	if r, ok := dict.RefAt("Pages"); !ok || r.Num != 2 {
		t.Fatalf("Pages = %+v, %v", r, ok)
	}
}

func TestReadNestedDictionary(t *testing.T) {
	v := readAll(t, "<< /Outer << /Inner 1 >> >>")
	dict := v.(*object.Dictionary)
	inner, ok := dict.DictAt("Outer")
	if !ok {
		t.Fatalf("Outer not a dict")
	}
	if n, ok := inner.Int("Inner"); !ok || n != 1 {
		t.Fatalf("Inner = %d, %v", n, ok)
	}
}
