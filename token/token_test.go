package token

import (
	"bytes"
	"io"
	"testing"
)

func reader(s string) *Reader {
	return NewReader(bytes.NewReader([]byte(s)), 0)
}

func TestGetNumbersAndName(t *testing.T) {
	r := reader("42 -17 3.14 /Type")
	want := []struct {
		kind  Kind
		isInt bool
		i     int64
		f     float64
		text  string
	}{
		{Number, true, 42, 42, ""},
		{Number, true, -17, -17, ""},
		{Number, false, 0, 3.14, ""},
		{Name, false, 0, 0, "Type"},
	}
	for i, w := range want {
		tok, err := r.Get()
		if err != nil {
			t.Fatalf("token %d: Get() error = %v", i, err)
		}
		if tok.Kind != w.kind {
			t.Fatalf("token %d: Kind = %v, want %v", i, tok.Kind, w.kind)
		}
		if w.kind == Number {
			if tok.IsInt != w.isInt || tok.Int != w.i {
				t.Fatalf("token %d: got %+v, want int=%d", i, tok, w.i)
			}
		}
		if w.kind == Name && tok.Text != w.text {
			t.Fatalf("token %d: Text = %q, want %q", i, tok.Text, w.text)
		}
	}
	if _, err := r.Get(); err != io.EOF {
		t.Fatalf("final Get() err = %v, want io.EOF", err)
	}
}

func TestNameHexEscape(t *testing.T) {
	r := reader("/A#20B")
	tok, err := r.Get()
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if tok.Text != "A B" {
		t.Fatalf("Text = %q, want %q", tok.Text, "A B")
	}
}

func TestLiteralString(t *testing.T) {
	r := reader(`(Hello (nested) \)World\n)`)
	tok, err := r.Get()
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	want := "Hello (nested) )World\n"
	if string(tok.Bytes) != want {
		t.Fatalf("Bytes = %q, want %q", tok.Bytes, want)
	}
}

func TestHexString(t *testing.T) {
	r := reader("<48656C6C6F>")
	tok, err := r.Get()
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(tok.Bytes) != "Hello" {
		t.Fatalf("Bytes = %q, want %q", tok.Bytes, "Hello")
	}
}

func TestHexStringOddDigitsPadded(t *testing.T) {
	r := reader("<901>")
	tok, err := r.Get()
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(tok.Bytes) != 2 {
		t.Fatalf("len(Bytes) = %d, want 2", len(tok.Bytes))
	}
}

func TestPushBack(t *testing.T) {
	r := reader("1 2 3")
	first, _ := r.Get()
	r.Push(first)
	again, err := r.Get()
	if err != nil {
		t.Fatalf("Get() after Push error = %v", err)
	}
	if again.Int != first.Int {
		t.Fatalf("pushed-back token mismatch: got %d, want %d", again.Int, first.Int)
	}
}

func TestDictAndArrayDelimiters(t *testing.T) {
	r := reader("<< /K [1 2] >>")
	kinds := []Kind{DictStart, Name, ArrayStart, Number, Number, ArrayEnd, DictEnd}
	for i, want := range kinds {
		tok, err := r.Get()
		if err != nil {
			t.Fatalf("token %d: Get() error = %v", i, err)
		}
		if tok.Kind != want {
			t.Fatalf("token %d: Kind = %v, want %v", i, tok.Kind, want)
		}
	}
}

func TestKeyword(t *testing.T) {
	r := reader("obj endobj stream")
	for _, want := range []string{"obj", "endobj", "stream"} {
		tok, err := r.Get()
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if tok.Kind != Keyword || tok.Text != want {
			t.Fatalf("got %+v, want keyword %q", tok, want)
		}
	}
}
