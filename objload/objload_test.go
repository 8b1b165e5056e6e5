package objload

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Lance219/pdfio/object"
)

func TestReadPlainObject(t *testing.T) {
	src := bytes.NewReader([]byte("5 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n"))
	obj, err := Read(src, 0)
	if err != nil {
		t.Fatalf("Read error = %v", err)
	}
	if obj.Num != 5 || obj.Gen != 0 {
		t.Fatalf("Num/Gen = %d/%d, want 5/0", obj.Num, obj.Gen)
	}
	dict, ok := obj.Value.(*object.Dictionary)
	if !ok {
		t.Fatalf("Value = %T, want *object.Dictionary", obj.Value)
	}
	if n, _ := dict.Name("Type"); n != "Catalog" {
		t.Fatalf("Type = %q, want Catalog", n)
	}
	if obj.StreamData != 0 {
		t.Fatalf("StreamData = %d, want 0 for non-stream object", obj.StreamData)
	}
}

func TestReadStreamObject(t *testing.T) {
	body := "3 0 obj\n<< /Length 11 >>\nstream\nhello world\nendstream\nendobj\n"
	src := strings.NewReader(body)
	obj, err := Read(src, 0)
	if err != nil {
		t.Fatalf("Read error = %v", err)
	}
	stream, ok := obj.Value.(*object.Stream)
	if !ok {
		t.Fatalf("Value = %T, want *object.Stream", obj.Value)
	}
	want := int64(strings.Index(body, "stream\n") + len("stream\n"))
	if stream.DataOffset != want {
		t.Fatalf("DataOffset = %d, want %d", stream.DataOffset, want)
	}
}

func TestReadMissingObjKeyword(t *testing.T) {
	src := strings.NewReader("5 0 oops\n")
	if _, err := Read(src, 0); err == nil {
		t.Fatalf("Read() error = nil, want error for missing obj keyword")
	}
}
