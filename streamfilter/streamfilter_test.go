package streamfilter

import (
	"bytes"
	"compress/flate"
	"testing"

	"github.com/Lance219/pdfio/limits"
	"github.com/Lance219/pdfio/object"
)

func flateCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		t.Fatalf("flate.NewWriter: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeFlateNoPredictor(t *testing.T) {
	want := []byte("hello xref stream body")
	dict := object.NewDictionary()
	dict.Set("Filter", object.Name("FlateDecode"))
	got, err := Decode(dict, flateCompress(t, want), limits.Default())
	if err != nil {
		t.Fatalf("Decode error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("Decode() = %q, want %q", got, want)
	}
}

func TestDecodeUnsupportedFilter(t *testing.T) {
	dict := object.NewDictionary()
	dict.Set("Filter", object.Name("NotAFilter"))
	if _, err := Decode(dict, []byte("x"), limits.Default()); err == nil {
		t.Fatalf("Decode() error = nil, want error for unsupported filter")
	}
}

func TestDecodeASCIIHex(t *testing.T) {
	dict := object.NewDictionary()
	dict.Set("Filter", object.Name("ASCIIHexDecode"))
	got, err := Decode(dict, []byte("68656C6C6F>"), limits.Default())
	if err != nil {
		t.Fatalf("Decode error = %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("Decode() = %q, want %q", got, "hello")
	}
}

func TestDecodeRunLength(t *testing.T) {
	dict := object.NewDictionary()
	dict.Set("Filter", object.Name("RunLengthDecode"))
	// 4 literal bytes "abcd" then EOD.
	in := []byte{3, 'a', 'b', 'c', 'd', 128}
	got, err := Decode(dict, in, limits.Default())
	if err != nil {
		t.Fatalf("Decode error = %v", err)
	}
	if string(got) != "abcd" {
		t.Fatalf("Decode() = %q, want %q", got, "abcd")
	}
}

func TestPNGPredictorUpFilter(t *testing.T) {
	dict := object.NewDictionary()
	dict.Set("Predictor", object.Integer(12))
	dict.Set("Colors", object.Integer(1))
	dict.Set("BitsPerComponent", object.Integer(8))
	dict.Set("Columns", object.Integer(3))
	// Row 1: tag=0 (None) -> 1,2,3. Row 2: tag=2 (Up) -> +row1 -> 2,4,6.
	in := []byte{0, 1, 2, 3, 2, 1, 2, 3}
	out, err := applyPredictor(in, dict)
	if err != nil {
		t.Fatalf("applyPredictor error = %v", err)
	}
	want := []byte{1, 2, 3, 2, 4, 6}
	if !bytes.Equal(out, want) {
		t.Fatalf("applyPredictor() = %v, want %v", out, want)
	}
}
