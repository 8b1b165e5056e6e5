// Package objload implements the one piece of object parsing every other
// component needs but none of them should duplicate: reading the header of
// an indirect object ("N G obj ... endobj", optionally carrying a stream
// body) starting from a known byte offset. The xref loader uses it to read
// an xref-stream object's own dictionary; the object-stream decoder uses it
// to read the owning stream object; the core's lazy resolver uses it for
// everything else.
package objload

import (
	"fmt"

	"github.com/Lance219/pdfio/object"
	"github.com/Lance219/pdfio/token"
	"github.com/Lance219/pdfio/valueio"
)

// Object is one parsed indirect object header: its declared identity, the
// value that followed "obj", and — for a stream object — the byte offset
// where its body begins (0 if the object has no stream).
type Object struct {
	Num, Gen   int
	Value      object.Value
	StreamData int64
}

// Read parses the indirect object whose header starts at offset in r.
func Read(r token.Cursor, offset int64) (Object, error) {
	tr := token.NewReader(r, offset)

	numTok, err := tr.Get()
	if err != nil || numTok.Kind != token.Number || !numTok.IsInt {
		return Object{}, fmt.Errorf("objload: object header missing number at offset %d", offset)
	}
	genTok, err := tr.Get()
	if err != nil || genTok.Kind != token.Number || !genTok.IsInt {
		return Object{}, fmt.Errorf("objload: object header missing generation at offset %d", offset)
	}
	kwTok, err := tr.Get()
	if err != nil || kwTok.Kind != token.Keyword || kwTok.Text != "obj" {
		return Object{}, fmt.Errorf("objload: object header missing \"obj\" keyword at offset %d", offset)
	}

	val, err := valueio.Read(tr)
	if err != nil {
		return Object{}, fmt.Errorf("objload: object %d %d: %w", numTok.Int, genTok.Int, err)
	}

	out := Object{Num: int(numTok.Int), Gen: int(genTok.Int), Value: val}

	dict, isDict := val.(*object.Dictionary)
	if !isDict {
		return out, nil
	}
	next, err := tr.Get()
	if err != nil {
		return out, nil
	}
	if next.Kind != token.Keyword || next.Text != "stream" {
		tr.Push(next)
		return out, nil
	}
	dataOffset, err := skipStreamEOL(r, tr.Position())
	if err != nil {
		return Object{}, fmt.Errorf("objload: object %d %d: %w", numTok.Int, genTok.Int, err)
	}
	out.StreamData = dataOffset
	out.Value = &object.Stream{Dict: dict, DataOffset: dataOffset}
	return out, nil
}

// skipStreamEOL advances past the single CRLF or LF that PDF requires
// immediately after the "stream" keyword, per 7.3.8.1 of the format spec. A
// lone CR is tolerated since some writers get this wrong and the teacher's
// own scanner is similarly permissive about line endings elsewhere.
func skipStreamEOL(r token.Cursor, pos int64) (int64, error) {
	buf := make([]byte, 2)
	n, _ := r.ReadAt(buf, pos)
	switch {
	case n >= 2 && buf[0] == '\r' && buf[1] == '\n':
		return pos + 2, nil
	case n >= 1 && (buf[0] == '\n' || buf[0] == '\r'):
		return pos + 1, nil
	default:
		return 0, fmt.Errorf("malformed stream-begin at offset %d", pos)
	}
}
