package pdfio

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Lance219/pdfio/object"
)

// serializeValue writes v in PDF syntax. It covers exactly the value kinds
// the object package models; stream bodies are written by the caller
// (CreateObject only ever serializes plain dictionaries, and the trailer
// writer builds its own stream body for xref-stream emission).
func serializeValue(w io.Writer, v object.Value) error {
	switch val := v.(type) {
	case object.Null:
		_, err := io.WriteString(w, "null")
		return err
	case object.Boolean:
		if val {
			_, err := io.WriteString(w, "true")
			return err
		}
		_, err := io.WriteString(w, "false")
		return err
	case object.Integer:
		_, err := fmt.Fprintf(w, "%d", int64(val))
		return err
	case object.Real:
		_, err := fmt.Fprintf(w, "%g", float64(val))
		return err
	case object.Name:
		_, err := fmt.Fprintf(w, "/%s", string(val))
		return err
	case object.String:
		return serializeString(w, val)
	case object.Reference:
		_, err := fmt.Fprintf(w, "%d %d R", val.Num, val.Gen)
		return err
	case *object.Array:
		return serializeArray(w, val)
	case *object.Dictionary:
		return serializeDict(w, val)
	case *object.Stream:
		return serializeDict(w, val.Dict)
	default:
		return fmt.Errorf("serializeValue: unsupported value kind %q", v.Kind())
	}
}

func serializeString(w io.Writer, s object.String) error {
	if s.Hex {
		if _, err := io.WriteString(w, "<"); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%x", s.Bytes); err != nil {
			return err
		}
		_, err := io.WriteString(w, ">")
		return err
	}
	if _, err := io.WriteString(w, "("); err != nil {
		return err
	}
	for _, b := range s.Bytes {
		switch b {
		case '(', ')', '\\':
			if _, err := fmt.Fprintf(w, "\\%c", b); err != nil {
				return err
			}
		default:
			if _, err := w.Write([]byte{b}); err != nil {
				return err
			}
		}
	}
	_, err := io.WriteString(w, ")")
	return err
}

func serializeArray(w io.Writer, a *object.Array) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return err
	}
	for i := 0; i < a.Len(); i++ {
		if i > 0 {
			if _, err := io.WriteString(w, " "); err != nil {
				return err
			}
		}
		v, _ := a.Get(i)
		if err := serializeValue(w, v); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "]")
	return err
}

func serializeDict(w io.Writer, d *object.Dictionary) error {
	if _, err := io.WriteString(w, "<< "); err != nil {
		return err
	}
	for _, key := range d.Keys() {
		v, _ := d.Get(key)
		if _, err := fmt.Fprintf(w, "/%s ", string(key)); err != nil {
			return err
		}
		if err := serializeValue(w, v); err != nil {
			return err
		}
		if _, err := io.WriteString(w, " "); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, ">>")
	return err
}

// writeTrailer emits the close-time xref section and trailer, per
// Options.XRefStreams.
func (f *File) writeTrailer() error {
	offset, err := f.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if f.opts.XRefStreams {
		return f.writeXRefStream(offset)
	}
	return f.writeClassicalXRef(offset)
}

func (f *File) trailerDict(size int) *object.Dictionary {
	d := object.NewDictionary()
	d.Set("Size", object.Integer(size))
	if f.hasRoot {
		d.Set("Root", object.Reference(f.rootRef))
	}
	if f.hasInfo {
		d.Set("Info", object.Reference(f.infoRef))
	}
	if f.id != nil {
		d.Set("ID", f.id)
	}
	return d
}

func (f *File) writeClassicalXRef(xrefOffset int64) error {
	n := f.reg.Count()
	if _, err := io.WriteString(f.f, "xref\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f.f, "0 %d\n", n+1); err != nil {
		return err
	}
	if _, err := io.WriteString(f.f, "0000000000 65535 f \n"); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		rec, _ := f.reg.Get(i)
		if _, err := fmt.Fprintf(f.f, "%010d %05d n \n", rec.Offset, rec.Generation); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(f.f, "trailer\n"); err != nil {
		return err
	}
	if err := serializeValue(f.f, f.trailerDict(n+1)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f.f, "\nstartxref\n%d\n%%%%EOF", xrefOffset); err != nil {
		return err
	}
	return nil
}

// writeXRefStream emits an xref stream instead of a classical table: the
// stream object itself (number n+1) carries the trailer keys alongside
// /W, /Index, and /Size, with a W = [1, 4, 1] fixed-width body compressed
// with FlateDecode.
func (f *File) writeXRefStream(xrefOffset int64) error {
	n := f.reg.Count()
	xrefNumber := n + 1

	var body bytes.Buffer
	body.WriteByte(0)
	binary.Write(&body, binary.BigEndian, uint32(0))
	body.WriteByte(255)
	for i := 0; i < n; i++ {
		rec, _ := f.reg.Get(i)
		body.WriteByte(1)
		binary.Write(&body, binary.BigEndian, uint32(rec.Offset))
		body.WriteByte(byte(rec.Generation))
	}
	// The xref stream describes itself too: object xrefNumber, at the offset
	// the caller is about to write it.
	body.WriteByte(1)
	binary.Write(&body, binary.BigEndian, uint32(xrefOffset))
	body.WriteByte(0)

	var compressed bytes.Buffer
	zw, err := flate.NewWriter(&compressed, flate.DefaultCompression)
	if err != nil {
		return err
	}
	if _, err := zw.Write(body.Bytes()); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	dict := f.trailerDict(xrefNumber + 1)
	dict.Set("Type", object.Name("XRef"))
	dict.Set("W", object.NewArray(object.Integer(1), object.Integer(4), object.Integer(1)))
	dict.Set("Index", object.NewArray(object.Integer(0), object.Integer(int64(xrefNumber+1))))
	dict.Set("Filter", object.Name("FlateDecode"))
	dict.Set("Length", object.Integer(int64(compressed.Len())))

	if _, err := fmt.Fprintf(f.f, "%d 0 obj\n", xrefNumber); err != nil {
		return err
	}
	if err := serializeValue(f.f, dict); err != nil {
		return err
	}
	if _, err := io.WriteString(f.f, "\nstream\n"); err != nil {
		return err
	}
	if _, err := f.f.Write(compressed.Bytes()); err != nil {
		return err
	}
	if _, err := io.WriteString(f.f, "\nendstream\nendobj\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f.f, "startxref\n%d\n%%%%EOF", xrefOffset); err != nil {
		return err
	}
	return nil
}
