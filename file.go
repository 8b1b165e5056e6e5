// Package pdfio is the core of a PDF document engine: it opens a PDF
// byte-stream, reconstructs its object graph from the cross-reference data
// at the tail of the file, and exposes that graph — object registry, page
// list, trailer handles — to higher-level consumers. Tokenizing, value
// parsing, and stream decompression are delegated to the token, valueio,
// and streamfilter packages; this package wires them together around the
// xref loader, the object-stream decoder, and the page-tree flattener.
package pdfio

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/Lance219/pdfio/limits"
	"github.com/Lance219/pdfio/object"
	"github.com/Lance219/pdfio/objload"
	"github.com/Lance219/pdfio/objstm"
	"github.com/Lance219/pdfio/observability"
	"github.com/Lance219/pdfio/pagetree"
	"github.com/Lance219/pdfio/registry"
	"github.com/Lance219/pdfio/xref"
)

// Mode is the access mode a File was opened or created in.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

// Options configures Open and Create. The zero value is a valid set of
// defaults: a no-op logger and classical (non-stream) xref emission.
type Options struct {
	// Logger receives one Error-level call per failure and Debug/Info
	// lines tracing the xref walk and page-tree flattening. Defaults to
	// observability.NopLogger{}.
	Logger observability.Logger

	// Tracer wraps the xref load and page-tree flatten in spans. Defaults
	// to observability.NopTracer().
	Tracer observability.Tracer

	// Limits bounds xref chain depth, object-stream population, and
	// decompressed stream size. Defaults to limits.Default().
	Limits limits.Limits

	// XRefStreams selects xref-stream emission at Close for a write-mode
	// file instead of a classical table. Defaults to false: classical
	// tables read in every PDF consumer ever shipped.
	XRefStreams bool
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = observability.NopLogger{}
	}
	if o.Tracer == nil {
		o.Tracer = observability.NopTracer()
	}
	var zeroLimits limits.Limits
	if o.Limits == zeroLimits {
		o.Limits = limits.Default()
	}
	return o
}

// File represents one opened or created PDF document. It owns every
// object, dictionary, array, and page-list entry reachable through it;
// their lifetimes end at Close.
type File struct {
	name    string
	version string
	mode    Mode
	f       *os.File

	reg   *registry.Registry
	pages []*object.Dictionary

	trailer  *object.Dictionary
	rootRef  object.Ref
	hasRoot  bool
	infoRef  object.Ref
	hasInfo  bool
	id       *object.Array

	opts Options

	nextNumber int
}

var versionHeader = regexp.MustCompile(`^%PDF-([12])\.([0-9])`)

// Open opens filename for reading and reconstructs its object graph.
func Open(filename string, opts Options) (*File, error) {
	opts = opts.withDefaults()
	osFile, err := os.Open(filename)
	if err != nil {
		opts.Logger.Error("pdfio: open failed", observability.String("file", filename), observability.Error("err", err))
		return nil, newError(IO, "opening file", err)
	}

	f := &File{
		name: filename,
		mode: ModeRead,
		f:    osFile,
		reg:  registry.New(),
		opts: opts,
	}

	if err := f.readHeader(); err != nil {
		f.f.Close()
		opts.Logger.Error("pdfio: header validation failed", observability.Error("err", err))
		return nil, newError(Header, "validating PDF header", err)
	}

	size, err := fileSize(f.f)
	if err != nil {
		f.f.Close()
		opts.Logger.Error("pdfio: stat failed", observability.Error("err", err))
		return nil, newError(IO, "stat failed", err)
	}

	_, span := opts.Tracer.StartSpan(context.Background(), observability.SpanXrefLoad)
	startOffset, err := xref.TailScan(f.f, size)
	if err != nil {
		span.SetError(err)
		span.Finish()
		f.f.Close()
		opts.Logger.Error("pdfio: tail scan failed", observability.Error("err", err))
		return nil, newError(XrefLocate, "locating startxref", err)
	}

	decoder := objstm.New(f.f, f.reg, opts.Limits)
	trailer, err := xref.Load(f.f, startOffset, f.reg, decoder, opts.Limits, opts.Logger)
	span.Finish()
	if err != nil {
		f.f.Close()
		opts.Logger.Error("pdfio: xref load failed", observability.Error("err", err))
		return nil, newError(XrefFormat, "loading cross-reference data", err)
	}
	f.trailer = trailer

	rootRef, ok := trailer.RefAt("Root")
	if !ok {
		f.f.Close()
		opts.Logger.Error("pdfio: missing Root object")
		return nil, newError(Catalog, "missing Root object", nil)
	}
	f.rootRef, f.hasRoot = rootRef, true

	if infoRef, ok := trailer.RefAt("Info"); ok {
		f.infoRef, f.hasInfo = infoRef, true
	}
	if idVal, ok := trailer.Get("ID"); ok {
		if arr, ok := idVal.(*object.Array); ok {
			f.id = arr
		}
	}

	rootVal, err := f.Resolve(f.rootRef)
	if err != nil {
		f.f.Close()
		opts.Logger.Error("pdfio: resolving Root object failed", observability.Error("err", err))
		return nil, newError(Catalog, "resolving Root object", err)
	}
	rootDict, ok := rootVal.(*object.Dictionary)
	if !ok {
		f.f.Close()
		opts.Logger.Error("pdfio: Root object is not a dictionary")
		return nil, newError(Catalog, "Root object is not a dictionary", nil)
	}
	if pagesRef, ok := rootDict.RefAt("Pages"); ok {
		_, span := opts.Tracer.StartSpan(context.Background(), observability.SpanPageTreeWalk)
		pages, err := pagetree.Flatten(f, pagesRef, opts.Limits)
		span.Finish()
		if err != nil {
			f.f.Close()
			opts.Logger.Error("pdfio: page tree flatten failed", observability.Error("err", err))
			return nil, newError(PageTree, "flattening page tree", err)
		}
		f.pages = pages
	}

	opts.Logger.Info("pdfio: file opened",
		observability.String("file", filename),
		observability.String("version", f.version),
		observability.Int("objects", f.reg.Count()),
		observability.Int("pages", len(f.pages)))
	return f, nil
}

// Create creates filename for writing, truncating any existing content,
// and writes the PDF header and binary marker. version defaults to "2.0".
func Create(filename, version string, opts Options) (*File, error) {
	opts = opts.withDefaults()
	if version == "" {
		version = "2.0"
	}
	osFile, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		opts.Logger.Error("pdfio: create failed", observability.String("file", filename), observability.Error("err", err))
		return nil, newError(IO, "creating file", err)
	}
	if _, err := fmt.Fprintf(osFile, "%%PDF-%s\n", version); err != nil {
		osFile.Close()
		opts.Logger.Error("pdfio: writing header failed", observability.Error("err", err))
		return nil, newError(IO, "writing header", err)
	}
	if _, err := osFile.Write([]byte{'%', 0xE2, 0xE3, 0xCF, 0xD3, '\n'}); err != nil {
		osFile.Close()
		opts.Logger.Error("pdfio: writing binary marker failed", observability.Error("err", err))
		return nil, newError(IO, "writing binary marker", err)
	}
	return &File{
		name:    filename,
		version: version,
		mode:    ModeWrite,
		f:       osFile,
		reg:     registry.New(),
		opts:    opts,
	}, nil
}

func (f *File) readHeader() error {
	line, _, err := readRawLine(f.f, 0)
	if err != nil {
		return fmt.Errorf("reading header line: %w", err)
	}
	m := versionHeader.FindStringSubmatch(line)
	if m == nil {
		return fmt.Errorf("malformed header %q", line)
	}
	f.version = m[1] + "." + m[2]
	return nil
}

func readRawLine(r io.ReaderAt, offset int64) (string, int64, error) {
	buf := make([]byte, 64)
	n, err := r.ReadAt(buf, offset)
	if n == 0 && err != nil {
		return "", offset, err
	}
	buf = buf[:n]
	for i, c := range buf {
		if c == '\n' || c == '\r' {
			return string(buf[:i]), offset + int64(i) + 1, nil
		}
	}
	return string(buf), offset + int64(len(buf)), nil
}

func fileSize(f *os.File) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Resolve implements pagetree.Resolver and is also used internally by
// FindObject/GetObject to lazily materialize an object's value on first
// access. A value already present (set by the xref loader's object-stream
// decoding, or by a prior Resolve) is returned without touching disk.
func (f *File) Resolve(ref object.Ref) (object.Value, error) {
	rec, found := f.reg.Find(ref.Num)
	if !found {
		return nil, fmt.Errorf("object %d not in registry", ref.Num)
	}
	if rec.Value != nil {
		return rec.Value, nil
	}
	if rec.Offset == 0 {
		return nil, fmt.Errorf("object %d has no backing offset and no materialized value", ref.Num)
	}
	obj, err := objload.Read(f.f, rec.Offset)
	if err != nil {
		return nil, fmt.Errorf("loading object %d: %w", ref.Num, err)
	}
	rec.Value = obj.Value
	rec.StreamOffset = obj.StreamData
	return rec.Value, nil
}

// Close releases the file's resources. For a write-mode file it first
// emits the xref table (or xref stream) and trailer; the returned error is
// non-nil if either that emission or the underlying close fails.
func (f *File) Close() error {
	if f.f == nil {
		return nil
	}
	var trailerErr error
	if f.mode == ModeWrite {
		trailerErr = f.writeTrailer()
	}
	closeErr := f.f.Close()
	f.f = nil
	if trailerErr != nil {
		f.opts.Logger.Error("pdfio: emitting trailer failed", observability.Error("err", trailerErr))
		return newError(IO, "emitting trailer", trailerErr)
	}
	if closeErr != nil {
		f.opts.Logger.Error("pdfio: close failed", observability.Error("err", closeErr))
		return newError(IO, "closing file", closeErr)
	}
	return nil
}

// FindObject returns the registry record for number, lazily resolving its
// value if this is the first access.
func (f *File) FindObject(number int) (*registry.Record, bool) {
	rec, ok := f.reg.Find(number)
	if !ok {
		return nil, false
	}
	if rec.Value == nil && rec.Offset != 0 {
		if _, err := f.Resolve(object.Ref{Num: rec.Number, Gen: rec.Generation}); err != nil {
			return nil, false
		}
	}
	return rec, true
}

// GetObject returns the registry record at insertion ordinal index.
func (f *File) GetObject(index int) (*registry.Record, bool) {
	rec, ok := f.reg.Get(index)
	if !ok {
		return nil, false
	}
	if rec.Value == nil && rec.Offset != 0 {
		if _, err := f.Resolve(object.Ref{Num: rec.Number, Gen: rec.Generation}); err != nil {
			return nil, false
		}
	}
	return rec, true
}

// NumObjects returns the number of objects in the registry.
func (f *File) NumObjects() int { return f.reg.Count() }

// GetPage returns the terminal page dictionary at index.
func (f *File) GetPage(index int) (*object.Dictionary, bool) {
	if index < 0 || index >= len(f.pages) {
		return nil, false
	}
	return f.pages[index], true
}

// NumPages returns the number of terminal pages found during Open.
func (f *File) NumPages() int { return len(f.pages) }

// Name returns the filename the file was opened or created from.
func (f *File) Name() string { return f.name }

// Version returns the document's declared PDF version, e.g. "1.7".
func (f *File) Version() string { return f.version }

// ID returns the trailer's /ID array, or nil if the document has none.
func (f *File) ID() *object.Array { return f.id }

// CreateObject appends a new indirect object to a write-mode file at the
// file's current write position, serializing dict immediately. It returns
// the new record so the caller can reference it elsewhere.
func (f *File) CreateObject(dict *object.Dictionary) (*registry.Record, error) {
	if f.mode != ModeWrite {
		f.opts.Logger.Error("pdfio: CreateObject called on a read-mode file")
		return nil, newError(IO, "CreateObject called on a read-mode file", nil)
	}
	f.nextNumber++
	number := f.nextNumber
	offset, err := f.f.Seek(0, io.SeekCurrent)
	if err != nil {
		f.opts.Logger.Error("pdfio: CreateObject tell failed", observability.Error("err", err))
		return nil, newError(IO, "CreateObject: tell failed", err)
	}
	rec, err := f.reg.Add(number, 0, offset)
	if err != nil {
		f.opts.Logger.Error("pdfio: CreateObject registry add failed", observability.Error("err", err))
		return nil, newError(Allocation, "CreateObject: registry add failed", err)
	}
	rec.Value = dict
	if _, err := fmt.Fprintf(f.f, "%d 0 obj\n", number); err != nil {
		f.opts.Logger.Error("pdfio: CreateObject write failed", observability.Error("err", err))
		return nil, newError(IO, "CreateObject: write failed", err)
	}
	if err := serializeValue(f.f, dict); err != nil {
		f.opts.Logger.Error("pdfio: CreateObject serialize failed", observability.Error("err", err))
		return nil, newError(IO, "CreateObject: serialize failed", err)
	}
	if _, err := fmt.Fprint(f.f, "\nendobj\n"); err != nil {
		f.opts.Logger.Error("pdfio: CreateObject write failed", observability.Error("err", err))
		return nil, newError(IO, "CreateObject: write failed", err)
	}
	if typ, _ := dict.Name("Type"); typ == "Catalog" && !f.hasRoot {
		f.rootRef = object.Ref{Num: number, Gen: 0}
		f.hasRoot = true
	}
	return rec, nil
}
