// Package objstm implements pdfio's object-stream decoder: given a registry
// entry whose value is a compressed object stream, it materializes the
// objects declared in that stream's preamble back into top-level registry
// entries, in declaration order.
package objstm

import (
	"bytes"
	"fmt"
	"io"

	"github.com/Lance219/pdfio/limits"
	"github.com/Lance219/pdfio/object"
	"github.com/Lance219/pdfio/objload"
	"github.com/Lance219/pdfio/registry"
	"github.com/Lance219/pdfio/streamfilter"
	"github.com/Lance219/pdfio/token"
	"github.com/Lance219/pdfio/valueio"
)

// Decoder materializes compressed object streams. It satisfies
// xref.ObjectStreamDecoder without importing package xref.
type Decoder struct {
	r   io.ReaderAt
	reg *registry.Registry
	lim limits.Limits
}

// New returns a Decoder reading from r and populating reg.
func New(r io.ReaderAt, reg *registry.Registry, lim limits.Limits) *Decoder {
	return &Decoder{r: r, reg: reg, lim: lim}
}

// Decode reads the object-stream object numbered owner and adds each member
// it declares to the registry as a synthesized entry (offset 0).
func (d *Decoder) Decode(owner int) error {
	rec, found := d.reg.Find(owner)
	if !found {
		return fmt.Errorf("objstm: owning object %d not in registry", owner)
	}
	obj, err := objload.Read(d.r, rec.Offset)
	if err != nil {
		return fmt.Errorf("objstm: reading owning object %d: %w", owner, err)
	}
	stream, ok := obj.Value.(*object.Stream)
	if !ok {
		return fmt.Errorf("objstm: object %d is not a stream", owner)
	}
	dict := stream.Dict

	n, ok := dict.Int("N")
	if !ok || n < 0 {
		return fmt.Errorf("objstm: object %d missing or invalid /N", owner)
	}
	if int(n) > d.lim.MaxObjectStreamObjects {
		return fmt.Errorf("objstm: object %d declares %d members, exceeds limit of %d", owner, n, d.lim.MaxObjectStreamObjects)
	}
	first, ok := dict.Int("First")
	if !ok {
		return fmt.Errorf("objstm: object %d missing /First", owner)
	}
	length, ok := dict.Int("Length")
	if !ok {
		return fmt.Errorf("objstm: object %d missing /Length", owner)
	}

	raw := make([]byte, length)
	if rn, err := d.r.ReadAt(raw, stream.DataOffset); int64(rn) != length && err != nil {
		return fmt.Errorf("objstm: reading body of object %d: %w", owner, err)
	}
	decoded, err := streamfilter.Decode(dict, raw, d.lim)
	if err != nil {
		return fmt.Errorf("objstm: decoding body of object %d: %w", owner, err)
	}

	pairs, err := readPreamble(decoded, int(n))
	if err != nil {
		return fmt.Errorf("objstm: object %d: %w", owner, err)
	}

	for _, p := range pairs {
		if _, found := d.reg.Find(p.num); found {
			continue // a newer revision already materialized this number
		}
		vr := token.NewReader(bytes.NewReader(decoded), first+p.offset)
		val, err := valueio.Read(vr)
		if err != nil {
			return fmt.Errorf("objstm: object %d: decoding member %d: %w", owner, p.num, err)
		}
		memberRec, err := d.reg.Add(p.num, 0, 0)
		if err != nil {
			return fmt.Errorf("objstm: %w", err)
		}
		memberRec.Value = val
	}
	return nil
}

type preamblePair struct {
	num    int
	offset int64
}

// readPreamble consumes the n whitespace-delimited (object-number,
// byte-offset) token pairs at the start of the decoded stream body. Reading
// exactly n pairs rather than scanning for a non-digit sentinel avoids
// ambiguity with a first member whose own value happens to be a bare
// integer.
func readPreamble(decoded []byte, n int) ([]preamblePair, error) {
	tr := token.NewReader(bytes.NewReader(decoded), 0)
	pairs := make([]preamblePair, 0, n)
	for i := 0; i < n; i++ {
		numTok, err := tr.Get()
		if err != nil || numTok.Kind != token.Number || !numTok.IsInt {
			return nil, fmt.Errorf("preamble: expected object number at pair %d", i)
		}
		offTok, err := tr.Get()
		if err != nil || offTok.Kind != token.Number || !offTok.IsInt {
			return nil, fmt.Errorf("preamble: expected byte offset at pair %d", i)
		}
		pairs = append(pairs, preamblePair{num: int(numTok.Int), offset: offTok.Int})
	}
	return pairs, nil
}
