// Package xref implements pdfio's cross-reference loader: it reconstructs
// the object registry by walking the chain of xref sections rooted at the
// startxref offset found at the tail of the file, dispatching between
// classical tables and xref streams, and resolves the authoritative
// trailer dictionary.
package xref

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/Lance219/pdfio/limits"
	"github.com/Lance219/pdfio/object"
	"github.com/Lance219/pdfio/objload"
	"github.com/Lance219/pdfio/observability"
	"github.com/Lance219/pdfio/registry"
	"github.com/Lance219/pdfio/streamfilter"
	"github.com/Lance219/pdfio/token"
	"github.com/Lance219/pdfio/valueio"
)

// ObjectStreamDecoder materializes a compressed object stream's members
// into the registry. xref depends only on this narrow interface so the
// concrete decoder (package objstm) can depend on xref's registry without
// the two packages importing each other.
type ObjectStreamDecoder interface {
	Decode(ownerNumber int) error
}

// TailScan locates the startxref offset recorded near the end of the file.
// It mirrors the format's own tail-reading convention: the last 32 bytes of
// a well-formed file hold "startxref\n<offset>\n%%EOF".
func TailScan(r io.ReaderAt, size int64) (int64, error) {
	const window = 32
	start := size - window
	if start < 0 {
		start = 0
	}
	buf := make([]byte, size-start)
	n, err := r.ReadAt(buf, start)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("xref: tail read: %w", err)
	}
	buf = buf[:n]
	idx := bytes.LastIndex(buf, []byte("startxref"))
	if idx < 0 {
		return 0, errors.New("unable to find start of xref table")
	}
	rest := bytes.TrimLeft(buf[idx+len("startxref"):], " \t\r\n")
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, errors.New("unable to find start of xref table")
	}
	var offset int64
	for _, c := range rest[:end] {
		offset = offset*10 + int64(c-'0')
	}
	return offset, nil
}

// Load walks the xref chain starting at startOffset and returns the
// authoritative trailer dictionary once every section has been visited.
func Load(r io.ReaderAt, startOffset int64, reg *registry.Registry, decoder ObjectStreamDecoder, lim limits.Limits, log observability.Logger) (*object.Dictionary, error) {
	if log == nil {
		log = observability.NopLogger{}
	}
	var authoritative *object.Dictionary
	offset := startOffset
	visited := 0
	for {
		visited++
		if visited > lim.MaxXRefDepth {
			return nil, errors.New("xref chain too deep")
		}
		line, bodyOffset, err := readLine(r, offset)
		if err != nil {
			return nil, fmt.Errorf("xref: reading section header at offset %d: %w", offset, err)
		}
		var trailer *object.Dictionary
		var prev int64
		switch {
		case line == "xref":
			trailer, prev, err = loadClassical(r, bodyOffset, reg, log)
		case looksLikeObjectHeader(line):
			trailer, prev, err = loadStream(r, offset, reg, decoder, lim, log)
		default:
			err = fmt.Errorf("xref: unrecognized section header %q at offset %d", line, offset)
		}
		if err != nil {
			return nil, err
		}
		if authoritative == nil {
			authoritative = trailer
		}
		if prev <= 0 {
			break
		}
		offset = prev
	}
	return authoritative, nil
}

func looksLikeObjectHeader(line string) bool {
	tr := token.NewReader(bytes.NewReader([]byte(line)), 0)
	num, err := tr.Get()
	if err != nil || num.Kind != token.Number || !num.IsInt {
		return false
	}
	gen, err := tr.Get()
	if err != nil || gen.Kind != token.Number || !gen.IsInt {
		return false
	}
	kw, err := tr.Get()
	return err == nil && kw.Kind == token.Keyword && kw.Text == "obj"
}

// readLine reads one line starting at offset, terminated by \n, \r, or
// \r\n, without including the terminator, and reports the offset of the
// byte immediately after it.
func readLine(r io.ReaderAt, offset int64) (string, int64, error) {
	var buf bytes.Buffer
	pos := offset
	tmp := make([]byte, 1)
	for {
		n, err := r.ReadAt(tmp, pos)
		if n == 0 {
			if err != nil {
				if buf.Len() > 0 {
					return buf.String(), pos, nil
				}
				return "", 0, err
			}
			continue
		}
		c := tmp[0]
		pos++
		if c == '\n' {
			return buf.String(), pos, nil
		}
		if c == '\r' {
			next := make([]byte, 1)
			if n2, _ := r.ReadAt(next, pos); n2 == 1 && next[0] == '\n' {
				pos++
			}
			return buf.String(), pos, nil
		}
		buf.WriteByte(c)
	}
}

func loadClassical(r io.ReaderAt, offset int64, reg *registry.Registry, log observability.Logger) (*object.Dictionary, int64, error) {
	pos := offset
	entryCount := 0
	for {
		line, next, err := readLine(r, pos)
		if err != nil {
			return nil, 0, fmt.Errorf("xref: classical subsection: %w", err)
		}
		pos = next
		trimmed := trimASCIISpace(line)
		if trimmed == "trailer" {
			break
		}
		if trimmed == "" {
			continue
		}
		first, count, ok := parseSubsectionHeader(trimmed)
		if !ok {
			return nil, 0, fmt.Errorf("xref: invalid subsection header %q", line)
		}
		for i := 0; i < count; i++ {
			entryBuf := make([]byte, 20)
			n, err := r.ReadAt(entryBuf, pos)
			if n != 20 || err != nil {
				return nil, 0, errors.New("xref: truncated classical entry")
			}
			pos += 20
			entry, err := parseClassicalEntry(entryBuf)
			if err != nil {
				return nil, 0, err
			}
			entryCount++
			if entry.free {
				continue
			}
			number := first + i
			if _, found := reg.Find(number); found {
				continue
			}
			if _, err := reg.Add(number, entry.gen, entry.offset); err != nil {
				return nil, 0, fmt.Errorf("xref: %w", err)
			}
		}
	}
	log.Debug("xref section loaded", observability.String("kind", "classical"), observability.Int64("offset", offset), observability.Int("entries", entryCount))

	tr := token.NewReader(r, pos)
	val, err := valueio.Read(tr)
	if err != nil {
		return nil, 0, fmt.Errorf("xref: trailer dictionary: %w", err)
	}
	dict, ok := val.(*object.Dictionary)
	if !ok {
		return nil, 0, errors.New("xref: trailer is not a dictionary")
	}
	prev, _ := dict.Int("Prev")
	return dict, prev, nil
}

type classicalEntry struct {
	offset int64
	gen    int
	free   bool
}

func parseClassicalEntry(b []byte) (classicalEntry, error) {
	term := b[18:20]
	valid := bytes.Equal(term, []byte("\r\n")) || bytes.Equal(term, []byte(" \n")) || bytes.Equal(term, []byte(" \r"))
	if !valid {
		return classicalEntry{}, errors.New("xref: malformed classical entry terminator")
	}
	offset, ok1 := parseDigits(b[0:10])
	gen, ok2 := parseDigits(b[11:16])
	if !ok1 || !ok2 {
		return classicalEntry{}, errors.New("xref: malformed classical entry digits")
	}
	switch b[17] {
	case 'n':
		return classicalEntry{offset: offset, gen: int(gen)}, nil
	case 'f':
		return classicalEntry{free: true}, nil
	default:
		return classicalEntry{}, errors.New("xref: malformed classical entry type byte")
	}
}

func parseDigits(b []byte) (int64, bool) {
	var v int64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + int64(c-'0')
	}
	return v, true
}

func parseSubsectionHeader(line string) (first, count int, ok bool) {
	var a, b int
	n, err := fmt.Sscanf(line, "%d %d", &a, &b)
	if err != nil || n != 2 {
		return 0, 0, false
	}
	return a, b, true
}

func trimASCIISpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func loadStream(r io.ReaderAt, offset int64, reg *registry.Registry, decoder ObjectStreamDecoder, lim limits.Limits, log observability.Logger) (*object.Dictionary, int64, error) {
	obj, err := objload.Read(r, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("xref: stream-form header: %w", err)
	}
	stream, ok := obj.Value.(*object.Stream)
	if !ok {
		return nil, 0, errors.New("xref: stream-form xref object has no stream body")
	}
	dict := stream.Dict

	length, ok := dict.Int("Length")
	if !ok {
		return nil, 0, errors.New("xref: stream-form xref missing /Length")
	}
	raw := make([]byte, length)
	if n, err := r.ReadAt(raw, stream.DataOffset); int64(n) != length && err != nil {
		return nil, 0, fmt.Errorf("xref: reading stream body: %w", err)
	}
	decoded, err := streamfilter.Decode(dict, raw, lim)
	if err != nil {
		return nil, 0, fmt.Errorf("xref: decoding stream body: %w", err)
	}

	w, err := readW(dict)
	if err != nil {
		return nil, 0, err
	}
	segments, err := readIndex(dict)
	if err != nil {
		return nil, 0, err
	}

	var pending []int
	seen := map[int]bool{}
	entrySize := w[0] + w[1] + w[2]
	cursor := 0
	entryCount := 0
	for _, seg := range segments {
		for i := 0; i < seg.count; i++ {
			if cursor+entrySize > len(decoded) {
				return nil, 0, errors.New("xref: stream-form table truncated")
			}
			rec := decoded[cursor : cursor+entrySize]
			cursor += entrySize
			entryCount++

			typeByte := 1
			if w[0] > 0 {
				typeByte = int(rec[0])
			}
			field2 := beUint(rec[w[0] : w[0]+w[1]])
			field3 := beUint(rec[w[0]+w[1] : w[0]+w[1]+w[2]])
			number := seg.first + i

			if typeByte == 0 {
				continue
			}
			if _, found := reg.Find(number); found {
				continue
			}
			switch typeByte {
			case 2:
				owner := int(field2)
				if _, found := reg.Find(owner); found {
					if err := decoder.Decode(owner); err != nil {
						return nil, 0, fmt.Errorf("xref: decoding object stream %d: %w", owner, err)
					}
				} else if !seen[owner] {
					seen[owner] = true
					pending = append(pending, owner)
				}
			default:
				if _, err := reg.Add(number, int(field3), int64(field2)); err != nil {
					return nil, 0, fmt.Errorf("xref: %w", err)
				}
			}
		}
	}
	// The xref-stream object describes itself too, and classical writers
	// sometimes omit it from the table; make sure it is registered.
	if _, found := reg.Find(obj.Num); !found {
		if _, err := reg.Add(obj.Num, obj.Gen, offset); err != nil {
			return nil, 0, fmt.Errorf("xref: %w", err)
		}
	}

	for _, owner := range pending {
		if _, found := reg.Find(owner); !found {
			return nil, 0, fmt.Errorf("xref: object stream owner %d has no xref entry", owner)
		}
		if err := decoder.Decode(owner); err != nil {
			return nil, 0, fmt.Errorf("xref: decoding object stream %d: %w", owner, err)
		}
	}

	log.Debug("xref section loaded", observability.String("kind", "stream"), observability.Int64("offset", offset), observability.Int("entries", entryCount))

	prev, _ := dict.Int("Prev")
	return dict, prev, nil
}

func beUint(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

func readW(dict *object.Dictionary) ([3]int, error) {
	arr, ok := dict.ArrayAt("W")
	if !ok || arr.Len() != 3 {
		return [3]int{}, errors.New("xref: stream-form xref missing or malformed /W")
	}
	var w [3]int
	for i := 0; i < 3; i++ {
		v, ok := arr.Get(i)
		if !ok {
			return [3]int{}, errors.New("xref: malformed /W entry")
		}
		n, ok := v.(object.Integer)
		if !ok || n < 0 {
			return [3]int{}, errors.New("xref: /W entries must be non-negative integers")
		}
		w[i] = int(n)
	}
	if w[1] < 1 || w[2] > 2 || w[0]+w[1]+w[2] > 32 {
		return [3]int{}, errors.New("xref: /W violates field-width constraints")
	}
	return w, nil
}

type indexSegment struct {
	first, count int
}

func readIndex(dict *object.Dictionary) ([]indexSegment, error) {
	arr, ok := dict.ArrayAt("Index")
	if !ok {
		size, _ := dict.Int("Size")
		return []indexSegment{{first: 0, count: int(size)}}, nil
	}
	if arr.Len() != 2 {
		if arr.Len() > 2 {
			return nil, errors.New("xref: multiple indices not supported")
		}
		return nil, errors.New("xref: malformed /Index")
	}
	firstV, _ := arr.Get(0)
	countV, _ := arr.Get(1)
	first, ok1 := firstV.(object.Integer)
	count, ok2 := countV.(object.Integer)
	if !ok1 || !ok2 {
		return nil, errors.New("xref: /Index entries must be integers")
	}
	return []indexSegment{{first: int(first), count: int(count)}}, nil
}
