// Package object implements the value subsystem pdfio's core treats as an
// external collaborator: the tagged union of PDF primitive types plus
// typed, zero-on-absence accessors for dictionaries and arrays.
package object

import "fmt"

// Ref identifies an indirect object by number and generation.
type Ref struct {
	Num int
	Gen int
}

func (r Ref) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Value is the base interface implemented by every PDF primitive.
type Value interface {
	Kind() string
}

// Null is the PDF null object.
type Null struct{}

func (Null) Kind() string { return "null" }

// Boolean is a PDF boolean.
type Boolean bool

func (Boolean) Kind() string { return "boolean" }

// Integer is a PDF integer numeric value.
type Integer int64

func (Integer) Kind() string { return "integer" }

// Real is a PDF non-integer numeric value.
type Real float64

func (Real) Kind() string { return "real" }

// Name is a PDF name object, stored without its leading slash.
type Name string

func (Name) Kind() string { return "name" }

// String is a PDF literal or hex string.
type String struct {
	Bytes []byte
	Hex   bool
}

func (String) Kind() string { return "string" }

// Reference is an indirect reference, "<num> <gen> R".
type Reference Ref

func (Reference) Kind() string { return "reference" }

// Array is an ordered sequence of values.
type Array struct {
	items []Value
}

func NewArray(items ...Value) *Array { return &Array{items: items} }

func (*Array) Kind() string { return "array" }

func (a *Array) Len() int { return len(a.items) }

func (a *Array) Get(i int) (Value, bool) {
	if i < 0 || i >= len(a.items) {
		return nil, false
	}
	return a.items[i], true
}

func (a *Array) Append(v Value) { a.items = append(a.items, v) }

// Dictionary is a PDF dictionary: an unordered set of name/value pairs.
// Keys() is stable across calls (insertion order) so serialization is
// deterministic even though lookup is by map.
type Dictionary struct {
	values map[Name]Value
	order  []Name
}

func NewDictionary() *Dictionary {
	return &Dictionary{values: make(map[Name]Value)}
}

func (*Dictionary) Kind() string { return "dict" }

func (d *Dictionary) Get(key Name) (Value, bool) {
	v, ok := d.values[key]
	return v, ok
}

func (d *Dictionary) Set(key Name, value Value) {
	if _, exists := d.values[key]; !exists {
		d.order = append(d.order, key)
	}
	d.values[key] = value
}

func (d *Dictionary) Keys() []Name {
	out := make([]Name, len(d.order))
	copy(out, d.order)
	return out
}

func (d *Dictionary) Len() int { return len(d.values) }

// Int returns the dictionary's integer-valued entry for key, or (0, false)
// if the key is absent or not an Integer.
func (d *Dictionary) Int(key Name) (int64, bool) {
	v, ok := d.Get(key)
	if !ok {
		return 0, false
	}
	i, ok := v.(Integer)
	return int64(i), ok
}

// Name returns the dictionary's name-valued entry for key, or ("", false)
// if the key is absent or not a Name.
func (d *Dictionary) Name(key Name) (Name, bool) {
	v, ok := d.Get(key)
	if !ok {
		return "", false
	}
	n, ok := v.(Name)
	return n, ok
}

// DictAt returns the dictionary-valued entry for key, or (nil, false) if the
// key is absent or not a Dictionary. It does not resolve indirect references.
func (d *Dictionary) DictAt(key Name) (*Dictionary, bool) {
	v, ok := d.Get(key)
	if !ok {
		return nil, false
	}
	dd, ok := v.(*Dictionary)
	return dd, ok
}

// ArrayAt returns the array-valued entry for key, or (nil, false) if the key
// is absent or not an Array. It does not resolve indirect references.
func (d *Dictionary) ArrayAt(key Name) (*Array, bool) {
	v, ok := d.Get(key)
	if !ok {
		return nil, false
	}
	a, ok := v.(*Array)
	return a, ok
}

// RefAt returns the reference-valued entry for key, or (Ref{}, false) if the
// key is absent or not a Reference.
func (d *Dictionary) RefAt(key Name) (Ref, bool) {
	v, ok := d.Get(key)
	if !ok {
		return Ref{}, false
	}
	r, ok := v.(Reference)
	return Ref(r), ok
}

// Stream pairs a dictionary header with the file offset of its body, which
// begins immediately after the "stream" keyword. The body bytes themselves
// are fetched lazily through the stream subsystem (see streamfilter), since
// a Stream value is just the header the value parser produced.
type Stream struct {
	Dict       *Dictionary
	DataOffset int64
}

func (*Stream) Kind() string { return "stream" }

func (s *Stream) Get(key Name) (Value, bool) { return s.Dict.Get(key) }
