// Package registry implements pdfio's object registry: the set of object
// records for one open file, keyed by object number with O(log n) lookup
// and stable insertion-order enumeration.
package registry

import (
	"fmt"
	"sort"

	"github.com/Lance219/pdfio/object"
)

// Record is one indirect object: its identity (number, generation), where
// its header lives in the file (zero if synthesized, e.g. by the
// object-stream decoder), where its stream body starts
// if it has one, and the decoded value once something has parsed it.
type Record struct {
	Number       int
	Generation   int
	Offset       int64 // 0 if synthesized in-memory
	StreamOffset int64 // 0 if the object has no stream
	Value        object.Value
}

// Registry holds every Record for one file. The first insertion for a given
// object number wins — callers enforce that by checking Find before Add,
// since the xref chain is walked newest-revision-first and newer entries
// must not be clobbered by older ones found via Prev.
type Registry struct {
	order    []*Record // insertion order, positional Get()'s contract
	byNumber []*Record // kept sorted by Number for binary search
}

// New returns an empty registry.
func New() *Registry { return &Registry{} }

// Add allocates a record and appends it to the registry. Generation must be
// in [0, 65535]; any other value is a hard error, per the format's 16-bit
// generation field.
func (r *Registry) Add(number, generation int, offset int64) (*Record, error) {
	if generation < 0 || generation > 65535 {
		return nil, fmt.Errorf("object %d: generation %d out of range [0, 65535]", number, generation)
	}
	rec := &Record{Number: number, Generation: generation, Offset: offset}
	r.order = append(r.order, rec)
	if n := len(r.byNumber); n > 0 && number < r.byNumber[n-1].Number {
		r.byNumber = append(r.byNumber, rec)
		sort.Slice(r.byNumber, func(i, j int) bool { return r.byNumber[i].Number < r.byNumber[j].Number })
	} else {
		r.byNumber = append(r.byNumber, rec)
	}
	return rec, nil
}

// Find performs a binary search for number.
func (r *Registry) Find(number int) (*Record, bool) {
	i := sort.Search(len(r.byNumber), func(i int) bool { return r.byNumber[i].Number >= number })
	if i < len(r.byNumber) && r.byNumber[i].Number == number {
		return r.byNumber[i], true
	}
	return nil, false
}

// Get returns the record at insertion ordinal index. The ordinal is not
// stable across loader revisions; it exists for enumeration, not identity.
func (r *Registry) Get(index int) (*Record, bool) {
	if index < 0 || index >= len(r.order) {
		return nil, false
	}
	return r.order[index], true
}

// Count returns the number of records in the registry.
func (r *Registry) Count() int { return len(r.order) }
