// Package pagetree implements pdfio's page-tree flattener: a depth-first,
// left-to-right walk of the recursive Pages node rooted at the document
// catalog, producing an ordered list of terminal Page dictionaries.
package pagetree

import (
	"errors"
	"fmt"

	"github.com/Lance219/pdfio/limits"
	"github.com/Lance219/pdfio/object"
)

// Resolver turns an indirect reference into its value. The core's File type
// implements this by consulting the registry and lazily loading from disk
// on first use; pagetree only needs the narrow capability.
type Resolver interface {
	Resolve(ref object.Ref) (object.Value, error)
}

const pageListGrowth = 32

// Flatten walks the Pages tree rooted at root and returns its terminal
// pages in document order.
func Flatten(resolver Resolver, root object.Ref, lim limits.Limits) ([]*object.Dictionary, error) {
	pages := make([]*object.Dictionary, 0, pageListGrowth)
	var walk func(ref object.Ref, depth int) error
	walk = func(ref object.Ref, depth int) error {
		if depth > lim.MaxIndirectDepth {
			return errors.New("page tree exceeds maximum depth")
		}
		val, err := resolver.Resolve(ref)
		if err != nil {
			return fmt.Errorf("pagetree: resolving %s: %w", ref, err)
		}
		dict, ok := asDictionary(val)
		if !ok {
			return fmt.Errorf("pagetree: object %s has no dictionary", ref)
		}
		typ, _ := dict.Name("Type")
		if typ != "Pages" && typ != "Page" {
			return fmt.Errorf("pagetree: object %s has invalid /Type %q", ref, typ)
		}
		if kids, ok := dict.ArrayAt("Kids"); ok {
			for i := 0; i < kids.Len(); i++ {
				kidVal, _ := kids.Get(i)
				kidRef, ok := kidVal.(object.Reference)
				if !ok {
					return fmt.Errorf("pagetree: kid %d of %s is not an indirect reference", i, ref)
				}
				if err := walk(object.Ref(kidRef), depth+1); err != nil {
					return err
				}
			}
			return nil
		}
		if len(pages) == cap(pages) {
			grown := make([]*object.Dictionary, len(pages), cap(pages)+pageListGrowth)
			copy(grown, pages)
			pages = grown
		}
		pages = append(pages, dict)
		return nil
	}
	if err := walk(root, 0); err != nil {
		return nil, err
	}
	return pages, nil
}

func asDictionary(val object.Value) (*object.Dictionary, bool) {
	switch v := val.(type) {
	case *object.Dictionary:
		return v, true
	case *object.Stream:
		return v.Dict, true
	default:
		return nil, false
	}
}
