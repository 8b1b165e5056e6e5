package pagetree

import (
	"fmt"
	"testing"

	"github.com/Lance219/pdfio/limits"
	"github.com/Lance219/pdfio/object"
)

type fakeResolver map[object.Ref]object.Value

func (f fakeResolver) Resolve(ref object.Ref) (object.Value, error) {
	v, ok := f[ref]
	if !ok {
		return nil, fmt.Errorf("no such object %s", ref)
	}
	return v, nil
}

func dict(entries map[object.Name]object.Value) *object.Dictionary {
	d := object.NewDictionary()
	for k, v := range entries {
		d.Set(k, v)
	}
	return d
}

func TestFlattenLinearTree(t *testing.T) {
	page1 := object.Ref{Num: 3, Gen: 0}
	page2 := object.Ref{Num: 4, Gen: 0}
	kids := object.NewArray(object.Reference(page1), object.Reference(page2))
	pagesRef := object.Ref{Num: 2, Gen: 0}

	resolver := fakeResolver{
		pagesRef: dict(map[object.Name]object.Value{"Type": object.Name("Pages"), "Kids": kids}),
		page1:    dict(map[object.Name]object.Value{"Type": object.Name("Page")}),
		page2:    dict(map[object.Name]object.Value{"Type": object.Name("Page")}),
	}

	pages, err := Flatten(resolver, pagesRef, limits.Default())
	if err != nil {
		t.Fatalf("Flatten error = %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("len(pages) = %d, want 2", len(pages))
	}
	for _, p := range pages {
		if typ, _ := p.Name("Type"); typ != "Page" {
			t.Fatalf("page Type = %q, want Page", typ)
		}
	}
}

func TestFlattenNestedTree(t *testing.T) {
	leaf := object.Ref{Num: 5, Gen: 0}
	inner := object.Ref{Num: 4, Gen: 0}
	root := object.Ref{Num: 2, Gen: 0}

	resolver := fakeResolver{
		root:  dict(map[object.Name]object.Value{"Type": object.Name("Pages"), "Kids": object.NewArray(object.Reference(inner))}),
		inner: dict(map[object.Name]object.Value{"Type": object.Name("Pages"), "Kids": object.NewArray(object.Reference(leaf))}),
		leaf:  dict(map[object.Name]object.Value{"Type": object.Name("Page")}),
	}

	pages, err := Flatten(resolver, root, limits.Default())
	if err != nil {
		t.Fatalf("Flatten error = %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("len(pages) = %d, want 1", len(pages))
	}
}

func TestFlattenRejectsBadType(t *testing.T) {
	root := object.Ref{Num: 2, Gen: 0}
	resolver := fakeResolver{
		root: dict(map[object.Name]object.Value{"Type": object.Name("Catalog")}),
	}
	if _, err := Flatten(resolver, root, limits.Default()); err == nil {
		t.Fatalf("Flatten() error = nil, want error for invalid /Type")
	}
}

func TestFlattenEnforcesMaxDepth(t *testing.T) {
	root := object.Ref{Num: 1, Gen: 0}
	resolver := fakeResolver{
		root: dict(map[object.Name]object.Value{"Type": object.Name("Pages"), "Kids": object.NewArray(object.Reference(root))}),
	}
	lim := limits.Default()
	lim.MaxIndirectDepth = 2
	if _, err := Flatten(resolver, root, lim); err == nil {
		t.Fatalf("Flatten() error = nil, want max depth error for cyclic tree")
	}
}
