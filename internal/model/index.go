package model

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultIndexSize = 1024

// Index wraps a Model with read-through LRU caches of field descriptors and
// path trees keyed by entity name. Entries are computed on first use without
// holding a lock; concurrent first lookups may compute the same entry twice
// and store equal results.
type Index struct {
	model       Model
	descriptors *lru.Cache[string, descriptorEntry]
	trees       *lru.Cache[string, *PathTree]
}

type descriptorEntry struct {
	desc FieldDescriptor
	ok   bool
}

// NewIndex creates an Index over m with room for defaultIndexSize entities.
func NewIndex(m Model) *Index {
	return NewIndexSize(m, defaultIndexSize)
}

// NewIndexSize creates an Index caching up to size entities per cache.
func NewIndexSize(m Model, size int) *Index {
	if size <= 0 {
		size = defaultIndexSize
	}
	descriptors, err := lru.New[string, descriptorEntry](size)
	if err != nil {
		panic(fmt.Sprintf("model: descriptor cache: %v", err))
	}
	trees, err := lru.New[string, *PathTree](size)
	if err != nil {
		panic(fmt.Sprintf("model: path tree cache: %v", err))
	}
	return &Index{model: m, descriptors: descriptors, trees: trees}
}

// Entity implements Model.
func (x *Index) Entity(name string) (*Entity, bool) {
	return x.model.Entity(name)
}

// MustEntity returns the entity or panics when the model lacks it.
func (x *Index) MustEntity(name string) *Entity {
	e, ok := x.model.Entity(name)
	if !ok {
		panic(fmt.Sprintf("model: unknown entity %s", name))
	}
	return e
}

// Descriptor returns the cached descriptor of a media entity.
func (x *Index) Descriptor(entity string) (FieldDescriptor, bool) {
	if e, ok := x.descriptors.Get(entity); ok {
		return e.desc, e.ok
	}
	e, found := x.model.Entity(entity)
	if !found {
		return FieldDescriptor{}, false
	}
	d, ok := Describe(e)
	x.descriptors.Add(entity, descriptorEntry{desc: d, ok: ok})
	return d, ok
}

// PathTree returns the cached path tree rooted at entity.
func (x *Index) PathTree(entity string) *PathTree {
	if t, ok := x.trees.Get(entity); ok {
		return t
	}
	t := BuildPathTree(x.model, entity)
	x.trees.Add(entity, t)
	return t
}

// MediaAssociations returns the associations of entity that lead, directly
// or transitively, to a media entity, in declaration order.
func (x *Index) MediaAssociations(entity string) []Association {
	tree := x.PathTree(entity)
	if len(tree.Children) == 0 {
		return nil
	}
	e := x.MustEntity(entity)
	out := make([]Association, 0, len(tree.Children))
	for _, c := range tree.Children {
		if a, ok := e.Association(c.ID.Association); ok {
			out = append(out, a)
		}
	}
	return out
}

// ContainsMedia reports whether entity is a media entity or reaches one.
func (x *Index) ContainsMedia(entity string) bool {
	return !x.PathTree(entity).Empty()
}

// Len returns the number of cached path trees.
func (x *Index) Len() int {
	return x.trees.Len()
}
