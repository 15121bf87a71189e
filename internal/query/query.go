// Package query rewrites select lists so that reads of attachment content
// also fetch the reference id and scan status the read path depends on.
package query

import "github.com/fruitsalade/attachments/internal/model"

// Item is one entry of a select list.
type Item interface {
	item()
}

// Field selects a scalar element.
type Field struct {
	Name string
}

// Expand selects an association with its own select list.
type Expand struct {
	Association string
	Items       []Item
}

func (Field) item()  {}
func (Expand) item() {}

// Node is the projection tree of a select list. The root node has an empty
// Association.
type Node struct {
	Association string
	Fields      []string
	Children    []*Node
}

// Child returns the node for the named association.
func (n *Node) Child(association string) *Node {
	for _, c := range n.Children {
		if c.Association == association {
			return c
		}
	}
	return nil
}

// HasField reports whether the node projects name.
func (n *Node) HasField(name string) bool {
	for _, f := range n.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// Project builds the projection tree of items.
func Project(items []Item) *Node {
	return project("", items)
}

func project(association string, items []Item) *Node {
	n := &Node{Association: association}
	for _, it := range items {
		switch v := it.(type) {
		case Field:
			n.Fields = append(n.Fields, v.Name)
		case Expand:
			n.Children = append(n.Children, project(v.Association, v.Items))
		}
	}
	return n
}

// Rewriter adds companion fields to select lists.
type Rewriter struct {
	index *model.Index
}

// NewRewriter creates a Rewriter over the model index.
func NewRewriter(index *model.Index) *Rewriter {
	return &Rewriter{index: index}
}

// Rewrite returns a copy of items where every node that selects attachment
// content also selects the reference id and status. Each companion is added
// only if missing, so rewriting is idempotent. The input is not modified.
// Expansions along associations unknown to the model are copied unchanged.
func (r *Rewriter) Rewrite(entity string, items []Item) []Item {
	e, _ := r.index.Entity(entity)
	return r.rewrite(e, items)
}

func (r *Rewriter) rewrite(e *model.Entity, items []Item) []Item {
	out := make([]Item, 0, len(items)+2)
	selected := make(map[string]bool, len(items))

	for _, it := range items {
		switch v := it.(type) {
		case Field:
			selected[v.Name] = true
			out = append(out, v)
		case Expand:
			var target *model.Entity
			if e != nil {
				if a, ok := e.Association(v.Association); ok {
					target = r.index.MustEntity(a.Target)
				}
			}
			out = append(out, Expand{Association: v.Association, Items: r.rewrite(target, v.Items)})
		default:
			out = append(out, it)
		}
	}

	if e == nil {
		return out
	}
	d, ok := r.index.Descriptor(e.Name)
	if !ok || !selected[d.Content] {
		return out
	}
	for _, companion := range []string{d.DocumentID, d.Status} {
		if companion != "" && !selected[companion] {
			selected[companion] = true
			out = append(out, Field{Name: companion})
		}
	}
	return out
}
