package model

import "fmt"

// PathIdentifier is one step of a path: the association followed and the
// entity it leads to. The root of a tree has an empty Association.
type PathIdentifier struct {
	Association string
	Entity      string
}

// PathTree records every association path from an entity to attachment-bearing
// entities. Branches that reach no media entity are pruned. An association
// back to an entity already on the path is kept as a Cycle leaf when that
// entity reaches media; its subtree is the ancestor's.
type PathTree struct {
	ID       PathIdentifier
	Media    bool
	Cycle    bool
	Children []*PathTree
}

// Empty reports whether no media entity is reachable, including the root.
func (t *PathTree) Empty() bool {
	return t == nil || (!t.Media && !t.Cycle && len(t.Children) == 0)
}

// Child returns the subtree for the named association.
func (t *PathTree) Child(association string) *PathTree {
	if t == nil {
		return nil
	}
	for _, c := range t.Children {
		if c.ID.Association == association {
			return c
		}
	}
	return nil
}

// BuildPathTree walks the model from root. Each recursion carries the set of
// entities on the current path so association cycles terminate. Unknown
// association targets are model bugs and panic.
func BuildPathTree(m Model, root string) *PathTree {
	e, ok := m.Entity(root)
	if !ok {
		panic(fmt.Sprintf("model: unknown entity %s", root))
	}
	return build(m, e, PathIdentifier{Entity: root}, map[string]bool{root: true})
}

func build(m Model, e *Entity, id PathIdentifier, visited map[string]bool) *PathTree {
	node := &PathTree{ID: id, Media: e.IsMedia()}
	for _, a := range e.Associations {
		target, ok := m.Entity(a.Target)
		if !ok {
			panic(fmt.Sprintf("model: association %s.%s targets unknown entity %s", e.Name, a.Name, a.Target))
		}
		if visited[a.Target] {
			if reachesMedia(m, target, map[string]bool{}) {
				node.Children = append(node.Children, &PathTree{
					ID:    PathIdentifier{Association: a.Name, Entity: a.Target},
					Media: target.IsMedia(),
					Cycle: true,
				})
			}
			continue
		}

		visited[a.Target] = true
		child := build(m, target, PathIdentifier{Association: a.Name, Entity: a.Target}, visited)
		delete(visited, a.Target)

		if !child.Empty() {
			node.Children = append(node.Children, child)
		}
	}
	return node
}

func reachesMedia(m Model, e *Entity, seen map[string]bool) bool {
	if e.IsMedia() {
		return true
	}
	seen[e.Name] = true
	for _, a := range e.Associations {
		if seen[a.Target] {
			continue
		}
		target, ok := m.Entity(a.Target)
		if !ok {
			panic(fmt.Sprintf("model: association %s.%s targets unknown entity %s", e.Name, a.Name, a.Target))
		}
		if reachesMedia(m, target, seen) {
			return true
		}
	}
	return false
}
