// Package intercept walks nested host records and applies an action to every
// field selected by a predicate, descending only along associations that can
// reach attachment entities.
package intercept

import (
	"github.com/fruitsalade/attachments/internal/model"
	"github.com/fruitsalade/attachments/internal/record"
)

// Segment is one association step from the root entity.
type Segment struct {
	Association string
	Entity      string
}

// Path locates a record inside the tree being processed.
type Path struct {
	Entity       *model.Entity
	Segments     []Segment
	Record       record.Record
	Keys         map[string]any
	ParentEntity *model.Entity
	ParentKeys   map[string]any
}

// Predicate selects elements to act on.
type Predicate func(entity *model.Entity, el model.Element) bool

// Action receives the current value of a selected element and returns its
// replacement. Returning Remove deletes the field from the record.
type Action func(p Path, el model.Element, value any) (any, error)

type removeMarker struct{}

// Remove is returned by an Action to delete the field.
var Remove any = removeMarker{}

// Interceptor applies actions over record trees.
type Interceptor struct {
	index *model.Index
}

// New creates an Interceptor over the model index.
func New(index *model.Index) *Interceptor {
	return &Interceptor{index: index}
}

// Process visits records of entity depth-first. Within a record, elements are
// visited in declaration order before any association. Only fields present in
// the record are offered to act. The first action error aborts the walk.
func (i *Interceptor) Process(entity string, records []record.Record, pred Predicate, act Action) error {
	if len(records) == 0 || !i.index.ContainsMedia(entity) {
		return nil
	}
	root := i.index.MustEntity(entity)
	return i.walk(root, nil, nil, nil, records, pred, act)
}

func (i *Interceptor) walk(e *model.Entity, segments []Segment, parentEntity *model.Entity, parent record.Record, records []record.Record, pred Predicate, act Action) error {
	var parentKeys map[string]any
	if parent != nil {
		parentKeys = parent.Pick(parentEntity.KeyNames())
	}
	associations := i.index.MediaAssociations(e.Name)

	for _, rec := range records {
		if rec == nil {
			continue
		}
		p := Path{
			Entity:       e,
			Segments:     segments,
			Record:       rec,
			Keys:         rec.Pick(e.KeyNames()),
			ParentEntity: parentEntity,
			ParentKeys:   parentKeys,
		}
		for _, el := range e.Elements {
			if !pred(e, el) {
				continue
			}
			value, ok := rec[el.Name]
			if !ok {
				continue
			}
			next, err := act(p, el, value)
			if err != nil {
				return err
			}
			if _, remove := next.(removeMarker); remove {
				rec.Remove(el.Name)
			} else {
				rec[el.Name] = next
			}
		}

		for _, a := range associations {
			children := rec.Children(a.Name)
			if len(children) == 0 {
				continue
			}
			target := i.index.MustEntity(a.Target)
			next := append(segments[:len(segments):len(segments)], Segment{Association: a.Name, Entity: a.Target})
			if err := i.walk(target, next, e, rec, children, pred, act); err != nil {
				return err
			}
		}
	}
	return nil
}

// ContentField selects the content element of media entities.
func ContentField(index *model.Index) Predicate {
	return Field(index, func(d model.FieldDescriptor) string { return d.Content })
}

// Field selects, on media entities, the element named by pick.
func Field(index *model.Index, pick func(model.FieldDescriptor) string) Predicate {
	return func(e *model.Entity, el model.Element) bool {
		d, ok := index.Descriptor(e.Name)
		if !ok {
			return false
		}
		name := pick(d)
		return name != "" && el.Name == name
	}
}
