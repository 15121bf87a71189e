// Package model describes the host's record graph: entities, their elements
// and associations, and the annotations that mark attachment content.
package model

// Annotation names understood by this layer.
const (
	// AnnotationMediaData flags an entity as attachment-bearing.
	AnnotationMediaData = "_is_media_data"
	// AnnotationMediaType marks the content element. A string value names the
	// element holding the mime type.
	AnnotationMediaType = "Core.MediaType"
	// AnnotationFileName on the content element names the file name element.
	AnnotationFileName = "Core.ContentDisposition.Filename"
	// AnnotationAcceptableMediaTypes restricts the mime types of the content element.
	AnnotationAcceptableMediaTypes = "Core.AcceptableMediaTypes"
	// AnnotationDocumentID on the entity overrides the reference id element name.
	AnnotationDocumentID = "attachments.DocumentId"
	// AnnotationStatus on the entity overrides the status element name.
	AnnotationStatus = "attachments.Status"
)

// Annotations maps annotation names to values.
type Annotations map[string]any

// Bool reports whether the annotation is set to true.
func (a Annotations) Bool(name string) bool {
	v, ok := a[name].(bool)
	return ok && v
}

// Has reports whether the annotation is present.
func (a Annotations) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// Ref returns the element name an annotation points at. Both plain strings
// and path expressions of the form {"=": "name"} are accepted.
func (a Annotations) Ref(name string) string {
	switch v := a[name].(type) {
	case string:
		return v
	case map[string]any:
		if s, ok := v["="].(string); ok {
			return s
		}
	}
	return ""
}

// Strings returns a list-valued annotation.
func (a Annotations) Strings(name string) []string {
	switch v := a[name].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	}
	return nil
}

// Element is a scalar field of an entity.
type Element struct {
	Name        string
	Type        string
	Key         bool
	Annotations Annotations
}

// Association links an entity to a target entity.
type Association struct {
	Name        string
	Target      string
	Composition bool
	Many        bool
}

// Entity is one entity type of the host model. Elements and Associations are
// kept in declaration order.
type Entity struct {
	Name         string
	Annotations  Annotations
	Elements     []Element
	Associations []Association
}

// Element returns the element with the given name.
func (e *Entity) Element(name string) (Element, bool) {
	for _, el := range e.Elements {
		if el.Name == name {
			return el, true
		}
	}
	return Element{}, false
}

// HasElement reports whether the entity declares the element.
func (e *Entity) HasElement(name string) bool {
	_, ok := e.Element(name)
	return ok
}

// Association returns the association with the given name.
func (e *Entity) Association(name string) (Association, bool) {
	for _, a := range e.Associations {
		if a.Name == name {
			return a, true
		}
	}
	return Association{}, false
}

// IsMedia reports whether the entity is flagged as attachment-bearing.
func (e *Entity) IsMedia() bool {
	return e.Annotations.Bool(AnnotationMediaData)
}

// KeyNames returns the names of the key elements.
func (e *Entity) KeyNames() []string {
	var keys []string
	for _, el := range e.Elements {
		if el.Key {
			keys = append(keys, el.Name)
		}
	}
	return keys
}

// Model resolves entity types by fully qualified name.
type Model interface {
	Entity(name string) (*Entity, bool)
}

// Registry is a static Model.
type Registry struct {
	entities map[string]*Entity
}

// NewRegistry builds a Registry from entity definitions.
func NewRegistry(entities ...*Entity) *Registry {
	r := &Registry{entities: make(map[string]*Entity, len(entities))}
	for _, e := range entities {
		r.entities[e.Name] = e
	}
	return r
}

// Entity implements Model.
func (r *Registry) Entity(name string) (*Entity, bool) {
	e, ok := r.entities[name]
	return e, ok
}
