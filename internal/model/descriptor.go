package model

import (
	"fmt"

	"github.com/fruitsalade/attachments/internal/attachment"
)

// FieldDescriptor names the elements of one attachment entity. Elements the
// entity does not declare are left empty, except Content and DocumentID which
// every attachment entity has.
type FieldDescriptor struct {
	Entity     string
	Content    string
	DocumentID string
	ContentID  string
	MimeType   string
	FileName   string
	Status     string
	Size       string

	AcceptableMediaTypes []string
}

// Describe computes the descriptor of a media entity. It returns false for
// entities not flagged as media. A media entity without a content element,
// or without its reference id element, is a model bug and panics.
func Describe(e *Entity) (FieldDescriptor, bool) {
	if !e.IsMedia() {
		return FieldDescriptor{}, false
	}

	var contentEl *Element
	for i := range e.Elements {
		if e.Elements[i].Annotations.Has(AnnotationMediaType) {
			contentEl = &e.Elements[i]
			break
		}
	}
	if contentEl == nil {
		panic(fmt.Sprintf("model: media entity %s has no element annotated %s", e.Name, AnnotationMediaType))
	}

	d := FieldDescriptor{
		Entity:               e.Name,
		Content:              contentEl.Name,
		DocumentID:           orDefault(e.Annotations.Ref(AnnotationDocumentID), attachment.FieldDocumentID),
		AcceptableMediaTypes: contentEl.Annotations.Strings(AnnotationAcceptableMediaTypes),
	}
	if !e.HasElement(d.DocumentID) {
		panic(fmt.Sprintf("model: media entity %s has no reference id element %s", e.Name, d.DocumentID))
	}

	d.ContentID = declared(e, attachment.FieldContentID)
	d.MimeType = declared(e, orDefault(contentEl.Annotations.Ref(AnnotationMediaType), attachment.FieldMimeType))
	d.FileName = declared(e, orDefault(contentEl.Annotations.Ref(AnnotationFileName), attachment.FieldFileName))
	d.Status = declared(e, orDefault(e.Annotations.Ref(AnnotationStatus), attachment.FieldStatus))
	d.Size = declared(e, attachment.FieldSize)
	return d, true
}

// IsContent reports whether el is the content element.
func (d FieldDescriptor) IsContent(el Element) bool {
	return d.Content != "" && el.Name == d.Content
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func declared(e *Entity, name string) string {
	if e.HasElement(name) {
		return name
	}
	return ""
}
