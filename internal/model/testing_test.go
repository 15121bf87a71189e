package model

func mediaEntity(name string) *Entity {
	return &Entity{
		Name:        name,
		Annotations: Annotations{AnnotationMediaData: true},
		Elements: []Element{
			{Name: "ID", Type: "UUID", Key: true},
			{Name: "content", Type: "LargeBinary", Annotations: Annotations{AnnotationMediaType: "mimeType"}},
			{Name: "mimeType", Type: "String"},
			{Name: "fileName", Type: "String"},
			{Name: "contentId", Type: "String"},
			{Name: "documentId", Type: "String"},
			{Name: "status", Type: "String"},
		},
	}
}

// testModel: Books -> attachments (media), Books -> author -> Books (cycle),
// Books -> chapters -> covers (media), Books -> publisher (no media).
func testModel() *Registry {
	return NewRegistry(
		&Entity{
			Name:     "Books",
			Elements: []Element{{Name: "ID", Key: true}, {Name: "title"}},
			Associations: []Association{
				{Name: "author", Target: "Authors"},
				{Name: "attachments", Target: "Books.attachments", Composition: true, Many: true},
				{Name: "chapters", Target: "Chapters", Composition: true, Many: true},
				{Name: "publisher", Target: "Publishers"},
			},
		},
		&Entity{
			Name:         "Authors",
			Elements:     []Element{{Name: "ID", Key: true}},
			Associations: []Association{{Name: "books", Target: "Books", Many: true}},
		},
		&Entity{
			Name:         "Chapters",
			Elements:     []Element{{Name: "ID", Key: true}},
			Associations: []Association{{Name: "covers", Target: "Chapters.covers", Composition: true, Many: true}},
		},
		&Entity{Name: "Publishers", Elements: []Element{{Name: "ID", Key: true}}},
		mediaEntity("Books.attachments"),
		mediaEntity("Chapters.covers"),
	)
}
