package intercept

import (
	"errors"
	"reflect"
	"testing"

	"github.com/fruitsalade/attachments/internal/model"
	"github.com/fruitsalade/attachments/internal/record"
)

func mediaEntity(name string) *model.Entity {
	return &model.Entity{
		Name:        name,
		Annotations: model.Annotations{model.AnnotationMediaData: true},
		Elements: []model.Element{
			{Name: "ID", Key: true},
			{Name: "content", Annotations: model.Annotations{model.AnnotationMediaType: "mimeType"}},
			{Name: "mimeType"},
			{Name: "documentId"},
			{Name: "status"},
		},
	}
}

func testIndex() *model.Index {
	return model.NewIndex(model.NewRegistry(
		&model.Entity{
			Name:     "Books",
			Elements: []model.Element{{Name: "ID", Key: true}, {Name: "content"}},
			Associations: []model.Association{
				{Name: "attachments", Target: "Books.attachments", Many: true},
				{Name: "chapters", Target: "Chapters", Many: true},
				{Name: "publisher", Target: "Publishers"},
			},
		},
		&model.Entity{
			Name:         "Chapters",
			Elements:     []model.Element{{Name: "ID", Key: true}},
			Associations: []model.Association{{Name: "covers", Target: "Chapters.covers", Many: true}},
		},
		&model.Entity{
			Name:     "Publishers",
			Elements: []model.Element{{Name: "ID", Key: true}, {Name: "content"}},
		},
		mediaEntity("Books.attachments"),
		mediaEntity("Chapters.covers"),
	))
}

func tree() []record.Record {
	return []record.Record{{
		"ID":      "b1",
		"content": "not an attachment",
		"attachments": []map[string]any{
			{"ID": "a1", "content": "one"},
			{"ID": "a2", "mimeType": "text/plain"},
		},
		"chapters": []record.Record{{
			"ID":     "c1",
			"covers": []any{map[string]any{"ID": "cv1", "content": "two"}},
		}},
	}}
}

type visit struct {
	Entity string
	Keys   map[string]any
	Parent map[string]any
	Depth  int
	Value  any
}

func TestProcessVisitsContentDepthFirst(t *testing.T) {
	x := testIndex()
	var got []visit
	err := New(x).Process("Books", tree(), ContentField(x), func(p Path, el model.Element, v any) (any, error) {
		got = append(got, visit{p.Entity.Name, p.Keys, p.ParentKeys, len(p.Segments), v})
		return v, nil
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	want := []visit{
		{"Books.attachments", map[string]any{"ID": "a1"}, map[string]any{"ID": "b1"}, 1, "one"},
		{"Chapters.covers", map[string]any{"ID": "cv1"}, map[string]any{"ID": "c1"}, 2, "two"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("visits = %+v\nwant %+v", got, want)
	}
}

func TestProcessReplaceAndRemove(t *testing.T) {
	x := testIndex()
	records := tree()
	err := New(x).Process("Books", records, ContentField(x), func(p Path, el model.Element, v any) (any, error) {
		if v == "one" {
			return Remove, nil
		}
		return "replaced", nil
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	a1 := records[0].Children("attachments")[0]
	if a1.Has("content") {
		t.Error("content should be removed")
	}
	cover := records[0].Children("chapters")[0].Children("covers")[0]
	if cover["content"] != "replaced" {
		t.Errorf("cover content = %v", cover["content"])
	}
	if records[0]["content"] != "not an attachment" {
		t.Error("non-media field touched")
	}
}

func TestProcessStopsOnFirstError(t *testing.T) {
	x := testIndex()
	boom := errors.New("boom")
	calls := 0
	err := New(x).Process("Books", tree(), ContentField(x), func(Path, model.Element, any) (any, error) {
		calls++
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestProcessFieldPredicate(t *testing.T) {
	x := testIndex()
	var seen []any
	pred := Field(x, func(d model.FieldDescriptor) string { return d.MimeType })
	err := New(x).Process("Books", tree(), pred, func(p Path, el model.Element, v any) (any, error) {
		seen = append(seen, v)
		return v, nil
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !reflect.DeepEqual(seen, []any{"text/plain"}) {
		t.Errorf("seen = %v", seen)
	}
}

func TestProcessSkipsEntitiesWithoutMedia(t *testing.T) {
	x := model.NewIndex(model.NewRegistry(&model.Entity{Name: "Plain", Elements: []model.Element{{Name: "content"}}}))
	err := New(x).Process("Plain", []record.Record{{"content": "x"}}, ContentField(x), func(Path, model.Element, any) (any, error) {
		t.Fatal("action called for entity without media")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
}

func TestProcessDescendsIntoSelfComposition(t *testing.T) {
	x := model.NewIndex(model.NewRegistry(
		&model.Entity{
			Name:     "Folders",
			Elements: []model.Element{{Name: "ID", Key: true}},
			Associations: []model.Association{
				{Name: "attachments", Target: "Folders.attachments", Composition: true, Many: true},
				{Name: "subfolders", Target: "Folders", Composition: true, Many: true},
			},
		},
		mediaEntity("Folders.attachments"),
	))
	records := []record.Record{{
		"ID":          "f1",
		"attachments": []any{map[string]any{"ID": "a1", "content": "top"}},
		"subfolders": []any{map[string]any{
			"ID":          "f2",
			"attachments": []any{map[string]any{"ID": "a2", "content": "nested"}},
			"subfolders": []any{map[string]any{
				"ID":          "f3",
				"attachments": []any{map[string]any{"ID": "a3", "content": "deepest"}},
			}},
		}},
	}}

	var got []any
	var depths []int
	err := New(x).Process("Folders", records, ContentField(x), func(p Path, el model.Element, v any) (any, error) {
		got = append(got, v)
		depths = append(depths, len(p.Segments))
		return Remove, nil
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if want := []any{"top", "nested", "deepest"}; !reflect.DeepEqual(got, want) {
		t.Errorf("visited = %v, want %v", got, want)
	}
	if want := []int{1, 2, 3}; !reflect.DeepEqual(depths, want) {
		t.Errorf("depths = %v, want %v", depths, want)
	}
	nested := records[0].Children("subfolders")[0].Children("attachments")[0]
	if nested.Has("content") {
		t.Error("nested content left inline")
	}
}
