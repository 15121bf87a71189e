package record

import (
	"reflect"
	"testing"
)

func TestChildrenShapes(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{"records", []Record{{"a": 1}, {"a": 2}}, 2},
		{"maps", []map[string]any{{"a": 1}}, 1},
		{"any", []any{map[string]any{"a": 1}, "skip", Record{"a": 2}}, 2},
		{"single", map[string]any{"a": 1}, 1},
		{"absent", nil, 0},
		{"scalar", "x", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Record{"items": tt.value}
			if got := len(r.Children("items")); got != tt.want {
				t.Errorf("len(Children) = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestChildrenShareStorage(t *testing.T) {
	raw := []map[string]any{{"a": 1}}
	r := Record{"items": raw}
	r.Children("items")[0].Put("b", 2)
	if raw[0]["b"] != 2 {
		t.Error("child modification not visible in parent")
	}
}

func TestAccessors(t *testing.T) {
	r := Record{"id": 42, "name": "x", "nil": nil}
	if r.String("id") != "42" || r.String("name") != "x" || r.String("missing") != "" {
		t.Errorf("String accessors wrong: %q %q", r.String("id"), r.String("name"))
	}
	if !r.Has("nil") || r.Has("missing") {
		t.Error("Has wrong")
	}
	r.Put("", "ignored")
	if r.Has("") {
		t.Error("empty field stored")
	}
	r.Remove("name")
	if r.Has("name") {
		t.Error("Remove did not delete")
	}
	if got := r.Pick([]string{"id", "missing"}); !reflect.DeepEqual(got, map[string]any{"id": 42}) {
		t.Errorf("Pick = %v", got)
	}
	var empty Record
	if empty.Get("x") != nil || empty.Has("x") {
		t.Error("nil record should read as empty")
	}
}

func TestClone(t *testing.T) {
	r := Record{"items": []map[string]any{{"a": 1}}, "child": Record{"b": 2}}
	c := r.Clone()
	c.Children("items")[0].Put("a", 9)
	c.Children("child")[0].Put("b", 9)
	if r.Children("items")[0]["a"] != 1 || r.Children("child")[0]["b"] != 2 {
		t.Error("clone shares nested records")
	}
}
