// Package record holds the generic nested records exchanged with the host.
package record

import "fmt"

// Record is one entity instance. Composition children are stored under the
// association name as []Record, []map[string]any, []any, or a single map.
type Record map[string]any

// Get returns the value of field, or nil.
func (r Record) Get(field string) any {
	if r == nil {
		return nil
	}
	return r[field]
}

// Has reports whether field is present, even with a nil value.
func (r Record) Has(field string) bool {
	if r == nil {
		return false
	}
	_, ok := r[field]
	return ok
}

// Put sets field. An empty field name is ignored.
func (r Record) Put(field string, value any) {
	if field == "" {
		return
	}
	r[field] = value
}

// Remove deletes field.
func (r Record) Remove(field string) {
	delete(r, field)
}

// String returns field as a string. Non-string values are formatted.
func (r Record) String(field string) string {
	switch v := r.Get(field).(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Pick returns the named fields that are present.
func (r Record) Pick(fields []string) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := r[f]; ok {
			out[f] = v
		}
	}
	return out
}

// Children returns the records nested under association. The returned
// records share storage with r, so changes to them are visible through r.
func (r Record) Children(association string) []Record {
	switch v := r.Get(association).(type) {
	case []Record:
		return v
	case Record:
		return []Record{v}
	case map[string]any:
		return []Record{v}
	case []map[string]any:
		out := make([]Record, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	case []any:
		out := make([]Record, 0, len(v))
		for _, item := range v {
			switch m := item.(type) {
			case Record:
				out = append(out, m)
			case map[string]any:
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// Clone returns a deep copy of the record tree. Leaf values are shared.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Record:
		return t.Clone()
	case map[string]any:
		return map[string]any(Record(t).Clone())
	case []Record:
		out := make([]Record, len(t))
		for i := range t {
			out[i] = t[i].Clone()
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i := range t {
			out[i] = Record(t[i]).Clone()
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	}
	return v
}
