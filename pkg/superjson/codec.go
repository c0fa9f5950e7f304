package superjson

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// dateTag marks a meta path whose value must be revived as a time.Time on
// decode.
const dateTag = "Date"

// Envelope is the wire shape: the encoded JSON payload plus the meta map
// describing which dotted paths need reviving.
type Envelope struct {
	JSON string            `json:"json"`
	Meta map[string]string `json:"meta,omitempty"`
}

// Serialize walks v looking for time.Time values, records their paths in
// Meta, and JSON-encodes the result. Spec.md §4.4 step 8: "payload encoded
// with tagged-meta".
func Serialize(v any) (Envelope, error) {
	meta := map[string]string{}
	collectDatePaths(reflect.ValueOf(v), "", meta)

	b, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("superjson: marshal: %w", err)
	}
	return Envelope{JSON: string(b), Meta: meta}, nil
}

// Deserialize decodes the JSON payload into a generic map/slice/primitive
// tree, then revives any path flagged Date in meta into a time.Time.
// Spec.md §4.4 step 6: "Deserialize params ... dates normalized."
func Deserialize(env Envelope) (any, error) {
	var v any
	if env.JSON == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(env.JSON), &v); err != nil {
		return nil, fmt.Errorf("superjson: unmarshal: %w", err)
	}
	for path, tag := range env.Meta {
		if tag != dateTag {
			continue
		}
		reviveDate(&v, splitPath(path))
	}
	return v, nil
}

func collectDatePaths(rv reflect.Value, path string, meta map[string]string) {
	if !rv.IsValid() {
		return
	}
	if rv.Kind() == reflect.Interface || rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return
		}
		collectDatePaths(rv.Elem(), path, meta)
		return
	}

	if rv.Type() == reflect.TypeOf(time.Time{}) {
		if path != "" {
			meta[path] = dateTag
		}
		return
	}

	switch rv.Kind() {
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			key := fmt.Sprintf("%v", iter.Key().Interface())
			collectDatePaths(iter.Value(), joinPath(path, key), meta)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			collectDatePaths(rv.Index(i), joinPath(path, strconv.Itoa(i)), meta)
		}
	case reflect.Struct:
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.PkgPath != "" { // unexported
				continue
			}
			name := jsonFieldName(f)
			if name == "-" {
				continue
			}
			collectDatePaths(rv.Field(i), joinPath(path, name), meta)
		}
	}
}

func jsonFieldName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name
	}
	name := strings.Split(tag, ",")[0]
	if name == "" {
		return f.Name
	}
	return name
}

func joinPath(base, next string) string {
	if base == "" {
		return next
	}
	return base + "." + next
}

func splitPath(p string) []string {
	if p == "" {
		return nil
	}
	return strings.Split(p, ".")
}

// reviveDate walks the decoded generic tree along path and, if it finds a
// string leaf, replaces it with the parsed time.Time.
func reviveDate(v *any, path []string) {
	if len(path) == 0 {
		if s, ok := (*v).(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				*v = t
			}
		}
		return
	}

	switch node := (*v).(type) {
	case map[string]any:
		child, ok := node[path[0]]
		if !ok {
			return
		}
		reviveDate(&child, path[1:])
		node[path[0]] = child
	case []any:
		idx, err := strconv.Atoi(path[0])
		if err != nil || idx < 0 || idx >= len(node) {
			return
		}
		child := node[idx]
		reviveDate(&child, path[1:])
		node[idx] = child
	}
}
