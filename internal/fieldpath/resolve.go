// Package fieldpath resolves field values out of search hits.
//
// Two addressing modes are supported. A segment sequence (["machine","os"])
// is walked with Collect, which descends through lists and gathers every
// value it reaches; its first segment decides whether the hit's source or its
// fields projection is searched. A dotted path ("machine.os") is walked with
// Get against the source only.
package fieldpath

import (
	"strconv"
	"strings"

	"github.com/sirensolutions/kibi-timeline/internal/model"
)

// IsMultifield reports whether a path segment names a multi-field, which is
// only reachable through the fields projection.
func IsMultifield(segment string) bool {
	return strings.Contains(segment, model.PathSeparator)
}

// Resolve looks up the field addressed by ref in hit.
func Resolve(hit *model.Hit, ref model.FieldRef) Value {
	if hit == nil || ref.IsZero() {
		return Absent()
	}
	if len(ref.Sequence) > 0 {
		if IsMultifield(ref.Sequence[0]) {
			return Collect(hit.Fields, ref.Sequence)
		}
		return Collect(hit.Source, ref.Sequence)
	}
	return Get(hit.Source, ref.Path)
}

// Collect walks path from root and gathers every value found at its end.
// Lists met on the way are descended element by element and a list at the
// end is flattened, so the result is always a list (or absent).
func Collect(root interface{}, path []string) Value {
	if len(path) == 0 {
		return Absent()
	}
	out := collect(root, path, nil)
	if len(out) == 0 {
		return Absent()
	}
	return Of(out)
}

func collect(node interface{}, path []string, out []interface{}) []interface{} {
	next, ok := child(node, path[0])
	if !ok || next == nil {
		return out
	}
	list, isList := next.([]interface{})
	if len(path) == 1 {
		if !isList {
			return append(out, next)
		}
		for _, v := range list {
			if v != nil {
				out = append(out, v)
			}
		}
		return out
	}
	if isList {
		for _, v := range list {
			out = collect(v, path[1:], out)
		}
		return out
	}
	return collect(next, path[1:], out)
}

// Get walks a dotted path from root. A key holding the full dotted path
// takes precedence over the nested walk, and numeric segments index lists.
func Get(root interface{}, path string) Value {
	if path == "" {
		return Absent()
	}
	if v, ok := child(root, path); ok {
		return Of(v)
	}
	node := root
	for _, seg := range strings.Split(path, model.PathSeparator) {
		next, ok := child(node, seg)
		if !ok {
			if list, isList := node.([]interface{}); isList {
				next, ok = index(list, seg)
			}
		}
		if !ok || next == nil {
			return Absent()
		}
		node = next
	}
	return Of(node)
}

func child(node interface{}, key string) (interface{}, bool) {
	switch m := node.(type) {
	case map[string]interface{}:
		v, ok := m[key]
		return v, ok
	case map[string][]interface{}:
		v, ok := m[key]
		if !ok || v == nil {
			return nil, false
		}
		return v, true
	default:
		return nil, false
	}
}

func index(list []interface{}, seg string) (interface{}, bool) {
	i, err := strconv.Atoi(seg)
	if err != nil || i < 0 || i >= len(list) {
		return nil, false
	}
	return list[i], true
}
