package search

import (
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	blevesearch "github.com/blevesearch/bleve/v2/search"

	"github.com/sirensolutions/kibi-timeline/internal/model"
)

// FromBleve converts a bleve search hit into a Hit. Stored fields become the
// fields projection, keyed by their full dotted name with every value
// wrapped in a list, and are also nested back into a source document.
// Highlight fragments are copied as they are.
func FromBleve(hit *blevesearch.DocumentMatch, index string) model.Hit {
	out := model.Hit{
		ID:     hit.ID,
		Index:  index,
		Score:  hit.Score,
		Source: Unflatten(hit.Fields),
	}
	if hit.Index != "" {
		out.Index = hit.Index
	}

	if len(hit.Fields) > 0 {
		out.Fields = make(map[string][]interface{}, len(hit.Fields))
		for name, v := range hit.Fields {
			out.Fields[name] = asList(v)
		}
	}

	if len(hit.Fragments) > 0 {
		out.Highlight = make(map[string][]string, len(hit.Fragments))
		for field, frags := range hit.Fragments {
			out.Highlight[field] = append([]string(nil), frags...)
		}
	}
	return out
}

// FromBleveResult converts every hit of res, keeping result order.
func FromBleveResult(res *bleve.SearchResult, index string) []model.Hit {
	if res == nil {
		return nil
	}
	hits := make([]model.Hit, len(res.Hits))
	for i, h := range res.Hits {
		hits[i] = FromBleve(h, index)
	}
	return hits
}

// Unflatten nests dotted field names into a document tree: "machine.os"
// becomes {"machine": {"os": ...}}. A name whose prefix already holds a
// non-object value is kept under its full dotted name.
func Unflatten(fields map[string]interface{}) map[string]interface{} {
	if len(fields) == 0 {
		return nil
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	root := make(map[string]interface{}, len(fields))
	for _, name := range names {
		setPath(root, name, fields[name])
	}
	return root
}

func setPath(root map[string]interface{}, name string, v interface{}) {
	segs := strings.Split(name, model.PathSeparator)
	node := root
	for _, seg := range segs[:len(segs)-1] {
		next, ok := node[seg]
		if !ok {
			child := make(map[string]interface{})
			node[seg] = child
			node = child
			continue
		}
		child, isMap := next.(map[string]interface{})
		if !isMap {
			root[name] = v
			return
		}
		node = child
	}
	last := segs[len(segs)-1]
	if _, taken := node[last]; taken {
		root[name] = v
		return
	}
	node[last] = v
}

func asList(v interface{}) []interface{} {
	switch t := v.(type) {
	case []interface{}:
		return t
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	default:
		return []interface{}{v}
	}
}
