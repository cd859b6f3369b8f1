package timeline

import "github.com/sirensolutions/kibi-timeline/internal/model"

// SortOrder is the body of one Elasticsearch sort clause.
type SortOrder struct {
	Order string `json:"order"`
}

// SortKey returns the field name used to request ascending chronological
// order from the store. It names the same field the resolver reads for the
// start of an item.
func SortKey(cfg model.FieldConfig) string {
	return cfg.Start().Name()
}

// SortClause returns the Elasticsearch sort object for cfg.
func SortClause(cfg model.FieldConfig) map[string]SortOrder {
	return map[string]SortOrder{SortKey(cfg): {Order: "asc"}}
}
