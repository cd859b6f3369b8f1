package model

// Hit is one matched document returned by a search query.
//
// Source holds the raw document body. Fields holds the server-side
// projection, keyed by full field name with every value wrapped in a list.
// Highlight maps a field name to the highlighted fragments for that field.
type Hit struct {
	ID        string                   `json:"_id"`
	Index     string                   `json:"_index,omitempty"`
	Score     float64                  `json:"_score,omitempty"`
	Source    map[string]interface{}   `json:"_source,omitempty"`
	Fields    map[string][]interface{} `json:"fields,omitempty"`
	Highlight map[string][]string      `json:"highlight,omitempty"`
}

// HasHighlight reports whether the hit carries any highlight data.
func (h *Hit) HasHighlight() bool {
	return h != nil && len(h.Highlight) > 0
}
