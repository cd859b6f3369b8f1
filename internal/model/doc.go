package model

// Doc is one event document as read from a JSONL export. The layout mirrors
// an Elasticsearch hit so that exports can be indexed without reshaping.
type Doc struct {
	ID     string                 `json:"_id"`
	Index  string                 `json:"_index,omitempty"`
	Source map[string]interface{} `json:"_source"`
}
