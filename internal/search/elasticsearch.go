package search

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/sirensolutions/kibi-timeline/internal/model"
)

// Response is the part of an Elasticsearch search response the timeline
// reads.
type Response struct {
	Took     int  `json:"took"`
	TimedOut bool `json:"timed_out"`
	Hits     struct {
		Total interface{} `json:"total"`
		Hits  []model.Hit `json:"hits"`
	} `json:"hits"`
}

// DecodeElasticsearch decodes the hits of a raw Elasticsearch search
// response, keeping _source, fields and highlight as returned.
func DecodeElasticsearch(data []byte) ([]model.Hit, error) {
	var resp Response
	if err := sonic.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return resp.Hits.Hits, nil
}
