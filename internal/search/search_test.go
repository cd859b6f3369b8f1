package search

import (
	"testing"

	"github.com/blevesearch/bleve/v2"
	blevesearch "github.com/blevesearch/bleve/v2/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirensolutions/kibi-timeline/internal/model"
)

func TestFromBleve(t *testing.T) {
	dm := &blevesearch.DocumentMatch{
		ID:    "61",
		Score: 1.5,
		Fields: map[string]interface{}{
			"@timestamp": []interface{}{"2015-01-25T00:00:00Z", "2016-12-16T00:00:00Z"},
			"machine.os": "linux",
			"machine.ip": "10.0.0.1",
		},
		Fragments: blevesearch.FieldFragmentMap{
			"machine.os": {"<mark>linux</mark>"},
		},
	}

	hit := FromBleve(dm, "events.bleve")

	assert.Equal(t, "61", hit.ID)
	assert.Equal(t, "events.bleve", hit.Index)
	assert.Equal(t, 1.5, hit.Score)
	assert.Equal(t, []interface{}{"linux"}, hit.Fields["machine.os"])
	assert.Len(t, hit.Fields["@timestamp"], 2)
	assert.Equal(t, map[string]interface{}{"os": "linux", "ip": "10.0.0.1"}, hit.Source["machine"])
	assert.Equal(t, []string{"<mark>linux</mark>"}, hit.Highlight["machine.os"])
}

func TestFromBleveNoFields(t *testing.T) {
	hit := FromBleve(&blevesearch.DocumentMatch{ID: "1", Index: "shard-0"}, "fallback")

	assert.Equal(t, "shard-0", hit.Index)
	assert.Nil(t, hit.Source)
	assert.Nil(t, hit.Fields)
	assert.False(t, hit.HasHighlight())
}

func TestFromBleveResult(t *testing.T) {
	res := &bleve.SearchResult{
		Hits: blevesearch.DocumentMatchCollection{
			{ID: "b"},
			{ID: "a"},
		},
	}

	hits := FromBleveResult(res, "idx")
	require.Len(t, hits, 2)
	assert.Equal(t, "b", hits[0].ID)
	assert.Equal(t, "a", hits[1].ID)
	assert.Nil(t, FromBleveResult(nil, "idx"))
}

func TestUnflatten(t *testing.T) {
	got := Unflatten(map[string]interface{}{
		"a":       "scalar",
		"a.b":     "shadowed",
		"x.y.z":   float64(1),
		"x.y.w":   true,
		"plain":   "v",
		"x.y":     "conflict",
		"list.of": []interface{}{"p", "q"},
	})

	assert.Equal(t, "scalar", got["a"])
	assert.Equal(t, "shadowed", got["a.b"])
	assert.Equal(t, "v", got["plain"])
	assert.Equal(t, "conflict", got["x"].(map[string]interface{})["y"])
	assert.Equal(t, float64(1), got["x.y.z"])
	assert.Equal(t, true, got["x.y.w"])
	assert.Equal(t, []interface{}{"p", "q"}, got["list"].(map[string]interface{})["of"])
	assert.Nil(t, Unflatten(nil))
}

func TestDecodeElasticsearch(t *testing.T) {
	body := []byte(`{
		"took": 73,
		"timed_out": false,
		"_shards": {"total": 144, "successful": 144, "failed": 0},
		"hits": {
			"total": 49487,
			"max_score": 1.0,
			"hits": [
				{
					"_index": "logstash-2014.09.09",
					"_type": "apache",
					"_id": "61",
					"_score": 1,
					"_source": {"@timestamp": "25-01-1995", "machine": {"os": "linux"}},
					"fields": {"@timestamp": [790992000000]},
					"highlight": {"machine.os": ["@kibana-highlighted-field@BEST BEST@/kibana-highlighted-field@"]}
				}
			]
		}
	}`)

	hits, err := DecodeElasticsearch(body)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	hit := hits[0]
	assert.Equal(t, "61", hit.ID)
	assert.Equal(t, "logstash-2014.09.09", hit.Index)
	assert.Equal(t, map[string]interface{}{"os": "linux"}, hit.Source["machine"])
	assert.Equal(t, []interface{}{float64(790992000000)}, hit.Fields["@timestamp"])
	assert.Equal(t, []string{model.KibanaHighlightTags.Pre + "BEST BEST" + model.KibanaHighlightTags.Post}, hit.Highlight["machine.os"])
}

func TestDecodeElasticsearchInvalid(t *testing.T) {
	_, err := DecodeElasticsearch([]byte(`{"hits": [`))
	assert.Error(t, err)
}
