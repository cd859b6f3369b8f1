package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirensolutions/kibi-timeline/internal/model"
	"github.com/sirensolutions/kibi-timeline/internal/timeline"
)

func event(id, ts, osName string) model.Doc {
	return model.Doc{
		ID: id,
		Source: map[string]interface{}{
			"@timestamp": ts,
			"machine":    map[string]interface{}{"os": osName},
		},
	}
}

func newTestIndexer(t *testing.T) *Indexer {
	t.Helper()
	idx, err := NewMemIndexer("events", nil)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	require.NoError(t, idx.IndexDocs(
		event("c", "2016-12-16T00:00:00Z", "linux"),
		event("a", "1995-01-25T00:00:00Z", "linux"),
		event("b", "2015-01-25T00:00:00Z", "windows"),
	))
	return idx
}

func logsGroup(useHighlight bool) model.GroupConfig {
	return model.GroupConfig{
		ID:    1,
		Label: "logs",
		Params: model.GroupParams{
			FieldConfig: model.FieldConfig{
				StartField: "@timestamp",
				LabelField: "machine.os",
			},
			UseHighlight: useHighlight,
		},
		HighlightTags: model.HTMLHighlightTags,
	}
}

func TestTimelineSortsByStart(t *testing.T) {
	idx := newTestIndexer(t)

	hits, err := idx.Timeline(context.Background(), logsGroup(false), "", 0)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, "b", hits[1].ID)
	assert.Equal(t, "c", hits[2].ID)
	assert.Equal(t, "events", hits[0].Index)

	items := timeline.NewProjector(timeline.TimeParser{}, nil).ProjectAll(hits, logsGroup(false))
	require.Len(t, items, 3)
	assert.Equal(t, "linux", items[0].Value)
	assert.Equal(t, "windows", items[1].Value)
	assert.True(t, items[0].Start.Before(items[1].Start))
	assert.True(t, items[1].Start.Before(items[2].Start))
}

func TestTimelineQueryAndHighlight(t *testing.T) {
	idx := newTestIndexer(t)
	group := logsGroup(true)

	hits, err := idx.Timeline(context.Background(), group, "machine.os:linux", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, "c", hits[1].ID)

	items := timeline.NewProjector(timeline.TimeParser{}, nil).ProjectAll(hits, group)
	require.Len(t, items, 2)
	assert.Contains(t, items[0].Content, "linux")
}

func TestTimelineGroupQuery(t *testing.T) {
	idx := newTestIndexer(t)
	group := logsGroup(false)
	group.Query = "machine.os:windows"

	hits, err := idx.Timeline(context.Background(), group, "", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].ID)

	hits, err = idx.Timeline(context.Background(), group, "machine.os:linux", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndexJSONL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")
	content := `{"_id":"1","_source":{"@timestamp":"2015-01-25T00:00:00Z","machine":{"os":"linux"}}}
{"_id":"2","_source":{}}
{"_id":"3","_source":["not","an","object"]}
{"_source":{"@timestamp":"2016-01-25T00:00:00Z"}}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	idx, err := NewMemIndexer("events", nil)
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.IndexJSONL(context.Background(), path, 1, 0))

	count, err := idx.Index.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestIndexJSONLMaxDocs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")
	content := `{"_id":"1","_source":{"n":1}}
{"_id":"2","_source":{"n":2}}
{"_id":"3","_source":{"n":3}}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	idx, err := NewMemIndexer("events", nil)
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.IndexJSONL(context.Background(), path, 10, 2))
	count, err := idx.Index.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestIndexJSONLErrors(t *testing.T) {
	idx, err := NewMemIndexer("events", nil)
	require.NoError(t, err)
	defer idx.Close()

	err = idx.IndexJSONL(context.Background(), filepath.Join(t.TempDir(), "missing.jsonl"), 10, 0)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0644))
	assert.Error(t, idx.IndexJSONL(context.Background(), path, 10, 0))
}

func TestNewIndexerOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.bleve")

	idx, err := NewIndexer(path, nil)
	require.NoError(t, err)
	require.NoError(t, idx.IndexDocs(event("a", "1995-01-25T00:00:00Z", "linux")))
	assert.Equal(t, "events.bleve", idx.Name())
	require.NoError(t, idx.Close())

	reopened, err := NewIndexer(path, nil)
	require.NoError(t, err)
	defer reopened.Close()
	count, err := reopened.Index.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}
