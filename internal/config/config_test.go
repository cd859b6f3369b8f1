package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirensolutions/kibi-timeline/internal/model"
)

const sampleTimeline = `
timeLayouts: ["02-01-2006"]
timezone: UTC
groups:
  - id: 1
    label: logs
    color: "#ff0000"
    index: logstash-*
    query: "machine.os:linux"
    params:
      startField: "@timestamp"
      labelField: machine.os
      useHighlight: true
  - id: 2
    label: deployments
    highlightTags: {pre: "@kibana-highlighted-field@", post: "@/kibana-highlighted-field@"}
    params:
      startField: deploy.started
      startFieldSequence: [deploy, started]
      endField: deploy.finished
      endFieldSequence: [deploy, finished]
      labelField: service.name.raw
      labelFieldSequence: [service.name.raw]
`

func TestParseTimeline(t *testing.T) {
	tl, err := ParseTimeline([]byte(sampleTimeline))
	require.NoError(t, err)
	require.Len(t, tl.Groups, 2)

	logs, err := tl.Group(1)
	require.NoError(t, err)
	assert.Equal(t, "logs", logs.Label)
	assert.Equal(t, "#ff0000", logs.Color)
	assert.Equal(t, "logstash-*", logs.IndexID)
	assert.Equal(t, "machine.os:linux", logs.Query)
	assert.Equal(t, "@timestamp", logs.Params.StartField)
	assert.Equal(t, "machine.os", logs.Params.LabelField)
	assert.True(t, logs.Params.UseHighlight)
	assert.Equal(t, model.HTMLHighlightTags, logs.HighlightTags)

	deploys, err := tl.Group(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"deploy", "started"}, deploys.Params.StartFieldSequence)
	assert.Equal(t, []string{"service.name.raw"}, deploys.Params.LabelFieldSequence)
	assert.Equal(t, model.KibanaHighlightTags, deploys.HighlightTags)

	_, err = tl.Group(3)
	assert.True(t, errors.Is(err, ErrUnknownGroup))
}

func TestTimelineTimeParser(t *testing.T) {
	tl, err := ParseTimeline([]byte(sampleTimeline))
	require.NoError(t, err)

	p := tl.TimeParser()
	assert.Equal(t, []string{"02-01-2006"}, p.Layouts)
	assert.Equal(t, time.UTC, p.Location)

	ts, ok := p.Parse("25-01-1995")
	require.True(t, ok)
	assert.Equal(t, 1995, ts.Year())
}

func TestParseTimelineInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no groups", `groups: []`},
		{"no start", `groups: [{id: 1, params: {labelField: a}}]`},
		{"duplicate id", `groups: [{id: 1, params: {startField: a}}, {id: 1, params: {startField: b}}]`},
		{"partial sequences", `groups: [{id: 1, params: {startField: a.b, startFieldSequence: [a, b], labelField: c}}]`},
		{"bad timezone", "timezone: Mars/Olympus\ngroups: [{id: 1, params: {startField: a}}]"},
		{"highlight without tags", `groups: [{id: 1, highlightTags: {pre: "<b>"}, params: {startField: a, useHighlight: true}}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTimeline([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}

	_, err := ParseTimeline([]byte("groups: {"))
	assert.Error(t, err)
}

func TestLoadTimeline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTimeline), 0644))

	tl, err := LoadTimeline(path)
	require.NoError(t, err)
	assert.Len(t, tl.Groups, 2)

	_, err = LoadTimeline(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseOptions(t *testing.T) {
	var opts SearcherOptions
	require.NoError(t, Parse(&opts, []string{"--port", "9000", "--shard-id", "2", "--log-level", "debug"}))
	assert.Equal(t, 9000, opts.Port)
	assert.Equal(t, 2, opts.ShardID)
	assert.Equal(t, "debug", opts.LogLevel)
	assert.Equal(t, "events.bleve", opts.Index)

	var coord CoordinatorOptions
	require.NoError(t, Parse(&coord, []string{"--cache-ttl", "30s"}))
	assert.Equal(t, 30*time.Second, coord.CacheTTL)
	assert.Equal(t, 500, coord.Limit)

	var idx IndexerOptions
	assert.Error(t, Parse(&idx, []string{"--batch-size", "many"}))
}
