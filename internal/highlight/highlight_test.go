package highlight

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sirensolutions/kibi-timeline/internal/model"
)

var tags = model.KibanaHighlightTags

func mark(s string) string {
	return tags.Pre + s + tags.Post
}

func TestFragment(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		want     string
		ok       bool
	}{
		{"single span", "the " + mark("BEST BEST") + " pick", "best best", true},
		{"trimmed", mark("  Linux ") + "!", "linux", true},
		{"first span only", mark("one") + " and " + mark("two"), "one", true},
		{"no tags", "plain text", "", false},
		{"missing close", tags.Pre + "dangling", "", false},
		{"missing open", "dangling" + tags.Post, "", false},
		{"close before open", tags.Post + "x" + tags.Pre, "", false},
		{"blank span", mark("   "), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Fragment(tt.fragment, tags)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFragmentHTMLTags(t *testing.T) {
	got, ok := Fragment("…running <mark>Linux</mark> kernel…", model.HTMLHighlightTags)
	assert.True(t, ok)
	assert.Equal(t, "linux", got)

	_, ok = Fragment("x", model.HighlightTags{})
	assert.False(t, ok)
}

func TestExtractRanking(t *testing.T) {
	hit := &model.Hit{
		Highlight: map[string][]string{
			"title": {mark("zulu"), mark("Best")},
			"body":  {"a " + mark("best") + " b", mark("alpha")},
		},
	}

	assert.Equal(t, "best: 2, alpha: 1, zulu: 1", Extract(hit, tags))
}

func TestExtractDeterministic(t *testing.T) {
	hit := &model.Hit{
		Highlight: map[string][]string{
			"a": {mark("delta"), mark("charlie"), mark("bravo")},
			"b": {mark("charlie"), mark("echo"), mark("alpha")},
			"c": {mark("bravo"), mark("foxtrot")},
			"d": {mark("alpha"), "broken " + tags.Pre},
		},
	}

	want := "alpha: 2, bravo: 2, charlie: 2, delta: 1, echo: 1, foxtrot: 1"
	for i := 0; i < 50; i++ {
		assert.Equal(t, want, Extract(hit, tags))
	}
}

func TestExtractNoHighlight(t *testing.T) {
	assert.Equal(t, "", Extract(&model.Hit{}, tags))
	assert.Equal(t, "", Extract(nil, tags))
	assert.Equal(t, "", Extract(&model.Hit{Highlight: map[string][]string{"f": {"no marks"}}}, tags))
}

func TestTerms(t *testing.T) {
	terms := Terms(map[string][]string{
		"machine.os": {mark("BEST BEST")},
	}, tags)

	assert.Equal(t, []Term{{Text: "best best", Count: 1}}, terms)
	assert.Nil(t, Terms(nil, tags))
}
