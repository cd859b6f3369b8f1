// Package highlight ranks the terms a search backend marked in a hit's
// highlight fragments.
package highlight

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirensolutions/kibi-timeline/internal/model"
)

// Term is a distinct highlighted term and the number of fragments it was
// extracted from.
type Term struct {
	Text  string
	Count int
}

func (t Term) String() string {
	return fmt.Sprintf("%s: %d", t.Text, t.Count)
}

// Fragment returns the lowercased, trimmed text between the first open tag
// and the first close tag of fragment. It reports false when either tag is
// missing or when the close tag starts before the open tag ends. It also
// reports false for a well-formed span whose text is blank after trimming,
// so such spans are not counted as an empty term.
func Fragment(fragment string, tags model.HighlightTags) (string, bool) {
	if tags.Pre == "" || tags.Post == "" {
		return "", false
	}
	open := strings.Index(fragment, tags.Pre)
	closing := strings.Index(fragment, tags.Post)
	if open < 0 || closing < 0 {
		return "", false
	}
	from := open + len(tags.Pre)
	if closing < from {
		return "", false
	}
	term := strings.TrimSpace(strings.ToLower(fragment[from:closing]))
	if term == "" {
		return "", false
	}
	return term, true
}

// Terms counts the terms extracted from every fragment of every field and
// returns them by descending count, ties broken alphabetically.
func Terms(fragments map[string][]string, tags model.HighlightTags) []Term {
	if len(fragments) == 0 {
		return nil
	}

	fields := make([]string, 0, len(fragments))
	for field := range fragments {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	counts := make(map[string]int)
	for _, field := range fields {
		for _, frag := range fragments[field] {
			if term, ok := Fragment(frag, tags); ok {
				counts[term]++
			}
		}
	}

	terms := make([]Term, 0, len(counts))
	for text, n := range counts {
		terms = append(terms, Term{Text: text, Count: n})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return strings.Compare(terms[i].Text, terms[j].Text) < 0
	})
	return terms
}

// Extract renders the ranked highlight terms of hit as "term: count" entries
// joined by ", ". A hit without highlight data yields "".
func Extract(hit *model.Hit, tags model.HighlightTags) string {
	if !hit.HasHighlight() {
		return ""
	}
	terms := Terms(hit.Highlight, tags)
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
