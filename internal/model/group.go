package model

import "strings"

// PathSeparator joins the segments of a field path.
const PathSeparator = "."

// FieldRef addresses one logical field of a hit. At most one of Path and
// Sequence is used: Sequence wins when it is non-empty.
type FieldRef struct {
	Path     string
	Sequence []string
}

// IsZero reports whether the reference addresses nothing.
func (r FieldRef) IsZero() bool {
	return r.Path == "" && len(r.Sequence) == 0
}

// Name returns the full dotted name of the referenced field.
func (r FieldRef) Name() string {
	if len(r.Sequence) > 0 {
		return strings.Join(r.Sequence, PathSeparator)
	}
	return r.Path
}

// FieldConfig locates the start, end and label fields in a hit.
type FieldConfig struct {
	StartField         string   `yaml:"startField" json:"startField"`
	StartFieldSequence []string `yaml:"startFieldSequence,omitempty" json:"startFieldSequence,omitempty"`
	EndField           string   `yaml:"endField,omitempty" json:"endField,omitempty"`
	EndFieldSequence   []string `yaml:"endFieldSequence,omitempty" json:"endFieldSequence,omitempty"`
	LabelField         string   `yaml:"labelField,omitempty" json:"labelField,omitempty"`
	LabelFieldSequence []string `yaml:"labelFieldSequence,omitempty" json:"labelFieldSequence,omitempty"`
}

func (c FieldConfig) Start() FieldRef {
	return FieldRef{Path: c.StartField, Sequence: c.StartFieldSequence}
}

func (c FieldConfig) End() FieldRef {
	return FieldRef{Path: c.EndField, Sequence: c.EndFieldSequence}
}

func (c FieldConfig) Label() FieldRef {
	return FieldRef{Path: c.LabelField, Sequence: c.LabelFieldSequence}
}

// UsesSequences reports whether any field is addressed by a segment sequence.
func (c FieldConfig) UsesSequences() bool {
	return len(c.StartFieldSequence) > 0 || len(c.EndFieldSequence) > 0 || len(c.LabelFieldSequence) > 0
}

// HighlightTags bound a highlighted span inside a fragment.
type HighlightTags struct {
	Pre  string `yaml:"pre" json:"pre"`
	Post string `yaml:"post" json:"post"`
}

var (
	// KibanaHighlightTags is the marker pair shared across the Kibana search stack.
	KibanaHighlightTags = HighlightTags{Pre: "@kibana-highlighted-field@", Post: "@/kibana-highlighted-field@"}
	// HTMLHighlightTags is the marker pair emitted by bleve's html highlighter.
	HTMLHighlightTags = HighlightTags{Pre: "<mark>", Post: "</mark>"}
)

// GroupParams holds the per-group field addressing and highlighting switch.
type GroupParams struct {
	FieldConfig  `yaml:",inline"`
	UseHighlight bool `yaml:"useHighlight,omitempty" json:"useHighlight,omitempty"`
}

// GroupConfig describes one timeline group: where its events come from and
// how their hits are projected.
type GroupConfig struct {
	ID            int           `yaml:"id" json:"id"`
	Label         string        `yaml:"label" json:"label"`
	Color         string        `yaml:"color,omitempty" json:"color,omitempty"`
	IndexID       string        `yaml:"index,omitempty" json:"index,omitempty"`
	Query         string        `yaml:"query,omitempty" json:"query,omitempty"`
	Params        GroupParams   `yaml:"params" json:"params"`
	HighlightTags HighlightTags `yaml:"highlightTags,omitempty" json:"highlightTags,omitempty"`
}
