package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sirensolutions/kibi-timeline/internal/model"
	"github.com/sirensolutions/kibi-timeline/internal/timeline"
)

var (
	ErrInvalidConfig = errors.New("invalid timeline config")
	ErrUnknownGroup  = errors.New("unknown timeline group")
)

// Timeline is the content of a timeline groups file.
//
//	highlightTags: {pre: "<mark>", post: "</mark>"}
//	timeLayouts: ["02-01-2006"]
//	timezone: Europe/Dublin
//	groups:
//	  - id: 1
//	    label: logs
//	    color: "#ff0000"
//	    query: "machine.os:linux"
//	    params:
//	      startField: "@timestamp"
//	      labelField: machine.os
//	      useHighlight: true
type Timeline struct {
	HighlightTags model.HighlightTags `yaml:"highlightTags"`
	TimeLayouts   []string            `yaml:"timeLayouts"`
	Timezone      string              `yaml:"timezone"`
	Groups        []model.GroupConfig `yaml:"groups"`
}

// LoadTimeline reads and validates a groups file.
func LoadTimeline(path string) (*Timeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read timeline config: %w", err)
	}
	return ParseTimeline(data)
}

// ParseTimeline decodes a groups file, fills defaults and validates it.
// Groups without their own highlight tags inherit the file's, which default
// to the html highlighter's marks.
func ParseTimeline(data []byte) (*Timeline, error) {
	var tl Timeline
	if err := yaml.Unmarshal(data, &tl); err != nil {
		return nil, fmt.Errorf("parse timeline config: %w", err)
	}

	if tl.HighlightTags == (model.HighlightTags{}) {
		tl.HighlightTags = model.HTMLHighlightTags
	}
	for i := range tl.Groups {
		if tl.Groups[i].HighlightTags == (model.HighlightTags{}) {
			tl.Groups[i].HighlightTags = tl.HighlightTags
		}
	}

	if err := tl.Validate(); err != nil {
		return nil, err
	}
	return &tl, nil
}

// Validate checks every group. A group must address its start field, and a
// group addressing one field by segment sequence must address every
// configured field that way.
func (tl *Timeline) Validate() error {
	if len(tl.Groups) == 0 {
		return fmt.Errorf("%w: no groups", ErrInvalidConfig)
	}
	if tl.Timezone != "" {
		if _, err := time.LoadLocation(tl.Timezone); err != nil {
			return fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, tl.Timezone, err)
		}
	}

	seen := make(map[int]bool, len(tl.Groups))
	for _, g := range tl.Groups {
		if seen[g.ID] {
			return fmt.Errorf("%w: duplicate group id %d", ErrInvalidConfig, g.ID)
		}
		seen[g.ID] = true

		if err := validateFields(g.Params.FieldConfig); err != nil {
			return fmt.Errorf("%w: group %d: %v", ErrInvalidConfig, g.ID, err)
		}
		if g.Params.UseHighlight && (g.HighlightTags.Pre == "" || g.HighlightTags.Post == "") {
			return fmt.Errorf("%w: group %d: highlighting needs both tags", ErrInvalidConfig, g.ID)
		}
	}
	return nil
}

func validateFields(cfg model.FieldConfig) error {
	if cfg.Start().IsZero() {
		return errors.New("no start field")
	}
	if !cfg.UsesSequences() {
		return nil
	}
	if cfg.StartField != "" && len(cfg.StartFieldSequence) == 0 {
		return errors.New("startFieldSequence missing")
	}
	if cfg.EndField != "" && len(cfg.EndFieldSequence) == 0 {
		return errors.New("endFieldSequence missing")
	}
	if cfg.LabelField != "" && len(cfg.LabelFieldSequence) == 0 {
		return errors.New("labelFieldSequence missing")
	}
	return nil
}

// Group returns the group with the given id.
func (tl *Timeline) Group(id int) (model.GroupConfig, error) {
	for _, g := range tl.Groups {
		if g.ID == id {
			return g, nil
		}
	}
	return model.GroupConfig{}, fmt.Errorf("%w: %d", ErrUnknownGroup, id)
}

// TimeParser returns the time parser described by the file.
func (tl *Timeline) TimeParser() timeline.TimeParser {
	p := timeline.TimeParser{Layouts: tl.TimeLayouts}
	if tl.Timezone != "" {
		if loc, err := time.LoadLocation(tl.Timezone); err == nil {
			p.Location = loc
		}
	}
	return p
}
