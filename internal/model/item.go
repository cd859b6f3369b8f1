package model

import "time"

const (
	ItemTypePoint = "point"
	ItemTypeRange = "range"

	// NotAvailable is the label of an item whose hit has no label value.
	NotAvailable = "N/A"
)

// TimelineItem is one renderable event on the timeline.
type TimelineItem struct {
	Start      time.Time  `json:"start"`
	End        *time.Time `json:"end,omitempty"`
	Value      string     `json:"value"`
	Content    string     `json:"content,omitempty"`
	Type       string     `json:"type"`
	Group      int        `json:"group"`
	GroupColor string     `json:"groupColor,omitempty"`
	IndexID    string     `json:"indexId,omitempty"`
	HitID      string     `json:"hitId,omitempty"`
	StartField string     `json:"startField,omitempty"`
	EndField   string     `json:"endField,omitempty"`
}

// IsPoint reports whether the item renders as a point marker: it has no end,
// or its end equals its start.
func (i TimelineItem) IsPoint() bool {
	return i.End == nil || i.End.Equal(i.Start)
}
