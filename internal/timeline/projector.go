// Package timeline projects search hits into timeline items.
package timeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sirensolutions/kibi-timeline/internal/fieldpath"
	"github.com/sirensolutions/kibi-timeline/internal/highlight"
	"github.com/sirensolutions/kibi-timeline/internal/model"
)

// Projector turns hits into timeline items. It holds no mutable state and
// may be shared between goroutines.
type Projector struct {
	times  TimeParser
	logger *zap.Logger
}

// NewProjector creates a projector. A nil logger discards diagnostics.
func NewProjector(times TimeParser, logger *zap.Logger) *Projector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Projector{times: times, logger: logger}
}

// Project returns one item per start value of hit, in the order the values
// were resolved. A hit without a start value yields no items.
func (p *Projector) Project(hit *model.Hit, group model.GroupConfig) []model.TimelineItem {
	if hit == nil {
		return nil
	}
	cfg := group.Params.FieldConfig

	starts := p.resolveTimes(hit, cfg.Start(), true)
	if len(starts) == 0 {
		return nil
	}

	label := Label(hit, cfg)

	var end *time.Time
	if ends := p.resolveTimes(hit, cfg.End(), false); len(ends) > 0 {
		e := ends[0]
		end = &e
	}

	var content string
	if group.Params.UseHighlight {
		content = highlight.Extract(hit, group.HighlightTags)
	}

	indexID := group.IndexID
	if indexID == "" {
		indexID = hit.Index
	}

	items := make([]model.TimelineItem, 0, len(starts))
	for _, start := range starts {
		item := model.TimelineItem{
			Start:      start,
			End:        end,
			Value:      label,
			Content:    content,
			Group:      group.ID,
			GroupColor: group.Color,
			IndexID:    indexID,
			HitID:      hit.ID,
			StartField: cfg.Start().Name(),
			EndField:   cfg.End().Name(),
		}
		item.Type = model.ItemTypeRange
		if item.IsPoint() {
			item.Type = model.ItemTypePoint
		}
		items = append(items, item)
	}
	return items
}

// ProjectAll projects every hit, keeping hit order.
func (p *Projector) ProjectAll(hits []model.Hit, group model.GroupConfig) []model.TimelineItem {
	var items []model.TimelineItem
	for i := range hits {
		items = append(items, p.Project(&hits[i], group)...)
	}
	return items
}

// resolveTimes resolves ref and parses every value as a time. The fields
// projection entry for the field is preferred when present, since it carries
// values already parsed by the store.
func (p *Projector) resolveTimes(hit *model.Hit, ref model.FieldRef, all bool) []time.Time {
	if ref.IsZero() {
		return nil
	}
	v := fieldpath.Absent()
	if projected, ok := hit.Fields[ref.Name()]; ok {
		v = fieldpath.Of(projected)
	}
	if v.IsAbsent() {
		v = fieldpath.Resolve(hit, ref)
	}

	var out []time.Time
	for _, raw := range v.Values() {
		ts, ok := p.times.Parse(raw)
		if !ok {
			p.logger.Debug("skipping value that is not a time",
				zap.String("hit", hit.ID),
				zap.String("field", ref.Name()),
				zap.Any("value", raw))
			continue
		}
		out = append(out, ts)
		if !all {
			break
		}
	}
	return out
}

// Label returns the label of hit as a string, or model.NotAvailable when the
// label field is absent. List values are joined with ",".
func Label(hit *model.Hit, cfg model.FieldConfig) string {
	v := fieldpath.Resolve(hit, cfg.Label())
	if v.IsAbsent() {
		return model.NotAvailable
	}
	vals := v.Values()
	parts := make([]string, len(vals))
	for i, val := range vals {
		parts[i] = formatScalar(val)
	}
	return strings.Join(parts, ",")
}

func formatScalar(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(t)
	}
}
