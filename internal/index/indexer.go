package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/highlight/highlighter/html"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"github.com/sirensolutions/kibi-timeline/internal/model"
	"github.com/sirensolutions/kibi-timeline/internal/search"
	"github.com/sirensolutions/kibi-timeline/internal/timeline"
)

// DefaultLimit caps a timeline query without an explicit size.
const DefaultLimit = 500

// Indexer owns a bleve index of event documents.
type Indexer struct {
	Index  bleve.Index
	name   string
	logger *zap.Logger
}

// NewIndexer opens the index at indexPath, creating it when missing. Event
// fields are mapped dynamically, so nested objects are addressable by their
// dotted names and RFC 3339 strings are indexed as dates.
func NewIndexer(indexPath string, logger *zap.Logger) (*Indexer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mapping := bleve.NewIndexMapping()

	index, err := bleve.Open(indexPath)
	if err != nil {
		index, err = bleve.New(indexPath, mapping)
		if err != nil {
			return nil, fmt.Errorf("create bleve index: %w", err)
		}
		logger.Info("created index", zap.String("path", indexPath))
	} else {
		logger.Info("opened index", zap.String("path", indexPath))
	}

	return &Indexer{Index: index, name: filepath.Base(indexPath), logger: logger}, nil
}

// NewMemIndexer creates an in-memory index.
func NewMemIndexer(name string, logger *zap.Logger) (*Indexer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create memory index: %w", err)
	}
	return &Indexer{Index: index, name: name, logger: logger}, nil
}

// Name identifies the index in produced hits.
func (idx *Indexer) Name() string {
	return idx.name
}

// IndexDocs indexes docs in a single batch. Docs without an ID get one
// derived from their position.
func (idx *Indexer) IndexDocs(docs ...model.Doc) error {
	batch := idx.Index.NewBatch()
	for i, doc := range docs {
		if len(doc.Source) == 0 {
			continue
		}
		id := doc.ID
		if id == "" {
			id = fmt.Sprintf("event_%d", i+1)
		}
		if err := batch.Index(id, doc.Source); err != nil {
			return fmt.Errorf("index %s: %w", id, err)
		}
	}
	if err := idx.Index.Batch(batch); err != nil {
		return fmt.Errorf("batch flush: %w", err)
	}
	return nil
}

// IndexJSONL streams docs from a JSONL file into the index in batches of
// batchSize. Undecodable lines and docs with an empty source are skipped.
// maxDocs > 0 caps the number of indexed docs.
func (idx *Indexer) IndexJSONL(ctx context.Context, jsonlPath string, batchSize int, maxDocs int) error {
	f, err := os.Open(jsonlPath)
	if err != nil {
		return fmt.Errorf("open jsonl: %w", err)
	}
	defer f.Close()

	if batchSize <= 0 {
		batchSize = 1000
	}

	dec := json.NewDecoder(f)
	batch := idx.Index.NewBatch()

	var indexed, skipped int
	start := time.Now()

	for {
		if ctx.Err() != nil {
			idx.logger.Warn("context cancelled, flushing remaining batch")
			break
		}

		var doc model.Doc
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				// the decoder cannot resync after a syntax error
				return fmt.Errorf("decode jsonl at offset %d: %w", syntaxErr.Offset, err)
			}
			idx.logger.Warn("decode error, skipping", zap.Error(err))
			skipped++
			continue
		}

		if len(doc.Source) == 0 {
			skipped++
			continue
		}
		if doc.ID == "" {
			doc.ID = fmt.Sprintf("event_%d", indexed+skipped+1)
		}

		if err := batch.Index(doc.ID, doc.Source); err != nil {
			idx.logger.Warn("index error, skipping", zap.String("id", doc.ID), zap.Error(err))
			skipped++
			continue
		}
		indexed++

		if indexed%batchSize == 0 {
			if err := idx.Index.Batch(batch); err != nil {
				return fmt.Errorf("batch flush at %d: %w", indexed, err)
			}
			batch = idx.Index.NewBatch()
			idx.logger.Info("indexing progress",
				zap.Int("indexed", indexed),
				zap.Int("skipped", skipped),
				zap.Float64("docs_per_sec", float64(indexed)/time.Since(start).Seconds()))
		}

		if maxDocs > 0 && indexed >= maxDocs {
			idx.logger.Info("hit max-docs cap", zap.Int("max_docs", maxDocs))
			break
		}
	}

	if batch.Size() > 0 {
		if err := idx.Index.Batch(batch); err != nil {
			return fmt.Errorf("final batch flush: %w", err)
		}
	}

	count, _ := idx.Index.DocCount()
	idx.logger.Info("indexing complete",
		zap.Int("indexed", indexed),
		zap.Int("skipped", skipped),
		zap.Duration("took", time.Since(start)),
		zap.Uint64("doc_count", count))

	return nil
}

// Timeline runs the query of a timeline group and returns its hits in
// ascending order of the group's start field. q narrows the group query;
// both empty match every event.
func (idx *Indexer) Timeline(ctx context.Context, group model.GroupConfig, q string, limit int) ([]model.Hit, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	req := bleve.NewSearchRequest(groupQuery(group.Query, q))
	req.Size = limit
	req.Fields = []string{"*"}
	req.SortBy([]string{timeline.SortKey(group.Params.FieldConfig)})
	if group.Params.UseHighlight {
		req.Highlight = bleve.NewHighlightWithStyle(html.Name)
	}

	res, err := idx.Index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search group %d: %w", group.ID, err)
	}
	return search.FromBleveResult(res, idx.name), nil
}

func groupQuery(groupQ, q string) query.Query {
	var parts []query.Query
	for _, s := range []string{groupQ, q} {
		if s != "" && s != "*" {
			parts = append(parts, bleve.NewQueryStringQuery(s))
		}
	}
	switch len(parts) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return parts[0]
	default:
		return bleve.NewConjunctionQuery(parts...)
	}
}

func (idx *Indexer) Close() error {
	return idx.Index.Close()
}
