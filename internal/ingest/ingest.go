// Package ingest turns event exports into the JSONL documents read by the
// indexer, spreading them over shard files.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"sync"
	"sync/atomic"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/sirensolutions/kibi-timeline/internal/model"
)

const (
	DefaultWorkers = 8
	maxLineSize    = 16 << 20
)

// Options tune a Run.
type Options struct {
	Workers int
	MaxDocs int    // 0 = no limit
	Index   string // index name for events that carry none
}

// Stats counts what a Run did.
type Stats struct {
	Read    int64
	Written int64
	Skipped int64
}

// ShardOf maps a document id onto one of n shards.
func ShardOf(id string, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(id))
	return int(h.Sum32() % uint32(n))
}

// Normalize decodes one export line. A line is either an Elasticsearch hit
// ({"_id", "_index", "_source"}) or a bare event object. Events without an
// id get one from seq.
func Normalize(line []byte, index string, seq *atomic.Int64) (model.Doc, bool, error) {
	var raw map[string]interface{}
	if err := sonic.Unmarshal(line, &raw); err != nil {
		return model.Doc{}, false, fmt.Errorf("decode event: %w", err)
	}

	var doc model.Doc
	if src, ok := raw["_source"].(map[string]interface{}); ok {
		doc.Source = src
		doc.ID, _ = raw["_id"].(string)
		doc.Index, _ = raw["_index"].(string)
	} else {
		doc.Source = raw
	}
	if len(doc.Source) == 0 {
		return doc, false, nil
	}

	if doc.ID == "" {
		doc.ID = fmt.Sprintf("evt_%d", seq.Add(1))
	}
	if doc.Index == "" {
		doc.Index = index
	}
	return doc, true, nil
}

func worker(ctx context.Context, id int, opts Options, in <-chan []byte, out chan<- model.Doc, seq *atomic.Int64, stats *Stats, logger *zap.Logger) {
	logger.Debug("worker starting", zap.Int("worker", id))
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-in:
			if !ok {
				return
			}
			doc, ok, err := Normalize(line, opts.Index, seq)
			if err != nil {
				logger.Warn("skipping line", zap.Int("worker", id), zap.Error(err))
			}
			if !ok {
				atomic.AddInt64(&stats.Skipped, 1)
				continue
			}
			select {
			case out <- doc:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Run reads export lines from r and writes every document, JSON encoded, to
// the writer of its shard. len(outs) is the shard count.
func Run(ctx context.Context, r io.Reader, outs []io.Writer, opts Options, logger *zap.Logger) (Stats, error) {
	var stats Stats
	if len(outs) == 0 {
		return stats, fmt.Errorf("ingest: no outputs")
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lineCh := make(chan []byte, 512)
	docCh := make(chan model.Doc, 512)
	var seq atomic.Int64

	var wg sync.WaitGroup
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			worker(ctx, id, opts, lineCh, docCh, &seq, &stats, logger)
		}(i)
	}
	go func() {
		wg.Wait()
		close(docCh)
	}()

	readErr := make(chan error, 1)
	go func() {
		defer close(lineCh)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			if opts.MaxDocs > 0 && stats.Read >= int64(opts.MaxDocs) {
				logger.Info("hit max-docs cap, stopping reader", zap.Int("max", opts.MaxDocs))
				break
			}
			atomic.AddInt64(&stats.Read, 1)

			// the scanner reuses its buffer
			buf := make([]byte, len(line))
			copy(buf, line)
			select {
			case lineCh <- buf:
			case <-ctx.Done():
				readErr <- ctx.Err()
				return
			}
		}
		readErr <- scanner.Err()
	}()

	bufs := make([]*bufio.Writer, len(outs))
	encs := make([]*json.Encoder, len(outs))
	for i, w := range outs {
		bufs[i] = bufio.NewWriter(w)
		encs[i] = json.NewEncoder(bufs[i])
	}

	var writeErr error
	for doc := range docCh {
		if writeErr != nil {
			continue
		}
		if err := encs[ShardOf(doc.ID, len(outs))].Encode(doc); err != nil {
			writeErr = fmt.Errorf("write doc %s: %w", doc.ID, err)
			cancel()
			continue
		}
		stats.Written++
		if stats.Written%5000 == 0 {
			logger.Info("ingest progress", zap.Int64("written", stats.Written))
		}
	}

	err := <-readErr
	for i, buf := range bufs {
		if ferr := buf.Flush(); ferr != nil && writeErr == nil {
			writeErr = fmt.Errorf("flush shard %d: %w", i, ferr)
		}
	}
	if writeErr != nil {
		return stats, writeErr
	}
	if err != nil {
		return stats, fmt.Errorf("read export: %w", err)
	}
	return stats, nil
}
