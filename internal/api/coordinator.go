package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sirensolutions/kibi-timeline/internal/cache"
	"github.com/sirensolutions/kibi-timeline/internal/metrics"
	"github.com/sirensolutions/kibi-timeline/internal/model"
	"github.com/sirensolutions/kibi-timeline/internal/shard"
)

// Discoverer lists the addresses of the active shards.
type Discoverer interface {
	Discover(ctx context.Context) ([]string, error)
}

// Coordinator fans timeline requests out to every shard and merges the
// items into one timeline ordered by start.
type Coordinator struct {
	shards       Discoverer
	client       *http.Client
	cache        cache.Store
	cacheTTL     time.Duration
	defaultLimit int
	logger       *zap.Logger
}

// CoordinatorOption customizes a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithCache enables response caching. A nil store leaves caching off.
func WithCache(store cache.Store, ttl time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.cache = store
		c.cacheTTL = ttl
	}
}

func WithHTTPClient(client *http.Client) CoordinatorOption {
	return func(c *Coordinator) {
		c.client = client
	}
}

func WithDefaultLimit(limit int) CoordinatorOption {
	return func(c *Coordinator) {
		if limit > 0 {
			c.defaultLimit = limit
		}
	}
}

func NewCoordinator(shards Discoverer, logger *zap.Logger, opts ...CoordinatorOption) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Coordinator{
		shards:       shards,
		client:       &http.Client{Timeout: 10 * time.Second},
		cacheTTL:     5 * time.Minute,
		defaultLimit: 500,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/timeline", c.handleTimeline).Methods("GET")
	r.HandleFunc("/shards", c.handleShards).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", health).Methods("GET")
	return r
}

func (c *Coordinator) handleTimeline(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	req, err := parseTimelineRequest(r, c.defaultLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	key := cache.Key(req.group, req.query, req.limit)
	if c.cache != nil {
		if cached, ok := c.lookup(ctx, key); ok {
			c.writeCached(w, cached, "HIT", start)
			return
		}

		locked, err := c.cache.Lock(ctx, key, 2*time.Second)
		if err != nil {
			c.logger.Warn("cache lock failed", zap.String("key", key), zap.Error(err))
		}
		if locked {
			defer c.cache.Unlock(context.Background(), key)
		} else if err == nil {
			// another request is filling the entry
			time.Sleep(50 * time.Millisecond)
			if cached, ok := c.lookup(ctx, key); ok {
				c.writeCached(w, cached, "HIT_WAIT", start)
				return
			}
		}
	}

	shards, err := c.shards.Discover(ctx)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, shard.ErrNoShards) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, fmt.Errorf("no shards available: %w", err))
		return
	}

	c.logger.Debug("fan-out", zap.Int("shards", len(shards)), zap.Int("group", req.group), zap.String("q", req.query))

	results := c.fanout(ctx, shards, req)
	resp, status, err := merge(results, req)
	if err != nil {
		writeError(w, status, err)
		return
	}
	resp.Took = took(start)

	body, err := json.Marshal(resp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if c.cache != nil {
		if err := c.cache.Set(ctx, key, body, c.cacheTTL); err != nil {
			c.logger.Warn("cache populate failed", zap.String("key", key), zap.Error(err))
		}
		w.Header().Set("X-Cache", "MISS")
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Took", took(start))
	w.Write(body)

	c.logger.Info("timeline merged",
		zap.Int("group", req.group),
		zap.String("q", req.query),
		zap.Int("items", len(resp.Items)),
		zap.Int("shards", len(shards)),
		zap.Duration("took", time.Since(start)))
}

func (c *Coordinator) lookup(ctx context.Context, key string) ([]byte, bool) {
	cached, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
		metrics.CacheLookups.WithLabelValues(metrics.StatusError).Inc()
		return nil, false
	}
	if !ok {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return cached, true
}

func (c *Coordinator) writeCached(w http.ResponseWriter, body []byte, state string, start time.Time) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", state)
	w.Header().Set("X-Took", took(start))
	w.Write(body)
}

type shardResult struct {
	addr   string
	resp   *TimelineResponse
	status int
	err    error
}

// fanout queries every shard in parallel. Results keep the order of shards.
func (c *Coordinator) fanout(ctx context.Context, shards []string, req timelineRequest) []shardResult {
	results := make([]shardResult, len(shards))
	var wg sync.WaitGroup
	for i, addr := range shards {
		wg.Add(1)
		go func(i int, addr string) {
			defer wg.Done()
			results[i] = c.queryShard(ctx, addr, req)
		}(i, addr)
	}
	wg.Wait()
	return results
}

func (c *Coordinator) queryShard(ctx context.Context, addr string, req timelineRequest) shardResult {
	res := shardResult{addr: addr}

	params := url.Values{}
	params.Set("group", strconv.Itoa(req.group))
	params.Set("limit", strconv.Itoa(req.limit))
	if req.query != "" {
		params.Set("q", req.query)
	}
	queryURL := fmt.Sprintf("http://%s/timeline?%s", addr, params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		res.err = fmt.Errorf("build request: %w", err)
		return res
	}
	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Warn("shard error", zap.String("shard", addr), zap.Error(err))
		res.err = err
		return res
	}
	defer resp.Body.Close()

	res.status = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("shard returned status", zap.String("shard", addr), zap.Int("status", resp.StatusCode))
		res.err = fmt.Errorf("shard %s returned status %d", addr, resp.StatusCode)
		return res
	}

	var tr TimelineResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		c.logger.Warn("shard decode error", zap.String("shard", addr), zap.Error(err))
		res.err = fmt.Errorf("decode shard %s: %w", addr, err)
		return res
	}
	res.resp = &tr
	return res
}

// hitRun is the run of items one hit fanned out to, in resolved order.
type hitRun struct {
	first time.Time // earliest start of the hit
	items []model.TimelineItem
}

// hitRuns splits a shard timeline into the runs of its hits. A searcher
// emits the items of one hit next to each other.
func hitRuns(items []model.TimelineItem) []hitRun {
	var runs []hitRun
	for i := 0; i < len(items); {
		j := i + 1
		for j < len(items) && items[j].HitID == items[i].HitID && items[j].IndexID == items[i].IndexID {
			j++
		}
		run := hitRun{first: items[i].Start, items: items[i:j]}
		for _, it := range items[i+1 : j] {
			if it.Start.Before(run.first) {
				run.first = it.Start
			}
		}
		runs = append(runs, run)
		i = j
	}
	return runs
}

// merge combines shard timelines into one ordered by the earliest start of
// each hit, keeping the items of a hit together and in their resolved order.
// Hits with equal starts keep shard order. The result is truncated to the
// limit. Failed shards are skipped; if every shard failed the first error is
// returned, with 404 when every shard reported an unknown group.
func merge(results []shardResult, req timelineRequest) (*TimelineResponse, int, error) {
	out := &TimelineResponse{Group: req.group, Query: req.query, Items: []model.TimelineItem{}}

	var firstErr error
	var runs []hitRun
	notFound := 0
	for _, res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			if res.status == http.StatusNotFound {
				notFound++
			}
			continue
		}
		out.Shards++
		out.Hits += res.resp.Hits
		out.SortKey = res.resp.SortKey
		runs = append(runs, hitRuns(res.resp.Items)...)
	}

	if out.Shards == 0 && firstErr != nil {
		if notFound == len(results) {
			return nil, http.StatusNotFound, fmt.Errorf("group %d: %w", req.group, firstErr)
		}
		return nil, http.StatusBadGateway, firstErr
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].first.Before(runs[j].first)
	})
	for _, run := range runs {
		out.Items = append(out.Items, run.items...)
	}
	if req.limit > 0 && len(out.Items) > req.limit {
		out.Items = out.Items[:req.limit]
	}
	return out, http.StatusOK, nil
}

func (c *Coordinator) handleShards(w http.ResponseWriter, r *http.Request) {
	shards, err := c.shards.Discover(r.Context())
	if err != nil && !errors.Is(err, shard.ErrNoShards) {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"shards": shards,
		"count":  len(shards),
	})
}
