package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sirensolutions/kibi-timeline/internal/config"
	"github.com/sirensolutions/kibi-timeline/internal/metrics"
	"github.com/sirensolutions/kibi-timeline/internal/model"
	"github.com/sirensolutions/kibi-timeline/internal/search"
	"github.com/sirensolutions/kibi-timeline/internal/timeline"
)

const maxProjectBody = 32 << 20

// TimelineSource runs the query of a timeline group.
type TimelineSource interface {
	Timeline(ctx context.Context, group model.GroupConfig, q string, limit int) ([]model.Hit, error)
}

// Groups looks up timeline groups by id.
type Groups interface {
	Group(id int) (model.GroupConfig, error)
}

// Searcher serves the timelines of one shard.
type Searcher struct {
	source       TimelineSource
	groups       Groups
	projector    *timeline.Projector
	shard        string
	defaultLimit int
	logger       *zap.Logger
}

// NewSearcher creates a shard searcher. shardID < 0 means single-node mode.
func NewSearcher(source TimelineSource, groups Groups, projector *timeline.Projector, shardID int, logger *zap.Logger) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	shard := "single"
	if shardID >= 0 {
		shard = fmt.Sprintf("shard-%d", shardID)
	}
	return &Searcher{
		source:       source,
		groups:       groups,
		projector:    projector,
		shard:        shard,
		defaultLimit: 100,
		logger:       logger.With(zap.String("shard", shard)),
	}
}

func (s *Searcher) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/timeline", s.handleTimeline).Methods("GET")
	r.HandleFunc("/project", s.handleProject).Methods("POST")
	r.HandleFunc("/groups/{id:[0-9]+}/sort", s.handleSort).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", health).Methods("GET")
	return r
}

func (s *Searcher) group(id int) (model.GroupConfig, int, error) {
	g, err := s.groups.Group(id)
	if err != nil {
		if errors.Is(err, config.ErrUnknownGroup) {
			return g, http.StatusNotFound, err
		}
		return g, http.StatusInternalServerError, err
	}
	return g, http.StatusOK, nil
}

func (s *Searcher) handleTimeline(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req, err := parseTimelineRequest(r, s.defaultLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		metrics.ObserveQuery(metrics.StatusError, s.shard, start)
		return
	}
	group, status, err := s.group(req.group)
	if err != nil {
		writeError(w, status, err)
		metrics.ObserveQuery(metrics.StatusError, s.shard, start)
		return
	}

	hits, err := s.source.Timeline(r.Context(), group, req.query, req.limit)
	if err != nil {
		s.logger.Error("timeline query failed", zap.Int("group", group.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		metrics.ObserveQuery(metrics.StatusError, s.shard, start)
		return
	}

	items := s.project(hits, group)
	writeJSON(w, http.StatusOK, TimelineResponse{
		Group:   group.ID,
		Query:   req.query,
		SortKey: timeline.SortKey(group.Params.FieldConfig),
		Hits:    len(hits),
		Items:   items,
		Took:    took(start),
	})
	metrics.ObserveQuery(metrics.StatusSuccess, s.shard, start)

	s.logger.Debug("timeline served",
		zap.Int("group", group.ID),
		zap.String("q", req.query),
		zap.Int("hits", len(hits)),
		zap.Int("items", len(items)),
		zap.Duration("took", time.Since(start)))
}

// handleProject projects the hits of a raw Elasticsearch search response
// posted by an external query layer.
func (s *Searcher) handleProject(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, err := strconv.Atoi(r.URL.Query().Get("group"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errBadGroup)
		return
	}
	group, status, err := s.group(id)
	if err != nil {
		writeError(w, status, err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxProjectBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return
	}
	hits, err := search.DecodeElasticsearch(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	items := s.project(hits, group)
	writeJSON(w, http.StatusOK, TimelineResponse{
		Group:   group.ID,
		SortKey: timeline.SortKey(group.Params.FieldConfig),
		Hits:    len(hits),
		Items:   items,
		Took:    took(start),
	})
}

func (s *Searcher) handleSort(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, errBadGroup)
		return
	}
	group, status, err := s.group(id)
	if err != nil {
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sort": []interface{}{timeline.SortClause(group.Params.FieldConfig)},
	})
}

func (s *Searcher) project(hits []model.Hit, group model.GroupConfig) []model.TimelineItem {
	label := strconv.Itoa(group.ID)
	items := make([]model.TimelineItem, 0, len(hits))
	for i := range hits {
		projected := s.projector.Project(&hits[i], group)
		if len(projected) == 0 {
			metrics.HitsWithoutItems.WithLabelValues(label).Inc()
			continue
		}
		items = append(items, projected...)
	}
	metrics.ItemsProjected.WithLabelValues(label).Add(float64(len(items)))
	return items
}
