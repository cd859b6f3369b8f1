// Package api serves timelines over HTTP: a searcher per shard and a
// coordinator merging the shards' timelines.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirensolutions/kibi-timeline/internal/model"
)

// TimelineResponse is the body of a /timeline reply.
type TimelineResponse struct {
	Group   int                  `json:"group"`
	Query   string               `json:"query,omitempty"`
	SortKey string               `json:"sort_key"`
	Hits    int                  `json:"hits"`
	Shards  int                  `json:"shards,omitempty"`
	Items   []model.TimelineItem `json:"items"`
	Took    string               `json:"took"`
}

type timelineRequest struct {
	group int
	query string
	limit int
}

var (
	errMissingGroup = errors.New("missing 'group' parameter")
	errBadGroup     = errors.New("invalid 'group' parameter")
	errBadLimit     = errors.New("invalid 'limit' parameter")
)

func parseTimelineRequest(r *http.Request, defaultLimit int) (timelineRequest, error) {
	q := r.URL.Query()
	req := timelineRequest{query: q.Get("q"), limit: defaultLimit}

	raw := q.Get("group")
	if raw == "" {
		return req, errMissingGroup
	}
	group, err := strconv.Atoi(raw)
	if err != nil {
		return req, errBadGroup
	}
	req.group = group

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return req, errBadLimit
		}
		if limit > 0 {
			req.limit = limit
		}
	}
	return req, nil
}

// writeJSON marshals v before writing the header, so an unencodable value
// turns into a 500 instead of a truncated 200.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(map[string]string{"error": fmt.Sprintf("encode response: %v", err)})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func took(start time.Time) string {
	return time.Since(start).String()
}
